package vdom

import "time"

// DiffStats carries counters for one mount, diff or unmount pass.
type DiffStats struct {
	Edits        int           `json:"edits"`
	NodesCreated int           `json:"nodes_created"`
	NodesRemoved int           `json:"nodes_removed"`
	Duration     time.Duration `json:"duration"`
}
