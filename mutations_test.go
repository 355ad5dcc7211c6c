package vdom

import (
	"encoding/json"
	"testing"
)

func TestBatchIsBalanced(t *testing.T) {
	d := NewDom()
	batch := d.Rebuild(listNode("a", "b"))
	if batch.Depth() != 0 {
		t.Fatalf("rebuild batch depth = %d", batch.Depth())
	}

	batch = d.Render(listNode("b", "a"))
	if batch.Depth() != 0 {
		t.Fatalf("render batch depth = %d", batch.Depth())
	}
}

func TestBatchSerializesForTheWire(t *testing.T) {
	d := NewDom()
	batch := d.Rebuild(counterNode("5", "five"))

	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Mutations
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if len(decoded.Edits) != len(batch.Edits) {
		t.Fatalf("round trip lost edits: %d != %d", len(decoded.Edits), len(batch.Edits))
	}
	if len(decoded.Templates) != 1 || decoded.Templates[0].Name != counterTmpl.Name {
		t.Fatalf("round trip templates = %+v", decoded.Templates)
	}

	// A decoded batch drives a renderer on the other side of the wire.
	md := NewMemDom()
	decoded.Replay(md)
	if got, want := md.String(), freshHTML(t, counterNode("5", "five")); got != want {
		t.Fatalf("decoded replay = %s, want %s", got, want)
	}
}

func TestReplayPanicsOnUnknownOp(t *testing.T) {
	bad := &Mutations{Edits: []Mutation{{Op: "explode"}}}
	mustPanic(t, "unknown op", func() { bad.Replay(NewMemDom()) })
}

func TestReplayPanicsOnUnderflow(t *testing.T) {
	// append_children consuming a node that was never pushed.
	bad := &Mutations{Edits: []Mutation{{Op: AppendChildren, ID: 0, M: 1}}}
	mustPanic(t, "stack underflow", func() { bad.Replay(NewMemDom()) })
}

func TestTemplatesListedOncePerBatch(t *testing.T) {
	d := NewDom()
	batch := d.Rebuild(listNode("a", "b", "c"))

	seen := map[string]int{}
	for _, tmpl := range batch.Templates {
		seen[tmpl.Name]++
	}
	if seen[listTmpl.Name] != 1 || seen[itemTmpl.Name] != 1 {
		t.Fatalf("template registrations = %v", seen)
	}
}

func TestLaterBatchesRelistTemplates(t *testing.T) {
	d, md := mountTree(t, listNode())

	// The items only appear in the second batch; its template list must
	// carry their template or a remote renderer cannot replay it.
	batch := d.Render(listNode("a"))
	found := false
	for _, tmpl := range batch.Templates {
		if tmpl.Name == itemTmpl.Name {
			found = true
		}
	}
	if !found {
		t.Fatalf("second batch templates = %+v", batch.Templates)
	}
	replayBatch(t, d, md, batch)
}
