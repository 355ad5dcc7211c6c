package vdom

import (
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
)

// TestRandomizedListTransitions drives the keyed differ through random
// mutations of a list and checks after every step that the replayed tree
// matches a fresh mount of the same state, the stack drains and no ids
// leak.
func TestRandomizedListTransitions(t *testing.T) {
	f := gofakeit.New(0xd1ff)

	keys := make([]string, 8)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%d", f.Word(), i)
	}

	d, md := mountTree(t, listNode(keys...))
	nextID := len(keys)

	for round := 0; round < 50; round++ {
		f.ShuffleStrings(keys)

		// Drop a few.
		if len(keys) > 2 && f.Bool() {
			keys = keys[:len(keys)-f.Number(1, 2)]
		}
		// Add a few, at a random position.
		for n := f.Number(0, 2); n > 0 && len(keys) < 12; n-- {
			k := fmt.Sprintf("%s-%d", f.Word(), nextID)
			nextID++
			at := f.Number(0, len(keys))
			keys = append(keys[:at], append([]string{k}, keys[at:]...)...)
		}

		renderTree(t, d, md, listNode(keys...))
		if got, want := md.String(), freshHTML(t, listNode(keys...)); got != want {
			t.Fatalf("round %d (%v): tree = %s, want %s", round, keys, got, want)
		}
	}

	replayBatch(t, d, md, d.Unmount())
	if d.LiveNodes() != 0 {
		t.Fatalf("%d ids leaked over %d rounds", d.LiveNodes(), 50)
	}
}

// TestRandomizedTextAndAttrChurn flips dynamic text and attribute values
// and verifies the diff converges to the fresh-mount rendering each time.
func TestRandomizedTextAndAttrChurn(t *testing.T) {
	f := gofakeit.New(0xa77f)

	d, md := mountTree(t, counterNode(f.Word(), f.Word()))
	for round := 0; round < 50; round++ {
		count, title := f.Word(), f.Word()
		renderTree(t, d, md, counterNode(count, title))
		if got, want := md.String(), freshHTML(t, counterNode(count, title)); got != want {
			t.Fatalf("round %d: tree = %s, want %s", round, got, want)
		}
	}
}
