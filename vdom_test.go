package vdom

import (
	"testing"
)

// Shared template fixtures. Each builder returns a fresh VNode because a
// VNode carries mount state and belongs to exactly one tree.

var counterTmpl = NewTemplate("counter.go:12:3",
	Elem("div", []TemplateAttribute{StaticAttr("class", "counter"), DynamicAttr(0)},
		StaticText("Count: "),
		DynamicSlot(0),
	),
)

func counterNode(count, title string) *VNode {
	return NewVNode(counterTmpl, "",
		[]DynamicNode{TextNode(count)},
		[][]Attribute{{{Name: "title", Value: TextValue(title)}}},
	)
}

var listTmpl = NewTemplate("list.go:30:1",
	Elem("ul", nil, DynamicSlot(0)),
)

var itemTmpl = NewTemplate("item.go:8:2",
	Elem("li", nil, DynamicSlot(0)),
)

func itemNode(key string) *VNode {
	return NewVNode(itemTmpl, key, []DynamicNode{TextNode("item " + key)}, nil)
}

func listNode(keys ...string) *VNode {
	items := make([]*VNode, len(keys))
	for i, k := range keys {
		items[i] = itemNode(k)
	}
	return NewVNode(listTmpl, "", []DynamicNode{FragmentNode(items...)}, nil)
}

// mountTree builds a Dom/MemDom pair with node mounted.
func mountTree(t *testing.T, node *VNode, opts ...DomOption) (*Dom, *MemDom) {
	t.Helper()
	d := NewDom(opts...)
	md := NewMemDom()
	replayBatch(t, d, md, d.Rebuild(node))
	return d, md
}

// renderTree diffs the mounted tree against node and replays the result.
func renderTree(t *testing.T, d *Dom, md *MemDom, node *VNode) *Mutations {
	t.Helper()
	batch := d.Render(node)
	replayBatch(t, d, md, batch)
	return batch
}

// replayBatch applies a batch and checks the protocol invariants: the batch
// stack is balanced, the replay stack drains, and every live arena id has a
// node in the renderer.
func replayBatch(t *testing.T, d *Dom, md *MemDom, batch *Mutations) {
	t.Helper()
	if batch.Depth() != 0 {
		t.Fatalf("batch left %d nodes on the stack", batch.Depth())
	}
	batch.Replay(md)
	if md.StackDepth() != 0 {
		t.Fatalf("replay left %d nodes on the stack", md.StackDepth())
	}
	if got, want := md.NodeCount(), d.LiveNodes(); got != want {
		t.Fatalf("renderer tracks %d nodes, arena has %d live ids", got, want)
	}
}

// freshHTML mounts node into a throwaway pair and serializes it, giving the
// expected end state for a diffed tree.
func freshHTML(t *testing.T, node *VNode, opts ...DomOption) string {
	t.Helper()
	_, md := mountTree(t, node, opts...)
	return md.String()
}

func countOps(batch *Mutations, op MutationOp) int {
	n := 0
	for _, e := range batch.Edits {
		if e.Op == op {
			n++
		}
	}
	return n
}

func mustPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}
