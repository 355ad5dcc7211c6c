package vdom

import (
	"strings"
	"testing"
)

func TestRebuildCounter(t *testing.T) {
	d, md := mountTree(t, counterNode("5", "five"))

	want := `<div class="counter" title="five">Count: 5</div>`
	if got := md.String(); got != want {
		t.Fatalf("mounted tree = %s, want %s", got, want)
	}
	if d.LiveNodes() == 0 {
		t.Fatal("no ids allocated for mounted tree")
	}

	stats := d.LastStats()
	if stats.Edits == 0 || stats.NodesCreated == 0 {
		t.Errorf("stats not recorded: %+v", stats)
	}
}

func TestRebuildPanicsWhenMounted(t *testing.T) {
	d, _ := mountTree(t, counterNode("1", "one"))
	mustPanic(t, "second Rebuild", func() { d.Rebuild(counterNode("2", "two")) })
}

func TestRenderBeforeRebuildPanics(t *testing.T) {
	d := NewDom()
	mustPanic(t, "Render on empty Dom", func() { d.Render(counterNode("1", "one")) })
}

func TestNoChangeProducesNoEdits(t *testing.T) {
	d, md := mountTree(t, counterNode("5", "five"))
	batch := renderTree(t, d, md, counterNode("5", "five"))
	if len(batch.Edits) != 0 {
		t.Fatalf("identical render produced %d edits: %+v", len(batch.Edits), batch.Edits)
	}
}

func TestTextChangeIsSingleSetText(t *testing.T) {
	d, md := mountTree(t, counterNode("5", "five"))
	batch := renderTree(t, d, md, counterNode("6", "five"))

	if len(batch.Edits) != 1 || batch.Edits[0].Op != SetText {
		t.Fatalf("text change edits = %+v, want one set_text", batch.Edits)
	}
	if !strings.Contains(md.String(), "Count: 6") {
		t.Errorf("tree after diff = %s", md.String())
	}
}

func TestAttributeDiff(t *testing.T) {
	t.Run("Changed_Value_Rewrites", func(t *testing.T) {
		d, md := mountTree(t, counterNode("5", "five"))
		batch := renderTree(t, d, md, counterNode("5", "cinco"))
		if len(batch.Edits) != 1 || batch.Edits[0].Op != SetAttribute {
			t.Fatalf("edits = %+v, want one set_attribute", batch.Edits)
		}
		if !strings.Contains(md.String(), `title="cinco"`) {
			t.Errorf("tree = %s", md.String())
		}
	})

	t.Run("Removed_Attribute_Clears", func(t *testing.T) {
		d, md := mountTree(t, counterNode("5", "five"))
		next := NewVNode(counterTmpl, "",
			[]DynamicNode{TextNode("5")},
			[][]Attribute{{}},
		)
		batch := renderTree(t, d, md, next)
		if countOps(batch, SetAttribute) != 1 {
			t.Fatalf("edits = %+v, want one clearing set_attribute", batch.Edits)
		}
		if strings.Contains(md.String(), "title=") {
			t.Errorf("title still present: %s", md.String())
		}
	})

	t.Run("Volatile_Attribute_Always_Rewrites", func(t *testing.T) {
		tmpl := NewTemplate("input.go:4:1",
			Elem("input", []TemplateAttribute{DynamicAttr(0)}),
		)
		node := func() *VNode {
			return NewVNode(tmpl, "", nil, [][]Attribute{{
				{Name: "value", Value: TextValue("x"), Volatile: true},
			}})
		}
		d, md := mountTree(t, node())
		batch := renderTree(t, d, md, node())
		if countOps(batch, SetAttribute) != 1 {
			t.Fatalf("volatile attribute not rewritten: %+v", batch.Edits)
		}
	})
}

func TestEventListeners(t *testing.T) {
	tmpl := NewTemplate("button.go:9:2",
		Elem("button", []TemplateAttribute{DynamicAttr(0)}, StaticText("go")),
	)
	withListener := func(on bool) *VNode {
		var attrs []Attribute
		if on {
			attrs = []Attribute{{Name: "onclick", Value: ListenerValue()}}
		}
		return NewVNode(tmpl, "", nil, [][]Attribute{attrs})
	}

	d, md := mountTree(t, withListener(true))
	btn := md.root.Children[0]
	if !btn.Listeners["click"] {
		t.Fatalf("click listener not attached: %+v", btn.Listeners)
	}

	batch := renderTree(t, d, md, withListener(false))
	if countOps(batch, RemoveEventListener) != 1 {
		t.Fatalf("edits = %+v, want remove_event_listener", batch.Edits)
	}
	if btn.Listeners["click"] {
		t.Error("click listener still attached after removal")
	}
}

func TestPlaceholderFragmentConversion(t *testing.T) {
	d, md := mountTree(t, listNode())
	if md.String() != "<ul><!></ul>" {
		t.Fatalf("empty list = %s", md.String())
	}

	batch := renderTree(t, d, md, listNode("a", "b"))
	if countOps(batch, ReplaceWith) != 1 {
		t.Fatalf("placeholder fill edits = %+v", batch.Edits)
	}
	if got, want := md.String(), freshHTML(t, listNode("a", "b")); got != want {
		t.Fatalf("filled list = %s, want %s", got, want)
	}

	batch = renderTree(t, d, md, listNode())
	if countOps(batch, CreatePlaceholder) != 1 {
		t.Fatalf("emptying edits = %+v", batch.Edits)
	}
	if md.String() != "<ul><!></ul>" {
		t.Fatalf("emptied list = %s", md.String())
	}
}

func TestDynamicKindChange(t *testing.T) {
	tmpl := NewTemplate("slot.go:3:1", Elem("div", nil, DynamicSlot(0)))
	node := func(dyn DynamicNode) *VNode {
		return NewVNode(tmpl, "", []DynamicNode{dyn}, nil)
	}

	d, md := mountTree(t, node(TextNode("hello")))
	renderTree(t, d, md, node(FragmentNode(itemNode("x"), itemNode("y"))))
	if got, want := md.String(), freshHTML(t, node(FragmentNode(itemNode("x"), itemNode("y")))); got != want {
		t.Fatalf("text to fragment = %s, want %s", got, want)
	}

	renderTree(t, d, md, node(TextNode("back")))
	if md.String() != "<div>back</div>" {
		t.Fatalf("fragment to text = %s", md.String())
	}
}

func TestComponentDiff(t *testing.T) {
	tmpl := NewTemplate("shell.go:14:1", Elem("main", nil, DynamicSlot(0)))
	shell := func(name, count string) *VNode {
		return NewVNode(tmpl, "", []DynamicNode{
			ComponentNode(name, "", counterNode(count, "t")),
		}, nil)
	}

	d, md := mountTree(t, shell("Counter", "1"))

	// Same component: state diffs through to its rendered subtree.
	batch := renderTree(t, d, md, shell("Counter", "2"))
	if len(batch.Edits) != 1 || batch.Edits[0].Op != SetText {
		t.Fatalf("component rerender edits = %+v", batch.Edits)
	}

	// Different component name: subtree replaced.
	batch = renderTree(t, d, md, shell("Other", "3"))
	if countOps(batch, ReplaceWith) == 0 {
		t.Fatalf("component swap edits = %+v", batch.Edits)
	}
	if got, want := md.String(), freshHTML(t, shell("Other", "3")); got != want {
		t.Fatalf("swapped tree = %s, want %s", got, want)
	}
}

func TestUnmountReleasesEverything(t *testing.T) {
	d, md := mountTree(t, listNode("a", "b", "c"))
	replayBatch(t, d, md, d.Unmount())

	if d.LiveNodes() != 0 {
		t.Errorf("%d ids still live after unmount", d.LiveNodes())
	}
	if md.NodeCount() != 0 {
		t.Errorf("%d nodes still tracked after unmount", md.NodeCount())
	}
	if md.String() != "" {
		t.Errorf("tree not empty after unmount: %s", md.String())
	}
}

func TestMultiRootTemplate(t *testing.T) {
	tmpl := NewTemplate("pair.go:6:1",
		Elem("dt", nil, DynamicSlot(0)),
		Elem("dd", nil, DynamicSlot(1)),
	)
	pair := func(term, def string) *VNode {
		return NewVNode(tmpl, "", []DynamicNode{TextNode(term), TextNode(def)}, nil)
	}

	d, md := mountTree(t, pair("a", "1"))
	if md.String() != "<dt>a</dt><dd>1</dd>" {
		t.Fatalf("multi-root mount = %s", md.String())
	}

	batch := renderTree(t, d, md, pair("a", "2"))
	if countOps(batch, SetText) != 1 {
		t.Fatalf("edits = %+v", batch.Edits)
	}

	replayBatch(t, d, md, d.Unmount())
	if md.String() != "" || d.LiveNodes() != 0 {
		t.Fatalf("multi-root unmount left %s (%d live)", md.String(), d.LiveNodes())
	}
}

func TestExpandedTemplatesMode(t *testing.T) {
	d, md := mountTree(t, counterNode("5", "five"), WithExpandedTemplates())

	if got, want := md.String(), freshHTML(t, counterNode("5", "five")); got != want {
		t.Fatalf("expanded mount = %s, want %s", got, want)
	}

	next := d.Render(counterNode("6", "five"))
	if countOps(next, LoadTemplate) != 0 {
		t.Fatalf("expanded mode emitted load_template: %+v", next.Edits)
	}
	replayBatch(t, d, md, next)
	if !strings.Contains(md.String(), "Count: 6") {
		t.Errorf("expanded diff tree = %s", md.String())
	}
}

func TestExpandedRebuildUsesCreateOps(t *testing.T) {
	d := NewDom(WithExpandedTemplates())
	batch := d.Rebuild(counterNode("5", "five"))

	if countOps(batch, LoadTemplate) != 0 {
		t.Fatalf("expanded rebuild emitted load_template: %+v", batch.Edits)
	}
	if countOps(batch, CreateElement) == 0 || countOps(batch, CreateTextNode) == 0 {
		t.Fatalf("expanded rebuild missing create ops: %+v", batch.Edits)
	}
	if len(batch.Templates) != 0 {
		t.Errorf("expanded rebuild registered %d templates", len(batch.Templates))
	}
}

// nonRetaining wraps MemDom to report it cannot keep template clones.
type nonRetaining struct{ *MemDom }

func (nonRetaining) RetainsTemplates() bool { return false }

func TestWithRendererHonorsTemplateRetention(t *testing.T) {
	md := NewMemDom()
	d := NewDom(WithRenderer(nonRetaining{md}))
	batch := d.Rebuild(counterNode("7", "seven"))

	if countOps(batch, LoadTemplate) != 0 {
		t.Fatalf("non-retaining renderer got load_template: %+v", batch.Edits)
	}
	batch.Replay(md)
	if got, want := md.String(), `<div class="counter" title="seven">Count: 7</div>`; got != want {
		t.Fatalf("tree = %s, want %s", got, want)
	}

	// A renderer without the optional interface keeps the template path.
	retaining := NewDom(WithRenderer(NewMemDom()))
	if b := retaining.Rebuild(counterNode("7", "seven")); countOps(b, LoadTemplate) == 0 {
		t.Fatalf("retaining renderer lost load_template: %+v", b.Edits)
	}
}
