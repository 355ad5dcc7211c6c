package vdom

import (
	"bytes"
	"testing"
)

func TestTemplatePaths(t *testing.T) {
	tmpl := NewTemplate("paths.go:1:1",
		Elem("div", []TemplateAttribute{DynamicAttr(0)},
			StaticText("head"),
			DynamicSlot(0),
			Elem("span", []TemplateAttribute{DynamicAttr(1)},
				DynamicSlot(1),
			),
		),
		DynamicSlot(2),
	)

	wantNodes := [][]byte{{0, 1}, {0, 2, 0}, {1}}
	if len(tmpl.NodePaths) != len(wantNodes) {
		t.Fatalf("node paths = %v", tmpl.NodePaths)
	}
	for i, want := range wantNodes {
		if !bytes.Equal(tmpl.NodePaths[i], want) {
			t.Errorf("node path %d = %v, want %v", i, tmpl.NodePaths[i], want)
		}
	}

	wantAttrs := [][]byte{{0}, {0, 2}}
	if len(tmpl.AttrPaths) != len(wantAttrs) {
		t.Fatalf("attr paths = %v", tmpl.AttrPaths)
	}
	for i, want := range wantAttrs {
		if !bytes.Equal(tmpl.AttrPaths[i], want) {
			t.Errorf("attr path %d = %v, want %v", i, tmpl.AttrPaths[i], want)
		}
	}
}

func TestTemplateSlotOrderPanics(t *testing.T) {
	mustPanic(t, "out-of-order node slots", func() {
		NewTemplate("bad.go:1:1",
			Elem("div", nil, DynamicSlot(1), DynamicSlot(0)),
		)
	})
	mustPanic(t, "out-of-order attr slots", func() {
		NewTemplate("bad.go:2:1",
			Elem("div", []TemplateAttribute{DynamicAttr(1)},
				Elem("span", []TemplateAttribute{DynamicAttr(0)}),
			),
		)
	})
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a := NewTemplate("a.go:1:1", Elem("div", nil))
	if got := r.Register(a); got != a {
		t.Fatal("first Register did not adopt the template")
	}

	// Same name registers to the existing instance.
	dup := NewTemplate("a.go:1:1", Elem("div", nil))
	if got := r.Register(dup); got != a {
		t.Error("duplicate Register did not return the canonical instance")
	}

	swapped := NewTemplate("a.go:1:1", Elem("section", nil))
	if prev := r.Swap(swapped); prev != a {
		t.Error("Swap did not return the previous version")
	}
	if got := r.Get("a.go:1:1"); got != swapped {
		t.Error("Get did not return the swapped version")
	}
	if got := r.Get("missing"); got != nil {
		t.Errorf("Get for unknown name = %v", got)
	}
}

func TestSharedRegistryAcrossDoms(t *testing.T) {
	r := NewRegistry()
	d1, md1 := mountTree(t, counterNode("1", "a"), WithRegistry(r))
	d2, md2 := mountTree(t, counterNode("2", "b"), WithRegistry(r))

	if d1.Registry() != r || d2.Registry() != r {
		t.Fatal("registry option not applied")
	}

	// A swap through one Dom is visible to the other on its next render.
	batch, err := d1.HotReload(HotReloadTemplateWithLocation{
		Name: counterTmpl.Name,
		Template: HotReloadedTemplate{
			DynamicNodes: []HotReloadDynamicNode{{Dynamic: true, Index: 0}},
			DynamicAttrs: []HotReloadAttribute{{Dynamic: true, Index: 0}},
			Roots: []TemplateNode{
				Elem("div", []TemplateAttribute{StaticAttr("class", "counter"), DynamicAttr(0)},
					StaticText("N: "),
					DynamicSlot(0),
				),
			},
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	replayBatch(t, d1, md1, batch)

	renderTree(t, d2, md2, counterNode("3", "b"))
	if got, want := md2.String(), `<div class="counter" title="b">N: 3</div>`; got != want {
		t.Fatalf("second dom after shared swap = %s, want %s", got, want)
	}
}

func TestTemplateValidate(t *testing.T) {
	good := NewTemplate("valid.go:1:1",
		Elem("div", []TemplateAttribute{DynamicAttr(0)}, DynamicSlot(0)),
	)
	good.Validate()

	bad := &Template{
		Name:      "valid.go:1:1",
		Roots:     good.Roots,
		NodePaths: [][]byte{{0, 1}},
		AttrPaths: good.AttrPaths,
	}
	mustPanic(t, "mismatched node path", bad.Validate)

	short := &Template{Name: "valid.go:1:1", Roots: good.Roots}
	mustPanic(t, "missing paths", short.Validate)
}
