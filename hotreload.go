package vdom

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FmtSegment is one piece of a formatted string: either a literal or a
// reference to a dynamic text value by its slot index in the previous
// template.
type FmtSegment struct {
	Literal string `json:"literal,omitempty"`
	Dynamic bool   `json:"dynamic,omitempty"`
	Index   int    `json:"index,omitempty"`
}

// FmtSegments is a formatted string split into segments.
type FmtSegments []FmtSegment

// HotReloadLiteralKind discriminates the literal attribute values a reload
// payload can carry.
type HotReloadLiteralKind uint8

const (
	LitFmted HotReloadLiteralKind = iota
	LitFloat
	LitInt
	LitBool
)

// HotReloadLiteral is a literal value baked into a reloaded template where
// the previous version had (or the new version gains) a dynamic attribute.
type HotReloadLiteral struct {
	Kind     HotReloadLiteralKind `json:"kind"`
	Segments FmtSegments          `json:"segments,omitempty"`
	Float    float64              `json:"float,omitempty"`
	Int      int64                `json:"int,omitempty"`
	Bool     bool                 `json:"bool,omitempty"`
}

// HotReloadDynamicNode says how to fill one dynamic node slot of a reloaded
// template from the values of the currently mounted instance: either reuse
// the old value in slot Index unchanged, or rebuild a formatted text from
// Segments.
type HotReloadDynamicNode struct {
	Dynamic  bool        `json:"dynamic,omitempty"`
	Index    int         `json:"index,omitempty"`
	Segments FmtSegments `json:"segments,omitempty"`
}

// HotReloadAttribute says how to fill one dynamic attribute slot: reuse the
// old slot Index, or write a literal.
type HotReloadAttribute struct {
	Dynamic   bool              `json:"dynamic,omitempty"`
	Index     int               `json:"index,omitempty"`
	Name      string            `json:"name,omitempty"`
	Namespace string            `json:"ns,omitempty"`
	Literal   *HotReloadLiteral `json:"literal,omitempty"`
}

// HotReloadedTemplate is the patch payload for one template: a full new
// skeleton plus remap instructions pulling the live dynamic values of the
// old version into the new slots.
type HotReloadedTemplate struct {
	Key          string                 `json:"key,omitempty"`
	DynamicNodes []HotReloadDynamicNode `json:"dynamic_nodes"`
	DynamicAttrs []HotReloadAttribute   `json:"dynamic_attrs"`
	Roots        []TemplateNode         `json:"roots"`
}

// HotReloadTemplateWithLocation pairs a patch with the declaration it
// replaces.
type HotReloadTemplateWithLocation struct {
	Name     string              `json:"name" validate:"required"`
	Template HotReloadedTemplate `json:"template" validate:"required"`
}

// build validates the payload skeleton and produces the replacement
// template. Node and attribute paths are recomputed from the roots.
func (h *HotReloadedTemplate) build(name string) (*Template, error) {
	nodes, attrs := 0, 0
	for i := range h.Roots {
		if err := checkSlotOrder(&h.Roots[i], &nodes, &attrs); err != nil {
			return nil, fmt.Errorf("template %s: %w", name, err)
		}
	}
	if nodes != len(h.DynamicNodes) {
		return nil, fmt.Errorf("template %s: skeleton has %d dynamic nodes, payload fills %d", name, nodes, len(h.DynamicNodes))
	}
	if attrs != len(h.DynamicAttrs) {
		return nil, fmt.Errorf("template %s: skeleton has %d dynamic attributes, payload fills %d", name, attrs, len(h.DynamicAttrs))
	}
	return NewTemplate(name, h.Roots...), nil
}

func checkSlotOrder(tn *TemplateNode, nodes, attrs *int) error {
	switch tn.Kind {
	case TemplateDynamic:
		if tn.ID != *nodes {
			return fmt.Errorf("dynamic node slot %d out of order (want %d)", tn.ID, *nodes)
		}
		*nodes++
		return nil
	case TemplateText:
		return nil
	}
	for _, a := range tn.Attrs {
		if !a.Dynamic {
			continue
		}
		if a.ID != *attrs {
			return fmt.Errorf("dynamic attribute slot %d out of order (want %d)", a.ID, *attrs)
		}
		*attrs++
	}
	for i := range tn.Children {
		if err := checkSlotOrder(&tn.Children[i], nodes, attrs); err != nil {
			return err
		}
	}
	return nil
}

// dynamicValuePool hands out the live dynamic values of a mounted instance
// to the slots of a reloaded template. Each value may be taken at most
// once; handing the same mounted subtree to two slots would corrupt the
// arena, so a double take panics.
type dynamicValuePool struct {
	nodes     []DynamicNode
	attrs     [][]Attribute
	nodeTaken []bool
	attrTaken []bool
}

func newValuePool(v *VNode) *dynamicValuePool {
	return &dynamicValuePool{
		nodes:     v.DynamicNodes,
		attrs:     v.DynamicAttrs,
		nodeTaken: make([]bool, len(v.DynamicNodes)),
		attrTaken: make([]bool, len(v.DynamicAttrs)),
	}
}

func (p *dynamicValuePool) takeNode(i int) DynamicNode {
	if i < 0 || i >= len(p.nodes) {
		panic(fmt.Sprintf("vdom: hot reload references dynamic node %d of %d", i, len(p.nodes)))
	}
	if p.nodeTaken[i] {
		panic(fmt.Sprintf("vdom: hot reload takes dynamic node %d twice", i))
	}
	p.nodeTaken[i] = true
	return p.nodes[i]
}

func (p *dynamicValuePool) takeAttrs(i int) []Attribute {
	if i < 0 || i >= len(p.attrs) {
		panic(fmt.Sprintf("vdom: hot reload references dynamic attribute %d of %d", i, len(p.attrs)))
	}
	if p.attrTaken[i] {
		panic(fmt.Sprintf("vdom: hot reload takes dynamic attribute %d twice", i))
	}
	p.attrTaken[i] = true
	return p.attrs[i]
}

// renderFmt rebuilds a formatted string using the old instance's dynamic
// text values as arguments. A segment referencing a non-text slot renders
// empty. Rendering does not consume the referenced slots.
func (p *dynamicValuePool) renderFmt(segments FmtSegments) string {
	var b strings.Builder
	for _, s := range segments {
		if !s.Dynamic {
			b.WriteString(s.Literal)
			continue
		}
		if s.Index >= 0 && s.Index < len(p.nodes) && p.nodes[s.Index].Kind == DynText {
			b.WriteString(p.nodes[s.Index].Text)
		}
	}
	return b.String()
}

func (l *HotReloadLiteral) attributeValue(p *dynamicValuePool) AttributeValue {
	switch l.Kind {
	case LitFmted:
		return TextValue(p.renderFmt(l.Segments))
	case LitFloat:
		return FloatValue(l.Float)
	case LitInt:
		return IntValue(l.Int)
	case LitBool:
		return BoolValue(l.Bool)
	}
	panic(fmt.Sprintf("vdom: unknown literal kind %d", l.Kind))
}

// remapVNode builds the instance of a reloaded template from the live
// values of the old instance.
func remapVNode(old *VNode, hr *HotReloadedTemplate, t *Template) *VNode {
	pool := newValuePool(old)
	nodes := make([]DynamicNode, len(hr.DynamicNodes))
	for i, hn := range hr.DynamicNodes {
		if hn.Dynamic {
			nodes[i] = pool.takeNode(hn.Index)
		} else {
			nodes[i] = DynamicNode{Kind: DynText, Text: pool.renderFmt(hn.Segments)}
		}
	}
	attrs := make([][]Attribute, len(hr.DynamicAttrs))
	for i, ha := range hr.DynamicAttrs {
		if ha.Dynamic {
			attrs[i] = pool.takeAttrs(ha.Index)
		} else {
			attrs[i] = []Attribute{{
				Name:      ha.Name,
				Namespace: ha.Namespace,
				Value:     ha.Literal.attributeValue(pool),
			}}
		}
	}
	return NewVNode(t, old.Key, nodes, attrs)
}

// HotReload applies a template patch to the mounted tree. The registry is
// updated so future renders use the new skeleton, and every mounted
// instance of the template is patched in place: when only dynamic wiring or
// formatted text changed, the patch diffs down to the minimal edits; when
// the static skeleton changed, the affected subtrees are rebuilt with their
// dynamic values carried over. Returns the resulting mutation batch.
func (d *Dom) HotReload(upd HotReloadTemplateWithLocation) (*Mutations, error) {
	newT, err := upd.Template.build(upd.Name)
	if err != nil {
		return nil, err
	}
	oldT := d.registry.Get(upd.Name)
	d.registry.Swap(newT)

	start := time.Now()
	d.beginPass()
	if d.root != nil && oldT != nil {
		d.patchMounted(d.root, oldT, newT, &upd.Template)
	}
	return d.endPass(start), nil
}

// patchMounted walks the mounted tree bottom-up and patches every instance
// of oldT, so nested instances are already on the new skeleton when their
// enclosing instance is rebuilt.
func (d *Dom) patchMounted(v *VNode, oldT, newT *Template, hr *HotReloadedTemplate) {
	for i := range v.DynamicNodes {
		dyn := &v.DynamicNodes[i]
		switch dyn.Kind {
		case DynFragment:
			for _, child := range dyn.Children {
				d.patchMounted(child, oldT, newT, hr)
			}
		case DynComponent:
			d.patchMounted(dyn.Component.Node, oldT, newT, hr)
		}
	}
	if v.Template != oldT {
		return
	}

	next := remapVNode(v, hr, newT)
	if skeletonEqual(oldT, newT) && safeInPlace(v, hr) {
		// Same static structure: diff the remapped values slot for slot.
		// The template pointer moves to the new version so later renders
		// take the in-place path too.
		checkSlots(newT, next)
		next.mount = v.mount
		d.diffAttributes(v, next)
		for idx := range next.DynamicNodes {
			d.diffDynamicNode(next, idx, &v.DynamicNodes[idx], &next.DynamicNodes[idx])
		}
		*v = *next
		return
	}

	// The skeleton changed: rebuild the subtree in place. The remapped
	// instance shares child subtrees with the old one, so the old mounts
	// must be torn down before anything is recreated. A placeholder pivot
	// holds the position in between.
	pivot := d.nextElement()
	first := d.firstElementID(v)
	d.muts.createPlaceholder(pivot)
	d.muts.insertBefore(first, 1)
	d.removeNode(v, true, 0)
	m := d.createNode(next)
	d.muts.replaceWith(pivot, m)
	d.reclaim(pivot)
	*v = *next
}

// safeInPlace reports whether the remap can be applied by diffing slots in
// place. Text and placeholder values can move between slots freely; a
// fragment or component moved to a different slot drags its mounted
// subtree along and needs the rebuild path.
func safeInPlace(old *VNode, hr *HotReloadedTemplate) bool {
	for i, hn := range hr.DynamicNodes {
		if !hn.Dynamic || hn.Index == i {
			continue
		}
		switch old.DynamicNodes[hn.Index].Kind {
		case DynFragment, DynComponent:
			return false
		}
	}
	return true
}

// skeletonEqual reports whether two templates have identical static
// structure, so instances can be diffed without reloading template clones.
func skeletonEqual(a, b *Template) bool {
	if len(a.Roots) != len(b.Roots) {
		return false
	}
	for i := range a.Roots {
		if !templateNodeEqual(&a.Roots[i], &b.Roots[i]) {
			return false
		}
	}
	return true
}

func templateNodeEqual(a, b *TemplateNode) bool {
	if a.Kind != b.Kind || a.Tag != b.Tag || a.Namespace != b.Namespace ||
		a.Text != b.Text || a.ID != b.ID || len(a.Attrs) != len(b.Attrs) ||
		len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Attrs {
		if a.Attrs[i] != b.Attrs[i] {
			return false
		}
	}
	for i := range a.Children {
		if !templateNodeEqual(&a.Children[i], &b.Children[i]) {
			return false
		}
	}
	return true
}

// FormatArgs renders segments against explicit argument strings, used when
// building payloads rather than applying them.
func (s FmtSegments) FormatArgs(args []string) string {
	var b strings.Builder
	for _, seg := range s {
		if !seg.Dynamic {
			b.WriteString(seg.Literal)
			continue
		}
		if seg.Index >= 0 && seg.Index < len(args) {
			b.WriteString(args[seg.Index])
		}
	}
	return b.String()
}

// String renders segments with placeholders for dynamic slots, for
// diagnostics.
func (s FmtSegments) String() string {
	var b strings.Builder
	for _, seg := range s {
		if seg.Dynamic {
			b.WriteString("{")
			b.WriteString(strconv.Itoa(seg.Index))
			b.WriteString("}")
		} else {
			b.WriteString(seg.Literal)
		}
	}
	return b.String()
}
