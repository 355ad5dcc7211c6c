package vdom

import "strings"

// SourceNodeKind discriminates the variants of a SourceNode.
type SourceNodeKind uint8

const (
	// SourceElement is an element with attributes and children.
	SourceElement SourceNodeKind = iota + 1
	// SourceText is literal text.
	SourceText
	// SourceExpr is a node produced by an expression; Expr holds its
	// source text.
	SourceExpr
	// SourceFormatted is interpolated text mixing literal and expression
	// segments.
	SourceFormatted
)

// SourceSegment is one piece of interpolated text. A non-empty Expr makes
// the segment dynamic.
type SourceSegment struct {
	Literal string `json:"literal,omitempty"`
	Expr    string `json:"expr,omitempty"`
}

// SourceAttribute is an attribute as written in source. A non-empty Expr
// makes it dynamic.
type SourceAttribute struct {
	Name      string `json:"name"`
	Namespace string `json:"ns,omitempty"`
	Value     string `json:"value,omitempty"`
	Expr      string `json:"expr,omitempty"`
}

// SourceNode is one node of a template declaration as parsed from source,
// before expressions are compiled. Tooling diffs two of these to decide
// whether an edit can be hot reloaded.
type SourceNode struct {
	Kind      SourceNodeKind    `json:"kind"`
	Tag       string            `json:"tag,omitempty"`
	Namespace string            `json:"ns,omitempty"`
	Attrs     []SourceAttribute `json:"attrs,omitempty"`
	Children  []SourceNode      `json:"children,omitempty"`
	Text      string            `json:"text,omitempty"`
	Expr      string            `json:"expr,omitempty"`
	Segments  []SourceSegment   `json:"segments,omitempty"`
}

// SourceTemplate is a template declaration at a source location.
type SourceTemplate struct {
	Name  string       `json:"name"`
	Roots []SourceNode `json:"roots"`
}

// UpdateTemplate compares the last compiled version of a declaration with
// its edited form and builds the patch that applies the edit to running
// code. Expressions cannot be recompiled at runtime, so every expression in
// the edited form must already exist in the compiled version; expressions
// with the same text are matched first come, first served. ok is false when
// an expression has no counterpart and the edit needs a full recompile.
func UpdateTemplate(old, new *SourceTemplate) (upd HotReloadTemplateWithLocation, ok bool) {
	b := newPayloadBuilder(old)
	roots := make([]TemplateNode, len(new.Roots))
	for i := range new.Roots {
		tn, ok := b.node(&new.Roots[i])
		if !ok {
			return HotReloadTemplateWithLocation{}, false
		}
		roots[i] = tn
	}
	return HotReloadTemplateWithLocation{
		Name: old.Name,
		Template: HotReloadedTemplate{
			DynamicNodes: b.nodes,
			DynamicAttrs: b.attrs,
			Roots:        roots,
		},
	}, true
}

// poolEntry is one dynamic slot of the compiled template, keyed by the
// source text that produced it.
type poolEntry struct {
	key   string
	index int
	used  bool
}

type exprPool []poolEntry

// take claims the first unused entry with the given key.
func (p exprPool) take(key string) (int, bool) {
	for i := range p {
		if !p[i].used && p[i].key == key {
			p[i].used = true
			return p[i].index, true
		}
	}
	return 0, false
}

type payloadBuilder struct {
	nodePool exprPool
	attrPool exprPool
	// exprIndex maps a bare expression to the dynamic node slot holding
	// its rendered text, for formatted segments. Reading a slot as a
	// format argument does not claim it.
	exprIndex map[string]int

	nodes []HotReloadDynamicNode
	attrs []HotReloadAttribute
}

func newPayloadBuilder(old *SourceTemplate) *payloadBuilder {
	b := &payloadBuilder{exprIndex: make(map[string]int)}
	nodeIdx, attrIdx := 0, 0
	var walk func(nodes []SourceNode)
	walk = func(nodes []SourceNode) {
		for i := range nodes {
			sn := &nodes[i]
			switch sn.Kind {
			case SourceExpr:
				b.nodePool = append(b.nodePool, poolEntry{key: nodeKey(sn), index: nodeIdx})
				if _, seen := b.exprIndex[sn.Expr]; !seen {
					b.exprIndex[sn.Expr] = nodeIdx
				}
				nodeIdx++
			case SourceFormatted:
				b.nodePool = append(b.nodePool, poolEntry{key: nodeKey(sn), index: nodeIdx})
				nodeIdx++
			case SourceElement:
				for _, a := range sn.Attrs {
					if a.Expr == "" {
						continue
					}
					b.attrPool = append(b.attrPool, poolEntry{key: attrKey(&a), index: attrIdx})
					attrIdx++
				}
				walk(sn.Children)
			}
		}
	}
	walk(old.Roots)
	return b
}

func nodeKey(sn *SourceNode) string {
	if sn.Kind == SourceExpr {
		return "expr:" + sn.Expr
	}
	var b strings.Builder
	b.WriteString("fmt:")
	for _, seg := range sn.Segments {
		if seg.Expr != "" {
			b.WriteString("{" + seg.Expr + "}")
		} else {
			b.WriteString(seg.Literal)
		}
	}
	return b.String()
}

func attrKey(a *SourceAttribute) string {
	return a.Namespace + ":" + a.Name + "=" + a.Expr
}

func (b *payloadBuilder) node(sn *SourceNode) (TemplateNode, bool) {
	switch sn.Kind {
	case SourceText:
		return StaticText(sn.Text), true

	case SourceExpr:
		idx, ok := b.nodePool.take(nodeKey(sn))
		if !ok {
			return TemplateNode{}, false
		}
		slot := len(b.nodes)
		b.nodes = append(b.nodes, HotReloadDynamicNode{Dynamic: true, Index: idx})
		return DynamicSlot(slot), true

	case SourceFormatted:
		slot := len(b.nodes)
		if idx, ok := b.nodePool.take(nodeKey(sn)); ok {
			b.nodes = append(b.nodes, HotReloadDynamicNode{Dynamic: true, Index: idx})
			return DynamicSlot(slot), true
		}
		// The exact interpolation did not exist before; rebuild it from
		// literals and already-compiled expressions.
		segs := make(FmtSegments, 0, len(sn.Segments))
		for _, seg := range sn.Segments {
			if seg.Expr == "" {
				segs = append(segs, FmtSegment{Literal: seg.Literal})
				continue
			}
			idx, ok := b.exprIndex[seg.Expr]
			if !ok {
				return TemplateNode{}, false
			}
			segs = append(segs, FmtSegment{Dynamic: true, Index: idx})
		}
		b.nodes = append(b.nodes, HotReloadDynamicNode{Segments: segs})
		return DynamicSlot(slot), true

	case SourceElement:
		out := TemplateNode{Kind: TemplateElement, Tag: sn.Tag, Namespace: sn.Namespace}
		for i := range sn.Attrs {
			a := &sn.Attrs[i]
			if a.Expr == "" {
				out.Attrs = append(out.Attrs, StaticAttrNS(a.Name, a.Namespace, a.Value))
				continue
			}
			idx, ok := b.attrPool.take(attrKey(a))
			if !ok {
				return TemplateNode{}, false
			}
			slot := len(b.attrs)
			b.attrs = append(b.attrs, HotReloadAttribute{Dynamic: true, Index: idx})
			out.Attrs = append(out.Attrs, DynamicAttr(slot))
		}
		for i := range sn.Children {
			child, ok := b.node(&sn.Children[i])
			if !ok {
				return TemplateNode{}, false
			}
			out.Children = append(out.Children, child)
		}
		return out, true
	}
	return TemplateNode{}, false
}
