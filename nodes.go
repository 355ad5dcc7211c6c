package vdom

import (
	"sort"
	"strconv"
	"strings"
)

// DynamicKind discriminates the runtime variants of a dynamic node slot.
// The set is closed; the diffing engine matches on it exhaustively.
type DynamicKind uint8

const (
	// DynText is a runtime text value.
	DynText DynamicKind = iota + 1
	// DynPlaceholder is an empty slot holding a position in the tree.
	DynPlaceholder
	// DynFragment is a runtime list of child nodes, possibly keyed.
	DynFragment
	// DynComponent is a nested component subtree, already rendered by the
	// component runtime.
	DynComponent
)

// DynamicNode is the runtime value filling one dynamic node slot of a
// template. Exactly one variant is populated, selected by Kind.
type DynamicNode struct {
	Kind      DynamicKind
	Text      string
	Children  []*VNode
	Component *VComponent
}

// VComponent is a component occupying a dynamic slot. The component runtime
// is outside this package; by the time a tree reaches the diffing engine the
// component has been invoked and Node holds its rendered output.
type VComponent struct {
	Name string
	Key  string
	Node *VNode
}

// TextNode builds a dynamic text value.
func TextNode(text string) DynamicNode {
	return DynamicNode{Kind: DynText, Text: text}
}

// PlaceholderNode builds an empty placeholder value.
func PlaceholderNode() DynamicNode {
	return DynamicNode{Kind: DynPlaceholder}
}

// FragmentNode builds a fragment from children. An empty child list becomes
// a placeholder, so fragments handed to the diffing engine are never empty.
func FragmentNode(children ...*VNode) DynamicNode {
	if len(children) == 0 {
		return PlaceholderNode()
	}
	return DynamicNode{Kind: DynFragment, Children: children}
}

// ComponentNode builds a component value from its rendered subtree.
func ComponentNode(name, key string, node *VNode) DynamicNode {
	return DynamicNode{Kind: DynComponent, Component: &VComponent{Name: name, Key: key, Node: node}}
}

// AttrValueKind discriminates attribute value variants.
type AttrValueKind uint8

const (
	// AttrText is a plain string value.
	AttrText AttrValueKind = iota + 1
	// AttrFloat is a float value.
	AttrFloat
	// AttrInt is an integer value.
	AttrInt
	// AttrBool is a boolean value.
	AttrBool
	// AttrNone removes the attribute.
	AttrNone
	// AttrListener marks an event listener; the attribute name carries the
	// event prefixed with "on" (for example "onclick").
	AttrListener
)

// AttributeValue is the value of a dynamic attribute.
type AttributeValue struct {
	Kind  AttrValueKind
	Text  string
	Float float64
	Int   int64
	Bool  bool
}

// String renders the value as the string a renderer stores. AttrNone renders
// as the empty string, which renderers treat as attribute removal.
func (v AttributeValue) String() string {
	switch v.Kind {
	case AttrText:
		return v.Text
	case AttrFloat:
		return strconv.FormatFloat(v.Float, 'f', -1, 64)
	case AttrInt:
		return strconv.FormatInt(v.Int, 10)
	case AttrBool:
		return strconv.FormatBool(v.Bool)
	default:
		return ""
	}
}

// Equal reports whether two attribute values are identical.
func (v AttributeValue) Equal(o AttributeValue) bool {
	return v == o
}

// Attribute is one runtime attribute in a dynamic attribute slot.
type Attribute struct {
	Name      string
	Namespace string
	Value     AttributeValue
	// Volatile attributes may be overridden by the backend (for example an
	// input's value in a browser) and are rewritten on every diff.
	Volatile bool
}

// eventName strips the "on" prefix from a listener attribute name.
func (a Attribute) eventName() string {
	return strings.TrimPrefix(a.Name, "on")
}

// TextValue builds a plain text attribute value.
func TextValue(s string) AttributeValue { return AttributeValue{Kind: AttrText, Text: s} }

// IntValue builds an integer attribute value.
func IntValue(i int64) AttributeValue { return AttributeValue{Kind: AttrInt, Int: i} }

// FloatValue builds a float attribute value.
func FloatValue(f float64) AttributeValue { return AttributeValue{Kind: AttrFloat, Float: f} }

// BoolValue builds a boolean attribute value.
func BoolValue(b bool) AttributeValue { return AttributeValue{Kind: AttrBool, Bool: b} }

// NoneValue builds the removal value.
func NoneValue() AttributeValue { return AttributeValue{Kind: AttrNone} }

// ListenerValue builds an event listener value.
func ListenerValue() AttributeValue { return AttributeValue{Kind: AttrListener} }

// VNode is one rendered instance of a template: the template skeleton plus
// the runtime values for its dynamic slots. VNodes are produced fresh on
// every render pass; the diffing engine borrows them for one diff call and
// carries mount state from the old instance to the new one.
type VNode struct {
	Key          string
	Template     *Template
	DynamicNodes []DynamicNode
	DynamicAttrs [][]Attribute

	mount *vnodeMount
}

// NewVNode pairs a template with its runtime slot values. The slot counts
// must match the template's path tables; a mismatch is a bug in the caller
// and panics during mount or diff rather than here, so that partially built
// trees can still be assembled.
//
// Attribute lists within each slot are sorted by name, which the attribute
// differ relies on.
func NewVNode(t *Template, key string, nodes []DynamicNode, attrs [][]Attribute) *VNode {
	for _, list := range attrs {
		sort.SliceStable(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	}
	return &VNode{Key: key, Template: t, DynamicNodes: nodes, DynamicAttrs: attrs}
}

// Mounted reports whether this instance is currently mounted.
func (v *VNode) Mounted() bool {
	return v.mount != nil
}
