package vdom

import (
	"bytes"
	"fmt"
	"sync"
)

// TemplateNodeKind discriminates the variants of a TemplateNode.
type TemplateNodeKind uint8

const (
	// TemplateElement is a static element with a tag, attributes and children.
	TemplateElement TemplateNodeKind = iota + 1
	// TemplateText is a static text node.
	TemplateText
	// TemplateDynamic marks a dynamic node slot filled in at render time.
	TemplateDynamic
)

// TemplateNode is one node of a template skeleton. Exactly one variant is
// populated, selected by Kind.
type TemplateNode struct {
	Kind TemplateNodeKind `json:"kind"`

	// Element fields.
	Tag       string              `json:"tag,omitempty"`
	Namespace string              `json:"ns,omitempty"`
	Attrs     []TemplateAttribute `json:"attrs,omitempty"`
	Children  []TemplateNode      `json:"children,omitempty"`

	// Text field.
	Text string `json:"text,omitempty"`

	// Dynamic slot index into VNode.DynamicNodes.
	ID int `json:"id,omitempty"`
}

// TemplateAttribute is a static attribute value or a dynamic attribute slot
// on a template element.
type TemplateAttribute struct {
	Dynamic   bool   `json:"dynamic,omitempty"`
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name,omitempty"`
	Namespace string `json:"ns,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Template is the immutable, shared skeleton of a subtree. Templates are
// deduplicated by Name (a stable source-location identity such as
// "counter.go:42:7"); every render of the same declaration reuses one
// Template, letting the diffing engine skip all static content.
//
// NodePaths[i] is the child-index path from the template roots to dynamic
// node slot i; AttrPaths[i] is the path to the element owning dynamic
// attribute slot i. Slot indices are assigned depth-first, left to right.
type Template struct {
	Name      string         `json:"name"`
	Roots     []TemplateNode `json:"roots"`
	NodePaths [][]byte       `json:"node_paths"`
	AttrPaths [][]byte       `json:"attr_paths"`
}

// Elem builds a static element template node.
func Elem(tag string, attrs []TemplateAttribute, children ...TemplateNode) TemplateNode {
	return TemplateNode{Kind: TemplateElement, Tag: tag, Attrs: attrs, Children: children}
}

// ElemNS builds a static element template node in a namespace.
func ElemNS(tag, ns string, attrs []TemplateAttribute, children ...TemplateNode) TemplateNode {
	return TemplateNode{Kind: TemplateElement, Tag: tag, Namespace: ns, Attrs: attrs, Children: children}
}

// StaticText builds a static text template node.
func StaticText(text string) TemplateNode {
	return TemplateNode{Kind: TemplateText, Text: text}
}

// DynamicSlot builds a dynamic node marker for slot id.
func DynamicSlot(id int) TemplateNode {
	return TemplateNode{Kind: TemplateDynamic, ID: id}
}

// StaticAttr builds a static attribute.
func StaticAttr(name, value string) TemplateAttribute {
	return TemplateAttribute{Name: name, Value: value}
}

// StaticAttrNS builds a static attribute in a namespace.
func StaticAttrNS(name, ns, value string) TemplateAttribute {
	return TemplateAttribute{Name: name, Namespace: ns, Value: value}
}

// DynamicAttr builds a dynamic attribute marker for slot id.
func DynamicAttr(id int) TemplateAttribute {
	return TemplateAttribute{Dynamic: true, ID: id}
}

// NewTemplate builds a Template from its roots, deriving NodePaths and
// AttrPaths from a depth-first walk. It panics if the dynamic slot indices
// embedded in the roots are not strictly increasing in walk order; that is a
// bug in the template producer, not a runtime condition.
func NewTemplate(name string, roots ...TemplateNode) *Template {
	nodePaths, attrPaths := templatePaths(roots)
	t := &Template{
		Name:      name,
		Roots:     roots,
		NodePaths: nodePaths,
		AttrPaths: attrPaths,
	}
	return t
}

// Validate checks that NodePaths and AttrPaths match a depth-first walk of
// Roots and that slot indices are strictly increasing in walk order. It
// panics on violation; templates built by hand instead of NewTemplate call
// this once before use.
func (t *Template) Validate() {
	nodePaths, attrPaths := templatePaths(t.Roots)
	if len(nodePaths) != len(t.NodePaths) || len(attrPaths) != len(t.AttrPaths) {
		panic(fmt.Sprintf("vdom: template %q declares %d node and %d attr paths, walk found %d and %d",
			t.Name, len(t.NodePaths), len(t.AttrPaths), len(nodePaths), len(attrPaths)))
	}
	for i, p := range nodePaths {
		if !bytes.Equal(p, t.NodePaths[i]) {
			panic(fmt.Sprintf("vdom: template %q node path %d is %v, walk found %v", t.Name, i, t.NodePaths[i], p))
		}
	}
	for i, p := range attrPaths {
		if !bytes.Equal(p, t.AttrPaths[i]) {
			panic(fmt.Sprintf("vdom: template %q attr path %d is %v, walk found %v", t.Name, i, t.AttrPaths[i], p))
		}
	}
}

// templatePaths computes the node and attribute slot paths for a root list.
// Panics if slot ids do not match their depth-first position.
func templatePaths(roots []TemplateNode) (nodePaths, attrPaths [][]byte) {
	var walk func(nodes []TemplateNode, prefix []byte)
	walk = func(nodes []TemplateNode, prefix []byte) {
		for i, node := range nodes {
			path := make([]byte, len(prefix)+1)
			copy(path, prefix)
			path[len(prefix)] = byte(i)
			switch node.Kind {
			case TemplateElement:
				for _, attr := range node.Attrs {
					if !attr.Dynamic {
						continue
					}
					if attr.ID != len(attrPaths) {
						panic(fmt.Sprintf("vdom: dynamic attribute slot %d out of order, expected %d", attr.ID, len(attrPaths)))
					}
					attrPaths = append(attrPaths, path)
				}
				walk(node.Children, path)
			case TemplateText:
				// static, nothing to record
			case TemplateDynamic:
				if node.ID != len(nodePaths) {
					panic(fmt.Sprintf("vdom: dynamic node slot %d out of order, expected %d", node.ID, len(nodePaths)))
				}
				nodePaths = append(nodePaths, path)
			default:
				panic(fmt.Sprintf("vdom: unknown template node kind %d", node.Kind))
			}
		}
	}
	walk(roots, nil)
	return nodePaths, attrPaths
}

// dynamicRootID reports the dynamic slot index of root i, or -1 if the root
// is static.
func (t *Template) dynamicRootID(i int) int {
	if t.Roots[i].Kind == TemplateDynamic {
		return t.Roots[i].ID
	}
	return -1
}

// nodeAt resolves a child-index path to a template node. Panics on a path
// that points outside the template; a malformed path is a producer bug.
func (t *Template) nodeAt(path []byte) *TemplateNode {
	if len(path) == 0 {
		panic("vdom: empty template path")
	}
	node := &t.Roots[path[0]]
	for _, idx := range path[1:] {
		if node.Kind != TemplateElement || int(idx) >= len(node.Children) {
			panic(fmt.Sprintf("vdom: template path %v does not resolve in %q", path, t.Name))
		}
		node = &node.Children[int(idx)]
	}
	return node
}

// Registry holds the current version of every template, keyed by Name.
// Templates are registered once per distinct source declaration and swapped
// wholesale on hot reload; the structs themselves are never mutated.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewRegistry creates an empty template registry.
func NewRegistry() *Registry {
	return &Registry{templates: make(map[string]*Template)}
}

// Get returns the current template for name, or nil.
func (r *Registry) Get(name string) *Template {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.templates[name]
}

// Register stores t if no template with its name exists yet and returns the
// canonical instance for that name.
func (r *Registry) Register(t *Template) *Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.templates[t.Name]; ok {
		return existing
	}
	r.templates[t.Name] = t
	return t
}

// Swap replaces the template registered under t.Name, returning the previous
// version (nil if none). Mounted nodes still pointing at the old version are
// replaced on their next diff.
func (r *Registry) Swap(t *Template) *Template {
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.templates[t.Name]
	r.templates[t.Name] = t
	return prev
}
