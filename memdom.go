package vdom

import (
	"fmt"
	"sort"
	"strings"
)

// MemNode is one node of a MemDom tree.
type MemNode struct {
	ID          ElementID
	Tag         string
	Namespace   string
	Text        string
	IsText      bool
	Placeholder bool
	Attrs       map[string]string
	Listeners   map[string]bool
	Children    []*MemNode

	parent *MemNode
}

// MemDom is an in-memory renderer backend. It retains a full tree, applies
// Mutations batches via Replay and can serialize the result, which makes it
// both the reference implementation of the replay protocol and the engine
// behind server-side HTML rendering.
type MemDom struct {
	root      *MemNode
	nodes     map[ElementID]*MemNode
	stack     []*MemNode
	templates map[string]*Template
}

// NewMemDom returns an empty tree whose mount point carries id 0.
func NewMemDom() *MemDom {
	root := &MemNode{ID: 0}
	return &MemDom{
		root:      root,
		nodes:     map[ElementID]*MemNode{0: root},
		templates: make(map[string]*Template),
	}
}

// Root returns the mount point.
func (md *MemDom) Root() *MemNode { return md.root }

// Node returns the live node with the given id, or nil.
func (md *MemDom) Node(id ElementID) *MemNode { return md.nodes[id] }

// NodeCount returns the number of live identified nodes, excluding the
// mount point.
func (md *MemDom) NodeCount() int { return len(md.nodes) - 1 }

// StackDepth returns the number of nodes currently on the replay stack. It
// is zero between batches.
func (md *MemDom) StackDepth() int { return len(md.stack) }

func (md *MemDom) push(n *MemNode) {
	md.stack = append(md.stack, n)
}

// pop removes the top m nodes and returns them in push order.
func (md *MemDom) pop(m int) []*MemNode {
	if m > len(md.stack) {
		panic(fmt.Sprintf("vdom: replay popped %d nodes with %d on the stack", m, len(md.stack)))
	}
	popped := md.stack[len(md.stack)-m:]
	out := make([]*MemNode, m)
	copy(out, popped)
	md.stack = md.stack[:len(md.stack)-m]
	return out
}

func (md *MemDom) track(n *MemNode, id ElementID) {
	if id != 0 {
		n.ID = id
		md.nodes[id] = n
	}
}

// forget drops the id mappings of n and its whole subtree.
func (md *MemDom) forget(n *MemNode) {
	if n.ID != 0 {
		delete(md.nodes, n.ID)
	}
	for _, c := range n.Children {
		md.forget(c)
	}
}

func (n *MemNode) childIndex() int {
	for i, c := range n.parent.Children {
		if c == n {
			return i
		}
	}
	panic("vdom: node detached from its parent")
}

// detach unlinks n from its parent without forgetting ids.
func (n *MemNode) detach() {
	idx := n.childIndex()
	p := n.parent
	p.Children = append(p.Children[:idx], p.Children[idx+1:]...)
	n.parent = nil
}

func (md *MemDom) AppendChildren(parent ElementID, m int) {
	p := md.mustNode(parent)
	for _, c := range md.pop(m) {
		// A pushed node may still sit at its old position (a keyed move);
		// unlink it before re-linking.
		if c.parent != nil {
			c.detach()
		}
		c.parent = p
		p.Children = append(p.Children, c)
	}
}

func (md *MemDom) ReplaceNodeWith(id ElementID, m int) {
	old := md.mustNode(id)
	next := md.pop(m)
	for _, c := range next {
		if c.parent != nil {
			c.detach()
		}
	}
	idx := old.childIndex()
	p := old.parent
	rest := append([]*MemNode{}, p.Children[idx+1:]...)
	p.Children = append(p.Children[:idx], next...)
	p.Children = append(p.Children, rest...)
	for _, c := range next {
		c.parent = p
	}
	md.forget(old)
}

func (md *MemDom) InsertNodesAfter(anchor ElementID, m int) {
	md.insertNodes(anchor, m, 1)
}

func (md *MemDom) InsertNodesBefore(anchor ElementID, m int) {
	md.insertNodes(anchor, m, 0)
}

func (md *MemDom) insertNodes(anchor ElementID, m, offset int) {
	a := md.mustNode(anchor)
	next := md.pop(m)
	// Detach moved nodes before resolving the anchor's index; a moved
	// sibling ahead of the anchor would otherwise shift the splice point.
	for _, c := range next {
		if c.parent != nil {
			c.detach()
		}
	}
	idx := a.childIndex() + offset
	p := a.parent
	rest := append([]*MemNode{}, p.Children[idx:]...)
	p.Children = append(p.Children[:idx], next...)
	p.Children = append(p.Children, rest...)
	for _, c := range next {
		c.parent = p
	}
}

func (md *MemDom) RemoveNode(id ElementID) {
	n := md.mustNode(id)
	n.detach()
	md.forget(n)
}

func (md *MemDom) CreateTextNode(text string, id ElementID) {
	n := &MemNode{Text: text, IsText: true}
	md.track(n, id)
	md.push(n)
}

func (md *MemDom) CreateElement(tag, ns string, id ElementID) {
	n := &MemNode{Tag: tag, Namespace: ns}
	md.track(n, id)
	md.push(n)
}

func (md *MemDom) CreatePlaceholder(id ElementID) {
	n := &MemNode{Placeholder: true}
	md.track(n, id)
	md.push(n)
}

func (md *MemDom) NewEventListener(name string, id ElementID) {
	n := md.mustNode(id)
	if n.Listeners == nil {
		n.Listeners = make(map[string]bool)
	}
	n.Listeners[name] = true
}

func (md *MemDom) RemoveEventListener(name string, id ElementID) {
	delete(md.mustNode(id).Listeners, name)
}

func (md *MemDom) SetText(text string, id ElementID) {
	n := md.mustNode(id)
	// Template clones render dynamic text slots as placeholders; the first
	// SetText hydrates such a node into a real text node.
	n.IsText = true
	n.Placeholder = false
	n.Text = text
}

func (md *MemDom) SetAttribute(name, ns, value string, id ElementID) {
	n := md.mustNode(id)
	if value == "" {
		delete(n.Attrs, name)
		return
	}
	if n.Attrs == nil {
		n.Attrs = make(map[string]string)
	}
	n.Attrs[name] = value
}

func (md *MemDom) AssignNodeID(path []byte, id ElementID) {
	if len(md.stack) == 0 {
		panic("vdom: assign_id with an empty stack")
	}
	n := md.stack[len(md.stack)-1]
	for _, step := range path {
		n = n.Children[step]
	}
	md.track(n, id)
}

func (md *MemDom) LoadTemplate(t *Template, rootIndex int, id ElementID) {
	if t == nil {
		panic("vdom: load_template for an unregistered template")
	}
	if known := md.templates[t.Name]; known != nil {
		t = known
	}
	n := cloneTemplateNode(&t.Roots[rootIndex])
	md.track(n, id)
	md.push(n)
}

func (md *MemDom) PushRoot(id ElementID) {
	md.push(md.mustNode(id))
}

func (md *MemDom) RegisterTemplate(t *Template) {
	md.templates[t.Name] = t
}

func (md *MemDom) mustNode(id ElementID) *MemNode {
	n := md.nodes[id]
	if n == nil {
		panic(fmt.Sprintf("vdom: replay referenced unknown node %d", id))
	}
	return n
}

// cloneTemplateNode deep-copies a template root into an unidentified
// subtree. Dynamic slots become placeholders and dynamic attribute markers
// contribute nothing; the diff engine assigns ids and fills values through
// later mutations.
func cloneTemplateNode(tn *TemplateNode) *MemNode {
	switch tn.Kind {
	case TemplateText:
		return &MemNode{Text: tn.Text, IsText: true}
	case TemplateDynamic:
		return &MemNode{Placeholder: true}
	}
	n := &MemNode{Tag: tn.Tag, Namespace: tn.Namespace}
	for _, a := range tn.Attrs {
		if a.Dynamic {
			continue
		}
		if n.Attrs == nil {
			n.Attrs = make(map[string]string)
		}
		n.Attrs[a.Name] = a.Value
	}
	for i := range tn.Children {
		c := cloneTemplateNode(&tn.Children[i])
		c.parent = n
		n.Children = append(n.Children, c)
	}
	return n
}

// WriteTo serializes the subtree under n in a canonical debug form: tags
// with sorted attributes, raw text, and <!> for placeholders.
func (n *MemNode) WriteTo(b *strings.Builder) {
	switch {
	case n.IsText:
		b.WriteString(n.Text)
	case n.Placeholder:
		b.WriteString("<!>")
	default:
		b.WriteByte('<')
		b.WriteString(n.Tag)
		names := make([]string, 0, len(n.Attrs))
		for name := range n.Attrs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(b, " %s=%q", name, n.Attrs[name])
		}
		b.WriteByte('>')
		for _, c := range n.Children {
			c.WriteTo(b)
		}
		fmt.Fprintf(b, "</%s>", n.Tag)
	}
}

// String renders the children of the mount point.
func (md *MemDom) String() string {
	var b strings.Builder
	for _, c := range md.root.Children {
		c.WriteTo(&b)
	}
	return b.String()
}
