package vdom

import (
	"fmt"
	"time"
)

// Dom owns one mounted tree: the identity arena, the current root VNode and
// the template registry. It is not safe for concurrent use; the surrounding
// runtime invokes it synchronously, once per completed render pass, on the
// thread that owns the UI tree.
type Dom struct {
	registry *Registry
	arena    *arena
	root     *VNode

	// expand disables LoadTemplate emission and writes template structure
	// as raw create instructions, for renderers without template retention.
	expand bool

	muts      *Mutations
	batchSeen map[string]bool

	stats DiffStats
}

// DomOption configures a Dom.
type DomOption func(*Dom)

// WithRegistry shares a template registry between several Doms (one per
// mounted tree) so a hot-reload swap reaches all of them.
func WithRegistry(r *Registry) DomOption {
	return func(d *Dom) { d.registry = r }
}

// WithExpandedTemplates makes the Dom write template structure with
// CreateElement/CreateTextNode instructions instead of LoadTemplate, for
// renderer backends that cannot retain pre-built template clones.
func WithExpandedTemplates() DomOption {
	return func(d *Dom) { d.expand = true }
}

// WithRenderer configures the Dom's output for a specific renderer: if r
// implements TemplateRetainer and reports false, template structure is
// expanded exactly as WithExpandedTemplates does.
func WithRenderer(r Renderer) DomOption {
	return func(d *Dom) {
		if tr, ok := r.(TemplateRetainer); ok && !tr.RetainsTemplates() {
			d.expand = true
		}
	}
}

// NewDom creates an empty Dom.
func NewDom(opts ...DomOption) *Dom {
	d := &Dom{arena: newArena()}
	for _, opt := range opts {
		opt(d)
	}
	if d.registry == nil {
		d.registry = NewRegistry()
	}
	return d
}

// Registry returns the Dom's template registry.
func (d *Dom) Registry() *Registry { return d.registry }

// Root returns the currently mounted VNode, or nil.
func (d *Dom) Root() *VNode { return d.root }

// LastStats reports counters for the most recent pass.
func (d *Dom) LastStats() DiffStats { return d.stats }

func (d *Dom) beginPass() {
	d.muts = &Mutations{}
	d.batchSeen = make(map[string]bool)
	d.stats = DiffStats{}
}

func (d *Dom) endPass(start time.Time) *Mutations {
	m := d.muts
	d.muts = nil
	d.batchSeen = nil
	d.stats.Edits = len(m.Edits)
	d.stats.Duration = time.Since(start)
	return m
}

// Rebuild mounts node as the root tree and returns the mutation batch that
// builds it from nothing, ending with an AppendChildren against the
// renderer-owned mount point (id 0). Panics if a tree is already mounted.
func (d *Dom) Rebuild(node *VNode) *Mutations {
	if d.root != nil {
		panic("vdom: Rebuild called with a tree already mounted")
	}
	start := time.Now()
	d.beginPass()
	m := d.createNode(node)
	d.muts.appendChildren(0, m)
	d.root = node
	return d.endPass(start)
}

// Render diffs the mounted tree against node, adopts node as the new root
// and returns the mutations that transform the renderer's tree. The diff
// runs to completion synchronously; abandoning a render must happen before
// calling Render, not during.
func (d *Dom) Render(node *VNode) *Mutations {
	if d.root == nil {
		panic("vdom: Render called before Rebuild")
	}
	start := time.Now()
	d.beginPass()
	d.diffNode(d.root, node)
	d.root = node
	return d.endPass(start)
}

// Unmount removes the mounted tree and releases its ids.
func (d *Dom) Unmount() *Mutations {
	if d.root == nil {
		panic("vdom: Unmount called with nothing mounted")
	}
	start := time.Now()
	d.beginPass()
	d.removeNode(d.root, true, 0)
	d.root = nil
	return d.endPass(start)
}

// currentTemplate resolves the freshest version of the node's template from
// the registry, registering it on first sight. Hot reload swaps registry
// entries, so a node rendered from stale source picks up the replacement
// here.
func (d *Dom) currentTemplate(v *VNode) *Template {
	if v.Template == nil {
		panic("vdom: VNode has no template")
	}
	current := d.registry.Get(v.Template.Name)
	if current == nil {
		current = d.registry.Register(v.Template)
	}
	return current
}

// checkSlots verifies the runtime slot values line up with the template's
// slot tables. A mismatch is a bug in the component that produced the node.
func checkSlots(t *Template, v *VNode) {
	if len(v.DynamicNodes) != len(t.NodePaths) {
		panic(fmt.Sprintf("vdom: template %q has %d dynamic node slots, got %d values",
			t.Name, len(t.NodePaths), len(v.DynamicNodes)))
	}
	if len(v.DynamicAttrs) != len(t.AttrPaths) {
		panic(fmt.Sprintf("vdom: template %q has %d dynamic attribute slots, got %d values",
			t.Name, len(t.AttrPaths), len(v.DynamicAttrs)))
	}
}

// noteTemplate appends the template to the batch's registration list the
// first time it is referenced in this pass.
func (d *Dom) noteTemplate(t *Template) {
	if d.batchSeen[t.Name] {
		return
	}
	d.batchSeen[t.Name] = true
	d.muts.Templates = append(d.muts.Templates, t)
}

func (d *Dom) nextElement() ElementID {
	d.stats.NodesCreated++
	return d.arena.allocate()
}

func (d *Dom) reclaim(id ElementID) {
	d.stats.NodesRemoved++
	d.arena.reclaim(id)
}

// LiveNodes reports how many element ids are currently allocated. Useful
// for leak detection in tests and diagnostics.
func (d *Dom) LiveNodes() int { return d.arena.liveCount() }
