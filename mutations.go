package vdom

import "fmt"

// ElementID is an opaque handle identifying one live node to a renderer
// backend. IDs are unique among live nodes and recycled only after the
// renderer has been told to remove the node. ID 0 is the mount point owned
// by the renderer before any mutation runs.
type ElementID uint32

// MutationOp names one low-level edit operation in the replay protocol.
type MutationOp string

const (
	// AppendChildren pops M nodes and appends them to the node ID.
	AppendChildren MutationOp = "append_children"
	// ReplaceWith pops M nodes and splices them in place of node ID, which
	// is removed together with its subtree and any listeners in it.
	ReplaceWith MutationOp = "replace_with"
	// InsertAfter pops M nodes and inserts them after sibling ID.
	InsertAfter MutationOp = "insert_after"
	// InsertBefore pops M nodes and inserts them before sibling ID.
	InsertBefore MutationOp = "insert_before"
	// Remove detaches node ID and its subtree. Descendant listeners are
	// implicitly removed with it.
	Remove MutationOp = "remove"
	// CreateTextNode creates a text node with id ID and pushes it.
	CreateTextNode MutationOp = "create_text_node"
	// CreateElement creates an element with id ID and pushes it. Only used
	// for renderers that do not retain template clones.
	CreateElement MutationOp = "create_element"
	// CreatePlaceholder creates an empty placeholder node with id ID and
	// pushes it.
	CreatePlaceholder MutationOp = "create_placeholder"
	// NewEventListener attaches listener Name to node ID.
	NewEventListener MutationOp = "new_event_listener"
	// RemoveEventListener detaches listener Name from node ID.
	RemoveEventListener MutationOp = "remove_event_listener"
	// SetText replaces the text content of node ID.
	SetText MutationOp = "set_text"
	// SetAttribute sets attribute Name on node ID. An empty Value removes
	// the attribute.
	SetAttribute MutationOp = "set_attribute"
	// AssignID gives id ID to the node reached by walking Path (child
	// indices) from the node currently on top of the replay stack.
	AssignID MutationOp = "assign_id"
	// LoadTemplate clones root RootIndex of template TemplateName, assigns
	// it id ID and pushes it.
	LoadTemplate MutationOp = "load_template"
	// PushRoot re-pushes the already-live node ID onto the stack so it can
	// be consumed by a later splice (used for keyed moves).
	PushRoot MutationOp = "push_root"
)

// Mutation is one edit instruction. Only the fields relevant to Op are set.
// Mutations are never modified after being appended to a batch and must be
// replayed in emission order: later mutations reference ids and stack
// entries produced by earlier ones.
type Mutation struct {
	Op           MutationOp `json:"op"`
	ID           ElementID  `json:"id,omitempty"`
	M            int        `json:"m,omitempty"`
	Path         []byte     `json:"path,omitempty"`
	Tag          string     `json:"tag,omitempty"`
	Namespace    string     `json:"ns,omitempty"`
	Name         string     `json:"name,omitempty"`
	Value        string     `json:"value,omitempty"`
	TemplateName string     `json:"template,omitempty"`
	RootIndex    int        `json:"root_index,omitempty"`
}

// Mutations is one append-only batch of edits produced by a single mount,
// diff or unmount pass. Templates lists every template referenced by a
// LoadTemplate in this batch; a renderer registers those before replaying
// Edits. Registration is idempotent, so a template appearing in several
// batches is harmless.
type Mutations struct {
	Templates []*Template `json:"templates,omitempty"`
	Edits     []Mutation  `json:"edits"`

	// depth tracks the implicit node stack: pushes minus pops. It must
	// never go negative and must return to its pre-pass baseline when a
	// subtree boundary closes.
	depth int
}

// Depth returns the current implicit stack depth of the batch.
func (m *Mutations) Depth() int { return m.depth }

func (m *Mutations) push(mut Mutation) {
	m.depth++
	m.Edits = append(m.Edits, mut)
}

func (m *Mutations) consume(mut Mutation, n int) {
	m.depth -= n
	if m.depth < 0 {
		panic(fmt.Sprintf("vdom: mutation %s consumed %d nodes with only %d on the stack", mut.Op, n, m.depth+n))
	}
	m.Edits = append(m.Edits, mut)
}

func (m *Mutations) emit(mut Mutation) {
	m.Edits = append(m.Edits, mut)
}

func (m *Mutations) appendChildren(parent ElementID, n int) {
	m.consume(Mutation{Op: AppendChildren, ID: parent, M: n}, n)
}

func (m *Mutations) replaceWith(id ElementID, n int) {
	m.consume(Mutation{Op: ReplaceWith, ID: id, M: n}, n)
}

func (m *Mutations) insertAfter(anchor ElementID, n int) {
	m.consume(Mutation{Op: InsertAfter, ID: anchor, M: n}, n)
}

func (m *Mutations) insertBefore(anchor ElementID, n int) {
	m.consume(Mutation{Op: InsertBefore, ID: anchor, M: n}, n)
}

func (m *Mutations) remove(id ElementID) {
	m.emit(Mutation{Op: Remove, ID: id})
}

func (m *Mutations) createTextNode(text string, id ElementID) {
	m.push(Mutation{Op: CreateTextNode, Value: text, ID: id})
}

func (m *Mutations) createElement(tag, ns string, id ElementID) {
	m.push(Mutation{Op: CreateElement, Tag: tag, Namespace: ns, ID: id})
}

func (m *Mutations) createPlaceholder(id ElementID) {
	m.push(Mutation{Op: CreatePlaceholder, ID: id})
}

func (m *Mutations) newEventListener(name string, id ElementID) {
	m.emit(Mutation{Op: NewEventListener, Name: name, ID: id})
}

func (m *Mutations) removeEventListener(name string, id ElementID) {
	m.emit(Mutation{Op: RemoveEventListener, Name: name, ID: id})
}

func (m *Mutations) setText(text string, id ElementID) {
	m.emit(Mutation{Op: SetText, Value: text, ID: id})
}

func (m *Mutations) setAttribute(name, ns, value string, id ElementID) {
	m.emit(Mutation{Op: SetAttribute, Name: name, Namespace: ns, Value: value, ID: id})
}

func (m *Mutations) assignID(path []byte, id ElementID) {
	m.emit(Mutation{Op: AssignID, Path: path, ID: id})
}

func (m *Mutations) loadTemplate(name string, rootIndex int, id ElementID) {
	m.push(Mutation{Op: LoadTemplate, TemplateName: name, RootIndex: rootIndex, ID: id})
}

func (m *Mutations) pushRoot(id ElementID) {
	m.push(Mutation{Op: PushRoot, ID: id})
}

// Renderer is the contract every backend implements to replay mutations
// against its retained tree. Calls map one-to-one onto MutationOp values;
// see the op documentation for stack behavior.
type Renderer interface {
	AppendChildren(parent ElementID, m int)
	ReplaceNodeWith(id ElementID, m int)
	InsertNodesAfter(anchor ElementID, m int)
	InsertNodesBefore(anchor ElementID, m int)
	RemoveNode(id ElementID)
	CreateTextNode(text string, id ElementID)
	CreateElement(tag, ns string, id ElementID)
	CreatePlaceholder(id ElementID)
	NewEventListener(name string, id ElementID)
	RemoveEventListener(name string, id ElementID)
	SetText(text string, id ElementID)
	SetAttribute(name, ns, value string, id ElementID)
	AssignNodeID(path []byte, id ElementID)
	LoadTemplate(t *Template, rootIndex int, id ElementID)
	PushRoot(id ElementID)
	// RegisterTemplate hands the renderer a template so later LoadTemplate
	// calls can clone its pre-built roots.
	RegisterTemplate(t *Template)
}

// TemplateRetainer is an optional Renderer extension. A renderer that cannot
// keep pre-built template clones around returns false; the engine then
// writes template structure as raw create instructions instead of
// LoadTemplate. Renderers that do not implement it are assumed to retain.
type TemplateRetainer interface {
	RetainsTemplates() bool
}

// Replay applies the batch to a renderer in emission order. Reordering,
// batching across mutations, or deduplication would break the stack
// protocol; a renderer may only buffer the whole batch and apply it
// atomically.
func (m *Mutations) Replay(r Renderer) {
	byName := make(map[string]*Template, len(m.Templates))
	for _, t := range m.Templates {
		byName[t.Name] = t
		r.RegisterTemplate(t)
	}
	for _, e := range m.Edits {
		switch e.Op {
		case AppendChildren:
			r.AppendChildren(e.ID, e.M)
		case ReplaceWith:
			r.ReplaceNodeWith(e.ID, e.M)
		case InsertAfter:
			r.InsertNodesAfter(e.ID, e.M)
		case InsertBefore:
			r.InsertNodesBefore(e.ID, e.M)
		case Remove:
			r.RemoveNode(e.ID)
		case CreateTextNode:
			r.CreateTextNode(e.Value, e.ID)
		case CreateElement:
			r.CreateElement(e.Tag, e.Namespace, e.ID)
		case CreatePlaceholder:
			r.CreatePlaceholder(e.ID)
		case NewEventListener:
			r.NewEventListener(e.Name, e.ID)
		case RemoveEventListener:
			r.RemoveEventListener(e.Name, e.ID)
		case SetText:
			r.SetText(e.Value, e.ID)
		case SetAttribute:
			r.SetAttribute(e.Name, e.Namespace, e.Value, e.ID)
		case AssignID:
			r.AssignNodeID(e.Path, e.ID)
		case LoadTemplate:
			r.LoadTemplate(byName[e.TemplateName], e.RootIndex, e.ID)
		case PushRoot:
			r.PushRoot(e.ID)
		default:
			panic(fmt.Sprintf("vdom: unknown mutation op %q", e.Op))
		}
	}
}
