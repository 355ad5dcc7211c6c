package vdom

import (
	"bytes"
	"fmt"
)

// createNode writes the mutations that build v's subtree from nothing and
// returns how many nodes it left on the implicit stack. The caller finishes
// the sequence with a splice (AppendChildren, ReplaceWith, Insert*).
func (d *Dom) createNode(v *VNode) int {
	t := d.currentTemplate(v)
	v.Template = t
	checkSlots(t, v)
	if v.mount == nil {
		v.mount = newMount(t)
	}
	if !d.expand {
		d.noteTemplate(t)
	}

	nodeIdx, attrIdx := 0, 0
	total := 0
	for rootIdx := range t.Roots {
		root := &t.Roots[rootIdx]
		if root.Kind == TemplateDynamic {
			nodeIdx++
			total += d.createDynamicRoot(v, rootIdx, root.ID)
			continue
		}

		id := d.nextElement()
		v.mount.rootIDs[rootIdx] = id
		if d.expand {
			d.expandRoot(v, root, id)
		} else {
			d.muts.loadTemplate(t.Name, rootIdx, id)
		}

		if root.Kind == TemplateElement {
			// Hydrate the dynamic nodes nested under this root. The root
			// stays on top of the stack throughout: each iteration either
			// creates no stack nodes or consumes what it created.
			for nodeIdx < len(t.NodePaths) && t.NodePaths[nodeIdx][0] == byte(rootIdx) {
				d.hydrateNestedDynamic(v, nodeIdx)
				nodeIdx++
			}
			attrIdx = d.writeRootAttrs(v, rootIdx, attrIdx)
		}
		total++
	}
	return total
}

// createDynamicRoot creates a dynamic node that is itself a template root.
func (d *Dom) createDynamicRoot(v *VNode, rootIdx, slot int) int {
	dyn := &v.DynamicNodes[slot]
	switch dyn.Kind {
	case DynText:
		id := d.nextElement()
		v.mount.rootIDs[rootIdx] = id
		v.mount.dynamicNodeIDs[slot] = id
		d.muts.createTextNode(dyn.Text, id)
		return 1
	case DynPlaceholder:
		id := d.nextElement()
		v.mount.rootIDs[rootIdx] = id
		v.mount.dynamicNodeIDs[slot] = id
		d.muts.createPlaceholder(id)
		return 1
	case DynFragment:
		return d.createChildren(dyn.Children)
	case DynComponent:
		return d.createNode(dyn.Component.Node)
	default:
		panic(fmt.Sprintf("vdom: dynamic slot %d has no value", slot))
	}
}

// hydrateNestedDynamic fills dynamic node slot idx, which sits below a
// static root that is currently on top of the replay stack. Text and
// placeholder slots adopt the node already present in the template clone;
// fragment and component slots replace it with freshly created nodes.
func (d *Dom) hydrateNestedDynamic(v *VNode, idx int) {
	path := v.Template.NodePaths[idx]
	rel := path[1:]
	dyn := &v.DynamicNodes[idx]
	switch dyn.Kind {
	case DynText:
		// In expanded mode the node was created with its final text.
		if !d.expand {
			id := d.expandedOrAssign(v, idx, rel)
			d.muts.setText(dyn.Text, id)
		}
	case DynPlaceholder:
		d.expandedOrAssign(v, idx, rel)
	case DynFragment, DynComponent:
		// The template clone holds a placeholder at this position. Give it
		// an id, build the real nodes, then splice them in over it.
		var pid ElementID
		if d.expand {
			pid = v.mount.dynamicNodeIDs[idx]
			v.mount.dynamicNodeIDs[idx] = 0
		} else {
			pid = d.nextElement()
			d.muts.assignID(rel, pid)
		}
		var m int
		if dyn.Kind == DynFragment {
			m = d.createChildren(dyn.Children)
		} else {
			m = d.createNode(dyn.Component.Node)
		}
		d.muts.replaceWith(pid, m)
		d.reclaim(pid)
	default:
		panic(fmt.Sprintf("vdom: dynamic slot %d has no value", idx))
	}
}

// expandedOrAssign returns the element id backing slot idx: in expanded
// mode the id was created during template expansion, otherwise the node in
// the template clone is assigned a fresh id by path.
func (d *Dom) expandedOrAssign(v *VNode, idx int, rel []byte) ElementID {
	if d.expand {
		return v.mount.dynamicNodeIDs[idx]
	}
	id := d.nextElement()
	v.mount.dynamicNodeIDs[idx] = id
	d.muts.assignID(rel, id)
	return id
}

// writeRootAttrs writes every dynamic attribute slot that lives under root
// rootIdx, starting at slot attrIdx, and returns the next unwritten slot.
// Consecutive slots sharing a template path share one element id.
func (d *Dom) writeRootAttrs(v *VNode, rootIdx, attrIdx int) int {
	t := v.Template
	var lastPath []byte
	var lastID ElementID
	for attrIdx < len(t.AttrPaths) && t.AttrPaths[attrIdx][0] == byte(rootIdx) {
		path := t.AttrPaths[attrIdx]
		var id ElementID
		switch {
		case d.expand:
			id = v.mount.attrIDs[attrIdx]
		case len(path) == 1:
			id = v.mount.rootIDs[rootIdx]
		case bytes.Equal(path, lastPath):
			id = lastID
		default:
			id = d.nextElement()
			d.muts.assignID(path[1:], id)
			lastPath, lastID = path, id
		}
		v.mount.attrIDs[attrIdx] = id
		for _, a := range v.DynamicAttrs[attrIdx] {
			d.writeAttribute(a, id)
		}
		attrIdx++
	}
	return attrIdx
}

func (d *Dom) writeAttribute(a Attribute, id ElementID) {
	if a.Value.Kind == AttrListener {
		d.muts.newEventListener(a.eventName(), id)
		return
	}
	d.muts.setAttribute(a.Name, a.Namespace, a.Value.String(), id)
}

func (d *Dom) removeAttribute(a Attribute, id ElementID) {
	if a.Value.Kind == AttrListener {
		d.muts.removeEventListener(a.eventName(), id)
		return
	}
	d.muts.setAttribute(a.Name, a.Namespace, "", id)
}

// createChildren creates a run of sibling nodes, returning the total number
// left on the stack.
func (d *Dom) createChildren(children []*VNode) int {
	m := 0
	for _, child := range children {
		m += d.createNode(child)
	}
	return m
}

// expandRoot writes template root structure as raw create instructions for
// renderers that do not retain template clones. The finished root is the
// single node left on the stack, mirroring what LoadTemplate would push.
func (d *Dom) expandRoot(v *VNode, root *TemplateNode, id ElementID) {
	switch root.Kind {
	case TemplateText:
		d.muts.createTextNode(root.Text, id)
	case TemplateElement:
		d.expandElement(v, root, id)
	default:
		panic("vdom: expandRoot called on a dynamic root")
	}
}

// expandElement creates el with the given id and its whole static subtree,
// leaving exactly el on the stack. Dynamic node markers become real nodes
// immediately: text and placeholder slots are final, fragment and component
// slots get a placeholder that hydrateNestedDynamic replaces afterwards.
func (d *Dom) expandElement(v *VNode, el *TemplateNode, id ElementID) {
	d.muts.createElement(el.Tag, el.Namespace, id)
	for _, attr := range el.Attrs {
		if attr.Dynamic {
			v.mount.attrIDs[attr.ID] = id
			continue
		}
		d.muts.setAttribute(attr.Name, attr.Namespace, attr.Value, id)
	}
	for i := range el.Children {
		child := &el.Children[i]
		switch child.Kind {
		case TemplateElement:
			cid := d.nextElement()
			v.mount.expandedIDs = append(v.mount.expandedIDs, cid)
			d.expandElement(v, child, cid)
		case TemplateText:
			cid := d.nextElement()
			v.mount.expandedIDs = append(v.mount.expandedIDs, cid)
			d.muts.createTextNode(child.Text, cid)
		case TemplateDynamic:
			cid := d.nextElement()
			v.mount.dynamicNodeIDs[child.ID] = cid
			switch v.DynamicNodes[child.ID].Kind {
			case DynText:
				d.muts.createTextNode(v.DynamicNodes[child.ID].Text, cid)
			default:
				d.muts.createPlaceholder(cid)
			}
		}
	}
	if len(el.Children) > 0 {
		d.muts.appendChildren(id, len(el.Children))
	}
}
