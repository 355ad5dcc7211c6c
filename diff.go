package vdom

import "fmt"

// diffNode diffs a mounted old instance against its re-render, writing the
// mutations that update the renderer's tree. The two instances usually share
// a template; when they do not, the subtree is replaced, except for the
// component-preserving light diff.
func (d *Dom) diffNode(old, new *VNode) {
	if old.mount == nil {
		panic("vdom: diff of an unmounted node")
	}

	t := d.currentTemplate(new)
	new.Template = t

	if t.Name != old.Template.Name {
		d.lightDiffTemplates(old, new)
		return
	}
	if t != old.Template {
		// Same declaration but a hot reload swapped the template out from
		// under the mounted instance. Rebuild the subtree in place.
		d.replace(old, new)
		return
	}

	checkSlots(t, new)
	new.mount = old.mount

	d.diffAttributes(old, new)
	for idx := range new.DynamicNodes {
		d.diffDynamicNode(new, idx, &old.DynamicNodes[idx], &new.DynamicNodes[idx])
	}
}

// diffDynamicNode dispatches on the runtime kinds of the old and new value
// in slot idx. Matching kinds diff in place; a placeholder/fragment flip has
// a dedicated conversion; any other kind change tears down the old value and
// creates the new one.
func (d *Dom) diffDynamicNode(v *VNode, idx int, oldDyn, newDyn *DynamicNode) {
	mnt := v.mount
	switch {
	case oldDyn.Kind == DynText && newDyn.Kind == DynText:
		if oldDyn.Text != newDyn.Text {
			d.muts.setText(newDyn.Text, mnt.dynamicNodeIDs[idx])
		}

	case oldDyn.Kind == DynPlaceholder && newDyn.Kind == DynPlaceholder:
		// nothing to do

	case oldDyn.Kind == DynFragment && newDyn.Kind == DynFragment:
		d.diffChildren(oldDyn.Children, newDyn.Children)

	case oldDyn.Kind == DynComponent && newDyn.Kind == DynComponent:
		oldC, newC := oldDyn.Component, newDyn.Component
		if oldC.Name == newC.Name {
			d.diffNode(oldC.Node, newC.Node)
			return
		}
		m := d.createNode(newC.Node)
		d.removeNode(oldC.Node, true, m)

	case oldDyn.Kind == DynPlaceholder && newDyn.Kind == DynFragment:
		pid := mnt.dynamicNodeIDs[idx]
		m := d.createChildren(newDyn.Children)
		d.muts.replaceWith(pid, m)
		d.reclaim(pid)
		mnt.dynamicNodeIDs[idx] = 0

	case oldDyn.Kind == DynFragment && newDyn.Kind == DynPlaceholder:
		id := d.nextElement()
		mnt.dynamicNodeIDs[idx] = id
		d.muts.createPlaceholder(id)
		d.removeNodes(oldDyn.Children, true, 1)

	default:
		d.replaceDynamicNode(v, idx, oldDyn, newDyn)
	}
}

// replaceDynamicNode handles the remaining kind changes generically: build
// the new value, then splice it in over whatever the old value occupied.
func (d *Dom) replaceDynamicNode(v *VNode, idx int, oldDyn, newDyn *DynamicNode) {
	mnt := v.mount
	oldID := mnt.dynamicNodeIDs[idx]

	var m int
	switch newDyn.Kind {
	case DynText:
		id := d.nextElement()
		mnt.dynamicNodeIDs[idx] = id
		d.muts.createTextNode(newDyn.Text, id)
		m = 1
	case DynPlaceholder:
		id := d.nextElement()
		mnt.dynamicNodeIDs[idx] = id
		d.muts.createPlaceholder(id)
		m = 1
	case DynFragment:
		mnt.dynamicNodeIDs[idx] = 0
		m = d.createChildren(newDyn.Children)
	case DynComponent:
		mnt.dynamicNodeIDs[idx] = 0
		m = d.createNode(newDyn.Component.Node)
	default:
		panic(fmt.Sprintf("vdom: dynamic slot %d has no value", idx))
	}

	switch oldDyn.Kind {
	case DynText, DynPlaceholder:
		d.muts.replaceWith(oldID, m)
		d.reclaim(oldID)
	case DynFragment:
		d.removeNodes(oldDyn.Children, true, m)
	case DynComponent:
		d.removeNode(oldDyn.Component.Node, true, m)
	}
}

// diffAttributes merge-walks each attribute slot's old and new lists, which
// NewVNode keeps sorted by name. Equal names diff values (volatile
// attributes are always rewritten), a name only on the old side is removed,
// a name only on the new side is written.
func (d *Dom) diffAttributes(old, new *VNode) {
	for idx := range new.DynamicAttrs {
		oldList, newList := old.DynamicAttrs[idx], new.DynamicAttrs[idx]
		id := old.mount.attrIDs[idx]
		i, j := 0, 0
		for i < len(oldList) || j < len(newList) {
			switch {
			case i >= len(oldList):
				d.writeAttribute(newList[j], id)
				j++
			case j >= len(newList):
				d.removeAttribute(oldList[i], id)
				i++
			case oldList[i].Name == newList[j].Name:
				if oldList[i].Volatile || !oldList[i].Value.Equal(newList[j].Value) {
					d.writeAttribute(newList[j], id)
				}
				i, j = i+1, j+1
			case oldList[i].Name < newList[j].Name:
				d.removeAttribute(oldList[i], id)
				i++
			default:
				d.writeAttribute(newList[j], id)
				j++
			}
		}
	}
}

// lightDiffTemplates handles an old and new instance from different
// declarations. When both templates are nothing but component slots with
// pairwise matching component names (the same children rendered under two
// different conditional branches), the components are diffed in place so
// their subtree state survives. Any other deviation replaces the subtree.
func (d *Dom) lightDiffTemplates(old, new *VNode) {
	if !matchingComponents(old, new) {
		d.replace(old, new)
		return
	}
	checkSlots(new.Template, new)
	new.mount = old.mount
	for i := range new.DynamicNodes {
		oldC := old.DynamicNodes[i].Component
		newC := new.DynamicNodes[i].Component
		if oldC.Name == newC.Name {
			d.diffNode(oldC.Node, newC.Node)
			continue
		}
		m := d.createNode(newC.Node)
		d.removeNode(oldC.Node, true, m)
	}
}

// matchingComponents reports whether both nodes consist solely of component
// roots, pairwise by position.
func matchingComponents(old, new *VNode) bool {
	ot, nt := old.Template, new.Template
	if len(ot.Roots) != len(nt.Roots) {
		return false
	}
	for i := range ot.Roots {
		if ot.dynamicRootID(i) < 0 || nt.dynamicRootID(i) < 0 {
			return false
		}
		if old.DynamicNodes[ot.Roots[i].ID].Kind != DynComponent ||
			new.DynamicNodes[nt.Roots[i].ID].Kind != DynComponent {
			return false
		}
	}
	return true
}

// replace builds new and splices it in over old's roots.
func (d *Dom) replace(old, new *VNode) {
	m := d.createNode(new)
	d.removeNode(old, true, m)
}

// removeNode tears down a mounted subtree. With emit set, Remove (or, for
// the last root when replaceWith > 0, a ReplaceWith consuming that many
// stack nodes) is written for each root; either way every id owned by the
// subtree is reclaimed. Nested ids are reclaimed without mutations: the
// root-level Remove implies removal of all descendants and their listeners.
func (d *Dom) removeNode(v *VNode, emit bool, replaceWith int) {
	mnt := v.mount
	if mnt == nil {
		return
	}
	t := v.Template

	if !d.expand {
		// Reclaim ids claimed for nested dynamic attributes. Consecutive
		// slots can share an id; dedupe the way they were assigned.
		var prev ElementID
		for idx, path := range t.AttrPaths {
			if len(path) <= 1 {
				continue
			}
			if id := mnt.attrIDs[idx]; id != prev {
				d.reclaim(id)
				prev = id
			}
		}
	}

	// Nested dynamic nodes are destroyed by their root's Remove; reclaim
	// their ids without mutations.
	for idx, path := range t.NodePaths {
		if len(path) < 2 {
			continue
		}
		d.removeDynamicValue(v, idx, false, 0)
	}

	for rootIdx := range t.Roots {
		last := rootIdx == len(t.Roots)-1
		rw := 0
		if last {
			rw = replaceWith
		}
		if slot := t.dynamicRootID(rootIdx); slot >= 0 {
			d.removeDynamicValue(v, slot, emit, rw)
			continue
		}
		id := mnt.rootIDs[rootIdx]
		if emit {
			if rw > 0 {
				d.muts.replaceWith(id, rw)
			} else {
				d.muts.remove(id)
			}
		}
		d.reclaim(id)
	}

	for _, id := range mnt.expandedIDs {
		d.reclaim(id)
	}
	v.mount = nil
}

// removeDynamicValue tears down the value in slot idx of v.
func (d *Dom) removeDynamicValue(v *VNode, idx int, emit bool, replaceWith int) {
	dyn := &v.DynamicNodes[idx]
	switch dyn.Kind {
	case DynText, DynPlaceholder:
		id := v.mount.dynamicNodeIDs[idx]
		if id == 0 {
			return
		}
		if emit {
			if replaceWith > 0 {
				d.muts.replaceWith(id, replaceWith)
			} else {
				d.muts.remove(id)
			}
		}
		d.reclaim(id)
		v.mount.dynamicNodeIDs[idx] = 0
	case DynFragment:
		d.removeNodes(dyn.Children, emit, replaceWith)
	case DynComponent:
		d.removeNode(dyn.Component.Node, emit, replaceWith)
	}
}

// removeNodes tears down a run of siblings; replaceWith, if non-zero, is
// consumed by the last one.
func (d *Dom) removeNodes(nodes []*VNode, emit bool, replaceWith int) {
	for i, node := range nodes {
		if i == len(nodes)-1 {
			d.removeNode(node, emit, replaceWith)
			return
		}
		d.removeNode(node, emit, 0)
	}
}

// firstElementID returns the id of the first concrete node of a mounted
// instance, used as an insertion anchor.
func (d *Dom) firstElementID(v *VNode) ElementID {
	if slot := v.Template.dynamicRootID(0); slot >= 0 {
		dyn := &v.DynamicNodes[slot]
		switch dyn.Kind {
		case DynFragment:
			return d.firstElementID(dyn.Children[0])
		case DynComponent:
			return d.firstElementID(dyn.Component.Node)
		}
		return v.mount.dynamicNodeIDs[slot]
	}
	return v.mount.rootIDs[0]
}

// lastElementID returns the id of the last concrete node of a mounted
// instance.
func (d *Dom) lastElementID(v *VNode) ElementID {
	lastRoot := len(v.Template.Roots) - 1
	if slot := v.Template.dynamicRootID(lastRoot); slot >= 0 {
		dyn := &v.DynamicNodes[slot]
		switch dyn.Kind {
		case DynFragment:
			return d.lastElementID(dyn.Children[len(dyn.Children)-1])
		case DynComponent:
			return d.lastElementID(dyn.Component.Node)
		}
		return v.mount.dynamicNodeIDs[slot]
	}
	return v.mount.rootIDs[lastRoot]
}

// pushAllRealNodes re-pushes every concrete root node of a mounted instance
// onto the replay stack so a splice can move the whole run. Returns how many
// entries were pushed.
func (d *Dom) pushAllRealNodes(v *VNode) int {
	total := 0
	for rootIdx := range v.Template.Roots {
		if slot := v.Template.dynamicRootID(rootIdx); slot >= 0 {
			dyn := &v.DynamicNodes[slot]
			switch dyn.Kind {
			case DynFragment:
				for _, child := range dyn.Children {
					total += d.pushAllRealNodes(child)
				}
				continue
			case DynComponent:
				total += d.pushAllRealNodes(dyn.Component.Node)
				continue
			}
			d.muts.pushRoot(v.mount.dynamicNodeIDs[slot])
			total++
			continue
		}
		d.muts.pushRoot(v.mount.rootIDs[rootIdx])
		total++
	}
	return total
}
