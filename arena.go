package vdom

import "fmt"

// arena hands out ElementIDs from a slab with a free list. Slot 0 is the
// renderer-owned mount root and is never allocated or reclaimed. Reclaimed
// ids are reused last-freed-first, only after the renderer has been told to
// remove the node, so a compliant renderer never sees an id collide with a
// node it still retains.
type arena struct {
	inUse []bool
	free  []ElementID
	live  int
}

func newArena() *arena {
	return &arena{inUse: []bool{true}}
}

func (a *arena) allocate() ElementID {
	a.live++
	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		a.inUse[id] = true
		return id
	}
	id := ElementID(len(a.inUse))
	a.inUse = append(a.inUse, true)
	return id
}

func (a *arena) reclaim(id ElementID) {
	if id == 0 || int(id) >= len(a.inUse) || !a.inUse[id] {
		panic(fmt.Sprintf("vdom: reclaim of element id %d which is not live", id))
	}
	a.inUse[id] = false
	a.free = append(a.free, id)
	a.live--
}

// liveCount reports how many ids are currently allocated, excluding the
// root. Used by tests to detect leaks and double reclaims.
func (a *arena) liveCount() int { return a.live }

// vnodeMount is the per-instance mount state of a VNode: the renderer ids
// its roots and dynamic slots resolved to. It lives from mount to unmount
// and moves from the old VNode to the new one on every diff.
type vnodeMount struct {
	// rootIDs holds one id per template root. For dynamic roots of text or
	// placeholder kind this doubles as the slot id; fragment and component
	// roots manage their own children and leave the entry zero.
	rootIDs []ElementID

	// dynamicNodeIDs holds the id backing each text or placeholder dynamic
	// slot. Fragment and component slots do not own an id.
	dynamicNodeIDs []ElementID

	// attrIDs holds the element id each dynamic attribute slot writes to.
	// Consecutive slots on the same template path share one id.
	attrIDs []ElementID

	// expandedIDs are the extra ids created when a template was expanded
	// into raw create instructions for a renderer without template
	// retention. They are reclaimed, without mutations, when the subtree
	// is removed.
	expandedIDs []ElementID
}

func newMount(t *Template) *vnodeMount {
	return &vnodeMount{
		rootIDs:        make([]ElementID, len(t.Roots)),
		dynamicNodeIDs: make([]ElementID, len(t.NodePaths)),
		attrIDs:        make([]ElementID, len(t.AttrPaths)),
	}
}
