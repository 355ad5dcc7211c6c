package vdom

import "math"

// diffChildren diffs the children of a fragment slot. Both runs are
// non-empty (an empty fragment is built as a placeholder). A run is either
// entirely keyed or entirely unkeyed; mixing the two in one list panics.
func (d *Dom) diffChildren(old, new []*VNode) {
	oldKeyed := old[0].Key != ""
	newKeyed := new[0].Key != ""
	if oldKeyed != newKeyed {
		panic("vdom: fragment changed between keyed and unkeyed children")
	}
	if newKeyed {
		d.diffKeyedChildren(old, new)
		return
	}
	d.diffNonKeyedChildren(old, new)
}

// diffNonKeyedChildren pairs children by position, then removes or appends
// the length difference.
func (d *Dom) diffNonKeyedChildren(old, new []*VNode) {
	shared := min(len(old), len(new))
	for i := 0; i < shared; i++ {
		d.diffNode(old[i], new[i])
	}
	switch {
	case len(old) > len(new):
		d.removeNodes(old[shared:], true, 0)
	case len(new) > len(old):
		d.createAndInsertAfter(new[shared:], new[shared-1])
	}
}

// diffKeyedChildren reconciles two keyed runs: trim the shared prefix and
// suffix, then reorder the middle moving as few nodes as possible. Keys are
// expected to be unique within a run; a duplicate silently shadows its
// earlier occurrence.
func (d *Dom) diffKeyedChildren(old, new []*VNode) {
	for _, v := range old {
		if v.Key == "" {
			panic("vdom: unkeyed child in keyed fragment")
		}
	}
	for _, v := range new {
		if v.Key == "" {
			panic("vdom: unkeyed child in keyed fragment")
		}
	}

	left, right, done := d.diffKeyedEnds(old, new)
	if done {
		return
	}

	oldMiddle := old[left : len(old)-right]
	newMiddle := new[left : len(new)-right]

	switch {
	case len(newMiddle) == 0:
		d.removeNodes(oldMiddle, true, 0)
	case len(oldMiddle) == 0:
		// No old nodes to pair against; pick an anchor from whichever
		// trimmed end exists.
		switch {
		case left == 0:
			d.createAndInsertBefore(newMiddle, new[len(new)-right])
		case right == 0:
			d.createAndInsertAfter(newMiddle, new[left-1])
		default:
			d.createAndInsertAfter(newMiddle, new[left-1])
		}
	default:
		d.diffKeyedMiddle(oldMiddle, newMiddle)
	}
}

// diffKeyedEnds diffs the shared prefix and suffix in place and reports how
// much was trimmed from each end. done is true when one side was consumed
// entirely and the remainder has already been handled.
func (d *Dom) diffKeyedEnds(old, new []*VNode) (left, right int, done bool) {
	for left < len(old) && left < len(new) && old[left].Key == new[left].Key {
		d.diffNode(old[left], new[left])
		left++
	}
	if left == len(old) {
		if left < len(new) {
			d.createAndInsertAfter(new[left:], new[left-1])
		}
		return 0, 0, true
	}
	if left == len(new) {
		d.removeNodes(old[left:], true, 0)
		return 0, 0, true
	}

	for right < len(old)-left && right < len(new)-left &&
		old[len(old)-1-right].Key == new[len(new)-1-right].Key {
		d.diffNode(old[len(old)-1-right], new[len(new)-1-right])
		right++
	}
	return left, right, false
}

// noOldIndex marks a new child whose key has no counterpart in the old run.
const noOldIndex = math.MaxInt

// diffKeyedMiddle reorders the middle of two keyed runs. Children whose old
// positions form the longest increasing subsequence stay put; everything
// else is created or moved around them with InsertBefore/InsertAfter.
func (d *Dom) diffKeyedMiddle(old, new []*VNode) {
	oldKeyToIndex := make(map[string]int, len(old))
	for i, v := range old {
		oldKeyToIndex[v.Key] = i
	}

	shared := make(map[string]bool, len(new))
	newToOld := make([]int, len(new))
	for i, v := range new {
		if oldIdx, ok := oldKeyToIndex[v.Key]; ok {
			shared[v.Key] = true
			newToOld[i] = oldIdx
		} else {
			newToOld[i] = noOldIndex
		}
	}

	// Nothing survives: replace the whole run.
	if len(shared) == 0 {
		d.removeNodes(old[1:], true, 0)
		m := d.createChildren(new)
		d.removeNode(old[0], true, m)
		return
	}

	for _, v := range old {
		if !shared[v.Key] {
			d.removeNode(v, true, 0)
		}
	}

	lis := longestIncreasing(newToOld)
	// A single trailing no-match can sneak into a strictly increasing
	// subsequence; it has no old node to hold in place.
	if len(lis) > 0 && newToOld[lis[len(lis)-1]] == noOldIndex {
		lis = lis[:len(lis)-1]
	}

	for _, idx := range lis {
		d.diffNode(old[newToOld[idx]], new[idx])
	}

	// mountOrMove diffs a kept child in place and re-pushes its nodes, or
	// creates a brand new one, returning the stack entries produced.
	mountOrMove := func(idx int) int {
		oldIdx := newToOld[idx]
		if oldIdx == noOldIndex {
			return d.createNode(new[idx])
		}
		d.diffNode(old[oldIdx], new[idx])
		return d.pushAllRealNodes(new[idx])
	}

	// Segment after the last anchored child.
	last := lis[len(lis)-1]
	if last < len(new)-1 {
		created := 0
		for idx := last + 1; idx < len(new); idx++ {
			created += mountOrMove(idx)
		}
		if created > 0 {
			d.muts.insertAfter(d.lastElementID(new[last]), created)
		}
	}

	// Gaps between anchors, walked back to front.
	for i := len(lis) - 1; i > 0; i-- {
		gapEnd, gapStart := lis[i], lis[i-1]
		if gapEnd-gapStart > 1 {
			created := 0
			for idx := gapStart + 1; idx < gapEnd; idx++ {
				created += mountOrMove(idx)
			}
			if created > 0 {
				d.muts.insertBefore(d.firstElementID(new[gapEnd]), created)
			}
		}
	}

	// Segment before the first anchored child.
	first := lis[0]
	if first > 0 {
		created := 0
		for idx := 0; idx < first; idx++ {
			created += mountOrMove(idx)
		}
		if created > 0 {
			d.muts.insertBefore(d.firstElementID(new[first]), created)
		}
	}
}

func (d *Dom) createAndInsertAfter(nodes []*VNode, anchor *VNode) {
	m := d.createChildren(nodes)
	d.muts.insertAfter(d.lastElementID(anchor), m)
}

func (d *Dom) createAndInsertBefore(nodes []*VNode, anchor *VNode) {
	m := d.createChildren(nodes)
	d.muts.insertBefore(d.firstElementID(anchor), m)
}

// longestIncreasing returns the indices of a longest strictly increasing
// subsequence of seq, in ascending index order.
func longestIncreasing(seq []int) []int {
	tails := make([]int, 0, len(seq))
	prev := make([]int, len(seq))
	for i, v := range seq {
		lo, hi := 0, len(tails)
		for lo < hi {
			mid := (lo + hi) / 2
			if seq[tails[mid]] < v {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo > 0 {
			prev[i] = tails[lo-1]
		} else {
			prev[i] = -1
		}
		if lo == len(tails) {
			tails = append(tails, i)
		} else {
			tails[lo] = i
		}
	}
	if len(tails) == 0 {
		return nil
	}
	out := make([]int, len(tails))
	k := tails[len(tails)-1]
	for i := len(tails) - 1; i >= 0; i-- {
		out[i] = k
		k = prev[k]
	}
	return out
}
