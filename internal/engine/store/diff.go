package store

import (
	"github.com/dshills/inkwell/internal/engine/dirty"
	"github.com/dshills/inkwell/internal/engine/node"
)

// Diff computes the dirty set that turns prev into next. Nodes shared by
// pointer are clean; any other node present in next is dirty along with
// its ancestors. prev may be nil, in which case everything in next is dirty.
func Diff(prev, next *State) *dirty.Set {
	d := dirty.New()
	if next == nil {
		return d
	}
	for k, n := range next.nodes {
		var old *node.Node
		if prev != nil {
			old = prev.nodes[k]
		}
		if old == n {
			continue
		}
		d.MarkNode(k)
		if n.IsElement() && (old == nil || !old.SameChildren(n)) {
			d.MarkSubtree(k, true)
		}
		for p := n.Parent(); p != ""; {
			if marked, _ := d.Subtree(p); marked {
				break
			}
			d.MarkSubtree(p, false)
			pn, ok := next.nodes[p]
			if !ok {
				break
			}
			p = pn.Parent()
		}
		if old != nil && old.Parent() != n.Parent() {
			d.MarkSubtree(n.Parent(), true)
			if _, ok := next.nodes[old.Parent()]; ok {
				d.MarkSubtree(old.Parent(), true)
			}
		}
	}
	if prev != nil {
		for k, old := range prev.nodes {
			if _, ok := next.nodes[k]; ok {
				continue
			}
			d.MarkDestroyed(k)
			if _, ok := next.nodes[old.Parent()]; ok {
				d.MarkSubtree(old.Parent(), true)
			}
		}
	}
	return d
}
