package text

import (
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Caret positions are counted over the whole document: each text leaf
// contributes its rune length, each decorator one position, and each break
// between top-level blocks one position.

func leafLen(n *node.Node) int {
	if n.IsText() {
		return n.TextLen()
	}
	return 1
}

func blockLen(v store.View, block node.Key) int {
	total := 0
	for _, k := range store.Leaves(v, block) {
		if n, ok := v.Node(k); ok {
			total += leafLen(n)
		}
	}
	return total
}

// docLen returns the last caret position.
func docLen(v store.View) int {
	root := v.Root()
	total := 0
	for i := 0; i < root.ChildCount(); i++ {
		if i > 0 {
			total++
		}
		total += blockLen(v, root.ChildAt(i))
	}
	return total
}

// blockStart returns the position where block i begins.
func blockStart(v store.View, i int) int {
	root := v.Root()
	start := 0
	for j := 0; j < i && j < root.ChildCount(); j++ {
		start += blockLen(v, root.ChildAt(j)) + 1
	}
	return start
}

// prefix sums leaf lengths under block that precede stop in document order.
func prefix(v store.View, block, stop node.Key) int {
	total := 0
	found := false
	store.Walk(v, block, func(n *node.Node, _ int) bool {
		if found {
			return false
		}
		if n.Key() == stop {
			found = true
			return false
		}
		if !n.IsElement() {
			total += leafLen(n)
		}
		return true
	})
	return total
}

// offsetOf converts p to a caret position.
func offsetOf(v store.View, p selection.Point) (int, bool) {
	if p.Key == node.RootKey {
		if p.Offset >= v.Root().ChildCount() {
			return docLen(v), true
		}
		return blockStart(v, p.Offset), true
	}
	block, ok := store.Block(v, p.Key)
	if !ok {
		return 0, false
	}
	_, bi, ok := store.IndexInParent(v, block)
	if !ok {
		return 0, false
	}
	base := blockStart(v, bi)

	n, ok := v.Node(p.Key)
	if !ok {
		return 0, false
	}
	if p.Type == selection.PointText || !n.IsElement() {
		return base + prefix(v, block, p.Key) + min(p.Offset, leafLen(n)), true
	}
	if p.Offset < n.ChildCount() {
		return base + prefix(v, block, n.ChildAt(p.Offset)), true
	}
	return base + prefix(v, block, p.Key) + blockLen(v, p.Key), true
}

// pointAt converts a caret position to a point. At a boundary between two
// text leaves the end of the first is preferred.
func pointAt(v store.View, off int) selection.Point {
	root := v.Root()
	if root.ChildCount() == 0 {
		return selection.ElementPoint(node.RootKey, 0)
	}
	start := 0
	for i := 0; i < root.ChildCount(); i++ {
		block := root.ChildAt(i)
		blen := blockLen(v, block)
		if off <= start+blen || i == root.ChildCount()-1 {
			return pointInBlock(v, block, off-start)
		}
		start += blen + 1
	}
	return selection.ElementPoint(node.RootKey, root.ChildCount())
}

func pointInBlock(v store.View, block node.Key, local int) selection.Point {
	acc := 0
	for _, k := range store.Leaves(v, block) {
		n, ok := v.Node(k)
		if !ok {
			continue
		}
		if n.IsText() {
			if local <= acc+n.TextLen() {
				return selection.TextPoint(k, max(local-acc, 0))
			}
			acc += n.TextLen()
			continue
		}
		if local <= acc {
			p, _ := store.StartPoint(v, k)
			return p
		}
		acc++
	}
	p, _ := store.EndPoint(v, block)
	return p
}

// ordered returns the selection's points in document order.
func ordered(v store.View, sel *selection.Selection) (start, end selection.Point) {
	a, aok := offsetOf(v, sel.Anchor)
	f, fok := offsetOf(v, sel.Focus)
	if aok && fok && f < a {
		return sel.Focus, sel.Anchor
	}
	return sel.Anchor, sel.Focus
}
