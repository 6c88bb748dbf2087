package store

import (
	"strings"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
)

// View is read access to a tree. Both State and Txn implement it; a Txn
// view reflects the transaction's working tree.
type View interface {
	Node(key node.Key) (*node.Node, bool)
	Get(key node.Key) (*node.Node, error)
	Root() *node.Node
	Selection() *selection.Selection
}

var (
	_ View = (*State)(nil)
	_ View = (*Txn)(nil)
)

// Walk visits the subtree at key in pre-order. Returning false from fn skips
// the node's children.
func Walk(v View, key node.Key, fn func(n *node.Node, depth int) bool) {
	var visit func(k node.Key, depth int)
	visit = func(k node.Key, depth int) {
		n, ok := v.Node(k)
		if !ok {
			return
		}
		if !fn(n, depth) {
			return
		}
		for i := 0; i < n.ChildCount(); i++ {
			visit(n.ChildAt(i), depth+1)
		}
	}
	visit(key, 0)
}

// TextContent returns the text below key. Children of the root are joined
// with newlines; other elements concatenate their children.
func TextContent(v View, key node.Key) string {
	n, ok := v.Node(key)
	if !ok {
		return ""
	}
	switch n.Kind() {
	case node.KindText:
		return n.Text()
	case node.KindDecorator:
		return ""
	}
	parts := make([]string, 0, n.ChildCount())
	for i := 0; i < n.ChildCount(); i++ {
		parts = append(parts, TextContent(v, n.ChildAt(i)))
	}
	if key == node.RootKey {
		return strings.Join(parts, "\n")
	}
	return strings.Join(parts, "")
}

// IsAncestor reports whether anc is a proper ancestor of key.
func IsAncestor(v View, anc, key node.Key) bool {
	n, ok := v.Node(key)
	for ok {
		p := n.Parent()
		if p == "" {
			return false
		}
		if p == anc {
			return true
		}
		n, ok = v.Node(p)
	}
	return false
}

// IndexInParent returns key's parent and its index in the parent's child list.
func IndexInParent(v View, key node.Key) (node.Key, int, bool) {
	n, ok := v.Node(key)
	if !ok || n.Parent() == "" {
		return "", -1, false
	}
	p, ok := v.Node(n.Parent())
	if !ok {
		return "", -1, false
	}
	i := p.ChildIndex(key)
	return p.Key(), i, i >= 0
}

// Path returns the child indices leading from the root to key.
func Path(v View, key node.Key) ([]int, bool) {
	var rev []int
	for k := key; k != node.RootKey; {
		parent, i, ok := IndexInParent(v, k)
		if !ok {
			return nil, false
		}
		rev = append(rev, i)
		k = parent
	}
	path := make([]int, len(rev))
	for i, idx := range rev {
		path[len(rev)-1-i] = idx
	}
	return path, true
}

// NodeAtPath resolves a path produced by Path.
func NodeAtPath(v View, path []int) (*node.Node, bool) {
	n := v.Root()
	for _, i := range path {
		if n == nil || i < 0 || i >= n.ChildCount() {
			return nil, false
		}
		var ok bool
		if n, ok = v.Node(n.ChildAt(i)); !ok {
			return nil, false
		}
	}
	return n, n != nil
}

// StartPoint returns the first caret position inside key.
func StartPoint(v View, key node.Key) (selection.Point, bool) {
	n, ok := v.Node(key)
	if !ok {
		return selection.Point{}, false
	}
	switch n.Kind() {
	case node.KindText:
		return selection.TextPoint(key, 0), true
	case node.KindDecorator:
		parent, i, ok := IndexInParent(v, key)
		return selection.ElementPoint(parent, i), ok
	}
	if n.ChildCount() == 0 {
		return selection.ElementPoint(key, 0), true
	}
	return StartPoint(v, n.ChildAt(0))
}

// EndPoint returns the last caret position inside key.
func EndPoint(v View, key node.Key) (selection.Point, bool) {
	n, ok := v.Node(key)
	if !ok {
		return selection.Point{}, false
	}
	switch n.Kind() {
	case node.KindText:
		return selection.TextPoint(key, n.TextLen()), true
	case node.KindDecorator:
		parent, i, ok := IndexInParent(v, key)
		return selection.ElementPoint(parent, i+1), ok
	}
	if n.ChildCount() == 0 {
		return selection.ElementPoint(key, 0), true
	}
	return EndPoint(v, n.ChildAt(n.ChildCount()-1))
}

// Leaves returns the text and decorator keys below key in document order.
func Leaves(v View, key node.Key) []node.Key {
	var out []node.Key
	Walk(v, key, func(n *node.Node, _ int) bool {
		if !n.IsElement() {
			out = append(out, n.Key())
		}
		return true
	})
	return out
}

// Block returns the top-level block (child of the root) containing key.
func Block(v View, key node.Key) (node.Key, bool) {
	for k := key; ; {
		n, ok := v.Node(k)
		if !ok {
			return "", false
		}
		if n.Parent() == node.RootKey {
			return k, true
		}
		if n.Parent() == "" {
			return "", false
		}
		k = n.Parent()
	}
}

func resolvePoint(v View, p selection.Point) (selection.Point, bool) {
	n, ok := v.Node(p.Key)
	if !ok {
		return p, false
	}
	if n.IsDecorator() {
		parent, i, ok := IndexInParent(v, n.Key())
		if !ok {
			return p, false
		}
		off := i
		if p.Offset > 0 {
			off = i + 1
		}
		return selection.ElementPoint(parent, off), true
	}
	return selection.Clamp(p, n)
}

// resolveSelection validates both points against v. It returns nil when
// either point cannot be resolved.
func resolveSelection(v View, sel *selection.Selection) *selection.Selection {
	if sel == nil {
		return nil
	}
	anchor, ok := resolvePoint(v, sel.Anchor)
	if !ok {
		return nil
	}
	focus, ok := resolvePoint(v, sel.Focus)
	if !ok {
		return nil
	}
	return selection.New(anchor, focus)
}
