package store

import (
	"fmt"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
)

// Append makes child the last child of parent, moving it if attached.
func (tx *Txn) Append(parent, child node.Key) error {
	if err := tx.prepareInsert(parent, child); err != nil {
		return err
	}
	p, err := tx.Get(parent)
	if err != nil {
		return err
	}
	return tx.attach(parent, p.ChildCount(), child)
}

// InsertAt inserts child into parent's child list at index, moving it if
// attached. Out-of-range indexes append.
func (tx *Txn) InsertAt(parent node.Key, index int, child node.Key) error {
	if err := tx.prepareInsert(parent, child); err != nil {
		return err
	}
	return tx.attach(parent, index, child)
}

// InsertBefore inserts child immediately before ref.
func (tx *Txn) InsertBefore(ref, child node.Key) error {
	return tx.insertBeside(ref, child, 0)
}

// InsertAfter inserts child immediately after ref.
func (tx *Txn) InsertAfter(ref, child node.Key) error {
	return tx.insertBeside(ref, child, 1)
}

func (tx *Txn) insertBeside(ref, child node.Key, delta int) error {
	r, err := tx.Get(ref)
	if err != nil {
		return err
	}
	if r.Parent() == "" {
		return tx.fail(fmt.Errorf("insert beside %s: %w", ref, ErrDetached))
	}
	if ref == child {
		return nil
	}
	parent := r.Parent()
	if err := tx.prepareInsert(parent, child); err != nil {
		return err
	}
	p, err := tx.Get(parent)
	if err != nil {
		return err
	}
	return tx.attach(parent, p.ChildIndex(ref)+delta, child)
}

// prepareInsert validates an insert of child under parent and detaches child
// from its current parent.
func (tx *Txn) prepareInsert(parent, child node.Key) error {
	if err := tx.check(); err != nil {
		return err
	}
	if child == node.RootKey {
		return tx.fail(fmt.Errorf("insert root: %w", ErrRootRemoval))
	}
	p, err := tx.Get(parent)
	if err != nil {
		return err
	}
	if !p.IsElement() {
		return tx.fail(fmt.Errorf("insert into %s %s: %w", p.Kind(), parent, node.ErrKindMismatch))
	}
	if _, err := tx.Get(child); err != nil {
		return err
	}
	if parent == child || IsAncestor(tx, child, parent) {
		return tx.fail(fmt.Errorf("insert %s under %s: %w", child, parent, ErrCycle))
	}
	_, err = tx.detach(child)
	return err
}

// attach links a detached child into parent at index.
func (tx *Txn) attach(parent node.Key, index int, child node.Key) error {
	p, err := tx.Writable(parent)
	if err != nil {
		return err
	}
	c, err := tx.Writable(child)
	if err != nil {
		return err
	}
	if index < 0 || index > p.ChildCount() {
		index = p.ChildCount()
	}
	if err := p.InsertChild(index, child); err != nil {
		return tx.fail(err)
	}
	if err := c.SetParent(parent); err != nil {
		return tx.fail(err)
	}
	tx.dirty.MarkSubtree(parent, true)
	tx.sel = tx.sel.Map(func(pt selection.Point) selection.Point {
		return selection.ShiftChildren(pt, parent, index, 1)
	})
	return nil
}

// detach unlinks key from its parent and returns the former parent and
// index. Detached nodes are left alone.
func (tx *Txn) detach(key node.Key) (node.Key, error) {
	n, err := tx.Get(key)
	if err != nil {
		return "", err
	}
	parent := n.Parent()
	if parent == "" {
		return "", nil
	}
	p, err := tx.Writable(parent)
	if err != nil {
		return "", err
	}
	c, err := tx.Writable(key)
	if err != nil {
		return "", err
	}
	idx, err := p.RemoveChild(key)
	if err != nil {
		return "", tx.fail(err)
	}
	if err := c.SetParent(""); err != nil {
		return "", tx.fail(err)
	}
	tx.dirty.MarkSubtree(parent, true)
	if idx >= 0 {
		tx.sel = tx.sel.Map(func(pt selection.Point) selection.Point {
			return selection.ShiftChildren(pt, parent, idx, -1)
		})
	}
	return parent, nil
}

// Remove detaches key from the tree. The node and its subtree are dropped
// at commit unless re-attached first.
//
// Selection points inside the removed subtree move to the end of the
// previous sibling, else the start of the next sibling, else the parent at
// the removed index.
func (tx *Txn) Remove(key node.Key) error {
	if err := tx.check(); err != nil {
		return err
	}
	if key == node.RootKey {
		return tx.fail(ErrRootRemoval)
	}
	parent, idx, attached := IndexInParent(tx, key)
	if _, err := tx.Get(key); err != nil {
		return err
	}
	if !attached {
		return nil
	}
	if _, err := tx.detach(key); err != nil {
		return err
	}

	p, _ := tx.Node(parent)
	fallback := selection.ElementPoint(parent, idx)
	if prev := p.ChildAt(idx - 1); prev != "" {
		if pt, ok := EndPoint(tx, prev); ok {
			fallback = pt
		}
	} else if next := p.ChildAt(idx); next != "" {
		if pt, ok := StartPoint(tx, next); ok {
			fallback = pt
		}
	}
	tx.sel = tx.sel.Map(func(pt selection.Point) selection.Point {
		return selection.Rebase(pt, func(k node.Key) bool {
			return k == key || IsAncestor(tx, key, k)
		}, fallback)
	})
	return nil
}

// Replace puts repl in old's position. With keepChildren, old's children
// move to the end of repl's child list (both must be elements). Points on old
// move to repl; points inside a discarded subtree move to repl's end.
func (tx *Txn) Replace(old, repl node.Key, keepChildren bool) error {
	if err := tx.check(); err != nil {
		return err
	}
	if old == node.RootKey || repl == node.RootKey {
		return tx.fail(ErrRootRemoval)
	}
	if old == repl {
		return nil
	}
	o, err := tx.Get(old)
	if err != nil {
		return err
	}
	r, err := tx.Get(repl)
	if err != nil {
		return err
	}
	parent := o.Parent()
	if parent == "" {
		return tx.fail(fmt.Errorf("replace %s: %w", old, ErrDetached))
	}
	if IsAncestor(tx, repl, old) {
		return tx.fail(fmt.Errorf("replace %s with ancestor %s: %w", old, repl, ErrCycle))
	}
	if keepChildren && (!o.IsElement() || !r.IsElement()) {
		return tx.fail(fmt.Errorf("replace %s keeping children: %w", old, node.ErrKindMismatch))
	}
	if _, err := tx.detach(repl); err != nil {
		return err
	}

	p, err := tx.Writable(parent)
	if err != nil {
		return err
	}
	ow, err := tx.Writable(old)
	if err != nil {
		return err
	}
	rw, err := tx.Writable(repl)
	if err != nil {
		return err
	}
	adopted := rw.ChildCount()
	if keepChildren {
		if err := tx.adoptChildren(ow, rw); err != nil {
			return err
		}
	}
	idx, err := p.ReplaceChild(old, repl)
	if err != nil {
		return tx.fail(err)
	}
	if err := ow.SetParent(""); err != nil {
		return tx.fail(err)
	}
	if err := rw.SetParent(parent); err != nil {
		return tx.fail(err)
	}
	tx.dirty.MarkSubtree(parent, true)

	var to selection.Point
	switch rw.Kind() {
	case node.KindText:
		to = selection.TextPoint(repl, rw.TextLen())
	case node.KindElement:
		to = selection.ElementPoint(repl, rw.ChildCount())
	default:
		to = selection.ElementPoint(parent, idx+1)
	}
	end, ok := EndPoint(tx, repl)
	if !ok {
		end = to
	}
	tx.sel = tx.sel.Map(func(pt selection.Point) selection.Point {
		switch {
		case pt.Key == old && keepChildren && pt.Type == selection.PointElement:
			return selection.ElementPoint(repl, adopted+pt.Offset)
		case pt.Key == old && rw.IsDecorator():
			return to
		case pt.Key == old:
			return selection.RemapReplace(pt, old, to)
		case IsAncestor(tx, old, pt.Key):
			return end
		}
		return pt
	})
	return nil
}

// adoptChildren moves every child of from to the end of to's child list.
// Selection points inside the moved subtrees are unaffected.
func (tx *Txn) adoptChildren(from, to *node.Node) error {
	for _, ck := range from.Children() {
		c, err := tx.Writable(ck)
		if err != nil {
			return err
		}
		if _, err := from.RemoveChild(ck); err != nil {
			return tx.fail(err)
		}
		if err := to.InsertChild(to.ChildCount(), ck); err != nil {
			return tx.fail(err)
		}
		if err := c.SetParent(to.Key()); err != nil {
			return tx.fail(err)
		}
	}
	tx.dirty.MarkSubtree(from.Key(), true)
	tx.dirty.MarkSubtree(to.Key(), true)
	return nil
}
