package store

import (
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
)

func (tx *Txn) writableText(key node.Key, op string, strict bool) (*node.Node, error) {
	n, err := tx.Writable(key)
	if err != nil {
		return nil, err
	}
	if !n.IsText() {
		return nil, tx.fail(fmt.Errorf("%s on %s %s: %w", op, n.Kind(), key, node.ErrKindMismatch))
	}
	if n.Mode() == node.ModeImmutable || (strict && n.Mode() == node.ModeSegmented) {
		return nil, tx.fail(&node.ImmutableError{Key: key, Mode: n.Mode(), Op: op})
	}
	return n, nil
}

// SplitText splits the text leaf at the given rune offsets and returns the
// fragment keys in order. The first fragment keeps the original key; new
// fragments copy type, format, mode and attributes and follow it in the
// parent. Offsets are sorted and deduplicated; offsets at either end of the
// text are ignored so no fragment is empty.
func (tx *Txn) SplitText(key node.Key, offsets ...int) ([]node.Key, error) {
	n, err := tx.writableText(key, "split", true)
	if err != nil {
		return nil, err
	}
	if n.Parent() == "" {
		return nil, tx.fail(fmt.Errorf("split %s: %w", key, ErrDetached))
	}
	text := n.Text()
	length := utf8.RuneCountInString(text)

	cuts := make([]int, 0, len(offsets))
	for _, o := range offsets {
		if o > 0 && o < length {
			cuts = append(cuts, o)
		}
	}
	slices.Sort(cuts)
	cuts = slices.Compact(cuts)
	if len(cuts) == 0 {
		return []node.Key{key}, nil
	}

	bounds := append(append([]int{0}, cuts...), length)
	frags := make([]selection.Fragment, 0, len(bounds)-1)
	keys := make([]node.Key, 0, len(bounds)-1)
	prev := key
	for i := 0; i+1 < len(bounds); i++ {
		start, end := bounds[i], bounds[i+1]
		piece := text[node.RuneOffsetToByte(text, start):node.RuneOffsetToByte(text, end)]
		fk := key
		if i == 0 {
			if err := n.SetText(piece); err != nil {
				return nil, tx.fail(err)
			}
		} else {
			f, err := tx.Create(n.Type())
			if err != nil {
				return nil, err
			}
			if err := copyLeaf(f, n, piece); err != nil {
				return nil, tx.fail(err)
			}
			if err := tx.InsertAfter(prev, f.Key()); err != nil {
				return nil, err
			}
			fk = f.Key()
		}
		frags = append(frags, selection.Fragment{Key: fk, Start: start, End: end})
		keys = append(keys, fk)
		prev = fk
	}

	tx.sel = tx.sel.Map(func(p selection.Point) selection.Point {
		return selection.RemapSplit(p, key, frags)
	})
	return keys, nil
}

func copyLeaf(dst, src *node.Node, text string) error {
	if err := dst.SetText(text); err != nil {
		return err
	}
	if err := dst.SetFormat(src.Format()); err != nil {
		return err
	}
	for k, v := range src.Attrs() {
		if err := dst.SetAttr(k, v); err != nil {
			return err
		}
	}
	return dst.SetMode(src.Mode())
}

// SpliceText deletes deleted runes at offset in the leaf and inserts text in
// their place. Offsets are clamped to the text. Selection points on the leaf
// follow the edit.
func (tx *Txn) SpliceText(key node.Key, offset, deleted int, text string) error {
	n, err := tx.writableText(key, "splice", true)
	if err != nil {
		return err
	}
	cur := n.Text()
	length := utf8.RuneCountInString(cur)
	offset = min(max(offset, 0), length)
	deleted = min(max(deleted, 0), length-offset)

	from := node.RuneOffsetToByte(cur, offset)
	to := node.RuneOffsetToByte(cur, offset+deleted)
	if err := n.SetText(cur[:from] + text + cur[to:]); err != nil {
		return tx.fail(err)
	}
	inserted := utf8.RuneCountInString(text)
	tx.sel = tx.sel.Map(func(p selection.Point) selection.Point {
		return selection.RemapSplice(p, key, offset, deleted, inserted)
	})
	return nil
}

// SetText replaces the leaf's text. Segmented leaves accept whole-text
// replacement; immutable leaves do not. Points past the new end are clamped.
func (tx *Txn) SetText(key node.Key, text string) error {
	n, err := tx.writableText(key, "set text", false)
	if err != nil {
		return err
	}
	if err := n.SetText(text); err != nil {
		return tx.fail(err)
	}
	l := n.TextLen()
	tx.sel = tx.sel.Map(func(p selection.Point) selection.Point {
		if p.Key == key && p.Offset > l {
			p.Offset = l
		}
		return p
	})
	return nil
}

// MergeText appends the text of the leaf next to key and removes next.
// Both leaves must be plain text with equal format and mode. Points on next
// move into key.
func (tx *Txn) MergeText(key, next node.Key) error {
	a, err := tx.writableText(key, "merge", true)
	if err != nil {
		return err
	}
	b, err := tx.Get(next)
	if err != nil {
		return err
	}
	if !b.IsText() || b.Format() != a.Format() || b.Mode() != a.Mode() || b.Type() != a.Type() {
		return tx.fail(fmt.Errorf("merge %s into %s: %w", next, key, node.ErrKindMismatch))
	}
	shift := a.TextLen()
	if err := a.SetText(a.Text() + b.Text()); err != nil {
		return tx.fail(err)
	}
	tx.sel = tx.sel.Map(func(p selection.Point) selection.Point {
		if p.Key == next && p.Type == selection.PointText {
			return selection.TextPoint(key, shift+p.Offset)
		}
		return p
	})
	if _, err := tx.detach(next); err != nil {
		return err
	}
	return nil
}

// SetFormat replaces a text leaf's format bits.
func (tx *Txn) SetFormat(key node.Key, f node.Format) error {
	n, err := tx.writableText(key, "format", false)
	if err != nil {
		return err
	}
	if n.Format() == f {
		return nil
	}
	return tx.wrap(n.SetFormat(f))
}

// ToggleFormat flips the given format bits on a text leaf.
func (tx *Txn) ToggleFormat(key node.Key, f node.Format) error {
	n, err := tx.Get(key)
	if err != nil {
		return err
	}
	return tx.SetFormat(key, n.Format().Toggle(f))
}

// SetMode changes a text leaf's mutability class.
func (tx *Txn) SetMode(key node.Key, m node.Mode) error {
	n, err := tx.Writable(key)
	if err != nil {
		return err
	}
	return tx.wrap(n.SetMode(m))
}

// SetAttr sets a payload attribute on any node.
func (tx *Txn) SetAttr(key node.Key, name, value string) error {
	n, err := tx.Writable(key)
	if err != nil {
		return err
	}
	return tx.wrap(n.SetAttr(name, value))
}

// DeleteAttr removes a payload attribute.
func (tx *Txn) DeleteAttr(key node.Key, name string) error {
	n, err := tx.Writable(key)
	if err != nil {
		return err
	}
	return tx.wrap(n.DeleteAttr(name))
}

func (tx *Txn) wrap(err error) error {
	if err != nil {
		return tx.fail(err)
	}
	return nil
}
