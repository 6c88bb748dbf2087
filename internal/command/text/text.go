package text

import (
	"errors"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/dshills/inkwell/internal/command"
	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/engine/history"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Command names.
const (
	InsertText      = "insert-text"
	DeleteBackward  = "delete-backward"
	InsertParagraph = "insert-paragraph"
	MoveLeft        = "move-left"
	MoveRight       = "move-right"
	ToggleFormat    = "toggle-format"
	Undo            = "undo"
	Redo            = "redo"
)

// ParagraphType is the block type created by insert-paragraph.
const ParagraphType = "paragraph"

// Commands is the set of editing commands bound to one editor.
type Commands struct {
	editor  *engine.Editor
	history *history.History
	last    string
	off     []func()
}

// Register binds the editing commands to e. h may be nil, in which case
// undo and redo are not registered.
func Register(e *engine.Editor, h *history.History) *Commands {
	c := &Commands{editor: e, history: h}
	type binding struct {
		name string
		fn   command.Handler
	}
	bindings := []binding{
		{InsertText, c.insertText},
		{DeleteBackward, c.deleteBackward},
		{InsertParagraph, c.insertParagraph},
		{MoveLeft, c.move(-1)},
		{MoveRight, c.move(1)},
		{ToggleFormat, c.toggleFormat},
	}
	if h != nil {
		bindings = append(bindings, binding{Undo, c.undo}, binding{Redo, c.redo})
	}
	for _, b := range bindings {
		c.off = append(c.off, e.RegisterCommand(b.name, command.PriorityEditor, b.fn))
	}
	return c
}

// Close unregisters the commands.
func (c *Commands) Close() {
	for _, off := range c.off {
		off()
	}
	c.off = nil
}

// update runs fn as the named edit. Consecutive edits of the same kind
// merge into one history entry.
func (c *Commands) update(name string, fn func(tx *store.Txn) error) bool {
	tag := engine.TagHistoryPush
	if c.last == name {
		tag = engine.TagHistoryMerge
	}
	if err := c.editor.Update(fn, engine.WithTag(tag)); err != nil {
		c.fail(name, err)
		return false
	}
	c.last = name
	return true
}

func (c *Commands) fail(name string, err error) {
	c.last = ""
	c.editor.Logger().Warn("command failed",
		slog.String("command", name),
		slog.Any("error", err))
}

func (c *Commands) insertText(payload any) bool {
	s, ok := payload.(string)
	if !ok || s == "" {
		return false
	}
	name := InsertText
	if strings.Contains(s, "\n") {
		c.last = ""
		name = InsertParagraph
	}
	return c.update(name, func(tx *store.Txn) error {
		for i, line := range strings.Split(s, "\n") {
			if i > 0 {
				if err := splitBlock(tx); err != nil {
					return err
				}
			}
			if line == "" {
				continue
			}
			if err := insertAt(tx, line); err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *Commands) insertParagraph(any) bool {
	return c.update(InsertParagraph, splitBlock)
}

func (c *Commands) deleteBackward(any) bool {
	if c.editor.State().Selection() == nil {
		return false
	}
	return c.update(DeleteBackward, deleteBackward)
}

func (c *Commands) move(dir int) command.Handler {
	return func(any) bool {
		if c.editor.State().Selection() == nil {
			return false
		}
		err := c.editor.Update(func(tx *store.Txn) error {
			sel := tx.Selection()
			if sel == nil {
				return nil
			}
			start, end := ordered(tx, sel)
			if !sel.IsCollapsed() {
				if dir < 0 {
					return tx.SetSelection(selection.Collapsed(start))
				}
				return tx.SetSelection(selection.Collapsed(end))
			}
			off, ok := offsetOf(tx, sel.Focus)
			if !ok {
				return nil
			}
			off = min(max(off+dir, 0), docLen(tx))
			return tx.SetSelection(selection.Collapsed(pointAt(tx, off)))
		})
		if err != nil {
			c.fail("move", err)
			return false
		}
		c.last = ""
		return true
	}
}

func (c *Commands) toggleFormat(payload any) bool {
	var f node.Format
	switch p := payload.(type) {
	case node.Format:
		f = p
	case string:
		var ok bool
		if f, ok = node.ParseFormat(p); !ok {
			return false
		}
	default:
		return false
	}
	if f == 0 || c.editor.State().Selection() == nil {
		return false
	}
	c.last = ""
	return c.update(ToggleFormat, func(tx *store.Txn) error {
		return toggleFormat(tx, f)
	})
}

func (c *Commands) undo(any) bool {
	return c.step(Undo, c.history.Undo, history.ErrNothingToUndo)
}

func (c *Commands) redo(any) bool {
	return c.step(Redo, c.history.Redo, history.ErrNothingToRedo)
}

func (c *Commands) step(name string, fn func() error, empty error) bool {
	c.last = ""
	if err := fn(); err != nil {
		if !errors.Is(err, empty) {
			c.fail(name, err)
		}
		return false
	}
	return true
}

// caret returns the insertion point, collapsing a range selection by
// deleting its contents first. Without a selection the caret goes to the
// end of the document.
func caret(tx *store.Txn) (selection.Point, error) {
	sel := tx.Selection()
	if sel == nil {
		return pointAt(tx, docLen(tx)), nil
	}
	if !sel.IsCollapsed() {
		if err := deleteRange(tx, sel); err != nil {
			return selection.Point{}, err
		}
		if sel = tx.Selection(); sel == nil {
			return pointAt(tx, docLen(tx)), nil
		}
	}
	return sel.Focus, nil
}

func insertAt(tx *store.Txn, s string) error {
	p, err := caret(tx)
	if err != nil {
		return err
	}
	n, err := tx.Get(p.Key)
	if err != nil {
		return err
	}
	if n.IsText() && n.Mode() == node.ModeNormal {
		if err := tx.SpliceText(p.Key, p.Offset, 0, s); err != nil {
			return err
		}
		return collapse(tx, selection.TextPoint(p.Key, p.Offset+utf8.RuneCountInString(s)))
	}

	leaf, err := tx.CreateText(s)
	if err != nil {
		return err
	}
	switch {
	case n.IsText() && p.Offset == 0:
		err = tx.InsertBefore(p.Key, leaf.Key())
	case n.IsText():
		err = tx.InsertAfter(p.Key, leaf.Key())
	case n.Key() == node.RootKey:
		var para *node.Node
		if para, err = tx.CreateElement(ParagraphType); err != nil {
			return err
		}
		if err = tx.Append(para.Key(), leaf.Key()); err != nil {
			return err
		}
		err = tx.InsertAt(node.RootKey, p.Offset, para.Key())
	default:
		err = tx.InsertAt(p.Key, p.Offset, leaf.Key())
	}
	if err != nil {
		return err
	}
	return collapse(tx, selection.TextPoint(leaf.Key(), leaf.TextLen()))
}

func collapse(tx *store.Txn, p selection.Point) error {
	return tx.SetSelection(selection.Collapsed(p))
}

// splitBlock ends the caret's block at the caret and moves what follows into
// a new paragraph, placing the caret at its start.
func splitBlock(tx *store.Txn) error {
	p, err := caret(tx)
	if err != nil {
		return err
	}
	if p.Key == node.RootKey {
		para, err := tx.CreateElement(ParagraphType)
		if err != nil {
			return err
		}
		if err := tx.InsertAt(node.RootKey, p.Offset, para.Key()); err != nil {
			return err
		}
		p = selection.ElementPoint(para.Key(), 0)
	}
	block, ok := store.Block(tx, p.Key)
	if !ok {
		return &node.NotFoundError{Key: p.Key}
	}
	next, err := tx.CreateElement(ParagraphType)
	if err != nil {
		return err
	}
	if err := tx.InsertAfter(block, next.Key()); err != nil {
		return err
	}

	b, err := tx.Get(block)
	if err != nil {
		return err
	}
	if b.IsElement() {
		cut, err := cutIndex(tx, b, p)
		if err != nil {
			return err
		}
		// Re-read: a split above inserted a sibling.
		if b, err = tx.Get(block); err != nil {
			return err
		}
		for _, k := range b.Children()[cut:] {
			if err := tx.Append(next.Key(), k); err != nil {
				return err
			}
		}
	}
	start, _ := store.StartPoint(tx, next.Key())
	return collapse(tx, start)
}

// cutIndex returns the index of the first child of block that belongs after
// p, splitting the caret's text leaf when p falls inside it.
func cutIndex(tx *store.Txn, block *node.Node, p selection.Point) (int, error) {
	if p.Key == block.Key() {
		return p.Offset, nil
	}
	child := topChild(tx, block.Key(), p.Key)
	idx := block.ChildIndex(child)
	if child != p.Key || p.Type != selection.PointText {
		return idx + 1, nil
	}
	n, err := tx.Get(p.Key)
	if err != nil {
		return 0, err
	}
	switch {
	case p.Offset == 0:
		return idx, nil
	case p.Offset >= n.TextLen():
		return idx + 1, nil
	case n.Mode() == node.ModeNormal:
		if _, err := tx.SplitText(p.Key, p.Offset); err != nil {
			return 0, err
		}
	}
	return idx + 1, nil
}

// topChild returns the ancestor of key (or key itself) whose parent is block.
func topChild(v store.View, block, key node.Key) node.Key {
	for k := key; ; {
		n, ok := v.Node(k)
		if !ok || n.Parent() == "" || n.Parent() == block {
			return k
		}
		k = n.Parent()
	}
}

// deleteBackward removes the position before the caret. At the start of a
// block the block is merged into the previous one.
func deleteBackward(tx *store.Txn) error {
	sel := tx.Selection()
	if sel == nil {
		return nil
	}
	if !sel.IsCollapsed() {
		return deleteRange(tx, sel)
	}
	off, ok := offsetOf(tx, sel.Focus)
	if !ok || off == 0 {
		return nil
	}

	root := tx.Root()
	start, bi := 0, 0
	for i := 0; i < root.ChildCount(); i++ {
		blen := blockLen(tx, root.ChildAt(i))
		if off <= start+blen {
			bi = i
			break
		}
		start += blen + 1
	}

	if off == start {
		prev, err := tx.Get(root.ChildAt(bi - 1))
		if err != nil {
			return err
		}
		cur, err := tx.Get(root.ChildAt(bi))
		if err != nil {
			return err
		}
		if !prev.IsElement() || !cur.IsElement() {
			return nil
		}
		if err := mergeBlocks(tx, prev.Key(), cur.Key()); err != nil {
			return err
		}
		return collapse(tx, pointAt(tx, off-1))
	}

	local, acc := off-start, 0
	for _, k := range store.Leaves(tx, root.ChildAt(bi)) {
		n, err := tx.Get(k)
		if err != nil {
			return err
		}
		l := leafLen(n)
		if local > acc+l || l == 0 {
			acc += l
			continue
		}
		if n.IsText() && n.Mode() == node.ModeNormal {
			if err := tx.SpliceText(k, local-acc-1, 1, ""); err != nil {
				return err
			}
			return collapse(tx, pointAt(tx, off-1))
		}
		if err := tx.Remove(k); err != nil {
			return err
		}
		return collapse(tx, pointAt(tx, off-l))
	}
	return nil
}

// mergeBlocks moves the children of from to the end of into and removes
// from.
func mergeBlocks(tx *store.Txn, into, from node.Key) error {
	n, err := tx.Get(from)
	if err != nil {
		return err
	}
	for _, k := range n.Children() {
		if err := tx.Append(into, k); err != nil {
			return err
		}
	}
	return tx.Remove(from)
}

// deleteRange removes the contents between two text points and collapses
// the selection at the start. Other selections collapse to the focus.
func deleteRange(tx *store.Txn, sel *selection.Selection) error {
	start, end := ordered(tx, sel)
	if start.Type != selection.PointText || end.Type != selection.PointText {
		return collapse(tx, sel.Focus)
	}
	from, ok := offsetOf(tx, start)
	if !ok {
		return collapse(tx, sel.Focus)
	}

	if start.Key == end.Key {
		n, err := tx.Get(start.Key)
		if err != nil {
			return err
		}
		switch {
		case n.Mode() == node.ModeNormal:
			err = tx.SpliceText(start.Key, start.Offset, end.Offset-start.Offset, "")
		case start.Offset == 0 && end.Offset >= n.TextLen():
			err = tx.Remove(start.Key)
		}
		if err != nil {
			return err
		}
		return collapse(tx, pointAt(tx, from))
	}

	leaves := store.Leaves(tx, node.RootKey)
	i0, i1 := indexOf(leaves, start.Key), indexOf(leaves, end.Key)
	if i0 < 0 || i1 < 0 {
		return collapse(tx, sel.Focus)
	}
	startBlock, _ := store.Block(tx, start.Key)
	endBlock, _ := store.Block(tx, end.Key)

	if err := trimLeaf(tx, start.Key, start.Offset, -1); err != nil {
		return err
	}
	for _, k := range leaves[i0+1 : i1] {
		if err := tx.Remove(k); err != nil {
			return err
		}
	}
	if err := trimLeaf(tx, end.Key, 0, end.Offset); err != nil {
		return err
	}

	if startBlock != endBlock {
		root := tx.Root()
		b0, b1 := root.ChildIndex(startBlock), root.ChildIndex(endBlock)
		for _, k := range root.Children()[b0+1 : b1] {
			if err := tx.Remove(k); err != nil {
				return err
			}
		}
		sb, err := tx.Get(startBlock)
		if err != nil {
			return err
		}
		eb, err := tx.Get(endBlock)
		if err != nil {
			return err
		}
		if sb.IsElement() && eb.IsElement() {
			if err := mergeBlocks(tx, startBlock, endBlock); err != nil {
				return err
			}
		}
	}
	return collapse(tx, pointAt(tx, from))
}

// trimLeaf deletes runes [from, to) of a text leaf; to < 0 means the end.
// Leaves that cannot be spliced are removed when the range covers them.
func trimLeaf(tx *store.Txn, key node.Key, from, to int) error {
	n, err := tx.Get(key)
	if err != nil {
		return err
	}
	if to < 0 || to > n.TextLen() {
		to = n.TextLen()
	}
	if from >= to {
		return nil
	}
	if n.Mode() == node.ModeNormal {
		return tx.SpliceText(key, from, to-from, "")
	}
	if from == 0 && to == n.TextLen() {
		return tx.Remove(key)
	}
	return nil
}

func indexOf(keys []node.Key, key node.Key) int {
	for i, k := range keys {
		if k == key {
			return i
		}
	}
	return -1
}

// toggleFormat flips f on the selected text. With a collapsed caret the
// caret's leaf is toggled. Across several leaves f is removed when every
// leaf already has it and added otherwise.
func toggleFormat(tx *store.Txn, f node.Format) error {
	sel := tx.Selection()
	if sel == nil {
		return nil
	}
	if sel.IsCollapsed() {
		n, err := tx.Get(sel.Focus.Key)
		if err != nil {
			return err
		}
		if !n.IsText() || n.Mode() == node.ModeImmutable {
			return nil
		}
		return tx.ToggleFormat(n.Key(), f)
	}

	start, end := ordered(tx, sel)
	if start.Type != selection.PointText || end.Type != selection.PointText {
		return nil
	}
	targets, err := formatTargets(tx, start, end)
	if err != nil || len(targets) == 0 {
		return err
	}

	all := true
	for _, k := range targets {
		n, err := tx.Get(k)
		if err != nil {
			return err
		}
		all = all && n.Format().Has(f)
	}
	for _, k := range targets {
		n, err := tx.Get(k)
		if err != nil {
			return err
		}
		next := n.Format() | f
		if all {
			next = n.Format() &^ f
		}
		if err := tx.SetFormat(k, next); err != nil {
			return err
		}
	}

	first := selection.TextPoint(targets[0], 0)
	lastNode, err := tx.Get(targets[len(targets)-1])
	if err != nil {
		return err
	}
	last := selection.TextPoint(lastNode.Key(), lastNode.TextLen())
	if start == sel.Focus {
		return tx.SetSelection(selection.New(last, first))
	}
	return tx.SetSelection(selection.New(first, last))
}

// formatTargets splits the edge leaves of [start, end) and returns the text
// leaves fully inside the range.
func formatTargets(tx *store.Txn, start, end selection.Point) ([]node.Key, error) {
	leaves := store.Leaves(tx, node.RootKey)
	i0, i1 := indexOf(leaves, start.Key), indexOf(leaves, end.Key)
	if i0 < 0 || i1 < 0 {
		return nil, nil
	}
	keys := leaves[i0 : i1+1]

	if start.Key == end.Key {
		n, err := tx.Get(start.Key)
		if err != nil || n.Mode() == node.ModeImmutable {
			return nil, err
		}
		frags, err := splitNormal(tx, start.Key, start.Offset, end.Offset)
		if err != nil {
			return nil, err
		}
		if start.Offset > 0 && len(frags) > 1 {
			return frags[1:2], nil
		}
		return frags[:1], nil
	}

	var out []node.Key
	for i, k := range keys {
		n, err := tx.Get(k)
		if err != nil {
			return nil, err
		}
		if !n.IsText() || n.Mode() == node.ModeImmutable {
			continue
		}
		switch i {
		case 0:
			if start.Offset >= n.TextLen() {
				continue
			}
			frags, err := splitNormal(tx, k, start.Offset)
			if err != nil {
				return nil, err
			}
			out = append(out, frags[len(frags)-1])
		case len(keys) - 1:
			if end.Offset == 0 {
				continue
			}
			frags, err := splitNormal(tx, k, end.Offset)
			if err != nil {
				return nil, err
			}
			out = append(out, frags[0])
		default:
			out = append(out, k)
		}
	}
	return out, nil
}

// splitNormal splits a normal leaf at offsets; other leaves are returned
// whole.
func splitNormal(tx *store.Txn, key node.Key, offsets ...int) ([]node.Key, error) {
	n, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	if n.Mode() != node.ModeNormal {
		return []node.Key{key}, nil
	}
	return tx.SplitText(key, offsets...)
}
