package history

import (
	"errors"
	"testing"

	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
	"github.com/dshills/inkwell/internal/renderer"
)

// Helper to create an editor holding one paragraph with text.
func newTestEditor(t *testing.T, text string, opts ...engine.Option) (*engine.Editor, node.Key) {
	t.Helper()
	e := engine.New(opts...)
	var leaf node.Key
	err := e.Update(func(tx *store.Txn) error {
		p, err := tx.CreateElement("paragraph")
		if err != nil {
			return err
		}
		l, err := tx.CreateText(text)
		if err != nil {
			return err
		}
		leaf = l.Key()
		if err := tx.Append(p.Key(), leaf); err != nil {
			return err
		}
		return tx.Append(node.RootKey, p.Key())
	})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	return e, leaf
}

func setText(t *testing.T, e *engine.Editor, key node.Key, text string, opts ...engine.UpdateOption) {
	t.Helper()
	err := e.Update(func(tx *store.Txn) error {
		return tx.SetText(key, text)
	}, opts...)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
}

// Stack Tests

func TestUndoRedo(t *testing.T) {
	mem := renderer.NewMemory()
	e, leaf := newTestEditor(t, "one", engine.WithHost(mem))
	h := New(e, 0)

	setText(t, e, leaf, "two")
	setText(t, e, leaf, "three")

	if h.UndoCount() != 2 {
		t.Fatalf("expected 2 undo entries, got %d", h.UndoCount())
	}

	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := mem.Text(); got != "two" {
		t.Errorf("expected %q, got %q", "two", got)
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := e.State().TextContent(); got != "one" {
		t.Errorf("expected %q, got %q", "one", got)
	}
	if !h.CanRedo() || h.RedoCount() != 2 {
		t.Errorf("expected 2 redo entries, got %d", h.RedoCount())
	}

	if err := h.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if err := h.Redo(); err != nil {
		t.Fatalf("redo: %v", err)
	}
	if got := mem.Text(); got != "three" {
		t.Errorf("expected %q, got %q", "three", got)
	}
	if h.CanRedo() {
		t.Error("expected redo stack empty")
	}
}

func TestUndoEmpty(t *testing.T) {
	e := engine.New()
	h := New(e, 0)

	if err := h.Undo(); !errors.Is(err, ErrNothingToUndo) {
		t.Errorf("expected ErrNothingToUndo, got %v", err)
	}
	if err := h.Redo(); !errors.Is(err, ErrNothingToRedo) {
		t.Errorf("expected ErrNothingToRedo, got %v", err)
	}
}

func TestUndoRestoresSnapshotIdentity(t *testing.T) {
	e, leaf := newTestEditor(t, "one")
	h := New(e, 0)
	before := e.State()

	setText(t, e, leaf, "two")
	if h.snapshot() != before {
		t.Fatal("expected the replaced snapshot on the stack")
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if e.State() != before {
		t.Error("expected undo to reinstall the recorded snapshot")
	}
}

func TestNewEditClearsRedo(t *testing.T) {
	e, leaf := newTestEditor(t, "one")
	h := New(e, 0)

	setText(t, e, leaf, "two")
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	setText(t, e, leaf, "other")

	if h.CanRedo() {
		t.Error("expected redo stack cleared by new edit")
	}
}

func TestHistoryMerge(t *testing.T) {
	e, leaf := newTestEditor(t, "")
	h := New(e, 0)

	setText(t, e, leaf, "h")
	setText(t, e, leaf, "he", engine.WithTag(engine.TagHistoryMerge))
	setText(t, e, leaf, "hey", engine.WithTag(engine.TagHistoryMerge))
	setText(t, e, leaf, "hey!", engine.WithTag(engine.TagHistoryMerge, engine.TagHistoryPush))

	if h.UndoCount() != 2 {
		t.Fatalf("expected 2 undo entries, got %d", h.UndoCount())
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := e.State().TextContent(); got != "hey" {
		t.Errorf("expected %q, got %q", "hey", got)
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := e.State().TextContent(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestSelectionOnlyNotRecorded(t *testing.T) {
	e, leaf := newTestEditor(t, "abc")
	h := New(e, 0)

	err := e.Update(func(tx *store.Txn) error {
		return tx.SetSelection(selection.Collapsed(selection.TextPoint(leaf, 2)))
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if h.CanUndo() {
		t.Errorf("expected no entries, got %d", h.UndoCount())
	}
}

func TestMaxEntries(t *testing.T) {
	e, leaf := newTestEditor(t, "")
	h := New(e, 3)

	for _, s := range []string{"a", "b", "c", "d", "e"} {
		setText(t, e, leaf, s)
	}
	if h.UndoCount() != 3 {
		t.Errorf("expected 3 entries, got %d", h.UndoCount())
	}

	h.SetMaxEntries(1)
	if h.UndoCount() != 1 || h.MaxEntries() != 1 {
		t.Errorf("expected 1 entry, got %d (max %d)", h.UndoCount(), h.MaxEntries())
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := e.State().TextContent(); got != "d" {
		t.Errorf("expected %q, got %q", "d", got)
	}
}

func TestUndoFlushesPending(t *testing.T) {
	e, leaf := newTestEditor(t, "one", engine.WithDeferredFlush())
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	h := New(e, 0)

	setText(t, e, leaf, "two")
	if h.CanUndo() {
		t.Fatal("expected nothing recorded before flush")
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if err := e.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if got := e.State().TextContent(); got != "one" {
		t.Errorf("expected %q, got %q", "one", got)
	}
}

func TestClose(t *testing.T) {
	e, leaf := newTestEditor(t, "one")
	h := New(e, 0)
	h.Close()
	h.Close()

	setText(t, e, leaf, "two")
	if h.CanUndo() {
		t.Error("expected closed history to stop recording")
	}
}

func TestPeekAndInfo(t *testing.T) {
	e, leaf := newTestEditor(t, "one")
	h := New(e, 0)

	if _, ok := h.PeekUndo(); ok {
		t.Error("expected empty peek")
	}
	setText(t, e, leaf, "two", engine.WithTag(engine.TagHistoryPush))

	info, ok := h.PeekUndo()
	if !ok {
		t.Fatal("expected an undo entry")
	}
	if len(info.Tags) != 1 || info.Tags[0] != engine.TagHistoryPush {
		t.Errorf("expected push tag, got %v", info.Tags)
	}
	if info.Nodes != 3 || info.Timestamp.IsZero() {
		t.Errorf("unexpected info %+v", info)
	}
	if len(h.UndoInfo()) != 1 || len(h.RedoInfo()) != 0 {
		t.Errorf("expected 1/0 entries, got %d/%d", len(h.UndoInfo()), len(h.RedoInfo()))
	}

	h.Clear()
	if h.CanUndo() || h.CanRedo() {
		t.Error("expected cleared history")
	}
}

// Group Tests

func TestGroup(t *testing.T) {
	e, leaf := newTestEditor(t, "")
	h := New(e, 0)

	err := h.Transaction(func() error {
		setText(t, e, leaf, "a")
		setText(t, e, leaf, "ab")
		setText(t, e, leaf, "abc")
		return nil
	})
	if err != nil {
		t.Fatalf("transaction: %v", err)
	}
	if h.IsGrouping() {
		t.Error("expected group closed")
	}
	if h.UndoCount() != 1 {
		t.Fatalf("expected 1 entry, got %d", h.UndoCount())
	}
	if err := h.Undo(); err != nil {
		t.Fatalf("undo: %v", err)
	}
	if got := e.State().TextContent(); got != "" {
		t.Errorf("expected empty text, got %q", got)
	}
}

func TestGroupScope(t *testing.T) {
	e, leaf := newTestEditor(t, "")
	h := New(e, 0)

	func() {
		g := h.GroupScope()
		defer g.End()
		setText(t, e, leaf, "x")
		setText(t, e, leaf, "xy")
		g.End()
	}()
	setText(t, e, leaf, "xyz")

	if h.UndoCount() != 2 {
		t.Errorf("expected 2 entries, got %d", h.UndoCount())
	}
}

func TestTransactionError(t *testing.T) {
	e := engine.New()
	h := New(e, 0)
	boom := errors.New("boom")

	if err := h.Transaction(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("expected %v, got %v", boom, err)
	}
	if h.IsGrouping() {
		t.Error("expected group closed after error")
	}
}

func TestCheckpoint(t *testing.T) {
	e, leaf := newTestEditor(t, "")
	h := New(e, 0)

	setText(t, e, leaf, "a")
	cp := h.CreateCheckpoint()
	setText(t, e, leaf, "b")
	setText(t, e, leaf, "c")

	if err := h.UndoToCheckpoint(cp); err != nil {
		t.Fatalf("undo to checkpoint: %v", err)
	}
	if got := e.State().TextContent(); got != "a" {
		t.Errorf("expected %q, got %q", "a", got)
	}
	if err := h.RedoToCheckpoint(Checkpoint{undoDepth: 3}); err != nil {
		t.Fatalf("redo to checkpoint: %v", err)
	}
	if got := e.State().TextContent(); got != "c" {
		t.Errorf("expected %q, got %q", "c", got)
	}
}
