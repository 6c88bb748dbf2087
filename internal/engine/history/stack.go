package history

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Common errors for history operations.
var (
	ErrNothingToUndo = errors.New("nothing to undo")
	ErrNothingToRedo = errors.New("nothing to redo")
)

// DefaultMaxEntries bounds the undo stack when no limit is given.
const DefaultMaxEntries = 1000

// History records snapshots of an editor's document for undo and redo.
//
// Each flushed update pushes the snapshot it replaced. Updates tagged
// engine.TagHistoryMerge fold into the newest entry, updates that change
// only the selection are never recorded, and updates tagged
// engine.TagHistoric (produced by Undo and Redo) are ignored.
type History struct {
	mu sync.Mutex

	editor *engine.Editor
	off    func()

	undoStack []*entry
	redoStack []*entry

	// Grouping state
	grouping  bool
	groupOpen bool

	// Configuration
	maxEntries int
}

// New creates a history for e and starts recording.
func New(e *engine.Editor, maxEntries int) *History {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	h := &History{
		editor:     e,
		maxEntries: maxEntries,
	}
	h.off = e.OnUpdate(h.record)
	return h
}

// Close stops recording. Existing entries remain usable.
func (h *History) Close() {
	if h.off != nil {
		h.off()
		h.off = nil
	}
}

func (h *History) record(ev engine.UpdateEvent) {
	if ev.HasTag(engine.TagHistoric) {
		return
	}
	if ev.Dirty.IsEmpty() {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.redoStack = nil
	if h.shouldMerge(ev) {
		return
	}
	h.pushLocked(&entry{
		state:     ev.Previous,
		tags:      slices.Clone(ev.Tags),
		timestamp: time.Now(),
	})
	if h.grouping {
		h.groupOpen = true
	}
}

func (h *History) shouldMerge(ev engine.UpdateEvent) bool {
	if len(h.undoStack) == 0 || ev.HasTag(engine.TagHistoryPush) {
		return false
	}
	if h.grouping {
		return h.groupOpen
	}
	return ev.HasTag(engine.TagHistoryMerge)
}

// pushLocked adds an entry without acquiring the lock.
func (h *History) pushLocked(e *entry) {
	h.undoStack = append(h.undoStack, e)

	// Enforce max entries
	if len(h.undoStack) > h.maxEntries {
		excess := len(h.undoStack) - h.maxEntries
		h.undoStack = h.undoStack[excess:]
	}
}

// Undo restores the snapshot before the last recorded change. Pending
// commits are flushed first so they are part of the history.
func (h *History) Undo() error {
	if err := h.editor.Flush(); err != nil {
		return err
	}

	h.mu.Lock()
	if len(h.undoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToUndo
	}
	e := h.undoStack[len(h.undoStack)-1]
	h.undoStack = h.undoStack[:len(h.undoStack)-1]
	h.mu.Unlock()

	cur := &entry{state: h.editor.State(), timestamp: time.Now()}
	if err := h.editor.SetState(e.state, engine.WithTag(engine.TagHistoric)); err != nil {
		// Restore entry on failure
		h.mu.Lock()
		h.undoStack = append(h.undoStack, e)
		h.mu.Unlock()
		return err
	}

	h.mu.Lock()
	h.redoStack = append(h.redoStack, cur)
	h.mu.Unlock()
	return nil
}

// Redo reapplies the last undone change.
func (h *History) Redo() error {
	if err := h.editor.Flush(); err != nil {
		return err
	}

	h.mu.Lock()
	if len(h.redoStack) == 0 {
		h.mu.Unlock()
		return ErrNothingToRedo
	}
	e := h.redoStack[len(h.redoStack)-1]
	h.redoStack = h.redoStack[:len(h.redoStack)-1]
	h.mu.Unlock()

	cur := &entry{state: h.editor.State(), tags: e.tags, timestamp: time.Now()}
	if err := h.editor.SetState(e.state, engine.WithTag(engine.TagHistoric)); err != nil {
		h.mu.Lock()
		h.redoStack = append(h.redoStack, e)
		h.mu.Unlock()
		return err
	}

	h.mu.Lock()
	h.undoStack = append(h.undoStack, cur)
	h.mu.Unlock()
	return nil
}

// CanUndo returns true if undo is available.
func (h *History) CanUndo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack) > 0
}

// CanRedo returns true if redo is available.
func (h *History) CanRedo() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack) > 0
}

// UndoCount returns the number of undo operations available.
func (h *History) UndoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.undoStack)
}

// RedoCount returns the number of redo operations available.
func (h *History) RedoCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.redoStack)
}

// Clear removes all undo/redo history.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.undoStack = nil
	h.redoStack = nil
	h.grouping = false
	h.groupOpen = false
}

// UndoInfo returns info about available undo entries, oldest first.
func (h *History) UndoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.undoStack)
}

// RedoInfo returns info about available redo entries, oldest first.
func (h *History) RedoInfo() []EntryInfo {
	h.mu.Lock()
	defer h.mu.Unlock()
	return infos(h.redoStack)
}

func infos(stack []*entry) []EntryInfo {
	result := make([]EntryInfo, len(stack))
	for i, e := range stack {
		result[i] = e.info()
	}
	return result
}

// PeekUndo returns info about the next undo entry without removing it.
func (h *History) PeekUndo() (EntryInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.undoStack) == 0 {
		return EntryInfo{}, false
	}
	return h.undoStack[len(h.undoStack)-1].info(), true
}

// PeekRedo returns info about the next redo entry without removing it.
func (h *History) PeekRedo() (EntryInfo, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.redoStack) == 0 {
		return EntryInfo{}, false
	}
	return h.redoStack[len(h.redoStack)-1].info(), true
}

// SetMaxEntries changes the maximum number of undo entries.
// If the current stack is larger, oldest entries are removed.
func (h *History) SetMaxEntries(limit int) {
	if limit <= 0 {
		limit = DefaultMaxEntries
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.maxEntries = limit
	if len(h.undoStack) > limit {
		excess := len(h.undoStack) - limit
		h.undoStack = h.undoStack[excess:]
	}
}

// MaxEntries returns the maximum number of undo entries.
func (h *History) MaxEntries() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxEntries
}

// snapshot returns the state the next Undo restores.
func (h *History) snapshot() *store.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.undoStack) == 0 {
		return nil
	}
	return h.undoStack[len(h.undoStack)-1].state
}
