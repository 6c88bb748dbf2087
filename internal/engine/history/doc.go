// Package history provides snapshot-based undo and redo for an editor.
//
// Snapshots are immutable and share untouched nodes, so an entry is just the
// *store.State an update replaced. Restoring one goes through
// Editor.SetState, which diffs it against the current document and
// reconciles the host like any other change.
//
// # History Stack
//
//	h := history.New(editor, 1000) // Max 1000 undo entries
//
//	// Edits are recorded as they flush
//	editor.Update(insertText)
//
//	// Undo/redo
//	h.Undo()
//	h.Redo()
//
// # Coalescing
//
// Updates tagged engine.TagHistoryMerge fold into the newest entry, which is
// how consecutive keystrokes undo as one word. engine.TagHistoryPush always
// starts a new entry. Selection-only updates are not recorded.
//
// # Groups
//
// Changes made between BeginGroup and EndGroup undo together:
//
//	h.Transaction(func() error {
//		// ... multiple updates ...
//		return nil
//	})
package history
