// Package engine provides the Editor, the controller that owns a rich-text
// document and drives every change to it.
//
// # Architecture
//
// The editor is built on several sub-packages:
//
//   - node: node kinds, the type registry and key generation
//   - store: immutable snapshots and copy-on-write transactions
//   - selection: selection points and their remapping rules
//   - dirty: per-transaction dirty sets
//   - serialize: JSON encoding of snapshots
//   - history: snapshot-based undo and redo
//
// Rendering lives in the reconciler package, which the editor calls after
// each flush to patch the attached host.
//
// # Updates
//
// All writes go through Update. The mutator receives a *store.Txn over the
// latest snapshot; returning an error abandons the transaction and leaves
// the document untouched:
//
//	e := engine.New(engine.WithHost(renderer.NewMemory()))
//	err := e.Update(func(tx *store.Txn) error {
//		p, err := tx.CreateElement("paragraph")
//		if err != nil {
//			return err
//		}
//		t, err := tx.CreateText("Hello")
//		if err != nil {
//			return err
//		}
//		if err := tx.Append(p.Key(), t.Key()); err != nil {
//			return err
//		}
//		return tx.Append(node.RootKey, p.Key())
//	}, engine.WithTag(engine.TagHistoryPush))
//
// # Batching
//
// Updates issued while a mutator runs join its transaction. Updates issued
// by listeners during Flush are committed together in one follow-up pass.
// With WithDeferredFlush, commits accumulate until the host's event loop
// calls Flush, so a burst of updates reconciles once. Discrete forces an
// immediate flush.
//
// # Threading
//
// An Editor belongs to one goroutine. Snapshots are immutable and may be
// read anywhere.
package engine
