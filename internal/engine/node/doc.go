// Package node defines the document node representation used by the engine.
//
// A Node is a tagged union: every node carries a Type tag naming its kind
// (paragraph, text, image, ...) and a structural Kind (element, text or
// decorator) that decides which payload fields are meaningful:
//
//   - KindElement nodes own an ordered list of child keys.
//   - KindText nodes own text content, a Format bitmask and a Mode.
//   - KindDecorator nodes own an opaque attribute payload rendered by an
//     external decorator; the engine treats them as atomic leaves.
//
// Per-type behavior lives in a Registry that maps a type tag to a Spec
// function table (clone fixup, export, import, render). Adding a node kind
// means registering a Spec, not defining a new Go type.
//
// Nodes are writable only while they belong to an open transaction. Once a
// transaction commits, its nodes are frozen and every setter returns
// ErrNotInUpdate. Frozen nodes are shared between snapshots by pointer.
package node
