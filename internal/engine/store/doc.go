// Package store implements the copy-on-write node store.
//
// A State is an immutable snapshot: a key-indexed node map plus an optional
// selection. A Txn is a write session over one State. The first write to a
// node inside a Txn clones it into the transaction map (keyed by the
// original key); later writes reuse the clone. Every clone marks its key
// dirty and walks parent pointers to mark each ancestor as a dirty subtree.
//
// Commit builds the next State: untouched nodes are shared by pointer,
// clones replace their originals, nodes unreachable from the root are
// dropped, invariants are checked and the selection is validated. A failed
// commit leaves the base State untouched.
//
// Usage faults (missing keys, immutable leaves, cycles, writes after close)
// are returned from the operation that hit them and are also recorded on the
// Txn, so a mutator that ignores an error still cannot commit.
package store
