// Package dirty tracks which nodes a transaction touched.
//
// A Set records three things per transaction:
//
//   - Nodes: keys cloned for write or created.
//   - Subtrees: element keys on the path to a dirty node. The value is true
//     when the element's own child list changed, false when it is only an
//     ancestor of something dirty.
//   - Destroyed: keys removed from the snapshot by reachability GC.
//
// The reconciler walks Subtrees from the root and never visits clean
// subtrees. Sets from batched commits are merged before reconciliation.
package dirty

import (
	"maps"
	"slices"

	"github.com/dshills/inkwell/internal/engine/node"
)

// Mutation classifies what happened to a node between two flushed snapshots.
type Mutation uint8

const (
	// Created indicates the node is new in the next snapshot.
	Created Mutation = iota

	// Updated indicates the node was cloned for write and still exists.
	Updated

	// Destroyed indicates the node is gone from the next snapshot.
	Destroyed
)

// String returns the string representation of the mutation.
func (m Mutation) String() string {
	switch m {
	case Created:
		return "created"
	case Updated:
		return "updated"
	case Destroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Set holds the dirty keys of one or more transactions.
type Set struct {
	Nodes     map[node.Key]struct{}
	Subtrees  map[node.Key]bool
	Destroyed map[node.Key]struct{}
}

// New creates an empty set.
func New() *Set {
	return &Set{
		Nodes:     make(map[node.Key]struct{}),
		Subtrees:  make(map[node.Key]bool),
		Destroyed: make(map[node.Key]struct{}),
	}
}

// MarkNode records key as cloned or created.
func (s *Set) MarkNode(key node.Key) {
	s.Nodes[key] = struct{}{}
}

// MarkSubtree records key as a dirty element. Marks are sticky: once the
// child list is marked changed it stays changed.
func (s *Set) MarkSubtree(key node.Key, childrenChanged bool) {
	s.Subtrees[key] = s.Subtrees[key] || childrenChanged
}

// MarkDestroyed records key as removed by GC.
func (s *Set) MarkDestroyed(key node.Key) {
	s.Destroyed[key] = struct{}{}
}

// HasNode reports whether key is a dirty node.
func (s *Set) HasNode(key node.Key) bool {
	_, ok := s.Nodes[key]
	return ok
}

// Subtree reports whether key is a dirty element and whether its child list changed.
func (s *Set) Subtree(key node.Key) (dirty, childrenChanged bool) {
	childrenChanged, dirty = s.Subtrees[key]
	return dirty, childrenChanged
}

// IsEmpty reports whether nothing is marked.
func (s *Set) IsEmpty() bool {
	return s == nil || (len(s.Nodes) == 0 && len(s.Subtrees) == 0 && len(s.Destroyed) == 0)
}

// Merge folds other into s.
func (s *Set) Merge(other *Set) {
	if other == nil {
		return
	}
	for k := range other.Nodes {
		s.MarkNode(k)
	}
	for k, changed := range other.Subtrees {
		s.MarkSubtree(k, changed)
	}
	for k := range other.Destroyed {
		s.MarkDestroyed(k)
	}
}

// Clone returns a deep copy.
func (s *Set) Clone() *Set {
	if s == nil {
		return New()
	}
	return &Set{
		Nodes:     maps.Clone(s.Nodes),
		Subtrees:  maps.Clone(s.Subtrees),
		Destroyed: maps.Clone(s.Destroyed),
	}
}

// Prune drops node and subtree marks whose keys fail keep, returning them.
// Destroyed marks are left alone.
func (s *Set) Prune(keep func(node.Key) bool) []node.Key {
	var dropped []node.Key
	for k := range s.Nodes {
		if !keep(k) {
			delete(s.Nodes, k)
			dropped = append(dropped, k)
		}
	}
	for k := range s.Subtrees {
		if !keep(k) {
			delete(s.Subtrees, k)
			if !slices.Contains(dropped, k) {
				dropped = append(dropped, k)
			}
		}
	}
	slices.Sort(dropped)
	return dropped
}

// SortedNodes returns the dirty node keys in sorted order.
func (s *Set) SortedNodes() []node.Key {
	return slices.Sorted(maps.Keys(s.Nodes))
}

// Len returns the number of dirty nodes and subtrees.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Nodes) + len(s.Subtrees)
}
