package store

import (
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
)

// State is an immutable document snapshot.
type State struct {
	nodes map[node.Key]*node.Node
	sel   *selection.Selection
}

// NewState creates a snapshot holding only an empty root.
func NewState() *State {
	root := node.New(node.RootKey, node.RootType, node.KindElement)
	root.Freeze()
	return &State{nodes: map[node.Key]*node.Node{node.RootKey: root}}
}

// Node returns the node for key.
func (s *State) Node(key node.Key) (*node.Node, bool) {
	n, ok := s.nodes[key]
	return n, ok
}

// Get returns the node for key or a *node.NotFoundError.
func (s *State) Get(key node.Key) (*node.Node, error) {
	if n, ok := s.nodes[key]; ok {
		return n, nil
	}
	return nil, &node.NotFoundError{Key: key}
}

// Has reports whether key is in the snapshot.
func (s *State) Has(key node.Key) bool {
	_, ok := s.nodes[key]
	return ok
}

// Root returns the root node.
func (s *State) Root() *node.Node {
	return s.nodes[node.RootKey]
}

// Selection returns a copy of the selection, or nil.
func (s *State) Selection() *selection.Selection {
	return s.sel.Clone()
}

// Len returns the number of nodes, root included.
func (s *State) Len() int {
	return len(s.nodes)
}

// WithSelection returns a snapshot sharing s's nodes with a different
// selection. The selection is clamped; points that cannot be resolved make
// the result selection nil.
func (s *State) WithSelection(sel *selection.Selection) *State {
	return &State{nodes: s.nodes, sel: resolveSelection(s, sel)}
}

// Keys returns all keys in document order (pre-order from the root).
func (s *State) Keys() []node.Key {
	keys := make([]node.Key, 0, len(s.nodes))
	Walk(s, node.RootKey, func(n *node.Node, _ int) bool {
		keys = append(keys, n.Key())
		return true
	})
	return keys
}

// TextContent returns the document text; top-level blocks are separated by
// newlines.
func (s *State) TextContent() string {
	return TextContent(s, node.RootKey)
}
