package reconciler

import (
	"fmt"

	"github.com/dshills/inkwell/internal/engine/node"
)

// Host is a display surface that can hold one element per node key.
type Host interface {
	// Create makes a detached element for key.
	Create(key node.Key, props node.Props) error

	// Update replaces the rendered props of an existing element.
	Update(key node.Key, props node.Props) error

	// Insert places key under parent before the sibling before, or last when
	// before is empty. An element that is already placed is moved. The root
	// is placed with an empty parent.
	Insert(parent, key, before node.Key) error

	// Remove drops the element for key along with whatever is still below it.
	Remove(key node.Key) error

	// Container returns the host handle a decorator renders into.
	Container(key node.Key) (any, bool)

	// Selection returns the host's current selection, or nil.
	Selection() *HostSelection

	// SetSelection replaces the host selection. nil clears it.
	SetSelection(sel *HostSelection) error
}

// Decorator renders decorator nodes into host containers.
type Decorator interface {
	// Decorate is called after a decorator element is created and whenever
	// the node is updated.
	Decorate(key node.Key, n *node.Node, container any)

	// Release is called when the decorator element is removed.
	Release(key node.Key)
}

// HostPoint addresses a host position: a rune offset inside a text element
// or a child index inside an element.
type HostPoint struct {
	Key    node.Key
	Offset int
}

// String returns a compact representation.
func (p HostPoint) String() string {
	return fmt.Sprintf("%s:%d", p.Key, p.Offset)
}

// HostSelection is an anchor/focus pair in host coordinates.
type HostSelection struct {
	Anchor HostPoint
	Focus  HostPoint
}

// Equal reports whether two host selections are equal. Two nils are equal.
func (s *HostSelection) Equal(o *HostSelection) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}
