package store

import (
	"errors"

	"github.com/dshills/inkwell/internal/engine/node"
)

// Re-export node errors so callers of the store need one import.
var (
	ErrNotInUpdate  = node.ErrNotInUpdate
	ErrImmutable    = node.ErrImmutable
	ErrNodeNotFound = node.ErrNodeNotFound
	ErrKindMismatch = node.ErrKindMismatch
	ErrUnknownType  = node.ErrUnknownType
)

// Errors returned by structural operations.
var (
	// ErrRootRemoval indicates an attempt to remove, move or replace the root.
	ErrRootRemoval = errors.New("root cannot be removed or moved")

	// ErrCycle indicates an insert that would make a node its own ancestor.
	ErrCycle = errors.New("insert would create a cycle")

	// ErrDetached indicates an operation that needs an attached node.
	ErrDetached = errors.New("node is not attached")

	// ErrInvariant indicates an inconsistent tree found at commit.
	ErrInvariant = errors.New("tree invariant violated")
)

// InvariantError describes a tree inconsistency detected at commit.
type InvariantError struct {
	Key    node.Key
	Reason string
}

// Error implements the error interface.
func (e *InvariantError) Error() string {
	return "invariant violated at " + string(e.Key) + ": " + e.Reason
}

// Is allows errors.Is to match InvariantError with ErrInvariant.
func (e *InvariantError) Is(target error) bool {
	return target == ErrInvariant
}
