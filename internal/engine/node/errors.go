package node

import (
	"errors"
	"fmt"
)

// Errors returned by node operations.
var (
	// ErrNotInUpdate indicates a write on a node outside an active transaction.
	ErrNotInUpdate = errors.New("write outside of an active update")

	// ErrImmutable indicates a text edit on an immutable or segmented leaf.
	ErrImmutable = errors.New("node is immutable")

	// ErrNodeNotFound indicates a key absent from the snapshot.
	ErrNodeNotFound = errors.New("node not found")

	// ErrKindMismatch indicates an operation that does not apply to the node's kind.
	ErrKindMismatch = errors.New("operation not supported by node kind")

	// ErrUnknownType indicates a type tag with no registered Spec.
	ErrUnknownType = errors.New("unknown node type")

	// ErrDuplicateType indicates a Spec registered twice for one type tag.
	ErrDuplicateType = errors.New("node type already registered")
)

// ImmutableError reports a rejected edit on an immutable or segmented leaf.
type ImmutableError struct {
	Key  Key
	Mode Mode
	Op   string
}

// Error implements the error interface.
func (e *ImmutableError) Error() string {
	return fmt.Sprintf("%s on %s node %s", e.Op, e.Mode, e.Key)
}

// Is allows errors.Is to match ImmutableError with ErrImmutable.
func (e *ImmutableError) Is(target error) bool {
	return target == ErrImmutable
}

// NotFoundError reports a lookup of a key absent from the snapshot.
type NotFoundError struct {
	Key Key
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return "node not found: " + string(e.Key)
}

// Is allows errors.Is to match NotFoundError with ErrNodeNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNodeNotFound
}
