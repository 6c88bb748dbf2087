package reconciler

import (
	"errors"

	"github.com/dshills/inkwell/internal/engine/node"
)

// ErrMissingNode indicates a dirty key absent from the next snapshot.
var ErrMissingNode = errors.New("dirty node missing from snapshot")

// MissingNodeError reports a dirty key that the next snapshot does not hold.
// The host element, if any, has been removed.
type MissingNodeError struct {
	Key node.Key
}

// Error implements the error interface.
func (e *MissingNodeError) Error() string {
	return "reconcile: dirty node " + string(e.Key) + " missing from snapshot"
}

// Is allows errors.Is to match MissingNodeError with ErrMissingNode.
func (e *MissingNodeError) Is(target error) bool {
	return target == ErrMissingNode
}

// HostError wraps a failure returned by the host.
type HostError struct {
	Op  string
	Key node.Key
	Err error
}

// Error implements the error interface.
func (e *HostError) Error() string {
	return "host " + e.Op + " " + string(e.Key) + ": " + e.Err.Error()
}

// Unwrap returns the underlying host error.
func (e *HostError) Unwrap() error {
	return e.Err
}
