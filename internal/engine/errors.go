package engine

import (
	"errors"

	"github.com/dshills/inkwell/internal/engine/store"
)

// Errors returned by the editor.
var (
	// ErrReentrantUpdate indicates an update that cannot be batched: a
	// discrete update or SetState from inside a running mutator, or any write
	// from inside a Read callback or a listener.
	ErrReentrantUpdate = errors.New("re-entrant update")

	// ErrNotInUpdate indicates a write on a frozen node.
	ErrNotInUpdate = store.ErrNotInUpdate
)

// IsFault reports whether err is a usage or invariant fault, as opposed to
// an error returned by a mutator.
func IsFault(err error) bool {
	return errors.Is(err, ErrReentrantUpdate) || store.IsFault(err)
}
