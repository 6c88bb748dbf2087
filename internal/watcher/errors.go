package watcher

import (
	"errors"
	"fmt"
)

// ErrClosed is returned when operating on a closed watcher.
var ErrClosed = errors.New("watcher closed")

// LoadError reports a document that could not be read or parsed.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
