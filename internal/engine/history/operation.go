package history

import (
	"slices"
	"time"

	"github.com/dshills/inkwell/internal/engine/store"
)

// entry is one restorable snapshot on a stack.
type entry struct {
	state     *store.State
	tags      []string
	timestamp time.Time
}

// EntryInfo describes a history entry without exposing its snapshot.
type EntryInfo struct {
	// Tags carried by the update that produced the entry.
	Tags []string

	// Nodes is the snapshot's node count, root included.
	Nodes int

	// Timestamp is when the entry was recorded.
	Timestamp time.Time
}

func (e *entry) info() EntryInfo {
	return EntryInfo{
		Tags:      slices.Clone(e.tags),
		Nodes:     e.state.Len(),
		Timestamp: e.timestamp,
	}
}
