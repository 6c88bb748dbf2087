// Package command implements a prioritized chain of named command handlers.
//
// Handlers for one command run from the highest priority down; within a
// priority they run in registration order. A handler returning true marks the
// command handled and stops propagation.
package command

import (
	"slices"
	"sync"
)

// Priority orders handlers for one command. Higher runs first.
type Priority int

// Standard priorities.
const (
	PriorityEditor Priority = iota
	PriorityLow
	PriorityNormal
	PriorityHigh
	PriorityCritical
)

// String returns the priority name.
func (p Priority) String() string {
	switch p {
	case PriorityEditor:
		return "editor"
	case PriorityLow:
		return "low"
	case PriorityNormal:
		return "normal"
	case PriorityHigh:
		return "high"
	case PriorityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// ParsePriority parses a name produced by Priority.String.
func ParsePriority(s string) (Priority, bool) {
	for p := PriorityEditor; p <= PriorityCritical; p++ {
		if p.String() == s {
			return p, true
		}
	}
	return 0, false
}

// Handler handles one dispatch. Returning true stops propagation.
type Handler func(payload any) bool

type entry struct {
	id       uint64
	priority Priority
	handler  Handler
}

// Registry holds handler chains by command name.
type Registry struct {
	mu     sync.RWMutex
	chains map[string][]entry
	nextID uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{chains: make(map[string][]entry)}
}

// Register adds h to the chain for name and returns a function that
// removes it. Calling the function more than once is harmless.
func (r *Registry) Register(name string, priority Priority, h Handler) func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	id := r.nextID
	chain := append(r.chains[name], entry{id: id, priority: priority, handler: h})
	slices.SortStableFunc(chain, func(a, b entry) int {
		return int(b.priority) - int(a.priority)
	})
	r.chains[name] = chain

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.chains[name] = slices.DeleteFunc(r.chains[name], func(e entry) bool {
			return e.id == id
		})
		if len(r.chains[name]) == 0 {
			delete(r.chains, name)
		}
	}
}

// Dispatch runs the chain for name and reports whether a handler claimed
// the command. Handlers run without the registry lock held, so they may
// register or dispatch other commands.
func (r *Registry) Dispatch(name string, payload any) bool {
	r.mu.RLock()
	chain := slices.Clone(r.chains[name])
	r.mu.RUnlock()

	for _, e := range chain {
		if e.handler != nil && e.handler(payload) {
			return true
		}
	}
	return false
}

// Has reports whether any handler is registered for name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.chains[name]) > 0
}

// Names returns the command names with at least one handler, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.chains))
	for n := range r.chains {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}
