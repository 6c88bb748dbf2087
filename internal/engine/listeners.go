package engine

import (
	"slices"

	"github.com/dshills/inkwell/internal/engine/dirty"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/store"
	"github.com/dshills/inkwell/internal/reconciler"
)

// UpdateEvent describes one flushed batch of commits.
type UpdateEvent struct {
	Previous *store.State
	Next     *store.State
	Dirty    *dirty.Set
	Tags     []string
}

// HasTag reports whether the batch carried tag.
func (ev UpdateEvent) HasTag(tag string) bool {
	return slices.Contains(ev.Tags, tag)
}

// MutationEvent lists the nodes of one type that were created, updated or
// destroyed by a flushed batch.
type MutationEvent struct {
	Type      string
	Mutations map[node.Key]dirty.Mutation
	Previous  *store.State
	Next      *store.State
	Tags      []string
}

type listener[F any] struct {
	id uint64
	fn F
}

type listeners struct {
	nextID   uint64
	update   []listener[func(UpdateEvent)]
	mutation map[string][]listener[func(MutationEvent)]
	root     []listener[func(prev, next reconciler.Host)]
}

func (l *listeners) id() uint64 {
	l.nextID++
	return l.nextID
}

func (l *listeners) updates() []func(UpdateEvent) {
	return fns(l.update)
}

func (l *listeners) mutations(typ string) []func(MutationEvent) {
	return fns(l.mutation[typ])
}

func (l *listeners) roots() []func(prev, next reconciler.Host) {
	return fns(l.root)
}

func fns[F any](ls []listener[F]) []F {
	out := make([]F, len(ls))
	for i, l := range ls {
		out[i] = l.fn
	}
	return out
}

func without[F any](ls []listener[F], id uint64) []listener[F] {
	return slices.DeleteFunc(ls, func(l listener[F]) bool { return l.id == id })
}

// OnUpdate registers fn to run after every flushed batch. The returned func
// unregisters it.
func (e *Editor) OnUpdate(fn func(UpdateEvent)) func() {
	id := e.listeners.id()
	e.listeners.update = append(e.listeners.update, listener[func(UpdateEvent)]{id: id, fn: fn})
	return func() {
		e.listeners.update = without(e.listeners.update, id)
	}
}

// OnMutation registers fn for batches that create, update or destroy nodes
// of type typ.
func (e *Editor) OnMutation(typ string, fn func(MutationEvent)) func() {
	id := e.listeners.id()
	if e.listeners.mutation == nil {
		e.listeners.mutation = make(map[string][]listener[func(MutationEvent)])
	}
	e.listeners.mutation[typ] = append(e.listeners.mutation[typ], listener[func(MutationEvent)]{id: id, fn: fn})
	return func() {
		e.listeners.mutation[typ] = without(e.listeners.mutation[typ], id)
	}
}

// OnRoot registers fn to run when the host attachment changes.
func (e *Editor) OnRoot(fn func(prev, next reconciler.Host)) func() {
	id := e.listeners.id()
	e.listeners.root = append(e.listeners.root, listener[func(prev, next reconciler.Host)]{id: id, fn: fn})
	return func() {
		e.listeners.root = without(e.listeners.root, id)
	}
}

// notify delivers mutation events, then the update event.
func (e *Editor) notify(prev, next *store.State, b batch) {
	if len(e.listeners.mutation) > 0 {
		for typ, muts := range classify(prev, next, b.dirty) {
			ls := e.listeners.mutations(typ)
			if len(ls) == 0 {
				continue
			}
			ev := MutationEvent{Type: typ, Mutations: muts, Previous: prev, Next: next, Tags: b.tags}
			for _, fn := range ls {
				fn(ev)
			}
		}
	}
	ev := UpdateEvent{Previous: prev, Next: next, Dirty: b.dirty, Tags: b.tags}
	for _, fn := range e.listeners.updates() {
		fn(ev)
	}
}

// classify groups the dirty nodes of a batch by type.
func classify(prev, next *store.State, d *dirty.Set) map[string]map[node.Key]dirty.Mutation {
	out := make(map[string]map[node.Key]dirty.Mutation)
	add := func(typ string, k node.Key, m dirty.Mutation) {
		if out[typ] == nil {
			out[typ] = make(map[node.Key]dirty.Mutation)
		}
		out[typ][k] = m
	}
	for k := range d.Nodes {
		n, ok := next.Node(k)
		if !ok {
			continue
		}
		if prev.Has(k) {
			add(n.Type(), k, dirty.Updated)
		} else {
			add(n.Type(), k, dirty.Created)
		}
	}
	for k := range d.Destroyed {
		if n, ok := prev.Node(k); ok {
			add(n.Type(), k, dirty.Destroyed)
		}
	}
	return out
}
