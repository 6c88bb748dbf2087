package engine

import (
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/inkwell/internal/command"
	"github.com/dshills/inkwell/internal/engine/dirty"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/store"
	"github.com/dshills/inkwell/internal/metrics"
	"github.com/dshills/inkwell/internal/reconciler"
)

// Editor owns a document: the committed snapshot, the pending snapshot
// awaiting reconciliation, listener registries and the attached host.
//
// An Editor is not safe for concurrent use. Drive it from one goroutine and
// hand work from others through channels. Snapshots returned by State and
// passed to listeners are immutable and may be shared freely.
type Editor struct {
	id        string
	reg       *node.Registry
	keys      *node.KeyGen
	logger    *slog.Logger
	metrics   *metrics.Metrics
	rec       *reconciler.Reconciler
	host      reconciler.Host
	decorator reconciler.Decorator
	onError   func(error)
	deferred  bool

	committed *store.State
	pending   *store.State
	batch     batch

	// Re-entrancy tracking.
	tx       *store.Txn
	queue    []queued
	reading  int
	flushing bool
	followUp []queued

	listeners listeners
	commands  *command.Registry
}

// queued is an update waiting for a transaction.
type queued struct {
	fn   func(*store.Txn) error
	opts updateOptions
}

// batch accumulates what committed since the last flush.
type batch struct {
	dirty    *dirty.Set
	tags     []string
	onCommit []func()
}

func (b *batch) add(d *dirty.Set, o updateOptions) {
	if b.dirty == nil {
		b.dirty = dirty.New()
	}
	b.dirty.Merge(d)
	for _, t := range o.tags {
		if !slices.Contains(b.tags, t) {
			b.tags = append(b.tags, t)
		}
	}
	b.onCommit = append(b.onCommit, o.onCommit...)
}

// New creates an editor holding an empty document.
func New(opts ...Option) *Editor {
	e := &Editor{
		id:        uuid.NewString(),
		reg:       node.NewRegistry(),
		keys:      node.NewKeyGen(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		committed: store.NewState(),
		commands:  command.NewRegistry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(slog.String("editor", e.id))

	ropts := []reconciler.Option{reconciler.WithLogger(e.logger)}
	if e.decorator != nil {
		ropts = append(ropts, reconciler.WithDecorator(e.decorator))
	}
	e.rec = reconciler.New(nil, e.reg, ropts...)
	if e.host != nil {
		h := e.host
		e.host = nil
		e.SetHost(h)
	}
	return e
}

// ID returns the editor's unique identifier.
func (e *Editor) ID() string { return e.id }

// Registry returns the node type registry.
func (e *Editor) Registry() *node.Registry { return e.reg }

// Keys returns the key generator used for new nodes.
func (e *Editor) Keys() *node.KeyGen { return e.keys }

// Logger returns the editor's logger.
func (e *Editor) Logger() *slog.Logger { return e.logger }

// State returns the latest snapshot, pending or committed.
func (e *Editor) State() *store.State {
	if e.pending != nil {
		return e.pending
	}
	return e.committed
}

// Committed returns the last snapshot that was reconciled and announced.
func (e *Editor) Committed() *store.State { return e.committed }

// Pending reports whether commits are waiting for Flush.
func (e *Editor) Pending() bool { return e.pending != nil }

// Read runs fn against the latest snapshot. Any Update or SetState issued
// from fn fails with ErrReentrantUpdate.
func (e *Editor) Read(fn func(v store.View) error) error {
	e.reading++
	defer func() { e.reading-- }()
	return fn(e.State())
}

// Update runs fn in a write transaction and commits the result.
//
// Called from inside a running mutator, fn joins the same transaction and
// commits with it. Called from a listener during Flush, fn is queued and
// all such updates commit together in one follow-up pass. Otherwise the
// commit is flushed at once, unless the editor defers flushing.
func (e *Editor) Update(fn func(tx *store.Txn) error, opts ...UpdateOption) error {
	o := buildUpdateOptions(opts)
	switch {
	case e.reading > 0:
		return e.handleError(ErrReentrantUpdate)
	case e.tx != nil:
		if o.discrete {
			return e.handleError(ErrReentrantUpdate)
		}
		e.queue = append(e.queue, queued{fn: fn, opts: o})
		return nil
	case e.flushing:
		e.followUp = append(e.followUp, queued{fn: fn, opts: o})
		return nil
	}

	if err := e.run([]queued{{fn: fn, opts: o}}); err != nil {
		return e.handleError(err)
	}
	if e.deferred && !o.discrete {
		return nil
	}
	return e.Flush()
}

// run executes updates in one transaction over the latest snapshot and
// stages the commit.
func (e *Editor) run(updates []queued) error {
	tx := store.Begin(e.State(), e.reg, e.keys)
	e.tx = tx
	e.queue = updates
	defer func() {
		e.tx = nil
		e.queue = nil
	}()

	var merged updateOptions
	for len(e.queue) > 0 {
		u := e.queue[0]
		e.queue = e.queue[1:]
		if err := u.fn(tx); err != nil {
			tx.Discard()
			e.metrics.Rollback()
			e.logger.Warn("update rolled back", slog.Any("error", err))
			return err
		}
		merged.tags = append(merged.tags, u.opts.tags...)
		merged.onCommit = append(merged.onCommit, u.opts.onCommit...)
	}

	next, d, err := tx.Commit()
	if err != nil {
		e.metrics.Rollback()
		e.logger.Warn("commit rejected", slog.Any("error", err))
		return err
	}
	e.stage(next, d, merged)
	e.metrics.Commit("update", next.Len())
	e.logger.Debug("committed",
		slog.Any("tags", merged.tags),
		slog.Int("dirty", d.Len()),
		slog.Int("nodes", next.Len()))
	return nil
}

// stage installs next as the pending snapshot. Marks for nodes that came
// and went within the batch are dropped.
func (e *Editor) stage(next *store.State, d *dirty.Set, o updateOptions) {
	e.batch.add(d, o)
	e.batch.dirty.Prune(next.Has)
	for k := range e.batch.dirty.Destroyed {
		if !e.committed.Has(k) {
			delete(e.batch.dirty.Destroyed, k)
		}
	}
	e.pending = next
}

// Flush reconciles pending commits with the host and notifies listeners.
// Updates issued by listeners are committed and flushed in a follow-up pass
// before Flush returns.
func (e *Editor) Flush() error {
	if e.flushing {
		return nil
	}
	if e.tx != nil || e.reading > 0 {
		return e.handleError(ErrReentrantUpdate)
	}
	e.flushing = true
	defer func() { e.flushing = false }()

	var errs []error
	for e.pending != nil {
		prev, next, b := e.committed, e.pending, e.batch
		e.committed, e.pending, e.batch = next, nil, batch{}
		if b.dirty == nil {
			b.dirty = dirty.New()
		}

		if err := e.reconcile(prev, next, b.dirty); err != nil {
			errs = append(errs, err)
		}
		for _, fn := range b.onCommit {
			fn()
		}
		e.notify(prev, next, b)

		if len(e.followUp) > 0 {
			updates := e.followUp
			e.followUp = nil
			if err := e.run(updates); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, err := range errs {
		if herr := e.handleError(err); herr != nil {
			return herr
		}
	}
	return nil
}

func (e *Editor) reconcile(prev, next *store.State, d *dirty.Set) error {
	if e.rec.Host() == nil {
		return nil
	}
	start := time.Now()
	stats, err := e.rec.Reconcile(prev, next, d)
	e.metrics.Reconcile(time.Since(start), metrics.HostMutations{
		Created:   stats.Created,
		Updated:   stats.Updated,
		Moved:     stats.Moved,
		Removed:   stats.Removed,
		Selection: stats.Selection,
	}, err != nil)
	if err != nil {
		e.logger.Warn("reconcile fault", slog.Any("error", err))
		return err
	}
	e.logger.Debug("reconciled",
		slog.Int("mutations", stats.Mutations()),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// SetState replaces the document with s, an externally produced snapshot
// such as a parsed file, an undo entry or a collaborator's state. Dirty sets
// are derived by diffing against the latest snapshot.
func (e *Editor) SetState(s *store.State, opts ...UpdateOption) error {
	if s == nil {
		return nil
	}
	if e.tx != nil || e.reading > 0 || e.flushing {
		return e.handleError(ErrReentrantUpdate)
	}
	o := buildUpdateOptions(opts)
	d := store.Diff(e.State(), s)
	e.stage(s, d, o)
	e.metrics.Commit("set_state", s.Len())
	e.logger.Debug("state replaced",
		slog.Any("tags", o.tags),
		slog.Int("dirty", d.Len()),
		slog.Int("nodes", s.Len()))
	if e.deferred && !o.discrete {
		return nil
	}
	return e.Flush()
}

// Host returns the attached host, or nil.
func (e *Editor) Host() reconciler.Host { return e.host }

// SetHost attaches h and renders the committed snapshot into it. Pending
// commits stay pending. A nil h detaches; commits continue without patching.
func (e *Editor) SetHost(h reconciler.Host) error {
	prev := e.host
	e.host = h
	e.rec.SetHost(h)
	var err error
	if h != nil {
		start := time.Now()
		var stats reconciler.Stats
		stats, err = e.rec.Mount(e.committed)
		e.metrics.Reconcile(time.Since(start), metrics.HostMutations{
			Created:   stats.Created,
			Selection: stats.Selection,
		}, err != nil)
		if err != nil {
			e.logger.Warn("mount failed", slog.Any("error", err))
		}
	}
	for _, fn := range e.listeners.roots() {
		fn(prev, h)
	}
	if err != nil {
		return e.handleError(err)
	}
	return nil
}

// RegisterCommand adds handler to the chain for name. Higher priorities run
// first. The returned func removes the handler.
func (e *Editor) RegisterCommand(name string, priority command.Priority, handler command.Handler) func() {
	return e.commands.Register(name, priority, handler)
}

// Dispatch runs the chain for name and reports whether a handler consumed
// the command.
func (e *Editor) Dispatch(name string, payload any) bool {
	handled := e.commands.Dispatch(name, payload)
	e.logger.Debug("dispatch", slog.String("command", name), slog.Bool("handled", handled))
	return handled
}

// Commands returns the editor's command registry.
func (e *Editor) Commands() *command.Registry { return e.commands }

func (e *Editor) handleError(err error) error {
	if err == nil {
		return nil
	}
	if e.onError != nil {
		e.onError(err)
		return nil
	}
	return err
}
