package engine

import (
	"log/slog"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/store"
	"github.com/dshills/inkwell/internal/metrics"
	"github.com/dshills/inkwell/internal/reconciler"
)

// Well-known update tags.
const (
	// TagHistoryMerge folds the update into the previous history entry.
	TagHistoryMerge = "history-merge"

	// TagHistoryPush forces a new history entry.
	TagHistoryPush = "history-push"

	// TagHistoric marks updates produced by undo or redo.
	TagHistoric = "historic"

	// TagExternal marks state fed in from outside the editor.
	TagExternal = "external"
)

// Option configures an Editor during creation.
type Option func(*Editor)

// WithLogger sets the structured logger. The default discards.
func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records commits and reconciliation passes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Editor) {
		e.metrics = m
	}
}

// WithDeferredFlush makes commits wait for Flush. Event-loop hosts call
// Flush once per tick so that any number of updates reconcile once.
func WithDeferredFlush() Option {
	return func(e *Editor) {
		e.deferred = true
	}
}

// WithRegistry sets the node type registry. The default holds the built-in
// types only.
func WithRegistry(r *node.Registry) Option {
	return func(e *Editor) {
		if r != nil {
			e.reg = r
		}
	}
}

// WithDecorator sets the renderer for decorator nodes.
func WithDecorator(d reconciler.Decorator) Option {
	return func(e *Editor) {
		e.decorator = d
	}
}

// WithErrorHandler routes mutator errors and reconciliation faults to fn
// instead of returning them.
func WithErrorHandler(fn func(error)) Option {
	return func(e *Editor) {
		e.onError = fn
	}
}

// WithHost attaches a host at creation.
func WithHost(h reconciler.Host) Option {
	return func(e *Editor) {
		e.host = h
	}
}

// WithState sets the initial snapshot. The default is an empty root.
func WithState(s *store.State) Option {
	return func(e *Editor) {
		if s != nil {
			e.committed = s
		}
	}
}

// UpdateOption configures one Update or SetState call.
type UpdateOption func(*updateOptions)

type updateOptions struct {
	tags     []string
	discrete bool
	onCommit []func()
}

// WithTag attaches tags that listeners receive with the update.
func WithTag(tags ...string) UpdateOption {
	return func(o *updateOptions) {
		o.tags = append(o.tags, tags...)
	}
}

// Discrete flushes the update immediately, even with deferred flushing.
func Discrete() UpdateOption {
	return func(o *updateOptions) {
		o.discrete = true
	}
}

// OnCommit runs fn after the update has been reconciled.
func OnCommit(fn func()) UpdateOption {
	return func(o *updateOptions) {
		if fn != nil {
			o.onCommit = append(o.onCommit, fn)
		}
	}
}

func buildUpdateOptions(opts []UpdateOption) updateOptions {
	var o updateOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
