package engine

import (
	"errors"
	"slices"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/dshills/inkwell/internal/command"
	"github.com/dshills/inkwell/internal/engine/dirty"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
	"github.com/dshills/inkwell/internal/metrics"
	"github.com/dshills/inkwell/internal/reconciler"
	"github.com/dshills/inkwell/internal/renderer"
)

// ============================================================================
// Helpers
// ============================================================================

// addParagraph appends a paragraph holding text and stores the paragraph and
// leaf keys in keys when non-nil.
func addParagraph(text string, keys *[2]node.Key) func(*store.Txn) error {
	return func(tx *store.Txn) error {
		p, err := tx.CreateElement("paragraph")
		if err != nil {
			return err
		}
		leaf, err := tx.CreateText(text)
		if err != nil {
			return err
		}
		if err := tx.Append(p.Key(), leaf.Key()); err != nil {
			return err
		}
		if keys != nil {
			keys[0], keys[1] = p.Key(), leaf.Key()
		}
		return tx.Append(node.RootKey, p.Key())
	}
}

func setText(key node.Key, text string) func(*store.Txn) error {
	return func(tx *store.Txn) error {
		return tx.SetText(key, text)
	}
}

func mustUpdate(t *testing.T, e *Editor, fn func(*store.Txn) error, opts ...UpdateOption) {
	t.Helper()
	if err := e.Update(fn, opts...); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var total float64
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		for _, m := range f.GetMetric() {
			total += counterOf(m)
		}
	}
	return total
}

func counterOf(m *dto.Metric) float64 {
	if c := m.GetCounter(); c != nil {
		return c.GetValue()
	}
	return 0
}

// failingHost rejects inserts once armed.
type failingHost struct {
	*renderer.Memory
	armed bool
}

var errHostGone = errors.New("host gone")

func (h *failingHost) Insert(parent, key, before node.Key) error {
	if h.armed {
		return errHostGone
	}
	return h.Memory.Insert(parent, key, before)
}

// ============================================================================
// Basic Operations
// ============================================================================

func TestNew(t *testing.T) {
	e := New()
	if e.State().Len() != 1 {
		t.Errorf("expected root only, got %d nodes", e.State().Len())
	}
	if e.State() != e.Committed() {
		t.Error("expected no pending state")
	}
	if e.ID() == "" || e.ID() == New().ID() {
		t.Errorf("expected unique editor ids, got %q", e.ID())
	}
}

func TestUpdateCommitsAndReconciles(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem))

	mustUpdate(t, e, addParagraph("Hello", nil))

	if got := e.State().TextContent(); got != "Hello" {
		t.Errorf("expected %q, got %q", "Hello", got)
	}
	if got := mem.Text(); got != "Hello" {
		t.Errorf("expected host text %q, got %q", "Hello", got)
	}
	if e.Pending() {
		t.Error("expected commit to be flushed")
	}
}

func TestUpdateRollback(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := New(WithMetrics(metrics.New(reg)))
	before := e.State()
	calls := 0
	e.OnUpdate(func(UpdateEvent) { calls++ })

	boom := errors.New("boom")
	err := e.Update(func(tx *store.Txn) error {
		if err := addParagraph("lost", nil)(tx); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
	if e.State() != before {
		t.Error("expected state unchanged after rollback")
	}
	if calls != 0 {
		t.Errorf("expected no update events, got %d", calls)
	}
	if got := counterValue(t, reg, "inkwell_rollbacks_total"); got != 1 {
		t.Errorf("expected 1 rollback, got %v", got)
	}
}

func TestUpdateFaultRollsBack(t *testing.T) {
	e := New()
	before := e.State()
	err := e.Update(func(tx *store.Txn) error {
		return tx.Remove(node.RootKey)
	})
	if !errors.Is(err, store.ErrRootRemoval) {
		t.Fatalf("expected ErrRootRemoval, got %v", err)
	}
	if !IsFault(err) {
		t.Errorf("expected %v to be a fault", err)
	}
	if e.State() != before {
		t.Error("expected state unchanged")
	}
}

func TestErrorHandler(t *testing.T) {
	var got []error
	e := New(WithErrorHandler(func(err error) { got = append(got, err) }))

	boom := errors.New("boom")
	if err := e.Update(func(*store.Txn) error { return boom }); err != nil {
		t.Fatalf("expected handler to absorb error, got %v", err)
	}
	if len(got) != 1 || !errors.Is(got[0], boom) {
		t.Errorf("expected [%v], got %v", boom, got)
	}
}

func TestWritesAfterCommitFail(t *testing.T) {
	e := New()
	var leaked *store.Txn
	mustUpdate(t, e, func(tx *store.Txn) error {
		leaked = tx
		return nil
	})
	if _, err := leaked.CreateElement("paragraph"); !errors.Is(err, ErrNotInUpdate) {
		t.Errorf("expected ErrNotInUpdate, got %v", err)
	}
	if err := e.State().Root().SetText("x"); err == nil {
		t.Error("expected write on frozen node to fail")
	}
}

// ============================================================================
// Batching
// ============================================================================

func TestNestedUpdateBatches(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem))
	var events []UpdateEvent
	e.OnUpdate(func(ev UpdateEvent) { events = append(events, ev) })

	mustUpdate(t, e, func(tx *store.Txn) error {
		if err := addParagraph("a", nil)(tx); err != nil {
			return err
		}
		return e.Update(addParagraph("b", nil), WithTag(TagHistoryMerge))
	}, WithTag(TagHistoryPush))

	if len(events) != 1 {
		t.Fatalf("expected 1 update event, got %d", len(events))
	}
	if got := mem.Text(); got != "a\nb" {
		t.Errorf("expected %q, got %q", "a\nb", got)
	}
	ev := events[0]
	if !ev.HasTag(TagHistoryPush) || !ev.HasTag(TagHistoryMerge) {
		t.Errorf("expected both tags, got %v", ev.Tags)
	}
	if ev.Previous.Len() != 1 || ev.Next.Len() != 5 {
		t.Errorf("expected 1 -> 5 nodes, got %d -> %d", ev.Previous.Len(), ev.Next.Len())
	}
}

func TestDiscreteInsideMutatorFaults(t *testing.T) {
	e := New()
	var inner error
	mustUpdate(t, e, func(tx *store.Txn) error {
		inner = e.Update(addParagraph("x", nil), Discrete())
		return nil
	})
	if !errors.Is(inner, ErrReentrantUpdate) {
		t.Errorf("expected ErrReentrantUpdate, got %v", inner)
	}
	if e.State().TextContent() != "" {
		t.Errorf("expected discrete update to be dropped, got %q", e.State().TextContent())
	}
}

func TestUpdateInsideReadFaults(t *testing.T) {
	e := New()
	var inner error
	err := e.Read(func(v store.View) error {
		inner = e.Update(addParagraph("x", nil))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(inner, ErrReentrantUpdate) {
		t.Errorf("expected ErrReentrantUpdate, got %v", inner)
	}
}

func TestDeferredFlush(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem), WithDeferredFlush())
	var events []UpdateEvent
	e.OnUpdate(func(ev UpdateEvent) { events = append(events, ev) })

	for _, s := range []string{"a", "b", "c"} {
		mustUpdate(t, e, addParagraph(s, nil))
	}
	if len(events) != 0 {
		t.Errorf("expected no events before flush, got %d", len(events))
	}
	if !e.Pending() {
		t.Error("expected pending state")
	}
	if got := mem.Text(); got != "" {
		t.Errorf("expected host untouched, got %q", got)
	}
	if got := e.State().TextContent(); got != "a\nb\nc" {
		t.Errorf("expected latest state %q, got %q", "a\nb\nc", got)
	}

	if err := e.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if got := mem.Text(); got != "a\nb\nc" {
		t.Errorf("expected %q, got %q", "a\nb\nc", got)
	}
	if n := len(events[0].Dirty.Nodes); n != 7 {
		t.Errorf("expected root and 6 new nodes dirty, got %d", n)
	}
}

func TestDiscreteFlushesImmediately(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem), WithDeferredFlush())

	mustUpdate(t, e, addParagraph("a", nil))
	mustUpdate(t, e, addParagraph("b", nil), Discrete())

	if e.Pending() {
		t.Error("expected no pending state after discrete update")
	}
	if got := mem.Text(); got != "a\nb" {
		t.Errorf("expected %q, got %q", "a\nb", got)
	}
}

func TestListenerUpdatesFollowUp(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem))
	var events []UpdateEvent
	e.OnUpdate(func(ev UpdateEvent) {
		events = append(events, ev)
		if len(events) == 1 {
			if err := e.Update(addParagraph("x", nil)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err := e.Update(addParagraph("y", nil)); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
	})

	mustUpdate(t, e, addParagraph("a", nil))

	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[1].Previous != events[0].Next {
		t.Error("expected follow-up to build on the first commit")
	}
	if got := mem.Text(); got != "a\nx\ny" {
		t.Errorf("expected %q, got %q", "a\nx\ny", got)
	}
}

func TestCreatedAndRemovedWithinBatch(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem), WithDeferredFlush())
	var events []UpdateEvent
	e.OnUpdate(func(ev UpdateEvent) { events = append(events, ev) })

	var keys [2]node.Key
	mustUpdate(t, e, addParagraph("gone", &keys))
	mustUpdate(t, e, func(tx *store.Txn) error { return tx.Remove(keys[0]) })

	if err := e.Flush(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	d := events[0].Dirty
	if d.HasNode(keys[0]) || d.HasNode(keys[1]) {
		t.Error("expected transient nodes pruned from dirty set")
	}
	if len(d.Destroyed) != 0 {
		t.Errorf("expected no destroyed keys, got %v", d.Destroyed)
	}
	if mem.Len() != 1 {
		t.Errorf("expected only the root element, got %d", mem.Len())
	}
}

func TestOnCommitRunsAfterReconcile(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem))
	var seen string
	mustUpdate(t, e, addParagraph("a", nil), OnCommit(func() { seen = mem.Text() }))
	if seen != "a" {
		t.Errorf("expected host text %q in callback, got %q", "a", seen)
	}
}

// ============================================================================
// SetState
// ============================================================================

func TestSetState(t *testing.T) {
	mem := renderer.NewMemory()
	e := New(WithHost(mem))
	var keys [2]node.Key
	mustUpdate(t, e, addParagraph("old", &keys))

	tx := store.Begin(e.State(), e.Registry(), e.Keys())
	if err := tx.SetText(keys[1], "new"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := tx.SetSelection(selection.Collapsed(selection.TextPoint(keys[1], 3))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	next, _, err := tx.Commit()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var ev UpdateEvent
	e.OnUpdate(func(u UpdateEvent) { ev = u })
	mem.ResetUpdates()
	if err := e.SetState(next, WithTag(TagExternal)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if e.State() != next {
		t.Error("expected state to be installed as is")
	}
	if !ev.HasTag(TagExternal) {
		t.Errorf("expected external tag, got %v", ev.Tags)
	}
	if got := mem.Text(); got != "new" {
		t.Errorf("expected %q, got %q", "new", got)
	}
	var modified int
	for _, u := range mem.Updates() {
		if u.Action == renderer.ActionModify {
			modified++
		}
	}
	if modified != 1 {
		t.Errorf("expected 1 modify, got %d: %v", modified, mem.Updates())
	}
	want := &reconciler.HostSelection{
		Anchor: reconciler.HostPoint{Key: keys[1], Offset: 3},
		Focus:  reconciler.HostPoint{Key: keys[1], Offset: 3},
	}
	if !mem.Selection().Equal(want) {
		t.Errorf("expected host selection %v, got %v", want, mem.Selection())
	}
}

func TestSetStateInsideMutatorFaults(t *testing.T) {
	e := New()
	other := store.NewState()
	var inner error
	mustUpdate(t, e, func(*store.Txn) error {
		inner = e.SetState(other)
		return nil
	})
	if !errors.Is(inner, ErrReentrantUpdate) {
		t.Errorf("expected ErrReentrantUpdate, got %v", inner)
	}
}

// ============================================================================
// Host attachment
// ============================================================================

func TestSetHost(t *testing.T) {
	e := New()
	mustUpdate(t, e, addParagraph("offline", nil))

	var changes [][2]reconciler.Host
	e.OnRoot(func(prev, next reconciler.Host) {
		changes = append(changes, [2]reconciler.Host{prev, next})
	})

	mem := renderer.NewMemory()
	if err := e.SetHost(mem); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := mem.Text(); got != "offline" {
		t.Errorf("expected mounted text %q, got %q", "offline", got)
	}

	if err := e.SetHost(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	n := len(mem.Updates())
	mustUpdate(t, e, addParagraph("detached", nil))
	if len(mem.Updates()) != n {
		t.Error("expected detached host to receive no updates")
	}
	if got := e.State().TextContent(); got != "offline\ndetached" {
		t.Errorf("expected state to keep committing, got %q", got)
	}

	if len(changes) != 2 {
		t.Fatalf("expected 2 root changes, got %d", len(changes))
	}
	if changes[0][0] != nil || changes[0][1] != mem {
		t.Errorf("expected attach, got %v", changes[0])
	}
	if changes[1][0] != mem || changes[1][1] != nil {
		t.Errorf("expected detach, got %v", changes[1])
	}
}

func TestHostFailureReported(t *testing.T) {
	host := &failingHost{Memory: renderer.NewMemory()}
	var got []error
	e := New(WithHost(host), WithErrorHandler(func(err error) { got = append(got, err) }))

	host.armed = true
	mustUpdate(t, e, addParagraph("a", nil))

	if len(got) != 1 {
		t.Fatalf("expected 1 error, got %v", got)
	}
	var herr *reconciler.HostError
	if !errors.As(got[0], &herr) || !errors.Is(got[0], errHostGone) {
		t.Errorf("expected host error wrapping %v, got %v", errHostGone, got[0])
	}
	if e.State().TextContent() != "a" {
		t.Error("expected commit to stand despite host failure")
	}
}

// ============================================================================
// Listeners
// ============================================================================

func TestMutationListener(t *testing.T) {
	e := New()
	var events []MutationEvent
	e.OnMutation("paragraph", func(ev MutationEvent) { events = append(events, ev) })

	var keys [2]node.Key
	mustUpdate(t, e, addParagraph("a", &keys))
	mustUpdate(t, e, setText(keys[1], "b"))
	mustUpdate(t, e, func(tx *store.Txn) error { return tx.Remove(keys[0]) })

	if len(events) != 2 {
		t.Fatalf("expected 2 paragraph events, got %d", len(events))
	}
	if got := events[0].Mutations[keys[0]]; got != dirty.Created {
		t.Errorf("expected created, got %v", got)
	}
	if got := events[1].Mutations[keys[0]]; got != dirty.Destroyed {
		t.Errorf("expected destroyed, got %v", got)
	}
}

func TestMutationListenerUpdated(t *testing.T) {
	e := New()
	var keys [2]node.Key
	mustUpdate(t, e, addParagraph("a", &keys))

	var got map[node.Key]dirty.Mutation
	e.OnMutation("text", func(ev MutationEvent) { got = ev.Mutations })
	mustUpdate(t, e, setText(keys[1], "b"))

	if got[keys[1]] != dirty.Updated || len(got) != 1 {
		t.Errorf("expected only %s updated, got %v", keys[1], got)
	}
}

func TestUnregisterListeners(t *testing.T) {
	e := New()
	var calls []string
	off := e.OnUpdate(func(UpdateEvent) { calls = append(calls, "first") })
	e.OnUpdate(func(UpdateEvent) { calls = append(calls, "second") })

	mustUpdate(t, e, addParagraph("a", nil))
	off()
	off()
	mustUpdate(t, e, addParagraph("b", nil))

	want := []string{"first", "second", "second"}
	if !slices.Equal(calls, want) {
		t.Errorf("expected %v, got %v", want, calls)
	}
}

// ============================================================================
// Commands
// ============================================================================

func TestCommandDispatch(t *testing.T) {
	e := New()
	var order []string
	e.RegisterCommand("bold", command.PriorityEditor, func(any) bool {
		order = append(order, "editor")
		return true
	})
	off := e.RegisterCommand("bold", command.PriorityHigh, func(payload any) bool {
		order = append(order, "plugin")
		return payload == "stop"
	})

	if !e.Dispatch("bold", nil) {
		t.Error("expected command handled")
	}
	if !e.Dispatch("bold", "stop") {
		t.Error("expected command handled")
	}
	off()
	e.Dispatch("bold", "stop")

	want := []string{"plugin", "editor", "plugin", "editor"}
	if !slices.Equal(order, want) {
		t.Errorf("expected %v, got %v", want, order)
	}
	if e.Dispatch("missing", nil) {
		t.Error("expected unknown command to be unhandled")
	}
}

// ============================================================================
// Metrics
// ============================================================================

func TestMetricsWiring(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := New(WithMetrics(metrics.New(reg)), WithHost(renderer.NewMemory()))

	mustUpdate(t, e, addParagraph("a", nil))
	mustUpdate(t, e, addParagraph("b", nil))
	if err := e.SetState(store.NewState()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := counterValue(t, reg, "inkwell_commits_total"); got != 3 {
		t.Errorf("expected 3 commits, got %v", got)
	}
	// Mount plus one pass per flush.
	if got := counterValue(t, reg, "inkwell_reconcile_passes_total"); got != 4 {
		t.Errorf("expected 4 reconcile passes, got %v", got)
	}
}
