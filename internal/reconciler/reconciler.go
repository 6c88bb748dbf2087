package reconciler

import (
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"

	"github.com/dshills/inkwell/internal/engine/dirty"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Stats counts the host mutations made by one pass.
type Stats struct {
	Created   int
	Updated   int
	Moved     int
	Removed   int
	Selection bool
}

// Mutations returns the total number of host calls that changed the surface.
func (s Stats) Mutations() int {
	n := s.Created + s.Updated + s.Moved + s.Removed
	if s.Selection {
		n++
	}
	return n
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithDecorator sets the decorator renderer.
func WithDecorator(d Decorator) Option {
	return func(r *Reconciler) {
		r.dec = d
	}
}

// WithLogger sets the logger used for faults.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// Reconciler keeps one host in step with a sequence of snapshots.
// It is not safe for concurrent use.
type Reconciler struct {
	host   Host
	reg    *node.Registry
	dec    Decorator
	logger *slog.Logger

	mounted   map[node.Key]struct{}
	decorated map[node.Key]struct{}

	// Per-pass state.
	prev     *store.State
	next     *store.State
	dirty    *dirty.Set
	visited  map[node.Key]bool
	removals []node.Key
	stats    Stats
}

// New creates a reconciler for host. host may be nil; patching is then
// skipped until SetHost attaches one.
func New(host Host, reg *node.Registry, opts ...Option) *Reconciler {
	r := &Reconciler{
		host:      host,
		reg:       reg,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		mounted:   make(map[node.Key]struct{}),
		decorated: make(map[node.Key]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Host returns the attached host, or nil.
func (r *Reconciler) Host() Host { return r.host }

// SetHost replaces the host. The new host starts empty; call Mount to
// render into it.
func (r *Reconciler) SetHost(h Host) {
	r.releaseAll()
	r.host = h
	r.mounted = make(map[node.Key]struct{})
}

// Mounted reports whether key has a host element.
func (r *Reconciler) Mounted(key node.Key) bool {
	_, ok := r.mounted[key]
	return ok
}

// Mount renders s from scratch, replacing whatever the host shows.
func (r *Reconciler) Mount(s *store.State) (Stats, error) {
	if r.host == nil || s == nil {
		return Stats{}, nil
	}
	if r.Mounted(node.RootKey) {
		if err := r.host.Remove(node.RootKey); err != nil {
			return Stats{}, &HostError{Op: "remove", Key: node.RootKey, Err: err}
		}
	}
	r.releaseAll()
	r.mounted = make(map[node.Key]struct{})
	r.begin(nil, s, dirty.New())

	if err := r.create(node.RootKey); err != nil {
		return r.stats, err
	}
	if err := r.host.Insert("", node.RootKey, ""); err != nil {
		return r.stats, &HostError{Op: "insert", Key: node.RootKey, Err: err}
	}
	err := r.syncSelection()
	return r.stats, err
}

// Reconcile patches the host from prev to next. d names what changed; only
// those subtrees are visited. Faults for dirty keys missing from next are
// joined into the returned error after the rest of the patch is applied.
func (r *Reconciler) Reconcile(prev, next *store.State, d *dirty.Set) (Stats, error) {
	if r.host == nil || next == nil {
		return Stats{}, nil
	}
	if !r.Mounted(node.RootKey) {
		return r.Mount(next)
	}
	if d == nil {
		d = dirty.New()
	}
	r.begin(prev, next, d)

	var faults []error
	for _, k := range r.missing() {
		r.logger.Warn("dirty node missing from snapshot", "key", k)
		faults = append(faults, &MissingNodeError{Key: k})
		r.scheduleRemoval(k)
	}

	if r.isDirty(node.RootKey) {
		if err := r.reconcile(node.RootKey); err != nil {
			return r.stats, err
		}
	}
	if err := r.flushRemovals(); err != nil {
		return r.stats, err
	}
	if err := r.syncSelection(); err != nil {
		return r.stats, err
	}
	return r.stats, errors.Join(faults...)
}

func (r *Reconciler) begin(prev, next *store.State, d *dirty.Set) {
	r.prev = prev
	r.next = next
	r.dirty = d
	r.visited = make(map[node.Key]bool)
	r.removals = r.removals[:0]
	r.stats = Stats{}
}

// missing returns dirty keys absent from the next snapshot, sorted.
func (r *Reconciler) missing() []node.Key {
	var out []node.Key
	for k := range r.dirty.Nodes {
		if !r.next.Has(k) {
			out = append(out, k)
		}
	}
	for k := range r.dirty.Subtrees {
		if !r.next.Has(k) && !slices.Contains(out, k) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

func (r *Reconciler) isDirty(key node.Key) bool {
	if r.dirty.HasNode(key) {
		return true
	}
	marked, _ := r.dirty.Subtree(key)
	return marked
}

func (r *Reconciler) prevNode(key node.Key) (*node.Node, bool) {
	if r.prev == nil {
		return nil, false
	}
	return r.prev.Node(key)
}

// reconcile patches key and descends into its dirty children.
func (r *Reconciler) reconcile(key node.Key) error {
	if r.visited[key] {
		return nil
	}
	r.visited[key] = true

	n, ok := r.next.Node(key)
	if !ok {
		return nil
	}
	if r.dirty.HasNode(key) {
		if err := r.patch(n); err != nil {
			return err
		}
	}
	marked, changed := r.dirty.Subtree(key)
	if !marked {
		return nil
	}
	if changed {
		var prevKids []node.Key
		if pn, ok := r.prevNode(key); ok {
			prevKids = pn.Children()
		}
		return r.diffChildren(key, prevKids, n.Children())
	}
	for _, c := range n.Children() {
		if r.isDirty(c) {
			if err := r.reconcile(c); err != nil {
				return err
			}
		}
	}
	return nil
}

// patch updates the host element when the rendered props changed.
func (r *Reconciler) patch(n *node.Node) error {
	props := r.reg.Render(n)
	if pn, ok := r.prevNode(n.Key()); ok && r.reg.Render(pn).Equal(props) {
		return nil
	}
	if err := r.host.Update(n.Key(), props); err != nil {
		return &HostError{Op: "update", Key: n.Key(), Err: err}
	}
	r.stats.Updated++
	r.decorate(n)
	return nil
}

// diffChildren makes the host child list of parent match next.
func (r *Reconciler) diffChildren(parent node.Key, prevKids, nextKids []node.Key) error {
	oldIndex := make(map[node.Key]int, len(prevKids))
	for i, k := range prevKids {
		oldIndex[k] = i
	}
	seq := make([]int, len(nextKids))
	for i, k := range nextKids {
		seq[i] = -1
		if j, ok := oldIndex[k]; ok && r.Mounted(k) {
			seq[i] = j
		}
	}
	stay := make(map[int]bool)
	for _, i := range lis(seq) {
		stay[i] = true
	}

	var before node.Key
	for i := len(nextKids) - 1; i >= 0; i-- {
		k := nextKids[i]
		if !stay[i] {
			if err := r.place(parent, k, before); err != nil {
				return err
			}
		} else if r.isDirty(k) {
			if err := r.reconcile(k); err != nil {
				return err
			}
		}
		before = k
	}

	for _, k := range prevKids {
		if !r.next.Has(k) {
			r.scheduleRemoval(k)
		}
	}
	return nil
}

// place puts key under parent before the sibling before, moving an existing
// element or creating a new subtree.
func (r *Reconciler) place(parent, key, before node.Key) error {
	if r.Mounted(key) {
		if err := r.host.Insert(parent, key, before); err != nil {
			return &HostError{Op: "insert", Key: key, Err: err}
		}
		r.stats.Moved++
		if r.isDirty(key) {
			return r.reconcile(key)
		}
		return nil
	}
	if err := r.create(key); err != nil {
		return err
	}
	if err := r.host.Insert(parent, key, before); err != nil {
		return &HostError{Op: "insert", Key: key, Err: err}
	}
	return nil
}

// create builds the host subtree for key without attaching it.
func (r *Reconciler) create(key node.Key) error {
	n, ok := r.next.Node(key)
	if !ok {
		return &MissingNodeError{Key: key}
	}
	r.visited[key] = true
	if err := r.host.Create(key, r.reg.Render(n)); err != nil {
		return &HostError{Op: "create", Key: key, Err: err}
	}
	r.mounted[key] = struct{}{}
	r.stats.Created++
	for _, c := range n.Children() {
		if err := r.place(key, c, ""); err != nil {
			return err
		}
	}
	r.decorate(n)
	return nil
}

func (r *Reconciler) decorate(n *node.Node) {
	if !n.IsDecorator() || r.dec == nil {
		return
	}
	container, _ := r.host.Container(n.Key())
	r.dec.Decorate(n.Key(), n, container)
	r.decorated[n.Key()] = struct{}{}
}

func (r *Reconciler) scheduleRemoval(key node.Key) {
	if !slices.Contains(r.removals, key) {
		r.removals = append(r.removals, key)
	}
}

// flushRemovals removes scheduled elements. Runs after every move, so
// subtrees that survive elsewhere have already left the removed element.
func (r *Reconciler) flushRemovals() error {
	for _, k := range r.removals {
		if !r.Mounted(k) {
			continue
		}
		if err := r.host.Remove(k); err != nil {
			return &HostError{Op: "remove", Key: k, Err: err}
		}
		r.stats.Removed++
		r.forget(k)
	}
	r.removals = r.removals[:0]
	return nil
}

// forget drops bookkeeping for key and for the descendants that did not
// survive into the next snapshot.
func (r *Reconciler) forget(key node.Key) {
	delete(r.mounted, key)
	r.release(key)
	pn, ok := r.prevNode(key)
	if !ok {
		return
	}
	for _, c := range pn.Children() {
		if !r.next.Has(c) {
			r.forget(c)
		}
	}
}

func (r *Reconciler) release(key node.Key) {
	if _, ok := r.decorated[key]; !ok {
		return
	}
	delete(r.decorated, key)
	if r.dec != nil {
		r.dec.Release(key)
	}
}

func (r *Reconciler) releaseAll() {
	for _, k := range slices.Sorted(maps.Keys(r.decorated)) {
		r.release(k)
	}
}

// syncSelection writes the next snapshot's selection to the host unless the
// host already shows it.
func (r *Reconciler) syncSelection() error {
	want := ToHost(r.next, r.next.Selection())
	if r.host.Selection().Equal(want) {
		return nil
	}
	if err := r.host.SetSelection(want); err != nil {
		return &HostError{Op: "select", Key: node.RootKey, Err: err}
	}
	r.stats.Selection = true
	return nil
}

// ToHost translates a model selection into host coordinates. Text points
// keep their rune offsets. An element point next to a text child becomes a
// text position at the start of the following child or the end of the
// preceding one; otherwise it stays a child index.
func ToHost(v store.View, sel *selection.Selection) *HostSelection {
	if sel == nil {
		return nil
	}
	return &HostSelection{
		Anchor: hostPoint(v, sel.Anchor),
		Focus:  hostPoint(v, sel.Focus),
	}
}

func hostPoint(v store.View, p selection.Point) HostPoint {
	if p.Type == selection.PointText {
		return HostPoint{Key: p.Key, Offset: p.Offset}
	}
	n, ok := v.Node(p.Key)
	if !ok {
		return HostPoint{Key: p.Key, Offset: p.Offset}
	}
	if c, ok := v.Node(n.ChildAt(p.Offset)); ok && c.IsText() {
		return HostPoint{Key: c.Key(), Offset: 0}
	}
	if c, ok := v.Node(n.ChildAt(p.Offset - 1)); ok && c.IsText() {
		return HostPoint{Key: c.Key(), Offset: c.TextLen()}
	}
	return HostPoint{Key: p.Key, Offset: p.Offset}
}
