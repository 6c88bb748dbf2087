package store

import (
	"errors"
	"fmt"
	"maps"

	"github.com/dshills/inkwell/internal/engine/dirty"
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
)

// Txn is a write session over a base State.
//
// A Txn is not safe for concurrent use and must not be used after Commit or
// Discard; every write then returns ErrNotInUpdate.
type Txn struct {
	base   *State
	reg    *node.Registry
	keys   *node.KeyGen
	clones map[node.Key]*node.Node
	dirty  *dirty.Set
	sel    *selection.Selection
	selSet bool
	closed bool
	fault  error
}

// Begin opens a transaction over base.
func Begin(base *State, reg *node.Registry, keys *node.KeyGen) *Txn {
	return &Txn{
		base:   base,
		reg:    reg,
		keys:   keys,
		clones: make(map[node.Key]*node.Node),
		dirty:  dirty.New(),
		sel:    base.sel.Clone(),
	}
}

// Base returns the snapshot the transaction started from.
func (tx *Txn) Base() *State { return tx.base }

// Registry returns the node kind registry used by the transaction.
func (tx *Txn) Registry() *node.Registry { return tx.reg }

// Closed reports whether the transaction was committed or discarded.
func (tx *Txn) Closed() bool { return tx.closed }

// Fault returns the first usage fault hit by the transaction, if any.
func (tx *Txn) Fault() error { return tx.fault }

// Dirty returns the transaction's dirty set so far.
func (tx *Txn) Dirty() *dirty.Set { return tx.dirty.Clone() }

// Node returns the working version of key: the clone if one exists,
// otherwise the base node. Reads never clone.
func (tx *Txn) Node(key node.Key) (*node.Node, bool) {
	if c, ok := tx.clones[key]; ok {
		return c, true
	}
	return tx.base.Node(key)
}

// Get is like Node but treats a missing key as a fault.
func (tx *Txn) Get(key node.Key) (*node.Node, error) {
	if n, ok := tx.Node(key); ok {
		return n, nil
	}
	return nil, tx.fail(&node.NotFoundError{Key: key})
}

// Root returns the working root.
func (tx *Txn) Root() *node.Node {
	n, _ := tx.Node(node.RootKey)
	return n
}

// Selection returns a copy of the working selection.
func (tx *Txn) Selection() *selection.Selection {
	return tx.sel.Clone()
}

// SetSelection replaces the working selection. nil clears it. Points must
// reference nodes in the working tree.
func (tx *Txn) SetSelection(sel *selection.Selection) error {
	if err := tx.check(); err != nil {
		return err
	}
	if sel != nil {
		for _, k := range sel.Keys() {
			if _, err := tx.Get(k); err != nil {
				return err
			}
		}
	}
	tx.sel = sel.Clone()
	tx.selSet = true
	return nil
}

// SelectionSet reports whether the selection was set explicitly.
func (tx *Txn) SelectionSet() bool { return tx.selSet }

// Writable returns a node the caller may mutate. The first call for a key
// clones the committed node; later calls return the same clone.
func (tx *Txn) Writable(key node.Key) (*node.Node, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	if c, ok := tx.clones[key]; ok {
		return c, nil
	}
	n, ok := tx.base.Node(key)
	if !ok {
		return nil, tx.fail(&node.NotFoundError{Key: key})
	}
	c := tx.reg.Clone(n)
	tx.clones[key] = c
	tx.dirty.MarkNode(key)
	tx.markAncestors(c.Parent())
	return c, nil
}

// markAncestors marks key and every ancestor as a dirty subtree. The walk
// stops at the first key already marked; its ancestors were marked with it.
func (tx *Txn) markAncestors(key node.Key) {
	for key != "" {
		if marked, _ := tx.dirty.Subtree(key); marked {
			return
		}
		tx.dirty.MarkSubtree(key, false)
		n, ok := tx.Node(key)
		if !ok {
			return
		}
		key = n.Parent()
	}
}

// Create constructs a detached, writable node of a registered type.
func (tx *Txn) Create(typ string) (*node.Node, error) {
	if err := tx.check(); err != nil {
		return nil, err
	}
	spec, ok := tx.reg.Lookup(typ)
	if !ok {
		return nil, tx.fail(fmt.Errorf("create %q: %w", typ, node.ErrUnknownType))
	}
	if typ == node.RootType {
		return nil, tx.fail(fmt.Errorf("create root: %w", ErrRootRemoval))
	}
	n := node.New(tx.keys.Next(), typ, spec.Kind)
	tx.clones[n.Key()] = n
	tx.dirty.MarkNode(n.Key())
	return n, nil
}

// CreateElement constructs a detached element of type typ.
func (tx *Txn) CreateElement(typ string) (*node.Node, error) {
	return tx.createKind(typ, node.KindElement)
}

// CreateText constructs a detached "text" leaf.
func (tx *Txn) CreateText(text string) (*node.Node, error) {
	n, err := tx.createKind("text", node.KindText)
	if err != nil {
		return nil, err
	}
	if err := n.SetText(text); err != nil {
		return nil, tx.fail(err)
	}
	return n, nil
}

// CreateDecorator constructs a detached decorator leaf with payload attrs.
func (tx *Txn) CreateDecorator(typ string, attrs map[string]string) (*node.Node, error) {
	n, err := tx.createKind(typ, node.KindDecorator)
	if err != nil {
		return nil, err
	}
	if err := tx.reg.Import(n, attrs); err != nil {
		return nil, tx.fail(err)
	}
	return n, nil
}

func (tx *Txn) createKind(typ string, kind node.Kind) (*node.Node, error) {
	spec, ok := tx.reg.Lookup(typ)
	if ok && spec.Kind != kind {
		return nil, tx.fail(fmt.Errorf("create %q as %s: %w", typ, kind, node.ErrKindMismatch))
	}
	return tx.Create(typ)
}

func (tx *Txn) check() error {
	if tx.closed {
		return ErrNotInUpdate
	}
	return nil
}

// fail records the first fault and returns err.
func (tx *Txn) fail(err error) error {
	if tx.fault == nil {
		tx.fault = err
	}
	return err
}

// Commit freezes the transaction into a new State.
//
// Untouched nodes are shared with the base. Nodes unreachable from the root
// are dropped and reported as destroyed when they existed in the base. On
// error nothing is committed and the base remains valid.
func (tx *Txn) Commit() (*State, *dirty.Set, error) {
	if err := tx.check(); err != nil {
		return nil, nil, err
	}
	if tx.fault != nil {
		tx.Discard()
		return nil, nil, tx.fault
	}

	nodes := maps.Clone(tx.base.nodes)
	maps.Copy(nodes, tx.clones)

	reachable, err := checkTree(nodes)
	if err != nil {
		tx.Discard()
		return nil, nil, err
	}
	for k := range nodes {
		if reachable[k] {
			continue
		}
		delete(nodes, k)
		if tx.base.Has(k) {
			tx.dirty.MarkDestroyed(k)
		}
	}
	tx.dirty.Prune(func(k node.Key) bool { return reachable[k] })

	tx.closed = true
	for _, c := range tx.clones {
		c.Freeze()
	}

	next := &State{nodes: nodes}
	next.sel = resolveSelection(next, tx.sel)
	return next, tx.dirty, nil
}

// Discard abandons the transaction. Clones are frozen so stray references
// cannot be written.
func (tx *Txn) Discard() {
	tx.closed = true
	for _, c := range tx.clones {
		c.Freeze()
	}
}

// checkTree walks the tree from the root, verifying parent links and child
// lists, and returns the set of reachable keys.
func checkTree(nodes map[node.Key]*node.Node) (map[node.Key]bool, error) {
	root, ok := nodes[node.RootKey]
	if !ok {
		return nil, &InvariantError{Key: node.RootKey, Reason: "root missing"}
	}
	if root.Parent() != "" {
		return nil, &InvariantError{Key: node.RootKey, Reason: "root has a parent"}
	}
	reachable := map[node.Key]bool{node.RootKey: true}
	stack := []*node.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for i := 0; i < n.ChildCount(); i++ {
			ck := n.ChildAt(i)
			c, ok := nodes[ck]
			if !ok {
				return nil, &InvariantError{Key: n.Key(), Reason: "child " + string(ck) + " missing"}
			}
			if reachable[ck] {
				return nil, &InvariantError{Key: ck, Reason: "reachable twice (cycle or duplicate child)"}
			}
			if c.Parent() != n.Key() {
				return nil, &InvariantError{Key: ck, Reason: "parent is " + string(c.Parent()) + ", listed under " + string(n.Key())}
			}
			reachable[ck] = true
			stack = append(stack, c)
		}
	}
	return reachable, nil
}

// IsFault reports whether err is a usage or invariant fault raised by the store.
func IsFault(err error) bool {
	return errors.Is(err, ErrNotInUpdate) ||
		errors.Is(err, ErrImmutable) ||
		errors.Is(err, ErrNodeNotFound) ||
		errors.Is(err, ErrKindMismatch) ||
		errors.Is(err, ErrUnknownType) ||
		errors.Is(err, ErrRootRemoval) ||
		errors.Is(err, ErrCycle) ||
		errors.Is(err, ErrDetached) ||
		errors.Is(err, ErrInvariant)
}
