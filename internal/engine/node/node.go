package node

import (
	"maps"
	"slices"
	"unicode/utf8"
)

// Key identifies a node for its whole lifetime. Keys are never reused.
type Key string

// RootKey is the key of the document root.
const RootKey Key = "root"

// RootType is the type tag of the document root.
const RootType = "root"

// Node is a single document node.
//
// Nodes obtained from a committed snapshot are frozen: getters are safe to
// call from anywhere, setters return ErrNotInUpdate. Writable nodes come from
// a transaction (store.Txn.Writable or one of its constructors).
type Node struct {
	key      Key
	typ      string
	kind     Kind
	parent   Key
	children []Key
	text     string
	format   Format
	mode     Mode
	attrs    map[string]string
	writable bool
}

// New creates a writable node with no parent and no payload.
func New(key Key, typ string, kind Kind) *Node {
	return &Node{key: key, typ: typ, kind: kind, writable: true}
}

// Key returns the node key.
func (n *Node) Key() Key { return n.key }

// Type returns the node's type tag.
func (n *Node) Type() string { return n.typ }

// Kind returns the node's structural kind.
func (n *Node) Kind() Kind { return n.kind }

// Parent returns the parent key, or "" for the root and detached nodes.
func (n *Node) Parent() Key { return n.parent }

// IsElement reports whether the node is an element.
func (n *Node) IsElement() bool { return n.kind == KindElement }

// IsText reports whether the node is a text leaf.
func (n *Node) IsText() bool { return n.kind == KindText }

// IsDecorator reports whether the node is a decorator leaf.
func (n *Node) IsDecorator() bool { return n.kind == KindDecorator }

// IsWritable reports whether the node belongs to an open transaction.
func (n *Node) IsWritable() bool { return n.writable }

// Children returns a copy of the child key list.
func (n *Node) Children() []Key { return slices.Clone(n.children) }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.children) }

// ChildAt returns the i-th child key, or "" when i is out of range.
func (n *Node) ChildAt(i int) Key {
	if i < 0 || i >= len(n.children) {
		return ""
	}
	return n.children[i]
}

// ChildIndex returns the index of key in the child list, or -1.
func (n *Node) ChildIndex(key Key) int {
	return slices.Index(n.children, key)
}

// Text returns the text content of a text leaf.
func (n *Node) Text() string { return n.text }

// TextLen returns the text length in runes.
func (n *Node) TextLen() int { return utf8.RuneCountInString(n.text) }

// Format returns the format bitmask.
func (n *Node) Format() Format { return n.format }

// Mode returns the mutability class.
func (n *Node) Mode() Mode { return n.mode }

// Attr returns a payload attribute.
func (n *Node) Attr(name string) (string, bool) {
	v, ok := n.attrs[name]
	return v, ok
}

// Attrs returns a copy of the payload attributes.
func (n *Node) Attrs() map[string]string { return maps.Clone(n.attrs) }

// Len returns the extent a selection point may address inside the node:
// rune count for text, child count for elements, zero for decorators.
func (n *Node) Len() int {
	switch n.kind {
	case KindText:
		return n.TextLen()
	case KindElement:
		return len(n.children)
	default:
		return 0
	}
}

// Clone returns a writable shallow copy with the same key.
// The child list and attributes are copied; nothing else is shared mutably.
func (n *Node) Clone() *Node {
	c := *n
	c.children = slices.Clone(n.children)
	c.attrs = maps.Clone(n.attrs)
	c.writable = true
	return &c
}

// Freeze makes the node read-only.
func (n *Node) Freeze() { n.writable = false }

func (n *Node) checkWritable() error {
	if !n.writable {
		return ErrNotInUpdate
	}
	return nil
}

// SetParent sets the parent back-reference.
//
// This is a low-level primitive: the store keeps parent and child lists in
// sync; a mismatch left at commit is an invariant fault.
func (n *Node) SetParent(parent Key) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	n.parent = parent
	return nil
}

// InsertChild inserts key into the child list at index i.
// Low-level; see SetParent.
func (n *Node) InsertChild(i int, key Key) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	if n.kind != KindElement {
		return ErrKindMismatch
	}
	if i < 0 || i > len(n.children) {
		i = len(n.children)
	}
	n.children = slices.Insert(n.children, i, key)
	return nil
}

// ReplaceChild swaps old for repl in place and returns the index, or -1 if
// old was not a child. Low-level; see SetParent.
func (n *Node) ReplaceChild(old, repl Key) (int, error) {
	if err := n.checkWritable(); err != nil {
		return -1, err
	}
	i := slices.Index(n.children, old)
	if i < 0 {
		return -1, nil
	}
	n.children[i] = repl
	return i, nil
}

// SameChildren reports whether n and o have identical child lists.
func (n *Node) SameChildren(o *Node) bool {
	return slices.Equal(n.children, o.children)
}

// RemoveChild removes key from the child list and returns its former index,
// or -1 if it was not a child. Low-level; see SetParent.
func (n *Node) RemoveChild(key Key) (int, error) {
	if err := n.checkWritable(); err != nil {
		return -1, err
	}
	i := slices.Index(n.children, key)
	if i < 0 {
		return -1, nil
	}
	n.children = slices.Delete(n.children, i, i+1)
	return i, nil
}

// SetText replaces the whole text content. Immutable leaves reject it.
func (n *Node) SetText(s string) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	if n.kind != KindText {
		return ErrKindMismatch
	}
	if n.mode == ModeImmutable {
		return &ImmutableError{Key: n.key, Mode: n.mode, Op: "set text"}
	}
	n.text = s
	return nil
}

// SetFormat replaces the format bitmask.
func (n *Node) SetFormat(f Format) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	if n.kind != KindText {
		return ErrKindMismatch
	}
	n.format = f
	return nil
}

// SetMode replaces the mutability class.
func (n *Node) SetMode(m Mode) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	if n.kind != KindText {
		return ErrKindMismatch
	}
	n.mode = m
	return nil
}

// SetAttr sets a payload attribute.
func (n *Node) SetAttr(name, value string) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	if n.attrs == nil {
		n.attrs = make(map[string]string)
	}
	n.attrs[name] = value
	return nil
}

// DeleteAttr removes a payload attribute.
func (n *Node) DeleteAttr(name string) error {
	if err := n.checkWritable(); err != nil {
		return err
	}
	delete(n.attrs, name)
	return nil
}

// RuneOffsetToByte converts a rune offset into a byte index into s.
// Offsets past the end clamp to len(s).
func RuneOffsetToByte(s string, offset int) int {
	if offset <= 0 {
		return 0
	}
	i := 0
	for b := range s {
		if i == offset {
			return b
		}
		i++
	}
	return len(s)
}
