package renderer

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/reconciler"
)

// Errors returned by the memory host.
var (
	// ErrUnknownElement indicates an operation on a key with no element.
	ErrUnknownElement = errors.New("unknown element")

	// ErrElementExists indicates a Create for a key that already has an element.
	ErrElementExists = errors.New("element already exists")
)

// Action is the kind of a recorded host mutation.
type Action int

// Host mutation kinds.
const (
	ActionInvalid Action = iota
	ActionCreate
	ActionInsert
	ActionRemove
	ActionModify
	ActionSelect
)

// String returns the action name.
func (a Action) String() string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionInsert:
		return "insert"
	case ActionRemove:
		return "remove"
	case ActionModify:
		return "modify"
	case ActionSelect:
		return "select"
	default:
		return "invalid"
	}
}

// Update is one recorded host mutation.
type Update struct {
	Action       Action
	NodeID       node.Key
	ParentNodeID node.Key // Set for inserts.
	BeforeNodeID node.Key // Set for inserts before a sibling; "" appends.
	Props        node.Props
}

// String returns a compact representation such as "insert k-2 into k-1".
func (u Update) String() string {
	switch u.Action {
	case ActionInsert:
		if u.BeforeNodeID != "" {
			return fmt.Sprintf("insert %s into %s before %s", u.NodeID, u.ParentNodeID, u.BeforeNodeID)
		}
		return fmt.Sprintf("insert %s into %s", u.NodeID, u.ParentNodeID)
	default:
		return u.Action.String() + " " + string(u.NodeID)
	}
}

// Element is a host element held by Memory.
type Element struct {
	Key      node.Key
	Props    node.Props
	Parent   node.Key
	Children []node.Key

	// Slot is the decorator container: decorators write their rendered
	// content here.
	Slot *Slot
}

// Slot is the container handed to decorators.
type Slot struct {
	Content string
}

// Memory is an in-memory Host. It keeps a keyed element tree and a log of
// every mutation, which makes it useful for tests and headless runs.
type Memory struct {
	elems    map[node.Key]*Element
	attached bool
	sel      *reconciler.HostSelection
	log      []Update
}

var _ reconciler.Host = (*Memory)(nil)

// NewMemory creates an empty memory host.
func NewMemory() *Memory {
	return &Memory{elems: make(map[node.Key]*Element)}
}

// Create implements reconciler.Host.
func (m *Memory) Create(key node.Key, props node.Props) error {
	if _, ok := m.elems[key]; ok {
		return fmt.Errorf("create %s: %w", key, ErrElementExists)
	}
	m.elems[key] = &Element{Key: key, Props: cloneProps(props), Slot: &Slot{}}
	m.log = append(m.log, Update{Action: ActionCreate, NodeID: key, Props: cloneProps(props)})
	return nil
}

// Update implements reconciler.Host.
func (m *Memory) Update(key node.Key, props node.Props) error {
	e, ok := m.elems[key]
	if !ok {
		return fmt.Errorf("update %s: %w", key, ErrUnknownElement)
	}
	e.Props = cloneProps(props)
	m.log = append(m.log, Update{Action: ActionModify, NodeID: key, Props: cloneProps(props)})
	return nil
}

// Insert implements reconciler.Host.
func (m *Memory) Insert(parent, key, before node.Key) error {
	e, ok := m.elems[key]
	if !ok {
		return fmt.Errorf("insert %s: %w", key, ErrUnknownElement)
	}
	if parent == "" {
		m.unlink(e)
		m.attached = true
		m.log = append(m.log, Update{Action: ActionInsert, NodeID: key})
		return nil
	}
	p, ok := m.elems[parent]
	if !ok {
		return fmt.Errorf("insert %s into %s: %w", key, parent, ErrUnknownElement)
	}
	m.unlink(e)
	i := len(p.Children)
	if before != "" {
		if j := slices.Index(p.Children, before); j >= 0 {
			i = j
		}
	}
	p.Children = slices.Insert(p.Children, i, key)
	e.Parent = parent
	m.log = append(m.log, Update{Action: ActionInsert, NodeID: key, ParentNodeID: parent, BeforeNodeID: before})
	return nil
}

func (m *Memory) unlink(e *Element) {
	if p, ok := m.elems[e.Parent]; ok {
		if i := slices.Index(p.Children, e.Key); i >= 0 {
			p.Children = slices.Delete(p.Children, i, i+1)
		}
	}
	e.Parent = ""
}

// Remove implements reconciler.Host.
func (m *Memory) Remove(key node.Key) error {
	e, ok := m.elems[key]
	if !ok {
		return fmt.Errorf("remove %s: %w", key, ErrUnknownElement)
	}
	m.unlink(e)
	m.drop(e)
	if key == node.RootKey {
		m.attached = false
	}
	m.log = append(m.log, Update{Action: ActionRemove, NodeID: key})
	return nil
}

func (m *Memory) drop(e *Element) {
	for _, c := range e.Children {
		if ce, ok := m.elems[c]; ok {
			m.drop(ce)
		}
	}
	delete(m.elems, e.Key)
}

// Container implements reconciler.Host. The container is the element's *Slot.
func (m *Memory) Container(key node.Key) (any, bool) {
	e, ok := m.elems[key]
	if !ok {
		return nil, false
	}
	return e.Slot, true
}

// Selection implements reconciler.Host.
func (m *Memory) Selection() *reconciler.HostSelection {
	if m.sel == nil {
		return nil
	}
	s := *m.sel
	return &s
}

// SetSelection implements reconciler.Host.
func (m *Memory) SetSelection(sel *reconciler.HostSelection) error {
	if sel != nil {
		for _, k := range []node.Key{sel.Anchor.Key, sel.Focus.Key} {
			if _, ok := m.elems[k]; !ok {
				return fmt.Errorf("select %s: %w", k, ErrUnknownElement)
			}
		}
		s := *sel
		sel = &s
	}
	m.sel = sel
	m.log = append(m.log, Update{Action: ActionSelect})
	return nil
}

// Select sets the host selection without recording it, as a user gesture
// would.
func (m *Memory) Select(sel *reconciler.HostSelection) {
	m.sel = sel
}

// Element returns the element for key.
func (m *Memory) Element(key node.Key) (*Element, bool) {
	e, ok := m.elems[key]
	return e, ok
}

// Len returns the number of elements.
func (m *Memory) Len() int {
	return len(m.elems)
}

// Attached reports whether a root element has been placed.
func (m *Memory) Attached() bool {
	return m.attached
}

// Updates returns the recorded mutations.
func (m *Memory) Updates() []Update {
	return slices.Clone(m.log)
}

// ResetUpdates clears the mutation log.
func (m *Memory) ResetUpdates() {
	m.log = m.log[:0]
}

// Text returns the text of the attached tree with top-level blocks on
// separate lines.
func (m *Memory) Text() string {
	root, ok := m.elems[node.RootKey]
	if !ok || !m.attached {
		return ""
	}
	lines := make([]string, 0, len(root.Children))
	for _, c := range root.Children {
		lines = append(lines, m.text(c))
	}
	return strings.Join(lines, "\n")
}

func (m *Memory) text(key node.Key) string {
	e, ok := m.elems[key]
	if !ok {
		return ""
	}
	if len(e.Children) == 0 {
		if e.Props.Text != "" {
			return e.Props.Text
		}
		return e.Slot.Content
	}
	var sb strings.Builder
	for _, c := range e.Children {
		sb.WriteString(m.text(c))
	}
	return sb.String()
}

// Markup renders the attached tree as tag markup, for example
// <div><p><span format="bold">Hi</span></p></div>.
func (m *Memory) Markup() string {
	if !m.attached {
		return ""
	}
	var sb strings.Builder
	m.markup(&sb, node.RootKey)
	return sb.String()
}

func (m *Memory) markup(sb *strings.Builder, key node.Key) {
	e, ok := m.elems[key]
	if !ok {
		return
	}
	sb.WriteString("<" + e.Props.Tag)
	names := make([]string, 0, len(e.Props.Attrs))
	for k := range e.Props.Attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(sb, " %s=%q", k, e.Props.Attrs[k])
	}
	sb.WriteString(">")
	sb.WriteString(e.Props.Text)
	sb.WriteString(e.Slot.Content)
	for _, c := range e.Children {
		m.markup(sb, c)
	}
	sb.WriteString("</" + e.Props.Tag + ">")
}

func cloneProps(p node.Props) node.Props {
	p.Attrs = maps.Clone(p.Attrs)
	return p
}
