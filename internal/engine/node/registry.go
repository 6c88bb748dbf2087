package node

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// Props is the host-agnostic description of a node's rendered element.
// The reconciler compares Props between snapshots and patches the host
// element only when they differ.
type Props struct {
	Tag   string
	Text  string
	Attrs map[string]string
}

// Equal reports whether two Props render identically.
func (p Props) Equal(o Props) bool {
	return p.Tag == o.Tag && p.Text == o.Text && maps.Equal(p.Attrs, o.Attrs)
}

// Spec is the function table for one node type.
//
// Only Type and Kind are required. Nil functions fall back to defaults:
// Clone copies payload shallowly, Export returns the attribute map, Import
// stores every attribute, Render derives Props from the node's payload.
type Spec struct {
	// Type is the tag stored on nodes of this kind.
	Type string

	// Kind is the structural kind of nodes of this type.
	Kind Kind

	// Tag is the host element tag used by the default renderer.
	Tag string

	// Clone fixes up a freshly cloned node; dst is writable.
	Clone func(dst, src *Node)

	// Export returns the payload attributes to serialize.
	Export func(n *Node) map[string]string

	// Import validates and applies serialized attributes to a writable node.
	Import func(n *Node, attrs map[string]string) error

	// Render describes the host element for the node.
	Render func(n *Node) Props
}

// Registry maps type tags to Specs. Each editor owns one.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates a registry holding the built-in types:
// root, paragraph, heading, quote and text.
func NewRegistry() *Registry {
	r := &Registry{specs: make(map[string]Spec)}
	for _, s := range builtinSpecs() {
		r.specs[s.Type] = s
	}
	return r
}

func builtinSpecs() []Spec {
	return []Spec{
		{Type: RootType, Kind: KindElement, Tag: "div"},
		{Type: "paragraph", Kind: KindElement, Tag: "p"},
		{
			Type: "heading",
			Kind: KindElement,
			Render: func(n *Node) Props {
				level, ok := n.Attr("level")
				if !ok {
					level = "1"
				}
				return Props{Tag: "h" + level}
			},
			Import: func(n *Node, attrs map[string]string) error {
				if level, ok := attrs["level"]; ok {
					if len(level) != 1 || level[0] < '1' || level[0] > '6' {
						return fmt.Errorf("heading level %q out of range", level)
					}
				}
				for k, v := range attrs {
					if err := n.SetAttr(k, v); err != nil {
						return err
					}
				}
				return nil
			},
		},
		{Type: "quote", Kind: KindElement, Tag: "blockquote"},
		{Type: "text", Kind: KindText, Tag: "span"},
	}
}

// Register adds a Spec.
func (r *Registry) Register(s Spec) error {
	if s.Type == "" {
		return fmt.Errorf("register: %w: empty type", ErrUnknownType)
	}
	if s.Kind > KindDecorator {
		return fmt.Errorf("register %s: invalid kind %d", s.Type, s.Kind)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.specs[s.Type]; ok {
		return fmt.Errorf("register %s: %w", s.Type, ErrDuplicateType)
	}
	r.specs[s.Type] = s
	return nil
}

// Lookup returns the Spec for a type tag.
func (r *Registry) Lookup(typ string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.specs[typ]
	return s, ok
}

// Types returns the registered type tags in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.specs))
}

// Clone returns a writable clone of n, applying the type's Clone fixup.
func (r *Registry) Clone(n *Node) *Node {
	c := n.Clone()
	if s, ok := r.Lookup(n.typ); ok && s.Clone != nil {
		s.Clone(c, n)
	}
	return c
}

// Export returns the payload attributes to serialize for n.
func (r *Registry) Export(n *Node) map[string]string {
	if s, ok := r.Lookup(n.typ); ok && s.Export != nil {
		return s.Export(n)
	}
	return n.Attrs()
}

// Import applies serialized attributes to a writable node.
func (r *Registry) Import(n *Node, attrs map[string]string) error {
	s, ok := r.Lookup(n.typ)
	if !ok {
		return fmt.Errorf("import %s: %w", n.typ, ErrUnknownType)
	}
	if s.Import != nil {
		return s.Import(n, attrs)
	}
	for _, k := range slices.Sorted(maps.Keys(attrs)) {
		if err := n.SetAttr(k, attrs[k]); err != nil {
			return err
		}
	}
	return nil
}

// Render returns the host Props for n.
func (r *Registry) Render(n *Node) Props {
	s, ok := r.Lookup(n.typ)
	if ok && s.Render != nil {
		return s.Render(n)
	}
	p := Props{Tag: s.Tag}
	if p.Tag == "" {
		p.Tag = n.typ
	}
	if len(n.attrs) > 0 {
		p.Attrs = n.Attrs()
	}
	if n.kind == KindText {
		p.Text = n.text
		if n.format != 0 {
			if p.Attrs == nil {
				p.Attrs = make(map[string]string)
			}
			p.Attrs["format"] = n.format.String()
		}
		if n.mode != ModeNormal {
			if p.Attrs == nil {
				p.Attrs = make(map[string]string)
			}
			p.Attrs["mode"] = n.mode.String()
		}
	}
	return p
}
