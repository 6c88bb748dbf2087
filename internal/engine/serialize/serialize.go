package serialize

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
	"github.com/tidwall/sjson"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Version is the document format version written by Stringify.
const Version = 1

// ErrMalformed indicates a document that is not a valid serialized snapshot.
var ErrMalformed = errors.New("malformed document")

// Stringify encodes s as compact JSON. Node payload attributes are taken
// from the registry's Export hooks.
func Stringify(s *store.State, reg *node.Registry) ([]byte, error) {
	doc, err := sjson.Set("", "version", Version)
	if err != nil {
		return nil, err
	}
	doc, err = sjson.SetRaw(doc, "nodes", "{}")
	if err != nil {
		return nil, err
	}
	for _, k := range s.Keys() {
		n, _ := s.Node(k)
		obj, err := encodeNode(n, reg)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		if doc, err = sjson.SetRaw(doc, "nodes."+gjson.Escape(string(k)), obj); err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
	}
	if sel := s.Selection(); sel != nil {
		obj, ok := encodeSelection(s, sel)
		if ok {
			if doc, err = sjson.SetRaw(doc, "selection", obj); err != nil {
				return nil, err
			}
		}
	}
	return []byte(doc), nil
}

// StringifyIndent is like Stringify but indents the output.
func StringifyIndent(s *store.State, reg *node.Registry) ([]byte, error) {
	b, err := Stringify(s, reg)
	if err != nil {
		return nil, err
	}
	return pretty.Pretty(b), nil
}

func encodeNode(n *node.Node, reg *node.Registry) (string, error) {
	obj := "{}"
	set := func(path string, v any) {
		if obj2, err := sjson.Set(obj, path, v); err == nil {
			obj = obj2
		}
	}
	set("type", n.Type())
	set("kind", n.Kind().String())
	if n.Parent() != "" {
		set("parent", string(n.Parent()))
	}
	switch n.Kind() {
	case node.KindElement:
		var err error
		if obj, err = sjson.SetRaw(obj, "children", "[]"); err != nil {
			return "", err
		}
		for _, c := range n.Children() {
			set("children.-1", string(c))
		}
	case node.KindText:
		set("text", n.Text())
		if n.Format() != 0 {
			set("format", n.Format().String())
		}
		if n.Mode() != node.ModeNormal {
			set("mode", n.Mode().String())
		}
	}
	attrs := reg.Export(n)
	if len(attrs) > 0 {
		a := "{}"
		for _, k := range slices.Sorted(maps.Keys(attrs)) {
			var err error
			if a, err = sjson.Set(a, gjson.Escape(k), attrs[k]); err != nil {
				return "", err
			}
		}
		var err error
		if obj, err = sjson.SetRaw(obj, "attrs", a); err != nil {
			return "", err
		}
	}
	return obj, nil
}

func encodeSelection(v store.View, sel *selection.Selection) (string, bool) {
	anchor, ok := encodePoint(v, sel.Anchor)
	if !ok {
		return "", false
	}
	focus, ok := encodePoint(v, sel.Focus)
	if !ok {
		return "", false
	}
	obj, _ := sjson.SetRaw("{}", "anchor", anchor)
	obj, _ = sjson.SetRaw(obj, "focus", focus)
	return obj, true
}

func encodePoint(v store.View, p selection.Point) (string, bool) {
	path, ok := store.Path(v, p.Key)
	if !ok {
		return "", false
	}
	obj, _ := sjson.SetRaw("{}", "path", "[]")
	for _, i := range path {
		obj, _ = sjson.Set(obj, "path.-1", i)
	}
	obj, _ = sjson.Set(obj, "offset", p.Offset)
	obj, _ = sjson.Set(obj, "type", p.Type.String())
	return obj, true
}
