package serialize

import (
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/selection"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Parse decodes a document produced by Stringify into a new snapshot. Every
// node receives a fresh key from keys. Nodes not reachable from the root are
// ignored. A selection whose paths no longer resolve is dropped.
func Parse(data []byte, reg *node.Registry, keys *node.KeyGen) (*store.State, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	doc := gjson.ParseBytes(data)
	if v := doc.Get("version"); v.Exists() && v.Int() != Version {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrMalformed, v.Int())
	}
	nodes := doc.Get("nodes")
	if !nodes.IsObject() {
		return nil, fmt.Errorf("%w: missing nodes object", ErrMalformed)
	}
	entries := make(map[string]gjson.Result)
	nodes.ForEach(func(k, v gjson.Result) bool {
		entries[k.String()] = v
		return true
	})

	root, ok := entries[string(node.RootKey)]
	if !ok {
		return nil, fmt.Errorf("%w: missing root", ErrMalformed)
	}
	if t := root.Get("type").String(); t != node.RootType {
		return nil, fmt.Errorf("%w: root has type %q", ErrMalformed, t)
	}

	tx := store.Begin(store.NewState(), reg, keys)
	p := &parser{tx: tx, reg: reg, entries: entries, seen: make(map[string]bool)}
	if err := p.build(node.RootKey, string(node.RootKey), root); err != nil {
		tx.Discard()
		return nil, err
	}
	if sel := doc.Get("selection"); sel.IsObject() {
		anchor, ok1 := p.point(sel.Get("anchor"))
		focus, ok2 := p.point(sel.Get("focus"))
		if ok1 && ok2 {
			if err := tx.SetSelection(selection.New(anchor, focus)); err != nil {
				tx.Discard()
				return nil, err
			}
		}
	}
	s, _, err := tx.Commit()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	return s, nil
}

type parser struct {
	tx      *store.Txn
	reg     *node.Registry
	entries map[string]gjson.Result
	seen    map[string]bool
}

// build applies the payload of entry to the node at key and recreates its
// children below it.
func (p *parser) build(key node.Key, id string, entry gjson.Result) error {
	if p.seen[id] {
		return fmt.Errorf("%w: node %s listed twice", ErrMalformed, id)
	}
	p.seen[id] = true

	n, err := p.tx.Writable(key)
	if err != nil {
		return err
	}
	if err := p.apply(n, id, entry); err != nil {
		return err
	}
	if !n.IsElement() {
		return nil
	}
	for _, c := range entry.Get("children").Array() {
		cid := c.String()
		ce, ok := p.entries[cid]
		if !ok {
			return fmt.Errorf("%w: node %s lists missing child %s", ErrMalformed, id, cid)
		}
		typ := ce.Get("type").String()
		if typ == node.RootType {
			return fmt.Errorf("%w: root listed as child of %s", ErrMalformed, id)
		}
		child, err := p.tx.Create(typ)
		if err != nil {
			return fmt.Errorf("decode %s: %w", cid, err)
		}
		if err := p.tx.Append(key, child.Key()); err != nil {
			return fmt.Errorf("decode %s: %w", cid, err)
		}
		if err := p.build(child.Key(), cid, ce); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) apply(n *node.Node, id string, entry gjson.Result) error {
	if k := entry.Get("kind"); k.Exists() {
		kind, ok := node.ParseKind(k.String())
		if !ok || kind != n.Kind() {
			return fmt.Errorf("%w: node %s kind %q does not match type %s", ErrMalformed, id, k.String(), n.Type())
		}
	}
	if n.IsText() {
		if err := n.SetText(entry.Get("text").String()); err != nil {
			return err
		}
		if f := entry.Get("format"); f.Exists() {
			format, ok := node.ParseFormat(f.String())
			if !ok {
				return fmt.Errorf("%w: node %s format %q", ErrMalformed, id, f.String())
			}
			if err := n.SetFormat(format); err != nil {
				return err
			}
		}
	}
	if a := entry.Get("attrs"); a.IsObject() {
		attrs := make(map[string]string)
		a.ForEach(func(k, v gjson.Result) bool {
			attrs[k.String()] = v.String()
			return true
		})
		if err := p.reg.Import(n, attrs); err != nil {
			return fmt.Errorf("decode %s attrs: %w", id, err)
		}
	}
	if n.IsText() {
		if m := entry.Get("mode"); m.Exists() {
			mode, ok := node.ParseMode(m.String())
			if !ok {
				return fmt.Errorf("%w: node %s mode %q", ErrMalformed, id, m.String())
			}
			if err := n.SetMode(mode); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *parser) point(r gjson.Result) (selection.Point, bool) {
	if !r.IsObject() {
		return selection.Point{}, false
	}
	var path []int
	for _, i := range r.Get("path").Array() {
		path = append(path, int(i.Int()))
	}
	n, ok := store.NodeAtPath(p.tx, path)
	if !ok {
		return selection.Point{}, false
	}
	typ, ok := selection.ParsePointType(r.Get("type").String())
	if !ok {
		return selection.Point{}, false
	}
	return selection.Point{Key: n.Key(), Offset: int(r.Get("offset").Int()), Type: typ}, true
}
