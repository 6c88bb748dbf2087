package selection

import "github.com/dshills/inkwell/internal/engine/node"

// Fragment is one piece of a split text leaf, covering [Start, End) of the
// original text in runes.
type Fragment struct {
	Key   node.Key
	Start int
	End   int
}

// RemapSplit rebases a point on a leaf that was split into frags.
//
// A point inside a fragment becomes (fragment, offset-start). A point on a
// boundary between two fragments resolves to the start of the following
// fragment; a point at the very end of the leaf stays at the end of the last
// fragment.
func RemapSplit(p Point, key node.Key, frags []Fragment) Point {
	if p.Key != key || p.Type != PointText || len(frags) == 0 {
		return p
	}
	last := len(frags) - 1
	for i, f := range frags {
		if p.Offset < f.End || i == last {
			off := p.Offset - f.Start
			if off < 0 {
				off = 0
			}
			if n := f.End - f.Start; off > n {
				off = n
			}
			return TextPoint(f.Key, off)
		}
	}
	return p
}

// RemapSplice rebases a text point after deleted runes at offset were
// replaced by inserted runes in the same leaf.
//
// Rules:
//   - splice entirely before the point: shift by the length delta
//   - splice starting at or after the point: unchanged
//   - splice spanning the point: move to the end of the inserted text
func RemapSplice(p Point, key node.Key, offset, deleted, inserted int) Point {
	if p.Key != key || p.Type != PointText {
		return p
	}
	end := offset + deleted
	switch {
	case end <= p.Offset:
		p.Offset = p.Offset - deleted + inserted
	case offset >= p.Offset:
	default:
		p.Offset = offset + inserted
	}
	return p
}

// RemapReplace rebases a point on old onto its replacement. The offset is
// clamped to the replacement's length and the point type follows its kind.
func RemapReplace(p Point, old node.Key, to Point) Point {
	if p.Key != old {
		return p
	}
	off := p.Offset
	if off > to.Offset {
		off = to.Offset
	}
	return Point{Key: to.Key, Offset: off, Type: to.Type}
}

// ShiftChildren adjusts an element point on parent after a child was
// inserted (delta > 0) or removed (delta < 0) at index.
func ShiftChildren(p Point, parent node.Key, index, delta int) Point {
	if p.Key != parent || p.Type != PointElement {
		return p
	}
	switch {
	case delta > 0 && index <= p.Offset:
		p.Offset += delta
	case delta < 0 && index < p.Offset:
		p.Offset += delta
		if p.Offset < index {
			p.Offset = index
		}
	}
	return p
}

// Rebase replaces p with fallback when affected reports its key.
func Rebase(p Point, affected func(node.Key) bool, fallback Point) Point {
	if affected(p.Key) {
		return fallback
	}
	return p
}

// Clamp validates p against the node it references. Element points are
// clamped to the child count, text points to the rune length; a text point
// on an element becomes an element point. It reports false when the point
// cannot address n at all (nil node or decorator).
func Clamp(p Point, n *node.Node) (Point, bool) {
	if n == nil || n.Key() != p.Key {
		return p, false
	}
	switch n.Kind() {
	case node.KindText:
		p.Type = PointText
	case node.KindElement:
		p.Type = PointElement
	default:
		return p, false
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	if l := n.Len(); p.Offset > l {
		p.Offset = l
	}
	return p, true
}
