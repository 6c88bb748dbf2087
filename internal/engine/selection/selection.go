package selection

import (
	"fmt"

	"github.com/dshills/inkwell/internal/engine/node"
)

// PointType distinguishes text offsets from child-list offsets.
type PointType uint8

const (
	// PointText offsets count runes inside a text leaf.
	PointText PointType = iota

	// PointElement offsets count children of an element.
	PointElement
)

// String returns the string representation of the point type.
func (t PointType) String() string {
	switch t {
	case PointText:
		return "text"
	case PointElement:
		return "element"
	default:
		return "unknown"
	}
}

// ParsePointType parses a name produced by PointType.String.
func ParsePointType(s string) (PointType, bool) {
	switch s {
	case "text":
		return PointText, true
	case "element":
		return PointElement, true
	}
	return 0, false
}

// Point is a caret or boundary location. Point is an immutable value type.
type Point struct {
	Key    node.Key
	Offset int
	Type   PointType
}

// TextPoint creates a point at a rune offset inside a text leaf.
func TextPoint(key node.Key, offset int) Point {
	return Point{Key: key, Offset: offset, Type: PointText}
}

// ElementPoint creates a point before child index offset of an element.
func ElementPoint(key node.Key, offset int) Point {
	return Point{Key: key, Offset: offset, Type: PointElement}
}

// String returns a compact representation such as "k-3:7(text)".
func (p Point) String() string {
	return fmt.Sprintf("%s:%d(%s)", p.Key, p.Offset, p.Type)
}

// Selection is an anchor/focus pair. The zero value is not meaningful;
// a nil *Selection means "no selection".
type Selection struct {
	Anchor Point
	Focus  Point
}

// New creates a selection from anchor to focus.
func New(anchor, focus Point) *Selection {
	return &Selection{Anchor: anchor, Focus: focus}
}

// Collapsed creates a caret at p.
func Collapsed(p Point) *Selection {
	return &Selection{Anchor: p, Focus: p}
}

// IsCollapsed reports whether anchor equals focus.
func (s *Selection) IsCollapsed() bool {
	return s.Anchor == s.Focus
}

// Clone returns a copy, or nil for nil.
func (s *Selection) Clone() *Selection {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}

// Map returns a new selection with fn applied to both points.
func (s *Selection) Map(fn func(Point) Point) *Selection {
	if s == nil {
		return nil
	}
	return &Selection{Anchor: fn(s.Anchor), Focus: fn(s.Focus)}
}

// Keys returns the distinct keys referenced by the selection.
func (s *Selection) Keys() []node.Key {
	if s == nil {
		return nil
	}
	if s.Anchor.Key == s.Focus.Key {
		return []node.Key{s.Anchor.Key}
	}
	return []node.Key{s.Anchor.Key, s.Focus.Key}
}

// String returns a compact representation.
func (s *Selection) String() string {
	if s == nil {
		return "<none>"
	}
	if s.IsCollapsed() {
		return s.Anchor.String()
	}
	return s.Anchor.String() + ".." + s.Focus.String()
}

// Equal reports whether two selections are equal. Two nil selections are equal.
func Equal(a, b *Selection) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
