// Package core provides the cell and style types shared by the terminal
// backend and the document surface.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"
)

// Attribute represents text rendering attributes.
type Attribute uint16

const (
	AttrNone      Attribute = 0
	AttrBold      Attribute = 1 << iota
	AttrDim
	AttrItalic
	AttrUnderline
	AttrReverse
	AttrStrikethrough
)

// Has returns true if the attribute set contains attr.
func (a Attribute) Has(attr Attribute) bool {
	return a&attr != 0
}

// With returns a new attribute set with attr added.
func (a Attribute) With(attr Attribute) Attribute {
	return a | attr
}

// Color represents a terminal color: default, a palette index, or RGB.
type Color struct {
	R, G, B uint8

	// Indexed means R holds a palette index.
	Indexed bool

	// Default means the terminal's default color.
	Default bool
}

// ColorDefault is the terminal's default color.
var ColorDefault = Color{Default: true}

// ColorFromRGB creates a true color.
func ColorFromRGB(r, g, b uint8) Color {
	return Color{R: r, G: g, B: b}
}

// ColorFromIndex creates a palette color.
func ColorFromIndex(index uint8) Color {
	return Color{R: index, Indexed: true}
}

// ParseColor parses "#rrggbb", "#rgb", a palette index such as "75", or
// "default".
func ParseColor(s string) (Color, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "default" {
		return ColorDefault, nil
	}
	if !strings.HasPrefix(s, "#") {
		n, err := strconv.ParseUint(s, 10, 8)
		if err != nil {
			return ColorDefault, fmt.Errorf("invalid color %q", s)
		}
		return ColorFromIndex(uint8(n)), nil
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return ColorDefault, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return ColorDefault, fmt.Errorf("invalid color %q", s)
	}
	return ColorFromRGB(uint8(v>>16), uint8(v>>8), uint8(v)), nil
}

// IsDefault returns true for the default color.
func (c Color) IsDefault() bool {
	return c.Default
}

// String returns the color as ParseColor accepts it.
func (c Color) String() string {
	switch {
	case c.Default:
		return "default"
	case c.Indexed:
		return strconv.Itoa(int(c.R))
	default:
		return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
}

// Style combines colors and attributes.
type Style struct {
	Foreground Color
	Background Color
	Attributes Attribute
}

// DefaultStyle returns the terminal's default style.
func DefaultStyle() Style {
	return Style{Foreground: ColorDefault, Background: ColorDefault}
}

// WithForeground returns a copy with the foreground set.
func (s Style) WithForeground(fg Color) Style {
	s.Foreground = fg
	return s
}

// WithBackground returns a copy with the background set.
func (s Style) WithBackground(bg Color) Style {
	s.Background = bg
	return s
}

// WithAttributes returns a copy with attrs added.
func (s Style) WithAttributes(attrs Attribute) Style {
	s.Attributes |= attrs
	return s
}

// Cell is one terminal cell. A wide grapheme occupies its cell and a
// following continuation cell with Width 0.
type Cell struct {
	// Grapheme is the user-perceived character drawn in the cell.
	Grapheme string

	// Width is 0 for continuation cells, otherwise 1 or 2.
	Width int

	Style Style
}

// EmptyCell returns a blank cell with default style.
func EmptyCell() Cell {
	return Cell{Grapheme: " ", Width: 1, Style: DefaultStyle()}
}

// IsContinuation returns true for the second half of a wide grapheme.
func (c Cell) IsContinuation() bool {
	return c.Width == 0
}

// Runes returns the main rune and combining runes of the grapheme.
func (c Cell) Runes() (rune, []rune) {
	rs := []rune(c.Grapheme)
	if len(rs) == 0 {
		return ' ', nil
	}
	return rs[0], rs[1:]
}

// StringWidth returns the display width of s in cells.
func StringWidth(s string) int {
	return uniseg.StringWidth(s)
}

// CellsFromString splits s into grapheme cells, appending a continuation
// cell after each wide grapheme.
func CellsFromString(s string, style Style) []Cell {
	cells := make([]Cell, 0, len(s))
	state := -1
	for len(s) > 0 {
		var cluster string
		var width int
		cluster, s, width, state = uniseg.FirstGraphemeClusterInString(s, state)
		if width == 0 {
			continue
		}
		cells = append(cells, Cell{Grapheme: cluster, Width: width, Style: style})
		for i := 1; i < width; i++ {
			cells = append(cells, Cell{Style: style})
		}
	}
	return cells
}
