package style

import (
	"strings"

	"github.com/dshills/inkwell/internal/renderer/core"
)

// Theme maps element tags and text formats to styles.
type Theme struct {
	// Blocks is keyed by element tag, for example "h1" or "blockquote".
	Blocks map[string]core.Style

	// Formats is keyed by format name, for example "bold".
	Formats map[string]core.Style

	// Decorator styles rendered decorator content.
	Decorator core.Style

	// Selection highlights a non-collapsed selection.
	Selection core.Style

	// QuotePrefix is drawn before each blockquote line.
	QuotePrefix string
}

// DefaultTheme returns the built-in theme with the given heading color.
func DefaultTheme(heading core.Color) Theme {
	h := core.DefaultStyle().WithForeground(heading).WithAttributes(core.AttrBold)
	t := Theme{
		Blocks: map[string]core.Style{
			"blockquote": core.DefaultStyle().WithAttributes(core.AttrDim | core.AttrItalic),
		},
		Formats: map[string]core.Style{
			"bold":          core.DefaultStyle().WithAttributes(core.AttrBold),
			"italic":        core.DefaultStyle().WithAttributes(core.AttrItalic),
			"underline":     core.DefaultStyle().WithAttributes(core.AttrUnderline),
			"strikethrough": core.DefaultStyle().WithAttributes(core.AttrStrikethrough),
			"code":          core.DefaultStyle().WithAttributes(core.AttrReverse),
		},
		Decorator:   core.DefaultStyle().WithForeground(heading).WithAttributes(core.AttrUnderline),
		Selection:   core.DefaultStyle().WithBackground(core.ColorFromRGB(60, 90, 130)),
		QuotePrefix: "│ ",
	}
	for _, level := range "123456" {
		t.Blocks["h"+string(level)] = h
	}
	return t
}

// Block returns the style for an element tag.
func (t Theme) Block(tag string) (core.Style, bool) {
	s, ok := t.Blocks[tag]
	return s, ok
}

// Format combines the styles of a "|"-separated format list such as
// "bold|code". Unknown names are ignored.
func (t Theme) Format(format string) core.Style {
	s := core.DefaultStyle()
	if format == "" {
		return s
	}
	for name := range strings.SplitSeq(format, "|") {
		if fs, ok := t.Formats[name]; ok {
			s = mergeStyle(s, fs, MergeOverlay)
		}
	}
	return s
}
