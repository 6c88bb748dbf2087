// Package style resolves cell styles from layered spans: block styling,
// inline formats and the selection highlight.
package style

import (
	"github.com/dshills/inkwell/internal/renderer/core"
)

// Layer represents a style layer with priority.
type Layer uint8

const (
	// LayerBase is the base/default style layer.
	LayerBase Layer = iota

	// LayerBlock carries block styling such as headings and quotes.
	LayerBlock

	// LayerFormat carries inline text formats.
	LayerFormat

	// LayerSelection is the selection highlight layer (highest priority).
	LayerSelection

	// LayerCount is the number of layers.
	LayerCount
)

// String returns the string representation of the layer.
func (l Layer) String() string {
	switch l {
	case LayerBase:
		return "base"
	case LayerBlock:
		return "block"
	case LayerFormat:
		return "format"
	case LayerSelection:
		return "selection"
	default:
		return "unknown"
	}
}

// Span represents a styled span at a specific layer.
type Span struct {
	// StartCol is the starting column (inclusive).
	StartCol int

	// EndCol is the ending column (exclusive).
	EndCol int

	Style core.Style
	Layer Layer
	Merge MergeMode
}

// MergeMode determines how styles are merged.
type MergeMode uint8

const (
	// MergeOverlay overlays onto lower layers (preserves default colors).
	MergeOverlay MergeMode = iota

	// MergeReplace replaces all lower layer styles.
	MergeReplace

	// MergeAttributes only adds attributes, preserves colors.
	MergeAttributes
)

// Resolver resolves styles by combining multiple layers.
type Resolver struct {
	baseStyle    core.Style
	layerEnabled [LayerCount]bool
}

// NewResolver creates a new style resolver with all layers enabled.
func NewResolver() *Resolver {
	r := &Resolver{baseStyle: core.DefaultStyle()}
	for i := range r.layerEnabled {
		r.layerEnabled[i] = true
	}
	return r
}

// SetBaseStyle sets the base style.
func (r *Resolver) SetBaseStyle(style core.Style) {
	r.baseStyle = style
}

// SetLayerEnabled enables or disables a layer.
func (r *Resolver) SetLayerEnabled(layer Layer, enabled bool) {
	if layer < LayerCount {
		r.layerEnabled[layer] = enabled
	}
}

// IsLayerEnabled returns true if a layer is enabled.
func (r *Resolver) IsLayerEnabled(layer Layer) bool {
	return layer < LayerCount && r.layerEnabled[layer]
}

// Resolve combines styles from multiple spans at a specific column.
func (r *Resolver) Resolve(col int, spans []Span) core.Style {
	result := r.baseStyle

	// Lower layers first
	for layer := LayerBase; layer < LayerCount; layer++ {
		if !r.layerEnabled[layer] {
			continue
		}
		for _, span := range spans {
			if span.Layer != layer || col < span.StartCol || col >= span.EndCol {
				continue
			}
			result = mergeStyle(result, span.Style, span.Merge)
		}
	}

	return result
}

// ResolveLine returns a copy of cells with each style resolved.
func (r *Resolver) ResolveLine(cells []core.Cell, spans []Span) []core.Cell {
	result := make([]core.Cell, len(cells))
	copy(result, cells)
	for i := range result {
		result[i].Style = r.Resolve(i, spans)
	}
	return result
}

func mergeStyle(base, overlay core.Style, mode MergeMode) core.Style {
	switch mode {
	case MergeReplace:
		return overlay

	case MergeAttributes:
		base.Attributes |= overlay.Attributes
		return base

	default:
		if !overlay.Foreground.IsDefault() {
			base.Foreground = overlay.Foreground
		}
		if !overlay.Background.IsDefault() {
			base.Background = overlay.Background
		}
		base.Attributes |= overlay.Attributes
		return base
	}
}
