package viewport

// MarginConfig holds scroll margin configuration.
type MarginConfig struct {
	Top    int // Rows to keep above the caret
	Bottom int // Rows to keep below the caret
	Left   int // Columns to keep left of the caret
	Right  int // Columns to keep right of the caret
}

// DefaultMargins returns the default margins.
func DefaultMargins() MarginConfig {
	return MarginConfig{Top: 2, Bottom: 2, Left: 8, Right: 8}
}

// NoMargins returns zero margins (caret can go to edge).
func NoMargins() MarginConfig {
	return MarginConfig{}
}

// SetMargins replaces the scroll margins.
func (v *Viewport) SetMargins(config MarginConfig) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.margins = config
}

// EffectiveMargins returns margins adjusted for viewport size.
func (v *Viewport) EffectiveMargins() MarginConfig {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.clampMargins(v.margins)
}

// maxMarginRatio limits margins to 1/3 of viewport dimension to ensure
// there's always usable space in the center.
const maxMarginRatio = 3

// clampMargins applies viewport size constraints to margins (internal, no lock).
func (v *Viewport) clampMargins(config MarginConfig) MarginConfig {
	maxVertical := v.height / maxMarginRatio
	config.Top = min(config.Top, maxVertical)
	config.Bottom = min(config.Bottom, maxVertical)

	maxHorizontal := v.width / maxMarginRatio
	config.Left = min(config.Left, maxHorizontal)
	config.Right = min(config.Right, maxHorizontal)
	return config
}
