// Package viewport tracks which rows and columns of a laid-out document are
// visible on screen.
package viewport

import "sync"

// Viewport represents the visible portion of the document.
type Viewport struct {
	mu sync.RWMutex

	// First visible row and column
	topRow     int
	leftColumn int

	// Size in screen cells
	width  int
	height int

	// Scroll margins (keep the caret this far from edges)
	margins MarginConfig

	// Number of rows in the document
	rows int
}

// NewViewport creates a viewport with the given size.
// Width and height are clamped to a minimum of 1.
func NewViewport(width, height int) *Viewport {
	return &Viewport{
		width:   max(width, 1),
		height:  max(height, 1),
		margins: DefaultMargins(),
	}
}

// Width returns the viewport width.
func (v *Viewport) Width() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.width
}

// Height returns the viewport height.
func (v *Viewport) Height() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.height
}

// TopRow returns the first visible row.
func (v *Viewport) TopRow() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.topRow
}

// LeftColumn returns the first visible column.
func (v *Viewport) LeftColumn() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.leftColumn
}

// Resize updates the viewport size.
func (v *Viewport) Resize(width, height int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.width = max(width, 1)
	v.height = max(height, 1)
	v.clampTop()
}

// SetRows sets the number of document rows and clamps the scroll position.
func (v *Viewport) SetRows(rows int) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.rows = max(rows, 0)
	v.clampTop()
}

func (v *Viewport) clampTop() {
	limit := max(v.rows-v.height, 0)
	if v.topRow > limit {
		v.topRow = limit
	}
}

// VisibleRows returns the half-open range of visible rows.
func (v *Viewport) VisibleRows() (start, end int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.topRow, min(v.topRow+v.height, v.rows)
}

// ToScreen converts document coordinates to screen coordinates. ok is false
// when the position is outside the viewport.
func (v *Viewport) ToScreen(row, col int) (x, y int, ok bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	x, y = col-v.leftColumn, row-v.topRow
	return x, y, x >= 0 && x < v.width && y >= 0 && y < v.height
}

// ScrollToReveal scrolls minimally to reveal a position, keeping the
// configured margins around it. Returns true if scrolling occurred.
func (v *Viewport) ScrollToReveal(row, col int) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := v.clampMargins(v.margins)
	top, left := v.topRow, v.leftColumn

	if row < top+m.Top {
		top = max(row-m.Top, 0)
	} else if row > top+v.height-1-m.Bottom {
		top = row - v.height + 1 + m.Bottom
	}

	if col < left+m.Left {
		left = max(col-m.Left, 0)
	} else if col > left+v.width-1-m.Right {
		left = col - v.width + 1 + m.Right
	}

	if top == v.topRow && left == v.leftColumn {
		return false
	}
	v.topRow, v.leftColumn = top, left
	return true
}
