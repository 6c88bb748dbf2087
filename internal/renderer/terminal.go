package renderer

import (
	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/reconciler"
	"github.com/dshills/inkwell/internal/renderer/backend"
	"github.com/dshills/inkwell/internal/renderer/core"
	"github.com/dshills/inkwell/internal/renderer/style"
	"github.com/dshills/inkwell/internal/renderer/viewport"
)

// Terminal is a Host that paints the element tree onto a terminal backend.
// The element tree itself is kept by the embedded Memory; Draw lays it out
// with one row per top-level block and places the caret at the selection
// focus.
type Terminal struct {
	*Memory

	backend  backend.Backend
	viewport *viewport.Viewport
	theme    style.Theme
	resolver *style.Resolver

	rows []row
	pos  map[node.Key]position
}

var _ reconciler.Host = (*Terminal)(nil)

// row is one laid-out block.
type row struct {
	key   node.Key
	cells []core.Cell
	spans []style.Span
}

// position records where an element landed: its row and the half-open
// column range it covers.
type position struct {
	row        int
	start, end int
	text       string
	leaf       bool
}

// TerminalOption configures a Terminal.
type TerminalOption func(*Terminal)

// WithTheme sets the theme.
func WithTheme(theme style.Theme) TerminalOption {
	return func(t *Terminal) {
		t.theme = theme
	}
}

// WithMargins sets the scroll margins kept around the caret.
func WithMargins(m viewport.MarginConfig) TerminalOption {
	return func(t *Terminal) {
		t.viewport.SetMargins(m)
	}
}

// NewTerminal creates a terminal host drawing to b.
func NewTerminal(b backend.Backend, opts ...TerminalOption) *Terminal {
	w, h := b.Size()
	t := &Terminal{
		Memory:   NewMemory(),
		backend:  b,
		viewport: viewport.NewViewport(w, h),
		theme:    style.DefaultTheme(core.ColorFromIndex(4)),
		resolver: style.NewResolver(),
		pos:      make(map[node.Key]position),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Backend returns the backend being drawn to.
func (t *Terminal) Backend() backend.Backend {
	return t.backend
}

// Viewport returns the viewport.
func (t *Terminal) Viewport() *viewport.Viewport {
	return t.viewport
}

// Draw lays out the attached tree and paints the visible part of it.
func (t *Terminal) Draw() {
	w, h := t.backend.Size()
	t.viewport.Resize(w, h)
	t.layout()
	t.viewport.SetRows(len(t.rows))

	caretRow, caretCol, hasCaret := t.Caret()
	if hasCaret {
		t.viewport.ScrollToReveal(caretRow, caretCol)
	}
	t.highlight()

	t.backend.Clear()
	start, end := t.viewport.VisibleRows()
	for r := start; r < end; r++ {
		cells := t.resolver.ResolveLine(t.rows[r].cells, t.rows[r].spans)
		for col, c := range cells {
			if x, y, ok := t.viewport.ToScreen(r, col); ok {
				t.backend.SetCell(x, y, c)
			}
		}
	}

	if x, y, ok := t.viewport.ToScreen(caretRow, caretCol); hasCaret && ok {
		t.backend.ShowCursor(x, y)
	} else {
		t.backend.HideCursor()
	}
	t.backend.Show()
}

// Caret returns the document row and column of the selection focus.
func (t *Terminal) Caret() (rowIdx, col int, ok bool) {
	sel := t.Selection()
	if sel == nil {
		return 0, 0, false
	}
	return t.locate(sel.Focus)
}

// locate maps a host point to a document row and column.
func (t *Terminal) locate(p reconciler.HostPoint) (int, int, bool) {
	if p.Key == node.RootKey {
		if len(t.rows) == 0 {
			return 0, 0, true
		}
		if p.Offset < len(t.rows) {
			return p.Offset, t.pos[t.rows[p.Offset].key].start, true
		}
		last := len(t.rows) - 1
		return last, len(t.rows[last].cells), true
	}

	pos, ok := t.pos[p.Key]
	if !ok {
		return 0, 0, false
	}
	if pos.leaf {
		rs := []rune(pos.text)
		off := min(max(p.Offset, 0), len(rs))
		return pos.row, pos.start + core.StringWidth(string(rs[:off])), true
	}

	e, _ := t.Element(p.Key)
	if p.Offset < len(e.Children) {
		if cp, ok := t.pos[e.Children[p.Offset]]; ok {
			return cp.row, cp.start, true
		}
	}
	return pos.row, pos.end, true
}

// Line returns the text of row r as drawn, continuation cells excluded.
func (t *Terminal) Line(r int) string {
	if r < 0 || r >= len(t.rows) {
		return ""
	}
	var b []byte
	for _, c := range t.rows[r].cells {
		if !c.IsContinuation() {
			b = append(b, c.Grapheme...)
		}
	}
	return string(b)
}

// Rows returns the number of laid-out rows.
func (t *Terminal) Rows() int {
	return len(t.rows)
}

func (t *Terminal) layout() {
	t.rows = t.rows[:0]
	clear(t.pos)

	root, ok := t.Element(node.RootKey)
	if !ok || !t.Attached() {
		return
	}
	for _, key := range root.Children {
		e, ok := t.Element(key)
		if !ok {
			continue
		}
		r := row{key: key}
		block, styled := t.theme.Block(e.Props.Tag)
		if e.Props.Tag == "blockquote" && t.theme.QuotePrefix != "" {
			r.cells = append(r.cells, core.CellsFromString(t.theme.QuotePrefix, core.DefaultStyle())...)
		}
		t.walk(&r, len(t.rows), e)
		if styled {
			r.spans = append(r.spans, style.Span{
				StartCol: 0,
				EndCol:   len(r.cells),
				Style:    block,
				Layer:    style.LayerBlock,
			})
		}
		t.rows = append(t.rows, r)
	}
}

func (t *Terminal) walk(r *row, rowIdx int, e *Element) {
	p := position{row: rowIdx, start: len(r.cells)}
	switch {
	case len(e.Children) > 0:
		for _, key := range e.Children {
			if child, ok := t.Element(key); ok {
				t.walk(r, rowIdx, child)
			}
		}
	case e.Slot.Content != "":
		r.cells = append(r.cells, core.CellsFromString(e.Slot.Content, core.DefaultStyle())...)
		r.spans = append(r.spans, style.Span{
			StartCol: p.start,
			EndCol:   len(r.cells),
			Style:    t.theme.Decorator,
			Layer:    style.LayerFormat,
		})
	case e.Props.Tag == textTag:
		p.leaf = true
		p.text = e.Props.Text
		r.cells = append(r.cells, core.CellsFromString(e.Props.Text, core.DefaultStyle())...)
		if format := e.Props.Attrs["format"]; format != "" {
			r.spans = append(r.spans, style.Span{
				StartCol: p.start,
				EndCol:   len(r.cells),
				Style:    t.theme.Format(format),
				Layer:    style.LayerFormat,
			})
		}
	}
	p.end = len(r.cells)
	t.pos[e.Key] = p
}

// textTag is the tag text nodes render with.
const textTag = "span"

// highlight adds selection spans for a non-collapsed selection.
func (t *Terminal) highlight() {
	sel := t.Selection()
	if sel == nil || sel.Anchor == sel.Focus {
		return
	}
	ar, ac, ok1 := t.locate(sel.Anchor)
	fr, fc, ok2 := t.locate(sel.Focus)
	if !ok1 || !ok2 {
		return
	}
	if fr < ar || (fr == ar && fc < ac) {
		ar, ac, fr, fc = fr, fc, ar, ac
	}
	for r := ar; r <= fr; r++ {
		start, end := 0, len(t.rows[r].cells)
		if r == ar {
			start = ac
		}
		if r == fr {
			end = fc
		}
		if start >= end {
			continue
		}
		t.rows[r].spans = append(t.rows[r].spans, style.Span{
			StartCol: start,
			EndCol:   end,
			Style:    t.theme.Selection,
			Layer:    style.LayerSelection,
		})
	}
}
