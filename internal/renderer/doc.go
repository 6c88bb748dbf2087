// Package renderer provides hosts the reconciler patches.
//
// Memory keeps a keyed element tree and a log of every host mutation. It
// is the host used by tests and headless runs (for example the -dump mode
// of the command line).
//
// Terminal embeds Memory and paints its tree onto a backend.Backend:
//
//	b, _ := backend.NewTerminal()
//	_ = b.Init()
//	host := renderer.NewTerminal(b)
//	ed := engine.New(engine.WithHost(host))
//	...
//	ed.Flush()
//	host.Draw()
//
// Each top-level block becomes one row. Styles come from a style.Theme
// resolved in layers (block, inline format, selection) and the caret is
// placed at the selection focus, scrolling the viewport to keep it visible.
package renderer
