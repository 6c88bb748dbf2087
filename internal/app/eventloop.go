package app

import (
	"log/slog"

	"github.com/dshills/inkwell/internal/command/text"
	"github.com/dshills/inkwell/internal/renderer/backend"
	"github.com/dshills/inkwell/internal/watcher"
)

// binding maps a key to a command dispatch.
type binding struct {
	command string
	payload any
}

// keyBindings are the default key bindings. Printable runes dispatch
// insert-text separately.
var keyBindings = map[backend.Key]binding{
	backend.KeyEnter:     {command: text.InsertParagraph},
	backend.KeyBackspace: {command: text.DeleteBackward},
	backend.KeyLeft:      {command: text.MoveLeft},
	backend.KeyRight:     {command: text.MoveRight},
	backend.KeyTab:       {command: text.InsertText, payload: "\t"},
	backend.KeyCtrlB:     {command: text.ToggleFormat, payload: "bold"},
	backend.KeyCtrlT:     {command: text.ToggleFormat, payload: "italic"},
	backend.KeyCtrlU:     {command: text.ToggleFormat, payload: "underline"},
	backend.KeyCtrlZ:     {command: text.Undo},
	backend.KeyCtrlY:     {command: text.Redo},
	backend.KeyCtrlS:     {command: Save},
}

// eventLoop is the main application loop.
func (app *Application) eventLoop() error {
	events := app.startInputPolling()

	var (
		updates <-chan watcher.Update
		errs    <-chan error
	)
	if app.watcher != nil {
		updates = app.watcher.Updates()
		errs = app.watcher.Errors()
	}

	for {
		select {
		case <-app.done:
			return nil

		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := app.HandleEvent(ev); err != nil {
				return err
			}

		case u, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if err := app.ApplyExternal(u); err != nil {
				app.logger.Warn("reload failed", slog.Any("error", err))
			}

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			app.logger.Warn("document watch", slog.Any("error", err))
		}
		app.render()
	}
}

// HandleEvent processes one backend event. Returns ErrQuit if the
// application should exit.
func (app *Application) HandleEvent(ev backend.Event) error {
	switch ev.Type {
	case backend.EventKey:
		return app.handleKeyEvent(ev)
	default:
		// Resizes are picked up by the next draw.
		return nil
	}
}

func (app *Application) handleKeyEvent(ev backend.Event) error {
	switch ev.Key {
	case backend.KeyCtrlQ, backend.KeyCtrlC:
		return ErrQuit
	case backend.KeyRune:
		if ev.Mod.Has(backend.ModCtrl) || ev.Mod.Has(backend.ModAlt) {
			return nil
		}
		app.dispatch(text.InsertText, string(ev.Rune))
		return nil
	}
	if b, ok := keyBindings[ev.Key]; ok {
		app.dispatch(b.command, b.payload)
	}
	return nil
}

func (app *Application) dispatch(name string, payload any) {
	if !app.editor.Dispatch(name, payload) {
		app.logger.Debug("command not handled", slog.String("command", name))
	}
}

// render flushes pending commits and redraws the host.
func (app *Application) render() {
	if err := app.editor.Flush(); err != nil {
		app.logger.Warn("flush failed", slog.Any("error", err))
	}
	if app.host != nil {
		app.host.Draw()
	}
}

// startInputPolling starts a goroutine that polls for input events.
// Events are sent to the returned channel.
//
// PollEvent is blocking, so the goroutine may outlive the loop until the
// backend is shut down.
func (app *Application) startInputPolling() <-chan backend.Event {
	events := make(chan backend.Event, 100)

	go func() {
		defer close(events)
		for {
			ev := app.backend.PollEvent()
			select {
			case events <- ev:
			case <-app.done:
				return
			}
		}
	}()

	return events
}
