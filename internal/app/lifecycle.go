package app

import (
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/engine/serialize"
	"github.com/dshills/inkwell/internal/watcher"
)

// loadDocument reads the document file into the editor. A missing file
// leaves the document empty. The returned bytes are the file as read.
func (app *Application) loadDocument() ([]byte, error) {
	if app.docPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(app.docPath)
	if errors.Is(err, fs.ErrNotExist) {
		app.logger.Info("new document", slog.String("path", app.docPath))
		return nil, nil
	}
	if err != nil {
		return nil, &FileError{Op: "open", Path: app.docPath, Err: err}
	}

	s, err := serialize.Parse(data, app.editor.Registry(), app.editor.Keys())
	if err != nil {
		return nil, &FileError{Op: "parse", Path: app.docPath, Err: err}
	}
	if err := app.editor.SetState(s, engine.WithTag(engine.TagExternal)); err != nil {
		return nil, err
	}
	if err := app.editor.Flush(); err != nil {
		return nil, err
	}
	app.history.Clear()
	app.logger.Info("document opened",
		slog.String("path", app.docPath),
		slog.Int("nodes", s.Len()))
	return data, nil
}

// SaveDocument writes the latest snapshot to the document file.
func (app *Application) SaveDocument() error {
	if app.docPath == "" {
		return ErrNoDocumentPath
	}
	data, err := serialize.StringifyIndent(app.editor.State(), app.editor.Registry())
	if err != nil {
		return &FileError{Op: "save", Path: app.docPath, Err: err}
	}
	if app.watcher != nil {
		app.watcher.Ignore(data)
	}
	if err := os.WriteFile(app.docPath, data, 0o644); err != nil {
		return &FileError{Op: "save", Path: app.docPath, Err: err}
	}
	app.logger.Info("document saved",
		slog.String("path", app.docPath),
		slog.Int("bytes", len(data)))
	return nil
}

func (app *Application) saveCommand(any) bool {
	if err := app.SaveDocument(); err != nil {
		app.logger.Warn("save failed", slog.Any("error", err))
		return false
	}
	return true
}

// Dump writes the indented document to w.
func (app *Application) Dump(w io.Writer) error {
	data, err := serialize.StringifyIndent(app.editor.State(), app.editor.Registry())
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// ApplyExternal replaces the document with a snapshot read from the
// document file by another program.
func (app *Application) ApplyExternal(u watcher.Update) error {
	if err := app.editor.SetState(u.State, engine.WithTag(engine.TagExternal)); err != nil {
		return err
	}
	app.logger.Info("document reloaded",
		slog.String("path", u.Path),
		slog.Int("nodes", u.State.Len()))
	return nil
}
