// Package app wires the editor core to a terminal, plugins, configuration
// and the document file, and runs the main event loop.
package app

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dshills/inkwell/internal/command"
	"github.com/dshills/inkwell/internal/command/text"
	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/engine/history"
	"github.com/dshills/inkwell/internal/metrics"
	"github.com/dshills/inkwell/internal/plugin/lua"
	"github.com/dshills/inkwell/internal/renderer"
	"github.com/dshills/inkwell/internal/renderer/backend"
	"github.com/dshills/inkwell/internal/renderer/style"
	"github.com/dshills/inkwell/internal/watcher"
)

// Save is the command that writes the document back to its file.
const Save = "save"

// Application owns one editor and everything attached to it.
//
// All editor work happens on the goroutine that calls Run. Input polling and
// file watching run on their own goroutines and hand events over channels.
type Application struct {
	opts     Options
	config   *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	editor   *engine.Editor
	history  *history.History
	commands *text.Commands
	off      []func()

	backend backend.Backend
	host    *renderer.Terminal

	lua     *lua.State
	plugins *lua.Module

	docPath string
	watcher *watcher.DocumentWatcher

	running   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	closed    bool
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file.
	ConfigPath string

	// DocumentPath is the JSON document to open and save.
	DocumentPath string

	// LogLevel overrides the configured log level when set.
	LogLevel string

	// LogOutput receives log records. Nil discards them.
	LogOutput io.Writer

	// Config is used instead of loading ConfigPath when set.
	Config *config.Config
}

// New creates a new Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts:     opts,
		docPath:  opts.DocumentPath,
		registry: prometheus.NewRegistry(),
		done:     make(chan struct{}),
	}
	if err := app.bootstrap(); err != nil {
		app.Close()
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	cfg := app.opts.Config
	if cfg == nil {
		var err error
		if cfg, err = config.Load(app.opts.ConfigPath); err != nil {
			return &InitError{Component: "config", Err: err}
		}
	}
	if app.opts.LogLevel != "" {
		cfg.Log.Level = app.opts.LogLevel
		if err := cfg.Validate(); err != nil {
			return &InitError{Component: "config", Err: err}
		}
	}
	app.config = cfg

	// 2. Logging
	out := app.opts.LogOutput
	if out == nil {
		out = io.Discard
	}
	app.logger = cfg.NewLogger(out)

	// 3. Editor, history and commands
	opts := []engine.Option{
		engine.WithLogger(app.logger),
		engine.WithMetrics(metrics.New(app.registry)),
	}
	if cfg.Editor.DeferredFlush {
		opts = append(opts, engine.WithDeferredFlush())
	}
	app.editor = engine.New(opts...)
	app.history = history.New(app.editor, cfg.Editor.HistoryMaxEntries)
	app.commands = text.Register(app.editor, app.history)
	app.off = append(app.off, app.editor.RegisterCommand(Save, command.PriorityEditor, app.saveCommand))

	// 4. Document
	data, err := app.loadDocument()
	if err != nil {
		return &InitError{Component: "document", Err: err}
	}

	// 5. Plugins
	st, err := lua.NewState()
	if err != nil {
		return &InitError{Component: "plugins", Err: err}
	}
	app.lua = st
	app.plugins = lua.Open(app.editor, st)
	for _, path := range cfg.Plugins.Scripts {
		// A broken script is logged and skipped.
		_ = app.plugins.LoadFile(path)
	}

	// 6. Document watcher
	if cfg.Document.Watch && app.docPath != "" {
		w, err := watcher.New(app.docPath, app.editor.Registry(), app.editor.Keys(),
			watcher.WithLogger(app.logger))
		if err != nil {
			return &InitError{Component: "watcher", Err: err}
		}
		if data != nil {
			w.Ignore(data)
		}
		app.watcher = w
	}

	if err := app.editor.Flush(); err != nil {
		app.logger.Warn("initial flush failed", slog.Any("error", err))
	}
	return nil
}

// SetBackend sets the terminal backend.
// Must be called before Run().
func (app *Application) SetBackend(b backend.Backend) error {
	if app.running.Load() {
		return ErrAlreadyRunning
	}
	app.backend = b
	return nil
}

// Run attaches the terminal host and processes events until quit or
// Shutdown. A quit request returns ErrQuit.
func (app *Application) Run() error {
	if app.backend == nil {
		return ErrNoBackend
	}
	if !app.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer app.running.Store(false)

	if err := app.backend.Init(); err != nil {
		return &InitError{Component: "backend", Err: err}
	}
	defer app.backend.Shutdown()
	if app.config.Terminal.Mouse {
		app.backend.EnableMouse()
	}

	if err := app.attach(); err != nil {
		return err
	}
	return app.eventLoop()
}

// attach creates the terminal host and mounts the document into it.
func (app *Application) attach() error {
	app.host = renderer.NewTerminal(app.backend,
		renderer.WithTheme(style.DefaultTheme(app.config.HeadingColor())))
	if err := app.editor.SetHost(app.host); err != nil {
		return &InitError{Component: "host", Err: err}
	}
	app.render()
	return nil
}

// Shutdown asks a running event loop to return. It is safe to call from
// any goroutine and more than once.
func (app *Application) Shutdown() {
	app.closeOnce.Do(func() {
		close(app.done)
	})
}

// Close releases plugins, the watcher and command registrations. Call it
// after Run has returned.
func (app *Application) Close() {
	if app.closed {
		return
	}
	app.closed = true
	app.Shutdown()

	if app.watcher != nil {
		if err := app.watcher.Close(); err != nil {
			app.logger.Warn("closing watcher", slog.Any("error", err))
		}
	}
	if app.plugins != nil {
		app.plugins.Close()
	}
	if app.lua != nil {
		app.lua.Close()
	}
	for _, off := range app.off {
		off()
	}
	app.off = nil
	if app.commands != nil {
		app.commands.Close()
	}
	if app.history != nil {
		app.history.Close()
	}
}

// IsRunning returns true if the event loop is running.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the loaded configuration.
func (app *Application) Config() *config.Config {
	return app.config
}

// Editor returns the editor.
func (app *Application) Editor() *engine.Editor {
	return app.editor
}

// History returns the undo history.
func (app *Application) History() *history.History {
	return app.history
}

// Host returns the terminal host, or nil before Run attaches one.
func (app *Application) Host() *renderer.Terminal {
	return app.host
}

// Plugins returns the Lua module bound to the editor.
func (app *Application) Plugins() *lua.Module {
	return app.plugins
}

// Metrics returns the gatherer holding the editor's collectors.
func (app *Application) Metrics() prometheus.Gatherer {
	return app.registry
}

// Logger returns the application logger.
func (app *Application) Logger() *slog.Logger {
	return app.logger
}
