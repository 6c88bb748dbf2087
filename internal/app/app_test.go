package app

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/tidwall/gjson"

	"github.com/dshills/inkwell/internal/config"
	"github.com/dshills/inkwell/internal/engine"
	"github.com/dshills/inkwell/internal/renderer/backend"
)

func newApp(t *testing.T, cfg *config.Config, docPath string) *Application {
	t.Helper()
	if cfg == nil {
		cfg = config.Default()
	}
	app, err := New(Options{Config: cfg, DocumentPath: docPath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(app.Close)
	return app
}

// attached returns an app drawing to a null backend without running the
// event loop.
func attached(t *testing.T, docPath string) (*Application, *backend.NullBackend) {
	t.Helper()
	app := newApp(t, nil, docPath)
	b := backend.NewNullBackend(40, 10)
	if err := app.SetBackend(b); err != nil {
		t.Fatalf("SetBackend: %v", err)
	}
	if err := app.attach(); err != nil {
		t.Fatalf("attach: %v", err)
	}
	return app, b
}

func typeText(t *testing.T, app *Application, s string) {
	t.Helper()
	for _, r := range s {
		ev := backend.Event{Type: backend.EventKey, Key: backend.KeyRune, Rune: r}
		if err := app.HandleEvent(ev); err != nil {
			t.Fatalf("HandleEvent(%q): %v", r, err)
		}
		app.render()
	}
}

func press(t *testing.T, app *Application, k backend.Key) error {
	t.Helper()
	err := app.HandleEvent(backend.Event{Type: backend.EventKey, Key: k})
	app.render()
	return err
}

func TestNewEmptyDocument(t *testing.T) {
	app := newApp(t, nil, "")
	if got := app.Editor().State().TextContent(); got != "" {
		t.Errorf("expected empty document, got %q", got)
	}

	var sb strings.Builder
	if err := app.Dump(&sb); err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if !gjson.Valid(sb.String()) {
		t.Errorf("expected valid JSON, got %s", sb.String())
	}
	if err := app.SaveDocument(); !errors.Is(err, ErrNoDocumentPath) {
		t.Error("expected ErrNoDocumentPath")
	}
}

func TestNewInvalidLogLevel(t *testing.T) {
	_, err := New(Options{Config: config.Default(), LogLevel: "loud"})
	var initErr *InitError
	if !errors.As(err, &initErr) || initErr.Component != "config" {
		t.Fatalf("expected config InitError, got %v", err)
	}
	if !errors.Is(err, config.ErrValidationFailed) {
		t.Errorf("expected ErrValidationFailed in chain, got %v", err)
	}
}

func TestTypingDraws(t *testing.T) {
	app, b := attached(t, "")
	typeText(t, app, "Hi")

	if got := b.Line(0); got != "Hi" {
		t.Errorf("expected %q, got %q", "Hi", got)
	}
	x, y, visible := b.CursorPosition()
	if !visible || x != 2 || y != 0 {
		t.Errorf("expected cursor at (2, 0), got (%d, %d) visible=%v", x, y, visible)
	}
}

func TestKeyBindings(t *testing.T) {
	app, b := attached(t, "")
	typeText(t, app, "one")
	if err := press(t, app, backend.KeyEnter); err != nil {
		t.Fatal(err)
	}
	typeText(t, app, "two")

	if got := app.Editor().State().TextContent(); got != "one\ntwo" {
		t.Fatalf("expected %q, got %q", "one\ntwo", got)
	}
	if b.Line(1) != "two" {
		t.Errorf("expected second row %q, got %q", "two", b.Line(1))
	}

	if err := press(t, app, backend.KeyBackspace); err != nil {
		t.Fatal(err)
	}
	if got := app.Editor().State().TextContent(); got != "one\ntw" {
		t.Errorf("expected %q, got %q", "one\ntw", got)
	}

	if err := press(t, app, backend.KeyCtrlZ); err != nil {
		t.Fatal(err)
	}
	if got := app.Editor().State().TextContent(); got != "one\ntwo" {
		t.Errorf("expected undo to restore %q, got %q", "one\ntwo", got)
	}
	if err := press(t, app, backend.KeyCtrlY); err != nil {
		t.Fatal(err)
	}
	if got := app.Editor().State().TextContent(); got != "one\ntw" {
		t.Errorf("expected redo to give %q, got %q", "one\ntw", got)
	}
}

func TestCtrlRuneIgnored(t *testing.T) {
	app, _ := attached(t, "")
	ev := backend.Event{Type: backend.EventKey, Key: backend.KeyRune, Rune: 'x', Mod: backend.ModAlt}
	if err := app.HandleEvent(ev); err != nil {
		t.Fatal(err)
	}
	app.render()
	if got := app.Editor().State().TextContent(); got != "" {
		t.Errorf("expected no insert, got %q", got)
	}
}

func TestQuitKeys(t *testing.T) {
	app, _ := attached(t, "")
	for _, k := range []backend.Key{backend.KeyCtrlQ, backend.KeyCtrlC} {
		if err := press(t, app, k); !errors.Is(err, ErrQuit) {
			t.Errorf("expected ErrQuit for %v, got %v", k, err)
		}
	}
}

func TestSaveAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	app, _ := attached(t, path)
	typeText(t, app, "saved")
	if err := press(t, app, backend.KeyCtrlS); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("expected document file: %v", err)
	}
	if !gjson.ValidBytes(data) {
		t.Fatalf("expected valid JSON, got %s", data)
	}

	reopened := newApp(t, nil, path)
	if got := reopened.Editor().State().TextContent(); got != "saved" {
		t.Errorf("expected %q, got %q", "saved", got)
	}
	if reopened.History().CanUndo() {
		t.Error("expected opening a document to leave no undo entry")
	}
}

func TestOpenMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := New(Options{Config: config.Default(), DocumentPath: path})
	var fileErr *FileError
	if !errors.As(err, &fileErr) || fileErr.Op != "parse" {
		t.Errorf("expected parse FileError, got %v", err)
	}
}

func TestPluginScripts(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "greet.lua")
	code := `ed.register_command("greet", "high", function() return ed.insert_text("hello") end)`
	if err := os.WriteFile(script, []byte(code), 0o644); err != nil {
		t.Fatal(err)
	}
	broken := filepath.Join(dir, "broken.lua")
	if err := os.WriteFile(broken, []byte(`this is not lua`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := config.Default()
	cfg.Plugins.Scripts = []string{broken, script}
	app := newApp(t, cfg, "")

	if !app.Editor().Dispatch("greet", nil) {
		t.Fatal("expected greet to be handled")
	}
	if err := app.Editor().Flush(); err != nil {
		t.Fatal(err)
	}
	if got := app.Editor().State().TextContent(); got != "hello" {
		t.Errorf("expected %q, got %q", "hello", got)
	}
}

func TestMetricsGathered(t *testing.T) {
	app, _ := attached(t, "")
	typeText(t, app, "ab")

	families, err := app.Metrics().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var commits float64
	for _, f := range families {
		if f.GetName() != "inkwell_commits_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			commits += m.GetCounter().GetValue()
		}
	}
	if commits < 2 {
		t.Errorf("expected at least 2 commits, got %v", commits)
	}
}

func TestRunProcessesEvents(t *testing.T) {
	app := newApp(t, nil, "")
	b := backend.NewNullBackend(40, 10)
	if err := app.Run(); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}
	if err := app.SetBackend(b); err != nil {
		t.Fatal(err)
	}

	for _, r := range "ok" {
		b.PostEvent(backend.Event{Type: backend.EventKey, Key: backend.KeyRune, Rune: r})
	}
	b.PostEvent(backend.Event{Type: backend.EventKey, Key: backend.KeyCtrlQ})

	if err := app.Run(); !errors.Is(err, ErrQuit) {
		t.Fatalf("expected ErrQuit, got %v", err)
	}
	if app.IsRunning() {
		t.Error("expected loop stopped")
	}
	if got := b.Line(0); got != "ok" {
		t.Errorf("expected %q, got %q", "ok", got)
	}
}

func TestRunShutdown(t *testing.T) {
	app := newApp(t, nil, "")
	if err := app.SetBackend(backend.NewNullBackend(20, 5)); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	app.Shutdown()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestRunReloadsWatchedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	cfg := config.Default()
	cfg.Document.Watch = true
	app := newApp(t, cfg, path)

	reloaded := make(chan string, 1)
	app.Editor().OnUpdate(func(ev engine.UpdateEvent) {
		if ev.HasTag(engine.TagExternal) {
			select {
			case reloaded <- ev.Next.TextContent():
			default:
			}
		}
	})

	b := backend.NewNullBackend(40, 10)
	if err := app.SetBackend(b); err != nil {
		t.Fatal(err)
	}
	done := make(chan error, 1)
	go func() { done <- app.Run() }()

	// Another editor writes the file.
	other := newApp(t, nil, path)
	if !other.Editor().Dispatch("insert-text", "from outside") {
		t.Fatal("expected insert to be handled")
	}
	if err := other.Editor().Flush(); err != nil {
		t.Fatal(err)
	}
	if err := other.SaveDocument(); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	select {
	case got := <-reloaded:
		if got != "from outside" {
			t.Errorf("expected %q, got %q", "from outside", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	b.PostEvent(backend.Event{Type: backend.EventKey, Key: backend.KeyCtrlQ})
	select {
	case err := <-done:
		if !errors.Is(err, ErrQuit) {
			t.Errorf("expected ErrQuit, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
	if got := b.Line(0); got != "from outside" {
		t.Errorf("expected reloaded row %q, got %q", "from outside", got)
	}
}
