package loader

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func withEnviron(l *EnvLoader, env ...string) *EnvLoader {
	l.environ = func() []string { return env }
	return l
}

func TestEnvLoader_Load(t *testing.T) {
	l := withEnviron(NewEnvLoader("INKWELL_"),
		"INKWELL_LOG_LEVEL=debug",
		"INKWELL_DEFERRED_FLUSH=true",
		"INKWELL_HISTORY_SIZE=25",
		"INKWELL_TERMINAL_HEADING_COLOR=#ff0000",
		"INKWELL_PLUGINS_SCRIPTS=[\"a.lua\"]",
		"HOME=/root",
		"INKWELL_BAD",
	)

	config, err := l.Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"log":      map[string]any{"level": "debug"},
		"editor":   map[string]any{"deferred_flush": true, "history_max_entries": int64(25)},
		"terminal": map[string]any{"heading_color": "#ff0000"},
		"plugins":  map[string]any{"scripts": []any{"a.lua"}},
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvLoader_AddMapping(t *testing.T) {
	l := withEnviron(NewEnvLoaderWithMapping("X_", nil), "X_WATCH=1")
	l.AddMapping("X_WATCH", "document.watch")

	config, _ := l.Load()
	if diff := cmp.Diff(map[string]any{"document": map[string]any{"watch": int64(1)}}, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader("INKWELL_")
	tests := []struct {
		env  string
		want string
	}{
		{"INKWELL_EDITOR_DEFERRED_FLUSH", "editor.deferred_flush"},
		{"INKWELL_LOG_LEVEL", "log.level"},
		{"INKWELL_NOSECTION", ""},
		{"INKWELL__X", ""},
	}
	for _, tt := range tests {
		if got := l.envToPath(tt.env); got != tt.want {
			t.Errorf("envToPath(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"", ""},
		{"true", true},
		{"Yes", true},
		{"off", false},
		{"42", int64(42)},
		{"1.5", 1.5},
		{"[1, \"a\"]", []any{float64(1), "a"}},
		{"[broken", "[broken"},
		{"text", "text"},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, parseValue(tt.in)); diff != "" {
			t.Errorf("parseValue(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
