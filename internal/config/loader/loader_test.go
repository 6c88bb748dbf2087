package loader

import (
	"errors"
	"io/fs"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestTOMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.toml", `
[editor]
deferred_flush = true
history_max_entries = 50

[plugins]
scripts = ["a.lua", "b.lua"]
`)

	config, err := NewTOMLLoaderWithFS(memfs, "/config.toml").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"editor":  map[string]any{"deferred_flush": true, "history_max_entries": int64(50)},
		"plugins": map[string]any{"scripts": []any{"a.lua", "b.lua"}},
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestTOMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[editor\ndeferred_flush = true\n")

	_, err := NewTOMLLoaderWithFS(memfs, "/bad.toml").Load()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if pe.Path != "/bad.toml" || pe.Line == 0 {
		t.Errorf("expected /bad.toml with a line number, got %s line %d", pe.Path, pe.Line)
	}
}

func TestYAMLLoader_Load(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/config.yaml", `
log:
  level: debug
  format: json
terminal:
  mouse: false
`)

	config, err := NewYAMLLoaderWithFS(memfs, "/config.yaml").Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]any{
		"log":      map[string]any{"level": "debug", "format": "json"},
		"terminal": map[string]any{"mouse": false},
	}
	if diff := cmp.Diff(want, config); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestYAMLLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.yml", "log: [unclosed\n")

	_, err := NewYAMLLoaderWithFS(memfs, "/bad.yml").Load()
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *ParseError, got %v", err)
	}
}

func TestLoader_MissingFile(t *testing.T) {
	memfs := NewMemFS()
	for _, l := range []Loader{
		NewTOMLLoaderWithFS(memfs, "/nope.toml"),
		NewYAMLLoaderWithFS(memfs, "/nope.yaml"),
	} {
		config, err := l.Load()
		if err != nil || config != nil {
			t.Errorf("expected nil, nil for missing file, got %v, %v", config, err)
		}
	}
}

func TestLoadFromReader(t *testing.T) {
	config, err := NewTOMLLoader("").LoadFromReader(strings.NewReader("[log]\nlevel = \"warn\"\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := config["log"].(map[string]any)["level"]; got != "warn" {
		t.Errorf("expected warn, got %v", got)
	}
}

func TestForPath(t *testing.T) {
	memfs := NewMemFS()
	tests := []struct {
		path string
		want string
	}{
		{"/a.toml", "*loader.TOMLLoader"},
		{"/a.TOML", "*loader.TOMLLoader"},
		{"/a.yaml", "*loader.YAMLLoader"},
		{"/a.yml", "*loader.YAMLLoader"},
	}
	for _, tt := range tests {
		l, err := ForPath(memfs, tt.path)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", tt.path, err)
			continue
		}
		switch l.(type) {
		case *TOMLLoader:
			if tt.want != "*loader.TOMLLoader" {
				t.Errorf("%s: expected %s", tt.path, tt.want)
			}
		case *YAMLLoader:
			if tt.want != "*loader.YAMLLoader" {
				t.Errorf("%s: expected %s", tt.path, tt.want)
			}
		}
	}

	if _, err := ForPath(memfs, "/a.json"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"editor": map[string]any{"deferred_flush": false, "history_max_entries": 10},
		"log":    map[string]any{"level": "info"},
	}
	src := map[string]any{
		"editor":  map[string]any{"deferred_flush": true},
		"plugins": map[string]any{"scripts": []any{"x.lua"}},
	}

	got := DeepMerge(dst, src)
	want := map[string]any{
		"editor":  map[string]any{"deferred_flush": true, "history_max_entries": 10},
		"log":     map[string]any{"level": "info"},
		"plugins": map[string]any{"scripts": []any{"x.lua"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("merge mismatch (-want +got):\n%s", diff)
	}

	if got := DeepMerge(nil, nil); got == nil || len(got) != 0 {
		t.Errorf("expected empty map, got %v", got)
	}
}
