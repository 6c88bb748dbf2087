package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/inkwell/internal/config/loader"
	"github.com/dshills/inkwell/internal/engine/history"
	"github.com/dshills/inkwell/internal/renderer/core"
)

// EnvPrefix is the prefix of environment overrides.
const EnvPrefix = "INKWELL_"

// Config is the complete application configuration.
type Config struct {
	Editor   EditorConfig   `toml:"editor"`
	Log      LogConfig      `toml:"log"`
	Terminal TerminalConfig `toml:"terminal"`
	Plugins  PluginsConfig  `toml:"plugins"`
	Document DocumentConfig `toml:"document"`
}

// EditorConfig configures the editor engine.
type EditorConfig struct {
	// DeferredFlush holds commits until the host loop calls Flush.
	DeferredFlush bool `toml:"deferred_flush"`
	// HistoryMaxEntries bounds the undo stack. Zero selects the default.
	HistoryMaxEntries int `toml:"history_max_entries"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TerminalConfig configures the terminal host.
type TerminalConfig struct {
	Mouse        bool   `toml:"mouse"`
	HeadingColor string `toml:"heading_color"`
}

// PluginsConfig lists Lua scripts loaded at startup.
type PluginsConfig struct {
	Scripts []string `toml:"scripts"`
}

// DocumentConfig configures document handling.
type DocumentConfig struct {
	// Watch reloads the document when another program writes it.
	Watch bool `toml:"watch"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Editor: EditorConfig{
			DeferredFlush:     true,
			HistoryMaxEntries: history.DefaultMaxEntries,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Terminal: TerminalConfig{
			HeadingColor: "4",
		},
	}
}

// Option configures Load.
type Option func(*loadOptions)

type loadOptions struct {
	fs  loader.FileSystem
	env loader.Loader
}

// WithFS reads the config file from fs.
func WithFS(fs loader.FileSystem) Option {
	return func(o *loadOptions) {
		o.fs = fs
	}
}

// WithEnv replaces the environment layer. nil disables it.
func WithEnv(env loader.Loader) Option {
	return func(o *loadOptions) {
		o.env = env
	}
}

// Load builds a Config from defaults, the file at path (skipped when path
// is empty or the file is missing) and the environment, then validates it.
func Load(path string, opts ...Option) (*Config, error) {
	o := loadOptions{
		fs:  loader.DefaultFS(),
		env: loader.NewEnvLoader(EnvPrefix),
	}
	for _, opt := range opts {
		opt(&o)
	}

	var merged map[string]any
	if path != "" {
		l, err := loader.ForPath(o.fs, path)
		if err != nil {
			return nil, err
		}
		m, err := l.Load()
		if err != nil {
			return nil, err
		}
		merged = loader.DeepMerge(merged, m)
	}
	if o.env != nil {
		m, err := o.env.Load()
		if err != nil {
			return nil, fmt.Errorf("loading environment: %w", err)
		}
		merged = loader.DeepMerge(merged, m)
	}

	cfg := Default()
	if err := cfg.apply(path, merged); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// apply decodes a merged settings map over c.
func (c *Config) apply(source string, m map[string]any) error {
	if len(m) == 0 {
		return nil
	}
	data, err := toml.Marshal(m)
	if err != nil {
		return &TypeError{Path: source, Err: err}
	}
	if err := toml.Unmarshal(data, c); err != nil {
		return &TypeError{Path: source, Err: err}
	}
	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
)

// Validate checks every setting and returns all failures joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Editor.HistoryMaxEntries < 0 {
		errs = append(errs, &ValidationError{
			Path:    "editor.history_max_entries",
			Message: "must not be negative",
			Value:   c.Editor.HistoryMaxEntries,
			Code:    ErrCodeOutOfRange,
		})
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, &ValidationError{
			Path:    "log.level",
			Message: "must be one of " + strings.Join(logLevels, ", "),
			Value:   c.Log.Level,
			Code:    ErrCodeInvalidEnum,
		})
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, &ValidationError{
			Path:    "log.format",
			Message: "must be one of " + strings.Join(logFormats, ", "),
			Value:   c.Log.Format,
			Code:    ErrCodeInvalidEnum,
		})
	}
	if _, err := core.ParseColor(c.Terminal.HeadingColor); err != nil {
		errs = append(errs, &ValidationError{
			Path:    "terminal.heading_color",
			Message: err.Error(),
			Value:   c.Terminal.HeadingColor,
			Code:    ErrCodePatternMismatch,
		})
	}
	for i, s := range c.Plugins.Scripts {
		if s == "" {
			errs = append(errs, &ValidationError{
				Path:    fmt.Sprintf("plugins.scripts[%d]", i),
				Message: "must not be empty",
				Value:   s,
				Code:    ErrCodePatternMismatch,
			})
		}
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// NewLogger builds a logger writing to w in the configured format.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// HeadingColor returns the parsed heading color, or the default on a bad
// value.
func (c *Config) HeadingColor() core.Color {
	color, err := core.ParseColor(c.Terminal.HeadingColor)
	if err != nil {
		return core.ColorFromIndex(4)
	}
	return color
}
