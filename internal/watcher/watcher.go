package watcher

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/inkwell/internal/engine/node"
	"github.com/dshills/inkwell/internal/engine/serialize"
	"github.com/dshills/inkwell/internal/engine/store"
)

// Update is a snapshot parsed from the watched file.
type Update struct {
	Path  string
	State *store.State
	Time  time.Time
}

// Option configures a DocumentWatcher.
type Option func(*DocumentWatcher)

// WithDebounce sets how long the file must be quiet before it is read.
func WithDebounce(d time.Duration) Option {
	return func(w *DocumentWatcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *DocumentWatcher) {
		w.logger = l
	}
}

// WithBufferSize sets the capacity of the update and error channels.
func WithBufferSize(n int) Option {
	return func(w *DocumentWatcher) {
		if n > 0 {
			w.bufSize = n
		}
	}
}

// DocumentWatcher turns writes to one document file into snapshots.
type DocumentWatcher struct {
	path     string
	reg      *node.Registry
	keys     *node.KeyGen
	debounce time.Duration
	bufSize  int
	logger   *slog.Logger

	fsw     *fsnotify.Watcher
	updates chan Update
	errors  chan error

	mu      sync.Mutex
	last    []byte
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// New watches path. The file does not need to exist yet; its directory
// does. Parsed nodes get keys from keys.
func New(path string, reg *node.Registry, keys *node.KeyGen, opts ...Option) (*DocumentWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &DocumentWatcher{
		path:     abs,
		reg:      reg,
		keys:     keys,
		debounce: 100 * time.Millisecond,
		bufSize:  16,
		logger:   slog.New(slog.DiscardHandler),
		closeCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}
	w.fsw = fsw
	w.updates = make(chan Update, w.bufSize)
	w.errors = make(chan error, w.bufSize)

	w.wg.Add(1)
	go w.processLoop()
	return w, nil
}

// Path returns the absolute path being watched.
func (w *DocumentWatcher) Path() string {
	return w.path
}

// Updates returns the snapshot channel. It is closed by Close.
func (w *DocumentWatcher) Updates() <-chan Update {
	return w.updates
}

// Errors returns the error channel. It is closed by Close.
func (w *DocumentWatcher) Errors() <-chan error {
	return w.errors
}

// Ignore records data as the file's current content, so a change event
// that finds exactly this content is not reported.
func (w *DocumentWatcher) Ignore(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.last = bytes.Clone(data)
}

// Close stops the watcher and closes its channels.
func (w *DocumentWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.wg.Wait()
	close(w.updates)
	close(w.errors)
	return w.fsw.Close()
}

func (w *DocumentWatcher) processLoop() {
	defer w.wg.Done()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.closeCh:
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path || !relevant(ev.Op) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.load()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.sendError(err)
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Write) || op.Has(fsnotify.Create) || op.Has(fsnotify.Rename)
}

// load reads and parses the file, sending a snapshot when the content
// differs from what was last seen.
func (w *DocumentWatcher) load() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return // renamed away mid-save; the create event follows
		}
		w.sendError(&LoadError{Path: w.path, Err: err})
		return
	}

	w.mu.Lock()
	same := bytes.Equal(data, w.last)
	if !same {
		w.last = data
	}
	w.mu.Unlock()
	if same {
		return
	}

	state, err := serialize.Parse(data, w.reg, w.keys)
	if err != nil {
		w.sendError(&LoadError{Path: w.path, Err: err})
		return
	}
	w.logger.Debug("document changed", slog.String("path", w.path), slog.Int("nodes", state.Len()))

	select {
	case w.updates <- Update{Path: w.path, State: state, Time: time.Now()}:
	case <-w.closeCh:
	}
}

func (w *DocumentWatcher) sendError(err error) {
	w.logger.Warn("watch error", slog.String("path", w.path), slog.Any("error", err))
	select {
	case w.errors <- err:
	default:
		// Channel full, drop error
	}
}
