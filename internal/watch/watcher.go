// Package watch re-runs a handler when a spec's requirements document changes.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gfaurobert/specflow/internal/analyzer"
	"go.uber.org/zap"
)

// DefaultDebounce is how long to wait for further writes before firing.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called once per settled change of a spec document.
type Handler func(ctx context.Context, doc analyzer.SpecDocument) error

// Watcher watches <root>/<spec>/requirements.md files.
type Watcher struct {
	root     string
	handler  Handler
	debounce time.Duration
	logger   *zap.Logger

	fsw *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan analyzer.SpecDocument
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New starts watching root and every spec folder below it. Call Run to
// dispatch changes and Close to release the watches.
func New(root string, handler Handler, opts ...Option) (*Watcher, error) {
	w := &Watcher{
		root:     root,
		handler:  handler,
		debounce: DefaultDebounce,
		logger:   zap.NewNop(),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan analyzer.SpecDocument, 16),
	}
	for _, o := range opts {
		o(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w.fsw = fsw

	if err := fsw.Add(root); err != nil {
		fsw.Close() //nolint:errcheck
		return nil, fmt.Errorf("watching %s: %w", root, err)
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		fsw.Close() //nolint:errcheck
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	for _, e := range entries {
		if e.IsDir() && !strings.HasPrefix(e.Name(), ".") {
			w.addSpecDir(filepath.Join(root, e.Name()))
		}
	}
	return w, nil
}

// Close stops the underlying watcher and pending timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// Run dispatches settled changes to the handler until ctx is done. Handler
// errors are logged and watching continues.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching specs", zap.String("root", w.root))
	for {
		select {
		case <-ctx.Done():
			return nil

		case doc := <-w.ready:
			w.logger.Info("spec changed", zap.String("spec", doc.Name))
			if err := w.handler(ctx, doc); err != nil {
				w.logger.Error("handling spec change", zap.String("spec", doc.Name), zap.Error(err))
			}

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	// A new spec folder directly under root.
	if filepath.Dir(event.Name) == filepath.Clean(w.root) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			w.addSpecDir(event.Name)
		}
		return
	}

	if filepath.Base(event.Name) != analyzer.RequirementsFile {
		return
	}
	w.schedule(analyzer.SpecDocument{Name: filepath.Base(filepath.Dir(event.Name)), Path: event.Name})
}

func (w *Watcher) addSpecDir(dir string) {
	if err := w.fsw.Add(dir); err != nil {
		w.logger.Warn("cannot watch spec folder", zap.String("dir", dir), zap.Error(err))
		return
	}
	w.logger.Debug("watching spec folder", zap.String("dir", dir))
	// The document may have been written before the watch was in place.
	p := filepath.Join(dir, analyzer.RequirementsFile)
	if _, err := os.Stat(p); err == nil {
		w.schedule(analyzer.SpecDocument{Name: filepath.Base(dir), Path: p})
	}
}

// schedule (re)arms the debounce timer for doc.
func (w *Watcher) schedule(doc analyzer.SpecDocument) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[doc.Name]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() { w.fire(doc, &t) })
	w.pending[doc.Name] = t
}

// fire queues doc once the timer *t has elapsed. A timer that was re-armed
// after it fired leaves the newer pending entry alone. *t is read under w.mu
// because schedule assigns it while holding the lock.
func (w *Watcher) fire(doc analyzer.SpecDocument, t **time.Timer) {
	w.mu.Lock()
	if w.pending[doc.Name] == *t {
		delete(w.pending, doc.Name)
	}
	w.mu.Unlock()

	select {
	case w.ready <- doc:
	default:
		w.logger.Warn("change queue full, dropping event", zap.String("spec", doc.Name))
	}
}
