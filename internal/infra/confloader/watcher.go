package confloader

import (
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// DefaultDebounce is how long a file must stay quiet before OnChange fires.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to configuration files. Bursts of events on one
// file (truncate, write, chmod, or an editor's rename dance) are coalesced
// into a single callback.
type Watcher struct {
	fsw      *fsnotify.Watcher
	debounce time.Duration
	log      logger.Logger

	mu        sync.Mutex
	files     map[string]struct{}
	pending   map[string]*time.Timer
	callbacks []func(string)
	stopped   bool

	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithWatcherLogger sets the logger for the watcher.
func WithWatcherLogger(l logger.Logger) WatcherOption {
	return func(w *Watcher) {
		if l != nil {
			w.log = l
		}
	}
}

// WithDebounce sets the quiet period; zero fires on every event.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher. Nothing is delivered until Start.
func NewWatcher(opts ...WatcherOption) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		debounce: DefaultDebounce,
		log:      logger.Nop(),
		files:    make(map[string]struct{}),
		pending:  make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Watch adds a file. Its directory is watched so that files replaced by
// rename are still seen.
func (w *Watcher) Watch(path string) error {
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := w.fsw.Add(dir); err != nil {
		w.log.Error("failed to watch directory", "path", dir, "error", err)
		return err
	}

	w.mu.Lock()
	w.files[path] = struct{}{}
	w.mu.Unlock()

	w.log.Debug("watching config file", "file", path)
	return nil
}

// OnChange registers a callback invoked with the changed file's path.
// Callbacks run on a timer goroutine.
func (w *Watcher) OnChange(callback func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start delivers events until Stop is called.
func (w *Watcher) Start() {
	w.log.Info("configuration watcher started")

	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			name := filepath.Clean(event.Name)
			if !w.watched(name) {
				continue
			}
			w.log.Debug("configuration file event", "file", name, "op", event.Op.String())
			w.schedule(name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Error("configuration watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

// StartAsync runs Start in a goroutine.
func (w *Watcher) StartAsync() {
	go w.Start()
}

// Stop stops the watcher and drops pending notifications. It is safe to
// call more than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for name, t := range w.pending {
			t.Stop()
			delete(w.pending, name)
		}
		w.mu.Unlock()

		close(w.done)
		if err = w.fsw.Close(); err != nil {
			w.log.Error("failed to close watcher", "error", err)
			return
		}
		w.log.Info("configuration watcher stopped")
	})
	return err
}

func (w *Watcher) watched(name string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.files[name]
	return ok
}

// schedule (re)arms the per-file timer.
func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[name]; ok {
		t.Reset(w.debounce)
		return
	}
	w.pending[name] = time.AfterFunc(w.debounce, func() { w.fire(name) })
}

func (w *Watcher) fire(name string) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	delete(w.pending, name)
	callbacks := slices.Clone(w.callbacks)
	w.mu.Unlock()

	w.log.Info("configuration file changed", "file", name)
	for _, cb := range callbacks {
		cb(name)
	}
}
