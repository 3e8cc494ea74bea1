// Package watch re-renders the table whenever the metadata file changes
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stwalsh4118/git-check-rebase/internal/logging"
)

const eventBuffer = 16

// Event is a change of the watched file
type Event struct {
	Path string
	Op   string
	Time time.Time
}

// Watcher reports changes of one file. The parent directory is watched so
// that atomic replacements (write to temp file + rename) are seen too.
type Watcher struct {
	path      string
	fsWatcher *fsnotify.Watcher
	events    chan Event
	done      chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	started   bool
	logger    logging.Logger
}

// NewWatcher creates a watcher for path. The file does not need to exist yet
// but its directory does.
func NewWatcher(path string, logger logging.Logger) (*Watcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if path == "" {
		return nil, fmt.Errorf("path cannot be empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	return &Watcher{
		path:   abs,
		events: make(chan Event, eventBuffer),
		done:   make(chan struct{}),
		logger: logger.With("component", "watcher"),
	}, nil
}

// Start begins watching
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return fmt.Errorf("watcher is already started")
	}

	dir := filepath.Dir(w.path)
	if info, err := os.Stat(dir); err != nil {
		return fmt.Errorf("failed to check directory %s: %w", dir, err)
	} else if !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return fmt.Errorf("failed to add watch for %s: %w", dir, err)
	}
	w.fsWatcher = fsWatcher

	w.wg.Add(1)
	go w.processEvents()

	w.started = true
	w.logger.Debug("watching", "path", w.path)
	return nil
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	defer close(w.events)

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	eventPath, err := filepath.Abs(event.Name)
	if err != nil || eventPath != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	ev := Event{Path: w.path, Op: mapOp(event.Op), Time: time.Now()}
	select {
	case w.events <- ev:
	default:
		w.logger.Debug("event dropped, channel full", "path", w.path)
	}
}

func mapOp(op fsnotify.Op) string {
	if op.Has(fsnotify.Create) {
		return "CREATE"
	}
	if op.Has(fsnotify.Write) {
		return "WRITE"
	}
	return "UNKNOWN"
}

// Events returns the channel of changes. It is closed after Stop.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Stop stops watching and waits for the event goroutine
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}

	close(w.done)
	err := w.fsWatcher.Close()
	w.wg.Wait()
	w.started = false

	if err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	return nil
}
