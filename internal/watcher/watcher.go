// Package watcher observes the artifact cache directory and fans file
// events out to subscribers, which back the artifact event stream
// endpoint. Rapid successive writes to one file are debounced.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Event is one observed change to a cached artifact.
type Event struct {
	Op       string    `json:"op"` // created, modified, removed
	Filename string    `json:"filename"`
	Path     string    `json:"path"`
	At       time.Time `json:"at"`
}

// Watcher watches the cache directory for .js and .css artifacts.
type Watcher struct {
	dir         string
	log         *zap.Logger
	fs          *fsnotify.Watcher
	debounceDur time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time
	subs     map[int]chan Event
	nextSub  int
	running  bool
	done     chan struct{}
}

// New creates a watcher over dir.
func New(dir string, log *zap.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:         dir,
		log:         log,
		fs:          fs,
		debounceDur: 500 * time.Millisecond,
		lastSeen:    make(map[string]time.Time),
		subs:        make(map[int]chan Event),
		done:        make(chan struct{}),
	}, nil
}

// Start begins watching; non-blocking. The cache directory is created
// if it does not exist yet.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		w.log.Warn("failed to create watch directory", zap.String("dir", w.dir), zap.Error(err))
	}
	if err := w.fs.Add(w.dir); err != nil {
		return err
	}
	// The stylesheet subdirectory may appear after the first form
	// generation; a watch failure there is not fatal.
	cssDir := filepath.Join(w.dir, "css")
	if err := os.MkdirAll(cssDir, 0o755); err == nil {
		if err := w.fs.Add(cssDir); err != nil {
			w.log.Warn("failed to watch stylesheet directory", zap.Error(err))
		}
	}

	// running flips only once the watch is established, so a failed
	// Start leaves Close with nothing to wait for.
	w.running = true
	w.log.Info("watching artifact directory", zap.String("dir", w.dir))
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Error("watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	ext := strings.ToLower(filepath.Ext(event.Name))
	if ext != ".js" && ext != ".css" {
		return
	}

	var op string
	switch {
	case event.Has(fsnotify.Create):
		op = "created"
	case event.Has(fsnotify.Write):
		op = "modified"
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		op = "removed"
	default:
		return
	}

	now := time.Now()
	base := filepath.Base(event.Name)
	ev := Event{
		Op:       op,
		Filename: strings.TrimSuffix(base, filepath.Ext(base)),
		Path:     event.Name,
		At:       now,
	}

	// Fan-out happens under the lock: a cancel closes the channel under
	// the same lock, so a send can never race the close. Sends are
	// non-blocking, so slow subscribers lose events rather than stall
	// the loop.
	w.mu.Lock()
	defer w.mu.Unlock()
	if op != "removed" {
		if last, ok := w.lastSeen[event.Name]; ok && now.Sub(last) < w.debounceDur {
			return
		}
		w.lastSeen[event.Name] = now
	} else {
		delete(w.lastSeen, event.Name)
	}
	for _, ch := range w.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribe registers an event channel. The returned cancel func must
// be called when the subscriber goes away.
func (w *Watcher) Subscribe() (<-chan Event, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSub
	w.nextSub++
	ch := make(chan Event, 16)
	w.subs[id] = ch

	return ch, func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if existing, ok := w.subs[id]; ok {
			delete(w.subs, id)
			close(existing)
		}
	}
}

// Close stops the watcher and waits for the event loop to drain.
func (w *Watcher) Close() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	err := w.fs.Close()
	if running {
		<-w.done
	}
	return err
}
