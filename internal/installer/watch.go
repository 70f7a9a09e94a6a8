package installer

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for the manifest to settle
// before reloading it.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reloads an Installer when its manifest is changed by another
// process, such as a one-shot CLI invocation next to a running server.
type Watcher struct {
	installer *Installer
	watcher   *fsnotify.Watcher
	debounce  time.Duration
	logger    *slog.Logger

	pendingMu sync.Mutex
	pending   bool

	started atomic.Bool
	done    chan struct{}
}

// NewWatcher creates a watcher for in's install directory. A debounce of
// zero uses DefaultDebounce.
func NewWatcher(in *Installer, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = in.logger
	}
	return &Watcher{
		installer: in,
		watcher:   fsw,
		debounce:  debounce,
		logger:    logger,
		done:      make(chan struct{}),
	}, nil
}

// Start begins watching. Events are processed until ctx is cancelled or
// Stop is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.installer.Dir()); err != nil {
		return err
	}
	w.started.Store(true)
	go w.processEvents(ctx)

	w.logger.Info("manifest watcher started", "dir", w.installer.Dir(), "debounce", w.debounce)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()
	if w.started.Load() {
		<-w.done
	}
	return err
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer close(w.done)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) handleFSEvent(event fsnotify.Event) {
	if filepath.Base(event.Name) != ManifestFile {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	w.pendingMu.Lock()
	w.pending = true
	w.pendingMu.Unlock()

	w.logger.Debug("manifest change detected", "op", event.Op.String())
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	if !w.pending {
		w.pendingMu.Unlock()
		return
	}
	w.pending = false
	w.pendingMu.Unlock()

	if err := w.installer.Reload(); err != nil {
		w.logger.Warn("manifest reload failed", "error", err)
	}
}
