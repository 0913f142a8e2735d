package catalog

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reloads the catalog when its backing file changes, so price or
// inventory edits take effect without a restart.
type Watcher struct {
	watcher       *fsnotify.Watcher
	catalog       *Catalog
	path          string
	debounce      time.Duration
	done          chan struct{}
	debounceTimer *time.Timer
	debounceMu    sync.Mutex
	stopOnce      sync.Once
}

// NewWatcher creates a watcher for the catalog file at path.
func NewWatcher(c *Catalog, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		watcher:  fw,
		catalog:  c,
		path:     path,
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}, nil
}

// Start begins watching the catalog file's directory. Watching the
// directory instead of the file survives editors that replace via rename.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch catalog directory: %w", err)
	}

	go w.eventLoop()

	log.Info().Str("path", w.path).Msg("Catalog watcher started")
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()
	})
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Catalog watcher error")
		}
	}
}

// scheduleReload debounces bursts of write events into a single reload.
func (w *Watcher) scheduleReload() {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	products, err := LoadFile(w.path)
	if err != nil {
		log.Warn().Err(err).Str("path", w.path).Msg("Catalog reload failed, keeping previous catalog")
		return
	}

	w.catalog.Reload(products)
	log.Info().Int("products", len(products)).Msg("Catalog reloaded")
}
