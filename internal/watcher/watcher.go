// Package watcher reloads the stage section of the config file when it
// changes on disk.
package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"bitmapadapter/internal/config"
	"bitmapadapter/internal/log"
	"bitmapadapter/internal/stage"
)

// DefaultDebounce is how long the watcher waits after the last change
// before reloading.
const DefaultDebounce = 500 * time.Millisecond

// Reload is the outcome of one reload of the config file.
type Reload struct {
	Size    stage.FrameSize
	Applied bool
	Err     error
}

// Watcher applies stage size changes from a YAML config file.
type Watcher struct {
	path     string
	stage    *stage.Stage
	debounce time.Duration
	watcher  *fsnotify.Watcher
	reloads  chan Reload

	mu      sync.Mutex
	timer   *time.Timer
	started bool
	done    chan struct{}
}

// New creates a watcher for the config file at path. The parent directory
// is watched so editors that replace the file are still seen.
func New(path string, st *stage.Stage) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, errors.Wrapf(err, "resolve %s", path)
	}
	return &Watcher{
		path:     abs,
		stage:    st,
		debounce: DefaultDebounce,
		watcher:  fsWatcher,
		reloads:  make(chan Reload, 16),
		done:     make(chan struct{}),
	}, nil
}

// SetDebounce changes the debounce delay. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Reloads delivers the outcome of each reload. Outcomes are dropped when
// nobody reads them.
func (w *Watcher) Reloads() <-chan Reload {
	return w.reloads
}

// Start begins watching.
func (w *Watcher) Start() error {
	dir := filepath.Dir(w.path)
	if err := w.watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "failed to watch folder %s", dir)
	}
	log.Info("Watcher: watching %s for stage changes", w.path)

	w.mu.Lock()
	w.started = true
	w.mu.Unlock()
	go w.processEvents()
	return nil
}

// Stop stops watching and cancels a pending reload.
func (w *Watcher) Stop() error {
	err := w.watcher.Close()

	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if started {
		<-w.done
	}

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return err
}

func (w *Watcher) processEvents() {
	defer close(w.done)

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			w.mu.Lock()
			if w.timer != nil {
				w.timer.Stop()
			}
			w.timer = time.AfterFunc(w.debounce, w.reload)
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn("Watcher error: %v", err)
		}
	}
}

// reload reads the stage section and applies it. Missing dimensions keep
// the current stage value.
func (w *Watcher) reload() {
	r := Reload{}
	size, err := config.ReadStage(w.path)
	if err != nil {
		r.Err = err
		log.Warn("Watcher: failed to reload %s: %v", w.path, err)
	} else {
		r.Size = size.Resolve(w.stage.NativeSize())
		r.Applied = w.stage.SetNativeSize([]int{r.Size.Width, r.Size.Height})
		if r.Applied {
			log.Info("Watcher: stage native size set to %s", r.Size)
		} else {
			log.Warn("Watcher: ignored invalid stage size %s", r.Size)
		}
	}

	select {
	case w.reloads <- r:
	default:
	}
}
