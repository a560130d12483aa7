package ics

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	appLog "github.com/richard-uk1/plannr/internal/log"
)

const defaultDebounce = 200 * time.Millisecond

// Watcher reports changes to local calendar files. It watches the parent
// directories so that editors which replace a file by renaming are seen.
// Bursts of events for one file collapse into a single callback.
type Watcher struct {
	watcher  *fsnotify.Watcher
	onChange func(path string)
	debounce time.Duration

	mu     sync.Mutex
	files  map[string]bool
	dirs   map[string]int
	timers map[string]*time.Timer
	closed bool

	done chan struct{}
}

// NewWatcher starts a watcher. onChange runs on its own goroutine with the
// absolute path of the changed file.
func NewWatcher(onChange func(path string)) (*Watcher, error) {
	return newWatcher(onChange, defaultDebounce)
}

func newWatcher(onChange func(path string), debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		watcher:  fw,
		onChange: onChange,
		debounce: debounce,
		files:    make(map[string]bool),
		dirs:     make(map[string]int),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	go w.loop()
	return w, nil
}

// AddFile starts watching path. Adding a file twice is a no-op.
func (w *Watcher) AddFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.files[abs] {
		return nil
	}
	dir := filepath.Dir(abs)
	if w.dirs[dir] == 0 {
		if err := w.watcher.Add(dir); err != nil {
			return err
		}
	}
	w.dirs[dir]++
	w.files[abs] = true
	appLog.Debug("watching calendar file", "path", abs)
	return nil
}

// RemoveFile stops watching path.
func (w *Watcher) RemoveFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files[abs] {
		return nil
	}
	delete(w.files, abs)
	dir := filepath.Dir(abs)
	w.dirs[dir]--
	if w.dirs[dir] == 0 {
		delete(w.dirs, dir)
		return w.watcher.Remove(dir)
	}
	return nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.schedule(filepath.Clean(event.Name))

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			appLog.Error("file watcher error", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) schedule(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || !w.files[name] {
		return
	}
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, name)
		watching := w.files[name] && !w.closed
		w.mu.Unlock()

		if watching && w.onChange != nil {
			appLog.Info("calendar file changed", "path", name)
			w.onChange(name)
		}
	})
}

// Close stops the watcher. Pending callbacks are dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	close(w.done)
	return w.watcher.Close()
}
