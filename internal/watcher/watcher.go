// Package watcher reports debounced batches of changed source files so the
// crate can be re-analysed while an editor session or the watch command runs.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a batch is delivered.
const DefaultDebounce = 500 * time.Millisecond

// ErrStarted is returned when Start is called twice.
var ErrStarted = errors.New("watcher already started")

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period. Non-positive values keep the default.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithExtensions limits events to files with one of the given extensions.
// The default is ".rs".
func WithExtensions(exts ...string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			w.extensions[ext] = true
		}
	}
}

// WithFilter drops files for which keep returns false. Directories for which
// keep returns false are not watched at all.
func WithFilter(keep func(path string, dir bool) bool) Option {
	return func(w *Watcher) { w.keep = keep }
}

// Watcher watches directory trees and delivers changed file paths in batches.
// Events keep accumulating while paused and are delivered on Resume.
type Watcher struct {
	fsw        *fsnotify.Watcher
	dirs       []string
	extensions map[string]bool
	keep       func(path string, dir bool) bool
	debounce   time.Duration

	callback func(files []string)
	cancel   context.CancelFunc
	started  bool
	startMu  sync.Mutex

	paused   bool
	pausedMu sync.RWMutex

	pending   map[string]struct{}
	pendingMu sync.Mutex

	timer   *time.Timer
	timerMu sync.Mutex

	stopOnce sync.Once
	doneCh   chan struct{}
}

// New creates a watcher over dirs and their subdirectories. Watching starts
// with Start.
func New(dirs []string, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:        fsw,
		dirs:       dirs,
		extensions: map[string]bool{".rs": true},
		debounce:   DefaultDebounce,
		pending:    make(map[string]struct{}),
		doneCh:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, dir := range dirs {
		if err := w.addTree(dir); err != nil {
			fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// Start begins delivering batches to callback until ctx is cancelled or Stop
// is called. Batches are sorted and contain each path once.
func (w *Watcher) Start(ctx context.Context, callback func(files []string)) error {
	w.startMu.Lock()
	defer w.startMu.Unlock()
	if w.started {
		return ErrStarted
	}
	if callback == nil {
		return errors.New("watcher callback is nil")
	}
	w.started = true
	w.callback = callback

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	go w.loop(loopCtx)
	return nil
}

// Stop ends watching and releases the fsnotify handle. It is safe to call more
// than once and from several goroutines.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.startMu.Lock()
		started := w.started
		w.startMu.Unlock()

		if started {
			w.cancel()
			<-w.doneCh
		} else {
			close(w.doneCh)
		}
		err = w.fsw.Close()
	})
	return err
}

// Pause holds batches back; changes are still recorded.
func (w *Watcher) Pause() {
	w.pausedMu.Lock()
	w.paused = true
	w.pausedMu.Unlock()
}

// Resume delivers anything recorded while paused immediately.
func (w *Watcher) Resume() {
	w.pausedMu.Lock()
	was := w.paused
	w.paused = false
	w.pausedMu.Unlock()

	if was {
		w.flush()
	}
}

// Done is closed once the event loop has exited.
func (w *Watcher) Done() <-chan struct{} { return w.doneCh }

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)

	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := w.addTree(ev.Name); err != nil {
						log.Printf("Warning: failed to watch new directory %s: %v", ev.Name, err)
					}
					continue
				}
			}
			if !w.relevant(ev) {
				continue
			}
			w.pendingMu.Lock()
			w.pending[ev.Name] = struct{}{}
			w.pendingMu.Unlock()
			w.resetTimer(fire)

		case <-fire:
			w.pausedMu.RLock()
			paused := w.paused
			w.pausedMu.RUnlock()
			if !paused {
				w.flush()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: file watcher error: %v", err)
		}
	}
}

// flush hands the pending set to the callback, if there is one.
func (w *Watcher) flush() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]struct{})
	w.pendingMu.Unlock()

	sort.Strings(files)
	if w.callback != nil {
		w.callback(files)
	}
}

func (w *Watcher) resetTimer(fire chan struct{}) {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case fire <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) stopTimer() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	if !w.extensions[filepath.Ext(ev.Name)] {
		return false
	}
	return w.keep == nil || w.keep(ev.Name, false)
}

// addTree watches root and every directory below it that the filter keeps.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			log.Printf("Warning: error accessing %s: %v", path, err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.keep != nil && !w.keep(path, true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			log.Printf("Warning: failed to watch directory %s: %v", path, err)
		}
		return nil
	})
}
