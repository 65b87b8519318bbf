package sync

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/arne/tubetag/internal/scan"
	"github.com/arne/tubetag/internal/util"
	"github.com/fsnotify/fsnotify"
)

// debounceDelay batches a burst of file events into a single kick
const debounceDelay = 2 * time.Second

// Watcher watches the scan tree and emits a kick when new video files
// land, so the runner can scan ahead of the poll interval. The poll cycle
// remains the source of truth; missed events cost at most one interval.
type Watcher struct {
	fsw     *fsnotify.Watcher
	scanner *scan.Scanner
	root    string
	kicks   chan struct{}
}

// NewWatcher creates a watcher over the tree rooted at root
func NewWatcher(root string, scanner *scan.Scanner) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:     fsw,
		scanner: scanner,
		root:    root,
		kicks:   make(chan struct{}, 1),
	}

	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}

	return w, nil
}

// Kicks returns the channel the runner selects on
func (w *Watcher) Kicks() <-chan struct{} {
	return w.kicks
}

// Close stops the underlying filesystem watcher
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// addTree registers root and every directory below it. fsnotify watches
// are not recursive, so new directories are added as they appear.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.WarnLog("Watcher: error accessing %s: %v", path, err)
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				util.WarnLog("Watcher: failed to watch %s: %v", path, err)
			}
		}
		return nil
	})
}

// Run dispatches filesystem events until the context is cancelled
func (w *Watcher) Run(ctx context.Context) {
	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event, &debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			util.WarnLog("Watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event, debounce **time.Timer) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}

	if info.IsDir() {
		if err := w.addTree(event.Name); err != nil {
			util.WarnLog("Watcher: failed to watch new directory %s: %v", event.Name, err)
		}
		return
	}

	if !w.scanner.Matches(event.Name) {
		return
	}

	util.DebugLog("Watcher: new file %s", event.Name)

	if *debounce != nil {
		(*debounce).Stop()
	}
	*debounce = time.AfterFunc(debounceDelay, func() {
		select {
		case w.kicks <- struct{}{}:
		default:
			// A kick is already pending
		}
	})
}
