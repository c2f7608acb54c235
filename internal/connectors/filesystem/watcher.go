// Package filesystem watches a local corpus tree for document changes.
package filesystem

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/nutrirag/internal/logger"
)

var log = logger.For("watch")

// ChangeType describes what happened to a corpus file.
type ChangeType string

// Change types reported by the watcher.
const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// Change is a single file event below the corpus root.
type Change struct {
	Path string
	Type ChangeType
}

// Watcher reports file changes below a root directory.
// Hidden files and directories are ignored.
type Watcher struct {
	root string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// New creates a watcher for root. Nothing is watched until Watch is called.
func New(root string) *Watcher {
	return &Watcher{root: root}
}

// Root returns the watched directory.
func (w *Watcher) Root() string {
	return w.root
}

// Watch streams changes until ctx is cancelled or Close is called.
// Directories created after the call are added to the watch set.
func (w *Watcher) Watch(ctx context.Context) (<-chan Change, error) {
	info, err := os.Stat(w.root)
	if err != nil {
		return nil, fmt.Errorf("stat corpus root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("corpus root %s is not a directory", w.root)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := w.addTree(fw, w.root); err != nil {
		fw.Close()
		return nil, err
	}

	w.mu.Lock()
	w.watcher = fw
	w.mu.Unlock()

	changes := make(chan Change, 64)
	go w.loop(ctx, fw, changes)
	return changes, nil
}

// Close stops the underlying watcher. Safe to call more than once.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, changes chan<- Change) {
	defer close(changes)
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) && w.isNewDir(event.Name) {
				if err := w.addTree(fw, event.Name); err != nil {
					log.Warn("watching %s: %v", event.Name, err)
				}
				continue
			}
			change := w.handleFsEvent(event)
			if change == nil {
				continue
			}
			select {
			case changes <- *change:
			case <-ctx.Done():
				return
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			log.Warn("watcher error: %v", err)
		}
	}
}

// handleFsEvent converts an fsnotify event into a Change, or nil when the
// event does not affect indexable content.
func (w *Watcher) handleFsEvent(event fsnotify.Event) *Change {
	if w.hidden(event.Name) {
		return nil
	}

	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		info, err := os.Stat(event.Name)
		if err != nil || info.IsDir() {
			return nil
		}
		changeType := ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = ChangeCreated
		}
		return &Change{Path: event.Name, Type: changeType}
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		return &Change{Path: event.Name, Type: ChangeDeleted}
	default:
		return nil
	}
}

func (w *Watcher) isNewDir(path string) bool {
	if w.hidden(path) {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// addTree watches dir and every non-hidden directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && w.hidden(path) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

// hidden reports whether any path element below the root starts with a dot.
func (w *Watcher) hidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if strings.HasPrefix(part, ".") && part != ".." {
			return true
		}
	}
	return false
}

// Debounce groups changes that arrive within quiet of each other and emits
// each group once the stream has been idle for quiet. The returned channel is
// closed when changes is closed or ctx is done; a pending group is flushed
// when changes closes.
func Debounce(ctx context.Context, changes <-chan Change, quiet time.Duration) <-chan []Change {
	out := make(chan []Change)
	go func() {
		defer close(out)

		var pending []Change
		timer := time.NewTimer(quiet)
		if !timer.Stop() {
			<-timer.C
		}
		defer timer.Stop()

		flush := func() bool {
			if len(pending) == 0 {
				return true
			}
			select {
			case out <- pending:
				pending = nil
				return true
			case <-ctx.Done():
				return false
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					flush()
					return
				}
				pending = append(pending, change)
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(quiet)
			case <-timer.C:
				if !flush() {
					return
				}
			}
		}
	}()
	return out
}
