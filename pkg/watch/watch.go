// Package watch reports edits to a set of source files. Directories are
// watched rather than the files themselves so that editors which save by
// renaming a new file into place are still seen.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 100 * time.Millisecond

type Watcher struct {
	w        *fsnotify.Watcher
	files    map[string]bool
	Debounce time.Duration
}

// New starts watching files. The caller must Close the watcher.
func New(files []string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{w: fw, files: make(map[string]bool), Debounce: DefaultDebounce}
	dirs := make(map[string]bool)
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			fw.Close()
			return nil, err
		}
		w.files[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return nil, fmt.Errorf("watching '%s': %w", dir, err)
		}
	}
	return w, nil
}

func (w *Watcher) Close() error { return w.w.Close() }

func (w *Watcher) relevant(ev fsnotify.Event) (string, bool) {
	if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) && !ev.Op.Has(fsnotify.Rename) {
		return "", false
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return "", false
	}
	return name, w.files[name]
}

// Run calls onChange with the files edited since the last call, once
// edits have been quiet for the debounce interval. It returns when ctx is
// done or the watcher fails.
func (w *Watcher) Run(ctx context.Context, onChange func(changed []string)) error {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.w.Events:
			if !ok {
				return nil
			}
			name, ok := w.relevant(ev)
			if !ok {
				continue
			}
			pending[name] = true
			if timer == nil {
				timer = time.NewTimer(w.Debounce)
			} else {
				timer.Reset(w.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := make([]string, 0, len(pending))
			for name := range pending {
				changed = append(changed, name)
			}
			sort.Strings(changed)
			clear(pending)
			onChange(changed)

		case err, ok := <-w.w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("file watcher: %w", err)
		}
	}
}
