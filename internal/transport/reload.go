package transport

import (
	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher calls onChange whenever the watched config file is written,
// letting cmd/rspstubd pick up a changed firmware image or listen address
// without a restart.
type ConfigWatcher struct {
	watcher *fsnotify.Watcher
}

// WatchConfig starts watching path for write events, invoking onChange on
// the caller's goroutine each time the file changes. Rename-based editors
// (vim, many config managers) emit Remove+Create rather than Write; both
// are treated as a reload trigger.
func WatchConfig(path string, onChange func()) (*ConfigWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
					onChange()
				}

				if ev.Has(fsnotify.Remove) {
					// Editors that replace-by-rename drop the watch on
					// the old inode; re-add so future saves still fire.
					_ = w.Add(path)
				}

			case _, ok := <-w.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return &ConfigWatcher{watcher: w}, nil
}

// Close stops watching.
func (c *ConfigWatcher) Close() error { return c.watcher.Close() }
