package config

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watcher reloads the config file when it changes and re-applies the log
// level. Only the log level is hot-reloadable; everything else requires a
// restart.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchFile starts watching the config file's directory (editors replace
// files rather than writing in place, so watching the file itself misses
// renames).
func WatchFile(path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create config watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}

	w := &Watcher{path: path, watcher: fw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
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
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			if err != nil {
				if Log != nil {
					Log.WithError(err).Warn("config reload failed, keeping previous settings")
				}
				continue
			}
			SetLogLevel(cfg.Logging.Level)
			if Log != nil {
				Log.WithField("level", cfg.Logging.Level).Info("log level reloaded")
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if Log != nil {
				Log.WithError(err).Warn("config watcher error")
			}
		}
	}
}

// Stop closes the watcher.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.watcher.Close()
}
