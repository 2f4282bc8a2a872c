package portals

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ConfigWatcher reloads a config file whenever it changes on disk.
// Successfully parsed configs are sent on Configs; parse and watch failures
// on Errors. Both channels are closed once the watcher stops.
type ConfigWatcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce time.Duration

	Configs chan Config
	Errors  chan error
	closeCh chan struct{}
	doneCh  chan struct{}
	once    sync.Once
}

// WatchConfig starts watching the config file at path. The directory is
// watched rather than the file, so editors that replace the file on save
// keep triggering reloads.
func WatchConfig(path string) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &ConfigWatcher{
		watcher:  w,
		path:     abs,
		debounce: 100 * time.Millisecond,
		Configs:  make(chan Config, 1),
		Errors:   make(chan error, 1),
		closeCh:  make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops the watcher.
func (w *ConfigWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.doneCh
	})
	return err
}

func (w *ConfigWatcher) run() {
	defer func() {
		close(w.Configs)
		close(w.Errors)
		close(w.doneCh)
	}()

	// Reloads trail the last event of a burst, so a truncate followed by a
	// write loads the written file.
	reload := time.NewTimer(w.debounce)
	reload.Stop()
	defer reload.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			reload.Reset(w.debounce)
		case <-reload.C:
			c, err := LoadConfig(w.path)
			if err != nil {
				w.send(nil, err)
				continue
			}
			w.send(&c, nil)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.send(nil, err)
		case <-w.closeCh:
			return
		}
	}
}

// send delivers a result without blocking past Close.
func (w *ConfigWatcher) send(c *Config, err error) {
	if c != nil {
		select {
		case w.Configs <- *c:
		case <-w.closeCh:
		}
		return
	}
	select {
	case w.Errors <- err:
	case <-w.closeCh:
	}
}
