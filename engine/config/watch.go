package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/framegraph/engine/core"
)

// Editors tend to write a file in several steps.
const settleDelay = 100 * time.Millisecond

// Watcher reloads a configuration file whenever it changes on disk.
type Watcher struct {
	path     string
	fsnotify *fsnotify.Watcher
	onChange func(*Config)

	done     chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	isClosed bool
}

// Watch starts watching path. onChange runs on the watcher goroutine with
// every version of the file that loads and validates; broken versions are
// logged and skipped.
func Watch(path string, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// The directory is watched rather than the file so that rename-on-save
	// editors keep working.
	if err := fsWatch.Add(filepath.Dir(abs)); err != nil {
		fsWatch.Close()
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		fsnotify: fsWatch,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.isClosed {
		w.mu.Unlock()
		return errors.New("config watcher already closed")
	}
	w.isClosed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()
	return w.fsnotify.Close()
}

func (w *Watcher) start() {
	defer w.wg.Done()

	timer := time.NewTimer(settleDelay)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			if filepath.Clean(e.Name) != w.path {
				continue
			}
			if e.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				timer.Reset(settleDelay)
			}

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("config watcher: %s", err)

		case <-timer.C:
			w.reload()

		case <-w.done:
			timer.Stop()
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		core.LogError("config reload rejected: %s", err)
		return
	}
	core.LogInfo("config reloaded from %s", w.path)
	w.onChange(cfg)
}
