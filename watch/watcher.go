// Package watch re-checks grammar files when they change on disk.
package watch

import (
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("bnf.watch")

// OnChange is called with a file that was created or modified. removed is set
// when the file no longer exists.
type OnChange func(path string, removed bool)

// FileWatcher reports changes to a fixed set of files. Directories containing
// the files are watched so that editors replacing a file by rename are seen.
type FileWatcher struct {
	paths    []string
	onChange OnChange
	stopCh   chan struct{}
	doneCh   chan struct{}
	once     sync.Once
	modTimes map[string]time.Time
}

func NewFileWatcher(paths []string, onChange OnChange) *FileWatcher {
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = filepath.Clean(p)
	}
	return &FileWatcher{
		paths:    cleaned,
		onChange: onChange,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		modTimes: make(map[string]time.Time),
	}
}

// Start records the current state of every file and begins watching. The
// callback is not invoked for the initial state.
func (w *FileWatcher) Start() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	var dirs []string
	for _, p := range w.paths {
		dir := filepath.Dir(p)
		if slices.Contains(dirs, dir) {
			continue
		}
		dirs = append(dirs, dir)
		log.Debugf("watching %s", dir)
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return err
		}
	}
	w.record()
	go w.run(watcher)
	return nil
}

// Stop ends watching and waits for the event loop to exit.
func (w *FileWatcher) Stop() {
	w.once.Do(func() { close(w.stopCh) })
	<-w.doneCh
}

func (w *FileWatcher) run(watcher *fsnotify.Watcher) {
	defer close(w.doneCh)
	defer watcher.Close()

	for {
		select {
		case <-w.stopCh:
			return
		case evt, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !w.watched(evt.Name) {
				continue
			}
			if evt.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				log.Debugf("file event: %s", evt)
				w.scan()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Errorf("watch: %s", err)
		}
	}
}

func (w *FileWatcher) watched(name string) bool {
	return slices.Contains(w.paths, filepath.Clean(name))
}

// record stores modification times without reporting changes.
func (w *FileWatcher) record() {
	for _, path := range w.paths {
		if info, err := os.Stat(path); err == nil {
			w.modTimes[path] = info.ModTime()
		}
	}
}

// scan compares every file against its last known modification time and
// reports the ones that changed, appeared or disappeared.
func (w *FileWatcher) scan() {
	for _, path := range w.paths {
		info, err := os.Stat(path)
		lastMod, known := w.modTimes[path]
		if err != nil {
			if known {
				delete(w.modTimes, path)
				w.onChange(path, true)
			}
			continue
		}
		if !known || !info.ModTime().Equal(lastMod) {
			w.modTimes[path] = info.ModTime()
			w.onChange(path, false)
		}
	}
}
