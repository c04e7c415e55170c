package codeintel

import (
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/quarry-ai/quarry/internal/event"
	"github.com/quarry-ai/quarry/internal/logging"
)

var watchSkipDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	"dist":         true,
	"build":        true,
	"vendor":       true,
}

// Watcher invalidates parser and file caches when files change on disk,
// catching edits made outside the tools (editors, git operations).
type Watcher struct {
	parser *Parser
	fw     *fsnotify.Watcher
	done   chan struct{}
}

// NewWatcher watches root and its subdirectories for changes. Close must
// be called to release the underlying watches.
func NewWatcher(parser *Parser, root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{parser: parser, fw: fw, done: make(chan struct{})}
	if err := w.addRecursive(root); err != nil {
		fw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if watchSkipDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			logging.Debug().Err(err).Str("path", path).Msg("watch failed")
		}
		return nil
	})
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.parser.Invalidate(ev.Name)
				InvalidateFile(ev.Name)
			}
			if ev.Op&fsnotify.Create != 0 {
				// New directories need their own watch.
				w.addRecursive(ev.Name)
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			logging.Debug().Err(err).Msg("watcher error")
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

// BindBus subscribes cache invalidation to file.modified events so tool
// writes take effect immediately, without waiting for the filesystem
// watcher. Returns the unsubscribe function.
func BindBus(bus *event.Bus, parser *Parser) func() {
	return bus.Subscribe(event.FileModified, func(ev event.Event) {
		data, ok := ev.Data.(event.FileModifiedData)
		if !ok {
			return
		}
		parser.Invalidate(data.Path)
		InvalidateFile(data.Path)
	})
}
