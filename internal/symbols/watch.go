package symbols

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"clrdebug/internal/logging"
)

// Watcher proactively invalidates cached documents when an assembly file
// changes on disk (an assembly rebuilt out from under a running session),
// rather than relying solely on the mtime check that runs on next access.
type Watcher struct {
	resolver *Resolver
	fsw      *fsnotify.Watcher
	done     chan struct{}
}

// NewWatcher starts watching dirs for changes and, for every file written,
// created, removed or renamed there, drops the resolver's cache entry keyed
// by that file's path. The cache is keyed by assembly path, so a change to
// a sidecar symbol file alone evicts nothing.
func NewWatcher(resolver *Resolver, dirs []string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, d := range dirs {
		if err := fsw.Add(d); err != nil {
			logging.L().Warn("symbols: failed to watch directory", zap.Error(err), zap.String("dir", d))
		}
	}
	w := &Watcher{resolver: resolver, fsw: fsw, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Create) != 0 {
				w.resolver.Invalidate(filepath.Clean(ev.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logging.L().Warn("symbols: watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}
