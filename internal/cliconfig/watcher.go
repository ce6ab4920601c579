package cliconfig

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/castkit/castd/pkg/log"
)

// WatchFile watches the config file and logs a restart-needed notice when
// it changes. The running configuration is immutable for the process
// lifetime, so changes only take effect after a restart; the notice keeps
// the operator from waiting on an edit that will never apply.
//
// The returned stop function is safe to call more than once.
func WatchFile(ctx context.Context, path string, logger log.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace the file on save, which drops
	// a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, err
	}

	done := make(chan struct{})
	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				logger.Warn("configuration file changed; restart to apply",
					log.String("path", path),
				)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config watcher error", log.Err(err))
			}
		}
	}()

	var stopped bool
	return func() {
		if !stopped {
			stopped = true
			close(done)
		}
	}, nil
}
