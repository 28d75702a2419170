package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// WatchDelay is how long a file must stay unchanged before Watch reports it.
const WatchDelay = 200 * time.Millisecond

// Watch calls fn after path is written, once per burst of changes. It
// watches the parent directory so that editors that replace the file on
// save are still seen. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.SugaredLogger, fn func()) error {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create watcher")
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrapf(err, "failed to watch %s", filepath.Dir(abs))
	}

	debounced := debounce.New(WatchDelay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debugw("presentation changed", "path", abs, "op", event.Op.String())
			debounced(fn)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warnw("watch error", "path", abs, "error", err)
		}
	}
}
