package teams

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce collapses the event bursts editors produce when saving.
const debounce = 200 * time.Millisecond

// SyncCallback is called with the synced slugs after each successful reload.
type SyncCallback func(slugs []string)

// Watch watches the teams file and re-syncs it into w after every change
// until ctx is cancelled. The parent directory is watched so that
// atomic-rename saves are seen. A file that fails to parse is logged and
// leaves the stored teams untouched.
func Watch(ctx context.Context, w Writer, path string, logger *slog.Logger, cb SyncCallback) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		return err
	}

	logger.Info("teams watcher: started", slog.String("path", abs))

	var timer *time.Timer
	var timerCh <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			logger.Info("teams watcher: stopped")
			return nil

		case <-timerCh:
			timerCh = nil
			slugs, err := Sync(w, abs, logger)
			if err != nil {
				logger.Warn("teams watcher: sync failed", slog.String("error", err.Error()))
				continue
			}
			if cb != nil {
				cb(slugs)
			}

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			timerCh = timer.C

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("teams watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
