package synonym

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called after every reload triggered by Watch, with the
// reload error if any.
type ReloadFunc func(err error)

// Watch reloads the store from path whenever the file changes, until ctx is
// done. The parent directory is watched so atomic replacements, which swap
// the file rather than write it, are seen too. Bursts of events are collapsed
// into one reload.
func (s *Store) Watch(ctx context.Context, path string, onReload ReloadFunc) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create synonym watcher")
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return errors.Wrapf(err, "watch %s", dir)
	}

	go s.watchLoop(ctx, watcher, filepath.Clean(path), onReload)
	return nil
}

func (s *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string, onReload ReloadFunc) {
	defer watcher.Close()

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	schedule := func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.debounce, func() {
			if ctx.Err() != nil {
				return
			}
			err := s.Load(path)
			if err == nil {
				s.logger.Info("reloaded synonyms", "path", path)
			}
			if onReload != nil {
				onReload(err)
			}
		})
	}
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				s.logger.Debug("synonym file changed", "path", path, "op", event.Op.String())
				schedule()
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.logger.Warn("synonym watcher error", "err", err)
		}
	}
}
