package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 500 * time.Millisecond

// Watch reloads the settings whenever the file is edited by someone else and
// calls onChange with the new snapshot. It watches the parent directory so
// that atomic replacements (ours and editors') are seen. Watching stops when
// ctx is done.
func (st *Store) Watch(ctx context.Context, onChange func(Settings)) error {
	dir := filepath.Dir(st.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch settings directory: %w", err)
	}

	st.logger.Debug("watching settings for changes", "path", st.path)

	go st.watchLoop(ctx, watcher, onChange)

	return nil
}

func (st *Store) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func(Settings)) {
	defer func() { _ = watcher.Close() }()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	name := filepath.Clean(st.path)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}

			if filepath.Clean(event.Name) != name {
				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(watchDebounce, func() {
				if ctx.Err() != nil {
					return
				}

				if s, changed := st.reload(); changed {
					st.logger.Info("settings reloaded from disk", "path", st.path)

					if onChange != nil {
						onChange(s)
					}
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}

			st.logger.Error("settings watcher error", "error", err)
		}
	}
}
