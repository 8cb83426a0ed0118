package registry

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange every time the registry file is created, rewritten, renamed or removed,
// until ctx is cancelled. It blocks, callers typically run it in its own goroutine.
//
// The parent directory is watched rather than the file itself, since every write replaces the file
// by rename and a watch on the old inode would go quiet after the first change.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	if onChange == nil {
		return fmt.Errorf("onChange callback cannot be nil")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create registry watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	dir := filepath.Dir(s.opts.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch registry directory '%s': %w", dir, err)
	}

	target := filepath.Clean(s.opts.Path)
	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Rename | fsnotify.Remove

	s.logger.Debug("Watching registry for changes", "path", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || !ev.Op.Has(relevant) {
				continue
			}
			s.logger.Trace("Registry changed", "op", ev.Op.String())
			onChange()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("Registry watcher error", "error", err)
		}
	}
}
