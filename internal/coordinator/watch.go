package coordinator

import (
	"context"
	"log/slog"

	"github.com/okets/folder-mcp-core/internal/watcher"
)

// WatchFolder starts an fsnotify-driven rescan trigger for an already
// registered folder: on debounced filesystem events it calls IndexFolder
// again, feeding the active->scanning edge (spec.md §4.5). Change detection
// itself stays content-hash based (§4.3); the watcher is purely a trigger.
// The returned stop function tears down the watcher.
func (c *Coordinator) WatchFolder(ctx context.Context, folderPath string) (stop func(), err error) {
	c.mu.Lock()
	_, registered := c.folders[folderPath]
	c.mu.Unlock()
	if !registered {
		return nil, errNotRegistered(folderPath)
	}

	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
	if err != nil {
		return nil, err
	}
	// Start blocks until the watcher stops or ctx is cancelled.
	go func() {
		if err := w.Start(ctx, folderPath); err != nil && ctx.Err() == nil {
			slog.Warn("coordinator_watch_start_failed", "folder", folderPath, "error", err.Error())
		}
	}()

	done := make(chan struct{})
	go func() {
		for {
			select {
			case _, ok := <-w.Events():
				if !ok {
					return
				}
				if err := c.IndexFolder(folderPath); err != nil {
					slog.Warn("coordinator_watch_rescan_failed", "folder", folderPath, "error", err.Error())
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				slog.Warn("coordinator_watch_error", "folder", folderPath, "error", err.Error())
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		_ = w.Stop()
	}, nil
}

func errNotRegistered(folderPath string) error {
	return &notRegisteredError{folderPath: folderPath}
}

type notRegisteredError struct{ folderPath string }

func (e *notRegisteredError) Error() string {
	return "coordinator: folder " + e.folderPath + " is not registered"
}
