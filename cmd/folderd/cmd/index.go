package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/coordinator"
	"github.com/okets/folder-mcp-core/internal/preflight"
)

func newIndexCmd() *cobra.Command {
	var maxConcurrent int
	var watch bool

	cmd := &cobra.Command{
		Use:   "index <folder>...",
		Short: "Scan and index one or more folders",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(args, maxConcurrent, watch)
		},
	}

	cmd.Flags().IntVar(&maxConcurrent, "max-concurrent-folders", 0, "override the default concurrent-folder limit")
	cmd.Flags().BoolVar(&watch, "watch", false, "after indexing, keep watching for changes and re-index on debounce until interrupted")
	return cmd
}

func runIndex(paths []string, maxConcurrent int, watch bool) error {
	coordCfg := config.DefaultCoordinatorConfig()
	c := coordinator.New(coordCfg, flagRemoteHost)
	checker := preflight.New(preflight.WithVerbose(false))
	ctx := context.Background()

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", path, err)
		}

		checks := checker.RunAll(ctx, abs, flagRemoteHost, flagModel)
		if checker.HasCriticalFailures(checks) {
			checker.PrintResults(checks)
			return fmt.Errorf("folderd: preflight checks failed for %s", abs)
		}
		for _, r := range checks {
			if r.Status != preflight.StatusPass {
				logger().Warn("folderd_preflight_warning", "folder", abs, "check", r.Name, "message", r.Message)
			}
		}

		folderCfg := config.DefaultFolderConfig()
		folderCfg.FolderID = abs
		folderCfg.FolderPath = abs
		folderCfg.Model = flagModel
		folderCfg.ModelDimension = flagDimension

		if err := c.RegisterFolder(abs, folderCfg); err != nil {
			return fmt.Errorf("register %s: %w", abs, err)
		}
	}

	if err := c.IndexAll(coordinator.IndexOptions{MaxConcurrentFolders: maxConcurrent}); err != nil {
		return err
	}

	status := c.GetAllFoldersStatus()
	for _, f := range status.Folders {
		logger().Info("folderd_index_complete",
			"folder", f.FolderPath,
			"status", string(f.Status),
			"files", f.Progress.TotalTasks,
			"completed", f.Progress.CompletedTasks,
		)
	}

	if !watch {
		return nil
	}
	return watchUntilInterrupted(c, status.Folders)
}

// watchUntilInterrupted starts a rescan-trigger watcher on every folder and
// blocks until SIGINT/SIGTERM, then tears every watcher down.
func watchUntilInterrupted(c *coordinator.Coordinator, folders []coordinator.FolderStatus) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stops []func()
	for _, f := range folders {
		stop, err := c.WatchFolder(ctx, f.FolderPath)
		if err != nil {
			for _, s := range stops {
				s()
			}
			return fmt.Errorf("watch %s: %w", f.FolderPath, err)
		}
		stops = append(stops, stop)
		logger().Info("folderd_watch_started", "folder", f.FolderPath)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	for _, s := range stops {
		s()
	}
	return nil
}
