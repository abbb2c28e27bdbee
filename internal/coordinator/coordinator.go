package coordinator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okets/folder-mcp-core/internal/changedetect"
	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/embedpipeline"
	"github.com/okets/folder-mcp-core/internal/filestate"
	"github.com/okets/folder-mcp-core/internal/folder"
	"github.com/okets/folder-mcp-core/internal/folderdb"
	"github.com/okets/folder-mcp-core/internal/lifecycle"
	"github.com/okets/folder-mcp-core/internal/scanner"
)

// pollInterval is how often Coordinator checks a Manager's status while
// waiting for a scan or indexing phase to settle.
const pollInterval = 20 * time.Millisecond

// Coordinator is MultiFolderCoordinator: it owns one FolderLifecycleManager
// per registered folder and indexes batches of them concurrently, bounded
// by config.CoordinatorConfig.MaxConcurrentFolders (spec.md §4.9).
type Coordinator struct {
	cfg      config.CoordinatorConfig
	registry *embedpipeline.BackendRegistry

	mu        sync.Mutex
	folders   map[string]config.FolderConfig
	managers  map[string]*lifecycle.Manager
	cancelled map[string]bool
}

// New builds a Coordinator sharing one embedding-backend registry (so the
// same model is only initialized once, however many folders use it) across
// every folder it indexes.
func New(cfg config.CoordinatorConfig, remoteHost string) *Coordinator {
	if cfg.MaxConcurrentFolders <= 0 {
		cfg.MaxConcurrentFolders = config.DefaultCoordinatorConfig().MaxConcurrentFolders
	}
	return &Coordinator{
		cfg:       cfg,
		registry:  embedpipeline.NewBackendRegistry(remoteHost),
		folders:   make(map[string]config.FolderConfig),
		managers:  make(map[string]*lifecycle.Manager),
		cancelled: make(map[string]bool),
	}
}

// RegisterFolder adds folderPath to the set IndexAll operates over.
func (c *Coordinator) RegisterFolder(folderPath string, cfg config.FolderConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.folders[folderPath] = cfg
	return nil
}

// UnregisterFolder drops folderPath and disposes its manager, if running.
func (c *Coordinator) UnregisterFolder(folderPath string) {
	c.mu.Lock()
	mgr := c.managers[folderPath]
	delete(c.folders, folderPath)
	delete(c.managers, folderPath)
	delete(c.cancelled, folderPath)
	c.mu.Unlock()
	if mgr != nil {
		mgr.Dispose()
	}
}

// IndexAll scans and indexes every registered folder, running up to
// opts.MaxConcurrentFolders (or the coordinator default) at a time. When
// cfg.ContinueOnError is true, one folder's failure doesn't stop the rest;
// otherwise IndexAll returns the first error and starts no further folders
// (folders already running finish).
func (c *Coordinator) IndexAll(opts IndexOptions) error {
	c.mu.Lock()
	paths := make([]string, 0, len(c.folders))
	for path := range c.folders {
		paths = append(paths, path)
	}
	c.mu.Unlock()

	limit := opts.MaxConcurrentFolders
	if limit <= 0 {
		limit = c.cfg.MaxConcurrentFolders
	}

	g, gctx := errgroup.WithContext(context.Background())
	g.SetLimit(limit)

	var mu sync.Mutex
	var errs []error

	for _, path := range paths {
		path := path
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			if err := c.IndexFolder(path); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", path, err))
				mu.Unlock()
				if !c.cfg.ContinueOnError {
					return err
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if len(errs) > 0 {
		return fmt.Errorf("coordinator: %d folder(s) failed: %w", len(errs), errs[0])
	}
	return nil
}

// IndexFolder runs the full scan+index pipeline for one registered folder,
// blocking until it reaches Active (done) or Error.
func (c *Coordinator) IndexFolder(folderPath string) error {
	c.mu.Lock()
	cfg, ok := c.folders[folderPath]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("coordinator: folder %q is not registered", folderPath)
	}

	db, err := folderdb.Open(folderPath, cfg.Model, cfg.ModelDimension, cfg.MaxBackups)
	if err != nil {
		return fmt.Errorf("coordinator: open database for %s: %w", folderPath, err)
	}
	defer db.Close()

	store := filestate.New(db, cfg.MaxRetries)
	detector := changedetect.New(store, nil)

	fsAdapter, err := scanner.NewFileSystemAdapter()
	if err != nil {
		return fmt.Errorf("coordinator: build scanner for %s: %w", folderPath, err)
	}

	orchestrator := embedpipeline.NewOrchestrator(
		embedpipeline.NewTextParser(),
		embedpipeline.NewCompositeChunker(),
		c.registry,
		embedpipeline.OrchestratorConfig{ModelID: cfg.Model, BatchSize: cfg.BatchSize},
	)

	mgr := lifecycle.New(lifecycle.Config{
		FolderID:            cfg.FolderID,
		FolderPath:          folderPath,
		SupportedExtensions: cfg.SupportedExtensions,
		MaxFilesPerBatch:    cfg.MaxFilesPerBatch,
		MaxConcurrentTasks:  cfg.MaxConcurrentTasks,
		MaxRetries:          cfg.MaxRetries,
		RetryDelay:          cfg.RetryDelay,
	}, db, orchestrator, fsAdapter, detector, store)

	c.mu.Lock()
	c.managers[folderPath] = mgr
	c.mu.Unlock()
	defer mgr.Dispose()

	if err := mgr.StartScanning(); err != nil {
		return err
	}
	if err := c.waitFor(folderPath, mgr, folder.StatusReady, folder.StatusActive); err != nil {
		return err
	}
	if mgr.GetState().Status == folder.StatusActive {
		return nil // nothing to index
	}

	if err := mgr.StartIndexing(); err != nil {
		return err
	}
	return c.waitFor(folderPath, mgr, folder.StatusActive)
}

// waitFor blocks until mgr reaches one of the target statuses or Error, or
// the folder is cancelled.
func (c *Coordinator) waitFor(folderPath string, mgr *lifecycle.Manager, targets ...folder.Status) error {
	for {
		state := mgr.GetState()
		for _, t := range targets {
			if state.Status == t {
				return nil
			}
		}
		if state.Status == folder.StatusError {
			return fmt.Errorf("coordinator: folder %s entered error state: %s", folderPath, state.ErrorMessage)
		}
		if c.isCancelled(folderPath) {
			mgr.Stop()
			return fmt.Errorf("coordinator: folder %s was cancelled", folderPath)
		}
		time.Sleep(pollInterval)
	}
}

// CancelFolder cooperatively stops one folder's in-flight indexing.
func (c *Coordinator) CancelFolder(folderPath string) {
	c.mu.Lock()
	c.cancelled[folderPath] = true
	mgr := c.managers[folderPath]
	c.mu.Unlock()
	if mgr != nil {
		mgr.Stop()
	}
}

// CancelAll cooperatively stops every folder currently indexing.
func (c *Coordinator) CancelAll() {
	c.mu.Lock()
	paths := make([]string, 0, len(c.managers))
	for path := range c.managers {
		paths = append(paths, path)
	}
	c.mu.Unlock()
	for _, path := range paths {
		c.CancelFolder(path)
	}
}

func (c *Coordinator) isCancelled(folderPath string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled[folderPath]
}

// GetFolderStatus reports one registered folder's current status.
func (c *Coordinator) GetFolderStatus(folderPath string) (FolderStatus, error) {
	c.mu.Lock()
	cfg, ok := c.folders[folderPath]
	mgr := c.managers[folderPath]
	c.mu.Unlock()
	if !ok {
		return FolderStatus{}, fmt.Errorf("coordinator: folder %q is not registered", folderPath)
	}
	if mgr == nil {
		return FolderStatus{FolderID: cfg.FolderID, FolderPath: folderPath, Status: folder.StatusPending}, nil
	}
	state := mgr.GetState()
	return FolderStatus{
		FolderID:   cfg.FolderID,
		FolderPath: folderPath,
		Status:     state.Status,
		Progress:   state.Progress,
		Error:      state.ErrorMessage,
	}, nil
}

// GetAllFoldersStatus aggregates every registered folder's status.
func (c *Coordinator) GetAllFoldersStatus() AggregateStatus {
	c.mu.Lock()
	paths := make([]string, 0, len(c.folders))
	for path := range c.folders {
		paths = append(paths, path)
	}
	c.mu.Unlock()

	agg := AggregateStatus{FoldersByStatus: make(map[folder.Status]int)}
	for _, path := range paths {
		status, err := c.GetFolderStatus(path)
		if err != nil {
			continue
		}
		agg.Folders = append(agg.Folders, status)
		agg.TotalFolders++
		agg.FoldersByStatus[status.Status]++
		agg.TotalFiles += status.Progress.TotalTasks
		agg.ProcessedFiles += status.Progress.CompletedTasks
	}
	if agg.TotalFiles > 0 {
		agg.OverallPercent = folder.ComputePercentage(agg.TotalFiles, agg.ProcessedFiles, 0)
	}
	return agg
}
