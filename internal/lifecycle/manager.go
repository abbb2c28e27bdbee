package lifecycle

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/okets/folder-mcp-core/internal/changedetect"
	"github.com/okets/folder-mcp-core/internal/folder"
	"github.com/okets/folder-mcp-core/internal/folderdb"
	"github.com/okets/folder-mcp-core/internal/taskqueue"
)

// ProcessResult is what an Orchestrator hands back for one file (spec.md
// §4.7).
type ProcessResult struct {
	MimeType          string
	Chunks            []folderdb.ChunkRecord
	DocumentEmbedding []float32
	DocumentKeywords  string
	ProcessingMs      int64
}

// Orchestrator is the per-file pipeline a Manager drives (IndexingOrchestrator,
// spec.md §4.7).
type Orchestrator interface {
	ProcessFile(path string) (ProcessResult, error)
	RemoveFile(path string) error
}

// Database is the subset of folderdb.DB a Manager needs.
type Database interface {
	AddEmbeddings(filePath, mimeType string, documentEmbedding []float32, documentKeywords string, processingMs int64, chunks []folderdb.ChunkRecord) error
	RemoveDocument(filePath string) error
	GetDocumentFingerprints() (map[string]string, error)
	CleanupMissingFiles(existingPaths []string) (int, error)
}

// FileStateTracker is the subset of filestate.Store a Manager needs to keep
// file_states in sync with the task it is dispatching (spec.md §4.2, §4.6).
type FileStateTracker interface {
	StartProcessing(filePath, contentHash string) error
	MarkFileProcessed(filePath string, chunkCount int) error
	MarkFileFailed(filePath, reason string) error
}

// FileSystem enumerates a folder's current files (external collaborator,
// spec.md §6).
type FileSystem interface {
	ScanFolder(folderPath string, extensions []string) ([]changedetect.FileRef, error)
}

// Config configures one Manager.
type Config struct {
	FolderID            string
	FolderPath          string
	SupportedExtensions []string
	MaxFilesPerBatch    int
	MaxConcurrentTasks  int
	MaxRetries          int
	RetryDelay          time.Duration
}

// Manager is FolderLifecycleManager: the orchestrator for one folder
// (spec.md §4.6). It exclusively owns its TaskQueue, StateMachine and
// FileStateStore accessor; it shares its Database handle (reads) with the
// vector search pool.
type Manager struct {
	*observers

	cfg Config

	db           Database
	orchestrator Orchestrator
	fs           FileSystem
	detector     *changedetect.Detector
	fileState    FileStateTracker

	mu                sync.Mutex
	sm                *StateMachine
	queue             *taskqueue.Queue
	active            bool
	consecutiveErrors int
	errorMessage      string

	lastScanStarted    *time.Time
	lastScanCompleted  *time.Time
	lastIndexStarted   *time.Time
	lastIndexCompleted *time.Time

	progress folder.Progress

	inFlightMu sync.Mutex
	inFlight   int
	dispatchOn bool
}

// New builds a Manager in the pending state. fileState tracks per-file
// processing state in file_states across scans (spec.md §4.2); it may be nil
// in tests that don't care about incremental rescans.
func New(cfg Config, db Database, orchestrator Orchestrator, fs FileSystem, detector *changedetect.Detector, fileState FileStateTracker) *Manager {
	if cfg.MaxFilesPerBatch <= 0 {
		cfg.MaxFilesPerBatch = 50
	}
	if cfg.MaxConcurrentTasks <= 0 {
		cfg.MaxConcurrentTasks = 2
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Manager{
		observers:    newObservers(),
		cfg:          cfg,
		db:           db,
		orchestrator: orchestrator,
		fs:           fs,
		detector:     detector,
		fileState:    fileState,
		sm:           NewStateMachine(),
		queue:        taskqueue.New(cfg.RetryDelay),
		active:       true,
	}
}

// GetState returns a defensive snapshot of the manager's full state.
func (m *Manager) GetState() *folder.LifecycleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() *folder.LifecycleState {
	s := &folder.LifecycleState{
		FolderID:           m.cfg.FolderID,
		Status:             m.sm.Current(),
		Progress:           m.progress,
		LastScanStarted:    m.lastScanStarted,
		LastScanCompleted:  m.lastScanCompleted,
		LastIndexStarted:   m.lastIndexStarted,
		LastIndexCompleted: m.lastIndexCompleted,
		ConsecutiveErrors:  m.consecutiveErrors,
		ErrorMessage:       m.errorMessage,
		FileEmbeddingTasks: m.queue.Snapshot(),
	}
	return s.Clone()
}

// GetProgress returns the current progress snapshot.
func (m *Manager) GetProgress() folder.Progress {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.progress
}

// IsActive reports whether the manager is currently accepting work (false
// after Stop, until Reset).
func (m *Manager) IsActive() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// IsComplete reports whether the folder has reached active with no pending
// or in-progress work.
func (m *Manager) IsComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sm.Current() == folder.StatusActive
}

// StartScanning drives the folder through steps 1-4 of spec.md §4.6: it is
// only legal from pending or active.
func (m *Manager) StartScanning() error {
	m.mu.Lock()
	if !m.sm.CanTransitionTo(folder.StatusScanning) {
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: cannot start scanning from %s", m.sm.Current())
	}
	if err := m.sm.TransitionTo(folder.StatusScanning); err != nil {
		m.mu.Unlock()
		return err
	}
	now := time.Now().UTC()
	m.lastScanStarted = &now
	m.mu.Unlock()
	m.emitStateChange(folder.StatusScanning)

	files, err := m.fs.ScanFolder(m.cfg.FolderPath, m.cfg.SupportedExtensions)
	if err != nil {
		m.handleError(err, "scan")
		return err
	}

	fingerprints, err := m.db.GetDocumentFingerprints()
	if err != nil {
		m.handleError(err, "scan")
		return err
	}
	known := make(map[string]struct{}, len(fingerprints))
	for path := range fingerprints {
		known[path] = struct{}{}
	}

	changes, err := m.detector.Detect(files, known)
	if err != nil {
		m.handleError(err, "scan")
		return err
	}

	m.mu.Lock()
	now = time.Now().UTC()
	m.lastScanCompleted = &now
	m.mu.Unlock()

	return m.processScanResults(changes)
}

// processScanResults implements spec.md §4.6's processScanResults.
func (m *Manager) processScanResults(changes []folder.FileChange) error {
	m.mu.Lock()

	if len(changes) == 0 {
		if err := m.sm.TransitionTo(folder.StatusActive); err != nil {
			m.mu.Unlock()
			return err
		}
		m.progress = folder.Progress{Percentage: 100}
		m.queue.ClearAll()
		state := m.stateLocked()
		m.mu.Unlock()
		m.emitStateChange(folder.StatusActive)
		m.emitScanComplete(state)
		return nil
	}

	batch := changes
	if len(batch) > m.cfg.MaxFilesPerBatch {
		overflow := len(batch) - m.cfg.MaxFilesPerBatch
		slog.Warn("lifecycle_scan_overflow",
			slog.String("folderId", m.cfg.FolderID),
			slog.Int("overflow", overflow),
			slog.Int("maxFilesPerBatch", m.cfg.MaxFilesPerBatch))
		batch = batch[:m.cfg.MaxFilesPerBatch]
	}

	for i, change := range batch {
		task := &folder.FileEmbeddingTask{
			ID:          fmt.Sprintf("%s#%d#%d", m.cfg.FolderID, time.Now().UnixNano(), i),
			File:        change.Path,
			ContentHash: change.Hash,
			Task:        folder.TaskTypeForChange(change.ChangeType),
			Status:      folder.TaskStatusPending,
			MaxRetries:  m.cfg.MaxRetries,
			CreatedAt:   time.Now().UTC(),
		}
		m.queue.Enqueue(task)
	}

	if err := m.sm.TransitionTo(folder.StatusReady); err != nil {
		m.mu.Unlock()
		return err
	}
	m.updateProgressLocked()
	state := m.stateLocked()
	m.mu.Unlock()

	m.emitStateChange(folder.StatusReady)
	m.emitScanComplete(state)
	return nil
}

// Stop is cooperative: in-flight tasks complete but their results are
// discarded; no hard kill is attempted (spec.md §5).
func (m *Manager) Stop() {
	m.mu.Lock()
	m.active = false
	m.queue.ClearAll()
	state := m.stateLocked()
	m.mu.Unlock()
	m.emitStateChange(state.Status)
}

// Reset returns the manager to pending and re-enables processing.
func (m *Manager) Reset() {
	m.mu.Lock()
	m.sm.Reset()
	m.active = true
	m.consecutiveErrors = 0
	m.errorMessage = ""
	m.progress = folder.Progress{}
	m.queue.ClearAll()
	m.lastScanStarted = nil
	m.lastScanCompleted = nil
	m.lastIndexStarted = nil
	m.lastIndexCompleted = nil
	m.mu.Unlock()
	m.emitStateChange(folder.StatusPending)
}

// Dispose stops the manager; it is not usable afterward.
func (m *Manager) Dispose() {
	m.Stop()
}

// handleError implements spec.md §4.6/§7: any error from startScanning (or
// the dispatch loop) increments consecutiveErrors and transitions to error,
// which is terminal until Reset.
func (m *Manager) handleError(err error, context string) {
	m.mu.Lock()
	m.consecutiveErrors++
	m.errorMessage = err.Error()
	if m.sm.Current() != folder.StatusError {
		_ = m.sm.TransitionTo(folder.StatusError)
	}
	m.mu.Unlock()

	slog.Error("lifecycle_error",
		slog.String("folderId", m.cfg.FolderID),
		slog.String("context", context),
		slog.String("error", err.Error()))

	m.emitStateChange(folder.StatusError)
	m.emitError(err)
}

func (m *Manager) updateProgressLocked() {
	stats := m.queue.GetStatistics()
	m.progress = folder.Progress{
		TotalTasks:      stats.TotalTasks,
		CompletedTasks:  stats.CompletedTasks,
		FailedTasks:     stats.FailedTasks,
		InProgressTasks: stats.InProgressTasks,
		Percentage:      folder.ComputePercentage(stats.TotalTasks, stats.CompletedTasks, stats.InProgressTasks),
	}
}
