package lifecycle

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/okets/folder-mcp-core/internal/folder"
)

const (
	dispatchIdleSleep = 10 * time.Millisecond
	dispatchTickSleep = time.Millisecond
)

// StartIndexing enters the dispatch loop described in spec.md §4.6; it is
// only legal from ready. The loop runs on its own goroutine so callers are
// not blocked for the lifetime of indexing.
func (m *Manager) StartIndexing() error {
	m.mu.Lock()
	if !m.sm.CanTransitionTo(folder.StatusIndexing) {
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: cannot start indexing from %s", m.sm.Current())
	}
	if err := m.sm.TransitionTo(folder.StatusIndexing); err != nil {
		m.mu.Unlock()
		return err
	}
	now := time.Now().UTC()
	m.lastIndexStarted = &now
	if m.dispatchOn {
		m.mu.Unlock()
		return nil
	}
	m.dispatchOn = true
	m.mu.Unlock()

	m.emitStateChange(folder.StatusIndexing)
	go m.dispatchLoop()
	return nil
}

func (m *Manager) dispatchLoop() {
	defer func() {
		m.mu.Lock()
		m.dispatchOn = false
		m.mu.Unlock()
	}()

	for {
		m.mu.Lock()
		if !m.active {
			m.mu.Unlock()
			return
		}
		if m.sm.Current() != folder.StatusIndexing {
			m.mu.Unlock()
			return
		}
		allComplete := m.queue.IsAllTasksComplete()
		m.mu.Unlock()

		if allComplete {
			m.finishIndexing()
			return
		}

		next := m.queue.GetNextTask()
		if next == nil {
			time.Sleep(dispatchIdleSleep)
			continue
		}

		m.inFlightMu.Lock()
		if m.inFlight >= m.cfg.MaxConcurrentTasks {
			m.inFlightMu.Unlock()
			time.Sleep(dispatchIdleSleep)
			continue
		}
		m.inFlight++
		m.inFlightMu.Unlock()

		m.startTask(next)
		time.Sleep(dispatchTickSleep)
	}
}

// startTask transitions one task to in-progress and runs its processing
// asynchronously (spec.md §4.6).
func (m *Manager) startTask(task *folder.FileEmbeddingTask) {
	m.queue.MarkInProgress(task.ID)
	m.mu.Lock()
	m.updateProgressLocked()
	p := m.progress
	m.mu.Unlock()
	m.emitProgressUpdate(p)

	go func() {
		defer func() {
			m.inFlightMu.Lock()
			m.inFlight--
			m.inFlightMu.Unlock()
		}()

		err := m.processTask(task)
		m.onTaskComplete(task.ID, err)
	}()
}

// processTask implements spec.md §4.6's per-task dispatch:
//
//	CreateEmbeddings | UpdateEmbeddings -> FileStateStore.startProcessing,
//	  IndexingOrchestrator.processFile, then FolderDatabase.addEmbeddings if
//	  it produced anything, then markFileProcessed/markFileFailed.
//	RemoveEmbeddings -> IndexingOrchestrator.removeFile + removeDocument.
func (m *Manager) processTask(task *folder.FileEmbeddingTask) error {
	switch task.Task {
	case folder.TaskRemoveEmbeddings:
		if err := m.orchestrator.RemoveFile(task.File); err != nil {
			return err
		}
		return m.db.RemoveDocument(task.File)

	default:
		if m.fileState != nil {
			if err := m.fileState.StartProcessing(task.File, task.ContentHash); err != nil {
				return err
			}
		}

		result, err := m.orchestrator.ProcessFile(task.File)
		if err != nil {
			m.markFailed(task.File, err)
			return err
		}
		if len(result.Chunks) == 0 {
			if m.fileState != nil {
				return m.fileState.MarkFileProcessed(task.File, 0)
			}
			return nil
		}
		if err := m.db.AddEmbeddings(task.File, result.MimeType, result.DocumentEmbedding, result.DocumentKeywords, result.ProcessingMs, result.Chunks); err != nil {
			m.markFailed(task.File, err)
			return err
		}
		if m.fileState != nil {
			return m.fileState.MarkFileProcessed(task.File, len(result.Chunks))
		}
		return nil
	}
}

// markFailed records a failed processing attempt in file_states, preserving
// the existing content hash and attempt count so a later scan can retry it.
func (m *Manager) markFailed(filePath string, cause error) {
	if m.fileState == nil {
		return
	}
	if err := m.fileState.MarkFileFailed(filePath, cause.Error()); err != nil {
		slog.Error("lifecycle_mark_failed_error",
			slog.String("folderId", m.cfg.FolderID),
			slog.String("file", filePath),
			slog.String("error", err.Error()))
	}
}

// onTaskComplete updates the queue, progress, and, if every task has
// reached a terminal state, finishes indexing (spec.md §4.6). The actual
// all-complete transition is driven by the dispatch loop's own poll so that
// state mutation stays on a single control-flow goroutine.
func (m *Manager) onTaskComplete(id string, err error) {
	success := err == nil
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	m.queue.UpdateTaskStatus(id, success, errMsg)

	m.mu.Lock()
	m.updateProgressLocked()
	p := m.progress
	m.mu.Unlock()
	m.emitProgressUpdate(p)
}

// finishIndexing transitions ready->active (well, indexing->active),
// forcing percentage to 100, clearing the task list and consecutiveErrors
// (spec.md §4.6, §5).
func (m *Manager) finishIndexing() {
	m.mu.Lock()
	if err := m.sm.TransitionTo(folder.StatusActive); err != nil {
		m.mu.Unlock()
		return
	}
	now := time.Now().UTC()
	m.lastIndexCompleted = &now
	m.progress.Percentage = 100
	m.queue.ClearAll()
	m.consecutiveErrors = 0
	state := m.stateLocked()
	m.mu.Unlock()

	m.emitStateChange(folder.StatusActive)
	m.emitIndexComplete(state)
}
