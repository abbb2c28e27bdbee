// Package filestate is a thin typed wrapper around a folder database's
// file_states table (spec.md §4.2). It owns the one decision a scan needs to
// make about a file: skip it, retry it, or process it.
package filestate

import (
	"time"

	"github.com/okets/folder-mcp-core/internal/folder"
)

// Backend is the subset of folderdb.DB the store needs. Declared locally so
// tests can fake it without opening a real database.
type Backend interface {
	GetFileState(filePath string) (folder.FileState, bool, error)
	SetFileState(fs folder.FileState) error
	MarkFileProcessed(filePath string, chunkCount int) error
}

// Store is FileStateStore (spec.md §4.2).
type Store struct {
	backend    Backend
	maxRetries int
}

// New builds a Store over backend. maxRetries defaults to
// folder.DefaultMaxRetries when non-positive.
func New(backend Backend, maxRetries int) *Store {
	if maxRetries <= 0 {
		maxRetries = folder.DefaultMaxRetries
	}
	return &Store{backend: backend, maxRetries: maxRetries}
}

// MakeProcessingDecision implements spec.md §4.2's decision table:
//
//	skip:    processingState == indexed and stored hash == currentHash
//	retry:   previous attempt failed and attemptCount < maxRetries
//	skip:    previous attempt failed, retries are spent and the hash is unchanged
//	process: otherwise
func (s *Store) MakeProcessingDecision(filePath, currentHash string) (folder.Decision, error) {
	existing, ok, err := s.backend.GetFileState(filePath)
	if err != nil {
		return folder.Decision{}, err
	}
	if !ok {
		return folder.Decision{Kind: folder.DecisionProcess, Reason: "new file"}, nil
	}

	if existing.ProcessingState == folder.FileStateIndexed && existing.ContentHash == currentHash {
		return folder.Decision{Kind: folder.DecisionSkip, Reason: "unchanged since last index"}, nil
	}

	if existing.ProcessingState == folder.FileStateFailed && existing.AttemptCount < s.maxRetries {
		return folder.Decision{Kind: folder.DecisionRetry, Reason: "previous attempt failed, retrying"}, nil
	}

	switch {
	case existing.ContentHash != currentHash:
		return folder.Decision{Kind: folder.DecisionProcess, Reason: "content changed"}, nil
	case existing.ProcessingState == folder.FileStatePending:
		return folder.Decision{Kind: folder.DecisionProcess, Reason: "previously pending"}, nil
	case existing.ProcessingState == folder.FileStateProcessing:
		return folder.Decision{Kind: folder.DecisionProcess, Reason: "previously interrupted mid-processing"}, nil
	case existing.ProcessingState == folder.FileStateSkipped:
		return folder.Decision{Kind: folder.DecisionProcess, Reason: "previously skipped"}, nil
	case existing.ProcessingState == folder.FileStateFailed:
		return folder.Decision{Kind: folder.DecisionSkip, Reason: "retry budget exhausted"}, nil
	default:
		return folder.Decision{Kind: folder.DecisionProcess, Reason: "unchanged state requires reprocessing"}, nil
	}
}

// StartProcessing bumps attemptCount and marks the file processing.
func (s *Store) StartProcessing(filePath, contentHash string) error {
	existing, ok, err := s.backend.GetFileState(filePath)
	if err != nil {
		return err
	}
	attempt := 1
	if ok {
		attempt = existing.AttemptCount + 1
	}
	return s.backend.SetFileState(folder.FileState{
		FilePath:        filePath,
		ContentHash:     contentHash,
		ProcessingState: folder.FileStateProcessing,
		LastAttempt:     time.Now().UTC(),
		AttemptCount:    attempt,
	})
}

// MarkFileProcessed records a successful index pass.
func (s *Store) MarkFileProcessed(filePath string, chunkCount int) error {
	return s.backend.MarkFileProcessed(filePath, chunkCount)
}

// MarkFileFailed records a failed attempt, preserving attemptCount so the
// next MakeProcessingDecision can still offer a retry.
func (s *Store) MarkFileFailed(filePath, reason string) error {
	existing, ok, err := s.backend.GetFileState(filePath)
	if err != nil {
		return err
	}
	fs := folder.FileState{
		FilePath:        filePath,
		ProcessingState: folder.FileStateFailed,
		LastAttempt:     time.Now().UTC(),
		FailureReason:   reason,
		AttemptCount:    1,
	}
	if ok {
		fs.ContentHash = existing.ContentHash
		fs.AttemptCount = existing.AttemptCount
		fs.ChunkCount = existing.ChunkCount
	}
	return s.backend.SetFileState(fs)
}

// MarkFileSkipped records a file the engine decided not to process, e.g. an
// unreadable file (spec.md §4.3).
func (s *Store) MarkFileSkipped(filePath, hash, reason string) error {
	return s.backend.SetFileState(folder.FileState{
		FilePath:        filePath,
		ContentHash:     hash,
		ProcessingState: folder.FileStateSkipped,
		LastAttempt:     time.Now().UTC(),
		FailureReason:   reason,
	})
}
