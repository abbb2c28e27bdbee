// Package coordinator implements MultiFolderCoordinator (spec.md §4.9):
// the top-level entry point that owns one FolderLifecycleManager per
// registered folder and indexes batches of them concurrently.
package coordinator

import (
	"time"

	"github.com/okets/folder-mcp-core/internal/folder"
)

// FolderStatus is one folder's indexing status, as reported by
// GetAllFoldersStatus / GetFolderStatus.
type FolderStatus struct {
	FolderID   string
	FolderPath string
	Status     folder.Status
	Progress   folder.Progress
	Error      string
}

// AggregateStatus summarizes every registered folder (spec.md §4.9).
type AggregateStatus struct {
	TotalFolders     int
	FoldersByStatus  map[folder.Status]int
	TotalFiles       int
	ProcessedFiles   int
	OverallPercent   float64
	EarliestStarted  *time.Time
	Folders          []FolderStatus
}

// IndexOptions tunes one IndexAll/IndexFolder call.
type IndexOptions struct {
	// MaxConcurrentFolders overrides config.CoordinatorConfig.MaxConcurrentFolders
	// for this call when positive.
	MaxConcurrentFolders int
}
