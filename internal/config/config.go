// Package config holds the resolved, in-process configuration consumed by
// the folder indexing engine. Parsing a config file or CLI flags into this
// shape is the caller's job (out of scope per spec.md §1); this package only
// owns the struct, its defaults, and its validation.
package config

import (
	"fmt"
	"time"
)

// FolderConfig is the per-folder configuration resolved by the caller and
// handed to FolderLifecycleManager / MultiFolderCoordinator.
type FolderConfig struct {
	// FolderID is the caller-assigned stable identifier for the folder.
	FolderID string

	// FolderPath is the absolute, canonicalized path to the folder root.
	FolderPath string

	// Model identifies the embedding backend+model variant, formatted
	// "<provider>:<name>" (e.g. "local:minilm", "remote:bge-large").
	Model string

	// ModelDimension is the embedding vector length for Model. Immutable
	// for the life of the folder's database (spec.md §3 EmbeddingConfig).
	ModelDimension int

	// SupportedExtensions restricts scanning to these file extensions
	// (including the leading dot, e.g. ".md"). Empty means no filtering.
	SupportedExtensions []string

	// MaxConcurrentTasks bounds in-flight per-file tasks within one folder
	// (spec.md §4.4, default 2).
	MaxConcurrentTasks int

	// MaxFilesPerBatch bounds how many changes one scan cycle enqueues
	// (spec.md §4.6, default 50).
	MaxFilesPerBatch int

	// MaxRetries is the default per-task retry budget (spec.md §3, default 3).
	MaxRetries int

	// RetryDelay is the dispatcher's delay before a retried task becomes
	// eligible again (spec.md §4.4, default 1s).
	RetryDelay time.Duration

	// BatchSize is the number of chunks embedded per backend call
	// (spec.md §4.7, default 10).
	BatchSize int

	// MaxBackups is the number of rotated FolderDatabase backups to retain
	// (spec.md §4.1, default 3).
	MaxBackups int
}

// DefaultFolderConfig returns a FolderConfig with every numeric knob at its
// spec-mandated default; FolderID, FolderPath and Model must still be set.
func DefaultFolderConfig() FolderConfig {
	return FolderConfig{
		MaxConcurrentTasks: 2,
		MaxFilesPerBatch:   50,
		MaxRetries:         3,
		RetryDelay:         1 * time.Second,
		BatchSize:          10,
		MaxBackups:         3,
	}
}

// Validate fills in any zero-valued numeric knobs with their defaults and
// rejects a config that is missing required identity fields.
func (c *FolderConfig) Validate() error {
	if c.FolderID == "" {
		return fmt.Errorf("config: FolderID is required")
	}
	if c.FolderPath == "" {
		return fmt.Errorf("config: FolderPath is required")
	}
	if c.Model == "" {
		return fmt.Errorf("config: Model is required")
	}
	if c.ModelDimension <= 0 {
		return fmt.Errorf("config: ModelDimension must be positive")
	}

	defaults := DefaultFolderConfig()
	if c.MaxConcurrentTasks <= 0 {
		c.MaxConcurrentTasks = defaults.MaxConcurrentTasks
	}
	if c.MaxFilesPerBatch <= 0 {
		c.MaxFilesPerBatch = defaults.MaxFilesPerBatch
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaults.MaxRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = defaults.RetryDelay
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = defaults.MaxBackups
	}
	return nil
}

// CoordinatorConfig configures MultiFolderCoordinator (spec.md §4.9).
type CoordinatorConfig struct {
	// MaxConcurrentFolders bounds how many folders index in parallel
	// (default 3).
	MaxConcurrentFolders int

	// ContinueOnError, when true, keeps processing remaining folders in a
	// batch after one folder's indexFolder fails.
	ContinueOnError bool
}

// DefaultCoordinatorConfig returns spec-mandated defaults.
func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		MaxConcurrentFolders: 3,
		ContinueOnError:      true,
	}
}

// SearchPoolConfig configures VectorSearchPool (spec.md §4.8).
type SearchPoolConfig struct {
	// MaxOpenDatabases bounds the LRU pool size (default 10).
	MaxOpenDatabases int

	// DefaultTopK is used when a caller passes a non-positive topK.
	DefaultTopK int

	// MaxResultsLimit clamps topK from above.
	MaxResultsLimit int

	// MinThreshold / MaxThreshold clamp the similarity threshold.
	MinThreshold float64
	MaxThreshold float64

	// DefaultThreshold is used when a caller passes a negative threshold.
	DefaultThreshold float64
}

// DefaultSearchPoolConfig returns spec-mandated defaults.
func DefaultSearchPoolConfig() SearchPoolConfig {
	return SearchPoolConfig{
		MaxOpenDatabases: 10,
		DefaultTopK:      10,
		MaxResultsLimit:  200,
		MinThreshold:     0.0,
		MaxThreshold:     1.0,
		DefaultThreshold: 0.3,
	}
}

// SubmoduleConfig controls whether the scanner descends into nested git
// submodules and which of them to include or exclude.
type SubmoduleConfig struct {
	Enabled   bool     `json:"enabled"`
	Recursive bool     `json:"recursive"`
	Include   []string `json:"include,omitempty"`
	Exclude   []string `json:"exclude,omitempty"`
}
