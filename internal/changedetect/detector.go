// Package changedetect turns a folder's current file listing into the set
// of per-file changes a FolderLifecycleManager needs to act on (spec.md
// §4.3), driven by content hashes and a FileStateStore's processing
// decisions.
package changedetect

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/okets/folder-mcp-core/internal/folder"
)

// FileRef is one file observed on disk during a scan.
type FileRef struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// DecisionStore is the subset of filestate.Store the detector needs.
type DecisionStore interface {
	MakeProcessingDecision(filePath, currentHash string) (folder.Decision, error)
	MarkFileSkipped(filePath, hash, reason string) error
}

// ProgressFunc reports coarse scan progress: phase is either
// "intelligent-scanning" (per file) or "cleanup" (spec.md §4.3).
type ProgressFunc func(phase string, processed, total int)

// Detector is ChangeDetector.
type Detector struct {
	store    DecisionStore
	progress ProgressFunc
}

// New builds a Detector. progress may be nil.
func New(store DecisionStore, progress ProgressFunc) *Detector {
	if progress == nil {
		progress = func(string, int, int) {}
	}
	return &Detector{store: store, progress: progress}
}

// HashFile computes the content hash for path: MD5 over path + file bytes +
// size + mtime. This is a change indicator, not a security primitive
// (spec.md §3, GLOSSARY).
func HashFile(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	h := md5.New()
	h.Write([]byte(path))
	h.Write(content)
	fmt.Fprintf(h, "%d:%d", info.Size(), info.ModTime().UnixNano())
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Detect compares currentFiles against persisted file_states and emits one
// FileChange per file that needs processing, plus a removed-change for every
// previously known path absent from currentFiles.
func (d *Detector) Detect(currentFiles []FileRef, knownPaths map[string]struct{}) ([]folder.FileChange, error) {
	var changes []folder.FileChange
	seen := make(map[string]struct{}, len(currentFiles))

	for i, f := range currentFiles {
		d.progress("intelligent-scanning", i+1, len(currentFiles))
		seen[f.Path] = struct{}{}

		hash, err := HashFile(f.Path)
		if err != nil {
			_ = d.store.MarkFileSkipped(f.Path, "", "Cannot read file")
			continue
		}

		decision, err := d.store.MakeProcessingDecision(f.Path, hash)
		if err != nil {
			return nil, fmt.Errorf("changedetect: decision for %s: %w", f.Path, err)
		}

		switch decision.Kind {
		case folder.DecisionProcess, folder.DecisionRetry:
			changeType := folder.ChangeAdded
			if _, existed := knownPaths[f.Path]; existed {
				changeType = folder.ChangeModified
			}
			changes = append(changes, folder.FileChange{
				Path:         f.Path,
				ChangeType:   changeType,
				LastModified: f.ModTime,
				Size:         f.Size,
				Hash:         hash,
			})
		case folder.DecisionSkip:
			// Nothing to do; file is unchanged or its retry budget is spent.
		}
	}

	cleanupTotal := 0
	for path := range knownPaths {
		if _, stillPresent := seen[path]; !stillPresent {
			cleanupTotal++
		}
	}
	cleanupProcessed := 0
	for path := range knownPaths {
		if _, stillPresent := seen[path]; stillPresent {
			continue
		}
		cleanupProcessed++
		d.progress("cleanup", cleanupProcessed, cleanupTotal)
		changes = append(changes, folder.FileChange{
			Path:       path,
			ChangeType: folder.ChangeRemoved,
		})
	}

	return changes, nil
}
