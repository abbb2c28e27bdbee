package scanner

import (
	"context"
	"path/filepath"

	"github.com/okets/folder-mcp-core/internal/changedetect"
)

// FileSystemAdapter wraps a Scanner so it satisfies lifecycle.FileSystem:
// one synchronous call that enumerates a folder's current files.
type FileSystemAdapter struct {
	scanner *Scanner
}

// NewFileSystemAdapter builds an adapter over a fresh Scanner.
func NewFileSystemAdapter() (*FileSystemAdapter, error) {
	s, err := New()
	if err != nil {
		return nil, err
	}
	return &FileSystemAdapter{scanner: s}, nil
}

// ScanFolder drains the Scanner's streaming walk into a slice of FileRefs,
// restricted to extensions when non-empty (spec.md §4.6 step 1).
func (a *FileSystemAdapter) ScanFolder(folderPath string, extensions []string) ([]changedetect.FileRef, error) {
	opts := &ScanOptions{
		RootDir:          folderPath,
		RespectGitignore: true,
	}
	if len(extensions) > 0 {
		patterns := make([]string, len(extensions))
		for i, ext := range extensions {
			patterns[i] = "*" + ext
		}
		opts.IncludePatterns = patterns
	}

	ctx := context.Background()
	results, err := a.scanner.Scan(ctx, opts)
	if err != nil {
		return nil, err
	}

	var refs []changedetect.FileRef
	for r := range results {
		if r.Error != nil || r.File == nil {
			continue
		}
		refs = append(refs, changedetect.FileRef{
			Path:    filepath.Join(folderPath, r.File.Path),
			Size:    r.File.Size,
			ModTime: r.File.ModTime,
		})
	}
	return refs, nil
}
