package changedetect

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okets/folder-mcp-core/internal/folder"
)

type fakeStore struct {
	decisions map[string]folder.Decision
	skipped   map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{decisions: make(map[string]folder.Decision), skipped: make(map[string]string)}
}

func (f *fakeStore) MakeProcessingDecision(filePath, currentHash string) (folder.Decision, error) {
	if d, ok := f.decisions[filePath]; ok {
		return d, nil
	}
	return folder.Decision{Kind: folder.DecisionProcess, Reason: "new file"}, nil
}

func (f *fakeStore) MarkFileSkipped(filePath, hash, reason string) error {
	f.skipped[filePath] = reason
	return nil
}

func writeFile(t *testing.T, dir, name, content string) FileRef {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	info, err := os.Stat(path)
	require.NoError(t, err)
	return FileRef{Path: path, Size: info.Size(), ModTime: info.ModTime()}
}

func TestDetect_NewFileIsAdded(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "a.txt", "hello")

	store := newFakeStore()
	det := New(store, nil)

	changes, err := det.Detect([]FileRef{ref}, map[string]struct{}{})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, folder.ChangeAdded, changes[0].ChangeType)
	assert.Equal(t, ref.Path, changes[0].Path)
}

func TestDetect_KnownFileIsModified(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "a.txt", "hello")

	store := newFakeStore()
	det := New(store, nil)

	changes, err := det.Detect([]FileRef{ref}, map[string]struct{}{ref.Path: {}})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, folder.ChangeModified, changes[0].ChangeType)
}

func TestDetect_SkipDecisionEmitsNoChange(t *testing.T) {
	dir := t.TempDir()
	ref := writeFile(t, dir, "a.txt", "hello")

	store := newFakeStore()
	store.decisions[ref.Path] = folder.Decision{Kind: folder.DecisionSkip}
	det := New(store, nil)

	changes, err := det.Detect([]FileRef{ref}, map[string]struct{}{ref.Path: {}})
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDetect_MissingFileIsRemoved(t *testing.T) {
	store := newFakeStore()
	det := New(store, nil)

	changes, err := det.Detect(nil, map[string]struct{}{"/tmp/gone.txt": {}})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, folder.ChangeRemoved, changes[0].ChangeType)
	assert.Equal(t, "/tmp/gone.txt", changes[0].Path)
}

func TestDetect_UnreadableFileIsSkipped(t *testing.T) {
	store := newFakeStore()
	det := New(store, nil)

	missing := FileRef{Path: "/nonexistent/path/does-not-exist.txt", ModTime: time.Now()}
	changes, err := det.Detect([]FileRef{missing}, map[string]struct{}{})
	require.NoError(t, err)
	assert.Empty(t, changes)
	assert.Equal(t, "Cannot read file", store.skipped[missing.Path])
}
