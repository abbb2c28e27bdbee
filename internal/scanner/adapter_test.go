package scanner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemAdapter_ScanFolder_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("# hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte{0x00, 0x01}, 0o644))

	adapter, err := NewFileSystemAdapter()
	require.NoError(t, err)

	refs, err := adapter.ScanFolder(dir, []string{".txt", ".md"})
	require.NoError(t, err)
	require.Len(t, refs, 2)

	names := map[string]bool{}
	for _, r := range refs {
		names[filepath.Base(r.Path)] = true
		assert.True(t, strings.HasPrefix(r.Path, dir))
		assert.Greater(t, r.Size, int64(0))
	}
	assert.True(t, names["a.txt"])
	assert.True(t, names["b.md"])
	assert.False(t, names["c.bin"])
}

func TestFileSystemAdapter_ScanFolder_NoExtensionsReturnsEverything(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	// Text content: the scanner skips files containing a null byte.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.bin"), []byte("data"), 0o644))

	adapter, err := NewFileSystemAdapter()
	require.NoError(t, err)

	refs, err := adapter.ScanFolder(dir, nil)
	require.NoError(t, err)
	assert.Len(t, refs, 2)
}

func TestFileSystemAdapter_ScanFolder_EmptyFolderReturnsNoRefs(t *testing.T) {
	dir := t.TempDir()

	adapter, err := NewFileSystemAdapter()
	require.NoError(t, err)

	refs, err := adapter.ScanFolder(dir, []string{".txt"})
	require.NoError(t, err)
	assert.Empty(t, refs)
}
