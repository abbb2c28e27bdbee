package coordinator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/folder"
)

func TestIndexFolder_ScansAndEmbedsTextFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world, this is a test document."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("a second document with different words entirely."), 0o644))

	c := New(config.DefaultCoordinatorConfig(), "")

	cfg := config.DefaultFolderConfig()
	cfg.FolderID = dir
	cfg.FolderPath = dir
	cfg.Model = "local:test"
	cfg.ModelDimension = 256
	cfg.SupportedExtensions = []string{".txt"}

	require.NoError(t, c.RegisterFolder(dir, cfg))
	require.NoError(t, c.IndexFolder(dir))

	status, err := c.GetFolderStatus(dir)
	require.NoError(t, err)
	assert.Equal(t, folder.StatusActive, status.Status)
	assert.Equal(t, int64(100), int64(status.Progress.Percentage))
}

func TestIndexFolder_SecondRunOnUnmodifiedFolderIsNoOp(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello world, this is a test document."), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("a second document with different words entirely."), 0o644))

	c := New(config.DefaultCoordinatorConfig(), "")

	cfg := config.DefaultFolderConfig()
	cfg.FolderID = dir
	cfg.FolderPath = dir
	cfg.Model = "local:test"
	cfg.ModelDimension = 256
	cfg.SupportedExtensions = []string{".txt"}

	require.NoError(t, c.RegisterFolder(dir, cfg))
	require.NoError(t, c.IndexFolder(dir))

	status, err := c.GetFolderStatus(dir)
	require.NoError(t, err)
	require.Equal(t, folder.StatusActive, status.Status)

	// Unregister and re-register so IndexFolder opens a fresh Manager against
	// the same on-disk database, the way a second folderd run would.
	c.UnregisterFolder(dir)
	require.NoError(t, c.RegisterFolder(dir, cfg))
	require.NoError(t, c.IndexFolder(dir))

	status, err = c.GetFolderStatus(dir)
	require.NoError(t, err)
	assert.Equal(t, folder.StatusActive, status.Status)
	assert.Equal(t, 0, status.Progress.TotalTasks)
}

func TestIndexAll_IndexesEveryRegisteredFolder(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "a.txt"), []byte("alpha document content"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "b.txt"), []byte("beta document content"), 0o644))

	c := New(config.DefaultCoordinatorConfig(), "")
	for _, dir := range []string{dirA, dirB} {
		cfg := config.DefaultFolderConfig()
		cfg.FolderID = dir
		cfg.FolderPath = dir
		cfg.Model = "local:test"
		cfg.ModelDimension = 256
		cfg.SupportedExtensions = []string{".txt"}
		require.NoError(t, c.RegisterFolder(dir, cfg))
	}

	require.NoError(t, c.IndexAll(IndexOptions{}))

	agg := c.GetAllFoldersStatus()
	assert.Equal(t, 2, agg.TotalFolders)
	assert.Equal(t, 2, agg.FoldersByStatus[folder.StatusActive])
}

func TestGetFolderStatus_UnregisteredFolderErrors(t *testing.T) {
	c := New(config.DefaultCoordinatorConfig(), "")
	_, err := c.GetFolderStatus("/no/such/folder")
	assert.Error(t, err)
}
