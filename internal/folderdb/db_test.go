package folderdb

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okets/folder-mcp-core/internal/folder"
)

func TestOpen_CreatesSchemaAndConfig(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir, "local:minilm", 8, 3)
	require.NoError(t, err)
	defer db.Close()

	assert.True(t, db.IsReady())
	assert.FileExists(t, filepath.Join(dir, ".folder-mcp", "embeddings.db"))

	entries, err := filepath.Glob(filepath.Join(dir, ".folder-mcp", "backups", "backup-*"))
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "expected a post-init backup")
}

func TestOpen_ModelMismatchIsFatal(t *testing.T) {
	dir := t.TempDir()

	db, err := Open(dir, "local:minilm", 8, 3)
	require.NoError(t, err)
	db.Close()

	_, err = Open(dir, "local:minilm", 16, 3)
	require.Error(t, err)
}

func TestOpen_ReopenSameConfigSucceeds(t *testing.T) {
	dir := t.TempDir()

	db1, err := Open(dir, "local:minilm", 8, 3)
	require.NoError(t, err)
	db1.Close()

	db2, err := Open(dir, "local:minilm", 8, 3)
	require.NoError(t, err)
	defer db2.Close()
	assert.True(t, db2.IsReady())
}

func TestAddEmbeddings_AndRemoveDocument(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, "local:minilm", 4, 3)
	require.NoError(t, err)
	defer db.Close()

	chunks := []ChunkRecord{
		{ChunkIndex: 0, Content: "hello", StartPosition: 0, EndPosition: 5, Embedding: []float32{0.1, 0.2, 0.3, 0.4}},
		{ChunkIndex: 1, Content: "world", StartPosition: 6, EndPosition: 11, Embedding: []float32{0.5, 0.6, 0.7, 0.8}},
	}
	require.NoError(t, db.AddEmbeddings("a.txt", "text/plain", nil, "", 10, chunks))
	require.NoError(t, db.MarkFileProcessed("a.txt", 0))
	require.NoError(t, db.SetFileState(folder.FileState{
		FilePath:        "a.txt",
		ContentHash:     "h1",
		ProcessingState: folder.FileStateIndexed,
		ChunkCount:      2,
	}))

	fingerprints, err := db.GetDocumentFingerprints()
	require.NoError(t, err)
	assert.Equal(t, "h1", fingerprints["a.txt"])

	require.NoError(t, db.RemoveDocument("a.txt"))
	fingerprints, err = db.GetDocumentFingerprints()
	require.NoError(t, err)
	_, ok := fingerprints["a.txt"]
	assert.False(t, ok)
}

func TestCleanupMissingFiles(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, "local:minilm", 4, 3)
	require.NoError(t, err)
	defer db.Close()

	chunk := []ChunkRecord{{ChunkIndex: 0, Content: "x", Embedding: []float32{0.1, 0.1, 0.1, 0.1}}}
	require.NoError(t, db.AddEmbeddings("a.txt", "text/plain", nil, "", 1, chunk))
	require.NoError(t, db.SetFileState(folder.FileState{FilePath: "a.txt", ContentHash: "h1", ProcessingState: folder.FileStateIndexed}))
	require.NoError(t, db.AddEmbeddings("b.txt", "text/plain", nil, "", 1, chunk))
	require.NoError(t, db.SetFileState(folder.FileState{FilePath: "b.txt", ContentHash: "h2", ProcessingState: folder.FileStateIndexed}))

	removed, err := db.CleanupMissingFiles([]string{"a.txt"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	fingerprints, err := db.GetDocumentFingerprints()
	require.NoError(t, err)
	assert.Contains(t, fingerprints, "a.txt")
	assert.NotContains(t, fingerprints, "b.txt")
}

func TestGetProcessingStats(t *testing.T) {
	dir := t.TempDir()
	db, err := Open(dir, "local:minilm", 4, 3)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.SetFileState(folder.FileState{FilePath: "a.txt", ContentHash: "h1", ProcessingState: folder.FileStateIndexed}))
	require.NoError(t, db.SetFileState(folder.FileState{FilePath: "b.txt", ContentHash: "h2", ProcessingState: folder.FileStateFailed}))

	stats, err := db.GetProcessingStats()
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Indexed)
	assert.Equal(t, 1, stats.Failed)
}
