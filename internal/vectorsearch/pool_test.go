package vectorsearch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okets/folder-mcp-core/internal/config"
	"github.com/okets/folder-mcp-core/internal/folderdb"
)

func seedFolder(t *testing.T, dir, model string, dim int) {
	t.Helper()
	db, err := folderdb.Open(dir, model, dim, 3)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.AddEmbeddings("a.txt", "text/plain", nil, "", 1, []folderdb.ChunkRecord{
		{ChunkIndex: 0, Content: "the quick brown fox", StartPosition: 0, EndPosition: 19, Embedding: []float32{1, 0, 0, 0}},
	}))
	require.NoError(t, db.AddEmbeddings("b.txt", "text/plain", nil, "", 1, []folderdb.ChunkRecord{
		{ChunkIndex: 0, Content: "lazy dog sleeps", StartPosition: 0, EndPosition: 15, Embedding: []float32{-1, 0, 0, 0}},
	}))
}

func TestSearchInFolder_RanksByCosineSimilarity(t *testing.T) {
	dir := t.TempDir()
	seedFolder(t, dir, "local:minilm", 4)

	// A negative threshold selects DefaultThreshold, and MinThreshold clamps
	// from below; lowering both to -1 lets the -1.0 match through.
	cfg := config.DefaultSearchPoolConfig()
	cfg.MinThreshold = -1
	cfg.DefaultThreshold = -1
	pool := New(cfg)
	pool.Register(dir, config.FolderConfig{Model: "local:minilm", ModelDimension: 4, MaxBackups: 3})
	defer pool.Shutdown()

	results, err := pool.SearchInFolder([]float32{1, 0, 0, 0}, dir, 10, -1)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a.txt", results[0].FilePath)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.Equal(t, "b.txt", results[1].FilePath)
	assert.InDelta(t, -1.0, results[1].Score, 1e-6)

	assert.Equal(t, "local:minilm", results[0].ModelID)
	assert.NotZero(t, results[0].DocumentID)
	assert.NotZero(t, results[0].ChunkID)
	assert.Equal(t, 0, results[0].Metadata["startPosition"])
	assert.Equal(t, 19, results[0].Metadata["endPosition"])
}

func TestSearchInFolder_ThresholdExcludesNegativeScores(t *testing.T) {
	dir := t.TempDir()
	seedFolder(t, dir, "local:minilm", 4)

	pool := New(config.DefaultSearchPoolConfig())
	pool.Register(dir, config.FolderConfig{Model: "local:minilm", ModelDimension: 4, MaxBackups: 3})
	defer pool.Shutdown()

	results, err := pool.SearchInFolder([]float32{1, 0, 0, 0}, dir, 10, 0)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a.txt", results[0].FilePath)
}

func TestSearchAll_MergesAcrossFolders(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	seedFolder(t, dirA, "local:minilm", 4)
	seedFolder(t, dirB, "local:minilm", 4)

	pool := New(config.DefaultSearchPoolConfig())
	pool.Register(dirA, config.FolderConfig{Model: "local:minilm", ModelDimension: 4, MaxBackups: 3})
	pool.Register(dirB, config.FolderConfig{Model: "local:minilm", ModelDimension: 4, MaxBackups: 3})
	defer pool.Shutdown()

	results, err := pool.SearchAll([]float32{1, 0, 0, 0}, 2, -1)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "a.txt", r.FilePath)
	}
}

func TestSearchInFolder_UnregisteredFolderErrors(t *testing.T) {
	pool := New(config.DefaultSearchPoolConfig())
	defer pool.Shutdown()

	_, err := pool.SearchInFolder([]float32{1, 0}, "/no/such/folder", 10, 0)
	assert.Error(t, err)
}

func TestPool_EvictsLeastRecentlyUsedDatabase(t *testing.T) {
	cfg := config.DefaultSearchPoolConfig()
	cfg.MaxOpenDatabases = 1
	pool := New(cfg)
	defer pool.Shutdown()

	dirA := t.TempDir()
	dirB := t.TempDir()
	seedFolder(t, dirA, "local:minilm", 4)
	seedFolder(t, dirB, "local:minilm", 4)
	pool.Register(dirA, config.FolderConfig{Model: "local:minilm", ModelDimension: 4, MaxBackups: 3})
	pool.Register(dirB, config.FolderConfig{Model: "local:minilm", ModelDimension: 4, MaxBackups: 3})

	_, err := pool.SearchInFolder([]float32{1, 0, 0, 0}, dirA, 10, -1)
	require.NoError(t, err)
	_, err = pool.SearchInFolder([]float32{1, 0, 0, 0}, dirB, 10, -1)
	require.NoError(t, err)

	assert.Equal(t, 1, pool.open.Len())
}
