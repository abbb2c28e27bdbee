package embedpipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestOrchestrator_ProcessFile_ProducesAlignedChunkRecords(t *testing.T) {
	registry := NewBackendRegistry("")
	orch := NewOrchestrator(NewTextParser(), NewParagraphChunker(), registry, OrchestratorConfig{ModelID: "local:test"})

	paragraphs := make([]string, 15)
	for i := range paragraphs {
		paragraphs[i] = strings.Repeat("word", 50) + " " + string(rune('a'+i))
	}
	path := writeTempFile(t, strings.Join(paragraphs, "\n\n"))

	result, err := orch.ProcessFile(path)
	require.NoError(t, err)

	require.NotEmpty(t, result.Chunks)
	require.NotEmpty(t, result.DocumentEmbedding)
	assert.Equal(t, "text/plain", result.MimeType)

	for i, c := range result.Chunks {
		assert.GreaterOrEqual(t, c.ChunkIndex, 0)
		if i > 0 {
			assert.Greater(t, result.Chunks[i].ChunkIndex, result.Chunks[i-1].ChunkIndex,
				"chunk indexes must stay strictly increasing, aligned by returned position")
		}
	}
}

func TestOrchestrator_ProcessFile_EmptyFileProducesNoChunks(t *testing.T) {
	registry := NewBackendRegistry("")
	orch := NewOrchestrator(NewTextParser(), NewParagraphChunker(), registry, OrchestratorConfig{ModelID: "local:test"})

	path := writeTempFile(t, "   \n\n  ")
	result, err := orch.ProcessFile(path)
	require.NoError(t, err)
	assert.Empty(t, result.Chunks)
	assert.Nil(t, result.DocumentEmbedding)
}

func TestOrchestrator_ProcessFile_UnsupportedExtensionErrors(t *testing.T) {
	registry := NewBackendRegistry("")
	orch := NewOrchestrator(NewTextParser(), NewParagraphChunker(), registry, OrchestratorConfig{ModelID: "local:test"})

	dir := t.TempDir()
	path := filepath.Join(dir, "doc.bin")
	require.NoError(t, os.WriteFile(path, []byte("binary"), 0o644))

	_, err := orch.ProcessFile(path)
	assert.Error(t, err)
}

func TestOrchestrator_RemoveFile_IsANoop(t *testing.T) {
	registry := NewBackendRegistry("")
	orch := NewOrchestrator(NewTextParser(), NewParagraphChunker(), registry, OrchestratorConfig{ModelID: "local:test"})
	assert.NoError(t, orch.RemoveFile("anything.txt"))
}
