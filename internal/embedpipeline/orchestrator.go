package embedpipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/okets/folder-mcp-core/internal/amerrors"
	"github.com/okets/folder-mcp-core/internal/changedetect"
	"github.com/okets/folder-mcp-core/internal/folderdb"
	"github.com/okets/folder-mcp-core/internal/lifecycle"
)

// defaultBatchSize is spec.md §4.7 step 5's batchSize.
const defaultBatchSize = 10

// OrchestratorConfig configures an Orchestrator.
type OrchestratorConfig struct {
	ModelID   string
	BatchSize int
}

// Orchestrator is IndexingOrchestrator (spec.md §4.7): the per-file
// parse->chunk->embed->persist pipeline. It satisfies lifecycle.Orchestrator
// structurally, by returning the exact lifecycle.ProcessResult shape a
// Manager expects.
type Orchestrator struct {
	parser   FileParser
	chunker  Chunker
	registry *BackendRegistry
	cfg      OrchestratorConfig
}

var _ lifecycle.Orchestrator = (*Orchestrator)(nil)

// NewOrchestrator wires a FileParser, Chunker and BackendRegistry together.
func NewOrchestrator(parser FileParser, chunker Chunker, registry *BackendRegistry, cfg OrchestratorConfig) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	return &Orchestrator{parser: parser, chunker: chunker, registry: registry, cfg: cfg}
}

// ProcessFile runs the full per-file pipeline from spec.md §4.7: parse,
// chunk, embed in batches, and return chunk records ready for
// FolderDatabase.AddEmbeddings.
func (o *Orchestrator) ProcessFile(path string) (lifecycle.ProcessResult, error) {
	start := time.Now()

	parsed, err := o.parser.Parse(path)
	if err != nil {
		return lifecycle.ProcessResult{}, amerrors.Wrap(amerrors.ErrCodeUnsupportedType, err)
	}

	chunks, err := o.chunker.Chunk(parsed)
	if err != nil {
		return lifecycle.ProcessResult{}, amerrors.Wrap(amerrors.ErrCodeParseFailed, err)
	}
	if len(chunks) == 0 {
		return lifecycle.ProcessResult{MimeType: mimeTypeFor(path), ProcessingMs: time.Since(start).Milliseconds()}, nil
	}

	fileHash, hashErr := changedetect.HashFile(path)
	if hashErr != nil {
		fileHash = ""
	}
	_ = fileHash // retained for parity with spec's per-chunk fileHash field; not a persisted column (§4.1 schema)

	ctx := context.Background()
	backend, err := o.registry.Get(ctx, o.cfg.ModelID)
	if err != nil {
		return lifecycle.ProcessResult{}, amerrors.Wrap(amerrors.ErrCodeEmbedFailed, err)
	}

	aggregator := NewDocumentEmbeddingAggregator()
	var records []folderdb.ChunkRecord

	for batchStart := 0; batchStart < len(chunks); batchStart += o.cfg.BatchSize {
		batchEnd := batchStart + o.cfg.BatchSize
		if batchEnd > len(chunks) {
			batchEnd = len(chunks)
		}
		batch := chunks[batchStart:batchEnd]

		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Content
		}

		results, embedErr := backend.Embed(ctx, texts)
		if embedErr != nil {
			// A batch exception is logged and skipped; the file continues
			// with the next batch (spec.md §4.7 step 5).
			slog.Warn("embedpipeline_batch_embed_failed",
				slog.String("file", path),
				slog.Int("batchStart", batchStart),
				slog.String("error", embedErr.Error()))
			continue
		}

		// Align surviving embeddings by *returned* index, discarding gaps,
		// rather than assuming the backend preserved input length (spec.md
		// §9 design note, §8 property 2).
		for j, emb := range results {
			if j >= len(batch) {
				break
			}
			if len(emb.Vector) == 0 {
				continue
			}
			c := batch[j]
			records = append(records, folderdb.ChunkRecord{
				ChunkIndex:    batchStart + j,
				Content:       c.Content,
				StartPosition: c.StartPosition,
				EndPosition:   c.EndPosition,
				Embedding:     emb.Vector,
			})
			if aggErr := aggregator.Add(emb.Vector); aggErr != nil {
				slog.Warn("embedpipeline_aggregate_failed", slog.String("file", path), slog.String("error", aggErr.Error()))
			}
		}
	}

	// Post-condition from spec.md §4.7 step 6: the file is fatally in error
	// if nothing survived embedding across every batch.
	if len(records) == 0 {
		return lifecycle.ProcessResult{}, amerrors.New(amerrors.ErrCodeEmbedFailed,
			fmt.Sprintf("no chunk of %s produced an embedding across %d chunks", path, len(chunks)), nil)
	}

	return lifecycle.ProcessResult{
		MimeType:          mimeTypeFor(path),
		Chunks:            records,
		DocumentEmbedding: aggregator.Mean(),
		ProcessingMs:      time.Since(start).Milliseconds(),
	}, nil
}

// RemoveFile releases any orchestrator-side resources associated with path.
// The orchestrator keeps no per-file state (only a per-model backend cache),
// so this is a no-op kept for interface symmetry with ProcessFile.
func (o *Orchestrator) RemoveFile(path string) error {
	return nil
}

var mimeTypesByExt = map[string]string{
	".txt":      "text/plain",
	".md":       "text/markdown",
	".markdown": "text/markdown",
	".mdx":      "text/markdown",
	".json":     "application/json",
	".yaml":     "application/yaml",
	".yml":      "application/yaml",
	".html":     "text/html",
	".css":      "text/css",
	".go":       "text/x-go",
	".py":       "text/x-python",
	".js":       "text/javascript",
	".ts":       "text/typescript",
	".tsx":      "text/typescript",
	".jsx":      "text/javascript",
	".sh":       "text/x-shellscript",
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if mt, ok := mimeTypesByExt[ext]; ok {
		return mt
	}
	return "application/octet-stream"
}
