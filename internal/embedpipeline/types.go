package embedpipeline

import "context"

// ParsedContent is what a FileParser returns for one file (spec.md §9
// GLOSSARY).
type ParsedContent struct {
	Content  string
	Metadata map[string]string
}

// FileParser turns a file on disk into text + metadata. Concrete format
// parsers (PDF/DOCX/XLSX/PPTX) are out of scope (spec.md §1); this is the
// seam they would plug into.
type FileParser interface {
	Parse(filePath string) (ParsedContent, error)
}

// Chunk is one unit a Chunker splits a parsed document into; chunks cover
// the document in order (spec.md §9 GLOSSARY).
type Chunk struct {
	Content       string
	StartPosition int
	EndPosition   int
}

// Chunker splits parsed content into ordered chunks.
type Chunker interface {
	Chunk(parsed ParsedContent) ([]Chunk, error)
}

// Embedding is one vector returned by an EmbeddingBackend, positionally
// aligned with its input chunk. A nil/empty Vector means the backend could
// not embed that particular chunk.
type Embedding struct {
	Vector []float32
}

// EmbeddingBackend computes embeddings for a batch of chunk texts. Concrete
// model backends (local CPU-only runtimes, remote GPU servers) are out of
// scope as a requirement (spec.md §1); StaticBackend and RemoteBackend below
// are the two provider families the model router understands.
type EmbeddingBackend interface {
	Initialize(ctx context.Context) error
	IsInitialized() bool
	Embed(ctx context.Context, texts []string) ([]Embedding, error)
	Dimensions() int
	ModelID() string
	Close() error
}

// ChunkMetadata is the per-chunk record the orchestrator attaches to every
// surviving embedding (spec.md §4.7 step 5).
type ChunkMetadata struct {
	FilePath      string
	ChunkID       string
	ChunkIndex    int
	Content       string
	StartPosition int
	EndPosition   int
	FileHash      string
}
