// Package vectorsearch implements VectorSearchPool (spec.md §4.8): a
// bounded-size pool of opened per-folder FolderDatabases that answers
// brute-force cosine-similarity queries, either against one folder or
// fanned out across every registered folder.
package vectorsearch

// SearchResult is one ranked match from a query (spec.md §6).
type SearchResult struct {
	DocumentID int64
	ChunkID    int64
	FolderPath string
	FilePath   string
	ChunkIndex int
	Content    string
	Score      float64
	ModelID    string
	Metadata   map[string]any
}
