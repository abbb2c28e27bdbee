// Package embedpipeline implements the per-file parse->chunk->embed->persist
// pipeline (spec.md §4.7): the IndexingOrchestrator, its FileParser/Chunker/
// EmbeddingBackend contracts, the per-model backend cache, and the
// DocumentEmbeddingAggregator's incremental mean.
package embedpipeline
