package embedpipeline

import "fmt"

// DocumentEmbeddingAggregator computes a document-level embedding as the
// running mean of its chunk embeddings using Welford's incremental-mean
// update (spec.md §4.7 "Document-level aggregation"):
//
//	new_mean = old_mean + (value - old_mean) / n
//
// Memory is O(dimension), independent of how many chunks are folded in.
type DocumentEmbeddingAggregator struct {
	mean []float32
	n    int
}

// NewDocumentEmbeddingAggregator returns an aggregator with no observations.
func NewDocumentEmbeddingAggregator() *DocumentEmbeddingAggregator {
	return &DocumentEmbeddingAggregator{}
}

// Add folds one chunk embedding into the running mean. The first call fixes
// the aggregator's dimension; every subsequent call must match it exactly,
// per spec.md "Dimension mismatches are fatal."
func (a *DocumentEmbeddingAggregator) Add(vector []float32) error {
	if a.n == 0 {
		a.mean = make([]float32, len(vector))
		copy(a.mean, vector)
		a.n = 1
		return nil
	}
	if len(vector) != len(a.mean) {
		return fmt.Errorf("embedpipeline: embedding dimension mismatch: aggregator has %d, got %d", len(a.mean), len(vector))
	}
	a.n++
	for i, v := range vector {
		a.mean[i] += (v - a.mean[i]) / float32(a.n)
	}
	return nil
}

// Count returns the number of embeddings folded in so far.
func (a *DocumentEmbeddingAggregator) Count() int {
	return a.n
}

// Mean returns the current running mean. It is nil until the first Add.
func (a *DocumentEmbeddingAggregator) Mean() []float32 {
	if a.n == 0 {
		return nil
	}
	out := make([]float32, len(a.mean))
	copy(out, a.mean)
	return out
}
