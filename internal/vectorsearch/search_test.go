package vectorsearch

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity_IdenticalVectorsScoreOne(t *testing.T) {
	score := cosineSimilarity([]float32{1, 2, 3}, []float32{1, 2, 3})
	assert.InDelta(t, 1.0, score, 1e-6)
}

func TestCosineSimilarity_OppositeVectorsScoreNegative(t *testing.T) {
	score := cosineSimilarity([]float32{1, 0, 0}, []float32{-1, 0, 0})
	assert.InDelta(t, -1.0, score, 1e-6)
}

func TestCosineSimilarity_IgnoresNonFiniteComponents(t *testing.T) {
	withNaN := cosineSimilarity([]float32{1, float32(math.NaN()), 3}, []float32{1, 1, 3})
	withoutThatComponent := cosineSimilarity([]float32{1, 3}, []float32{1, 3})
	assert.InDelta(t, withoutThatComponent, withNaN, 1e-6)
	assert.False(t, math.IsNaN(withNaN))

	withInf := cosineSimilarity([]float32{1, float32(math.Inf(1)), 3}, []float32{1, 1, 3})
	assert.InDelta(t, withoutThatComponent, withInf, 1e-6)
	assert.False(t, math.IsInf(withInf, 0))
}

func TestCosineSimilarity_AllNonFiniteScoresZero(t *testing.T) {
	score := cosineSimilarity([]float32{float32(math.NaN())}, []float32{float32(math.NaN())})
	assert.Equal(t, 0.0, score)
}
