package vectorsearch

import (
	"database/sql"
	"fmt"
	"math"
	"sort"

	"github.com/okets/folder-mcp-core/internal/amerrors"
	"github.com/okets/folder-mcp-core/internal/folderdb"
	"github.com/okets/folder-mcp-core/internal/vecenc"
)

// scoreDocuments brute-force scans every embedding in db, scores it against
// queryVector with cosine similarity, and returns the topK results above
// threshold in descending score order. modelID is stamped onto every result
// as the embedding model the folder is configured with (spec.md §4.8, §6).
func scoreDocuments(db *folderdb.DB, queryVector []float32, topK int, threshold float64, modelID string) ([]SearchResult, error) {
	if len(queryVector) == 0 {
		return nil, amerrors.New(amerrors.ErrCodeInvariantViolation, "vectorsearch: query vector is empty", nil)
	}

	rows, err := db.Conn().Query(`
		SELECT d.id, c.id, d.file_path, c.chunk_index, c.content, c.start_position, c.end_position, c.key_phrases, c.readability_score, e.embedding
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
	`)
	if err != nil {
		return nil, fmt.Errorf("vectorsearch: query embeddings: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var documentID, chunkID int64
		var filePath, content string
		var chunkIndex, startPosition, endPosition int
		var keyPhrases sql.NullString
		var readabilityScore sql.NullFloat64
		var blob []byte
		if err := rows.Scan(&documentID, &chunkID, &filePath, &chunkIndex, &content, &startPosition, &endPosition, &keyPhrases, &readabilityScore, &blob); err != nil {
			return nil, fmt.Errorf("vectorsearch: scan embedding row: %w", err)
		}

		vector, err := vecenc.DecodeBytes(blob)
		if err != nil || len(vector) != len(queryVector) {
			continue
		}

		score := cosineSimilarity(queryVector, vector)
		if score < threshold {
			continue
		}

		metadata := map[string]any{
			"startPosition": startPosition,
			"endPosition":   endPosition,
		}
		if keyPhrases.Valid {
			metadata["keyPhrases"] = keyPhrases.String
		}
		if readabilityScore.Valid {
			metadata["readabilityScore"] = readabilityScore.Float64
		}

		results = append(results, SearchResult{
			DocumentID: documentID,
			ChunkID:    chunkID,
			FolderPath: db.FolderPath(),
			FilePath:   filePath,
			ChunkIndex: chunkIndex,
			Content:    content,
			Score:      score,
			ModelID:    modelID,
			Metadata:   metadata,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("vectorsearch: iterate embeddings: %w", err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// cosineSimilarity is NOT clamped to [0, 1]: opposite vectors score
// negative (spec.md §8 property 6, cosineSimilarity(v, -v) <= 0). A
// component pair where either side is NaN or +/-Inf is skipped rather than
// allowed to poison dot/normA/normB with a non-finite result (spec.md §4.8).
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
