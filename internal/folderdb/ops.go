package folderdb

import (
	"database/sql"
	"fmt"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"

	"github.com/okets/folder-mcp-core/internal/amerrors"
	"github.com/okets/folder-mcp-core/internal/folder"
	"github.com/okets/folder-mcp-core/internal/vecenc"
)

// ChunkRecord is one chunk + its embedding, as handed to AddEmbeddings by
// IndexingOrchestrator.processFile (spec.md §4.7).
type ChunkRecord struct {
	ChunkIndex       int
	Content          string
	StartPosition    int
	EndPosition      int
	KeyPhrases       string
	ReadabilityScore *float64
	Embedding        []float32
}

// AddEmbeddings inserts-or-replaces a document and atomically replaces all
// of its chunks and embeddings in a single transaction (spec.md §4.1).
func (d *DB) AddEmbeddings(filePath, mimeType string, documentEmbedding []float32, documentKeywords string, processingMs int64, chunks []ChunkRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.closed {
		return fmt.Errorf("folderdb: database closed")
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("folderdb: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var docEmbedding any
	if len(documentEmbedding) > 0 {
		docEmbedding = vecenc.Encode(documentEmbedding)
	}

	var documentID int64
	err = tx.QueryRow("SELECT id FROM documents WHERE file_path = ?", filePath).Scan(&documentID)
	switch {
	case err == sql.ErrNoRows:
		res, insertErr := tx.Exec(
			"INSERT INTO documents (file_path, mime_type, document_embedding, document_keywords, document_processing_ms) VALUES (?, ?, ?, ?, ?)",
			filePath, mimeType, docEmbedding, documentKeywords, processingMs)
		if insertErr != nil {
			return fmt.Errorf("folderdb: inserting document: %w", insertErr)
		}
		documentID, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("folderdb: reading document id: %w", err)
		}
	case err != nil:
		return fmt.Errorf("folderdb: looking up document: %w", err)
	default:
		if _, updateErr := tx.Exec(
			"UPDATE documents SET mime_type = ?, document_embedding = ?, document_keywords = ?, document_processing_ms = ? WHERE id = ?",
			mimeType, docEmbedding, documentKeywords, processingMs, documentID); updateErr != nil {
			return fmt.Errorf("folderdb: updating document: %w", updateErr)
		}
		if err := deleteChunksForDocument(tx, documentID); err != nil {
			return err
		}
	}

	for _, c := range chunks {
		res, err := tx.Exec(
			"INSERT INTO chunks (document_id, chunk_index, content, start_position, end_position, key_phrases, readability_score) VALUES (?, ?, ?, ?, ?, ?, ?)",
			documentID, c.ChunkIndex, c.Content, c.StartPosition, c.EndPosition, nullableString(c.KeyPhrases), c.ReadabilityScore)
		if err != nil {
			return fmt.Errorf("folderdb: inserting chunk: %w", err)
		}
		chunkID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("folderdb: reading chunk id: %w", err)
		}

		blob, err := sqlite_vec.SerializeFloat32(c.Embedding)
		if err != nil {
			return amerrors.Wrap(amerrors.ErrCodeDimensionMismatchChunk, fmt.Errorf("serializing embedding: %w", err))
		}
		if _, err := tx.Exec("INSERT INTO embeddings (chunk_id, embedding) VALUES (?, ?)", chunkID, blob); err != nil {
			return fmt.Errorf("folderdb: inserting embedding: %w", err)
		}
	}

	return tx.Commit()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// deleteChunksForDocument removes every chunk (and, via a manual delete, its
// embedding row) belonging to documentID. embeddings is a vec0 virtual
// table, so it has no real foreign key to cascade on chunk deletion.
func deleteChunksForDocument(tx *sql.Tx, documentID int64) error {
	rows, err := tx.Query("SELECT id FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("folderdb: listing existing chunks: %w", err)
	}
	var chunkIDs []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("folderdb: scanning chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	rows.Close()

	for _, id := range chunkIDs {
		if _, err := tx.Exec("DELETE FROM embeddings WHERE chunk_id = ?", id); err != nil {
			return fmt.Errorf("folderdb: deleting embedding: %w", err)
		}
	}
	if _, err := tx.Exec("DELETE FROM chunks WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("folderdb: deleting chunks: %w", err)
	}
	return nil
}

// RemoveDocument cascade-deletes a document's chunks, embeddings and
// file_states row (spec.md §4.1).
func (d *DB) RemoveDocument(filePath string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.closed {
		return fmt.Errorf("folderdb: database closed")
	}

	tx, err := d.conn.Begin()
	if err != nil {
		return fmt.Errorf("folderdb: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var documentID int64
	err = tx.QueryRow("SELECT id FROM documents WHERE file_path = ?", filePath).Scan(&documentID)
	if err == sql.ErrNoRows {
		return tx.Commit()
	}
	if err != nil {
		return fmt.Errorf("folderdb: looking up document: %w", err)
	}

	if err := deleteChunksForDocument(tx, documentID); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM documents WHERE id = ?", documentID); err != nil {
		return fmt.Errorf("folderdb: deleting document: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM file_states WHERE file_path = ?", filePath); err != nil {
		return fmt.Errorf("folderdb: deleting file_state: %w", err)
	}

	return tx.Commit()
}

// GetDocumentFingerprints returns every known filePath -> contentHash pair
// from file_states (spec.md §4.1).
func (d *DB) GetDocumentFingerprints() (map[string]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil || d.closed {
		return nil, fmt.Errorf("folderdb: database closed")
	}

	rows, err := d.conn.Query("SELECT file_path, content_hash FROM file_states")
	if err != nil {
		return nil, fmt.Errorf("folderdb: querying fingerprints: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("folderdb: scanning fingerprint: %w", err)
		}
		out[path] = hash
	}
	return out, rows.Err()
}

// GetFileState returns the persisted state for filePath, or ok=false if
// there is none.
func (d *DB) GetFileState(filePath string) (folder.FileState, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil || d.closed {
		return folder.FileState{}, false, fmt.Errorf("folderdb: database closed")
	}
	return scanFileState(d.conn.QueryRow(
		"SELECT file_path, content_hash, processing_state, last_attempt, success_timestamp, failure_reason, attempt_count, chunk_count FROM file_states WHERE file_path = ?",
		filePath))
}

func scanFileState(row *sql.Row) (folder.FileState, bool, error) {
	var fs folder.FileState
	var state string
	var lastAttempt, successTimestamp sql.NullTime
	var failureReason sql.NullString

	err := row.Scan(&fs.FilePath, &fs.ContentHash, &state, &lastAttempt, &successTimestamp, &failureReason, &fs.AttemptCount, &fs.ChunkCount)
	if err == sql.ErrNoRows {
		return folder.FileState{}, false, nil
	}
	if err != nil {
		return folder.FileState{}, false, fmt.Errorf("folderdb: scanning file_state: %w", err)
	}

	fs.ProcessingState = folder.ProcessingState(state)
	if lastAttempt.Valid {
		fs.LastAttempt = lastAttempt.Time
	}
	if successTimestamp.Valid {
		ts := successTimestamp.Time
		fs.SuccessTimestamp = &ts
	}
	fs.FailureReason = failureReason.String
	return fs, true, nil
}

// SetFileState upserts the full file_states row for fs.FilePath.
func (d *DB) SetFileState(fs folder.FileState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.closed {
		return fmt.Errorf("folderdb: database closed")
	}

	var successTimestamp any
	if fs.SuccessTimestamp != nil {
		successTimestamp = *fs.SuccessTimestamp
	}

	_, err := d.conn.Exec(
		`INSERT INTO file_states (file_path, content_hash, processing_state, last_attempt, success_timestamp, failure_reason, attempt_count, chunk_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(file_path) DO UPDATE SET
		   content_hash = excluded.content_hash,
		   processing_state = excluded.processing_state,
		   last_attempt = excluded.last_attempt,
		   success_timestamp = excluded.success_timestamp,
		   failure_reason = excluded.failure_reason,
		   attempt_count = excluded.attempt_count,
		   chunk_count = excluded.chunk_count`,
		fs.FilePath, fs.ContentHash, string(fs.ProcessingState), fs.LastAttempt, successTimestamp, nullableString(fs.FailureReason), fs.AttemptCount, fs.ChunkCount)
	if err != nil {
		return fmt.Errorf("folderdb: upserting file_state: %w", err)
	}
	return nil
}

// UpdateProcessingState sets just the processing_state column.
func (d *DB) UpdateProcessingState(filePath string, state folder.ProcessingState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.closed {
		return fmt.Errorf("folderdb: database closed")
	}
	_, err := d.conn.Exec("UPDATE file_states SET processing_state = ? WHERE file_path = ?", string(state), filePath)
	return err
}

// MarkFileProcessed records a successful index pass: state=indexed,
// successTimestamp=now, chunkCount=n (spec.md §4.2).
func (d *DB) MarkFileProcessed(filePath string, chunkCount int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.closed {
		return fmt.Errorf("folderdb: database closed")
	}
	now := time.Now().UTC()
	_, err := d.conn.Exec(
		"UPDATE file_states SET processing_state = ?, success_timestamp = ?, chunk_count = ?, failure_reason = NULL WHERE file_path = ?",
		string(folder.FileStateIndexed), now, chunkCount, filePath)
	return err
}

// GetFilesByState returns every file_states row with the given state.
func (d *DB) GetFilesByState(state folder.ProcessingState) ([]folder.FileState, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil || d.closed {
		return nil, fmt.Errorf("folderdb: database closed")
	}

	rows, err := d.conn.Query(
		"SELECT file_path, content_hash, processing_state, last_attempt, success_timestamp, failure_reason, attempt_count, chunk_count FROM file_states WHERE processing_state = ?",
		string(state))
	if err != nil {
		return nil, fmt.Errorf("folderdb: querying by state: %w", err)
	}
	defer rows.Close()

	var out []folder.FileState
	for rows.Next() {
		var fs folder.FileState
		var st string
		var lastAttempt, successTimestamp sql.NullTime
		var failureReason sql.NullString
		if err := rows.Scan(&fs.FilePath, &fs.ContentHash, &st, &lastAttempt, &successTimestamp, &failureReason, &fs.AttemptCount, &fs.ChunkCount); err != nil {
			return nil, fmt.Errorf("folderdb: scanning file_state: %w", err)
		}
		fs.ProcessingState = folder.ProcessingState(st)
		if lastAttempt.Valid {
			fs.LastAttempt = lastAttempt.Time
		}
		if successTimestamp.Valid {
			ts := successTimestamp.Time
			fs.SuccessTimestamp = &ts
		}
		fs.FailureReason = failureReason.String
		out = append(out, fs)
	}
	return out, rows.Err()
}

// CleanupMissingFiles removes every file_states row (and its document,
// chunks, embeddings) whose filePath is not in existingPaths (spec.md §4.1,
// §8 property 9).
func (d *DB) CleanupMissingFiles(existingPaths []string) (int, error) {
	existing := make(map[string]struct{}, len(existingPaths))
	for _, p := range existingPaths {
		existing[p] = struct{}{}
	}

	d.mu.RLock()
	rows, err := d.conn.Query("SELECT file_path FROM file_states")
	if err != nil {
		d.mu.RUnlock()
		return 0, fmt.Errorf("folderdb: listing file_states: %w", err)
	}
	var missing []string
	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			rows.Close()
			d.mu.RUnlock()
			return 0, fmt.Errorf("folderdb: scanning file_state path: %w", err)
		}
		if _, ok := existing[path]; !ok {
			missing = append(missing, path)
		}
	}
	rows.Close()
	d.mu.RUnlock()

	for _, path := range missing {
		if err := d.RemoveDocument(path); err != nil {
			return 0, err
		}
	}
	return len(missing), nil
}

// ProcessingStats summarizes file_states counts by state (spec.md §4.1
// getProcessingStats).
type ProcessingStats struct {
	Pending    int
	Processing int
	Indexed    int
	Failed     int
	Skipped    int
	Corrupted  int
	Deleted    int
}

// GetProcessingStats returns counts of file_states rows grouped by state.
func (d *DB) GetProcessingStats() (ProcessingStats, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil || d.closed {
		return ProcessingStats{}, fmt.Errorf("folderdb: database closed")
	}

	rows, err := d.conn.Query("SELECT processing_state, COUNT(*) FROM file_states GROUP BY processing_state")
	if err != nil {
		return ProcessingStats{}, fmt.Errorf("folderdb: querying processing stats: %w", err)
	}
	defer rows.Close()

	var stats ProcessingStats
	for rows.Next() {
		var state string
		var count int
		if err := rows.Scan(&state, &count); err != nil {
			return ProcessingStats{}, fmt.Errorf("folderdb: scanning processing stats: %w", err)
		}
		switch folder.ProcessingState(state) {
		case folder.FileStatePending:
			stats.Pending = count
		case folder.FileStateProcessing:
			stats.Processing = count
		case folder.FileStateIndexed:
			stats.Indexed = count
		case folder.FileStateFailed:
			stats.Failed = count
		case folder.FileStateSkipped:
			stats.Skipped = count
		case folder.FileStateCorrupted:
			stats.Corrupted = count
		case folder.FileStateDeleted:
			stats.Deleted = count
		}
	}
	return stats, rows.Err()
}
