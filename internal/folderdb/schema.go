package folderdb

import "fmt"

// SchemaVersion is bumped whenever the DDL below changes shape in a way that
// is not forward-compatible; Open deletes and rebuilds any DB whose stored
// schema_version differs from this value (spec.md §4.1 step 2).
const SchemaVersion = 1

const ddlFixed = `
CREATE TABLE IF NOT EXISTS schema_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS embedding_config (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	model_name TEXT NOT NULL,
	model_dimension INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file_path TEXT NOT NULL UNIQUE,
	mime_type TEXT,
	document_embedding TEXT,
	document_keywords TEXT,
	document_processing_ms INTEGER
);
CREATE INDEX IF NOT EXISTS idx_documents_file_path ON documents(file_path);

CREATE TABLE IF NOT EXISTS chunks (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	chunk_index INTEGER NOT NULL,
	content TEXT NOT NULL,
	start_position INTEGER NOT NULL,
	end_position INTEGER NOT NULL,
	key_phrases TEXT,
	readability_score REAL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);

CREATE TABLE IF NOT EXISTS file_states (
	file_path TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	processing_state TEXT NOT NULL,
	last_attempt TIMESTAMP,
	success_timestamp TIMESTAMP,
	failure_reason TEXT,
	attempt_count INTEGER NOT NULL DEFAULT 0,
	chunk_count INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_file_states_content_hash ON file_states(content_hash);
CREATE INDEX IF NOT EXISTS idx_file_states_processing_state ON file_states(processing_state);
CREATE INDEX IF NOT EXISTS idx_file_states_last_attempt ON file_states(last_attempt);
`

// ddlVectorTable builds the vec0 virtual table DDL for the folder's declared
// model dimension. dimension is always a validated positive int, never
// caller-supplied text, so building the statement with Sprintf is safe.
func ddlVectorTable(dimension int) string {
	return fmt.Sprintf(`
CREATE VIRTUAL TABLE IF NOT EXISTS embeddings USING vec0(
	chunk_id INTEGER PRIMARY KEY,
	embedding float[%d]
);
`, dimension)
}

// pragmas configures the connection the way the rest of the engine expects:
// WAL journaling so VectorSearchPool reads never block FolderLifecycleManager
// writes, generous busy timeout under contention, foreign keys for cascade
// deletes.
var pragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA cache_size = -65536",
	"PRAGMA temp_store = MEMORY",
	"PRAGMA foreign_keys = ON",
}
