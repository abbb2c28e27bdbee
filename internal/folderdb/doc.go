// Package folderdb owns a single folder's persistent store: a vector-enabled
// SQLite database rooted at "<folderPath>/.folder-mcp/embeddings.db" (spec.md
// §4.1). It is responsible for opening, repairing, and schema-migrating that
// database, and for every read/write operation against documents, chunks,
// embeddings and file_states.
package folderdb
