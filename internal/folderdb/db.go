package folderdb

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"

	"github.com/okets/folder-mcp-core/internal/amerrors"
)

func init() {
	sqlite_vec.Auto()
}

// DB is a single folder's vector-enabled SQLite database handle (spec.md
// §4.1). All of its exported operations are safe for concurrent use; writes
// serialize through mu while reads (used by the search pool) go through the
// same *sql.DB connection pool, which WAL mode keeps non-blocking.
type DB struct {
	mu sync.RWMutex

	conn *sql.DB

	folderPath   string
	folderMCPDir string
	dbPath       string
	backupDir    string

	modelName      string
	modelDimension int
	maxBackups     int

	lock   *dbLock
	closed bool
}

// Open runs the full open sequence from spec.md §4.1: ensure the
// .folder-mcp directory, rebuild on schema version mismatch, check and
// repair corruption, open the database with the vector extension loaded,
// apply the schema, validate the embedding config, and take a post-init
// backup.
func Open(folderPath, modelName string, modelDimension int, maxBackups int) (*DB, error) {
	if maxBackups <= 0 {
		maxBackups = 3
	}

	folderMCPDir := filepath.Join(folderPath, ".folder-mcp")
	if err := os.MkdirAll(folderMCPDir, 0o755); err != nil {
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, fmt.Errorf("creating .folder-mcp: %w", err))
	}

	dbPath := filepath.Join(folderMCPDir, "embeddings.db")
	backupDir := filepath.Join(folderMCPDir, "backups")

	d := &DB{
		folderPath:     folderPath,
		folderMCPDir:   folderMCPDir,
		dbPath:         dbPath,
		backupDir:      backupDir,
		modelName:      modelName,
		modelDimension: modelDimension,
		maxBackups:     maxBackups,
		lock:           newDBLock(folderMCPDir),
	}

	if err := d.lock.Lock(); err != nil {
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, err)
	}
	defer d.lock.Unlock()

	if err := rebuildOnVersionMismatch(dbPath); err != nil {
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, err)
	}

	if err := d.checkAndRepair(); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, err)
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, fmt.Errorf("pragma %q: %w", p, err))
		}
	}
	d.conn = conn

	if _, err := conn.Exec(ddlFixed); err != nil {
		conn.Close()
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, fmt.Errorf("applying schema: %w", err))
	}
	if _, err := conn.Exec(ddlVectorTable(modelDimension)); err != nil {
		conn.Close()
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, fmt.Errorf("creating vector table: %w", err))
	}
	if _, err := conn.Exec("INSERT INTO schema_version (id, version, updated_at) VALUES (1, ?, ?) "+
		"ON CONFLICT(id) DO UPDATE SET version = excluded.version, updated_at = excluded.updated_at",
		SchemaVersion, time.Now().UTC()); err != nil {
		conn.Close()
		return nil, amerrors.Wrap(amerrors.ErrCodeOpenFailed, fmt.Errorf("writing schema_version: %w", err))
	}

	if err := d.validateOrInsertEmbeddingConfig(); err != nil {
		conn.Close()
		return nil, err
	}

	if _, err := d.backupNow(time.Now(), "", d.maxBackups); err != nil {
		slog.Warn("folderdb_post_init_backup_failed", slog.String("folder", folderPath), slog.String("error", err.Error()))
	}

	return d, nil
}

// rebuildOnVersionMismatch deletes the database file (and its WAL/SHM
// siblings) if it exists and its stored schema_version does not match
// SchemaVersion. A DB with no schema_version row at all (e.g. a foreign
// file) is treated as a mismatch.
func rebuildOnVersionMismatch(dbPath string) error {
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil
	}

	mismatch := true
	if conn, err := sql.Open("sqlite3", dbPath+"?mode=ro"); err == nil {
		var version int
		scanErr := conn.QueryRow("SELECT version FROM schema_version WHERE id = 1").Scan(&version)
		conn.Close()
		if scanErr == nil && version == SchemaVersion {
			mismatch = false
		}
	}

	if !mismatch {
		return nil
	}

	slog.Info("folderdb_schema_version_mismatch", slog.String("path", dbPath))
	_ = os.Remove(dbPath)
	_ = os.Remove(dbPath + "-wal")
	_ = os.Remove(dbPath + "-shm")
	return nil
}

// checkAndRepair runs the corruption check and, for minor/severe severity,
// attempts VACUUM+REINDEX in place; failing that (or on critical severity)
// it restores from the most recent backup, and failing that moves the file
// aside and lets the caller rebuild an empty database.
func (d *DB) checkAndRepair() error {
	report, err := classifyCorruption(d.dbPath)
	if err != nil {
		return amerrors.Wrap(amerrors.ErrCodeIntegrityCheckFailed, err)
	}
	if report.Severity == SeverityNone {
		return nil
	}

	slog.Warn("folderdb_corruption_detected",
		slog.String("path", d.dbPath),
		slog.String("severity", string(report.Severity)),
		slog.Any("issues", report.Issues))

	if report.Severity == SeverityMinor || report.Severity == SeveritySevere {
		if conn, openErr := sql.Open("sqlite3", d.dbPath); openErr == nil {
			repairErr := repair(conn)
			conn.Close()
			if repairErr == nil {
				return nil
			}
			slog.Warn("folderdb_repair_failed", slog.String("path", d.dbPath), slog.String("error", repairErr.Error()))
		}
	}

	if backup := latestBackup(d.backupDir); backup != "" {
		if err := copyFile(backup, d.dbPath); err == nil {
			_ = os.Remove(d.dbPath + "-wal")
			_ = os.Remove(d.dbPath + "-shm")
			slog.Warn("folderdb_restored_from_backup", slog.String("path", d.dbPath), slog.String("backup", backup))
			return nil
		}
	}

	corruptedPath := fmt.Sprintf("%s.corrupted.%d", d.dbPath, time.Now().Unix())
	if err := os.Rename(d.dbPath, corruptedPath); err != nil {
		return amerrors.Wrap(amerrors.ErrCodeCorrupted, fmt.Errorf("moving corrupted db aside: %w", err))
	}
	_ = os.Remove(d.dbPath + "-wal")
	_ = os.Remove(d.dbPath + "-shm")
	slog.Error("folderdb_rebuilt_empty_data_loss",
		slog.String("path", d.dbPath),
		slog.String("moved_aside_to", corruptedPath))
	return nil
}

// validateOrInsertEmbeddingConfig enforces the immutability invariant from
// spec.md §3: a folder DB's (modelName, modelDimension) cannot change once
// set. A mismatch is fatal and the database is left exactly as it was found.
func (d *DB) validateOrInsertEmbeddingConfig() error {
	var existingModel string
	var existingDim int
	err := d.conn.QueryRow("SELECT model_name, model_dimension FROM embedding_config WHERE id = 1").
		Scan(&existingModel, &existingDim)

	switch {
	case err == sql.ErrNoRows:
		_, insertErr := d.conn.Exec(
			"INSERT INTO embedding_config (id, model_name, model_dimension) VALUES (1, ?, ?)",
			d.modelName, d.modelDimension)
		if insertErr != nil {
			return amerrors.Wrap(amerrors.ErrCodeOpenFailed, insertErr)
		}
		return nil
	case err != nil:
		return amerrors.Wrap(amerrors.ErrCodeOpenFailed, err)
	}

	if existingModel != d.modelName || existingDim != d.modelDimension {
		return amerrors.New(amerrors.ErrCodeModelMismatch,
			fmt.Sprintf("folder database configured for %s[%d], runtime configured for %s[%d]",
				existingModel, existingDim, d.modelName, d.modelDimension), nil).
			WithDetail("existingModel", existingModel).
			WithDetail("existingDimension", fmt.Sprint(existingDim)).
			WithDetail("configuredModel", d.modelName).
			WithDetail("configuredDimension", fmt.Sprint(d.modelDimension))
	}
	return nil
}

// IsReady reports whether the database is open and usable.
func (d *DB) IsReady() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.conn != nil && !d.closed
}

// Path returns the folder's database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// FolderPath returns the folder root this database belongs to.
func (d *DB) FolderPath() string {
	return d.folderPath
}

// Conn exposes the underlying *sql.DB for VectorSearchPool's read queries.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// Checkpoint truncates the WAL file. Best-effort; never fatal (spec.md §4.1).
func (d *DB) Checkpoint() {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.conn == nil || d.closed {
		return
	}
	if _, err := d.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		slog.Warn("folderdb_checkpoint_failed", slog.String("path", d.dbPath), slog.String("error", err.Error()))
	}
}

// Backup takes an on-demand backup with the given suffix, pruning older
// backups beyond maxBackups.
func (d *DB) Backup(suffix string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.conn == nil || d.closed {
		return "", fmt.Errorf("folderdb: database closed")
	}
	if err := d.lock.Lock(); err != nil {
		return "", err
	}
	defer d.lock.Unlock()
	return d.backupNow(time.Now(), suffix, d.maxBackups)
}

// Close closes the underlying connection. Idempotent.
func (d *DB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	if d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
