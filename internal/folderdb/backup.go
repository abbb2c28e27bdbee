package folderdb

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const backupTimeLayout = "20060102T150405Z"

// backupFileName builds "backup-<iso-ts>[-suffix].db" (spec.md §6).
func backupFileName(at time.Time, suffix string) string {
	name := "backup-" + at.UTC().Format(backupTimeLayout)
	if suffix != "" {
		name += "-" + suffix
	}
	return name + ".db"
}

// backupNow writes a consistent copy of dbPath into backupDir, preferring
// SQLite's "VACUUM INTO" (an online, compacting backup) and falling back to
// a plain file copy if that statement is unavailable. Older backups beyond
// maxBackups are pruned, newest first.
func (d *DB) backupNow(at time.Time, suffix string, maxBackups int) (string, error) {
	if err := os.MkdirAll(d.backupDir, 0o755); err != nil {
		return "", fmt.Errorf("folderdb: creating backup dir: %w", err)
	}

	dest := filepath.Join(d.backupDir, backupFileName(at, suffix))

	if _, err := d.conn.Exec(fmt.Sprintf("VACUUM INTO '%s'", escapeSQLiteLiteral(dest))); err != nil {
		slog.Warn("folderdb_backup_vacuum_into_failed", slog.String("path", dest), slog.String("error", err.Error()))
		if copyErr := copyFile(d.dbPath, dest); copyErr != nil {
			return "", fmt.Errorf("folderdb: backup copy fallback: %w", copyErr)
		}
	}

	if err := pruneBackups(d.backupDir, maxBackups); err != nil {
		slog.Warn("folderdb_backup_prune_failed", slog.String("dir", d.backupDir), slog.String("error", err.Error()))
	}

	return dest, nil
}

// escapeSQLiteLiteral doubles single quotes so dest can be embedded in a
// SQLite string literal; VACUUM INTO does not accept bound parameters.
func escapeSQLiteLiteral(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

// pruneBackups keeps the newest maxBackups files under dir and removes the
// rest (adapted from the user-config backup rotation idiom).
func pruneBackups(dir string, maxBackups int) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	type backupFile struct {
		path    string
		modTime time.Time
	}
	var files []backupFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "backup-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, backupFile{path: filepath.Join(dir, e.Name()), modTime: info.ModTime()})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.After(files[j].modTime) })

	for _, f := range files[minInt(maxBackups, len(files)):] {
		_ = os.Remove(f.path)
	}
	return nil
}

// latestBackup returns the most recently modified backup file under dir, or
// "" if there are none.
func latestBackup(dir string) string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var newest string
	var newestMod time.Time
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), "backup-") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(newestMod) {
			newestMod = info.ModTime()
			newest = filepath.Join(dir, e.Name())
		}
	}
	return newest
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
