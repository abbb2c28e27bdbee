package folderdb

import (
	"database/sql"
	"fmt"
	"os"
)

// Severity classifies how badly a folder database is corrupted (spec.md
// §4.1 step 3).
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityMinor    Severity = "minor"
	SeveritySevere   Severity = "severe"
	SeverityCritical Severity = "critical"
)

// corruptionReport is the result of running quick_check, integrity_check and
// foreign_key_check against a database file.
type corruptionReport struct {
	Severity Severity
	Issues   []string
}

// classifyCorruption runs the three pragma checks spec.md §4.1 names and
// buckets the result into a severity. A database that does not exist yet, or
// that cannot even be opened, is reported rather than treated as an error:
// the caller decides what to do with each severity.
func classifyCorruption(path string) (corruptionReport, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return corruptionReport{Severity: SeverityNone}, nil
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return corruptionReport{Severity: SeverityCritical, Issues: []string{err.Error()}}, nil
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return corruptionReport{Severity: SeverityCritical, Issues: []string{err.Error()}}, nil
	}

	var issues []string

	if rows, err := db.Query("PRAGMA quick_check"); err != nil {
		issues = append(issues, fmt.Sprintf("quick_check: %v", err))
	} else {
		for rows.Next() {
			var msg string
			if scanErr := rows.Scan(&msg); scanErr == nil && msg != "ok" {
				issues = append(issues, "quick_check: "+msg)
			}
		}
		rows.Close()
	}

	if rows, err := db.Query("PRAGMA integrity_check"); err != nil {
		issues = append(issues, fmt.Sprintf("integrity_check: %v", err))
	} else {
		for rows.Next() {
			var msg string
			if scanErr := rows.Scan(&msg); scanErr == nil && msg != "ok" {
				issues = append(issues, "integrity_check: "+msg)
			}
		}
		rows.Close()
	}

	fkIssues := 0
	if rows, err := db.Query("PRAGMA foreign_key_check"); err != nil {
		issues = append(issues, fmt.Sprintf("foreign_key_check: %v", err))
	} else {
		for rows.Next() {
			var table string
			var rowid sql.NullInt64
			var parent string
			var fkid int
			if scanErr := rows.Scan(&table, &rowid, &parent, &fkid); scanErr == nil {
				fkIssues++
				issues = append(issues, fmt.Sprintf("foreign_key_check: %s -> %s", table, parent))
			}
		}
		rows.Close()
	}

	switch {
	case len(issues) == 0:
		return corruptionReport{Severity: SeverityNone}, nil
	case len(issues) <= 2 && fkIssues == 0:
		return corruptionReport{Severity: SeverityMinor, Issues: issues}, nil
	case len(issues) <= 5:
		return corruptionReport{Severity: SeveritySevere, Issues: issues}, nil
	default:
		return corruptionReport{Severity: SeverityCritical, Issues: issues}, nil
	}
}

// repair attempts VACUUM + REINDEX against an already-open read-write
// connection. This is only attempted for minor/severe corruption; critical
// corruption goes straight to restore-from-backup or rebuild.
func repair(db *sql.DB) error {
	if _, err := db.Exec("VACUUM"); err != nil {
		return fmt.Errorf("folderdb: vacuum: %w", err)
	}
	if _, err := db.Exec("REINDEX"); err != nil {
		return fmt.Errorf("folderdb: reindex: %w", err)
	}
	return nil
}
