package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// tsLayout is how timestamps are stored; it sorts lexically.
const tsLayout = "2006-01-02T15:04:05.000"

// SQLiteAuditor implements Auditor using a local SQLite database.
type SQLiteAuditor struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS merges (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    timestamp   TEXT    NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%f','now')),
    mode        TEXT    NOT NULL,
    outcome     TEXT    NOT NULL,
    reason      TEXT    NOT NULL DEFAULT '',
    description TEXT    NOT NULL DEFAULT '',
    duration_ms INTEGER NOT NULL,
    total       INTEGER NOT NULL DEFAULT 0,
    different   INTEGER NOT NULL DEFAULT 0,
    taken_new   INTEGER NOT NULL DEFAULT 0,
    skipped     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS merge_decisions (
    id        INTEGER PRIMARY KEY AUTOINCREMENT,
    merge_id  INTEGER NOT NULL REFERENCES merges(id),
    path      TEXT    NOT NULL,
    title     TEXT    NOT NULL DEFAULT '',
    choice    TEXT    NOT NULL,
    old_value TEXT    NOT NULL DEFAULT '',
    new_value TEXT    NOT NULL DEFAULT '',
    skipped   INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_merge_ts ON merges(timestamp);
CREATE INDEX IF NOT EXISTS idx_decision_merge ON merge_decisions(merge_id);
`

// DefaultDBPath returns the default audit database path.
// It checks $STUDYSPEC_AUDIT_DB, then $XDG_DATA_HOME/studyspec/audit.db,
// then falls back to ~/.local/share/studyspec/audit.db.
func DefaultDBPath() string {
	if p := os.Getenv("STUDYSPEC_AUDIT_DB"); p != "" {
		return p
	}
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "studyspec", "audit.db")
}

// ArchiveDir returns the directory rotated archives are written to for the
// database at dbPath.
func ArchiveDir(dbPath string) string {
	return filepath.Join(filepath.Dir(dbPath), "archives")
}

// Open opens (or creates) a SQLite audit database at the given path.
// It configures WAL mode with a 5-second busy timeout and migrates the
// schema.
func Open(dbPath string) (*SQLiteAuditor, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("audit: create directory %q: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("audit: open database %q: %w", dbPath, err)
	}

	steps := []struct {
		name string
		run  func() error
	}{
		{"set WAL mode", func() error { _, err := db.Exec("PRAGMA journal_mode=WAL"); return err }},
		{"set busy_timeout", func() error { _, err := db.Exec("PRAGMA busy_timeout=5000"); return err }},
		{"create schema", func() error { _, err := db.Exec(schema); return err }},
		{"migrate", func() error { return migrate(db) }},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			if closeErr := db.Close(); closeErr != nil {
				return nil, fmt.Errorf("audit: %s: %w (also failed to close: %v)", s.name, err, closeErr)
			}
			return nil, fmt.Errorf("audit: %s: %w", s.name, err)
		}
	}

	return &SQLiteAuditor{db: db}, nil
}

// migrate applies incremental schema migrations using PRAGMA user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version == 0 {
		exists, err := columnExists(db, "merges", "source")
		if err != nil {
			return fmt.Errorf("check source column: %w", err)
		}
		if !exists {
			if _, err := db.Exec("ALTER TABLE merges ADD COLUMN source TEXT NOT NULL DEFAULT ''"); err != nil {
				return fmt.Errorf("add source column: %w", err)
			}
		}
		if _, err := db.Exec("PRAGMA user_version = 1"); err != nil {
			return fmt.Errorf("set user_version to 1: %w", err)
		}
	}

	return nil
}

// columnExists checks whether a column exists in the given table.
func columnExists(db *sql.DB, table, column string) (bool, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var cid, notnull, pk int
		var name, ctype string
		var dflt *string
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}

// DB returns the underlying *sql.DB for use with query helpers.
// Returns nil if the receiver is nil.
func (a *SQLiteAuditor) DB() *sql.DB {
	if a == nil {
		return nil
	}
	return a.db
}

// RecordMerge inserts a merge and its decisions in a single transaction.
// Nil receiver is a no-op.
func (a *SQLiteAuditor) RecordMerge(entry MergeRecord) error {
	if a == nil {
		return nil
	}

	tx, err := a.db.Begin()
	if err != nil {
		return fmt.Errorf("audit: begin transaction: %w", err)
	}
	defer func() {
		// Rollback is a no-op once committed.
		_ = tx.Rollback()
	}()

	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	result, err := tx.Exec(
		`INSERT INTO merges (timestamp, mode, outcome, reason, description, source, duration_ms, total, different, taken_new, skipped)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts.UTC().Format(tsLayout),
		entry.Mode,
		entry.Outcome,
		entry.Reason,
		entry.Description,
		entry.Source,
		entry.DurationMs,
		entry.Total,
		entry.Different,
		entry.TakenNew,
		entry.Skipped,
	)
	if err != nil {
		return fmt.Errorf("audit: insert merge: %w", err)
	}

	mergeID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("audit: get last insert id: %w", err)
	}

	for _, d := range entry.Decisions {
		_, err := tx.Exec(
			`INSERT INTO merge_decisions (merge_id, path, title, choice, old_value, new_value, skipped)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			mergeID,
			d.Path,
			d.Title,
			d.Choice,
			TruncateValue(d.OldValue, MaxValueLen),
			TruncateValue(d.NewValue, MaxValueLen),
			d.Skipped,
		)
		if err != nil {
			return fmt.Errorf("audit: insert decision for %q: %w", d.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("audit: commit transaction: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
// Nil receiver is a no-op.
func (a *SQLiteAuditor) Close() error {
	if a == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("audit: close database: %w", err)
	}
	return nil
}
