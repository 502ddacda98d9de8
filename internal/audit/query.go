package audit

import (
	"database/sql"
	"fmt"
	"time"
)

const mergeColumns = "id, timestamp, mode, outcome, reason, description, source, duration_ms, total, different, taken_new, skipped"

type scanner interface {
	Scan(dest ...any) error
}

func scanMerge(s scanner) (MergeRecord, error) {
	var m MergeRecord
	var tsStr string
	if err := s.Scan(&m.ID, &tsStr, &m.Mode, &m.Outcome, &m.Reason, &m.Description, &m.Source,
		&m.DurationMs, &m.Total, &m.Different, &m.TakenNew, &m.Skipped); err != nil {
		return MergeRecord{}, err
	}
	ts, err := time.Parse(tsLayout, tsStr)
	if err != nil {
		return MergeRecord{}, fmt.Errorf("parse timestamp %q: %w", tsStr, err)
	}
	m.Timestamp = ts
	return m, nil
}

// ListMerges returns merges, newest first, optionally filtered by mode and
// outcome. A limit of 0 returns everything; offset only applies with a
// limit.
func ListMerges(db *sql.DB, limit, offset int, filterMode, filterOutcome string) ([]MergeRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: ListMerges called with nil db")
	}

	query := "SELECT " + mergeColumns + " FROM merges WHERE 1=1"
	var args []any

	if filterMode != "" {
		query += " AND mode = ?"
		args = append(args, filterMode)
	}
	if filterOutcome != "" {
		query += " AND outcome = ?"
		args = append(args, filterOutcome)
	}

	query += " ORDER BY timestamp DESC, id DESC"

	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
		if offset > 0 {
			query += " OFFSET ?"
			args = append(args, offset)
		}
	}

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: list merges: %w", err)
	}
	defer rows.Close()

	var merges []MergeRecord
	for rows.Next() {
		m, err := scanMerge(rows)
		if err != nil {
			return nil, fmt.Errorf("audit: scan merge row: %w", err)
		}
		merges = append(merges, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate merge rows: %w", err)
	}
	return merges, nil
}

// GetMerge returns a single merge by ID, including its decisions in path
// order.
func GetMerge(db *sql.DB, id int64) (*MergeRecord, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: GetMerge called with nil db")
	}

	m, err := scanMerge(db.QueryRow("SELECT "+mergeColumns+" FROM merges WHERE id = ?", id))
	if err != nil {
		return nil, fmt.Errorf("audit: get merge %d: %w", id, err)
	}

	rows, err := db.Query(
		"SELECT id, merge_id, path, title, choice, old_value, new_value, skipped FROM merge_decisions WHERE merge_id = ? ORDER BY id",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("audit: get decisions for merge %d: %w", id, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d Decision
		if err := rows.Scan(&d.ID, &d.MergeID, &d.Path, &d.Title, &d.Choice, &d.OldValue, &d.NewValue, &d.Skipped); err != nil {
			return nil, fmt.Errorf("audit: scan decision: %w", err)
		}
		m.Decisions = append(m.Decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: iterate decisions: %w", err)
	}
	return &m, nil
}

// Tail returns the last n merges, newest first.
func Tail(db *sql.DB, n int) ([]MergeRecord, error) {
	return ListMerges(db, n, 0, "", "")
}

// Prune deletes merges (and their decisions) older than the given duration.
// Returns the number of merges deleted.
func Prune(db *sql.DB, olderThan time.Duration) (int64, error) {
	return PruneBefore(db, time.Now().Add(-olderThan))
}

// PruneBefore deletes merges recorded before cutoff, with their decisions.
func PruneBefore(db *sql.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, fmt.Errorf("audit: PruneBefore called with nil db")
	}
	cut := cutoff.UTC().Format(tsLayout)

	tx, err := db.Begin()
	if err != nil {
		return 0, fmt.Errorf("audit: begin prune transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.Exec(
		"DELETE FROM merge_decisions WHERE merge_id IN (SELECT id FROM merges WHERE timestamp < ?)",
		cut,
	); err != nil {
		return 0, fmt.Errorf("audit: prune decisions: %w", err)
	}

	result, err := tx.Exec("DELETE FROM merges WHERE timestamp < ?", cut)
	if err != nil {
		return 0, fmt.Errorf("audit: prune merges: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("audit: prune rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("audit: commit prune: %w", err)
	}
	return count, nil
}

// GetStats returns aggregate statistics from the audit database.
func GetStats(db *sql.DB) (*Stats, error) {
	if db == nil {
		return nil, fmt.Errorf("audit: GetStats called with nil db")
	}

	stats := &Stats{
		CountByOutcome: make(map[string]int64),
		CountByMode:    make(map[string]int64),
	}

	err := db.QueryRow("SELECT COUNT(*), COALESCE(AVG(duration_ms), 0) FROM merges").
		Scan(&stats.TotalMerges, &stats.AvgDurationMs)
	if err != nil {
		return nil, fmt.Errorf("audit: stats totals: %w", err)
	}
	if stats.TotalMerges == 0 {
		return stats, nil
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM merge_decisions").Scan(&stats.DecisionsTotal); err != nil {
		return nil, fmt.Errorf("audit: stats decisions: %w", err)
	}

	var oldestStr, newestStr string
	if err := db.QueryRow("SELECT MIN(timestamp), MAX(timestamp) FROM merges").Scan(&oldestStr, &newestStr); err != nil {
		return nil, fmt.Errorf("audit: stats min/max timestamp: %w", err)
	}
	if stats.OldestEntry, err = time.Parse(tsLayout, oldestStr); err != nil {
		return nil, fmt.Errorf("audit: parse oldest timestamp %q: %w", oldestStr, err)
	}
	if stats.NewestEntry, err = time.Parse(tsLayout, newestStr); err != nil {
		return nil, fmt.Errorf("audit: parse newest timestamp %q: %w", newestStr, err)
	}

	for _, group := range []struct {
		column string
		into   map[string]int64
	}{
		{"outcome", stats.CountByOutcome},
		{"mode", stats.CountByMode},
	} {
		if err := countBy(db, group.column, group.into); err != nil {
			return nil, err
		}
	}
	return stats, nil
}

// countBy fills into with merge counts grouped by a fixed column name.
func countBy(db *sql.DB, column string, into map[string]int64) error {
	rows, err := db.Query(fmt.Sprintf("SELECT %s, COUNT(*) FROM merges GROUP BY %s", column, column))
	if err != nil {
		return fmt.Errorf("audit: stats by %s: %w", column, err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int64
		if err := rows.Scan(&key, &count); err != nil {
			return fmt.Errorf("audit: scan %s count: %w", column, err)
		}
		into[key] = count
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("audit: iterate %s rows: %w", column, err)
	}
	return nil
}
