package audit

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// archiveEntryName is the JSON document stored in each archive.
const archiveEntryName = "merges.json"

// RotationConfig controls archiving of old merge records.
type RotationConfig struct {
	Retention   time.Duration // records older than this are archived
	ArchiveDir  string
	ThrottleDir string // holds the .last-rotation marker
}

// ArchiveInfo describes a single audit archive file.
type ArchiveInfo struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// MaybeRotate moves merges older than the retention window into a zip
// archive and prunes them. It runs at most once per hour. Errors are logged,
// never returned, so a failed rotation cannot fail a merge.
func MaybeRotate(db *sql.DB, cfg RotationConfig, logger *slog.Logger) {
	if db == nil || cfg.Retention <= 0 {
		return
	}

	markerPath := filepath.Join(cfg.ThrottleDir, ".last-rotation")
	if !shouldRotate(markerPath) {
		logger.Debug("rotation throttled")
		return
	}

	// Touch the marker first so a failing rotation is not retried on
	// every merge.
	touchMarker(markerPath, logger)

	cutoff := time.Now().Add(-cfg.Retention)

	entries, err := exportEntries(db, cutoff)
	if err != nil {
		logger.Warn("rotation: export entries failed", "err", err)
		return
	}
	if len(entries) == 0 {
		logger.Debug("rotation: nothing to archive")
		return
	}

	// Ensure archive dir exists.
	if err := os.MkdirAll(cfg.ArchiveDir, 0o755); err != nil {
		logger.Warn("rotation: create archive dir", "err", err)
		return
	}

	archiveName := fmt.Sprintf("merges-%s.zip", time.Now().UTC().Format("20060102T150405Z"))
	archivePath := filepath.Join(cfg.ArchiveDir, archiveName)

	if err := writeArchive(archivePath, entries); err != nil {
		logger.Warn("rotation: write archive failed", "err", err)
		return
	}

	pruned, err := PruneBefore(db, cutoff)
	if err != nil {
		logger.Warn("rotation: prune failed (archive already written)", "err", err)
		return
	}

	logger.Info("rotation complete",
		"archived", len(entries),
		"pruned", pruned,
		"archive", archivePath,
	)
}

// shouldRotate reports whether the marker is missing or at least an hour old.
func shouldRotate(markerPath string) bool {
	info, err := os.Stat(markerPath)
	if err != nil {
		return true
	}
	return time.Since(info.ModTime()) >= time.Hour
}

// touchMarker creates or updates the marker file's modification time.
func touchMarker(path string, logger *slog.Logger) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Warn("rotation: create throttle dir", "err", err)
		return
	}
	f, err := os.Create(path)
	if err != nil {
		logger.Warn("rotation: touch marker", "err", err)
		return
	}
	if err := f.Close(); err != nil {
		logger.Warn("rotation: close marker", "err", err)
	}
}

// exportEntries loads merges recorded before cutoff with their decisions,
// oldest first.
func exportEntries(db *sql.DB, cutoff time.Time) ([]MergeRecord, error) {
	rows, err := db.Query(
		"SELECT id FROM merges WHERE timestamp < ? ORDER BY timestamp ASC, id ASC",
		cutoff.UTC().Format(tsLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query old merge IDs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan merge ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate merge IDs: %w", err)
	}

	if len(ids) == 0 {
		return nil, nil
	}

	entries := make([]MergeRecord, 0, len(ids))
	for _, id := range ids {
		m, err := GetMerge(db, id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *m)
	}

	return entries, nil
}

// writeArchive writes entries as merges.json inside a zip at path. The zip
// is written to a temp file and renamed into place.
func writeArchive(path string, entries []MergeRecord) error {
	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("create temp archive: %w", err)
	}

	zw := zip.NewWriter(f)

	w, err := zw.Create(archiveEntryName)
	if err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("create zip entry: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entries); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("encode entries: %w", err)
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close zip writer: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp archive: %w", err)
	}

	return nil
}

// ListArchives returns the zip archives in archiveDir, newest first. A
// missing directory yields no archives.
func ListArchives(archiveDir string) ([]ArchiveInfo, error) {
	dirEntries, err := os.ReadDir(archiveDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("audit: read archive dir: %w", err)
	}

	var archives []ArchiveInfo
	for _, de := range dirEntries {
		if de.IsDir() || filepath.Ext(de.Name()) != ".zip" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		archives = append(archives, ArchiveInfo{
			Path:    filepath.Join(archiveDir, de.Name()),
			Name:    de.Name(),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	slices.SortFunc(archives, func(a, b ArchiveInfo) int {
		return b.ModTime.Compare(a.ModTime)
	})
	return archives, nil
}

// ReadArchive decodes the merges stored in an archive written by
// MaybeRotate.
func ReadArchive(path string) ([]MergeRecord, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("audit: open archive: %w", err)
	}
	defer func() { _ = r.Close() }()

	f, err := r.Open(archiveEntryName)
	if err != nil {
		return nil, fmt.Errorf("audit: archive %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = f.Close() }()

	var entries []MergeRecord
	if err := json.NewDecoder(f).Decode(&entries); err != nil {
		return nil, fmt.Errorf("audit: decode archive %s: %w", filepath.Base(path), err)
	}
	return entries, nil
}
