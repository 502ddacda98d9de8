package audit

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rotationConfig(t *testing.T) RotationConfig {
	dir := filepath.Join(t.TempDir(), "archives")
	return RotationConfig{Retention: 24 * time.Hour, ArchiveDir: dir, ThrottleDir: dir}
}

func TestMaybeRotateNothingToArchive(t *testing.T) {
	a := openTestDB(t)
	cfg := rotationConfig(t)
	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, time.Now(), nil)))

	MaybeRotate(a.DB(), cfg, testLogger())

	archives, err := ListArchives(cfg.ArchiveDir)
	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestMaybeRotateArchivesAndPrunes(t *testing.T) {
	a := openTestDB(t)
	cfg := rotationConfig(t)
	now := time.Now()
	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, now.Add(-48*time.Hour), sampleDecisions())))
	require.NoError(t, a.RecordMerge(sampleMerge(ModeWholesale, OutcomeRejected, now.Add(-time.Hour), nil)))

	MaybeRotate(a.DB(), cfg, testLogger())

	archives, err := ListArchives(cfg.ArchiveDir)
	require.NoError(t, err)
	require.Len(t, archives, 1)

	entries, err := ReadArchive(archives[0].Path)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ModeSelective, entries[0].Mode)
	assert.Len(t, entries[0].Decisions, 2)

	remaining, err := ListMerges(a.DB(), 0, 0, "", "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, OutcomeRejected, remaining[0].Outcome)
}

func TestMaybeRotateThrottled(t *testing.T) {
	a := openTestDB(t)
	cfg := rotationConfig(t)
	old := time.Now().Add(-48 * time.Hour)

	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, old, nil)))
	MaybeRotate(a.DB(), cfg, testLogger())

	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, old, nil)))
	MaybeRotate(a.DB(), cfg, testLogger())

	archives, err := ListArchives(cfg.ArchiveDir)
	require.NoError(t, err)
	assert.Len(t, archives, 1)

	remaining, err := ListMerges(a.DB(), 0, 0, "", "")
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "second rotation did not run")
}

func TestMaybeRotateThrottleExpired(t *testing.T) {
	a := openTestDB(t)
	cfg := rotationConfig(t)
	require.NoError(t, os.MkdirAll(cfg.ThrottleDir, 0o755))

	marker := filepath.Join(cfg.ThrottleDir, ".last-rotation")
	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	stale := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(marker, stale, stale))

	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, time.Now().Add(-48*time.Hour), nil)))
	MaybeRotate(a.DB(), cfg, testLogger())

	archives, err := ListArchives(cfg.ArchiveDir)
	require.NoError(t, err)
	assert.Len(t, archives, 1)
}

func TestMaybeRotateDisabled(t *testing.T) {
	a := openTestDB(t)
	cfg := rotationConfig(t)
	cfg.Retention = 0
	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, time.Now().Add(-48*time.Hour), nil)))

	MaybeRotate(a.DB(), cfg, testLogger())
	MaybeRotate(nil, rotationConfig(t), testLogger())

	_, err := os.Stat(cfg.ArchiveDir)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListArchives(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "merges-1.zip")
	newer := filepath.Join(dir, "merges-2.zip")
	for _, p := range []string{older, newer, filepath.Join(dir, "notes.txt")} {
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.zip"), 0o755))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	archives, err := ListArchives(dir)
	require.NoError(t, err)
	require.Len(t, archives, 2)
	assert.Equal(t, "merges-2.zip", archives[0].Name)
	assert.Equal(t, older, archives[1].Path)

	archives, err = ListArchives(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Empty(t, archives)
}

func TestReadArchiveInvalid(t *testing.T) {
	p := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(p, []byte("not a zip"), 0o644))
	_, err := ReadArchive(p)
	assert.Error(t, err)
}
