package audit

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *SQLiteAuditor {
	t.Helper()
	a, err := Open(filepath.Join(t.TempDir(), "test-audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, a.Close())
	})
	return a
}

func sampleMerge(mode, outcome string, ts time.Time, decisions []Decision) MergeRecord {
	return MergeRecord{
		Timestamp:   ts,
		Mode:        mode,
		Outcome:     outcome,
		Description: "Changed name and size.",
		Source:      "response.txt",
		DurationMs:  42,
		Total:       len(decisions),
		Different:   len(decisions),
		TakenNew:    len(decisions),
		Decisions:   decisions,
	}
}

func sampleDecisions() []Decision {
	return []Decision{
		{Path: "n.maxCohortSize", Title: "Max Cohort Size", Choice: "new", OldValue: "0", NewValue: "500"},
		{Path: "name", Title: "Study Name", Choice: "new", OldValue: `"Study A"`, NewValue: `"Study B"`},
	}
}

func TestOpenCreatesSchema(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "dir", "audit.db")
	a, err := Open(dbPath)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a.Close()) }()

	for _, table := range []string{"merges", "merge_decisions"} {
		var count int
		require.NoError(t, a.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Zero(t, count, table)
	}

	var version int
	require.NoError(t, a.DB().QueryRow("PRAGMA user_version").Scan(&version))
	assert.Equal(t, 1, version)

	exists, err := columnExists(a.DB(), "merges", "source")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audit.db")
	a1, err := Open(dbPath)
	require.NoError(t, err)
	require.NoError(t, a1.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, time.Now(), nil)))
	require.NoError(t, a1.Close())

	a2, err := Open(dbPath)
	require.NoError(t, err)
	defer func() { assert.NoError(t, a2.Close()) }()

	merges, err := ListMerges(a2.DB(), 0, 0, "", "")
	require.NoError(t, err)
	assert.Len(t, merges, 1)
}

func TestRecordAndGetMerge(t *testing.T) {
	a := openTestDB(t)
	ts := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	entry := sampleMerge(ModeSelective, OutcomeApplied, ts, sampleDecisions())
	entry.Decisions[1].Skipped = true
	entry.Skipped = 1

	require.NoError(t, a.RecordMerge(entry))

	merges, err := ListMerges(a.DB(), 10, 0, "", "")
	require.NoError(t, err)
	require.Len(t, merges, 1)

	got, err := GetMerge(a.DB(), merges[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Timestamp.Equal(ts), "timestamp %v", got.Timestamp)
	assert.Equal(t, ModeSelective, got.Mode)
	assert.Equal(t, OutcomeApplied, got.Outcome)
	assert.Equal(t, "Changed name and size.", got.Description)
	assert.Equal(t, "response.txt", got.Source)
	assert.Equal(t, int64(42), got.DurationMs)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, 1, got.Skipped)

	require.Len(t, got.Decisions, 2)
	assert.Equal(t, "n.maxCohortSize", got.Decisions[0].Path)
	assert.Equal(t, "500", got.Decisions[0].NewValue)
	assert.False(t, got.Decisions[0].Skipped)
	assert.Equal(t, "Study Name", got.Decisions[1].Title)
	assert.True(t, got.Decisions[1].Skipped)
	assert.Equal(t, got.ID, got.Decisions[1].MergeID)
}

func TestGetMergeMissing(t *testing.T) {
	a := openTestDB(t)
	_, err := GetMerge(a.DB(), 999)
	assert.Error(t, err)
}

func TestRecordTruncatesValues(t *testing.T) {
	a := openTestDB(t)
	long := strings.Repeat("x", 2000)
	entry := sampleMerge(ModeWholesale, OutcomeApplied, time.Now(), []Decision{
		{Path: "blob", Choice: "new", OldValue: long, NewValue: long},
	})
	require.NoError(t, a.RecordMerge(entry))

	merges, err := Tail(a.DB(), 1)
	require.NoError(t, err)
	got, err := GetMerge(a.DB(), merges[0].ID)
	require.NoError(t, err)
	assert.Len(t, got.Decisions[0].OldValue, MaxValueLen)
	assert.True(t, strings.HasSuffix(got.Decisions[0].NewValue, "..."))
}

func TestListMergesFilters(t *testing.T) {
	a := openTestDB(t)
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	records := []MergeRecord{
		sampleMerge(ModeSelective, OutcomeApplied, base, nil),
		sampleMerge(ModeWholesale, OutcomeApplied, base.Add(time.Minute), nil),
		sampleMerge(ModeWholesale, OutcomeRejected, base.Add(2*time.Minute), nil),
	}
	for _, r := range records {
		require.NoError(t, a.RecordMerge(r))
	}

	all, err := ListMerges(a.DB(), 0, 0, "", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, OutcomeRejected, all[0].Outcome, "newest first")

	wholesale, err := ListMerges(a.DB(), 0, 0, ModeWholesale, "")
	require.NoError(t, err)
	assert.Len(t, wholesale, 2)

	rejected, err := ListMerges(a.DB(), 0, 0, ModeWholesale, OutcomeRejected)
	require.NoError(t, err)
	assert.Len(t, rejected, 1)

	none, err := ListMerges(a.DB(), 0, 0, ModeSelective, OutcomeRejected)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestListMergesLimitOffset(t *testing.T) {
	a := openTestDB(t)
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	for i := range 5 {
		entry := sampleMerge(ModeSelective, OutcomeApplied, base.Add(time.Duration(i)*time.Minute), nil)
		entry.DurationMs = int64(i + 1)
		require.NoError(t, a.RecordMerge(entry))
	}

	page, err := ListMerges(a.DB(), 2, 1, "", "")
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, int64(4), page[0].DurationMs)
	assert.Equal(t, int64(3), page[1].DurationMs)

	// offset without a limit is ignored
	all, err := ListMerges(a.DB(), 0, 2, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestTail(t *testing.T) {
	a := openTestDB(t)
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	for i := range 4 {
		entry := sampleMerge(ModeSelective, OutcomeApplied, base.Add(time.Duration(i)*time.Second), nil)
		entry.DurationMs = int64(i)
		require.NoError(t, a.RecordMerge(entry))
	}

	got, err := Tail(a.DB(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].DurationMs)
}

func TestPruneAndPruneBefore(t *testing.T) {
	a := openTestDB(t)
	now := time.Now()
	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, now.Add(-72*time.Hour), sampleDecisions())))
	require.NoError(t, a.RecordMerge(sampleMerge(ModeSelective, OutcomeApplied, now.Add(-36*time.Hour), sampleDecisions())))
	require.NoError(t, a.RecordMerge(sampleMerge(ModeWholesale, OutcomeRejected, now.Add(-time.Hour), sampleDecisions())))

	n, err := PruneBefore(a.DB(), now.Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = Prune(a.DB(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := ListMerges(a.DB(), 0, 0, "", "")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, OutcomeRejected, remaining[0].Outcome)

	var decisions int
	require.NoError(t, a.DB().QueryRow("SELECT COUNT(*) FROM merge_decisions").Scan(&decisions))
	assert.Equal(t, 2, decisions, "decisions of pruned merges are deleted")
}

func TestStats(t *testing.T) {
	a := openTestDB(t)
	base := time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC)
	durations := []int64{10, 20, 30}
	modes := []string{ModeSelective, ModeSelective, ModeWholesale}
	outcomes := []string{OutcomeApplied, OutcomeRejected, OutcomeApplied}
	for i := range durations {
		entry := sampleMerge(modes[i], outcomes[i], base.Add(time.Duration(i)*time.Hour), sampleDecisions())
		entry.DurationMs = durations[i]
		require.NoError(t, a.RecordMerge(entry))
	}

	stats, err := GetStats(a.DB())
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalMerges)
	assert.InDelta(t, 20.0, stats.AvgDurationMs, 0.001)
	assert.Equal(t, int64(6), stats.DecisionsTotal)
	assert.Equal(t, map[string]int64{OutcomeApplied: 2, OutcomeRejected: 1}, stats.CountByOutcome)
	assert.Equal(t, map[string]int64{ModeSelective: 2, ModeWholesale: 1}, stats.CountByMode)
	assert.True(t, stats.OldestEntry.Equal(base))
	assert.True(t, stats.NewestEntry.Equal(base.Add(2*time.Hour)))
}

func TestStatsEmpty(t *testing.T) {
	a := openTestDB(t)
	stats, err := GetStats(a.DB())
	require.NoError(t, err)
	assert.Zero(t, stats.TotalMerges)
	assert.Empty(t, stats.CountByOutcome)
}

func TestNilAuditorNoOp(t *testing.T) {
	var a *SQLiteAuditor
	assert.NoError(t, a.RecordMerge(MergeRecord{}))
	assert.NoError(t, a.Close())
	assert.Nil(t, a.DB())
}

func TestNilDBHelpers(t *testing.T) {
	_, err := ListMerges(nil, 0, 0, "", "")
	assert.Error(t, err)
	_, err = GetMerge(nil, 1)
	assert.Error(t, err)
	_, err = PruneBefore(nil, time.Now())
	assert.Error(t, err)
	_, err = GetStats(nil)
	assert.Error(t, err)
}

func TestTruncateValue(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"this is longer", 10, "this is..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, ""},
		{"", 5, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateValue(tt.in, tt.max), "TruncateValue(%q, %d)", tt.in, tt.max)
	}
}

func TestDefaultDBPath(t *testing.T) {
	t.Setenv("STUDYSPEC_AUDIT_DB", "/tmp/custom.db")
	assert.Equal(t, "/tmp/custom.db", DefaultDBPath())

	t.Setenv("STUDYSPEC_AUDIT_DB", "")
	t.Setenv("XDG_DATA_HOME", "/data")
	assert.Equal(t, "/data/studyspec/audit.db", DefaultDBPath())
	assert.Equal(t, "/data/studyspec/archives", ArchiveDir(DefaultDBPath()))
}
