// Package audit keeps a local history of merges applied to a study
// specification.
package audit

import "time"

// Mode constants for MergeRecord.
const (
	ModeSelective = "selective"
	ModeWholesale = "wholesale"
)

// Outcome constants for MergeRecord.
const (
	OutcomeApplied  = "applied"
	OutcomeRejected = "rejected"
)

// MaxValueLen caps the JSON stored per decision side.
const MaxValueLen = 512

// Auditor records merge history.
type Auditor interface {
	RecordMerge(entry MergeRecord) error
	Close() error
}

// MergeRecord is one selective or wholesale merge attempt.
type MergeRecord struct {
	ID          int64      `json:"id"`
	Timestamp   time.Time  `json:"timestamp"`
	Mode        string     `json:"mode"`    // selective|wholesale
	Outcome     string     `json:"outcome"` // applied|rejected
	Reason      string     `json:"reason,omitempty"`
	Description string     `json:"description,omitempty"`
	Source      string     `json:"source,omitempty"`
	DurationMs  int64      `json:"duration_ms"`
	Total       int        `json:"total"`
	Different   int        `json:"different"`
	TakenNew    int        `json:"taken_new"`
	Skipped     int        `json:"skipped"`
	Decisions   []Decision `json:"decisions,omitempty"`
}

// Decision is the choice made for one leaf path.
type Decision struct {
	ID       int64  `json:"id"`
	MergeID  int64  `json:"merge_id"`
	Path     string `json:"path"`
	Title    string `json:"title,omitempty"`
	Choice   string `json:"choice"` // old|new
	OldValue string `json:"old_value"`
	NewValue string `json:"new_value"`
	Skipped  bool   `json:"skipped,omitempty"`
}

// Stats holds aggregate statistics from the audit database.
type Stats struct {
	TotalMerges    int64            `json:"total_merges"`
	CountByOutcome map[string]int64 `json:"count_by_outcome"`
	CountByMode    map[string]int64 `json:"count_by_mode"`
	AvgDurationMs  float64          `json:"avg_duration_ms"`
	DecisionsTotal int64            `json:"decisions_total"`
	OldestEntry    time.Time        `json:"oldest_entry"`
	NewestEntry    time.Time        `json:"newest_entry"`
}

// TruncateValue truncates s to max bytes, ending with "..." when cut.
func TruncateValue(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
