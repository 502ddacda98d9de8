// Package pipeline wires extraction, diffing and merging into the flows a
// caller drives: reviewing a text-to-spec response, applying it selectively
// or wholesale, and generating a script from a spec.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Fuabioo/studyspec/internal/audit"
	"github.com/Fuabioo/studyspec/internal/diff"
	"github.com/Fuabioo/studyspec/internal/extract"
	"github.com/Fuabioo/studyspec/internal/jsontree"
	"github.com/Fuabioo/studyspec/internal/llm"
	"github.com/Fuabioo/studyspec/internal/shape"
	"github.com/Fuabioo/studyspec/internal/titles"
)

// ErrEmptyScript is returned when the service answers a script request with
// nothing but whitespace or fences.
var ErrEmptyScript = errors.New("pipeline: empty script response")

// Proposal is a text-to-spec response reviewed against the current spec.
type Proposal struct {
	Raw         string
	Description string
	Spec        *jsontree.Node
	Rows        []diff.Row
}

// Review splits response on its first "---" line, extracts the spec JSON
// from the left part and diffs it against current. A response without
// usable JSON yields extract.ErrNoJSON.
func Review(current *jsontree.Node, response string) (*Proposal, error) {
	specText, description := extract.SplitResponse(response)
	spec := extract.JSON(specText)
	if spec == nil {
		return nil, fmt.Errorf("pipeline: review: %w", extract.ErrNoJSON)
	}
	return &Proposal{
		Raw:         response,
		Description: description,
		Spec:        spec,
		Rows:        diff.Compute(current, spec),
	}, nil
}

// Propose asks the service to turn text into an updated spec and reviews
// the answer against current.
func Propose(ctx context.Context, client llm.Client, current *jsontree.Node, text string) (*Proposal, error) {
	resp, err := client.Complete(ctx, llm.Request{
		Task:    llm.TaskText2Spec,
		Text:    text,
		Current: current,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: propose: %w", err)
	}
	return Review(current, resp)
}

// GenerateScript asks the service for an analysis script for spec and
// returns it with code fences stripped.
func GenerateScript(ctx context.Context, client llm.Client, spec *jsontree.Node) (string, error) {
	if err := jsontree.RequireObject(spec, "generate script"); err != nil {
		return "", err
	}
	resp, err := client.Complete(ctx, llm.Request{Task: llm.TaskSpec2Script, Spec: spec})
	if err != nil {
		return "", fmt.Errorf("pipeline: script: %w", err)
	}
	script := extract.StripFences(resp)
	if script == "" {
		return "", ErrEmptyScript
	}
	return script, nil
}

// Merger applies proposals and records each attempt. The zero value is
// usable: Strict setter, no audit, no titles, discarded logs.
type Merger struct {
	Mode    jsontree.SetMode
	Auditor audit.Auditor
	Titles  *titles.Resolver
	Logger  *slog.Logger
	// Source is stored with audit records, e.g. the response file name.
	Source string
}

// ApplySelective merges the rows of p chosen as new into a copy of current.
// Rows the setter cannot write are skipped, logged and returned; they never
// abort the merge. A non-object current is a ValidationError.
func (m Merger) ApplySelective(current *jsontree.Node, p *Proposal, choices diff.Choices) (*jsontree.Node, []diff.Skipped, error) {
	start := time.Now()
	logger := m.logger()

	merged, skipped, err := diff.Apply(current, p.Rows, choices, diff.Options{Mode: m.Mode})
	if err != nil {
		m.record(audit.MergeRecord{
			Mode:        audit.ModeSelective,
			Outcome:     audit.OutcomeRejected,
			Reason:      err.Error(),
			Description: p.Description,
		}, start, p.Rows, choices, nil)
		return nil, nil, fmt.Errorf("pipeline: apply selective: %w", err)
	}

	for _, s := range skipped {
		logger.Warn("merge path skipped", "path", s.Row.Key(), "err", s.Err)
	}
	logger.Debug("selective merge applied", "rows", len(p.Rows), "skipped", len(skipped))

	m.record(audit.MergeRecord{
		Mode:        audit.ModeSelective,
		Outcome:     audit.OutcomeApplied,
		Description: p.Description,
	}, start, p.Rows, choices, skipped)
	return merged, skipped, nil
}

// ApplyWholesale adopts the spec part of response onto template: unknown
// keys are dropped and missing ones take template defaults. The spec part
// must be a single JSON object once fences are stripped; anything else is
// a ValidationError and nothing is produced. current is only used to
// describe the change in the audit record and may be nil.
func (m Merger) ApplyWholesale(current *jsontree.Node, response string, template *jsontree.Node) (*jsontree.Node, error) {
	start := time.Now()
	specText, description := extract.SplitResponse(response)

	adopted, err := shape.AdoptText(specText, template)
	if err != nil {
		m.record(audit.MergeRecord{
			Mode:        audit.ModeWholesale,
			Outcome:     audit.OutcomeRejected,
			Reason:      err.Error(),
			Description: description,
		}, start, nil, nil, nil)
		return nil, fmt.Errorf("pipeline: apply wholesale: %w", err)
	}

	rows := diff.Compute(current, adopted)
	m.logger().Debug("wholesale merge applied", "rows", len(rows))
	m.record(audit.MergeRecord{
		Mode:        audit.ModeWholesale,
		Outcome:     audit.OutcomeApplied,
		Description: description,
	}, start, rows, diff.Defaults(rows), nil)
	return adopted, nil
}

func (m Merger) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return m.Logger
}

// record fills counts and per-row decisions into entry and hands it to the
// auditor. Errors are logged but never affect the merge result.
func (m Merger) record(entry audit.MergeRecord, start time.Time, rows []diff.Row, choices diff.Choices, skipped []diff.Skipped) {
	if m.Auditor == nil {
		return
	}

	skippedIDs := make(map[string]bool, len(skipped))
	for _, s := range skipped {
		skippedIDs[s.Row.Path.ID()] = true
	}

	sum := diff.Summarize(rows, choices)
	entry.Timestamp = time.Now()
	entry.Source = m.Source
	entry.DurationMs = time.Since(start).Milliseconds()
	entry.Total = sum.Total
	entry.Different = sum.Different
	entry.TakenNew = sum.TakeNew
	entry.Skipped = len(skipped)

	for _, r := range rows {
		ch := choices.For(r)
		if !r.Different && ch != diff.New {
			continue
		}
		entry.Decisions = append(entry.Decisions, audit.Decision{
			Path:     r.Key(),
			Title:    m.Titles.Label(r.Key()),
			Choice:   string(ch),
			OldValue: cell(r.Old),
			NewValue: cell(r.New),
			Skipped:  skippedIDs[r.Path.ID()],
		})
	}

	if err := m.Auditor.RecordMerge(entry); err != nil {
		m.logger().Warn("audit record failed", "err", err)
	}
}

// cell renders a value for the audit log; absent values are empty.
func cell(n *jsontree.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.String())
}
