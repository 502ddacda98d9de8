package cli

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fuabioo/studyspec/internal/audit"
	"github.com/Fuabioo/studyspec/internal/config"
)

// resolveDBPath returns the audit database path from the --db flag, the
// config file, or the default.
func resolveDBPath(cmd *cobra.Command, g *globals) (string, error) {
	dbPath, err := cmd.Flags().GetString("db")
	if err == nil && dbPath != "" {
		return dbPath, nil
	}
	cfg, err := g.load()
	if err != nil {
		return "", fmt.Errorf("config: %w", err)
	}
	return cfg.AuditDBPath(), nil
}

// openAuditDBReadOnly opens an existing audit DB for read-only queries.
// Returns a clear error if the DB doesn't exist.
func openAuditDBReadOnly(cmd *cobra.Command, g *globals) (*sql.DB, string, error) {
	dbPath, err := resolveDBPath(cmd, g)
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return nil, "", fmt.Errorf("audit database not found at %s (no merges recorded yet?)", dbPath)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audit db %q: %w", dbPath, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("set busy_timeout on audit db %q: %w", dbPath, err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, "", fmt.Errorf("connect audit db %q: %w", dbPath, err)
	}
	return db, dbPath, nil
}

// openAuditDBWrite opens (or creates) the audit DB for write operations.
// It returns the underlying *sql.DB, a cleanup function, and any error.
func openAuditDBWrite(cmd *cobra.Command, g *globals) (*sql.DB, func(), error) {
	dbPath, err := resolveDBPath(cmd, g)
	if err != nil {
		return nil, nil, err
	}
	a, err := audit.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return a.DB(), func() { _ = a.Close() }, nil
}

func newAuditCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the merge history",
	}
	cmd.PersistentFlags().String("db", "", "path to audit database (default: from config)")
	cmd.AddCommand(
		newAuditListCmd(g),
		newAuditShowCmd(g),
		newAuditTailCmd(g),
		newAuditPruneCmd(g),
		newAuditStatsCmd(g),
		newAuditDBPathCmd(g),
		newAuditArchivesCmd(g),
	)
	return cmd
}

func newAuditListCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded merges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuditList(cmd, g)
		},
	}
	cmd.Flags().Int("limit", 20, "maximum number of entries")
	cmd.Flags().Int("offset", 0, "skip N entries")
	cmd.Flags().String("mode", "", "filter by mode (selective|wholesale)")
	cmd.Flags().String("outcome", "", "filter by outcome (applied|rejected)")
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func runAuditList(cmd *cobra.Command, g *globals) error {
	db, dbPath, err := openAuditDBReadOnly(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("invalid --limit: %w", err)
	}
	offset, err := cmd.Flags().GetInt("offset")
	if err != nil {
		return fmt.Errorf("invalid --offset: %w", err)
	}
	mode, err := cmd.Flags().GetString("mode")
	if err != nil {
		return fmt.Errorf("invalid --mode: %w", err)
	}
	outcome, err := cmd.Flags().GetString("outcome")
	if err != nil {
		return fmt.Errorf("invalid --outcome: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("invalid --json: %w", err)
	}

	merges, err := audit.ListMerges(db, limit, offset, mode, outcome)
	if err != nil {
		return fmt.Errorf("list merges: %w", err)
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), merges)
	}
	printMergeTable(cmd.OutOrStdout(), cmd.ErrOrStderr(), merges, dbPath)
	return nil
}

func newAuditShowCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a merge and its per-field decisions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditShow(cmd, g, args)
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func runAuditShow(cmd *cobra.Command, g *globals, args []string) error {
	db, _, err := openAuditDBReadOnly(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid merge ID %q: %w", args[0], err)
	}

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("invalid --json: %w", err)
	}

	m, err := audit.GetMerge(db, id)
	if err != nil {
		return fmt.Errorf("get merge %d: %w", id, err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, m)
	}

	fmt.Fprintf(out, "Merge #%d\n", m.ID)
	fmt.Fprintf(out, "  Timestamp:  %s\n", m.Timestamp.Format(time.RFC3339))
	fmt.Fprintf(out, "  Mode:       %s\n", m.Mode)
	fmt.Fprintf(out, "  Outcome:    %s\n", m.Outcome)
	if m.Reason != "" {
		fmt.Fprintf(out, "  Reason:     %s\n", m.Reason)
	}
	if m.Source != "" {
		fmt.Fprintf(out, "  Source:     %s\n", m.Source)
	}
	fmt.Fprintf(out, "  Duration:   %dms\n", m.DurationMs)
	fmt.Fprintf(out, "  Fields:     %d total, %d different, %d new, %d skipped\n",
		m.Total, m.Different, m.TakenNew, m.Skipped)
	if m.Description != "" {
		fmt.Fprintf(out, "  Description:\n    %s\n", m.Description)
	}

	if len(m.Decisions) > 0 {
		fmt.Fprintf(out, "\n  Decisions:\n")
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "  PATH\tTITLE\tCHOICE\tOLD\tNEW")
		for _, d := range m.Decisions {
			choice := d.Choice
			if d.Skipped {
				choice += " (skipped)"
			}
			_, _ = fmt.Fprintf(w, "  %s\t%s\t%s\t%s\t%s\n",
				d.Path, clip(d.Title, maxCell), choice, clip(d.OldValue, maxCell), clip(d.NewValue, maxCell))
		}
		if err := w.Flush(); err != nil {
			return fmt.Errorf("flush tabwriter: %w", err)
		}
	}

	return nil
}

func newAuditTailCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the last N merges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuditTail(cmd, g)
		},
	}
	cmd.Flags().Int("n", 10, "number of entries")
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func runAuditTail(cmd *cobra.Command, g *globals) error {
	db, dbPath, err := openAuditDBReadOnly(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	n, err := cmd.Flags().GetInt("n")
	if err != nil {
		return fmt.Errorf("invalid --n: %w", err)
	}
	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("invalid --json: %w", err)
	}

	merges, err := audit.Tail(db, n)
	if err != nil {
		return fmt.Errorf("tail: %w", err)
	}

	if asJSON {
		return printJSON(cmd.OutOrStdout(), merges)
	}
	printMergeTable(cmd.OutOrStdout(), cmd.ErrOrStderr(), merges, dbPath)
	return nil
}

func newAuditPruneCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete old merge records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuditPrune(cmd, g)
		},
	}
	cmd.Flags().String("older-than", "", "delete entries older than duration (e.g., 7d, 24h, 30d)")
	if err := cmd.MarkFlagRequired("older-than"); err != nil {
		panic(fmt.Sprintf("mark --older-than required: %v", err))
	}
	return cmd
}

func runAuditPrune(cmd *cobra.Command, g *globals) error {
	olderThanStr, err := cmd.Flags().GetString("older-than")
	if err != nil {
		return fmt.Errorf("invalid --older-than: %w", err)
	}
	dur, err := config.ParseDuration(olderThanStr)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", olderThanStr, err)
	}

	db, cleanup, err := openAuditDBWrite(cmd, g)
	if err != nil {
		return err
	}
	defer cleanup()

	count, err := audit.Prune(db, dur)
	if err != nil {
		return fmt.Errorf("prune: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d merge(s).\n", count)
	return nil
}

func newAuditStatsCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show merge history statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runAuditStats(cmd, g)
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func runAuditStats(cmd *cobra.Command, g *globals) error {
	db, _, err := openAuditDBReadOnly(cmd, g)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("invalid --json: %w", err)
	}

	stats, err := audit.GetStats(db)
	if err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	out := cmd.OutOrStdout()
	if asJSON {
		return printJSON(out, stats)
	}

	fmt.Fprintf(out, "Total merges:    %d\n", stats.TotalMerges)
	fmt.Fprintf(out, "Total decisions: %d\n", stats.DecisionsTotal)
	fmt.Fprintf(out, "Avg duration:    %.1fms\n", stats.AvgDurationMs)

	if stats.TotalMerges > 0 {
		fmt.Fprintf(out, "Oldest entry:    %s\n", stats.OldestEntry.Format(time.RFC3339))
		fmt.Fprintf(out, "Newest entry:    %s\n", stats.NewestEntry.Format(time.RFC3339))
	}

	if len(stats.CountByMode) > 0 {
		fmt.Fprintf(out, "\nBy mode:\n")
		for mode, count := range stats.CountByMode {
			fmt.Fprintf(out, "  %-10s %d\n", mode, count)
		}
	}
	if len(stats.CountByOutcome) > 0 {
		fmt.Fprintf(out, "\nBy outcome:\n")
		for outcome, count := range stats.CountByOutcome {
			fmt.Fprintf(out, "  %-10s %d\n", outcome, count)
		}
	}

	return nil
}

func newAuditDBPathCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "db-path",
		Short: "Print the audit database path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, err := resolveDBPath(cmd, g)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dbPath)
			return nil
		},
	}
}

func newAuditArchivesCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archives [NAME]",
		Short: "List rotated archives, or print the merges inside one",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAuditArchives(cmd, g, args)
		},
	}
	cmd.Flags().Bool("json", false, "output as JSON")
	return cmd
}

func runAuditArchives(cmd *cobra.Command, g *globals, args []string) error {
	dbPath, err := resolveDBPath(cmd, g)
	if err != nil {
		return err
	}
	archiveDir := audit.ArchiveDir(dbPath)

	asJSON, err := cmd.Flags().GetBool("json")
	if err != nil {
		return fmt.Errorf("invalid --json: %w", err)
	}

	archives, err := audit.ListArchives(archiveDir)
	if err != nil {
		return fmt.Errorf("list archives: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(args) == 1 {
		for _, a := range archives {
			if a.Name != args[0] {
				continue
			}
			merges, err := audit.ReadArchive(a.Path)
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(out, merges)
			}
			printMergeTable(out, cmd.ErrOrStderr(), merges, "")
			return nil
		}
		return fmt.Errorf("archive %q not found in %s", args[0], archiveDir)
	}

	if len(archives) == 0 {
		fmt.Fprintln(out, "No archives found.")
		return nil
	}

	if asJSON {
		return printJSON(out, archives)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tSIZE\tDATE")
	for _, a := range archives {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n",
			a.Name,
			formatSize(a.Size),
			a.ModTime.Format(time.RFC3339),
		)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush tabwriter: %w", err)
	}
	return nil
}

// formatSize returns a human-readable file size.
func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)
	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1fMB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1fKB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%dB", bytes)
	}
}

// printMergeTable outputs merges in a tabwriter table. If any rejected
// merge has a reason, a hint is printed to errw showing how to query full
// untruncated reasons via sqlite3.
func printMergeTable(w, errw io.Writer, merges []audit.MergeRecord, dbPath string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTIMESTAMP\tMODE\tOUTCOME\tFIELDS\tNEW\tSKIPPED\tREASON\tDURATION")

	hasReasonedReject := false
	for _, m := range merges {
		if m.Outcome == audit.OutcomeRejected && m.Reason != "" {
			hasReasonedReject = true
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d/%d\t%d\t%d\t%s\t%dms\n",
			m.ID,
			m.Timestamp.Format(time.RFC3339),
			m.Mode,
			m.Outcome,
			m.Different,
			m.Total,
			m.TakenNew,
			m.Skipped,
			clip(m.Reason, maxCell),
			m.DurationMs,
		)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(errw, "studyspec: flush table: %v\n", err)
	}

	if hasReasonedReject && dbPath != "" {
		fmt.Fprintf(errw,
			"\nTip: to see full rejection reasons, run:\n  sqlite3 %s \"SELECT id, reason FROM merges WHERE outcome = 'rejected' ORDER BY id DESC LIMIT %d\"\n",
			dbPath, len(merges),
		)
	}
}

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
