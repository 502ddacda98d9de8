// Package cli implements the studyspec command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Fuabioo/studyspec/internal/audit"
	"github.com/Fuabioo/studyspec/internal/config"
	"github.com/Fuabioo/studyspec/internal/jsontree"
	"github.com/Fuabioo/studyspec/internal/titles"
)

var (
	Version = "dev"
	Commit  = "unknown"
)

type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit code %d", e.code)
}

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	debug      bool
}

// env is what a command needs once config is loaded.
type env struct {
	cfg    config.Config
	logger *slog.Logger
	titles *titles.Resolver
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelWarn
	if debug || os.Getenv("STUDYSPEC_DEBUG") == "1" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "studyspec",
		Short:         "Diff, merge and adopt study analysis specifications",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "config file (default: auto-detected)")
	root.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newTemplateCmd(g),
		newExtractCmd(),
		newFlattenCmd(g),
		newDiffCmd(g),
		newMergeCmd(g),
		newApplyCmd(g),
		newProposeCmd(g),
		newScriptCmd(g),
		newCheckCmd(g),
		newTitleCmd(g),
		newValidateCmd(g),
		newVersionCmd(),
		newAuditCmd(g),
	)
	return root
}

// Execute runs the CLI and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cmd := newRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		return exitCode(err, os.Stderr)
	}
	return 0
}

// exitCode reports err on w unless it is an exitError, whose message has
// already been printed.
func exitCode(err error, w io.Writer) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	fmt.Fprintf(w, "studyspec: %v\n", err)
	return 1
}

// load reads the --config file, or searches the standard locations.
func (g *globals) load() (config.Config, error) {
	if g.configPath != "" {
		return config.LoadFrom(g.configPath)
	}
	return config.Load()
}

// setup loads config and builds the logger and title resolver. Config
// errors are printed and turned into exit code 2.
func (g *globals) setup(cmd *cobra.Command) (*env, error) {
	cfg, err := g.load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "studyspec: config error: %v\n", err)
		return nil, &exitError{code: 2}
	}

	r, err := cfg.Resolver()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "studyspec: config error: %v\n", err)
		return nil, &exitError{code: 2}
	}

	logger := newLogger(cmd.ErrOrStderr(), g.debug)
	if p := cfg.Path(); p != "" {
		logger.Debug("loaded config", "path", p)
	}
	return &env{cfg: cfg, logger: logger, titles: r}, nil
}

// openAuditor opens the merge history when auditing is enabled and rotates
// old entries. It never fails: problems are logged and the merge proceeds
// without history.
func (e *env) openAuditor() (audit.Auditor, func()) {
	noop := func() {}
	if !e.cfg.AuditEnabled() {
		return nil, noop
	}

	dbPath := e.cfg.AuditDBPath()
	a, err := audit.Open(dbPath)
	if err != nil {
		e.logger.Warn("failed to open audit db, continuing without audit", "err", err)
		return nil, noop
	}

	retention, err := e.cfg.Retention()
	if err != nil {
		e.logger.Warn("invalid audit retention, skipping rotation", "err", err)
	} else {
		audit.MaybeRotate(a.DB(), audit.RotationConfig{
			Retention:   retention,
			ArchiveDir:  audit.ArchiveDir(dbPath),
			ThrottleDir: filepath.Dir(dbPath),
		}, e.logger)
	}

	return a, func() {
		if err := a.Close(); err != nil {
			e.logger.Warn("close audit db", "err", err)
		}
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "studyspec %s (%s)\n", Version, Commit)
		},
	}
}

func newValidateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate config, title rules and template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, g)
		},
	}
}

func runValidate(cmd *cobra.Command, g *globals) error {
	cfg, err := g.load()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "studyspec: config error: %v\n", err)
		return &exitError{code: 1}
	}

	out := cmd.OutOrStdout()
	if cfg.Path() == "" {
		fmt.Fprintln(out, "No config file found; using defaults.")
	} else {
		fmt.Fprintf(out, "Config: %s\n", cfg.Path())
	}

	command := cfg.LLM.Command
	if command == "" {
		command = "(not configured)"
	}
	fmt.Fprintf(out, "LLM command:      %s\n", command)
	tpl := cfg.TemplatePath()
	if tpl == "" {
		tpl = "(built-in)"
	}
	fmt.Fprintf(out, "Template:         %s\n", tpl)
	fmt.Fprintf(out, "Title rules:      %d custom, %d built-in\n", len(cfg.Titles), len(titles.StudyRules()))
	fmt.Fprintf(out, "Coerce conflicts: %t\n", cfg.Merge.CoerceConflicts)
	if cfg.AuditEnabled() {
		fmt.Fprintf(out, "Audit db:         %s\n", cfg.AuditDBPath())
	} else {
		fmt.Fprintln(out, "Audit db:         (disabled)")
	}

	errs := cfg.Validate()
	if len(errs) == 0 {
		fmt.Fprintln(out, "OK")
		return nil
	}
	for _, err := range errs {
		fmt.Fprintf(out, "  problem: %v\n", err)
	}
	return &exitError{code: 1}
}

// readText reads path, or stdin when path is empty or "-".
func readText(cmd *cobra.Command, path string) (string, error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// readSpec reads and parses a JSON document.
func readSpec(cmd *cobra.Command, path string) (*jsontree.Node, error) {
	text, err := readText(cmd, path)
	if err != nil {
		return nil, err
	}
	n, err := jsontree.ParseString(text)
	if err != nil {
		if path == "" {
			path = "stdin"
		}
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return n, nil
}

// writeResult writes data to out, or stdout when out is empty or "-".
func writeResult(cmd *cobra.Command, out string, data []byte) error {
	if out == "" || out == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}
