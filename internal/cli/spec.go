package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Fuabioo/studyspec/internal/extract"
	"github.com/Fuabioo/studyspec/internal/jsontree"
	"github.com/Fuabioo/studyspec/internal/studyspec"
)

// maxCell caps table cells; full values are available with --json.
const maxCell = 40

func newTemplateCmd(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "template",
		Short: "Print the canonical specification template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			tpl, err := e.cfg.CanonicalTemplate(time.Now())
			if err != nil {
				return err
			}
			return writeResult(cmd, output, tpl.Pretty())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newExtractCmd() *cobra.Command {
	var split bool
	cmd := &cobra.Command{
		Use:   "extract [FILE]",
		Short: "Extract the first JSON value from free text",
		Long: "Extract the first JSON object or array from model output that may hold\n" +
			"prose and code fences. Reads stdin when FILE is omitted.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readText(cmd, path)
			if err != nil {
				return err
			}

			description := ""
			if split {
				text, description = extract.SplitResponse(text)
			}
			n := extract.JSON(text)
			if n == nil {
				return extract.ErrNoJSON
			}
			if err := writeResult(cmd, "", n.Pretty()); err != nil {
				return err
			}
			if description != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", description)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&split, "split", false, "split on the first '---' line first; the description goes to stderr")
	return cmd
}

func newFlattenCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "flatten FILE",
		Short: "List the leaf paths of a JSON document with titles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			n, err := readSpec(cmd, args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, l := range jsontree.Flatten(n) {
				key := l.Path.String()
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", key, e.titles.Label(key), l.Value.String())
			}
			return w.Flush()
		},
	}
}

func newCheckCmd(g *globals) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check FILE",
		Short: "Check a specification for unknown enum values, bad dates and kind drift",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			n, err := readSpec(cmd, args[0])
			if err != nil {
				return err
			}

			issues := studyspec.Check(n, e.titles)
			if asJSON {
				if issues == nil {
					issues = []studyspec.Issue{}
				}
				if err := printJSON(cmd.OutOrStdout(), issues); err != nil {
					return err
				}
			} else if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No issues found.")
			} else {
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				_, _ = fmt.Fprintln(w, "PATH\tTITLE\tISSUE")
				for _, is := range issues {
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", is.Path, is.Title, is.Message)
				}
				if err := w.Flush(); err != nil {
					return fmt.Errorf("flush tabwriter: %w", err)
				}
			}

			if len(issues) > 0 {
				return &exitError{code: 1}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newTitleCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "title PATH...",
		Short: "Resolve display titles for dot-notation paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, p := range args {
				_, _ = fmt.Fprintf(w, "%s\t%s\n", p, e.titles.Label(p))
			}
			return w.Flush()
		},
	}
}

// clip shortens s for a table cell.
func clip(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
