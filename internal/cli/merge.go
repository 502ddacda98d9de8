package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Fuabioo/studyspec/internal/diff"
	"github.com/Fuabioo/studyspec/internal/jsontree"
	"github.com/Fuabioo/studyspec/internal/pipeline"
	"github.com/Fuabioo/studyspec/internal/titles"
)

// rowView is one diff row as printed by --json.
type rowView struct {
	Path      string         `json:"path"`
	Title     string         `json:"title"`
	Old       *jsontree.Node `json:"old,omitempty"`
	New       *jsontree.Node `json:"new,omitempty"`
	Different bool           `json:"different"`
	Choice    diff.Choice    `json:"choice"`
}

type proposalView struct {
	Description string    `json:"description,omitempty"`
	Total       int       `json:"total"`
	Different   int       `json:"different"`
	TakeNew     int       `json:"take_new"`
	Rows        []rowView `json:"rows"`
}

func newDiffCmd(g *globals) *cobra.Command {
	var all, asJSON bool
	cmd := &cobra.Command{
		Use:   "diff CURRENT RESPONSE",
		Short: "Diff a spec against the spec in a text-to-spec response",
		Long: "Diff the CURRENT spec (JSON file) against the spec extracted from RESPONSE,\n" +
			"raw model output holding a JSON block and an optional '---' description.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			current, err := readSpec(cmd, args[0])
			if err != nil {
				return err
			}
			response, err := readText(cmd, args[1])
			if err != nil {
				return err
			}
			p, err := pipeline.Review(current, response)
			if err != nil {
				return err
			}
			return printProposal(cmd.OutOrStdout(), p, e.titles, all, asJSON)
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include unchanged fields")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newMergeCmd(g *globals) *cobra.Command {
	var (
		choicesFile    string
		allOld, allNew bool
		output         string
	)
	cmd := &cobra.Command{
		Use:   "merge CURRENT RESPONSE",
		Short: "Merge chosen fields of a text-to-spec response into a spec",
		Long: "Merge the spec extracted from RESPONSE into CURRENT field by field.\n" +
			"Changed fields take the new value unless a choices file (YAML or JSON,\n" +
			"path: old|new) or --all-old/--all-new says otherwise.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			current, err := readSpec(cmd, args[0])
			if err != nil {
				return err
			}
			response, err := readText(cmd, args[1])
			if err != nil {
				return err
			}
			p, err := pipeline.Review(current, response)
			if err != nil {
				return err
			}

			var choices diff.Choices
			switch {
			case allOld:
				choices = diff.All(p.Rows, diff.Old)
			case allNew:
				choices = diff.All(p.Rows, diff.New)
			case choicesFile != "":
				choices, err = loadChoices(choicesFile, p.Rows, e)
				if err != nil {
					return err
				}
			default:
				choices = diff.Defaults(p.Rows)
			}

			auditor, closeAuditor := e.openAuditor()
			defer closeAuditor()

			m := pipeline.Merger{
				Mode:    e.cfg.SetMode(),
				Auditor: auditor,
				Titles:  e.titles,
				Logger:  e.logger,
				Source:  args[1],
			}
			merged, skipped, err := m.ApplySelective(current, p, choices)
			if err != nil {
				return err
			}
			for _, s := range skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "studyspec: skipped %s (%s): %v\n",
					s.Row.Key(), e.titles.Label(s.Row.Key()), s.Err)
			}
			return writeResult(cmd, output, merged.Pretty())
		},
	}
	cmd.Flags().StringVar(&choicesFile, "choices", "", "YAML or JSON file mapping paths to old|new")
	cmd.Flags().BoolVar(&allOld, "all-old", false, "keep every current value")
	cmd.Flags().BoolVar(&allNew, "all-new", false, "take every proposed value")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	cmd.MarkFlagsMutuallyExclusive("choices", "all-old", "all-new")
	return cmd
}

func newApplyCmd(g *globals) *cobra.Command {
	var currentFile, output string
	cmd := &cobra.Command{
		Use:   "apply RESPONSE",
		Short: "Adopt a text-to-spec response wholesale onto the template",
		Long: "Adopt the spec in RESPONSE onto the canonical template: unknown keys are\n" +
			"dropped, missing ones take template defaults. The spec part must be a\n" +
			"single JSON object once code fences are stripped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			response, err := readText(cmd, args[0])
			if err != nil {
				return err
			}
			var current *jsontree.Node
			if currentFile != "" {
				if current, err = readSpec(cmd, currentFile); err != nil {
					return err
				}
			}
			template, err := e.cfg.CanonicalTemplate(time.Now())
			if err != nil {
				return err
			}

			auditor, closeAuditor := e.openAuditor()
			defer closeAuditor()

			m := pipeline.Merger{Auditor: auditor, Titles: e.titles, Logger: e.logger, Source: args[0]}
			adopted, err := m.ApplyWholesale(current, response, template)
			if err != nil {
				return err
			}
			return writeResult(cmd, output, adopted.Pretty())
		},
	}
	cmd.Flags().StringVar(&currentFile, "current", "", "current spec, used to record what changed")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

func newProposeCmd(g *globals) *cobra.Command {
	var (
		currentFile, text, save string
		all, asJSON             bool
	)
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Ask the LLM service to turn a description into spec changes",
		Long: "Send --text (or stdin) and the current spec to the configured LLM command\n" +
			"and show the proposed changes. Use --save to keep the raw response for\n" +
			"'studyspec merge' or 'studyspec apply'.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			current, err := readSpec(cmd, currentFile)
			if err != nil {
				return err
			}
			if text == "" {
				if currentFile == "" || currentFile == "-" {
					return errors.New("--text is required when the current spec comes from stdin")
				}
				if text, err = readText(cmd, ""); err != nil {
					return err
				}
			}
			if strings.TrimSpace(text) == "" {
				return errors.New("empty study description")
			}

			p, err := pipeline.Propose(cmd.Context(), e.cfg.Client(), current, text)
			if err != nil {
				return err
			}
			if save != "" {
				if err := os.WriteFile(save, []byte(p.Raw), 0o644); err != nil {
					return fmt.Errorf("save response: %w", err)
				}
				e.logger.Debug("saved response", "path", save)
			}
			return printProposal(cmd.OutOrStdout(), p, e.titles, all, asJSON)
		},
	}
	cmd.Flags().StringVar(&currentFile, "current", "", "current spec JSON file (required)")
	cmd.Flags().StringVar(&text, "text", "", "study description (default: read stdin)")
	cmd.Flags().StringVar(&save, "save", "", "write the raw response to this file")
	cmd.Flags().BoolVar(&all, "all", false, "include unchanged fields")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	if err := cmd.MarkFlagRequired("current"); err != nil {
		panic(fmt.Sprintf("mark --current required: %v", err))
	}
	return cmd
}

func newScriptCmd(g *globals) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "script SPEC",
		Short: "Ask the LLM service for an analysis script for a spec",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.setup(cmd)
			if err != nil {
				return err
			}
			spec, err := readSpec(cmd, args[0])
			if err != nil {
				return err
			}
			script, err := pipeline.GenerateScript(cmd.Context(), e.cfg.Client(), spec)
			if err != nil {
				return err
			}
			return writeResult(cmd, output, []byte(script+"\n"))
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// loadChoices reads a path: old|new mapping. Paths that match no row are
// logged and ignored.
func loadChoices(path string, rows []diff.Row, e *env) (diff.Choices, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read choices: %w", err)
	}
	var raw map[string]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse choices %s: %w", path, err)
	}

	known := make(map[string]bool, len(rows))
	for _, r := range rows {
		known[r.Key()] = true
	}

	choices := make(diff.Choices, len(raw))
	for p, v := range raw {
		ch, err := diff.ParseChoice(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("choices %s: %s: %w", path, p, err)
		}
		if !known[p] {
			e.logger.Warn("choice for unknown path ignored", "path", p)
			continue
		}
		choices[p] = ch
	}
	return choices, nil
}

func printProposal(w io.Writer, p *pipeline.Proposal, r *titles.Resolver, all, asJSON bool) error {
	rows := p.Rows
	if !all {
		rows = diff.OnlyDifferent(rows)
	}
	choices := diff.Defaults(p.Rows)
	sum := diff.Summarize(p.Rows, choices)

	if asJSON {
		v := proposalView{
			Description: p.Description,
			Total:       sum.Total,
			Different:   sum.Different,
			TakeNew:     sum.TakeNew,
			Rows:        make([]rowView, 0, len(rows)),
		}
		for _, row := range rows {
			v.Rows = append(v.Rows, rowView{
				Path:      row.Key(),
				Title:     r.Label(row.Key()),
				Old:       row.Old,
				New:       row.New,
				Different: row.Different,
				Choice:    choices.For(row),
			})
		}
		return printJSON(w, v)
	}

	if len(rows) == 0 {
		fmt.Fprintln(w, "No differences.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(tw, "PATH\tTITLE\tOLD\tNEW\tCHOICE")
		for _, row := range rows {
			_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				row.Key(),
				clip(r.Label(row.Key()), maxCell),
				clip(cellText(row.Old), maxCell),
				clip(cellText(row.New), maxCell),
				choices.For(row),
			)
		}
		if err := tw.Flush(); err != nil {
			return fmt.Errorf("flush tabwriter: %w", err)
		}
	}

	fmt.Fprintf(w, "\n%d of %d field(s) differ.\n", sum.Different, sum.Total)
	if p.Description != "" {
		fmt.Fprintf(w, "\n%s\n", p.Description)
	}
	return nil
}

// cellText renders a diff cell; "-" marks a path absent from that side.
func cellText(n *jsontree.Node) string {
	if n == nil {
		return "-"
	}
	return n.Display()
}
