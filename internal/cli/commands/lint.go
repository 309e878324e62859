package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/apalint/internal/cli/config"
	"github.com/leapstack-labs/apalint/internal/cli/output"
	"github.com/leapstack-labs/apalint/internal/engine"
	"github.com/leapstack-labs/apalint/internal/extract"
	"github.com/leapstack-labs/apalint/pkg/core"
)

// maxParallelFiles caps documents linted at once.
const maxParallelFiles = 4

// stdinPath names standard input as a document argument.
const stdinPath = "-"

// ErrLintFailed is returned when findings reach the --fail-on threshold.
var ErrLintFailed = errors.New("lint issues found")

// LintOptions holds options for the lint command.
type LintOptions struct {
	Format      string   // Input format: text, markdown, html (default: by extension)
	FailOn      string   // Lowest severity that fails the run, or none
	Review      bool     // Attach the aggregated review
	Agents      []string // Run only these agents
	Sections    []string // Section names present in the document
	ContextFile string   // YAML or JSON lint context
}

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	opts := &LintOptions{}
	cmd := &cobra.Command{
		Use:   "lint [file...]",
		Short: "Validate academic documents against APA 7 and CUN rules",
		Long: `Run the validating agents over one or more documents and report
their findings in a deterministic order.

Reads standard input when no file is given or the file is "-".
Markdown and HTML are reduced to plain text before validation.

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Lint a document
  apalint lint informe.txt

  # Lint with the international APA 7 variant
  apalint lint --variant international ensayo.md

  # Only run two agents and attach the review summary
  apalint lint --agents REFERENCES,INTEXTCITATIONS --review tesis.html

  # Output as JSON, never failing the shell
  apalint lint -o json --fail-on none informe.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Input format: text, markdown, html (default: by extension)")
	cmd.Flags().StringVar(&opts.FailOn, "fail-on", "error", "Lowest severity that fails the run: error, warning, info, none")
	cmd.Flags().BoolVar(&opts.Review, "review", false, "Attach the aggregated review")
	cmd.Flags().StringSliceVar(&opts.Agents, "agents", nil, "Run only these agents")
	cmd.Flags().StringSliceVar(&opts.Sections, "sections", nil, "Section names present in the document")
	cmd.Flags().StringVar(&opts.ContextFile, "context-file", "", "YAML or JSON file with the lint context")
	addContextFlags(cmd)

	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion("text", "markdown", "html"))
	_ = cmd.RegisterFlagCompletionFunc("fail-on", fixedCompletion("error", "warning", "info", "none"))

	return cmd
}

// addContextFlags registers the flags that override lint.* config keys.
func addContextFlags(cmd *cobra.Command) {
	cmd.Flags().String("variant", "", "APA variant: official, international")
	cmd.Flags().String("language", "", "Expected document language")
	cmd.Flags().String("document-type", "", "Declared document type")
	cmd.Flags().String("institution", "", "Institution name")
	cmd.Flags().Duration("timeout", 0, "Deadline for the agent phase")
	_ = cmd.RegisterFlagCompletionFunc("variant", fixedCompletion("official", "international"))
	_ = cmd.RegisterFlagCompletionFunc("document-type", fixedCompletion(core.DocumentTypes...))
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}

// fileResult is the lint result of one input.
type fileResult struct {
	Path   string         `json:"path"`
	Result *engine.Result `json:"result"`
}

func runLint(cmd *cobra.Command, args []string, opts *LintOptions) error {
	threshold, enabled, err := parseFailOn(opts.FailOn)
	if err != nil {
		return err
	}
	if opts.Format != "" {
		if _, ok := extract.ParseFormat(opts.Format); !ok {
			return fmt.Errorf("unknown input format %q (expected text, markdown or html)", opts.Format)
		}
	}

	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	lctx, err := buildLintContext(cmdCtx.Cfg, opts)
	if err != nil {
		return err
	}

	inputs := args
	if len(inputs) == 0 {
		inputs = []string{stdinPath}
	}

	results := make([]fileResult, len(inputs))
	g, gctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxParallelFiles)
	for i, path := range inputs {
		g.Go(func() error {
			text, err := readDocument(cmd.InOrStdin(), path, opts.Format)
			if err != nil {
				return err
			}
			res, err := cmdCtx.Engine.Lint(gctx, text, lctx)
			if err != nil {
				return fmt.Errorf("%s: %w", displayPath(path), err)
			}
			if opts.Review {
				res.AttachReview()
			}
			cmdCtx.Logger.Debug("document linted", "path", displayPath(path),
				"findings", res.Summary.Total, "elapsed", res.Elapsed)
			results[i] = fileResult{Path: displayPath(path), Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := renderLintResults(cmdCtx.Renderer, results); err != nil {
		return err
	}
	if enabled && reachesThreshold(results, threshold) {
		return ErrLintFailed
	}
	return nil
}

// buildLintContext layers the context file and flags over the configured
// context.
func buildLintContext(cfg *config.Config, opts *LintOptions) (core.LintContext, error) {
	lctx := cfg.Lint.LintContext()
	if opts.ContextFile != "" {
		data, err := os.ReadFile(opts.ContextFile)
		if err != nil {
			return lctx, fmt.Errorf("failed to read context file: %w", err)
		}
		// yaml.v3 accepts JSON documents as well
		if err := yaml.Unmarshal(data, &lctx); err != nil {
			return lctx, fmt.Errorf("invalid context file %s: %w", opts.ContextFile, err)
		}
	}
	if len(opts.Agents) > 0 {
		lctx.Agents = opts.Agents
	}
	if len(opts.Sections) > 0 {
		lctx.Sections = opts.Sections
	}
	return lctx, nil
}

// readDocument reads one input and extracts its text. format overrides the
// format inferred from the file extension.
func readDocument(stdin io.Reader, path, format string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == stdinPath {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", displayPath(path), err)
	}

	f := extract.FormatFromPath(path)
	if format != "" {
		f, _ = extract.ParseFormat(format)
	}
	text, err := extract.Text(data, f)
	if err != nil {
		return "", fmt.Errorf("failed to extract %s: %w", displayPath(path), err)
	}
	return text, nil
}

func displayPath(path string) string {
	if path == stdinPath {
		return "<stdin>"
	}
	return path
}

// parseFailOn returns the threshold severity. enabled is false for none.
func parseFailOn(s string) (threshold core.Severity, enabled bool, err error) {
	if strings.EqualFold(strings.TrimSpace(s), "none") {
		return core.SeverityInfo, false, nil
	}
	sev, ok := core.ParseSeverity(s)
	if !ok {
		return sev, false, fmt.Errorf("unknown --fail-on severity %q (expected error, warning, info or none)", s)
	}
	return sev, true, nil
}

// reachesThreshold reports whether any finding is at least as severe as
// threshold. Lower severities are more severe.
func reachesThreshold(results []fileResult, threshold core.Severity) bool {
	for _, fr := range results {
		for _, f := range fr.Result.Findings {
			if f.Severity <= threshold {
				return true
			}
		}
	}
	return false
}

func renderLintResults(r *output.Renderer, results []fileResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		if len(results) == 1 {
			return r.JSON(results[0].Result)
		}
		return r.JSON(results)
	}

	var total core.Summary
	for _, fr := range results {
		renderFileResult(r, fr)
		s := fr.Result.Summary
		total.Errors += s.Errors
		total.Warnings += s.Warnings
		total.Info += s.Info
		total.Total += s.Total
	}
	if len(results) > 1 {
		r.Printf("Total: %s in %d files\n", summaryLine(total), len(results))
	}
	return nil
}

func renderFileResult(r *output.Renderer, fr fileResult) {
	res := fr.Result
	r.Header(2, fr.Path)

	p := res.Profile
	docType := p.Type()
	if docType == "" {
		docType = "desconocido"
	}
	r.KeyValue("Perfil", fmt.Sprintf("%s, %s (confianza %.2f)", docType, p.APAKind, p.Confidence))
	if len(res.TimedOut) > 0 {
		r.Warning("agents timed out: " + strings.Join(res.TimedOut, ", "))
	}

	if len(res.Findings) == 0 {
		r.Success("No lint issues found")
	} else {
		rows := make([][]string, 0, len(res.Findings))
		for _, f := range res.Findings {
			line := "-"
			if f.Position != nil && f.Position.Line > 0 {
				line = strconv.Itoa(f.Position.Line)
			}
			rows = append(rows, []string{
				severityLabel(r, f.Severity),
				f.RuleID,
				f.Agent,
				line,
				f.Message,
			})
		}
		r.Table([]string{"Severity", "Rule", "Agent", "Line", "Message"}, rows)
	}

	if res.Review != nil {
		rv := res.Review
		r.Header(3, "Review")
		r.KeyValue("Status", string(rv.Status))
		r.KeyValue("Score", fmt.Sprintf("%d (%s)", rv.Policy.Score, rv.Policy.Type))
		if len(rv.FixOrder) > 0 {
			r.KeyValue("Fix order", strings.Join(rv.FixOrder, " > "))
		}
		for _, ti := range rv.TopIssues {
			r.Printf("  %s %s: %s\n", severityLabel(r, ti.Severity), ti.Category, ti.SuggestedAction)
		}
		if rv.Notes != "" {
			r.Println(r.Styles().Muted.Render(rv.Notes))
		}
	}

	r.Printf("Summary: %s in %dms\n\n", summaryLine(res.Summary), res.Elapsed.Milliseconds())
}

func summaryLine(s core.Summary) string {
	parts := []string{fmt.Sprintf("%d issues", s.Total)}
	if s.Errors > 0 {
		parts = append(parts, fmt.Sprintf("%d errors", s.Errors))
	}
	if s.Warnings > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.Warnings))
	}
	if s.Info > 0 {
		parts = append(parts, fmt.Sprintf("%d info", s.Info))
	}
	return strings.Join(parts, ", ")
}

func severityLabel(r *output.Renderer, sev core.Severity) string {
	if r.EffectiveMode() != output.ModeText {
		return sev.String()
	}
	switch sev {
	case core.SeverityError:
		return r.Styles().Error.Render("error")
	case core.SeverityWarning:
		return r.Styles().Warning.Render("warning")
	case core.SeverityInfo:
		return r.Styles().Info.Render("info")
	default:
		return r.Styles().Muted.Render(sev.String())
	}
}
