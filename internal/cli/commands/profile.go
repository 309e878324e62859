package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/apalint/internal/cli/output"
	"github.com/leapstack-labs/apalint/pkg/core"
)

// NewProfileCommand creates the profile command.
func NewProfileCommand() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "profile [file]",
		Short: "Detect the profile of a document",
		Long: `Classify a document without running any rule: whether it is
academic, its APA paper kind, document type, level and authorship mode.

Reads standard input when no file is given.`,
		Example: `  # Detect the profile of a thesis
  apalint profile tesis.md

  # Declare the document type and read from stdin
  cat informe.txt | apalint profile --document-type informe -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := stdinPath
			if len(args) == 1 {
				path = args[0]
			}
			return runProfile(cmd, path, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Input format: text, markdown, html (default: by extension)")
	addContextFlags(cmd)

	return cmd
}

func runProfile(cmd *cobra.Command, path, format string) error {
	cmdCtx, cleanup, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	text, err := readDocument(cmd.InOrStdin(), path, format)
	if err != nil {
		return err
	}
	p, err := cmdCtx.Engine.Profile(cmd.Context(), text, cmdCtx.Cfg.Lint.LintContext())
	if err != nil {
		return err
	}
	return renderProfile(cmdCtx.Renderer, p)
}

func renderProfile(r *output.Renderer, p core.DocumentProfile) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(p)
	}

	r.Header(1, "Document profile")
	r.KeyValue("Academic", fmt.Sprintf("%t", p.IsAcademic))
	r.KeyValue("APA kind", string(p.APAKind))
	r.KeyValue("Type", orUnknown(p.Type()))
	if p.InferredType != nil && *p.InferredType != p.Type() {
		r.KeyValue("Inferred type", *p.InferredType)
	}
	level := ""
	if p.Level != nil {
		level = *p.Level
	}
	r.KeyValue("Level", orUnknown(level))
	r.KeyValue("Mode", string(p.Mode))
	if p.Language != "" {
		r.KeyValue("Language", p.Language)
	}
	r.KeyValue("Confidence", fmt.Sprintf("%.2f", p.Confidence))
	if p.SuggestedProfileID != "" {
		r.KeyValue("Suggested profile", p.SuggestedProfileID)
	}
	if len(p.Tags) > 0 {
		r.KeyValue("Tags", strings.Join(p.Tags, ", "))
	}
	if p.Augmented {
		r.KeyValue("Augmented", "true")
	}
	if len(p.Reasons) > 0 {
		r.Println()
		for _, reason := range p.Reasons {
			r.Println("- " + reason)
		}
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
