package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/apalint/internal/cli/output"
	"github.com/leapstack-labs/apalint/pkg/lint"
)

// RulesOptions holds options for the rules command.
type RulesOptions struct {
	Agent     string // Filter by owning agent
	Augmented bool   // Only augmented rules
}

// NewRulesCommand creates the rules command.
func NewRulesCommand() *cobra.Command {
	opts := &RulesOptions{}
	cmd := &cobra.Command{
		Use:   "rules [rule-id]",
		Short: "List the loaded validation rules",
		Long: `List the rules of the embedded APA 7 / CUN catalogue together with
the YAML rules found in the rules directory.

Give a rule id to see its full description and references.`,
		Example: `  # List all rules
  apalint rules

  # List the rules owned by one agent
  apalint rules --agent REFERENCES

  # Show one rule
  apalint rules CUN-REF-002

  # Output as JSON
  apalint rules -o json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContextWithoutEngine(cmd)
			rs, err := LoadRules(cmdCtx.Cfg.RulesDir)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				return showRule(cmdCtx.Renderer, rs, args[0])
			}
			return listRules(cmdCtx.Renderer, rs, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Agent, "agent", "a", "", "Filter by owning agent")
	cmd.Flags().BoolVar(&opts.Augmented, "augmented", false, "Only list augmented rules")

	return cmd
}

func filterRules(rs *lint.RuleSet, opts *RulesOptions) []lint.RuleInfo {
	agent := strings.ToUpper(strings.TrimSpace(opts.Agent))
	out := []lint.RuleInfo{}
	for _, rule := range rs.All() {
		if agent != "" && rule.Domain != agent {
			continue
		}
		if opts.Augmented && !rule.Augmented() {
			continue
		}
		out = append(out, rule.Info())
	}
	return out
}

func listRules(r *output.Renderer, rs *lint.RuleSet, opts *RulesOptions) error {
	infos := filterRules(rs, opts)
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(infos)
	}

	if len(infos) == 0 {
		r.Warning("no rules match")
		return nil
	}
	rows := make([][]string, 0, len(infos))
	for _, info := range infos {
		check := info.CheckType
		if info.Augmented {
			check += " *"
		}
		rows = append(rows, []string{info.ID, info.Domain, info.Severity, check, info.Name})
	}
	r.Table([]string{"ID", "Agent", "Severity", "Check", "Name"}, rows)
	r.Printf("%d rules across %d agents\n", len(infos), countDomains(infos))
	return nil
}

func countDomains(infos []lint.RuleInfo) int {
	seen := make(map[string]bool)
	for _, info := range infos {
		seen[info.Domain] = true
	}
	return len(seen)
}

func showRule(r *output.Renderer, rs *lint.RuleSet, id string) error {
	rule, ok := rs.Get(strings.TrimSpace(id))
	if !ok {
		return fmt.Errorf("rule not found: %s", id)
	}
	info := rule.Info()
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(info)
	}

	r.Header(1, info.ID+": "+info.Name)
	r.KeyValue("Agent", info.Domain)
	r.KeyValue("Severity", info.Severity)
	r.KeyValue("Check", info.CheckType)
	r.KeyValue("Source", string(info.Source))
	r.KeyValue("Augmented", fmt.Sprintf("%t", info.Augmented))
	if len(info.AppliesTo) > 0 {
		r.KeyValue("Applies to", strings.Join(info.AppliesTo, ", "))
	}
	if info.APAReference != "" {
		r.KeyValue("APA", info.APAReference)
	}
	if info.LocalReference != "" {
		r.KeyValue("Local", info.LocalReference)
	}
	r.KeyValue("Docs", info.DocURL)
	if info.Description != "" {
		r.Println()
		r.Println(info.Description)
	}
	if info.AutoFixHint != "" {
		r.Println()
		r.Println(r.Styles().Muted.Render("Fix: " + info.AutoFixHint))
	}
	return nil
}
