package commands

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/apalint/internal/cli/config"
	"github.com/leapstack-labs/apalint/internal/cli/output"
	sharedcfg "github.com/leapstack-labs/apalint/internal/config"
	"github.com/leapstack-labs/apalint/pkg/lint"
	"github.com/leapstack-labs/apalint/pkg/lint/agents"
	"github.com/leapstack-labs/apalint/pkg/lint/profile"
)

// Health check ids.
const (
	checkConfigFile   = "CFG01"
	checkRulesDir     = "CFG02"
	checkRulesLoad    = "RUL01"
	checkRulesOrphan  = "RUL02"
	checkScriptMods   = "RUL03"
	checkProvider     = "AUG01"
	checkCacheBackend = "AUG02"
)

// Health check statuses.
const (
	statusPass  = "pass"
	statusWarn  = "warn"
	statusError = "error"
)

// DoctorOptions holds options for the doctor command.
type DoctorOptions struct {
	Format string // Output format: text, markdown, json
}

// NewDoctorCommand creates the doctor command.
func NewDoctorCommand() *cobra.Command {
	opts := &DoctorOptions{}
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the apalint setup of the current project",
		Long: `Check configuration, rule catalogue, augmentation provider and cache.

The report includes:
- Setup summary (config file, rules, agents, cache backend)
- Health checks grouped by category
- Health score (0-100)
- Actionable recommendations

Output adapts to environment:
  - Terminal: Styled output with colors
  - Piped/Scripted: Markdown format
  - JSON: Machine-readable format`,
		Example: `  # Run health check
  apalint doctor

  # Output as JSON
  apalint doctor --format json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDoctor(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Format, "format", "f", "", "Output format: text, markdown, json")
	_ = cmd.RegisterFlagCompletionFunc("format", fixedCompletion(output.Modes...))

	return cmd
}

// DoctorOutput is the JSON output for the doctor command.
type DoctorOutput struct {
	Summary         SetupSummary  `json:"summary"`
	HealthChecks    []HealthCheck `json:"health_checks"`
	Score           int           `json:"score"`
	Recommendations []string      `json:"recommendations"`
	IssueCount      int           `json:"issue_count"`
}

// SetupSummary describes what the checks ran against.
type SetupSummary struct {
	ConfigFile     string         `json:"config_file,omitempty"`
	RulesDir       string         `json:"rules_dir,omitempty"`
	Rules          int            `json:"rules"`
	AugmentedRules int            `json:"augmented_rules"`
	RulesByAgent   map[string]int `json:"rules_by_agent"`
	AugmentEnabled bool           `json:"augment_enabled"`
	Provider       string         `json:"provider,omitempty"`
	CacheBackend   string         `json:"cache_backend"`
}

// HealthCheck represents a single health check result.
type HealthCheck struct {
	RuleID     string   `json:"rule_id"`
	Name       string   `json:"name"`
	Group      string   `json:"group"`
	Status     string   `json:"status"` // "pass", "warn", "error"
	IssueCount int      `json:"issue_count"`
	Details    []string `json:"details,omitempty"`
}

func runDoctor(cmd *cobra.Command, opts *DoctorOptions) error {
	cmdCtx := NewCommandContextWithoutEngine(cmd)
	r := cmdCtx.Renderer

	if opts.Format != "" {
		mode, ok := output.ParseMode(opts.Format)
		if !ok {
			return fmt.Errorf("invalid --format %q (expected %s)", opts.Format, strings.Join(output.Modes, ", "))
		}
		r = output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode)
	}

	out := buildDoctorOutput(cmd, cmdCtx.Cfg)

	switch r.EffectiveMode() {
	case output.ModeJSON:
		return r.JSON(out)
	case output.ModeMarkdown:
		return renderDoctorMarkdown(r, out)
	default:
		return renderDoctorText(r, out)
	}
}

func buildDoctorOutput(cmd *cobra.Command, cfg *config.Config) *DoctorOutput {
	summary := SetupSummary{
		ConfigFile:     config.GetConfigFileUsed(),
		RulesDir:       cfg.RulesDir,
		RulesByAgent:   map[string]int{},
		AugmentEnabled: cfg.Augment.Enabled,
		CacheBackend:   cfg.Cache.Backend,
	}
	if cfg.Augment.Enabled {
		summary.Provider = cfg.Augment.Provider
	}
	if summary.CacheBackend == "" {
		summary.CacheBackend = sharedcfg.CacheMemory
	}

	checks := []HealthCheck{
		checkConfig(summary.ConfigFile),
		checkRulesDirectory(cfg.RulesDir),
	}

	rules, err := LoadRules(cfg.RulesDir)
	if err != nil {
		checks = append(checks, newCheck(checkRulesLoad, "rule-catalogue", "rules", statusError, errorDetails(err)))
	} else {
		for _, rule := range rules.All() {
			summary.Rules++
			summary.RulesByAgent[rule.Domain]++
			if rule.Augmented() {
				summary.AugmentedRules++
			}
		}
		checks = append(checks,
			newCheck(checkRulesLoad, "rule-catalogue", "rules", statusPass, nil),
			checkOrphanRules(rules),
		)
	}
	checks = append(checks, checkScriptModules(cfg.RulesDir))
	checks = append(checks, checkAugmentProvider(cfg.Augment, summary.AugmentedRules))
	checks = append(checks, checkCache(cmd, cfg))

	sort.Slice(checks, func(i, j int) bool {
		if checks[i].Group != checks[j].Group {
			return checks[i].Group < checks[j].Group
		}
		return checks[i].RuleID < checks[j].RuleID
	})

	issues := 0
	for _, c := range checks {
		issues += c.IssueCount
	}

	return &DoctorOutput{
		Summary:         summary,
		HealthChecks:    checks,
		Score:           calculateHealthScore(checks, summary.Rules),
		Recommendations: generateRecommendations(checks),
		IssueCount:      issues,
	}
}

// newCheck builds a check; every detail of a failing check counts as one issue.
func newCheck(id, name, group, status string, details []string) HealthCheck {
	c := HealthCheck{RuleID: id, Name: name, Group: group, Status: status, Details: details}
	if status != statusPass {
		c.IssueCount = len(details)
		if c.IssueCount == 0 {
			c.IssueCount = 1
		}
	}
	return c
}

// errorDetails flattens joined errors into one detail per cause.
func errorDetails(err error) []string {
	var multi interface{ Unwrap() []error }
	if errors.As(err, &multi) {
		var out []string
		for _, e := range multi.Unwrap() {
			out = append(out, errorDetails(e)...)
		}
		if len(out) > 0 {
			return out
		}
	}
	return []string{err.Error()}
}

func checkConfig(file string) HealthCheck {
	if file == "" {
		return newCheck(checkConfigFile, "config-file", "configuration", statusWarn,
			[]string{"no apalint.yaml found; built-in defaults are in use"})
	}
	return newCheck(checkConfigFile, "config-file", "configuration", statusPass, []string{file})
}

func checkRulesDirectory(dir string) HealthCheck {
	const name = "rules-directory"
	if dir == "" {
		return newCheck(checkRulesDir, name, "configuration", statusWarn,
			[]string{"rules_dir is not set; only the built-in catalogue is loaded"})
	}
	info, err := os.Stat(dir)
	switch {
	case err == nil && info.IsDir():
		return newCheck(checkRulesDir, name, "configuration", statusPass, []string{dir})
	case err == nil:
		return newCheck(checkRulesDir, name, "configuration", statusError,
			[]string{dir + " is not a directory"})
	case errors.Is(err, os.ErrNotExist):
		return newCheck(checkRulesDir, name, "configuration", statusWarn,
			[]string{dir + " does not exist; only the built-in catalogue is loaded"})
	default:
		return newCheck(checkRulesDir, name, "configuration", statusError, []string{err.Error()})
	}
}

// checkOrphanRules flags rules whose domain no built-in agent evaluates.
func checkOrphanRules(rules *lint.RuleSet) HealthCheck {
	known := map[string]bool{profile.AgentID: true}
	for _, a := range agents.Builtin() {
		known[a.ID()] = true
	}
	var details []string
	for _, rule := range rules.All() {
		if !known[rule.Domain] {
			details = append(details, fmt.Sprintf("%s: no agent named %s", rule.ID, rule.Domain))
		}
	}
	if len(details) > 0 {
		return newCheck(checkRulesOrphan, "rule-agents", "rules", statusWarn, details)
	}
	return newCheck(checkRulesOrphan, "rule-agents", "rules", statusPass, nil)
}

func checkScriptModules(rulesDir string) HealthCheck {
	const name = "script-modules"
	modules, err := LoadModules(rulesDir)
	if err != nil {
		return newCheck(checkScriptMods, name, "rules", statusError, errorDetails(err))
	}
	details := make([]string, 0, len(modules))
	for _, m := range modules {
		sigs := make([]string, 0, len(m.Functions))
		for _, fn := range m.Functions {
			sigs = append(sigs, fn.Signature())
		}
		details = append(details, m.Namespace+": "+strings.Join(sigs, ", "))
	}
	return newCheck(checkScriptMods, name, "rules", statusPass, details)
}

func checkAugmentProvider(cfg config.AugmentConfig, augmentedRules int) HealthCheck {
	const name = "augmentation-provider"
	if !cfg.Enabled {
		if augmentedRules > 0 {
			return newCheck(checkProvider, name, "augmentation", statusWarn,
				[]string{fmt.Sprintf("augmentation is disabled; %d augmented rules are skipped", augmentedRules)})
		}
		return newCheck(checkProvider, name, "augmentation", statusPass, []string{"augmentation is disabled"})
	}
	capability, err := newCapability(cfg)
	if err != nil {
		return newCheck(checkProvider, name, "augmentation", statusError, []string{err.Error()})
	}
	if !capability.Available() {
		return newCheck(checkProvider, name, "augmentation", statusError,
			[]string{fmt.Sprintf("provider %s has no credentials", cfg.Provider)})
	}
	return newCheck(checkProvider, name, "augmentation", statusPass,
		[]string{cfg.Provider + " " + cfg.Model})
}

func checkCache(cmd *cobra.Command, cfg *config.Config) HealthCheck {
	const name = "augmentation-cache"
	backend := strings.ToLower(cfg.Cache.Backend)
	if backend == "" || backend == sharedcfg.CacheMemory {
		return newCheck(checkCacheBackend, name, "augmentation", statusPass, []string{"in-memory cache only"})
	}
	if !cfg.Augment.Enabled {
		return newCheck(checkCacheBackend, name, "augmentation", statusPass,
			[]string{backend + " cache configured; not opened while augmentation is disabled"})
	}
	_, closeStore, err := openStore(cmd.Context(), cfg.Cache, config.GetLogger(cmd.Context()))
	if err != nil {
		return newCheck(checkCacheBackend, name, "augmentation", statusError, []string{err.Error()})
	}
	_ = closeStore()
	return newCheck(checkCacheBackend, name, "augmentation", statusPass, []string{backend + " cache reachable"})
}

// calculateHealthScore computes a health score from 0-100.
// Each issue reduces points; a larger catalogue lowers the weight of one issue.
func calculateHealthScore(checks []HealthCheck, ruleCount int) int {
	if len(checks) == 0 {
		return 100
	}

	score := 100.0

	basePenalty := 10.0
	if ruleCount > 50 {
		basePenalty = 8.0
	}
	if ruleCount > 200 {
		basePenalty = 5.0
	}

	for _, check := range checks {
		switch check.Status {
		case statusError:
			score -= float64(check.IssueCount) * basePenalty * 2 // Errors count double
		case statusWarn:
			score -= float64(check.IssueCount) * basePenalty
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	return int(score)
}

// generateRecommendations creates actionable recommendations based on findings.
func generateRecommendations(checks []HealthCheck) []string {
	recommendations := []string{}
	seen := make(map[string]bool)

	for _, check := range checks {
		if check.IssueCount == 0 {
			continue
		}

		rec := getRecommendation(check.RuleID)
		if rec != "" && !seen[rec] {
			recommendations = append(recommendations, rec)
			seen[rec] = true
		}
	}

	if len(recommendations) > 5 {
		recommendations = recommendations[:5]
	}

	return recommendations
}

// getRecommendation returns a recommendation for a specific check.
func getRecommendation(checkID string) string {
	switch checkID {
	case checkConfigFile:
		return "Run 'apalint init' to create apalint.yaml with the project settings"
	case checkRulesDir:
		return "Point rules_dir at a directory of local *.rules.yaml files"
	case checkRulesLoad:
		return "Fix the rule files reported above; linting is unavailable until they load"
	case checkRulesOrphan:
		return "Assign local rules to a built-in agent domain (see 'apalint rules')"
	case checkScriptMods:
		return "Fix the script modules under rules_dir/lib; script rules cannot run until they load"
	case checkProvider:
		return "Set APALINT_AUGMENT_API_KEY or disable augmentation with augment.enabled: false"
	case checkCacheBackend:
		return "Check cache.backend settings or switch to the memory backend"
	default:
		return ""
	}
}

func renderDoctorText(r *output.Renderer, out *DoctorOutput) error {
	styles := r.Styles()

	r.Println("")
	r.Println(styles.Header.Render("apalint Health Report"))
	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	r.Println("")

	r.Println(styles.Header.Render("Setup Summary"))
	r.Printf("   Config: %s\n", orNone(out.Summary.ConfigFile))
	r.Printf("   Rules: %d (%d augmented) | Agents: %d\n",
		out.Summary.Rules, out.Summary.AugmentedRules, len(out.Summary.RulesByAgent))
	r.Printf("   Augmentation: %s | Cache: %s\n", augmentLabel(out.Summary), out.Summary.CacheBackend)
	r.Println("")

	r.Println(styles.Header.Render("Health Checks"))
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println(styles.Bold.Render("   " + titleCaser.String(currentGroup)))
			r.Println(styles.Muted.Render("   " + strings.Repeat("-", 40)))
		}

		icon := styles.Success.Render("✓")
		switch check.Status {
		case statusWarn:
			icon = styles.Warning.Render("!")
		case statusError:
			icon = styles.Error.Render("✗")
		}

		status := fmt.Sprintf("%s %s: %s", icon, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			status += fmt.Sprintf(" (%d issues)", check.IssueCount)
		}
		r.Println("   " + status)

		for i, detail := range check.Details {
			if i >= 3 {
				r.Println(styles.Muted.Render(fmt.Sprintf("       ... and %d more", len(check.Details)-3)))
				break
			}
			r.Println(styles.Muted.Render("       - " + detail))
		}
	}
	r.Println("")

	r.Println(styles.Muted.Render(strings.Repeat("=", 55)))
	scoreStyle := styles.Success
	if out.Score < 70 {
		scoreStyle = styles.Warning
	}
	if out.Score < 50 {
		scoreStyle = styles.Error
	}
	r.Printf("   Health Score: %s\n", scoreStyle.Render(fmt.Sprintf("%d/100", out.Score)))
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println(styles.Header.Render("Recommendations"))
		for i, rec := range out.Recommendations {
			r.Printf("   %d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func renderDoctorMarkdown(r *output.Renderer, out *DoctorOutput) error {
	r.Println("# apalint Health Report")
	r.Println("")

	r.Println("## Setup Summary")
	r.Println("")
	r.Printf("- **Config**: %s\n", orNone(out.Summary.ConfigFile))
	r.Printf("- **Rules**: %d\n", out.Summary.Rules)
	r.Printf("- **Augmented rules**: %d\n", out.Summary.AugmentedRules)
	r.Printf("- **Agents**: %d\n", len(out.Summary.RulesByAgent))
	r.Printf("- **Augmentation**: %s\n", augmentLabel(out.Summary))
	r.Printf("- **Cache**: %s\n", out.Summary.CacheBackend)
	r.Println("")

	r.Println("## Health Checks")
	r.Println("")

	currentGroup := ""
	titleCaser := cases.Title(language.English)
	for _, check := range out.HealthChecks {
		if check.Group != currentGroup {
			currentGroup = check.Group
			r.Println("### " + titleCaser.String(currentGroup))
			r.Println("")
		}

		status := "PASS"
		switch check.Status {
		case statusWarn:
			status = "WARN"
		case statusError:
			status = "ERROR"
		}

		r.Printf("- **[%s]** %s: %s", status, check.RuleID, check.Name)
		if check.IssueCount > 0 {
			r.Printf(" (%d issues)", check.IssueCount)
		}
		r.Println("")

		for _, detail := range check.Details {
			r.Printf("  - %s\n", detail)
		}
	}
	r.Println("")

	r.Println("## Health Score")
	r.Println("")
	r.Printf("**%d/100**\n", out.Score)
	r.Println("")

	if len(out.Recommendations) > 0 {
		r.Println("## Recommendations")
		r.Println("")
		for i, rec := range out.Recommendations {
			r.Printf("%d. %s\n", i+1, rec)
		}
		r.Println("")
	}

	return nil
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func augmentLabel(s SetupSummary) string {
	if !s.AugmentEnabled {
		return "disabled"
	}
	return s.Provider
}
