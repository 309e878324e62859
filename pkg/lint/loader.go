package lint

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/leapstack-labs/apalint/pkg/core"
	"gopkg.in/yaml.v3"
)

// Defaults applied to augmented rules that leave them unset.
const (
	DefaultMaxChars     = 4000
	DefaultOutputFormat = "JSON_FINDINGS_V1"
	DefaultAugmentMode  = "validator"
)

var ruleIDPattern = regexp.MustCompile(`^[A-Z][A-Z0-9]*-[A-Z][A-Z0-9]*-[0-9]{3}$`)

var augmentModes = map[string]bool{
	"validator": true, "classifier": true, "suggester": true, "generator": true,
}

// RuleFileSuffixes lists the file name suffixes Load reads.
var RuleFileSuffixes = []string{".rules.json", ".rules.yaml", ".rules.yml"}

// =============================================================================
// Errors
// =============================================================================

// RuleLoadError reports a malformed or duplicate rule definition.
// It matches core.ErrRuleLoad with errors.Is.
type RuleLoadError struct {
	Path   string
	RuleID string
	Err    error
}

func (e *RuleLoadError) Error() string {
	var b strings.Builder
	b.WriteString("rule load")
	if e.Path != "" {
		b.WriteString(": ")
		b.WriteString(e.Path)
	}
	if e.RuleID != "" {
		b.WriteString(": rule ")
		b.WriteString(e.RuleID)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *RuleLoadError) Unwrap() []error {
	return []error{core.ErrRuleLoad, e.Err}
}

// =============================================================================
// Sources
// =============================================================================

// RuleSource is a tree of rule files.
type RuleSource struct {
	Name string // used in error messages
	FS   fs.FS
}

// DirSource returns a RuleSource reading the directory dir.
func DirSource(dir string) RuleSource {
	return RuleSource{Name: dir, FS: os.DirFS(dir)}
}

// FSSource returns a RuleSource reading fsys.
func FSSource(name string, fsys fs.FS) RuleSource {
	return RuleSource{Name: name, FS: fsys}
}

// LoadDir loads every rule file under dir.
func LoadDir(dir string) (*RuleSet, error) {
	return Load(DirSource(dir))
}

// Load reads every rule file from the sources, in source order and then in
// lexical path order, and builds a RuleSet. Any malformed record, invalid
// pattern or duplicate id fails the whole load.
func Load(sources ...RuleSource) (*RuleSet, error) {
	var rules []*Rule
	seen := make(map[string]string)

	for _, src := range sources {
		if src.FS == nil {
			return nil, &RuleLoadError{Path: src.Name, Err: errors.New("nil filesystem")}
		}
		paths, err := ruleFiles(src.FS)
		if err != nil {
			return nil, &RuleLoadError{Path: src.Name, Err: err}
		}
		for _, p := range paths {
			display := path.Join(src.Name, p)
			data, err := fs.ReadFile(src.FS, p)
			if err != nil {
				return nil, &RuleLoadError{Path: display, Err: err}
			}
			file, err := decodeRuleFile(p, data)
			if err != nil {
				return nil, &RuleLoadError{Path: display, Err: err}
			}
			for i := range file.Rules {
				rec := &file.Rules[i]
				r, err := rec.build(file, len(rules))
				if err != nil {
					return nil, &RuleLoadError{Path: display, RuleID: rec.RuleID, Err: err}
				}
				if prev, dup := seen[r.ID]; dup {
					return nil, &RuleLoadError{
						Path:   display,
						RuleID: r.ID,
						Err:    fmt.Errorf("duplicate rule id (first defined in %s)", prev),
					}
				}
				seen[r.ID] = display
				rules = append(rules, r)
			}
		}
	}

	return newRuleSet(rules), nil
}

func ruleFiles(fsys fs.FS) ([]string, error) {
	var paths []string
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if IsRuleFile(p) {
			paths = append(paths, p)
		}
		return nil
	})
	sort.Strings(paths)
	return paths, err
}

// IsRuleFile reports whether name has a rule file suffix.
func IsRuleFile(name string) bool {
	lower := strings.ToLower(name)
	for _, s := range RuleFileSuffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func decodeRuleFile(p string, data []byte) (*ruleFile, error) {
	var file ruleFile
	if strings.HasSuffix(strings.ToLower(p), ".json") {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("invalid YAML: %w", err)
		}
	}
	return &file, nil
}

// =============================================================================
// File format
// =============================================================================

type ruleFile struct {
	ProfileID string       `json:"profileId" yaml:"profileId"`
	AgentID   string       `json:"agentId" yaml:"agentId"`
	Rules     []ruleRecord `json:"rules" yaml:"rules"`
}

type ruleRecord struct {
	RuleID         string       `json:"ruleId" yaml:"ruleId"`
	Domain         string       `json:"domain" yaml:"domain"`
	Title          string       `json:"title" yaml:"title"`
	Name           string       `json:"name" yaml:"name"`
	Description    string       `json:"description" yaml:"description"`
	Source         string       `json:"source" yaml:"source"`
	BaseStandard   string       `json:"baseStandard" yaml:"baseStandard"`
	APAReference   string       `json:"apaReference" yaml:"apaReference"`
	LocalReference string       `json:"localReference" yaml:"localReference"`
	Severity       string       `json:"severity" yaml:"severity"`
	CheckType      string       `json:"checkType" yaml:"checkType"`
	AppliesTo      stringList   `json:"appliesTo" yaml:"appliesTo"`
	Augmented      *bool        `json:"augmented" yaml:"augmented"`
	Examples       examplesRec  `json:"examples" yaml:"examples"`
	DetectionHints *hintsRecord `json:"detectionHints" yaml:"detectionHints"`
	AutoFixHint    string       `json:"autoFixHint" yaml:"autoFixHint"`
	LLMConfig      *llmRecord   `json:"llmConfig" yaml:"llmConfig"`
	Script         string       `json:"script" yaml:"script"`
}

type examplesRec struct {
	Good stringList `json:"good" yaml:"good"`
	Bad  stringList `json:"bad" yaml:"bad"`
}

type hintsRecord struct {
	Scope          string     `json:"scope" yaml:"scope"`
	SectionTargets stringList `json:"sectionTargets" yaml:"sectionTargets"`
	Regex          stringList `json:"regex" yaml:"regex"`
	Forbidden      bool       `json:"forbidden" yaml:"forbidden"`
	Notes          string     `json:"notes" yaml:"notes"`
}

type llmRecord struct {
	Enabled                *bool      `json:"enabled" yaml:"enabled"`
	Mode                   string     `json:"mode" yaml:"mode"`
	PromptTemplateID       string     `json:"promptTemplateId" yaml:"promptTemplateId"`
	MaxChars               int        `json:"max_chars" yaml:"max_chars"`
	ForbiddenBehaviors     stringList `json:"forbidden_behaviors" yaml:"forbidden_behaviors"`
	AllowedSuggestionTypes stringList `json:"allowed_suggestion_types" yaml:"allowed_suggestion_types"`
	OutputFormat           string     `json:"output_format" yaml:"output_format"`
}

// stringList accepts either a single string or a list of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*l = splitNonEmpty(one)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

func (l *stringList) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		*l = splitNonEmpty(value.Value)
		return nil
	}
	var many []string
	if err := value.Decode(&many); err != nil {
		return err
	}
	*l = many
	return nil
}

func splitNonEmpty(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return []string{s}
}

func (rec *ruleRecord) build(file *ruleFile, order int) (*Rule, error) {
	id := strings.TrimSpace(rec.RuleID)
	if id == "" {
		return nil, errors.New("missing ruleId")
	}
	if !ruleIDPattern.MatchString(id) {
		return nil, fmt.Errorf("id %q does not match <NAMESPACE>-<DOMAIN>-<NNN>", id)
	}

	domain := strings.ToUpper(strings.TrimSpace(rec.Domain))
	if domain == "" {
		domain = strings.ToUpper(strings.TrimSpace(file.AgentID))
	}
	if domain == "" {
		return nil, errors.New("missing domain (set agentId on the file or domain on the rule)")
	}

	sev, ok := core.ParseSeverity(rec.Severity)
	if !ok {
		return nil, fmt.Errorf("unknown severity %q", rec.Severity)
	}

	src := SourceStandard
	if rec.Source != "" {
		if src, ok = ParseSource(rec.Source); !ok {
			return nil, fmt.Errorf("unknown source %q", rec.Source)
		}
	}

	ct, ok := parseCheckType(rec.CheckType)
	if !ok {
		return nil, fmt.Errorf("unknown checkType %q", rec.CheckType)
	}
	if rec.Augmented != nil && *rec.Augmented {
		ct = CheckLLMSemantic
	}

	name := rec.Title
	if name == "" {
		name = rec.Name
	}

	r := &Rule{
		ID:             id,
		Domain:         domain,
		ProfileID:      file.ProfileID,
		Name:           name,
		Description:    rec.Description,
		Source:         src,
		BaseStandard:   rec.BaseStandard,
		APAReference:   rec.APAReference,
		LocalReference: rec.LocalReference,
		Severity:       sev,
		CheckType:      ct,
		Script:         rec.Script,
		AutoFixHint:    rec.AutoFixHint,
		Examples:       Examples{Good: rec.Examples.Good, Bad: rec.Examples.Bad},
		Order:          order,
	}

	for _, t := range rec.AppliesTo {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			r.AppliesTo = append(r.AppliesTo, t)
		}
	}

	if h := rec.DetectionHints; h != nil {
		r.Hints.Scope = Scope(strings.ToLower(strings.TrimSpace(h.Scope)))
		switch r.Hints.Scope {
		case "", ScopeDocument, ScopeSection, ScopeLine, ScopeBlock:
		default:
			return nil, fmt.Errorf("unknown detection scope %q", h.Scope)
		}
		r.Hints.Notes = h.Notes
		r.Hints.Forbidden = h.Forbidden
		for _, s := range h.SectionTargets {
			if s = strings.TrimSpace(s); s != "" {
				r.Hints.SectionTargets = append(r.Hints.SectionTargets, s)
			}
		}
		for _, expr := range h.Regex {
			re, err := regexp.Compile("(?m)" + expr)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern %q: %w", expr, err)
			}
			r.Hints.Patterns = append(r.Hints.Patterns, re)
		}
	}

	if err := r.buildAugment(rec.LLMConfig); err != nil {
		return nil, err
	}

	if ct == CheckScript && strings.TrimSpace(r.Script) == "" {
		return nil, errors.New("script check without script")
	}
	return r, nil
}

func (r *Rule) buildAugment(rec *llmRecord) error {
	if r.CheckType != CheckLLMSemantic {
		return nil
	}
	r.Augment = AugmentConfig{
		Enabled:      true,
		Mode:         DefaultAugmentMode,
		MaxChars:     DefaultMaxChars,
		OutputFormat: DefaultOutputFormat,
	}
	if rec == nil {
		return nil
	}
	if rec.Enabled != nil {
		r.Augment.Enabled = *rec.Enabled
	}
	if rec.Mode != "" {
		mode := strings.ToLower(strings.TrimSpace(rec.Mode))
		if !augmentModes[mode] {
			return fmt.Errorf("unknown llmConfig mode %q", rec.Mode)
		}
		r.Augment.Mode = mode
	}
	if rec.MaxChars < 0 {
		return fmt.Errorf("llmConfig max_chars must not be negative")
	}
	if rec.MaxChars > 0 {
		r.Augment.MaxChars = rec.MaxChars
	}
	if rec.OutputFormat != "" {
		r.Augment.OutputFormat = rec.OutputFormat
	}
	r.Augment.PromptTemplateID = rec.PromptTemplateID
	r.Augment.ForbiddenBehaviors = rec.ForbiddenBehaviors
	r.Augment.AllowedOutputs = rec.AllowedSuggestionTypes
	return nil
}
