package lint

import "github.com/leapstack-labs/apalint/pkg/core"

// Config holds the per-rule overrides of a lint run. A nil *Config is
// valid and leaves every rule as declared in its catalogue.
type Config struct {
	DisabledRules     map[string]bool
	SeverityOverrides map[string]core.Severity
	RuleOptions       map[string]Options
}

// NewConfig returns an empty Config.
func NewConfig() *Config {
	return &Config{
		DisabledRules:     make(map[string]bool),
		SeverityOverrides: make(map[string]core.Severity),
		RuleOptions:       make(map[string]Options),
	}
}

// IsDisabled reports whether the rule is switched off.
func (c *Config) IsDisabled(ruleID string) bool {
	return c != nil && c.DisabledRules[ruleID]
}

// GetSeverity returns the override for ruleID, or declared.
func (c *Config) GetSeverity(ruleID string, declared core.Severity) core.Severity {
	if c == nil {
		return declared
	}
	if sev, ok := c.SeverityOverrides[ruleID]; ok {
		return sev
	}
	return declared
}

// GetRuleOptions returns the options for ruleID. The result may be nil,
// which reads as all defaults.
func (c *Config) GetRuleOptions(ruleID string) Options {
	if c == nil {
		return nil
	}
	return c.RuleOptions[ruleID]
}

// Disable switches a rule off.
func (c *Config) Disable(ruleID string) *Config {
	c.DisabledRules[ruleID] = true
	return c
}

// SetSeverity overrides the declared severity of a rule.
func (c *Config) SetSeverity(ruleID string, sev core.Severity) *Config {
	c.SeverityOverrides[ruleID] = sev
	return c
}

// SetRuleOptions replaces the options of a rule.
func (c *Config) SetRuleOptions(ruleID string, opts Options) *Config {
	c.RuleOptions[ruleID] = opts
	return c
}
