// Package lint provides the rule registry and agent framework used to
// validate academic documents.
//
// # Rules
//
// Rules are loaded from JSON or YAML files into an immutable RuleSet:
//
//	rs, err := lint.LoadDir("rules/")
//	for _, r := range rs.RulesFor("REFERENCES", lint.Selector{Variant: core.VariantOfficial}) {
//		fmt.Println(r.ID)
//	}
//
// A rule file groups rules under one agent:
//
//	{"profileId": "apa7_cun", "agentId": "REFERENCES", "rules": [
//	  {"ruleId": "CUN-REF-001", "title": "Sección de referencias",
//	   "severity": "error", "source": "STANDARD", "checkType": "structural",
//	   "detectionHints": {"sectionTargets": ["REFERENCIAS"]}}
//	]}
//
// # Agents
//
// RuleAgent evaluates the rules of its domain in load order. Each rule is
// delegated to the Augmenter when augmented, to a registered CheckFunc when
// one exists, and otherwise to the generic pattern and structural checks.
// Check errors and panics become a single info finding; the agent continues.
//
// # Configuration
//
// Config switches rules off, overrides severities and sets rule options:
//
//	config := lint.NewConfig().
//		Disable("CUN-REF-002").
//		SetSeverity("CUN-IC-003", core.SeverityError).
//		SetRuleOptions("CUN-GS-005", lint.Options{"max_words": 300})
package lint
