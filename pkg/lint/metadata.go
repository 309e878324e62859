package lint

import (
	"strings"
	"sync/atomic"
)

// DefaultDocsBaseURL hosts one page per rule, named after the lowercased
// rule id.
const DefaultDocsBaseURL = "https://apalint.dev/docs/rules"

var docsBaseURL atomic.Pointer[string]

// BuildDocURL returns the documentation page of a rule.
func BuildDocURL(ruleID string) string {
	base := DefaultDocsBaseURL
	if p := docsBaseURL.Load(); p != nil {
		base = *p
	}
	return base + "/" + strings.ToLower(ruleID)
}

// SetDocsBaseURL points rule documentation at an institutional mirror.
func SetDocsBaseURL(url string) {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	docsBaseURL.Store(&url)
}

// ResetDocsBaseURL restores DefaultDocsBaseURL.
func ResetDocsBaseURL() {
	docsBaseURL.Store(nil)
}
