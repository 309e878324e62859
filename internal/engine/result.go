package engine

import (
	"encoding/json"
	"time"

	"github.com/leapstack-labs/apalint/internal/review"
	"github.com/leapstack-labs/apalint/pkg/core"
)

// Result is the outcome of one lint operation.
type Result struct {
	RunID     string               `json:"run_id"`
	Findings  []core.Finding       `json:"findings"`
	Summary   core.Summary         `json:"summary"`
	Profile   core.DocumentProfile `json:"profile"`
	AgentsRun []string             `json:"agents_run"`
	TimedOut  []string             `json:"timed_out"`
	Elapsed   time.Duration        `json:"-"`
	Timestamp time.Time            `json:"timestamp"`
	Review    *review.Review       `json:"review,omitempty"`

	// Context is the normalized request context.
	Context core.LintContext `json:"-"`
}

// AttachReview computes the aggregated review for the result.
func (r *Result) AttachReview() *Result {
	rv := review.Summarize(r.Findings, r.Context, r.Profile)
	r.Review = &rv
	return r
}

// MarshalJSON adds elapsed_ms and never emits null lists.
func (r Result) MarshalJSON() ([]byte, error) {
	type plain Result
	out := struct {
		plain
		ElapsedMS int64 `json:"elapsed_ms"`
	}{plain: plain(r), ElapsedMS: r.Elapsed.Milliseconds()}
	if out.Findings == nil {
		out.Findings = []core.Finding{}
	}
	if out.TimedOut == nil {
		out.TimedOut = []string{}
	}
	return json.Marshal(out)
}
