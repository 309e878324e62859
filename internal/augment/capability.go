// Package augment runs rules that delegate their evaluation to an external
// language-model capability. It owns the timeout, retry and caching policy
// so that agents only ever see a finding or nothing.
package augment

import (
	"context"
	"errors"
	"fmt"

	"github.com/leapstack-labs/apalint/pkg/core"
)

// Prompt is a rendered request for the capability.
type Prompt struct {
	System string
	User   string
}

// Constraints restrict what the capability may answer.
type Constraints struct {
	Mode               string
	MaxChars           int
	ForbiddenBehaviors []string
	AllowedOutputs     []string
	OutputFormat       string
	// JSON asks the capability for a JSON object answer.
	JSON bool
}

// Capability is an external text completion service.
type Capability interface {
	Complete(ctx context.Context, p Prompt, c Constraints) (string, error)
	Available() bool
}

// Noop is the capability used when augmentation is disabled.
type Noop struct{}

// Complete always fails with ErrUnavailable.
func (Noop) Complete(context.Context, Prompt, Constraints) (string, error) {
	return "", ErrUnavailable
}

// Available reports false.
func (Noop) Available() bool { return false }

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrUnavailable is returned by Complete when no capability is configured.
	ErrUnavailable = errors.New("augmentation capability unavailable")
	// ErrInvalidResponse marks an answer that could not be interpreted.
	ErrInvalidResponse = errors.New("invalid augmentation response")
)

// Kind classifies an augmentation failure.
type Kind string

// Failure kinds.
const (
	KindTimeout         Kind = "timeout"
	KindTransport       Kind = "transport"
	KindInvalidResponse Kind = "invalid_response"
)

// AugmentationError reports a failed capability call.
// It matches core.ErrAugmentation with errors.Is.
type AugmentationError struct {
	Kind   Kind
	RuleID string
	Err    error
}

func (e *AugmentationError) Error() string {
	if e.RuleID != "" {
		return fmt.Sprintf("augmentation %s: rule %s: %v", e.Kind, e.RuleID, e.Err)
	}
	return fmt.Sprintf("augmentation %s: %v", e.Kind, e.Err)
}

// Retryable reports whether another attempt may succeed.
func (e *AugmentationError) Retryable() bool {
	return e.Kind == KindTimeout || e.Kind == KindTransport
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *AugmentationError) Unwrap() []error {
	return []error{core.ErrAugmentation, e.Err}
}
