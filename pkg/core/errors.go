package core

import (
	"errors"
	"fmt"
)

// Error taxonomy. Typed errors elsewhere unwrap to these sentinels so callers
// can classify with errors.Is.
var (
	// ErrInvalidRequest marks malformed lint or coach input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrRuleLoad marks malformed or duplicate rule definitions.
	ErrRuleLoad = errors.New("rule load error")
	// ErrAgentExecution marks a single rule check failure inside an agent.
	ErrAgentExecution = errors.New("agent execution error")
	// ErrAugmentation marks a failed call to the augmentation capability.
	ErrAugmentation = errors.New("augmentation error")
	// ErrOperationTimeout marks an agent that missed the operation deadline.
	ErrOperationTimeout = errors.New("operation timeout")
)

// RequestError describes which part of a request was rejected.
type RequestError struct {
	Field  string
	Reason string
}

// NewRequestError creates a RequestError.
func NewRequestError(field, reason string) *RequestError {
	return &RequestError{Field: field, Reason: reason}
}

func (e *RequestError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid request: %s", e.Reason)
	}
	return fmt.Sprintf("invalid request: %s: %s", e.Field, e.Reason)
}

// Unwrap returns ErrInvalidRequest.
func (e *RequestError) Unwrap() error {
	return ErrInvalidRequest
}
