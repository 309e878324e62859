package starlark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leapstack-labs/apalint/pkg/lint"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// DefaultMaxSteps bounds the work a single script may do.
const DefaultMaxSteps = 5_000_000

var fileOptions = &syntax.FileOptions{
	TopLevelControl: true,
	GlobalReassign:  true,
	While:           true,
}

// Runner evaluates script rules. It is safe for concurrent use; each call
// gets its own thread.
type Runner struct {
	maxSteps uint64
	modules  starlark.StringDict
	logger   *slog.Logger
}

var _ lint.ScriptRunner = (*Runner)(nil)

// NewRunner creates a Runner. maxSteps <= 0 uses DefaultMaxSteps.
func NewRunner(maxSteps int, logger *slog.Logger) *Runner {
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{maxSteps: uint64(maxSteps), logger: logger}
}

// WithModules makes the helper modules visible to every script. It must be
// called before the runner is shared.
func (r *Runner) WithModules(modules []*Module) *Runner {
	r.modules = moduleValues(modules)
	r.modules.Freeze()
	return r
}

// RunScript executes in.Rule.Script and returns the violations it reported.
// The script is cancelled when ctx is done.
func (r *Runner) RunScript(ctx context.Context, in *lint.CheckInput) ([]lint.Violation, error) {
	if in.Rule == nil || in.Rule.Script == "" {
		return nil, nil
	}
	s := &script{doc: in.Doc}
	globals, err := s.predeclared(in)
	if err != nil {
		return nil, err
	}
	for name, v := range r.modules {
		globals[name] = v
	}

	logger := r.logger.With("rule_id", in.Rule.ID)
	thread := &starlark.Thread{
		Name: in.Rule.ID,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug("script print", "msg", msg)
		},
	}
	thread.SetMaxExecutionSteps(r.maxSteps)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			thread.Cancel(ctx.Err().Error())
		case <-done:
		}
	}()

	if _, err := starlark.ExecFileOptions(fileOptions, thread, in.Rule.ID+".star", in.Rule.Script, globals); err != nil {
		var evalErr *starlark.EvalError
		if errors.As(err, &evalErr) {
			return nil, fmt.Errorf("script %s: %s", in.Rule.ID, evalErr.Backtrace())
		}
		return nil, fmt.Errorf("script %s: %w", in.Rule.ID, err)
	}
	return s.violations, nil
}
