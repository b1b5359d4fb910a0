package gate

import (
	"context"
	"fmt"

	"github.com/zjy-dev/covgate/internal/config"
	"github.com/zjy-dev/covgate/internal/logger"
	"github.com/zjy-dev/covgate/internal/pathmatch"
	"github.com/zjy-dev/covgate/internal/unidiff"
)

// SkipReason is reported when the gate is bypassed by configuration.
const SkipReason = "patch coverage check disabled (SKIP_PATCH_COVERAGE)"

// Inputs supplies the two artifacts the gate compares. Implementations do
// the I/O; Run decides whether and when to call them.
type Inputs interface {
	Diff(ctx context.Context) (string, error)
	Coverage(ctx context.Context) (pathmatch.Index, error)
}

// InputFuncs adapts two functions to Inputs.
type InputFuncs struct {
	DiffFunc     func(ctx context.Context) (string, error)
	CoverageFunc func(ctx context.Context) (pathmatch.Index, error)
}

func (f InputFuncs) Diff(ctx context.Context) (string, error) {
	return f.DiffFunc(ctx)
}

func (f InputFuncs) Coverage(ctx context.Context) (pathmatch.Index, error) {
	return f.CoverageFunc(ctx)
}

// Run executes the patch gate. A skipped gate touches neither input. Otherwise
// the coverage report is loaded first, so a missing report fails the run even
// when the diff turns out to hold no changes.
func Run(ctx context.Context, cfg config.PatchConfig, in Inputs, m *pathmatch.Matcher) (*Verdict, error) {
	if cfg.Skip {
		return &Verdict{Kind: Skipped, Reason: SkipReason}, nil
	}

	idx, err := in.Coverage(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load coverage: %w", err)
	}

	text, err := in.Diff(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get diff: %w", err)
	}
	changes := unidiff.Parse(text, cfg.Subtree)
	if changes.HunkErrors > 0 {
		logger.Warn("ignored %d malformed hunk header(s)", changes.HunkErrors)
	}
	if changes.NoChanges() {
		return &Verdict{Kind: NoChanges}, nil
	}

	logger.Debug("checking %d added line(s) in %d file(s)", changes.AddedLines(), len(changes.Files))
	return Evaluate(changes, idx, m), nil
}
