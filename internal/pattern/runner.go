package pattern

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/singleflight"
)

// RunResult is the outcome of a detect-and-save run.
type RunResult struct {
	Result
	Created int
	Shared  bool // Another caller's run produced this result
}

// Runner serializes detection per dataset. Concurrent runs for the same dataset share a single
// pass, so suggestions are never created twice by overlapping callers.
type Runner struct {
	detector *Detector
	group    singleflight.Group
}

// NewRunner wraps a detector.
func NewRunner(detector *Detector) *Runner {
	return &Runner{detector: detector}
}

// Run detects patterns in dataset and stores new suggestions.
func (r *Runner) Run(ctx context.Context, dataset string) (RunResult, error) {
	v, err, shared := r.group.Do(dataset, func() (any, error) {
		result, err := r.detector.Detect(ctx)
		if err != nil {
			return nil, err
		}

		created, err := r.detector.SaveSuggestions(ctx, result.Suggestions)
		if err != nil {
			// Stored suggestions stay stored; the remaining ones are retried next run.
			slog.Warn("Some suggestions could not be saved", "dataset", dataset, "error", err)
		}

		return RunResult{Result: result, Created: created}, nil
	})
	if err != nil {
		return RunResult{}, fmt.Errorf("pattern detection for %s failed: %w", dataset, err)
	}

	out, ok := v.(RunResult)
	if !ok {
		return RunResult{}, fmt.Errorf("unexpected detection result %T", v)
	}
	out.Shared = shared
	return out, nil
}

// Detect returns suggestions for dataset without saving them, coalescing concurrent callers.
func (r *Runner) Detect(ctx context.Context, dataset string) (Result, error) {
	v, err, _ := r.group.Do("detect:"+dataset, func() (any, error) {
		return r.detector.Detect(ctx)
	})
	if err != nil {
		return Result{}, err
	}
	result, ok := v.(Result)
	if !ok {
		return Result{}, fmt.Errorf("unexpected detection result %T", v)
	}
	return result, nil
}
