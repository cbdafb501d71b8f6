package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunParallel runs every fn on its own goroutine and waits for all of them.
// A failing fn does not cancel its siblings; once all have returned, the
// first error raised is returned. Panics are reported as errors.
func RunParallel(ctx context.Context, fns ...func(context.Context) error) error {
	var g errgroup.Group
	for i, fn := range fns {
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = NewExecutionError(fmt.Sprintf("parallel[%d]", i), fmt.Errorf("panic: %v", r))
				}
			}()
			return fn(ctx)
		})
	}
	return g.Wait()
}

// RunParallel runs a batch of mutually independent steps. See the package
// function of the same name for the error semantics.
func (p *Process) RunParallel(ctx context.Context, fns ...func(context.Context) error) error {
	start := time.Now()
	err := RunParallel(ctx, fns...)

	if err != nil {
		p.logger.WarnContext(ctx, "parallel_batch_failed",
			slog.Int("branches", len(fns)),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return err
	}
	p.logger.DebugContext(ctx, "parallel_batch_complete",
		slog.Int("branches", len(fns)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

// StepFunc returns a RunParallel branch that executes op under key
func (p *Process) StepFunc(key string, op Operation, inputs ...string) func(context.Context) error {
	return func(ctx context.Context) error {
		_, err := p.Execute(ctx, key, op, inputs...)
		return err
	}
}
