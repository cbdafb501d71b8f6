package workflow_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"husholdning/internal/workflow"
)

func TestScheduleRunsInDependencyOrder(t *testing.T) {
	p := workflow.New("order")
	ctx, _ := p.Start(context.Background())
	p.Input("form", workflow.Mapping{"n": 1}, "form")

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(key string) workflow.Operation {
		return workflow.Func(key, key, func(context.Context) (any, error) {
			mu.Lock()
			order = append(order, key)
			mu.Unlock()
			return workflow.Mapping{key: "ok"}, nil
		})
	}

	err := p.Schedule(ctx,
		workflow.Task{Key: "c", Requires: []string{"a", "b"}, Build: workflow.Use(record("c"))},
		workflow.Task{Key: "a", Requires: []string{"form"}, Build: workflow.Use(record("a"))},
		workflow.Task{Key: "b", Requires: []string{"a"}, Build: workflow.Use(record("b"))},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, order)

	for _, key := range []string{"a", "b", "c"} {
		_, ok := p.Signal(key)
		assert.True(t, ok, key)
	}
}

func TestScheduleBuildSeesUpstreamSignals(t *testing.T) {
	p := workflow.New("inputs")
	ctx, _ := p.Start(context.Background())
	p.Input("form", workflow.Mapping{"income": "100"}, "form")

	err := p.Schedule(ctx,
		workflow.Task{
			Key:      "copy",
			Requires: []string{"form"},
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				form, err := in.Require("form")
				if err != nil {
					return nil, err
				}
				return constOp("Copy", workflow.Mapping{"income": form["income"]}), nil
			},
		},
	)
	require.NoError(t, err)

	m, ok := p.Mapping("copy")
	require.True(t, ok)
	assert.Equal(t, "100", m["income"])
}

func TestScheduleRejectsUnknownDependency(t *testing.T) {
	p := workflow.New("unknown")
	ctx, _ := p.Start(context.Background())

	ran := false
	err := p.Schedule(ctx,
		workflow.Task{Key: "a", Build: workflow.Use(workflow.Func("A", "a", func(context.Context) (any, error) {
			ran = true
			return 1, nil
		}))},
		workflow.Task{Key: "b", Requires: []string{"nowhere"}, Build: workflow.Use(constOp("B", 1))},
	)
	require.Error(t, err)
	assert.True(t, workflow.IsType(err, workflow.ErrorTypeDependency))
	assert.False(t, ran, "nothing runs when the plan is invalid")
}

func TestScheduleRejectsCycles(t *testing.T) {
	p := workflow.New("cycle")
	ctx, _ := p.Start(context.Background())

	err := p.Schedule(ctx,
		workflow.Task{Key: "a", Requires: []string{"c"}, Build: workflow.Use(constOp("A", 1))},
		workflow.Task{Key: "b", Requires: []string{"a"}, Build: workflow.Use(constOp("B", 1))},
		workflow.Task{Key: "c", Requires: []string{"b"}, Build: workflow.Use(constOp("C", 1))},
		workflow.Task{Key: "d", Build: workflow.Use(constOp("D", 1))},
	)
	require.Error(t, err)
	assert.True(t, workflow.IsType(err, workflow.ErrorTypeCycle))

	var wErr *workflow.Error
	require.True(t, errors.As(err, &wErr))
	assert.Equal(t, []string{"a", "b", "c"}, wErr.Context["tasks"])
}

func TestScheduleRejectsDuplicateKeys(t *testing.T) {
	p := workflow.New("dup")
	ctx, _ := p.Start(context.Background())

	err := p.Schedule(ctx,
		workflow.Task{Key: "a", Build: workflow.Use(constOp("A", 1))},
		workflow.Task{Key: "a", Build: workflow.Use(constOp("A", 2))},
	)
	assert.True(t, workflow.IsType(err, workflow.ErrorTypeInvalidInput))
}

func TestScheduleFailureSkipsDependentsOnly(t *testing.T) {
	p := workflow.New("failure")
	ctx, _ := p.Start(context.Background())

	boom := errors.New("upstream down")
	var independentRan atomic.Bool

	err := p.Schedule(ctx,
		workflow.Task{Key: "fetch", Build: workflow.Use(failOp("Fetch", boom))},
		workflow.Task{Key: "extract", Requires: []string{"fetch"}, Build: workflow.Use(constOp("Extract", 1))},
		workflow.Task{Key: "report", After: []string{"extract"}, Build: workflow.Use(constOp("Report", 1))},
		workflow.Task{Key: "independent", Build: workflow.Use(workflow.Func("Independent", "independent", func(context.Context) (any, error) {
			time.Sleep(10 * time.Millisecond)
			independentRan.Store(true)
			return 1, nil
		}))},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, independentRan.Load(), "independent tasks keep running")

	for _, key := range []string{"extract", "report"} {
		step, ok := p.Step(key)
		require.True(t, ok, key)
		assert.Equal(t, workflow.StepStatusSkipped, step.GetStatus(), key)
	}
	_, ok := p.Signal("independent")
	assert.True(t, ok)
}

func TestScheduleOptionalBranch(t *testing.T) {
	p := workflow.New("optional")
	ctx, _ := p.Start(context.Background())

	err := p.Schedule(ctx,
		workflow.Task{Key: "postal", Build: workflow.Use(failOp("Postal", workflow.ErrSkip))},
		workflow.Task{Key: "postal_name", Requires: []string{"postal"}, Build: workflow.Use(constOp("Name", 1))},
		workflow.Task{
			Key:   "merged",
			After: []string{"postal_name"},
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				_, has := in.Payload("postal_name")
				return constOp("Merge", workflow.Mapping{"has_postal": has}), nil
			},
		},
	)
	require.NoError(t, err, "absent optional data is not a failure")

	_, ok := p.Signal("postal_name")
	assert.False(t, ok)

	m, ok := p.Mapping("merged")
	require.True(t, ok)
	assert.Equal(t, false, m["has_postal"])
}

func TestScheduleBuildSkip(t *testing.T) {
	p := workflow.New("build-skip")
	ctx, _ := p.Start(context.Background())

	err := p.Schedule(ctx,
		workflow.Task{Key: "maybe", Build: func(workflow.Inputs) (workflow.Operation, error) {
			return nil, workflow.ErrSkip
		}},
	)
	require.NoError(t, err)
	step, ok := p.Step("maybe")
	require.True(t, ok)
	assert.Equal(t, workflow.StepStatusSkipped, step.GetStatus())
}

func TestScheduleRespectsMaxConcurrency(t *testing.T) {
	cfg := workflow.NewConfigBuilder().WithMaxConcurrency(2).Build()
	p := workflow.New("bounded", workflow.WithConfig(cfg))
	ctx, _ := p.Start(context.Background())

	var running, peak atomic.Int32
	task := func(key string) workflow.Task {
		return workflow.Task{Key: key, Build: workflow.Use(workflow.Func(key, key, func(context.Context) (any, error) {
			n := running.Add(1)
			for {
				old := peak.Load()
				if n <= old || peak.CompareAndSwap(old, n) {
					break
				}
			}
			time.Sleep(15 * time.Millisecond)
			running.Add(-1)
			return key, nil
		}))}
	}

	err := p.Schedule(ctx, task("a"), task("b"), task("c"), task("d"), task("e"))
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(2))
	assert.Equal(t, 5, p.Registry().Count())
}

func TestScheduleFailFastCancelsOutstanding(t *testing.T) {
	cfg := workflow.NewConfigBuilder().WithMaxConcurrency(1).WithFailFast(true).Build()
	p := workflow.New("failfast", workflow.WithConfig(cfg))
	ctx, _ := p.Start(context.Background())

	boom := errors.New("boom")
	err := p.Schedule(ctx,
		workflow.Task{Key: "first", Build: workflow.Use(failOp("First", boom))},
		workflow.Task{Key: "second", Build: workflow.Use(constOp("Second", 1))},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom, "the root cause wins over cancellations")
}

func TestScheduleEmpty(t *testing.T) {
	p := workflow.New("empty")
	assert.NoError(t, p.Schedule(context.Background()))
}
