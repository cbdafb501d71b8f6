package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Task is one node of a dependency-driven batch. Build runs once every key
// in Requires is registered and every key in After has settled; the built
// operation's result is registered under Key.
//
// A task whose Build or operation returns ErrSkip leaves Key absent. Tasks
// that Require an absent key are skipped in turn; tasks that only list it
// in After still run.
type Task struct {
	Key         string
	Requires    []string
	After       []string
	Description string
	Build       func(in Inputs) (Operation, error)
}

// Use returns a Build func for an operation that needs nothing from the registry
func Use(op Operation) func(Inputs) (Operation, error) {
	return func(Inputs) (Operation, error) { return op, nil }
}

// Inputs gives a task read access to the signals registered so far
type Inputs struct {
	p *Process
}

func (in Inputs) Signal(key string) (Signal, bool) { return in.p.Signal(key) }
func (in Inputs) Payload(key string) (any, bool)   { return in.p.Payload(key) }
func (in Inputs) Mapping(key string) (Mapping, bool) {
	return in.p.Mapping(key)
}

// Require returns the mapping registered under key or a missing_key error
func (in Inputs) Require(key string) (Mapping, error) {
	m, ok := in.p.Mapping(key)
	if !ok {
		return nil, NewMissingKeyError("inputs", key)
	}
	return m, nil
}

type nodeState int32

const (
	nodePending nodeState = iota
	nodeQueued
	nodeDone
	nodeAbsent
	nodeFailed
	nodeUpstreamFailed
)

type edge struct {
	to   *taskNode
	hard bool
}

type taskNode struct {
	task       Task
	pending    atomic.Int32
	state      atomic.Int32
	dependents []edge
	err        error
}

func (n *taskNode) inputs() []string {
	return append(append([]string{}, n.task.Requires...), n.task.After...)
}

// claim moves a pending node to next and reports whether this caller won
func (n *taskNode) claim(next nodeState) bool {
	return n.state.CompareAndSwap(int32(nodePending), int32(next))
}

type scheduler struct {
	p       *Process
	nodes   []*taskNode
	ready   chan *taskNode
	wg      sync.WaitGroup
	cancel  context.CancelFunc
	mu      sync.Mutex
	failed  []*taskNode
	started time.Time
}

// Schedule runs tasks as their dependencies become available, up to
// Config.MaxConcurrency at a time. Unknown dependencies and cycles are
// rejected before anything runs. A failing task skips everything
// downstream of it while independent tasks keep going; once every task has
// settled the first root-cause error is returned.
func (p *Process) Schedule(ctx context.Context, tasks ...Task) error {
	nodes, err := p.plan(tasks)
	if err != nil {
		p.logger.ErrorContext(ctx, "schedule_rejected", slog.String("error", err.Error()))
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s := &scheduler{
		p:       p,
		nodes:   nodes,
		ready:   make(chan *taskNode, len(nodes)),
		cancel:  cancel,
		started: time.Now(),
	}
	return s.run(runCtx)
}

// plan validates the batch and wires the dependency edges
func (p *Process) plan(tasks []Task) ([]*taskNode, error) {
	byKey := make(map[string]*taskNode, len(tasks))
	nodes := make([]*taskNode, 0, len(tasks))

	for _, t := range tasks {
		if t.Key == "" {
			return nil, NewInvalidInputError("schedule", "key", "task key is empty")
		}
		if t.Build == nil {
			return nil, NewInvalidInputError("schedule", t.Key, "task has no Build func")
		}
		if _, dup := byKey[t.Key]; dup {
			return nil, NewInvalidInputError("schedule", t.Key, "duplicate task key")
		}
		n := &taskNode{task: t}
		byKey[t.Key] = n
		nodes = append(nodes, n)
	}

	link := func(n *taskNode, dep string, hard bool) error {
		if dep == n.task.Key {
			return NewCycleError([]string{dep})
		}
		parent, ok := byKey[dep]
		if !ok {
			if p.registry.Has(dep) {
				return nil
			}
			return NewDependencyError(n.task.Key, dep, fmt.Sprintf("no signal or task produces %q", dep))
		}
		parent.dependents = append(parent.dependents, edge{to: n, hard: hard})
		n.pending.Add(1)
		return nil
	}

	for _, n := range nodes {
		for _, dep := range n.task.Requires {
			if err := link(n, dep, true); err != nil {
				return nil, err
			}
		}
		for _, dep := range n.task.After {
			if err := link(n, dep, false); err != nil {
				return nil, err
			}
		}
	}

	if cycle := findCycle(nodes); len(cycle) > 0 {
		return nil, NewCycleError(cycle)
	}
	return nodes, nil
}

// findCycle runs Kahn's algorithm and returns the keys left unprocessed
func findCycle(nodes []*taskNode) []string {
	inDegree := make(map[*taskNode]int, len(nodes))
	for _, n := range nodes {
		inDegree[n] = int(n.pending.Load())
	}

	queue := make([]*taskNode, 0, len(nodes))
	for _, n := range nodes {
		if inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	processed := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		processed++
		for _, e := range current.dependents {
			inDegree[e.to]--
			if inDegree[e.to] == 0 {
				queue = append(queue, e.to)
			}
		}
	}

	if processed == len(nodes) {
		return nil
	}
	var stuck []string
	for n, d := range inDegree {
		if d > 0 {
			stuck = append(stuck, n.task.Key)
		}
	}
	sort.Strings(stuck)
	return stuck
}

func (s *scheduler) run(ctx context.Context) error {
	workers := s.p.config.MaxConcurrency
	if workers < 1 {
		workers = 1
	}
	if workers > len(s.nodes) {
		workers = len(s.nodes)
	}

	s.wg.Add(len(s.nodes))
	roots := 0
	for _, n := range s.nodes {
		if n.pending.Load() == 0 && n.claim(nodeQueued) {
			s.ready <- n
			roots++
		}
	}

	s.p.logger.DebugContext(ctx, "schedule_start",
		slog.Int("tasks", len(s.nodes)),
		slog.Int("roots", roots),
		slog.Int("workers", workers))

	for i := 0; i < workers; i++ {
		go s.worker(ctx)
	}

	s.wg.Wait()
	close(s.ready)

	return s.result(ctx)
}

func (s *scheduler) worker(ctx context.Context) {
	for n := range s.ready {
		s.execute(ctx, n)
		s.wg.Done()
	}
}

func (s *scheduler) execute(ctx context.Context, n *taskNode) {
	if err := ctx.Err(); err != nil {
		n.err = NewCancellationError(n.task.Key, err)
		n.state.Store(int32(nodeFailed))
		s.p.skipStep(ctx, n.task.Key, "cancelled", n.inputs())
		s.recordFailure(n)
		s.propagate(ctx, n, nodeFailed)
		return
	}

	op, buildErr := n.task.Build(Inputs{p: s.p})
	if buildErr == nil && op == nil {
		buildErr = NewInvalidStateError(fmt.Sprintf("task %s built no operation", n.task.Key))
	}
	if buildErr != nil {
		op = Func("Build", n.task.Description, func(context.Context) (any, error) { return nil, buildErr })
	}

	_, err := s.p.run(ctx, n.task.Key, op, n.inputs())
	switch {
	case err == nil:
		n.state.Store(int32(nodeDone))
		s.propagate(ctx, n, nodeDone)
	case errors.Is(err, ErrSkip):
		n.state.Store(int32(nodeAbsent))
		s.propagate(ctx, n, nodeAbsent)
	default:
		n.err = err
		n.state.Store(int32(nodeFailed))
		s.recordFailure(n)
		if s.p.config.FailFast {
			s.cancel()
		}
		s.propagate(ctx, n, nodeFailed)
	}
}

// propagate settles the dependents of n according to its outcome
func (s *scheduler) propagate(ctx context.Context, n *taskNode, outcome nodeState) {
	for _, e := range n.dependents {
		switch {
		case outcome == nodeDone, outcome == nodeAbsent && !e.hard:
			if e.to.pending.Add(-1) == 0 && e.to.claim(nodeQueued) {
				s.ready <- e.to
			}
		case outcome == nodeAbsent:
			s.settle(ctx, e.to, nodeAbsent, fmt.Sprintf("requires %q which is absent", n.task.Key))
		default:
			s.settle(ctx, e.to, nodeUpstreamFailed, fmt.Sprintf("upstream %q failed", n.task.Key))
		}
	}
}

// settle finalizes a node that will not run and carries the outcome on
func (s *scheduler) settle(ctx context.Context, n *taskNode, outcome nodeState, reason string) {
	if !n.claim(outcome) {
		return
	}
	s.p.skipStep(ctx, n.task.Key, reason, n.inputs())
	s.wg.Done()

	next := outcome
	if outcome == nodeUpstreamFailed {
		next = nodeFailed
	}
	s.propagate(ctx, n, next)
}

func (s *scheduler) recordFailure(n *taskNode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, n)
}

// result picks the first failure that is not a side effect of cancellation
func (s *scheduler) result(ctx context.Context) error {
	s.mu.Lock()
	failed := append([]*taskNode(nil), s.failed...)
	s.mu.Unlock()

	counts := make(map[nodeState]int)
	for _, n := range s.nodes {
		counts[nodeState(n.state.Load())]++
	}
	s.p.logger.DebugContext(ctx, "schedule_complete",
		slog.Int("done", counts[nodeDone]),
		slog.Int("absent", counts[nodeAbsent]),
		slog.Int("failed", counts[nodeFailed]),
		slog.Int("upstream_failed", counts[nodeUpstreamFailed]),
		slog.Duration("duration", time.Since(s.started)))

	if len(failed) == 0 {
		return nil
	}

	var (
		rootCause error
		keys      []string
	)
	for _, n := range failed {
		if IsType(n.err, ErrorTypeCancellation) {
			continue
		}
		keys = append(keys, n.task.Key)
		if rootCause == nil {
			rootCause = n.err
		}
	}
	if rootCause == nil {
		return failed[0].err
	}
	if len(keys) == 1 {
		return rootCause
	}
	return fmt.Errorf("tasks failed (%s): %w", strings.Join(keys, ", "), rootCause)
}

// skipStep records a step that never ran
func (p *Process) skipStep(ctx context.Context, key, reason string, inputs []string) {
	step := NewStepState(key, "")
	step.Skip(reason)
	p.addStep(step)
	p.notify(step)
	p.trace.Record(Event{
		Kind:    EventSkip,
		Node:    key,
		Inputs:  inputs,
		Summary: reason,
	})
	p.logger.DebugContext(ctx, "task_skipped",
		slog.String("step", key),
		slog.String("reason", reason))
}
