package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// StepUpdate is delivered to observers whenever a step changes status
type StepUpdate struct {
	ProcessID string     `json:"process_id"`
	Process   string     `json:"process"`
	Key       string     `json:"key"`
	Operation string     `json:"operation"`
	Status    StepStatus `json:"status"`
	Error     string     `json:"error,omitempty"`
	Time      time.Time  `json:"time"`
}

// Observer receives step updates. It is called from worker goroutines and
// must not block.
type Observer func(StepUpdate)

// Option configures a Process
type Option func(*Process)

// WithConfig sets the execution configuration
func WithConfig(cfg *Config) Option {
	return func(p *Process) {
		if cfg != nil {
			p.config = cfg
		}
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) Option {
	return func(p *Process) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithTracer enables OpenTelemetry spans and metrics
func WithTracer(t *Tracer) Option {
	return func(p *Process) { p.tracer = t }
}

// WithID overrides the generated process id
func WithID(id string) Option {
	return func(p *Process) {
		if id != "" {
			p.id = id
		}
	}
}

// WithObserver registers a step observer
func WithObserver(o Observer) Option {
	return func(p *Process) { p.observer = o }
}

// Process owns one workflow run: its signal registry, its step states and
// its trace. A Process is not reused across runs.
type Process struct {
	id       string
	name     string
	config   *Config
	logger   *slog.Logger
	tracer   *Tracer
	observer Observer

	registry *SignalRegistry
	trace    *Trace

	mu          sync.RWMutex
	status      ProcessStatus
	steps       map[string]*StepState
	stepOrder   []string
	started     time.Time
	span        trace.Span
	err         error
	diagramPath string
}

// New creates a process in the created state
func New(name string, opts ...Option) *Process {
	p := &Process{
		id:       uuid.NewString(),
		name:     name,
		config:   NewConfig(),
		logger:   slog.Default(),
		registry: NewSignalRegistry(),
		trace:    NewTrace(name),
		status:   ProcessStatusCreated,
		steps:    make(map[string]*StepState),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(
		slog.String("process", p.name),
		slog.String("process_id", p.id),
	)
	return p
}

func (p *Process) ID() string           { return p.id }
func (p *Process) Name() string         { return p.name }
func (p *Process) Config() *Config      { return p.config }
func (p *Process) Logger() *slog.Logger { return p.logger }
func (p *Process) Trace() *Trace        { return p.trace }
func (p *Process) Registry() *SignalRegistry {
	return p.registry
}

// Status returns the lifecycle state
func (p *Process) Status() ProcessStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Err returns the error the process failed with, if any
func (p *Process) Err() error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.err
}

// DiagramPath returns the path of the diagram written by End, if any
func (p *Process) DiagramPath() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.diagramPath
}

// Start moves the process to running and opens its span. The returned
// context carries the span and should be used for the rest of the run.
func (p *Process) Start(ctx context.Context) (context.Context, error) {
	p.mu.Lock()
	if p.status != ProcessStatusCreated {
		status := p.status
		p.mu.Unlock()
		return ctx, NewInvalidStateError(fmt.Sprintf("process %s already %s", p.name, status))
	}
	p.status = ProcessStatusRunning
	p.started = time.Now()
	p.mu.Unlock()

	ctx, span := p.tracer.StartProcess(ctx, p.name, p.id)
	p.mu.Lock()
	p.span = span
	p.mu.Unlock()

	p.logStart(ctx)
	return ctx, nil
}

// End closes the run. A nil err completes the process, anything else marks
// it failed. The returned profile has one row per step in start order.
func (p *Process) End(ctx context.Context, err error) Profile {
	p.mu.Lock()
	if err != nil {
		p.status = ProcessStatusFailed
		p.err = err
	} else {
		p.status = ProcessStatusCompleted
	}
	started := p.started
	if started.IsZero() {
		started = time.Now()
	}
	elapsed := time.Since(started)
	span := p.span
	status := p.status
	p.mu.Unlock()

	if span != nil {
		p.tracer.EndProcess(ctx, span, p.name, elapsed, err)
	}

	profile := Profile{
		Process: p.name,
		ID:      p.id,
		Status:  status,
		Started: started,
		Elapsed: elapsed,
	}
	for _, step := range p.Steps() {
		profile.Rows = append(profile.Rows, ProfileRow{
			Key:       step.Key,
			Operation: step.Operation,
			Status:    step.GetStatus(),
			Duration:  step.Duration(),
		})
	}

	if p.config.EnableDiagrams {
		path, dErr := p.WriteDiagram(p.config.DiagramDir)
		if dErr != nil {
			p.logger.WarnContext(ctx, "diagram_write_failed", slog.String("error", dErr.Error()))
		} else {
			p.logger.DebugContext(ctx, "diagram_written", slog.String("path", path))
		}
	}

	p.logEnd(ctx, profile, err)
	return profile
}

// WriteDiagram writes the DOT diagram of the run into dir
func (p *Process) WriteDiagram(dir string) (string, error) {
	path, err := p.trace.WriteDOT(dir, fmt.Sprintf("%s-%s", p.name, p.id))
	if err != nil {
		return "", err
	}
	p.mu.Lock()
	p.diagramPath = path
	p.mu.Unlock()
	return path, nil
}

// AddSignal registers sig under key. Re-registering a key replaces the
// earlier signal.
func (p *Process) AddSignal(key string, sig Signal) {
	if replaced := p.registry.Put(key, sig); replaced {
		p.logger.Debug("signal_overwritten", slog.String("key", key))
	}
}

// Signal returns the signal registered under key
func (p *Process) Signal(key string) (Signal, bool) {
	return p.registry.Get(key)
}

// Payload returns the payload registered under key
func (p *Process) Payload(key string) (any, bool) {
	sig, ok := p.registry.Get(key)
	if !ok {
		return nil, false
	}
	return sig.payload, true
}

// Mapping returns the payload registered under key as a Mapping. A missing
// key or a payload of another shape reports false.
func (p *Process) Mapping(key string) (Mapping, bool) {
	sig, ok := p.registry.Get(key)
	if !ok {
		return nil, false
	}
	return AsMapping(sig.payload)
}

// Input wraps external data as the signal key
func (p *Process) Input(key string, payload any, description string, opts ...SignalOption) Signal {
	sig := NewSignal(payload, description, opts...)
	p.AddSignal(key, sig)
	p.trace.Record(Event{
		Kind:        EventInput,
		Node:        key,
		Description: description,
		Summary:     summarize(payload, sig.options),
		Options:     sig.options,
	})
	return sig
}

// Output returns the payload of the terminal signal key
func (p *Process) Output(key string) (any, error) {
	sig, ok := p.registry.Get(key)
	if !ok {
		return nil, NewMissingKeyError("output", key)
	}
	p.trace.Record(Event{
		Kind:        EventOutput,
		Node:        "output",
		Description: "output",
		Inputs:      []string{key},
		Options:     RenderOptions{Style: "filled", Color: "lightblue"},
	})
	return sig.payload, nil
}

// Execute runs op directly and registers its result under key. Errors
// propagate immediately; ErrSkip is returned unchanged.
func (p *Process) Execute(ctx context.Context, key string, op Operation, inputs ...string) (Signal, error) {
	return p.run(ctx, key, op, inputs)
}

// Steps returns the step states in start order
func (p *Process) Steps() []*StepState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*StepState, 0, len(p.stepOrder))
	for _, key := range p.stepOrder {
		out = append(out, p.steps[key])
	}
	return out
}

// Step returns the state of the step stored under key
func (p *Process) Step(key string) (*StepState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s, ok := p.steps[key]
	return s, ok
}

func (p *Process) addStep(step *StepState) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.steps[step.Key]; !exists {
		p.stepOrder = append(p.stepOrder, step.Key)
	}
	p.steps[step.Key] = step
}

func (p *Process) notify(step *StepState) {
	if p.observer == nil {
		return
	}
	update := StepUpdate{
		ProcessID: p.id,
		Process:   p.name,
		Key:       step.Key,
		Operation: step.Operation,
		Status:    step.GetStatus(),
		Time:      time.Now(),
	}
	if step.Error != nil {
		update.Error = step.Error.Error()
	}
	p.observer(update)
}

// reporter binds operation notices to the step stored under key
func (p *Process) reporter(key string) Reporter {
	return func(ctx context.Context, n Notice) {
		args := []any{slog.String("step", key), slog.String("message", n.Message)}
		for _, a := range n.Attrs {
			args = append(args, a)
		}
		p.logger.WarnContext(ctx, n.Event, args...)
		p.trace.Notice(key, n.Message)
		if n.Event == NoticeZeroDenominator {
			p.tracer.RecordZeroDenominator(ctx, key)
		}
	}
}

func (p *Process) run(ctx context.Context, key string, op Operation, inputs []string) (Signal, error) {
	step := NewStepState(key, op.Name())
	p.addStep(step)

	if err := ctx.Err(); err != nil {
		cErr := NewCancellationError(key, err)
		step.Fail(cErr)
		p.notify(step)
		return Signal{}, cErr
	}

	step.Start()
	p.notify(step)

	opCtx, span := p.tracer.StartOperation(ctx, key, op.Name())
	if timeout := p.config.GetOperationTimeout(key); timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(opCtx, timeout)
		defer cancel()
	}
	opCtx = WithReporter(opCtx, p.reporter(key))

	start := time.Now()
	result, err := runSafely(opCtx, op)
	elapsed := time.Since(start)

	switch {
	case errors.Is(err, ErrSkip):
		step.Skip(err.Error())
		p.notify(step)
		p.tracer.EndOperation(ctx, span, op.Name(), elapsed, StepStatusSkipped, nil)
		p.trace.Record(Event{
			Kind:      EventSkip,
			Node:      key,
			Operation: op.Name(),
			Inputs:    inputs,
			Duration:  elapsed,
		})
		p.logger.DebugContext(ctx, "operation_skipped",
			slog.String("step", key),
			slog.String("operation", op.Name()))
		return Signal{}, err

	case err != nil:
		if errors.Is(err, context.Canceled) && !IsType(err, ErrorTypeCancellation) {
			err = NewCancellationError(key, err)
		} else {
			err = WrapError(err, key)
		}
		step.Fail(err)
		p.notify(step)
		p.tracer.EndOperation(ctx, span, op.Name(), elapsed, StepStatusFailed, err)
		p.trace.Record(Event{
			Kind:      EventFailure,
			Node:      key,
			Operation: op.Name(),
			Inputs:    inputs,
			Duration:  elapsed,
			Error:     err.Error(),
		})
		p.logger.ErrorContext(ctx, "operation_failed",
			slog.String("step", key),
			slog.String("operation", op.Name()),
			slog.String("error_type", string(GetErrorType(err))),
			slog.String("error", err.Error()))
		return Signal{}, err
	}

	sig := NewSignal(result, op.Description())
	p.AddSignal(key, sig)
	step.Complete()
	p.notify(step)
	p.tracer.EndOperation(ctx, span, op.Name(), elapsed, StepStatusCompleted, nil)

	kind := EventOperation
	if _, ok := op.(*SubModel); ok {
		kind = EventSubModel
	}
	p.trace.Record(Event{
		Kind:        kind,
		Node:        key,
		Operation:   op.Name(),
		Description: op.Description(),
		Inputs:      inputs,
		Summary:     summarize(result, sig.options),
		Duration:    elapsed,
		Options:     sig.options,
	})
	p.logger.DebugContext(ctx, "operation_completed",
		slog.String("step", key),
		slog.String("operation", op.Name()),
		slog.Duration("duration", elapsed))
	return sig, nil
}

// runSafely turns a panicking operation into an execution error
func runSafely(ctx context.Context, op Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation %s panicked: %v", op.Name(), r)
		}
	}()
	return op.Run(ctx)
}

func (p *Process) logStart(ctx context.Context) {
	p.logger.InfoContext(ctx, "process_start")
}

func (p *Process) logEnd(ctx context.Context, profile Profile, err error) {
	if err != nil {
		p.logger.ErrorContext(ctx, "process_failed",
			slog.Duration("duration", profile.Elapsed),
			slog.Int("steps", len(profile.Rows)),
			slog.String("error_type", string(GetErrorType(err))),
			slog.String("error", err.Error()))
		return
	}
	p.logger.InfoContext(ctx, "process_profile",
		slog.Duration("duration", profile.Elapsed),
		slog.Int("steps", len(profile.Rows)),
		slog.Int("signals", p.registry.Count()))
}
