package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"husholdning/internal/config"
	"husholdning/internal/connectors"
	"husholdning/internal/infrastructure"
	"husholdning/internal/processes"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
	"husholdning/pkg/contracts/events"
)

// EventPublisher receives workflow progress. The WebSocket hub implements it.
type EventPublisher interface {
	PublishStep(event events.StepEvent, traceID string)
	PublishResult(event events.ResultEvent, traceID string)
}

// WorkflowService runs the household workflows, keeps their results and
// reports progress to an EventPublisher.
type WorkflowService struct {
	sources    connectors.Sources
	store      *ResultStore
	cfg        config.WorkflowConfig
	diagramDir string
	publisher  EventPublisher
	tracer     *workflow.Tracer
	metrics    *infrastructure.BusinessMetrics
	logger     *slog.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
}

// WorkflowServiceOption configures a WorkflowService
type WorkflowServiceOption func(*WorkflowService)

// WithPublisher sends step and result events to p
func WithPublisher(p EventPublisher) WorkflowServiceOption {
	return func(s *WorkflowService) { s.publisher = p }
}

// WithTracer instruments every process run
func WithTracer(t *workflow.Tracer) WorkflowServiceOption {
	return func(s *WorkflowService) { s.tracer = t }
}

// WithMetrics records run counts and durations
func WithMetrics(m *infrastructure.BusinessMetrics) WorkflowServiceOption {
	return func(s *WorkflowService) { s.metrics = m }
}

// WithDiagramDir sets where DOT diagrams are written when enabled
func WithDiagramDir(dir string) WorkflowServiceOption {
	return func(s *WorkflowService) { s.diagramDir = dir }
}

// NewWorkflowService creates the service
func NewWorkflowService(sources connectors.Sources, store *ResultStore, cfg config.WorkflowConfig, logger *slog.Logger, opts ...WorkflowServiceOption) *WorkflowService {
	ctx, cancel := context.WithCancel(context.Background())
	s := &WorkflowService{
		sources:    sources,
		store:      store,
		cfg:        cfg,
		diagramDir: config.DefaultDiagramDir,
		logger:     infrastructure.WithComponent(logger, "workflow_service"),
		baseCtx:    ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes the workflow of kind synchronously. The returned result is
// stored either way; err carries the workflow error of a failed run.
func (s *WorkflowService) Run(ctx context.Context, kind domain.WorkflowKind, form any) (domain.Result, error) {
	result, err := s.begin(ctx, kind)
	if err != nil {
		return domain.Result{}, err
	}
	defer s.wg.Done()
	return s.execute(ctx, result, form)
}

// Start executes the workflow of kind in the background and returns the
// running result at once. Progress is published as the run advances.
func (s *WorkflowService) Start(ctx context.Context, kind domain.WorkflowKind, form any) (domain.Result, error) {
	result, err := s.begin(ctx, kind)
	if err != nil {
		return domain.Result{}, err
	}

	traceID := infrastructure.GetTraceID(ctx)
	go func() {
		defer s.wg.Done()
		runCtx := infrastructure.WithTraceID(s.baseCtx, traceID)
		_, _ = s.execute(runCtx, result, form)
	}()
	return result, nil
}

// Get returns the stored result with id
func (s *WorkflowService) Get(id string) (domain.Result, error) {
	result, ok := s.store.Get(id)
	if !ok {
		return domain.Result{}, ErrResultNotFound
	}
	return result, nil
}

// Completed returns the stored result with id once it has finished
func (s *WorkflowService) Completed(id string) (domain.Result, error) {
	result, err := s.Get(id)
	if err != nil {
		return result, err
	}
	if result.Status == domain.ResultStatusRunning {
		return result, ErrResultPending
	}
	return result, nil
}

// List returns the stored results, newest first
func (s *WorkflowService) List() []domain.Result {
	return s.store.List()
}

// Diagram returns the DOT diagram of a finished run
func (s *WorkflowService) Diagram(id string) (string, error) {
	result, err := s.Completed(id)
	if err != nil {
		return "", err
	}
	if result.Diagram == "" {
		return "", ErrNoDiagram
	}
	return result.Diagram, nil
}

// Shutdown cancels background runs and waits for them to finish
func (s *WorkflowService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *WorkflowService) begin(ctx context.Context, kind domain.WorkflowKind) (domain.Result, error) {
	if !kind.Valid() {
		return domain.Result{}, ErrUnknownWorkflow
	}
	// registered with wg under mu so Shutdown never waits on an unseen run
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.Result{}, ErrShuttingDown
	}
	s.wg.Add(1)
	s.mu.Unlock()

	result := domain.Result{
		ID:        uuid.NewString(),
		Kind:      kind,
		Status:    domain.ResultStatusRunning,
		CreatedAt: time.Now().UTC(),
	}
	s.store.Put(ctx, result)
	return result, nil
}

func (s *WorkflowService) processConfig() *workflow.Config {
	return workflow.NewConfigBuilder().
		WithMaxConcurrency(s.cfg.MaxConcurrency).
		WithOperationTimeout(s.cfg.OperationTimeout).
		WithDiagrams(s.cfg.EnableDiagrams, s.diagramDir).
		WithFailFast(s.cfg.FailFast).
		Build()
}

func (s *WorkflowService) execute(ctx context.Context, result domain.Result, form any) (domain.Result, error) {
	kind := string(result.Kind)
	ctx = infrastructure.WithProcess(ctx, result.ID, kind)
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}
	traceID := infrastructure.GetTraceID(ctx)

	runner, err := processes.New(result.Kind, s.sources,
		workflow.WithID(result.ID),
		workflow.WithConfig(s.processConfig()),
		workflow.WithLogger(s.logger),
		workflow.WithTracer(s.tracer),
		workflow.WithObserver(s.observer(result, traceID)),
	)
	if err != nil {
		return s.finish(ctx, result, nil, nil, err, traceID)
	}

	infrastructure.RecordActiveWorkflowChange(ctx, s.metrics, 1, kind)
	payload, runErr := runner.Run(ctx, form)
	infrastructure.RecordActiveWorkflowChange(ctx, s.metrics, -1, kind)

	return s.finish(ctx, result, runner, payload, runErr, traceID)
}

func (s *WorkflowService) finish(ctx context.Context, result domain.Result, runner processes.Runner, payload any, runErr error, traceID string) (domain.Result, error) {
	completed := time.Now().UTC()
	result.CompletedAt = &completed
	result.Elapsed = completed.Sub(result.CreatedAt)
	result.Status = domain.ResultStatusCompleted
	result.Payload = payload

	if runner != nil {
		profile := runner.Profile()
		if profile.Elapsed > 0 {
			result.Elapsed = profile.Elapsed
		}
		for _, row := range profile.Rows {
			result.Steps = append(result.Steps, domain.StepSnapshot{
				Key:       row.Key,
				Operation: row.Operation,
				Status:    string(row.Status),
				Duration:  row.Duration,
			})
		}
		if t := runner.Trace(); t != nil {
			result.Diagram = t.DOT()
		}
	}

	var errorType string
	if runErr != nil {
		errorType = string(workflow.GetErrorType(runErr))
		result.Status = domain.ResultStatusFailed
		result.Payload = nil
		result.Error = runErr.Error()
		result.ErrorType = errorType
		infrastructure.RecordError(ctx, runErr)
	}
	s.store.Put(ctx, result)

	infrastructure.RecordWorkflowRun(ctx, s.metrics, string(result.Kind), result.Elapsed, errorType)
	if s.publisher != nil {
		s.publisher.PublishResult(events.ResultEvent{
			ResultID:  result.ID,
			Kind:      string(result.Kind),
			Status:    string(result.Status),
			Error:     result.Error,
			ErrorType: errorType,
			Elapsed:   result.Elapsed,
		}, traceID)
	}

	attrs := []slog.Attr{
		slog.String("result_id", result.ID),
		slog.String("workflow", string(result.Kind)),
		slog.Duration("elapsed", result.Elapsed),
		slog.Int("steps", len(result.Steps)),
	}
	if runErr != nil {
		s.logger.LogAttrs(ctx, slog.LevelWarn, "workflow_failed",
			append(attrs, slog.String("error_type", errorType), slog.String("error", runErr.Error()))...)
	} else {
		s.logger.LogAttrs(ctx, slog.LevelInfo, "workflow_completed", attrs...)
	}
	return result, runErr
}

// observer forwards step updates to the publisher
func (s *WorkflowService) observer(result domain.Result, traceID string) workflow.Observer {
	if s.publisher == nil {
		return nil
	}
	return func(u workflow.StepUpdate) {
		s.publisher.PublishStep(events.StepEvent{
			ResultID:  result.ID,
			Kind:      string(result.Kind),
			Process:   u.Process,
			Key:       u.Key,
			Operation: u.Operation,
			Status:    string(u.Status),
			Error:     u.Error,
			Time:      u.Time,
		}, traceID)
	}
}
