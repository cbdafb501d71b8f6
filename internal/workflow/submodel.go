package workflow

import (
	"context"
)

// Workflow is the body of a process: it drives p through its steps and
// returns the terminal payload.
type Workflow func(ctx context.Context, p *Process) (any, error)

// SubModel is an Operation that runs a whole nested workflow. The nested
// process inherits the parent's configuration, logger and tracer, and its
// trace is attached to the parent's.
type SubModel struct {
	BaseOperation
	parent   *Process
	workflow Workflow
	child    *Process
}

// NewSubModel wraps wf as an operation of parent
func NewSubModel(name, description string, parent *Process, wf Workflow) *SubModel {
	return &SubModel{
		BaseOperation: NewBaseOperation(name, description),
		parent:        parent,
		workflow:      wf,
	}
}

// Run executes the nested workflow in a fresh process
func (s *SubModel) Run(ctx context.Context) (any, error) {
	opts := []Option{}
	if s.parent != nil {
		opts = append(opts,
			WithConfig(s.parent.config),
			WithLogger(s.parent.logger),
			WithTracer(s.parent.tracer),
		)
	}
	child := New(s.Name(), opts...)
	s.child = child

	ctx, err := child.Start(ctx)
	if err != nil {
		return nil, err
	}
	result, err := s.workflow(ctx, child)
	child.End(ctx, err)

	if s.parent != nil {
		s.parent.trace.Attach(child.trace)
	}
	return result, err
}

// Process returns the nested process of the last run
func (s *SubModel) Process() *Process { return s.child }
