// Package processes contains the household finance workflows: the SIFO
// expense budget, Finn listing processing, mortgage analysis, mortgage
// restructuring and the tax estimate.
//
// Each workflow is a struct embedding a *workflow.Process. Run wraps the
// form as the "skjema" input, drives the steps and returns the terminal
// payload; the accessors read individual sections back out of the
// registry afterwards.
package processes

import (
	"context"
	"fmt"

	"husholdning/internal/connectors"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// KeyForm is the registry key of the raw form every workflow starts from
const KeyForm = "skjema"

// Runner is implemented by every workflow
type Runner interface {
	Run(ctx context.Context, form any) (any, error)
	ID() string
	Name() string
	Steps() []*workflow.StepState
	Trace() *workflow.Trace
	DiagramPath() string
	Profile() workflow.Profile
}

// New creates the workflow of kind
func New(kind domain.WorkflowKind, sources connectors.Sources, opts ...workflow.Option) (Runner, error) {
	switch kind {
	case domain.WorkflowSifo:
		return NewCalculateSifoExpenses(sources, opts...), nil
	case domain.WorkflowFinn:
		return NewFinnAdvertProcessing(sources, opts...), nil
	case domain.WorkflowMortgage:
		return NewMortgageAnalysis(sources, opts...), nil
	case domain.WorkflowRestructure:
		return NewRestructureProcess(opts...), nil
	case domain.WorkflowTax:
		return NewTaxProcess(sources, opts...), nil
	default:
		return nil, workflow.NewInvalidInputError("processes", "kind", fmt.Sprintf("unknown workflow %q", kind))
	}
}

// base carries what every workflow shares
type base struct {
	*workflow.Process
	profile workflow.Profile
}

func newBase(name string, opts ...workflow.Option) base {
	return base{Process: workflow.New(name, opts...)}
}

// Profile returns the profile of the finished run
func (b *base) Profile() workflow.Profile { return b.profile }

// execute runs wf between Start and End
func (b *base) execute(ctx context.Context, form any, wf workflow.Workflow) (any, error) {
	ctx, err := b.Start(ctx)
	if err != nil {
		return nil, err
	}
	b.Input(KeyForm, form, "form")
	result, err := wf(ctx, b.Process)
	b.profile = b.End(ctx, err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ordered returns the ordered payload under key, or nil
func (b *base) ordered(key string) *workflow.OrderedMapping {
	return orderedOf(b.Process, key)
}

func orderedOf(p *workflow.Process, key string) *workflow.OrderedMapping {
	v, ok := p.Payload(key)
	if !ok {
		return nil
	}
	switch t := v.(type) {
	case *workflow.OrderedMapping:
		return t
	default:
		m, ok := workflow.AsMapping(v)
		if !ok {
			return nil
		}
		out := workflow.NewOrderedMapping()
		for _, k := range workflow.Keys(m) {
			out.Set(k, m[k])
		}
		return out
	}
}

// fetch wraps a connector as an operation
func fetch(c connectors.Connector, description string) workflow.Operation {
	return workflow.Func(c.Name(), description, func(ctx context.Context) (any, error) {
		out, err := c.Run(ctx)
		if err != nil {
			return nil, err
		}
		return out, nil
	})
}

// optional turns upstream_not_found into a skipped step
func optional(op workflow.Operation) workflow.Operation {
	return workflow.Func(op.Name(), op.Description(), func(ctx context.Context) (any, error) {
		out, err := op.Run(ctx)
		if workflow.IsType(err, workflow.ErrorTypeUpstreamNotFound) {
			return nil, fmt.Errorf("%s: %w", err.Error(), workflow.ErrSkip)
		}
		return out, err
	})
}

// payloads returns the payloads of keys in order
func payloads(in workflow.Inputs, keys ...string) ([]any, error) {
	out := make([]any, len(keys))
	for i, k := range keys {
		v, ok := in.Payload(k)
		if !ok {
			return nil, workflow.NewMissingKeyError("inputs", k)
		}
		out[i] = v
	}
	return out, nil
}

// task builds a task whose operation is made from the payloads it requires
func task(key, description string, build func(args []any) (workflow.Operation, error), requires ...string) workflow.Task {
	return workflow.Task{
		Key:         key,
		Requires:    requires,
		Description: description,
		Build: func(in workflow.Inputs) (workflow.Operation, error) {
			args, err := payloads(in, requires...)
			if err != nil {
				return nil, err
			}
			return build(args)
		},
	}
}

// as asserts the payload type a step produced
func as[T any](v any) (T, error) {
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, workflow.NewInvalidStateError(fmt.Sprintf("expected %T payload, got %T", zero, v))
	}
	return t, nil
}

// sections wraps each present payload as {key: payload} for a Multiplex
func sections(in workflow.Inputs, keys ...string) []any {
	parts := make([]any, 0, len(keys))
	for _, k := range keys {
		if v, ok := in.Payload(k); ok {
			parts = append(parts, workflow.Mapping{k: v})
		}
	}
	return parts
}
