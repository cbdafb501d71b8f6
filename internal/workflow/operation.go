package workflow

import (
	"context"
)

// Operation is a single computation step. Inputs are captured by the
// constructor; Run is called once and must not touch shared state.
type Operation interface {
	// Name identifies the operation kind, e.g. "Divide"
	Name() string

	// Description is shown in traces and diagrams
	Description() string

	// Run performs the computation
	Run(ctx context.Context) (any, error)
}

// BaseOperation provides Name and Description for Operation implementations
type BaseOperation struct {
	name        string
	description string
}

// NewBaseOperation creates a new base operation
func NewBaseOperation(name, description string) BaseOperation {
	return BaseOperation{name: name, description: description}
}

// Name returns the operation name
func (b BaseOperation) Name() string { return b.name }

// Description returns the operation description
func (b BaseOperation) Description() string { return b.description }

type funcOperation struct {
	BaseOperation
	fn func(ctx context.Context) (any, error)
}

// Func adapts a closure to the Operation interface
func Func(name, description string, fn func(ctx context.Context) (any, error)) Operation {
	return &funcOperation{
		BaseOperation: NewBaseOperation(name, description),
		fn:            fn,
	}
}

func (f *funcOperation) Run(ctx context.Context) (any, error) {
	return f.fn(ctx)
}

// Value returns an operation that yields v unchanged. Useful for wrapping
// already-resolved data as a graph step.
func Value(name, description string, v any) Operation {
	return Func(name, description, func(context.Context) (any, error) { return v, nil })
}
