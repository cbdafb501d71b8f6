// Package workflow is the small dataflow engine behind every calculation.
//
// A Process owns one run. External data enters as Signals through Input,
// Operations turn registered signals into new ones through Execute, and the
// caller reads the terminal payload with Output. Independent branches can be
// fanned out with RunParallel, which joins all of them before reporting the
// first error, or declared as Tasks and handed to Schedule, which dispatches
// each task once the signals it needs exist.
//
// Every step is logged, traced with OpenTelemetry and appended to a Trace
// that can be rendered as a Graphviz diagram.
//
// Basic usage:
//
//	p := workflow.New("sifo")
//	ctx, _ = p.Start(ctx)
//	p.Input("form", form, "household form")
//	_, err := p.Execute(ctx, "expenses", connector, "form")
//	profile := p.End(ctx, err)
package workflow
