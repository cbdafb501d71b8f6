package workflow

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	TracerName = "husholdning.workflow"
)

// Tracer provides OpenTelemetry instrumentation for process runs.
// A nil *Tracer is valid and records nothing.
type Tracer struct {
	tracer trace.Tracer

	processesTotal    metric.Int64Counter
	processDuration   metric.Float64Histogram
	operationsTotal   metric.Int64Counter
	operationDuration metric.Float64Histogram
	zeroDenominators  metric.Int64Counter
}

// NewTracer creates a tracer. A nil meter falls back to the global provider.
func NewTracer(meter metric.Meter) (*Tracer, error) {
	if meter == nil {
		meter = otel.GetMeterProvider().Meter(TracerName)
	}

	t := &Tracer{tracer: otel.Tracer(TracerName)}

	var err error
	if t.processesTotal, err = meter.Int64Counter(
		"workflow_processes_total",
		metric.WithDescription("Total number of workflow process runs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create process counter: %w", err)
	}
	if t.processDuration, err = meter.Float64Histogram(
		"workflow_process_duration_seconds",
		metric.WithDescription("Workflow process duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create process histogram: %w", err)
	}
	if t.operationsTotal, err = meter.Int64Counter(
		"workflow_operations_total",
		metric.WithDescription("Total number of operation runs"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}
	if t.operationDuration, err = meter.Float64Histogram(
		"workflow_operation_duration_seconds",
		metric.WithDescription("Operation duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operation histogram: %w", err)
	}
	if t.zeroDenominators, err = meter.Int64Counter(
		"workflow_zero_denominator_substitutions_total",
		metric.WithDescription("Divisions where a zero denominator was replaced by one"),
	); err != nil {
		return nil, fmt.Errorf("failed to create zero denominator counter: %w", err)
	}

	return t, nil
}

// StartProcess opens the span covering a whole process run
func (t *Tracer) StartProcess(ctx context.Context, name, id string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "workflow.process."+name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("process.name", name),
			attribute.String("process.id", id),
		),
	)
}

// EndProcess closes the process span and records metrics
func (t *Tracer) EndProcess(ctx context.Context, span trace.Span, name string, elapsed time.Duration, err error) {
	if t == nil {
		return
	}
	status := string(ProcessStatusCompleted)
	if err != nil {
		status = string(ProcessStatusFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "process completed")
	}
	span.End()

	attrs := metric.WithAttributes(
		attribute.String("process", name),
		attribute.String("status", status),
	)
	t.processesTotal.Add(ctx, 1, attrs)
	t.processDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// StartOperation opens a span for one operation
func (t *Tracer) StartOperation(ctx context.Context, key, operation string) (context.Context, trace.Span) {
	if t == nil {
		return ctx, noop.Span{}
	}
	return t.tracer.Start(ctx, "workflow.operation."+operation,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("operation.key", key),
			attribute.String("operation.name", operation),
		),
	)
}

// EndOperation closes the operation span and records metrics
func (t *Tracer) EndOperation(ctx context.Context, span trace.Span, operation string, elapsed time.Duration, status StepStatus, err error) {
	if t == nil {
		return
	}
	if err != nil && status == StepStatusFailed {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.SetAttributes(attribute.String("operation.status", string(status)))
	span.End()

	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", string(status)),
	)
	t.operationsTotal.Add(ctx, 1, attrs)
	t.operationDuration.Record(ctx, elapsed.Seconds(), attrs)
}

// RecordZeroDenominator counts a zero-denominator substitution
func (t *Tracer) RecordZeroDenominator(ctx context.Context, step string) {
	if t == nil {
		return
	}
	trace.SpanFromContext(ctx).AddEvent("zero_denominator_substituted",
		trace.WithAttributes(attribute.String("step", step)))
	t.zeroDenominators.Add(ctx, 1, metric.WithAttributes(attribute.String("step", step)))
}
