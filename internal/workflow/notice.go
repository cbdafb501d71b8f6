package workflow

import (
	"context"
	"log/slog"
)

// NoticeZeroDenominator is reported when a division replaced a zero denominator with one
const NoticeZeroDenominator = "zero_denominator_substituted"

// Notice is an observable condition raised by an operation that did not
// change its result.
type Notice struct {
	Event   string
	Message string
	Attrs   []slog.Attr
}

// Reporter receives notices raised by a running operation
type Reporter func(ctx context.Context, n Notice)

type reporterKey struct{}

// WithReporter returns a context whose operations report notices to r
func WithReporter(ctx context.Context, r Reporter) context.Context {
	return context.WithValue(ctx, reporterKey{}, r)
}

// Report raises a notice from inside an operation. Outside a process the
// notice goes to the default logger.
func Report(ctx context.Context, n Notice) {
	if r, ok := ctx.Value(reporterKey{}).(Reporter); ok && r != nil {
		r(ctx, n)
		return
	}
	args := make([]any, 0, len(n.Attrs)+1)
	args = append(args, slog.String("message", n.Message))
	for _, a := range n.Attrs {
		args = append(args, a)
	}
	slog.Default().WarnContext(ctx, n.Event, args...)
}
