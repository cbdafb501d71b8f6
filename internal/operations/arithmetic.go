package operations

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"husholdning/internal/workflow"
)

// Divide divides every value of the numerator by a single-valued
// denominator. A zero denominator is replaced by one and reported.
type Divide struct {
	workflow.BaseOperation
	numerator   any
	denominator any
	format      Format
}

// NewDivide creates a Divide
func NewDivide(description string, numerator, denominator any, format Format) *Divide {
	return &Divide{
		BaseOperation: workflow.NewBaseOperation("Divide", description),
		numerator:     numerator,
		denominator:   denominator,
		format:        format,
	}
}

func (d *Divide) Run(ctx context.Context) (any, error) {
	num, err := parseNumbers(d.Name(), "numerator", d.numerator)
	if err != nil {
		return nil, err
	}
	den, err := parseNumbers(d.Name(), "denominator", d.denominator)
	if err != nil {
		return nil, err
	}
	denKey, divisor, ok := den.single()
	if !ok {
		return nil, workflow.NewInvalidInputError(d.Name(), "denominator",
			fmt.Sprintf("expected exactly one value, got %d", len(den.keys)))
	}
	divisor = nonZero(ctx, d.Name(), denKey, divisor)

	out := workflow.NewOrderedMapping()
	for _, k := range num.keys {
		out.Set(d.format.key(k), d.format.Render(d.format.quotient(num.values[k], divisor)))
	}
	return out, nil
}

// nonZero returns d, or one when d is zero. The substitution is reported
// so it shows up in logs and diagrams.
func nonZero(ctx context.Context, step, key string, d decimal.Decimal) decimal.Decimal {
	if !d.IsZero() {
		return d
	}
	workflow.Report(ctx, workflow.Notice{
		Event:   workflow.NoticeZeroDenominator,
		Message: fmt.Sprintf("%s: denominator %q is zero, dividing by 1", step, key),
		Attrs:   []slog.Attr{slog.String("denominator", key)},
	})
	return decimal.NewFromInt(1)
}

// Multiply multiplies a mapping by a single-valued factor mapping, or key by
// key when both sides carry several values.
type Multiply struct {
	workflow.BaseOperation
	data   any
	factor any
	format Format
}

// NewMultiply creates a Multiply
func NewMultiply(description string, data, factor any, format Format) *Multiply {
	return &Multiply{
		BaseOperation: workflow.NewBaseOperation("Multiply", description),
		data:          data,
		factor:        factor,
		format:        format,
	}
}

func (m *Multiply) Run(context.Context) (any, error) {
	left, err := parseNumbers(m.Name(), "data", m.data)
	if err != nil {
		return nil, err
	}
	right, err := parseNumbers(m.Name(), "factor", m.factor)
	if err != nil {
		return nil, err
	}

	out := workflow.NewOrderedMapping()
	if _, scalar, ok := right.single(); ok {
		for _, k := range left.keys {
			out.Set(m.format.key(k), m.format.Render(left.values[k].Mul(scalar)))
		}
		return out, nil
	}
	for _, k := range left.keys {
		f, ok := right.values[k]
		if !ok {
			return nil, workflow.NewMissingKeyError(m.Name(), k)
		}
		out.Set(m.format.key(k), m.format.Render(left.values[k].Mul(f)))
	}
	return out, nil
}

// Factor multiplies every value of a mapping by a constant, e.g. twelve to
// turn monthly amounts into yearly ones.
type Factor struct {
	workflow.BaseOperation
	data   any
	factor decimal.Decimal
	format Format
}

// NewFactor creates a Factor
func NewFactor(description string, data any, factor decimal.Decimal, format Format) *Factor {
	return &Factor{
		BaseOperation: workflow.NewBaseOperation("Factor", description),
		data:          data,
		factor:        factor,
		format:        format,
	}
}

func (f *Factor) Run(context.Context) (any, error) {
	values, err := parseNumbers(f.Name(), "data", f.data)
	if err != nil {
		return nil, err
	}
	out := workflow.NewOrderedMapping()
	for _, k := range values.keys {
		out.Set(f.format.key(k), f.format.Render(values.values[k].Mul(f.factor)))
	}
	return out, nil
}

// Addition sums mappings. By default every value of every mapping goes into
// one total; keywise addition sums matching keys instead, treating missing
// keys as zero.
type Addition struct {
	workflow.BaseOperation
	parts    []any
	format   Format
	keywise  bool
	totalKey string
}

// NewAddition sums all values into {"totalt": sum}
func NewAddition(description string, format Format, parts ...any) *Addition {
	return &Addition{
		BaseOperation: workflow.NewBaseOperation("Addition", description),
		parts:         parts,
		format:        format,
		totalKey:      DefaultTotalKey,
	}
}

// NewKeywiseAddition sums matching keys across the mappings
func NewKeywiseAddition(description string, format Format, parts ...any) *Addition {
	a := NewAddition(description, format, parts...)
	a.keywise = true
	return a
}

// WithTotalKey changes the key the total is written to
func (a *Addition) WithTotalKey(key string) *Addition {
	a.totalKey = key
	return a
}

func (a *Addition) Run(context.Context) (any, error) {
	var (
		order []string
		sums  = make(map[string]decimal.Decimal)
		total = decimal.Zero
	)
	for i, part := range a.parts {
		values, err := parseNumbers(a.Name(), fmt.Sprintf("part[%d]", i), part)
		if err != nil {
			return nil, err
		}
		for _, k := range values.keys {
			total = total.Add(values.values[k])
			if _, seen := sums[k]; !seen {
				order = append(order, k)
			}
			sums[k] = sums[k].Add(values.values[k])
		}
	}

	out := workflow.NewOrderedMapping()
	if !a.keywise {
		out.Set(a.format.key(a.totalKey), a.format.Render(total))
		return out, nil
	}
	for _, k := range order {
		out.Set(a.format.key(k), a.format.Render(sums[k]))
	}
	return out, nil
}

// Subtraction subtracts the second mapping from the first key by key, or a
// single value from every key. Keys missing from the second mapping count
// as zero.
type Subtraction struct {
	workflow.BaseOperation
	minuend    any
	subtrahend any
	format     Format
}

// NewSubtraction creates a Subtraction
func NewSubtraction(description string, minuend, subtrahend any, format Format) *Subtraction {
	return &Subtraction{
		BaseOperation: workflow.NewBaseOperation("Subtraction", description),
		minuend:       minuend,
		subtrahend:    subtrahend,
		format:        format,
	}
}

func (s *Subtraction) Run(context.Context) (any, error) {
	left, err := parseNumbers(s.Name(), "minuend", s.minuend)
	if err != nil {
		return nil, err
	}
	right, err := parseNumbers(s.Name(), "subtrahend", s.subtrahend)
	if err != nil {
		return nil, err
	}

	out := workflow.NewOrderedMapping()
	rightKey, scalar, single := right.single()
	_, sameKey := left.values[rightKey]
	for _, k := range left.keys {
		sub := right.values[k]
		if single && !sameKey {
			sub = scalar
		}
		out.Set(s.format.key(k), s.format.Render(left.values[k].Sub(sub)))
	}
	return out, nil
}

// Comparison reports how the second mapping differs from the first: the
// difference per key, the total change under "endring" and the relative
// change under "andel".
type Comparison struct {
	workflow.BaseOperation
	before any
	after  any
	format Format
}

// NewComparison creates a Comparison of after against before
func NewComparison(description string, before, after any, format Format) *Comparison {
	return &Comparison{
		BaseOperation: workflow.NewBaseOperation("Comparison", description),
		before:        before,
		after:         after,
		format:        format,
	}
}

func (c *Comparison) Run(ctx context.Context) (any, error) {
	before, err := parseNumbers(c.Name(), "before", c.before)
	if err != nil {
		return nil, err
	}
	after, err := parseNumbers(c.Name(), "after", c.after)
	if err != nil {
		return nil, err
	}

	keys := append([]string{}, before.keys...)
	for _, k := range after.keys {
		if _, ok := before.values[k]; !ok {
			keys = append(keys, k)
		}
	}

	out := workflow.NewOrderedMapping()
	sumBefore, sumAfter := decimal.Zero, decimal.Zero
	for _, k := range keys {
		b, a := before.values[k], after.values[k]
		sumBefore = sumBefore.Add(b)
		sumAfter = sumAfter.Add(a)
		out.Set(c.format.key(k), c.format.Render(a.Sub(b)))
	}

	change := sumAfter.Sub(sumBefore)
	out.Set("endring", c.format.Render(change))
	base := nonZero(ctx, c.Name(), "before", sumBefore.Abs())
	share := Format{Percent: true, Rnd: 2}
	out.Set("andel", share.Render(share.quotient(change, base)))
	return out, nil
}
