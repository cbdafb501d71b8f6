package operations

import (
	"fmt"

	"github.com/shopspring/decimal"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
)

// Placeholder stands in for sub-fields missing from upstream data
const Placeholder = "-"

// DefaultTotalKey is the key Addition writes its sum to and the key
// SIFO uses for the total budget.
const DefaultTotalKey = "totalt"

// Format controls how arithmetic results are rendered
type Format struct {
	// Percent renders ratios as "12,50 %"
	Percent bool
	// Money renders amounts as "1 234 kr"
	Money bool
	// Rnd is the number of decimals kept
	Rnd int32
	// Suffix is appended to every result key
	Suffix string
}

// Render formats d according to f. With Percent set, d is a ratio.
func (f Format) Render(d decimal.Decimal) string {
	switch {
	case f.Percent:
		return money.PercentFromRatio(d).StringFixed(f.Rnd)
	case f.Money:
		return money.MoneyOf(d).StringFixed(f.Rnd)
	default:
		return money.AmountOf(d).StringFixed(f.Rnd)
	}
}

func (f Format) key(k string) string { return k + f.Suffix }

// quotient divides a by b keeping two guard digits beyond what f renders,
// and never fewer than the decimal package's default precision.
func (f Format) quotient(a, b decimal.Decimal) decimal.Decimal {
	places := f.Rnd + 2
	if f.Percent {
		places += 2
	}
	return a.DivRound(b, max(places, int32(decimal.DivisionPrecision)))
}

// numbers is a parsed numeric mapping that keeps its key order
type numbers struct {
	keys   []string
	values map[string]decimal.Decimal
}

func (n numbers) single() (string, decimal.Decimal, bool) {
	if len(n.keys) != 1 {
		return "", decimal.Zero, false
	}
	return n.keys[0], n.values[n.keys[0]], true
}

// parseNumbers reads every value of data as a decimal
func parseNumbers(step, name string, data any) (numbers, error) {
	m, ok := workflow.AsMapping(data)
	if !ok {
		return numbers{}, workflow.NewInvalidInputError(step, name, fmt.Sprintf("expected a mapping, got %T", data))
	}
	keys := workflow.Keys(data)
	out := numbers{keys: keys, values: make(map[string]decimal.Decimal, len(keys))}
	for _, k := range keys {
		d, err := money.ParseValue(m[k])
		if err != nil {
			return numbers{}, &workflow.Error{
				Type:    workflow.ErrorTypeInvalidInput,
				Step:    step,
				Field:   k,
				Message: fmt.Sprintf("%s value is not numeric", name),
				Cause:   err,
			}
		}
		out.values[k] = d
	}
	return out, nil
}

// mappingOf views data as a mapping plus its natural key order
func mappingOf(step, name string, data any) (workflow.Mapping, []string, error) {
	m, ok := workflow.AsMapping(data)
	if !ok {
		return nil, nil, workflow.NewInvalidInputError(step, name, fmt.Sprintf("expected a mapping, got %T", data))
	}
	return m, workflow.Keys(data), nil
}

// text returns v as display text, or the placeholder when v is empty
func text(v any) string {
	switch t := v.(type) {
	case nil:
		return Placeholder
	case string:
		if t == "" {
			return Placeholder
		}
		return t
	case float64:
		return decimal.NewFromFloat(t).String()
	default:
		return fmt.Sprint(t)
	}
}
