// Package money contains the NOK-aware value types used by the arithmetic
// operations: Money, Amount, Percent and Share.
//
// Values are parsed from the formatted strings that flow through workflows
// ("500 000 kr", "12,5 %", "1 234,50") and formatted back the Norwegian way,
// with a space as thousands separator and a comma as decimal separator.
// All arithmetic is exact decimal; binary floats are never involved.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrEmpty is returned when a value contains no digits after stripping formatting.
var ErrEmpty = errors.New("money: empty value")

const (
	// CurrencySuffix is appended to formatted Money values
	CurrencySuffix = "kr"
	// PercentSuffix is appended to formatted Percent values
	PercentSuffix = "%"
)

var hundred = decimal.NewFromInt(100)

// suffixes stripped by Parse, longest first
var suffixes = []string{"prosent", "NOK", "nok", "kr.", "kr", ",-", ".-", "%"}

// Parse strips currency and percent formatting and returns the decimal value.
// A comma is the decimal separator. A lone dot is read as a decimal point, so
// "1.234" is 1.234 and rates such as "4.125" survive; dots are thousands
// separators only alongside a comma or when more than one appears.
func Parse(s string) (decimal.Decimal, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\u00a0', '\u202f', '\t', '\n':
			return -1
		}
		return r
	}, s)

	for stripped := true; stripped; {
		stripped = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(cleaned, suffix) {
				cleaned = strings.TrimSuffix(cleaned, suffix)
				stripped = true
			}
		}
	}
	cleaned = strings.TrimPrefix(cleaned, "kr")
	cleaned = strings.ReplaceAll(cleaned, "\u2212", "-")

	// dots group thousands when a comma marks the decimals ("1.234,50")
	// or when there are several of them ("1.234.567")
	if strings.Contains(cleaned, ",") || strings.Count(cleaned, ".") > 1 {
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrEmpty, s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("money: cannot parse %q: %w", s, err)
	}
	return d, nil
}

// ParseValue converts the loosely typed values found in workflow payloads.
func ParseValue(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case nil:
		return decimal.Zero, ErrEmpty
	case decimal.Decimal:
		return t, nil
	case Money:
		return t.amount, nil
	case Amount:
		return t.value, nil
	case Percent:
		return t.value, nil
	case string:
		return Parse(t)
	case json.Number:
		return decimal.NewFromString(t.String())
	case int:
		return decimal.NewFromInt(int64(t)), nil
	case int32:
		return decimal.NewFromInt32(t), nil
	case int64:
		return decimal.NewFromInt(t), nil
	case float32:
		return decimal.NewFromFloat32(t), nil
	case float64:
		return decimal.NewFromFloat(t), nil
	case fmt.Stringer:
		return Parse(t.String())
	default:
		return decimal.Zero, fmt.Errorf("money: unsupported value type %T", v)
	}
}

// Group formats d with the given number of decimals, a space between
// thousands and a comma as decimal separator.
func Group(d decimal.Decimal, places int32) string {
	fixed := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(fixed, "-") {
		sign = "-"
		fixed = fixed[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(fixed, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}

	// "-0" after rounding is just "0"
	out := b.String()
	if sign != "" && strings.Trim(out[1:], "0, ") == "" {
		return out[1:]
	}
	return out
}

// Money is an amount of Norwegian kroner.
type Money struct {
	amount decimal.Decimal
}

// NewMoney parses a formatted amount such as "500 000 kr".
func NewMoney(s string) (Money, error) {
	d, err := Parse(s)
	if err != nil {
		return Money{}, err
	}
	return Money{amount: d}, nil
}

// MoneyOf wraps a decimal amount.
func MoneyOf(d decimal.Decimal) Money {
	return Money{amount: d}
}

// Value returns the exact decimal amount.
func (m Money) Value() decimal.Decimal { return m.amount }

func (m Money) Add(o Money) Money { return Money{amount: m.amount.Add(o.amount)} }
func (m Money) Sub(o Money) Money { return Money{amount: m.amount.Sub(o.amount)} }

// Mul multiplies by a plain factor.
func (m Money) Mul(f decimal.Decimal) Money { return Money{amount: m.amount.Mul(f)} }

// Div divides by a plain divisor. A zero divisor panics like decimal.Div does;
// callers substitute their own policy first.
func (m Money) Div(d decimal.Decimal) Money { return Money{amount: m.amount.Div(d)} }

func (m Money) IsZero() bool     { return m.amount.IsZero() }
func (m Money) IsNegative() bool { return m.amount.IsNegative() }

// String formats whole kroner: "1 234 kr".
func (m Money) String() string { return m.StringFixed(0) }

// StringFixed formats with the given number of decimals.
func (m Money) StringFixed(places int32) string {
	return Group(m.amount, places) + " " + CurrencySuffix
}

// MarshalJSON encodes the formatted string.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// Amount is a plain grouped number without a unit, e.g. "1 234,5".
type Amount struct {
	value decimal.Decimal
}

// NewAmount parses a formatted number.
func NewAmount(s string) (Amount, error) {
	d, err := Parse(s)
	if err != nil {
		return Amount{}, err
	}
	return Amount{value: d}, nil
}

// AmountOf wraps a decimal.
func AmountOf(d decimal.Decimal) Amount { return Amount{value: d} }

func (a Amount) Value() decimal.Decimal { return a.value }
func (a Amount) String() string         { return Group(a.value, 0) }

// StringFixed formats with the given number of decimals.
func (a Amount) StringFixed(places int32) string { return Group(a.value, places) }

// Percent holds a value already expressed in percent (12.5 means 12,5 %).
type Percent struct {
	value decimal.Decimal
}

// NewPercent parses "12,5 %" or "12.5".
func NewPercent(s string) (Percent, error) {
	d, err := Parse(s)
	if err != nil {
		return Percent{}, err
	}
	return Percent{value: d}, nil
}

// PercentOf wraps a value expressed in percent.
func PercentOf(d decimal.Decimal) Percent { return Percent{value: d} }

// PercentFromRatio converts a ratio (0.125) into a percent (12,5 %).
func PercentFromRatio(ratio decimal.Decimal) Percent {
	return Percent{value: ratio.Mul(hundred)}
}

func (p Percent) Value() decimal.Decimal { return p.value }

// Ratio returns the percent as a fraction of one.
func (p Percent) Ratio() decimal.Decimal { return p.value.Div(hundred) }

func (p Percent) String() string { return p.StringFixed(2) }

// StringFixed formats with the given number of decimals: "12,50 %".
func (p Percent) StringFixed(places int32) string {
	return Group(p.value, places) + " " + PercentSuffix
}

// Share is the part of a whole, e.g. one expense category of a total budget.
type Share struct {
	part  decimal.Decimal
	whole decimal.Decimal
}

// NewShare builds a share. A zero whole is reported by Defined.
func NewShare(part, whole decimal.Decimal) Share {
	return Share{part: part, whole: whole}
}

// Defined reports whether the whole is non-zero.
func (s Share) Defined() bool { return !s.whole.IsZero() }

// Ratio returns part/whole, or zero when the whole is zero.
func (s Share) Ratio() decimal.Decimal {
	if s.whole.IsZero() {
		return decimal.Zero
	}
	return s.part.Div(s.whole)
}

// Percent returns the share in percent.
func (s Share) Percent() Percent { return PercentFromRatio(s.Ratio()) }

func (s Share) String() string { return s.Percent().String() }
