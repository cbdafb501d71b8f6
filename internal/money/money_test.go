package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain integer", "500000", "500000"},
		{"currency suffix", "500000 kr", "500000"},
		{"grouped with spaces", "1 234 567 kr", "1234567"},
		{"non breaking spaces", "1 234 kr", "1234"},
		{"comma decimal", "1 234,50", "1234.5"},
		{"percent", "12,5 %", "12.5"},
		{"dash suffix", "1000,-", "1000"},
		{"negative", "-250 kr", "-250"},
		{"unicode minus", "−250 kr", "-250"},
		{"dotted thousands", "1.234.567", "1234567"},
		{"dotted thousands with comma decimals", "1.234,50 kr", "1234.5"},
		{"single dot is a decimal point", "1.234", "1.234"},
		{"dotted rate", "4.125 %", "4.125"},
		{"currency prefix", "kr 300", "300"},
		{"nok suffix", "300 NOK", "300"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "Parse(%q) = %s, want %s", tt.input, got, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{"", " kr", "-", "abc", "%"} {
		_, err := Parse(input)
		assert.Error(t, err, "Parse(%q)", input)
	}

	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseValue(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{"string", "1 000 kr", "1000"},
		{"int", 42, "42"},
		{"int64", int64(7), "7"},
		{"float", 0.25, "0.25"},
		{"decimal", decimal.NewFromInt(3), "3"},
		{"money", MoneyOf(decimal.NewFromInt(99)), "99"},
		{"percent", PercentOf(decimal.NewFromInt(12)), "12"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseValue(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)))
		})
	}

	_, err := ParseValue(nil)
	assert.ErrorIs(t, err, ErrEmpty)

	_, err = ParseValue([]string{"1"})
	assert.Error(t, err)
}

func TestGroup(t *testing.T) {
	tests := []struct {
		value  string
		places int32
		want   string
	}{
		{"0", 0, "0"},
		{"999", 0, "999"},
		{"1000", 0, "1 000"},
		{"1234567", 0, "1 234 567"},
		{"1234567.891", 2, "1 234 567,89"},
		{"-1234", 0, "-1 234"},
		{"-0.001", 2, "0,00"},
		{"12.5", 1, "12,5"},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			assert.Equal(t, tt.want, Group(decimal.RequireFromString(tt.value), tt.places))
		})
	}
}

func TestMoney(t *testing.T) {
	m, err := NewMoney("500 000 kr")
	require.NoError(t, err)
	assert.Equal(t, "500 000 kr", m.String())

	sum := m.Add(MoneyOf(decimal.NewFromInt(1234)))
	assert.Equal(t, "501 234 kr", sum.String())
	assert.Equal(t, "498 766 kr", m.Sub(MoneyOf(decimal.NewFromInt(1234))).String())
	assert.Equal(t, "41 666,67 kr", m.Div(decimal.NewFromInt(12)).StringFixed(2))
	assert.Equal(t, "6 000 000 kr", m.Mul(decimal.NewFromInt(12)).String())
	assert.False(t, m.IsZero())
	assert.True(t, MoneyOf(decimal.NewFromInt(-1)).IsNegative())

	raw, err := m.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"500 000 kr"`, string(raw))
}

func TestMoneyExactDecimal(t *testing.T) {
	// 0.1 + 0.2 must be exactly 0.3
	a, _ := NewMoney("0,10 kr")
	b, _ := NewMoney("0,20 kr")
	assert.True(t, a.Add(b).Value().Equal(decimal.RequireFromString("0.3")))
}

func TestPercentAndShare(t *testing.T) {
	p, err := NewPercent("12,5 %")
	require.NoError(t, err)
	assert.Equal(t, "12,50 %", p.String())
	assert.True(t, p.Ratio().Equal(decimal.RequireFromString("0.125")))

	fromRatio := PercentFromRatio(decimal.RequireFromString("0.3333"))
	assert.Equal(t, "33,3 %", fromRatio.StringFixed(1))

	share := NewShare(decimal.NewFromInt(250), decimal.NewFromInt(1000))
	assert.True(t, share.Defined())
	assert.Equal(t, "25,00 %", share.String())

	undefined := NewShare(decimal.NewFromInt(250), decimal.Zero)
	assert.False(t, undefined.Defined())
	assert.True(t, undefined.Ratio().IsZero())
}

func TestAmount(t *testing.T) {
	a, err := NewAmount("12 345,678")
	require.NoError(t, err)
	assert.Equal(t, "12 346", a.String())
	assert.Equal(t, "12 345,68", a.StringFixed(2))
	assert.True(t, AmountOf(decimal.NewFromInt(5)).Value().Equal(decimal.NewFromInt(5)))
}
