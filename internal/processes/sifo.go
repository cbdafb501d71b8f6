package processes

import (
	"context"

	"github.com/shopspring/decimal"

	"husholdning/internal/connectors"
	"husholdning/internal/operations"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Registry keys of the SIFO workflow
const (
	SifoKeyFamily   = "familie"
	SifoKeyBudget   = "sifo"
	SifoKeyTotal    = "totalt"
	SifoKeyExpenses = "utgifter"
	SifoKeyShares   = "andeler"
	SifoKeyYearly   = "arlig"
	SifoKeyYearSum  = "arlig_totalt"
	SifoKeyResult   = "sifo_utgifter"
)

var (
	monthsPerYear = decimal.NewFromInt(12)
	shareFormat   = operations.Format{Percent: true, Rnd: 2, Suffix: "_andel"}
	yearlyFormat  = operations.Format{Money: true, Suffix: "_arlig"}
)

// CalculateSifoExpenses looks up the SIFO reference budget of a household
// and breaks it down into monthly amounts, shares of the total and yearly
// amounts.
type CalculateSifoExpenses struct {
	base
	sources connectors.Sources
}

// NewCalculateSifoExpenses creates the SIFO workflow
func NewCalculateSifoExpenses(sources connectors.Sources, opts ...workflow.Option) *CalculateSifoExpenses {
	return &CalculateSifoExpenses{
		base:    newBase("CalculateSifoExpenses", opts...),
		sources: sources,
	}
}

// Run validates the household form and computes the budget
func (s *CalculateSifoExpenses) Run(ctx context.Context, form any) (any, error) {
	return s.execute(ctx, form, func(ctx context.Context, p *workflow.Process) (any, error) {
		validateFamily := task(SifoKeyFamily, "validate household",
			func(a []any) (workflow.Operation, error) {
				return operations.NewValidateFamily("household members", a[0]), nil
			}, KeyForm)
		if err := p.Schedule(ctx, append([]workflow.Task{validateFamily}, sifoTasks(s.sources)...)...); err != nil {
			return nil, err
		}
		return p.Output(SifoKeyResult)
	})
}

// SifoBudget is the SIFO workflow starting from an already validated
// household, for use as a SubModel.
func SifoBudget(sources connectors.Sources, family domain.Family) workflow.Workflow {
	return func(ctx context.Context, p *workflow.Process) (any, error) {
		p.Input(SifoKeyFamily, family, "household")
		if err := p.Schedule(ctx, sifoTasks(sources)...); err != nil {
			return nil, err
		}
		return p.Output(SifoKeyResult)
	}
}

func sifoTasks(sources connectors.Sources) []workflow.Task {
	return []workflow.Task{
		task(SifoKeyBudget, "fetch reference budget", func(a []any) (workflow.Operation, error) {
			family, err := as[domain.Family](a[0])
			if err != nil {
				return nil, err
			}
			return fetch(sources.Sifo(family), "SIFO reference budget"), nil
		}, SifoKeyFamily),

		task(SifoKeyTotal, "monthly total", func(a []any) (workflow.Operation, error) {
			return operations.NewExtract("monthly total", a[0], operations.DefaultTotalKey), nil
		}, SifoKeyBudget),

		task(SifoKeyExpenses, "expense categories", func(a []any) (workflow.Operation, error) {
			return operations.NewExclude("expense categories", a[0], operations.DefaultTotalKey), nil
		}, SifoKeyBudget),

		task(SifoKeyShares, "share of total", func(a []any) (workflow.Operation, error) {
			return operations.NewDivide("share of monthly total", a[0], a[1], shareFormat), nil
		}, SifoKeyExpenses, SifoKeyTotal),

		task(SifoKeyYearly, "yearly expenses", func(a []any) (workflow.Operation, error) {
			return operations.NewFactor("yearly expenses", a[0], monthsPerYear, yearlyFormat), nil
		}, SifoKeyExpenses),

		task(SifoKeyYearSum, "yearly total", func(a []any) (workflow.Operation, error) {
			return operations.NewFactor("yearly total", a[0], monthsPerYear, yearlyFormat), nil
		}, SifoKeyTotal),

		task(SifoKeyResult, "merge budget", func(a []any) (workflow.Operation, error) {
			return workflow.NewMultiplex("SIFO expenses", a...), nil
		}, SifoKeyExpenses, SifoKeyTotal, SifoKeyShares, SifoKeyYearly, SifoKeyYearSum),
	}
}

// Expenses returns the monthly amount per category
func (s *CalculateSifoExpenses) Expenses() *workflow.OrderedMapping {
	return s.ordered(SifoKeyExpenses)
}

// Total returns the monthly total
func (s *CalculateSifoExpenses) Total() *workflow.OrderedMapping {
	return s.ordered(SifoKeyTotal)
}

// Shares returns each category as a percent of the total
func (s *CalculateSifoExpenses) Shares() *workflow.OrderedMapping {
	return s.ordered(SifoKeyShares)
}

// Yearly returns the yearly amount per category
func (s *CalculateSifoExpenses) Yearly() *workflow.OrderedMapping {
	return s.ordered(SifoKeyYearly)
}

// Budget returns the merged terminal payload
func (s *CalculateSifoExpenses) Budget() *workflow.OrderedMapping {
	return s.ordered(SifoKeyResult)
}
