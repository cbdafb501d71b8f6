package processes

import (
	"context"

	"husholdning/internal/connectors"
	"husholdning/internal/money"
	"husholdning/internal/operations"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Registry keys of the tax workflow
const (
	TaxKeyForm        = "skatteskjema"
	TaxKeyCalculation = "skatteberegning"
	TaxKeyTotal       = "skatt"
	TaxKeyIncome      = "inntekt"
	TaxKeyShare       = "skatteandel"
	TaxKeyNet         = "netto"
	TaxKeyNetMonthly  = "netto_maned"
	TaxKeyResult      = "skatteoppgjor"
)

// TaxProcess estimates the income tax of one person with the Skatteetaten
// calculator and derives the effective tax rate and net income.
type TaxProcess struct {
	base
	sources connectors.Sources
}

// NewTaxProcess creates the tax workflow
func NewTaxProcess(sources connectors.Sources, opts ...workflow.Option) *TaxProcess {
	return &TaxProcess{
		base:    newBase("TaxProcess", opts...),
		sources: sources,
	}
}

// Run estimates the tax for form
func (t *TaxProcess) Run(ctx context.Context, form any) (any, error) {
	return t.execute(ctx, form, t.workflow)
}

func (t *TaxProcess) workflow(ctx context.Context, p *workflow.Process) (any, error) {
	err := p.Schedule(ctx,
		task(TaxKeyForm, "validate tax form", func(a []any) (workflow.Operation, error) {
			return operations.NewValidateTaxForm("tax form", a[0]), nil
		}, KeyForm),

		task(TaxKeyCalculation, "tax calculation", func(a []any) (workflow.Operation, error) {
			form, err := as[domain.TaxForm](a[0])
			if err != nil {
				return nil, err
			}
			return fetch(t.sources.Skatteetaten(form), "Skatteetaten tax calculator"), nil
		}, TaxKeyForm),

		task(TaxKeyTotal, "total tax", func(a []any) (workflow.Operation, error) {
			return operations.NewExtract("total tax", a[0], operations.DefaultTotalKey), nil
		}, TaxKeyCalculation),

		task(TaxKeyIncome, "gross income", func(a []any) (workflow.Operation, error) {
			form, err := as[domain.TaxForm](a[0])
			if err != nil {
				return nil, err
			}
			income := workflow.Mapping{"inntekt": money.MoneyOf(form.GrossIncome).String()}
			return workflow.Value("Income", "gross income", income), nil
		}, TaxKeyForm),

		task(TaxKeyShare, "effective tax rate", func(a []any) (workflow.Operation, error) {
			return operations.NewDivide("tax share of gross income", a[0], a[1], shareFormat), nil
		}, TaxKeyTotal, TaxKeyIncome),

		task(TaxKeyNet, "net income", func(a []any) (workflow.Operation, error) {
			return operations.NewSubtraction("gross income less tax", a[0], a[1],
				operations.Format{Money: true, Suffix: "_etter_skatt"}), nil
		}, TaxKeyIncome, TaxKeyTotal),

		task(TaxKeyNetMonthly, "net monthly income", func(a []any) (workflow.Operation, error) {
			return operations.NewDivide("net income per month", a[0], workflow.Mapping{"maneder": "12"},
				operations.Format{Money: true, Suffix: "_per_maned"}), nil
		}, TaxKeyNet),

		task(TaxKeyResult, "merge tax", func(a []any) (workflow.Operation, error) {
			return workflow.NewMultiplex("tax estimate", a...), nil
		}, TaxKeyCalculation, TaxKeyShare, TaxKeyIncome, TaxKeyNet, TaxKeyNetMonthly),
	)
	if err != nil {
		return nil, err
	}
	return p.Output(TaxKeyResult)
}

// Tax returns the merged tax estimate
func (t *TaxProcess) Tax() *workflow.OrderedMapping {
	return t.ordered(TaxKeyResult)
}

// Calculation returns the tax lines as returned by the calculator
func (t *TaxProcess) Calculation() *workflow.OrderedMapping {
	return t.ordered(TaxKeyCalculation)
}
