package processes

import (
	"context"

	"husholdning/internal/money"
	"husholdning/internal/operations"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Registry keys of the restructure workflow
const (
	RestructureKeyTerms           = "omlegging_vilkar"
	RestructureKeyCurrent         = "navarende_plan"
	RestructureKeyProposed        = "ny_plan"
	RestructureKeyCurrentSummary  = "navarende"
	RestructureKeyProposedSummary = "nytt"
	RestructureKeyComparison      = "sammenligning"
	RestructureKeyResult          = "omlegging"
)

// comparedFields are the schedule figures set against each other
var comparedFields = []string{"terminbelop", "totale_renter", "totalt_innbetalt"}

// RestructureProcess compares an existing mortgage with refinancing terms
type RestructureProcess struct {
	base
}

// NewRestructureProcess creates the restructure workflow
func NewRestructureProcess(opts ...workflow.Option) *RestructureProcess {
	return &RestructureProcess{base: newBase("RestructureProcess", opts...)}
}

// Run compares the loans described by form
func (r *RestructureProcess) Run(ctx context.Context, form any) (any, error) {
	return r.execute(ctx, form, r.workflow)
}

func (r *RestructureProcess) workflow(ctx context.Context, p *workflow.Process) (any, error) {
	form, _ := p.Payload(KeyForm)
	sig, err := p.Execute(ctx, RestructureKeyTerms, operations.NewValidateRestructure("refinancing terms", form), KeyForm)
	if err != nil {
		return nil, err
	}
	terms, err := as[domain.Restructure](sig.Payload())
	if err != nil {
		return nil, err
	}

	err = p.RunParallel(ctx,
		p.StepFunc(RestructureKeyCurrent, operations.NewAmortization("", terms.Current), RestructureKeyTerms),
		p.StepFunc(RestructureKeyProposed, operations.NewAmortization("", terms.Proposed), RestructureKeyTerms),
	)
	if err != nil {
		return nil, err
	}

	err = p.Schedule(ctx,
		task(RestructureKeyCurrentSummary, "current loan", func(a []any) (workflow.Operation, error) {
			return operations.NewExtract("current loan", a[0], comparedFields...), nil
		}, RestructureKeyCurrent),

		task(RestructureKeyProposedSummary, "proposed loan", func(a []any) (workflow.Operation, error) {
			return operations.NewExtract("proposed loan", a[0], comparedFields...), nil
		}, RestructureKeyProposed),

		task(RestructureKeyComparison, "compare loans", func(a []any) (workflow.Operation, error) {
			return operations.NewComparison("proposed against current", a[0], a[1],
				operations.Format{Money: true}), nil
		}, RestructureKeyCurrentSummary, RestructureKeyProposedSummary),

		task(RestructureKeyResult, "merge restructure", func(a []any) (workflow.Operation, error) {
			return workflow.NewMultiplex("restructure",
				workflow.Mapping{RestructureKeyCurrentSummary: a[0]},
				workflow.Mapping{RestructureKeyProposedSummary: a[1]},
				workflow.Mapping{RestructureKeyComparison: a[2]},
				workflow.Mapping{"etableringskostnad": money.MoneyOf(terms.EstablishmentCost).String()},
			), nil
		}, RestructureKeyCurrentSummary, RestructureKeyProposedSummary, RestructureKeyComparison),
	)
	if err != nil {
		return nil, err
	}
	return p.Output(RestructureKeyResult)
}

// Restructure returns the merged comparison
func (r *RestructureProcess) Restructure() *workflow.OrderedMapping {
	return r.ordered(RestructureKeyResult)
}

// Comparison returns the per-figure differences
func (r *RestructureProcess) Comparison() *workflow.OrderedMapping {
	return r.ordered(RestructureKeyComparison)
}

// CurrentPlan returns the repayment plan of the existing loan
func (r *RestructureProcess) CurrentPlan() []workflow.Mapping {
	return planOf(r.ordered(RestructureKeyCurrent))
}

// ProposedPlan returns the repayment plan of the refinanced loan
func (r *RestructureProcess) ProposedPlan() []workflow.Mapping {
	return planOf(r.ordered(RestructureKeyProposed))
}
