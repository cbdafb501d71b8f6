package processes

import (
	"context"

	"github.com/shopspring/decimal"

	"husholdning/internal/connectors"
	"husholdning/internal/money"
	"husholdning/internal/operations"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Registry keys of the mortgage workflow
const (
	MortgageKeyLoan        = "lan"
	MortgageKeyMarketRate  = "markedsrente"
	MortgageKeyTerms       = "vilkar"
	MortgageKeyRate        = "rente"
	MortgageKeySchedule    = "nedbetaling"
	MortgageKeySummary     = "lan_oppsummering"
	MortgageKeyStress      = "stresstest"
	MortgageKeyDebtRatio   = "gjeldsgrad"
	MortgageKeyLTV         = "belaningsgrad"
	MortgageKeyBudget      = "budsjett"
	MortgageKeyMonthlyCost = "manedskostnad"
	MortgageKeyHeadroom    = "betjeningsevne"
	MortgageKeyResult      = "analyse"
)

// MortgageAnalysis computes the repayment plan of a mortgage and checks it
// against the lending regulation. When the form carries a household, the
// SIFO budget is run as a nested workflow and set against the income.
type MortgageAnalysis struct {
	base
	sources connectors.Sources
}

// NewMortgageAnalysis creates the mortgage workflow
func NewMortgageAnalysis(sources connectors.Sources, opts ...workflow.Option) *MortgageAnalysis {
	return &MortgageAnalysis{
		base:    newBase("MortgageAnalysisProcess", opts...),
		sources: sources,
	}
}

// Run analyses the mortgage described by form
func (m *MortgageAnalysis) Run(ctx context.Context, form any) (any, error) {
	return m.execute(ctx, form, m.workflow)
}

func (m *MortgageAnalysis) workflow(ctx context.Context, p *workflow.Process) (any, error) {
	withTerms := func(key, description string, build func(domain.Mortgage) (workflow.Operation, error)) workflow.Task {
		return task(key, description, func(a []any) (workflow.Operation, error) {
			mortgage, err := as[domain.Mortgage](a[0])
			if err != nil {
				return nil, err
			}
			return build(mortgage)
		}, MortgageKeyTerms)
	}

	err := p.Schedule(ctx,
		task(MortgageKeyLoan, "validate mortgage", func(a []any) (workflow.Operation, error) {
			return operations.NewValidateMortgage("mortgage terms", a[0]), nil
		}, KeyForm),

		task(MortgageKeyMarketRate, "market rate", func(a []any) (workflow.Operation, error) {
			mortgage, err := as[domain.Mortgage](a[0])
			if err != nil {
				return nil, err
			}
			if !mortgage.AnnualRate.IsZero() {
				return nil, workflow.ErrSkip
			}
			return fetch(m.sources.MortgageRate(), "SSB mortgage rate"), nil
		}, MortgageKeyLoan),

		workflow.Task{
			Key:         MortgageKeyTerms,
			Requires:    []string{MortgageKeyLoan},
			After:       []string{MortgageKeyMarketRate},
			Description: "resolve rate",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				v, _ := in.Payload(MortgageKeyLoan)
				mortgage, err := as[domain.Mortgage](v)
				if err != nil {
					return nil, err
				}
				if market, ok := in.Mapping(MortgageKeyMarketRate); ok {
					rate, err := money.ParseValue(market["rente"])
					if err != nil {
						return nil, workflow.NewInvalidInputError("resolve rate", "rente", "market rate is not numeric")
					}
					mortgage.AnnualRate = rate
				}
				return workflow.Value("ResolveRate", describeTerms(mortgage), mortgage), nil
			},
		},

		workflow.Task{
			Key:         MortgageKeyRate,
			Requires:    []string{MortgageKeyTerms},
			After:       []string{MortgageKeyMarketRate},
			Description: "rate source",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				if market, ok := in.Payload(MortgageKeyMarketRate); ok {
					return workflow.NewMultiplex("rate from SSB", market), nil
				}
				v, _ := in.Payload(MortgageKeyTerms)
				mortgage, err := as[domain.Mortgage](v)
				if err != nil {
					return nil, err
				}
				rate := workflow.NewOrderedMapping()
				rate.Set("rente", money.PercentOf(mortgage.AnnualRate).String())
				rate.Set("kilde", "skjema")
				return workflow.Value("Rate", "rate from form", rate), nil
			},
		},

		withTerms(MortgageKeySchedule, "repayment plan", func(mg domain.Mortgage) (workflow.Operation, error) {
			return operations.NewAmortization("", mg.Loan), nil
		}),

		task(MortgageKeySummary, "loan summary", func(a []any) (workflow.Operation, error) {
			return operations.NewExclude("loan summary", a[0], "plan"), nil
		}, MortgageKeySchedule),

		withTerms(MortgageKeyStress, "stress test", func(mg domain.Mortgage) (workflow.Operation, error) {
			return operations.NewStressTest("stressed rate", mg.Loan), nil
		}),

		withTerms(MortgageKeyDebtRatio, "debt ratio", func(mg domain.Mortgage) (workflow.Operation, error) {
			return operations.NewDebtRatio("debt to gross income", mg.TotalDebt(), mg.GrossIncome), nil
		}),

		withTerms(MortgageKeyLTV, "loan to value", func(mg domain.Mortgage) (workflow.Operation, error) {
			return operations.NewLoanToValue("loan to property value", mg.Principal, mg.PropertyValue), nil
		}),

		withTerms(MortgageKeyBudget, "household budget", func(mg domain.Mortgage) (workflow.Operation, error) {
			if mg.Household == nil {
				return nil, workflow.ErrSkip
			}
			return workflow.NewSubModel("CalculateSifoExpenses", "SIFO household budget", p,
				SifoBudget(m.sources, *mg.Household)), nil
		}),

		task(MortgageKeyMonthlyCost, "monthly cost", func(a []any) (workflow.Operation, error) {
			mortgage, err := as[domain.Mortgage](a[2])
			if err != nil {
				return nil, err
			}
			budget, _ := workflow.AsMapping(a[0])
			schedule, _ := workflow.AsMapping(a[1])
			payment, err := money.ParseValue(schedule["terminbelop"])
			if err != nil {
				return nil, workflow.NewInvalidInputError("monthly cost", "terminbelop", "payment is not numeric")
			}
			perMonth := payment.Mul(decimal.NewFromInt(int64(mortgage.TermsPerYear))).Div(monthsPerYear)
			return operations.NewAddition("budget plus loan payment", operations.Format{Money: true},
				workflow.Mapping{"sifo": budget[operations.DefaultTotalKey]},
				workflow.Mapping{"lan": money.MoneyOf(perMonth).String()},
			).WithTotalKey(MortgageKeyMonthlyCost), nil
		}, MortgageKeyBudget, MortgageKeySchedule, MortgageKeyTerms),

		task(MortgageKeyHeadroom, "headroom", func(a []any) (workflow.Operation, error) {
			mortgage, err := as[domain.Mortgage](a[1])
			if err != nil {
				return nil, err
			}
			income := workflow.Mapping{"til_overs_for_skatt": money.MoneyOf(mortgage.GrossIncome.Div(monthsPerYear)).String()}
			return operations.NewSubtraction("gross monthly income less costs", income, a[0],
				operations.Format{Money: true}), nil
		}, MortgageKeyMonthlyCost, MortgageKeyTerms),

		workflow.Task{
			Key:         MortgageKeyResult,
			Requires:    []string{MortgageKeyRate, MortgageKeySummary, MortgageKeyStress, MortgageKeyDebtRatio, MortgageKeyLTV},
			After:       []string{MortgageKeyBudget, MortgageKeyMonthlyCost, MortgageKeyHeadroom},
			Description: "merge analysis",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				parts := sections(in,
					MortgageKeyRate, MortgageKeySummary, MortgageKeyStress, MortgageKeyDebtRatio, MortgageKeyLTV,
					MortgageKeyBudget, MortgageKeyMonthlyCost, MortgageKeyHeadroom)
				return workflow.NewMultiplex("mortgage analysis", parts...), nil
			},
		},
	)
	if err != nil {
		return nil, err
	}
	return p.Output(MortgageKeyResult)
}

func describeTerms(mg domain.Mortgage) string {
	return money.MoneyOf(mg.Principal).String() + " at " + money.PercentOf(mg.AnnualRate).String()
}

// Mortgage returns the merged analysis
func (m *MortgageAnalysis) Mortgage() *workflow.OrderedMapping {
	return m.ordered(MortgageKeyResult)
}

// Plan returns the repayment plan rows
func (m *MortgageAnalysis) Plan() []workflow.Mapping {
	return planOf(m.ordered(MortgageKeySchedule))
}

// Budget returns the nested SIFO budget, or nil without a household
func (m *MortgageAnalysis) Budget() *workflow.OrderedMapping {
	return m.ordered(MortgageKeyBudget)
}

func planOf(schedule *workflow.OrderedMapping) []workflow.Mapping {
	if schedule == nil {
		return nil
	}
	v, _ := schedule.Get("plan")
	rows, _ := v.([]workflow.Mapping)
	return rows
}
