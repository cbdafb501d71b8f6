package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Norwegian lending regulation limits
var (
	// StressAddition is added to the nominal rate in a stress test
	StressAddition = decimal.NewFromInt(3)
	// StressFloor is the lowest stressed rate allowed
	StressFloor = decimal.NewFromInt(7)
	// DebtRatioLimit is the maximum total debt as a multiple of gross income
	DebtRatioLimit = decimal.NewFromInt(5)
	// LoanToValueLimit is the maximum loan as a share of the property value
	LoanToValueLimit = decimal.RequireFromString("0.85")
)

// powPrecision keeps compounding exact enough for 30-year monthly plans
const powPrecision = 20

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Period is one row of a repayment plan
type Period struct {
	Term      int             `json:"termin"`
	Date      time.Time       `json:"dato"`
	Payment   decimal.Decimal `json:"innbetaling"`
	Interest  decimal.Decimal `json:"renter"`
	Principal decimal.Decimal `json:"avdrag"`
	Fee       decimal.Decimal `json:"gebyr"`
	Balance   decimal.Decimal `json:"restgjeld"`
}

// Schedule is a full repayment plan
type Schedule struct {
	Type          domain.LoanType
	Periods       []Period
	TotalInterest decimal.Decimal
	TotalPaid     decimal.Decimal
}

// FirstPayment returns the payment of the first term including fees
func (s Schedule) FirstPayment() decimal.Decimal {
	if len(s.Periods) == 0 {
		return decimal.Zero
	}
	return s.Periods[0].Payment
}

// Summary renders the headline figures
func (s Schedule) Summary() *workflow.OrderedMapping {
	out := workflow.NewOrderedMapping()
	out.Set("type", string(s.Type))
	out.Set("terminbelop", money.MoneyOf(s.FirstPayment()).String())
	out.Set("totale_renter", money.MoneyOf(s.TotalInterest).String())
	out.Set("totalt_innbetalt", money.MoneyOf(s.TotalPaid).String())
	out.Set("antall_terminer", len(s.Periods))
	return out
}

// Plan renders every period as a display row
func (s Schedule) Plan() []workflow.Mapping {
	rows := make([]workflow.Mapping, 0, len(s.Periods))
	for _, p := range s.Periods {
		rows = append(rows, workflow.Mapping{
			"termin":      p.Term,
			"dato":        p.Date.Format("2006-01-02"),
			"innbetaling": money.MoneyOf(p.Payment).StringFixed(2),
			"renter":      money.MoneyOf(p.Interest).StringFixed(2),
			"avdrag":      money.MoneyOf(p.Principal).StringFixed(2),
			"gebyr":       money.MoneyOf(p.Fee).StringFixed(2),
			"restgjeld":   money.MoneyOf(p.Balance).StringFixed(2),
		})
	}
	return rows
}

// periodRate converts an annual percent into the rate per term
func periodRate(loan domain.Loan) decimal.Decimal {
	return loan.AnnualRate.Div(hundred).Div(decimal.NewFromInt(int64(loan.TermsPerYear)))
}

// pow raises base to n by repeated multiplication, rounding as it goes
func pow(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for i := 0; i < n; i++ {
		result = result.Mul(base).Round(powPrecision)
	}
	return result
}

// AnnuityPayment returns the fixed payment per term, excluding fees
func AnnuityPayment(principal, rate decimal.Decimal, terms int) decimal.Decimal {
	if terms <= 0 {
		return decimal.Zero
	}
	if rate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(terms)))
	}
	growth := pow(one.Add(rate), terms)
	return principal.Mul(rate).Mul(growth).Div(growth.Sub(one))
}

func checkLoan(step string, loan domain.Loan) error {
	switch {
	case !loan.Principal.IsPositive():
		return workflow.NewInvalidInputError(step, "lanebelop", "loan amount must be positive")
	case loan.AnnualRate.IsNegative():
		return workflow.NewInvalidInputError(step, "rente", "interest rate cannot be negative")
	case loan.TermsPerYear <= 0 || 12%loan.TermsPerYear != 0:
		return workflow.NewInvalidInputError(step, "terminer_per_ar", "terms per year must divide 12")
	case loan.Terms() <= 0:
		return workflow.NewInvalidInputError(step, "lopetid", "loan period must be at least one term")
	}
	return nil
}

// BuildSchedule computes the repayment plan of loan
func BuildSchedule(loan domain.Loan) (Schedule, error) {
	if err := checkLoan("Amortization", loan); err != nil {
		return Schedule{}, err
	}

	rate := periodRate(loan)
	terms := loan.Terms()
	months := 12 / loan.TermsPerYear
	start := loan.Start
	if start.IsZero() {
		now := time.Now()
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	}

	annuity := AnnuityPayment(loan.Principal, rate, terms).Round(2)
	serial := loan.Principal.Div(decimal.NewFromInt(int64(terms))).Round(2)

	s := Schedule{Type: loan.Type, Periods: make([]Period, 0, terms)}
	balance := loan.Principal
	for term := 1; term <= terms; term++ {
		interest := balance.Mul(rate).Round(2)

		var principal decimal.Decimal
		switch loan.Type {
		case domain.LoanTypeSerial:
			principal = serial
		default:
			principal = annuity.Sub(interest)
		}
		if term == terms || principal.GreaterThan(balance) {
			principal = balance
		}
		balance = balance.Sub(principal)

		payment := principal.Add(interest).Add(loan.Fee)
		s.Periods = append(s.Periods, Period{
			Term:      term,
			Date:      start.AddDate(0, term*months, 0),
			Payment:   payment,
			Interest:  interest,
			Principal: principal,
			Fee:       loan.Fee,
			Balance:   balance,
		})
		s.TotalInterest = s.TotalInterest.Add(interest)
		s.TotalPaid = s.TotalPaid.Add(payment)
	}
	if s.Type == "" {
		s.Type = domain.LoanTypeAnnuity
	}
	return s, nil
}

// Amortization produces the summary and plan of a loan
type Amortization struct {
	workflow.BaseOperation
	loan domain.Loan
}

// NewAmortization creates an Amortization of loan
func NewAmortization(description string, loan domain.Loan) *Amortization {
	if description == "" {
		description = describeLoan(loan)
	}
	return &Amortization{
		BaseOperation: workflow.NewBaseOperation("Amortization", description),
		loan:          loan,
	}
}

func (a *Amortization) Run(context.Context) (any, error) {
	s, err := BuildSchedule(a.loan)
	if err != nil {
		return nil, err
	}
	out := s.Summary()
	out.Set("plan", s.Plan())
	return out, nil
}

// StressedRate returns the rate a stress test uses for annualRate
func StressedRate(annualRate decimal.Decimal) decimal.Decimal {
	return decimal.Max(annualRate.Add(StressAddition), StressFloor)
}

// StressTest recomputes the annuity payment at the stressed rate
type StressTest struct {
	workflow.BaseOperation
	loan domain.Loan
}

// NewStressTest creates a StressTest of loan
func NewStressTest(description string, loan domain.Loan) *StressTest {
	return &StressTest{
		BaseOperation: workflow.NewBaseOperation("StressTest", description),
		loan:          loan,
	}
}

func (s *StressTest) Run(context.Context) (any, error) {
	if err := checkLoan(s.Name(), s.loan); err != nil {
		return nil, err
	}
	stressed := s.loan
	stressed.AnnualRate = StressedRate(s.loan.AnnualRate)

	terms := s.loan.Terms()
	base := AnnuityPayment(s.loan.Principal, periodRate(s.loan), terms).Add(s.loan.Fee)
	high := AnnuityPayment(stressed.Principal, periodRate(stressed), terms).Add(s.loan.Fee)

	out := workflow.NewOrderedMapping()
	out.Set("rente", money.PercentOf(s.loan.AnnualRate).String())
	out.Set("stresset_rente", money.PercentOf(stressed.AnnualRate).String())
	out.Set("terminbelop", money.MoneyOf(base).String())
	out.Set("terminbelop_stresset", money.MoneyOf(high).String())
	out.Set("okning", money.MoneyOf(high.Sub(base)).String())
	return out, nil
}

// DebtRatio checks total debt against the income multiple limit
type DebtRatio struct {
	workflow.BaseOperation
	debt   decimal.Decimal
	income decimal.Decimal
}

// NewDebtRatio creates a DebtRatio
func NewDebtRatio(description string, debt, income decimal.Decimal) *DebtRatio {
	return &DebtRatio{
		BaseOperation: workflow.NewBaseOperation("DebtRatio", description),
		debt:          debt,
		income:        income,
	}
}

func (d *DebtRatio) Run(context.Context) (any, error) {
	if !d.income.IsPositive() {
		return nil, workflow.NewInvalidInputError(d.Name(), "brutto_arsinntekt", "gross income must be positive")
	}
	ratio := d.debt.Div(d.income)
	maxDebt := d.income.Mul(DebtRatioLimit)

	out := workflow.NewOrderedMapping()
	out.Set("gjeldsgrad", money.AmountOf(ratio).StringFixed(2))
	out.Set("maks_gjeld", money.MoneyOf(maxDebt).String())
	out.Set("ledig_gjeldsrom", money.MoneyOf(maxDebt.Sub(d.debt)).String())
	out.Set("innenfor_grense", !ratio.GreaterThan(DebtRatioLimit))
	return out, nil
}

// LoanToValue checks the loan against the property value limit
type LoanToValue struct {
	workflow.BaseOperation
	loan  decimal.Decimal
	value decimal.Decimal
}

// NewLoanToValue creates a LoanToValue
func NewLoanToValue(description string, loan, value decimal.Decimal) *LoanToValue {
	return &LoanToValue{
		BaseOperation: workflow.NewBaseOperation("LoanToValue", description),
		loan:          loan,
		value:         value,
	}
}

func (l *LoanToValue) Run(context.Context) (any, error) {
	if !l.value.IsPositive() {
		return nil, workflow.NewInvalidInputError(l.Name(), "boligverdi", "property value must be positive")
	}
	ratio := l.loan.Div(l.value)

	out := workflow.NewOrderedMapping()
	out.Set("belaningsgrad", money.PercentFromRatio(ratio).String())
	out.Set("maks_lan", money.MoneyOf(l.value.Mul(LoanToValueLimit)).String())
	out.Set("egenkapital", money.MoneyOf(l.value.Sub(l.loan)).String())
	out.Set("krav_egenkapital", money.MoneyOf(l.value.Mul(one.Sub(LoanToValueLimit))).String())
	out.Set("innenfor_grense", !ratio.GreaterThan(LoanToValueLimit))
	return out, nil
}

// describeLoan is used in step descriptions
func describeLoan(loan domain.Loan) string {
	return fmt.Sprintf("%s over %d years at %s", money.MoneyOf(loan.Principal), loan.Years, money.PercentOf(loan.AnnualRate))
}
