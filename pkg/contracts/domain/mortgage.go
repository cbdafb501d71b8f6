package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanType selects the repayment profile
type LoanType string

const (
	LoanTypeAnnuity LoanType = "annuitet"
	LoanTypeSerial  LoanType = "serie"
)

// Loan is the common description of a repayment plan
type Loan struct {
	Principal    decimal.Decimal `json:"lanebelop"`
	AnnualRate   decimal.Decimal `json:"rente"`
	Years        int             `json:"lopetid"`
	TermsPerYear int             `json:"terminer_per_ar"`
	Fee          decimal.Decimal `json:"termingebyr"`
	Type         LoanType        `json:"type"`
	Start        time.Time       `json:"startdato"`
}

// Terms returns the total number of payments
func (l Loan) Terms() int { return l.Years * l.TermsPerYear }

// Mortgage is a validated mortgage analysis request
type Mortgage struct {
	Loan
	PropertyValue decimal.Decimal `json:"boligverdi"`
	GrossIncome   decimal.Decimal `json:"brutto_arsinntekt"`
	OtherDebt     decimal.Decimal `json:"annen_gjeld"`
	Household     *Family         `json:"husholdning,omitempty"`
}

// TotalDebt returns the new loan plus existing debt
func (m Mortgage) TotalDebt() decimal.Decimal {
	return m.Principal.Add(m.OtherDebt)
}

// Restructure compares an existing loan against refinancing terms. The
// establishment cost is financed into the proposed loan.
type Restructure struct {
	Current           Loan            `json:"navarende"`
	Proposed          Loan            `json:"nytt"`
	EstablishmentCost decimal.Decimal `json:"etableringskostnad"`
}
