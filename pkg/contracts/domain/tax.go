package domain

import (
	"github.com/shopspring/decimal"
)

// TaxForm is a validated tax estimate request
type TaxForm struct {
	IncomeYear   int             `json:"inntektsar" validate:"gte=2018,lte=2100"`
	Age          int             `json:"alder" validate:"gte=13,lte=120"`
	Municipality string          `json:"kommune" validate:"omitempty,len=4,numeric"`
	GrossIncome  decimal.Decimal `json:"brutto_arsinntekt"`
	Wealth       decimal.Decimal `json:"formue"`
	InterestPaid decimal.Decimal `json:"gjeldsrenter"`
	Deductions   decimal.Decimal `json:"fradrag"`
}
