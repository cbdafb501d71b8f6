// Package domain contains the typed aggregates built from validated forms.
package domain

import (
	"github.com/shopspring/decimal"
)

// Gender values accepted by the SIFO reference budget
const (
	GenderMale   = "Mann"
	GenderFemale = "Kvinne"
)

// AgeBrackets lists the age brackets offered by the household form, mapped
// to the age code the SIFO calculator expects.
var AgeBrackets = map[string]string{
	"0-5 mnd":  "0.41",
	"6-11 mnd": "0.91",
	"1":        "1",
	"2":        "2",
	"3":        "3",
	"4-5":      "5",
	"6-9":      "9",
	"10-13":    "13",
	"14-17":    "17",
	"18-19":    "19",
	"20-50":    "50",
	"51-60":    "60",
	"61-66":    "66",
	"67-73":    "73",
	"74+":      "999",
}

// Person is one member of a household
type Person struct {
	Key          string `json:"key"`
	AgeBracket   string `json:"alder" validate:"required,age_bracket"`
	Gender       string `json:"kjonn" validate:"required,oneof=Mann Kvinne"`
	Kindergarten bool   `json:"barnehage"`
	SFO          bool   `json:"sfo"`
	Pregnant     bool   `json:"gravid"`
	Student      bool   `json:"student"`
}

// SifoAge returns the SIFO age code for the person's bracket
func (p Person) SifoAge() string {
	return AgeBrackets[p.AgeBracket]
}

// SifoGender returns the SIFO gender code
func (p Person) SifoGender() string {
	if p.Gender == GenderFemale {
		return "k"
	}
	return "m"
}

// Family is a validated household
type Family struct {
	Persons     []Person        `json:"personer" validate:"required,min=1,max=12,dive"`
	Cars        int             `json:"antall_biler" validate:"gte=0,lte=9"`
	GrossIncome decimal.Decimal `json:"brutto_arsinntekt"`
}

// Size returns the number of household members
func (f Family) Size() int { return len(f.Persons) }
