// Package api contains the HTTP request contracts of the calculation API.
// Version v1 represents the current stable API version.
package api

import (
	"fmt"
)

// Household API Requests

// PersonRequest is one household member as entered in the form
type PersonRequest struct {
	Alder     string `json:"alder" yaml:"alder" validate:"required"`
	Kjonn     string `json:"kjonn" yaml:"kjonn" validate:"required,oneof=Mann Kvinne"`
	Barnehage bool   `json:"barnehage,omitempty" yaml:"barnehage"`
	SFO       bool   `json:"sfo,omitempty" yaml:"sfo"`
	Gravid    bool   `json:"gravid,omitempty" yaml:"gravid"`
	Student   bool   `json:"student,omitempty" yaml:"student"`
}

// SifoRequest asks for the SIFO reference budget of a household
type SifoRequest struct {
	Personer         []PersonRequest `json:"personer" yaml:"personer" validate:"required,min=1,max=12,dive"`
	AntallBiler      string          `json:"antall_biler" yaml:"antall_biler" validate:"omitempty,numeric"`
	BruttoArsinntekt string          `json:"brutto_arsinntekt" yaml:"brutto_arsinntekt" validate:"required,amount"`
}

// Form flattens the request into the form mapping the workflow reads
func (r SifoRequest) Form() map[string]any {
	form := map[string]any{
		"antall_biler":      r.AntallBiler,
		"brutto_arsinntekt": r.BruttoArsinntekt,
	}
	for i, p := range r.Personer {
		form[fmt.Sprintf("person_%d", i+1)] = map[string]any{
			"alder":     p.Alder,
			"kjonn":     p.Kjonn,
			"barnehage": p.Barnehage,
			"sfo":       p.SFO,
			"gravid":    p.Gravid,
			"student":   p.Student,
		}
	}
	return form
}

// Mortgage API Requests

// MortgageRequest asks for an amortization plan with lending checks
type MortgageRequest struct {
	Lanebelop        string       `json:"lanebelop" yaml:"lanebelop" validate:"required,amount"`
	Rente            string       `json:"rente,omitempty" yaml:"rente" validate:"omitempty,amount"`
	Lopetid          string       `json:"lopetid" yaml:"lopetid" validate:"required,numeric"`
	TerminerPerAr    string       `json:"terminer_per_ar,omitempty" yaml:"terminer_per_ar" validate:"omitempty,oneof=1 2 4 6 12"`
	Type             string       `json:"type,omitempty" yaml:"type" validate:"omitempty,oneof=annuitet serie"`
	Termingebyr      string       `json:"termingebyr,omitempty" yaml:"termingebyr"`
	Startdato        string       `json:"startdato,omitempty" yaml:"startdato" validate:"omitempty,datetime=2006-01-02"`
	Boligverdi       string       `json:"boligverdi" yaml:"boligverdi" validate:"required,amount"`
	BruttoArsinntekt string       `json:"brutto_arsinntekt" yaml:"brutto_arsinntekt" validate:"required,amount"`
	AnnenGjeld       string       `json:"annen_gjeld,omitempty" yaml:"annen_gjeld"`
	Husholdning      *SifoRequest `json:"husholdning,omitempty" yaml:"husholdning"`
}

// Form flattens the request into the form mapping the workflow reads
func (r MortgageRequest) Form() map[string]any {
	form := map[string]any{
		"lanebelop":         r.Lanebelop,
		"rente":             r.Rente,
		"lopetid":           r.Lopetid,
		"terminer_per_ar":   r.TerminerPerAr,
		"type":              r.Type,
		"termingebyr":       r.Termingebyr,
		"startdato":         r.Startdato,
		"boligverdi":        r.Boligverdi,
		"brutto_arsinntekt": r.BruttoArsinntekt,
		"annen_gjeld":       r.AnnenGjeld,
	}
	if r.Husholdning != nil {
		form["husholdning"] = r.Husholdning.Form()
	}
	return form
}

// RestructureRequest compares an existing loan with refinancing terms
type RestructureRequest struct {
	Lanebelop           string `json:"lanebelop" yaml:"lanebelop" validate:"required,amount"`
	Rente               string `json:"rente" yaml:"rente" validate:"required,amount"`
	GjenvaerendeLopetid string `json:"gjenvaerende_lopetid" yaml:"gjenvaerende_lopetid" validate:"required,numeric"`
	Termingebyr         string `json:"termingebyr,omitempty" yaml:"termingebyr"`
	NyRente             string `json:"ny_rente" yaml:"ny_rente" validate:"required,amount"`
	NyLopetid           string `json:"ny_lopetid" yaml:"ny_lopetid" validate:"required,numeric"`
	NyTermingebyr       string `json:"ny_termingebyr,omitempty" yaml:"ny_termingebyr"`
	Etableringskostnad  string `json:"etableringskostnad,omitempty" yaml:"etableringskostnad"`
	Type                string `json:"type,omitempty" yaml:"type" validate:"omitempty,oneof=annuitet serie"`
}

// Form flattens the request into the form mapping the workflow reads
func (r RestructureRequest) Form() map[string]any {
	return map[string]any{
		"lanebelop":            r.Lanebelop,
		"rente":                r.Rente,
		"gjenvaerende_lopetid": r.GjenvaerendeLopetid,
		"termingebyr":          r.Termingebyr,
		"ny_rente":             r.NyRente,
		"ny_lopetid":           r.NyLopetid,
		"ny_termingebyr":       r.NyTermingebyr,
		"etableringskostnad":   r.Etableringskostnad,
		"type":                 r.Type,
	}
}

// Tax API Requests

// TaxRequest asks for a tax estimate
type TaxRequest struct {
	Inntektsar       string `json:"inntektsar" yaml:"inntektsar" validate:"required,numeric,len=4"`
	Alder            string `json:"alder" yaml:"alder" validate:"required,numeric"`
	Kommune          string `json:"kommune,omitempty" yaml:"kommune" validate:"omitempty,numeric,len=4"`
	BruttoArsinntekt string `json:"brutto_arsinntekt" yaml:"brutto_arsinntekt" validate:"required,amount"`
	Formue           string `json:"formue,omitempty" yaml:"formue"`
	Gjeldsrenter     string `json:"gjeldsrenter,omitempty" yaml:"gjeldsrenter"`
	Fradrag          string `json:"fradrag,omitempty" yaml:"fradrag"`
}

// Form flattens the request into the form mapping the workflow reads
func (r TaxRequest) Form() map[string]any {
	return map[string]any{
		"inntektsar":        r.Inntektsar,
		"alder":             r.Alder,
		"kommune":           r.Kommune,
		"brutto_arsinntekt": r.BruttoArsinntekt,
		"formue":            r.Formue,
		"gjeldsrenter":      r.Gjeldsrenter,
		"fradrag":           r.Fradrag,
	}
}

// Result API Requests

// ExportRequest selects the export format of a stored result
type ExportRequest struct {
	ID     string `json:"id" param:"id" validate:"required,uuid"`
	Format string `json:"format" param:"format" validate:"required,oneof=xlsx csv"`
}
