package testutil

import (
	"context"
	"sync"

	"husholdning/internal/connectors"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// StubConnector returns a fixed mapping or error
type StubConnector struct {
	Source string
	Out    *workflow.OrderedMapping
	Err    error
}

func (s StubConnector) Name() string { return s.Source }

// Run honors cancellation before returning the fixed result
func (s StubConnector) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Out, s.Err
}

// StubSources serves canned upstream documents for every connector. Fields
// left nil fall back to the fixtures below.
type StubSources struct {
	mu    sync.Mutex
	calls []string

	SifoOut      *workflow.OrderedMapping
	AdvertOut    *workflow.OrderedMapping
	CommunityOut *workflow.OrderedMapping
	PostenOut    *workflow.OrderedMapping
	RateOut      *workflow.OrderedMapping
	TaxOut       *workflow.OrderedMapping
	Errs         map[string]error
}

var _ connectors.Sources = (*StubSources)(nil)

// NewStubSources returns sources serving the default fixtures
func NewStubSources() *StubSources {
	return &StubSources{Errs: make(map[string]error)}
}

// Calls returns the connector names requested so far, in order
func (s *StubSources) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *StubSources) stub(name string, out, fallback *workflow.OrderedMapping) connectors.Connector {
	s.mu.Lock()
	s.calls = append(s.calls, name)
	err := s.Errs[name]
	s.mu.Unlock()

	if out == nil {
		out = fallback
	}
	if err != nil {
		out = nil
	}
	return StubConnector{Source: name, Out: out, Err: err}
}

func (s *StubSources) Sifo(domain.Family) connectors.Connector {
	return s.stub("Sifo", s.SifoOut, SifoExpenses())
}

func (s *StubSources) FinnAdvert(code string) connectors.Connector {
	return s.stub("FinnAdvert", s.AdvertOut, FinnAdvert(code))
}

func (s *StubSources) FinnCommunity(code string) connectors.Connector {
	return s.stub("FinnCommunity", s.CommunityOut, FinnCommunity(code))
}

func (s *StubSources) Posten(postalCode string) connectors.Connector {
	return s.stub("Posten", s.PostenOut, Ordered("postnummer", postalCode, "poststed", "OSLO", "type", "gateadresser"))
}

func (s *StubSources) MortgageRate() connectors.Connector {
	return s.stub("SSB", s.RateOut, Ordered("rente", "5,25 %", "periode", "2024M06"))
}

func (s *StubSources) Skatteetaten(domain.TaxForm) connectors.Connector {
	return s.stub("Skatteetaten", s.TaxOut, Ordered(
		"inntektsskatt", "98 000 kr",
		"trinnskatt", "12 000 kr",
		"trygdeavgift", "40 000 kr",
		"totalt", "150 000 kr",
	))
}

// Ordered builds an ordered mapping from alternating keys and values
func Ordered(kv ...any) *workflow.OrderedMapping {
	out := workflow.NewOrderedMapping()
	for i := 0; i+1 < len(kv); i += 2 {
		out.Set(kv[i].(string), kv[i+1])
	}
	return out
}

// SifoExpenses is a monthly SIFO budget for a one person household
func SifoExpenses() *workflow.OrderedMapping {
	return Ordered(
		"mat", "3 550 kr",
		"klar", "900 kr",
		"dagligvarer", "400 kr",
		"bil", "3 150 kr",
		"totalt", "8 000 kr",
	)
}

// FinnAdvert is a parsed listing without view statistics
func FinnAdvert(code string) *workflow.OrderedMapping {
	return Ordered(
		"finnkode", code,
		"tittel", "Lys leilighet med balkong",
		"adresse", "Storgata 1",
		"postnummer", "0150",
		"poststed", "Oslo",
		"prisantydning", "4 500 000 kr",
		"totalpris", "4 620 000 kr",
		"felleskostnader", "3 200 kr",
		"boligtype", "Leilighet",
		"eieform", "Selveier",
		"soverom", "2",
		"bruksareal", "74 m²",
		"byggeaar", "",
	)
}

// FinnCommunity is a parsed neighborhood profile without cards
func FinnCommunity(code string) *workflow.OrderedMapping {
	return Ordered("finnkode", code, "cards", []any{})
}

// HouseholdForm is a valid SIFO form
func HouseholdForm() map[string]any {
	return map[string]any{
		"person_1":          map[string]any{"alder": "20-50", "kjonn": "Mann"},
		"antall_biler":      "1",
		"brutto_arsinntekt": "500000 kr",
	}
}

// MortgageForm is a valid mortgage form with a fixed rate
func MortgageForm() map[string]any {
	return map[string]any{
		"lanebelop":         "3 000 000",
		"rente":             "5",
		"lopetid":           "25",
		"boligverdi":        "4 000 000 kr",
		"brutto_arsinntekt": "900 000 kr",
	}
}

// RestructureForm is a valid refinancing form
func RestructureForm() map[string]any {
	return map[string]any{
		"lanebelop":            "2 000 000",
		"rente":                "6",
		"gjenvaerende_lopetid": "20",
		"ny_rente":             "4,5",
		"ny_lopetid":           "25",
		"etableringskostnad":   "5 000",
	}
}

// TaxForm is a valid tax form
func TaxForm() map[string]any {
	return map[string]any{
		"inntektsar":        "2024",
		"alder":             "40",
		"kommune":           "0301",
		"brutto_arsinntekt": "600 000 kr",
	}
}
