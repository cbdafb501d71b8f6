package connectors

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Skatteetaten runs the tax calculator for a validated tax form
type Skatteetaten struct {
	client  *Client
	baseURL string
	form    domain.TaxForm
}

// NewSkatteetaten creates a Skatteetaten connector
func NewSkatteetaten(client *Client, baseURL string, form domain.TaxForm) *Skatteetaten {
	return &Skatteetaten{client: client, baseURL: baseURL, form: form}
}

func (s *Skatteetaten) Name() string { return "Skatteetaten" }

type taxRequest struct {
	IncomeYear   int    `json:"inntektsaar"`
	Age          int    `json:"alder"`
	Municipality string `json:"kommunenummer,omitempty"`
	GrossIncome  string `json:"bruttoinntekt"`
	Wealth       string `json:"formue"`
	InterestPaid string `json:"gjeldsrenter"`
	Deductions   string `json:"fradrag"`
}

type taxResponse struct {
	Calculation map[string]json.Number `json:"skatteberegning"`
}

// taxLines maps calculator fields to result keys, in display order
var taxLines = []struct{ field, key string }{
	{"skattPaaAlminneligInntekt", "inntektsskatt"},
	{"trinnskatt", "trinnskatt"},
	{"trygdeavgift", "trygdeavgift"},
	{"formuesskatt", "formuesskatt"},
}

func (s *Skatteetaten) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	req := taxRequest{
		IncomeYear:   s.form.IncomeYear,
		Age:          s.form.Age,
		Municipality: s.form.Municipality,
		GrossIncome:  s.form.GrossIncome.StringFixed(0),
		Wealth:       s.form.Wealth.StringFixed(0),
		InterestPaid: s.form.InterestPaid.StringFixed(0),
		Deductions:   s.form.Deductions.StringFixed(0),
	}

	var resp taxResponse
	if err := s.client.PostJSON(ctx, s.Name(), s.baseURL, req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Calculation) == 0 {
		return nil, workflow.NewUpstreamNotFoundError(s.Name(), "skatteberegning")
	}

	out := workflow.NewOrderedMapping()
	sum := decimal.Zero
	for _, line := range taxLines {
		d := decimal.Zero
		if v, ok := resp.Calculation[line.field]; ok {
			parsed, err := money.ParseValue(v)
			if err != nil {
				return nil, workflow.NewInvalidInputError(s.Name(), line.field, "tax line is not numeric")
			}
			d = parsed
		}
		sum = sum.Add(d)
		out.Set(line.key, money.MoneyOf(d).String())
	}

	if v, ok := resp.Calculation["sumSkatt"]; ok {
		if total, err := money.ParseValue(v); err == nil {
			sum = total
		}
	}
	out.Set("totalt", money.MoneyOf(sum).String())
	return out, nil
}
