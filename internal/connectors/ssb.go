package connectors

import (
	"context"
	"encoding/json"
	"fmt"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
)

// rateQuery selects the latest average interest rate on new mortgages
// from SSB table 10748.
var rateQuery = map[string]any{
	"query": []map[string]any{
		{"code": "Utlanstype", "selection": map[string]any{"filter": "item", "values": []string{"70"}}},
		{"code": "Sektor", "selection": map[string]any{"filter": "item", "values": []string{"04b"}}},
		{"code": "Rentebinding", "selection": map[string]any{"filter": "item", "values": []string{"08"}}},
		{"code": "Tid", "selection": map[string]any{"filter": "top", "values": []string{"1"}}},
	},
	"response": map[string]any{"format": "json-stat2"},
}

// SSBRate fetches the current average mortgage rate from Statistics Norway
type SSBRate struct {
	client  *Client
	baseURL string
}

// NewSSBRate creates an SSBRate connector
func NewSSBRate(client *Client, baseURL string) *SSBRate {
	return &SSBRate{client: client, baseURL: baseURL}
}

func (s *SSBRate) Name() string { return "SSB" }

// jsonStat is the subset of a JSON-stat 2.0 dataset the connector reads
type jsonStat struct {
	Label     string          `json:"label"`
	Value     []*json.Number  `json:"value"`
	Dimension jsonStatTimeDim `json:"dimension"`
}

type jsonStatTimeDim struct {
	Tid struct {
		Category struct {
			Index map[string]int `json:"index"`
		} `json:"category"`
	} `json:"Tid"`
}

func (s *SSBRate) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	var ds jsonStat
	if err := s.client.PostJSON(ctx, s.Name(), s.baseURL, rateQuery, &ds); err != nil {
		return nil, err
	}
	return parseRate(s.Name(), ds)
}

func parseRate(source string, ds jsonStat) (*workflow.OrderedMapping, error) {
	last := -1
	for i, v := range ds.Value {
		if v != nil {
			last = i
		}
	}
	if last < 0 {
		return nil, workflow.NewUpstreamNotFoundError(source, "mortgage rate")
	}

	rate, err := money.ParseValue(*ds.Value[last])
	if err != nil {
		return nil, workflow.NewExecutionError(source, fmt.Errorf("rate value: %w", err))
	}

	period := ""
	for p, i := range ds.Dimension.Tid.Category.Index {
		if i == last {
			period = p
		}
	}

	out := workflow.NewOrderedMapping()
	out.Set("rente", money.PercentOf(rate).String())
	out.Set("periode", period)
	out.Set("kilde", "SSB")
	return out, nil
}
