package connectors

import (
	"context"
	"net/url"
	"strings"

	"husholdning/internal/workflow"
)

// Posten looks up the postal place of a Norwegian postal code
type Posten struct {
	client     *Client
	baseURL    string
	clientURL  string
	postalCode string
}

// NewPosten creates a Posten connector
func NewPosten(client *Client, baseURL, clientURL, postalCode string) *Posten {
	return &Posten{client: client, baseURL: baseURL, clientURL: clientURL, postalCode: postalCode}
}

func (p *Posten) Name() string { return "Posten" }

type postalCodeResponse struct {
	Result         string `json:"result"`
	Valid          bool   `json:"valid"`
	PostalCodeType string `json:"postalCodeType"`
}

func (p *Posten) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	q := url.Values{}
	q.Set("clientUrl", p.clientURL)
	q.Set("pnr", p.postalCode)

	var resp postalCodeResponse
	if err := p.client.GetJSON(ctx, p.Name(), p.baseURL+"?"+q.Encode(), &resp); err != nil {
		return nil, err
	}
	if !resp.Valid {
		return nil, workflow.NewUpstreamNotFoundError(p.Name(), "postnummer "+p.postalCode)
	}

	out := workflow.NewOrderedMapping()
	out.Set("postnummer", p.postalCode)
	out.Set("poststed", strings.ToUpper(strings.TrimSpace(resp.Result)))
	out.Set("type", strings.ToLower(resp.PostalCodeType))
	return out, nil
}
