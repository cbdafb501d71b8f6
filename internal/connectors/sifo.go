package connectors

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Sifo fetches the SIFO reference budget of a household. The XML result
// lists monthly expenses per category under <utgifter>; subtotals named
// sum* are dropped and the grand total is kept as "totalt".
type Sifo struct {
	client  *Client
	baseURL string
	family  domain.Family
}

// NewSifo creates a Sifo connector for family
func NewSifo(client *Client, baseURL string, family domain.Family) *Sifo {
	return &Sifo{client: client, baseURL: baseURL, family: family}
}

func (s *Sifo) Name() string { return "Sifo" }

// Query returns the calculator parameters for the household
func (s *Sifo) Query() url.Values {
	q := url.Values{}
	q.Set("inntekt", s.family.GrossIncome.StringFixed(0))
	q.Set("antallBiler", strconv.Itoa(s.family.Cars))
	for i, p := range s.family.Persons {
		n := strconv.Itoa(i)
		q.Set("kjonn"+n, p.SifoGender())
		q.Set("alder"+n, p.SifoAge())
		q.Set("barnehage"+n, bit(p.Kindergarten))
		q.Set("sfo"+n, bit(p.SFO))
		q.Set("gravid"+n, bit(p.Pregnant))
		q.Set("student"+n, bit(p.Student))
	}
	return q
}

func bit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (s *Sifo) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	body, err := s.client.Get(ctx, s.Name(), s.baseURL+"?"+s.Query().Encode(), "application/xml")
	if err != nil {
		return nil, err
	}
	return parseSifo(s.Name(), body)
}

func parseSifo(source string, body []byte) (*workflow.OrderedMapping, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))

	var (
		path []string
		text strings.Builder
	)
	out := workflow.NewOrderedMapping()
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, workflow.NewExecutionError(source, fmt.Errorf("parse xml: %w", err))
		}

		switch t := tok.(type) {
		case xml.StartElement:
			path = append(path, t.Name.Local)
			text.Reset()
		case xml.CharData:
			text.Write(t)
		case xml.EndElement:
			name := t.Name.Local
			if len(path) > 0 {
				path = path[:len(path)-1]
			}
			if inExpenses(path) && !strings.HasPrefix(name, "sum") {
				if d, err := money.Parse(strings.TrimSpace(text.String())); err == nil {
					out.Set(name, money.MoneyOf(d).String())
				}
			}
			text.Reset()
		}
	}

	if out.Len() == 0 {
		return nil, workflow.NewUpstreamNotFoundError(source, "expenses")
	}
	if _, ok := out.Get("totalt"); !ok {
		return nil, workflow.NewMissingKeyError(source, "totalt")
	}
	return out, nil
}

func inExpenses(path []string) bool {
	for _, p := range path {
		if p == "utgifter" {
			return true
		}
	}
	return false
}
