// Package connectors fetches the third-party data the workflows consume:
// the SIFO reference budget, Finn listings and neighborhood profiles,
// Posten postal codes, SSB mortgage rates and the Skatteetaten tax
// calculator.
//
// Every connector is constructed with an already validated identifier and
// returns a plain mapping of parsed site data from Run, or an
// upstream_timeout, upstream_connection or upstream_not_found workflow
// error. Nothing is retried.
package connectors

import (
	"context"

	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// Connector fetches one upstream document
type Connector interface {
	Name() string
	Run(ctx context.Context) (*workflow.OrderedMapping, error)
}

// Sources builds the connectors a workflow needs
type Sources interface {
	Sifo(family domain.Family) Connector
	FinnAdvert(code string) Connector
	FinnCommunity(code string) Connector
	Posten(postalCode string) Connector
	MortgageRate() Connector
	Skatteetaten(form domain.TaxForm) Connector
}

// Endpoints holds the base URLs of the upstream sites
type Endpoints struct {
	SifoURL          string `yaml:"sifo_url"`
	FinnAdvertURL    string `yaml:"finn_advert_url"`
	FinnCommunityURL string `yaml:"finn_community_url"`
	PostenURL        string `yaml:"posten_url"`
	PostenClientURL  string `yaml:"posten_client_url"`
	SSBRateURL       string `yaml:"ssb_rate_url"`
	SkatteetatenURL  string `yaml:"skatteetaten_url"`
}

// DefaultEndpoints returns the production endpoints
func DefaultEndpoints() Endpoints {
	return Endpoints{
		SifoURL:          "https://kalkulator.referansebudsjett.no/php/resultat_as_xml.php",
		FinnAdvertURL:    "https://www.finn.no/realestate/homes/ad.html",
		FinnCommunityURL: "https://www.finn.no/realestate/homes/neighborhood",
		PostenURL:        "https://api.bring.com/shippingguide/api/postalCode.json",
		PostenClientURL:  "husholdning",
		SSBRateURL:       "https://data.ssb.no/api/v0/no/table/10748",
		SkatteetatenURL:  "https://skatteberegning.app.skatteetaten.no/api/v1/beregn",
	}
}

// Web builds connectors against the live sites
type Web struct {
	client    *Client
	fetcher   Fetcher
	endpoints Endpoints
}

// NewWeb creates the live Sources. A nil fetcher fetches Finn pages with
// the plain HTTP client.
func NewWeb(client *Client, fetcher Fetcher, endpoints Endpoints) *Web {
	if fetcher == nil {
		fetcher = HTTPFetcher{Client: client}
	}
	return &Web{client: client, fetcher: fetcher, endpoints: endpoints}
}

func (w *Web) Sifo(family domain.Family) Connector {
	return NewSifo(w.client, w.endpoints.SifoURL, family)
}

func (w *Web) FinnAdvert(code string) Connector {
	return NewFinnAdvert(w.fetcher, w.endpoints.FinnAdvertURL, code)
}

func (w *Web) FinnCommunity(code string) Connector {
	return NewFinnCommunity(w.fetcher, w.endpoints.FinnCommunityURL, code)
}

func (w *Web) Posten(postalCode string) Connector {
	return NewPosten(w.client, w.endpoints.PostenURL, w.endpoints.PostenClientURL, postalCode)
}

func (w *Web) MortgageRate() Connector {
	return NewSSBRate(w.client, w.endpoints.SSBRateURL)
}

func (w *Web) Skatteetaten(form domain.TaxForm) Connector {
	return NewSkatteetaten(w.client, w.endpoints.SkatteetatenURL, form)
}
