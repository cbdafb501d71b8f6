package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
)

// Script ids carrying the listing data on Finn pages
const (
	AdvertScriptID    = "advert-data"
	CommunityScriptID = "neighborhood-data"
)

// FinnAdvert fetches a real estate listing and normalizes the fields the
// workflows display. Absent scalar fields are empty strings; view
// statistics are only present when the listing publishes them.
type FinnAdvert struct {
	fetcher Fetcher
	baseURL string
	code    string
}

// NewFinnAdvert creates a FinnAdvert connector for a Finn code
func NewFinnAdvert(fetcher Fetcher, baseURL, code string) *FinnAdvert {
	return &FinnAdvert{fetcher: fetcher, baseURL: baseURL, code: code}
}

func (f *FinnAdvert) Name() string { return "FinnAdvert" }

// URL returns the listing page address
func (f *FinnAdvert) URL() string {
	return f.baseURL + "?" + url.Values{"finnkode": {f.code}}.Encode()
}

func (f *FinnAdvert) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	page, err := f.fetcher.Fetch(ctx, f.Name(), f.URL())
	if err != nil {
		return nil, err
	}
	doc, err := scriptJSON(f.Name(), page, AdvertScriptID)
	if err != nil {
		return nil, err
	}

	out := workflow.NewOrderedMapping()
	out.Set("finnkode", f.code)
	out.Set("tittel", field(doc, "title"))
	out.Set("adresse", field(doc, "location", "address"))
	out.Set("postnummer", field(doc, "location", "postalCode"))
	out.Set("poststed", field(doc, "location", "postalName"))
	out.Set("prisantydning", moneyField(doc, "price", "suggestion"))
	out.Set("totalpris", moneyField(doc, "price", "total"))
	out.Set("felleskostnader", moneyField(doc, "price", "sharedCost"))
	out.Set("boligtype", field(doc, "property", "type"))
	out.Set("eieform", field(doc, "property", "ownership"))
	out.Set("soverom", field(doc, "property", "bedrooms"))
	out.Set("bruksareal", areaField(doc, "property", "usableArea"))
	out.Set("byggeaar", field(doc, "property", "built"))

	if stats, ok := lookup(doc, "statistics").(map[string]any); ok {
		out.Set("statistikk", workflow.Mapping{
			"visninger":  field(stats, "views"),
			"favoritter": field(stats, "favorites"),
		})
	}
	return out, nil
}

// FinnCommunity fetches the neighborhood profile of a listing. The result
// holds the raw profile cards under "cards"; each card has a "type".
type FinnCommunity struct {
	fetcher Fetcher
	baseURL string
	code    string
}

// NewFinnCommunity creates a FinnCommunity connector for a Finn code
func NewFinnCommunity(fetcher Fetcher, baseURL, code string) *FinnCommunity {
	return &FinnCommunity{fetcher: fetcher, baseURL: baseURL, code: code}
}

func (f *FinnCommunity) Name() string { return "FinnCommunity" }

// URL returns the neighborhood page address
func (f *FinnCommunity) URL() string {
	return strings.TrimSuffix(f.baseURL, "/") + "/" + url.PathEscape(f.code)
}

func (f *FinnCommunity) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	page, err := f.fetcher.Fetch(ctx, f.Name(), f.URL())
	if err != nil {
		return nil, err
	}
	doc, err := scriptJSON(f.Name(), page, CommunityScriptID)
	if err != nil {
		return nil, err
	}

	cards, _ := doc["cards"].([]any)
	if cards == nil {
		cards = []any{}
	}
	out := workflow.NewOrderedMapping()
	out.Set("finnkode", f.code)
	out.Set("cards", cards)
	return out, nil
}

// scriptJSON decodes the JSON body of the <script> element with the given id
func scriptJSON(source string, page []byte, id string) (map[string]any, error) {
	root, err := html.Parse(bytes.NewReader(page))
	if err != nil {
		return nil, workflow.NewExecutionError(source, fmt.Errorf("parse html: %w", err))
	}

	node := findScript(root, id)
	if node == nil || node.FirstChild == nil {
		return nil, workflow.NewUpstreamNotFoundError(source, "script#"+id)
	}

	var raw strings.Builder
	for c := node.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			raw.WriteString(c.Data)
		}
	}

	dec := json.NewDecoder(strings.NewReader(raw.String()))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return nil, workflow.NewExecutionError(source, fmt.Errorf("decode script#%s: %w", id, err))
	}
	return doc, nil
}

func findScript(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Script {
		for _, a := range n.Attr {
			if a.Key == "id" && a.Val == id {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findScript(c, id); found != nil {
			return found
		}
	}
	return nil
}

// lookup walks nested objects and returns nil when any step is missing
func lookup(doc map[string]any, path ...string) any {
	var cur any = doc
	for _, p := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[p]
	}
	return cur
}

func field(doc map[string]any, path ...string) string {
	switch v := lookup(doc, path...).(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	default:
		return fmt.Sprint(v)
	}
}

func moneyField(doc map[string]any, path ...string) string {
	d, err := money.ParseValue(lookup(doc, path...))
	if err != nil {
		return ""
	}
	return money.MoneyOf(d).String()
}

func areaField(doc map[string]any, path ...string) string {
	d, err := money.ParseValue(lookup(doc, path...))
	if err != nil {
		return ""
	}
	return money.AmountOf(d).String() + " m²"
}
