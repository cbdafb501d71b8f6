package processes

import (
	"context"
	"strings"

	"husholdning/internal/connectors"
	"husholdning/internal/operations"
	"husholdning/internal/workflow"
)

// Registry keys of the Finn workflow
const (
	FinnKeyCode          = "finnkode"
	FinnKeyAdvertData    = "annonse_data"
	FinnKeyCommunityData = "nabolag_data"
	FinnKeyListing       = "annonse_felter"
	FinnKeyPostal        = "poststed"
	FinnKeyAdvert        = "annonse"
	FinnKeyStatistics    = "statistikk"
	FinnKeyInterest      = "interesse"
	FinnKeyViews         = "visninger"
	FinnKeyCards         = "kort"
	FinnKeyFamily        = "familie"
	FinnKeyLeisure       = "fritid"
	FinnKeyTransport     = "transport"
	FinnKeyShopping      = "handel"
	FinnKeyRatings       = "vurderinger"
	FinnKeyScore         = "score"
	FinnKeyCommunity     = "nabolag"
	FinnKeyResult        = "finn"
)

// Neighborhood card types as lower-cased by Separate
const (
	CardFamily    = "family"
	CardLeisure   = "leisure"
	CardTransport = "transport"
	CardShopping  = "shopping"
	CardCommunity = "community"
)

// listingFields are the advert fields kept in the listing section
var listingFields = []string{
	"finnkode", "tittel", "adresse", "postnummer", "poststed",
	"prisantydning", "totalpris", "felleskostnader",
	"boligtype", "eieform", "soverom", "bruksareal", "byggeaar",
}

// FinnAdvertProcessing fetches a Finn listing and its neighborhood profile
// and turns both into display tables.
type FinnAdvertProcessing struct {
	base
	sources connectors.Sources
}

// NewFinnAdvertProcessing creates the Finn workflow
func NewFinnAdvertProcessing(sources connectors.Sources, opts ...workflow.Option) *FinnAdvertProcessing {
	return &FinnAdvertProcessing{
		base:    newBase("FinnAdvertProcessing", opts...),
		sources: sources,
	}
}

// Run processes the listing named by form, either a Finn code or a
// mapping carrying one under "finnkode".
func (f *FinnAdvertProcessing) Run(ctx context.Context, form any) (any, error) {
	return f.execute(ctx, form, f.workflow)
}

func (f *FinnAdvertProcessing) workflow(ctx context.Context, p *workflow.Process) (any, error) {
	raw, _ := p.Payload(KeyForm)
	if m, ok := workflow.AsMapping(raw); ok {
		raw = m[FinnKeyCode]
	}
	sig, err := p.Execute(ctx, FinnKeyCode, operations.NewValidateFinnCode("Finn code", raw), KeyForm)
	if err != nil {
		return nil, err
	}
	code, err := as[string](sig.Payload())
	if err != nil {
		return nil, err
	}

	err = p.RunParallel(ctx,
		p.StepFunc(FinnKeyAdvertData, fetch(f.sources.FinnAdvert(code), "Finn advert"), FinnKeyCode),
		p.StepFunc(FinnKeyCommunityData, fetch(f.sources.FinnCommunity(code), "Finn neighborhood profile"), FinnKeyCode),
	)
	if err != nil {
		return nil, err
	}

	if err := p.Schedule(ctx, finnTasks(f.sources)...); err != nil {
		return nil, err
	}
	return p.Output(FinnKeyResult)
}

func finnTasks(sources connectors.Sources) []workflow.Task {
	tasks := []workflow.Task{
		task(FinnKeyListing, "listing fields", func(a []any) (workflow.Operation, error) {
			return operations.NewExtract("listing fields", a[0], listingFields...), nil
		}, FinnKeyAdvertData),

		task(FinnKeyPostal, "postal lookup", func(a []any) (workflow.Operation, error) {
			listing, _ := workflow.AsMapping(a[0])
			check := operations.NewValidatePostalCode("postal code", listing["postnummer"])
			return workflow.Func("Posten", "Posten postal code", func(ctx context.Context) (any, error) {
				code, err := check.Run(ctx)
				if err != nil {
					return nil, workflow.ErrSkip
				}
				return optional(fetch(sources.Posten(code.(string)), "Posten postal code")).Run(ctx)
			}), nil
		}, FinnKeyListing),

		{
			Key:         FinnKeyAdvert,
			Requires:    []string{FinnKeyListing},
			After:       []string{FinnKeyPostal},
			Description: "merge advert",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				parts := []any{}
				if v, ok := in.Payload(FinnKeyListing); ok {
					parts = append(parts, v)
				}
				if postal, ok := in.Mapping(FinnKeyPostal); ok {
					parts = append(parts, workflow.Mapping{
						"poststed":        postal["poststed"],
						"postnummer_type": postal["type"],
					})
				}
				return workflow.NewMultiplex("advert", parts...), nil
			},
		},

		{
			Key:         FinnKeyStatistics,
			Requires:    []string{FinnKeyAdvertData},
			Description: "view statistics",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				data, _ := in.Mapping(FinnKeyAdvertData)
				if _, ok := data[FinnKeyStatistics]; !ok {
					return nil, workflow.ErrSkip
				}
				return operations.NewExtractSubtree("view statistics", data, FinnKeyStatistics), nil
			},
		},

		task(FinnKeyViews, "views", func(a []any) (workflow.Operation, error) {
			return operations.NewExtract("views", a[0], "visninger"), nil
		}, FinnKeyStatistics),

		task(FinnKeyInterest, "favorites per view", func(a []any) (workflow.Operation, error) {
			stats, _ := workflow.AsMapping(a[0])
			// Finn leaves counts blank on new listings
			if blank(stats["favoritter"]) || blank(stats["visninger"]) {
				return nil, workflow.ErrSkip
			}
			favorites := workflow.Mapping{"favoritter": stats["favoritter"]}
			return operations.NewDivide("favorites per view", favorites, a[1],
				operations.Format{Percent: true, Rnd: 1, Suffix: "_per_visning"}), nil
		}, FinnKeyStatistics, FinnKeyViews),

		task(FinnKeyCards, "separate cards", func(a []any) (workflow.Operation, error) {
			data, _ := workflow.AsMapping(a[0])
			return operations.NewSeparate("neighborhood cards", data["cards"]), nil
		}, FinnKeyCommunityData),

		cardTask(FinnKeyFamily, CardFamily, "family statistics", func(d string, card any) workflow.Operation {
			return operations.NewRestructure(d, card)
		}),
		cardTask(FinnKeyLeisure, CardLeisure, "leisure", func(d string, card any) workflow.Operation {
			return operations.NewRestructurePois(d, card)
		}),
		cardTask(FinnKeyTransport, CardTransport, "transportation", func(d string, card any) workflow.Operation {
			return operations.NewRestructurePois(d, card)
		}),
		cardTask(FinnKeyShopping, CardShopping, "shopping", func(d string, card any) workflow.Operation {
			return operations.NewRestructurePois(d, card)
		}),
		cardTask(FinnKeyRatings, CardCommunity, "community ratings", func(d string, card any) workflow.Operation {
			return operations.NewRestructureRatings(d, card)
		}),
		cardTask(FinnKeyScore, CardCommunity, "community score", func(d string, card any) workflow.Operation {
			return operations.NewRestructureScore(d, card)
		}),
	}

	communityKeys := []string{FinnKeyFamily, FinnKeyLeisure, FinnKeyTransport, FinnKeyShopping, FinnKeyRatings, FinnKeyScore}
	tasks = append(tasks,
		workflow.Task{
			Key:         FinnKeyCommunity,
			Requires:    []string{FinnKeyCards},
			After:       communityKeys,
			Description: "merge neighborhood",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				return workflow.NewMultiplex("neighborhood", sections(in, communityKeys...)...), nil
			},
		},
		workflow.Task{
			Key:         FinnKeyResult,
			Requires:    []string{FinnKeyAdvert, FinnKeyCommunity},
			After:       []string{FinnKeyStatistics, FinnKeyInterest},
			Description: "merge listing",
			Build: func(in workflow.Inputs) (workflow.Operation, error) {
				parts := sections(in, FinnKeyAdvert)
				if stats, ok := in.Payload(FinnKeyStatistics); ok {
					interest, _ := in.Payload(FinnKeyInterest)
					merged, err := workflow.Merge(stats, interest)
					if err != nil {
						return nil, err
					}
					parts = append(parts, workflow.Mapping{FinnKeyStatistics: merged})
				}
				parts = append(parts, sections(in, FinnKeyCommunity)...)
				return workflow.NewMultiplex("Finn listing", parts...), nil
			},
		},
	)
	return tasks
}

func blank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && strings.TrimSpace(s) == ""
}

// cardTask restructures one neighborhood card, skipping when the profile
// has no card of that type
func cardTask(key, card, description string, build func(string, any) workflow.Operation) workflow.Task {
	return workflow.Task{
		Key:         key,
		Requires:    []string{FinnKeyCards},
		Description: description,
		Build: func(in workflow.Inputs) (workflow.Operation, error) {
			cards, _ := in.Mapping(FinnKeyCards)
			data, ok := cards[card]
			if !ok {
				return nil, workflow.ErrSkip
			}
			return build(description, data), nil
		},
	}
}

// Advert returns the listing merged with the postal lookup
func (f *FinnAdvertProcessing) Advert() *workflow.OrderedMapping {
	return f.ordered(FinnKeyAdvert)
}

// Statistics returns the view statistics, or nil when the listing has none
func (f *FinnAdvertProcessing) Statistics() *workflow.OrderedMapping {
	return f.ordered(FinnKeyStatistics)
}

// Community returns every neighborhood section found
func (f *FinnAdvertProcessing) Community() *workflow.OrderedMapping {
	return f.ordered(FinnKeyCommunity)
}

func (f *FinnAdvertProcessing) FamilyStatistics() *workflow.OrderedMapping {
	return f.ordered(FinnKeyFamily)
}

func (f *FinnAdvertProcessing) LeisureStatistics() *workflow.OrderedMapping {
	return f.ordered(FinnKeyLeisure)
}

func (f *FinnAdvertProcessing) TransportationStatistics() *workflow.OrderedMapping {
	return f.ordered(FinnKeyTransport)
}

func (f *FinnAdvertProcessing) ShoppingStatistics() *workflow.OrderedMapping {
	return f.ordered(FinnKeyShopping)
}

// CommunityStatistics returns the ratings merged with the overall score
func (f *FinnAdvertProcessing) CommunityStatistics() *workflow.OrderedMapping {
	var parts []any
	for _, key := range []string{FinnKeyRatings, FinnKeyScore} {
		if m := f.ordered(key); m != nil {
			parts = append(parts, m)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	merged, _ := workflow.Merge(parts...)
	return merged
}

// Listing returns the merged terminal payload
func (f *FinnAdvertProcessing) Listing() *workflow.OrderedMapping {
	return f.ordered(FinnKeyResult)
}
