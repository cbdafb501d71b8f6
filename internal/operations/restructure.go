package operations

import (
	"context"
	"fmt"

	"husholdning/internal/money"
	"husholdning/internal/workflow"
)

// Restructure flattens a neighborhood statistics block
//
//	{"data": [{"label": "Barnehager", "values": {"neighborhood": 12, "city": 10}}]}
//
// into {"Barnehager": {"nabolag": "12", "by": "10"}}.
type Restructure struct {
	workflow.BaseOperation
	data any
}

// NewRestructure creates a Restructure of a statistics block
func NewRestructure(description string, data any) *Restructure {
	return &Restructure{
		BaseOperation: workflow.NewBaseOperation("Restructure", description),
		data:          data,
	}
}

func (r *Restructure) Run(context.Context) (any, error) {
	block, _, err := mappingOf(r.Name(), "data", r.data)
	if err != nil {
		return nil, err
	}
	rows, err := rowsOf(r.Name(), block["data"])
	if err != nil {
		return nil, err
	}

	out := workflow.NewOrderedMapping()
	for i, row := range rows {
		label := text(row["label"])
		if label == Placeholder {
			label = fmt.Sprintf("rad_%d", i+1)
		}
		values, _ := workflow.AsMapping(row["values"])
		out.Set(label, workflow.Mapping{
			"nabolag": text(values["neighborhood"]),
			"by":      text(values["city"]),
		})
	}
	return out, nil
}

// RestructurePois turns a points-of-interest list into travel times
//
//	{"pois": [{"name": "Rema 1000", "distances": {"walk": 4, "drive": 1}}]}
//
// becomes {"Rema 1000": {"gange": "4 min", "bil": "1 min"}}.
type RestructurePois struct {
	workflow.BaseOperation
	data any
}

// NewRestructurePois creates a RestructurePois
func NewRestructurePois(description string, data any) *RestructurePois {
	return &RestructurePois{
		BaseOperation: workflow.NewBaseOperation("RestructurePois", description),
		data:          data,
	}
}

func (r *RestructurePois) Run(context.Context) (any, error) {
	block, _, err := mappingOf(r.Name(), "data", r.data)
	if err != nil {
		return nil, err
	}
	rows, err := rowsOf(r.Name(), block["pois"])
	if err != nil {
		return nil, err
	}

	out := workflow.NewOrderedMapping()
	for i, row := range rows {
		name := text(row["name"])
		if name == Placeholder {
			name = fmt.Sprintf("sted_%d", i+1)
		}
		distances, _ := workflow.AsMapping(row["distances"])
		out.Set(name, workflow.Mapping{
			"gange": minutes(distances["walk"]),
			"bil":   minutes(distances["drive"]),
		})
	}
	return out, nil
}

func minutes(v any) string {
	t := text(v)
	if t == Placeholder {
		return t
	}
	return t + " min"
}

// RestructureRatings turns rating rows into percentages
//
//	{"ratings": [{"title": "Trygghet", "score": 82}]}
//
// becomes {"Trygghet": "82 %"}.
type RestructureRatings struct {
	workflow.BaseOperation
	data any
}

// NewRestructureRatings creates a RestructureRatings
func NewRestructureRatings(description string, data any) *RestructureRatings {
	return &RestructureRatings{
		BaseOperation: workflow.NewBaseOperation("RestructureRatings", description),
		data:          data,
	}
}

func (r *RestructureRatings) Run(context.Context) (any, error) {
	block, _, err := mappingOf(r.Name(), "data", r.data)
	if err != nil {
		return nil, err
	}
	rows, err := rowsOf(r.Name(), block["ratings"])
	if err != nil {
		return nil, err
	}

	out := workflow.NewOrderedMapping()
	for i, row := range rows {
		title := text(row["title"])
		if title == Placeholder {
			title = fmt.Sprintf("vurdering_%d", i+1)
		}
		score, err := money.ParseValue(row["score"])
		if err != nil {
			out.Set(title, Placeholder)
			continue
		}
		out.Set(title, money.PercentOf(score).StringFixed(0))
	}
	return out, nil
}

// RestructureScore reads the overall score block
//
//	{"score": {"overall": "8,4", "votes": 120}}
//
// into {"score": "8,4", "stemmer": "120"}.
type RestructureScore struct {
	workflow.BaseOperation
	data any
}

// NewRestructureScore creates a RestructureScore
func NewRestructureScore(description string, data any) *RestructureScore {
	return &RestructureScore{
		BaseOperation: workflow.NewBaseOperation("RestructureScore", description),
		data:          data,
	}
}

func (r *RestructureScore) Run(context.Context) (any, error) {
	block, _, err := mappingOf(r.Name(), "data", r.data)
	if err != nil {
		return nil, err
	}
	score, _ := workflow.AsMapping(block["score"])

	out := workflow.NewOrderedMapping()
	out.Set("score", text(score["overall"]))
	out.Set("stemmer", text(score["votes"]))
	return out, nil
}
