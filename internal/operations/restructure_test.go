package operations_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"husholdning/internal/operations"
	"husholdning/internal/workflow"
)

func TestRestructure(t *testing.T) {
	data := workflow.Mapping{"data": []any{
		map[string]any{"label": "Barnehager", "values": map[string]any{"neighborhood": float64(12), "city": "10"}},
		map[string]any{"label": "Skoler", "values": map[string]any{"neighborhood": "3"}},
		map[string]any{"values": map[string]any{}},
	}}

	out := runMapping(t, operations.NewRestructure("statistics", data))
	assert.Equal(t, []string{"Barnehager", "Skoler", "rad_3"}, out.Keys())
	assert.Equal(t, workflow.Mapping{"nabolag": "12", "by": "10"}, get(t, out, "Barnehager"))
	assert.Equal(t, workflow.Mapping{"nabolag": "3", "by": operations.Placeholder}, get(t, out, "Skoler"))
	assert.Equal(t, workflow.Mapping{"nabolag": "-", "by": "-"}, get(t, out, "rad_3"))
}

func TestRestructurePois(t *testing.T) {
	data := workflow.Mapping{"pois": []any{
		map[string]any{"name": "Rema 1000", "distances": map[string]any{"walk": float64(4), "drive": float64(1)}},
		map[string]any{"name": "Bussholdeplass"},
	}}

	out := runMapping(t, operations.NewRestructurePois("pois", data))
	assert.Equal(t, workflow.Mapping{"gange": "4 min", "bil": "1 min"}, get(t, out, "Rema 1000"))
	assert.Equal(t, workflow.Mapping{"gange": "-", "bil": "-"}, get(t, out, "Bussholdeplass"))
}

func TestRestructureRatings(t *testing.T) {
	data := workflow.Mapping{"ratings": []any{
		map[string]any{"title": "Trygghet", "score": float64(82)},
		map[string]any{"title": "Naboskap"},
	}}

	out := runMapping(t, operations.NewRestructureRatings("ratings", data))
	assert.Equal(t, "82 %", get(t, out, "Trygghet"))
	assert.Equal(t, operations.Placeholder, get(t, out, "Naboskap"))
}

func TestRestructureScore(t *testing.T) {
	out := runMapping(t, operations.NewRestructureScore("score",
		workflow.Mapping{"score": map[string]any{"overall": "8,4"}}))
	assert.Equal(t, "8,4", get(t, out, "score"))
	assert.Equal(t, operations.Placeholder, get(t, out, "stemmer"))

	out = runMapping(t, operations.NewRestructureScore("no score", workflow.Mapping{}))
	assert.Equal(t, operations.Placeholder, get(t, out, "score"))
}

func TestRestructureMissingList(t *testing.T) {
	out := runMapping(t, operations.NewRestructure("no data", workflow.Mapping{}))
	assert.Equal(t, 0, out.Len())

	_, err := operations.NewRestructure("bad", "text").Run(context.Background())
	assert.True(t, workflow.IsType(err, workflow.ErrorTypeInvalidInput))
}
