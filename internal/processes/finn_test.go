package processes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"husholdning/internal/processes"
	"husholdning/internal/workflow"
)

const finnCode = "123456789"

func advertData(withStats bool) *workflow.OrderedMapping {
	out := ordered(
		"finnkode", finnCode,
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
	if withStats {
		out.Set("statistikk", workflow.Mapping{"visninger": "1520", "favoritter": "76"})
	}
	return out
}

func communityData() *workflow.OrderedMapping {
	return ordered(
		"finnkode", finnCode,
		"cards", []any{
			map[string]any{
				"type": "Family",
				"data": []any{
					map[string]any{"label": "Barnehager", "values": map[string]any{"neighborhood": "12", "city": "10"}},
				},
			},
			map[string]any{
				"type": "Transport",
				"pois": []any{
					map[string]any{"name": "Storgata T", "distances": map[string]any{"walk": "4"}},
				},
			},
			map[string]any{
				"type":    "Community",
				"ratings": []any{map[string]any{"title": "Trygghet", "score": "82"}},
				"score":   map[string]any{"overall": "8,4", "votes": "120"},
			},
		},
	)
}

func finnSources(withStats bool) *mockSources {
	src := &mockSources{}
	src.On("FinnAdvert", finnCode).Return(stub{name: "FinnAdvert", out: advertData(withStats)})
	src.On("FinnCommunity", finnCode).Return(stub{name: "FinnCommunity", out: communityData()})
	src.On("Posten", "0150").Return(stub{name: "Posten", out: ordered("postnummer", "0150", "poststed", "OSLO", "type", "gateadresser")})
	return src
}

func TestFinnAdvertProcessing(t *testing.T) {
	src := finnSources(true)

	proc := processes.NewFinnAdvertProcessing(src, quiet()...)
	out, err := proc.Run(context.Background(), workflow.Mapping{"finnkode": " " + finnCode + " "})
	require.NoError(t, err)
	src.AssertExpectations(t)

	listing, ok := out.(*workflow.OrderedMapping)
	require.True(t, ok)
	assert.Equal(t, []string{"annonse", "statistikk", "nabolag"}, listing.Keys())

	advert := proc.Advert()
	assert.Equal(t, "OSLO", get(t, advert, "poststed"))
	assert.Equal(t, "gateadresser", get(t, advert, "postnummer_type"))
	assert.Equal(t, "4 500 000 kr", get(t, advert, "prisantydning"))

	stats, ok := workflow.AsMapping(get(t, listing, "statistikk"))
	require.True(t, ok)
	assert.Equal(t, "1520", stats["visninger"])
	assert.Equal(t, "5,0 %", stats["favoritter_per_visning"])

	family := proc.FamilyStatistics()
	assert.Equal(t, workflow.Mapping{"nabolag": "12", "by": "10"}, get(t, family, "Barnehager"))

	transport := proc.TransportationStatistics()
	assert.Equal(t, workflow.Mapping{"gange": "4 min", "bil": "-"}, get(t, transport, "Storgata T"))

	community := proc.CommunityStatistics()
	assert.Equal(t, "82 %", get(t, community, "Trygghet"))
	assert.Equal(t, "8,4", get(t, community, "score"))

	assert.Nil(t, proc.LeisureStatistics())
	assert.Nil(t, proc.ShoppingStatistics())
	assert.Equal(t, workflow.StepStatusSkipped, stepStatus(t, proc, processes.FinnKeyLeisure))
	assert.Equal(t, []string{"familie", "transport", "vurderinger", "score"}, proc.Community().Keys())
}

func TestFinnAdvertProcessingWithoutStatistics(t *testing.T) {
	src := finnSources(false)

	proc := processes.NewFinnAdvertProcessing(src, quiet()...)
	out, err := proc.Run(context.Background(), finnCode)
	require.NoError(t, err)

	listing := out.(*workflow.OrderedMapping)
	assert.Equal(t, []string{"annonse", "nabolag"}, listing.Keys())
	assert.Nil(t, proc.Statistics())
	assert.Equal(t, workflow.StepStatusSkipped, stepStatus(t, proc, processes.FinnKeyInterest))
}

func TestFinnAdvertProcessingBlankCounts(t *testing.T) {
	tests := []struct {
		name  string
		stats workflow.Mapping
	}{
		{"no favorites", workflow.Mapping{"visninger": "1520", "favoritter": ""}},
		{"no views", workflow.Mapping{"visninger": "", "favoritter": "76"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := advertData(false)
			data.Set("statistikk", tt.stats)
			src := &mockSources{}
			src.On("FinnAdvert", finnCode).Return(stub{name: "FinnAdvert", out: data})
			src.On("FinnCommunity", finnCode).Return(stub{name: "FinnCommunity", out: communityData()})
			src.On("Posten", "0150").Return(stub{name: "Posten", out: ordered("postnummer", "0150", "poststed", "OSLO", "type", "gateadresser")})

			proc := processes.NewFinnAdvertProcessing(src, quiet()...)
			out, err := proc.Run(context.Background(), finnCode)
			require.NoError(t, err)

			listing := out.(*workflow.OrderedMapping)
			assert.Equal(t, []string{"annonse", "statistikk", "nabolag"}, listing.Keys())
			stats, ok := workflow.AsMapping(get(t, listing, "statistikk"))
			require.True(t, ok)
			assert.NotContains(t, stats, "favoritter_per_visning")
			assert.Equal(t, tt.stats["visninger"], stats["visninger"])
			assert.Equal(t, workflow.StepStatusSkipped, stepStatus(t, proc, processes.FinnKeyInterest))
		})
	}
}

func TestFinnAdvertProcessingPostalCodeUnknown(t *testing.T) {
	src := &mockSources{}
	src.On("FinnAdvert", finnCode).Return(stub{name: "FinnAdvert", out: advertData(false)})
	src.On("FinnCommunity", finnCode).Return(stub{name: "FinnCommunity", out: ordered("finnkode", finnCode, "cards", []any{})})
	src.On("Posten", "0150").Return(stub{name: "Posten", err: workflow.NewUpstreamNotFoundError("Posten", "0150")})

	proc := processes.NewFinnAdvertProcessing(src, quiet()...)
	_, err := proc.Run(context.Background(), finnCode)
	require.NoError(t, err)

	assert.Equal(t, "Oslo", get(t, proc.Advert(), "poststed"))
	assert.Equal(t, 0, proc.Community().Len())
}

func TestFinnAdvertProcessingInvalidCode(t *testing.T) {
	src := &mockSources{}

	proc := processes.NewFinnAdvertProcessing(src, quiet()...)
	_, err := proc.Run(context.Background(), "12ab")

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeInvalidInput, werr.Type)
	assert.Equal(t, "finnkode", werr.Field)
	src.AssertNotCalled(t, "FinnAdvert", mock.Anything)
}

func TestFinnAdvertProcessingParallelFailure(t *testing.T) {
	src := &mockSources{}
	src.On("FinnAdvert", finnCode).Return(stub{name: "FinnAdvert", err: workflow.NewUpstreamNotFoundError("FinnAdvert", finnCode)})
	src.On("FinnCommunity", finnCode).Return(stub{name: "FinnCommunity", out: communityData()})

	proc := processes.NewFinnAdvertProcessing(src, quiet()...)
	_, err := proc.Run(context.Background(), finnCode)

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeUpstreamNotFound, werr.Type)
	assert.Equal(t, workflow.StepStatusCompleted, stepStatus(t, proc, processes.FinnKeyCommunityData))
	src.AssertNotCalled(t, "Posten", mock.Anything)
}
