package processes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"husholdning/internal/processes"
	"husholdning/internal/workflow"
)

func restructureForm() workflow.Mapping {
	return workflow.Mapping{
		"lanebelop":            "2 000 000",
		"rente":                "6",
		"gjenvaerende_lopetid": "20",
		"ny_rente":             "4,5",
		"ny_lopetid":           "25",
		"etableringskostnad":   "5 000",
	}
}

func TestRestructureProcess(t *testing.T) {
	proc := processes.NewRestructureProcess(quiet()...)
	out, err := proc.Run(context.Background(), restructureForm())
	require.NoError(t, err)

	result, ok := out.(*workflow.OrderedMapping)
	require.True(t, ok)
	assert.Equal(t, []string{"navarende", "nytt", "sammenligning", "etableringskostnad"}, result.Keys())
	assert.Equal(t, "5 000 kr", get(t, result, "etableringskostnad"))

	current := section(t, result, processes.RestructureKeyCurrentSummary)
	proposed := section(t, result, processes.RestructureKeyProposedSummary)
	for _, k := range []string{"terminbelop", "totale_renter", "totalt_innbetalt"} {
		assert.Contains(t, current, k)
		assert.Contains(t, proposed, k)
	}

	comparison := proc.Comparison()
	diff := parse(t, get(t, comparison, "terminbelop"))
	assert.True(t, diff.IsNegative(), "lower rate over a longer term lowers the payment, got %s", diff)
	assert.Contains(t, comparison.Keys(), "endring")
	assert.Contains(t, comparison.Keys(), "andel")

	assert.Len(t, proc.CurrentPlan(), 240)
	assert.Len(t, proc.ProposedPlan(), 300)

	first := proc.ProposedPlan()[0]
	financed := parse(t, first["restgjeld"]).Add(parse(t, first["avdrag"]))
	assert.Equal(t, "2005000", financed.String())
}

func TestRestructureProcessInvalidForm(t *testing.T) {
	form := restructureForm()
	delete(form, "ny_rente")

	proc := processes.NewRestructureProcess(quiet()...)
	_, err := proc.Run(context.Background(), form)

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeInvalidInput, werr.Type)
	assert.Equal(t, "ny_rente", werr.Field)
	_, ran := proc.Step(processes.RestructureKeyCurrent)
	assert.False(t, ran)
}
