package processes_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"husholdning/internal/processes"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

func taxForm() workflow.Mapping {
	return workflow.Mapping{
		"inntektsar":        "2024",
		"alder":             "40",
		"kommune":           "0301",
		"brutto_arsinntekt": "600 000 kr",
	}
}

func taxLines() *workflow.OrderedMapping {
	return ordered(
		"inntektsskatt", "98 000 kr",
		"trinnskatt", "12 000 kr",
		"trygdeavgift", "40 000 kr",
		"formuesskatt", "0 kr",
		"totalt", "150 000 kr",
	)
}

func TestTaxProcess(t *testing.T) {
	src := &mockSources{}
	src.On("Skatteetaten", mock.MatchedBy(func(f domain.TaxForm) bool {
		return f.IncomeYear == 2024 && f.Age == 40 && f.Municipality == "0301"
	})).Return(stub{name: "Skatteetaten", out: taxLines()})

	proc := processes.NewTaxProcess(src, quiet()...)
	out, err := proc.Run(context.Background(), taxForm())
	require.NoError(t, err)
	src.AssertExpectations(t)

	tax, ok := out.(*workflow.OrderedMapping)
	require.True(t, ok)
	assert.Equal(t, "150 000 kr", get(t, tax, "totalt"))
	assert.Equal(t, "25,00 %", get(t, tax, "totalt_andel"))
	assert.Equal(t, "600 000 kr", get(t, tax, "inntekt"))
	assert.Equal(t, "450 000 kr", get(t, tax, "inntekt_etter_skatt"))
	assert.Equal(t, "37 500 kr", get(t, tax, "inntekt_etter_skatt_per_maned"))
	assert.Equal(t, "98 000 kr", get(t, proc.Calculation(), "inntektsskatt"))
	assert.Equal(t, tax, proc.Tax())
}

func TestTaxProcessNotFound(t *testing.T) {
	src := &mockSources{}
	src.On("Skatteetaten", mock.Anything).Return(stub{
		name: "Skatteetaten",
		err:  workflow.NewUpstreamNotFoundError("Skatteetaten", "skatteberegning"),
	})

	proc := processes.NewTaxProcess(src, quiet()...)
	_, err := proc.Run(context.Background(), taxForm())

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeUpstreamNotFound, werr.Type)
	assert.Equal(t, workflow.StepStatusSkipped, stepStatus(t, proc, processes.TaxKeyResult))
	assert.Equal(t, workflow.StepStatusCompleted, stepStatus(t, proc, processes.TaxKeyIncome))
}

func TestTaxProcessCancelled(t *testing.T) {
	src := &mockSources{}
	src.On("Skatteetaten", mock.Anything).Return(stub{name: "Skatteetaten", out: taxLines()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	proc := processes.NewTaxProcess(src, quiet()...)
	_, err := proc.Run(ctx, taxForm())

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeCancellation, werr.Type)
	assert.Equal(t, workflow.ProcessStatusFailed, proc.Status())
}

func TestNewRunner(t *testing.T) {
	for _, kind := range []domain.WorkflowKind{
		domain.WorkflowSifo, domain.WorkflowFinn, domain.WorkflowMortgage,
		domain.WorkflowRestructure, domain.WorkflowTax,
	} {
		r, err := processes.New(kind, &mockSources{}, quiet()...)
		require.NoError(t, err, kind)
		assert.NotEmpty(t, r.ID())
	}

	_, err := processes.New("budget", &mockSources{})
	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeInvalidInput, werr.Type)
}
