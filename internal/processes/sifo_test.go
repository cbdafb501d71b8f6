package processes_test

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"husholdning/internal/money"
	"husholdning/internal/processes"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

func sifoBudget() *workflow.OrderedMapping {
	return ordered(
		"mat", "3 550 kr",
		"klar", "900 kr",
		"dagligvarer", "400 kr",
		"bil", "3 150 kr",
		"totalt", "8 000 kr",
	)
}

func householdForm() workflow.Mapping {
	return workflow.Mapping{
		"person_1":          map[string]any{"alder": "20-50", "kjonn": "Mann"},
		"antall_biler":      "1",
		"brutto_arsinntekt": "500000 kr",
	}
}

func TestCalculateSifoExpenses(t *testing.T) {
	src := &mockSources{}
	src.On("Sifo", mock.MatchedBy(func(f domain.Family) bool {
		return f.Size() == 1 && f.Cars == 1 && f.GrossIncome.Equal(decimal.NewFromInt(500000))
	})).Return(stub{name: "Sifo", out: sifoBudget()})

	proc := processes.NewCalculateSifoExpenses(src, quiet()...)
	out, err := proc.Run(context.Background(), householdForm())
	require.NoError(t, err)
	src.AssertExpectations(t)

	result, ok := out.(*workflow.OrderedMapping)
	require.True(t, ok)
	assert.Equal(t, "8 000 kr", get(t, result, "totalt"))

	sum := decimal.Zero
	shares := 0
	for _, k := range result.Keys() {
		if !strings.HasSuffix(k, "_andel") {
			continue
		}
		v, err := money.ParseValue(get(t, result, k))
		require.NoError(t, err)
		sum = sum.Add(v)
		shares++
	}
	assert.Equal(t, 4, shares)
	assert.InDelta(t, 100.0, sum.InexactFloat64(), 0.05)

	assert.Equal(t, "44,38 %", get(t, proc.Shares(), "mat_andel"))
	assert.Equal(t, "42 600 kr", get(t, proc.Yearly(), "mat_arlig"))
	assert.Equal(t, "96 000 kr", get(t, result, "totalt_arlig"))
	assert.Equal(t, []string{"mat", "klar", "dagligvarer", "bil"}, proc.Expenses().Keys())
	assert.Equal(t, workflow.ProcessStatusCompleted, proc.Status())
}

func TestCalculateSifoExpensesProfile(t *testing.T) {
	src := &mockSources{}
	src.On("Sifo", mock.Anything).Return(stub{name: "Sifo", out: sifoBudget()})

	proc := processes.NewCalculateSifoExpenses(src, quiet()...)
	_, err := proc.Run(context.Background(), householdForm())
	require.NoError(t, err)

	profile := proc.Profile()
	assert.Equal(t, "CalculateSifoExpenses", profile.Process)
	assert.Len(t, profile.Rows, 8)
	for _, row := range profile.Rows {
		assert.Equal(t, workflow.StepStatusCompleted, row.Status, row.Key)
	}
	assert.NotEmpty(t, proc.Trace().Filter(workflow.EventOutput))
}

func TestCalculateSifoExpensesInvalidForm(t *testing.T) {
	src := &mockSources{}

	proc := processes.NewCalculateSifoExpenses(src, quiet()...)
	_, err := proc.Run(context.Background(), workflow.Mapping{"antall_biler": "1"})

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeInvalidInput, werr.Type)
	assert.Equal(t, "personer", werr.Field)
	src.AssertNotCalled(t, "Sifo", mock.Anything)
	assert.Equal(t, workflow.ProcessStatusFailed, proc.Status())
	assert.Equal(t, workflow.StepStatusSkipped, stepStatus(t, proc, processes.SifoKeyBudget))
	assert.Nil(t, proc.Budget())
}

func TestCalculateSifoExpensesUpstreamTimeout(t *testing.T) {
	src := &mockSources{}
	src.On("Sifo", mock.Anything).Return(stub{
		name: "Sifo",
		err:  workflow.NewUpstreamTimeoutError("Sifo", context.DeadlineExceeded),
	})

	proc := processes.NewCalculateSifoExpenses(src, quiet()...)
	_, err := proc.Run(context.Background(), householdForm())

	werr := asWorkflowError(t, err)
	assert.Equal(t, workflow.ErrorTypeUpstreamTimeout, werr.Type)
	assert.Equal(t, workflow.StepStatusFailed, stepStatus(t, proc, processes.SifoKeyBudget))
	assert.Equal(t, workflow.StepStatusSkipped, stepStatus(t, proc, processes.SifoKeyShares))
}

func TestCalculateSifoExpensesZeroTotal(t *testing.T) {
	src := &mockSources{}
	src.On("Sifo", mock.Anything).Return(stub{name: "Sifo", out: ordered("mat", "1 000 kr", "totalt", "0 kr")})

	proc := processes.NewCalculateSifoExpenses(src, quiet()...)
	_, err := proc.Run(context.Background(), householdForm())
	require.NoError(t, err)

	assert.Equal(t, "100 000,00 %", get(t, proc.Shares(), "mat_andel"))
	notices := proc.Trace().Filter(workflow.EventNotice)
	require.Len(t, notices, 1)
	assert.Equal(t, processes.SifoKeyShares, notices[0].Node)
}

func TestSifoBudgetSubModel(t *testing.T) {
	src := &mockSources{}
	src.On("Sifo", mock.Anything).Return(stub{name: "Sifo", out: sifoBudget()})

	parent := workflow.New("parent", quiet()...)
	family := domain.Family{Persons: []domain.Person{{Key: "person_1", AgeBracket: "20-50", Gender: domain.GenderMale}}}
	sub := workflow.NewSubModel("CalculateSifoExpenses", "budget", parent, processes.SifoBudget(src, family))

	out, err := sub.Run(context.Background())
	require.NoError(t, err)
	budget, ok := workflow.AsMapping(out)
	require.True(t, ok)
	assert.Equal(t, "8 000 kr", budget["totalt"])
	assert.Len(t, parent.Trace().Children(), 1)
}
