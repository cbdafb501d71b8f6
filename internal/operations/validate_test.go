package operations_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"husholdning/internal/operations"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

func familyForm() workflow.Mapping {
	return workflow.Mapping{
		"person_2":          map[string]any{"alder": "4-5", "kjonn": "Kvinne", "barnehage": "Ja"},
		"person_1":          map[string]any{"alder": "20-50", "kjonn": "Mann"},
		"person_10":         map[string]any{"alder": "74+", "kjonn": "Kvinne", "student": true},
		"antall_biler":      "1",
		"brutto_arsinntekt": "500 000 kr",
	}
}

func TestValidateFamily(t *testing.T) {
	out, err := operations.NewValidateFamily("household", familyForm()).Run(context.Background())
	require.NoError(t, err)

	family, ok := out.(domain.Family)
	require.True(t, ok)
	require.Equal(t, 3, family.Size())
	assert.Equal(t, "person_1", family.Persons[0].Key)
	assert.Equal(t, "person_2", family.Persons[1].Key)
	assert.Equal(t, "person_10", family.Persons[2].Key)
	assert.True(t, family.Persons[1].Kindergarten)
	assert.True(t, family.Persons[2].Student)
	assert.Equal(t, "50", family.Persons[0].SifoAge())
	assert.Equal(t, "k", family.Persons[1].SifoGender())
	assert.Equal(t, 1, family.Cars)
	assert.Equal(t, "500000", family.GrossIncome.String())
}

func TestValidateFamilyErrors(t *testing.T) {
	tests := []struct {
		name  string
		mut   func(workflow.Mapping)
		field string
	}{
		{
			name:  "unknown age bracket",
			mut:   func(m workflow.Mapping) { m["person_1"] = map[string]any{"alder": "200", "kjonn": "Mann"} },
			field: "personer[0].alder",
		},
		{
			name:  "unknown gender",
			mut:   func(m workflow.Mapping) { m["person_1"] = map[string]any{"alder": "20-50", "kjonn": "?"} },
			field: "personer[0].kjonn",
		},
		{
			name:  "cars not a number",
			mut:   func(m workflow.Mapping) { m["antall_biler"] = "mange" },
			field: "antall_biler",
		},
		{
			name:  "person not a mapping",
			mut:   func(m workflow.Mapping) { m["person_1"] = "Mann" },
			field: "person_1",
		},
		{
			name: "no persons",
			mut: func(m workflow.Mapping) {
				delete(m, "person_1")
				delete(m, "person_2")
				delete(m, "person_10")
			},
			field: "personer",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := familyForm()
			tt.mut(form)
			_, err := operations.NewValidateFamily(tt.name, form).Run(context.Background())
			werr := asWorkflowError(t, err)
			assert.Equal(t, workflow.ErrorTypeInvalidInput, werr.Type)
			assert.Equal(t, "ValidateFamily", werr.Step)
			assert.Equal(t, tt.field, werr.Field)
		})
	}
}

func mortgageForm() workflow.Mapping {
	return workflow.Mapping{
		"lanebelop":         "3 000 000 kr",
		"rente":             "5,2 %",
		"lopetid":           "25",
		"boligverdi":        "4 000 000 kr",
		"brutto_arsinntekt": "800 000 kr",
	}
}

func TestValidateMortgage(t *testing.T) {
	form := mortgageForm()
	form["startdato"] = "2025-03-01"
	form["annen_gjeld"] = "150 000"

	out, err := operations.NewValidateMortgage("mortgage", form).Run(context.Background())
	require.NoError(t, err)

	m, ok := out.(domain.Mortgage)
	require.True(t, ok)
	assert.Equal(t, "3000000", m.Principal.String())
	assert.Equal(t, "5.2", m.AnnualRate.String())
	assert.Equal(t, 25, m.Years)
	assert.Equal(t, 12, m.TermsPerYear)
	assert.Equal(t, domain.LoanTypeAnnuity, m.Type)
	assert.Equal(t, time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC), m.Start)
	assert.Equal(t, "3150000", m.TotalDebt().String())
	assert.Nil(t, m.Household)
}

func TestValidateMortgageWithHousehold(t *testing.T) {
	form := mortgageForm()
	form["rente"] = ""
	form["husholdning"] = map[string]any{
		"person_1": map[string]any{"alder": "20-50", "kjonn": "Mann"},
	}

	out, err := operations.NewValidateMortgage("mortgage", form).Run(context.Background())
	require.NoError(t, err)

	m := out.(domain.Mortgage)
	assert.True(t, m.AnnualRate.IsZero())
	require.NotNil(t, m.Household)
	assert.Equal(t, 1, m.Household.Size())
}

func TestValidateMortgageErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		field string
	}{
		{"missing property value", "boligverdi", "", "boligverdi"},
		{"years not a number", "lopetid", "tjue", "lopetid"},
		{"years out of range", "lopetid", "60", "lopetid"},
		{"bad loan type", "type", "flytende", "type"},
		{"bad terms", "terminer_per_ar", "5", "terminer_per_ar"},
		{"bad date", "startdato", "01.03.2025", "startdato"},
		{"bad amount", "annen_gjeld", "mye", "annen_gjeld"},
		{"zero loan", "lanebelop", "0 kr", "lanebelop"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := mortgageForm()
			form[tt.key] = tt.value
			_, err := operations.NewValidateMortgage(tt.name, form).Run(context.Background())
			werr := asWorkflowError(t, err)
			assert.Equal(t, workflow.ErrorTypeInvalidInput, werr.Type)
			assert.Equal(t, tt.field, werr.Field)
		})
	}
}

func TestValidateRestructure(t *testing.T) {
	form := workflow.Mapping{
		"lanebelop":            "2 000 000 kr",
		"rente":                "5,5",
		"gjenvaerende_lopetid": "20",
		"termingebyr":          "50 kr",
		"ny_rente":             "4,9",
		"ny_lopetid":           "25",
		"etableringskostnad":   "2 500 kr",
	}
	out, err := operations.NewValidateRestructure("refinance", form).Run(context.Background())
	require.NoError(t, err)

	r := out.(domain.Restructure)
	assert.Equal(t, "2000000", r.Current.Principal.String())
	assert.Equal(t, "2002500", r.Proposed.Principal.String())
	assert.Equal(t, 20, r.Current.Years)
	assert.Equal(t, 25, r.Proposed.Years)
	assert.Equal(t, "50", r.Current.Fee.String())
	assert.True(t, r.Proposed.Fee.IsZero())
	assert.Equal(t, "2500", r.EstablishmentCost.String())

	delete(form, "ny_rente")
	_, err = operations.NewValidateRestructure("refinance", form).Run(context.Background())
	assert.Equal(t, "ny_rente", asWorkflowError(t, err).Field)
}

func TestValidateTaxForm(t *testing.T) {
	form := workflow.Mapping{
		"inntektsar":        "2024",
		"alder":             float64(40),
		"kommune":           "0301",
		"brutto_arsinntekt": "650 000 kr",
		"gjeldsrenter":      "45 000 kr",
	}
	out, err := operations.NewValidateTaxForm("tax", form).Run(context.Background())
	require.NoError(t, err)

	tax := out.(domain.TaxForm)
	assert.Equal(t, 2024, tax.IncomeYear)
	assert.Equal(t, 40, tax.Age)
	assert.Equal(t, "0301", tax.Municipality)
	assert.Equal(t, "45000", tax.InterestPaid.String())
	assert.True(t, tax.Wealth.IsZero())

	form["alder"] = "5"
	_, err = operations.NewValidateTaxForm("tax", form).Run(context.Background())
	assert.Equal(t, "alder", asWorkflowError(t, err).Field)

	form["alder"] = "40"
	form["kommune"] = "Oslo"
	_, err = operations.NewValidateTaxForm("tax", form).Run(context.Background())
	assert.Equal(t, "kommune", asWorkflowError(t, err).Field)
}

func TestValidateCodes(t *testing.T) {
	out, err := operations.NewValidateFinnCode("finn", " 123456789 ").Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "123456789", out)

	for _, code := range []any{"12ab", "1234567", "12345678901", nil} {
		_, err := operations.NewValidateFinnCode("finn", code).Run(context.Background())
		werr := asWorkflowError(t, err)
		assert.Equal(t, "finnkode", werr.Field)
	}

	out, err = operations.NewValidatePostalCode("postal", "0150").Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0150", out)

	_, err = operations.NewValidatePostalCode("postal", "150").Run(context.Background())
	assert.Equal(t, "postnummer", asWorkflowError(t, err).Field)
}
