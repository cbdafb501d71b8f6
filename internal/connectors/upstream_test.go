package connectors_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"husholdning/internal/connectors"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

func TestPosten(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "husholdning", r.URL.Query().Get("clientUrl"))
		switch r.URL.Query().Get("pnr") {
		case "0150":
			w.Write([]byte(`{"result":"Oslo","valid":true,"postalCodeType":"NORMAL"}`))
		default:
			w.Write([]byte(`{"result":"Ugyldig postnummer","valid":false}`))
		}
	}))
	defer srv.Close()

	client := testClient(time.Second)
	out, err := connectors.NewPosten(client, srv.URL, "husholdning", "0150").Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"postnummer", "poststed", "type"}, out.Keys())
	assert.Equal(t, "OSLO", get(t, out, "poststed"))
	assert.Equal(t, "normal", get(t, out, "type"))

	_, err = connectors.NewPosten(client, srv.URL, "husholdning", "9999").Run(context.Background())
	assert.True(t, workflow.IsType(err, workflow.ErrorTypeUpstreamNotFound))
}

func TestSSBRate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var query map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&query))
		assert.Equal(t, "json-stat2", query["response"].(map[string]any)["format"])

		w.Write([]byte(`{
			"label": "Renter på nye utlån",
			"value": [5.12, 5.31, null],
			"dimension": {"Tid": {"category": {"index": {"2025M04": 0, "2025M05": 1, "2025M06": 2}}}}
		}`))
	}))
	defer srv.Close()

	out, err := connectors.NewSSBRate(testClient(time.Second), srv.URL).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "5,31 %", get(t, out, "rente"))
	assert.Equal(t, "2025M05", get(t, out, "periode"))
	assert.Equal(t, "SSB", get(t, out, "kilde"))
}

func TestSSBRateEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"value": [null]}`))
	}))
	defer srv.Close()

	_, err := connectors.NewSSBRate(testClient(time.Second), srv.URL).Run(context.Background())
	assert.True(t, workflow.IsType(err, workflow.ErrorTypeUpstreamNotFound))
}

func TestSkatteetaten(t *testing.T) {
	form := domain.TaxForm{
		IncomeYear:   2024,
		Age:          40,
		Municipality: "0301",
		GrossIncome:  decimal.NewFromInt(650000),
		InterestPaid: decimal.NewFromInt(45000),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(2024), req["inntektsaar"])
		assert.Equal(t, "650000", req["bruttoinntekt"])
		assert.Equal(t, "0301", req["kommunenummer"])

		w.Write([]byte(`{"skatteberegning": {
			"skattPaaAlminneligInntekt": 98000,
			"trinnskatt": 12500,
			"trygdeavgift": 50700
		}}`))
	}))
	defer srv.Close()

	out, err := connectors.NewSkatteetaten(testClient(time.Second), srv.URL, form).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"inntektsskatt", "trinnskatt", "trygdeavgift", "formuesskatt", "totalt"}, out.Keys())
	assert.Equal(t, "98 000 kr", get(t, out, "inntektsskatt"))
	assert.Equal(t, "0 kr", get(t, out, "formuesskatt"))
	assert.Equal(t, "161 200 kr", get(t, out, "totalt"))
}

func TestSkatteetatenReportedTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"skatteberegning": {"trinnskatt": 100, "sumSkatt": 150}}`))
	}))
	defer srv.Close()

	out, err := connectors.NewSkatteetaten(testClient(time.Second), srv.URL, domain.TaxForm{}).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "150 kr", get(t, out, "totalt"))
}

func TestWebSources(t *testing.T) {
	client := testClient(time.Second)
	web := connectors.NewWeb(client, nil, connectors.DefaultEndpoints())

	assert.Equal(t, "Sifo", web.Sifo(domain.Family{}).Name())
	assert.Equal(t, "FinnAdvert", web.FinnAdvert("12345678").Name())
	assert.Equal(t, "FinnCommunity", web.FinnCommunity("12345678").Name())
	assert.Equal(t, "Posten", web.Posten("0150").Name())
	assert.Equal(t, "SSB", web.MortgageRate().Name())
	assert.Equal(t, "Skatteetaten", web.Skatteetaten(domain.TaxForm{}).Name())
}
