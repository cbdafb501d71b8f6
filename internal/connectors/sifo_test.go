package connectors_test

import (
	"context"
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

const sifoXML = `<?xml version="1.0" encoding="UTF-8"?>
<sifo>
  <utgifter>
    <individspesifikke>
      <mat>3550</mat>
      <klar>900</klar>
      <sumindivid>4450</sumindivid>
    </individspesifikke>
    <husholdsspesifikke>
      <dagligvarer>400</dagligvarer>
      <bil>3150</bil>
      <sumhusholdning>3550</sumhusholdning>
    </husholdsspesifikke>
    <totalt>8000</totalt>
  </utgifter>
</sifo>`

func TestSifo(t *testing.T) {
	family := domain.Family{
		Persons: []domain.Person{
			{Key: "person_1", AgeBracket: "20-50", Gender: domain.GenderMale},
			{Key: "person_2", AgeBracket: "4-5", Gender: domain.GenderFemale, Kindergarten: true},
		},
		Cars:        1,
		GrossIncome: decimal.NewFromInt(500000),
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "500000", q.Get("inntekt"))
		assert.Equal(t, "1", q.Get("antallBiler"))
		assert.Equal(t, "m", q.Get("kjonn0"))
		assert.Equal(t, "50", q.Get("alder0"))
		assert.Equal(t, "k", q.Get("kjonn1"))
		assert.Equal(t, "5", q.Get("alder1"))
		assert.Equal(t, "1", q.Get("barnehage1"))
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sifoXML))
	}))
	defer srv.Close()

	out, err := connectors.NewSifo(testClient(time.Second), srv.URL, family).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"mat", "klar", "dagligvarer", "bil", "totalt"}, out.Keys())
	assert.Equal(t, "3 550 kr", get(t, out, "mat"))
	assert.Equal(t, "8 000 kr", get(t, out, "totalt"))
}

func TestSifoMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
		want workflow.ErrorType
	}{
		{"not xml", "<sifo><utgifter>", workflow.ErrorTypeExecution},
		{"no expenses", "<sifo><feil>ukjent</feil></sifo>", workflow.ErrorTypeUpstreamNotFound},
		{"no total", "<sifo><utgifter><mat>1</mat></utgifter></sifo>", workflow.ErrorTypeMissingKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := connectors.NewSifo(testClient(time.Second), srv.URL, domain.Family{}).Run(context.Background())
			assert.Equal(t, tt.want, workflow.GetErrorType(err), "got %v", err)
		})
	}
}
