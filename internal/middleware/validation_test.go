package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "husholdning/internal/errors"
	"husholdning/internal/shared/testutil"
	api "husholdning/pkg/contracts/api/v1"
)

func newValidation(t *testing.T) *ValidationMiddleware {
	logger, _ := testutil.NewTestLogger(t)
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidationMiddleware_Decode(t *testing.T) {
	v := newValidation(t)

	tests := []struct {
		name       string
		body       string
		wantFields []string
	}{
		{
			name: "valid household",
			body: `{"personer":[{"alder":"20-50","kjonn":"Kvinne"}],"antall_biler":"1","brutto_arsinntekt":"550 000 kr"}`,
		},
		{
			name:       "missing persons",
			body:       `{"brutto_arsinntekt":"550000"}`,
			wantFields: []string{"personer"},
		},
		{
			name:       "bad gender and income",
			body:       `{"personer":[{"alder":"20-50","kjonn":"x"}],"brutto_arsinntekt":"mye"}`,
			wantFields: []string{"personer[0].kjonn", "brutto_arsinntekt"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sifo", strings.NewReader(tt.body))
			var body api.SifoRequest
			err := v.Decode(req, &body)
			if len(tt.wantFields) == 0 {
				require.NoError(t, err)
				assert.Equal(t, "Kvinne", body.Personer[0].Kjonn)
				return
			}

			var apiErr *apierrors.APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			details, ok := apiErr.Details.(apierrors.ValidationErrors)
			require.True(t, ok, "details are %T", apiErr.Details)
			var fields []string
			for _, e := range details.Errors {
				fields = append(fields, e.Field)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}
}

func TestValidationMiddleware_DecodeEmptyBody(t *testing.T) {
	v := newValidation(t)
	var body api.TaxRequest
	err := v.Decode(httptest.NewRequest(http.MethodPost, "/api/v1/tax", strings.NewReader("")), &body)

	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "INVALID_REQUEST", apiErr.ErrorCode)
}

func TestValidationMiddleware_ValidateVar(t *testing.T) {
	v := newValidation(t)
	assert.NoError(t, v.ValidateVar("finnkode", "123456789", "finn_code"))

	err := v.ValidateVar("finnkode", "12ab", "finn_code")
	var apiErr *apierrors.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, apierrors.ValidationError{Field: "finnkode", Message: "finnkode must be an 8 to 10 digit Finn code"}, apiErr.Details)
}

func TestValidationMiddleware_ValidateRequest(t *testing.T) {
	v := newValidation(t)
	var reached bool
	h := v.ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tax", strings.NewReader(`{"alder":`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, reached)

	rec = httptest.NewRecorder()
	big := strings.NewReader(`{"x":"` + strings.Repeat("a", defaultMaxBodySize) + `"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tax", big)
	req.ContentLength = -1
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/tax", strings.NewReader(`{"alder":"40"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestContentTypeValidator(t *testing.T) {
	h := ContentTypeValidator("application/json")(okHandler)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sifo", strings.NewReader("{}"))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req.Header.Set("Content-Type", "text/plain")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)

	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
