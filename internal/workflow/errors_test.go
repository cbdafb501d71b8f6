package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorFormatting(t *testing.T) {
	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{
			name: "with step and field",
			err:  NewInvalidInputError("validate_family", "person_1.alder", "unknown age bracket"),
			want: "[invalid_input] validate_family: unknown age bracket (field person_1.alder)",
		},
		{
			name: "missing key",
			err:  NewMissingKeyError("extract", "totalt"),
			want: `[missing_key] extract: key "totalt" not found (field totalt)`,
		},
		{
			name: "without step",
			err:  NewInvalidStateError("process already running"),
			want: "[invalid_state] process already running",
		},
		{
			name: "with cause",
			err:  NewUpstreamTimeoutError("sifo", errors.New("deadline")),
			want: "[upstream_timeout] sifo: upstream request timed out: deadline",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}

	var nilErr *Error
	assert.Equal(t, "unknown workflow error", nilErr.Error())
	assert.Nil(t, nilErr.Unwrap())
}

func TestGetErrorType(t *testing.T) {
	assert.Equal(t, ErrorType(""), GetErrorType(nil))
	assert.Equal(t, ErrorTypeExecution, GetErrorType(errors.New("plain")))

	wrapped := fmt.Errorf("outer: %w", NewUpstreamNotFoundError("finn", "advert 123"))
	assert.Equal(t, ErrorTypeUpstreamNotFound, GetErrorType(wrapped))
	assert.True(t, IsType(wrapped, ErrorTypeUpstreamNotFound))

	var wErr *Error
	assert.True(t, errors.As(wrapped, &wErr))
	assert.True(t, wErr.IsUpstream())
	assert.False(t, NewMissingKeyError("x", "y").IsUpstream())
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, "step"))
	assert.Equal(t, ErrSkip, WrapError(ErrSkip, "step"))

	plain := errors.New("plain")
	wrapped := WrapError(plain, "divide")
	assert.True(t, IsType(wrapped, ErrorTypeExecution))
	assert.ErrorIs(t, wrapped, plain)

	typed := NewMissingKeyError("", "totalt")
	again := WrapError(typed, "extract_total")
	assert.Same(t, typed, again)
	assert.Equal(t, "extract_total", typed.Step)
}
