package processes_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"husholdning/internal/connectors"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// mockSources hands out the connectors configured with On
type mockSources struct {
	mock.Mock
}

func (m *mockSources) Sifo(family domain.Family) connectors.Connector {
	return m.Called(family).Get(0).(connectors.Connector)
}

func (m *mockSources) FinnAdvert(code string) connectors.Connector {
	return m.Called(code).Get(0).(connectors.Connector)
}

func (m *mockSources) FinnCommunity(code string) connectors.Connector {
	return m.Called(code).Get(0).(connectors.Connector)
}

func (m *mockSources) Posten(postalCode string) connectors.Connector {
	return m.Called(postalCode).Get(0).(connectors.Connector)
}

func (m *mockSources) MortgageRate() connectors.Connector {
	return m.Called().Get(0).(connectors.Connector)
}

func (m *mockSources) Skatteetaten(form domain.TaxForm) connectors.Connector {
	return m.Called(form).Get(0).(connectors.Connector)
}

// stub is a connector returning a fixed result
type stub struct {
	name string
	out  *workflow.OrderedMapping
	err  error
}

func (s stub) Name() string { return s.name }

func (s stub) Run(ctx context.Context) (*workflow.OrderedMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.out, s.err
}

func ordered(kv ...any) *workflow.OrderedMapping {
	out := workflow.NewOrderedMapping()
	for i := 0; i+1 < len(kv); i += 2 {
		out.Set(kv[i].(string), kv[i+1])
	}
	return out
}

func quiet() []workflow.Option {
	return []workflow.Option{workflow.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil)))}
}

func get(t *testing.T, m *workflow.OrderedMapping, key string) any {
	t.Helper()
	require.NotNil(t, m)
	v, ok := m.Get(key)
	require.True(t, ok, "missing key %q in %v", key, m.Keys())
	return v
}

func asWorkflowError(t *testing.T, err error) *workflow.Error {
	t.Helper()
	require.Error(t, err)
	var werr *workflow.Error
	require.True(t, errors.As(err, &werr), "expected *workflow.Error, got %T", err)
	return werr
}

type stepper interface {
	Step(key string) (*workflow.StepState, bool)
}

func stepStatus(t *testing.T, r stepper, key string) workflow.StepStatus {
	t.Helper()
	step, ok := r.Step(key)
	require.True(t, ok, "no step %q", key)
	return step.GetStatus()
}
