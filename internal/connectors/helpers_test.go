package connectors_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"husholdning/internal/workflow"
)

func asWorkflowError(t *testing.T, err error) *workflow.Error {
	t.Helper()
	require.Error(t, err)
	var werr *workflow.Error
	require.True(t, errors.As(err, &werr), "expected *workflow.Error, got %T", err)
	return werr
}

func get(t *testing.T, m *workflow.OrderedMapping, key string) any {
	t.Helper()
	v, ok := m.Get(key)
	require.True(t, ok, "missing key %q in %v", key, m.Keys())
	return v
}
