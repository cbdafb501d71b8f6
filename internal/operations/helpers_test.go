package operations_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"husholdning/internal/workflow"
)

// runMapping runs op and returns its ordered result
func runMapping(t *testing.T, op workflow.Operation) *workflow.OrderedMapping {
	t.Helper()
	out, err := op.Run(context.Background())
	require.NoError(t, err)
	m, ok := out.(*workflow.OrderedMapping)
	require.True(t, ok, "expected *OrderedMapping, got %T", out)
	return m
}

// get returns the value at key, failing when absent
func get(t *testing.T, m *workflow.OrderedMapping, key string) any {
	t.Helper()
	v, ok := m.Get(key)
	require.True(t, ok, "missing key %q in %v", key, m.Keys())
	return v
}

// asWorkflowError unwraps err into a *workflow.Error
func asWorkflowError(t *testing.T, err error) *workflow.Error {
	t.Helper()
	require.Error(t, err)
	var werr *workflow.Error
	require.True(t, errors.As(err, &werr), "expected *workflow.Error, got %T", err)
	return werr
}
