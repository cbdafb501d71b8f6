package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"husholdning/internal/shared/testutil"
	"husholdning/pkg/contracts/domain"
)

func finished(id string, created, completed time.Time) domain.Result {
	return domain.Result{
		ID:          id,
		Kind:        domain.WorkflowSifo,
		Status:      domain.ResultStatusCompleted,
		CreatedAt:   created,
		CompletedAt: &completed,
	}
}

func TestResultStore_PutGetList(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	store := NewResultStore(time.Hour, nil, logger)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return base.Add(time.Minute) }

	store.Put(ctx, finished("old", base, base))
	store.Put(ctx, finished("new", base.Add(time.Second), base.Add(time.Second)))
	store.Put(ctx, domain.Result{ID: "new", Status: domain.ResultStatusFailed, CreatedAt: base.Add(time.Second)})

	assert.Equal(t, 2, store.Len())
	got, ok := store.Get("new")
	require.True(t, ok)
	assert.Equal(t, domain.ResultStatusFailed, got.Status, "put replaces")

	list := store.List()
	require.Len(t, list, 2)
	assert.Equal(t, "new", list[0].ID)
	assert.Equal(t, "old", list[1].ID)

	_, ok = store.Get("missing")
	assert.False(t, ok)
}

func TestResultStore_Expiry(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	store := NewResultStore(10*time.Minute, nil, logger)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	now := base
	store.now = func() time.Time { return now }

	store.Put(ctx, finished("done", base, base))
	store.Put(ctx, domain.Result{ID: "running", Status: domain.ResultStatusRunning, CreatedAt: base})

	now = base.Add(5 * time.Minute)
	_, ok := store.Get("done")
	assert.True(t, ok)
	assert.Zero(t, store.Sweep(ctx))

	now = base.Add(11 * time.Minute)
	_, ok = store.Get("done")
	assert.False(t, ok, "expired results are hidden before the sweep")
	assert.Len(t, store.List(), 1)

	assert.Equal(t, 1, store.Sweep(ctx))
	assert.Equal(t, 1, store.Len())
	_, ok = store.Get("running")
	assert.True(t, ok, "running results never expire")
	assert.True(t, logs.ContainsMessage("results_expired"))
}

func TestResultStore_RunStopsWithContext(t *testing.T) {
	logger, _ := testutil.NewTestLogger(t)
	store := NewResultStore(time.Nanosecond, nil, logger)
	done := time.Now().Add(-time.Second)
	store.Put(context.Background(), finished("x", done, done))

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		store.Run(ctx, time.Millisecond)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
