package services

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"husholdning/internal/infrastructure"
	"husholdning/pkg/contracts/domain"
)

// ResultStore keeps calculation results in memory for a limited time.
// Running results never expire; finished results expire ttl after they
// completed.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string]domain.Result
	ttl     time.Duration
	now     func() time.Time
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewResultStore creates a store. metrics may be nil.
func NewResultStore(ttl time.Duration, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *ResultStore {
	return &ResultStore{
		results: make(map[string]domain.Result),
		ttl:     ttl,
		now:     time.Now,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "result_store"),
	}
}

// Put inserts or replaces a result
func (s *ResultStore) Put(ctx context.Context, result domain.Result) {
	s.mu.Lock()
	_, existed := s.results[result.ID]
	s.results[result.ID] = result
	s.mu.Unlock()

	if !existed {
		infrastructure.RecordResultStoreChange(ctx, s.metrics, 1)
	}
}

// Get returns a copy of the result stored under id
func (s *ResultStore) Get(id string) (domain.Result, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result, ok := s.results[id]
	if ok && s.expired(result) {
		return domain.Result{}, false
	}
	return result, ok
}

// List returns the stored results, newest first
func (s *ResultStore) List() []domain.Result {
	s.mu.RLock()
	out := make([]domain.Result, 0, len(s.results))
	for _, r := range s.results {
		if !s.expired(r) {
			out = append(out, r)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

// Len returns the number of stored results, including expired ones not yet
// swept
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

func (s *ResultStore) expired(r domain.Result) bool {
	if s.ttl <= 0 || r.CompletedAt == nil {
		return false
	}
	return s.now().After(r.CompletedAt.Add(s.ttl))
}

// Sweep removes expired results and returns how many were removed
func (s *ResultStore) Sweep(ctx context.Context) int {
	s.mu.Lock()
	removed := 0
	for id, r := range s.results {
		if s.expired(r) {
			delete(s.results, id)
			removed++
		}
	}
	s.mu.Unlock()

	if removed > 0 {
		infrastructure.RecordResultStoreChange(ctx, s.metrics, int64(-removed))
		s.logger.DebugContext(ctx, "results_expired", slog.Int("count", removed))
	}
	return removed
}

// Run sweeps expired results every interval until ctx is done
func (s *ResultStore) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}
