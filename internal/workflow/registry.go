package workflow

import (
	"sync"
)

// SignalRegistry maps caller-chosen keys to Signals for one process run
type SignalRegistry struct {
	mu      sync.RWMutex
	signals map[string]Signal
	order   []string
}

// NewSignalRegistry creates an empty registry
func NewSignalRegistry() *SignalRegistry {
	return &SignalRegistry{
		signals: make(map[string]Signal),
		order:   make([]string, 0),
	}
}

// Put stores sig under key and reports whether an earlier signal was replaced
func (r *SignalRegistry) Put(key string, sig Signal) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.signals[key]
	if !exists {
		r.order = append(r.order, key)
	}
	r.signals[key] = sig
	return exists
}

// Get returns the signal stored under key
func (r *SignalRegistry) Get(key string) (Signal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sig, ok := r.signals[key]
	return sig, ok
}

// Has reports whether key is registered
func (r *SignalRegistry) Has(key string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.signals[key]
	return ok
}

// Keys returns the registered keys in first-registration order
func (r *SignalRegistry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, len(r.order))
	copy(keys, r.order)
	return keys
}

// Count returns the number of registered signals
func (r *SignalRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.signals)
}

// Snapshot returns a copy of all payloads keyed by signal key
func (r *SignalRegistry) Snapshot() Mapping {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(Mapping, len(r.signals))
	for k, sig := range r.signals {
		out[k] = sig.payload
	}
	return out
}
