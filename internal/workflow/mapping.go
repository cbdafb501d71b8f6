package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Mapping is the usual payload shape: string keys to formatted strings,
// numbers or nested mappings.
type Mapping = map[string]any

// OrderedMapping is a Mapping that remembers key insertion order.
// Setting an existing key replaces its value in place.
type OrderedMapping struct {
	keys   []string
	values map[string]any
}

// NewOrderedMapping creates an empty ordered mapping
func NewOrderedMapping() *OrderedMapping {
	return &OrderedMapping{values: make(map[string]any)}
}

// Set stores value under key
func (m *OrderedMapping) Set(key string, value any) {
	if _, exists := m.values[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key
func (m *OrderedMapping) Get(key string) (any, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Keys returns the keys in order
func (m *OrderedMapping) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *OrderedMapping) Len() int { return len(m.keys) }

// Map returns a plain copy of the values
func (m *OrderedMapping) Map() Mapping {
	out := make(Mapping, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

// Sort reorders the keys lexicographically
func (m *OrderedMapping) Sort() {
	sort.Strings(m.keys)
}

// MarshalJSON encodes the mapping as a JSON object in key order
func (m *OrderedMapping) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range m.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(m.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal %q: %w", k, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AsMapping views a payload as a Mapping. Signals are unwrapped and ordered
// mappings are copied; anything else is reported as not a mapping.
func AsMapping(v any) (Mapping, bool) {
	switch t := v.(type) {
	case Mapping:
		return t, true
	case *OrderedMapping:
		if t == nil {
			return nil, false
		}
		return t.Map(), true
	case Signal:
		return AsMapping(t.payload)
	case map[string]string:
		out := make(Mapping, len(t))
		for k, s := range t {
			out[k] = s
		}
		return out, true
	default:
		return nil, false
	}
}

// Keys returns the keys of v in their natural order: insertion order
// for ordered mappings, sorted otherwise.
func Keys(v any) []string {
	if om, ok := v.(*OrderedMapping); ok {
		return om.Keys()
	}
	if sig, ok := v.(Signal); ok {
		return Keys(sig.payload)
	}
	m, ok := AsMapping(v)
	if !ok {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
