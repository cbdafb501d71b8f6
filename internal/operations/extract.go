package operations

import (
	"context"
	"fmt"
	"strings"

	"husholdning/internal/workflow"
)

// Extract picks mandatory keys out of a mapping. A missing key is an error.
type Extract struct {
	workflow.BaseOperation
	data any
	keys []string
}

// NewExtract creates an Extract of keys from data
func NewExtract(description string, data any, keys ...string) *Extract {
	return &Extract{
		BaseOperation: workflow.NewBaseOperation("Extract", description),
		data:          data,
		keys:          keys,
	}
}

func (e *Extract) Run(context.Context) (any, error) {
	m, _, err := mappingOf(e.Name(), "data", e.data)
	if err != nil {
		return nil, err
	}
	out := workflow.NewOrderedMapping()
	for _, k := range e.keys {
		v, ok := m[k]
		if !ok {
			return nil, workflow.NewMissingKeyError(e.Name(), k)
		}
		out.Set(k, v)
	}
	return out, nil
}

// ExtractSubtree returns the nested mapping stored under key
type ExtractSubtree struct {
	workflow.BaseOperation
	data any
	key  string
}

// NewExtractSubtree creates an ExtractSubtree of key from data
func NewExtractSubtree(description string, data any, key string) *ExtractSubtree {
	return &ExtractSubtree{
		BaseOperation: workflow.NewBaseOperation("ExtractSubtree", description),
		data:          data,
		key:           key,
	}
}

func (e *ExtractSubtree) Run(context.Context) (any, error) {
	m, _, err := mappingOf(e.Name(), "data", e.data)
	if err != nil {
		return nil, err
	}
	v, ok := m[e.key]
	if !ok {
		return nil, workflow.NewMissingKeyError(e.Name(), e.key)
	}
	if _, isMapping := workflow.AsMapping(v); !isMapping {
		return nil, workflow.NewInvalidInputError(e.Name(), e.key, fmt.Sprintf("expected a nested mapping, got %T", v))
	}
	return v, nil
}

// ExtractFirstRow returns the first row of a list of mappings, or an empty
// mapping when there are no rows.
type ExtractFirstRow struct {
	workflow.BaseOperation
	rows any
}

// NewExtractFirstRow creates an ExtractFirstRow over rows
func NewExtractFirstRow(description string, rows any) *ExtractFirstRow {
	return &ExtractFirstRow{
		BaseOperation: workflow.NewBaseOperation("ExtractFirstRow", description),
		rows:          rows,
	}
}

func (e *ExtractFirstRow) Run(context.Context) (any, error) {
	rows, err := rowsOf(e.Name(), e.rows)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return workflow.Mapping{}, nil
	}
	return rows[0], nil
}

// Exclude returns a copy of a mapping without the given keys
type Exclude struct {
	workflow.BaseOperation
	data any
	keys []string
}

// NewExclude creates an Exclude of keys from data
func NewExclude(description string, data any, keys ...string) *Exclude {
	return &Exclude{
		BaseOperation: workflow.NewBaseOperation("Exclude", description),
		data:          data,
		keys:          keys,
	}
}

func (e *Exclude) Run(context.Context) (any, error) {
	m, keys, err := mappingOf(e.Name(), "data", e.data)
	if err != nil {
		return nil, err
	}
	drop := make(map[string]bool, len(e.keys))
	for _, k := range e.keys {
		drop[k] = true
	}
	out := workflow.NewOrderedMapping()
	for _, k := range keys {
		if !drop[k] {
			out.Set(k, m[k])
		}
	}
	return out, nil
}

// DefaultSeparator joins parent and child keys in Flatten
const DefaultSeparator = "_"

// Flatten lifts one level of nested mappings into the parent, joining
// parent and child keys with a separator.
type Flatten struct {
	workflow.BaseOperation
	data any
	sep  string
}

// NewFlatten creates a Flatten of data. An empty sep uses DefaultSeparator.
func NewFlatten(description string, data any, sep string) *Flatten {
	if sep == "" {
		sep = DefaultSeparator
	}
	return &Flatten{
		BaseOperation: workflow.NewBaseOperation("Flatten", description),
		data:          data,
		sep:           sep,
	}
}

func (f *Flatten) Run(context.Context) (any, error) {
	m, keys, err := mappingOf(f.Name(), "data", f.data)
	if err != nil {
		return nil, err
	}
	out := workflow.NewOrderedMapping()
	for _, k := range keys {
		nested, ok := workflow.AsMapping(m[k])
		if !ok {
			out.Set(k, m[k])
			continue
		}
		for _, child := range workflow.Keys(m[k]) {
			out.Set(k+f.sep+child, nested[child])
		}
	}
	return out, nil
}

// Separate turns a list of rows into a mapping keyed by each row's
// lower-cased "type" field. Rows without a type are dropped.
type Separate struct {
	workflow.BaseOperation
	rows any
}

// NewSeparate creates a Separate over rows
func NewSeparate(description string, rows any) *Separate {
	return &Separate{
		BaseOperation: workflow.NewBaseOperation("Separate", description),
		rows:          rows,
	}
}

func (s *Separate) Run(context.Context) (any, error) {
	rows, err := rowsOf(s.Name(), s.rows)
	if err != nil {
		return nil, err
	}
	out := workflow.NewOrderedMapping()
	for _, row := range rows {
		kind, ok := row["type"].(string)
		if !ok || kind == "" {
			continue
		}
		out.Set(strings.ToLower(kind), row)
	}
	return out, nil
}

// rowsOf accepts the list shapes that come out of JSON decoding
func rowsOf(step string, v any) ([]workflow.Mapping, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []workflow.Mapping:
		return t, nil
	case []any:
		rows := make([]workflow.Mapping, 0, len(t))
		for i, item := range t {
			m, ok := workflow.AsMapping(item)
			if !ok {
				return nil, workflow.NewInvalidInputError(step, fmt.Sprintf("rows[%d]", i), fmt.Sprintf("expected a mapping, got %T", item))
			}
			rows = append(rows, m)
		}
		return rows, nil
	default:
		return nil, workflow.NewInvalidInputError(step, "rows", fmt.Sprintf("expected a list of mappings, got %T", v))
	}
}
