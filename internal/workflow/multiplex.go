package workflow

import (
	"context"
	"fmt"
)

// Merge combines Signals or mappings into one ordered mapping. Entries are
// taken in argument order; on a key collision the later value wins and the
// key keeps its first position.
func Merge(parts ...any) (*OrderedMapping, error) {
	out := NewOrderedMapping()
	for i, part := range parts {
		m, ok := AsMapping(part)
		if !ok {
			if part == nil {
				continue
			}
			return nil, NewInvalidInputError("multiplex", fmt.Sprintf("part[%d]", i),
				fmt.Sprintf("cannot merge %T", part))
		}
		for _, k := range Keys(part) {
			out.Set(k, m[k])
		}
	}
	return out, nil
}

// MergeSorted is Merge with the keys sorted lexicographically
func MergeSorted(parts ...any) (*OrderedMapping, error) {
	out, err := Merge(parts...)
	if err != nil {
		return nil, err
	}
	out.Sort()
	return out, nil
}

// Multiplex is the merge step of a workflow
type Multiplex struct {
	BaseOperation
	parts  []any
	sorted bool
}

// NewMultiplex merges parts preserving insertion order
func NewMultiplex(description string, parts ...any) *Multiplex {
	return &Multiplex{
		BaseOperation: NewBaseOperation("Multiplex", description),
		parts:         parts,
	}
}

// NewMultiplexSorted merges parts and sorts the resulting keys
func NewMultiplexSorted(description string, parts ...any) *Multiplex {
	return &Multiplex{
		BaseOperation: NewBaseOperation("MultiplexSorted", description),
		parts:         parts,
		sorted:        true,
	}
}

func (m *Multiplex) Run(context.Context) (any, error) {
	if m.sorted {
		return MergeSorted(m.parts...)
	}
	return Merge(m.parts...)
}
