package exporter

import (
	"fmt"
	"strings"
	"time"

	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

// SummarySheet names the table holding the top-level scalar values
const SummarySheet = "sammendrag"

// planColumns is the column order of repayment plans
var planColumns = []string{"termin", "dato", "innbetaling", "renter", "avdrag", "gebyr", "restgjeld"}

// Table is one sheet of an export
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Tables flattens a result into export tables. The first table describes
// the run itself; the payload follows, one key/value table per nested
// mapping and one row table per list of mappings.
func Tables(result domain.Result) []Table {
	meta := Table{
		Name:    "resultat",
		Headers: []string{"felt", "verdi"},
		Rows: [][]string{
			{"id", result.ID},
			{"type", string(result.Kind)},
			{"status", string(result.Status)},
			{"opprettet", result.CreatedAt.Format(time.RFC3339)},
			{"varighet", result.Elapsed.String()},
		},
	}
	if result.Error != "" {
		meta.Rows = append(meta.Rows, []string{"feil", result.Error})
	}

	tables := []Table{meta}
	if result.Payload != nil {
		tables = append(tables, PayloadTables(result.Payload)...)
	}
	return tables
}

// PayloadTables flattens a workflow payload
func PayloadTables(payload any) []Table {
	var tables []Table
	walk(SummarySheet, payload, &tables)

	out := tables[:0]
	for _, t := range tables {
		if len(t.Rows) > 0 {
			out = append(out, t)
		}
	}
	return out
}

func walk(name string, v any, tables *[]Table) {
	if rows, ok := mappingRows(v); ok {
		*tables = append(*tables, rowTable(name, rows))
		return
	}

	m, ok := workflow.AsMapping(v)
	if !ok {
		*tables = append(*tables, Table{Name: name, Headers: []string{"verdi"}, Rows: [][]string{{cell(v)}}})
		return
	}

	idx := len(*tables)
	*tables = append(*tables, Table{Name: name, Headers: []string{"felt", "verdi"}})
	for _, k := range workflow.Keys(v) {
		child := m[k]
		if isNested(child) {
			walk(childName(name, k), child, tables)
			continue
		}
		(*tables)[idx].Rows = append((*tables)[idx].Rows, []string{k, cell(child)})
	}
}

func childName(parent, key string) string {
	if parent == SummarySheet {
		return key
	}
	return parent + "." + key
}

func isNested(v any) bool {
	if _, ok := mappingRows(v); ok {
		return true
	}
	_, ok := workflow.AsMapping(v)
	return ok
}

// mappingRows reports whether v is a non-empty list of mappings
func mappingRows(v any) ([]any, bool) {
	var rows []any
	switch t := v.(type) {
	case []workflow.Mapping:
		for _, r := range t {
			rows = append(rows, r)
		}
	case []*workflow.OrderedMapping:
		for _, r := range t {
			rows = append(rows, r)
		}
	case []any:
		for _, r := range t {
			if _, ok := workflow.AsMapping(r); !ok {
				return nil, false
			}
		}
		rows = t
	default:
		return nil, false
	}
	return rows, len(rows) > 0
}

func rowTable(name string, rows []any) Table {
	headers := columns(rows)
	t := Table{Name: name, Headers: headers}
	for _, r := range rows {
		m, _ := workflow.AsMapping(r)
		line := make([]string, len(headers))
		for i, h := range headers {
			line[i] = cell(m[h])
		}
		t.Rows = append(t.Rows, line)
	}
	return t
}

// columns is the union of row keys, in first-seen order
func columns(rows []any) []string {
	seen := make(map[string]bool)
	var headers []string
	for _, r := range rows {
		for _, k := range workflow.Keys(r) {
			if !seen[k] {
				seen[k] = true
				headers = append(headers, k)
			}
		}
	}
	if len(headers) == len(planColumns) {
		for _, c := range planColumns {
			if !seen[c] {
				return headers
			}
		}
		return append([]string(nil), planColumns...)
	}
	return headers
}

// sheetName fits name to the spreadsheet limits and keeps it unique
func sheetName(name string, used map[string]bool) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`[]:*?/\`, r) {
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "ark"
	}
	base := truncate(name, 31)
	out := base
	for i := 2; used[strings.ToLower(out)]; i++ {
		suffix := fmt.Sprintf("~%d", i)
		out = truncate(base, 31-len(suffix)) + suffix
	}
	used[strings.ToLower(out)] = true
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
