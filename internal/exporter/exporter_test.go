package exporter

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"husholdning/internal/shared/testutil"
	"husholdning/internal/workflow"
	"husholdning/pkg/contracts/domain"
)

func mortgageResult() domain.Result {
	completed := time.Date(2024, 6, 1, 12, 0, 1, 0, time.UTC)
	plan := []workflow.Mapping{
		{"termin": 1, "dato": "2024-07-01", "innbetaling": "17 537,00", "renter": "12 500,00", "avdrag": "5 037,00", "gebyr": "0,00", "restgjeld": "2 994 963,00"},
		{"termin": 2, "dato": "2024-08-01", "innbetaling": "17 537,00", "renter": "12 479,01", "avdrag": "5 057,99", "gebyr": "0,00", "restgjeld": "2 989 905,01"},
	}
	lan := testutil.Ordered("terminbelop", "17 537 kr", "antall_terminer", 300, "plan", plan)
	return domain.Result{
		ID:          "r-1",
		Kind:        domain.WorkflowMortgage,
		Status:      domain.ResultStatusCompleted,
		CreatedAt:   completed.Add(-time.Second),
		CompletedAt: &completed,
		Elapsed:     time.Second,
		Payload: testutil.Ordered(
			"lanebelop", "3 000 000 kr",
			"rente", decimal.RequireFromString("5.25"),
			"lan", lan,
		),
	}
}

func tableByName(t *testing.T, tables []Table, name string) Table {
	t.Helper()
	for _, tb := range tables {
		if tb.Name == name {
			return tb
		}
	}
	t.Fatalf("table %q not found", name)
	return Table{}
}

func TestTables(t *testing.T) {
	tables := Tables(mortgageResult())

	names := make([]string, len(tables))
	for i, tb := range tables {
		names[i] = tb.Name
	}
	assert.Equal(t, []string{"resultat", SummarySheet, "lan", "lan.plan"}, names)

	meta := tableByName(t, tables, "resultat")
	assert.Contains(t, meta.Rows, []string{"type", "mortgage"})

	summary := tableByName(t, tables, SummarySheet)
	assert.Equal(t, [][]string{{"lanebelop", "3 000 000 kr"}, {"rente", "5.25"}}, summary.Rows)

	loan := tableByName(t, tables, "lan")
	assert.Equal(t, [][]string{{"terminbelop", "17 537 kr"}, {"antall_terminer", "300"}}, loan.Rows)

	plan := tableByName(t, tables, "lan.plan")
	assert.Equal(t, planColumns, plan.Headers)
	require.Len(t, plan.Rows, 2)
	assert.Equal(t, "1", plan.Rows[0][0])
	assert.Equal(t, "2 989 905,01", plan.Rows[1][6])
}

func TestTables_FailedResult(t *testing.T) {
	tables := Tables(domain.Result{ID: "x", Kind: domain.WorkflowTax, Status: domain.ResultStatusFailed, Error: "boom"})
	require.Len(t, tables, 1)
	assert.Contains(t, tables[0].Rows, []string{"feil", "boom"})
}

func TestPayloadTables_Scalar(t *testing.T) {
	tables := PayloadTables("12 000 kr")
	require.Len(t, tables, 1)
	assert.Equal(t, [][]string{{"12 000 kr"}}, tables[0].Rows)
}

func TestCell(t *testing.T) {
	assert.Equal(t, "", cell(nil))
	assert.Equal(t, "13.40", cell(13.4))
	assert.Equal(t, "true", cell(true))
	assert.Equal(t, "a, 2", cell([]any{"a", 2}))
	assert.Equal(t, "2024-06-01", cell(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, "1.5", cell(decimal.RequireFromString("1.5")))
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".XLSX")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)

	f, err = ParseFormat("csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv; charset=utf-8", f.ContentType())

	_, err = ParseFormat("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSheetName(t *testing.T) {
	used := make(map[string]bool)
	assert.Equal(t, "a_b", sheetName("a/b", used))
	long := strings.Repeat("x", 40)
	first := sheetName(long, used)
	assert.Len(t, first, 31)
	second := sheetName(long, used)
	assert.Len(t, second, 31)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, "~2"))
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Tables(mortgageResult())))

	data := buf.Bytes()
	require.True(t, bytes.HasPrefix(data, utf8BOM))

	r := csv.NewReader(bytes.NewReader(data[len(utf8BOM):]))
	r.Comma = ';'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"# resultat"}, records[0])
	assert.Contains(t, records, []string{"# lan.plan"})
	assert.Contains(t, records, planColumns)
	assert.Contains(t, records, []string{"lanebelop", "3 000 000 kr"})
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, Tables(mortgageResult())))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"resultat", SummarySheet, "lan", "lan.plan"}, f.GetSheetList())

	rows, err := f.GetRows("lan.plan")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, planColumns, rows[0])
	assert.Equal(t, "2 994 963,00", rows[1][6])

	v, err := f.GetCellValue(SummarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "verdi", v)
}

func TestExporter_SaveAndWrite(t *testing.T) {
	logger, logs := testutil.NewTestLogger(t)
	dir := t.TempDir()
	exp := New(dir, nil, logger)
	result := mortgageResult()

	path, err := exp.Save(context.Background(), result, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mortgage-r-1.csv"), path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
	assert.True(t, logs.ContainsMessage("export_saved"))

	_, err = exp.Save(context.Background(), result, Format("pdf"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	var buf bytes.Buffer
	err = exp.Write(context.Background(), &buf, result, Format("ods"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
	assert.Zero(t, buf.Len())
}
