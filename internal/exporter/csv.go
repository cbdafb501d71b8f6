package exporter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM lets spreadsheet programs detect UTF-8 (æ, ø, å)
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes tables one after another, each preceded by a "# name"
// line and followed by a blank line
func WriteCSV(w io.Writer, tables []Table) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(w)
	writer.Comma = ';'
	for i, t := range tables {
		if i > 0 {
			if err := writer.Write(nil); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{"# " + t.Name}); err != nil {
			return fmt.Errorf("failed to write table %s: %w", t.Name, err)
		}
		if len(t.Headers) > 0 {
			if err := writer.Write(t.Headers); err != nil {
				return fmt.Errorf("failed to write headers of %s: %w", t.Name, err)
			}
		}
		for j, record := range t.Rows {
			if err := writer.Write(record); err != nil {
				return fmt.Errorf("failed to write record %d of %s: %w", j, t.Name, err)
			}
		}
	}
	writer.Flush()
	return writer.Error()
}
