// Package exporter turns workflow results into spreadsheets.
//
// A result is flattened into tables: a "resultat" table describing the
// run, a "sammendrag" table of the top-level values, one key/value table
// per nested section and one row table per list, such as a repayment plan.
// The tables are written as an xlsx workbook with one sheet each, or as a
// single semicolon separated CSV file.
//
//	exp := exporter.New(cfg.Paths.ExportDir, metrics, logger)
//	path, err := exp.Save(ctx, result, exporter.FormatXLSX)
package exporter
