package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"husholdning/internal/infrastructure"
	"husholdning/pkg/contracts/domain"
)

// ErrUnsupportedFormat is returned for formats other than xlsx and csv
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Exporter writes results as spreadsheets
type Exporter struct {
	dir     string
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// New creates an exporter saving files under dir. metrics may be nil.
func New(dir string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Exporter {
	return &Exporter{
		dir:     dir,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "exporter"),
	}
}

// Write streams result to w in format
func (e *Exporter) Write(ctx context.Context, w io.Writer, result domain.Result, format Format) error {
	tables := Tables(result)

	var err error
	switch format {
	case FormatXLSX:
		err = WriteXLSX(w, tables)
	case FormatCSV:
		err = WriteCSV(w, tables)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return fmt.Errorf("export %s as %s: %w", result.ID, format, err)
	}

	infrastructure.RecordExport(ctx, e.metrics, string(format))
	e.logger.DebugContext(ctx, "result_exported",
		slog.String("result_id", result.ID),
		slog.String("format", string(format)),
		slog.Int("tables", len(tables)))
	return nil
}

// Save writes result to <dir>/<kind>-<id>.<format> and returns the path
func (e *Exporter) Save(ctx context.Context, result domain.Result, format Format) (string, error) {
	if _, err := ParseFormat(string(format)); err != nil {
		return "", err
	}
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(e.dir, Filename(result, format))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := e.Write(ctx, f, result, format); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}

	e.logger.InfoContext(ctx, "export_saved",
		slog.String("result_id", result.ID),
		slog.String("path", path))
	return path, nil
}

// Filename is the download name of result in format
func Filename(result domain.Result, format Format) string {
	return fmt.Sprintf("%s-%s.%s", result.Kind, result.ID, format)
}
