// Command calc runs a single calculation from a form file and prints the
// stored result as JSON.
//
//	calc -kind tax -form skatt.yaml
//	calc -kind mortgage -form lan.yaml -export xlsx -diagram lan.dot
//	calc -kind finn -finn 123456789
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"gopkg.in/yaml.v2"

	"husholdning/internal/app"
	"husholdning/internal/config"
	"husholdning/internal/connectors"
	apierrors "husholdning/internal/errors"
	"husholdning/internal/exporter"
	"husholdning/internal/infrastructure"
	"husholdning/internal/middleware"
	"husholdning/internal/services"
	api "husholdning/pkg/contracts/api/v1"
	"husholdning/pkg/contracts/domain"
)

type options struct {
	configPath string
	kind       string
	formPath   string
	finnCode   string
	export     string
	diagram    string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, nil); err != nil {
		fmt.Fprintln(os.Stderr, "calc:", err)
		stop()
		os.Exit(1)
	}
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("calc", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.configPath, "config", "", "path to a YAML configuration file")
	fs.StringVar(&opts.kind, "kind", "", "workflow to run: sifo, finn, mortgage, restructure or tax")
	fs.StringVar(&opts.formPath, "form", "", "YAML or JSON form file")
	fs.StringVar(&opts.finnCode, "finn", "", "Finn code for -kind finn")
	fs.StringVar(&opts.export, "export", "", "also save the result as xlsx or csv in the export directory")
	fs.StringVar(&opts.diagram, "diagram", "", "write the run diagram (DOT) to this file")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	if !domain.WorkflowKind(opts.kind).Valid() {
		return opts, fmt.Errorf("unknown workflow kind %q", opts.kind)
	}
	return opts, nil
}

// run executes one workflow. A nil sources uses the live connectors.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, sources connectors.Sources) error {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := infrastructure.NewLogger(stderr, cfg.Logging.Level)
	if sources == nil {
		sources = app.NewSources(cfg.Connectors, logger)
	}

	validator := middleware.NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
	kind := domain.WorkflowKind(opts.kind)
	form, err := loadForm(kind, opts, validator)
	if err != nil {
		return err
	}

	store := services.NewResultStore(cfg.Workflow.ResultTTL, nil, logger)
	svc := services.NewWorkflowService(sources, store, cfg.Workflow, logger,
		services.WithDiagramDir(cfg.Paths.DiagramDir))
	defer func() { _ = svc.Shutdown(context.Background()) }()

	result, runErr := svc.Run(ctx, kind, form)
	if result.ID == "" {
		return runErr
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	if runErr != nil {
		return runErr
	}

	if opts.export != "" {
		format, err := exporter.ParseFormat(opts.export)
		if err != nil {
			return err
		}
		path, err := exporter.New(cfg.Paths.ExportDir, nil, logger).Save(ctx, result, format)
		if err != nil {
			return err
		}
		fmt.Fprintln(stderr, "exported", path)
	}
	if opts.diagram != "" {
		if err := os.WriteFile(opts.diagram, []byte(result.Diagram), 0o644); err != nil {
			return fmt.Errorf("failed to write diagram: %w", err)
		}
	}
	return nil
}

// loadForm decodes and validates the form the same way the HTTP API does
func loadForm(kind domain.WorkflowKind, opts options, validator *middleware.ValidationMiddleware) (map[string]any, error) {
	if kind == domain.WorkflowFinn {
		if err := validator.ValidateVar("finnkode", opts.finnCode, "required,finn_code"); err != nil {
			return nil, describe(err)
		}
		return map[string]any{"finnkode": opts.finnCode}, nil
	}

	if opts.formPath == "" {
		return nil, fmt.Errorf("-form is required for %s", kind)
	}
	data, err := os.ReadFile(opts.formPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read form: %w", err)
	}

	var (
		req interface{ Form() map[string]any }
		dst any
	)
	switch kind {
	case domain.WorkflowSifo:
		r := &api.SifoRequest{}
		req, dst = r, r
	case domain.WorkflowMortgage:
		r := &api.MortgageRequest{}
		req, dst = r, r
	case domain.WorkflowRestructure:
		r := &api.RestructureRequest{}
		req, dst = r, r
	case domain.WorkflowTax:
		r := &api.TaxRequest{}
		req, dst = r, r
	}

	if err := yaml.Unmarshal(data, dst); err != nil {
		return nil, fmt.Errorf("failed to parse form %s: %w", opts.formPath, err)
	}
	if err := validator.ValidateStruct(dst); err != nil {
		return nil, describe(err)
	}
	return req.Form(), nil
}

// describe flattens validation details into the error text
func describe(err error) error {
	var apiErr *apierrors.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	var fields []string
	switch d := apiErr.Details.(type) {
	case apierrors.ValidationErrors:
		for _, fe := range d.Errors {
			fields = append(fields, fe.Field+": "+fe.Message)
		}
	case apierrors.ValidationError:
		fields = append(fields, d.Field+": "+d.Message)
	}
	if len(fields) == 0 {
		return err
	}
	return fmt.Errorf("%s: %s", apiErr.Message, strings.Join(fields, "; "))
}
