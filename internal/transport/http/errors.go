package http

import (
	"errors"

	apierrors "husholdning/internal/errors"
	"husholdning/internal/exporter"
	"husholdning/internal/services"
)

// serviceError maps service sentinel errors onto API errors. Workflow
// errors pass through and are mapped by the error handler.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrResultNotFound):
		return apierrors.ErrResultNotFound
	case errors.Is(err, services.ErrResultPending):
		return apierrors.ErrResultPending
	case errors.Is(err, services.ErrUnknownWorkflow):
		return apierrors.ErrUnknownWorkflow
	case errors.Is(err, services.ErrShuttingDown):
		return apierrors.ErrServiceUnavailable
	case errors.Is(err, services.ErrNoDiagram):
		return apierrors.NotFoundError("diagram")
	case errors.Is(err, exporter.ErrUnsupportedFormat):
		return apierrors.ErrNotAcceptable
	default:
		return err
	}
}
