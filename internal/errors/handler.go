package errors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"runtime/debug"

	"github.com/go-chi/render"

	"husholdning/internal/infrastructure"
	"husholdning/internal/workflow"
)

// Problem types following RFC 7807
const (
	TypeValidation         = "/errors/validation"
	TypeNotFound           = "/errors/not-found"
	TypeRateLimit          = "/errors/rate-limit"
	TypeInternal           = "/errors/internal"
	TypeServiceDown        = "/errors/service-unavailable"
	TypeTimeout            = "/errors/timeout"
	TypeConflict           = "/errors/conflict"
	TypeNotAcceptable      = "/errors/not-acceptable"
	TypeMethodNotAllowed   = "/errors/method-not-allowed"
	TypeInvalidInput       = "/errors/workflow/invalid-input"
	TypeUpstreamTimeout    = "/errors/upstream/timeout"
	TypeUpstreamConnection = "/errors/upstream/connection"
	TypeUpstreamNotFound   = "/errors/upstream/not-found"
	TypeDependency         = "/errors/workflow/dependency"
	TypeWorkflowFailed     = "/errors/workflow/failed"
	TypeCancelled          = "/errors/workflow/cancelled"
)

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	logger       *slog.Logger
	includeStack bool
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger, includeStack bool) *ErrorHandler {
	return &ErrorHandler{
		logger:       logger.With(slog.String("component", "error_handler")),
		includeStack: includeStack,
	}
}

// HandleError converts any error to RFC 7807 format and responds
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := infrastructure.GetTraceID(r.Context())
	problem := h.ErrorToProblem(err, r)

	level := slog.LevelWarn
	if problem.Status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	h.logger.LogAttrs(r.Context(), level, "request_failed",
		slog.String("error", err.Error()),
		slog.String("problem_type", problem.Type),
		slog.Int("status", problem.Status),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem.WithExtension("trace_id", reqID)
	if h.includeStack {
		problem.WithExtension("stack", getStackTrace())
	}
	_ = render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	var wfErr *workflow.Error
	if errors.As(err, &wfErr) {
		return workflowProblem(wfErr, r)
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErrorToProblem(apiErr, r)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred while processing your request",
		r.URL.Path,
	)
}

// StatusForWorkflowError maps a workflow error type onto an HTTP status
func StatusForWorkflowError(t workflow.ErrorType) int {
	switch t {
	case workflow.ErrorTypeInvalidInput:
		return http.StatusUnprocessableEntity
	case workflow.ErrorTypeUpstreamNotFound:
		return http.StatusNotFound
	case workflow.ErrorTypeUpstreamTimeout, workflow.ErrorTypeCancellation:
		return http.StatusGatewayTimeout
	case workflow.ErrorTypeUpstreamConnection:
		return http.StatusBadGateway
	case workflow.ErrorTypeDependency:
		return http.StatusFailedDependency
	default:
		return http.StatusInternalServerError
	}
}

func workflowProblem(e *workflow.Error, r *http.Request) *ProblemDetails {
	problemType, title := TypeWorkflowFailed, "Workflow Failed"
	switch e.Type {
	case workflow.ErrorTypeInvalidInput:
		problemType, title = TypeInvalidInput, "Invalid Form"
	case workflow.ErrorTypeUpstreamNotFound:
		problemType, title = TypeUpstreamNotFound, "Upstream Data Not Found"
	case workflow.ErrorTypeUpstreamTimeout:
		problemType, title = TypeUpstreamTimeout, "Upstream Timeout"
	case workflow.ErrorTypeUpstreamConnection:
		problemType, title = TypeUpstreamConnection, "Upstream Unavailable"
	case workflow.ErrorTypeDependency:
		problemType, title = TypeDependency, "Missing Dependency"
	case workflow.ErrorTypeCancellation:
		problemType, title = TypeCancelled, "Workflow Cancelled"
	}

	problem := NewProblemDetails(StatusForWorkflowError(e.Type), problemType, title, e.Message, r.URL.Path).
		WithExtension("error_type", string(e.Type))
	if e.Step != "" {
		problem.WithExtension("step", e.Step)
	}
	if e.Field != "" {
		problem.WithExtension("field", e.Field)
	}
	return problem
}

func apiErrorToProblem(apiErr *APIError, r *http.Request) *ProblemDetails {
	problemType := TypeInternal
	switch apiErr.ErrorCode {
	case "VALIDATION_FAILED", "INVALID_REQUEST":
		problemType = TypeValidation
	case "NOT_FOUND", "RESULT_NOT_FOUND", "UNKNOWN_WORKFLOW":
		problemType = TypeNotFound
	case "RESULT_PENDING":
		problemType = TypeConflict
	case "NOT_ACCEPTABLE":
		problemType = TypeNotAcceptable
	case "RATE_LIMIT_EXCEEDED":
		problemType = TypeRateLimit
	case "SERVICE_UNAVAILABLE":
		problemType = TypeServiceDown
	}

	problem := NewProblemDetails(
		apiErr.StatusCode,
		problemType,
		http.StatusText(apiErr.StatusCode),
		apiErr.Message,
		r.URL.Path,
	).WithExtension("error_code", apiErr.ErrorCode)

	if apiErr.Details != nil {
		problem.WithExtension("details", apiErr.Details)
	}
	return problem
}

// HandlePanic responds to a recovered panic with a 500 problem
func (h *ErrorHandler) HandlePanic(w http.ResponseWriter, r *http.Request, recovered interface{}) {
	reqID := infrastructure.GetTraceID(r.Context())

	h.logger.ErrorContext(r.Context(), "panic_recovered",
		slog.Any("panic", recovered),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("stack", string(debug.Stack())),
	)

	problem := NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	).WithExtension("trace_id", reqID)

	if h.includeStack {
		problem.WithExtension("panic", fmt.Sprintf("%v", recovered))
		problem.WithExtension("stack", getStackTrace())
	}
	_ = render.Render(w, r, problem)
}

// NotFound returns a standard 404 problem
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusNotFound,
		TypeNotFound,
		"Not Found",
		"The requested resource was not found",
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))
	_ = render.Render(w, r, problem)
}

// MethodNotAllowed returns a standard 405 problem
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	problem := NewProblemDetails(
		http.StatusMethodNotAllowed,
		TypeMethodNotAllowed,
		"Method Not Allowed",
		fmt.Sprintf("Method %s is not allowed for this endpoint", r.Method),
		r.URL.Path,
	).WithExtension("trace_id", infrastructure.GetTraceID(r.Context()))
	_ = render.Render(w, r, problem)
}

func getStackTrace() string {
	buf := make([]byte, 1024*8)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}
