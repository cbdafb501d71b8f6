package http

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "husholdning/internal/errors"
	"husholdning/internal/exporter"
	"husholdning/internal/infrastructure"
	"husholdning/internal/middleware"
	api "husholdning/pkg/contracts/api/v1"
)

// ResultsHandler serves stored results, their exports and diagrams
type ResultsHandler struct {
	service   WorkflowService
	exporter  *exporter.Exporter
	validator *middleware.ValidationMiddleware
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewResultsHandler creates a new results handler
func NewResultsHandler(service WorkflowService, exp *exporter.Exporter, validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ResultsHandler {
	return &ResultsHandler{
		service:   service,
		exporter:  exp,
		validator: validator,
		errors:    errorHandler,
		logger:    infrastructure.WithComponent(logger, "results_handler"),
	}
}

// Routes sets up the result routes
func (h *ResultsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/diagram", h.Diagram)
	r.Get("/{id}/export.{format}", h.Export)
	return r
}

// List handles GET /api/v1/results
func (h *ResultsHandler) List(w http.ResponseWriter, r *http.Request) {
	results := h.service.List()
	summaries := make([]api.ResultSummary, 0, len(results))
	for _, res := range results {
		summaries = append(summaries, api.Summarize(res))
	}
	render.JSON(w, r, api.ResultList{Results: summaries, Count: len(summaries)})
}

// Get handles GET /api/v1/results/{id}
func (h *ResultsHandler) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, serviceError(err))
		return
	}
	render.JSON(w, r, api.NewResultResponse(result, APIBasePath))
}

// Diagram handles GET /api/v1/results/{id}/diagram
func (h *ResultsHandler) Diagram(w http.ResponseWriter, r *http.Request) {
	dot, err := h.service.Diagram(chi.URLParam(r, "id"))
	if err != nil {
		h.errors.HandleError(w, r, serviceError(err))
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}

// Export handles GET /api/v1/results/{id}/export.{format}
func (h *ResultsHandler) Export(w http.ResponseWriter, r *http.Request) {
	req := api.ExportRequest{
		ID:     chi.URLParam(r, "id"),
		Format: chi.URLParam(r, "format"),
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	format, err := exporter.ParseFormat(req.Format)
	if err != nil {
		h.errors.HandleError(w, r, serviceError(err))
		return
	}

	result, err := h.service.Completed(req.ID)
	if err != nil {
		h.errors.HandleError(w, r, serviceError(err))
		return
	}

	var buf bytes.Buffer
	if err := h.exporter.Write(r.Context(), &buf, result, format); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", exporter.Filename(result, format)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
