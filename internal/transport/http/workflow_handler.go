package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "husholdning/internal/errors"
	"husholdning/internal/infrastructure"
	"husholdning/internal/middleware"
	api "husholdning/pkg/contracts/api/v1"
	"husholdning/pkg/contracts/domain"
)

// APIBasePath prefixes every versioned route
const APIBasePath = "/api/v1"

// WorkflowHandler starts calculations
type WorkflowHandler struct {
	service   WorkflowService
	validator *middleware.ValidationMiddleware
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewWorkflowHandler creates a new workflow handler
func NewWorkflowHandler(service WorkflowService, validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *WorkflowHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	return &WorkflowHandler{
		service:   service,
		validator: validator,
		errors:    errorHandler,
		logger:    infrastructure.WithComponent(logger, "workflow_handler"),
	}
}

// Routes sets up the calculation routes
func (h *WorkflowHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/sifo", h.Sifo)
	r.Get("/finn/{code}", h.Finn)
	r.Post("/mortgage", h.Mortgage)
	r.Post("/restructure", h.Restructure)
	r.Post("/tax", h.Tax)
	return r
}

// Sifo handles POST /api/v1/sifo
func (h *WorkflowHandler) Sifo(w http.ResponseWriter, r *http.Request) {
	var req api.SifoRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.run(w, r, domain.WorkflowSifo, req.Form())
}

// Finn handles GET /api/v1/finn/{code}
func (h *WorkflowHandler) Finn(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if err := h.validator.ValidateVar("finnkode", code, "required,finn_code"); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.run(w, r, domain.WorkflowFinn, map[string]any{"finnkode": code})
}

// Mortgage handles POST /api/v1/mortgage
func (h *WorkflowHandler) Mortgage(w http.ResponseWriter, r *http.Request) {
	var req api.MortgageRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.run(w, r, domain.WorkflowMortgage, req.Form())
}

// Restructure handles POST /api/v1/restructure
func (h *WorkflowHandler) Restructure(w http.ResponseWriter, r *http.Request) {
	var req api.RestructureRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.run(w, r, domain.WorkflowRestructure, req.Form())
}

// Tax handles POST /api/v1/tax
func (h *WorkflowHandler) Tax(w http.ResponseWriter, r *http.Request) {
	var req api.TaxRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.run(w, r, domain.WorkflowTax, req.Form())
}

// run executes kind synchronously, or in the background with ?async=true.
// A failed synchronous run still points at its stored result through the
// Location header.
func (h *WorkflowHandler) run(w http.ResponseWriter, r *http.Request, kind domain.WorkflowKind, form map[string]any) {
	ctx := r.Context()
	async, _ := strconv.ParseBool(r.URL.Query().Get("async"))

	if async {
		result, err := h.service.Start(ctx, kind, form)
		if err != nil {
			h.errors.HandleError(w, r, serviceError(err))
			return
		}
		h.logger.InfoContext(ctx, "workflow_accepted",
			slog.String("result_id", result.ID),
			slog.String("workflow", string(kind)))
		w.Header().Set("Location", resultPath(result.ID))
		render.Status(r, http.StatusAccepted)
		render.JSON(w, r, api.NewResultResponse(result, APIBasePath))
		return
	}

	result, err := h.service.Run(ctx, kind, form)
	if result.ID != "" {
		w.Header().Set("Location", resultPath(result.ID))
	}
	if err != nil {
		h.errors.HandleError(w, r, serviceError(err))
		return
	}
	render.Status(r, http.StatusOK)
	render.JSON(w, r, api.NewResultResponse(result, APIBasePath))
}

func resultPath(id string) string {
	return APIBasePath + "/results/" + id
}
