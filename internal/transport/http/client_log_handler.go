package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	apierrors "husholdning/internal/errors"
	"husholdning/internal/infrastructure"
	"husholdning/internal/middleware"
)

// ClientLogHandler forwards browser-side log entries into the server log
type ClientLogHandler struct {
	validator *middleware.ValidationMiddleware
	errors    *apierrors.ErrorHandler
	logger    *slog.Logger
}

// NewClientLogHandler creates a new client log handler
func NewClientLogHandler(validator *middleware.ValidationMiddleware, errorHandler *apierrors.ErrorHandler, logger *slog.Logger) *ClientLogHandler {
	return &ClientLogHandler{
		validator: validator,
		errors:    errorHandler,
		logger:    infrastructure.WithComponent(logger, "client_log"),
	}
}

// LogRequest represents a client log entry
type LogRequest struct {
	Level    string         `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Message  string         `json:"message" validate:"required,max=1000"`
	Data     map[string]any `json:"data,omitempty"`
	Source   string         `json:"source,omitempty" validate:"max=200"`
	ResultID string         `json:"result_id,omitempty" validate:"omitempty,uuid"`
}

// Handle handles POST /api/v1/client-log
func (h *ClientLogHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req LogRequest
	if err := h.validator.Decode(r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	attrs := []slog.Attr{slog.String("client_source", req.Source)}
	if req.ResultID != "" {
		attrs = append(attrs, slog.String("result_id", req.ResultID))
	}
	if req.Data != nil {
		attrs = append(attrs, slog.Any("data", req.Data))
	}
	attrs = append(attrs, slog.String("client_message", req.Message))

	h.logger.LogAttrs(r.Context(), clientLevel(req.Level), "client_log", attrs...)

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]any{"success": true})
}

func clientLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
