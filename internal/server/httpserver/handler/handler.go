package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/core/service"
	"github.com/yndnr/keyvault-go/internal/telemetry/logger"
)

// Device is the read-only device surface the handlers need.
// *service.Device satisfies it.
type Device interface {
	Stats(user int) (service.UserStats, error)
	Totals() (service.Totals, error)
}

// Handler serves the health and admin endpoints.
type Handler struct {
	device  Device
	logger  logger.Logger
	mux     *http.ServeMux
	started time.Time
}

// New creates a new Handler.
func New(device Device, log logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	h := &Handler{
		device:  device,
		logger:  log,
		mux:     http.NewServeMux(),
		started: time.Now(),
	}

	h.registerRoutes()
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	h.mux.HandleFunc("GET /admin/v1/status/summary", h.handleAdminStatus)
	h.mux.HandleFunc("GET /admin/v1/users/{user}/stats", h.handleUserStats)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	h.write(w, status, NewResponse(getRequestID(r), data))
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details any) {
	w.Header().Set("X-Error-Code", code)
	h.write(w, status, NewErrorResponse(getRequestID(r), code, message, details))
}

func (h *Handler) write(w http.ResponseWriter, status int, resp *Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Debug("response write failed", "error", err)
	}
}

// getRequestID returns the request ID set by the RequestID middleware.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		h.writeError(w, r, de.HTTPStatus(), de.Code, err.Error(), nil)
		return
	}

	h.logger.Error("internal error", "error", err)
	h.writeError(w, r, http.StatusInternalServerError, "KV-SYS-5000", "internal server error", nil)
}
