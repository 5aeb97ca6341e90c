package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /health. The process is alive if it answers.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /ready. The server is ready while its device is
// open.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := h.device.Totals(); err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, HealthResponse{
		Status: "ready",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}
