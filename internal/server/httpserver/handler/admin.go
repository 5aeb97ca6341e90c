package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yndnr/keyvault-go/internal/core/domain"
	"github.com/yndnr/keyvault-go/internal/infra/buildinfo"
)

// handleAdminStatus handles GET /admin/v1/status/summary.
func (h *Handler) handleAdminStatus(w http.ResponseWriter, r *http.Request) {
	totals, err := h.device.Totals()
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, StatusSummary{
		Build:  buildinfo.Get(),
		Uptime: time.Since(h.started).Round(time.Second).String(),
		Totals: totals,
	})
}

// handleUserStats handles GET /admin/v1/users/{user}/stats.
func (h *Handler) handleUserStats(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("user")
	user, err := strconv.Atoi(raw)
	if err != nil {
		h.handleServiceError(w, r, domain.ErrInvalidUser.WithDetails(raw))
		return
	}
	stats, err := h.device.Stats(user)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	h.writeJSON(w, r, http.StatusOK, stats)
}
