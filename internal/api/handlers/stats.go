package handlers

import (
	"net/http"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// StatsHandler handles dashboard and analytics HTTP requests.
type StatsHandler struct {
	*Base
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(store *storage.Storage) *StatsHandler {
	return &StatsHandler{Base: NewBase(store)}
}

// Dashboard handles GET /api/stats - the dashboard headline numbers.
func (h *StatsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.storage.GetDashboardStats()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, stats)
}

// ReturnReasons handles GET /api/analytics/return-reasons.
func (h *StatsHandler) ReturnReasons(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)
	reasons, err := h.storage.ReturnReasonStats(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.ReasonStatsResponse{Reasons: reasons, Count: len(reasons)})
}

// TopProducts handles GET /api/analytics/top-products.
func (h *StatsHandler) TopProducts(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 10)
	products, err := h.storage.TopReturnedProducts(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.TopProductsResponse{Products: products, Count: len(products)})
}
