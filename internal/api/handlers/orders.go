package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// OrdersHandler handles order-related HTTP requests.
type OrdersHandler struct {
	*Base
}

// NewOrdersHandler creates a new orders handler.
func NewOrdersHandler(store *storage.Storage) *OrdersHandler {
	return &OrdersHandler{Base: NewBase(store)}
}

// Get handles GET /api/orders/{id} - the order a return references,
// with its line items.
func (h *OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("order id must be an integer"))
		return
	}

	order, err := h.storage.GetOrder(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if order == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("order"))
		return
	}

	items, err := h.storage.OrderItems(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.OrderDetailResponse{Order: *order, Items: items})
}
