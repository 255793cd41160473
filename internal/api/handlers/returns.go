package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// ReturnsHandler handles return-related HTTP requests.
type ReturnsHandler struct {
	*Base
}

// NewReturnsHandler creates a new returns handler.
func NewReturnsHandler(store *storage.Storage) *ReturnsHandler {
	return &ReturnsHandler{Base: NewBase(store)}
}

// List handles GET /api/returns with filtering and pagination.
func (h *ReturnsHandler) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.storage.ListReturns(returnFilters(r))
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, result)
}

// Get handles GET /api/returns/{id} with the return's items.
func (h *ReturnsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("return id must be an integer"))
		return
	}

	detail, err := h.storage.GetReturnDetail(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if detail == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("return"))
		return
	}
	h.WriteJSON(w, http.StatusOK, detail)
}

// ListClients handles GET /api/clients.
func (h *ReturnsHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.storage.ListClients()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.ClientListResponse{Clients: clients, Count: len(clients)})
}

// ListWarehouses handles GET /api/warehouses.
func (h *ReturnsHandler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.storage.ListWarehouses()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.WarehouseListResponse{Warehouses: warehouses, Count: len(warehouses)})
}
