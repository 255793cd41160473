package handlers

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/emailshare"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// SharesHandler handles email report share requests.
type SharesHandler struct {
	*Base
	shares *emailshare.Service
}

// NewSharesHandler creates a new shares handler.
func NewSharesHandler(store *storage.Storage, shares *emailshare.Service) *SharesHandler {
	return &SharesHandler{
		Base:   NewBase(store),
		shares: shares,
	}
}

// Create handles POST /api/email-shares - sends a per-client report.
func (h *SharesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.EmailShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}

	if req.ClientID <= 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("client_id is required"))
		return
	}
	if _, err := mail.ParseAddress(req.RecipientEmail); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("recipient_email is not a valid address"))
		return
	}
	start, err := time.Parse("2006-01-02", req.DateRangeStart)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("date_range_start must be YYYY-MM-DD"))
		return
	}
	end, err := time.Parse("2006-01-02", req.DateRangeEnd)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("date_range_end must be YYYY-MM-DD"))
		return
	}
	if end.Before(start) {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("date_range_end is before date_range_start"))
		return
	}

	share, err := h.shares.Share(r.Context(), emailshare.Request{
		ClientID:       req.ClientID,
		RecipientEmail: req.RecipientEmail,
		DateRangeStart: start,
		// Cover the whole end day.
		DateRangeEnd: end.Add(24*time.Hour - time.Second),
	})
	if err != nil {
		if share != nil {
			// The share row exists; report the failed delivery.
			h.WriteJSON(w, http.StatusBadGateway, share)
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, share)
}

// List handles GET /api/email-shares - share history.
func (h *SharesHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)
	shares, err := h.storage.ListEmailShares(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.EmailShareListResponse{Shares: shares, Count: len(shares)})
}
