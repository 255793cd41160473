package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	syncsvc "github.com/uptimeops/warehance-returns-backend/internal/sync"
)

// SyncHandler handles sync-related HTTP requests.
type SyncHandler struct {
	*Base
	syncService *syncsvc.Service
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(store *storage.Storage, syncService *syncsvc.Service) *SyncHandler {
	return &SyncHandler{
		Base:        NewBase(store),
		syncService: syncService,
	}
}

// Trigger handles POST /api/sync - starts a background sync run.
// A second trigger while one is in flight answers 409.
func (h *SyncHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	runID, err := h.syncService.Trigger(r.Context())
	if err != nil {
		if errors.Is(err, syncsvc.ErrSyncRunning) {
			h.WriteError(w, http.StatusConflict, dto.ConflictError("a sync is already running"))
			return
		}
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusAccepted, dto.SyncTriggerResponse{
		RunID:   runID,
		Status:  "running",
		Message: "Sync started",
	})
}

// Status handles GET /api/sync/status - the polling endpoint.
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	status, err := h.syncService.CurrentStatus()
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.NewSyncStatusResponse(status))
}

// ListRuns handles GET /api/sync/runs - sync run history.
func (h *SyncHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)
	runs, err := h.storage.ListSyncLogs(limit)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	h.WriteJSON(w, http.StatusOK, dto.SyncRunListResponse{Runs: runs, Count: len(runs)})
}

// GetRun handles GET /api/sync/runs/{id}.
func (h *SyncHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run id must be an integer"))
		return
	}

	run, err := h.storage.GetSyncLog(id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if run == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("sync run"))
		return
	}
	h.WriteJSON(w, http.StatusOK, run)
}
