package dto

import (
	"time"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	syncsvc "github.com/uptimeops/warehance-returns-backend/internal/sync"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a health response with current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// MessageResponse wraps a simple human-readable message.
type MessageResponse struct {
	Message string `json:"message"`
}

// ClientListResponse is returned when listing clients.
type ClientListResponse struct {
	Clients []storage.Client `json:"clients"`
	Count   int              `json:"count"`
}

// WarehouseListResponse is returned when listing warehouses.
type WarehouseListResponse struct {
	Warehouses []storage.Warehouse `json:"warehouses"`
	Count      int                 `json:"count"`
}

// OrderDetailResponse is returned for a single order lookup.
type OrderDetailResponse struct {
	storage.Order
	Items []storage.OrderItem `json:"items"`
}

// ReasonStatsResponse is returned by the return-reasons analytics endpoint.
type ReasonStatsResponse struct {
	Reasons []storage.ReasonCount `json:"reasons"`
	Count   int                   `json:"count"`
}

// TopProductsResponse is returned by the top-returned-products endpoint.
type TopProductsResponse struct {
	Products []storage.ProductReturnCount `json:"products"`
	Count    int                          `json:"count"`
}

// SyncTriggerResponse is returned when a sync run is accepted.
type SyncTriggerResponse struct {
	RunID   int64  `json:"run_id"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// SyncStatusResponse reports the current sync state for polling.
type SyncStatusResponse struct {
	Status       string           `json:"status"`
	LastRun      *storage.SyncLog `json:"last_run,omitempty"`
	NextSchedule *time.Time       `json:"next_scheduled_run,omitempty"`
}

// NewSyncStatusResponse converts the service status summary.
func NewSyncStatusResponse(status *syncsvc.Status) SyncStatusResponse {
	return SyncStatusResponse{
		Status:       status.Status,
		LastRun:      status.LastRun,
		NextSchedule: status.NextSchedule,
	}
}

// SyncRunListResponse is returned when listing sync run history.
type SyncRunListResponse struct {
	Runs  []storage.SyncLog `json:"runs"`
	Count int               `json:"count"`
}

// EmailShareListResponse is returned when listing email shares.
type EmailShareListResponse struct {
	Shares []storage.EmailShare `json:"shares"`
	Count  int                  `json:"count"`
}
