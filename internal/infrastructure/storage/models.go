package storage

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// StringList is an ordered list of free-text tags stored as a JSON
// string in a TEXT column. Order and duplicates are preserved exactly
// as the source delivered them.
type StringList []string

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner.
func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		if v == "" {
			*l = nil
			return nil
		}
		return json.Unmarshal([]byte(v), l)
	case []byte:
		if len(v) == 0 {
			*l = nil
			return nil
		}
		return json.Unmarshal(v, l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// Client is a Warehance client account. The id is the external
// identifier issued by the source system.
type Client struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Warehouse is a physical warehouse referenced by returns.
type Warehouse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is a sales channel referenced by return integrations.
type Store struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ReturnIntegration is the return-channel metadata attached to a return.
type ReturnIntegration struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"return_integration_type"`
	StoreID *int64 `json:"store_id"`
}

// Order is an upstream order referenced by returns. CustomerName is
// extracted from the nested ship-to address payload at sync time.
type Order struct {
	ID           int64      `json:"id"`
	OrderNumber  string     `json:"order_number"`
	CustomerName string     `json:"customer_name"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
}

// OrderItem is a line item on an order. Kept so returns with a missing
// item list can fall back to the order's items.
type OrderItem struct {
	ID                int64   `json:"id"`
	OrderID           int64   `json:"order_id"`
	ProductID         *int64  `json:"product_id"`
	SKU               string  `json:"sku"`
	Name              string  `json:"name"`
	Quantity          int     `json:"quantity"`
	QuantityShipped   int     `json:"quantity_shipped"`
	UnitPrice         float64 `json:"unit_price"`
	BundleOrderItemID *int64  `json:"bundle_order_item_id"`
}

// Product is a catalog product. SKU is unique across products.
type Product struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Return is a single merchandise return pulled from the source API.
type Return struct {
	ID             int64      `json:"id"`
	APIID          string     `json:"api_id"`
	PaidBy         string     `json:"paid_by"`
	Status         string     `json:"status"`
	CreatedAt      *time.Time `json:"created_at"`
	UpdatedAt      *time.Time `json:"updated_at"`
	Processed      bool       `json:"processed"`
	ProcessedAt    *time.Time `json:"processed_at"`
	WarehouseNote  string     `json:"warehouse_note"`
	CustomerNote   string     `json:"customer_note"`
	TrackingNumber string     `json:"tracking_number"`
	TrackingURL    string     `json:"tracking_url"`
	Carrier        string     `json:"carrier"`
	Service        string     `json:"service"`
	LabelCost      *float64   `json:"label_cost"`
	LabelPDFURL    string     `json:"label_pdf_url"`
	RMASlipURL     string     `json:"rma_slip_url"`
	LabelVoided    bool       `json:"label_voided"`

	ClientID      *int64 `json:"client_id"`
	WarehouseID   *int64 `json:"warehouse_id"`
	OrderID       *int64 `json:"order_id"`
	IntegrationID *int64 `json:"return_integration_id"`

	FirstSyncedAt time.Time `json:"first_synced_at"`
	LastSyncedAt  time.Time `json:"last_synced_at"`
}

// ReturnItem is a line item on a return. Quantity is the display
// quantity after the bundle fix-up; QuantityOrdered preserves the raw
// value reported by the source. IsProxy marks rows substituted from
// the associated order's items when the source's own item list was
// unavailable.
type ReturnItem struct {
	ID                int64      `json:"id"`
	ReturnID          int64      `json:"return_id"`
	ProductID         *int64     `json:"product_id"`
	Quantity          int        `json:"quantity"`
	QuantityOrdered   int        `json:"quantity_ordered"`
	QuantityReceived  int        `json:"quantity_received"`
	QuantityRejected  int        `json:"quantity_rejected"`
	ReturnReasons     StringList `json:"return_reasons"`
	ConditionOnArrival StringList `json:"condition_on_arrival"`
	IsProxy           bool       `json:"is_proxy"`
}

// Sync run states recorded on sync_logs rows.
const (
	SyncStatusRunning   = "running"
	SyncStatusCompleted = "completed"
	SyncStatusFailed    = "failed"
)

// SyncLog is one row per orchestration run. Rows are append-only:
// created at run start and finalized at run end.
type SyncLog struct {
	ID            int64      `json:"id"`
	SyncType      string     `json:"sync_type"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at"`
	Status        string     `json:"status"`
	TotalPages    int        `json:"total_pages"`
	TotalFetched  int        `json:"total_fetched"`
	Created       int        `json:"created"`
	Updated       int        `json:"updated"`
	Skipped       int        `json:"skipped"`
	ErrorMessage  string     `json:"error_message,omitempty"`

	// Real-time progress, polled by the UI.
	CurrentPhase     string    `json:"current_phase"`
	TotalToProcess   int       `json:"total_to_process"`
	ProcessedCount   int       `json:"processed_count"`
	CurrentOperation string    `json:"current_operation"`
	LastProgressAt   time.Time `json:"last_progress_update"`
}

// Email share delivery states.
const (
	ShareStatusPending = "pending"
	ShareStatusSent    = "sent"
	ShareStatusFailed  = "failed"
)

// EmailShare records one per-client report emailed to a recipient.
type EmailShare struct {
	ID             int64      `json:"id"`
	ClientID       int64      `json:"client_id"`
	RecipientEmail string     `json:"recipient_email"`
	Subject        string     `json:"subject"`
	DateRangeStart time.Time  `json:"date_range_start"`
	DateRangeEnd   time.Time  `json:"date_range_end"`
	TotalReturns   int        `json:"total_returns_shared"`
	Status         string     `json:"share_status"`
	SentAt         *time.Time `json:"sent_at"`
	CreatedAt      time.Time  `json:"created_at"`
}
