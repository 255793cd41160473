package warehance

import (
	"bytes"
	"strings"
	"time"
)

// Timestamp wraps time.Time to accept the handful of formats the API
// emits. Zero when the field was null, empty or unparseable.
type Timestamp struct {
	time.Time
}

var timestampFormats = []string{
	"2006-01-02T15:04:05.999999Z07:00",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	s := string(data)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, format := range timestampFormats {
		if parsed, err := time.Parse(format, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	// Unparseable dates are dropped rather than failing the record.
	t.Time = time.Time{}
	return nil
}

// Ptr returns the wrapped time or nil when zero.
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time
	return &v
}

// NamedRef is the id/name shape the API uses for embedded clients,
// warehouses and stores.
type NamedRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// IntegrationRef is the return-channel metadata embedded on a return.
type IntegrationRef struct {
	ID    int64     `json:"id"`
	Name  string    `json:"name"`
	Type  string    `json:"return_integration_type"`
	Store *NamedRef `json:"store"`
}

// ProductRef is the product shape embedded on line items.
type ProductRef struct {
	ID   int64  `json:"id"`
	SKU  string `json:"sku"`
	Name string `json:"name"`
}

// Address is the ship-to block on an order. Only the name parts are
// used; the rest of the payload is ignored.
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CustomerName joins the first and last name, tolerating either side
// being empty.
func (a *Address) CustomerName() string {
	if a == nil {
		return ""
	}
	return strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
}

// ReturnRecord is a raw return as the API delivers it, with its
// embedded references and line items.
type ReturnRecord struct {
	ID             int64      `json:"id"`
	APIID          string     `json:"api_id"`
	PaidBy         string     `json:"paid_by"`
	Status         string     `json:"status"`
	CreatedAt      Timestamp  `json:"created_at"`
	UpdatedAt      Timestamp  `json:"updated_at"`
	Processed      bool       `json:"processed"`
	ProcessedAt    Timestamp  `json:"processed_at"`
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

	Client      *NamedRef       `json:"client"`
	Warehouse   *NamedRef       `json:"warehouse"`
	Integration *IntegrationRef `json:"return_integration"`
	OrderID     *int64          `json:"order_id"`

	// Items is null for some integrations; the sync layer falls back
	// to the order's items in that case.
	Items []ReturnItemRecord `json:"items"`
}

// ReturnItemRecord is a raw return line item.
type ReturnItemRecord struct {
	ID                 int64       `json:"id"`
	Quantity           int         `json:"quantity"`
	QuantityReceived   int         `json:"quantity_received"`
	QuantityRejected   int         `json:"quantity_rejected"`
	ReturnReasons      []string    `json:"return_reasons"`
	ConditionOnArrival []string    `json:"condition_on_arrival"`
	Product            *ProductRef `json:"product"`
}

// OrderRecord is a raw order with its embedded line items.
type OrderRecord struct {
	ID            int64             `json:"id"`
	OrderNumber   string            `json:"order_number"`
	CreatedAt     Timestamp         `json:"created_at"`
	UpdatedAt     Timestamp         `json:"updated_at"`
	ShipToAddress *Address          `json:"ship_to_address"`
	Items         []OrderItemRecord `json:"order_items"`
}

// OrderItemRecord is a raw order line item. A zero Quantity with a
// bundle reference marks a bundle component.
type OrderItemRecord struct {
	ID                int64       `json:"id"`
	SKU               string      `json:"sku"`
	Name              string      `json:"name"`
	Quantity          int         `json:"quantity"`
	QuantityShipped   int         `json:"quantity_shipped"`
	UnitPrice         float64     `json:"unit_price"`
	BundleOrderItemID *int64      `json:"bundle_order_item_id"`
	Product           *ProductRef `json:"product"`
}

// ProductRecord is a raw catalog product.
type ProductRecord struct {
	ID        int64     `json:"id"`
	SKU       string    `json:"sku"`
	Name      string    `json:"name"`
	CreatedAt Timestamp `json:"created_at"`
	UpdatedAt Timestamp `json:"updated_at"`
}

// ReturnsPage is one page of the returns listing.
type ReturnsPage struct {
	Returns    []ReturnRecord
	TotalCount int
}

// OrdersPage is one page of the orders listing.
type OrdersPage struct {
	Orders     []OrderRecord
	TotalCount int
}

// ProductsPage is one page of the products listing.
type ProductsPage struct {
	Products   []ProductRecord
	TotalCount int
}
