package storage

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ReturnFilters defines filters for listing and exporting returns.
type ReturnFilters struct {
	ClientID  *int64     // Filter by client (nil = all)
	Status    string     // "pending", "processed" or empty for all
	Search    string     // Matches tracking number, return id, client name
	From      *time.Time // Return created_at lower bound
	To        *time.Time // Return created_at upper bound
	Limit     int        // Max results (0 = default 50)
	Offset    int        // Pagination offset
}

// ReturnSummary is the list-view projection of a return.
type ReturnSummary struct {
	ID             int64      `json:"id"`
	Status         string     `json:"status"`
	Processed      bool       `json:"processed"`
	CreatedAt      *time.Time `json:"created_at"`
	TrackingNumber string     `json:"tracking_number"`
	ClientName     string     `json:"client_name"`
	WarehouseName  string     `json:"warehouse_name"`
	OrderNumber    string     `json:"order_number"`
	CustomerName   string     `json:"customer_name"`
	ItemsCount     int        `json:"items_count"`
}

// ReturnListResult contains paginated return results.
type ReturnListResult struct {
	Returns    []ReturnSummary `json:"returns"`
	TotalCount int             `json:"total_count"`
	Limit      int             `json:"limit"`
	Offset     int             `json:"offset"`
}

// buildReturnFilterClauses renders WHERE predicates for the filters,
// starting placeholder numbering at start. Returns the predicates, the
// bound args, and the next placeholder index.
func (s *Storage) buildReturnFilterClauses(f ReturnFilters, start int) ([]string, []interface{}, int) {
	d := s.dialect
	var clauses []string
	var args []interface{}
	n := start

	if f.ClientID != nil {
		clauses = append(clauses, fmt.Sprintf("r.client_id = %s", d.Placeholder(n)))
		args = append(args, *f.ClientID)
		n++
	}
	switch f.Status {
	case "pending":
		clauses = append(clauses, "r.processed = FALSE")
	case "processed":
		clauses = append(clauses, "r.processed = TRUE")
	}
	if f.Search != "" {
		pattern := "%" + strings.TrimSpace(f.Search) + "%"
		clauses = append(clauses, fmt.Sprintf(
			"(r.tracking_number LIKE %s OR CAST(r.id AS TEXT) LIKE %s OR c.name LIKE %s)",
			d.Placeholder(n), d.Placeholder(n+1), d.Placeholder(n+2)))
		args = append(args, pattern, pattern, pattern)
		n += 3
	}
	if f.From != nil {
		clauses = append(clauses, fmt.Sprintf("r.created_at >= %s", d.Placeholder(n)))
		args = append(args, *f.From)
		n++
	}
	if f.To != nil {
		clauses = append(clauses, fmt.Sprintf("r.created_at <= %s", d.Placeholder(n)))
		args = append(args, *f.To)
		n++
	}
	return clauses, args, n
}

const returnSummarySelect = `
	SELECT r.id, r.status, r.processed, r.created_at, r.tracking_number,
	       COALESCE(c.name, ''), COALESCE(w.name, ''),
	       COALESCE(o.order_number, ''), COALESCE(o.customer_name, ''),
	       (SELECT COUNT(*) FROM return_items ri WHERE ri.return_id = r.id)
	FROM returns r
	LEFT JOIN clients c ON r.client_id = c.id
	LEFT JOIN warehouses w ON r.warehouse_id = w.id
	LEFT JOIN orders o ON r.order_id = o.id`

// ListReturns returns paginated return summaries matching the filters.
func (s *Storage) ListReturns(f ReturnFilters) (*ReturnListResult, error) {
	if f.Limit <= 0 {
		f.Limit = 50
	}

	clauses, args, _ := s.buildReturnFilterClauses(f, 1)
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	countQuery := `SELECT COUNT(*) FROM returns r
	LEFT JOIN clients c ON r.client_id = c.id` + where
	var total int
	if err := s.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, err
	}

	query := returnSummarySelect + where +
		" ORDER BY r.created_at DESC " + s.dialect.LimitClause(f.Limit, f.Offset)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := &ReturnListResult{
		Returns:    make([]ReturnSummary, 0),
		TotalCount: total,
		Limit:      f.Limit,
		Offset:     f.Offset,
	}
	for rows.Next() {
		summary, err := scanReturnSummary(rows)
		if err != nil {
			return nil, err
		}
		result.Returns = append(result.Returns, summary)
	}
	return result, rows.Err()
}

func scanReturnSummary(rows *sql.Rows) (ReturnSummary, error) {
	var summary ReturnSummary
	var createdAt sql.NullTime
	var tracking sql.NullString
	var status sql.NullString
	err := rows.Scan(
		&summary.ID, &status, &summary.Processed, &createdAt, &tracking,
		&summary.ClientName, &summary.WarehouseName,
		&summary.OrderNumber, &summary.CustomerName,
		&summary.ItemsCount,
	)
	if err != nil {
		return summary, err
	}
	summary.Status = status.String
	summary.TrackingNumber = tracking.String
	if createdAt.Valid {
		summary.CreatedAt = &createdAt.Time
	}
	return summary, nil
}

// ReturnsByIDs fetches summaries for an explicit id set. An empty set
// returns no rows and issues a match-nothing predicate.
func (s *Storage) ReturnsByIDs(ids []int64) ([]ReturnSummary, error) {
	query := returnSummarySelect +
		" WHERE " + s.dialect.InClause("r.id", 1, len(ids)) +
		" ORDER BY r.created_at DESC"

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	summaries := make([]ReturnSummary, 0)
	for rows.Next() {
		summary, err := scanReturnSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// ReturnItemDetail is a return item joined with its product.
type ReturnItemDetail struct {
	ReturnItem
	SKU         string `json:"sku"`
	ProductName string `json:"product_name"`
}

// ReturnDetail is the single-return projection with its items.
type ReturnDetail struct {
	Return
	ClientName    string             `json:"client_name"`
	WarehouseName string             `json:"warehouse_name"`
	OrderNumber   string             `json:"order_number"`
	CustomerName  string             `json:"customer_name"`
	Items         []ReturnItemDetail `json:"items"`
	// ItemsNote explains proxy rows so the UI can label them honestly.
	ItemsNote string `json:"items_note,omitempty"`
}

// GetReturnDetail fetches a return with its items, or nil when absent.
func (s *Storage) GetReturnDetail(id int64) (*ReturnDetail, error) {
	d := s.dialect
	query := fmt.Sprintf(`
	SELECT r.id, COALESCE(r.api_id, ''), COALESCE(r.paid_by, ''), COALESCE(r.status, ''),
	       r.created_at, r.updated_at, r.processed, r.processed_at,
	       COALESCE(r.warehouse_note, ''), COALESCE(r.customer_note, ''),
	       COALESCE(r.tracking_number, ''), COALESCE(r.tracking_url, ''),
	       COALESCE(r.carrier, ''), COALESCE(r.service, ''),
	       r.label_cost, COALESCE(r.label_pdf_url, ''), COALESCE(r.rma_slip_url, ''), r.label_voided,
	       r.client_id, r.warehouse_id, r.order_id, r.return_integration_id,
	       COALESCE(c.name, ''), COALESCE(w.name, ''),
	       COALESCE(o.order_number, ''), COALESCE(o.customer_name, '')
	FROM returns r
	LEFT JOIN clients c ON r.client_id = c.id
	LEFT JOIN warehouses w ON r.warehouse_id = w.id
	LEFT JOIN orders o ON r.order_id = o.id
	WHERE r.id = %s`, d.Placeholder(1))

	detail := &ReturnDetail{}
	var createdAt, updatedAt, processedAt sql.NullTime
	err := s.db.QueryRow(query, id).Scan(
		&detail.ID, &detail.APIID, &detail.PaidBy, &detail.Status,
		&createdAt, &updatedAt, &detail.Processed, &processedAt,
		&detail.WarehouseNote, &detail.CustomerNote,
		&detail.TrackingNumber, &detail.TrackingURL,
		&detail.Carrier, &detail.Service,
		&detail.LabelCost, &detail.LabelPDFURL, &detail.RMASlipURL, &detail.LabelVoided,
		&detail.ClientID, &detail.WarehouseID, &detail.OrderID, &detail.IntegrationID,
		&detail.ClientName, &detail.WarehouseName,
		&detail.OrderNumber, &detail.CustomerName,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		detail.CreatedAt = &createdAt.Time
	}
	if updatedAt.Valid {
		detail.UpdatedAt = &updatedAt.Time
	}
	if processedAt.Valid {
		detail.ProcessedAt = &processedAt.Time
	}

	items, err := s.ReturnItems(id)
	if err != nil {
		return nil, err
	}
	detail.Items = items
	for _, item := range items {
		if item.IsProxy {
			detail.ItemsNote = "Showing original order items (return-specific quantities not available from API)"
			break
		}
	}
	return detail, nil
}

// ReturnItems fetches the items of a return joined with product data.
func (s *Storage) ReturnItems(returnID int64) ([]ReturnItemDetail, error) {
	d := s.dialect
	query := fmt.Sprintf(`
	SELECT ri.id, ri.return_id, ri.product_id, ri.quantity, ri.quantity_ordered,
	       ri.quantity_received, ri.quantity_rejected,
	       ri.return_reasons, ri.condition_on_arrival, ri.is_proxy,
	       COALESCE(p.sku, ''), COALESCE(p.name, '')
	FROM return_items ri
	LEFT JOIN products p ON ri.product_id = p.id
	WHERE ri.return_id = %s
	ORDER BY ri.id`, d.Placeholder(1))

	rows, err := s.db.Query(query, returnID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]ReturnItemDetail, 0)
	for rows.Next() {
		var item ReturnItemDetail
		err := rows.Scan(
			&item.ID, &item.ReturnID, &item.ProductID, &item.Quantity, &item.QuantityOrdered,
			&item.QuantityReceived, &item.QuantityRejected,
			&item.ReturnReasons, &item.ConditionOnArrival, &item.IsProxy,
			&item.SKU, &item.ProductName,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// OrderItems fetches the stored line items of an order, used as the
// proxy fallback when a return's own item list is missing.
func (s *Storage) OrderItems(orderID int64) ([]OrderItem, error) {
	d := s.dialect
	query := fmt.Sprintf(`
	SELECT id, order_id, product_id, COALESCE(sku, ''), COALESCE(name, ''),
	       quantity, quantity_shipped, unit_price, bundle_order_item_id
	FROM order_items WHERE order_id = %s ORDER BY id`, d.Placeholder(1))

	rows, err := s.db.Query(query, orderID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := make([]OrderItem, 0)
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(
			&item.ID, &item.OrderID, &item.ProductID, &item.SKU, &item.Name,
			&item.Quantity, &item.QuantityShipped, &item.UnitPrice, &item.BundleOrderItemID,
		)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// GetOrder fetches a stored order by id, or nil when absent.
func (s *Storage) GetOrder(id int64) (*Order, error) {
	d := s.dialect
	query := fmt.Sprintf(`
	SELECT id, order_number, COALESCE(customer_name, ''), created_at, updated_at
	FROM orders WHERE id = %s`, d.Placeholder(1))

	var o Order
	var createdAt, updatedAt sql.NullTime
	err := s.db.QueryRow(query, id).Scan(&o.ID, &o.OrderNumber, &o.CustomerName, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if createdAt.Valid {
		o.CreatedAt = &createdAt.Time
	}
	if updatedAt.Valid {
		o.UpdatedAt = &updatedAt.Time
	}
	return &o, nil
}

// ListClients returns all clients ordered by name.
func (s *Storage) ListClients() ([]Client, error) {
	rows, err := s.db.Query(`SELECT id, name FROM clients ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	clients := make([]Client, 0)
	for rows.Next() {
		var c Client
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// ListWarehouses returns all warehouses ordered by name.
func (s *Storage) ListWarehouses() ([]Warehouse, error) {
	rows, err := s.db.Query(`SELECT id, name FROM warehouses ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	warehouses := make([]Warehouse, 0)
	for rows.Next() {
		var w Warehouse
		if err := rows.Scan(&w.ID, &w.Name); err != nil {
			return nil, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, rows.Err()
}

// DashboardStats aggregates the headline numbers for the dashboard.
type DashboardStats struct {
	TotalReturns     int        `json:"total_returns"`
	ProcessedReturns int        `json:"processed_returns"`
	PendingReturns   int        `json:"pending_returns"`
	TotalClients     int        `json:"total_clients"`
	TotalWarehouses  int        `json:"total_warehouses"`
	TotalItems       int        `json:"total_items"`
	LastSyncAt       *time.Time `json:"last_sync_at"`
}

// GetDashboardStats computes the dashboard aggregates.
func (s *Storage) GetDashboardStats() (*DashboardStats, error) {
	stats := &DashboardStats{}

	query := `
	SELECT
		(SELECT COUNT(*) FROM returns),
		(SELECT COUNT(*) FROM returns WHERE processed = TRUE),
		(SELECT COUNT(*) FROM returns WHERE processed = FALSE),
		(SELECT COUNT(*) FROM clients),
		(SELECT COUNT(*) FROM warehouses),
		(SELECT COUNT(*) FROM return_items)`

	err := s.db.QueryRow(query).Scan(
		&stats.TotalReturns, &stats.ProcessedReturns, &stats.PendingReturns,
		&stats.TotalClients, &stats.TotalWarehouses, &stats.TotalItems,
	)
	if err != nil {
		return nil, err
	}

	var lastSync sql.NullTime
	err = s.db.QueryRow(
		`SELECT MAX(completed_at) FROM sync_logs WHERE status = 'completed'`,
	).Scan(&lastSync)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if lastSync.Valid {
		stats.LastSyncAt = &lastSync.Time
	}

	return stats, nil
}

// ReasonCount is one return-reason frequency bucket.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// ReturnReasonStats counts individual reason tags across real (non-proxy)
// return items. Tags are counted per occurrence; duplicates within one
// item each count.
func (s *Storage) ReturnReasonStats(limit int) ([]ReasonCount, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.Query(
		`SELECT return_reasons FROM return_items
		 WHERE is_proxy = FALSE AND return_reasons IS NOT NULL AND return_reasons != '[]'`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	counts := make(map[string]int)
	for rows.Next() {
		var reasons StringList
		if err := rows.Scan(&reasons); err != nil {
			return nil, err
		}
		for _, reason := range reasons {
			counts[reason]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := make([]ReasonCount, 0, len(counts))
	for reason, count := range counts {
		result = append(result, ReasonCount{Reason: reason, Count: count})
	}
	// Highest count first; tie-break on the label for stable output.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Reason < result[j].Reason
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// ProductReturnCount is one top-returned-product bucket.
type ProductReturnCount struct {
	ProductID   int64  `json:"product_id"`
	SKU         string `json:"sku"`
	Name        string `json:"name"`
	ReturnCount int    `json:"return_count"`
	TotalQty    int    `json:"total_quantity"`
}

// TopReturnedProducts ranks products by how often they appear on real
// return items.
func (s *Storage) TopReturnedProducts(limit int) ([]ProductReturnCount, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `
	SELECT p.id, p.sku, p.name, COUNT(*) AS return_count, COALESCE(SUM(ri.quantity), 0) AS total_qty
	FROM return_items ri
	JOIN products p ON ri.product_id = p.id
	WHERE ri.is_proxy = FALSE
	GROUP BY p.id, p.sku, p.name
	ORDER BY return_count DESC, total_qty DESC ` + s.dialect.LimitClause(limit, 0)

	rows, err := s.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]ProductReturnCount, 0)
	for rows.Next() {
		var pc ProductReturnCount
		if err := rows.Scan(&pc.ProductID, &pc.SKU, &pc.Name, &pc.ReturnCount, &pc.TotalQty); err != nil {
			return nil, err
		}
		result = append(result, pc)
	}
	return result, rows.Err()
}

// ExportRow is one flattened line for tabular export: return, line
// item, product, and order data joined so the exporter needs no
// further lookups.
type ExportRow struct {
	ReturnID      int64
	ClientName    string
	CustomerName  string
	OrderDate     *time.Time
	ReturnDate    *time.Time
	OrderNumber   string
	ItemName      string
	SKU           string
	OrderQty      int
	ReturnQty     int
	ReturnReasons StringList
	IsProxy       bool
	// HasItem is false when the return has no item rows at all; the
	// exporter emits a placeholder line in that case.
	HasItem bool
}

// ExportRows flattens returns matching the filters into one row per
// line item. Returns without any items yield a single row with
// HasItem=false.
func (s *Storage) ExportRows(f ReturnFilters) ([]ExportRow, error) {
	clauses, args, _ := s.buildReturnFilterClauses(f, 1)
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	// Proxy return items keep the id of the order item they stand in
	// for, so the oi join resolves at most one row per item and never
	// duplicates lines.
	query := `
	SELECT r.id, COALESCE(c.name, ''), COALESCE(o.customer_name, ''),
	       o.created_at, r.created_at, COALESCE(o.order_number, ''),
	       ri.id, COALESCE(p.name, oi.name, ''), COALESCE(p.sku, oi.sku, ''),
	       ri.quantity_ordered, ri.quantity, ri.return_reasons, ri.is_proxy
	FROM returns r
	LEFT JOIN clients c ON r.client_id = c.id
	LEFT JOIN orders o ON r.order_id = o.id
	LEFT JOIN return_items ri ON ri.return_id = r.id
	LEFT JOIN products p ON ri.product_id = p.id
	LEFT JOIN order_items oi ON ri.is_proxy = TRUE AND oi.id = ri.id AND oi.order_id = r.order_id` +
		where + " ORDER BY r.created_at DESC, ri.id"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make([]ExportRow, 0)
	for rows.Next() {
		var row ExportRow
		var orderDate, returnDate sql.NullTime
		var itemID sql.NullInt64
		var itemName, sku sql.NullString
		var orderQty, returnQty sql.NullInt64
		var isProxy sql.NullBool
		err := rows.Scan(
			&row.ReturnID, &row.ClientName, &row.CustomerName,
			&orderDate, &returnDate, &row.OrderNumber,
			&itemID, &itemName, &sku,
			&orderQty, &returnQty, &row.ReturnReasons, &isProxy,
		)
		if err != nil {
			return nil, err
		}
		if orderDate.Valid {
			row.OrderDate = &orderDate.Time
		}
		if returnDate.Valid {
			row.ReturnDate = &returnDate.Time
		}
		if itemID.Valid {
			row.HasItem = true
			row.ItemName = itemName.String
			row.SKU = sku.String
			row.OrderQty = int(orderQty.Int64)
			row.ReturnQty = int(returnQty.Int64)
			row.IsProxy = isProxy.Bool
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
