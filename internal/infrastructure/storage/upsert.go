package storage

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertResult reports whether an upsert inserted a new row or updated
// an existing one.
type UpsertResult int

const (
	// Created means the entity was seen for the first time.
	Created UpsertResult = iota
	// Updated means an existing row matched the external id.
	Updated
)

func (r UpsertResult) String() string {
	if r == Created {
		return "created"
	}
	return "updated"
}

// withTx runs fn inside a transaction. Each upsert is its own atomic
// unit so the existence-check-then-write never races with a concurrent
// writer on the same external id.
func (s *Storage) withTx(fn func(*sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *Storage) rowExists(tx *sql.Tx, table string, id int64) (bool, error) {
	var n int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id = %s", table, s.dialect.Placeholder(1))
	if err := tx.QueryRow(query, id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertClient inserts or updates a client keyed by external id.
func (s *Storage) UpsertClient(c Client) (UpsertResult, error) {
	return s.upsertNamed("clients", c.ID, c.Name)
}

// UpsertWarehouse inserts or updates a warehouse keyed by external id.
func (s *Storage) UpsertWarehouse(w Warehouse) (UpsertResult, error) {
	return s.upsertNamed("warehouses", w.ID, w.Name)
}

// upsertNamed handles the id+name entities (clients, warehouses).
func (s *Storage) upsertNamed(table string, id int64, name string) (UpsertResult, error) {
	d := s.dialect
	result := Updated
	err := s.withTx(func(tx *sql.Tx) error {
		exists, err := s.rowExists(tx, table, id)
		if err != nil {
			return err
		}
		if !exists {
			result = Created
			query := fmt.Sprintf("INSERT INTO %s (id, name) VALUES (%s, %s)",
				table, d.Placeholder(1), d.Placeholder(2))
			_, err = tx.Exec(query, id, name)
			return err
		}
		query := fmt.Sprintf("UPDATE %s SET name = %s, updated_at = %s WHERE id = %s",
			table, d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
		_, err = tx.Exec(query, name, time.Now().UTC(), id)
		return err
	})
	return result, err
}

// UpsertStore inserts or updates a sales-channel store.
func (s *Storage) UpsertStore(st Store) (UpsertResult, error) {
	d := s.dialect
	result := Updated
	err := s.withTx(func(tx *sql.Tx) error {
		exists, err := s.rowExists(tx, "stores", st.ID)
		if err != nil {
			return err
		}
		if !exists {
			result = Created
			query := fmt.Sprintf("INSERT INTO stores (id, name) VALUES (%s, %s)",
				d.Placeholder(1), d.Placeholder(2))
			_, err = tx.Exec(query, st.ID, st.Name)
			return err
		}
		query := fmt.Sprintf("UPDATE stores SET name = %s WHERE id = %s",
			d.Placeholder(1), d.Placeholder(2))
		_, err = tx.Exec(query, st.Name, st.ID)
		return err
	})
	return result, err
}

// UpsertIntegration inserts or updates a return integration.
func (s *Storage) UpsertIntegration(ri ReturnIntegration) (UpsertResult, error) {
	d := s.dialect
	result := Updated
	err := s.withTx(func(tx *sql.Tx) error {
		exists, err := s.rowExists(tx, "return_integrations", ri.ID)
		if err != nil {
			return err
		}
		if !exists {
			result = Created
			query := fmt.Sprintf(
				"INSERT INTO return_integrations (id, name, return_integration_type, store_id) VALUES (%s)",
				d.Placeholders(1, 4))
			_, err = tx.Exec(query, ri.ID, ri.Name, ri.Type, ri.StoreID)
			return err
		}
		query := fmt.Sprintf(
			"UPDATE return_integrations SET name = %s, return_integration_type = %s, store_id = %s WHERE id = %s",
			d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
		_, err = tx.Exec(query, ri.Name, ri.Type, ri.StoreID, ri.ID)
		return err
	})
	return result, err
}

// UpsertOrder inserts or updates an order keyed by external id.
func (s *Storage) UpsertOrder(o Order) (UpsertResult, error) {
	d := s.dialect
	result := Updated
	err := s.withTx(func(tx *sql.Tx) error {
		exists, err := s.rowExists(tx, "orders", o.ID)
		if err != nil {
			return err
		}
		if !exists {
			result = Created
			query := fmt.Sprintf(
				"INSERT INTO orders (id, order_number, customer_name, created_at, updated_at) VALUES (%s)",
				d.Placeholders(1, 5))
			_, err = tx.Exec(query, o.ID, o.OrderNumber, o.CustomerName, o.CreatedAt, o.UpdatedAt)
			return err
		}
		query := fmt.Sprintf(
			"UPDATE orders SET order_number = %s, customer_name = %s, created_at = %s, updated_at = %s WHERE id = %s",
			d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5))
		_, err = tx.Exec(query, o.OrderNumber, o.CustomerName, o.CreatedAt, o.UpdatedAt, o.ID)
		return err
	})
	return result, err
}

// ReplaceOrderItems replaces the full item list of an order.
func (s *Storage) ReplaceOrderItems(orderID int64, items []OrderItem) error {
	d := s.dialect
	return s.withTx(func(tx *sql.Tx) error {
		query := fmt.Sprintf("DELETE FROM order_items WHERE order_id = %s", d.Placeholder(1))
		if _, err := tx.Exec(query, orderID); err != nil {
			return err
		}
		insert := fmt.Sprintf(`INSERT INTO order_items
			(id, order_id, product_id, sku, name, quantity, quantity_shipped, unit_price, bundle_order_item_id)
			VALUES (%s)`, d.Placeholders(1, 9))
		for _, item := range items {
			_, err := tx.Exec(insert,
				item.ID, orderID, item.ProductID, item.SKU, item.Name,
				item.Quantity, item.QuantityShipped, item.UnitPrice, item.BundleOrderItemID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// UpsertProduct inserts or updates a product. SKU is unique: a product
// arriving under a new external id but a known SKU updates the existing
// row (last-write-wins on the name) instead of violating the SKU
// constraint. The returned id is the id of the stored row, which is
// what return items must reference.
func (s *Storage) UpsertProduct(p Product) (int64, UpsertResult, error) {
	d := s.dialect
	storedID := p.ID
	result := Updated
	err := s.withTx(func(tx *sql.Tx) error {
		exists, err := s.rowExists(tx, "products", p.ID)
		if err != nil {
			return err
		}
		if exists {
			query := fmt.Sprintf("UPDATE products SET sku = %s, name = %s, updated_at = %s WHERE id = %s",
				d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4))
			_, err = tx.Exec(query, p.SKU, p.Name, time.Now().UTC(), p.ID)
			return err
		}

		// No row under this id; a row may still hold the SKU.
		var skuID int64
		query := fmt.Sprintf("SELECT id FROM products WHERE sku = %s", d.Placeholder(1))
		err = tx.QueryRow(query, p.SKU).Scan(&skuID)
		switch {
		case err == sql.ErrNoRows:
			result = Created
			insert := fmt.Sprintf("INSERT INTO products (id, sku, name) VALUES (%s)", d.Placeholders(1, 3))
			_, err = tx.Exec(insert, p.ID, p.SKU, p.Name)
			return err
		case err != nil:
			return err
		default:
			storedID = skuID
			update := fmt.Sprintf("UPDATE products SET name = %s, updated_at = %s WHERE id = %s",
				d.Placeholder(1), d.Placeholder(2), d.Placeholder(3))
			_, err = tx.Exec(update, p.Name, time.Now().UTC(), skuID)
			return err
		}
	})
	return storedID, result, err
}

// UpsertReturn inserts or updates a return keyed by external id.
func (s *Storage) UpsertReturn(r Return) (UpsertResult, error) {
	d := s.dialect
	now := time.Now().UTC()
	result := Updated
	err := s.withTx(func(tx *sql.Tx) error {
		exists, err := s.rowExists(tx, "returns", r.ID)
		if err != nil {
			return err
		}
		if !exists {
			result = Created
			query := fmt.Sprintf(`INSERT INTO returns
				(id, api_id, paid_by, status, created_at, updated_at, processed, processed_at,
				 warehouse_note, customer_note, tracking_number, tracking_url, carrier, service,
				 label_cost, label_pdf_url, rma_slip_url, label_voided,
				 client_id, warehouse_id, order_id, return_integration_id,
				 first_synced_at, last_synced_at)
				VALUES (%s)`, d.Placeholders(1, 24))
			_, err = tx.Exec(query,
				r.ID, r.APIID, r.PaidBy, r.Status, r.CreatedAt, r.UpdatedAt, r.Processed, r.ProcessedAt,
				r.WarehouseNote, r.CustomerNote, r.TrackingNumber, r.TrackingURL, r.Carrier, r.Service,
				r.LabelCost, r.LabelPDFURL, r.RMASlipURL, r.LabelVoided,
				r.ClientID, r.WarehouseID, r.OrderID, r.IntegrationID,
				now, now)
			return err
		}
		query := fmt.Sprintf(`UPDATE returns SET
			api_id = %s, paid_by = %s, status = %s, created_at = %s, updated_at = %s,
			processed = %s, processed_at = %s, warehouse_note = %s, customer_note = %s,
			tracking_number = %s, tracking_url = %s, carrier = %s, service = %s,
			label_cost = %s, label_pdf_url = %s, rma_slip_url = %s, label_voided = %s,
			client_id = %s, warehouse_id = %s, order_id = %s, return_integration_id = %s,
			last_synced_at = %s
			WHERE id = %s`,
			d.Placeholder(1), d.Placeholder(2), d.Placeholder(3), d.Placeholder(4), d.Placeholder(5),
			d.Placeholder(6), d.Placeholder(7), d.Placeholder(8), d.Placeholder(9),
			d.Placeholder(10), d.Placeholder(11), d.Placeholder(12), d.Placeholder(13),
			d.Placeholder(14), d.Placeholder(15), d.Placeholder(16), d.Placeholder(17),
			d.Placeholder(18), d.Placeholder(19), d.Placeholder(20), d.Placeholder(21),
			d.Placeholder(22), d.Placeholder(23))
		_, err = tx.Exec(query,
			r.APIID, r.PaidBy, r.Status, r.CreatedAt, r.UpdatedAt,
			r.Processed, r.ProcessedAt, r.WarehouseNote, r.CustomerNote,
			r.TrackingNumber, r.TrackingURL, r.Carrier, r.Service,
			r.LabelCost, r.LabelPDFURL, r.RMASlipURL, r.LabelVoided,
			r.ClientID, r.WarehouseID, r.OrderID, r.IntegrationID,
			now, r.ID)
		return err
	})
	return result, err
}

// ReplaceReturnItems replaces the full item list of a return so each
// resync reflects the source's current list.
func (s *Storage) ReplaceReturnItems(returnID int64, items []ReturnItem) error {
	d := s.dialect
	return s.withTx(func(tx *sql.Tx) error {
		query := fmt.Sprintf("DELETE FROM return_items WHERE return_id = %s", d.Placeholder(1))
		if _, err := tx.Exec(query, returnID); err != nil {
			return err
		}
		insert := fmt.Sprintf(`INSERT INTO return_items
			(id, return_id, product_id, quantity, quantity_ordered, quantity_received,
			 quantity_rejected, return_reasons, condition_on_arrival, is_proxy)
			VALUES (%s)`, d.Placeholders(1, 10))
		for _, item := range items {
			_, err := tx.Exec(insert,
				item.ID, returnID, item.ProductID, item.Quantity, item.QuantityOrdered,
				item.QuantityReceived, item.QuantityRejected,
				item.ReturnReasons, item.ConditionOnArrival, item.IsProxy)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteReturn removes a return and cascades to its items.
func (s *Storage) DeleteReturn(id int64) error {
	query := fmt.Sprintf("DELETE FROM returns WHERE id = %s", s.dialect.Placeholder(1))
	_, err := s.db.Exec(query, id)
	return err
}
