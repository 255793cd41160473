// Package sync pulls returns, orders and products from Warehance and
// reconciles them into local storage.
package sync

import (
	"strings"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/warehance"
)

// NormalizeReturn converts a raw API return into its storage row.
// Embedded references are reduced to foreign keys; the caller upserts
// the referenced entities first.
func NormalizeReturn(rec warehance.ReturnRecord) storage.Return {
	ret := storage.Return{
		ID:             rec.ID,
		APIID:          rec.APIID,
		PaidBy:         rec.PaidBy,
		Status:         rec.Status,
		CreatedAt:      rec.CreatedAt.Ptr(),
		UpdatedAt:      rec.UpdatedAt.Ptr(),
		Processed:      rec.Processed,
		ProcessedAt:    rec.ProcessedAt.Ptr(),
		WarehouseNote:  rec.WarehouseNote,
		CustomerNote:   rec.CustomerNote,
		TrackingNumber: rec.TrackingNumber,
		TrackingURL:    rec.TrackingURL,
		Carrier:        rec.Carrier,
		Service:        rec.Service,
		LabelCost:      rec.LabelCost,
		LabelPDFURL:    rec.LabelPDFURL,
		RMASlipURL:     rec.RMASlipURL,
		LabelVoided:    rec.LabelVoided,
		OrderID:        rec.OrderID,
	}
	if rec.Client != nil {
		ret.ClientID = &rec.Client.ID
	}
	if rec.Warehouse != nil {
		ret.WarehouseID = &rec.Warehouse.ID
	}
	if rec.Integration != nil {
		ret.IntegrationID = &rec.Integration.ID
	}
	return ret
}

// NormalizeOrder converts a raw API order into its storage row. The
// customer name is flattened out of the ship-to address here so the
// rest of the system never touches the address payload.
func NormalizeOrder(rec warehance.OrderRecord) storage.Order {
	return storage.Order{
		ID:           rec.ID,
		OrderNumber:  rec.OrderNumber,
		CustomerName: rec.ShipToAddress.CustomerName(),
		CreatedAt:    rec.CreatedAt.Ptr(),
		UpdatedAt:    rec.UpdatedAt.Ptr(),
	}
}

// NormalizeOrderItems converts an order's raw line items.
func NormalizeOrderItems(orderID int64, recs []warehance.OrderItemRecord) []storage.OrderItem {
	items := make([]storage.OrderItem, 0, len(recs))
	for _, rec := range recs {
		item := storage.OrderItem{
			ID:                rec.ID,
			OrderID:           orderID,
			SKU:               rec.SKU,
			Name:              rec.Name,
			Quantity:          rec.Quantity,
			QuantityShipped:   rec.QuantityShipped,
			UnitPrice:         rec.UnitPrice,
			BundleOrderItemID: rec.BundleOrderItemID,
		}
		if rec.Product != nil {
			if item.SKU == "" {
				item.SKU = rec.Product.SKU
			}
			if item.Name == "" {
				item.Name = rec.Product.Name
			}
			// Only link products the catalog can hold: a product
			// without a SKU cannot be upserted there.
			if rec.Product.SKU != "" {
				id := rec.Product.ID
				item.ProductID = &id
			}
		}
		items = append(items, item)
	}
	return items
}

// displayQuantity picks the quantity shown for an order line item when
// it stands in for a return item. Shipped count wins over ordered
// count; a zero-quantity bundle component displays as one unit.
func displayQuantity(item storage.OrderItem) int {
	qty := item.Quantity
	if item.QuantityShipped > 0 {
		qty = item.QuantityShipped
	}
	if qty == 0 && item.BundleOrderItemID != nil {
		qty = 1
	}
	return qty
}

// ProxyItemsFromOrder builds substitute return items from an order's
// stored line items, used when the API delivers a return with no item
// list. Nameless rows are dropped; the rest carry the display-quantity
// rule and are flagged as proxies.
func ProxyItemsFromOrder(returnID int64, orderItems []storage.OrderItem) []storage.ReturnItem {
	items := make([]storage.ReturnItem, 0, len(orderItems))
	for _, orderItem := range orderItems {
		if strings.TrimSpace(orderItem.Name) == "" {
			continue
		}
		items = append(items, storage.ReturnItem{
			ID:              orderItem.ID,
			ReturnID:        returnID,
			ProductID:       orderItem.ProductID,
			Quantity:        displayQuantity(orderItem),
			QuantityOrdered: orderItem.Quantity,
			IsProxy:         true,
		})
	}
	return items
}
