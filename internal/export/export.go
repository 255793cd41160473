// Package export renders returns as CSV and XLSX reports, one row per
// line item.
package export

import (
	"strings"
	"time"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// Header is the shared column layout of both export formats.
var Header = []string{
	"Client", "Customer Name", "Order Date", "Return Date",
	"Order Number", "Item Name", "Order Qty", "Return Qty",
	"Reason for Return",
}

const dateLayout = "2006-01-02"

func formatDate(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(dateLayout)
}

// itemName labels proxy rows so readers know the line came from the
// order, not from return-specific data.
func itemName(row storage.ExportRow) string {
	if !row.HasItem {
		return "No items found"
	}
	name := row.ItemName
	if name == "" {
		name = "Unknown Product"
	}
	if row.IsProxy {
		name += " (from order)"
	}
	return name
}

func reasons(row storage.ExportRow) string {
	if !row.HasItem {
		return "No return items in database"
	}
	if row.IsProxy {
		return "Original order item (return details unavailable)"
	}
	return strings.Join(row.ReturnReasons, ", ")
}
