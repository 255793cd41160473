package export

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

func sampleRows() []storage.ExportRow {
	orderDate := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	returnDate := orderDate.Add(48 * time.Hour)
	return []storage.ExportRow{
		{
			ReturnID: 501, ClientName: "Acme", CustomerName: "Jane Smith",
			OrderDate: &orderDate, ReturnDate: &returnDate, OrderNumber: "ORD-1",
			ItemName: "Widget", SKU: "SKU-1", OrderQty: 2, ReturnQty: 1,
			ReturnReasons: storage.StringList{"damaged", "opened"}, HasItem: true,
		},
		{
			ReturnID: 501, ClientName: "Acme", CustomerName: "Jane Smith",
			ReturnDate: &returnDate, OrderNumber: "ORD-1",
			ItemName: "Bundle Part", OrderQty: 0, ReturnQty: 1,
			IsProxy: true, HasItem: true,
		},
		{
			ReturnID: 502, ClientName: "Acme", ReturnDate: &returnDate,
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleRows()))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{
		"Acme", "Jane Smith", "2025-06-01", "2025-06-03", "ORD-1",
		"Widget", "2", "1", "damaged, opened",
	}, records[1])

	// Proxy rows carry the from-order label and an honest reasons note.
	assert.Equal(t, "Bundle Part (from order)", records[2][5])
	assert.Equal(t, "Original order item (return details unavailable)", records[2][8])

	// Itemless returns still appear with a placeholder row.
	assert.Equal(t, "No items found", records[3][5])
	assert.Equal(t, "No return items in database", records[3][8])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	records, err := csv.NewReader(strings.NewReader(buf.String())).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, Header, records[0])
}

func TestWriteXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleRows()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	rows, err := f.GetRows("Returns")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, Header, rows[0])
	assert.Equal(t, "Widget", rows[1][5])
	assert.Equal(t, "Bundle Part (from order)", rows[2][5])
}
