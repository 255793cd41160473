package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/metrics"
)

// WriteCSV renders export rows to w. Returns with no items still get
// one placeholder row so they are visible in the report.
func WriteCSV(w io.Writer, rows []storage.ExportRow) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.ClientName,
			row.CustomerName,
			formatDate(row.OrderDate),
			formatDate(row.ReturnDate),
			row.OrderNumber,
			itemName(row),
			strconv.Itoa(row.OrderQty),
			strconv.Itoa(row.ReturnQty),
			reasons(row),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	metrics.ExportsGenerated.WithLabelValues("csv").Inc()
	return nil
}
