package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/metrics"
)

// WriteXLSX renders export rows as a workbook with a single Returns
// sheet, using the same column layout as the CSV export.
func WriteXLSX(w io.Writer, rows []storage.ExportRow) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheetName := "Returns"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to remove default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range Header {
		cell := fmt.Sprintf("%c1", 'A'+i)
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return err
		}
	}

	for rowIdx, row := range rows {
		line := rowIdx + 2
		values := []interface{}{
			row.ClientName,
			row.CustomerName,
			formatDate(row.OrderDate),
			formatDate(row.ReturnDate),
			row.OrderNumber,
			itemName(row),
			row.OrderQty,
			row.ReturnQty,
			reasons(row),
		}
		for i, value := range values {
			cell := fmt.Sprintf("%c%d", 'A'+i, line)
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	for i := range Header {
		col := string(rune('A' + i))
		if err := f.SetColWidth(sheetName, col, col, 18); err != nil {
			return err
		}
	}

	f.SetActiveSheet(index)
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	metrics.ExportsGenerated.WithLabelValues("xlsx").Inc()
	return nil
}
