package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/export"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// ExportsHandler handles report download requests.
type ExportsHandler struct {
	*Base
}

// NewExportsHandler creates a new exports handler.
func NewExportsHandler(store *storage.Storage) *ExportsHandler {
	return &ExportsHandler{Base: NewBase(store)}
}

// CSV handles GET /api/export/csv. The same filters as the returns
// list apply; limit and offset are ignored so exports are complete.
func (h *ExportsHandler) CSV(w http.ResponseWriter, r *http.Request) {
	rows, err := h.exportRows(r)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="returns_%s.csv"`, time.Now().UTC().Format("20060102")))
	_ = export.WriteCSV(w, rows)
}

// XLSX handles GET /api/export/xlsx.
func (h *ExportsHandler) XLSX(w http.ResponseWriter, r *http.Request) {
	rows, err := h.exportRows(r)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="returns_%s.xlsx"`, time.Now().UTC().Format("20060102")))
	_ = export.WriteXLSX(w, rows)
}

func (h *ExportsHandler) exportRows(r *http.Request) ([]storage.ExportRow, error) {
	filters := returnFilters(r)
	filters.Limit = 0
	filters.Offset = 0
	return h.storage.ExportRows(filters)
}
