package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/uptimeops/warehance-returns-backend/internal/api/dto"
	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	storage *storage.Storage
}

// NewBase creates a new base handler with the given storage.
func NewBase(store *storage.Storage) *Base {
	return &Base{storage: store}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseInt64Param parses an int64 query parameter, returning nil when
// absent or malformed.
func ParseInt64Param(r *http.Request, name string) *int64 {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	parsed, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return nil
	}
	return &parsed
}

// ParseDateParam parses a YYYY-MM-DD query parameter, returning nil
// when absent or malformed.
func ParseDateParam(r *http.Request, name string) *time.Time {
	val := r.URL.Query().Get(name)
	if val == "" {
		return nil
	}
	parsed, err := time.Parse("2006-01-02", val)
	if err != nil {
		return nil
	}
	return &parsed
}

// returnFilters builds the shared filter set used by the list and
// export endpoints.
func returnFilters(r *http.Request) storage.ReturnFilters {
	return storage.ReturnFilters{
		ClientID: ParseInt64Param(r, "client_id"),
		Status:   r.URL.Query().Get("status"),
		Search:   r.URL.Query().Get("search"),
		From:     ParseDateParam(r, "date_from"),
		To:       ParseDateParam(r, "date_to"),
		Limit:    ParseIntParam(r, "limit", 50),
		Offset:   ParseIntParam(r, "offset", 0),
	}
}
