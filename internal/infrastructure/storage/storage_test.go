package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open("sqlite3", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func timePtr(v time.Time) *time.Time { return &v }

func int64Ptr(v int64) *int64 { return &v }

// seedReturn inserts a client, warehouse, order and return so query
// tests have a fully linked row to work with.
func seedReturn(t *testing.T, s *Storage, returnID, clientID int64, processed bool) {
	t.Helper()

	_, err := s.UpsertClient(Client{ID: clientID, Name: "Client " + string(rune('A'+clientID))})
	require.NoError(t, err)
	_, err = s.UpsertWarehouse(Warehouse{ID: 10, Name: "Main Warehouse"})
	require.NoError(t, err)

	orderID := returnID + 1000
	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err = s.UpsertOrder(Order{
		ID:           orderID,
		OrderNumber:  "ORD-1001",
		CustomerName: "Jane Smith",
		CreatedAt:    timePtr(created),
	})
	require.NoError(t, err)

	status := "pending"
	if processed {
		status = "completed"
	}
	_, err = s.UpsertReturn(Return{
		ID:             returnID,
		Status:         status,
		Processed:      processed,
		CreatedAt:      timePtr(created.Add(48 * time.Hour)),
		TrackingNumber: "1Z999",
		ClientID:       int64Ptr(clientID),
		WarehouseID:    int64Ptr(10),
		OrderID:        int64Ptr(orderID),
	})
	require.NoError(t, err)
}
