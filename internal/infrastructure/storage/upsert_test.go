package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertClient_CreateThenUpdate(t *testing.T) {
	s := newTestStorage(t)

	result, err := s.UpsertClient(Client{ID: 1, Name: "Acme"})
	require.NoError(t, err)
	assert.Equal(t, Created, result)

	result, err = s.UpsertClient(Client{ID: 1, Name: "Acme Corp"})
	require.NoError(t, err)
	assert.Equal(t, Updated, result)

	clients, err := s.ListClients()
	require.NoError(t, err)
	require.Len(t, clients, 1)
	assert.Equal(t, "Acme Corp", clients[0].Name)
}

func TestUpsertReturn_Idempotent(t *testing.T) {
	s := newTestStorage(t)
	seedReturn(t, s, 500, 1, false)

	// Re-syncing the same return updates in place, never duplicates.
	_, err := s.UpsertReturn(Return{
		ID:        500,
		Status:    "completed",
		Processed: true,
		ClientID:  int64Ptr(1),
	})
	require.NoError(t, err)

	result, err := s.ListReturns(ReturnFilters{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalCount)
	assert.True(t, result.Returns[0].Processed)
}

func TestUpsertProduct_SKUDedup(t *testing.T) {
	s := newTestStorage(t)

	id, result, err := s.UpsertProduct(Product{ID: 100, SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), id)
	assert.Equal(t, Created, result)

	// Same SKU under a different source id resolves to the stored row.
	id, result, err = s.UpsertProduct(Product{ID: 200, SKU: "SKU-1", Name: "Widget v2"})
	require.NoError(t, err)
	assert.Equal(t, int64(100), id)
	assert.Equal(t, Updated, result)

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM products`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	var name string
	err = s.db.QueryRow(`SELECT name FROM products WHERE id = 100`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", name)
}

func TestReplaceReturnItems(t *testing.T) {
	s := newTestStorage(t)
	seedReturn(t, s, 500, 1, false)

	_, _, err := s.UpsertProduct(Product{ID: 100, SKU: "SKU-1", Name: "Widget"})
	require.NoError(t, err)

	err = s.ReplaceReturnItems(500, []ReturnItem{
		{ID: 1, ReturnID: 500, ProductID: int64Ptr(100), Quantity: 2, QuantityOrdered: 2,
			ReturnReasons: StringList{"damaged", "damaged"}},
	})
	require.NoError(t, err)

	// A later sync replaces the full item set.
	err = s.ReplaceReturnItems(500, []ReturnItem{
		{ID: 2, ReturnID: 500, ProductID: int64Ptr(100), Quantity: 1, QuantityOrdered: 1,
			ReturnReasons: StringList{"wrong size"}},
	})
	require.NoError(t, err)

	items, err := s.ReturnItems(500)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
	assert.Equal(t, StringList{"wrong size"}, items[0].ReturnReasons)
	assert.Equal(t, "SKU-1", items[0].SKU)
}

func TestReturnItems_PreservesTagOrderAndDuplicates(t *testing.T) {
	s := newTestStorage(t)
	seedReturn(t, s, 500, 1, false)

	tags := StringList{"damaged", "opened", "damaged"}
	err := s.ReplaceReturnItems(500, []ReturnItem{
		{ID: 1, ReturnID: 500, Quantity: 1, QuantityOrdered: 1, ReturnReasons: tags},
	})
	require.NoError(t, err)

	items, err := s.ReturnItems(500)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, tags, items[0].ReturnReasons)
}

func TestDeleteReturn_CascadesItems(t *testing.T) {
	s := newTestStorage(t)
	seedReturn(t, s, 500, 1, false)

	err := s.ReplaceReturnItems(500, []ReturnItem{
		{ID: 1, ReturnID: 500, Quantity: 1, QuantityOrdered: 1},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteReturn(500))

	var count int
	err = s.db.QueryRow(`SELECT COUNT(*) FROM return_items WHERE return_id = 500`).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestReplaceOrderItems(t *testing.T) {
	s := newTestStorage(t)

	created := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	_, err := s.UpsertOrder(Order{ID: 9000, OrderNumber: "ORD-9", CreatedAt: timePtr(created)})
	require.NoError(t, err)

	err = s.ReplaceOrderItems(9000, []OrderItem{
		{ID: 1, OrderID: 9000, SKU: "SKU-A", Name: "Bundle", Quantity: 0,
			BundleOrderItemID: int64Ptr(77)},
		{ID: 2, OrderID: 9000, SKU: "SKU-B", Name: "Single", Quantity: 3},
	})
	require.NoError(t, err)

	items, err := s.OrderItems(9000)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64Ptr(77), items[0].BundleOrderItemID)
	assert.Equal(t, 3, items[1].Quantity)
}
