package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/warehance"
)

// fakeSource serves canned pages and can be told to fail a specific
// returns page fetch.
type fakeSource struct {
	returns  []warehance.ReturnRecord
	orders   []warehance.OrderRecord
	products []warehance.ProductRecord

	// liveOrders are served only by GetOrder, never by the paged
	// order listing.
	liveOrders []warehance.OrderRecord

	failReturnsAtOffset int
	failWith            error

	returnsFetches int
	orderLookups   int
}

func (f *fakeSource) page(length, limit, offset int) (int, int) {
	if offset >= length {
		return offset, offset
	}
	end := offset + limit
	if end > length {
		end = length
	}
	return offset, end
}

func (f *fakeSource) FetchReturns(_ context.Context, limit, offset int) (*warehance.ReturnsPage, error) {
	f.returnsFetches++
	if f.failWith != nil && offset == f.failReturnsAtOffset {
		return nil, f.failWith
	}
	start, end := f.page(len(f.returns), limit, offset)
	return &warehance.ReturnsPage{Returns: f.returns[start:end], TotalCount: len(f.returns)}, nil
}

func (f *fakeSource) FetchOrders(_ context.Context, limit, offset int) (*warehance.OrdersPage, error) {
	start, end := f.page(len(f.orders), limit, offset)
	return &warehance.OrdersPage{Orders: f.orders[start:end], TotalCount: len(f.orders)}, nil
}

func (f *fakeSource) FetchProducts(_ context.Context, limit, offset int) (*warehance.ProductsPage, error) {
	start, end := f.page(len(f.products), limit, offset)
	return &warehance.ProductsPage{Products: f.products[start:end], TotalCount: len(f.products)}, nil
}

func (f *fakeSource) GetOrder(_ context.Context, id int64) (*warehance.OrderRecord, error) {
	f.orderLookups++
	for _, order := range append(f.orders, f.liveOrders...) {
		if order.ID == id {
			return &order, nil
		}
	}
	return nil, &warehance.APIError{StatusCode: 404, Endpoint: fmt.Sprintf("/orders/%d", id)}
}

func newTestStorage(t *testing.T) *storage.Storage {
	t.Helper()
	s, err := storage.Open("sqlite3", filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discardWriter{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func makeReturns(count int) []warehance.ReturnRecord {
	returns := make([]warehance.ReturnRecord, count)
	for i := range returns {
		returns[i] = warehance.ReturnRecord{
			ID:     int64(i + 1),
			Status: "pending",
			Client: &warehance.NamedRef{ID: 5, Name: "Acme"},
			Items: []warehance.ReturnItemRecord{
				{ID: int64(10000 + i), Quantity: 1,
					Product: &warehance.ProductRef{ID: int64(i + 1), SKU: fmt.Sprintf("SKU-%d", i+1), Name: "Widget"}},
			},
		}
	}
	return returns
}

func TestRun_PaginatesUntilTotalCovered(t *testing.T) {
	store := newTestStorage(t)
	source := &fakeSource{returns: makeReturns(237)}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	result, err := orchestrator.Run(context.Background())
	require.NoError(t, err)

	// Pages of 100, 100 and 37.
	assert.Equal(t, 3, source.returnsFetches)
	assert.Equal(t, 237, result.Created)

	list, err := store.ListReturns(storage.ReturnFilters{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 237, list.TotalCount)

	log, err := store.GetSyncLog(result.RunID)
	require.NoError(t, err)
	assert.Equal(t, storage.SyncStatusCompleted, log.Status)
	assert.Equal(t, 237, log.TotalFetched)
}

func TestRun_SecondRunUpdatesInsteadOfCreating(t *testing.T) {
	store := newTestStorage(t)
	source := &fakeSource{returns: makeReturns(5)}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	first, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, first.Created)

	second, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Created)
	assert.Equal(t, 5, second.Updated)

	list, err := store.ListReturns(storage.ReturnFilters{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, list.TotalCount)
}

func TestRun_PageFailureKeepsEarlierPages(t *testing.T) {
	store := newTestStorage(t)
	source := &fakeSource{
		returns:             makeReturns(250),
		failReturnsAtOffset: 100,
		failWith:            &warehance.TransientError{Endpoint: "/returns", Err: fmt.Errorf("connection reset")},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	result, err := orchestrator.Run(context.Background())
	require.Error(t, err)

	// The first page of returns is already persisted.
	list, listErr := store.ListReturns(storage.ReturnFilters{Limit: 1})
	require.NoError(t, listErr)
	assert.Equal(t, 100, list.TotalCount)

	log, logErr := store.GetSyncLog(result.RunID)
	require.NoError(t, logErr)
	assert.Equal(t, storage.SyncStatusFailed, log.Status)
	assert.Contains(t, log.ErrorMessage, "connection reset")
}

// captureTransport collects events instead of sending them anywhere.
type captureTransport struct {
	events []*sentry.Event
}

func (tr *captureTransport) Configure(sentry.ClientOptions) {}

func (tr *captureTransport) SendEvent(event *sentry.Event) {
	tr.events = append(tr.events, event)
}

func (tr *captureTransport) Flush(time.Duration) bool { return true }

func (tr *captureTransport) FlushWithContext(context.Context) bool { return true }

func (tr *captureTransport) Close() {}

func TestRun_FailureReportedToSentry(t *testing.T) {
	transport := &captureTransport{}
	require.NoError(t, sentry.Init(sentry.ClientOptions{Transport: transport}))
	t.Cleanup(func() { sentry.CurrentHub().BindClient(nil) })

	store := newTestStorage(t)
	source := &fakeSource{
		returns:  makeReturns(5),
		failWith: &warehance.TransientError{Endpoint: "/returns", Err: fmt.Errorf("connection reset")},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	result, err := orchestrator.Run(context.Background())
	require.Error(t, err)

	require.Len(t, transport.events, 1)
	event := transport.events[0]
	require.NotEmpty(t, event.Exception)
	assert.Contains(t, event.Exception[0].Value, "connection reset")
	assert.Equal(t, strconv.FormatInt(result.RunID, 10), event.Tags["run_id"])
}

func TestRun_AuthFailureAbortsRun(t *testing.T) {
	store := newTestStorage(t)
	source := &fakeSource{
		returns:  makeReturns(50),
		failWith: &warehance.AuthError{StatusCode: 401, Endpoint: "/returns"},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	result, err := orchestrator.Run(context.Background())
	require.Error(t, err)

	var authErr *warehance.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, 1, source.returnsFetches)

	log, logErr := store.GetSyncLog(result.RunID)
	require.NoError(t, logErr)
	assert.Equal(t, storage.SyncStatusFailed, log.Status)
}

func TestRun_BadRecordIsSkippedRunContinues(t *testing.T) {
	store := newTestStorage(t)
	returns := makeReturns(3)
	// Point the second return at an order that does not exist so its
	// foreign key insert fails.
	missingOrder := int64(999999)
	returns[1].OrderID = &missingOrder

	source := &fakeSource{returns: returns}
	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	result, err := orchestrator.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.Errors, 1)

	log, logErr := store.GetSyncLog(result.RunID)
	require.NoError(t, logErr)
	assert.Equal(t, storage.SyncStatusCompleted, log.Status)
	assert.Equal(t, 1, log.Skipped)
}

func TestRun_ProxyFallbackForNullItems(t *testing.T) {
	store := newTestStorage(t)
	bundle := int64(77)
	orderID := int64(900)
	source := &fakeSource{
		orders: []warehance.OrderRecord{{
			ID:            900,
			OrderNumber:   "ORD-1",
			ShipToAddress: &warehance.Address{FirstName: "Jane", LastName: "Smith"},
			Items: []warehance.OrderItemRecord{
				{ID: 1, Name: "Bundle Part", Quantity: 0, BundleOrderItemID: &bundle},
				{ID: 2, Name: "Single", Quantity: 3},
			},
		}},
		returns: []warehance.ReturnRecord{{
			ID:      500,
			Status:  "pending",
			OrderID: &orderID,
			Items:   nil,
		}},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	_, err := orchestrator.Run(context.Background())
	require.NoError(t, err)

	detail, err := store.GetReturnDetail(500)
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Items, 2)
	assert.True(t, detail.Items[0].IsProxy)
	assert.Equal(t, 1, detail.Items[0].Quantity)
	assert.Equal(t, 3, detail.Items[1].Quantity)
	assert.NotEmpty(t, detail.ItemsNote)
	assert.Equal(t, "Jane Smith", detail.CustomerName)
}

func TestRun_OrderRefetchWhenStoredItemsMissing(t *testing.T) {
	store := newTestStorage(t)
	orderID := int64(900)
	source := &fakeSource{
		// The order never appears in the paged listing; only the
		// single-order endpoint knows it.
		liveOrders: []warehance.OrderRecord{{
			ID:            900,
			OrderNumber:   "ORD-900",
			ShipToAddress: &warehance.Address{FirstName: "Jane", LastName: "Smith"},
			Items: []warehance.OrderItemRecord{
				{ID: 1, Name: "Widget", Quantity: 2,
					Product: &warehance.ProductRef{ID: 100, SKU: "SKU-1", Name: "Widget"}},
			},
		}},
		returns: []warehance.ReturnRecord{{
			ID:      500,
			Status:  "pending",
			OrderID: &orderID,
			Items:   nil,
		}},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	_, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, source.orderLookups)

	// The refetched order and its items are persisted for later syncs.
	order, err := store.GetOrder(900)
	require.NoError(t, err)
	require.NotNil(t, order)
	assert.Equal(t, "Jane Smith", order.CustomerName)

	detail, err := store.GetReturnDetail(500)
	require.NoError(t, err)
	require.NotNil(t, detail)
	require.Len(t, detail.Items, 1)
	assert.True(t, detail.Items[0].IsProxy)
	assert.Equal(t, 2, detail.Items[0].Quantity)
	assert.Equal(t, "SKU-1", detail.Items[0].SKU)
}

func TestRun_OrderRefetchFailureCostsItemsNotTheRecord(t *testing.T) {
	store := newTestStorage(t)
	orderID := int64(901)
	source := &fakeSource{
		returns: []warehance.ReturnRecord{{
			ID:      500,
			Status:  "pending",
			OrderID: &orderID,
			Items:   nil,
		}},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	result, err := orchestrator.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, source.orderLookups)
	assert.Equal(t, 1, result.Created)

	detail, err := store.GetReturnDetail(500)
	require.NoError(t, err)
	require.NotNil(t, detail)
	assert.Empty(t, detail.Items)
}

func TestRun_ProductSKUDedupAcrossReturns(t *testing.T) {
	store := newTestStorage(t)
	source := &fakeSource{
		returns: []warehance.ReturnRecord{
			{ID: 1, Status: "pending", Items: []warehance.ReturnItemRecord{
				{ID: 10, Quantity: 1, Product: &warehance.ProductRef{ID: 100, SKU: "SKU-1", Name: "Widget"}},
			}},
			{ID: 2, Status: "pending", Items: []warehance.ReturnItemRecord{
				{ID: 11, Quantity: 1, Product: &warehance.ProductRef{ID: 200, SKU: "SKU-1", Name: "Widget v2"}},
			}},
		},
	}

	orchestrator := NewOrchestrator(source, store, testLogger(), 100)
	_, err := orchestrator.Run(context.Background())
	require.NoError(t, err)

	// Both items point at the single catalog row for SKU-1.
	top, err := store.TopReturnedProducts(5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(100), top[0].ProductID)
	assert.Equal(t, 2, top[0].ReturnCount)
}
