package warehance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/config"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Warehance.APIKey = "test-key"
	cfg.Warehance.BaseURL = server.URL
	cfg.Sync.MaxRetries = 2
	cfg.Sync.RetryDelaySeconds = 0

	return NewClient(cfg, slog.New(slog.NewTextHandler(testWriter{t}, nil)))
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func TestFetchReturns(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.Header.Get("X-API-KEY"))
		assert.Equal(t, "/returns", r.URL.Path)
		assert.Equal(t, "100", r.URL.Query().Get("limit"))
		assert.Equal(t, "0", r.URL.Query().Get("offset"))

		fmt.Fprint(w, `{"data": {"total_count": 237, "returns": [
			{"id": 1, "status": "pending", "created_at": "2025-06-01T12:00:00Z",
			 "client": {"id": 5, "name": "Acme"},
			 "order_id": 900,
			 "items": [{"id": 10, "quantity": 2, "return_reasons": ["damaged"],
			            "product": {"id": 7, "sku": "SKU-1", "name": "Widget"}}]}
		]}}`)
	}))

	page, err := client.FetchReturns(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 237, page.TotalCount)
	require.Len(t, page.Returns, 1)

	ret := page.Returns[0]
	assert.Equal(t, int64(1), ret.ID)
	require.NotNil(t, ret.Client)
	assert.Equal(t, "Acme", ret.Client.Name)
	require.NotNil(t, ret.OrderID)
	assert.Equal(t, int64(900), *ret.OrderID)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, []string{"damaged"}, ret.Items[0].ReturnReasons)
	assert.Equal(t, "SKU-1", ret.Items[0].Product.SKU)
	assert.Equal(t, 2025, ret.CreatedAt.Year())
}

func TestFetchReturns_NullItems(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"total_count": 1, "returns": [{"id": 1, "items": null}]}}`)
	}))

	page, err := client.FetchReturns(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Nil(t, page.Returns[0].Items)
}

func TestFetchReturns_AuthError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.FetchReturns(context.Background(), 100, 0)
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
}

func TestFetchReturns_RetriesServerErrors(t *testing.T) {
	var calls int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `{"data": {"total_count": 0, "returns": []}}`)
	}))

	page, err := client.FetchReturns(context.Background(), 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Empty(t, page.Returns)
}

func TestFetchReturns_ExhaustedRetriesIsTransient(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := client.FetchReturns(context.Background(), 100, 0)
	require.Error(t, err)
	var transient *TransientError
	assert.True(t, errors.As(err, &transient))
}

func TestGetOrder(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/orders/900", r.URL.Path)
		fmt.Fprint(w, `{"data": {"id": 900, "order_number": "ORD-1",
			"ship_to_address": {"first_name": "Jane", "last_name": "Smith"},
			"order_items": [
				{"id": 1, "sku": "SKU-A", "name": "Bundle Part", "quantity": 0, "bundle_order_item_id": 77},
				{"id": 2, "sku": "SKU-B", "name": "Single", "quantity": 3}
			]}}`)
	}))

	order, err := client.GetOrder(context.Background(), 900)
	require.NoError(t, err)
	assert.Equal(t, "ORD-1", order.OrderNumber)
	assert.Equal(t, "Jane Smith", order.ShipToAddress.CustomerName())
	require.Len(t, order.Items, 2)
	require.NotNil(t, order.Items[0].BundleOrderItemID)
	assert.Equal(t, int64(77), *order.Items[0].BundleOrderItemID)
}

func TestTimestampUnmarshal(t *testing.T) {
	cases := map[string]bool{
		`"2025-06-01T12:00:00Z"`:        false,
		`"2025-06-01T12:00:00.123456Z"`: false,
		`"2025-06-01 12:00:00"`:         false,
		`"2025-06-01"`:                  false,
		`null`:                          true,
		`""`:                            true,
		`"not a date"`:                  true,
	}
	for input, wantZero := range cases {
		var ts Timestamp
		require.NoError(t, ts.UnmarshalJSON([]byte(input)), input)
		assert.Equal(t, wantZero, ts.IsZero(), input)
	}
}

func TestAddressCustomerName(t *testing.T) {
	assert.Equal(t, "Jane Smith", (&Address{FirstName: "Jane", LastName: "Smith"}).CustomerName())
	assert.Equal(t, "Jane", (&Address{FirstName: "Jane"}).CustomerName())
	assert.Equal(t, "Smith", (&Address{LastName: " Smith "}).CustomerName())
	assert.Equal(t, "", (&Address{}).CustomerName())
	var nilAddr *Address
	assert.Equal(t, "", nilAddr.CustomerName())
}
