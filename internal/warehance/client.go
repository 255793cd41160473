// Package warehance is a typed client for the Warehance v1 REST API.
// All listing endpoints share the same envelope: a "data" object
// holding the page of records plus a total_count for the full set.
package warehance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/config"
)

// Client talks to the Warehance API with retries on transient
// failures. Auth failures and other 4xx responses are never retried.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient builds a client from config. Retry counts and delays come
// from the sync section so API-heavy runs and the server share one
// policy.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	retry := retryablehttp.NewClient()
	retry.RetryMax = cfg.Sync.MaxRetries
	retry.RetryWaitMin = time.Duration(cfg.Sync.RetryDelaySeconds) * time.Second
	retry.RetryWaitMax = 30 * time.Second
	retry.HTTPClient.Timeout = 60 * time.Second
	retry.Logger = nil
	retry.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return true, nil
		}
		// Client errors will not heal on retry.
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return false, nil
		}
		return resp.StatusCode >= 500, nil
	}

	return &Client{
		baseURL:    cfg.Warehance.BaseURL,
		apiKey:     cfg.Warehance.APIKey,
		httpClient: retry.StandardClient(),
		logger:     logger,
	}
}

// get fetches path and decodes the response body into out.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Endpoint: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Endpoint: path}
	case resp.StatusCode >= 500:
		return &TransientError{Endpoint: path, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Endpoint: path, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

// FetchReturns fetches one page of returns.
func (c *Client) FetchReturns(ctx context.Context, limit, offset int) (*ReturnsPage, error) {
	var envelope struct {
		Data struct {
			Returns    []ReturnRecord `json:"returns"`
			TotalCount int            `json:"total_count"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/returns?limit=%d&offset=%d", limit, offset)
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	c.logger.Debug("fetched returns page",
		"offset", offset, "count", len(envelope.Data.Returns), "total", envelope.Data.TotalCount)
	return &ReturnsPage{Returns: envelope.Data.Returns, TotalCount: envelope.Data.TotalCount}, nil
}

// FetchOrders fetches one page of orders.
func (c *Client) FetchOrders(ctx context.Context, limit, offset int) (*OrdersPage, error) {
	var envelope struct {
		Data struct {
			Orders     []OrderRecord `json:"orders"`
			TotalCount int           `json:"total_count"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/orders?limit=%d&offset=%d", limit, offset)
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return &OrdersPage{Orders: envelope.Data.Orders, TotalCount: envelope.Data.TotalCount}, nil
}

// FetchProducts fetches one page of products.
func (c *Client) FetchProducts(ctx context.Context, limit, offset int) (*ProductsPage, error) {
	var envelope struct {
		Data struct {
			Products   []ProductRecord `json:"products"`
			TotalCount int             `json:"total_count"`
		} `json:"data"`
	}
	path := fmt.Sprintf("/products?limit=%d&offset=%d", limit, offset)
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return &ProductsPage{Products: envelope.Data.Products, TotalCount: envelope.Data.TotalCount}, nil
}

// GetOrder fetches a single order with its line items.
func (c *Client) GetOrder(ctx context.Context, id int64) (*OrderRecord, error) {
	var envelope struct {
		Data OrderRecord `json:"data"`
	}
	path := fmt.Sprintf("/orders/%d", id)
	if err := c.get(ctx, path, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Data, nil
}
