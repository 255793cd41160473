package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/getsentry/sentry-go"

	"github.com/uptimeops/warehance-returns-backend/internal/infrastructure/storage"
	"github.com/uptimeops/warehance-returns-backend/internal/metrics"
	"github.com/uptimeops/warehance-returns-backend/internal/warehance"
)

// Source is the slice of the Warehance API the orchestrator consumes.
type Source interface {
	FetchReturns(ctx context.Context, limit, offset int) (*warehance.ReturnsPage, error)
	FetchOrders(ctx context.Context, limit, offset int) (*warehance.OrdersPage, error)
	FetchProducts(ctx context.Context, limit, offset int) (*warehance.ProductsPage, error)
	GetOrder(ctx context.Context, id int64) (*warehance.OrderRecord, error)
}

// Result holds the tallies of one sync run.
type Result struct {
	RunID   int64
	Pages   int
	Fetched int
	Created int
	Updated int
	Skipped int
	Errors  []error
}

func (r *Result) counts() storage.SyncCounts {
	return storage.SyncCounts{
		TotalPages:   r.Pages,
		TotalFetched: r.Fetched,
		Created:      r.Created,
		Updated:      r.Updated,
		Skipped:      r.Skipped,
	}
}

// Orchestrator runs one full sync: products, then orders, then
// returns, so every foreign key a return needs already exists by the
// time its row is written.
type Orchestrator struct {
	source   Source
	storage  *storage.Storage
	logger   *slog.Logger
	pageSize int
}

// NewOrchestrator creates a sync orchestrator.
func NewOrchestrator(source Source, store *storage.Storage, logger *slog.Logger, pageSize int) *Orchestrator {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &Orchestrator{
		source:   source,
		storage:  store,
		logger:   logger,
		pageSize: pageSize,
	}
}

// Run executes a full sync, recording the run in sync_logs. Records
// that fail individually are skipped and the run continues; a failed
// page fetch aborts the run but keeps everything persisted so far.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	runID, err := o.storage.StartSyncLog("full")
	if err != nil {
		return nil, fmt.Errorf("recording sync start: %w", err)
	}
	return o.runWithLog(ctx, runID)
}

// runWithLog executes a sync against an already-created sync log.
func (o *Orchestrator) runWithLog(ctx context.Context, runID int64) (*Result, error) {
	result := &Result{RunID: runID}
	o.logger.Info("sync run started", "run_id", runID, "page_size", o.pageSize)
	metrics.SyncRunsStarted.Inc()

	phases := []struct {
		name string
		run  func(context.Context, *Result) error
	}{
		{"products", o.syncProducts},
		{"orders", o.syncOrders},
		{"returns", o.syncReturns},
	}

	for _, phase := range phases {
		if err := ctx.Err(); err != nil {
			return o.fail(result, err)
		}
		o.logger.Info("sync phase started", "run_id", runID, "phase", phase.name)
		if err := phase.run(ctx, result); err != nil {
			return o.fail(result, fmt.Errorf("%s phase: %w", phase.name, err))
		}
	}

	if err := o.storage.CompleteSyncLog(runID, result.counts()); err != nil {
		o.logger.Error("recording sync completion failed", "run_id", runID, "error", err)
	}
	metrics.SyncRunsCompleted.Inc()
	metrics.RecordsSynced.Add(float64(result.Fetched))

	o.logger.Info("sync run completed",
		"run_id", runID,
		"pages", result.Pages,
		"fetched", result.Fetched,
		"created", result.Created,
		"updated", result.Updated,
		"skipped", result.Skipped,
	)
	return result, nil
}

// fail finalizes the sync log with partial tallies and classifies the
// abort reason in the log line.
func (o *Orchestrator) fail(result *Result, err error) (*Result, error) {
	var authErr *warehance.AuthError
	if errors.As(err, &authErr) {
		o.logger.Error("sync run aborted: authentication rejected", "run_id", result.RunID, "error", err)
	} else {
		o.logger.Error("sync run failed", "run_id", result.RunID, "error", err)
	}
	metrics.SyncRunsFailed.Inc()

	// No-op unless sentry.Init ran at startup.
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("run_id", strconv.FormatInt(result.RunID, 10))
		sentry.CaptureException(err)
	})

	if logErr := o.storage.FailSyncLog(result.RunID, result.counts(), err.Error()); logErr != nil {
		o.logger.Error("recording sync failure failed", "run_id", result.RunID, "error", logErr)
	}
	return result, err
}

// pageThrough fetches offset pages until the reported total is covered
// or a page comes back empty. fetch returns the batch size and the
// total the API reports for the full set.
func (o *Orchestrator) pageThrough(ctx context.Context, result *Result, phase string,
	fetch func(ctx context.Context, limit, offset int) (batch int, total int, err error)) error {

	offset := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		batch, total, err := fetch(ctx, o.pageSize, offset)
		if err != nil {
			return err
		}
		result.Pages++
		result.Fetched += batch

		if err := o.storage.UpdateSyncProgress(result.RunID, phase, total, offset+batch,
			fmt.Sprintf("processed %s page at offset %d", phase, offset)); err != nil {
			o.logger.Warn("progress update failed", "run_id", result.RunID, "error", err)
		}

		if batch == 0 || offset+batch >= total {
			return nil
		}
		offset += o.pageSize
	}
}

func (o *Orchestrator) syncProducts(ctx context.Context, result *Result) error {
	return o.pageThrough(ctx, result, "products", func(ctx context.Context, limit, offset int) (int, int, error) {
		page, err := o.source.FetchProducts(ctx, limit, offset)
		if err != nil {
			return 0, 0, err
		}
		for _, rec := range page.Products {
			if rec.SKU == "" {
				o.logger.Warn("skipping product without SKU", "product_id", rec.ID)
				result.Skipped++
				continue
			}
			_, upsert, err := o.storage.UpsertProduct(storage.Product{
				ID: rec.ID, SKU: rec.SKU, Name: rec.Name,
			})
			if err != nil {
				o.recordError(result, fmt.Errorf("product %d: %w", rec.ID, err))
				continue
			}
			o.tally(result, upsert)
		}
		return len(page.Products), page.TotalCount, nil
	})
}

func (o *Orchestrator) syncOrders(ctx context.Context, result *Result) error {
	return o.pageThrough(ctx, result, "orders", func(ctx context.Context, limit, offset int) (int, int, error) {
		page, err := o.source.FetchOrders(ctx, limit, offset)
		if err != nil {
			return 0, 0, err
		}
		for _, rec := range page.Orders {
			if err := o.storeOrder(rec, result); err != nil {
				o.recordError(result, fmt.Errorf("order %d: %w", rec.ID, err))
				continue
			}
		}
		return len(page.Orders), page.TotalCount, nil
	})
}

// storeOrder persists one order, its catalog products and line items.
func (o *Orchestrator) storeOrder(rec warehance.OrderRecord, result *Result) error {
	upsert, err := o.storage.UpsertOrder(NormalizeOrder(rec))
	if err != nil {
		return err
	}
	o.tally(result, upsert)
	return o.storeOrderItems(rec.ID, rec.Items)
}

// storeOrderItems upserts the catalog products the line items point at
// and replaces the stored items, linking by the deduped product id.
func (o *Orchestrator) storeOrderItems(orderID int64, recs []warehance.OrderItemRecord) error {
	items := NormalizeOrderItems(orderID, recs)
	for i, itemRec := range recs {
		if itemRec.Product == nil || itemRec.Product.SKU == "" {
			continue
		}
		storedID, _, err := o.storage.UpsertProduct(storage.Product{
			ID: itemRec.Product.ID, SKU: itemRec.Product.SKU, Name: itemRec.Product.Name,
		})
		if err != nil {
			return fmt.Errorf("item product %d: %w", itemRec.Product.ID, err)
		}
		items[i].ProductID = &storedID
	}
	return o.storage.ReplaceOrderItems(orderID, items)
}

func (o *Orchestrator) syncReturns(ctx context.Context, result *Result) error {
	return o.pageThrough(ctx, result, "returns", func(ctx context.Context, limit, offset int) (int, int, error) {
		page, err := o.source.FetchReturns(ctx, limit, offset)
		if err != nil {
			return 0, 0, err
		}
		for _, rec := range page.Returns {
			if err := o.storeReturn(ctx, rec, result); err != nil {
				o.recordError(result, fmt.Errorf("return %d: %w", rec.ID, err))
				continue
			}
		}
		return len(page.Returns), page.TotalCount, nil
	})
}

// storeReturn persists one return and everything it references. Each
// piece is its own upsert; a failure leaves earlier pieces in place.
func (o *Orchestrator) storeReturn(ctx context.Context, rec warehance.ReturnRecord, result *Result) error {
	if rec.Client != nil {
		if _, err := o.storage.UpsertClient(storage.Client{ID: rec.Client.ID, Name: rec.Client.Name}); err != nil {
			return fmt.Errorf("client %d: %w", rec.Client.ID, err)
		}
	}
	if rec.Warehouse != nil {
		if _, err := o.storage.UpsertWarehouse(storage.Warehouse{ID: rec.Warehouse.ID, Name: rec.Warehouse.Name}); err != nil {
			return fmt.Errorf("warehouse %d: %w", rec.Warehouse.ID, err)
		}
	}
	if rec.Integration != nil {
		integration := storage.ReturnIntegration{
			ID:   rec.Integration.ID,
			Name: rec.Integration.Name,
			Type: rec.Integration.Type,
		}
		if rec.Integration.Store != nil {
			if _, err := o.storage.UpsertStore(storage.Store{
				ID: rec.Integration.Store.ID, Name: rec.Integration.Store.Name,
			}); err != nil {
				return fmt.Errorf("store %d: %w", rec.Integration.Store.ID, err)
			}
			integration.StoreID = &rec.Integration.Store.ID
		}
		if _, err := o.storage.UpsertIntegration(integration); err != nil {
			return fmt.Errorf("integration %d: %w", rec.Integration.ID, err)
		}
	}

	upsert, err := o.storage.UpsertReturn(NormalizeReturn(rec))
	if err != nil {
		return err
	}
	o.tally(result, upsert)

	items, err := o.buildReturnItems(ctx, rec)
	if err != nil {
		return err
	}
	return o.storage.ReplaceReturnItems(rec.ID, items)
}

// buildReturnItems converts a return's own items, or falls back to the
// order's items as proxies when the API delivered none. The fallback
// reads stored items first and re-fetches the order when they are
// missing too.
func (o *Orchestrator) buildReturnItems(ctx context.Context, rec warehance.ReturnRecord) ([]storage.ReturnItem, error) {
	if len(rec.Items) > 0 {
		items := make([]storage.ReturnItem, 0, len(rec.Items))
		for _, itemRec := range rec.Items {
			item := storage.ReturnItem{
				ID:                 itemRec.ID,
				ReturnID:           rec.ID,
				Quantity:           itemRec.Quantity,
				QuantityOrdered:    itemRec.Quantity,
				QuantityReceived:   itemRec.QuantityReceived,
				QuantityRejected:   itemRec.QuantityRejected,
				ReturnReasons:      itemRec.ReturnReasons,
				ConditionOnArrival: itemRec.ConditionOnArrival,
			}
			if itemRec.Product != nil && itemRec.Product.SKU != "" {
				storedID, _, err := o.storage.UpsertProduct(storage.Product{
					ID: itemRec.Product.ID, SKU: itemRec.Product.SKU, Name: itemRec.Product.Name,
				})
				if err != nil {
					return nil, fmt.Errorf("item product %d: %w", itemRec.Product.ID, err)
				}
				item.ProductID = &storedID
			}
			items = append(items, item)
		}
		return items, nil
	}

	if rec.OrderID == nil {
		return nil, nil
	}
	orderItems, err := o.storage.OrderItems(*rec.OrderID)
	if err != nil {
		return nil, fmt.Errorf("loading order items for proxy fallback: %w", err)
	}
	if len(orderItems) == 0 {
		orderItems, err = o.refreshOrderItems(ctx, *rec.OrderID)
		if err != nil {
			// The return itself is already persisted; a failed
			// refetch costs items, not the record.
			o.logger.Warn("order refetch for item fallback failed",
				"return_id", rec.ID, "order_id", *rec.OrderID, "error", err)
			return nil, nil
		}
	}
	if len(orderItems) > 0 {
		o.logger.Debug("using order items as return item fallback",
			"return_id", rec.ID, "order_id", *rec.OrderID, "items", len(orderItems))
	}
	return ProxyItemsFromOrder(rec.ID, orderItems), nil
}

// refreshOrderItems pulls an order live when its stored line items are
// missing, persisting the order and items for later syncs before
// re-reading them.
func (o *Orchestrator) refreshOrderItems(ctx context.Context, orderID int64) ([]storage.OrderItem, error) {
	rec, err := o.source.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("refetching order %d: %w", orderID, err)
	}
	if rec == nil || len(rec.Items) == 0 {
		return nil, nil
	}

	stored, err := o.storage.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		if _, err := o.storage.UpsertOrder(NormalizeOrder(*rec)); err != nil {
			return nil, fmt.Errorf("storing refetched order %d: %w", orderID, err)
		}
	}
	if err := o.storeOrderItems(orderID, rec.Items); err != nil {
		return nil, err
	}
	return o.storage.OrderItems(orderID)
}

func (o *Orchestrator) tally(result *Result, upsert storage.UpsertResult) {
	if upsert == storage.Created {
		result.Created++
	} else {
		result.Updated++
	}
}

func (o *Orchestrator) recordError(result *Result, err error) {
	o.logger.Error("record sync failed", "run_id", result.RunID, "error", err)
	result.Skipped++
	result.Errors = append(result.Errors, err)
}
