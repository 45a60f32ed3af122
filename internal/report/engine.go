// Package report builds the aggregations behind the dashboard endpoints:
// revenue per period, sales per category and the cash/credit breakdown.
// Results are cached briefly since the underlying data only changes on
// checkout-sized events.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"lapakponsel/backend/internal/cache"
	"lapakponsel/backend/internal/domain"
	"lapakponsel/backend/internal/store"
)

type Engine struct {
	repo     store.Repository
	cache    cache.ReportCache
	cacheTTL time.Duration
}

func NewEngine(repo store.Repository, cacheStore cache.ReportCache, cacheTTL time.Duration) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 20 * time.Second
	}

	return &Engine{
		repo:     repo,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
	}
}

// Revenue groups completed transactions into monthly or yearly buckets.
// Revenue is what the shop actually billed: subtotal minus discount.
func (e *Engine) Revenue(ctx context.Context, granularity string) (*domain.RevenueReport, error) {
	var layout string
	switch granularity {
	case domain.RevenueByMonth:
		layout = "2006-01"
	case domain.RevenueByYear:
		layout = "2006"
	default:
		return nil, fmt.Errorf("%w: granularity must be %q or %q", store.ErrValidation, domain.RevenueByMonth, domain.RevenueByYear)
	}

	cacheKey := "lapak:report:revenue:" + granularity
	var cached domain.RevenueReport
	if ok := e.cacheGet(ctx, cacheKey, &cached); ok {
		return &cached, nil
	}

	sales, err := e.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	byPeriod := make(map[string]*domain.RevenueBucket)
	for _, tx := range sales {
		period := tx.CreatedAt.UTC().Format(layout)
		bucket, ok := byPeriod[period]
		if !ok {
			bucket = &domain.RevenueBucket{Period: period}
			byPeriod[period] = bucket
		}
		bucket.Transactions++
		bucket.RevenueCents += tx.SubtotalCents - tx.DiscountCents
		bucket.DiscountCents += tx.DiscountCents
		bucket.RefundedCents += tx.RefundedCents
	}

	buckets := make([]domain.RevenueBucket, 0, len(byPeriod))
	for _, bucket := range byPeriod {
		buckets = append(buckets, *bucket)
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Period < buckets[j].Period })

	resp := &domain.RevenueReport{Granularity: granularity, Buckets: buckets}
	e.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

// SalesByCategory sums units and revenue per product category across all
// sale lines, ordered by revenue descending.
func (e *Engine) SalesByCategory(ctx context.Context) (*domain.CategorySalesReport, error) {
	cacheKey := "lapak:report:category-sales"
	var cached domain.CategorySalesReport
	if ok := e.cacheGet(ctx, cacheKey, &cached); ok {
		return &cached, nil
	}

	sales, err := e.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}
	products, err := e.repo.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	categories, err := e.repo.ListCategories(ctx)
	if err != nil {
		return nil, err
	}

	categoryByProduct := make(map[string]string, len(products))
	for _, product := range products {
		categoryByProduct[product.ID] = product.CategoryID
	}
	nameByCategory := make(map[string]string, len(categories))
	for _, category := range categories {
		nameByCategory[category.ID] = category.Name
	}

	byCategory := make(map[string]*domain.CategorySales)
	for _, tx := range sales {
		for _, line := range tx.Items {
			categoryID := categoryByProduct[line.ProductID]
			entry, ok := byCategory[categoryID]
			if !ok {
				entry = &domain.CategorySales{CategoryID: categoryID, CategoryName: nameByCategory[categoryID]}
				byCategory[categoryID] = entry
			}
			entry.UnitsSold += int64(line.Qty)
			entry.RevenueCents += line.LineTotalCents
		}
	}

	result := make([]domain.CategorySales, 0, len(byCategory))
	for _, entry := range byCategory {
		result = append(result, *entry)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].RevenueCents != result[j].RevenueCents {
			return result[i].RevenueCents > result[j].RevenueCents
		}
		return result[i].CategoryID < result[j].CategoryID
	})

	resp := &domain.CategorySalesReport{Categories: result}
	e.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

// StatusBreakdown splits the ledger by payment mode, tracking how much of
// the credit book is still outstanding.
func (e *Engine) StatusBreakdown(ctx context.Context) (*domain.StatusBreakdownReport, error) {
	cacheKey := "lapak:report:status"
	var cached domain.StatusBreakdownReport
	if ok := e.cacheGet(ctx, cacheKey, &cached); ok {
		return &cached, nil
	}

	sales, err := e.repo.ListSales(ctx)
	if err != nil {
		return nil, err
	}

	byMode := make(map[string]*domain.StatusBreakdown, 2)
	for _, tx := range sales {
		entry, ok := byMode[tx.PaymentMode]
		if !ok {
			entry = &domain.StatusBreakdown{PaymentMode: tx.PaymentMode}
			byMode[tx.PaymentMode] = entry
		}
		entry.Transactions++
		entry.RevenueCents += tx.SubtotalCents - tx.DiscountCents
		entry.OutstandingCents += tx.OutstandingCents
	}

	modes := make([]domain.StatusBreakdown, 0, len(byMode))
	for _, entry := range byMode {
		modes = append(modes, *entry)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].PaymentMode < modes[j].PaymentMode })

	resp := &domain.StatusBreakdownReport{Modes: modes}
	e.cacheSet(ctx, cacheKey, resp)
	return resp, nil
}

// WriteTransactionsCSV streams the full transaction ledger as CSV, one row
// per line item so spreadsheets can pivot on product.
func (e *Engine) WriteTransactionsCSV(ctx context.Context, w io.Writer) error {
	sales, err := e.repo.ListSales(ctx)
	if err != nil {
		return err
	}

	writer := csv.NewWriter(w)
	header := []string{
		"transaction_id", "created_at", "payment_mode", "due_date", "customer_id", "operator",
		"product_id", "product_name", "qty", "unit_price_cents", "line_total_cents",
		"subtotal_cents", "discount_cents", "paid_cents", "outstanding_cents", "refunded_cents",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, tx := range sales {
		for _, line := range tx.Items {
			record := []string{
				tx.ID,
				tx.CreatedAt.UTC().Format(time.RFC3339),
				tx.PaymentMode,
				tx.DueDate,
				tx.CustomerID,
				tx.OperatorUsername,
				line.ProductID,
				line.ProductName,
				strconv.Itoa(line.Qty),
				strconv.FormatInt(line.UnitPriceCents, 10),
				strconv.FormatInt(line.LineTotalCents, 10),
				strconv.FormatInt(tx.SubtotalCents, 10),
				strconv.FormatInt(tx.DiscountCents, 10),
				strconv.FormatInt(tx.PaidCents, 10),
				strconv.FormatInt(tx.OutstandingCents, 10),
				strconv.FormatInt(tx.RefundedCents, 10),
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
	}

	writer.Flush()
	return writer.Error()
}

func (e *Engine) cacheGet(ctx context.Context, key string, out any) bool {
	payload, ok, err := e.cache.Get(ctx, key)
	if err != nil || !ok {
		return false
	}
	return json.Unmarshal(payload, out) == nil
}

func (e *Engine) cacheSet(ctx context.Context, key string, value any) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = e.cache.Set(ctx, key, payload, e.cacheTTL)
}
