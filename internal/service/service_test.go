package service

import (
	"context"
	"errors"
	"testing"

	"lapakponsel/backend/internal/domain"
	"lapakponsel/backend/internal/store"
	"lapakponsel/backend/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), Options{ReclassifySettledCredit: true})
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func createTestProduct(t *testing.T, svc *Service, name string, priceCents int64, stock int) domain.Product {
	t.Helper()
	product, err := svc.CreateProduct(adminCtx(), domain.ProductCreateRequest{
		Name:         name,
		CategoryID:   "cat_case",
		BrandID:      "brd_robot",
		CostCents:    priceCents / 2,
		PriceCents:   priceCents,
		InitialStock: stock,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return product
}

func stockOf(t *testing.T, svc *Service, productID string) int {
	t.Helper()
	product, err := svc.GetProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	return product.Stock
}

func TestCreateTransactionComputesTotalsServerSide(t *testing.T) {
	svc := newTestService()
	p1 := createTestProduct(t, svc, "Casing Premium", 100000, 20)
	p2 := createTestProduct(t, svc, "Tempered Premium", 50000, 20)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode:   "cash",
		DiscountCents: 20000,
		PaidCents:     200000,
		Items: []domain.SaleItemInput{
			{ProductID: p1.ID, Qty: 2},
			{ProductID: p2.ID, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if tx.SubtotalCents != 250000 {
		t.Fatalf("expected subtotal 250000, got %d", tx.SubtotalCents)
	}
	if tx.OutstandingCents != 30000 {
		t.Fatalf("expected outstanding 30000, got %d", tx.OutstandingCents)
	}
	if len(tx.Items) != 2 {
		t.Fatalf("expected 2 line items, got %d", len(tx.Items))
	}
	if stockOf(t, svc, p1.ID) != 18 || stockOf(t, svc, p2.ID) != 19 {
		t.Fatalf("expected stock debits of 2 and 1")
	}

	settled, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode:   "cash",
		DiscountCents: 20000,
		PaidCents:     230000,
		Items: []domain.SaleItemInput{
			{ProductID: p1.ID, Qty: 2},
			{ProductID: p2.ID, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if settled.OutstandingCents != 0 {
		t.Fatalf("expected outstanding 0 when fully paid, got %d", settled.OutstandingCents)
	}
}

func TestCreateTransactionInsufficientStockIsAtomic(t *testing.T) {
	svc := newTestService()
	p1 := createTestProduct(t, svc, "Kabel Murah", 10000, 50)
	p2 := createTestProduct(t, svc, "Headset Langka", 90000, 2)

	_, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   500000,
		Items: []domain.SaleItemInput{
			{ProductID: p1.ID, Qty: 5},
			{ProductID: p2.ID, Qty: 3},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if stockOf(t, svc, p1.ID) != 50 {
		t.Fatalf("first item's stock must be untouched after rollback, got %d", stockOf(t, svc, p1.ID))
	}
	if stockOf(t, svc, p2.ID) != 2 {
		t.Fatalf("second item's stock must be untouched, got %d", stockOf(t, svc, p2.ID))
	}

	sales, err := svc.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("list transactions failed: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("no transaction may persist after a failed create, got %d", len(sales))
	}
}

func TestCreateTransactionPaymentValidation(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Powerbank Uji", 150000, 10)

	_, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "credit",
		PaidCents:   50000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("credit without due_date must fail validation, got %v", err)
	}

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		DueDate:     "2026-10-01",
		PaidCents:   150000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if tx.DueDate != "" {
		t.Fatalf("cash transaction must not carry a due date, got %q", tx.DueDate)
	}

	_, err = svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   1000,
		Items:       nil,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("empty item list must fail validation, got %v", err)
	}
}

func TestUpdateAppliesNetStockDelta(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Casing Netto", 50000, 10)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   200000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 4}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if stockOf(t, svc, p.ID) != 6 {
		t.Fatalf("expected stock 6 after sale of 4, got %d", stockOf(t, svc, p.ID))
	}
	if tx.SubtotalCents != 200000 || tx.OutstandingCents != 0 {
		t.Fatalf("unexpected totals: subtotal=%d outstanding=%d", tx.SubtotalCents, tx.OutstandingCents)
	}

	updated, err := svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   300000,
		Items:       []domain.SaleItemInput{{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 6}},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	if stockOf(t, svc, p.ID) != 4 {
		t.Fatalf("expected stock 4 after net -2 adjustment, got %d", stockOf(t, svc, p.ID))
	}
	if updated.SubtotalCents != 300000 {
		t.Fatalf("expected subtotal 300000, got %d", updated.SubtotalCents)
	}
}

func TestUpdateQuantityDecreaseCreditsNet(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Kabel Netto", 25000, 30)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   125000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 5}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	_, err = svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   75000,
		Items:       []domain.SaleItemInput{{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	if stockOf(t, svc, p.ID) != 27 {
		t.Fatalf("qty 5 -> 3 must net +2 (30-5+2=27), got %d", stockOf(t, svc, p.ID))
	}
}

func TestUpdateWithUnchangedItemsIsIdempotent(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Headset Stabil", 99000, 12)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   198000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	before := stockOf(t, svc, p.ID)

	updated, err := svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   198000,
		Items:       []domain.SaleItemInput{{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	if stockOf(t, svc, p.ID) != before {
		t.Fatalf("unchanged item set must not move stock: before=%d after=%d", before, stockOf(t, svc, p.ID))
	}
	if updated.SubtotalCents != tx.SubtotalCents || updated.OutstandingCents != tx.OutstandingCents {
		t.Fatalf("unchanged item set must keep totals")
	}
}

func TestUpdateRejectsDuplicateLineItemIDs(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Casing Ganda", 15000, 30)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   30000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	lineID := tx.Items[0].ID
	before := stockOf(t, svc, p.ID)

	_, err = svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   75000,
		Items: []domain.SaleItemInput{
			{LineItemID: lineID, ProductID: p.ID, Qty: 2},
			{LineItemID: lineID, ProductID: p.ID, Qty: 3},
		},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("two payload items sharing a line_item_id must fail with ErrValidation, got %v", err)
	}

	reread, err := svc.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	if len(reread.Items) != 1 || reread.Items[0].Qty != 2 {
		t.Fatalf("rejected update must leave the line set untouched, got %+v", reread.Items)
	}
	if reread.SubtotalCents != tx.SubtotalCents {
		t.Fatalf("rejected update must keep subtotal %d, got %d", tx.SubtotalCents, reread.SubtotalCents)
	}
	if stockOf(t, svc, p.ID) != before {
		t.Fatalf("rejected update must not move stock: before=%d after=%d", before, stockOf(t, svc, p.ID))
	}
}

func TestUpdateInsufficientStockLeavesStateUntouched(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Charger Terbatas", 145000, 5)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   290000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	_, err = svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   290000,
		Items:       []domain.SaleItemInput{{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 9}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
	if stockOf(t, svc, p.ID) != 3 {
		t.Fatalf("failed update must not change stock, got %d", stockOf(t, svc, p.ID))
	}

	reread, err := svc.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	if reread.Items[0].Qty != 2 {
		t.Fatalf("failed update must not change line items, got qty %d", reread.Items[0].Qty)
	}
}

func TestUpdateKeepsHistoricalUnitPriceForKeptLines(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Casing Naik Harga", 40000, 20)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   80000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	newPrice := int64(55000)
	if _, err := svc.UpdateProduct(adminCtx(), p.ID, domain.ProductUpdateRequest{PriceCents: &newPrice}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	updated, err := svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   120000,
		Items:       []domain.SaleItemInput{{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	if updated.Items[0].UnitPriceCents != 40000 {
		t.Fatalf("kept line must preserve its frozen unit price, got %d", updated.Items[0].UnitPriceCents)
	}
	if updated.SubtotalCents != 120000 {
		t.Fatalf("expected subtotal 3*40000=120000, got %d", updated.SubtotalCents)
	}

	again, err := svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "cash",
		PaidCents:   175000,
		Items: []domain.SaleItemInput{
			{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 3},
			{ProductID: p.ID, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	var freshLine *domain.LineItem
	for i := range again.Items {
		if again.Items[i].ID != tx.Items[0].ID {
			freshLine = &again.Items[i]
		}
	}
	if freshLine == nil {
		t.Fatalf("expected a second line item")
	}
	if freshLine.UnitPriceCents != 55000 {
		t.Fatalf("new line must snapshot the current sale price, got %d", freshLine.UnitPriceCents)
	}
}

func TestDeleteTransactionRestoresStock(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Tempered Hapus", 20000, 15)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   40000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if stockOf(t, svc, p.ID) != 13 {
		t.Fatalf("expected stock 13 after sale, got %d", stockOf(t, svc, p.ID))
	}

	if err := svc.DeleteTransaction(cashierCtx(), tx.ID); err != nil {
		t.Fatalf("delete transaction failed: %v", err)
	}
	if stockOf(t, svc, p.ID) != 15 {
		t.Fatalf("delete must restore stock exactly, got %d", stockOf(t, svc, p.ID))
	}

	if err := svc.DeleteTransaction(cashierCtx(), tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleting an already-deleted id must be ErrNotFound, got %v", err)
	}
	if _, err := svc.GetTransaction(context.Background(), tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("deleted transaction must be gone, got %v", err)
	}
}

func TestReturnRestoresStockAndCapsCumulativeQty(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Kabel Retur", 25000, 40)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   125000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 5}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	ret, err := svc.CreateReturn(cashierCtx(), tx.ID, domain.ReturnCreateRequest{
		Reason: "kemasan rusak",
		Items:  []domain.ReturnItemInput{{LineItemID: tx.Items[0].ID, Qty: 3}},
	})
	if err != nil {
		t.Fatalf("create return failed: %v", err)
	}
	if ret.TotalRefundCents != 75000 {
		t.Fatalf("expected refund 3*25000=75000, got %d", ret.TotalRefundCents)
	}
	if ret.Lines[0].UnitPriceCents != 25000 {
		t.Fatalf("return line must freeze the original unit price, got %d", ret.Lines[0].UnitPriceCents)
	}
	if stockOf(t, svc, p.ID) != 38 {
		t.Fatalf("expected stock 40-5+3=38, got %d", stockOf(t, svc, p.ID))
	}

	reread, err := svc.GetTransaction(context.Background(), tx.ID)
	if err != nil {
		t.Fatalf("get transaction failed: %v", err)
	}
	if reread.Items[0].Qty != 5 {
		t.Fatalf("original line item must stay untouched by the return, got qty %d", reread.Items[0].Qty)
	}
	if reread.RefundedCents != 75000 {
		t.Fatalf("expected refunded total 75000, got %d", reread.RefundedCents)
	}

	_, err = svc.CreateReturn(cashierCtx(), tx.ID, domain.ReturnCreateRequest{
		Reason: "retur kedua",
		Items:  []domain.ReturnItemInput{{LineItemID: tx.Items[0].ID, Qty: 3}},
	})
	if !errors.Is(err, store.ErrExceedsPurchased) {
		t.Fatalf("3+3 > 5 must fail with ErrExceedsPurchased, got %v", err)
	}
	if stockOf(t, svc, p.ID) != 38 {
		t.Fatalf("failed return must not change stock, got %d", stockOf(t, svc, p.ID))
	}
}

func TestReturnEligibilityPolicy(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Powerbank Kredit", 165000, 10)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-12-01",
		PaidCents:   50000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	_, err = svc.CreateReturn(cashierCtx(), tx.ID, domain.ReturnCreateRequest{
		Reason: "tidak cocok",
		Items:  []domain.ReturnItemInput{{LineItemID: tx.Items[0].ID, Qty: 1}},
	})
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("credit transaction must be blocked by the cash-only policy, got %v", err)
	}

	open := New(memory.NewSeeded(), Options{ReturnEligibility: AnyModeReturns})
	p2 := createTestProduct(t, open, "Powerbank Kredit 2", 165000, 10)
	tx2, err := open.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-12-01",
		PaidCents:   50000,
		Items:       []domain.SaleItemInput{{ProductID: p2.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if _, err := open.CreateReturn(cashierCtx(), tx2.ID, domain.ReturnCreateRequest{
		Reason: "tidak cocok",
		Items:  []domain.ReturnItemInput{{LineItemID: tx2.Items[0].ID, Qty: 1}},
	}); err != nil {
		t.Fatalf("permissive policy must allow credit returns: %v", err)
	}
}

func TestReturnEligibilityEnforcedByStore(t *testing.T) {
	repo := memory.NewSeeded()
	svc := New(repo, Options{ReturnEligibility: AnyModeReturns})
	p := createTestProduct(t, svc, "Headset Kredit", 99000, 10)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-12-01",
		PaidCents:   10000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 2}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}

	// The predicate is evaluated against the stored transaction, with no
	// caller-side snapshot check in front of it.
	_, err = repo.CreateReturn(context.Background(), domain.Return{
		TransactionID: tx.ID,
		Reason:        "salah mode",
		Lines:         []domain.ReturnLine{{LineItemID: tx.Items[0].ID, Qty: 1}},
	}, CashOnlyReturns)
	if !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("store must enforce the eligibility predicate, got %v", err)
	}
	if stockOf(t, svc, p.ID) != 8 {
		t.Fatalf("rejected return must not restock, got %d", stockOf(t, svc, p.ID))
	}
}

func TestSettledCreditReclassifiesToCash(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Charger Cicilan", 145000, 10)

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-11-15",
		PaidCents:   50000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if tx.OutstandingCents != 95000 {
		t.Fatalf("expected outstanding 95000, got %d", tx.OutstandingCents)
	}

	updated, err := svc.UpdateTransaction(cashierCtx(), tx.ID, domain.TransactionUpdateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-11-15",
		PaidCents:   145000,
		Items:       []domain.SaleItemInput{{LineItemID: tx.Items[0].ID, ProductID: p.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	if updated.PaymentMode != domain.PaymentModeCash {
		t.Fatalf("settled credit must reclassify to cash, got %s", updated.PaymentMode)
	}
	if updated.DueDate != "" {
		t.Fatalf("reclassified transaction must clear its due date, got %q", updated.DueDate)
	}

	fixed := New(memory.NewSeeded(), Options{ReclassifySettledCredit: false})
	p2 := createTestProduct(t, fixed, "Charger Cicilan 2", 145000, 10)
	tx2, err := fixed.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-11-15",
		PaidCents:   50000,
		Items:       []domain.SaleItemInput{{ProductID: p2.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	kept, err := fixed.UpdateTransaction(cashierCtx(), tx2.ID, domain.TransactionUpdateRequest{
		PaymentMode: "credit",
		DueDate:     "2026-11-15",
		PaidCents:   145000,
		Items:       []domain.SaleItemInput{{LineItemID: tx2.Items[0].ID, ProductID: p2.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("update transaction failed: %v", err)
	}
	if kept.PaymentMode != domain.PaymentModeCredit {
		t.Fatalf("reclassification disabled must keep credit mode, got %s", kept.PaymentMode)
	}
}

func TestCatalogDeletionGuards(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Casing Terpakai", 15000, 5)

	if err := svc.DeleteCategory(adminCtx(), "cat_case"); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("category with products must not be deletable, got %v", err)
	}
	if err := svc.DeleteBrand(adminCtx(), "brd_robot"); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("brand with products must not be deletable, got %v", err)
	}

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   15000,
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if err := svc.DeleteProduct(adminCtx(), p.ID); !errors.Is(err, store.ErrInvalidState) {
		t.Fatalf("product referenced by a sale must not be deletable, got %v", err)
	}

	if err := svc.DeleteTransaction(cashierCtx(), tx.ID); err != nil {
		t.Fatalf("delete transaction failed: %v", err)
	}
	if err := svc.DeleteProduct(adminCtx(), p.ID); err != nil {
		t.Fatalf("product should be deletable once unreferenced: %v", err)
	}
}

func TestCreateTransactionRequiresKnownCustomer(t *testing.T) {
	svc := newTestService()
	p := createTestProduct(t, svc, "Casing Pelanggan", 15000, 5)

	_, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   15000,
		CustomerID:  "cus_missing",
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("unknown customer must fail with ErrNotFound, got %v", err)
	}

	tx, err := svc.CreateTransaction(cashierCtx(), domain.TransactionCreateRequest{
		PaymentMode: "cash",
		PaidCents:   15000,
		CustomerID:  "cus_01",
		Items:       []domain.SaleItemInput{{ProductID: p.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("create transaction failed: %v", err)
	}
	if tx.CustomerID != "cus_01" {
		t.Fatalf("expected customer reference to persist, got %q", tx.CustomerID)
	}
}
