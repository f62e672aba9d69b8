package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/FrankovDmutro/Store-inventory-system/internal/cache"
	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store/memory"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), cache.NoopStockCache{}, decimal.NewFromInt(5))
}

func managerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "manager", Role: domain.RoleManager})
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func createProduct(t *testing.T, svc *Service, ctx context.Context, sku string, price, cost, stock string) domain.Product {
	t.Helper()
	p, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		CategoryID:    "cat-food",
		SupplierID:    "sup-acme",
		SKU:           sku,
		Name:          "Test " + sku,
		Price:         dec(price),
		PurchasePrice: dec(cost),
		InitialStock:  dec(stock),
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	return p
}

func TestCheckoutComputesTotalsAndDecrementsStock(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-WIDGET", "12", "7", "5")

	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: p.ID, Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.TotalPrice.Equal(dec("24")) {
		t.Fatalf("expected total 24.00, got %s", order.TotalPrice)
	}
	if !order.TotalProfit.Equal(dec("10")) {
		t.Fatalf("expected profit 10.00, got %s", order.TotalProfit)
	}

	got, err := svc.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	if !got.Quantity.Equal(dec("3")) {
		t.Fatalf("expected 3 left in stock, got %s", got.Quantity)
	}
}

func TestCheckoutSnapshotsPriceAtSaleTime(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-SNAP", "12", "7", "10")

	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: p.ID, Quantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	newPrice := dec("99")
	if _, err := svc.UpdateProduct(ctx, p.ID, domain.ProductUpdateRequest{Price: &newPrice}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	reloaded, err := svc.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatalf("get order failed: %v", err)
	}
	if !reloaded.Items[0].Price.Equal(dec("12")) {
		t.Fatalf("expected snapshotted price 12, got %s", reloaded.Items[0].Price)
	}
	if !reloaded.TotalPrice.Equal(dec("12")) {
		t.Fatalf("expected total 12, got %s", reloaded.TotalPrice)
	}
}

func TestCheckoutRejectsWholeCartOnInsufficientStock(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	a := createProduct(t, svc, ctx, "TST-A", "10", "5", "5")
	b := createProduct(t, svc, ctx, "TST-B", "10", "5", "1")

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{
			{ProductID: a.ID, Quantity: dec("2")},
			{ProductID: b.ID, Quantity: dec("3")},
		},
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError, got %v", err)
	}
	if insufficient.ProductID != b.ID {
		t.Fatalf("expected error to name %s, got %s", b.ID, insufficient.ProductID)
	}
	if !insufficient.Available.Equal(dec("1")) {
		t.Fatalf("expected available 1, got %s", insufficient.Available)
	}

	// No partial effects on either line.
	gotA, _ := svc.GetProduct(ctx, a.ID)
	gotB, _ := svc.GetProduct(ctx, b.ID)
	if !gotA.Quantity.Equal(dec("5")) || !gotB.Quantity.Equal(dec("1")) {
		t.Fatalf("expected untouched stock 5 and 1, got %s and %s", gotA.Quantity, gotB.Quantity)
	}
}

func TestCheckoutAggregatesDuplicateLines(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-DUP", "10", "5", "5")

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{
			{ProductID: p.ID, Quantity: dec("3")},
			{ProductID: p.ID, Quantity: dec("3")},
		},
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError for summed lines, got %v", err)
	}
}

func TestCheckoutRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-apple", Quantity: decimal.Zero}},
	})
	var invalid *domain.InvalidQuantityError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidQuantityError, got %v", err)
	}
}

func TestCheckoutFractionalQuantities(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// Seeded cheese: 2.5 on hand at 95.00 / 70.00.
	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-cheese", Quantity: dec("0.5")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if !order.TotalPrice.Equal(dec("47.5")) {
		t.Fatalf("expected total 47.50, got %s", order.TotalPrice)
	}

	got, _ := svc.GetProduct(ctx, "prd-cheese")
	if !got.Quantity.Equal(dec("2")) {
		t.Fatalf("expected 2 left, got %s", got.Quantity)
	}
}

func TestPurchaseDraftGroupsBySupplier(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	result, err := svc.CreatePurchaseDrafts(ctx, domain.PurchaseDraftRequest{
		Lines: []domain.PurchaseDraftLine{
			{ProductID: "prd-apple", Quantity: dec("10"), UnitCost: dec("4.50")},
			{ProductID: "prd-milk", Quantity: dec("6")},
			{ProductID: "prd-bread", Quantity: dec("12")},
			{ProductID: "prd-soap", Quantity: dec("5")},
		},
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	if len(result.Purchases) != 2 {
		t.Fatalf("expected 2 purchases, got %d", len(result.Purchases))
	}
	if len(result.Skipped) != 1 || result.Skipped[0].ProductID != "prd-soap" {
		t.Fatalf("expected soap skipped, got %+v", result.Skipped)
	}

	bySupplier := map[string]domain.Purchase{}
	for _, p := range result.Purchases {
		if p.Status != domain.PurchaseStatusDraft {
			t.Fatalf("expected draft status, got %s", p.Status)
		}
		bySupplier[p.SupplierID] = p
	}
	acme := bySupplier["sup-acme"]
	if len(acme.Items) != 1 || !acme.TotalCost.Equal(dec("45")) {
		t.Fatalf("expected acme total 45.00, got %s with %d items", acme.TotalCost, len(acme.Items))
	}
	// Milk line had no unit cost; the product's purchase price 24.00 fills in.
	beta := bySupplier["sup-beta"]
	want := dec("6").Mul(dec("24")).Add(dec("12").Mul(dec("11.50")))
	if len(beta.Items) != 2 || !beta.TotalCost.Equal(want) {
		t.Fatalf("expected beta total %s, got %s with %d items", want, beta.TotalCost, len(beta.Items))
	}

	// A draft has no stock effect.
	apple, _ := svc.GetProduct(ctx, "prd-apple")
	if !apple.Quantity.Equal(dec("50")) {
		t.Fatalf("expected apple stock untouched at 50, got %s", apple.Quantity)
	}
}

func TestPurchaseDraftPinnedSupplier(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	result, err := svc.CreatePurchaseDrafts(ctx, domain.PurchaseDraftRequest{
		SupplierID: "sup-acme",
		Lines: []domain.PurchaseDraftLine{
			{ProductID: "prd-soap", Quantity: dec("5"), UnitCost: dec("14")},
			{ProductID: "prd-milk", Quantity: dec("6"), UnitCost: dec("24")},
		},
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	if len(result.Purchases) != 1 || len(result.Skipped) != 0 {
		t.Fatalf("expected single pinned purchase, got %d purchases %d skipped",
			len(result.Purchases), len(result.Skipped))
	}
	if result.Purchases[0].SupplierID != "sup-acme" {
		t.Fatalf("expected pinned supplier, got %s", result.Purchases[0].SupplierID)
	}
}

func receiveFlow(t *testing.T, svc *Service, ctx context.Context, purchaseID string) {
	t.Helper()
	if _, err := svc.SetPurchaseStatus(ctx, purchaseID, domain.PurchaseStatusOrdered); err != nil {
		t.Fatalf("ordered transition failed: %v", err)
	}
	if _, err := svc.SetPurchaseStatus(ctx, purchaseID, domain.PurchaseStatusReceived); err != nil {
		t.Fatalf("received transition failed: %v", err)
	}
}

func TestPurchaseReceiveAppliesStockExactlyOnce(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-RCV", "12", "7", "1")

	result, err := svc.CreatePurchaseDrafts(ctx, domain.PurchaseDraftRequest{
		Lines: []domain.PurchaseDraftLine{{ProductID: p.ID, Quantity: dec("3"), UnitCost: dec("7")}},
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	purchaseID := result.Purchases[0].ID

	receiveFlow(t, svc, ctx, purchaseID)
	got, _ := svc.GetProduct(ctx, p.ID)
	if !got.Quantity.Equal(dec("4")) {
		t.Fatalf("expected stock 4 after receive, got %s", got.Quantity)
	}

	// Saving the received purchase again must not double-apply.
	updated, err := svc.SetPurchaseStatus(ctx, purchaseID, domain.PurchaseStatusReceived)
	if err != nil {
		t.Fatalf("replayed receive should succeed, got %v", err)
	}
	if !updated.ReceivedApplied {
		t.Fatalf("expected received_applied to stay set")
	}
	got, _ = svc.GetProduct(ctx, p.ID)
	if !got.Quantity.Equal(dec("4")) {
		t.Fatalf("expected stock still 4 after replay, got %s", got.Quantity)
	}
}

func TestPurchaseStateMachine(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	result, err := svc.CreatePurchaseDrafts(ctx, domain.PurchaseDraftRequest{
		Lines: []domain.PurchaseDraftLine{{ProductID: "prd-apple", Quantity: dec("5"), UnitCost: dec("5")}},
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	id := result.Purchases[0].ID

	// draft → received skips ordered and is rejected.
	_, err = svc.SetPurchaseStatus(ctx, id, domain.PurchaseStatusReceived)
	var invalid *domain.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}

	if _, err := svc.SetPurchaseStatus(ctx, id, domain.PurchaseStatusCancelled); err != nil {
		t.Fatalf("cancel from draft failed: %v", err)
	}
	if _, err := svc.SetPurchaseStatus(ctx, id, domain.PurchaseStatusOrdered); !errors.As(err, &invalid) {
		t.Fatalf("expected cancelled purchase to be frozen, got %v", err)
	}

	// Cancellation has no stock effect.
	apple, _ := svc.GetProduct(ctx, "prd-apple")
	if !apple.Quantity.Equal(dec("50")) {
		t.Fatalf("expected apple stock 50, got %s", apple.Quantity)
	}
}

func TestUpdatePurchaseItemsRecomputesTotal(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	result, err := svc.CreatePurchaseDrafts(ctx, domain.PurchaseDraftRequest{
		Lines: []domain.PurchaseDraftLine{{ProductID: "prd-apple", Quantity: dec("5"), UnitCost: dec("5")}},
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	id := result.Purchases[0].ID

	updated, err := svc.UpdatePurchaseItems(ctx, id, []domain.PurchaseItem{
		{ProductID: "prd-apple", Quantity: dec("8"), UnitCost: dec("4.75")},
		{ProductID: "prd-cheese", Quantity: dec("2"), UnitCost: dec("68")},
	})
	if err != nil {
		t.Fatalf("update items failed: %v", err)
	}
	want := dec("8").Mul(dec("4.75")).Add(dec("2").Mul(dec("68")))
	if !updated.TotalCost.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, updated.TotalCost)
	}

	receiveFlow(t, svc, ctx, id)
	if _, err := svc.UpdatePurchaseItems(ctx, id, []domain.PurchaseItem{
		{ProductID: "prd-apple", Quantity: dec("1"), UnitCost: dec("5")},
	}); err == nil {
		t.Fatalf("expected received purchase items to be frozen")
	}
}

func TestReturnBoundedBySoldQuantity(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-RET", "12", "7", "5")

	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: p.ID, Quantity: dec("3")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	ret, err := svc.ProcessReturn(ctx, order.ID, domain.ReturnRequest{
		Reason: domain.ReturnReasonDefective,
		Lines:  []domain.CartLine{{ProductID: p.ID, Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("first return failed: %v", err)
	}
	if !ret.TotalRefund().Equal(dec("24")) {
		t.Fatalf("expected refund 24.00, got %s", ret.TotalRefund())
	}
	if !ret.TotalLoss().Equal(dec("10")) {
		t.Fatalf("expected loss 10.00, got %s", ret.TotalLoss())
	}

	got, _ := svc.GetProduct(ctx, p.ID)
	if !got.Quantity.Equal(dec("4")) {
		t.Fatalf("expected stock back to 4, got %s", got.Quantity)
	}

	// Only 1 of 3 is still returnable.
	_, err = svc.ProcessReturn(ctx, order.ID, domain.ReturnRequest{
		Reason: domain.ReturnReasonChangedMind,
		Lines:  []domain.CartLine{{ProductID: p.ID, Quantity: dec("2")}},
	})
	var over *domain.OverReturnError
	if !errors.As(err, &over) {
		t.Fatalf("expected OverReturnError, got %v", err)
	}
	if !over.Available.Equal(dec("1")) {
		t.Fatalf("expected 1 returnable, got %s", over.Available)
	}

	if _, err := svc.ProcessReturn(ctx, order.ID, domain.ReturnRequest{
		Reason: domain.ReturnReasonChangedMind,
		Lines:  []domain.CartLine{{ProductID: p.ID, Quantity: dec("1")}},
	}); err != nil {
		t.Fatalf("boundary return of the last unit failed: %v", err)
	}
}

func TestReturnUsesOrderSnapshotsNotCurrentPrice(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-RETSNAP", "12", "7", "5")

	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: p.ID, Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	newPrice := dec("20")
	newCost := dec("15")
	if _, err := svc.UpdateProduct(ctx, p.ID, domain.ProductUpdateRequest{
		Price: &newPrice, PurchasePrice: &newCost,
	}); err != nil {
		t.Fatalf("update product failed: %v", err)
	}

	ret, err := svc.ProcessReturn(ctx, order.ID, domain.ReturnRequest{
		Reason: domain.ReturnReasonWrongItem,
		Lines:  []domain.CartLine{{ProductID: p.ID, Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("return failed: %v", err)
	}
	if !ret.TotalRefund().Equal(dec("24")) {
		t.Fatalf("refund must use sale-time price: want 24.00, got %s", ret.TotalRefund())
	}
	if !ret.TotalLoss().Equal(dec("10")) {
		t.Fatalf("loss must use sale-time margin: want 10.00, got %s", ret.TotalLoss())
	}
}

func TestReturnRejectsProductNotOnOrder(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-apple", Quantity: dec("1")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	_, err = svc.ProcessReturn(ctx, order.ID, domain.ReturnRequest{
		Reason: domain.ReturnReasonOther,
		Lines: []domain.CartLine{
			{ProductID: "prd-apple", Quantity: dec("1")},
			{ProductID: "prd-bread", Quantity: dec("1")},
		},
	})
	var notOnOrder *domain.ProductNotOnOrderError
	if !errors.As(err, &notOnOrder) {
		t.Fatalf("expected ProductNotOnOrderError, got %v", err)
	}

	// The valid apple line must not have been applied.
	apple, _ := svc.GetProduct(ctx, "prd-apple")
	if !apple.Quantity.Equal(dec("49")) {
		t.Fatalf("expected apple stock 49, got %s", apple.Quantity)
	}
}

func TestWriteOffDecrementsAndSnapshotsCost(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-WO", "12", "7", "5")

	w, err := svc.CreateWriteOff(ctx, domain.WriteOffRequest{
		ProductID: p.ID,
		Quantity:  dec("2"),
		Reason:    domain.WriteOffReasonDamage,
	})
	if err != nil {
		t.Fatalf("write-off failed: %v", err)
	}
	if !w.PurchasePrice.Equal(dec("7")) {
		t.Fatalf("expected snapshotted cost 7, got %s", w.PurchasePrice)
	}
	if !w.TotalLoss().Equal(dec("14")) {
		t.Fatalf("expected loss 14.00, got %s", w.TotalLoss())
	}

	got, _ := svc.GetProduct(ctx, p.ID)
	if !got.Quantity.Equal(dec("3")) {
		t.Fatalf("expected stock 3, got %s", got.Quantity)
	}

	_, err = svc.CreateWriteOff(ctx, domain.WriteOffRequest{
		ProductID: p.ID,
		Quantity:  dec("4"),
		Reason:    domain.WriteOffReasonExpiry,
	})
	var insufficient *domain.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientStockError on overdraw, got %v", err)
	}

	if _, err := svc.CreateWriteOff(ctx, domain.WriteOffRequest{
		ProductID: p.ID, Quantity: dec("1"), Reason: "shrinkage",
	}); err == nil {
		t.Fatalf("expected unknown reason to be rejected")
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-RACE", "10", "5", "10")

	const attempts = 25
	var wg sync.WaitGroup
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Checkout(ctx, domain.CheckoutRequest{
				Lines: []domain.CartLine{{ProductID: p.ID, Quantity: dec("1")}},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		var insufficient *domain.InsufficientStockError
		if !errors.As(err, &insufficient) {
			t.Fatalf("unexpected checkout error: %v", err)
		}
	}
	if succeeded != 10 {
		t.Fatalf("expected exactly 10 checkouts to succeed, got %d", succeeded)
	}

	got, _ := svc.GetProduct(ctx, p.ID)
	if !got.Quantity.Equal(decimal.Zero) {
		t.Fatalf("expected stock 0, got %s", got.Quantity)
	}
}

func TestConcurrentReceiveAppliesOnce(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-RACE-RCV", "10", "5", "0")

	result, err := svc.CreatePurchaseDrafts(ctx, domain.PurchaseDraftRequest{
		Lines: []domain.PurchaseDraftLine{{ProductID: p.ID, Quantity: dec("7"), UnitCost: dec("5")}},
	})
	if err != nil {
		t.Fatalf("draft failed: %v", err)
	}
	id := result.Purchases[0].ID
	if _, err := svc.SetPurchaseStatus(ctx, id, domain.PurchaseStatusOrdered); err != nil {
		t.Fatalf("ordered transition failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.SetPurchaseStatus(ctx, id, domain.PurchaseStatusReceived); err != nil {
				t.Errorf("concurrent receive failed: %v", err)
			}
		}()
	}
	wg.Wait()

	got, _ := svc.GetProduct(ctx, p.ID)
	if !got.Quantity.Equal(dec("7")) {
		t.Fatalf("expected stock applied exactly once (7), got %s", got.Quantity)
	}
}

func TestSearchProductsSplitsByCategory(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	// "m" matches Milk by name and several SKUs.
	result, err := svc.SearchProducts(ctx, "milk", "cat-drinks")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(result.Here) != 1 || result.Here[0].ID != "prd-milk" {
		t.Fatalf("expected milk in the requested category, got %+v", result.Here)
	}

	result, err = svc.SearchProducts(ctx, "milk", "cat-food")
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(result.Here) != 0 || len(result.Others) != 1 {
		t.Fatalf("expected milk outside cat-food, got here=%d others=%d", len(result.Here), len(result.Others))
	}
}

func TestExpiryReportBuckets(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{
		CategoryID:    "cat-food",
		SKU:           "TST-OLD",
		Name:          "Old Yogurt",
		Price:         dec("10"),
		PurchasePrice: dec("6"),
		InitialStock:  dec("3"),
		ExpiryDate:    "2020-01-01",
	}); err != nil {
		t.Fatalf("create product failed: %v", err)
	}

	report, err := svc.ExpiryReport(ctx)
	if err != nil {
		t.Fatalf("expiry report failed: %v", err)
	}
	foundExpired := false
	for _, p := range report.Expired {
		if p.SKU == "TST-OLD" {
			foundExpired = true
		}
	}
	if !foundExpired {
		t.Fatalf("expected TST-OLD in expired bucket")
	}
	foundSoon := false
	for _, p := range report.ExpiringSoon {
		if p.ID == "prd-milk" {
			foundSoon = true
		}
	}
	if !foundSoon {
		t.Fatalf("expected seeded milk in expiring-soon bucket")
	}
}

func TestLowStockUsesThreshold(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	levels, err := svc.LowStock(ctx)
	if err != nil {
		t.Fatalf("low stock failed: %v", err)
	}
	found := false
	for _, lvl := range levels {
		if lvl.ProductID == "prd-cheese" {
			found = true
		}
		if lvl.Quantity.Cmp(dec("5")) > 0 {
			t.Fatalf("product %s above threshold in low-stock list", lvl.ProductID)
		}
	}
	if !found {
		t.Fatalf("expected cheese (2.5 on hand) in low-stock list")
	}
}

func TestReceiptHTML(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()

	order, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-apple", Quantity: dec("2")}},
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	html, err := svc.ReceiptHTML(ctx, order.ID)
	if err != nil {
		t.Fatalf("receipt failed: %v", err)
	}
	body := string(html)
	if !strings.Contains(body, "Apple") {
		t.Fatalf("expected product name in receipt")
	}
	if !strings.Contains(body, "20.00") {
		t.Fatalf("expected total 20.00 in receipt, got:\n%s", body)
	}
}

func TestDeleteProductProtectedAfterSale(t *testing.T) {
	svc := newTestService()
	ctx := managerCtx()
	p := createProduct(t, svc, ctx, "TST-DEL", "10", "5", "5")

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: p.ID, Quantity: dec("1")}},
	}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	err := svc.DeleteProduct(ctx, p.ID)
	var referenced *domain.ProductReferencedError
	if !errors.As(err, &referenced) {
		t.Fatalf("expected ProductReferencedError, got %v", err)
	}

	fresh := createProduct(t, svc, ctx, "TST-DEL2", "10", "5", "5")
	if err := svc.DeleteProduct(ctx, fresh.ID); err != nil {
		t.Fatalf("delete of unreferenced product failed: %v", err)
	}
}

func TestAuditTrailRecordsActor(t *testing.T) {
	svc := newTestService()
	ctx := WithActor(context.Background(), domain.Actor{Username: "cashier", Role: domain.RoleCashier})

	if _, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Lines: []domain.CartLine{{ProductID: "prd-apple", Quantity: dec("1")}},
	}); err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	logs, err := svc.ListAuditLogs(ctx, 10)
	if err != nil {
		t.Fatalf("list audit logs failed: %v", err)
	}
	found := false
	for _, entry := range logs {
		if entry.Action == "checkout" && entry.ActorUsername == "cashier" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected checkout audit entry for cashier, got %+v", logs)
	}
}
