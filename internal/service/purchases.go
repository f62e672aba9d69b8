package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
	"github.com/FrankovDmutro/Store-inventory-system/internal/util"
)

// CreatePurchaseDrafts turns a flat list of restock lines into one draft
// purchase per supplier. Lines for products without a supplier cannot be
// ordered and are reported back as skipped rather than failing the batch,
// unless the request pins an explicit supplier for every line.
func (s *Service) CreatePurchaseDrafts(ctx context.Context, req domain.PurchaseDraftRequest) (domain.PurchaseDraftResult, error) {
	result := domain.PurchaseDraftResult{
		Purchases: []domain.Purchase{},
		Skipped:   []domain.SkippedLine{},
	}
	if len(req.Lines) == 0 {
		return result, fmt.Errorf("empty draft: %w", store.ErrInvalidInput)
	}

	ids := make([]string, 0, len(req.Lines))
	seen := make(map[string]bool, len(req.Lines))
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return result, &domain.InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
		if line.UnitCost.IsNegative() {
			return result, store.ErrInvalidInput
		}
		if !seen[line.ProductID] {
			seen[line.ProductID] = true
			ids = append(ids, line.ProductID)
		}
	}

	products, err := s.repo.GetProductsByIDs(ctx, ids)
	if err != nil {
		return result, err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			return result, &domain.ProductNotFoundError{ProductID: id}
		}
	}

	grouped, skipped := groupDraftLines(req, products)
	result.Skipped = skipped

	supplierIDs := make([]string, 0, len(grouped))
	for supplierID := range grouped {
		supplierIDs = append(supplierIDs, supplierID)
	}
	sort.Strings(supplierIDs)

	for _, supplierID := range supplierIDs {
		var expected *time.Time
		if raw, ok := req.ExpectedDates[supplierID]; ok && raw != "" {
			parsed, err := parseExpectedDate(raw)
			if err != nil {
				return result, fmt.Errorf("expected date for supplier %s: %w", supplierID, store.ErrInvalidInput)
			}
			expected = &parsed
		}

		created, err := s.repo.CreatePurchase(ctx, domain.Purchase{
			SupplierID:   supplierID,
			Status:       domain.PurchaseStatusDraft,
			ExpectedDate: expected,
			Items:        grouped[supplierID],
		})
		if err != nil {
			return result, err
		}
		result.Purchases = append(result.Purchases, *created)
		s.logAudit(ctx, "purchase_draft", "purchase", created.ID,
			fmt.Sprintf("supplier=%s,lines=%d,total=%s", supplierID, len(created.Items), created.TotalCost))
	}
	return result, nil
}

// groupDraftLines assigns each line to a supplier purchase. With a pinned
// supplier everything lands on one purchase; otherwise each product's own
// supplier decides, and supplier-less lines are skipped.
func groupDraftLines(req domain.PurchaseDraftRequest, products map[string]domain.Product) (map[string][]domain.PurchaseItem, []domain.SkippedLine) {
	grouped := make(map[string][]domain.PurchaseItem)
	skipped := make([]domain.SkippedLine, 0)

	for _, line := range req.Lines {
		supplierID := req.SupplierID
		if supplierID == "" {
			supplierID = products[line.ProductID].SupplierID
		}
		if supplierID == "" {
			skipped = append(skipped, domain.SkippedLine{
				ProductID: line.ProductID,
				Reason:    "product has no supplier",
			})
			continue
		}

		unitCost := line.UnitCost
		if unitCost.IsZero() {
			unitCost = products[line.ProductID].PurchasePrice
		}
		grouped[supplierID] = append(grouped[supplierID], domain.PurchaseItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitCost:  unitCost,
		})
	}
	return grouped, skipped
}

func parseExpectedDate(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(expiryDateLayout, raw)
}

func (s *Service) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	return s.repo.GetPurchase(ctx, id)
}

func (s *Service) ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error) {
	if status != "" && !validPurchaseStatus(status) {
		return nil, fmt.Errorf("unknown purchase status %q: %w", status, store.ErrInvalidInput)
	}
	return s.repo.ListPurchases(ctx, status, limit)
}

func validPurchaseStatus(status string) bool {
	switch status {
	case domain.PurchaseStatusDraft, domain.PurchaseStatusOrdered,
		domain.PurchaseStatusReceived, domain.PurchaseStatusCancelled:
		return true
	}
	return false
}

// SetPurchaseStatus moves a purchase through draft → ordered → received,
// with cancellation from draft or ordered. Entering received applies the
// items to stock exactly once; saving received again is a successful no-op.
func (s *Service) SetPurchaseStatus(ctx context.Context, id string, status string) (*domain.Purchase, error) {
	if !validPurchaseStatus(status) {
		return nil, fmt.Errorf("unknown purchase status %q: %w", status, store.ErrInvalidInput)
	}

	updated, err := s.repo.SetPurchaseStatus(ctx, id, status)
	if err != nil {
		var invalid *domain.InvalidTransitionError
		if status == domain.PurchaseStatusReceived && errors.As(err, &invalid) &&
			invalid.From == domain.PurchaseStatusReceived {
			// Replayed save of the received form. The receipt guard makes
			// this a no-op, reported as success.
			receipt, applyErr := s.repo.ApplyPurchaseReceipt(ctx, id)
			if applyErr != nil {
				return nil, applyErr
			}
			if receipt.AlreadyApplied {
				util.PurchaseReceiptReplaysTotal.Inc()
			}
			return s.repo.GetPurchase(ctx, id)
		}
		return nil, err
	}

	if status == domain.PurchaseStatusReceived {
		util.PurchaseReceiptsAppliedTotal.Inc()
		s.invalidateLowStock(ctx)
	}
	s.logAudit(ctx, "purchase_status", "purchase", id, "status="+status)
	return updated, nil
}

// UpdatePurchaseItems replaces the line items of an editable purchase and
// recomputes its total cost. Received and cancelled purchases are frozen.
func (s *Service) UpdatePurchaseItems(ctx context.Context, id string, items []domain.PurchaseItem) (*domain.Purchase, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("empty item list: %w", store.ErrInvalidInput)
	}
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
	}

	updated, err := s.repo.ReplacePurchaseItems(ctx, id, items)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, "purchase_items", "purchase", id,
		fmt.Sprintf("lines=%d,total=%s", len(updated.Items), updated.TotalCost))
	return updated, nil
}
