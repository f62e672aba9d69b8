package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
)

const expiryDateLayout = "2006-01-02"

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	p, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *p, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.SKU = strings.ToUpper(strings.TrimSpace(req.SKU))
	req.Name = strings.TrimSpace(req.Name)
	if req.SKU == "" || req.Name == "" || req.CategoryID == "" {
		return domain.Product{}, store.ErrInvalidInput
	}
	if req.Price.IsNegative() || req.PurchasePrice.IsNegative() || req.InitialStock.IsNegative() {
		return domain.Product{}, store.ErrInvalidInput
	}

	var expiry *time.Time
	if req.ExpiryDate != "" {
		parsed, err := time.Parse(expiryDateLayout, req.ExpiryDate)
		if err != nil {
			return domain.Product{}, store.ErrInvalidInput
		}
		expiry = &parsed
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		CategoryID:    req.CategoryID,
		SupplierID:    req.SupplierID,
		SKU:           req.SKU,
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		PurchasePrice: req.PurchasePrice,
		Quantity:      req.InitialStock,
		ExpiryDate:    expiry,
	})
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_create", "product", created.ID,
		"sku="+created.SKU+",name="+created.Name+",stock="+created.Quantity.String())
	s.invalidateLowStock(ctx)
	return *created, nil
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Product{}, store.ErrInvalidInput
		}
		existing.Name = name
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.CategoryID != nil {
		existing.CategoryID = *req.CategoryID
	}
	if req.SupplierID != nil {
		existing.SupplierID = *req.SupplierID
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			return domain.Product{}, store.ErrInvalidInput
		}
		existing.Price = *req.Price
	}
	if req.PurchasePrice != nil {
		if req.PurchasePrice.IsNegative() {
			return domain.Product{}, store.ErrInvalidInput
		}
		existing.PurchasePrice = *req.PurchasePrice
	}
	if req.ExpiryDate != nil {
		if *req.ExpiryDate == "" {
			existing.ExpiryDate = nil
		} else {
			parsed, err := time.Parse(expiryDateLayout, *req.ExpiryDate)
			if err != nil {
				return domain.Product{}, store.ErrInvalidInput
			}
			existing.ExpiryDate = &parsed
		}
	}

	updated, err := s.repo.UpdateProduct(ctx, *existing)
	if err != nil {
		return domain.Product{}, err
	}

	s.logAudit(ctx, "product_update", "product", updated.ID, "sku="+updated.SKU)
	return *updated, nil
}

// DeleteProduct removes a product that has no historical records. Products
// referenced by orders, purchases, returns or write-offs are protected and
// the delete fails with ProductReferencedError.
func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.logAudit(ctx, "product_delete", "product", id, "")
	s.invalidateLowStock(ctx)
	return nil
}

// SearchProducts matches name or SKU and splits the hits into the requested
// category and everything else.
func (s *Service) SearchProducts(ctx context.Context, query string, categoryID string) (domain.ProductSearchResult, error) {
	result := domain.ProductSearchResult{
		Here:   []domain.Product{},
		Others: []domain.Product{},
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return result, nil
	}

	hits, err := s.repo.SearchProducts(ctx, query)
	if err != nil {
		return result, err
	}
	for _, p := range hits {
		if categoryID != "" && p.CategoryID == categoryID {
			result.Here = append(result.Here, p)
		} else {
			result.Others = append(result.Others, p)
		}
	}
	return result, nil
}

func (s *Service) ExpiryReport(ctx context.Context) (domain.ExpiryReport, error) {
	return s.repo.ExpiryReport(ctx, time.Now().UTC(), expirySoonWindow)
}

// LowStock serves the dashboard snapshot through the stock cache. Cache
// failures degrade to a direct query.
func (s *Service) LowStock(ctx context.Context) ([]domain.StockLevel, error) {
	if levels, ok, err := s.stock.GetLowStock(ctx, lowStockCacheKey); err == nil && ok {
		return levels, nil
	}

	levels, err := s.repo.ListLowStock(ctx, s.lowStockThreshold)
	if err != nil {
		return nil, err
	}
	if err := s.stock.SetLowStock(ctx, lowStockCacheKey, levels, lowStockCacheTTL); err != nil {
		s.logger.Warn("low-stock cache write failed", zap.Error(err))
	}
	return levels, nil
}
