package cache

import (
	"context"
	"time"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
)

// StockCache caches the low-stock snapshot served on the dashboard. It is a
// read-side optimization only: stock mutations never go through it, and a
// stale or missing entry just means a fresh query.
type StockCache interface {
	GetLowStock(ctx context.Context, key string) ([]domain.StockLevel, bool, error)
	SetLowStock(ctx context.Context, key string, levels []domain.StockLevel, ttl time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

type NoopStockCache struct{}

func (NoopStockCache) GetLowStock(_ context.Context, _ string) ([]domain.StockLevel, bool, error) {
	return nil, false, nil
}

func (NoopStockCache) SetLowStock(_ context.Context, _ string, _ []domain.StockLevel, _ time.Duration) error {
	return nil
}

func (NoopStockCache) Invalidate(_ context.Context, _ string) error {
	return nil
}
