// Package service implements the business engines on top of the store:
// checkout, purchase receiving, returns and write-offs, plus the product,
// supplier and reporting operations around them. Atomicity lives in the
// store; the service validates requests, derives results and records the
// audit trail.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/FrankovDmutro/Store-inventory-system/internal/cache"
	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
	"github.com/FrankovDmutro/Store-inventory-system/internal/util"
	"github.com/FrankovDmutro/Store-inventory-system/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

const (
	lowStockCacheKey = "lowstock:v1"
	lowStockCacheTTL = 30 * time.Second
	expirySoonWindow = 30 * 24 * time.Hour
)

type Service struct {
	repo              store.Repository
	stock             cache.StockCache
	lowStockThreshold decimal.Decimal
	logger            *zap.Logger
}

func New(repo store.Repository, stockCache cache.StockCache, lowStockThreshold decimal.Decimal) *Service {
	if stockCache == nil {
		stockCache = cache.NoopStockCache{}
	}
	if lowStockThreshold.IsZero() {
		lowStockThreshold = decimal.NewFromInt(5)
	}

	return &Service{
		repo:              repo,
		stock:             stockCache,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
}

// --- categories ---

func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) CreateCategory(ctx context.Context, name string) (domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Category{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateCategory(ctx, domain.Category{Name: name})
	if err != nil {
		return domain.Category{}, err
	}

	s.logAudit(ctx, "category_create", "category", created.ID, "name="+created.Name)
	return *created, nil
}

// --- suppliers ---

func (s *Service) CreateSupplier(ctx context.Context, req domain.SupplierCreateRequest) (domain.Supplier, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Supplier{}, store.ErrInvalidInput
	}

	created, err := s.repo.CreateSupplier(ctx, domain.Supplier{
		Name:    req.Name,
		Email:   strings.TrimSpace(req.Email),
		Phone:   strings.TrimSpace(req.Phone),
		Address: strings.TrimSpace(req.Address),
		Notes:   req.Notes,
	})
	if err != nil {
		return domain.Supplier{}, err
	}

	s.logAudit(ctx, "supplier_create", "supplier", created.ID, "name="+created.Name)
	return *created, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) GetSupplier(ctx context.Context, id string) (domain.Supplier, error) {
	sup, err := s.repo.GetSupplier(ctx, id)
	if err != nil {
		return domain.Supplier{}, err
	}
	return *sup, nil
}

// --- audit ---

func (s *Service) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	return s.repo.ListAuditLogs(ctx, limit)
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	if err := s.repo.CreateAuditLog(ctx, domain.AuditLog{
		ID:            xid.New("log"),
		ActorUsername: actor.Username,
		ActorRole:     actor.Role,
		Action:        action,
		EntityType:    entityType,
		EntityID:      entityID,
		Detail:        detail,
		CreatedAt:     time.Now().UTC(),
	}); err != nil {
		s.logger.Warn("audit log write failed",
			zap.String("action", action),
			zap.String("entity_type", entityType),
			zap.String("entity_id", entityID),
			zap.Error(err))
	}
}

// invalidateLowStock drops the cached low-stock snapshot after any stock
// mutation. Best effort: a failed delete only delays freshness by one TTL.
func (s *Service) invalidateLowStock(ctx context.Context) {
	if err := s.stock.Invalidate(ctx, lowStockCacheKey); err != nil {
		s.logger.Warn("low-stock cache invalidation failed", zap.Error(err))
	}
}
