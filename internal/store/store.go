package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrDuplicate    = errors.New("duplicate")
)

// Repository is the persistence and transaction provider for the engines.
// Every consistency-critical operation (CreateOrder, ApplyPurchaseReceipt,
// CreateReturn, CreateWriteOff) runs as one atomic unit of work inside the
// implementation, with exclusive row locks on the products (and purchase)
// it touches. Callers never see a partially applied result.
type Repository interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error)

	CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error)
	ListSuppliers(ctx context.Context) ([]domain.Supplier, error)
	GetSupplier(ctx context.Context, id string) (*domain.Supplier, error)

	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// DeleteProduct fails with domain.ProductReferencedError while any
	// order, purchase, return or write-off still references the product.
	DeleteProduct(ctx context.Context, id string) error
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error)
	SearchProducts(ctx context.Context, query string) ([]domain.Product, error)
	ExpiryReport(ctx context.Context, asOf time.Time, soonWindow time.Duration) (domain.ExpiryReport, error)
	ListLowStock(ctx context.Context, threshold decimal.Decimal) ([]domain.StockLevel, error)

	// Stock ledger primitives. IncrementStock requires qty > 0 and an
	// existing product. DecrementStockIfAvailable performs an indivisible
	// check-and-subtract and never leaves a negative balance.
	// QuantityOnHand is a point-in-time read, not fresh outside a lock.
	IncrementStock(ctx context.Context, productID string, qty decimal.Decimal) error
	DecrementStockIfAvailable(ctx context.Context, productID string, qty decimal.Decimal) error
	QuantityOnHand(ctx context.Context, productID string) (decimal.Decimal, error)

	// CreateOrder is the whole checkout: locks every product, snapshots
	// price and cost, decrements stock, materializes the order with its
	// totals. All-or-nothing.
	CreateOrder(ctx context.Context, lines []domain.CartLine) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrders(ctx context.Context, limit int) ([]domain.Order, error)

	CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error)
	GetPurchase(ctx context.Context, id string) (*domain.Purchase, error)
	ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error)
	// SetPurchaseStatus validates the transition under the purchase row
	// lock; moving into "received" applies the stock effect in the same
	// unit of work, at most once.
	SetPurchaseStatus(ctx context.Context, id string, status string) (*domain.Purchase, error)
	// ReplacePurchaseItems swaps the line items and recomputes total_cost.
	// Rejected once the purchase has been applied or cancelled.
	ReplacePurchaseItems(ctx context.Context, id string, items []domain.PurchaseItem) (*domain.Purchase, error)
	// ApplyPurchaseReceipt is the idempotent apply-to-stock trigger. A
	// replay on an already applied purchase reports AlreadyApplied and
	// changes nothing.
	ApplyPurchaseReceipt(ctx context.Context, id string) (*domain.ReceiptApplication, error)

	// CreateReturn validates every line against sold-minus-returned for
	// its (order, product) pair inside the transaction, then restocks.
	CreateReturn(ctx context.Context, orderID string, req domain.ReturnRequest, actor string) (*domain.Return, error)
	ListReturns(ctx context.Context, orderID string) ([]domain.Return, error)
	ReturnedQuantities(ctx context.Context, orderID string) (map[string]decimal.Decimal, error)

	CreateWriteOff(ctx context.Context, req domain.WriteOffRequest, actor string) (*domain.WriteOff, error)
	ListWriteOffs(ctx context.Context, limit int) ([]domain.WriteOff, error)

	DashboardStats(ctx context.Context, lowStockThreshold decimal.Decimal) (domain.DashboardStats, error)
	SalesSeries(ctx context.Context, from time.Time, days int) (domain.ChartSeries, error)
	ProfitSeries(ctx context.Context, from time.Time, days int) (domain.ChartSeries, error)
	CategorySales(ctx context.Context) ([]domain.CategorySales, error)

	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)

	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
