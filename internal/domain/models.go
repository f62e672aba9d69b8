package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SupplierCreateRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
}

// Product is the stock-keeping unit of the ledger. Quantity is mutated only
// through the repository's ledger operations, never assigned directly.
type Product struct {
	ID            string          `json:"id"`
	CategoryID    string          `json:"category_id"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Quantity      decimal.Decimal `json:"quantity"`
	ExpiryDate    *time.Time      `json:"expiry_date,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ProductCreateRequest struct {
	CategoryID    string          `json:"category_id"`
	SupplierID    string          `json:"supplier_id,omitempty"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	InitialStock  decimal.Decimal `json:"initial_stock"`
	ExpiryDate    string          `json:"expiry_date,omitempty"`
}

type ProductUpdateRequest struct {
	Name          *string          `json:"name,omitempty"`
	Description   *string          `json:"description,omitempty"`
	CategoryID    *string          `json:"category_id,omitempty"`
	SupplierID    *string          `json:"supplier_id,omitempty"`
	Price         *decimal.Decimal `json:"price,omitempty"`
	PurchasePrice *decimal.Decimal `json:"purchase_price,omitempty"`
	ExpiryDate    *string          `json:"expiry_date,omitempty"`
}

// CartLine is one (product, quantity) pair of a checkout or return request.
type CartLine struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type CheckoutRequest struct {
	Lines []CartLine `json:"lines"`
}

// OrderItem snapshots price and purchase price at sale time so later product
// price edits never alter historical totals.
type OrderItem struct {
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type Order struct {
	ID          string          `json:"id"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []OrderItem     `json:"items"`
}

const (
	PurchaseStatusDraft     = "draft"
	PurchaseStatusOrdered   = "ordered"
	PurchaseStatusReceived  = "received"
	PurchaseStatusCancelled = "cancelled"
)

// PurchaseTransitions is the allowed status state machine. Entering
// "received" is the only transition with a stock effect, applied at most once.
var PurchaseTransitions = map[string][]string{
	PurchaseStatusDraft:     {PurchaseStatusOrdered, PurchaseStatusCancelled},
	PurchaseStatusOrdered:   {PurchaseStatusReceived, PurchaseStatusCancelled},
	PurchaseStatusReceived:  {},
	PurchaseStatusCancelled: {},
}

func PurchaseTransitionAllowed(from, to string) bool {
	for _, next := range PurchaseTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type PurchaseItem struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type Purchase struct {
	ID              string          `json:"id"`
	SupplierID      string          `json:"supplier_id"`
	Status          string          `json:"status"`
	ExpectedDate    *time.Time      `json:"expected_date,omitempty"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	ReceivedApplied bool            `json:"received_applied"`
	CreatedAt       time.Time       `json:"created_at"`
	Items           []PurchaseItem  `json:"items"`
}

type PurchaseDraftLine struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

type PurchaseDraftRequest struct {
	Lines []PurchaseDraftLine `json:"lines"`
	// ExpectedDates maps supplier id to an RFC 3339 delivery estimate.
	ExpectedDates map[string]string `json:"expected_dates,omitempty"`
	// SupplierID optionally pins every line to one supplier instead of
	// grouping by each product's own supplier.
	SupplierID string `json:"supplier_id,omitempty"`
}

// SkippedLine reports a draft line that could not be placed on any purchase.
type SkippedLine struct {
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

type PurchaseDraftResult struct {
	Purchases []Purchase    `json:"purchases"`
	Skipped   []SkippedLine `json:"skipped,omitempty"`
}

type PurchaseStatusRequest struct {
	Status string `json:"status"`
}

// ReceiptApplication reports the outcome of applying a received purchase to
// stock. AlreadyApplied means the call was a no-op replay, which is success.
type ReceiptApplication struct {
	PurchaseID     string `json:"purchase_id"`
	AlreadyApplied bool   `json:"already_applied"`
}

const (
	ReturnReasonDefective   = "defective"
	ReturnReasonWrongItem   = "wrong_item"
	ReturnReasonChangedMind = "changed_mind"
	ReturnReasonOther       = "other"
)

func ValidReturnReason(reason string) bool {
	switch reason {
	case ReturnReasonDefective, ReturnReasonWrongItem, ReturnReasonChangedMind, ReturnReasonOther:
		return true
	}
	return false
}

// ReturnItem snapshots price and purchase price from the original OrderItem,
// not from current product state.
type ReturnItem struct {
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
}

type Return struct {
	ID          string       `json:"id"`
	OrderID     string       `json:"order_id"`
	Reason      string       `json:"reason"`
	Comment     string       `json:"comment,omitempty"`
	ProcessedBy string       `json:"processed_by"`
	CreatedAt   time.Time    `json:"created_at"`
	Items       []ReturnItem `json:"items"`
}

// TotalRefund is the amount handed back to the customer.
func (r Return) TotalRefund() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Quantity.Mul(item.Price))
	}
	return total
}

// TotalLoss is the profit given back with the return.
func (r Return) TotalLoss() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.Quantity.Mul(item.Price.Sub(item.PurchasePrice)))
	}
	return total
}

type ReturnRequest struct {
	Reason  string     `json:"reason"`
	Comment string     `json:"comment,omitempty"`
	Lines   []CartLine `json:"lines"`
}

const (
	WriteOffReasonDamage = "damage"
	WriteOffReasonDefect = "defect"
	WriteOffReasonExpiry = "expiry"
	WriteOffReasonOther  = "other"
)

func ValidWriteOffReason(reason string) bool {
	switch reason {
	case WriteOffReasonDamage, WriteOffReasonDefect, WriteOffReasonExpiry, WriteOffReasonOther:
		return true
	}
	return false
}

type WriteOff struct {
	ID            string          `json:"id"`
	ProductID     string          `json:"product_id"`
	Quantity      decimal.Decimal `json:"quantity"`
	Reason        string          `json:"reason"`
	Comment       string          `json:"comment,omitempty"`
	CreatedBy     string          `json:"created_by"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TotalLoss values the write-off at the purchase price snapshotted when the
// record was created.
func (w WriteOff) TotalLoss() decimal.Decimal {
	return w.Quantity.Mul(w.PurchasePrice)
}

type WriteOffRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason"`
	Comment   string          `json:"comment,omitempty"`
}

const (
	RoleCashier = "cashier"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

type Actor struct {
	Username string
	Role     string
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expires_at"`
}

// UserAccount is an internal persistence model for auth credentials.
type UserAccount struct {
	Username  string
	Password  string
	Role      string
	Active    bool
	CreatedAt time.Time
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actor_username"`
	ActorRole     string    `json:"actor_role"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entity_type"`
	EntityID      string    `json:"entity_id"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"created_at"`
}

// StockLevel is the read model served by the low-stock dashboard and kept in
// the stock cache. It is a point-in-time view, not guaranteed fresh.
type StockLevel struct {
	ProductID string          `json:"product_id"`
	SKU       string          `json:"sku"`
	Name      string          `json:"name"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type ProductSearchResult struct {
	Here   []Product `json:"here"`
	Others []Product `json:"others"`
}

type ExpiryReport struct {
	Expired      []Product `json:"expired"`
	ExpiringSoon []Product `json:"expiring_soon"`
}

type DashboardStats struct {
	TotalOrders   int64           `json:"total_orders"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	TotalProfit   decimal.Decimal `json:"total_profit"`
	ReturnsCount  int64           `json:"returns_count"`
	RefundTotal   decimal.Decimal `json:"refund_total"`
	WriteOffLoss  decimal.Decimal `json:"write_off_loss"`
	LowStockCount int64           `json:"low_stock_count"`
}

type ChartSeries struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type CategorySales struct {
	CategoryID string          `json:"category_id"`
	Category   string          `json:"category"`
	Total      decimal.Decimal `json:"total"`
}
