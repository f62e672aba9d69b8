package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
	"github.com/FrankovDmutro/Store-inventory-system/internal/xid"
)

// Store is an in-memory Repository used for dev mode and the test suite.
// A single mutex stands in for the row locks of the postgres backend: every
// operation below is one critical section, so the check-and-mutate pairs are
// indivisible exactly like their SQL counterparts.
type Store struct {
	mu sync.RWMutex

	categories map[string]domain.Category
	suppliers  map[string]domain.Supplier
	products   map[string]domain.Product
	orders     map[string]domain.Order
	purchases  map[string]domain.Purchase
	returns    map[string]domain.Return
	writeOffs  map[string]domain.WriteOff
	auditLogs  []domain.AuditLog
	users      map[string]domain.UserAccount
}

func New() *Store {
	return &Store{
		categories: make(map[string]domain.Category),
		suppliers:  make(map[string]domain.Supplier),
		products:   make(map[string]domain.Product),
		orders:     make(map[string]domain.Order),
		purchases:  make(map[string]domain.Purchase),
		returns:    make(map[string]domain.Return),
		writeOffs:  make(map[string]domain.WriteOff),
		users:      make(map[string]domain.UserAccount),
	}
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials come
// from SEED_ADMIN_PASSWORD, SEED_MANAGER_PASSWORD and SEED_CASHIER_PASSWORD;
// hardcoded dev defaults are used with a warning when unset.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_*_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, domain.RoleAdmin},
		{"manager", managerPwd, domain.RoleManager},
		{"cashier", cashierPwd, domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	s.users = seedUsers()

	now := time.Now().UTC()
	categories := []domain.Category{
		{ID: "cat-food", Name: "Food"},
		{ID: "cat-drinks", Name: "Drinks"},
		{ID: "cat-household", Name: "Household"},
	}
	suppliers := []domain.Supplier{
		{ID: "sup-acme", Name: "ACME Wholesale", Email: "orders@acme.example", Phone: "+380501112233", CreatedAt: now},
		{ID: "sup-beta", Name: "Beta Foods", Email: "sales@betafoods.example", Phone: "+380671234567", CreatedAt: now},
	}
	soon := now.AddDate(0, 0, 5)
	products := []domain.Product{
		{ID: "prd-apple", CategoryID: "cat-food", SupplierID: "sup-acme", SKU: "FOOD-APPLE", Name: "Apple",
			Price: dec("10.00"), PurchasePrice: dec("5.00"), Quantity: dec("50"), CreatedAt: now},
		{ID: "prd-milk", CategoryID: "cat-drinks", SupplierID: "sup-beta", SKU: "DRINK-MILK", Name: "Milk 1L",
			Price: dec("32.50"), PurchasePrice: dec("24.00"), Quantity: dec("24"), ExpiryDate: &soon, CreatedAt: now},
		{ID: "prd-bread", CategoryID: "cat-food", SupplierID: "sup-beta", SKU: "FOOD-BREAD", Name: "Bread",
			Price: dec("18.00"), PurchasePrice: dec("11.50"), Quantity: dec("30"), CreatedAt: now},
		{ID: "prd-cheese", CategoryID: "cat-food", SupplierID: "sup-acme", SKU: "FOOD-CHEESE", Name: "Cheese 250g",
			Price: dec("95.00"), PurchasePrice: dec("70.00"), Quantity: dec("2.5"), CreatedAt: now},
		{ID: "prd-soap", CategoryID: "cat-household", SKU: "HH-SOAP", Name: "Soap Bar",
			Price: dec("22.00"), PurchasePrice: dec("14.00"), Quantity: dec("40"), CreatedAt: now},
	}
	for _, c := range categories {
		s.categories[c.ID] = c
	}
	for _, sup := range suppliers {
		s.suppliers[sup.ID] = sup
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

// --- categories ---

func (s *Store) ListCategories(_ context.Context) ([]domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) CreateCategory(_ context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, category.Name) {
			return nil, store.ErrDuplicate
		}
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	s.categories[category.ID] = category
	created := category
	return &created, nil
}

// --- suppliers ---

func (s *Store) CreateSupplier(_ context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.suppliers {
		if strings.EqualFold(existing.Name, supplier.Name) {
			return nil, store.ErrDuplicate
		}
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	s.suppliers[supplier.ID] = supplier
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(_ context.Context) ([]domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Supplier, 0, len(s.suppliers))
	for _, sup := range s.suppliers {
		out = append(out, sup)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetSupplier(_ context.Context, id string) (*domain.Supplier, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sup, ok := s.suppliers[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := sup
	return &found, nil
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.SKU) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.Price.IsNegative() || product.PurchasePrice.IsNegative() || product.Quantity.IsNegative() {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[product.CategoryID]; !ok {
		return nil, store.ErrInvalidInput
	}
	if product.SupplierID != "" {
		if _, ok := s.suppliers[product.SupplierID]; !ok {
			return nil, store.ErrInvalidInput
		}
	}
	for _, existing := range s.products {
		if strings.EqualFold(existing.SKU, product.SKU) {
			return nil, store.ErrDuplicate
		}
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	s.products[product.ID] = product
	created := product
	return &created, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: id}
	}
	found := p
	return &found, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: product.ID}
	}
	// Quantity is owned by the ledger operations; keep the stored value.
	product.Quantity = existing.Quantity
	product.CreatedAt = existing.CreatedAt
	s.products[product.ID] = product
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	if s.productReferencedLocked(id) {
		return &domain.ProductReferencedError{ProductID: id}
	}
	delete(s.products, id)
	return nil
}

// productReferencedLocked reports whether any historical record still points
// at the product. Callers hold s.mu.
func (s *Store) productReferencedLocked(id string) bool {
	for _, o := range s.orders {
		for _, item := range o.Items {
			if item.ProductID == id {
				return true
			}
		}
	}
	for _, p := range s.purchases {
		for _, item := range p.Items {
			if item.ProductID == id {
				return true
			}
		}
	}
	for _, r := range s.returns {
		for _, item := range r.Items {
			if item.ProductID == id {
				return true
			}
		}
	}
	for _, w := range s.writeOffs {
		if w.ProductID == id {
			return true
		}
	}
	return false
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetProductsByIDs(_ context.Context, ids []string) (map[string]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := s.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (s *Store) SearchProducts(_ context.Context, query string) ([]domain.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Product, 0, 16)
	for _, p := range s.products {
		if query == "" || strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.SKU), query) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) ExpiryReport(_ context.Context, asOf time.Time, soonWindow time.Duration) (domain.ExpiryReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report := domain.ExpiryReport{
		Expired:      make([]domain.Product, 0, 4),
		ExpiringSoon: make([]domain.Product, 0, 4),
	}
	cutoff := asOf.Add(soonWindow)
	for _, p := range s.products {
		if p.ExpiryDate == nil {
			continue
		}
		switch {
		case p.ExpiryDate.Before(asOf):
			report.Expired = append(report.Expired, p)
		case !p.ExpiryDate.After(cutoff):
			report.ExpiringSoon = append(report.ExpiringSoon, p)
		}
	}
	sort.Slice(report.Expired, func(i, j int) bool { return report.Expired[i].Name < report.Expired[j].Name })
	sort.Slice(report.ExpiringSoon, func(i, j int) bool { return report.ExpiringSoon[i].Name < report.ExpiringSoon[j].Name })
	return report, nil
}

func (s *Store) ListLowStock(_ context.Context, threshold decimal.Decimal) ([]domain.StockLevel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.StockLevel, 0, 8)
	for _, p := range s.products {
		if p.Quantity.Cmp(threshold) <= 0 {
			out = append(out, domain.StockLevel{
				ProductID: p.ID,
				SKU:       p.SKU,
				Name:      p.Name,
				Quantity:  p.Quantity,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity.Cmp(out[j].Quantity) < 0 })
	return out, nil
}

// --- stock ledger ---

func (s *Store) IncrementStock(_ context.Context, productID string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return &domain.InvalidQuantityError{ProductID: productID, Quantity: qty}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.incrementStockLocked(productID, qty)
}

func (s *Store) incrementStockLocked(productID string, qty decimal.Decimal) error {
	p, ok := s.products[productID]
	if !ok {
		return &domain.ProductNotFoundError{ProductID: productID}
	}
	p.Quantity = p.Quantity.Add(qty)
	s.products[productID] = p
	return nil
}

func (s *Store) DecrementStockIfAvailable(_ context.Context, productID string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return &domain.InvalidQuantityError{ProductID: productID, Quantity: qty}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.decrementStockLocked(productID, qty)
}

func (s *Store) decrementStockLocked(productID string, qty decimal.Decimal) error {
	p, ok := s.products[productID]
	if !ok {
		return &domain.ProductNotFoundError{ProductID: productID}
	}
	if p.Quantity.Cmp(qty) < 0 {
		return &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: p.Quantity}
	}
	p.Quantity = p.Quantity.Sub(qty)
	s.products[productID] = p
	return nil
}

func (s *Store) QuantityOnHand(_ context.Context, productID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[productID]
	if !ok {
		return decimal.Zero, &domain.ProductNotFoundError{ProductID: productID}
	}
	return p.Quantity, nil
}

// --- orders ---

func (s *Store) CreateOrder(_ context.Context, lines []domain.CartLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate first so a failing line leaves nothing behind. Quantities
	// for repeated products are summed: the cart must fit as a whole.
	required := make(map[string]decimal.Decimal, len(lines))
	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
		if _, ok := s.products[line.ProductID]; !ok {
			return nil, &domain.ProductNotFoundError{ProductID: line.ProductID}
		}
		required[line.ProductID] = required[line.ProductID].Add(line.Quantity)
	}
	for productID, qty := range required {
		p := s.products[productID]
		if p.Quantity.Cmp(qty) < 0 {
			return nil, &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: p.Quantity}
		}
	}

	order := domain.Order{
		ID:          xid.New("ord"),
		TotalPrice:  decimal.Zero,
		TotalProfit: decimal.Zero,
		CreatedAt:   time.Now().UTC(),
		Items:       make([]domain.OrderItem, 0, len(lines)),
	}
	for _, line := range lines {
		p := s.products[line.ProductID]
		if err := s.decrementStockLocked(line.ProductID, line.Quantity); err != nil {
			// unreachable after validation; kept as a guard
			return nil, err
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:     p.ID,
			Quantity:      line.Quantity,
			Price:         p.Price,
			PurchasePrice: p.PurchasePrice,
		})
		order.TotalPrice = order.TotalPrice.Add(line.Quantity.Mul(p.Price))
		order.TotalProfit = order.TotalProfit.Add(line.Quantity.Mul(p.Price.Sub(p.PurchasePrice)))
	}
	s.orders[order.ID] = order
	created := order
	return &created, nil
}

func (s *Store) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, &domain.OrderNotFoundError{OrderID: id}
	}
	found := o
	found.Items = append([]domain.OrderItem(nil), o.Items...)
	return &found, nil
}

func (s *Store) ListOrders(_ context.Context, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Order, 0, len(s.orders))
	for _, o := range s.orders {
		o.Items = append([]domain.OrderItem(nil), o.Items...)
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- purchases ---

func (s *Store) CreatePurchase(_ context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.suppliers[purchase.SupplierID]; !ok {
		return nil, store.ErrNotFound
	}
	total := decimal.Zero
	for _, item := range purchase.Items {
		if !item.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		total = total.Add(item.Quantity.Mul(item.UnitCost))
	}

	if purchase.ID == "" {
		purchase.ID = xid.New("pur")
	}
	if purchase.Status == "" {
		purchase.Status = domain.PurchaseStatusDraft
	}
	if purchase.CreatedAt.IsZero() {
		purchase.CreatedAt = time.Now().UTC()
	}
	purchase.TotalCost = total
	purchase.ReceivedApplied = false
	s.purchases[purchase.ID] = purchase
	created := purchase
	created.Items = append([]domain.PurchaseItem(nil), purchase.Items...)
	return &created, nil
}

func (s *Store) GetPurchase(_ context.Context, id string) (*domain.Purchase, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.purchases[id]
	if !ok {
		return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
	}
	found := p
	found.Items = append([]domain.PurchaseItem(nil), p.Items...)
	return &found, nil
}

func (s *Store) ListPurchases(_ context.Context, status string, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Purchase, 0, len(s.purchases))
	for _, p := range s.purchases {
		if status != "" && p.Status != status {
			continue
		}
		p.Items = append([]domain.PurchaseItem(nil), p.Items...)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) SetPurchaseStatus(_ context.Context, id string, status string) (*domain.Purchase, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
	}
	if !domain.PurchaseTransitionAllowed(p.Status, status) {
		return nil, &domain.InvalidTransitionError{PurchaseID: id, From: p.Status, To: status}
	}
	p.Status = status
	if status == domain.PurchaseStatusReceived {
		if err := s.applyReceiptLocked(&p); err != nil {
			return nil, err
		}
	}
	s.purchases[id] = p
	updated := p
	updated.Items = append([]domain.PurchaseItem(nil), p.Items...)
	return &updated, nil
}

// applyReceiptLocked increments stock for every line and flips the
// received_applied flag. A second call is a no-op. Callers hold s.mu.
func (s *Store) applyReceiptLocked(p *domain.Purchase) error {
	if p.ReceivedApplied {
		return nil
	}
	for _, item := range p.Items {
		if _, ok := s.products[item.ProductID]; !ok {
			return &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
	}
	for _, item := range p.Items {
		if err := s.incrementStockLocked(item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	p.ReceivedApplied = true
	return nil
}

func (s *Store) ApplyPurchaseReceipt(_ context.Context, id string) (*domain.ReceiptApplication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
	}
	if p.Status != domain.PurchaseStatusReceived {
		return nil, fmt.Errorf("purchase %s is %s, not received: %w", id, p.Status, store.ErrInvalidInput)
	}
	if p.ReceivedApplied {
		return &domain.ReceiptApplication{PurchaseID: id, AlreadyApplied: true}, nil
	}
	if err := s.applyReceiptLocked(&p); err != nil {
		return nil, err
	}
	s.purchases[id] = p
	return &domain.ReceiptApplication{PurchaseID: id}, nil
}

func (s *Store) ReplacePurchaseItems(_ context.Context, id string, items []domain.PurchaseItem) (*domain.Purchase, error) {
	if len(items) == 0 {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.purchases[id]
	if !ok {
		return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
	}
	if p.ReceivedApplied || p.Status == domain.PurchaseStatusReceived || p.Status == domain.PurchaseStatusCancelled {
		return nil, fmt.Errorf("purchase %s is %s and can no longer be edited: %w", id, p.Status, store.ErrInvalidInput)
	}

	total := decimal.Zero
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		if _, ok := s.products[item.ProductID]; !ok {
			return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		total = total.Add(item.Quantity.Mul(item.UnitCost))
	}
	p.Items = append([]domain.PurchaseItem(nil), items...)
	p.TotalCost = total
	s.purchases[id] = p
	updated := p
	return &updated, nil
}

// --- returns ---

func (s *Store) CreateReturn(_ context.Context, orderID string, req domain.ReturnRequest, actor string) (*domain.Return, error) {
	if len(req.Lines) == 0 || strings.TrimSpace(req.Reason) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.orders[orderID]
	if !ok {
		return nil, &domain.OrderNotFoundError{OrderID: orderID}
	}

	sold := make(map[string]decimal.Decimal, len(order.Items))
	snapshot := make(map[string]domain.OrderItem, len(order.Items))
	for _, item := range order.Items {
		sold[item.ProductID] = sold[item.ProductID].Add(item.Quantity)
		if _, seen := snapshot[item.ProductID]; !seen {
			snapshot[item.ProductID] = item
		}
	}
	returned := s.returnedQuantitiesLocked(orderID)

	// Validate every line against sold-minus-returned before touching
	// anything; repeated products in the request are summed.
	requested := make(map[string]decimal.Decimal, len(req.Lines))
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
		if _, onOrder := sold[line.ProductID]; !onOrder {
			return nil, &domain.ProductNotOnOrderError{OrderID: orderID, ProductID: line.ProductID}
		}
		requested[line.ProductID] = requested[line.ProductID].Add(line.Quantity)
	}
	for productID, qty := range requested {
		available := sold[productID].Sub(returned[productID])
		if qty.Cmp(available) > 0 {
			return nil, &domain.OverReturnError{
				OrderID:   orderID,
				ProductID: productID,
				Requested: qty,
				Available: available,
			}
		}
	}

	ret := domain.Return{
		ID:          xid.New("ret"),
		OrderID:     orderID,
		Reason:      req.Reason,
		Comment:     req.Comment,
		ProcessedBy: actor,
		CreatedAt:   time.Now().UTC(),
		Items:       make([]domain.ReturnItem, 0, len(req.Lines)),
	}
	for _, line := range req.Lines {
		orig := snapshot[line.ProductID]
		ret.Items = append(ret.Items, domain.ReturnItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Price:         orig.Price,
			PurchasePrice: orig.PurchasePrice,
		})
		if err := s.incrementStockLocked(line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}
	s.returns[ret.ID] = ret
	created := ret
	created.Items = append([]domain.ReturnItem(nil), ret.Items...)
	return &created, nil
}

func (s *Store) ListReturns(_ context.Context, orderID string) ([]domain.Return, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Return, 0, 4)
	for _, r := range s.returns {
		if orderID != "" && r.OrderID != orderID {
			continue
		}
		r.Items = append([]domain.ReturnItem(nil), r.Items...)
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ReturnedQuantities(_ context.Context, orderID string) (map[string]decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.returnedQuantitiesLocked(orderID), nil
}

func (s *Store) returnedQuantitiesLocked(orderID string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, r := range s.returns {
		if r.OrderID != orderID {
			continue
		}
		for _, item := range r.Items {
			out[item.ProductID] = out[item.ProductID].Add(item.Quantity)
		}
	}
	return out
}

// --- write-offs ---

func (s *Store) CreateWriteOff(_ context.Context, req domain.WriteOffRequest, actor string) (*domain.WriteOff, error) {
	if !domain.ValidWriteOffReason(req.Reason) {
		return nil, store.ErrInvalidInput
	}
	if !req.Quantity.IsPositive() {
		return nil, &domain.InvalidQuantityError{ProductID: req.ProductID, Quantity: req.Quantity}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[req.ProductID]
	if !ok {
		return nil, &domain.ProductNotFoundError{ProductID: req.ProductID}
	}
	if err := s.decrementStockLocked(req.ProductID, req.Quantity); err != nil {
		return nil, err
	}
	w := domain.WriteOff{
		ID:            xid.New("wo"),
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Comment:       req.Comment,
		CreatedBy:     actor,
		PurchasePrice: p.PurchasePrice,
		CreatedAt:     time.Now().UTC(),
	}
	s.writeOffs[w.ID] = w
	created := w
	return &created, nil
}

func (s *Store) ListWriteOffs(_ context.Context, limit int) ([]domain.WriteOff, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.WriteOff, 0, len(s.writeOffs))
	for _, w := range s.writeOffs {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- reports ---

func (s *Store) DashboardStats(_ context.Context, lowStockThreshold decimal.Decimal) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.DashboardStats{
		TotalSales:   decimal.Zero,
		TotalProfit:  decimal.Zero,
		RefundTotal:  decimal.Zero,
		WriteOffLoss: decimal.Zero,
	}
	for _, o := range s.orders {
		stats.TotalOrders++
		stats.TotalSales = stats.TotalSales.Add(o.TotalPrice)
		stats.TotalProfit = stats.TotalProfit.Add(o.TotalProfit)
	}
	for _, r := range s.returns {
		stats.ReturnsCount++
		stats.RefundTotal = stats.RefundTotal.Add(r.TotalRefund())
	}
	for _, w := range s.writeOffs {
		stats.WriteOffLoss = stats.WriteOffLoss.Add(w.TotalLoss())
	}
	for _, p := range s.products {
		if p.Quantity.Cmp(lowStockThreshold) <= 0 {
			stats.LowStockCount++
		}
	}
	return stats, nil
}

func (s *Store) SalesSeries(_ context.Context, from time.Time, days int) (domain.ChartSeries, error) {
	return s.orderSeries(from, days, func(o domain.Order) decimal.Decimal { return o.TotalPrice })
}

func (s *Store) ProfitSeries(_ context.Context, from time.Time, days int) (domain.ChartSeries, error) {
	return s.orderSeries(from, days, func(o domain.Order) decimal.Decimal { return o.TotalProfit })
}

func (s *Store) orderSeries(from time.Time, days int, value func(domain.Order) decimal.Decimal) (domain.ChartSeries, error) {
	if days < 1 {
		days = 30
	}
	from = from.UTC().Truncate(24 * time.Hour)

	s.mu.RLock()
	defer s.mu.RUnlock()

	series := domain.ChartSeries{
		Labels: make([]string, days),
		Values: make([]decimal.Decimal, days),
	}
	for i := 0; i < days; i++ {
		series.Labels[i] = from.AddDate(0, 0, i).Format("2006-01-02")
		series.Values[i] = decimal.Zero
	}
	for _, o := range s.orders {
		day := int(o.CreatedAt.UTC().Truncate(24*time.Hour).Sub(from).Hours() / 24)
		if day < 0 || day >= days {
			continue
		}
		series.Values[day] = series.Values[day].Add(value(o))
	}
	return series, nil
}

func (s *Store) CategorySales(_ context.Context) ([]domain.CategorySales, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	totals := make(map[string]decimal.Decimal)
	for _, o := range s.orders {
		for _, item := range o.Items {
			p, ok := s.products[item.ProductID]
			if !ok {
				continue
			}
			totals[p.CategoryID] = totals[p.CategoryID].Add(item.Quantity.Mul(item.Price))
		}
	}
	out := make([]domain.CategorySales, 0, len(totals))
	for categoryID, total := range totals {
		name := categoryID
		if c, ok := s.categories[categoryID]; ok {
			name = c.Name
		}
		out = append(out, domain.CategorySales{CategoryID: categoryID, Category: name, Total: total})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Total.Cmp(out[j].Total) > 0 })
	return out, nil
}

// --- audit log ---

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuditLog, 0, limit)
	for i := len(s.auditLogs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.auditLogs[i])
	}
	return out, nil
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.Username]; exists {
		return store.ErrDuplicate
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	s.users[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.UserAccount, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[username]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = password
	s.users[username] = u
	return nil
}
