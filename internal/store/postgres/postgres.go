package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
	"github.com/FrankovDmutro/Store-inventory-system/internal/xid"
)

// Store is the postgres Repository. Consistency-critical operations run in a
// single transaction that takes SELECT ... FOR UPDATE locks on the product
// (and purchase) rows before reading their mutable fields, and holds them to
// commit. Stock arithmetic is expressed as conditional UPDATEs so a negative
// balance is impossible even if a caller bypasses the prior check.
type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- categories ---

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name
		FROM categories
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Category, 0, 16)
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) CreateCategory(ctx context.Context, category domain.Category) (*domain.Category, error) {
	if strings.TrimSpace(category.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if category.ID == "" {
		category.ID = xid.New("cat")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name) VALUES ($1, $2)
	`, category.ID, category.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := category
	return &created, nil
}

// --- suppliers ---

func (s *Store) CreateSupplier(ctx context.Context, supplier domain.Supplier) (*domain.Supplier, error) {
	if strings.TrimSpace(supplier.Name) == "" {
		return nil, store.ErrInvalidInput
	}
	if supplier.ID == "" {
		supplier.ID = xid.New("sup")
	}
	if supplier.CreatedAt.IsZero() {
		supplier.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO suppliers (id, name, email, phone, address, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, supplier.ID, supplier.Name, supplier.Email, supplier.Phone, supplier.Address, supplier.Notes, supplier.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		return nil, err
	}
	created := supplier
	return &created, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, phone, address, notes, created_at
		FROM suppliers
		ORDER BY name
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Supplier, 0, 16)
	for rows.Next() {
		var sup domain.Supplier
		if err := rows.Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Phone, &sup.Address, &sup.Notes, &sup.CreatedAt); err != nil {
			return nil, err
		}
		sup.CreatedAt = sup.CreatedAt.UTC()
		out = append(out, sup)
	}
	return out, rows.Err()
}

func (s *Store) GetSupplier(ctx context.Context, id string) (*domain.Supplier, error) {
	var sup domain.Supplier
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, address, notes, created_at
		FROM suppliers
		WHERE id = $1
	`, id).Scan(&sup.ID, &sup.Name, &sup.Email, &sup.Phone, &sup.Address, &sup.Notes, &sup.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	sup.CreatedAt = sup.CreatedAt.UTC()
	return &sup, nil
}

// --- products ---

const productColumns = `id, category_id, COALESCE(supplier_id,''), sku, name, description,
	price, purchase_price, quantity, expiry_date, created_at`

func scanProduct(scan func(dest ...any) error) (domain.Product, error) {
	var p domain.Product
	var expiry sql.NullTime
	err := scan(&p.ID, &p.CategoryID, &p.SupplierID, &p.SKU, &p.Name, &p.Description,
		&p.Price, &p.PurchasePrice, &p.Quantity, &expiry, &p.CreatedAt)
	if err != nil {
		return domain.Product{}, err
	}
	if expiry.Valid {
		e := expiry.Time.UTC()
		p.ExpiryDate = &e
	}
	p.CreatedAt = p.CreatedAt.UTC()
	return p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	if strings.TrimSpace(product.Name) == "" || strings.TrimSpace(product.SKU) == "" {
		return nil, store.ErrInvalidInput
	}
	if product.Price.IsNegative() || product.PurchasePrice.IsNegative() || product.Quantity.IsNegative() {
		return nil, store.ErrInvalidInput
	}
	if product.ID == "" {
		product.ID = xid.New("prd")
	}
	if product.CreatedAt.IsZero() {
		product.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, category_id, supplier_id, sku, name, description,
			price, purchase_price, quantity, expiry_date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
	`, product.ID, product.CategoryID, nullIfEmpty(product.SupplierID), product.SKU, product.Name,
		product.Description, product.Price, product.PurchasePrice, product.Quantity,
		nullDate(product.ExpiryDate), product.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrDuplicate
		}
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	created := product
	return &created, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	// Quantity is deliberately not in the SET list: it belongs to the
	// ledger operations only.
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET category_id = $2, supplier_id = $3, name = $4, description = $5,
			price = $6, purchase_price = $7, expiry_date = $8
		WHERE id = $1
	`, product.ID, product.CategoryID, nullIfEmpty(product.SupplierID), product.Name,
		product.Description, product.Price, product.PurchasePrice, nullDate(product.ExpiryDate))
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &domain.ProductNotFoundError{ProductID: product.ID}
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &domain.ProductReferencedError{ProductID: id}
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.ProductNotFoundError{ProductID: id}
	}
	return nil
}

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProductsByIDs(ctx context.Context, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

func (s *Store) SearchProducts(ctx context.Context, query string) ([]domain.Product, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE name ILIKE $1 OR sku ILIKE $1
		ORDER BY name
	`, pattern)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) ExpiryReport(ctx context.Context, asOf time.Time, soonWindow time.Duration) (domain.ExpiryReport, error) {
	report := domain.ExpiryReport{
		Expired:      make([]domain.Product, 0, 8),
		ExpiringSoon: make([]domain.Product, 0, 8),
	}
	cutoff := asOf.Add(soonWindow)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE expiry_date IS NOT NULL AND expiry_date <= $1
		ORDER BY expiry_date, name
	`, cutoff)
	if err != nil {
		return report, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return report, err
		}
		if p.ExpiryDate != nil && p.ExpiryDate.Before(asOf) {
			report.Expired = append(report.Expired, p)
		} else {
			report.ExpiringSoon = append(report.ExpiringSoon, p)
		}
	}
	return report, rows.Err()
}

func (s *Store) ListLowStock(ctx context.Context, threshold decimal.Decimal) ([]domain.StockLevel, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sku, name, quantity
		FROM products
		WHERE quantity <= $1
		ORDER BY quantity, name
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.StockLevel, 0, 16)
	for rows.Next() {
		var lvl domain.StockLevel
		if err := rows.Scan(&lvl.ProductID, &lvl.SKU, &lvl.Name, &lvl.Quantity); err != nil {
			return nil, err
		}
		out = append(out, lvl)
	}
	return out, rows.Err()
}

// --- stock ledger ---

func (s *Store) IncrementStock(ctx context.Context, productID string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return &domain.InvalidQuantityError{ProductID: productID, Quantity: qty}
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET quantity = quantity + $1 WHERE id = $2
	`, qty, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.ProductNotFoundError{ProductID: productID}
	}
	return nil
}

func (s *Store) DecrementStockIfAvailable(ctx context.Context, productID string, qty decimal.Decimal) error {
	if !qty.IsPositive() {
		return &domain.InvalidQuantityError{ProductID: productID, Quantity: qty}
	}
	// Single conditional statement: the availability check and the
	// subtraction are one atomic step for any concurrent caller.
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET quantity = quantity - $1
		WHERE id = $2 AND quantity >= $1
	`, qty, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var available decimal.Decimal
	err = s.db.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = $1`, productID).Scan(&available)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.ProductNotFoundError{ProductID: productID}
	}
	if err != nil {
		return err
	}
	return &domain.InsufficientStockError{ProductID: productID, Requested: qty, Available: available}
}

func (s *Store) QuantityOnHand(ctx context.Context, productID string) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := s.db.QueryRowContext(ctx, `SELECT quantity FROM products WHERE id = $1`, productID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, &domain.ProductNotFoundError{ProductID: productID}
	}
	return qty, err
}

// --- orders ---

func (s *Store) CreateOrder(ctx context.Context, lines []domain.CartLine) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, store.ErrInvalidInput
	}

	required := make(map[string]decimal.Decimal, len(lines))
	ids := make([]string, 0, len(lines))
	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
		if _, seen := required[line.ProductID]; !seen {
			ids = append(ids, line.ProductID)
		}
		required[line.ProductID] = required[line.ProductID].Add(line.Quantity)
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// Exclusive locks on every product in the cart, held until commit.
	rows, err := tx.QueryContext(ctx, `
		SELECT id, price, purchase_price, quantity
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
		FOR UPDATE
	`, ids)
	if err != nil {
		return nil, err
	}
	type productState struct {
		price         decimal.Decimal
		purchasePrice decimal.Decimal
		quantity      decimal.Decimal
	}
	locked := make(map[string]productState, len(ids))
	for rows.Next() {
		var id string
		var st productState
		if err := rows.Scan(&id, &st.price, &st.purchasePrice, &st.quantity); err != nil {
			_ = rows.Close()
			return nil, err
		}
		locked[id] = st
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	for _, id := range ids {
		st, ok := locked[id]
		if !ok {
			return nil, &domain.ProductNotFoundError{ProductID: id}
		}
		if st.quantity.Cmp(required[id]) < 0 {
			return nil, &domain.InsufficientStockError{ProductID: id, Requested: required[id], Available: st.quantity}
		}
	}

	order := domain.Order{
		ID:          xid.New("ord"),
		TotalPrice:  decimal.Zero,
		TotalProfit: decimal.Zero,
		CreatedAt:   time.Now().UTC(),
		Items:       make([]domain.OrderItem, 0, len(lines)),
	}
	for id, qty := range required {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity - $1
			WHERE id = $2 AND quantity >= $1
		`, qty, id)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, &domain.InsufficientStockError{ProductID: id, Requested: qty, Available: locked[id].quantity}
		}
	}

	for _, line := range lines {
		st := locked[line.ProductID]
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Price:         st.price,
			PurchasePrice: st.purchasePrice,
		})
		order.TotalPrice = order.TotalPrice.Add(line.Quantity.Mul(st.price))
		order.TotalProfit = order.TotalProfit.Add(line.Quantity.Mul(st.price.Sub(st.purchasePrice)))
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, total_price, total_profit, created_at)
		VALUES ($1,$2,$3,$4)
	`, order.ID, order.TotalPrice, order.TotalProfit, order.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, item := range order.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, product_id, quantity, price, purchase_price)
			VALUES ($1,$2,$3,$4,$5)
		`, order.ID, item.ProductID, item.Quantity, item.Price, item.PurchasePrice)
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Store) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	err := s.db.QueryRowContext(ctx, `
		SELECT id, total_price, total_profit, created_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&order.ID, &order.TotalPrice, &order.TotalProfit, &order.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.OrderNotFoundError{OrderID: id}
		}
		return nil, err
	}
	order.CreatedAt = order.CreatedAt.UTC()

	items, err := s.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (s *Store) orderItems(ctx context.Context, orderID string) ([]domain.OrderItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT product_id, quantity, price, purchase_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.OrderItem, 0, 8)
	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.Price, &item.PurchasePrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, total_price, total_profit, created_at
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Order, 0, limit)
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(&order.ID, &order.TotalPrice, &order.TotalProfit, &order.CreatedAt); err != nil {
			return nil, err
		}
		order.CreatedAt = order.CreatedAt.UTC()
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.orderItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// --- purchases ---

func (s *Store) CreatePurchase(ctx context.Context, purchase domain.Purchase) (*domain.Purchase, error) {
	if len(purchase.Items) == 0 {
		return nil, store.ErrInvalidInput
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
	total := decimal.Zero
	for _, item := range purchase.Items {
		if !item.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		total = total.Add(item.Quantity.Mul(item.UnitCost))
	}
	purchase.TotalCost = total

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO purchases (id, supplier_id, status, expected_date, total_cost, received_applied, created_at)
		VALUES ($1,$2,$3,$4,$5,false,$6)
	`, purchase.ID, purchase.SupplierID, purchase.Status, nullDate(purchase.ExpectedDate), purchase.TotalCost, purchase.CreatedAt)
	if err != nil {
		if isForeignKeyViolation(err) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	for _, item := range purchase.Items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost)
			VALUES ($1,$2,$3,$4)
		`, purchase.ID, item.ProductID, item.Quantity, item.UnitCost)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := purchase
	return &created, nil
}

func (s *Store) GetPurchase(ctx context.Context, id string) (*domain.Purchase, error) {
	var p domain.Purchase
	var expected sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, supplier_id, status, expected_date, total_cost, received_applied, created_at
		FROM purchases
		WHERE id = $1
	`, id).Scan(&p.ID, &p.SupplierID, &p.Status, &expected, &p.TotalCost, &p.ReceivedApplied, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
		}
		return nil, err
	}
	if expected.Valid {
		e := expected.Time.UTC()
		p.ExpectedDate = &e
	}
	p.CreatedAt = p.CreatedAt.UTC()

	items, err := s.purchaseItems(ctx, s.db.QueryContext, id)
	if err != nil {
		return nil, err
	}
	p.Items = items
	return &p, nil
}

type queryFn func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func (s *Store) purchaseItems(ctx context.Context, query queryFn, purchaseID string) ([]domain.PurchaseItem, error) {
	rows, err := query(ctx, `
		SELECT product_id, quantity, unit_cost
		FROM purchase_items
		WHERE purchase_id = $1
		ORDER BY id
	`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.PurchaseItem, 0, 8)
	for rows.Next() {
		var item domain.PurchaseItem
		if err := rows.Scan(&item.ProductID, &item.Quantity, &item.UnitCost); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (s *Store) ListPurchases(ctx context.Context, status string, limit int) ([]domain.Purchase, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier_id, status, expected_date, total_cost, received_applied, created_at
		FROM purchases
		WHERE $1 = '' OR status = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Purchase, 0, limit)
	for rows.Next() {
		var p domain.Purchase
		var expected sql.NullTime
		if err := rows.Scan(&p.ID, &p.SupplierID, &p.Status, &expected, &p.TotalCost, &p.ReceivedApplied, &p.CreatedAt); err != nil {
			return nil, err
		}
		if expected.Valid {
			e := expected.Time.UTC()
			p.ExpectedDate = &e
		}
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		items, err := s.purchaseItems(ctx, s.db.QueryContext, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (s *Store) SetPurchaseStatus(ctx context.Context, id string, status string) (*domain.Purchase, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var current string
	var applied bool
	err = tx.QueryRowContext(ctx, `
		SELECT status, received_applied
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&current, &applied)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
		}
		return nil, err
	}
	if !domain.PurchaseTransitionAllowed(current, status) {
		return nil, &domain.InvalidTransitionError{PurchaseID: id, From: current, To: status}
	}

	_, err = tx.ExecContext(ctx, `UPDATE purchases SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return nil, err
	}
	if status == domain.PurchaseStatusReceived && !applied {
		if err := s.applyReceiptTx(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchase(ctx, id)
}

// applyReceiptTx increments stock for every line item and flips the
// received_applied flag inside the caller's transaction. The caller holds
// the purchase row lock and has already checked the flag.
func (s *Store) applyReceiptTx(ctx context.Context, tx *sql.Tx, purchaseID string) error {
	items, err := s.purchaseItems(ctx, tx.QueryContext, purchaseID)
	if err != nil {
		return err
	}
	for _, item := range items {
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity + $1 WHERE id = $2
		`, item.Quantity, item.ProductID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
	}
	_, err = tx.ExecContext(ctx, `UPDATE purchases SET received_applied = true WHERE id = $1`, purchaseID)
	return err
}

func (s *Store) ApplyPurchaseReceipt(ctx context.Context, id string) (*domain.ReceiptApplication, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	var applied bool
	err = tx.QueryRowContext(ctx, `
		SELECT status, received_applied
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&status, &applied)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
		}
		return nil, err
	}
	if status != domain.PurchaseStatusReceived {
		return nil, fmt.Errorf("purchase %s is %s, not received: %w", id, status, store.ErrInvalidInput)
	}
	if applied {
		// Replayed save of the received transition: success, no effect.
		return &domain.ReceiptApplication{PurchaseID: id, AlreadyApplied: true}, nil
	}
	if err := s.applyReceiptTx(ctx, tx, id); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &domain.ReceiptApplication{PurchaseID: id}, nil
}

func (s *Store) ReplacePurchaseItems(ctx context.Context, id string, items []domain.PurchaseItem) (*domain.Purchase, error) {
	if len(items) == 0 {
		return nil, store.ErrInvalidInput
	}
	total := decimal.Zero
	for _, item := range items {
		if !item.Quantity.IsPositive() {
			return nil, &domain.InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		if item.UnitCost.IsNegative() {
			return nil, store.ErrInvalidInput
		}
		total = total.Add(item.Quantity.Mul(item.UnitCost))
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	var applied bool
	err = tx.QueryRowContext(ctx, `
		SELECT status, received_applied
		FROM purchases
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&status, &applied)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.PurchaseNotFoundError{PurchaseID: id}
		}
		return nil, err
	}
	if applied || status == domain.PurchaseStatusReceived || status == domain.PurchaseStatusCancelled {
		return nil, fmt.Errorf("purchase %s is %s and can no longer be edited: %w", id, status, store.ErrInvalidInput)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM purchase_items WHERE purchase_id = $1`, id); err != nil {
		return nil, err
	}
	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_cost)
			VALUES ($1,$2,$3,$4)
		`, id, item.ProductID, item.Quantity, item.UnitCost)
		if err != nil {
			if isForeignKeyViolation(err) {
				return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
			}
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE purchases SET total_cost = $2 WHERE id = $1`, id, total); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.GetPurchase(ctx, id)
}

// --- returns ---

func (s *Store) CreateReturn(ctx context.Context, orderID string, req domain.ReturnRequest, actor string) (*domain.Return, error) {
	if len(req.Lines) == 0 || strings.TrimSpace(req.Reason) == "" {
		return nil, store.ErrInvalidInput
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	// The order row lock serializes concurrent returns against the same
	// order, so the sold-minus-returned arithmetic below stays exact.
	var exists string
	err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.OrderNotFoundError{OrderID: orderID}
		}
		return nil, err
	}

	itemRows, err := tx.QueryContext(ctx, `
		SELECT product_id, quantity, price, purchase_price
		FROM order_items
		WHERE order_id = $1
		ORDER BY id
	`, orderID)
	if err != nil {
		return nil, err
	}
	sold := make(map[string]decimal.Decimal)
	snapshot := make(map[string]domain.OrderItem)
	for itemRows.Next() {
		var item domain.OrderItem
		if err := itemRows.Scan(&item.ProductID, &item.Quantity, &item.Price, &item.PurchasePrice); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		sold[item.ProductID] = sold[item.ProductID].Add(item.Quantity)
		if _, seen := snapshot[item.ProductID]; !seen {
			snapshot[item.ProductID] = item
		}
	}
	if err := itemRows.Err(); err != nil {
		_ = itemRows.Close()
		return nil, err
	}
	_ = itemRows.Close()

	retRows, err := tx.QueryContext(ctx, `
		SELECT ri.product_id, COALESCE(SUM(ri.quantity), 0)
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		WHERE r.order_id = $1
		GROUP BY ri.product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	returned := make(map[string]decimal.Decimal)
	for retRows.Next() {
		var productID string
		var qty decimal.Decimal
		if err := retRows.Scan(&productID, &qty); err != nil {
			_ = retRows.Close()
			return nil, err
		}
		returned[productID] = qty
	}
	if err := retRows.Err(); err != nil {
		_ = retRows.Close()
		return nil, err
	}
	_ = retRows.Close()

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
			return nil, &domain.OverReturnError{OrderID: orderID, ProductID: productID, Requested: qty, Available: available}
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
	_, err = tx.ExecContext(ctx, `
		INSERT INTO returns (id, order_id, reason, comment, processed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)
	`, ret.ID, ret.OrderID, ret.Reason, ret.Comment, ret.ProcessedBy, ret.CreatedAt)
	if err != nil {
		return nil, err
	}
	for _, line := range req.Lines {
		orig := snapshot[line.ProductID]
		item := domain.ReturnItem{
			ProductID:     line.ProductID,
			Quantity:      line.Quantity,
			Price:         orig.Price,
			PurchasePrice: orig.PurchasePrice,
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO return_items (return_id, product_id, quantity, price, purchase_price)
			VALUES ($1,$2,$3,$4,$5)
		`, ret.ID, item.ProductID, item.Quantity, item.Price, item.PurchasePrice)
		if err != nil {
			return nil, err
		}
		res, err := tx.ExecContext(ctx, `
			UPDATE products SET quantity = quantity + $1 WHERE id = $2
		`, item.Quantity, item.ProductID)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, &domain.ProductNotFoundError{ProductID: item.ProductID}
		}
		ret.Items = append(ret.Items, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ret, nil
}

func (s *Store) ListReturns(ctx context.Context, orderID string) ([]domain.Return, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, order_id, reason, comment, processed_by, created_at
		FROM returns
		WHERE $1 = '' OR order_id = $1
		ORDER BY created_at DESC
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Return, 0, 8)
	for rows.Next() {
		var r domain.Return
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Reason, &r.Comment, &r.ProcessedBy, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		itemRows, err := s.db.QueryContext(ctx, `
			SELECT product_id, quantity, price, purchase_price
			FROM return_items
			WHERE return_id = $1
			ORDER BY id
		`, out[i].ID)
		if err != nil {
			return nil, err
		}
		items := make([]domain.ReturnItem, 0, 4)
		for itemRows.Next() {
			var item domain.ReturnItem
			if err := itemRows.Scan(&item.ProductID, &item.Quantity, &item.Price, &item.PurchasePrice); err != nil {
				_ = itemRows.Close()
				return nil, err
			}
			items = append(items, item)
		}
		if err := itemRows.Err(); err != nil {
			_ = itemRows.Close()
			return nil, err
		}
		_ = itemRows.Close()
		out[i].Items = items
	}
	return out, nil
}

func (s *Store) ReturnedQuantities(ctx context.Context, orderID string) (map[string]decimal.Decimal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ri.product_id, COALESCE(SUM(ri.quantity), 0)
		FROM return_items ri
		JOIN returns r ON r.id = ri.return_id
		WHERE r.order_id = $1
		GROUP BY ri.product_id
	`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]decimal.Decimal)
	for rows.Next() {
		var productID string
		var qty decimal.Decimal
		if err := rows.Scan(&productID, &qty); err != nil {
			return nil, err
		}
		out[productID] = qty
	}
	return out, rows.Err()
}

// --- write-offs ---

func (s *Store) CreateWriteOff(ctx context.Context, req domain.WriteOffRequest, actor string) (*domain.WriteOff, error) {
	if !domain.ValidWriteOffReason(req.Reason) {
		return nil, store.ErrInvalidInput
	}
	if !req.Quantity.IsPositive() {
		return nil, &domain.InvalidQuantityError{ProductID: req.ProductID, Quantity: req.Quantity}
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var purchasePrice, available decimal.Decimal
	err = tx.QueryRowContext(ctx, `
		SELECT purchase_price, quantity
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, req.ProductID).Scan(&purchasePrice, &available)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domain.ProductNotFoundError{ProductID: req.ProductID}
		}
		return nil, err
	}
	if available.Cmp(req.Quantity) < 0 {
		return nil, &domain.InsufficientStockError{ProductID: req.ProductID, Requested: req.Quantity, Available: available}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE products SET quantity = quantity - $1
		WHERE id = $2 AND quantity >= $1
	`, req.Quantity, req.ProductID)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &domain.InsufficientStockError{ProductID: req.ProductID, Requested: req.Quantity, Available: available}
	}

	w := domain.WriteOff{
		ID:            xid.New("wo"),
		ProductID:     req.ProductID,
		Quantity:      req.Quantity,
		Reason:        req.Reason,
		Comment:       req.Comment,
		CreatedBy:     actor,
		PurchasePrice: purchasePrice,
		CreatedAt:     time.Now().UTC(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO write_offs (id, product_id, quantity, reason, comment, created_by, purchase_price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, w.ID, w.ProductID, w.Quantity, w.Reason, w.Comment, w.CreatedBy, w.PurchasePrice, w.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Store) ListWriteOffs(ctx context.Context, limit int) ([]domain.WriteOff, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, quantity, reason, comment, created_by, purchase_price, created_at
		FROM write_offs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.WriteOff, 0, limit)
	for rows.Next() {
		var w domain.WriteOff
		if err := rows.Scan(&w.ID, &w.ProductID, &w.Quantity, &w.Reason, &w.Comment, &w.CreatedBy, &w.PurchasePrice, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.CreatedAt = w.CreatedAt.UTC()
		out = append(out, w)
	}
	return out, rows.Err()
}

// --- reports ---

func (s *Store) DashboardStats(ctx context.Context, lowStockThreshold decimal.Decimal) (domain.DashboardStats, error) {
	var stats domain.DashboardStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(total_price), 0), COALESCE(SUM(total_profit), 0)
		FROM orders
	`).Scan(&stats.TotalOrders, &stats.TotalSales, &stats.TotalProfit)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT r.id), COALESCE(SUM(ri.quantity * ri.price), 0)
		FROM returns r
		LEFT JOIN return_items ri ON ri.return_id = r.id
	`).Scan(&stats.ReturnsCount, &stats.RefundTotal)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(quantity * purchase_price), 0)
		FROM write_offs
	`).Scan(&stats.WriteOffLoss)
	if err != nil {
		return stats, err
	}
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM products WHERE quantity <= $1
	`, lowStockThreshold).Scan(&stats.LowStockCount)
	return stats, err
}

func (s *Store) SalesSeries(ctx context.Context, from time.Time, days int) (domain.ChartSeries, error) {
	return s.orderSeries(ctx, from, days, "total_price")
}

func (s *Store) ProfitSeries(ctx context.Context, from time.Time, days int) (domain.ChartSeries, error) {
	return s.orderSeries(ctx, from, days, "total_profit")
}

func (s *Store) orderSeries(ctx context.Context, from time.Time, days int, column string) (domain.ChartSeries, error) {
	if column != "total_price" && column != "total_profit" {
		return domain.ChartSeries{}, fmt.Errorf("unsupported series column")
	}
	if days < 1 {
		days = 30
	}
	from = from.UTC().Truncate(24 * time.Hour)

	query := fmt.Sprintf(`
		SELECT d::date, COALESCE(SUM(o.%s), 0)
		FROM generate_series($1::date, $1::date + ($2 - 1) * interval '1 day', interval '1 day') d
		LEFT JOIN orders o ON o.created_at::date = d::date
		GROUP BY d::date
		ORDER BY d::date
	`, column)
	rows, err := s.db.QueryContext(ctx, query, from, days)
	if err != nil {
		return domain.ChartSeries{}, err
	}
	defer rows.Close()

	series := domain.ChartSeries{
		Labels: make([]string, 0, days),
		Values: make([]decimal.Decimal, 0, days),
	}
	for rows.Next() {
		var day time.Time
		var value decimal.Decimal
		if err := rows.Scan(&day, &value); err != nil {
			return domain.ChartSeries{}, err
		}
		series.Labels = append(series.Labels, day.UTC().Format("2006-01-02"))
		series.Values = append(series.Values, value)
	}
	return series, rows.Err()
}

func (s *Store) CategorySales(ctx context.Context) ([]domain.CategorySales, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, COALESCE(SUM(oi.quantity * oi.price), 0) AS total
		FROM categories c
		JOIN products p ON p.category_id = c.id
		JOIN order_items oi ON oi.product_id = p.id
		GROUP BY c.id, c.name
		ORDER BY total DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.CategorySales, 0, 16)
	for rows.Next() {
		var cs domain.CategorySales
		if err := rows.Scan(&cs.CategoryID, &cs.Category, &cs.Total); err != nil {
			return nil, err
		}
		out = append(out, cs)
	}
	return out, rows.Err()
}

// --- audit log ---

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("log")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action,
			&entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		out = append(out, entry)
	}
	return out, rows.Err()
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, user.Username, user.Password, user.Role, user.Active, user.CreatedAt)
	if isUniqueViolation(err) {
		return store.ErrDuplicate
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.UserAccount, 0, 8)
	for rows.Next() {
		var u domain.UserAccount
		if err := rows.Scan(&u.Username, &u.Password, &u.Role, &u.Active, &u.CreatedAt); err != nil {
			return nil, err
		}
		u.CreatedAt = u.CreatedAt.UTC()
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = $1
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- helpers ---

func nullIfEmpty(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
