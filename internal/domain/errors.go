package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InsufficientStockError is returned when a checkout or write-off asks for
// more than is on hand. Available reflects the quantity seen under the row
// lock at the moment of the failed operation.
type InsufficientStockError struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %s, available %s",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	_, ok := target.(*InsufficientStockError)
	return ok
}

// OverReturnError is returned when a return line exceeds the quantity sold
// and not yet returned for its (order, product) pair.
type OverReturnError struct {
	OrderID   string
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *OverReturnError) Error() string {
	return fmt.Sprintf("over-return for product %s on order %s: requested %s, returnable %s",
		e.ProductID, e.OrderID, e.Requested, e.Available)
}

func (e *OverReturnError) Is(target error) bool {
	_, ok := target.(*OverReturnError)
	return ok
}

type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product not found: %s", e.ProductID)
}

func (e *ProductNotFoundError) Is(target error) bool {
	_, ok := target.(*ProductNotFoundError)
	return ok
}

// ProductNotOnOrderError is returned when a return references a product that
// never appeared on the order.
type ProductNotOnOrderError struct {
	OrderID   string
	ProductID string
}

func (e *ProductNotOnOrderError) Error() string {
	return fmt.Sprintf("product %s is not on order %s", e.ProductID, e.OrderID)
}

func (e *ProductNotOnOrderError) Is(target error) bool {
	_, ok := target.(*ProductNotOnOrderError)
	return ok
}

type OrderNotFoundError struct {
	OrderID string
}

func (e *OrderNotFoundError) Error() string {
	return fmt.Sprintf("order not found: %s", e.OrderID)
}

func (e *OrderNotFoundError) Is(target error) bool {
	_, ok := target.(*OrderNotFoundError)
	return ok
}

type PurchaseNotFoundError struct {
	PurchaseID string
}

func (e *PurchaseNotFoundError) Error() string {
	return fmt.Sprintf("purchase not found: %s", e.PurchaseID)
}

func (e *PurchaseNotFoundError) Is(target error) bool {
	_, ok := target.(*PurchaseNotFoundError)
	return ok
}

// InvalidQuantityError is returned for zero or negative quantities before any
// unit of work is opened.
type InvalidQuantityError struct {
	ProductID string
	Quantity  decimal.Decimal
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity %s for product %s", e.Quantity, e.ProductID)
}

func (e *InvalidQuantityError) Is(target error) bool {
	_, ok := target.(*InvalidQuantityError)
	return ok
}

// ProductReferencedError is returned when deleting a product that historical
// order, purchase, return or write-off records still reference.
type ProductReferencedError struct {
	ProductID string
}

func (e *ProductReferencedError) Error() string {
	return fmt.Sprintf("product %s has historical records and cannot be deleted", e.ProductID)
}

func (e *ProductReferencedError) Is(target error) bool {
	_, ok := target.(*ProductReferencedError)
	return ok
}

// InvalidTransitionError is returned for a purchase status change the state
// machine does not allow.
type InvalidTransitionError struct {
	PurchaseID string
	From       string
	To         string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("purchase %s cannot move from %s to %s", e.PurchaseID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool {
	_, ok := target.(*InvalidTransitionError)
	return ok
}
