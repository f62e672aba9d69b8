package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/FrankovDmutro/Store-inventory-system/internal/domain"
	"github.com/FrankovDmutro/Store-inventory-system/internal/store"
	"github.com/FrankovDmutro/Store-inventory-system/internal/util"
)

// Checkout sells a cart in one atomic unit: either every line is decremented
// and the order recorded, or nothing changes. Prices and purchase prices are
// snapshotted into the order items at commit time.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Order, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("empty cart: %w", store.ErrInvalidInput)
	}
	for _, line := range req.Lines {
		if !line.Quantity.IsPositive() {
			util.CheckoutsRejectedTotal.WithLabelValues("invalid_quantity").Inc()
			return nil, &domain.InvalidQuantityError{ProductID: line.ProductID, Quantity: line.Quantity}
		}
	}

	start := time.Now()
	order, err := s.repo.CreateOrder(ctx, req.Lines)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			util.StockRejectionsTotal.Inc()
			util.CheckoutsRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		} else {
			util.CheckoutsRejectedTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	util.CheckoutLatency.Observe(time.Since(start).Seconds())
	util.CheckoutsTotal.Inc()

	s.logAudit(ctx, "checkout", "order", order.ID,
		fmt.Sprintf("lines=%d,total=%s,profit=%s", len(order.Items), order.TotalPrice, order.TotalProfit))
	s.invalidateLowStock(ctx)
	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetOrder(ctx, id)
}

func (s *Service) ListOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	return s.repo.ListOrders(ctx, limit)
}

// ProcessReturn takes back sold items against an order. Every line must fit
// within sold-minus-already-returned for its product; one offending line
// rejects the whole return.
func (s *Service) ProcessReturn(ctx context.Context, orderID string, req domain.ReturnRequest) (*domain.Return, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("empty return: %w", store.ErrInvalidInput)
	}
	if !domain.ValidReturnReason(req.Reason) {
		return nil, fmt.Errorf("unknown return reason %q: %w", req.Reason, store.ErrInvalidInput)
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	ret, err := s.repo.CreateReturn(ctx, orderID, req, actor.Username)
	if err != nil {
		var over *domain.OverReturnError
		if errors.As(err, &over) {
			util.ReturnsRejectedTotal.WithLabelValues("over_return").Inc()
		} else {
			util.ReturnsRejectedTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}
	util.ReturnsProcessedTotal.Inc()

	s.logAudit(ctx, "return", "order", orderID,
		fmt.Sprintf("return=%s,refund=%s,loss=%s", ret.ID, ret.TotalRefund(), ret.TotalLoss()))
	s.invalidateLowStock(ctx)
	return ret, nil
}

func (s *Service) ListReturns(ctx context.Context, orderID string) ([]domain.Return, error) {
	return s.repo.ListReturns(ctx, orderID)
}

// CreateWriteOff removes damaged, defective or expired stock. The check and
// the decrement are one atomic step, and the product's purchase price is
// snapshotted so later cost edits never change the recorded loss.
func (s *Service) CreateWriteOff(ctx context.Context, req domain.WriteOffRequest) (*domain.WriteOff, error) {
	if !domain.ValidWriteOffReason(req.Reason) {
		return nil, fmt.Errorf("unknown write-off reason %q: %w", req.Reason, store.ErrInvalidInput)
	}
	if !req.Quantity.IsPositive() {
		return nil, &domain.InvalidQuantityError{ProductID: req.ProductID, Quantity: req.Quantity}
	}

	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}

	w, err := s.repo.CreateWriteOff(ctx, req, actor.Username)
	if err != nil {
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			util.StockRejectionsTotal.Inc()
		}
		return nil, err
	}
	util.WriteOffsTotal.WithLabelValues(w.Reason).Inc()

	s.logAudit(ctx, "write_off", "product", w.ProductID,
		fmt.Sprintf("write_off=%s,qty=%s,reason=%s,loss=%s", w.ID, w.Quantity, w.Reason, w.TotalLoss()))
	s.invalidateLowStock(ctx)
	return w, nil
}

func (s *Service) ListWriteOffs(ctx context.Context, limit int) ([]domain.WriteOff, error) {
	return s.repo.ListWriteOffs(ctx, limit)
}
