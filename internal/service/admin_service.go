package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/signal"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultRecentOrders = 20
	MaxRecentOrders     = 100
)

// AdminService is the back-office view of orders. It is not owner scoped; callers are
// expected to have passed an admin check before reaching it.
type AdminService struct {
	orders   repository.OrderAdminRepository
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewAdminService(orders repository.OrderAdminRepository, notifier Notifier, log *zap.Logger) *AdminService {
	return &AdminService{orders: orders, notifier: notifier, log: log, now: time.Now}
}

// UpdateOrderStatus advances fulfilment: confirmed -> shipped -> delivered.
// Confirmation and cancellation have their own flows and are refused here.
func (s *AdminService) UpdateOrderStatus(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	if to != domain.OrderStatusShipped && to != domain.OrderStatusDelivered {
		return nil, fail(ErrInvalidTransition, fmt.Sprintf("관리자는 %s 상태로 변경할 수 없습니다.", to.Label()))
	}
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, orderNotFound()
	}

	order, err := s.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, orderNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if !order.Status.CanTransitionTo(to) {
		return nil, fail(ErrInvalidTransition,
			fmt.Sprintf("%s 상태의 주문은 %s 상태로 변경할 수 없습니다.", order.Status.Label(), to.Label()))
	}

	now := s.now().UTC()
	err = s.orders.UpdateStatus(ctx, order.ID, order.Status, to, now)
	if errors.Is(err, repository.ErrStatusConflict) {
		return nil, fail(ErrInvalidTransition, "주문 상태가 이미 변경되었습니다. 다시 시도해주세요.")
	}
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	from := order.Status
	order.Status = to
	order.UpdatedAt = now
	s.notifier.Notify(ctx, signal.OrderChanged(signal.KindOrderStatusChanged, order.OwnerID, order.ID))
	logger.WithTrace(ctx, s.log).Info("order status changed by admin",
		zap.String("order_id", order.ID),
		zap.String("from", from.String()),
		zap.String("to", to.String()))
	return order, nil
}

func (s *AdminService) ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentOrders
	case limit > MaxRecentOrders:
		limit = MaxRecentOrders
	}

	orders, err := s.orders.ListRecentOrders(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent orders: %w", err)
	}
	return orders, nil
}
