package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/inventory"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/signal"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CartSource is the part of the cart the order flow needs.
type CartSource interface {
	Snapshot(ctx context.Context, ownerID string) ([]domain.CartItem, error)
	Clear(ctx context.Context, ownerID string) error
}

type OrderService struct {
	carts    CartSource
	orders   repository.OrderRepository
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

func NewOrderService(carts CartSource, orders repository.OrderRepository, notifier Notifier, log *zap.Logger) *OrderService {
	return &OrderService{
		carts:    carts,
		orders:   orders,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func orderNotFound() *Failure {
	return fail(ErrNotFound, "주문을 찾을 수 없습니다.")
}

// CreateOrder turns the caller's cart into a pending order and returns its id.
// Every line is validated before anything is written.
func (s *OrderService) CreateOrder(ctx context.Context, ownerID string, address domain.ShippingAddress, note *string) (string, error) {
	if err := requireIdentity(ownerID); err != nil {
		return "", err
	}
	log := logger.WithTrace(ctx, s.log).With(zap.String("owner_id", ownerID))

	items, err := s.carts.Snapshot(ctx, ownerID)
	if err != nil {
		return "", fmt.Errorf("load cart: %w", err)
	}
	if len(items) == 0 {
		return "", fail(ErrEmptyCart, "장바구니가 비어있습니다.")
	}

	for _, item := range items {
		if item.Product == nil {
			return "", fail(ErrMissingProduct, fmt.Sprintf("상품 정보를 찾을 수 없습니다. (ID: %s)", item.ProductID))
		}
		switch err := inventory.Check(item.Product, item.Quantity); {
		case errors.Is(err, inventory.ErrInactive):
			return "", fail(ErrMissingProduct, fmt.Sprintf("상품 정보를 찾을 수 없습니다. (ID: %s)", item.ProductID))
		case errors.Is(err, inventory.ErrInvalidQuantity):
			return "", fail(ErrInvalidQuantity, "수량은 1개 이상이어야 합니다.")
		case errors.Is(err, inventory.ErrInsufficientStock):
			return "", fail(ErrInsufficientStock, fmt.Sprintf("%s의 재고가 부족합니다. (요청: %d개, 재고: %d개)",
				item.Product.Name, item.Quantity, item.Product.StockQuantity))
		}
	}

	now := s.now().UTC()
	order := &domain.Order{
		ID:              uuid.NewString(),
		OwnerID:         ownerID,
		Status:          domain.OrderStatusPending,
		ShippingAddress: address,
		OrderNote:       note,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	lines := make([]domain.OrderLine, 0, len(items))
	for i, item := range items {
		order.TotalAmount += item.Product.Price * int64(item.Quantity)
		lines = append(lines, domain.OrderLine{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			ProductID:   item.Product.ID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			Price:       item.Product.Price,
			// keeps cart order when lines are read back by creation time
			CreatedAt: now.Add(time.Duration(i) * time.Microsecond),
		})
	}

	if err := s.persist(ctx, log, order, lines); err != nil {
		return "", err
	}

	if err := s.carts.Clear(ctx, ownerID); err != nil {
		log.Warn("cart not cleared after order placement", zap.String("order_id", order.ID), zap.Error(err))
	}

	s.notifier.Notify(ctx, signal.OrderCreated(ownerID, order.ID))
	log.Info("order created", zap.String("order_id", order.ID), zap.Int64("total_amount", order.TotalAmount))
	return order.ID, nil
}

func (s *OrderService) persist(ctx context.Context, log *zap.Logger, order *domain.Order, lines []domain.OrderLine) error {
	if tx, ok := s.orders.(repository.OrderTransactor); ok {
		if err := tx.CreateOrderWithLines(ctx, order, lines); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("create order: %w", err)
	}

	if err := s.orders.CreateOrderLines(ctx, lines); err != nil {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if delErr := s.orders.DeleteOrder(delCtx, order.ID); delErr != nil {
			log.Error("orphan order left behind, compensating delete failed",
				zap.String("order_id", order.ID),
				zap.NamedError("lines_error", err),
				zap.Error(delErr))
		}
		return failWith(ErrOrderItemsFailed, "주문 상세 생성에 실패했습니다.", err)
	}
	return nil
}

func (s *OrderService) GetOrders(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}

	orders, err := s.orders.ListOrders(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// GetOrder returns the order with its lines. Absent and foreign orders look the same.
func (s *OrderService) GetOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error) {
	order, err := s.loadOwned(ctx, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	lines, err := s.orders.GetOrderLines(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("load order lines: %w", err)
	}
	order.Lines = lines
	return order, nil
}

// CancelOrder cancels a pending order. Any other status is refused with its own message.
func (s *OrderService) CancelOrder(ctx context.Context, ownerID, orderID string) error {
	order, err := s.loadOwned(ctx, ownerID, orderID)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		return cannotCancel(order.Status)
	}

	err = s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, s.now().UTC())
	if errors.Is(err, repository.ErrStatusConflict) {
		current, loadErr := s.loadOwned(ctx, ownerID, orderID)
		if loadErr != nil {
			return loadErr
		}
		return cannotCancel(current.Status)
	}
	if err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}

	s.notifier.Notify(ctx, signal.OrderChanged(signal.KindOrderCancelled, ownerID, order.ID))
	logger.WithTrace(ctx, s.log).Info("order cancelled", zap.String("order_id", order.ID))
	return nil
}

func cannotCancel(status domain.OrderStatus) *Failure {
	return fail(ErrInvalidTransition, fmt.Sprintf("%s 상태의 주문은 취소할 수 없습니다.", status.Label()))
}

func (s *OrderService) loadOwned(ctx context.Context, ownerID, orderID string) (*domain.Order, error) {
	return loadOwnedOrder(ctx, s.orders, ownerID, orderID)
}

func loadOwnedOrder(ctx context.Context, orders repository.OrderRepository, ownerID, orderID string) (*domain.Order, error) {
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}
	// a malformed id cannot name any order
	if _, err := uuid.Parse(orderID); err != nil {
		return nil, orderNotFound()
	}

	order, err := orders.GetOrder(ctx, ownerID, orderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		return nil, orderNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	return order, nil
}
