package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/signal"
	"github.com/fjod/go_storefront/pkg/logger"
	"go.uber.org/zap"
)

// PaymentVerifier fetches the provider's record of a payment. Provider refusals come back
// as *payment.APIError; anything else is a transport or configuration failure.
type PaymentVerifier interface {
	GetPayment(ctx context.Context, paymentKey string) (*payment.Payment, error)
}

type PaymentService struct {
	orders   repository.OrderRepository
	verifier PaymentVerifier
	notifier Notifier
	log      *zap.Logger
	timeout  time.Duration
	now      func() time.Time
}

func NewPaymentService(
	orders repository.OrderRepository,
	verifier PaymentVerifier,
	notifier Notifier,
	log *zap.Logger,
	timeout time.Duration,
) *PaymentService {
	return &PaymentService{
		orders:   orders,
		verifier: verifier,
		notifier: notifier,
		log:      log,
		timeout:  timeout,
		now:      time.Now,
	}
}

// ConfirmPayment moves a pending order to confirmed once the provider vouches for the payment.
// The checks run in a fixed order: ownership, amount, status, then the provider lookup.
func (s *PaymentService) ConfirmPayment(ctx context.Context, ownerID, paymentKey, orderID string, amount int64) (*domain.Order, error) {
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}
	if paymentKey == "" || orderID == "" {
		return nil, fail(ErrEmptyInput, "결제 정보가 누락되었습니다.")
	}
	log := logger.WithTrace(ctx, s.log).With(zap.String("owner_id", ownerID), zap.String("order_id", orderID))

	order, err := loadOwnedOrder(ctx, s.orders, ownerID, orderID)
	if err != nil {
		return nil, err
	}

	if order.TotalAmount != amount {
		log.Warn("payment amount mismatch", zap.Int64("order_amount", order.TotalAmount), zap.Int64("payment_amount", amount))
		return nil, fail(ErrAmountMismatch, "결제 금액이 일치하지 않습니다.")
	}

	if order.Status != domain.OrderStatusPending {
		return nil, alreadyProcessed(order.Status)
	}

	verifyCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	p, err := s.verifier.GetPayment(verifyCtx, paymentKey)
	if err != nil {
		var apiErr *payment.APIError
		if errors.As(err, &apiErr) {
			log.Warn("payment provider refused lookup", zap.Int("status", apiErr.StatusCode), zap.String("code", apiErr.Code))
			return nil, failWith(ErrProviderError, fmt.Sprintf("결제 검증 실패: %s", apiErr.Message), err)
		}
		log.Error("payment verification request failed", zap.Error(err))
		return nil, failWith(ErrVerificationFailed, "결제 검증 중 오류가 발생했습니다.", err)
	}

	if p.OrderID != order.ID || p.TotalAmount != order.TotalAmount {
		log.Warn("payment record does not match order",
			zap.String("provider_order_id", p.OrderID),
			zap.Int64("provider_amount", p.TotalAmount))
		return nil, fail(ErrProviderError, "결제 정보가 일치하지 않습니다.")
	}
	if p.Status != payment.StatusDone {
		return nil, fail(ErrProviderError, fmt.Sprintf("결제가 완료되지 않았습니다. (결제 상태: %s)", p.Status))
	}

	now := s.now().UTC()
	err = s.orders.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, now)
	if errors.Is(err, repository.ErrStatusConflict) {
		// another request moved the order first
		return nil, fail(ErrAlreadyProcessed, "이미 처리된 주문입니다.")
	}
	if err != nil {
		return nil, fmt.Errorf("confirm order: %w", err)
	}

	order.Status = domain.OrderStatusConfirmed
	order.UpdatedAt = now
	s.notifier.Notify(ctx, signal.OrderChanged(signal.KindOrderConfirmed, ownerID, order.ID))
	log.Info("payment confirmed", zap.String("payment_key", p.PaymentKey), zap.Int64("amount", p.TotalAmount))
	return order, nil
}

func alreadyProcessed(status domain.OrderStatus) *Failure {
	return fail(ErrAlreadyProcessed, fmt.Sprintf("이미 처리된 주문입니다. (현재 상태: %s)", status))
}
