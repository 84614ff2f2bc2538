package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"go.uber.org/zap"
)

type PaymentService interface {
	ConfirmPayment(ctx context.Context, ownerID, paymentKey, orderID string, amount int64) (*domain.Order, error)
}

type PaymentsHandler struct {
	payments  PaymentService
	validator *Validator
	log       *zap.Logger
	timeout   time.Duration
}

func NewPaymentsHandler(payments PaymentService, validator *Validator, log *zap.Logger, timeout time.Duration) *PaymentsHandler {
	return &PaymentsHandler{
		payments:  payments,
		validator: validator,
		log:       log,
		timeout:   timeout,
	}
}

// ConfirmPaymentRequestDTO mirrors the provider's success redirect (paymentKey, orderId, amount).
type ConfirmPaymentRequestDTO struct {
	PaymentKey string `json:"payment_key" validate:"required"`
	OrderID    string `json:"order_id" validate:"required"`
	// nil when absent; zero is a valid total
	Amount     *int64 `json:"amount" validate:"required,min=0"`
}

func (h *PaymentsHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ConfirmPaymentRequestDTO
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	order, err := h.payments.ConfirmPayment(ctx, auth.IdentityFrom(r.Context()), req.PaymentKey, req.OrderID, *req.Amount)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondData(w, http.StatusOK, toOrderResponse(order))
}
