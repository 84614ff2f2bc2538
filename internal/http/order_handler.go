package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, ownerID string, address domain.ShippingAddress, note *string) (string, error)
	GetOrders(ctx context.Context, ownerID string) ([]*domain.Order, error)
	GetOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, ownerID, orderID string) error
}

type OrdersHandler struct {
	orders    OrderService
	validator *Validator
	log       *zap.Logger
	timeout   time.Duration
}

func NewOrdersHandler(orders OrderService, validator *Validator, log *zap.Logger, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:    orders,
		validator: validator,
		log:       log,
		timeout:   timeout,
	}
}

type ShippingAddressDTO struct {
	Recipient     string `json:"recipient" validate:"required,runes=50,recipient"`
	Phone         string `json:"phone" validate:"required,krphone"`
	PostalCode    string `json:"postal_code" validate:"required,krpostal"`
	Address       string `json:"address" validate:"required,runes=200"`
	DetailAddress string `json:"detail_address" validate:"runes=100"`
}

type CreateOrderRequestDTO struct {
	ShippingAddress *ShippingAddressDTO `json:"shipping_address" validate:"required"`
	OrderNote       *string             `json:"order_note" validate:"omitempty,runes=500"`
}

type OrderResponseDTO struct {
	*domain.Order
	StatusLabel string `json:"status_label"`
}

func toOrderResponse(o *domain.Order) OrderResponseDTO {
	return OrderResponseDTO{Order: o, StatusLabel: o.Status.Label()}
}

func (h *OrdersHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CreateOrderRequestDTO
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	var note *string
	if req.OrderNote != nil && strings.TrimSpace(*req.OrderNote) != "" {
		note = req.OrderNote
	}
	addr := req.ShippingAddress
	orderID, err := h.orders.CreateOrder(ctx, auth.IdentityFrom(r.Context()), domain.ShippingAddress{
		Recipient:     strings.TrimSpace(addr.Recipient),
		Phone:         addr.Phone,
		PostalCode:    addr.PostalCode,
		Address:       addr.Address,
		DetailAddress: addr.DetailAddress,
	}, note)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]string{"order_id": orderID})
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orders, err := h.orders.GetOrders(ctx, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	out := make([]OrderResponseDTO, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	respondData(w, http.StatusOK, out)
}

func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	order, err := h.orders.GetOrder(ctx, auth.IdentityFrom(r.Context()), chi.URLParam(r, "order_id"))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondData(w, http.StatusOK, toOrderResponse(order))
}

func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	orderID := chi.URLParam(r, "order_id")
	if err := h.orders.CancelOrder(ctx, auth.IdentityFrom(r.Context()), orderID); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondData(w, http.StatusOK, map[string]string{
		"order_id": orderID,
		"status":   domain.OrderStatusCancelled.String(),
	})
}
