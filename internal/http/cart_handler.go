package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/fjod/go_storefront/internal/auth"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type CartService interface {
	Add(ctx context.Context, ownerID, productID string, quantity int32) (*domain.CartLine, error)
	UpdateQuantity(ctx context.Context, ownerID, lineID string, quantity int32) error
	Remove(ctx context.Context, ownerID, lineID string) error
	RemoveMany(ctx context.Context, ownerID string, lineIDs []string) error
	Clear(ctx context.Context, ownerID string) error
	List(ctx context.Context, ownerID string) ([]domain.CartItem, error)
	Count(ctx context.Context, ownerID string) int
}

type CartHandler struct {
	carts     CartService
	validator *Validator
	log       *zap.Logger
	timeout   time.Duration
}

func NewCartHandler(carts CartService, validator *Validator, log *zap.Logger, timeout time.Duration) *CartHandler {
	return &CartHandler{
		carts:     carts,
		validator: validator,
		log:       log,
		timeout:   timeout,
	}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  *int32 `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *int32 `json:"quantity" validate:"required"`
}

type RemoveItemsRequestDTO struct {
	LineIDs []string `json:"line_ids"`
}

type CartResponseDTO struct {
	Items   []domain.CartItem  `json:"items"`
	Summary domain.CartSummary `json:"summary"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.carts.List(ctx, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondData(w, http.StatusOK, CartResponseDTO{Items: items, Summary: domain.Summarize(items)})
}

func (h *CartHandler) GetCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	n := h.carts.Count(ctx, auth.IdentityFrom(r.Context()))
	respondData(w, http.StatusOK, map[string]int{"count": n})
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req AddItemRequestDTO
	if !h.decode(w, r, &req) {
		return
	}
	quantity := int32(1)
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	line, err := h.carts.Add(ctx, auth.IdentityFrom(r.Context()), req.ProductID, quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	respondData(w, http.StatusCreated, line)
}

func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req UpdateQuantityRequestDTO
	if !h.decode(w, r, &req) {
		return
	}

	err := h.carts.UpdateQuantity(ctx, auth.IdentityFrom(r.Context()), chi.URLParam(r, "line_id"), *req.Quantity)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Remove(ctx, auth.IdentityFrom(r.Context()), chi.URLParam(r, "line_id")); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// RemoveItems deletes several lines at once; an absent body is an empty selection.
func (h *CartHandler) RemoveItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RemoveItemsRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, "invalid_request", invalidInputMessage)
		return
	}

	if err := h.carts.RemoveMany(ctx, auth.IdentityFrom(r.Context()), req.LineIDs); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.carts.Clear(ctx, auth.IdentityFrom(r.Context())); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	return decodeAndValidate(w, r, h.validator, dst)
}

// decodeAndValidate writes the 400 response itself and reports whether the handler may continue.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *Validator, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", invalidInputMessage)
		return false
	}
	if msg := v.Validate(dst); msg != "" {
		respondError(w, http.StatusBadRequest, "validation_error", msg)
		return false
	}
	return true
}
