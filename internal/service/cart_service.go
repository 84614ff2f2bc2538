package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/inventory"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/signal"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Notifier receives change signals after successful mutations.
type Notifier interface {
	Notify(ctx context.Context, ev signal.Event)
}

type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	cache    cache.CartCache
	notifier Notifier
	log      *zap.Logger
	sfg      singleflight.Group // Prevents cache stampede
	now      func() time.Time
}

func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	c cache.CartCache,
	notifier Notifier,
	log *zap.Logger,
) *CartService {
	return &CartService{
		carts:    carts,
		products: products,
		cache:    c,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

func requireIdentity(ownerID string) error {
	if ownerID == "" {
		return fail(ErrUnauthenticated, "인증이 필요합니다. 로그인해주세요.")
	}
	return nil
}

func productNotFound() *Failure { return fail(ErrNotFound, "상품을 찾을 수 없습니다.") }

func lineNotFound() *Failure { return fail(ErrNotFound, "장바구니 아이템을 찾을 수 없습니다.") }

// wellFormed reports whether id can name a stored product or cart line.
func wellFormed(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func insufficientStock(stock int32) *Failure {
	return fail(ErrInsufficientStock, fmt.Sprintf("재고가 부족합니다. (현재 재고: %d개)", stock))
}

// Add puts quantity units of a product in the cart, merging with an existing line.
func (s *CartService) Add(ctx context.Context, ownerID, productID string, quantity int32) (*domain.CartLine, error) {
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, fail(ErrInvalidQuantity, "수량은 1개 이상이어야 합니다.")
	}
	if !wellFormed(productID) {
		return nil, productNotFound()
	}

	product, err := s.products.GetProduct(ctx, productID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return nil, productNotFound()
	}
	if err != nil {
		return nil, fmt.Errorf("load product: %w", err)
	}

	switch err := inventory.Check(product, quantity); {
	case errors.Is(err, inventory.ErrInactive):
		return nil, fail(ErrInactive, "판매 중지된 상품입니다.")
	case errors.Is(err, inventory.ErrInsufficientStock):
		return nil, insufficientStock(product.StockQuantity)
	}

	now := s.now().UTC()
	line, err := s.carts.AddQuantity(ctx, &domain.CartLine{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ProductID: productID,
		Quantity:  quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}, product.StockQuantity)
	if errors.Is(err, repository.ErrStockCeiling) {
		return nil, insufficientStock(product.StockQuantity)
	}
	if err != nil {
		return nil, fmt.Errorf("add cart line: %w", err)
	}

	s.changed(ctx, ownerID)
	return line, nil
}

func (s *CartService) UpdateQuantity(ctx context.Context, ownerID, lineID string, quantity int32) error {
	if err := requireIdentity(ownerID); err != nil {
		return err
	}
	if quantity < 1 {
		return fail(ErrInvalidQuantity, "수량은 1개 이상이어야 합니다.")
	}
	if !wellFormed(lineID) {
		return lineNotFound()
	}

	line, err := s.carts.GetLine(ctx, ownerID, lineID)
	if errors.Is(err, repository.ErrCartLineNotFound) {
		return lineNotFound()
	}
	if err != nil {
		return fmt.Errorf("load cart line: %w", err)
	}

	product, err := s.products.GetProduct(ctx, line.ProductID)
	if errors.Is(err, repository.ErrProductNotFound) {
		return productNotFound()
	}
	if err != nil {
		return fmt.Errorf("load product: %w", err)
	}

	switch err := inventory.Check(product, quantity); {
	case errors.Is(err, inventory.ErrInactive):
		return fail(ErrInactive, "판매 중지된 상품입니다.")
	case errors.Is(err, inventory.ErrInsufficientStock):
		return insufficientStock(product.StockQuantity)
	}

	err = s.carts.SetQuantity(ctx, ownerID, lineID, quantity, product.StockQuantity, s.now().UTC())
	switch {
	case errors.Is(err, repository.ErrCartLineNotFound):
		return lineNotFound()
	case errors.Is(err, repository.ErrStockCeiling):
		return insufficientStock(product.StockQuantity)
	case err != nil:
		return fmt.Errorf("update cart line: %w", err)
	}

	s.changed(ctx, ownerID)
	return nil
}

// Remove deletes one line. Removing a line that is gone or foreign is a no-op.
func (s *CartService) Remove(ctx context.Context, ownerID, lineID string) error {
	return s.RemoveMany(ctx, ownerID, []string{lineID})
}

func (s *CartService) RemoveMany(ctx context.Context, ownerID string, lineIDs []string) error {
	if err := requireIdentity(ownerID); err != nil {
		return err
	}
	if len(lineIDs) == 0 {
		return fail(ErrEmptyInput, "삭제할 아이템을 선택해주세요.")
	}

	// malformed ids match no line
	ids := make([]string, 0, len(lineIDs))
	for _, id := range lineIDs {
		if wellFormed(id) {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	if err := s.carts.DeleteLines(ctx, ownerID, ids); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}

	s.changed(ctx, ownerID)
	return nil
}

func (s *CartService) Clear(ctx context.Context, ownerID string) error {
	if err := requireIdentity(ownerID); err != nil {
		return err
	}

	if err := s.carts.ClearLines(ctx, ownerID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}

	s.changed(ctx, ownerID)
	return nil
}

// List returns the caller's lines newest-first, joined with the current product.
// Lines whose product is gone or inactive carry a nil Product.
func (s *CartService) List(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}

	lines, err := s.cachedLines(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.join(ctx, lines)
}

// Snapshot is List without the cache, for flows that must see the stored cart.
func (s *CartService) Snapshot(ctx context.Context, ownerID string) ([]domain.CartItem, error) {
	if err := requireIdentity(ownerID); err != nil {
		return nil, err
	}

	lines, err := s.carts.ListLines(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list cart lines: %w", err)
	}
	return s.join(ctx, lines)
}

func (s *CartService) Summary(ctx context.Context, ownerID string) (domain.CartSummary, error) {
	items, err := s.List(ctx, ownerID)
	if err != nil {
		return domain.CartSummary{}, err
	}
	return domain.Summarize(items), nil
}

// Count never fails: any error is logged and reported as an empty cart.
func (s *CartService) Count(ctx context.Context, ownerID string) int {
	if ownerID == "" {
		return 0
	}
	n, err := s.carts.CountLines(ctx, ownerID)
	if err != nil {
		logger.WithTrace(ctx, s.log).Warn("cart count failed", zap.String("owner_id", ownerID), zap.Error(err))
		return 0
	}
	return n
}

func (s *CartService) cachedLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	lines, gen, err := s.cache.Get(ctx, ownerID)
	if err == nil {
		return lines, nil
	}
	fill := errors.Is(err, cache.ErrCacheMiss)
	if !fill {
		logger.WithTrace(ctx, s.log).Warn("cart cache get failed", zap.Error(err))
	}

	// Use singleflight to prevent multiple concurrent cache misses for same key.
	// The generation is part of the key: a read starting after a mutation never joins an older flight.
	key := ownerID + "#" + strconv.FormatUint(gen, 10)
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		lines, err := s.carts.ListLines(ctx, ownerID)
		if err != nil {
			return nil, fmt.Errorf("list cart lines: %w", err)
		}
		if !fill {
			return lines, nil
		}

		setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		switch err := s.cache.Set(setCtx, ownerID, gen, lines); {
		case errors.Is(err, cache.ErrStale):
			logger.WithTrace(ctx, s.log).Debug("cart changed during cache fill", zap.String("owner_id", ownerID))
		case err != nil:
			logger.WithTrace(ctx, s.log).Warn("cart cache set failed", zap.Error(err))
		}
		return lines, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.CartLine), nil
}

func (s *CartService) join(ctx context.Context, lines []domain.CartLine) ([]domain.CartItem, error) {
	ids := make([]string, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}

	items := make([]domain.CartItem, 0, len(lines))
	for _, l := range lines {
		item := domain.CartItem{CartLine: l}
		if p, ok := products[l.ProductID]; ok && p.Sellable() {
			item.Product = p
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *CartService) changed(ctx context.Context, ownerID string) {
	s.invalidateCache(ctx, ownerID)
	s.notifier.Notify(ctx, signal.CartChanged(ownerID))
}

func (s *CartService) invalidateCache(ctx context.Context, ownerID string) {
	delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := s.cache.Delete(delCtx, ownerID); err != nil {
		logger.WithTrace(ctx, s.log).Warn("cart cache invalidate failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}
