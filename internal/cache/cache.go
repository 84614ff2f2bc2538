package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_storefront/internal/domain"
)

// CartCache holds an owner's raw cart lines. Product data is never cached with them.
//
// Every Delete bumps the owner's generation. Get reports the generation it saw on a miss,
// and Set only stores lines read under that same generation, so a fill that raced a
// mutation is dropped instead of resurrecting the old cart.
type CartCache interface {
	Get(ctx context.Context, ownerID string) ([]domain.CartLine, uint64, error)
	Set(ctx context.Context, ownerID string, gen uint64, lines []domain.CartLine) error
	Delete(ctx context.Context, ownerID string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	// ErrStale is returned by Set when the owner's cart changed after the Get that missed.
	ErrStale = errors.New("cache generation changed")
)

// Nop never hits. Used when no Redis is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]domain.CartLine, uint64, error) {
	return nil, 0, ErrCacheMiss
}
func (Nop) Set(context.Context, string, uint64, []domain.CartLine) error { return nil }
func (Nop) Delete(context.Context, string) error                         { return nil }
