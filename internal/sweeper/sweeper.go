// Package sweeper removes orders that were left without line items when a compensating delete failed.
package sweeper

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"go.uber.org/zap"
)

type OrphanStore interface {
	FindOrphans(ctx context.Context, createdBefore time.Time) ([]*domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}

type Sweeper struct {
	store    OrphanStore
	log      *zap.Logger
	interval time.Duration
	grace    time.Duration
	timeout  time.Duration
	now      func() time.Time
}

// New returns a sweeper that every interval deletes line-less orders older than grace.
// The grace period keeps it away from orders whose lines are still being written.
func New(store OrphanStore, log *zap.Logger, interval, grace time.Duration) *Sweeper {
	return &Sweeper{
		store:    store,
		log:      log.Named("orphan-sweeper"),
		interval: interval,
		grace:    grace,
		timeout:  30 * time.Second,
		now:      time.Now,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.Sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Sweep runs one pass and returns how many orphans were deleted.
func (s *Sweeper) Sweep(ctx context.Context) int {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	orphans, err := s.store.FindOrphans(ctx, s.now().UTC().Add(-s.grace))
	if err != nil {
		s.log.Error("failed to find orphan orders", zap.Error(err))
		return 0
	}

	deleted := 0
	for _, o := range orphans {
		s.log.Warn("orphan order found",
			zap.String("order_id", o.ID),
			zap.String("owner_id", o.OwnerID),
			zap.Int64("total_amount", o.TotalAmount),
			zap.Time("created_at", o.CreatedAt))

		err := s.store.DeleteOrder(ctx, o.ID)
		if err != nil && !errors.Is(err, repository.ErrOrderNotFound) {
			s.log.Error("failed to delete orphan order", zap.String("order_id", o.ID), zap.Error(err))
			continue
		}
		deleted++
	}
	if deleted > 0 {
		s.log.Info("orphan sweep finished", zap.Int("deleted", deleted))
	}
	return deleted
}
