package signal

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

type Publisher interface {
	Name() string
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Fanout delivers every event to all publishers, each under its own timeout.
type Fanout struct {
	publishers []Publisher
	timeout    time.Duration
	log        *zap.Logger
}

func NewFanout(log *zap.Logger, timeout time.Duration, publishers ...Publisher) *Fanout {
	return &Fanout{publishers: publishers, timeout: timeout, log: log}
}

func (f *Fanout) Notify(ctx context.Context, ev Event) {
	// the request may be finishing; delivery gets its own deadline
	base := context.WithoutCancel(ctx)
	for _, p := range f.publishers {
		pctx, cancel := context.WithTimeout(base, f.timeout)
		err := p.Publish(pctx, ev)
		cancel()
		if err != nil {
			f.log.Warn("change signal not delivered",
				zap.String("publisher", p.Name()),
				zap.String("kind", string(ev.Kind)),
				zap.String("owner_id", ev.OwnerID),
				zap.Error(err))
		}
	}
}

func (f *Fanout) Close() error {
	var errs []error
	for _, p := range f.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
