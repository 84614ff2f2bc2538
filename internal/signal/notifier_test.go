package signal

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type recordingPublisher struct {
	name     string
	err      error
	events   []Event
	deadline bool
	closed   bool
}

func (p *recordingPublisher) Name() string { return p.name }

func (p *recordingPublisher) Publish(ctx context.Context, ev Event) error {
	_, p.deadline = ctx.Deadline()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error {
	p.closed = true
	return nil
}

func TestFanout_DeliversToEveryPublisher(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	failing := &recordingPublisher{name: "kafka", err: errors.New("broker down")}
	ok := &recordingPublisher{name: "redis"}

	f := NewFanout(zap.New(core), time.Second, failing, ok)
	f.Notify(context.Background(), OrderCreated("user-1", "order-1"))

	require.Len(t, ok.events, 1)
	require.Len(t, failing.events, 1)
	assert.True(t, ok.deadline)
	assert.Equal(t, KindOrderCreated, ok.events[0].Kind)
	assert.Equal(t, []string{"/cart", "/mypage"}, ok.events[0].Paths)

	entries := logs.FilterMessage("change signal not delivered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "kafka", entries[0].ContextMap()["publisher"])
}

func TestFanout_CancelledRequestStillDelivers(t *testing.T) {
	p := &recordingPublisher{name: "redis"}
	f := NewFanout(zap.NewNop(), time.Second, p)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f.Notify(ctx, CartChanged("user-1"))

	require.Len(t, p.events, 1)
}

func TestFanout_Close(t *testing.T) {
	a, b := &recordingPublisher{name: "a"}, &recordingPublisher{name: "b"}
	require.NoError(t, NewFanout(zap.NewNop(), time.Second, a, b).Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestOrderChanged_Paths(t *testing.T) {
	ev := OrderChanged(KindOrderCancelled, "user-1", "abc")
	assert.Equal(t, []string{"/mypage", "/mypage/orders/abc"}, ev.Paths)
	assert.Equal(t, "abc", ev.OrderID)
}
