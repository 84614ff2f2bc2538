package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/fjod/go_storefront/internal/cache"
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/signal"
)

type mockProducts struct {
	products map[string]*domain.Product
	err      error
}

func (m *mockProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProducts) GetProducts(_ context.Context, ids []string) (map[string]*domain.Product, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make(map[string]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

type mockCarts struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	ListErr   error
	CountErr  error
	ClearErr  error
	AddErr    error
	ListCalls int
	// afterList runs once the lines are read, before they are returned.
	afterList func()
	// deleted records the ids passed to DeleteLines.
	deleted [][]string
}

func (m *mockCarts) ListLines(_ context.Context, ownerID string) ([]domain.CartLine, error) {
	m.mu.Lock()
	m.ListCalls++
	if m.ListErr != nil {
		m.mu.Unlock()
		return nil, m.ListErr
	}
	var out []domain.CartLine
	for _, l := range m.lines {
		if l.OwnerID == ownerID {
			out = append(out, l)
		}
	}
	hook := m.afterList
	m.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if hook != nil {
		hook()
	}
	return out, nil
}

func (m *mockCarts) CountLines(ctx context.Context, ownerID string) (int, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	lines, _ := m.ListLines(ctx, ownerID)
	return len(lines), nil
}

func (m *mockCarts) GetLine(_ context.Context, ownerID, lineID string) (*domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.lines {
		if l.ID == lineID && l.OwnerID == ownerID {
			cp := l
			return &cp, nil
		}
	}
	return nil, repository.ErrCartLineNotFound
}

func (m *mockCarts) AddQuantity(_ context.Context, line *domain.CartLine, ceiling int32) (*domain.CartLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AddErr != nil {
		return nil, m.AddErr
	}
	for i, l := range m.lines {
		if l.OwnerID == line.OwnerID && l.ProductID == line.ProductID {
			if l.Quantity+line.Quantity > ceiling {
				return nil, repository.ErrStockCeiling
			}
			m.lines[i].Quantity += line.Quantity
			m.lines[i].UpdatedAt = line.UpdatedAt
			cp := m.lines[i]
			return &cp, nil
		}
	}
	if line.Quantity > ceiling {
		return nil, repository.ErrStockCeiling
	}
	m.lines = append(m.lines, *line)
	cp := *line
	return &cp, nil
}

func (m *mockCarts) SetQuantity(_ context.Context, ownerID, lineID string, quantity, ceiling int32, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if quantity > ceiling {
		return repository.ErrStockCeiling
	}
	for i, l := range m.lines {
		if l.ID == lineID && l.OwnerID == ownerID {
			m.lines[i].Quantity = quantity
			m.lines[i].UpdatedAt = at
			return nil
		}
	}
	return repository.ErrCartLineNotFound
}

func (m *mockCarts) DeleteLines(_ context.Context, ownerID string, lineIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, lineIDs)
	drop := make(map[string]bool, len(lineIDs))
	for _, id := range lineIDs {
		drop[id] = true
	}
	kept := m.lines[:0]
	for _, l := range m.lines {
		if l.OwnerID == ownerID && drop[l.ID] {
			continue
		}
		kept = append(kept, l)
	}
	m.lines = kept
	return nil
}

func (m *mockCarts) ClearLines(_ context.Context, ownerID string) error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.lines[:0]
	for _, l := range m.lines {
		if l.OwnerID != ownerID {
			kept = append(kept, l)
		}
	}
	m.lines = kept
	return nil
}

// mockCache mirrors RedisCache: Delete bumps a per-owner generation and Set refuses stale fills.
type mockCache struct {
	mu          sync.Mutex
	data        map[string][]domain.CartLine
	gens        map[string]uint64
	GetErr      error
	DeleteCalls int
	StaleSets   int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]domain.CartLine), gens: make(map[string]uint64)}
}

func (m *mockCache) Get(_ context.Context, ownerID string) ([]domain.CartLine, uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return nil, 0, m.GetErr
	}
	lines, ok := m.data[ownerID]
	if !ok {
		return nil, m.gens[ownerID], cache.ErrCacheMiss
	}
	return lines, m.gens[ownerID], nil
}

func (m *mockCache) Set(_ context.Context, ownerID string, gen uint64, lines []domain.CartLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gens[ownerID] != gen {
		m.StaleSets++
		return cache.ErrStale
	}
	m.data[ownerID] = lines
	return nil
}

func (m *mockCache) Delete(_ context.Context, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	m.gens[ownerID]++
	delete(m.data, ownerID)
	return nil
}

func (m *mockCache) cached(ownerID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[ownerID]
	return ok
}

// mockOrders is a non-transactional order store, so the compensation path is taken.
type mockOrders struct {
	mu          sync.Mutex
	orders      map[string]*domain.Order
	lines       map[string][]domain.OrderLine
	CreateErr   error
	LinesErr    error
	DeleteErr   error
	UpdateErr   error
	CreateCalls int
	LinesCalls  int
	DeleteCalls int
	UpdateCalls int
}

func newMockOrders() *mockOrders {
	return &mockOrders{
		orders: make(map[string]*domain.Order),
		lines:  make(map[string][]domain.OrderLine),
	}
}

func (m *mockOrders) put(o *domain.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *o
	m.orders[o.ID] = &cp
}

func (m *mockOrders) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrders) CreateOrderLines(_ context.Context, lines []domain.OrderLine) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LinesCalls++
	if m.LinesErr != nil {
		return m.LinesErr
	}
	for _, l := range lines {
		m.lines[l.OrderID] = append(m.lines[l.OrderID], l)
	}
	return nil
}

func (m *mockOrders) DeleteOrder(_ context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.orders, orderID)
	delete(m.lines, orderID)
	return nil
}

func (m *mockOrders) GetOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error) {
	o, err := m.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.OwnerID != ownerID {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrders) GetOrderByID(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrders) GetOrderLines(_ context.Context, orderID string) ([]domain.OrderLine, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.OrderLine(nil), m.lines[orderID]...), nil
}

func (m *mockOrders) ListOrders(_ context.Context, ownerID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.OwnerID == ownerID {
			cp := *o
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *mockOrders) ListRecentOrders(_ context.Context, limit int) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		cp := *o
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockOrders) UpdateStatus(_ context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpdateCalls++
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	o, ok := m.orders[orderID]
	if !ok || o.Status != from {
		return repository.ErrStatusConflict
	}
	o.Status = to
	o.UpdatedAt = at
	return nil
}

func (m *mockOrders) FindOrphans(_ context.Context, createdBefore time.Time) ([]*domain.Order, error) {
	return nil, nil
}

func (m *mockOrders) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// mockTxOrders adds the transactional create, writing all or nothing.
type mockTxOrders struct {
	*mockOrders
	TxCalls int
}

func (m *mockTxOrders) CreateOrderWithLines(ctx context.Context, order *domain.Order, lines []domain.OrderLine) error {
	m.TxCalls++
	if m.CreateErr != nil {
		return m.CreateErr
	}
	if m.LinesErr != nil {
		return m.LinesErr
	}
	if err := m.CreateOrder(ctx, order); err != nil {
		return err
	}
	return m.CreateOrderLines(ctx, lines)
}

type mockVerifier struct {
	payment *payment.Payment
	err     error
	calls   int
}

func (m *mockVerifier) GetPayment(_ context.Context, paymentKey string) (*payment.Payment, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	cp := *m.payment
	cp.PaymentKey = paymentKey
	return &cp, nil
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []signal.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev signal.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) kinds() []signal.Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]signal.Kind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}
