package sqlstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	widgetID   = "11111111-1111-1111-1111-111111111111"
	gadgetID   = "22222222-2222-2222-2222-222222222222"
	retiredID  = "55555555-5555-5555-5555-555555555555"
	testOwner  = "user-123"
	otherOwner = "user-456"
)

func setupSQLite(t *testing.T) *Repository {
	// Use in-memory database for tests
	repo, err := NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, repo.RunMigrations("./migrations"))
	t.Cleanup(func() { repo.Close() })
	return repo
}

func newLine(owner, productID string, qty int32, at time.Time) *domain.CartLine {
	return &domain.CartLine{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		ProductID: productID,
		Quantity:  qty,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func newOrder(owner string, at time.Time) *domain.Order {
	note := "leave at the door"
	return &domain.Order{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		TotalAmount: 2000,
		Status:      domain.OrderStatusPending,
		ShippingAddress: domain.ShippingAddress{
			Recipient:  "홍길동",
			Phone:      "010-1234-5678",
			PostalCode: "06236",
			Address:    "서울 강남구 테헤란로 152",
		},
		OrderNote: &note,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestProducts_SeededCatalog(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()

	p, err := repo.GetProduct(ctx, widgetID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", p.Name)
	assert.Equal(t, int64(1000), p.Price)
	assert.Equal(t, int32(5), p.StockQuantity)
	assert.True(t, p.IsActive)

	_, err = repo.GetProduct(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrProductNotFound)

	products, err := repo.GetProducts(ctx, []string{widgetID, retiredID, "missing"})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	assert.False(t, products[retiredID].IsActive)
}

func TestCart_AddQuantityMergesLines(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	first, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 3, now), 5)
	require.NoError(t, err)
	assert.Equal(t, int32(3), first.Quantity)

	merged, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 2, now.Add(time.Second)), 5)
	require.NoError(t, err)
	assert.Equal(t, first.ID, merged.ID)
	assert.Equal(t, int32(5), merged.Quantity)

	lines, err := repo.ListLines(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int32(5), lines[0].Quantity)
}

func TestCart_AddQuantityCeilingLeavesLineUnchanged(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 4, now), 5)
	require.NoError(t, err)

	_, err = repo.AddQuantity(ctx, newLine(testOwner, widgetID, 2, now), 5)
	assert.ErrorIs(t, err, repository.ErrStockCeiling)

	lines, err := repo.ListLines(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int32(4), lines[0].Quantity)
}

func TestCart_ConcurrentAddsDoNotLoseIncrements(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.AddQuantity(ctx, newLine(testOwner, gadgetID, 1, now), 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	lines, err := repo.ListLines(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, int32(10), lines[0].Quantity)
}

func TestCart_ListNewestFirstAndScoped(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	base := time.Now().UTC()

	_, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 1, base), 5)
	require.NoError(t, err)
	_, err = repo.AddQuantity(ctx, newLine(testOwner, gadgetID, 1, base.Add(time.Minute)), 10)
	require.NoError(t, err)
	_, err = repo.AddQuantity(ctx, newLine(otherOwner, widgetID, 1, base), 5)
	require.NoError(t, err)

	lines, err := repo.ListLines(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, gadgetID, lines[0].ProductID)
	assert.Equal(t, widgetID, lines[1].ProductID)

	n, err := repo.CountLines(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCart_SetQuantityAndDeleteAreOwnerScoped(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	line, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 1, now), 5)
	require.NoError(t, err)

	err = repo.SetQuantity(ctx, otherOwner, line.ID, 2, 5, now)
	assert.ErrorIs(t, err, repository.ErrCartLineNotFound)

	err = repo.SetQuantity(ctx, testOwner, line.ID, 6, 5, now)
	assert.ErrorIs(t, err, repository.ErrStockCeiling)

	require.NoError(t, repo.SetQuantity(ctx, testOwner, line.ID, 4, 5, now))
	got, err := repo.GetLine(ctx, testOwner, line.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(4), got.Quantity)

	_, err = repo.GetLine(ctx, otherOwner, line.ID)
	assert.ErrorIs(t, err, repository.ErrCartLineNotFound)

	require.NoError(t, repo.DeleteLines(ctx, otherOwner, []string{line.ID}))
	n, err := repo.CountLines(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, repo.DeleteLines(ctx, testOwner, []string{line.ID}))
	require.NoError(t, repo.DeleteLines(ctx, testOwner, []string{line.ID}))
	require.NoError(t, repo.ClearLines(ctx, testOwner))
	n, err = repo.CountLines(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestOrders_CreateWithLinesAndScopedRead(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newOrder(testOwner, now)
	lines := []domain.OrderLine{
		{ID: uuid.NewString(), OrderID: order.ID, ProductID: widgetID, ProductName: "Widget", Quantity: 2, Price: 1000, CreatedAt: now},
		{ID: uuid.NewString(), OrderID: order.ID, ProductID: gadgetID, ProductName: "Gadget", Quantity: 1, Price: 2500, CreatedAt: now.Add(time.Millisecond)},
	}
	require.NoError(t, repo.CreateOrderWithLines(ctx, order, lines))

	got, err := repo.GetOrder(ctx, testOwner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), got.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Equal(t, "010-1234-5678", got.ShippingAddress.Phone)
	require.NotNil(t, got.OrderNote)
	assert.Equal(t, "leave at the door", *got.OrderNote)

	_, err = repo.GetOrder(ctx, otherOwner, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	gotLines, err := repo.GetOrderLines(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, gotLines, 2)
	assert.Equal(t, "Widget", gotLines[0].ProductName)
	assert.Equal(t, "Gadget", gotLines[1].ProductName)
}

func TestOrders_CreateWithLinesRollsBack(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newOrder(testOwner, now)
	dup := uuid.NewString()
	lines := []domain.OrderLine{
		{ID: dup, OrderID: order.ID, ProductID: widgetID, ProductName: "Widget", Quantity: 1, Price: 1000, CreatedAt: now},
		{ID: dup, OrderID: order.ID, ProductID: gadgetID, ProductName: "Gadget", Quantity: 1, Price: 2500, CreatedAt: now},
	}
	require.Error(t, repo.CreateOrderWithLines(ctx, order, lines))

	_, err := repo.GetOrderByID(ctx, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}

func TestOrders_ListNewestFirst(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	base := time.Now().UTC()

	older := newOrder(testOwner, base)
	newer := newOrder(testOwner, base.Add(time.Hour))
	foreign := newOrder(otherOwner, base)
	for _, o := range []*domain.Order{older, newer, foreign} {
		require.NoError(t, repo.CreateOrder(ctx, o))
	}

	orders, err := repo.ListOrders(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	recent, err := repo.ListRecentOrders(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, newer.ID, recent[0].ID)
}

func TestOrders_UpdateStatusIsCompareAndSet(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	now := time.Now().UTC()

	order := newOrder(testOwner, now)
	require.NoError(t, repo.CreateOrder(ctx, order))

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, now.Add(time.Second)))

	err := repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now.Add(2*time.Second))
	assert.ErrorIs(t, err, repository.ErrStatusConflict)

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))
}

func TestOrders_FindAndDeleteOrphans(t *testing.T) {
	repo := setupSQLite(t)
	ctx := context.Background()
	base := time.Now().UTC().Add(-time.Hour)

	orphan := newOrder(testOwner, base)
	require.NoError(t, repo.CreateOrder(ctx, orphan))

	complete := newOrder(testOwner, base)
	require.NoError(t, repo.CreateOrderWithLines(ctx, complete, []domain.OrderLine{
		{ID: uuid.NewString(), OrderID: complete.ID, ProductID: widgetID, ProductName: "Widget", Quantity: 1, Price: 1000, CreatedAt: base},
	}))

	fresh := newOrder(testOwner, time.Now().UTC())
	require.NoError(t, repo.CreateOrder(ctx, fresh))

	orphans, err := repo.FindOrphans(ctx, time.Now().UTC().Add(-time.Minute))
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphan.ID, orphans[0].ID)

	require.NoError(t, repo.DeleteOrder(ctx, orphan.ID))
	_, err = repo.GetOrderByID(ctx, orphan.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)
}
