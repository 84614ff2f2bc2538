package sqlstore

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) (*Repository, func()) {
	if testing.Short() {
		t.Skip("skipping postgres container test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &repository.Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewPostgres(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds.MigrationsDirPath)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func TestPostgres_CartMergeWithCeiling(t *testing.T) {
	repo, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 3, now), 5)
	require.NoError(t, err)
	merged, err := repo.AddQuantity(ctx, newLine(testOwner, widgetID, 2, now), 5)
	require.NoError(t, err)
	assert.Equal(t, int32(5), merged.Quantity)

	_, err = repo.AddQuantity(ctx, newLine(testOwner, widgetID, 1, now), 5)
	assert.ErrorIs(t, err, repository.ErrStockCeiling)
}

func TestPostgres_OrderLifecycle(t *testing.T) {
	repo, cleanup := setupPostgres(t)
	defer cleanup()
	ctx := context.Background()
	now := time.Now().UTC()

	order := newOrder(testOwner, now)
	require.NoError(t, repo.CreateOrderWithLines(ctx, order, []domain.OrderLine{
		{ID: uuid.NewString(), OrderID: order.ID, ProductID: widgetID, ProductName: "Widget", Quantity: 2, Price: 1000, CreatedAt: now},
	}))

	got, err := repo.GetOrder(ctx, testOwner, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "홍길동", got.ShippingAddress.Recipient)

	_, err = repo.GetOrder(ctx, otherOwner, order.ID)
	assert.ErrorIs(t, err, repository.ErrOrderNotFound)

	require.NoError(t, repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusCancelled, now))
	err = repo.UpdateStatus(ctx, order.ID, domain.OrderStatusPending, domain.OrderStatusConfirmed, now)
	assert.ErrorIs(t, err, repository.ErrStatusConflict)
}
