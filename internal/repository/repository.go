package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrCartLineNotFound = errors.New("cart line not found")
	ErrOrderNotFound    = errors.New("order not found")
	// ErrStockCeiling is returned when an increment would push a line past the given ceiling.
	ErrStockCeiling = errors.New("quantity exceeds stock ceiling")
	// ErrStatusConflict is returned when a guarded status update finds a different current status.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type ProductRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	// GetProducts returns the products that exist, keyed by id. Missing ids are simply absent.
	GetProducts(ctx context.Context, ids []string) (map[string]*domain.Product, error)
}

// CartRepository stores cart lines. Every call is scoped by owner.
type CartRepository interface {
	ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error)
	CountLines(ctx context.Context, ownerID string) (int, error)
	GetLine(ctx context.Context, ownerID, lineID string) (*domain.CartLine, error)
	// AddQuantity inserts the line or atomically increments the existing (owner, product) line,
	// refusing with ErrStockCeiling when the merged quantity would exceed ceiling.
	AddQuantity(ctx context.Context, line *domain.CartLine, ceiling int32) (*domain.CartLine, error)
	// SetQuantity overwrites a line quantity; the write is skipped with ErrStockCeiling when quantity > ceiling.
	SetQuantity(ctx context.Context, ownerID, lineID string, quantity, ceiling int32, at time.Time) error
	DeleteLines(ctx context.Context, ownerID string, lineIDs []string) error
	ClearLines(ctx context.Context, ownerID string) error
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error
	DeleteOrder(ctx context.Context, orderID string) error
	// GetOrder loads an order owned by ownerID. Foreign and missing orders both yield ErrOrderNotFound.
	GetOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error)
	GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error)
	ListOrders(ctx context.Context, ownerID string) ([]*domain.Order, error)
	// UpdateStatus moves an order from one status to another only if it is still in from.
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error
}

// OrderTransactor is implemented by order stores that can write an order and its lines atomically.
type OrderTransactor interface {
	CreateOrderWithLines(ctx context.Context, order *domain.Order, lines []domain.OrderLine) error
}

// OrderAdminRepository is the unscoped view used by back-office tooling and the orphan sweeper.
type OrderAdminRepository interface {
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error
	FindOrphans(ctx context.Context, createdBefore time.Time) ([]*domain.Order, error)
	DeleteOrder(ctx context.Context, orderID string) error
}
