package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
)

const orderColumns = `id, owner_id, total_amount, status, shipping_address, order_note, created_at, updated_at`

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	var (
		o       domain.Order
		address []byte
		note    sql.NullString
	)
	if err := row.Scan(
		&o.ID,
		&o.OwnerID,
		&o.TotalAmount,
		&o.Status,
		&address,
		&note,
		&o.CreatedAt,
		&o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	if note.Valid {
		o.OrderNote = &note.String
	}
	return &o, nil
}

func insertOrder(ctx context.Context, ex execer, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("failed to marshal shipping address: %w", err)
	}

	var note sql.NullString
	if order.OrderNote != nil {
		note = sql.NullString{String: *order.OrderNote, Valid: true}
	}

	query := `INSERT INTO orders (` + orderColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = ex.ExecContext(ctx, query,
		order.ID,
		order.OwnerID,
		order.TotalAmount,
		order.Status,
		string(address),
		note,
		order.CreatedAt.UTC(),
		order.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func insertOrderLines(ctx context.Context, ex execer, lines []domain.OrderLine) error {
	query := `INSERT INTO order_items (id, order_id, product_id, product_name, quantity, price, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, l := range lines {
		if _, err := ex.ExecContext(ctx, query,
			l.ID,
			l.OrderID,
			l.ProductID,
			l.ProductName,
			l.Quantity,
			l.Price,
			l.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}
	return nil
}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	return insertOrder(ctx, r.db, order)
}

func (r *Repository) CreateOrderLines(ctx context.Context, lines []domain.OrderLine) error {
	return insertOrderLines(ctx, r.db, lines)
}

func (r *Repository) CreateOrderWithLines(ctx context.Context, order *domain.Order, lines []domain.OrderLine) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	if err = insertOrder(ctx, tx, order); err != nil {
		return err
	}
	if err = insertOrderLines(ctx, tx, lines); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

func (r *Repository) DeleteOrder(ctx context.Context, orderID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func (r *Repository) GetOrder(ctx context.Context, ownerID, orderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND owner_id = $2`
	return r.getOrder(ctx, query, orderID, ownerID)
}

func (r *Repository) GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return r.getOrder(ctx, query, orderID)
}

func (r *Repository) getOrder(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	o, err := scanOrder(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}
	return o, nil
}

func (r *Repository) GetOrderLines(ctx context.Context, orderID string) ([]domain.OrderLine, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, price, created_at
	          FROM order_items WHERE order_id = $1 ORDER BY created_at ASC, id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Price, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (r *Repository) ListOrders(ctx context.Context, ownerID string) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE owner_id = $1 ORDER BY created_at DESC`
	return r.listOrders(ctx, query, ownerID)
}

func (r *Repository) ListRecentOrders(ctx context.Context, limit int) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1`
	return r.listOrders(ctx, query, limit)
}

// FindOrphans returns orders created before the cutoff that have no line items.
func (r *Repository) FindOrphans(ctx context.Context, createdBefore time.Time) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o
	          WHERE o.created_at < $1
	            AND NOT EXISTS (SELECT 1 FROM order_items i WHERE i.order_id = o.id)
	          ORDER BY o.created_at`
	return r.listOrders(ctx, query, createdBefore.UTC())
}

func (r *Repository) listOrders(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order row: %w", err)
		}
		orders = append(orders, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return orders, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, at.UTC(), orderID, from)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n == 0 {
		return repository.ErrStatusConflict
	}
	return nil
}
