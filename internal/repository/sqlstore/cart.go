package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/repository"
)

const cartColumns = `id, owner_id, product_id, quantity, created_at, updated_at`

func scanCartLine(row interface{ Scan(...any) error }) (domain.CartLine, error) {
	var l domain.CartLine
	err := row.Scan(&l.ID, &l.OwnerID, &l.ProductID, &l.Quantity, &l.CreatedAt, &l.UpdatedAt)
	return l, err
}

func (r *Repository) ListLines(ctx context.Context, ownerID string) ([]domain.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE owner_id = $1 ORDER BY created_at DESC, id`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.CartLine
	for rows.Next() {
		l, err := scanCartLine(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cart line: %w", err)
		}
		lines = append(lines, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return lines, nil
}

func (r *Repository) CountLines(ctx context.Context, ownerID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cart_items WHERE owner_id = $1`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count cart lines: %w", err)
	}
	return n, nil
}

func (r *Repository) GetLine(ctx context.Context, ownerID, lineID string) (*domain.CartLine, error) {
	query := `SELECT ` + cartColumns + ` FROM cart_items WHERE id = $1 AND owner_id = $2`

	l, err := scanCartLine(r.db.QueryRowContext(ctx, query, lineID, ownerID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart line: %w", err)
	}
	return &l, nil
}

// AddQuantity relies on the (owner_id, product_id) unique key: the conflict branch increments
// in place and its WHERE clause enforces the ceiling, so two concurrent adds cannot lose an update.
func (r *Repository) AddQuantity(ctx context.Context, line *domain.CartLine, ceiling int32) (*domain.CartLine, error) {
	if line.Quantity > ceiling {
		return nil, repository.ErrStockCeiling
	}

	query := `INSERT INTO cart_items (id, owner_id, product_id, quantity, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $5)
	          ON CONFLICT (owner_id, product_id) DO UPDATE
	          SET quantity = cart_items.quantity + excluded.quantity, updated_at = excluded.updated_at
	          WHERE cart_items.quantity + excluded.quantity <= $6
	          RETURNING ` + cartColumns

	saved, err := scanCartLine(r.db.QueryRowContext(ctx, query,
		line.ID,
		line.OwnerID,
		line.ProductID,
		line.Quantity,
		line.CreatedAt.UTC(),
		ceiling))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrStockCeiling
	}
	if err != nil {
		return nil, fmt.Errorf("upsert cart line: %w", err)
	}
	return &saved, nil
}

func (r *Repository) SetQuantity(ctx context.Context, ownerID, lineID string, quantity, ceiling int32, at time.Time) error {
	if quantity > ceiling {
		return repository.ErrStockCeiling
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE cart_items SET quantity = $1, updated_at = $2 WHERE id = $3 AND owner_id = $4`,
		quantity, at.UTC(), lineID, ownerID)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	if n == 0 {
		return repository.ErrCartLineNotFound
	}
	return nil
}

func (r *Repository) DeleteLines(ctx context.Context, ownerID string, lineIDs []string) error {
	if len(lineIDs) == 0 {
		return nil
	}

	args := make([]any, 0, len(lineIDs)+1)
	args = append(args, ownerID)
	for _, id := range lineIDs {
		args = append(args, id)
	}
	query := `DELETE FROM cart_items WHERE owner_id = $1 AND id IN (` + placeholders(2, len(lineIDs)) + `)`

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete cart lines: %w", err)
	}
	return nil
}

func (r *Repository) ClearLines(ctx context.Context, ownerID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM cart_items WHERE owner_id = $1`, ownerID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}
