package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ethanvb/clobtrader/internal/domain"
)

// OrderStore records order execution history. It satisfies the trading
// client's store contract.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore creates an OrderStore backed by the given connection pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// RecordOrder upserts one order snapshot. Re-recording the same order id
// refreshes its status and matched size.
func (s *OrderStore) RecordOrder(ctx context.Context, snap domain.OrderSnapshot, venue string) error {
	const query = `
		INSERT INTO orders (
			id, venue, market_id, asset_id, side,
			price, original_size, size_matched, status, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			size_matched = EXCLUDED.size_matched,
			updated_at = NOW()`

	_, err := s.pool.Exec(ctx, query,
		snap.ID, venue, snap.MarketID, snap.AssetID, string(snap.Side),
		nullable(snap.Price), nullable(snap.OriginalSize), nullable(snap.SizeMatched),
		string(snap.Status), snap.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: record order %s: %w", snap.ID, err)
	}
	return nil
}

// UpdateStatus changes the status of a recorded order.
func (s *OrderStore) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`,
		string(status), id,
	)
	if err != nil {
		return fmt.Errorf("postgres: update order status %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.Errorf(domain.CodeNotFound, "order %s not recorded", id)
	}
	return nil
}

// GetByID fetches one recorded order.
func (s *OrderStore) GetByID(ctx context.Context, id string) (domain.OrderSnapshot, error) {
	row := s.pool.QueryRow(ctx, selectOrders+` WHERE id = $1`, id)

	snap, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.OrderSnapshot{}, domain.Errorf(domain.CodeNotFound, "order %s not recorded", id)
	}
	if err != nil {
		return domain.OrderSnapshot{}, fmt.Errorf("postgres: get order %s: %w", id, err)
	}
	return snap, nil
}

// ListByStatus returns recorded orders in the given status, newest first.
func (s *OrderStore) ListByStatus(ctx context.Context, status domain.OrderStatus, limit int) ([]domain.OrderSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx,
		selectOrders+` WHERE status = $1 ORDER BY recorded_at DESC LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres: list orders by status %s: %w", status, err)
	}
	defer rows.Close()

	var out []domain.OrderSnapshot
	for rows.Next() {
		snap, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan order: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list orders by status %s: %w", status, err)
	}
	return out, nil
}

const selectOrders = `
	SELECT id, market_id, asset_id, side,
	       COALESCE(price::text, ''), COALESCE(original_size::text, ''),
	       COALESCE(size_matched::text, ''), status, created_at
	FROM orders`

func scanOrder(scanner interface{ Scan(dest ...any) error }) (domain.OrderSnapshot, error) {
	var snap domain.OrderSnapshot
	var side, status string

	err := scanner.Scan(
		&snap.ID, &snap.MarketID, &snap.AssetID, &side,
		&snap.Price, &snap.OriginalSize, &snap.SizeMatched,
		&status, &snap.CreatedAt,
	)
	if err != nil {
		return domain.OrderSnapshot{}, err
	}

	snap.Side = domain.OrderSide(side)
	snap.Status = domain.OrderStatus(status)
	return snap, nil
}

// nullable maps an empty string to SQL NULL so numeric columns stay clean.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
