package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/storefront/internal/readmodel"
)

// PostgresReadStore implements OrderReadStore using PostgreSQL. The full
// model lives in a JSONB column; the filter and summary fields are copied
// into plain columns so they can be indexed.
type PostgresReadStore struct {
	db *sql.DB
}

// NewPostgresReadStore creates a new PostgreSQL-based read store
func NewPostgresReadStore(db *sql.DB) *PostgresReadStore {
	return &PostgresReadStore{db: db}
}

func (rs *PostgresReadStore) SaveOrder(ctx context.Context, o *readmodel.OrderReadModel) error {
	return rs.upsert(ctx, rs.db, o)
}

func (rs *PostgresReadStore) GetOrder(ctx context.Context, id string) (*readmodel.OrderReadModel, bool, error) {
	return rs.get(ctx, rs.db, id, false)
}

// UpdateOrder runs fn inside a transaction holding a row lock, so two
// projector instances cannot interleave updates of one order.
func (rs *PostgresReadStore) UpdateOrder(ctx context.Context, id string, fn func(o *readmodel.OrderReadModel)) (bool, error) {
	tx, err := rs.db.BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	current, found, err := rs.get(ctx, tx, id, true)
	if err != nil || !found {
		return false, err
	}

	fn(current)
	if err := rs.upsert(ctx, tx, current); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

func (rs *PostgresReadStore) DeleteOrder(ctx context.Context, id string) error {
	_, err := rs.db.ExecContext(ctx, `DELETE FROM read_orders WHERE id = $1`, id)
	return err
}

func (rs *PostgresReadStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*readmodel.OrderReadModel, error) {
	rows, err := rs.db.QueryContext(ctx, `
		SELECT data, version FROM read_orders
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR seller_id = $2)
		ORDER BY created_at, id
	`, filter.UserID, filter.SellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := make([]*readmodel.OrderReadModel, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (rs *PostgresReadStore) Clear(ctx context.Context) error {
	_, err := rs.db.ExecContext(ctx, `TRUNCATE read_orders`)
	return err
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (rs *PostgresReadStore) upsert(ctx context.Context, db execQuerier, o *readmodel.OrderReadModel) error {
	data, err := json.Marshal(o)
	if err != nil {
		return fmt.Errorf("failed to marshal order %s: %w", o.ID, err)
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO read_orders (id, user_id, seller_id, total_price, is_paid, version, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			seller_id = EXCLUDED.seller_id,
			total_price = EXCLUDED.total_price,
			is_paid = EXCLUDED.is_paid,
			version = EXCLUDED.version,
			data = EXCLUDED.data
	`, o.ID, o.User.ID, o.Seller, o.TotalPrice, o.IsPaid, o.Version, data, o.CreatedAt)
	return err
}

func (rs *PostgresReadStore) get(ctx context.Context, db execQuerier, id string, forUpdate bool) (*readmodel.OrderReadModel, bool, error) {
	query := `SELECT data, version FROM read_orders WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	o, err := scanOrder(db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(row scanner) (*readmodel.OrderReadModel, error) {
	var data []byte
	var version int
	if err := row.Scan(&data, &version); err != nil {
		return nil, err
	}
	var o readmodel.OrderReadModel
	if err := json.Unmarshal(data, &o); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order: %w", err)
	}
	o.Version = version
	return &o, nil
}
