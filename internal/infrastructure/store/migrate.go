package store

import (
	"context"
	"database/sql"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS events (
		id             UUID PRIMARY KEY,
		aggregate_id   TEXT        NOT NULL,
		aggregate_type TEXT        NOT NULL,
		event_type     TEXT        NOT NULL,
		data           JSONB       NOT NULL,
		version        INTEGER     NOT NULL,
		created_at     TIMESTAMPTZ NOT NULL,
		UNIQUE (aggregate_id, version)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_events_type ON events (aggregate_type, created_at)`,
	`CREATE TABLE IF NOT EXISTS read_orders (
		id          TEXT PRIMARY KEY,
		user_id     TEXT          NOT NULL,
		seller_id   TEXT          NOT NULL DEFAULT '',
		total_price NUMERIC(12,2) NOT NULL,
		is_paid     BOOLEAN       NOT NULL DEFAULT FALSE,
		version     INTEGER       NOT NULL,
		data        JSONB         NOT NULL,
		created_at  TIMESTAMPTZ   NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_read_orders_user ON read_orders (user_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_read_orders_seller ON read_orders (seller_id, created_at)`,
}

// Migrate creates the event and read-model tables if they do not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
