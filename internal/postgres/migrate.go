package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS meals (
		id          UUID PRIMARY KEY,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		price_cents BIGINT NULL CHECK (price_cents >= 0),
		calories    INT NULL,
		is_vegan    BOOLEAN NOT NULL DEFAULT FALSE,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS users (
		id          UUID PRIMARY KEY,
		external_id TEXT NOT NULL UNIQUE,
		email       TEXT NOT NULL,
		name        TEXT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	// email is contact data only; external_id is the identity
	`ALTER TABLE users DROP CONSTRAINT IF EXISTS users_email_key`,
	`CREATE TABLE IF NOT EXISTS orders (
		id          UUID PRIMARY KEY,
		user_id     UUID NOT NULL REFERENCES users(id),
		status      TEXT NOT NULL DEFAULT 'PENDING',
		total_cents BIGINT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS orders_user_created_idx ON orders(user_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id               UUID PRIMARY KEY,
		order_id         UUID NOT NULL REFERENCES orders(id) ON DELETE CASCADE,
		meal_id          UUID NOT NULL REFERENCES meals(id) ON DELETE RESTRICT,
		position         INT NOT NULL,
		quantity         INT NOT NULL CHECK (quantity > 0),
		unit_price_cents BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_items_order_idx ON order_items(order_id, position)`,
	`CREATE TABLE IF NOT EXISTS nutrition_profiles (
		user_id          TEXT PRIMARY KEY,
		goal             TEXT NULL,
		calories_per_day INT NULL,
		is_vegetarian    BOOLEAN NOT NULL DEFAULT FALSE,
		no_pork          BOOLEAN NOT NULL DEFAULT FALSE,
		lactose_free     BOOLEAN NOT NULL DEFAULT FALSE,
		allergies        TEXT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS order_events (
		event_id    UUID PRIMARY KEY,
		order_id    UUID NOT NULL,
		event_type  TEXT NOT NULL,
		from_status TEXT NULL,
		to_status   TEXT NULL,
		producer    TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS order_events_order_idx ON order_events(order_id, occurred_at)`,
}

// Migrate creates the schema if it does not exist. Statements are idempotent.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for i, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i, err)
		}
	}
	return nil
}
