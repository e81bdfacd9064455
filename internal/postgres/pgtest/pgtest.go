// Package pgtest opens a migrated, empty database for store integration tests.
package pgtest

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ariefcatur/go-weekly-orders/internal/postgres"
)

// Open skips the test unless TEST_POSTGRES_DSN is set.
func Open(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := postgres.Connect(ctx, dsn, postgres.PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := postgres.Migrate(pool); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if _, err := pool.Exec(ctx, `TRUNCATE order_items, orders, weekly_list_items, weekly_lists, products, categories RESTART IDENTITY CASCADE`); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return pool
}

// SeedProduct inserts a category (if needed) and an active product, returning the product id.
func SeedProduct(t *testing.T, pool *pgxpool.Pool, category, name, price, unit string) int64 {
	t.Helper()
	ctx := context.Background()

	var catID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO categories(name, emoji, display_order) VALUES ($1, '', 0)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, category).Scan(&catID)
	if err != nil {
		t.Fatalf("seed category: %v", err)
	}

	var id int64
	if err := pool.QueryRow(ctx, `
		INSERT INTO products(name, price, unit, category_id) VALUES ($1, $2::numeric, $3, $4)
		RETURNING id`, name, price, unit, catID).Scan(&id); err != nil {
		t.Fatalf("seed product: %v", err)
	}
	return id
}
