package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate applies the schema. Statements are idempotent so the binary can
// run them on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id BIGSERIAL PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			password_hash TEXT NOT NULL,
			role TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS patients (
			id BIGSERIAL PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts(id),
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			contact TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS patients_account_idx ON patients (account_id);`,
		`CREATE TABLE IF NOT EXISTS medicines (
			product_id BIGSERIAL PRIMARY KEY,
			name TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS stock (
			product_id BIGINT PRIMARY KEY REFERENCES medicines(product_id),
			quantity INT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
			unit_rate NUMERIC(12,2) NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS orders (
			id BIGSERIAL PRIMARY KEY,
			reference TEXT UNIQUE NOT NULL,
			patient_id BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'Pending',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);`,
		`CREATE TABLE IF NOT EXISTS order_items (
			order_id BIGINT NOT NULL REFERENCES orders(id),
			product_id BIGINT NOT NULL,
			quantity INT NOT NULL,
			PRIMARY KEY (order_id, product_id)
		);`,
		`CREATE TABLE IF NOT EXISTS bills (
			order_id BIGINT PRIMARY KEY REFERENCES orders(id),
			patient_id BIGINT NOT NULL,
			bill_date TIMESTAMPTZ NOT NULL,
			total_amount NUMERIC(12,2) NOT NULL,
			payment_method TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}
	return nil
}
