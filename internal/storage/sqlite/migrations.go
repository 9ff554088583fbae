package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// Migration is a forward-only schema change.
type Migration struct {
	Version string
	Up      []string
}

// Migrations lists schema changes in ascending version order.
var Migrations = []Migration{
	{
		Version: "1.0.0",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS bouquets (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                size TEXT NOT NULL CHECK(size IN ('small','medium','big')),
                number INTEGER NOT NULL,
                title TEXT NOT NULL,
                price INTEGER NOT NULL CHECK(price >= 0),
                image_ref TEXT NOT NULL DEFAULT '',
                in_stock INTEGER NOT NULL DEFAULT 1
            )`,
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_bouquets_size_number ON bouquets(size, number)`,
			`CREATE TABLE IF NOT EXISTS orders (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                customer_id INTEGER NOT NULL,
                status TEXT NOT NULL,
                total INTEGER NOT NULL,
                address TEXT NOT NULL DEFAULT '',
                delivery_time TEXT NOT NULL DEFAULT '',
                payment_ref TEXT NOT NULL DEFAULT '',
                created_at INTEGER NOT NULL,
                updated_at INTEGER NOT NULL
            )`,
			`CREATE INDEX IF NOT EXISTS idx_orders_customer ON orders(customer_id, created_at)`,
			`CREATE TABLE IF NOT EXISTS order_items (
                order_id INTEGER NOT NULL REFERENCES orders(id),
                position INTEGER NOT NULL,
                bouquet_id INTEGER NOT NULL,
                title TEXT NOT NULL,
                quantity INTEGER NOT NULL CHECK(quantity >= 1),
                unit_price INTEGER NOT NULL,
                PRIMARY KEY (order_id, position)
            )`,
		},
	},
	{
		Version: "1.1.0",
		Up: []string{
			`CREATE TABLE IF NOT EXISTS order_status_log (
                id INTEGER PRIMARY KEY AUTOINCREMENT,
                order_id INTEGER NOT NULL REFERENCES orders(id),
                from_status TEXT NOT NULL,
                to_status TEXT NOT NULL,
                reason TEXT NOT NULL DEFAULT '',
                changed_at INTEGER NOT NULL
            )`,
			`CREATE INDEX IF NOT EXISTS idx_order_status_log_order ON order_status_log(order_id, id)`,
			`CREATE INDEX IF NOT EXISTS idx_orders_awaiting ON orders(status, created_at)`,
		},
	},
}

// CurrentSchemaVersion is the version of the newest migration.
func CurrentSchemaVersion() string {
	return Migrations[len(Migrations)-1].Version
}

// ApplyMigrations brings schema up to date, applying each pending migration in its own transaction.
func ApplyMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (
        version TEXT PRIMARY KEY,
        applied_at INTEGER NOT NULL
    )`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	applied, err := appliedVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range Migrations {
		v, err := semver.NewVersion(m.Version)
		if err != nil {
			return fmt.Errorf("migration version %q: %w", m.Version, err)
		}
		if applied != nil && !v.GreaterThan(applied) {
			continue
		}
		if err := applyMigration(ctx, db, m); err != nil {
			return fmt.Errorf("apply migration %s: %w", m.Version, err)
		}
		applied = v
	}
	return nil
}

func appliedVersion(ctx context.Context, db *sql.DB) (*semver.Version, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_version`)
	if err != nil {
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	defer rows.Close()

	var latest *semver.Version
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		v, err := semver.NewVersion(raw)
		if err != nil {
			return nil, fmt.Errorf("stored schema version %q: %w", raw, err)
		}
		if latest == nil || v.GreaterThan(latest) {
			latest = v
		}
	}
	return latest, rows.Err()
}

func applyMigration(ctx context.Context, db *sql.DB, m Migration) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, stmt := range m.Up {
		if _, err = tx.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `INSERT INTO schema_version (version, applied_at) VALUES (?, ?)`, m.Version, nowUnix()); err != nil {
		return err
	}
	return tx.Commit()
}
