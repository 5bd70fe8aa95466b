package database

import (
	"context"
	"database/sql"
	"fmt"

	"storemirror/internal/models"
)

// Mirror upserts are keyed by the platform's stable external id, so applying
// the same page twice is a no-op beyond the first run. The same statements
// serve both the autocommit path (per-record strategy) and the transactional
// path (bulk strategy).

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func upsertOrder(ctx context.Context, e execer, o *models.Order) error {
	if o.ExternalID == "" {
		return fmt.Errorf("order is missing external id")
	}
	query := `
        INSERT INTO orders (external_id, number, customer_id, status, total, currency, items_count, placed_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET
            number = excluded.number,
            customer_id = excluded.customer_id,
            status = excluded.status,
            total = excluded.total,
            currency = excluded.currency,
            items_count = excluded.items_count,
            placed_at = excluded.placed_at,
            updated_at = excluded.updated_at
    `
	_, err := e.ExecContext(ctx, query,
		o.ExternalID, o.Number, o.CustomerID, o.Status, o.Total, o.Currency, o.ItemsCount, o.PlacedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert order %s: %w", o.ExternalID, err)
	}
	return nil
}

func upsertCustomer(ctx context.Context, e execer, c *models.Customer) error {
	if c.ExternalID == "" {
		return fmt.Errorf("customer is missing external id")
	}
	query := `
        INSERT INTO customers (external_id, email, first_name, last_name, role, city, country, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET
            email = excluded.email,
            first_name = excluded.first_name,
            last_name = excluded.last_name,
            role = excluded.role,
            city = excluded.city,
            country = excluded.country,
            created_at = excluded.created_at,
            updated_at = excluded.updated_at
    `
	_, err := e.ExecContext(ctx, query,
		c.ExternalID, c.Email, c.FirstName, c.LastName, c.Role, c.City, c.Country, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert customer %s: %w", c.ExternalID, err)
	}
	return nil
}

func upsertProduct(ctx context.Context, e execer, p *models.Product) error {
	if p.ExternalID == "" {
		return fmt.Errorf("product is missing external id")
	}
	query := `
        INSERT INTO products (external_id, sku, name, price, stock, category, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(external_id) DO UPDATE SET
            sku = excluded.sku,
            name = excluded.name,
            price = excluded.price,
            stock = excluded.stock,
            category = excluded.category,
            updated_at = excluded.updated_at
    `
	_, err := e.ExecContext(ctx, query,
		p.ExternalID, p.SKU, p.Name, p.Price, p.Stock, p.Category, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert product %s: %w", p.ExternalID, err)
	}
	return nil
}

func (db *DB) UpsertOrder(ctx context.Context, o *models.Order) error {
	return upsertOrder(ctx, db.db, o)
}

func (db *DB) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	return upsertCustomer(ctx, db.db, c)
}

func (db *DB) UpsertProduct(ctx context.Context, p *models.Product) error {
	return upsertProduct(ctx, db.db, p)
}

// WithTx runs fn inside a transaction. The bulk ingestion strategy wraps each
// batch in one so a mid-batch error rolls the whole batch back.
func (db *DB) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	tx := &Tx{tx: sqlTx}
	if err := fn(tx); err != nil {
		if rbErr := sqlTx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback after %v: %w", err, rbErr)
		}
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit tx: %w", err)
	}
	return nil
}

// MirrorCounts returns row counts per mirror table, reported by the task
// audit endpoint.
func (db *DB) MirrorCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64, len(models.SyncTypes))
	for _, table := range models.SyncTypes {
		var n int64
		// table names come from the fixed SyncTypes list, not user input
		if err := db.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
