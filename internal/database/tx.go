package database

import (
	"context"
	"database/sql"

	"storemirror/internal/models"
)

// Tx exposes mirror upserts inside a transaction.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) UpsertOrder(ctx context.Context, o *models.Order) error {
	return upsertOrder(ctx, t.tx, o)
}

func (t *Tx) UpsertCustomer(ctx context.Context, c *models.Customer) error {
	return upsertCustomer(ctx, t.tx, c)
}

func (t *Tx) UpsertProduct(ctx context.Context, p *models.Product) error {
	return upsertProduct(ctx, t.tx, p)
}
