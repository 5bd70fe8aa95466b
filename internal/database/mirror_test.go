package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"storemirror/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertOrder_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	order := &models.Order{
		ExternalID: "ord-1",
		Number:     "1001",
		CustomerID: "cust-1",
		Status:     "paid",
		Total:      99.90,
		Currency:   "EUR",
		ItemsCount: 3,
		PlacedAt:   time.Now().Add(-time.Hour),
		UpdatedAt:  time.Now(),
	}
	require.NoError(t, db.UpsertOrder(ctx, order))

	// Re-applying the same record must not create a second row.
	order.Status = "shipped"
	require.NoError(t, db.UpsertOrder(ctx, order))

	counts, err := db.MirrorCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts[models.SyncTypeOrders])

	var status string
	require.NoError(t, db.db.QueryRowContext(ctx,
		`SELECT status FROM orders WHERE external_id = ?`, "ord-1").Scan(&status))
	assert.Equal(t, "shipped", status)
}

func TestUpsertRejectsMissingExternalID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	assert.Error(t, db.UpsertOrder(ctx, &models.Order{}))
	assert.Error(t, db.UpsertCustomer(ctx, &models.Customer{}))
	assert.Error(t, db.UpsertProduct(ctx, &models.Product{}))
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		if err := tx.UpsertProduct(ctx, &models.Product{ExternalID: "prod-1", Name: "Mug", Price: 8.5}); err != nil {
			return err
		}
		return fmt.Errorf("midway failure")
	})
	require.Error(t, err)

	counts, err := db.MirrorCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts[models.SyncTypeProducts])
}

func TestWithTx_CommitsBatch(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.WithTx(ctx, func(tx *Tx) error {
		for i := 0; i < 3; i++ {
			c := &models.Customer{ExternalID: fmt.Sprintf("cust-%d", i), Email: fmt.Sprintf("c%d@example.com", i)}
			if err := tx.UpsertCustomer(ctx, c); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	counts, err := db.MirrorCounts(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts[models.SyncTypeCustomers])
}
