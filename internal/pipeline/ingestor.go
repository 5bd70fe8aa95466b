package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"storemirror/internal/database"
	"storemirror/internal/metrics"
	"storemirror/internal/models"

	"github.com/rs/zerolog"
)

// Result is the per-call accounting of an ingestion strategy.
type Result struct {
	Processed int `json:"processed"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

func (r *Result) add(other Result) {
	r.Processed += other.Processed
	r.Failed += other.Failed
	r.Skipped += other.Skipped
}

// Ingestor applies mapped records to the mirror tables.
//
// Two strategies exist: UpsertPage maps and upserts one record at a time,
// counting failures so a bad record never blocks the rest of the page; the
// backfill path uses UpsertBulk, which wraps fixed-size batches in
// transactions and aborts a whole batch on the first error.
type Ingestor struct {
	db     *database.DB
	logger *zerolog.Logger
}

func NewIngestor(db *database.DB, logger *zerolog.Logger) *Ingestor {
	return &Ingestor{db: db, logger: logger}
}

// UpsertPage runs the per-record strategy over one page of raw records.
func (i *Ingestor) UpsertPage(ctx context.Context, syncType string, records []json.RawMessage) Result {
	var res Result
	for _, raw := range records {
		skipped, err := i.upsertOne(ctx, syncType, raw)
		switch {
		case err != nil:
			res.Failed++
			i.logger.Warn().Err(err).Str("sync_type", syncType).Msg("record upsert failed")
		case skipped:
			res.Skipped++
		default:
			res.Processed++
		}
	}
	metrics.AddRecords(syncType, res.Processed, res.Failed)
	return res
}

func (i *Ingestor) upsertOne(ctx context.Context, syncType string, raw json.RawMessage) (skipped bool, err error) {
	switch syncType {
	case models.SyncTypeOrders:
		order, err := MapOrder(raw)
		if err != nil {
			return false, err
		}
		return false, i.db.UpsertOrder(ctx, order)
	case models.SyncTypeCustomers:
		customer, err := MapCustomer(raw)
		if err != nil {
			return false, err
		}
		if customer == nil {
			return true, nil
		}
		return false, i.db.UpsertCustomer(ctx, customer)
	case models.SyncTypeProducts:
		product, err := MapProduct(raw)
		if err != nil {
			return false, err
		}
		return false, i.db.UpsertProduct(ctx, product)
	default:
		return false, fmt.Errorf("unknown sync type: %s", syncType)
	}
}

// UpsertBulk runs the bulk strategy: records are mapped up front, then written
// in batches of models.BulkBatchSize, one transaction per batch. Any error
// aborts the current batch and the whole call.
func (i *Ingestor) UpsertBulk(ctx context.Context, syncType string, records []json.RawMessage) (int, error) {
	processed := 0
	for start := 0; start < len(records); start += models.BulkBatchSize {
		end := start + models.BulkBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[start:end]

		err := i.db.WithTx(ctx, func(tx *database.Tx) error {
			for _, raw := range batch {
				if err := i.upsertOneTx(ctx, tx, syncType, raw); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return processed, fmt.Errorf("bulk upsert %s batch [%d:%d]: %w", syncType, start, end, err)
		}
		processed += len(batch)
	}
	metrics.AddRecords(syncType, processed, 0)
	return processed, nil
}

func (i *Ingestor) upsertOneTx(ctx context.Context, tx *database.Tx, syncType string, raw json.RawMessage) error {
	switch syncType {
	case models.SyncTypeOrders:
		order, err := MapOrder(raw)
		if err != nil {
			return err
		}
		return tx.UpsertOrder(ctx, order)
	case models.SyncTypeCustomers:
		customer, err := MapCustomer(raw)
		if err != nil {
			return err
		}
		if customer == nil {
			return nil
		}
		return tx.UpsertCustomer(ctx, customer)
	case models.SyncTypeProducts:
		product, err := MapProduct(raw)
		if err != nil {
			return err
		}
		return tx.UpsertProduct(ctx, product)
	default:
		return fmt.Errorf("unknown sync type: %s", syncType)
	}
}
