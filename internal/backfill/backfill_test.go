package backfill

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"storemirror/internal/database"
	"storemirror/internal/models"
	"storemirror/internal/pipeline"
	"storemirror/internal/remote"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seedFetcher struct {
	totalPages map[string]int
	failAfter  string // collection whose fetch always fails
}

func (f *seedFetcher) FetchPage(_ context.Context, collection string, page, pageSize int, _ map[string]string) (*remote.Page, error) {
	if collection == f.failAfter {
		return nil, &remote.FetchError{Op: "fetch", Collection: collection, Page: page, Err: fmt.Errorf("export unavailable")}
	}
	total := f.totalPages[collection]
	return &remote.Page{
		Records: []json.RawMessage{
			json.RawMessage(fmt.Sprintf(`{"id": "%s-%d", "role": "customer", "name": "x", "price": "2.00"}`, collection, page)),
		},
		CurrentPage: page,
		TotalPages:  total,
		HasNextPage: page < total,
	}, nil
}

func setupBackfill(t *testing.T, fetcher PageFetcher) (*Backfill, *database.DB) {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(fetcher, pipeline.NewIngestor(db, &logger), 50, &logger), db
}

func TestRun(t *testing.T) {
	fetcher := &seedFetcher{totalPages: map[string]int{
		models.SyncTypeOrders:    3,
		models.SyncTypeCustomers: 1,
		models.SyncTypeProducts:  2,
	}}
	backfill, db := setupBackfill(t, fetcher)

	summary, err := backfill.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, summary[models.SyncTypeOrders])
	assert.Equal(t, 1, summary[models.SyncTypeCustomers])
	assert.Equal(t, 2, summary[models.SyncTypeProducts])

	counts, err := db.MirrorCounts(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, counts[models.SyncTypeOrders])
	assert.EqualValues(t, 2, counts[models.SyncTypeProducts])
}

func TestRun_AbortsOnCollectionError(t *testing.T) {
	fetcher := &seedFetcher{
		totalPages: map[string]int{models.SyncTypeOrders: 2},
		failAfter:  models.SyncTypeCustomers,
	}
	backfill, _ := setupBackfill(t, fetcher)

	summary, err := backfill.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customers")

	// Orders finished before the failure and keeps its count.
	assert.Equal(t, 2, summary[models.SyncTypeOrders])
}
