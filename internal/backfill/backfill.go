package backfill

import (
	"context"
	"encoding/json"
	"fmt"

	"storemirror/internal/models"
	"storemirror/internal/pipeline"
	"storemirror/internal/remote"

	"github.com/rs/zerolog"
)

// PageFetcher is the slice of the remote client the backfill needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (*remote.Page, error)
}

// Backfill walks every page of every collection in one invocation, with no
// chunked tasks, and writes through the bulk ingestion strategy. It is meant
// for initial seeding, not the daily cycle, so it runs without the host's
// short execution window.
type Backfill struct {
	fetcher  PageFetcher
	ingestor *pipeline.Ingestor
	pageSize int
	logger   *zerolog.Logger
}

func New(fetcher PageFetcher, ingestor *pipeline.Ingestor, pageSize int, logger *zerolog.Logger) *Backfill {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &Backfill{fetcher: fetcher, ingestor: ingestor, pageSize: pageSize, logger: logger}
}

// Run syncs all collections and returns processed counts per collection.
// The first collection-level error aborts the run; counts for collections
// already finished are still reported.
func (b *Backfill) Run(ctx context.Context) (map[string]int, error) {
	summary := make(map[string]int, len(models.SyncTypes))
	for _, syncType := range models.SyncTypes {
		n, err := b.runCollection(ctx, syncType)
		summary[syncType] = n
		if err != nil {
			return summary, fmt.Errorf("backfill %s: %w", syncType, err)
		}
	}
	return summary, nil
}

func (b *Backfill) runCollection(ctx context.Context, syncType string) (int, error) {
	var records []json.RawMessage
	for page := 1; ; page++ {
		fetched, err := b.fetcher.FetchPage(ctx, syncType, page, b.pageSize, nil)
		if err != nil {
			return 0, err
		}
		records = append(records, fetched.Records...)
		if !fetched.HasNextPage {
			break
		}
	}

	processed, err := b.ingestor.UpsertBulk(ctx, syncType, records)
	if err != nil {
		return processed, err
	}
	b.logger.Info().Str("sync_type", syncType).Int("records", processed).Msg("backfill collection done")
	return processed, nil
}
