package pager

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"storemirror/internal/metrics"
	"storemirror/internal/models"
	"storemirror/internal/pipeline"
	"storemirror/internal/remote"
	"storemirror/internal/repository"

	"github.com/rs/zerolog"
)

// PageFetcher is the slice of the remote client the pager needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (*remote.Page, error)
}

// Stats reports what one pager invocation did with its single page.
type Stats struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
	Processed   int  `json:"processed"`
	Failed      int  `json:"failed"`
	Skipped     int  `json:"skipped"`
}

// Pager walks an unbounded paginated collection one page per invocation.
// Each call fetches a page, upserts it, persists the cursor, and — when the
// provider reports another page — schedules a delayed, fire-and-forget call
// back to the service for page+1. The chain ends when has_next_page is false.
type Pager struct {
	fetcher        PageFetcher
	ingestor       *pipeline.Ingestor
	cursors        repository.CursorRepository
	selfBaseURL    string
	schedulerToken string
	followUpDelay  time.Duration
	pageSize       int
	httpClient     *http.Client
	logger         *zerolog.Logger

	// followUp is swappable so tests can capture scheduling without timers.
	followUp func(collection string, page int)
}

func New(fetcher PageFetcher, ingestor *pipeline.Ingestor, cursors repository.CursorRepository,
	selfBaseURL, schedulerToken string, followUpDelay time.Duration, pageSize int, logger *zerolog.Logger) *Pager {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	p := &Pager{
		fetcher:        fetcher,
		ingestor:       ingestor,
		cursors:        cursors,
		selfBaseURL:    selfBaseURL,
		schedulerToken: schedulerToken,
		followUpDelay:  followUpDelay,
		pageSize:       pageSize,
		httpClient:     &http.Client{Timeout: 15 * time.Second},
		logger:         logger,
	}
	p.followUp = p.scheduleFollowUp
	return p
}

// ResolveStartPage decides which page an invocation handles: an explicit
// requested page wins, then the persisted cursor, then page 1.
func (p *Pager) ResolveStartPage(ctx context.Context, collection string, requested int) int {
	if requested > 0 {
		return requested
	}
	cursor, err := p.cursors.GetCursor(ctx, collection)
	if err != nil {
		p.logger.Warn().Err(err).Str("collection", collection).Msg("cursor lookup failed, starting from page 1")
		return 1
	}
	if cursor != nil && cursor.NextPage > 0 {
		return cursor.NextPage
	}
	return 1
}

// SyncPage handles exactly one page of a collection.
func (p *Pager) SyncPage(ctx context.Context, collection string, page int) (*Stats, error) {
	fetched, err := p.fetcher.FetchPage(ctx, collection, page, p.pageSize, nil)
	if err != nil {
		return nil, err
	}
	metrics.IncPage(collection)

	res := p.ingestor.UpsertPage(ctx, collection, fetched.Records)

	stats := &Stats{
		CurrentPage: fetched.CurrentPage,
		TotalPages:  fetched.TotalPages,
		HasNextPage: fetched.HasNextPage,
		Processed:   res.Processed,
		Failed:      res.Failed,
		Skipped:     res.Skipped,
	}

	if fetched.HasNextPage {
		p.advanceCursor(ctx, collection, page+1)
		p.followUp(collection, page+1)
	} else {
		p.finishCursor(ctx, collection)
	}

	return stats, nil
}

func (p *Pager) advanceCursor(ctx context.Context, collection string, nextPage int) {
	cursor := &repository.Cursor{Collection: collection, NextPage: nextPage, UpdatedAt: time.Now()}
	if err := p.cursors.SetCursor(ctx, cursor); err != nil {
		p.logger.Warn().Err(err).Str("collection", collection).Msg("cursor persist failed")
	}
}

func (p *Pager) finishCursor(ctx context.Context, collection string) {
	if err := p.cursors.ClearCursor(ctx, collection); err != nil {
		p.logger.Warn().Err(err).Str("collection", collection).Msg("cursor clear failed")
	}
	p.logger.Info().Str("collection", collection).Msg("pagination chain finished")
}

// scheduleFollowUp issues the delayed self-call. It is deliberately not
// awaited: the current invocation returns its response before this fires.
// The delay throttles pressure on the remote provider.
func (p *Pager) scheduleFollowUp(collection string, page int) {
	go func() {
		if p.followUpDelay > 0 {
			time.Sleep(p.followUpDelay)
		}

		url := fmt.Sprintf("%s/api/v1/sync/%s?page=%d", p.selfBaseURL, collection, page)
		req, err := http.NewRequest(http.MethodPost, url, nil)
		if err != nil {
			p.logger.Error().Err(err).Str("collection", collection).Int("page", page).Msg("build follow-up request")
			return
		}
		req.Header.Set("Authorization", "Bearer "+p.schedulerToken)

		resp, err := p.httpClient.Do(req)
		if err != nil {
			// Lost follow-up: the chain truncates here, the cursor lets the
			// next timed trigger resume it.
			p.logger.Error().Err(err).Str("collection", collection).Int("page", page).Msg("follow-up call failed")
			return
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			p.logger.Error().Int("status", resp.StatusCode).Str("collection", collection).Int("page", page).Msg("follow-up call rejected")
		}
	}()
}
