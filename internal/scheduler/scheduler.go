package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"storemirror/internal/database"
	"storemirror/internal/metrics"
	"storemirror/internal/models"
	"storemirror/internal/remote"

	"github.com/rs/zerolog"
)

// PageFetcher is the slice of the remote client the scheduler needs: the
// first page of a collection, to learn its total page count.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (*remote.Page, error)
}

// Scheduler materializes one day's worth of sync tasks once the configured
// time of day has passed.
type Scheduler struct {
	db           *database.DB
	fetcher      PageFetcher
	threshold    string
	pageSize     int
	pagesPerTask int
	staleAfter   time.Duration
	logger       *zerolog.Logger
	nowFunc      func() time.Time
}

func New(db *database.DB, fetcher PageFetcher, threshold string, pageSize, pagesPerTask int, staleAfter time.Duration, logger *zerolog.Logger) *Scheduler {
	if pagesPerTask <= 0 {
		pagesPerTask = models.PagesPerTask
	}
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &Scheduler{
		db:           db,
		fetcher:      fetcher,
		threshold:    threshold,
		pageSize:     pageSize,
		pagesPerTask: pagesPerTask,
		staleAfter:   staleAfter,
		logger:       logger,
		nowFunc:      time.Now,
	}
}

// parseThreshold accepts "HH:MM" with either ':' or '.' as separator.
func parseThreshold(raw string) (hour, minute int, err error) {
	s := strings.TrimSpace(raw)
	sep := ":"
	if !strings.Contains(s, sep) {
		sep = "."
	}
	parts := strings.Split(s, sep)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("threshold %q is not HH:MM", raw)
	}

	hour, err = strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return 0, 0, fmt.Errorf("threshold %q hour: %w", raw, err)
	}
	minute, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return 0, 0, fmt.Errorf("threshold %q minute: %w", raw, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("threshold %q out of range", raw)
	}
	return hour, minute, nil
}

// ShouldCreateTasksNow reports whether the local clock has passed the daily
// threshold. A malformed threshold fails closed: no tasks are ever created
// until the configuration is fixed.
func (s *Scheduler) ShouldCreateTasksNow() bool {
	hour, minute, err := parseThreshold(s.threshold)
	if err != nil {
		s.logger.Error().Err(err).Str("threshold", s.threshold).Msg("unparseable daily threshold, task creation disabled")
		return false
	}
	now := s.nowFunc()
	return now.Hour() > hour || (now.Hour() == hour && now.Minute() >= minute)
}

// TasksAlreadyCreatedToday reports whether any task was created since local
// midnight. One row is enough to short-circuit the whole day.
func (s *Scheduler) TasksAlreadyCreatedToday(ctx context.Context) (bool, error) {
	now := s.nowFunc()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	count, err := s.db.CountTasksCreatedSince(ctx, startOfDay)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

type pageRange struct {
	start, end int
}

// chunkPages partitions [1, totalPages] into consecutive ranges of at most
// perTask pages.
func chunkPages(totalPages, perTask int) []pageRange {
	if totalPages <= 0 || perTask <= 0 {
		return nil
	}
	ranges := make([]pageRange, 0, (totalPages+perTask-1)/perTask)
	for start := 1; start <= totalPages; start += perTask {
		end := start + perTask - 1
		if end > totalPages {
			end = totalPages
		}
		ranges = append(ranges, pageRange{start: start, end: end})
	}
	return ranges
}

// CreateAllTasks queries each collection's first page for its total page
// count and inserts one pending task per page range. A collection whose
// first-page fetch fails is logged and skipped; the rest still get tasks.
func (s *Scheduler) CreateAllTasks(ctx context.Context) ([]models.SyncTask, error) {
	var created []models.SyncTask
	for _, syncType := range models.SyncTypes {
		page, err := s.fetcher.FetchPage(ctx, syncType, 1, s.pageSize, nil)
		if err != nil {
			s.logger.Error().Err(err).Str("sync_type", syncType).Msg("first page fetch failed, skipping collection")
			continue
		}
		if page.TotalPages <= 0 {
			s.logger.Info().Str("sync_type", syncType).Msg("collection is empty, no tasks")
			continue
		}

		n := 0
		for _, r := range chunkPages(page.TotalPages, s.pagesPerTask) {
			task := models.SyncTask{
				SyncType:   syncType,
				StartPage:  r.start,
				EndPage:    r.end,
				TotalPages: page.TotalPages,
				Status:     models.StatusPending,
			}
			if err := s.db.CreateSyncTask(ctx, &task); err != nil {
				return created, fmt.Errorf("create task %s [%d,%d]: %w", syncType, r.start, r.end, err)
			}
			created = append(created, task)
			n++
		}
		metrics.AddTasksCreated(syncType, n)
		s.logger.Info().Str("sync_type", syncType).Int("total_pages", page.TotalPages).Int("tasks", n).Msg("tasks created")
	}
	return created, nil
}

// RequeueStale returns orphaned processing tasks to pending. Runs as part of
// every orchestration pass so a host-killed invocation cannot wedge the
// catalog.
func (s *Scheduler) RequeueStale(ctx context.Context) {
	if s.staleAfter <= 0 {
		return
	}
	n, err := s.db.RequeueStaleTasks(ctx, s.staleAfter)
	if err != nil {
		s.logger.Error().Err(err).Msg("stale task requeue failed")
		return
	}
	if n > 0 {
		s.logger.Warn().Int64("requeued", n).Msg("stale processing tasks returned to pending")
	}
}
