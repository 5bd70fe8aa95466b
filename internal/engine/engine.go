package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"storemirror/internal/database"
	"storemirror/internal/metrics"
	"storemirror/internal/models"
	"storemirror/internal/pipeline"
	"storemirror/internal/remote"
	"storemirror/internal/repository"

	"github.com/rs/zerolog"
)

// PageFetcher is the slice of the remote client the engine needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, collection string, page, pageSize int, filters map[string]string) (*remote.Page, error)
}

// Result reports what one invocation of the engine did.
type Result struct {
	ProcessedTasks int    `json:"processedTasks"`
	TaskID         int64  `json:"taskId,omitempty"`
	SyncType       string `json:"syncType,omitempty"`
	Pages          int    `json:"pages,omitempty"`
	Processed      int    `json:"processed"`
	Failed         int    `json:"failed"`
}

// Engine drains the task catalog one task per invocation. Claiming a task and
// moving it to processing is a single atomic transition; pages inside a task
// run strictly in ascending order; a page-level error is absorbed into the
// failed count and the loop continues.
type Engine struct {
	db         *database.DB
	fetcher    PageFetcher
	ingestor   *pipeline.Ingestor
	deadLetter repository.DeadLetterSink
	pageSize   int
	logger     *zerolog.Logger
}

func New(db *database.DB, fetcher PageFetcher, ingestor *pipeline.Ingestor, deadLetter repository.DeadLetterSink, pageSize int, logger *zerolog.Logger) *Engine {
	if pageSize <= 0 {
		pageSize = models.DefaultPageSize
	}
	return &Engine{
		db:         db,
		fetcher:    fetcher,
		ingestor:   ingestor,
		deadLetter: deadLetter,
		pageSize:   pageSize,
		logger:     logger,
	}
}

// ProcessNextPendingTask claims the oldest pending task and executes its page
// range. With nothing pending it returns Result{ProcessedTasks: 0}. An error
// that makes the task itself impossible to finish marks it failed and
// propagates to the caller.
func (e *Engine) ProcessNextPendingTask(ctx context.Context) (*Result, error) {
	task, err := e.db.ClaimOldestPendingTask(ctx)
	if err != nil {
		return nil, fmt.Errorf("claim pending task: %w", err)
	}
	if task == nil {
		return &Result{ProcessedTasks: 0}, nil
	}

	logger := e.logger.With().Int64("task_id", task.ID).Str("sync_type", task.SyncType).Logger()
	logger.Info().Int("start_page", task.StartPage).Int("end_page", task.EndPage).Msg("task claimed")

	res := &Result{
		ProcessedTasks: 1,
		TaskID:         task.ID,
		SyncType:       task.SyncType,
		Pages:          task.Pages(),
	}

	for page := task.StartPage; page <= task.EndPage; page++ {
		fetched, err := e.fetcher.FetchPage(ctx, task.SyncType, page, e.pageSize, nil)
		if err != nil {
			// Page-level failure: count it and move on to the next page.
			res.Failed++
			logger.Warn().Err(err).Int("page", page).Msg("page fetch failed")
			continue
		}
		metrics.IncPage(task.SyncType)

		pageRes := e.ingestor.UpsertPage(ctx, task.SyncType, fetched.Records)
		res.Processed += pageRes.Processed
		res.Failed += pageRes.Failed
	}

	if err := e.db.CompleteSyncTask(ctx, task.ID); err != nil {
		return res, e.failTask(ctx, task, err)
	}

	metrics.IncTaskFinished(task.SyncType, models.StatusCompleted)
	logger.Info().Int("processed", res.Processed).Int("failed", res.Failed).Msg("task completed")
	return res, nil
}

// failTask records the terminal failed state, pushes the task to the dead
// letter sink and returns the original cause.
func (e *Engine) failTask(ctx context.Context, task *models.SyncTask, cause error) error {
	if err := e.db.FailSyncTask(ctx, task.ID, cause.Error()); err != nil {
		e.logger.Error().Err(err).Int64("task_id", task.ID).Msg("mark failed")
	}
	metrics.IncTaskFinished(task.SyncType, models.StatusFailed)
	e.pushDeadLetter(ctx, task, cause)
	return cause
}

func (e *Engine) pushDeadLetter(ctx context.Context, task *models.SyncTask, cause error) {
	if e.deadLetter == nil {
		return
	}
	msg := cause.Error()
	task.ErrorMessage = &msg
	data, err := json.Marshal(task)
	if err != nil {
		e.logger.Error().Err(err).Int64("task_id", task.ID).Msg("encode deadletter")
		return
	}
	if err := e.deadLetter.PushDeadLetter(ctx, data); err != nil {
		e.logger.Error().Err(err).Int64("task_id", task.ID).Msg("deadletter push")
	}
}
