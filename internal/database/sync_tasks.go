package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"storemirror/internal/models"
)

const syncTaskColumns = `id, sync_type, start_page, end_page, total_pages, status, error_message, created_at, started_at, completed_at`

func scanSyncTask(row interface{ Scan(...any) error }) (*models.SyncTask, error) {
	var t models.SyncTask
	err := row.Scan(
		&t.ID, &t.SyncType, &t.StartPage, &t.EndPage, &t.TotalPages,
		&t.Status, &t.ErrorMessage, &t.CreatedAt, &t.StartedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateSyncTask inserts a task in pending status and fills ID/CreatedAt.
func (db *DB) CreateSyncTask(ctx context.Context, task *models.SyncTask) error {
	if task.Status == "" {
		task.Status = models.StatusPending
	}
	now := time.Now()
	query := `INSERT INTO sync_tasks (sync_type, start_page, end_page, total_pages, status, created_at)
              VALUES (?, ?, ?, ?, ?, ?)`
	result, err := db.db.ExecContext(ctx, query,
		task.SyncType,
		task.StartPage,
		task.EndPage,
		task.TotalPages,
		task.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create sync task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now

	return nil
}

// CountTasksCreatedSince returns how many tasks have created_at >= since.
// The scheduler uses it with the start of the current day to keep daily
// creation idempotent.
func (db *DB) CountTasksCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sync_tasks WHERE created_at >= ?`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count sync tasks: %w", err)
	}
	return count, nil
}

// ClaimOldestPendingTask atomically moves the oldest pending task to
// processing and returns it. The claim and the transition are a single
// conditional UPDATE, so two concurrent invocations cannot both win the
// same row. Returns (nil, nil) when nothing is pending.
func (db *DB) ClaimOldestPendingTask(ctx context.Context) (*models.SyncTask, error) {
	now := time.Now()
	query := `UPDATE sync_tasks
              SET status = ?, started_at = ?
              WHERE id = (
                  SELECT id FROM sync_tasks WHERE status = ? ORDER BY created_at ASC, id ASC LIMIT 1
              ) AND status = ?
              RETURNING ` + syncTaskColumns
	task, err := scanSyncTask(db.db.QueryRowContext(ctx, query,
		models.StatusProcessing, now, models.StatusPending, models.StatusPending))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to claim pending task: %w", err)
	}
	return task, nil
}

// CompleteSyncTask moves a processing task to its terminal completed state.
func (db *DB) CompleteSyncTask(ctx context.Context, id int64) error {
	query := `UPDATE sync_tasks SET status = ?, completed_at = ? WHERE id = ? AND status = ?`
	res, err := db.db.ExecContext(ctx, query, models.StatusCompleted, time.Now(), id, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to complete sync task %d: %w", id, err)
	}
	return requireOneRow(res, id)
}

// FailSyncTask moves a processing task to its terminal failed state,
// recording the error message.
func (db *DB) FailSyncTask(ctx context.Context, id int64, errMsg string) error {
	query := `UPDATE sync_tasks SET status = ?, error_message = ?, completed_at = ? WHERE id = ? AND status = ?`
	res, err := db.db.ExecContext(ctx, query, models.StatusFailed, errMsg, time.Now(), id, models.StatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to fail sync task %d: %w", id, err)
	}
	return requireOneRow(res, id)
}

func requireOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for task %d: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("task %d is not in processing state", id)
	}
	return nil
}

// RequeueStaleTasks returns processing tasks older than olderThan to pending.
// Tasks stuck in processing appear when the host kills an invocation mid-run;
// without this pass they would never drain.
func (db *DB) RequeueStaleTasks(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	query := `UPDATE sync_tasks
              SET status = ?, started_at = NULL, error_message = ?
              WHERE status = ? AND started_at IS NOT NULL AND started_at < ?`
	res, err := db.db.ExecContext(ctx, query,
		models.StatusPending, "requeued: processing exceeded staleness limit", models.StatusProcessing, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to requeue stale tasks: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected for stale requeue: %w", err)
	}
	return n, nil
}

// TasksByStatus returns tasks with the given status, newest first.
// An empty status returns everything.
func (db *DB) TasksByStatus(ctx context.Context, status string, limit int) ([]models.SyncTask, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `SELECT ` + syncTaskColumns + ` FROM sync_tasks`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.SyncTask
	for rows.Next() {
		t, err := scanSyncTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync task: %w", err)
		}
		tasks = append(tasks, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskByID returns a single task.
func (db *DB) TaskByID(ctx context.Context, id int64) (*models.SyncTask, error) {
	query := `SELECT ` + syncTaskColumns + ` FROM sync_tasks WHERE id = ?`
	task, err := scanSyncTask(db.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get sync task %d: %w", id, err)
	}
	return task, nil
}
