package database

import (
	"context"
	"testing"
	"time"

	"storemirror/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTask(t *testing.T, db *DB, syncType string, start, end int) *models.SyncTask {
	t.Helper()
	task := &models.SyncTask{
		SyncType:   syncType,
		StartPage:  start,
		EndPage:    end,
		TotalPages: end,
	}
	require.NoError(t, db.CreateSyncTask(context.Background(), task))
	return task
}

func TestCreateSyncTask(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := createTask(t, db, models.SyncTypeOrders, 1, 5)
	assert.NotZero(t, task.ID)
	assert.Equal(t, models.StatusPending, task.Status)
	assert.False(t, task.CreatedAt.IsZero())

	got, err := db.TaskByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SyncTypeOrders, got.SyncType)
	assert.Equal(t, 1, got.StartPage)
	assert.Equal(t, 5, got.EndPage)
	assert.Nil(t, got.StartedAt)
	assert.Nil(t, got.CompletedAt)
	assert.Nil(t, got.ErrorMessage)
}

func TestClaimOldestPendingTask_FIFO(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first := createTask(t, db, models.SyncTypeOrders, 1, 5)
	second := createTask(t, db, models.SyncTypeProducts, 1, 3)

	claimed, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)
	assert.Equal(t, first.ID, claimed.ID)
	assert.Equal(t, models.StatusProcessing, claimed.Status)
	require.NotNil(t, claimed.StartedAt)

	// The next claim must get a different row.
	next, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, next)
	assert.Equal(t, second.ID, next.ID)

	// No pending tasks left.
	empty, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestTaskTerminalTransitions(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTask(t, db, models.SyncTypeOrders, 1, 5)
	claimed, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, db.CompleteSyncTask(ctx, claimed.ID))
	got, err := db.TaskByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)

	// Terminal states reject further transitions.
	assert.Error(t, db.CompleteSyncTask(ctx, claimed.ID))
	assert.Error(t, db.FailSyncTask(ctx, claimed.ID, "late failure"))
}

func TestFailSyncTask_RecordsError(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTask(t, db, models.SyncTypeCustomers, 6, 10)
	claimed, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	require.NoError(t, db.FailSyncTask(ctx, claimed.ID, "remote exploded"))
	got, err := db.TaskByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, got.Status)
	require.NotNil(t, got.ErrorMessage)
	assert.Equal(t, "remote exploded", *got.ErrorMessage)
	require.NotNil(t, got.CompletedAt)

	// No transition back to pending.
	empty, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	assert.Nil(t, empty)
}

func TestCompleteSyncTask_RequiresProcessing(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	task := createTask(t, db, models.SyncTypeOrders, 1, 5)
	// Still pending: completing it directly must fail.
	assert.Error(t, db.CompleteSyncTask(ctx, task.ID))
}

func TestCountTasksCreatedSince(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	count, err := db.CountTasksCreatedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	createTask(t, db, models.SyncTypeOrders, 1, 5)
	createTask(t, db, models.SyncTypeProducts, 1, 2)

	count, err = db.CountTasksCreatedSince(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = db.CountTasksCreatedSince(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestRequeueStaleTasks(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTask(t, db, models.SyncTypeOrders, 1, 5)
	claimed, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, claimed)

	// Fresh processing task is not stale.
	n, err := db.RequeueStaleTasks(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)

	// With a zero threshold everything processing counts as stale.
	n, err = db.RequeueStaleTasks(ctx, -time.Second)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := db.TaskByID(ctx, claimed.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Nil(t, got.StartedAt)

	// Requeued task is claimable again.
	again, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, claimed.ID, again.ID)
}

func TestTasksByStatus(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	createTask(t, db, models.SyncTypeOrders, 1, 5)
	createTask(t, db, models.SyncTypeProducts, 1, 4)
	claimed, err := db.ClaimOldestPendingTask(ctx)
	require.NoError(t, err)
	require.NoError(t, db.CompleteSyncTask(ctx, claimed.ID))

	pending, err := db.TasksByStatus(ctx, models.StatusPending, 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	completed, err := db.TasksByStatus(ctx, models.StatusCompleted, 10)
	require.NoError(t, err)
	assert.Len(t, completed, 1)

	all, err := db.TasksByStatus(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
