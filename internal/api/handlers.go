package api

import (
	"net/http"
	"strconv"
	"strings"

	"storemirror/internal/models"
)

// handleSyncRun is the orchestration endpoint the time trigger hits on a
// fixed interval. It either materializes today's tasks (once per day, after
// the threshold) or executes at most one pending task.
func (s *HTTPServer) handleSyncRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ctx := r.Context()

	s.scheduler.RequeueStale(ctx)

	if s.scheduler.ShouldCreateTasksNow() {
		already, err := s.scheduler.TasksAlreadyCreatedToday(ctx)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if !already {
			created, err := s.scheduler.CreateAllTasks(ctx)
			if err != nil {
				writeError(w, http.StatusInternalServerError, err.Error())
				return
			}
			if len(created) > 0 {
				writeJSON(w, http.StatusOK, map[string]any{
					"success":      true,
					"tasksCreated": len(created),
				})
				return
			}
		}
	}

	result, err := s.engine.ProcessNextPendingTask(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"processedTasks": result.ProcessedTasks,
		"syncType":       result.SyncType,
		"pages":          result.Pages,
		"processed":      result.Processed,
		"failed":         result.Failed,
	})
}

// handleCollection serves the single-resource pagers:
// POST /api/v1/sync/{orders|customers|products}?page=N
func (s *HTTPServer) handleCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	collection := strings.TrimPrefix(r.URL.Path, "/api/v1/sync/")
	if !models.ValidSyncType(collection) {
		writeError(w, http.StatusNotFound, "unknown collection")
		return
	}

	requested := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		requested = parsed
	}

	ctx := r.Context()
	page := s.pager.ResolveStartPage(ctx, collection, requested)

	stats, err := s.pager.SyncPage(ctx, collection, page)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"stats":   stats,
	})
}

// handleBackfill loops every page of every collection in one invocation.
func (s *HTTPServer) handleBackfill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	summary, err := s.backfiller.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"summary": summary,
	})
}

// handleReturns delegates return-domain ingestion to the collaborator.
func (s *HTTPServer) handleReturns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.returns == nil {
		writeError(w, http.StatusNotImplemented, "returns sync is not configured")
		return
	}

	total, err := s.returns.SyncReturns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"totalSynced": total,
	})
}

// handleTasks lists the task catalog for audit, with current mirror row
// counts alongside.
// GET /api/v1/sync/tasks?status=pending&limit=50
func (s *HTTPServer) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	status := strings.TrimSpace(r.URL.Query().Get("status"))
	switch status {
	case "", models.StatusPending, models.StatusProcessing, models.StatusCompleted, models.StatusFailed:
	default:
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}

	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	tasks, err := s.db.TasksByStatus(r.Context(), status, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	counts, err := s.db.MirrorCounts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"tasks":   tasks,
		"count":   len(tasks),
		"mirror":  counts,
	})
}
