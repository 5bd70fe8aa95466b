package repository

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// FailoverCursorRepository prefers a primary (redis) repository and falls
// back to an in-memory one when the primary errors, probing the primary
// again after a cooldown.
type FailoverCursorRepository struct {
	primary   CursorRepository
	fallback  CursorRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nano of the last failed probe
}

const recoveryProbeInterval = time.Minute

func NewFailoverCursorRepository(primary, fallback CursorRepository, logger *zerolog.Logger) *FailoverCursorRepository {
	return &FailoverCursorRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCursorRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary cursor repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

// shouldProbe reports whether the cooldown since the last failure has passed.
func (r *FailoverCursorRepository) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryProbeInterval
}

func (r *FailoverCursorRepository) GetCursor(ctx context.Context, collection string) (*Cursor, error) {
	if !r.isDown.Load() {
		cursor, err := r.primary.GetCursor(ctx, collection)
		if err == nil {
			return cursor, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		cursor, err := r.primary.GetCursor(ctx, collection)
		if err == nil {
			r.isDown.Store(false)
			return cursor, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.GetCursor(ctx, collection)
}

func (r *FailoverCursorRepository) SetCursor(ctx context.Context, cursor *Cursor) error {
	if !r.isDown.Load() {
		err := r.primary.SetCursor(ctx, cursor)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetCursor(ctx, cursor)
}

func (r *FailoverCursorRepository) ClearCursor(ctx context.Context, collection string) error {
	if !r.isDown.Load() {
		err := r.primary.ClearCursor(ctx, collection)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.ClearCursor(ctx, collection)
}
