package repository

import (
	"context"
	"time"
)

// Cursor is the self-chaining pager's persisted progress for one collection.
// A dropped follow-up call truncates the chain silently; the cursor lets the
// next timed trigger resume from the last known page instead of page 1.
type Cursor struct {
	Collection string    `json:"collection"`
	NextPage   int       `json:"next_page"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CursorRepository stores pager cursors.
type CursorRepository interface {
	GetCursor(ctx context.Context, collection string) (*Cursor, error)
	SetCursor(ctx context.Context, cursor *Cursor) error
	ClearCursor(ctx context.Context, collection string) error
}

// DeadLetterSink receives tasks that reached the failed state.
type DeadLetterSink interface {
	PushDeadLetter(ctx context.Context, payload []byte) error
}
