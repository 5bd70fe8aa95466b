package repository

import (
	"context"
	"sync"
)

// MemoryCursorRepository is the in-process fallback used when redis is
// unavailable. Cursors held here do not survive a restart, which only costs
// a resumed chain starting from page 1 again.
type MemoryCursorRepository struct {
	mu      sync.RWMutex
	cursors map[string]Cursor
}

func NewMemoryCursorRepository() *MemoryCursorRepository {
	return &MemoryCursorRepository{cursors: make(map[string]Cursor)}
}

func (m *MemoryCursorRepository) GetCursor(_ context.Context, collection string) (*Cursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cursor, ok := m.cursors[collection]
	if !ok {
		return nil, nil
	}
	c := cursor
	return &c, nil
}

func (m *MemoryCursorRepository) SetCursor(_ context.Context, cursor *Cursor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursors[cursor.Collection] = *cursor
	return nil
}

func (m *MemoryCursorRepository) ClearCursor(_ context.Context, collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cursors, collection)
	return nil
}
