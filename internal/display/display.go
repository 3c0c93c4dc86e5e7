// Package display keeps the single customer-facing screen record: which
// receipt the admin currently wants mirrored onto the lounge display.
package display

import (
	"context"
	"sync"

	"metyme/backend/internal/domain"
)

type Store interface {
	Get(ctx context.Context) (domain.DisplayState, bool, error)
	Set(ctx context.Context, state domain.DisplayState) error
}

// MemoryStore holds the display state in process. Used in tests and when no
// redis is configured; state is lost on restart, which is acceptable for a
// screen that is re-selected every few minutes.
type MemoryStore struct {
	mu    sync.RWMutex
	state domain.DisplayState
	set   bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Get(_ context.Context) (domain.DisplayState, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.set, nil
}

func (m *MemoryStore) Set(_ context.Context, state domain.DisplayState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	m.set = true
	return nil
}
