package denylist

import (
	"context"
	"sync"
	"time"

	"contractflow/internal/domain"
)

// Memory keeps revoked token ids in process. Entries are dropped once the
// token would have expired anyway.
type Memory struct {
	mu      sync.Mutex
	now     func() time.Time
	entries map[string]time.Time
}

func NewMemory(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		now:     now,
		entries: make(map[string]time.Time),
	}
}

func (m *Memory) Revoke(_ context.Context, tokenID string, until time.Time) error {
	if m == nil || tokenID == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if !until.After(now) {
		return nil
	}
	m.gc(now)
	m.entries[tokenID] = until
	return nil
}

func (m *Memory) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if m == nil {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	until, ok := m.entries[tokenID]
	if !ok {
		return false, nil
	}
	if !m.now().Before(until) {
		delete(m.entries, tokenID)
		return false, nil
	}
	return true, nil
}

func (m *Memory) gc(now time.Time) {
	for id, until := range m.entries {
		if !now.Before(until) {
			delete(m.entries, id)
		}
	}
}

var _ domain.TokenDenylist = (*Memory)(nil)
