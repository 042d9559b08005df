package registry

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process [Registry]. It backs tests, the example server and
// single-node development setups; it has no native TTL, so expired records
// linger until DeleteExpired runs.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]Record
	slots    map[string]string

	fail error
}

// NewMemory returns an empty registry.
func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]Record),
		slots:    make(map[string]string),
	}
}

// SetFailure makes every subsequent call fail with ErrUnavailable until it
// is called again with nil.
func (m *Memory) SetFailure(err error) {
	m.mu.Lock()
	m.fail = err
	m.mu.Unlock()
}

func (m *Memory) failed() error {
	if m.fail != nil {
		return wrapUnavailable(m.fail)
	}
	return nil
}

// ReplaceSlot implements [Registry].
func (m *Memory) ReplaceSlot(ctx context.Context, rec Record) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed(); err != nil {
		return nil, err
	}

	key := slotKey(rec.UserID, rec.Platform)
	var prev *Record
	if oldID, ok := m.slots[key]; ok {
		if old, ok := m.sessions[oldID]; ok {
			prev = &old
			delete(m.sessions, oldID)
		}
	}

	m.sessions[rec.SessionID] = rec
	m.slots[key] = rec.SessionID
	return prev, nil
}

// FindBySessionID implements [Registry].
func (m *Memory) FindBySessionID(ctx context.Context, sessionID string) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed(); err != nil {
		return nil, err
	}

	rec, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

// FindByUserID implements [Registry].
func (m *Memory) FindByUserID(ctx context.Context, userID string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapUnavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed(); err != nil {
		return nil, err
	}

	out := make([]Record, 0, 2)
	for _, rec := range m.sessions {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Touch implements [Registry].
func (m *Memory) Touch(ctx context.Context, sessionID string, at, expiresAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return wrapUnavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed(); err != nil {
		return err
	}

	rec, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	rec.LastActivityAt = at
	if !expiresAt.IsZero() {
		rec.ExpiresAt = expiresAt
	}
	m.sessions[sessionID] = rec
	return nil
}

// Delete implements [Registry].
func (m *Memory) Delete(ctx context.Context, sessionID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, wrapUnavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed(); err != nil {
		return false, err
	}
	return m.deleteLocked(sessionID), nil
}

// DeleteMany implements [Registry].
func (m *Memory) DeleteMany(ctx context.Context, sessionIDs []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, wrapUnavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed(); err != nil {
		return 0, err
	}

	removed := 0
	for _, id := range sessionIDs {
		if m.deleteLocked(id) {
			removed++
		}
	}
	return removed, nil
}

// DeleteExpired implements [Registry].
func (m *Memory) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, wrapUnavailable(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failed(); err != nil {
		return 0, err
	}

	removed := 0
	for id, rec := range m.sessions {
		if rec.ExpiresAt.Before(now) {
			m.deleteLocked(id)
			removed++
		}
	}
	return removed, nil
}

// CountActive implements [Registry].
func (m *Memory) CountActive(ctx context.Context, userID string, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, wrapUnavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failed(); err != nil {
		return 0, err
	}

	count := 0
	for _, rec := range m.sessions {
		if rec.UserID == userID && rec.ExpiresAt.After(now) {
			count++
		}
	}
	return count, nil
}

// Ping implements [Registry].
func (m *Memory) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return wrapUnavailable(err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.failed()
}

// Len returns the number of stored records, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *Memory) deleteLocked(sessionID string) bool {
	rec, ok := m.sessions[sessionID]
	if !ok {
		return false
	}
	delete(m.sessions, sessionID)
	key := slotKey(rec.UserID, rec.Platform)
	if m.slots[key] == sessionID {
		delete(m.slots, key)
	}
	return true
}
