package storage

import (
	"context"
	"maps"
	"sync"
	"time"

	"shifts-bot/internal/models"
)

// Memory keeps sessions in process memory. Loaded sessions are copies; changes
// are visible to other callers only after Save.
type Memory struct {
	mu       sync.Mutex
	sessions map[int64]models.Session
}

func NewMemory() *Memory {
	return &Memory{sessions: map[int64]models.Session{}}
}

func (m *Memory) Load(_ context.Context, chatID int64) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[chatID]
	if !ok {
		return models.NewSession(chatID), nil
	}
	return clone(s), nil
}

func (m *Memory) Save(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ChatID] = *clone(*s)
	return nil
}

func (m *Memory) DeleteIdle(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(before) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

func clone(s models.Session) *models.Session {
	s.Pending = maps.Clone(s.Pending)
	if s.Pending == nil {
		s.Pending = map[models.ShiftID]models.PendingShift{}
	}
	return &s
}
