package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xxxsen/docscan/internal/model"
)

type Manager struct {
	cache    *expirable.LRU[string, *Session]
	defaults model.DocumentListParams
}

func NewManager(size int, ttl time.Duration, perPage int) *Manager {
	defaults := model.DefaultListParams()
	if perPage > 0 && perPage <= model.MaxPerPage {
		defaults.PerPage = perPage
	}
	return &Manager{
		cache:    expirable.NewLRU[string, *Session](size, nil, ttl),
		defaults: defaults,
	}
}

func (m *Manager) Create(userID string) *Session {
	s := newSession(uuid.NewString(), userID, m.defaults)
	m.cache.Add(s.ID, s)
	return s
}

// Get returns the session only when it belongs to userID.
func (m *Manager) Get(id, userID string) (*Session, bool) {
	s, ok := m.cache.Get(id)
	if !ok || s.UserID != userID {
		return nil, false
	}
	return s, true
}

// Attach returns the live session for id, recreating it with default state
// when it has expired or was evicted.
func (m *Manager) Attach(id, userID string) *Session {
	if id == "" {
		return newSession("", userID, m.defaults)
	}
	if s, ok := m.Get(id, userID); ok {
		return s
	}
	if s, ok := m.cache.Peek(id); ok && s.UserID != userID {
		return newSession("", userID, m.defaults)
	}
	s := newSession(id, userID, m.defaults)
	m.cache.Add(id, s)
	return s
}

func (m *Manager) Remove(id string) {
	m.cache.Remove(id)
}

func (m *Manager) Len() int {
	return m.cache.Len()
}
