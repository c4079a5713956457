package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemorySessionStore is an in-process SessionStore used by tests.
type MemorySessionStore struct {
	mu   sync.RWMutex
	sess map[string]memorySession
}

type memorySession struct {
	userID    int64
	expiresAt time.Time
}

// NewMemorySessionStore initializes an empty session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sess: make(map[string]memorySession)}
}

// NewSession creates a session token bound to a user.
func (m *MemorySessionStore) NewSession(userID int64, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token := uuid.NewString()
	m.sess[token] = memorySession{
		userID:    userID,
		expiresAt: time.Now().Add(ttl),
	}
	return token, nil
}

// GetUserIDByToken resolves a token, honoring expiry.
func (m *MemorySessionStore) GetUserIDByToken(token string) (int64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sess[token]
	if !ok || time.Now().After(s.expiresAt) {
		return 0, false, nil
	}
	return s.userID, true, nil
}

// DeleteSession removes a token mapping.
func (m *MemorySessionStore) DeleteSession(token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sess, token)
	return nil
}
