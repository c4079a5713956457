package store

import (
	"encoding/json"
	"sync"
	"time"

	"fleetwatch/pkg/domain"
)

// MemoryStore keeps accounts and readings in-process. It backs tests and
// mirrors the ID-assignment semantics of the Postgres store.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]domain.User
	byName     map[string]int64
	readings   []domain.Reading
	nextUserID int64
	nextID     int64
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  make(map[int64]domain.User),
		byName: make(map[string]int64),
	}
}

// CreateUser registers an account, enforcing username uniqueness.
func (m *MemoryStore) CreateUser(u domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byName[u.Username]; exists {
		return domain.User{}, ErrUsernameTaken
	}
	m.nextUserID++
	u.ID = m.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = u
	m.byName[u.Username] = u.ID
	return u, nil
}

// GetUserByUsername looks up an account by username.
func (m *MemoryStore) GetUserByUsername(username string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byName[username]
	if !ok {
		return domain.User{}, false, nil
	}
	u, exists := m.users[id]
	return u, exists, nil
}

// GetUserByID returns an account by ID.
func (m *MemoryStore) GetUserByID(id int64) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// InsertReading appends a reading with a monotonic ID and server timestamp.
func (m *MemoryStore) InsertReading(vehicleID string, payload json.RawMessage) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.readings = append(m.readings, domain.Reading{
		ID:         m.nextID,
		VehicleID:  vehicleID,
		RecordedAt: time.Now().UTC(),
		Payload:    append(json.RawMessage(nil), payload...),
	})
	return m.nextID, nil
}

// ListRecentReadings returns up to limit readings, newest first.
func (m *MemoryStore) ListRecentReadings(limit int) ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 {
		return []domain.Reading{}, nil
	}
	res := make([]domain.Reading, 0, limit)
	for i := len(m.readings) - 1; i >= 0 && len(res) < limit; i-- {
		res = append(res, m.readings[i])
	}
	return res, nil
}

// ListLatestReadingPerVehicle returns the max-ID reading per vehicle.
func (m *MemoryStore) ListLatestReadingPerVehicle() ([]domain.Reading, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	latest := make(map[string]domain.Reading)
	for _, r := range m.readings {
		if cur, ok := latest[r.VehicleID]; !ok || r.ID > cur.ID {
			latest[r.VehicleID] = r
		}
	}
	res := make([]domain.Reading, 0, len(latest))
	for _, r := range latest {
		res = append(res, r)
	}
	return res, nil
}

// ReadingCount reports stored readings; used by tests to assert that
// rejected posts leave the store unchanged.
func (m *MemoryStore) ReadingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.readings)
}
