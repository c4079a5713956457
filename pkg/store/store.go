package store

import (
	"encoding/json"
	"errors"
	"time"

	"fleetwatch/pkg/domain"
)

// ErrUsernameTaken is returned when a username already exists.
var ErrUsernameTaken = errors.New("username already exists")

// Store defines persistence operations for accounts and telemetry readings.
type Store interface {
	// accounts
	CreateUser(domain.User) (domain.User, error)
	GetUserByUsername(username string) (domain.User, bool, error)
	GetUserByID(id int64) (domain.User, bool, error)

	// readings
	InsertReading(vehicleID string, payload json.RawMessage) (int64, error)
	ListRecentReadings(limit int) ([]domain.Reading, error)
	// ListLatestReadingPerVehicle returns one reading per distinct vehicle:
	// the row with the maximum primary ID for that vehicle. The tie-break is
	// on ID, not timestamp, so concurrent inserts with equal timestamps
	// resolve deterministically.
	ListLatestReadingPerVehicle() ([]domain.Reading, error)
}

// SessionStore persists session tokens server-side.
type SessionStore interface {
	NewSession(userID int64, ttl time.Duration) (string, error)
	GetUserIDByToken(token string) (int64, bool, error)
	DeleteSession(token string) error
}
