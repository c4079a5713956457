package app

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"fleetwatch/pkg/auth"
	"fleetwatch/pkg/domain"
	"fleetwatch/pkg/store"
)

// DashboardLimit caps how many recent readings the dashboard shows.
const DashboardLimit = 50

// Config holds runtime configuration for the core application.
type Config struct {
	Store       store.Store
	Sessions    store.SessionStore
	SessionTTL  time.Duration
	RememberTTL time.Duration
}

// App wires storage and session management behind the spec'd operations.
type App struct {
	store       store.Store
	sessions    store.SessionStore
	sessionTTL  time.Duration
	rememberTTL time.Duration
}

// New constructs the application core.
func New(cfg Config) (*App, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if cfg.RememberTTL == 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}
	return &App{
		store:       cfg.Store,
		sessions:    cfg.Sessions,
		sessionTTL:  cfg.SessionTTL,
		rememberTTL: cfg.RememberTTL,
	}, nil
}

// Register creates a new account. Attributes, when provided, must parse to a
// JSON object; the blob is stored verbatim and never read back for
// authorization.
func (a *App) Register(username, password, role, attributesJSON string) (domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" || strings.TrimSpace(role) == "" {
		return domain.User{}, ErrMissingFields
	}
	parsedRole, ok := domain.ParseRole(role)
	if !ok {
		return domain.User{}, ErrInvalidRole
	}
	var attributes json.RawMessage
	if strings.TrimSpace(attributesJSON) != "" {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal([]byte(attributesJSON), &obj); err != nil || obj == nil {
			return domain.User{}, ErrInvalidAttributes
		}
		attributes = json.RawMessage(attributesJSON)
	}
	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	user, err := a.store.CreateUser(domain.User{
		Username:     username,
		PasswordHash: passwordHash,
		Role:         parsedRole,
		Attributes:   attributes,
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Login validates credentials and issues a session token. Any mismatch
// yields ErrInvalidCredentials; near-matches never pass.
func (a *App) Login(username, password string, remember bool) (domain.User, string, error) {
	user, ok, err := a.store.GetUserByUsername(strings.TrimSpace(username))
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	ttl := a.sessionTTL
	if remember {
		ttl = a.rememberTTL
	}
	token, err := a.sessions.NewSession(user.ID, ttl)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	return user, token, nil
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a session token to its account.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// IngestReading accepts one posted JSON document, validates its shape, and
// appends a reading. The vehicle_id key is lifted out; every remaining key
// forms the stored payload. Client timestamps are ignored — the store stamps
// the insert with its own clock.
func (a *App) IngestReading(raw []byte) (int64, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil || doc == nil {
		return 0, ErrInvalidJSON
	}
	var vehicleID string
	if rawID, ok := doc["vehicle_id"]; ok {
		_ = json.Unmarshal(rawID, &vehicleID)
	}
	if strings.TrimSpace(vehicleID) == "" {
		return 0, ErrMissingVehicleID
	}
	delete(doc, "vehicle_id")
	if len(doc) == 0 {
		return 0, ErrEmptyPayload
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return 0, fmt.Errorf("encode payload: %w", err)
	}
	id, err := a.store.InsertReading(vehicleID, payload)
	if err != nil {
		return 0, fmt.Errorf("insert reading: %w", err)
	}
	return id, nil
}

// RecentReadings returns the dashboard feed: newest readings first,
// capped at DashboardLimit. No role-based filtering is applied here;
// account attribute blobs are deliberately not consulted.
func (a *App) RecentReadings() ([]domain.Reading, error) {
	return a.store.ListRecentReadings(DashboardLimit)
}

// VehicleLocation is one entry of the latest-per-vehicle feed.
type VehicleLocation struct {
	VehicleID string         `json:"vehicle_id"`
	Payload   map[string]any `json:"payload"`
}

// LatestLocations returns, for each vehicle whose latest reading carries
// both latitude and longitude, that vehicle and its full parsed payload.
// Vehicles lacking either coordinate are silently omitted.
func (a *App) LatestLocations() ([]VehicleLocation, error) {
	readings, err := a.store.ListLatestReadingPerVehicle()
	if err != nil {
		return nil, fmt.Errorf("list latest readings: %w", err)
	}
	locations := make([]VehicleLocation, 0, len(readings))
	for _, r := range readings {
		payload := r.ParsedPayload()
		if _, hasLat := payload["latitude"]; !hasLat {
			continue
		}
		if _, hasLon := payload["longitude"]; !hasLon {
			continue
		}
		locations = append(locations, VehicleLocation{
			VehicleID: r.VehicleID,
			Payload:   payload,
		})
	}
	return locations, nil
}
