package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Role is the closed set of account roles. Always construct through
// ParseRole so that role checks stay exhaustive.
type Role string

const (
	RoleDoctor Role = "doctor"
	RolePolice Role = "police"
)

// ParseRole maps free-form input onto the closed role set.
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(RoleDoctor):
		return RoleDoctor, true
	case string(RolePolice):
		return RolePolice, true
	default:
		return "", false
	}
}

// User is a registered dashboard account.
//
// Attributes is an opaque JSON object blob kept verbatim from registration.
// It is stored and returned but never consulted by any authorization
// decision; do not wire it into access-control logic.
type User struct {
	ID           int64           `json:"id"`
	Username     string          `json:"username"`
	PasswordHash string          `json:"-"`
	Role         Role            `json:"role"`
	Attributes   json.RawMessage `json:"attributes,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// Reading is one telemetry record posted by a vehicle.
// RecordedAt is assigned by the server at insertion; client timestamps
// are never trusted. IDs are monotonic in insertion order.
type Reading struct {
	ID         int64           `json:"id"`
	VehicleID  string          `json:"vehicle_id"`
	RecordedAt time.Time       `json:"timestamp_server"`
	Payload    json.RawMessage `json:"payload"`
}

// ParsedPayload decodes the stored payload for display. A payload that
// fails to decode renders as an empty object rather than an error.
func (r Reading) ParsedPayload() map[string]any {
	var out map[string]any
	if err := json.Unmarshal(r.Payload, &out); err != nil || out == nil {
		return map[string]any{}
	}
	return out
}
