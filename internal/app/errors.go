package app

import "errors"

var (
	// ErrInvalidCredentials is returned for any credential mismatch.
	// The message is shown to end users and must not reveal whether the
	// username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	ErrMissingFields     = errors.New("username, password, and role are required")
	ErrInvalidRole       = errors.New("role must be doctor or police")
	ErrInvalidAttributes = errors.New("attributes must be a JSON object")

	ErrInvalidJSON      = errors.New("request must be JSON")
	ErrMissingVehicleID = errors.New("missing vehicle_id")
	ErrEmptyPayload     = errors.New("missing payload data")
)
