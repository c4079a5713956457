package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fleetwatch/internal/app"
	"fleetwatch/internal/ratelimit"
	"fleetwatch/internal/util"
	"fleetwatch/internal/web"
	"fleetwatch/pkg/auth"
	"fleetwatch/pkg/domain"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App     *app.App
	Pages   *web.Renderer
	Cookies *auth.SignedCookieCodec

	// RequireIngestAuth gates POST /api/vehicle_data behind the ingest
	// token. The original deployment left the endpoint open; turning this
	// off restores that behavior for network-allowlisted setups.
	RequireIngestAuth bool
	IngestToken       string

	RememberTTL    time.Duration
	TrustedProxies *util.TrustedProxies

	RedisAddr     string
	RedisPassword string

	LoginRateLimitPerMinute    int
	RegisterRateLimitPerMinute int
	IngestRateLimitPerMinute   int
}

// Server exposes the HTML views and JSON endpoints.
type Server struct {
	app     *app.App
	pages   *web.Renderer
	cookies *auth.SignedCookieCodec
	mux     *http.ServeMux

	requireIngestAuth bool
	ingestToken       string
	rememberTTL       time.Duration
	trustedProxies    *util.TrustedProxies

	loginLimiter    *ratelimit.FixedWindowLimiter
	registerLimiter *ratelimit.FixedWindowLimiter
	ingestLimiter   *ratelimit.FixedWindowLimiter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("app is required")
	}
	if cfg.Pages == nil {
		return nil, fmt.Errorf("page renderer is required")
	}
	if cfg.Cookies == nil {
		return nil, fmt.Errorf("cookie codec is required")
	}
	if cfg.RequireIngestAuth && strings.TrimSpace(cfg.IngestToken) == "" {
		return nil, fmt.Errorf("ingest token is required while ingest auth is on")
	}
	if cfg.RememberTTL == 0 {
		cfg.RememberTTL = 30 * 24 * time.Hour
	}

	newLimiter := func(name string, limit int) (*ratelimit.FixedWindowLimiter, error) {
		if limit <= 0 {
			return nil, nil
		}
		prefix := "fleetwatch:ratelimit:" + name
		limiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, prefix, limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init %s limiter: %w", name, err)
		}
		return limiter, nil
	}
	loginLimiter, err := newLimiter("login", cfg.LoginRateLimitPerMinute)
	if err != nil {
		return nil, err
	}
	registerLimiter, err := newLimiter("register", cfg.RegisterRateLimitPerMinute)
	if err != nil {
		return nil, err
	}
	ingestLimiter, err := newLimiter("ingest", cfg.IngestRateLimitPerMinute)
	if err != nil {
		return nil, err
	}

	s := &Server{
		app:               cfg.App,
		pages:             cfg.Pages,
		cookies:           cfg.Cookies,
		mux:               http.NewServeMux(),
		requireIngestAuth: cfg.RequireIngestAuth,
		ingestToken:       cfg.IngestToken,
		rememberTTL:       cfg.RememberTTL,
		trustedProxies:    cfg.TrustedProxies,
		loginLimiter:      loginLimiter,
		registerLimiter:   registerLimiter,
		ingestLimiter:     ingestLimiter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with middleware applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(s.trustedProxies, util.WithSecurityHeaders(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// pages
	s.mux.HandleFunc("/", s.handleIndex)
	s.mux.HandleFunc("/dashboard", s.handleDashboard)
	s.mux.HandleFunc("/login", s.handleLogin)
	s.mux.HandleFunc("/register", s.handleRegister)
	s.mux.HandleFunc("/logout", s.handleLogout)

	// device API
	s.mux.HandleFunc("/api/vehicle_data", s.handleIngest)
	s.mux.HandleFunc("/api/latest_vehicle_data", s.handleLatestFeed)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest accepts one telemetry document per call.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.requireIngestAuth && !s.ingestAuthorized(r) {
		writeError(w, http.StatusUnauthorized, "missing or invalid ingest token")
		return
	}
	if !s.ingestLimiter.Allow(util.ClientIP(r, s.trustedProxies)) {
		writeError(w, http.StatusTooManyRequests, "too many requests")
		return
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	id, err := s.app.IngestReading(body)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidJSON),
			errors.Is(err, app.ErrMissingVehicleID),
			errors.Is(err, app.ErrEmptyPayload):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			util.LoggerFromContext(r.Context()).Error("save vehicle data", "err", err)
			writeError(w, http.StatusInternalServerError, "failed to save data")
		}
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "Data received successfully",
		"id":      id,
	})
}

func (s *Server) ingestAuthorized(r *http.Request) bool {
	token, ok := bearerToken(r)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.ingestToken)) == 1
}

// handleLatestFeed serves the police-only latest-position feed.
func (s *Server) handleLatestFeed(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := s.sessionUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	switch user.Role {
	case domain.RolePolice:
		// allowed
	case domain.RoleDoctor:
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	default:
		writeError(w, http.StatusForbidden, "unauthorized")
		return
	}
	locations, err := s.app.LatestLocations()
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("latest vehicle data", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locations": locations})
}

// sessionUser resolves the signed session cookie to an account.
func (s *Server) sessionUser(r *http.Request) (domain.User, bool) {
	token, ok := s.sessionToken(r)
	if !ok {
		return domain.User{}, false
	}
	return s.app.UserFromToken(token)
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
