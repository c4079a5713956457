package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"fleetwatch/internal/app"
	"fleetwatch/internal/util"
	"fleetwatch/internal/web"
	"fleetwatch/pkg/store"
)

// readingRow is the dashboard view of one telemetry record.
type readingRow struct {
	ID          int64
	VehicleID   string
	RecordedAt  time.Time
	PayloadText string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.handleDashboard(w, r)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	user, ok := s.sessionUser(r)
	if !ok {
		s.setFlash(w, "info", "Please log in to access this page.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	readings, err := s.app.RecentReadings()
	if err != nil {
		util.LoggerFromContext(r.Context()).Error("load dashboard", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	rows := make([]readingRow, 0, len(readings))
	for _, reading := range readings {
		// Re-encode the parsed payload so display is stable even when the
		// stored text was oddly formatted.
		text, _ := json.Marshal(reading.ParsedPayload())
		rows = append(rows, readingRow{
			ID:          reading.ID,
			VehicleID:   reading.VehicleID,
			RecordedAt:  reading.RecordedAt,
			PayloadText: string(text),
		})
	}
	s.renderPage(w, r, "dashboard", "Dashboard", user.Username, rows)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, r, "login", "Login", "", nil)
	case http.MethodPost:
		if !s.loginLimiter.Allow(util.ClientIP(r, s.trustedProxies)) {
			s.setFlash(w, "warning", "Too many login attempts. Please wait a moment.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			s.setFlash(w, "danger", "Invalid form submission.")
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		username := r.PostFormValue("username")
		password := r.PostFormValue("password")
		remember := r.PostFormValue("remember") != ""

		user, token, err := s.app.Login(username, password, remember)
		if err != nil {
			if errors.Is(err, app.ErrInvalidCredentials) {
				s.setFlash(w, "danger", "Invalid username or password. Please try again.")
			} else {
				util.LoggerFromContext(r.Context()).Error("login", "err", err)
				s.setFlash(w, "danger", "Login failed. Please try again.")
			}
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		s.setSessionCookie(w, token, remember)
		s.setFlash(w, "success", "Welcome back, "+user.Username+"!")
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionUser(r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.renderPage(w, r, "register", "Register", "", nil)
	case http.MethodPost:
		if !s.registerLimiter.Allow(util.ClientIP(r, s.trustedProxies)) {
			s.setFlash(w, "warning", "Too many registration attempts. Please wait a moment.")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		if err := r.ParseForm(); err != nil {
			s.setFlash(w, "danger", "Invalid form submission.")
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		_, err := s.app.Register(
			r.PostFormValue("username"),
			r.PostFormValue("password"),
			r.PostFormValue("role"),
			r.PostFormValue("abe_attributes"),
		)
		if err != nil {
			s.setFlash(w, registerFlashCategory(err), registerFlashMessage(err))
			http.Redirect(w, r, "/register", http.StatusSeeOther)
			return
		}
		s.setFlash(w, "success", "Registration successful! Please login.")
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func registerFlashCategory(err error) string {
	switch {
	case errors.Is(err, app.ErrInvalidRole):
		return "danger"
	case errors.Is(err, app.ErrMissingFields),
		errors.Is(err, app.ErrInvalidAttributes),
		errors.Is(err, store.ErrUsernameTaken):
		return "warning"
	default:
		return "danger"
	}
}

func registerFlashMessage(err error) string {
	switch {
	case errors.Is(err, app.ErrMissingFields):
		return "Username, password, and role are required."
	case errors.Is(err, app.ErrInvalidRole):
		return "Invalid role selected."
	case errors.Is(err, app.ErrInvalidAttributes):
		return "Attributes must be a valid JSON object (e.g., {\"key\": \"value\"})."
	case errors.Is(err, store.ErrUsernameTaken):
		return "Username already exists. Please choose a different one."
	default:
		return "Registration failed. Please try again."
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := s.sessionToken(r)
	if !ok {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	if err := s.app.Logout(token); err != nil {
		util.LoggerFromContext(r.Context()).Error("logout", "err", err)
	}
	s.clearSessionCookie(w)
	s.setFlash(w, "info", "You have been logged out.")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, page, title, username string, data any) {
	pageData := web.PageData{
		Title:    title,
		Username: username,
		Flashes:  s.popFlashes(w, r),
		Data:     data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.Render(w, page, pageData); err != nil {
		util.LoggerFromContext(r.Context()).Error("render page", "page", page, "err", err)
	}
}
