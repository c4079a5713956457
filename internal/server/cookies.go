package server

import (
	"net/http"
	"net/url"
	"strings"

	"fleetwatch/internal/web"
)

const (
	sessionCookieName = "fleetwatch_session"
	flashCookieName   = "fleetwatch_flash"
)

// setSessionCookie stores the signed session token. Without remember the
// cookie is scoped to the browser session; with it, the cookie persists for
// the remember TTL.
func (s *Server) setSessionCookie(w http.ResponseWriter, token string, remember bool) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.cookies.Encode(token),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.MaxAge = int(s.rememberTTL.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionToken reads and verifies the session cookie. A tampered signature
// is treated as no session at all.
func (s *Server) sessionToken(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return s.cookies.Decode(cookie.Value)
}

// setFlash queues a one-shot message for the next rendered page.
func (s *Server) setFlash(w http.ResponseWriter, category, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + "|" + message),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlashes reads and clears any pending flash message.
func (s *Server) popFlashes(w http.ResponseWriter, r *http.Request) []web.Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil || cookie.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:   flashCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	raw, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(raw, "|")
	if !ok || message == "" {
		return nil
	}
	return []web.Flash{{Category: category, Message: message}}
}
