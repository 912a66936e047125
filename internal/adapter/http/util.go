package adapthttp

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"

	"librarycat/internal/app"
	"librarycat/internal/domain"
	"librarycat/internal/logutil"
)

const (
	sessionCookie = "session"
	flashCookie   = "flash"
	stateCookie   = "oauth_state"
)

// Flash categories.
const (
	flashSuccess = "success"
	flashDanger  = "danger"
)

type flash struct {
	Category string
	Message  string
}

type pageData struct {
	Title      string
	Username   string
	Flash      *flash
	Books      []domain.Book
	Query      string
	SSOEnabled bool
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	s.setCookie(w, name, "", -1)
}

// setFlash queues a one-shot notice for the next rendered page.
func (s *Server) setFlash(w http.ResponseWriter, category, message string) {
	v := base64.RawURLEncoding.EncodeToString([]byte(category + "\n" + message))
	s.setCookie(w, flashCookie, v, 60)
}

func (s *Server) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	s.clearCookie(w, flashCookie)
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(string(raw), "\n")
	if !ok {
		return nil
	}
	return &flash{Category: category, Message: message}
}

// redirectWithFlash sets a notice and sends the browser to location.
func (s *Server) redirectWithFlash(w http.ResponseWriter, r *http.Request, location, category, message string) {
	s.setFlash(w, category, message)
	http.Redirect(w, r, location, http.StatusFound)
}

// render executes page into a buffer so template errors still produce a
// clean 500. A notice passed in data wins over a queued one.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, data pageData) {
	queued := s.popFlash(w, r)
	if data.Flash == nil {
		data.Flash = queued
	}
	if id, ok := app.IdentityFromContext(r.Context()); ok {
		data.Username = id.Username
	}
	data.SSOEnabled = s.sso != nil

	var buf bytes.Buffer
	if err := s.pages[page].ExecuteTemplate(&buf, "layout", data); err != nil {
		s.internalError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// internalError logs err and answers with a generic failure.
func (s *Server) internalError(w http.ResponseWriter, r *http.Request, err error) {
	logger := logutil.GetOrDefault(r.Context())
	logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	http.Error(w, "internal error", http.StatusInternalServerError)
}
