package adapthttp

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"librarycat/internal/app"
	"librarycat/internal/domain"
	"librarycat/internal/logutil"
)

func (s *Server) handleSignupForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.render(w, r, http.StatusOK, "signup", pageData{Title: "Sign up"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	user, err := s.auth.Signup(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	switch {
	case errors.Is(err, domain.ErrDuplicateUsername):
		s.render(w, r, http.StatusConflict, "signup", pageData{
			Title: "Sign up",
			Flash: &flash{Category: flashDanger, Message: "Username already exists. Try a different one."},
		})
		return
	case errors.Is(err, app.ErrPasswordTooLong):
		s.render(w, r, http.StatusBadRequest, "signup", pageData{
			Title: "Sign up",
			Flash: &flash{Category: flashDanger, Message: "Password is too long."},
		})
		return
	case errors.Is(err, app.ErrInvalidSignup):
		s.render(w, r, http.StatusBadRequest, "signup", pageData{
			Title: "Sign up",
			Flash: &flash{Category: flashDanger, Message: "Username and password are required."},
		})
		return
	case err != nil:
		s.internalError(w, r, err)
		return
	}

	logger := logutil.GetOrDefault(r.Context())
	logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user signed up")
	s.redirectWithFlash(w, r, "/login", flashSuccess, "Signup successful! Please log in.")
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	s.render(w, r, http.StatusOK, "login", pageData{Title: "Log in"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	token, err := s.auth.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if errors.Is(err, app.ErrInvalidCredentials) {
		s.render(w, r, http.StatusUnauthorized, "login", pageData{
			Title: "Log in",
			Flash: &flash{Category: flashDanger, Message: "Invalid username or password."},
		})
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	s.replaceSession(w, r, token)
	s.redirectWithFlash(w, r, "/dashboard", flashSuccess, "Login successful!")
}

// replaceSession ends any session the browser already holds and sets the
// cookie for token.
func (s *Server) replaceSession(w http.ResponseWriter, r *http.Request, token string) {
	if old := sessionToken(r); old != "" && old != token {
		if err := s.auth.Logout(r.Context(), old); err != nil {
			logger := logutil.GetOrDefault(r.Context())
			logger.Warn().Err(err).Msg("dropping previous session")
		}
	}
	s.setCookie(w, sessionCookie, token, int(s.auth.SessionTTL().Seconds()))
}

// handleLogout always succeeds from the browser's point of view.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := s.auth.Logout(r.Context(), sessionToken(r)); err != nil {
		logger := logutil.GetOrDefault(r.Context())
		logger.Error().Err(err).Msg("logout")
	}
	s.clearCookie(w, sessionCookie)
	s.redirectWithFlash(w, r, "/login", flashSuccess, "Logged out successfully.")
}

func (s *Server) handleSSOLogin(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.sso == nil {
		http.NotFound(w, r)
		return
	}
	state, err := generateState()
	if err != nil {
		s.internalError(w, r, err)
		return
	}
	s.setCookie(w, stateCookie, state, 300)
	http.Redirect(w, r, s.sso.AuthCodeURL(state), http.StatusFound)
}

func (s *Server) handleSSOCallback(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if s.sso == nil {
		http.NotFound(w, r)
		return
	}

	state, err := r.Cookie(stateCookie)
	if err != nil || state.Value == "" || !app.ConstantTimeCompare(r.URL.Query().Get("state"), state.Value) {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}
	s.clearCookie(w, stateCookie)

	logger := logutil.GetOrDefault(r.Context())
	username, err := s.sso.Authenticate(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		logger.Warn().Err(err).Msg("sso authentication failed")
		s.redirectWithFlash(w, r, "/login", flashDanger, "Single sign-on failed.")
		return
	}

	token, err := s.auth.LoginWithUser(r.Context(), username)
	if errors.Is(err, app.ErrNotSSOAccount) {
		logger.Warn().Str("username", username).Msg("sso login refused for password account")
		s.redirectWithFlash(w, r, "/login", flashDanger, "Single sign-on failed.")
		return
	}
	if errors.Is(err, app.ErrInvalidCredentials) {
		s.redirectWithFlash(w, r, "/login", flashDanger, "Single sign-on failed.")
		return
	}
	if err != nil {
		s.internalError(w, r, err)
		return
	}

	logger.Info().Str("username", username).Msg("sso login")
	s.replaceSession(w, r, token)
	s.redirectWithFlash(w, r, "/dashboard", flashSuccess, "Login successful!")
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
