// Package adapthttp implements the HTTP adapter for the application.
package adapthttp

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"librarycat/internal/app"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"login", "signup", "dashboard", "view_books", "search"}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth    *app.AuthService
	catalog *app.CatalogService
	sso     SSOProvider
	pages   map[string]*template.Template
	log     zerolog.Logger

	secureCookies bool
}

// Option configures a Server.
type Option func(*Server)

// WithSSO enables the single sign-on entry points.
func WithSSO(p SSOProvider) Option {
	return func(s *Server) { s.sso = p }
}

// WithInsecureCookies drops the Secure attribute from cookies, for plain
// HTTP development setups.
func WithInsecureCookies() Option {
	return func(s *Server) { s.secureCookies = false }
}

// WithLogger sets the request logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// New creates a Server wired to the given application services.
func New(auth *app.AuthService, catalog *app.CatalogService, opts ...Option) *Server {
	s := &Server{
		auth:          auth,
		catalog:       catalog,
		pages:         make(map[string]*template.Template, len(pageNames)),
		log:           log.Logger,
		secureCookies: true,
	}
	for _, name := range pageNames {
		s.pages[name] = template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html"))
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := httprouter.New()
	r.RedirectTrailingSlash = true

	r.GET("/api/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.GET("/", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.Redirect(w, r, "/login", http.StatusFound)
	})
	r.GET("/signup", s.handleSignupForm)
	r.POST("/signup", s.handleSignup)
	r.GET("/login", s.handleLoginForm)
	r.POST("/login", s.handleLogin)
	r.GET("/logout", s.handleLogout)
	r.POST("/logout", s.handleLogout)

	r.GET("/auth/sso/login", s.handleSSOLogin)
	r.GET("/auth/sso/callback", s.handleSSOCallback)

	r.GET("/dashboard", s.protected(s.handleDashboard))
	r.GET("/view_books", s.protected(s.handleViewBooks))
	r.GET("/search", s.protected(s.handleSearch))
	r.POST("/search", s.protected(s.handleSearch))
	r.POST("/add_book", s.protected(s.handleAddBook))
	r.POST("/delete_book/:id", withBookID(s.protected(s.handleDeleteBook)))

	return s.loggingMiddleware(withNoCache(r))
}
