package adapthttp

import (
	"log/slog"
	"net/http"

	"mealtracker/internal/app"
	"mealtracker/internal/metrics"
)

// Services are the application services the HTTP adapter drives.
type Services struct {
	Auth      *app.AuthService
	Foods     *app.FoodService
	Templates *app.TemplateService
	Logs      *app.LogService
}

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	auth      *app.AuthService
	foods     *app.FoodService
	templates *app.TemplateService
	logs      *app.LogService
	webDir    string

	log              *slog.Logger
	metrics          *metrics.Metrics
	oidcConfig       OIDCConfig
	trustForwardAuth bool
	secureCookies    bool
	loginLimiter     *ipLimiter
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics instruments every API route and serves /metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithOIDC enables single sign-on.
func WithOIDC(cfg OIDCConfig) Option {
	return func(s *Server) { s.oidcConfig = cfg }
}

// WithForwardAuth trusts the Remote-User header set by a reverse proxy.
func WithForwardAuth(trust bool) Option {
	return func(s *Server) { s.trustForwardAuth = trust }
}

// WithSecureCookies marks session cookies Secure even behind a TLS-terminating proxy.
func WithSecureCookies(secure bool) Option {
	return func(s *Server) { s.secureCookies = secure }
}

// WithLoginRate limits login and registration attempts per client IP.
// Zero disables the limit.
func WithLoginRate(perMinute int) Option {
	return func(s *Server) { s.loginLimiter = newIPLimiter(perMinute) }
}

// New creates a Server wired to the given application services.
func New(svc Services, webDir string, opts ...Option) *Server {
	s := &Server{
		auth:      svc.Auth,
		foods:     svc.Foods,
		templates: svc.Templates,
		logs:      svc.Logs,
		webDir:    webDir,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	public := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, h))
	}
	private := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, s.instrument(pattern, s.authMiddleware(h)))
	}

	public("/api/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	public("/api/auth/register", s.limitLogins(s.handleRegister))
	public("/api/auth/login", s.limitLogins(s.handleLogin))
	public("/api/auth/logout", s.handleLogout)
	public("/api/auth/config", s.handleConfig)
	public("/api/auth/sso/login", s.handleSSOLogin)
	public("/api/auth/sso/callback", s.handleSSOCallback)
	private("/api/auth/me", s.handleMe)

	private("/api/foods", s.handleFoods)
	private("/api/foods/search", s.handleFoodSearch)

	private("/api/meals", s.handleMeals)
	private("/api/meals/{id}", s.handleMeal)

	private("/api/log", s.handleLog)
	private("/api/log/dates", s.handleLogDates)
	private("/api/log/navigation", s.handleLogNavigation)
	private("/api/log/{id}", s.handleLogEntry)

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{"error": "not found"})
	})
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics.Handler())
	}
	mux.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(mux))
}
