package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/budgetly/budgetly/internal/handler"
	"github.com/budgetly/budgetly/internal/metrics"
	"github.com/budgetly/budgetly/internal/middleware"
	"github.com/budgetly/budgetly/internal/service"
	"github.com/budgetly/budgetly/internal/session"
)

// RateLimit configures the per-IP limit on the credential endpoints.
type RateLimit struct {
	Enabled bool
	RPS     int
	Burst   int
}

// Dependencies are the components the router wires into handlers.
// Health checkers may be nil.
type Dependencies struct {
	Logger  *slog.Logger
	Metrics metrics.Recorder
	// MetricsHandler serves /metrics; nil disables the endpoint.
	MetricsHandler http.Handler

	Budgets   *service.BudgetService
	Users     *service.UserService
	Validator middleware.SessionValidator
	Limiter   middleware.IPRateLimiter
	Cookies   session.CookieConfig

	DB        handler.HealthChecker
	Cache     handler.HealthChecker
	Credstore handler.HealthChecker

	CORS          middleware.CORSConfig
	IsDevelopment bool
	MaxBodySize   int64
	RateLimit     RateLimit
}

// NewRouter configures the chi router with all routes and middleware.
func NewRouter(d Dependencies) *chi.Mux {
	if d.Metrics == nil {
		d.Metrics = metrics.NewNoop()
	}

	h := handler.New()
	healthHandler := handler.NewHealthHandler(d.DB, d.Cache, d.Credstore)
	metricsHandler := handler.NewMetricsHandler(d.MetricsHandler)
	budgetHandler := handler.NewBudgetHandler(d.Budgets, d.Logger)
	userHandler := handler.NewUserHandler(d.Users, d.Cookies, d.Logger)

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Security(middleware.SecurityConfig{IsDevelopment: d.IsDevelopment}))
	r.Use(middleware.CORS(d.CORS))
	r.Use(middleware.MaxBodySize(d.MaxBodySize))

	// Probes and metrics
	r.Get("/healthz", healthHandler.Healthz)
	r.Get("/readyz", healthHandler.Readyz)
	r.Get("/metrics", metricsHandler.Metrics)

	authenticated := middleware.Session(d.Validator, d.Cookies, d.Logger)
	limited := middleware.RateLimitIP(middleware.RateLimitConfig{
		Logger:  d.Logger,
		Limiter: d.Limiter,
		Enabled: d.RateLimit.Enabled,
		Bucket:  "auth",
		RPS:     d.RateLimit.RPS,
		Burst:   d.RateLimit.Burst,
	})

	r.Route("/users", func(r chi.Router) {
		r.With(limited).Post("/register", userHandler.Register)
		r.With(limited).Post("/login", userHandler.Login)
		r.Post("/logout", userHandler.Logout)
		r.Post("/refresh", userHandler.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(authenticated)
			r.Get("/me", userHandler.Me)
			r.Get("/protected", userHandler.Protected)
		})
	})

	r.Route("/budgets", func(r chi.Router) {
		r.Use(authenticated)
		r.Post("/", budgetHandler.Create)
		r.Get("/", budgetHandler.List)
		r.Get("/{id}", budgetHandler.Get)
		r.Put("/{id}", budgetHandler.Update)
		r.Delete("/{id}", budgetHandler.Delete)
		r.Get("/{id}/members", budgetHandler.Members)
	})

	// 404 and 405 handlers
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
