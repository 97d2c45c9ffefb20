package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/config"
	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/guard"
	"github.com/assetverse/assetverse/internal/media"
	"github.com/assetverse/assetverse/internal/payment"
	"github.com/assetverse/assetverse/internal/request"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/pkg/health"
	"github.com/assetverse/assetverse/pkg/middleware"
)

// Deps bundles everything the router wires together.
type Deps struct {
	Config   *config.Config
	Manager  *session.Manager
	Backend  *backend.Client
	Uploader *media.Uploader
	Requests *request.Cache
	Payments *payment.Service
	Health   *health.Handler
	Logger   *slog.Logger
}

// NewRouter creates a chi router with all gateway routes registered.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	cfg := d.Config
	logger := d.Logger

	// Global middleware stack (applied in order).
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   cfg.AllowedOrigins,
		ExposedHeaders:   []string{"X-Correlation-ID"},
		AllowCredentials: true,
		Environment:      cfg.Environment,
	}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("assetverse"))
	r.Use(middleware.Tracing("assetverse"))
	r.Use(middleware.RequestLogger(logger))
	r.Use(SessionCookie(d.Manager, cfg.SessionCookieName))

	// Health check endpoints (no auth required).
	r.Get("/health/live", d.Health.LivenessHandler())
	r.Get("/health/ready", d.Health.ReadinessHandler())
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	cookies := cookieWriter{
		name:   cfg.SessionCookieName,
		ttl:    cfg.SessionTTL,
		secure: cfg.Environment != "development",
	}

	authHandler := NewAuthHandler(d.Manager, d.Uploader, cookies, logger)
	sessionHandler := NewSessionHandler(d.Uploader, logger)
	assetHandler := NewAssetHandler(d.Backend, d.Uploader, logger)
	requestHandler := NewRequestHandler(d.Requests, logger)
	employeeHandler := NewEmployeeHandler(d.Backend, logger)
	packageHandler := NewPackageHandler(d.Backend, d.Payments, logger)
	dashboardHandler := NewDashboardHandler(logger)

	// Auth endpoints: rate limited per IP, open to anonymous browsers.
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.AuthRateLimitRPS, cfg.AuthRateLimitBurst, logger))
		r.Use(ContentTypeJSON)

		r.Post("/register/hr", authHandler.RegisterHR)
		r.Post("/register/employee", authHandler.RegisterEmployee)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
	})

	// Session snapshot: anonymous requests get an unauthenticated snapshot.
	r.Get("/api/v1/session", sessionHandler.Get)

	// Pricing is public; the packages page renders before registration.
	r.Route("/api/v1/packages", func(r chi.Router) {
		r.Get("/", packageHandler.List)
		r.Get("/{id}", packageHandler.Get)
	})

	// Routes for any signed-in user with a profile.
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(guard.RequireSession(storeFrom))

		r.Put("/api/v1/profile", sessionHandler.UpdateProfile)
		r.Get("/api/v1/assets", assetHandler.List)
		r.Get("/api/v1/requests", requestHandler.List)
	})

	// HR-only routes.
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(guard.RequireRole(storeFrom, domain.RoleHR))

		r.Post("/api/v1/assets", assetHandler.Create)
		r.Patch("/api/v1/assets/{id}", assetHandler.Update)
		r.Delete("/api/v1/assets/{id}", assetHandler.Delete)

		r.Patch("/api/v1/requests/{id}/approve", requestHandler.Approve)
		r.Patch("/api/v1/requests/{id}/reject", requestHandler.Reject)

		r.Get("/api/v1/my-employees", employeeHandler.MyEmployees)
		r.Patch("/api/v1/remove-employee", employeeHandler.Remove)
		r.Patch("/api/v1/direct-assign", employeeHandler.DirectAssign)

		r.Post("/api/v1/payments/checkout-session", packageHandler.Checkout)
	})

	// Employee-only routes.
	r.Group(func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(guard.RequireRole(storeFrom, domain.RoleEmployee))

		r.Post("/api/v1/requests", requestHandler.Submit)
		r.Get("/api/v1/affiliations", employeeHandler.Affiliations)
		r.Get("/api/v1/my-team", employeeHandler.MyTeam)
		r.Get("/api/v1/assigned-assets", employeeHandler.AssignedAssets)
	})

	// Page-style dashboard routes: guards redirect instead of returning JSON.
	r.Group(func(r chi.Router) {
		r.Use(guard.PresencePages(storeFrom))
		r.Get("/dashboard", dashboardHandler.Root)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RolePages(storeFrom, domain.RoleHR))
		r.Get("/dashboard/hr", dashboardHandler.HR)
	})
	r.Group(func(r chi.Router) {
		r.Use(guard.RolePages(storeFrom, domain.RoleEmployee))
		r.Get("/dashboard/employee", dashboardHandler.Employee)
	})

	return r
}
