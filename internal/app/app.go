package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/config"
	"github.com/assetverse/assetverse/internal/domain"
	gwhttp "github.com/assetverse/assetverse/internal/handler/http"
	"github.com/assetverse/assetverse/internal/identity"
	"github.com/assetverse/assetverse/internal/media"
	"github.com/assetverse/assetverse/internal/payment"
	paymentmock "github.com/assetverse/assetverse/internal/payment/mock"
	"github.com/assetverse/assetverse/internal/request"
	"github.com/assetverse/assetverse/internal/session"
	"github.com/assetverse/assetverse/pkg/health"
	"github.com/assetverse/assetverse/pkg/httpclient"
	"github.com/assetverse/assetverse/pkg/tracing"
)

// App wires together all dependencies and runs the session gateway.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	httpServer     *http.Server
	sessions       *session.Manager
	tracerShutdown func(context.Context) error
}

// NewApp creates a new application instance. The gateway owns no database;
// all state is in-memory sessions fronting the remote asset backend.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize OpenTelemetry tracing.
	tracerShutdown, err := tracing.InitTracer(ctx, tracing.Config{
		ServiceName:    "assetverse",
		ServiceVersion: "0.1.0",
		Environment:    cfg.Environment,
		OTLPEndpoint:   cfg.OTELEndpoint,
		SampleRate:     cfg.OTELSampleRate,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	// Identity provider and image host share a plain retrying client; the
	// asset backend gets its own circuit-breaker transport.
	outbound := httpclient.New(httpclient.Config{
		Timeout:      cfg.BackendTimeout,
		MaxRetries:   3,
		RetryWaitMin: time.Second,
		RetryWaitMax: 5 * time.Second,
	})

	identityClient := identity.NewClient(identity.Config{
		BaseURL:  cfg.IdentityBaseURL,
		TokenURL: cfg.IdentityTokenURL,
		APIKey:   cfg.IdentityAPIKey,
	}, outbound)

	backendClient := backend.NewClient(backend.Config{
		BaseURL: cfg.BackendBaseURL,
		HTTP: httpclient.Config{
			Timeout:      cfg.BackendTimeout,
			MaxRetries:   3,
			RetryWaitMin: time.Second,
			RetryWaitMax: 5 * time.Second,
		},
	}, logger)

	uploader := media.NewUploader(media.Config{
		UploadURL: cfg.ImageHostURL,
		APIKey:    cfg.ImageHostAPIKey,
	}, outbound)

	sessions := session.NewManager(identityClient, profileService{backendClient}, cfg.SessionTTL, logger)
	requests := request.NewCache(backendClient, logger)
	// A torn-down session takes its viewer's request projection with it,
	// optimistic entries included.
	sessions.OnTeardown(requests.Drop)

	var provider payment.Provider = payment.NewBackendProvider(backendClient)
	if cfg.PaymentProvider == "mock" {
		provider = paymentmock.NewProvider()
	}
	payments := payment.NewService(provider, backendClient, logger)

	// Health checks: the gateway is ready when its upstreams resolve.
	healthHandler := health.NewHandler()
	healthHandler.RegisterNonCritical("asset-backend", reachable(cfg.BackendBaseURL))
	healthHandler.RegisterNonCritical("identity-provider", reachable(cfg.IdentityBaseURL))

	router := gwhttp.NewRouter(gwhttp.Deps{
		Config:   cfg,
		Manager:  sessions,
		Backend:  backendClient,
		Uploader: uploader,
		Requests: requests,
		Payments: payments,
		Health:   healthHandler,
		Logger:   logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:            cfg,
		logger:         logger,
		httpServer:     httpServer,
		sessions:       sessions,
		tracerShutdown: tracerShutdown,
	}, nil
}

// profileService adapts the asset backend's user endpoints to the session
// store's profile vocabulary.
type profileService struct {
	client *backend.Client
}

func (p profileService) FetchProfile(ctx context.Context, email string) (*domain.Profile, error) {
	return p.client.GetUser(ctx, email)
}

func (p profileService) CreateProfile(ctx context.Context, profile domain.Profile) error {
	return p.client.CreateUser(ctx, profile)
}

// reachable builds a TCP dial probe for an upstream base URL.
func reachable(baseURL string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		u, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("parse upstream URL: %w", err)
		}
		host := u.Host
		if u.Port() == "" {
			host = net.JoinHostPort(u.Hostname(), defaultPort(u.Scheme))
		}
		d := net.Dialer{Timeout: 2 * time.Second}
		conn, err := d.DialContext(ctx, "tcp", host)
		if err != nil {
			return fmt.Errorf("upstream unreachable: %w", err)
		}
		_ = conn.Close()
		return nil
	}
}

func defaultPort(scheme string) string {
	if scheme == "https" {
		return "443"
	}
	return "80"
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the gateway in order:
// 1. HTTP server (drain in-flight requests)
// 2. Session manager (stop reconcile loops)
// 3. Tracer (flush pending spans from drained requests)
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	a.sessions.Close()

	if a.tracerShutdown != nil {
		tracerCtx, tracerCancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer tracerCancel()
		if err := a.tracerShutdown(tracerCtx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
