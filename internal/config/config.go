package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/assetverse/assetverse/pkg/config"
)

// Config holds all configuration for the session gateway.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	HTTPPort    int    `env:"HTTP_PORT" envDefault:"8080"`

	// Remote asset backend
	BackendBaseURL string        `env:"BACKEND_BASE_URL"`
	BackendTimeout time.Duration `env:"BACKEND_TIMEOUT" envDefault:"10s"`

	// Identity provider (Firebase-style REST token API)
	IdentityBaseURL  string `env:"IDENTITY_BASE_URL" envDefault:"https://identitytoolkit.googleapis.com/v1"`
	IdentityTokenURL string `env:"IDENTITY_TOKEN_URL" envDefault:"https://securetoken.googleapis.com/v1"`
	IdentityAPIKey   string `env:"IDENTITY_API_KEY"`

	// Image host
	ImageHostURL    string `env:"IMAGE_HOST_URL" envDefault:"https://api.imgbb.com/1/upload"`
	ImageHostAPIKey string `env:"IMAGE_HOST_API_KEY"`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	// Rate limiting (auth endpoints)
	AuthRateLimitRPS   int `env:"AUTH_RATE_LIMIT_RPS" envDefault:"5"`
	AuthRateLimitBurst int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"10"`

	// Session
	SessionCookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"av_session"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"12h"`

	// Payment ("backend" routes checkout through the asset backend; "mock"
	// returns fake checkout URLs for local development)
	PaymentProvider string `env:"PAYMENT_PROVIDER" envDefault:"backend"`

	// Tracing
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load gateway config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants. The gateway cannot run without
// its three external collaborators, so missing credentials fail the boot.
func (c *Config) validate() error {
	if c.BackendBaseURL == "" {
		return fmt.Errorf("BACKEND_BASE_URL is required")
	}
	if c.IdentityAPIKey == "" {
		return fmt.Errorf("IDENTITY_API_KEY is required")
	}
	if c.ImageHostAPIKey == "" {
		return fmt.Errorf("IMAGE_HOST_API_KEY is required")
	}
	if c.Environment != "development" && len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("ALLOWED_ORIGINS must be set in %s environment", c.Environment)
	}
	if c.PaymentProvider != "backend" && c.PaymentProvider != "mock" {
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	return nil
}
