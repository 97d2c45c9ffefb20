package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestCORS_WildcardInDevelopment(t *testing.T) {
	mw := CORS(DefaultCORSConfig())

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets", nil)
	r.Header.Set("Origin", "https://anywhere.example")

	mw(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_ExplicitOriginInProduction(t *testing.T) {
	mw := CORS(CORSConfig{
		AllowedOrigins:   []string{"https://app.assetverse.example"},
		Environment:      "production",
		AllowCredentials: true,
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets", nil)
	r.Header.Set("Origin", "https://app.assetverse.example")

	mw(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, "https://app.assetverse.example", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_RejectsUnknownOriginInProduction(t *testing.T) {
	mw := CORS(CORSConfig{
		AllowedOrigins: []string{"https://app.assetverse.example"},
		Environment:    "production",
	})

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets", nil)
	r.Header.Set("Origin", "https://evil.example")

	mw(okHandler()).ServeHTTP(rec, r)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	mw := CORS(DefaultCORSConfig())

	called := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true })

	rec := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodOptions, "/api/v1/requests", nil)

	mw(next).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, called)
}
