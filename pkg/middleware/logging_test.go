package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogging_PropagatesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	mw := RequestLogging(l)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets", nil)
	r.Header.Set("X-Correlation-ID", "test-corr-123")

	mw(okHandler()).ServeHTTP(rec, r)

	assert.Equal(t, "test-corr-123", rec.Header().Get("X-Correlation-ID"))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "test-corr-123", entry["correlation_id"])
	assert.Equal(t, float64(http.StatusOK), entry["status"])
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	mw := RequestLogging(l)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets", nil)

	mw(okHandler()).ServeHTTP(rec, r)

	assert.NotEmpty(t, rec.Header().Get("X-Correlation-ID"))
}

func TestRequestLogging_RecordsErrorStatus(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	mw := RequestLogging(l)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets/missing", nil)

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})).ServeHTTP(rec, r)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
}

func TestRecovery_ConvertsPanicTo500(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewJSONHandler(&buf, nil))
	mw := Recovery(l)

	rec := httptest.NewRecorder()
	r := httptest.NewRequest("GET", "/api/v1/assets", nil)

	mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})).ServeHTTP(rec, r)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, buf.String(), "panic recovered")
}
