package media

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/pkg/httpclient"
)

func newTestUploader(t *testing.T, handler http.Handler) *Uploader {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cfg.Timeout = 2 * time.Second

	return NewUploader(Config{UploadURL: srv.URL, APIKey: "img-key"}, httpclient.New(cfg))
}

func TestUploader_Upload(t *testing.T) {
	u := newTestUploader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "img-key", r.URL.Query().Get("key"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer func() { _ = file.Close() }()
		assert.Equal(t, "logo.png", header.Filename)

		_, _ = w.Write([]byte(`{"data":{"url":"https://i.ibb.example/abc/logo.png","display_url":"https://i.ibb.example/abc/logo.png"},"success":true,"status":200}`))
	}))

	url, err := u.Upload(context.Background(), "logo.png", strings.NewReader("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "https://i.ibb.example/abc/logo.png", url)
}

func TestUploader_HostRejection(t *testing.T) {
	u := newTestUploader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid API key","code":100}}`))
	}))

	_, err := u.Upload(context.Background(), "logo.png", strings.NewReader("png-bytes"))
	require.Error(t, err)
}

func TestUploader_UnsuccessfulEnvelope(t *testing.T) {
	u := newTestUploader(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"success":false,"status":400}`))
	}))

	_, err := u.Upload(context.Background(), "logo.png", strings.NewReader("png-bytes"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rejected upload")
}
