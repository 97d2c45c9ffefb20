package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httpclient"
)

// maxImageSize caps uploads at the image host's free-tier limit.
const maxImageSize = 32 << 20

// Config holds the image host endpoint and API key.
type Config struct {
	UploadURL string
	APIKey    string
}

// Uploader pushes images to the external image host and returns display
// URLs. Company logos and asset photos both go through here; the gateway
// never stores image bytes itself.
type Uploader struct {
	cfg  Config
	http *httpclient.Client
}

// NewUploader creates an image host client.
func NewUploader(cfg Config, hc *httpclient.Client) *Uploader {
	return &Uploader{cfg: cfg, http: hc}
}

// uploadResponse is the host's envelope; only the display URL matters.
type uploadResponse struct {
	Data struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// Upload sends one image as multipart form data and returns its URL.
func (u *Uploader) Upload(ctx context.Context, filename string, image io.Reader) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	n, err := io.Copy(part, io.LimitReader(image, maxImageSize+1))
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if n > maxImageSize {
		return "", apperrors.InvalidInput("image exceeds the 32 MB upload limit")
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	endpoint := u.cfg.UploadURL + "?key=" + url.QueryEscape(u.cfg.APIKey)
	resp, err := u.http.Post(ctx, endpoint, writer.FormDataContentType(), &buf)
	if err != nil {
		return "", fmt.Errorf("image host upload: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", httpclient.ParseResponseError(resp, "image host")
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	if !out.Success || out.Data.URL == "" {
		return "", fmt.Errorf("image host rejected upload (status %d)", out.Status)
	}
	return out.Data.URL, nil
}
