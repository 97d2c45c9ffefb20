package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/assetverse/assetverse/pkg/httpclient"
)

// Config holds the identity provider endpoints and API key.
type Config struct {
	// BaseURL is the account API root (signUp, signInWithPassword, update).
	BaseURL string
	// TokenURL is the refresh-token exchange root.
	TokenURL string
	// APIKey authorizes the gateway against the provider.
	APIKey string
}

// Client talks to the external identity provider over its REST token API.
// The provider owns credentials and token signing; this client never
// verifies signatures, it only exchanges and refreshes tokens.
type Client struct {
	cfg  Config
	http *httpclient.Client
}

// NewClient creates an identity provider client.
func NewClient(cfg Config, hc *httpclient.Client) *Client {
	return &Client{cfg: cfg, http: hc}
}

// tokenResponse is the provider's response to signUp/signIn/update calls.
type tokenResponse struct {
	LocalID      string `json:"localId"`
	Email        string `json:"email"`
	DisplayName  string `json:"displayName"`
	PhotoURL     string `json:"photoUrl"`
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
}

// SignUp creates an account with the provider and returns an authenticated
// session for it.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp tokenResponse
	if err := c.post(ctx, c.accountURL("signUp"), body, &resp); err != nil {
		return nil, fmt.Errorf("identity sign up: %w", err)
	}
	return c.sessionFrom(&resp), nil
}

// SignInWithPassword authenticates an existing account.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp tokenResponse
	if err := c.post(ctx, c.accountURL("signInWithPassword"), body, &resp); err != nil {
		return nil, fmt.Errorf("identity sign in: %w", err)
	}
	return c.sessionFrom(&resp), nil
}

// UpdateProfile sets the display name and photo URL on the provider's copy
// of the account and returns the refreshed identity fields.
func (c *Client) UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*Session, error) {
	body := map[string]any{
		"idToken":           idToken,
		"displayName":       displayName,
		"photoUrl":          photoURL,
		"returnSecureToken": true,
	}
	var resp tokenResponse
	if err := c.post(ctx, c.accountURL("update"), body, &resp); err != nil {
		return nil, fmt.Errorf("identity update profile: %w", err)
	}
	return c.sessionFrom(&resp), nil
}

// refreshResponse is the token-exchange response; field names differ from
// the account API.
type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// Refresh exchanges a refresh token for a new ID token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (idToken, newRefreshToken string, expiresIn time.Duration, err error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	endpoint := fmt.Sprintf("%s/token?key=%s", strings.TrimRight(c.cfg.TokenURL, "/"), url.QueryEscape(c.cfg.APIKey))
	resp, err := c.http.Post(ctx, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return "", "", 0, fmt.Errorf("identity token refresh: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", "", 0, parseIdentityError(resp)
	}

	var tr refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", "", 0, fmt.Errorf("decode refresh response: %w", err)
	}
	return tr.IDToken, tr.RefreshToken, parseExpiresIn(tr.ExpiresIn), nil
}

func (c *Client) accountURL(action string) string {
	return fmt.Sprintf("%s/accounts:%s?key=%s", strings.TrimRight(c.cfg.BaseURL, "/"), action, url.QueryEscape(c.cfg.APIKey))
}

func (c *Client) post(ctx context.Context, endpoint string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	resp, err := c.http.Post(ctx, endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return parseIdentityError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) sessionFrom(resp *tokenResponse) *Session {
	s := &Session{
		UID:         resp.LocalID,
		Email:       resp.Email,
		DisplayName: resp.DisplayName,
		PhotoURL:    resp.PhotoURL,
	}
	s.tokens = newTokenSource(c, resp.IDToken, resp.RefreshToken, parseExpiresIn(resp.ExpiresIn))
	return s
}

func parseExpiresIn(s string) time.Duration {
	secs, err := strconv.Atoi(s)
	if err != nil || secs <= 0 {
		return time.Hour
	}
	return time.Duration(secs) * time.Second
}

// identityErrorBody is the provider's error envelope. The machine-readable
// kind lives in the message field, sometimes with a trailing human note
// ("WEAK_PASSWORD : Password should be at least 6 characters").
type identityErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func parseIdentityError(resp *http.Response) error {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("identity provider returned status %d", resp.StatusCode)
	}

	var body identityErrorBody
	if json.Unmarshal(raw, &body) != nil || body.Error.Message == "" {
		return fmt.Errorf("identity provider returned status %d: %s", resp.StatusCode, string(raw))
	}
	return mapIdentityError(body.Error.Message)
}
