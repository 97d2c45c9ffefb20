package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is an authenticated identity: the provider's view of who the
// browser is. Email is the join key the session store reconciles profiles
// against.
type Session struct {
	UID         string
	Email       string
	DisplayName string
	PhotoURL    string

	tokens *TokenSource
}

// Tokens returns the session's token source.
func (s *Session) Tokens() *TokenSource {
	return s.tokens
}

// refreshSkew is how long before expiry a cached token is considered stale.
const refreshSkew = time.Minute

// TokenSource hands out bearer tokens for a session, refreshing through the
// provider when the cached token nears expiry or a caller forces it.
type TokenSource struct {
	mu           sync.Mutex
	client       *Client
	idToken      string
	refreshToken string
	expiry       time.Time
	nowFunc      func() time.Time
}

func newTokenSource(client *Client, idToken, refreshToken string, expiresIn time.Duration) *TokenSource {
	ts := &TokenSource{
		client:       client,
		idToken:      idToken,
		refreshToken: refreshToken,
		nowFunc:      time.Now,
	}
	ts.expiry = ts.expiryOf(idToken, expiresIn)
	return ts
}

// Token returns a bearer token, refreshing first when forced or when the
// cached token is within the refresh skew of its expiry.
func (ts *TokenSource) Token(ctx context.Context, forceRefresh bool) (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if !forceRefresh && ts.nowFunc().Add(refreshSkew).Before(ts.expiry) {
		return ts.idToken, nil
	}

	idToken, refreshToken, expiresIn, err := ts.client.Refresh(ctx, ts.refreshToken)
	if err != nil {
		return "", fmt.Errorf("refresh token: %w", err)
	}

	ts.idToken = idToken
	if refreshToken != "" {
		ts.refreshToken = refreshToken
	}
	ts.expiry = ts.expiryOf(idToken, expiresIn)
	return ts.idToken, nil
}

// expiryOf reads the expiry from the token's claims without verifying the
// signature (verification is the provider's job; the gateway never holds the
// signing key). Falls back to the provider-reported lifetime when the claims
// are unreadable.
func (ts *TokenSource) expiryOf(idToken string, expiresIn time.Duration) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(idToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	return ts.nowFunc().Add(expiresIn)
}
