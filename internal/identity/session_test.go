package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// signedToken builds a throwaway HS256 token with the given expiry. Only the
// claims matter; the source never verifies signatures.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"exp": exp.Unix(),
		"sub": "uid-1",
	})
	s, err := tok.SignedString([]byte("test-only"))
	require.NoError(t, err)
	return s
}

func TestTokenSource_ReturnsCachedTokenBeforeExpiry(t *testing.T) {
	var refreshCalls atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))

	ts := newTokenSource(c, signedToken(t, time.Now().Add(time.Hour)), "refresh", time.Hour)

	got, err := ts.Token(context.Background(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, got)
	assert.Equal(t, int32(0), refreshCalls.Load())
}

func TestTokenSource_RefreshesNearExpiry(t *testing.T) {
	fresh := signedToken(t, time.Now().Add(time.Hour))
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(refreshResponse{
			IDToken:      fresh,
			RefreshToken: "new-refresh",
			ExpiresIn:    "3600",
		})
	}))

	stale := signedToken(t, time.Now().Add(10*time.Second)) // inside the skew
	ts := newTokenSource(c, stale, "old-refresh", 10*time.Second)

	got, err := ts.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, fresh, got)

	// next call serves the refreshed token from cache
	again, err := ts.Token(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, fresh, again)
}

func TestTokenSource_ForceRefreshBypassesCache(t *testing.T) {
	var refreshCalls atomic.Int32
	fresh := signedToken(t, time.Now().Add(time.Hour))
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		refreshCalls.Add(1)
		_ = json.NewEncoder(w).Encode(refreshResponse{
			IDToken:   fresh,
			ExpiresIn: "3600",
		})
	}))

	ts := newTokenSource(c, signedToken(t, time.Now().Add(time.Hour)), "refresh", time.Hour)

	_, err := ts.Token(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshCalls.Load())

	// empty refresh_token in the response keeps the old one
	assert.Equal(t, "refresh", ts.refreshToken)
}

func TestTokenSource_ExpiryFallsBackWhenClaimsUnreadable(t *testing.T) {
	ts := &TokenSource{nowFunc: time.Now}
	now := time.Now()

	exp := ts.expiryOf("not-a-jwt", 30*time.Minute)
	assert.WithinDuration(t, now.Add(30*time.Minute), exp, time.Second)
}

func TestWatcher_SubscribeReceivesChanges(t *testing.T) {
	w := NewWatcher()
	defer w.Close()

	ch, cancel := w.Subscribe()
	defer cancel()

	w.Set(&Session{UID: "uid-1", Email: "emma@corp.example"})

	select {
	case got := <-ch:
		require.NotNil(t, got)
		assert.Equal(t, "emma@corp.example", got.Email)
	case <-time.After(time.Second):
		t.Fatal("no notification received")
	}

	// nil session signals sign-out
	w.Set(nil)
	select {
	case got := <-ch:
		assert.Nil(t, got)
	case <-time.After(time.Second):
		t.Fatal("no sign-out notification received")
	}
}

func TestWatcher_CancelStopsNotifications(t *testing.T) {
	w := NewWatcher()
	defer w.Close()

	ch, cancel := w.Subscribe()
	cancel()
	cancel() // idempotent

	_, open := <-ch
	assert.False(t, open)

	// must not panic on closed channel
	w.Set(&Session{UID: "uid-1"})
}

func TestWatcher_CloseDropsSubscribersAndIgnoresSet(t *testing.T) {
	w := NewWatcher()
	ch, _ := w.Subscribe()

	w.Close()
	_, open := <-ch
	assert.False(t, open)

	w.Set(&Session{UID: "uid-1"})
	assert.Nil(t, w.Current())
}
