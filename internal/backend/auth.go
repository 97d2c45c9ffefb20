package backend

import (
	"context"
	"net/http"
)

// Authorizer supplies bearer tokens for the browser session a request
// belongs to and tears the session down when the backend rejects them.
// The session store satisfies this.
type Authorizer interface {
	Token(ctx context.Context, forceRefresh bool) (string, error)
	SignOut()
}

type authorizerKey struct{}

// WithAuthorizer binds a session's authorizer to the context. The transport
// reads it back on every attempt, so a retried request carries a fresh token.
func WithAuthorizer(ctx context.Context, a Authorizer) context.Context {
	return context.WithValue(ctx, authorizerKey{}, a)
}

func authorizerFrom(ctx context.Context) (Authorizer, bool) {
	a, ok := ctx.Value(authorizerKey{}).(Authorizer)
	return a, ok
}

// bearerEditor attaches the session's bearer token to an outgoing request.
// Running as a request editor means every retry attempt re-reads the token
// source instead of replaying a token that may have expired while backing off.
func bearerEditor(ctx context.Context, req *http.Request) error {
	a, ok := authorizerFrom(ctx)
	if !ok {
		return nil
	}
	token, err := a.Token(ctx, false)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
