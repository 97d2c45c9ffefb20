package payment

import "context"

// CheckoutInput holds the parameters for creating a hosted checkout session.
type CheckoutInput struct {
	PackageID   string
	PackageName string
	HREmail     string
	Price       float64
}

// CheckoutSession is a hosted checkout the browser gets redirected to.
type CheckoutSession struct {
	URL string
}

// Provider defines the interface for checkout integrations.
type Provider interface {
	// Name returns the provider name (e.g., "mock", "backend").
	Name() string

	// CreateCheckoutSession creates a hosted checkout session for a
	// package purchase.
	CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*CheckoutSession, error)
}
