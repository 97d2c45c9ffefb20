package mock

import (
	"context"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/payment"
)

// Provider is a mock checkout provider that always succeeds. It is intended
// for development and testing purposes.
type Provider struct{}

// NewProvider creates a new mock checkout provider.
func NewProvider() *Provider {
	return &Provider{}
}

// Name returns the provider name.
func (p *Provider) Name() string {
	return "mock"
}

// CreateCheckoutSession returns a fake hosted checkout URL.
func (p *Provider) CreateCheckoutSession(_ context.Context, _ *payment.CheckoutInput) (*payment.CheckoutSession, error) {
	return &payment.CheckoutSession{
		URL: "https://checkout.mock.local/cs_" + uuid.New().String(),
	}, nil
}
