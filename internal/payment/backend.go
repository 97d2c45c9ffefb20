package payment

import (
	"context"

	"github.com/assetverse/assetverse/internal/backend"
)

// BackendProvider creates checkout sessions through the asset backend, which
// in turn talks to the payment processor. The gateway never sees card data.
type BackendProvider struct {
	client *backend.Client
}

// NewBackendProvider wraps the asset backend as a checkout provider.
func NewBackendProvider(client *backend.Client) *BackendProvider {
	return &BackendProvider{client: client}
}

// Name returns the provider name.
func (p *BackendProvider) Name() string {
	return "backend"
}

// CreateCheckoutSession asks the backend for a hosted checkout URL.
func (p *BackendProvider) CreateCheckoutSession(ctx context.Context, input *CheckoutInput) (*CheckoutSession, error) {
	url, err := p.client.CreateCheckoutSession(ctx, backend.CheckoutInfo{
		PackageID: input.PackageID,
		HREmail:   input.HREmail,
		Price:     input.Price,
	})
	if err != nil {
		return nil, err
	}
	return &CheckoutSession{URL: url}, nil
}
