package payment

import (
	"context"
	"log/slog"

	"github.com/assetverse/assetverse/internal/domain"
)

// PackageSource resolves subscription tiers; the asset backend satisfies it.
type PackageSource interface {
	GetPackage(ctx context.Context, id string) (*domain.Package, error)
}

// Service validates a package purchase and creates the checkout session.
type Service struct {
	provider Provider
	packages PackageSource
	logger   *slog.Logger
}

// NewService creates a payment service.
func NewService(provider Provider, packages PackageSource, logger *slog.Logger) *Service {
	return &Service{provider: provider, packages: packages, logger: logger}
}

// Checkout looks up the package (price comes from the backend, never the
// browser) and creates a hosted checkout session for it.
func (s *Service) Checkout(ctx context.Context, packageID, hrEmail string) (*CheckoutSession, error) {
	pkg, err := s.packages.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	session, err := s.provider.CreateCheckoutSession(ctx, &CheckoutInput{
		PackageID:   pkg.ID,
		PackageName: pkg.Name,
		HREmail:     hrEmail,
		Price:       pkg.Price,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "checkout session created",
		slog.String("provider", s.provider.Name()),
		slog.String("package_id", pkg.ID),
		slog.String("hr_email", hrEmail),
	)
	return session, nil
}
