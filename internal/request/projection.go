package request

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/domain"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
)

// Backend is the slice of the asset backend the projection drives.
type Backend interface {
	SubmitRequest(ctx context.Context, sub backend.RequestSubmission) error
	ListRequests(ctx context.Context, query backend.RequestQuery) ([]domain.AssetRequest, error)
	ApproveRequest(ctx context.Context, requestID, hrEmail string) error
	RejectRequest(ctx context.Context, requestID, hrEmail string) error
}

// Projection is one viewer's client-side view of their asset requests. It
// blocks resubmission before any network call, appends optimistic pending
// entries on submit, and folds authoritative refetches in without letting a
// terminal status fall back to pending.
type Projection struct {
	backend Backend
	email   string
	logger  *slog.Logger
	nowFunc func() time.Time

	mu       sync.Mutex
	requests []domain.AssetRequest
}

// NewProjection creates a projection for one requester email.
func NewProjection(b Backend, email string, logger *slog.Logger) *Projection {
	return &Projection{
		backend: b,
		email:   email,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Requests returns a copy of the current view.
func (p *Projection) Requests() []domain.AssetRequest {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.AssetRequest, len(p.requests))
	copy(out, p.requests)
	return out
}

// openRequestFor returns the blocking request for an asset, if any.
func (p *Projection) openRequestFor(assetID string) *domain.AssetRequest {
	for i := range p.requests {
		if p.requests[i].AssetID == assetID && p.requests[i].Open() {
			return &p.requests[i]
		}
	}
	return nil
}

// Submit files a request for an asset. An open request for the same asset
// blocks the submission before anything goes over the wire. On success a
// synthesized pending entry with a correlation ID lands in the view
// immediately; the authoritative record arrives with the next refetch.
func (p *Projection) Submit(ctx context.Context, asset domain.Asset, note string) (*domain.AssetRequest, error) {
	p.mu.Lock()
	if existing := p.openRequestFor(asset.ID); existing != nil {
		p.mu.Unlock()
		if existing.RequestStatus == domain.RequestStatusRejected {
			return nil, apperrors.Conflict("this asset cannot be requested again after rejection")
		}
		return nil, apperrors.Conflict("a request for this asset is already " + existing.RequestStatus)
	}
	p.mu.Unlock()

	err := p.backend.SubmitRequest(ctx, backend.RequestSubmission{
		AssetID:        asset.ID,
		RequesterEmail: p.email,
		Note:           note,
	})
	if err != nil {
		return nil, err
	}

	optimistic := domain.AssetRequest{
		CorrelationID:  uuid.New().String(),
		AssetID:        asset.ID,
		AssetName:      asset.ProductName,
		AssetType:      asset.ProductType,
		RequesterEmail: p.email,
		RequestStatus:  domain.RequestStatusPending,
		RequestDate:    p.nowFunc(),
		Note:           note,
	}

	p.mu.Lock()
	p.requests = append(p.requests, optimistic)
	p.mu.Unlock()

	return &optimistic, nil
}

// Refresh refetches the authoritative list and reconciles it into the view.
func (p *Projection) Refresh(ctx context.Context, search, status string) error {
	authoritative, err := p.backend.ListRequests(ctx, backend.RequestQuery{
		Email:  p.email,
		Search: search,
		Status: status,
	})
	if err != nil {
		return err
	}
	p.reconcile(authoritative)
	return nil
}

// reconcile replaces the view with the authoritative list. Optimistic
// entries the server does not know yet survive; a server record replaces an
// optimistic entry with the same (assetID, requesterEmail) join key. A
// terminal local status is never downgraded back to pending.
func (p *Projection) reconcile(authoritative []domain.AssetRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()

	type joinKey struct{ assetID, email string }
	prior := make(map[joinKey]string, len(p.requests))
	for _, r := range p.requests {
		prior[joinKey{r.AssetID, r.RequesterEmail}] = r.RequestStatus
	}

	next := make([]domain.AssetRequest, 0, len(authoritative))
	seen := make(map[joinKey]struct{}, len(authoritative))
	for _, r := range authoritative {
		key := joinKey{r.AssetID, r.RequesterEmail}
		seen[key] = struct{}{}

		if before, ok := prior[key]; ok &&
			r.RequestStatus == domain.RequestStatusPending &&
			before != domain.RequestStatusPending {
			p.logger.Warn("ignoring status downgrade from refetch",
				slog.String("asset_id", r.AssetID),
				slog.String("from", before),
				slog.String("to", r.RequestStatus),
			)
			r.RequestStatus = before
		}
		next = append(next, r)
	}

	// optimistic entries the server has not persisted yet
	for _, r := range p.requests {
		if r.CorrelationID == "" {
			continue
		}
		if _, ok := seen[joinKey{r.AssetID, r.RequesterEmail}]; !ok {
			next = append(next, r)
		}
	}

	p.requests = next
}

// Approve approves a request on the server, then flips the local entry. The
// local view never changes when the server call fails; the server's error
// message travels to the caller untouched.
func (p *Projection) Approve(ctx context.Context, requestID, hrEmail string) error {
	if err := p.backend.ApproveRequest(ctx, requestID, hrEmail); err != nil {
		return err
	}
	p.flip(requestID, domain.RequestStatusApproved)
	return nil
}

// Reject rejects a request on the server, then flips the local entry.
func (p *Projection) Reject(ctx context.Context, requestID, hrEmail string) error {
	if err := p.backend.RejectRequest(ctx, requestID, hrEmail); err != nil {
		return err
	}
	p.flip(requestID, domain.RequestStatusRejected)
	return nil
}

func (p *Projection) flip(requestID, status string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.requests {
		if p.requests[i].ID != requestID {
			continue
		}
		if domain.StatusCanTransition(p.requests[i].RequestStatus, status) {
			p.requests[i].RequestStatus = status
		}
		return
	}
}
