package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/assetverse/assetverse/internal/domain"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httpclient"
)

// Config holds backend client configuration.
type Config struct {
	BaseURL string
	HTTP    httpclient.Config
}

// Client is the authenticated transport to the remote asset backend. All
// calls attach the session's bearer token through the request editor; a 401
// or 403 response is never silently retried — it tears the session down and
// surfaces an unauthorized error.
type Client struct {
	baseURL string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewClient builds the backend client with retry, bearer attachment, and a
// circuit breaker.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	hc := httpclient.New(cfg.HTTP, httpclient.WithRequestEditor(bearerEditor))
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig("asset-backend"), logger),
		logger:  logger,
	}
}

// do builds a request against the backend, executes it, and decodes the JSON
// response into out (when non-nil). Non-2xx responses become AppErrors with
// the backend's message preserved verbatim.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("create %s request: %w", method, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("asset backend %s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.teardown(ctx, resp.StatusCode, path)
		return httpclient.ParseResponseError(resp, "asset backend")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return httpclient.ParseResponseError(resp, "asset backend")
	}

	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

// teardown signs the bound session out after an auth rejection. Retrying
// with the same token would only repeat the rejection; the browser has to
// re-authenticate.
func (c *Client) teardown(ctx context.Context, status int, path string) {
	c.logger.WarnContext(ctx, "backend rejected session token, signing out",
		slog.Int("status", status),
		slog.String("path", path),
	)
	if a, ok := authorizerFrom(ctx); ok {
		a.SignOut()
	}
}

// GetUser fetches the profile record for an email. The backend answers with
// an array; an empty one means the account has no profile yet.
func (c *Client) GetUser(ctx context.Context, email string) (*domain.Profile, error) {
	q := url.Values{"email": {email}}
	var users []domain.Profile
	if err := c.do(ctx, http.MethodGet, "/user", q, nil, &users); err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, apperrors.NotFound("user", email)
	}
	return &users[0], nil
}

// CreateUser creates the backend profile record.
func (c *Client) CreateUser(ctx context.Context, profile domain.Profile) error {
	return c.do(ctx, http.MethodPost, "/user", nil, profile, nil)
}

// Pagination mirrors the backend's page envelope.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// AssetPage is one page of the asset catalog.
type AssetPage struct {
	Items      []domain.Asset `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// AssetQuery filters and paginates the asset catalog.
type AssetQuery struct {
	Email  string // restrict to one HR's inventory
	Search string
	Page   int
	Limit  int
}

// ListAssets fetches a catalog page.
func (c *Client) ListAssets(ctx context.Context, query AssetQuery) (*AssetPage, error) {
	q := url.Values{}
	if query.Email != "" {
		q.Set("email", query.Email)
	}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	if query.Page > 0 {
		q.Set("page", strconv.Itoa(query.Page))
	}
	if query.Limit > 0 {
		q.Set("limit", strconv.Itoa(query.Limit))
	}

	var page AssetPage
	if err := c.do(ctx, http.MethodGet, "/assetcollection", q, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// CreateAsset adds an asset to the HR inventory.
func (c *Client) CreateAsset(ctx context.Context, asset domain.Asset) error {
	return c.do(ctx, http.MethodPost, "/assetcollection", nil, asset, nil)
}

// AssetUpdate carries the editable asset fields.
type AssetUpdate struct {
	ProductName     string `json:"productName"`
	ProductQuantity int    `json:"productQuantity"`
	ProductImage    string `json:"productImage,omitempty"`
	HREmail         string `json:"hrEmail"`
}

// UpdateAsset edits an asset. The backend checks ownership against hrEmail.
func (c *Client) UpdateAsset(ctx context.Context, assetID string, update AssetUpdate) error {
	return c.do(ctx, http.MethodPatch, "/assetcollection/"+url.PathEscape(assetID), nil, update, nil)
}

// DeleteAsset removes an asset from the HR inventory.
func (c *Client) DeleteAsset(ctx context.Context, assetID, hrEmail string) error {
	body := map[string]string{"hrEmail": hrEmail}
	return c.do(ctx, http.MethodDelete, "/assetcollection/"+url.PathEscape(assetID), nil, body, nil)
}

// requestList is the backend's envelope for request collections.
type requestList struct {
	Data []domain.AssetRequest `json:"data"`
}

// RequestQuery filters the request list.
type RequestQuery struct {
	Email  string // requester (employee view) or HR (all-requests view)
	Search string
	Status string
}

// ListRequests fetches asset requests. Search and status filtering are
// server-side passthroughs.
func (c *Client) ListRequests(ctx context.Context, query RequestQuery) ([]domain.AssetRequest, error) {
	q := url.Values{"email": {query.Email}}
	if query.Search != "" {
		q.Set("search", query.Search)
	}
	if query.Status != "" {
		q.Set("status", query.Status)
	}

	var list requestList
	if err := c.do(ctx, http.MethodGet, "/asset-requests", q, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// RequestSubmission is the submit payload; the backend fills in the rest
// (asset name, HR routing, dates) from the asset record.
type RequestSubmission struct {
	AssetID        string `json:"assetId"`
	RequesterEmail string `json:"requesterEmail"`
	Note           string `json:"note,omitempty"`
}

// SubmitRequest files a new asset request.
func (c *Client) SubmitRequest(ctx context.Context, sub RequestSubmission) error {
	return c.do(ctx, http.MethodPost, "/asset-requests", nil, sub, nil)
}

// ApproveRequest approves a pending request, assigning the asset.
func (c *Client) ApproveRequest(ctx context.Context, requestID, hrEmail string) error {
	body := map[string]string{"hrEmail": hrEmail}
	return c.do(ctx, http.MethodPatch, "/asset-request/approve/"+url.PathEscape(requestID), nil, body, nil)
}

// RejectRequest rejects a pending request.
func (c *Client) RejectRequest(ctx context.Context, requestID, hrEmail string) error {
	body := map[string]string{"hrEmail": hrEmail}
	return c.do(ctx, http.MethodPatch, "/asset-request/reject/"+url.PathEscape(requestID), nil, body, nil)
}

// AssignedAssets lists the approved requests (assigned assets) for an
// employee across all companies.
func (c *Client) AssignedAssets(ctx context.Context, employeeEmail string) ([]domain.AssetRequest, error) {
	q := url.Values{"employeeEmail": {employeeEmail}}
	var list requestList
	if err := c.do(ctx, http.MethodGet, "/assigned-assets", q, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// TeamReport is the HR team view: members plus the package headroom.
type TeamReport struct {
	Success          bool                 `json:"success"`
	Employees        []domain.Affiliation `json:"employees"`
	CurrentEmployees int                  `json:"currentEmployees"`
	PackageLimit     int                  `json:"packageLimit"`
}

// MyEmployees fetches the HR account's team.
func (c *Client) MyEmployees(ctx context.Context, hrEmail string) (*TeamReport, error) {
	q := url.Values{"hrEmail": {hrEmail}}
	var report TeamReport
	if err := c.do(ctx, http.MethodGet, "/my-employees", q, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// RemoveEmployee detaches an employee from the HR account's company. The
// backend returns their assigned assets as a side effect.
func (c *Client) RemoveEmployee(ctx context.Context, hrEmail, employeeEmail string) error {
	body := map[string]string{"hrEmail": hrEmail, "employeeEmail": employeeEmail}
	return c.do(ctx, http.MethodPatch, "/remove-employee", nil, body, nil)
}

// DirectAssign assigns an asset to an employee without a request.
func (c *Client) DirectAssign(ctx context.Context, hrEmail, employeeEmail, assetID string) error {
	body := map[string]string{
		"hrEmail":       hrEmail,
		"employeeEmail": employeeEmail,
		"assetId":       assetID,
	}
	return c.do(ctx, http.MethodPatch, "/direct-assign", nil, body, nil)
}

// affiliationList is the backend's envelope for affiliation collections.
type affiliationList struct {
	Data []domain.Affiliation `json:"data"`
}

// EmployeeAffiliations lists the companies an employee belongs to.
func (c *Client) EmployeeAffiliations(ctx context.Context, employeeEmail string) ([]domain.Affiliation, error) {
	q := url.Values{"employeeEmail": {employeeEmail}}
	var list affiliationList
	if err := c.do(ctx, http.MethodGet, "/employee-affiliations", q, nil, &list); err != nil {
		return nil, err
	}
	return list.Data, nil
}

// Team is the colleague view for one of an employee's companies.
type Team struct {
	Success           bool             `json:"success"`
	Colleagues        []domain.Profile `json:"colleagues"`
	UpcomingBirthdays []domain.Profile `json:"upcomingBirthdays"`
}

// MyTeam fetches colleagues and upcoming birthdays within one company.
func (c *Client) MyTeam(ctx context.Context, companyName, employeeEmail string) (*Team, error) {
	q := url.Values{"companyName": {companyName}, "employeeEmail": {employeeEmail}}
	var team Team
	if err := c.do(ctx, http.MethodGet, "/my-team", q, nil, &team); err != nil {
		return nil, err
	}
	return &team, nil
}

// ListPackages fetches the HR subscription tiers.
func (c *Client) ListPackages(ctx context.Context) ([]domain.Package, error) {
	var packages []domain.Package
	if err := c.do(ctx, http.MethodGet, "/packages", nil, nil, &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// GetPackage fetches a single subscription tier.
func (c *Client) GetPackage(ctx context.Context, id string) (*domain.Package, error) {
	var pkg domain.Package
	if err := c.do(ctx, http.MethodGet, "/packages/"+url.PathEscape(id), nil, nil, &pkg); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// CheckoutInfo is the payload for creating a hosted checkout session.
type CheckoutInfo struct {
	PackageID string  `json:"packageId"`
	HREmail   string  `json:"hrEmail"`
	Price     float64 `json:"price,omitempty"`
}

// CreateCheckoutSession asks the backend for a hosted checkout URL.
func (c *Client) CreateCheckoutSession(ctx context.Context, info CheckoutInfo) (string, error) {
	var out struct {
		URL string `json:"url"`
	}
	if err := c.do(ctx, http.MethodPost, "/payment-checkout-session", nil, info, &out); err != nil {
		return "", err
	}
	return out.URL, nil
}
