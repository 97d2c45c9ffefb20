package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/domain"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
	"github.com/assetverse/assetverse/pkg/httpclient"
	"github.com/assetverse/assetverse/pkg/logger"
)

// staticAuthorizer hands out a fixed token and records sign-outs.
type staticAuthorizer struct {
	token      string
	tokenErr   error
	signedOut  atomic.Bool
	tokenCalls atomic.Int32
}

func (a *staticAuthorizer) Token(ctx context.Context, forceRefresh bool) (string, error) {
	a.tokenCalls.Add(1)
	return a.token, a.tokenErr
}

func (a *staticAuthorizer) SignOut() { a.signedOut.Store(true) }

func newTestBackend(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	hcCfg := httpclient.DefaultConfig()
	hcCfg.MaxRetries = 0
	hcCfg.Timeout = 2 * time.Second

	return NewClient(Config{BaseURL: srv.URL, HTTP: hcCfg}, logger.New("backend-test", "error"))
}

func authCtx(a Authorizer) context.Context {
	return WithAuthorizer(context.Background(), a)
}

func TestClient_AttachesBearerToken(t *testing.T) {
	var gotAuth string
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]domain.Profile{
			{Email: "emma@corp.example", Role: domain.RoleEmployee, Name: "Emma"},
		})
	}))

	auth := &staticAuthorizer{token: "id-token-1"}
	profile, err := c.GetUser(authCtx(auth), "emma@corp.example")
	require.NoError(t, err)
	assert.Equal(t, "Bearer id-token-1", gotAuth)
	assert.Equal(t, "emma@corp.example", profile.Email)
}

func TestClient_NoAuthorizerMeansNoHeader(t *testing.T) {
	var gotAuth string
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewEncoder(w).Encode([]domain.Package{})
	}))

	_, err := c.ListPackages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, gotAuth)
}

func TestClient_UnauthorizedTearsSessionDown(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
	}))

	auth := &staticAuthorizer{token: "stale"}
	_, err := c.GetUser(authCtx(auth), "emma@corp.example")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnauthorized))
	assert.True(t, auth.signedOut.Load(), "401 must sign the session out")
	assert.Equal(t, int32(1), auth.tokenCalls.Load(), "401 must not be retried")
}

func TestClient_ForbiddenTearsSessionDown(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"message":"not your inventory"}`))
	}))

	auth := &staticAuthorizer{token: "valid-but-wrong-role"}
	err := c.DeleteAsset(authCtx(auth), "asset-1", "other@corp.example")

	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
	assert.True(t, auth.signedOut.Load())
}

func TestClient_GetUser_EmptyArrayIsNotFound(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))

	_, err := c.GetUser(context.Background(), "nobody@corp.example")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestClient_ListAssets_DecodesPageEnvelope(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assetcollection", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "laptop", r.URL.Query().Get("search"))

		_, _ = w.Write([]byte(`{
			"data": [
				{"_id":"a1","productName":"ThinkPad","productType":"Returnable","productQuantity":4,"hrEmail":"hr@corp.example"}
			],
			"pagination": {"currentPage":2,"totalPages":3,"totalItems":25,"hasNext":true,"hasPrev":true}
		}`))
	}))

	page, err := c.ListAssets(context.Background(), AssetQuery{Search: "laptop", Page: 2, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "ThinkPad", page.Items[0].ProductName)
	assert.True(t, page.Items[0].Available())
	assert.Equal(t, 25, page.Pagination.TotalItems)
	assert.True(t, page.Pagination.HasNext)
}

func TestClient_SubmitRequest_SendsSubmissionBody(t *testing.T) {
	var got RequestSubmission
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/asset-requests", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.SubmitRequest(context.Background(), RequestSubmission{
		AssetID:        "a1",
		RequesterEmail: "emma@corp.example",
		Note:           "for onboarding",
	})
	require.NoError(t, err)
	assert.Equal(t, "a1", got.AssetID)
	assert.Equal(t, "emma@corp.example", got.RequesterEmail)
}

func TestClient_ApproveRequest_HitsApprovePath(t *testing.T) {
	var gotPath string
	var gotBody map[string]string
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, c.ApproveRequest(context.Background(), "req-9", "hr@corp.example"))
	assert.Equal(t, "/asset-request/approve/req-9", gotPath)
	assert.Equal(t, "hr@corp.example", gotBody["hrEmail"])
}

func TestClient_LimitExceededMessageSurvivesVerbatim(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Employee limit reached. Upgrade your package to add more employees."}`))
	}))

	err := c.DirectAssign(context.Background(), "hr@corp.example", "emma@corp.example", "a1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrLimitExceeded))

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "Employee limit reached. Upgrade your package to add more employees.", appErr.Message)
}

func TestClient_MyEmployees_DecodesTeamReport(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "hr@corp.example", r.URL.Query().Get("hrEmail"))
		_, _ = w.Write([]byte(`{
			"success": true,
			"employees": [{"employeeEmail":"emma@corp.example","employeeName":"Emma","hrEmail":"hr@corp.example"}],
			"currentEmployees": 1,
			"packageLimit": 5
		}`))
	}))

	report, err := c.MyEmployees(context.Background(), "hr@corp.example")
	require.NoError(t, err)
	assert.Equal(t, 1, report.CurrentEmployees)
	assert.Equal(t, 5, report.PackageLimit)
	require.Len(t, report.Employees, 1)
	assert.Equal(t, "emma@corp.example", report.Employees[0].EmployeeEmail)
}

func TestClient_CreateCheckoutSession_ReturnsHostedURL(t *testing.T) {
	c := newTestBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payment-checkout-session", r.URL.Path)
		_, _ = w.Write([]byte(`{"url":"https://checkout.example/cs_123"}`))
	}))

	url, err := c.CreateCheckoutSession(context.Background(), CheckoutInfo{
		PackageID: "pkg-1",
		HREmail:   "hr@corp.example",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.example/cs_123", url)
}
