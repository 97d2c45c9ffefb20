package guard

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/identity"
	"github.com/assetverse/assetverse/internal/session"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
)

// fakeIdentity signs anyone in as the configured session.
type fakeIdentity struct {
	sess *identity.Session
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (*identity.Session, error) {
	return f.sess, nil
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error) {
	return f.sess, nil
}

func (f *fakeIdentity) UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*identity.Session, error) {
	return f.sess, nil
}

// fakeProfiles serves profiles from a fixed map.
type fakeProfiles struct {
	profiles map[string]*domain.Profile
}

func (f *fakeProfiles) FetchProfile(ctx context.Context, email string) (*domain.Profile, error) {
	p, ok := f.profiles[email]
	if !ok {
		return nil, apperrors.NotFound("user", email)
	}
	return p, nil
}

func (f *fakeProfiles) CreateProfile(ctx context.Context, profile domain.Profile) error {
	f.profiles[profile.Email] = &profile
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// signedInStore builds a settled store signed in with the given role, or an
// anonymous one when role is empty.
func signedInStore(t *testing.T, email string, role domain.Role) *session.Store {
	t.Helper()

	profiles := &fakeProfiles{profiles: map[string]*domain.Profile{}}
	if role != "" {
		profiles.profiles[email] = &domain.Profile{Email: email, Role: role, Name: email}
	}
	idp := &fakeIdentity{sess: &identity.Session{UID: "uid-" + email, Email: email}}

	s := session.NewStore(idp, profiles, testLogger())
	t.Cleanup(s.Close)

	if email != "" {
		require.NoError(t, s.SignIn(context.Background(), email, "pw"))
	}
	require.Eventually(t, func() bool {
		snap := s.Snapshot()
		return !snap.Loading && !snap.ProfileLoading
	}, time.Second, 5*time.Millisecond)
	return s
}

func anonymousStore(t *testing.T) *session.Store {
	t.Helper()
	s := session.NewStore(&fakeIdentity{}, &fakeProfiles{profiles: map[string]*domain.Profile{}}, testLogger())
	t.Cleanup(s.Close)
	require.Eventually(t, func() bool { return !s.Snapshot().Loading }, time.Second, 5*time.Millisecond)
	return s
}

func TestEvaluatePresence(t *testing.T) {
	tests := []struct {
		name         string
		snap         session.Snapshot
		fromPath     string
		wantState    PresenceState
		wantAllowed  bool
		wantRedirect string
	}{
		{
			name:      "still loading is checking",
			snap:      session.Snapshot{Loading: true},
			fromPath:  "/dashboard",
			wantState: PresenceChecking,
		},
		{
			name:         "anonymous redirects to login with origin",
			snap:         session.Snapshot{},
			fromPath:     "/dashboard/employee",
			wantState:    PresenceAnonymous,
			wantRedirect: "/login?from=%2Fdashboard%2Femployee",
		},
		{
			name:         "anonymous without path plain login",
			snap:         session.Snapshot{},
			wantState:    PresenceAnonymous,
			wantRedirect: "/login",
		},
		{
			name:        "authenticated allowed",
			snap:        session.Snapshot{Identity: &identity.Session{Email: "emma@corp.example"}},
			fromPath:    "/dashboard",
			wantState:   PresenceAuthenticated,
			wantAllowed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, decision := EvaluatePresence(tt.snap, tt.fromPath)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantRedirect, decision.RedirectTo)
		})
	}
}

func TestEvaluateRole(t *testing.T) {
	hrSnap := session.Snapshot{
		Identity: &identity.Session{Email: "hr@corp.example"},
		Profile:  &domain.Profile{Email: "hr@corp.example", Role: domain.RoleHR},
	}
	employeeSnap := session.Snapshot{
		Identity: &identity.Session{Email: "emma@corp.example"},
		Profile:  &domain.Profile{Email: "emma@corp.example", Role: domain.RoleEmployee},
	}

	tests := []struct {
		name         string
		snap         session.Snapshot
		allowed      []domain.Role
		wantState    RoleState
		wantAllowed  bool
		wantRedirect string
	}{
		{
			name:      "profile still loading is checking",
			snap:      session.Snapshot{Identity: &identity.Session{Email: "x@y.z"}, ProfileLoading: true},
			allowed:   []domain.Role{domain.RoleHR},
			wantState: RoleChecking,
		},
		{
			name:         "no identity goes to login",
			snap:         session.Snapshot{},
			allowed:      []domain.Role{domain.RoleHR},
			wantState:    RoleUnauthenticated,
			wantRedirect: "/login",
		},
		{
			name:         "identity without profile goes to login",
			snap:         session.Snapshot{Identity: &identity.Session{Email: "x@y.z"}},
			allowed:      []domain.Role{domain.RoleHR},
			wantState:    RoleUnauthenticated,
			wantRedirect: "/login",
		},
		{
			name:        "matching role authorized",
			snap:        hrSnap,
			allowed:     []domain.Role{domain.RoleHR},
			wantState:   RoleAuthorized,
			wantAllowed: true,
		},
		{
			name:         "hr on employee page lands on hr dashboard",
			snap:         hrSnap,
			allowed:      []domain.Role{domain.RoleEmployee},
			wantState:    RoleUnauthorized,
			wantRedirect: "/dashboard/hr",
		},
		{
			name:         "employee on hr page lands on employee dashboard",
			snap:         employeeSnap,
			allowed:      []domain.Role{domain.RoleHR},
			wantState:    RoleUnauthorized,
			wantRedirect: "/dashboard/employee",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state, decision := EvaluateRole(tt.snap, tt.allowed...)
			assert.Equal(t, tt.wantState, state)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantRedirect, decision.RedirectTo)
		})
	}
}

func TestLandingPath(t *testing.T) {
	assert.Equal(t, "/dashboard/hr", LandingPath(domain.RoleHR))
	assert.Equal(t, "/dashboard/employee", LandingPath(domain.RoleEmployee))
	assert.Equal(t, "/dashboard", LandingPath(domain.Role("")))
}

func TestWaitSettled_ReturnsOnceProfileCommitted(t *testing.T) {
	s := signedInStore(t, "emma@corp.example", domain.RoleEmployee)

	snap := WaitSettled(context.Background(), s, time.Second)
	assert.False(t, snap.Loading)
	assert.False(t, snap.ProfileLoading)
	require.NotNil(t, snap.Profile)
	assert.Equal(t, domain.RoleEmployee, snap.Profile.Role)
}
