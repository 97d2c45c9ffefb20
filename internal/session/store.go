package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/assetverse/assetverse/internal/backend"
	"github.com/assetverse/assetverse/internal/domain"
	"github.com/assetverse/assetverse/internal/identity"
	apperrors "github.com/assetverse/assetverse/pkg/errors"
)

// IdentityProvider is the slice of the identity client the store drives.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*identity.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*identity.Session, error)
	UpdateProfile(ctx context.Context, idToken, displayName, photoURL string) (*identity.Session, error)
}

// ProfileService loads and creates backend profile records by email.
type ProfileService interface {
	FetchProfile(ctx context.Context, email string) (*domain.Profile, error)
	CreateProfile(ctx context.Context, profile domain.Profile) error
}

// Snapshot is the reconciled session state at a point in time. Identity is
// the provider's view, Profile the backend's; both nil means anonymous.
// Loading is true only before the first identity state is known;
// ProfileLoading is true while a profile fetch is in flight.
type Snapshot struct {
	Identity       *identity.Session
	Profile        *domain.Profile
	Loading        bool
	ProfileLoading bool
}

// Authenticated reports whether an identity is present.
func (s Snapshot) Authenticated() bool { return s.Identity != nil }

// Store reconciles one browser session's identity with its backend profile.
// Every identity change triggers exactly one profile refresh, and a profile
// response is committed only if the identity it was fetched for is still
// current (last identity wins).
type Store struct {
	idp      IdentityProvider
	profiles ProfileService
	logger   *slog.Logger

	watcher *identity.Watcher

	mu          sync.Mutex
	snap        Snapshot
	nextSubID   int
	subscribers map[int]chan Snapshot
	closed      bool

	cancelLoop func()
	loopDone   chan struct{}
}

// NewStore creates a store and starts its reconcile loop. The store begins
// in the loading state and settles to anonymous once the initial identity
// state (none) is observed.
func NewStore(idp IdentityProvider, profiles ProfileService, logger *slog.Logger) *Store {
	s := &Store{
		idp:         idp,
		profiles:    profiles,
		logger:      logger,
		watcher:     identity.NewWatcher(),
		snap:        Snapshot{Loading: true},
		subscribers: make(map[int]chan Snapshot),
		loopDone:    make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.cancelLoop = cancel
	events, cancelSub := s.watcher.Subscribe()
	go s.loop(ctx, events, cancelSub)

	// Settle the initial anonymous state through the same path as any
	// later identity change.
	s.watcher.Set(nil)
	return s
}

func (s *Store) loop(ctx context.Context, events <-chan *identity.Session, cancelSub func()) {
	defer close(s.loopDone)
	defer cancelSub()

	for {
		select {
		case <-ctx.Done():
			return
		case sess, ok := <-events:
			if !ok {
				return
			}
			s.onIdentityChange(ctx, sess)
		}
	}
}

// onIdentityChange commits the new identity and kicks off the profile fetch
// for it. A nil identity clears identity and profile in the same mutation. A
// cached profile survives only same-email refreshes (display info updates):
// across accounts it is cleared in the same mutation that commits the new
// identity, so no snapshot ever pairs one account's identity with another's
// profile.
func (s *Store) onIdentityChange(ctx context.Context, sess *identity.Session) {
	s.mu.Lock()
	s.snap.Identity = sess
	s.snap.Loading = false
	if sess == nil {
		s.snap.Profile = nil
		s.snap.ProfileLoading = false
		s.publishLocked()
		s.mu.Unlock()
		return
	}
	if s.snap.Profile != nil && s.snap.Profile.Email != sess.Email {
		s.snap.Profile = nil
	}
	s.snap.ProfileLoading = true
	s.publishLocked()
	s.mu.Unlock()

	go s.fetchProfile(ctx, sess)
}

// fetchProfile loads the profile for the given identity and commits it only
// if its email is still the current identity's. Fetch errors are non-fatal:
// the profile stays nil and the caller lands in onboarding.
func (s *Store) fetchProfile(ctx context.Context, sess *identity.Session) {
	email := sess.Email
	ctx = backend.WithAuthorizer(ctx, s.authorizerFor(sess))
	profile, err := s.profiles.FetchProfile(ctx, email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			s.logger.DebugContext(ctx, "no profile for identity yet",
				slog.String("email", email))
		} else {
			s.logger.WarnContext(ctx, "profile fetch failed",
				slog.String("email", email),
				slog.String("error", err.Error()))
		}
		profile = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Stale response: the identity changed while this fetch was in flight.
	if s.snap.Identity == nil || s.snap.Identity.Email != email {
		s.logger.DebugContext(ctx, "discarding stale profile response",
			slog.String("fetched_for", email))
		return
	}

	s.snap.Profile = profile
	s.snap.ProfileLoading = false
	s.publishLocked()
}

// publishLocked pushes the current snapshot to all subscribers. Callers hold
// the mutex. Slow subscribers shed their oldest queued snapshot so the
// newest is always enqueued.
func (s *Store) publishLocked() {
	for _, ch := range s.subscribers {
		select {
		case ch <- s.snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- s.snap
		}
	}
}

// Snapshot returns the current reconciled state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Subscribe registers for snapshot updates. The returned cancel func
// unregisters and closes the channel; safe to call more than once.
func (s *Store) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 8)
	if s.closed {
		close(ch)
		return ch, func() {}
	}
	s.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if _, ok := s.subscribers[id]; ok {
				delete(s.subscribers, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// RegisterParams carries everything a registration needs: the credential
// pair for the identity provider plus the backend profile record.
type RegisterParams struct {
	Email    string
	Password string
	Name     string
	PhotoURL string
	Profile  domain.Profile
}

// Register creates the identity account, pushes display info to the
// provider, creates the backend profile, and signs the session in. A failed
// profile creation still leaves the identity signed in; the nil profile
// routes the user to onboarding.
func (s *Store) Register(ctx context.Context, params RegisterParams) error {
	sess, err := s.idp.SignUp(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	if params.Name != "" || params.PhotoURL != "" {
		updated, err := s.idp.UpdateProfile(ctx, s.tokenOf(ctx, sess), params.Name, params.PhotoURL)
		if err != nil {
			s.logger.WarnContext(ctx, "identity display info update failed",
				slog.String("email", params.Email),
				slog.String("error", err.Error()))
		} else {
			sess = updated
		}
	}

	createErr := s.profiles.CreateProfile(backend.WithAuthorizer(ctx, s.authorizerFor(sess)), params.Profile)
	if createErr != nil {
		s.logger.WarnContext(ctx, "profile creation failed",
			slog.String("email", params.Email),
			slog.String("error", createErr.Error()))
	}

	s.watcher.Set(sess)
	return createErr
}

// SignIn authenticates against the identity provider and commits the new
// identity, triggering the profile refresh.
func (s *Store) SignIn(ctx context.Context, email, password string) error {
	sess, err := s.idp.SignInWithPassword(ctx, email, password)
	if err != nil {
		return err
	}
	s.watcher.Set(sess)
	return nil
}

// SignOut clears identity and profile. The identity provider holds no
// server-side session; dropping the tokens is the sign-out.
func (s *Store) SignOut() {
	s.watcher.Set(nil)
}

// UpdateDisplayInfo pushes a new display name and photo to the identity
// provider and commits the refreshed identity.
func (s *Store) UpdateDisplayInfo(ctx context.Context, displayName, photoURL string) error {
	current := s.Snapshot().Identity
	if current == nil {
		return apperrors.Unauthorized("not signed in")
	}

	updated, err := s.idp.UpdateProfile(ctx, s.tokenOf(ctx, current), displayName, photoURL)
	if err != nil {
		return err
	}
	s.watcher.Set(updated)
	return nil
}

// RefreshProfile refetches the backend profile for the current identity.
func (s *Store) RefreshProfile(ctx context.Context) error {
	s.mu.Lock()
	if s.snap.Identity == nil {
		s.mu.Unlock()
		return apperrors.Unauthorized("not signed in")
	}
	sess := s.snap.Identity
	s.snap.ProfileLoading = true
	s.publishLocked()
	s.mu.Unlock()

	go s.fetchProfile(ctx, sess)
	return nil
}

// Token returns a bearer token for the current identity, refreshing when
// forced. Returns unauthorized when anonymous.
func (s *Store) Token(ctx context.Context, forceRefresh bool) (string, error) {
	current := s.Snapshot().Identity
	if current == nil || current.Tokens() == nil {
		return "", apperrors.Unauthorized("not signed in")
	}
	return current.Tokens().Token(ctx, forceRefresh)
}

// sessionAuthorizer authorizes backend calls with a specific identity's
// tokens, even before that identity is committed to the snapshot (as during
// registration). Teardown still goes through the store.
type sessionAuthorizer struct {
	sess    *identity.Session
	signOut func()
}

func (a sessionAuthorizer) Token(ctx context.Context, forceRefresh bool) (string, error) {
	if a.sess == nil || a.sess.Tokens() == nil {
		return "", apperrors.Unauthorized("not signed in")
	}
	return a.sess.Tokens().Token(ctx, forceRefresh)
}

func (a sessionAuthorizer) SignOut() { a.signOut() }

func (s *Store) authorizerFor(sess *identity.Session) backend.Authorizer {
	return sessionAuthorizer{sess: sess, signOut: s.SignOut}
}

func (s *Store) tokenOf(ctx context.Context, sess *identity.Session) string {
	if sess == nil || sess.Tokens() == nil {
		return ""
	}
	token, err := sess.Tokens().Token(ctx, false)
	if err != nil {
		s.logger.WarnContext(ctx, "token fetch failed", slog.String("error", err.Error()))
		return ""
	}
	return token
}

// Close stops the reconcile loop and disposes the identity subscription and
// all snapshot subscribers.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	for id, ch := range s.subscribers {
		delete(s.subscribers, id)
		close(ch)
	}
	s.mu.Unlock()

	s.cancelLoop()
	s.watcher.Close()
	<-s.loopDone
}
