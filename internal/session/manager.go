package session

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// managed pairs a store with the last time its browser was seen.
type managed struct {
	store    *Store
	lastSeen time.Time
}

// Manager owns one Store per active browser session, keyed by the opaque
// session ID carried in the session cookie. Idle sessions are torn down
// after the TTL, which disposes their identity subscriptions.
type Manager struct {
	idp      IdentityProvider
	profiles ProfileService
	logger   *slog.Logger
	ttl      time.Duration

	mu         sync.Mutex
	sessions   map[string]*managed
	nowFunc    func() time.Time
	onTeardown func(email string)

	stopOnce sync.Once
	stop     chan struct{}
}

// NewManager creates a manager and starts its idle-session sweep.
func NewManager(idp IdentityProvider, profiles ProfileService, ttl time.Duration, logger *slog.Logger) *Manager {
	m := &Manager{
		idp:      idp,
		profiles: profiles,
		logger:   logger,
		ttl:      ttl,
		sessions: make(map[string]*managed),
		nowFunc:  time.Now,
		stop:     make(chan struct{}),
	}
	go m.sweepLoop()
	return m
}

// Create allocates a new browser session with a fresh store.
func (m *Manager) Create() (string, *Store) {
	id := uuid.New().String()
	store := NewStore(m.idp, m.profiles, m.logger)

	m.mu.Lock()
	m.sessions[id] = &managed{store: store, lastSeen: m.nowFunc()}
	m.mu.Unlock()

	return id, store
}

// Get returns the store bound to a session ID and refreshes its idle timer.
func (m *Manager) Get(id string) (*Store, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	entry.lastSeen = m.nowFunc()
	return entry.store, true
}

// OnTeardown registers fn to receive the signed-in email whenever a session
// is torn down, so per-viewer state keyed by that email can be released with
// the session.
func (m *Manager) OnTeardown(fn func(email string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTeardown = fn
}

// Destroy tears down a session: sign-out, close, forget.
func (m *Manager) Destroy(id string) {
	m.mu.Lock()
	entry, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if ok {
		m.teardown(entry)
	}
}

// teardown captures the signed-in email before the sign-out clears it, then
// disposes the store.
func (m *Manager) teardown(entry *managed) {
	m.mu.Lock()
	hook := m.onTeardown
	m.mu.Unlock()

	if hook != nil {
		if snap := entry.store.Snapshot(); snap.Identity != nil {
			hook(snap.Identity.Email)
		}
	}
	entry.store.SignOut()
	entry.store.Close()
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close tears down all sessions and stops the sweep.
func (m *Manager) Close() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	entries := make([]*managed, 0, len(m.sessions))
	for id, entry := range m.sessions {
		entries = append(entries, entry)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, entry := range entries {
		m.teardown(entry)
	}
}

func (m *Manager) sweepLoop() {
	interval := m.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.sweep()
		}
	}
}

// sweep closes sessions idle past the TTL.
func (m *Manager) sweep() {
	now := m.nowFunc()

	m.mu.Lock()
	var expired []*managed
	for id, entry := range m.sessions {
		if now.Sub(entry.lastSeen) > m.ttl {
			expired = append(expired, entry)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, entry := range expired {
		m.teardown(entry)
	}
	if len(expired) > 0 {
		m.logger.Info("expired idle sessions", slog.Int("count", len(expired)))
	}
}
