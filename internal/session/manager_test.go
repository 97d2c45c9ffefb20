package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/assetverse/assetverse/internal/identity"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(&mockIdentity{}, newFakeProfiles(), time.Hour, testLogger())
	t.Cleanup(m.Close)
	return m
}

func TestManager_CreateAndGet(t *testing.T) {
	m := newTestManager(t)

	id, store := m.Create()
	require.NotEmpty(t, id)
	require.NotNil(t, store)

	got, ok := m.Get(id)
	require.True(t, ok)
	assert.Same(t, store, got)

	_, ok = m.Get("no-such-session")
	assert.False(t, ok)
}

func TestManager_SessionIDsAreUnique(t *testing.T) {
	m := newTestManager(t)

	a, _ := m.Create()
	b, _ := m.Create()
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, m.Len())
}

func TestManager_DestroyForgetsSession(t *testing.T) {
	m := newTestManager(t)

	id, store := m.Create()
	m.Destroy(id)

	_, ok := m.Get(id)
	assert.False(t, ok)
	assert.Nil(t, store.Snapshot().Identity)

	// destroying twice is a no-op
	m.Destroy(id)
}

func TestManager_TeardownReleasesViewerState(t *testing.T) {
	idp := &mockIdentity{}
	sess := &identity.Session{UID: "uid-1", Email: "emma@corp.example"}
	idp.On("SignInWithPassword", mock.Anything, mock.Anything, mock.Anything).Return(sess, nil)

	m := NewManager(idp, newFakeProfiles(), time.Hour, testLogger())
	t.Cleanup(m.Close)

	var dropped []string
	m.OnTeardown(func(email string) { dropped = append(dropped, email) })

	id, store := m.Create()
	require.NoError(t, store.SignIn(context.Background(), "emma@corp.example", "pw"))
	require.Eventually(t, func() bool { return store.Snapshot().Identity != nil }, time.Second, 5*time.Millisecond)

	m.Destroy(id)
	assert.Equal(t, []string{"emma@corp.example"}, dropped)

	// anonymous sessions have no viewer state to release
	id, _ = m.Create()
	m.Destroy(id)
	assert.Len(t, dropped, 1)
}

func TestManager_SweepExpiresIdleSessions(t *testing.T) {
	now := time.Now()
	m := newTestManager(t)
	m.nowFunc = func() time.Time { return now }

	idle, _ := m.Create()
	active, _ := m.Create()

	now = now.Add(2 * time.Hour)
	m.Get(active) // refreshes the idle timer
	m.sweep()

	_, ok := m.Get(idle)
	assert.False(t, ok)
	_, ok = m.Get(active)
	assert.True(t, ok)
}
