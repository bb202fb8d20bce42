package session

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sagecrypto "github.com/sage-x-project/mpenc/crypto"
	"github.com/sage-x-project/mpenc/greeter"
	"github.com/sage-x-project/mpenc/transport"
)

func newTestSession(t *testing.T, id string) *Session {
	t.Helper()
	kp, err := sagecrypto.GenerateSigningKeyPair()
	require.NoError(t, err)
	dir := map[string]ed25519.PublicKey{id: kp.Public}
	hub := transport.NewMemoryHub(nil)
	g := greeter.New(id, kp, dir)
	return New(hub.Join(id), g, DefaultConfig())
}

func TestManagerAddGetRemove(t *testing.T) {
	m := NewManager()
	defer m.Close()

	s := newTestSession(t, "alice")
	m.Add("alice", s)

	got, ok := m.Get("alice")
	require.True(t, ok)
	assert.Same(t, s, got)

	m.Remove("alice")
	_, ok = m.Get("alice")
	assert.False(t, ok)
}

func TestManagerAddNewGeneratesUniqueIDs(t *testing.T) {
	m := NewManager()
	defer m.Close()

	s1 := newTestSession(t, "alice")
	id1 := m.AddNew(s1)
	s2 := newTestSession(t, "bob")
	id2 := m.AddNew(s2)

	require.NotEmpty(t, id1)
	require.NotEqual(t, id1, id2)

	got1, ok := m.Get(id1)
	require.True(t, ok)
	assert.Same(t, s1, got1)
	got2, ok := m.Get(id2)
	require.True(t, ok)
	assert.Same(t, s2, got2)
}

func TestManagerGetExpiresStaleSession(t *testing.T) {
	m := NewManager()
	defer m.Close()

	s := newTestSession(t, "alice")
	s.config.MaxAge = time.Nanosecond
	time.Sleep(time.Millisecond)
	m.Add("alice", s)

	_, ok := m.Get("alice")
	assert.False(t, ok)
	assert.Equal(t, 0, m.Count())
}

func TestManagerStats(t *testing.T) {
	m := NewManager()
	defer m.Close()

	active := newTestSession(t, "alice")
	m.Add("alice", active)

	expired := newTestSession(t, "bob")
	expired.config.MaxAge = time.Nanosecond
	time.Sleep(time.Millisecond)
	m.Add("bob", expired)

	stats := m.Stats()
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.ExpiredSessions)
}

func TestManagerCloseClosesAllSessions(t *testing.T) {
	m := NewManager()
	s := newTestSession(t, "alice")
	m.Add("alice", s)

	require.NoError(t, m.Close())
	assert.True(t, s.IsExpired())
	assert.Equal(t, 0, m.Count())
}
