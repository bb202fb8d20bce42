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

// twoMemberFixture wires "alice" and "bob" into a MemoryHub, each with a
// Session, ready to drive a handshake to completion.
type twoMemberFixture struct {
	hub  *transport.MemoryHub
	alice, bob *Session
}

func newTwoMemberFixture(t *testing.T) *twoMemberFixture {
	t.Helper()
	ids := []string{"alice", "bob"}
	dir := make(map[string]ed25519.PublicKey, len(ids))
	signers := make(map[string]*sagecrypto.SigningKeyPair, len(ids))
	for _, id := range ids {
		kp, err := sagecrypto.GenerateSigningKeyPair()
		require.NoError(t, err)
		signers[id] = kp
		dir[id] = kp.Public
	}

	hub := transport.NewMemoryHub(nil)
	aliceGreeter := greeter.New("alice", signers["alice"], dir)
	bobGreeter := greeter.New("bob", signers["bob"], dir)

	alice := New(hub.Join("alice"), aliceGreeter, DefaultConfig())
	bob := New(hub.Join("bob"), bobGreeter, DefaultConfig())

	return &twoMemberFixture{hub: hub, alice: alice, bob: bob}
}

func TestSessionStartReachesGroupKeyOnBothSides(t *testing.T) {
	f := newTwoMemberFixture(t)

	require.NoError(t, f.alice.Start([]string{"bob"}))

	require.Eventually(t, func() bool {
		return len(f.alice.Greeter().Cliques.GroupKey) > 0 && len(f.bob.Greeter().Cliques.GroupKey) > 0
	}, time.Second, time.Millisecond)

	assert.Equal(t, f.alice.Greeter().Cliques.GroupKey, f.bob.Greeter().Cliques.GroupKey)
	assert.Equal(t, f.alice.Greeter().Aske.SessionID, f.bob.Greeter().Aske.SessionID)
}

func TestSessionSendDataRoundTrips(t *testing.T) {
	f := newTwoMemberFixture(t)
	require.NoError(t, f.alice.Start([]string{"bob"}))
	require.Eventually(t, func() bool {
		return len(f.alice.Greeter().Cliques.GroupKey) > 0
	}, time.Second, time.Millisecond)

	var got DataEvent
	received := make(chan struct{})
	f.bob.OnData(func(e DataEvent) {
		got = e
		close(received)
	})

	require.NoError(t, f.alice.SendData([]byte("hello group")))

	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("bob never received alice's data message")
	}

	assert.Equal(t, "alice", got.From)
	assert.Equal(t, []byte("hello group"), got.Payload)
	assert.Equal(t, 1, f.alice.GetMessageCount())
	assert.Equal(t, 1, f.bob.GetMessageCount())
}

func TestSessionSendDataBeforeGroupKeyFails(t *testing.T) {
	f := newTwoMemberFixture(t)
	err := f.alice.SendData([]byte("too soon"))
	assert.Error(t, err)
}

func TestSessionIsExpiredByMaxMessages(t *testing.T) {
	f := newTwoMemberFixture(t)
	f.alice.config.MaxMessages = 1
	require.NoError(t, f.alice.Start([]string{"bob"}))
	require.Eventually(t, func() bool {
		return len(f.alice.Greeter().Cliques.GroupKey) > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, f.alice.SendData([]byte("one")))
	assert.True(t, f.alice.IsExpired())
}

func TestSessionRecoverReachesReadyOnBothSides(t *testing.T) {
	f := newTwoMemberFixture(t)
	require.NoError(t, f.alice.Start([]string{"bob"}))
	require.Eventually(t, func() bool {
		return len(f.alice.Greeter().Cliques.GroupKey) > 0 && len(f.bob.Greeter().Cliques.GroupKey) > 0
	}, time.Second, time.Millisecond)
	keyBefore := f.alice.Greeter().Cliques.GroupKey

	require.NoError(t, f.alice.Recover())

	require.Eventually(t, func() bool {
		return f.alice.Greeter().State == greeter.StateReady && f.bob.Greeter().State == greeter.StateReady &&
			string(f.alice.Greeter().Cliques.GroupKey) != string(keyBefore)
	}, time.Second, time.Millisecond)

	assert.True(t, f.alice.Greeter().Recovering)
	assert.True(t, f.bob.Greeter().Recovering)
	assert.Equal(t, f.alice.Greeter().Cliques.GroupKey, f.bob.Greeter().Cliques.GroupKey)
}

func TestSessionCloseUnsubscribes(t *testing.T) {
	f := newTwoMemberFixture(t)
	require.NoError(t, f.alice.Close())
	assert.True(t, f.alice.IsExpired())
}
