package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryHubJoinDeliversSelfEnterThenBroadcast(t *testing.T) {
	hub := NewMemoryHub(nil)

	var aliceEvents []Event
	alice := hub.Join("alice")
	alice.OnRecv(func(e Event) { aliceEvents = append(aliceEvents, e) })

	var bobEvents []Event
	bob := hub.Join("bob")
	bob.OnRecv(func(e Event) { bobEvents = append(bobEvents, e) })

	require.Len(t, bobEvents, 1)
	assert.Equal(t, EventEnter, bobEvents[0].Kind)
	assert.True(t, bobEvents[0].Self)
	assert.Contains(t, bobEvents[0].Members, "alice")
	assert.Contains(t, bobEvents[0].Members, "bob")

	// alice's subscription was registered after her own Join fired its
	// EventEnter{Self:true}, so only bob's arrival is observed here.
	require.Len(t, aliceEvents, 1)
	assert.Equal(t, EventEnter, aliceEvents[0].Kind)
	assert.False(t, aliceEvents[0].Self)
	assert.Equal(t, "bob", aliceEvents[0].From)
}

func TestMemoryHubBroadcastReachesAllButSender(t *testing.T) {
	hub := NewMemoryHub(nil)
	alice := hub.Join("alice")
	bob := hub.Join("bob")
	carol := hub.Join("carol")

	var bobGot, carolGot []Event
	bob.OnRecv(func(e Event) { bobGot = append(bobGot, e) })
	carol.OnRecv(func(e Event) { carolGot = append(carolGot, e) })

	require.NoError(t, alice.Send(Action{Kind: ActionSend, Payload: []byte("hi")}))

	require.Len(t, bobGot, 1)
	assert.Equal(t, EventReceive, bobGot[0].Kind)
	assert.Equal(t, "alice", bobGot[0].From)
	assert.Equal(t, []byte("hi"), bobGot[0].Payload)

	require.Len(t, carolGot, 1)
	assert.Equal(t, "alice", carolGot[0].From)
}

func TestMemoryHubUnicastToUnknownMemberErrors(t *testing.T) {
	hub := NewMemoryHub(nil)
	alice := hub.Join("alice")

	err := alice.Send(Action{Kind: ActionSend, To: "ghost", Payload: []byte("hi")})
	assert.Error(t, err)
}

func TestMemoryHubLeaveNotifiesRemainingMembers(t *testing.T) {
	hub := NewMemoryHub(nil)
	alice := hub.Join("alice")
	bob := hub.Join("bob")

	var bobGot []Event
	bob.OnRecv(func(e Event) { bobGot = append(bobGot, e) })

	hub.Leave("alice")

	require.Len(t, bobGot, 1)
	assert.Equal(t, EventLeave, bobGot[0].Kind)
	assert.Equal(t, "alice", bobGot[0].From)
	assert.NotContains(t, bobGot[0].Members, "alice")

	_, inChannel := alice.CurMembers()
	assert.False(t, inChannel)
}

func TestMemoryHubCurMembers(t *testing.T) {
	hub := NewMemoryHub(nil)
	alice := hub.Join("alice")
	hub.Join("bob")

	members, ok := alice.CurMembers()
	require.True(t, ok)
	assert.Len(t, members, 2)
}
