package cliques

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runChain drives an Ika()-produced up-message through UpFlow for every
// member after the initiator, then DownFlow for every member including the
// initiator. order[0] is the initiator.
func runChain(t *testing.T, members map[string]*Member, order []string, start *Message) {
	t.Helper()
	msg := start
	for i := 1; i < len(order); i++ {
		next, err := members[order[i]].UpFlow(msg)
		require.NoError(t, err)
		msg = next
	}
	require.Equal(t, FlowDown, msg.Flow)
	for _, id := range order {
		require.NoError(t, members[id].DownFlow(msg))
	}
}

func newMembers(ids ...string) map[string]*Member {
	out := make(map[string]*Member, len(ids))
	for _, id := range ids {
		out[id] = NewMember(id)
	}
	return out
}

// TestFiveMemberIKA corresponds to S3 in spec.md §8.
func TestFiveMemberIKA(t *testing.T) {
	order := []string{"1", "2", "3", "4", "5"}
	members := newMembers(order...)

	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)

	want := members["1"].GroupKey
	require.Len(t, want, 32)
	for _, id := range order {
		assert.Equal(t, want, members[id].GroupKey, "member %s", id)
		assert.Len(t, members[id].IntKeys, len(order))
	}
}

func TestAkaJoinProducesNewSharedKey(t *testing.T) {
	order := []string{"1", "2", "3", "4", "5"}
	members := newMembers(order...)
	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)
	oldKey := members["1"].GroupKey

	members["6"] = NewMember("6")
	members["7"] = NewMember("7")
	joinStart, err := members["4"].AkaJoin([]string{"6", "7"})
	require.NoError(t, err)

	newOrder := []string{"4", "1", "2", "3", "5", "6", "7"}
	runChain(t, members, newOrder, joinStart)

	newKey := members["1"].GroupKey
	assert.NotEqual(t, oldKey, newKey)
	for _, id := range newOrder {
		assert.Equal(t, newKey, members[id].GroupKey, "member %s", id)
		assert.Len(t, members[id].IntKeys, len(newOrder))
	}
}

func TestAkaExcludeRemovesMembersAndRekeys(t *testing.T) {
	order := []string{"1", "2", "3", "4", "5"}
	members := newMembers(order...)
	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)
	oldKey := members["3"].GroupKey

	excludeStart, err := members["3"].AkaExclude([]string{"1", "4"})
	require.NoError(t, err)

	remaining := []string{"3", "2", "5"}
	runChain(t, members, remaining, excludeStart)

	newKey := members["3"].GroupKey
	assert.NotEqual(t, oldKey, newKey)
	for _, id := range remaining {
		assert.Equal(t, newKey, members[id].GroupKey)
	}
}

func TestAkaExcludeToSoleMemberBroadcastsDownDirectly(t *testing.T) {
	order := []string{"1", "2"}
	members := newMembers(order...)
	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)
	oldKey := members["1"].GroupKey

	excludeStart, err := members["1"].AkaExclude([]string{"2"})
	require.NoError(t, err)

	require.Equal(t, FlowDown, excludeStart.Flow)
	require.Equal(t, "", excludeStart.Dest)
	require.Equal(t, []string{"1"}, excludeStart.Members)

	require.NoError(t, members["1"].DownFlow(excludeStart))
	assert.Len(t, members["1"].GroupKey, 32)
	assert.NotEqual(t, oldKey, members["1"].GroupKey)
}

func TestAkaExcludeSelfIsProtocolViolation(t *testing.T) {
	order := []string{"1", "2", "3"}
	members := newMembers(order...)
	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)

	_, err = members["3"].AkaExclude([]string{"3"})
	require.Error(t, err)
}

func TestAkaRefreshChangesGroupKeyWithSameMembership(t *testing.T) {
	order := []string{"1", "2", "3"}
	members := newMembers(order...)
	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)
	oldKey := members["1"].GroupKey

	refreshStart, err := members["1"].AkaRefresh()
	require.NoError(t, err)
	runChain(t, members, order, refreshStart)

	newKey := members["1"].GroupKey
	assert.NotEqual(t, oldKey, newKey)
	for _, id := range order {
		assert.Equal(t, newKey, members[id].GroupKey)
	}
}

func TestAkaQuitZeroizesState(t *testing.T) {
	order := []string{"1", "2"}
	members := newMembers(order...)
	start, err := members["1"].Ika(order[1:])
	require.NoError(t, err)
	runChain(t, members, order, start)

	members["1"].AkaQuit()
	assert.Nil(t, members["1"].PrivKeyList)
	assert.Nil(t, members["1"].GroupKey)
	assert.Nil(t, members["1"].Members)
}

func TestUpFlowRejectsDuplicateMembers(t *testing.T) {
	m := NewMember("2")
	msg := &Message{
		Source:    "1",
		Members:   []string{"1", "1"},
		IntKeys:   [][]byte{{}, make([]byte, 32)},
		Agreement: AgreementIKA,
		Flow:      FlowUp,
	}
	_, err := m.UpFlow(msg)
	require.Error(t, err)
}

func TestUpFlowRejectsSelfNotInMembers(t *testing.T) {
	m := NewMember("9")
	msg := &Message{
		Source:    "1",
		Members:   []string{"1", "2"},
		IntKeys:   [][]byte{{}, make([]byte, 32)},
		Agreement: AgreementIKA,
		Flow:      FlowUp,
	}
	_, err := m.UpFlow(msg)
	require.Error(t, err)
}

func TestUpFlowRejectsTooManyIntKeys(t *testing.T) {
	m := NewMember("2")
	msg := &Message{
		Source:    "1",
		Members:   []string{"1", "2"},
		IntKeys:   [][]byte{{}, make([]byte, 32), make([]byte, 32)},
		Agreement: AgreementIKA,
		Flow:      FlowUp,
	}
	_, err := m.UpFlow(msg)
	require.Error(t, err)
}

func TestIkaRejectsDuplicateOthers(t *testing.T) {
	m := NewMember("1")
	_, err := m.Ika([]string{"2", "2"})
	require.Error(t, err)
}
