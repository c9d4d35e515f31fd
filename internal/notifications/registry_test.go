package notifications

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOwner struct{}

func (fakeOwner) UnregisterClient(*Client) {}
func (fakeOwner) Name() string             { return "test" }

func newTestClient(userID uint) *Client {
	return NewClient(fakeOwner{}, nil, userID)
}

func TestRegistry_LastConnectWins(t *testing.T) {
	r := NewConnectionRegistry()

	first := newTestClient(1)
	displaced := r.Register(1, first)
	assert.Nil(t, displaced)
	assert.Equal(t, first, r.Lookup(1))

	second := newTestClient(1)
	displaced = r.Register(1, second)
	require.Equal(t, first, displaced, "the older socket is displaced")
	assert.Equal(t, second, r.Lookup(1), "the newest socket owns the mapping")
	assert.Equal(t, 1, r.Count())
}

func TestRegistry_UnregisterOnlyIfCurrent(t *testing.T) {
	r := NewConnectionRegistry()

	first := newTestClient(7)
	r.Register(7, first)
	second := newTestClient(7)
	r.Register(7, second)

	// The displaced socket's dying read pump must not tear down the
	// replacement's mapping.
	assert.False(t, r.Unregister(7, first))
	assert.Equal(t, second, r.Lookup(7))

	assert.True(t, r.Unregister(7, second))
	assert.Nil(t, r.Lookup(7))
	assert.False(t, r.Unregister(7, second), "repeat unregister is a no-op")
}

func TestRegistry_Rooms(t *testing.T) {
	r := NewConnectionRegistry()

	r.Register(1, newTestClient(1))
	r.Register(2, newTestClient(2))

	r.JoinRoom("conv:10", 1)
	r.JoinRoom("conv:10", 2)
	r.JoinRoom("conv:20", 1)

	assert.ElementsMatch(t, []uint{1, 2}, r.RoomMembers("conv:10"))
	assert.ElementsMatch(t, []string{"conv:10", "conv:20"}, r.RoomsOf(1))

	t.Run("duplicate join is idempotent", func(t *testing.T) {
		r.JoinRoom("conv:10", 1)
		assert.ElementsMatch(t, []uint{1, 2}, r.RoomMembers("conv:10"))
	})

	t.Run("LeaveRoom removes one membership", func(t *testing.T) {
		r.LeaveRoom("conv:10", 2)
		assert.ElementsMatch(t, []uint{1}, r.RoomMembers("conv:10"))
		assert.Empty(t, r.RoomsOf(2))
	})

	t.Run("LeaveAllRooms reports what was left", func(t *testing.T) {
		left := r.LeaveAllRooms(1)
		assert.ElementsMatch(t, []string{"conv:10", "conv:20"}, left)
		assert.Empty(t, r.RoomsOf(1))
		assert.Empty(t, r.RoomMembers("conv:10"))
	})

	t.Run("leaving an unknown room is harmless", func(t *testing.T) {
		r.LeaveRoom("conv:999", 1)
		assert.Nil(t, r.LeaveAllRooms(999))
	})
}

func TestRegistry_OnlineUserIDs(t *testing.T) {
	r := NewConnectionRegistry()
	assert.Empty(t, r.OnlineUserIDs())

	a := newTestClient(1)
	b := newTestClient(2)
	r.Register(1, a)
	r.Register(2, b)
	assert.ElementsMatch(t, []uint{1, 2}, r.OnlineUserIDs())

	r.Unregister(1, a)
	assert.ElementsMatch(t, []uint{2}, r.OnlineUserIDs())
}
