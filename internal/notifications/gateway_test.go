package notifications

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"parley/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// attach registers a client directly with the gateway's registry, bypassing
// the websocket handshake, so delivery behavior can be tested in isolation.
func attach(g *Gateway, r ConnectionRegistry, userID uint) *Client {
	c := NewClient(g, nil, userID)
	r.Register(userID, c)
	r.JoinRoom(PersonalRoom(userID), userID)
	return c
}

// drain returns all frames currently buffered for the client.
func drain(c *Client) []Event {
	var events []Event
	for {
		select {
		case raw := <-c.Send:
			var e Event
			if err := json.Unmarshal(raw, &e); err == nil {
				events = append(events, e)
			}
		default:
			return events
		}
	}
}

func newTestGateway() (*Gateway, ConnectionRegistry) {
	registry := NewConnectionRegistry()
	// nil notifier and nil redis: local delivery only
	return NewGateway(registry, nil, nil), registry
}

func TestGateway_EmitToUser(t *testing.T) {
	g, r := newTestGateway()
	ctx := context.Background()

	alice := attach(g, r, 1)

	t.Run("delivers to the live socket", func(t *testing.T) {
		g.EmitToUser(ctx, 1, NewFriendRemovedEvent(2))

		events := drain(alice)
		require.Len(t, events, 1)
		assert.Equal(t, EventFriendRemoved, events[0].Type)
	})

	t.Run("is a silent no-op for offline users", func(t *testing.T) {
		g.EmitToUser(ctx, 42, NewFriendRemovedEvent(2))
		assert.Empty(t, drain(alice))
	})
}

func TestGateway_EmitToRoom(t *testing.T) {
	g, r := newTestGateway()
	ctx := context.Background()

	alice := attach(g, r, 1)
	bob := attach(g, r, 2)
	carol := attach(g, r, 3)

	r.JoinRoom("conv:5", 1)
	r.JoinRoom("conv:5", 2)

	g.EmitToRoom(ctx, "conv:5", NewMessageDeletedEvent(5, 100))

	t.Run("each member receives the event exactly once", func(t *testing.T) {
		for _, c := range []*Client{alice, bob} {
			events := drain(c)
			require.Len(t, events, 1, "user %d", c.UserID)
			assert.Equal(t, EventMessageDeleted, events[0].Type)

			var p MessageDeletedPayload
			require.NoError(t, json.Unmarshal(events[0].Payload, &p))
			assert.Equal(t, uint(100), p.MessageID)
		}
	})

	t.Run("non-members receive nothing", func(t *testing.T) {
		assert.Empty(t, drain(carol))
	})
}

func TestGateway_Broadcast(t *testing.T) {
	g, r := newTestGateway()

	alice := attach(g, r, 1)
	bob := attach(g, r, 2)

	g.Broadcast(context.Background(), NewUserStatusEvent(1, models.PresenceOffline))

	for _, c := range []*Client{alice, bob} {
		events := drain(c)
		require.Len(t, events, 1)
		assert.Equal(t, EventUserStatus, events[0].Type)
	}
}

func TestGateway_PresenceScopedToPersonalRoom(t *testing.T) {
	g, r := newTestGateway()

	watcher := attach(g, r, 2)
	stranger := attach(g, r, 3)
	r.JoinRoom(PersonalRoom(1), 2)

	g.handleUserOnline(1)
	g.handleUserOffline(1)

	t.Run("personal-room members see both transitions", func(t *testing.T) {
		events := drain(watcher)
		require.Len(t, events, 2)

		var p UserStatusPayload
		require.NoError(t, json.Unmarshal(events[0].Payload, &p))
		assert.Equal(t, uint(1), p.UserID)
		assert.Equal(t, models.PresenceOnline, p.Status)

		require.NoError(t, json.Unmarshal(events[1].Payload, &p))
		assert.Equal(t, models.PresenceOffline, p.Status)
	})

	t.Run("everyone else hears nothing", func(t *testing.T) {
		assert.Empty(t, drain(stranger))
	})
}

func TestGateway_HandleIncoming(t *testing.T) {
	g, r := newTestGateway()

	alice := attach(g, r, 1)
	bob := attach(g, r, 2)
	r.JoinRoom("conv:9", 2)

	t.Run("ping answers pong", func(t *testing.T) {
		g.handleIncoming(alice, []byte(`{"type":"ping"}`))

		events := drain(alice)
		require.Len(t, events, 1)
		assert.Equal(t, EventPong, events[0].Type)
	})

	t.Run("join_room notifies members", func(t *testing.T) {
		g.handleIncoming(alice, []byte(`{"type":"join_room","payload":{"room_id":"conv:9"}}`))

		assert.Contains(t, r.RoomsOf(1), "conv:9")

		// Both the joiner and existing members see user_joined.
		for _, c := range []*Client{alice, bob} {
			events := drain(c)
			require.Len(t, events, 1, "user %d", c.UserID)
			assert.Equal(t, EventUserJoined, events[0].Type)
		}
	})

	t.Run("leave_room removes membership and notifies", func(t *testing.T) {
		g.handleIncoming(alice, []byte(`{"type":"leave_room","payload":{"room_id":"conv:9"}}`))

		assert.NotContains(t, r.RoomsOf(1), "conv:9")

		events := drain(bob)
		require.Len(t, events, 1)
		assert.Equal(t, EventUserLeft, events[0].Type)
	})

	t.Run("typing forces the sender identity from the connection", func(t *testing.T) {
		r.JoinRoom("conv:9", 1)
		drain(alice)
		drain(bob)

		// Claimed user_id 999 must be overwritten with the socket's user.
		g.handleIncoming(alice, []byte(`{"type":"typing","payload":{"conversation_id":9,"user_id":999,"is_typing":true}}`))

		events := drain(bob)
		require.Len(t, events, 1)
		assert.Equal(t, EventTyping, events[0].Type)

		var p TypingPayload
		require.NoError(t, json.Unmarshal(events[0].Payload, &p))
		assert.Equal(t, uint(1), p.UserID)
	})

	t.Run("malformed frames produce an error event", func(t *testing.T) {
		g.handleIncoming(alice, []byte(`not json`))
		drain(alice) // the typing echo plus the error; just check the last

		g.handleIncoming(alice, []byte(`{"type":"join_room","payload":{}}`))
		events := drain(alice)
		require.NotEmpty(t, events)
		assert.Equal(t, EventError, events[len(events)-1].Type)
	})

	t.Run("unknown event types are rejected", func(t *testing.T) {
		g.handleIncoming(alice, []byte(`{"type":"self_destruct"}`))
		events := drain(alice)
		require.Len(t, events, 1)
		assert.Equal(t, EventError, events[0].Type)
	})
}

func TestGateway_UnregisterClient(t *testing.T) {
	registry := NewConnectionRegistry()
	presence := NewPresenceManager(nil, PresenceConfig{OfflineGracePeriod: 10 * time.Millisecond})
	g := NewGateway(registry, presence, nil)
	defer presence.Stop()

	t.Run("stale disconnect does not tear down the replacement", func(t *testing.T) {
		first := NewClient(g, nil, 3)
		registry.Register(3, first)
		registry.JoinRoom(PersonalRoom(3), 3)
		registry.JoinRoom("conv:1", 3)

		second := NewClient(g, nil, 3)
		displaced := registry.Register(3, second)
		require.Equal(t, first, displaced)

		g.UnregisterClient(first)
		assert.Equal(t, second, registry.Lookup(3))
		assert.Contains(t, registry.RoomsOf(3), "conv:1")
	})

	t.Run("current disconnect leaves all rooms", func(t *testing.T) {
		current := registry.Lookup(3)
		require.NotNil(t, current)

		g.UnregisterClient(current)
		assert.Nil(t, registry.Lookup(3))
		assert.Empty(t, registry.RoomsOf(3))
	})
}

func TestGateway_PresenceCallbacks(t *testing.T) {
	registry := NewConnectionRegistry()
	presence := NewPresenceManager(nil, PresenceConfig{OfflineGracePeriod: 20 * time.Millisecond})
	g := NewGateway(registry, presence, nil)
	defer presence.Stop()

	var transitions []models.PresenceStatus
	done := make(chan struct{})
	g.SetPresenceChangeHook(func(userID uint, status models.PresenceStatus) {
		transitions = append(transitions, status)
		if status == models.PresenceOffline {
			close(done)
		}
	})

	ctx := context.Background()
	presence.Register(ctx, 5)
	presence.Unregister(ctx, 5)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("offline transition never fired")
	}

	assert.Equal(t, []models.PresenceStatus{models.PresenceOnline, models.PresenceOffline}, transitions)
}

func TestGateway_IsOnline(t *testing.T) {
	g, r := newTestGateway()

	assert.False(t, g.IsOnline(context.Background(), 1))
	attach(g, r, 1)
	assert.True(t, g.IsOnline(context.Background(), 1))
}
