package notifications

import (
	"context"
	"encoding/json"
	"log"
	"strconv"

	"parley/internal/middleware"
	"parley/internal/models"
	"parley/internal/observability"

	"github.com/gofiber/websocket/v2"
)

// PersonalRoom is the auto-joined room scoped to a single user, used for
// direct addressed delivery.
func PersonalRoom(userID uint) string {
	return "user:" + strconv.FormatUint(uint64(userID), 10)
}

// ConversationRoom is the room for a conversation's live participants.
func ConversationRoom(conversationID uint) string {
	return "conv:" + strconv.FormatUint(uint64(conversationID), 10)
}

// Gateway authenticates sockets (via the handshake middleware upstream),
// maintains the live user/socket and user/rooms mappings through the injected
// ConnectionRegistry, and provides the event-emission primitives the rest of
// the system calls after persistence writes succeed.
//
// Delivery is fire-and-forget, at most once, to currently connected sockets.
// Persisted state is the durable source of truth; events are a latency hint.
type Gateway struct {
	registry ConnectionRegistry
	presence *PresenceManager
	notifier *Notifier

	// onPresenceChange persists presence transitions; optional.
	onPresenceChange func(userID uint, status models.PresenceStatus)
}

// NewGateway wires a gateway over the given registry. notifier may be nil
// for single-instance deployments; presence may use a nil Redis client.
func NewGateway(registry ConnectionRegistry, presence *PresenceManager, notifier *Notifier) *Gateway {
	g := &Gateway{
		registry: registry,
		presence: presence,
		notifier: notifier,
	}

	if presence != nil {
		presence.SetCallbacks(g.handleUserOnline, g.handleUserOffline)
	}

	return g
}

// Name identifies the gateway in backpressure metrics.
func (g *Gateway) Name() string { return "gateway" }

// SetPresenceChangeHook registers a callback invoked on online/offline
// transitions, typically to persist User.Status and LastSeen.
func (g *Gateway) SetPresenceChangeHook(hook func(userID uint, status models.PresenceStatus)) {
	g.onPresenceChange = hook
}

// HandleConnection runs the full lifetime of an authenticated socket. It must
// be called from the websocket handler goroutine and blocks until the
// connection closes. userID has already been resolved by the handshake
// middleware; no unauthenticated socket reaches this point.
func (g *Gateway) HandleConnection(conn *websocket.Conn, userID uint) {
	client := NewClient(g, conn, userID)
	client.IncomingHandler = g.handleIncoming
	client.OnActivity = func(uid uint) {
		if g.presence != nil {
			g.presence.Touch(context.Background(), uid)
		}
	}

	// Last-connect-wins: the previous socket for this user, if any, is told
	// to go away. Its deferred unregister is a no-op because the registry
	// only removes the mapping for the current client.
	if displaced := g.registry.Register(userID, client); displaced != nil {
		_ = displaced.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "Replaced by newer connection"))
		close(displaced.Send)
	}

	g.registry.JoinRoom(PersonalRoom(userID), userID)
	observability.RoomSubscriptions.WithLabelValues("personal").Inc()
	middleware.ActiveWebSockets.Inc()

	// The presence manager emits the online user_status event on the
	// offline->online transition, so reconnects within the grace window
	// do not flap.
	if g.presence != nil {
		g.presence.Register(context.Background(), userID)
	}

	// Initial snapshot of who is already online, so the client doesn't have
	// to wait for individual user_status transitions.
	var online []uint
	for _, id := range g.OnlineUserIDs(context.Background()) {
		if id != userID {
			online = append(online, id)
		}
	}
	if len(online) > 0 {
		client.TrySend(NewConnectedUsersEvent(online).Encode())
	}

	go client.WritePump()
	client.ReadPump()
}

// UnregisterClient tears down state for a disconnecting socket. Called by the
// client's read pump on exit. A displaced client finds itself already
// replaced in the registry and tears down nothing.
func (g *Gateway) UnregisterClient(c *Client) {
	if !g.registry.Unregister(c.UserID, c) {
		return
	}

	rooms := g.registry.LeaveAllRooms(c.UserID)
	for _, roomID := range rooms {
		if roomID == PersonalRoom(c.UserID) {
			observability.RoomSubscriptions.WithLabelValues("personal").Dec()
			continue
		}
		observability.RoomSubscriptions.WithLabelValues("conversation").Dec()
		g.EmitToRoom(context.Background(), roomID, NewUserLeftEvent(roomID, c.UserID))
	}

	middleware.ActiveWebSockets.Dec()

	if g.presence != nil {
		g.presence.Unregister(context.Background(), c.UserID)
	}
}

// EmitToUser delivers an event to the user's live socket, if any. No queuing,
// no retry. With a notifier the event goes through Redis so whichever instance
// holds the socket delivers it.
func (g *Gateway) EmitToUser(ctx context.Context, userID uint, event Event) {
	observability.RecordWebSocketEvent(string(event.Type))
	payload := event.Encode()

	if g.notifier.Enabled() {
		if err := g.notifier.PublishUser(ctx, userID, payload); err != nil {
			log.Printf("publish to user %d failed: %v", userID, err)
			g.deliverToUser(userID, payload)
		}
		return
	}
	g.deliverToUser(userID, payload)
}

// EmitToRoom delivers an event to every connection currently joined to roomID.
func (g *Gateway) EmitToRoom(ctx context.Context, roomID string, event Event) {
	observability.RecordWebSocketEvent(string(event.Type))
	payload := event.Encode()

	if g.notifier.Enabled() {
		if err := g.notifier.PublishRoom(ctx, roomID, payload); err != nil {
			log.Printf("publish to room %s failed: %v", roomID, err)
			g.deliverToRoom(roomID, payload)
		}
		return
	}
	g.deliverToRoom(roomID, payload)
}

// Broadcast delivers an event to all live connections.
func (g *Gateway) Broadcast(ctx context.Context, event Event) {
	observability.RecordWebSocketEvent(string(event.Type))
	payload := event.Encode()

	if g.notifier.Enabled() {
		if err := g.notifier.PublishBroadcast(ctx, payload); err != nil {
			log.Printf("broadcast publish failed: %v", err)
			g.deliverBroadcast(payload)
		}
		return
	}
	g.deliverBroadcast(payload)
}

// IsOnline reports whether the user has a live connection on any instance.
func (g *Gateway) IsOnline(ctx context.Context, userID uint) bool {
	if g.presence != nil {
		return g.presence.IsOnline(ctx, userID)
	}
	return g.registry.Lookup(userID) != nil
}

// OnlineUserIDs returns the currently online users across instances.
func (g *Gateway) OnlineUserIDs(ctx context.Context) []uint {
	if g.presence != nil {
		return g.presence.GetOnlineUserIDs(ctx)
	}
	return g.registry.OnlineUserIDs()
}

// StartWiring subscribes the gateway to the Redis fan-out channels. Every
// instance delivers incoming events to its locally connected sockets.
func (g *Gateway) StartWiring(ctx context.Context) error {
	if !g.notifier.Enabled() {
		return nil
	}
	return g.notifier.StartPatternSubscriber(ctx, func(channel, payload string) {
		kind, userID, roomID, ok := ParseChannel(channel)
		if !ok {
			log.Printf("invalid realtime channel: %s", channel)
			return
		}
		data := []byte(payload)
		switch kind {
		case "user":
			g.deliverToUser(userID, data)
		case "room":
			g.deliverToRoom(roomID, data)
		case "broadcast":
			g.deliverBroadcast(data)
		}
	})
}

// Shutdown gracefully closes all websocket connections.
func (g *Gateway) Shutdown(_ context.Context) error {
	if g.presence != nil {
		g.presence.Stop()
	}

	for _, userID := range g.registry.OnlineUserIDs() {
		client := g.registry.Lookup(userID)
		if client == nil || client.Conn == nil {
			continue
		}
		if err := client.Conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
			log.Printf("failed to write close message for user %d: %v", userID, err)
		}
		if err := client.Conn.Close(); err != nil {
			log.Printf("failed to close websocket for user %d: %v", userID, err)
		}
	}
	return nil
}

func (g *Gateway) deliverToUser(userID uint, payload []byte) {
	if client := g.registry.Lookup(userID); client != nil {
		client.TrySend(payload)
	}
}

func (g *Gateway) deliverToRoom(roomID string, payload []byte) {
	for _, userID := range g.registry.RoomMembers(roomID) {
		g.deliverToUser(userID, payload)
	}
}

func (g *Gateway) deliverBroadcast(payload []byte) {
	for _, userID := range g.registry.OnlineUserIDs() {
		g.deliverToUser(userID, payload)
	}
}

// handleIncoming dispatches one inbound frame. Errors never terminate the
// connection; they surface to that connection only via an error event.
func (g *Gateway) handleIncoming(c *Client, raw []byte) {
	var event Event
	if err := json.Unmarshal(raw, &event); err != nil {
		c.TrySend(NewErrorEvent("malformed event").Encode())
		return
	}

	switch event.Type {
	case EventPing:
		c.TrySend(NewPongEvent().Encode())

	case EventJoinRoom:
		var p RoomPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.RoomID == "" {
			c.TrySend(NewErrorEvent("join_room requires room_id").Encode())
			return
		}
		g.registry.JoinRoom(p.RoomID, c.UserID)
		observability.RoomSubscriptions.WithLabelValues("conversation").Inc()
		g.EmitToRoom(context.Background(), p.RoomID, NewUserJoinedEvent(p.RoomID, c.UserID))

	case EventLeaveRoom:
		var p RoomPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.RoomID == "" {
			c.TrySend(NewErrorEvent("leave_room requires room_id").Encode())
			return
		}
		g.registry.LeaveRoom(p.RoomID, c.UserID)
		observability.RoomSubscriptions.WithLabelValues("conversation").Dec()
		g.EmitToRoom(context.Background(), p.RoomID, NewUserLeftEvent(p.RoomID, c.UserID))

	case EventTyping:
		var p TypingPayload
		if err := json.Unmarshal(event.Payload, &p); err != nil || p.ConversationID == 0 {
			c.TrySend(NewErrorEvent("typing requires conversation_id").Encode())
			return
		}
		// Sender identity comes from the connection, never the payload
		p.UserID = c.UserID
		g.EmitToRoom(context.Background(), ConversationRoom(p.ConversationID),
			newEvent(EventTyping, p))

	default:
		c.TrySend(NewErrorEvent("unknown event type").Encode())
	}
}

// Presence transitions go to the user's personal room, not to every socket.
// Interested clients (friend lists, open conversations) join user:<id> to
// watch that user; everyone else is spared the fan-out.
func (g *Gateway) handleUserOnline(userID uint) {
	if g.onPresenceChange != nil {
		g.onPresenceChange(userID, models.PresenceOnline)
	}
	g.EmitToRoom(context.Background(), PersonalRoom(userID), NewUserStatusEvent(userID, models.PresenceOnline))
}

func (g *Gateway) handleUserOffline(userID uint) {
	if g.onPresenceChange != nil {
		g.onPresenceChange(userID, models.PresenceOffline)
	}
	g.EmitToRoom(context.Background(), PersonalRoom(userID), NewUserStatusEvent(userID, models.PresenceOffline))
}
