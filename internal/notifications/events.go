package notifications

import (
	"encoding/json"

	"parley/internal/models"
)

// EventType names a realtime event. The set is closed: every payload shape is
// defined here and nowhere else, so clients can switch exhaustively on Type.
type EventType string

const (
	// Client -> server
	EventJoinRoom  EventType = "join_room"
	EventLeaveRoom EventType = "leave_room"
	EventPing      EventType = "ping"
	EventTyping    EventType = "typing"

	// Server -> client
	EventPong                EventType = "pong"
	EventConnectedUsers      EventType = "connected_users"
	EventUserStatus          EventType = "user_status"
	EventUserJoined          EventType = "user_joined"
	EventUserLeft            EventType = "user_left"
	EventNewMessage          EventType = "new_message"
	EventMessageStatusUpdate EventType = "message_status_update"
	EventMessageEdited       EventType = "message_edited"
	EventMessageDeleted      EventType = "message_deleted"
	EventFriendInvited       EventType = "friend_invited"
	EventFriendAccepted      EventType = "friend_accepted"
	EventFriendRejected      EventType = "friend_rejected"
	EventFriendCancelled     EventType = "friend_cancelled"
	EventFriendRemoved       EventType = "friend_removed"
	EventError               EventType = "error"
)

// Event is the envelope every frame on the realtime channel uses.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Encode marshals the event for transmission. Marshal of the fixed payload
// shapes below cannot fail, so errors only indicate a programming bug.
func (e Event) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"error","payload":{"message":"encoding failure"}}`)
	}
	return data
}

func newEvent(t EventType, payload interface{}) Event {
	if payload == nil {
		return Event{Type: t}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{Type: EventError, Payload: json.RawMessage(`{"message":"encoding failure"}`)}
	}
	return Event{Type: t, Payload: data}
}

// RoomPayload accompanies join_room/leave_room requests and
// user_joined/user_left notifications.
type RoomPayload struct {
	RoomID string `json:"room_id"`
	UserID uint   `json:"user_id,omitempty"`
}

// ConnectedUsersPayload accompanies the connected_users snapshot sent right
// after a successful handshake.
type ConnectedUsersPayload struct {
	UserIDs []uint `json:"user_ids"`
}

// UserStatusPayload accompanies user_status events.
type UserStatusPayload struct {
	UserID uint                  `json:"user_id"`
	Status models.PresenceStatus `json:"status"`
}

// MessageStatusPayload accompanies message_status_update events.
type MessageStatusPayload struct {
	ConversationID uint                 `json:"conversation_id"`
	MessageIDs     []uint               `json:"message_ids"`
	Status         models.MessageStatus `json:"status"`
	ReaderID       uint                 `json:"reader_id"`
}

// MessageDeletedPayload accompanies message_deleted events.
type MessageDeletedPayload struct {
	ConversationID uint `json:"conversation_id"`
	MessageID      uint `json:"message_id"`
}

// TypingPayload accompanies typing events.
type TypingPayload struct {
	ConversationID uint   `json:"conversation_id"`
	UserID         uint   `json:"user_id"`
	Username       string `json:"username,omitempty"`
	IsTyping       bool   `json:"is_typing"`
}

// InvitationPayload accompanies friend_* invitation lifecycle events.
type InvitationPayload struct {
	InvitationID uint   `json:"invitation_id"`
	SenderID     uint   `json:"sender_id"`
	ReceiverID   uint   `json:"receiver_id"`
	Message      string `json:"message,omitempty"`
}

// FriendRemovedPayload accompanies friend_removed events.
type FriendRemovedPayload struct {
	UserID uint `json:"user_id"`
}

// ErrorPayload accompanies error events. Message is safe for display.
type ErrorPayload struct {
	Message string `json:"message"`
}

// NewPongEvent answers a ping.
func NewPongEvent() Event {
	return newEvent(EventPong, nil)
}

// NewConnectedUsersEvent carries the initial who-is-online snapshot.
func NewConnectedUsersEvent(userIDs []uint) Event {
	return newEvent(EventConnectedUsers, ConnectedUsersPayload{UserIDs: userIDs})
}

// NewUserStatusEvent announces a presence transition.
func NewUserStatusEvent(userID uint, status models.PresenceStatus) Event {
	return newEvent(EventUserStatus, UserStatusPayload{UserID: userID, Status: status})
}

// NewUserJoinedEvent announces a room join to existing members.
func NewUserJoinedEvent(roomID string, userID uint) Event {
	return newEvent(EventUserJoined, RoomPayload{RoomID: roomID, UserID: userID})
}

// NewUserLeftEvent announces a room leave to remaining members.
func NewUserLeftEvent(roomID string, userID uint) Event {
	return newEvent(EventUserLeft, RoomPayload{RoomID: roomID, UserID: userID})
}

// NewMessageEvent carries a freshly persisted message.
func NewMessageEvent(message *models.Message) Event {
	return newEvent(EventNewMessage, message)
}

// NewMessageEditedEvent carries the updated message after an edit.
func NewMessageEditedEvent(message *models.Message) Event {
	return newEvent(EventMessageEdited, message)
}

// NewMessageStatusEvent announces read-status transitions for a batch of messages.
func NewMessageStatusEvent(conversationID uint, messageIDs []uint, status models.MessageStatus, readerID uint) Event {
	return newEvent(EventMessageStatusUpdate, MessageStatusPayload{
		ConversationID: conversationID,
		MessageIDs:     messageIDs,
		Status:         status,
		ReaderID:       readerID,
	})
}

// NewMessageDeletedEvent announces a message removal.
func NewMessageDeletedEvent(conversationID, messageID uint) Event {
	return newEvent(EventMessageDeleted, MessageDeletedPayload{
		ConversationID: conversationID,
		MessageID:      messageID,
	})
}

// NewTypingEvent relays a typing indicator to a conversation room.
func NewTypingEvent(conversationID, userID uint, username string, isTyping bool) Event {
	return newEvent(EventTyping, TypingPayload{
		ConversationID: conversationID,
		UserID:         userID,
		Username:       username,
		IsTyping:       isTyping,
	})
}

// NewInvitationEvent builds one of the friend_* lifecycle events.
func NewInvitationEvent(t EventType, invitation *models.FriendInvitation) Event {
	return newEvent(t, InvitationPayload{
		InvitationID: invitation.ID,
		SenderID:     invitation.SenderID,
		ReceiverID:   invitation.ReceiverID,
		Message:      invitation.Message,
	})
}

// NewFriendRemovedEvent tells a user their friendship with userID ended.
func NewFriendRemovedEvent(userID uint) Event {
	return newEvent(EventFriendRemoved, FriendRemovedPayload{UserID: userID})
}

// NewErrorEvent surfaces a non-fatal error to one connection.
func NewErrorEvent(message string) Event {
	return newEvent(EventError, ErrorPayload{Message: message})
}
