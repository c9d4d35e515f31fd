package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// ConversationType distinguishes direct (two-party) from group threads.
type ConversationType string

const (
	// ConversationDirect is a two-participant conversation.
	ConversationDirect ConversationType = "direct"
	// ConversationGroup is an N-participant conversation.
	ConversationGroup ConversationType = "group"
)

// Conversation represents a persistent message thread between a fixed
// participant set. LastMessageID is a denormalized snapshot of the most
// recent message; per-participant unread counters live on the join table.
type Conversation struct {
	ID            uint             `gorm:"primaryKey" json:"id"`
	Type          ConversationType `gorm:"type:varchar(10);default:'direct'" json:"type"`
	CreatedBy     uint             `json:"created_by"`
	LastMessageID *uint            `json:"last_message_id,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
	DeletedAt     gorm.DeletedAt   `gorm:"index" json:"-"`

	LastMessage  *Message                  `gorm:"foreignKey:LastMessageID" json:"last_message,omitempty"`
	Participants []ConversationParticipant `gorm:"foreignKey:ConversationID" json:"participants,omitempty"`

	// UnreadCount is the calling participant's counter, populated per query.
	UnreadCount int `gorm:"-" json:"unread_count"`
}

// HasParticipant reports whether userID is a current participant.
func (c *Conversation) HasParticipant(userID uint) bool {
	for _, p := range c.Participants {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// ConversationParticipant is the membership row carrying the per-participant
// unread counter. The counter is a derived cache over Message read state; see
// MessageService.ReconcileUnread for the repair path.
type ConversationParticipant struct {
	ConversationID uint       `gorm:"primaryKey" json:"conversation_id"`
	UserID         uint       `gorm:"primaryKey" json:"user_id"`
	UnreadCount    int        `gorm:"default:0" json:"unread_count"`
	LastReadAt     *time.Time `json:"last_read_at,omitempty"`
	JoinedAt       time.Time  `gorm:"autoCreateTime" json:"joined_at"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// TableName specifies the table name for GORM
func (ConversationParticipant) TableName() string {
	return "conversation_participants"
}

// MessageType enumerates supported message content kinds.
type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeAudio MessageType = "audio"
	MessageTypeVideo MessageType = "video"
)

// ValidMessageType reports whether t is a known message type.
func ValidMessageType(t MessageType) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeAudio, MessageTypeVideo:
		return true
	}
	return false
}

// MessageStatus is derived and monotonic: once any MessageRead row exists the
// status is "read" and never regresses to sent/delivered.
type MessageStatus string

const (
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
)

// Message belongs to exactly one conversation.
type Message struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	ConversationID uint            `gorm:"not null;index" json:"conversation_id"`
	SenderID       uint            `gorm:"not null;index" json:"sender_id"`
	Content        string          `gorm:"type:text;not null" json:"content"`
	Type           MessageType     `gorm:"type:varchar(10);default:'text'" json:"type"`
	ReplyToID      *uint           `json:"reply_to_id,omitempty"`
	FileMeta       json.RawMessage `gorm:"type:json" json:"file_meta,omitempty"`
	Status         MessageStatus   `gorm:"type:varchar(10);default:'sent'" json:"status"`
	IsEdited       bool            `gorm:"default:false" json:"is_edited"`
	EditedAt       *time.Time      `json:"edited_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	DeletedAt      gorm.DeletedAt  `gorm:"index" json:"-"`

	Sender  *User         `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	ReplyTo *Message      `gorm:"foreignKey:ReplyToID" json:"reply_to,omitempty"`
	ReadBy  []MessageRead `gorm:"foreignKey:MessageID" json:"read_by,omitempty"`
}

// ReadByUser reports whether userID has a read receipt on this message.
func (m *Message) ReadByUser(userID uint) bool {
	for _, r := range m.ReadBy {
		if r.UserID == userID {
			return true
		}
	}
	return false
}

// MessageRead is a read receipt; unique per (message, user).
type MessageRead struct {
	MessageID uint      `gorm:"primaryKey" json:"message_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	ReadAt    time.Time `json:"read_at"`
}

// TableName specifies the table name for GORM
func (MessageRead) TableName() string {
	return "message_reads"
}

// FileMeta describes an uploaded attachment referenced by a message.
type FileMeta struct {
	URL      string `json:"url"`
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MimeType string `json:"mime_type"`
}
