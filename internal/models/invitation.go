package models

import (
	"time"

	"gorm.io/gorm"
)

// InvitationStatus represents the lifecycle state of a friend invitation.
type InvitationStatus string

const (
	// InvitationStatusPending indicates the receiver has not responded yet.
	InvitationStatusPending InvitationStatus = "pending"
	// InvitationStatusAccepted is terminal; a Friendship was created.
	InvitationStatusAccepted InvitationStatus = "accepted"
	// InvitationStatusRejected is terminal; the receiver declined.
	InvitationStatusRejected InvitationStatus = "rejected"
	// InvitationStatusCancelled is terminal; the sender withdrew it.
	InvitationStatusCancelled InvitationStatus = "cancelled"
)

// IsTerminal reports whether the status is immutable.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusAccepted || s == InvitationStatusRejected || s == InvitationStatusCancelled
}

// FriendInvitation is a directed request to establish a Friendship.
// At most one pending invitation may exist between a pair, in either direction.
// PairLowID/PairHighID hold the canonically ordered pair so the partial unique
// index (scoped to status = 'pending') enforces that under concurrent inserts;
// the conditional status update in the repository guards resolution races.
type FriendInvitation struct {
	ID         uint             `gorm:"primaryKey" json:"id"`
	SenderID   uint             `gorm:"not null;index:idx_invitation_pair" json:"sender_id"`
	ReceiverID uint             `gorm:"not null;index:idx_invitation_pair" json:"receiver_id"`
	PairLowID  uint             `gorm:"not null;index:idx_invitation_pending_pair,unique,where:status = 'pending'" json:"-"`
	PairHighID uint             `gorm:"not null;index:idx_invitation_pending_pair,unique,where:status = 'pending'" json:"-"`
	Status     InvitationStatus `gorm:"type:varchar(10);default:'pending';index" json:"status"`
	Message    string           `json:"message,omitempty"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
	RejectedAt *time.Time       `json:"rejected_at,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`

	Sender   User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

// TableName specifies the table name for GORM
func (FriendInvitation) TableName() string {
	return "friend_invitations"
}

// BeforeCreate derives the canonical pair columns from sender and receiver.
func (i *FriendInvitation) BeforeCreate(_ *gorm.DB) error {
	i.PairLowID, i.PairHighID = CanonicalPair(i.SenderID, i.ReceiverID)
	return nil
}
