package models

import (
	"time"

	"gorm.io/gorm"
)

// FriendshipStatus represents the state of an established friendship.
type FriendshipStatus string

const (
	// FriendshipStatusActive indicates a normal friendship.
	FriendshipStatusActive FriendshipStatus = "active"
	// FriendshipStatusBlocked indicates one party blocked the other.
	FriendshipStatusBlocked FriendshipStatus = "blocked"
)

// Friendship is a symmetric relation between two users. The pair is stored in
// canonical order (UserAID < UserBID) so the composite unique index guarantees
// at most one row per unordered pair.
type Friendship struct {
	ID                uint             `gorm:"primaryKey" json:"id"`
	UserAID           uint             `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"user_a_id"`
	UserBID           uint             `gorm:"not null;uniqueIndex:idx_friendship_pair" json:"user_b_id"`
	Status            FriendshipStatus `gorm:"type:varchar(10);default:'active';index" json:"status"`
	BlockedBy         *uint            `json:"blocked_by,omitempty"`
	LastInteractionAt *time.Time       `json:"last_interaction_at,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         gorm.DeletedAt   `gorm:"index" json:"-"`

	UserA User `gorm:"foreignKey:UserAID" json:"user_a,omitempty"`
	UserB User `gorm:"foreignKey:UserBID" json:"user_b,omitempty"`
}

// TableName specifies the table name for GORM
func (Friendship) TableName() string {
	return "friendships"
}

// CanonicalPair returns the two user IDs in storage order.
func CanonicalPair(userID1, userID2 uint) (uint, uint) {
	if userID1 > userID2 {
		return userID2, userID1
	}
	return userID1, userID2
}

// BeforeCreate enforces canonical pair ordering.
func (f *Friendship) BeforeCreate(_ *gorm.DB) error {
	if f.UserAID > f.UserBID {
		f.UserAID, f.UserBID = f.UserBID, f.UserAID
	}
	return nil
}

// OtherUserID returns the peer of userID in this friendship.
func (f *Friendship) OtherUserID(userID uint) uint {
	if f.UserAID == userID {
		return f.UserBID
	}
	return f.UserAID
}

// Involves reports whether userID is one of the two parties.
func (f *Friendship) Involves(userID uint) bool {
	return f.UserAID == userID || f.UserBID == userID
}
