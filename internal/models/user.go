// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"gorm.io/gorm"
)

// PresenceStatus represents a user's realtime availability.
type PresenceStatus string

const (
	// PresenceOnline indicates the user has an active connection.
	PresenceOnline PresenceStatus = "online"
	// PresenceOffline indicates the user has no active connection.
	PresenceOffline PresenceStatus = "offline"
	// PresenceAway indicates the user is connected but idle.
	PresenceAway PresenceStatus = "away"
)

// User represents a registered account.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Username  string         `gorm:"unique;not null" json:"username"`
	Email     string         `gorm:"unique;not null" json:"email"`
	Password  string         `gorm:"not null" json:"-"`
	Avatar    string         `json:"avatar"`
	Status    PresenceStatus `gorm:"type:varchar(10);default:'offline'" json:"status"`
	LastSeen  *time.Time     `json:"last_seen,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// UserSearchResult is a search hit annotated with the searcher's relationship
// to the user ("active", "blocked", "sent_pending", "received_pending", ...).
type UserSearchResult struct {
	User
	RelationshipStatus string `json:"relationship_status"`
}
