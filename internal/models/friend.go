package models

import "time"

// FriendStatus defines the state of a directed friend edge.
type FriendStatus string

const (
	// StatusPending means a friend request has been sent but not yet accepted.
	// A pending edge exists only in the direction of the original request.
	StatusPending FriendStatus = "pending"

	// StatusAccepted means the request was accepted. Accepted edges always
	// come in reciprocal pairs: (A,B) accepted implies (B,A) accepted.
	StatusAccepted FriendStatus = "accepted"
)

// Friend is one directed relationship edge between two users.
// The composite primary key (UserID, FriendID) ensures at most one edge
// per ordered pair.
type Friend struct {
	UserID    string       `gorm:"type:uuid;primaryKey"`
	FriendID  string       `gorm:"type:uuid;primaryKey"`
	Status    FriendStatus `gorm:"type:varchar(20);not null"`
	CreatedAt time.Time
	UpdatedAt time.Time

	User       User `gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	FriendUser User `gorm:"foreignKey:FriendID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}
