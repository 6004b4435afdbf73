package models

import "time"

// User represents an account within the SecretFriends platform.
type User struct {
	ID        string
	Email     string
	Password  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DirectoryEntry is the public view of an account used for candidate listings.
type DirectoryEntry struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// FriendEdge is a directed friend request between two users. Declined and
// cancelled requests are deleted rather than kept with a terminal status.
type FriendEdge struct {
	ID          string     `json:"id"`
	Requester   string     `json:"requesterId"`
	Recipient   string     `json:"recipientId"`
	Status      string     `json:"status"`
	Email       string     `json:"email,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	RespondedAt *time.Time `json:"respondedAt,omitempty"`
}

const (
	EdgeStatusPending  = "pending"
	EdgeStatusAccepted = "accepted"
)

// Peer returns the party on the other side of the edge from userID.
func (e FriendEdge) Peer(userID string) string {
	if e.Requester == userID {
		return e.Recipient
	}
	return e.Requester
}

// Involves reports whether userID is the requester or the recipient.
func (e FriendEdge) Involves(userID string) bool {
	return e.Requester == userID || e.Recipient == userID
}

// PairKey returns the canonical unordered key for two user identifiers.
func PairKey(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
