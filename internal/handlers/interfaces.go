package handlers

import (
	"context"

	"github.com/secretfriends/backend/internal/models"
	"github.com/secretfriends/backend/internal/roster"
)

// UserStore captures the persistence operations required by the auth and account handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByEmail(ctx context.Context, email string) (models.User, error)
	FindByID(ctx context.Context, id string) (models.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionManager issues, refreshes and revokes authentication tokens for users.
type SessionManager interface {
	Issue(ctx context.Context, userID string) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Revoke(ctx context.Context, refreshToken string)
	RevokeAll(ctx context.Context, userID string) error
}

// RelationshipService performs friend request transitions on behalf of the caller.
type RelationshipService interface {
	SendRequest(ctx context.Context, requester, recipient string) (models.FriendEdge, error)
	CancelRequest(ctx context.Context, requester, recipient string) error
	AcceptRequest(ctx context.Context, edgeID, actingUser string) (models.FriendEdge, error)
	DeclineRequest(ctx context.Context, edgeID, actingUser string) error
	ListCandidates(ctx context.Context, viewer, query string) ([]roster.Candidate, error)
}

// RosterViews builds the friends and pending lists shown to a viewer.
type RosterViews interface {
	FriendsView(ctx context.Context, viewer string) ([]roster.FriendEntry, error)
	PendingView(ctx context.Context, viewer string) ([]roster.PendingEntry, error)
}

// ProfileStore reads and writes secret messages.
type ProfileStore interface {
	GetSecretMessage(ctx context.Context, userID string) (*string, error)
	SetSecretMessage(ctx context.Context, userID, message string) error
	DeleteProfile(ctx context.Context, userID string) error
}

// DirectoryCache is told when the set of accounts changes.
type DirectoryCache interface {
	Invalidate()
}
