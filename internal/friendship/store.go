package friendship

import (
	"context"
	"time"

	"github.com/secretfriends/backend/internal/models"
)

// Store persists friend edges. Implementations must make Insert atomic with the
// unordered-pair uniqueness check and must report a violation as repositories.ErrConflict.
// Accept and the delete operations report a missing or non-matching edge as
// repositories.ErrNotFound.
type Store interface {
	Insert(ctx context.Context, edge models.FriendEdge) error
	Accept(ctx context.Context, edgeID, recipient string, respondedAt time.Time) (models.FriendEdge, error)
	DeletePending(ctx context.Context, requester, recipient string) error
	DeleteForParticipant(ctx context.Context, edgeID, userID string) error
	ListForUser(ctx context.Context, userID string) ([]models.FriendEdge, error)
}

// Directory resolves identities known to the identity provider.
type Directory interface {
	Lookup(ctx context.Context, userID string) (models.DirectoryEntry, error)
	ListAllUsers(ctx context.Context) ([]models.DirectoryEntry, error)
}
