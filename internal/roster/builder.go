package roster

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/secretfriends/backend/internal/logging"
	"github.com/secretfriends/backend/internal/metrics"
	"github.com/secretfriends/backend/internal/models"
)

// ErrUnavailable indicates the relationship store could not be read.
var ErrUnavailable = errors.New("roster source unavailable")

const defaultConcurrency = 8

// EdgeLister returns every edge touching a user.
type EdgeLister interface {
	ListForUser(ctx context.Context, userID string) ([]models.FriendEdge, error)
}

// ProfileReader resolves a user's secret message. A nil message means none is set.
type ProfileReader interface {
	GetSecretMessage(ctx context.Context, userID string) (*string, error)
}

// Directory enumerates known users so views can show email addresses.
type Directory interface {
	ListAllUsers(ctx context.Context) ([]models.DirectoryEntry, error)
}

// FriendEntry is one accepted friend of the viewer.
type FriendEntry struct {
	EdgeID        string    `json:"edgeId"`
	Peer          string    `json:"peerId"`
	Email         string    `json:"email,omitempty"`
	SecretMessage *string   `json:"secretMessage"`
	Since         time.Time `json:"since"`
}

// PendingEntry is one friend request awaiting the viewer's response.
type PendingEntry struct {
	EdgeID    string    `json:"edgeId"`
	Peer      string    `json:"peerId"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Builder derives per-viewer views from the relationship store and profile store.
// It keeps no state between calls.
type Builder struct {
	edges       EdgeLister
	profiles    ProfileReader
	directory   Directory
	concurrency int
}

// NewBuilder constructs a Builder. directory may be nil, in which case emails are left blank.
func NewBuilder(edges EdgeLister, profiles ProfileReader, directory Directory, concurrency int) *Builder {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Builder{
		edges:       edges,
		profiles:    profiles,
		directory:   directory,
		concurrency: concurrency,
	}
}

// FriendsView lists the viewer's accepted friends with each friend's secret message.
// A failed profile lookup only blanks the message of the affected entry.
func (b *Builder) FriendsView(ctx context.Context, viewer string) ([]FriendEntry, error) {
	ctx, span := logging.StartSpan(ctx, "roster.friends_view")
	defer span.End()
	logger := logging.FromContext(ctx)

	edges, err := b.listEdges(ctx, viewer)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	entries := make([]FriendEntry, 0, len(edges))
	for _, edge := range edges {
		if edge.Status != models.EdgeStatusAccepted {
			continue
		}
		since := edge.CreatedAt
		if edge.RespondedAt != nil {
			since = *edge.RespondedAt
		}
		entries = append(entries, FriendEntry{
			EdgeID: edge.ID,
			Peer:   edge.Peer(viewer),
			Since:  since,
		})
	}

	if len(entries) == 0 {
		return entries, nil
	}

	emails := b.emails(ctx)

	var g errgroup.Group
	g.SetLimit(b.concurrency)
	for i := range entries {
		entry := &entries[i]
		entry.Email = emails[entry.Peer]

		if b.profiles == nil {
			continue
		}
		g.Go(func() error {
			message, err := b.profiles.GetSecretMessage(ctx, entry.Peer)
			if err != nil {
				metrics.ProfileLookupFailures.Inc()
				logger.Warn("secret message lookup failed", "peerId", entry.Peer, "error", err)
				return nil
			}
			entry.SecretMessage = message
			return nil
		})
	}
	_ = g.Wait()

	return entries, nil
}

// PendingView lists requests the viewer received and has not answered.
// Requests the viewer sent are not part of this view.
func (b *Builder) PendingView(ctx context.Context, viewer string) ([]PendingEntry, error) {
	ctx, span := logging.StartSpan(ctx, "roster.pending_view")
	defer span.End()

	edges, err := b.listEdges(ctx, viewer)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	entries := make([]PendingEntry, 0)
	for _, edge := range edges {
		if edge.Status != models.EdgeStatusPending || edge.Recipient != viewer {
			continue
		}
		entries = append(entries, PendingEntry{
			EdgeID:    edge.ID,
			Peer:      edge.Requester,
			Email:     edge.Email,
			CreatedAt: edge.CreatedAt,
		})
	}

	if len(entries) == 0 {
		return entries, nil
	}

	var emails map[string]string
	for i := range entries {
		if entries[i].Email != "" {
			continue
		}
		if emails == nil {
			emails = b.emails(ctx)
		}
		entries[i].Email = emails[entries[i].Peer]
	}

	return entries, nil
}

func (b *Builder) listEdges(ctx context.Context, viewer string) ([]models.FriendEdge, error) {
	if b.edges == nil {
		return nil, ErrUnavailable
	}
	edges, err := b.edges.ListForUser(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("%w: list edges: %w", ErrUnavailable, err)
	}
	return edges, nil
}

func (b *Builder) emails(ctx context.Context) map[string]string {
	out := make(map[string]string)
	if b.directory == nil {
		return out
	}
	users, err := b.directory.ListAllUsers(ctx)
	if err != nil {
		logging.FromContext(ctx).Warn("directory lookup failed, omitting emails", "error", err)
		return out
	}
	for _, user := range users {
		out[user.ID] = user.Email
	}
	return out
}
