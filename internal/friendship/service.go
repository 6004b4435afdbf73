// Package friendship implements the friend request state machine.
//
// For every unordered pair of users there is at most one edge:
//
//	(no edge) --Send(A,B)--> Pending(req=A) --Accept(B)--> Accepted
//	Pending(req=A) --Cancel(A) | Decline(B)--> (no edge)
//	Accepted --Decline(A|B)--> (no edge)
//
// The Service is the only component that mutates the Store.
package friendship

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/secretfriends/backend/internal/logging"
	"github.com/secretfriends/backend/internal/metrics"
	"github.com/secretfriends/backend/internal/models"
	"github.com/secretfriends/backend/internal/repositories"
	"github.com/secretfriends/backend/internal/roster"
)

// Service enforces the relationship rules on top of a Store.
type Service struct {
	store     Store
	directory Directory
	now       func() time.Time
	newID     func() string
}

// NewService constructs a Service backed by the provided store and directory.
func NewService(store Store, directory Directory) *Service {
	if store == nil {
		panic("friendship: store must not be nil")
	}
	if directory == nil {
		panic("friendship: directory must not be nil")
	}
	return &Service{
		store:     store,
		directory: directory,
		now:       func() time.Time { return time.Now().UTC() },
		newID:     uuid.NewString,
	}
}

// SendRequest creates a pending edge from requester to recipient.
func (s *Service) SendRequest(ctx context.Context, requester, recipient string) (edge models.FriendEdge, err error) {
	ctx, span := logging.StartSpan(ctx, "friendship.send")
	defer span.End()
	defer func() { record(span, "send", err) }()

	requester = strings.TrimSpace(requester)
	recipient = strings.TrimSpace(recipient)
	if requester == "" || recipient == "" {
		return models.FriendEdge{}, fmt.Errorf("%w: requester and recipient are required", ErrValidation)
	}
	if requester == recipient {
		return models.FriendEdge{}, fmt.Errorf("%w: cannot send a friend request to yourself", ErrValidation)
	}

	if _, err := s.directory.Lookup(ctx, recipient); err != nil {
		return models.FriendEdge{}, translate("lookup recipient", err)
	}

	self, err := s.directory.Lookup(ctx, requester)
	if err != nil {
		return models.FriendEdge{}, translate("lookup requester", err)
	}

	edge = models.FriendEdge{
		ID:        s.newID(),
		Requester: requester,
		Recipient: recipient,
		Status:    models.EdgeStatusPending,
		Email:     self.Email,
		CreatedAt: s.now(),
	}

	if err := s.store.Insert(ctx, edge); err != nil {
		return models.FriendEdge{}, translate("insert edge", err)
	}

	logging.FromContext(ctx).Info("friend request sent", "edgeId", edge.ID, "requester", requester, "recipient", recipient)
	return edge, nil
}

// CancelRequest withdraws the pending request requester sent to recipient.
func (s *Service) CancelRequest(ctx context.Context, requester, recipient string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friendship.cancel")
	defer span.End()
	defer func() { record(span, "cancel", err) }()

	requester = strings.TrimSpace(requester)
	recipient = strings.TrimSpace(recipient)
	if requester == "" || recipient == "" {
		return fmt.Errorf("%w: requester and recipient are required", ErrValidation)
	}

	if err := s.store.DeletePending(ctx, requester, recipient); err != nil {
		return translate("delete pending edge", err)
	}

	logging.FromContext(ctx).Info("friend request cancelled", "requester", requester, "recipient", recipient)
	return nil
}

// AcceptRequest moves a pending edge to accepted. Only the recipient may accept,
// and an already accepted edge cannot be accepted again.
func (s *Service) AcceptRequest(ctx context.Context, edgeID, actingUser string) (edge models.FriendEdge, err error) {
	ctx, span := logging.StartSpan(ctx, "friendship.accept")
	defer span.End()
	defer func() { record(span, "accept", err) }()

	edgeID = strings.TrimSpace(edgeID)
	actingUser = strings.TrimSpace(actingUser)
	if edgeID == "" || actingUser == "" {
		return models.FriendEdge{}, fmt.Errorf("%w: request id and acting user are required", ErrValidation)
	}

	edge, err = s.store.Accept(ctx, edgeID, actingUser, s.now())
	if err != nil {
		return models.FriendEdge{}, translate("accept edge", err)
	}

	logging.FromContext(ctx).Info("friend request accepted", "edgeId", edge.ID, "recipient", actingUser)
	return edge, nil
}

// DeclineRequest deletes an edge the acting user is part of. It serves both for
// declining a pending request and for removing an accepted friend.
func (s *Service) DeclineRequest(ctx context.Context, edgeID, actingUser string) (err error) {
	ctx, span := logging.StartSpan(ctx, "friendship.decline")
	defer span.End()
	defer func() { record(span, "decline", err) }()

	edgeID = strings.TrimSpace(edgeID)
	actingUser = strings.TrimSpace(actingUser)
	if edgeID == "" || actingUser == "" {
		return fmt.Errorf("%w: request id and acting user are required", ErrValidation)
	}

	if err := s.store.DeleteForParticipant(ctx, edgeID, actingUser); err != nil {
		return translate("delete edge", err)
	}

	logging.FromContext(ctx).Info("friend edge removed", "edgeId", edgeID, "actor", actingUser)
	return nil
}

// ListCandidates returns the users viewer may send a request to, or cancel a
// request for. Accepted friends and incoming requests are excluded. A non-empty
// query keeps only candidates whose email or id contains it.
func (s *Service) ListCandidates(ctx context.Context, viewer, query string) (candidates []roster.Candidate, err error) {
	ctx, span := logging.StartSpan(ctx, "friendship.candidates")
	defer span.End()
	defer func() { record(span, "candidates", err) }()

	viewer = strings.TrimSpace(viewer)
	if viewer == "" {
		return nil, fmt.Errorf("%w: viewer is required", ErrValidation)
	}

	users, err := s.directory.ListAllUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list users: %w", ErrDependency, err)
	}

	edges, err := s.store.ListForUser(ctx, viewer)
	if err != nil {
		return nil, fmt.Errorf("%w: list edges: %w", ErrDependency, err)
	}

	return roster.FilterCandidates(roster.TagCandidates(viewer, users, edges), query), nil
}

// translate maps store and directory errors onto the package's error kinds.
func translate(op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrConflict):
		return ErrAlreadyRequestedOrFriends
	case errors.Is(err, repositories.ErrNotFound):
		return ErrNotAuthorizedOrNotFound
	default:
		return fmt.Errorf("%w: %s: %w", ErrDependency, op, err)
	}
}

func record(span *logging.Span, operation string, err error) {
	if errors.Is(err, ErrDependency) {
		span.RecordError(err)
	}
	metrics.RelationshipOperations.WithLabelValues(operation, Outcome(err)).Inc()
}

// Outcome names the error kind of err for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "invalid"
	case errors.Is(err, ErrAlreadyRequestedOrFriends):
		return "conflict"
	case errors.Is(err, ErrNotAuthorizedOrNotFound):
		return "not_found"
	default:
		return "dependency"
	}
}
