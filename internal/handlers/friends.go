package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/friendship"
	"github.com/secretfriends/backend/internal/logging"
	"github.com/secretfriends/backend/internal/models"
	"github.com/secretfriends/backend/internal/roster"
)

// FriendHandler exposes friend requests and the roster views.
// The acting user always comes from the authenticated context.
type FriendHandler struct {
	Relationships RelationshipService
	Roster        RosterViews
}

type sendRequest struct {
	RecipientID string `json:"recipientId" validate:"required"`
}

type requestResponse struct {
	Request models.FriendEdge `json:"request"`
}

type friendsResponse struct {
	Friends []roster.FriendEntry `json:"friends"`
}

type pendingResponse struct {
	Requests []roster.PendingEntry `json:"requests"`
}

type candidatesResponse struct {
	Candidates []roster.Candidate `json:"candidates"`
}

// Send handles POST /api/v1/friends/requests.
func (h FriendHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	edge, err := h.Relationships.SendRequest(ctx, auth.UserIDFromContext(ctx), req.RecipientID)
	if err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusCreated, requestResponse{Request: edge})
}

// Cancel handles DELETE /api/v1/friends/requests/outgoing/{recipientId}.
func (h FriendHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Relationships.CancelRequest(ctx, auth.UserIDFromContext(ctx), mux.Vars(r)["recipientId"]); err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Accept handles POST /api/v1/friends/requests/{id}/accept.
func (h FriendHandler) Accept(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	edge, err := h.Relationships.AcceptRequest(ctx, mux.Vars(r)["id"], auth.UserIDFromContext(ctx))
	if err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, requestResponse{Request: edge})
}

// Decline handles POST /api/v1/friends/requests/{id}/decline and
// DELETE /api/v1/friends/{id}; both remove the edge.
func (h FriendHandler) Decline(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Relationships.DeclineRequest(ctx, mux.Vars(r)["id"], auth.UserIDFromContext(ctx)); err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Friends handles GET /api/v1/friends.
func (h FriendHandler) Friends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.Roster.FriendsView(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, friendsResponse{Friends: entries})
}

// Pending handles GET /api/v1/friends/pending.
func (h FriendHandler) Pending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	entries, err := h.Roster.PendingView(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, pendingResponse{Requests: entries})
}

// Candidates handles GET /api/v1/friends/candidates?q=.
func (h FriendHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	candidates, err := h.Relationships.ListCandidates(ctx, auth.UserIDFromContext(ctx), strings.TrimSpace(r.URL.Query().Get("q")))
	if err != nil {
		respondRelationshipError(w, r, err)
		return
	}

	respondJSON(ctx, w, http.StatusOK, candidatesResponse{Candidates: candidates})
}

func respondRelationshipError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	switch {
	case errors.Is(err, friendship.ErrValidation):
		respondError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, friendship.ErrAlreadyRequestedOrFriends):
		respondError(ctx, w, http.StatusConflict, friendship.ErrAlreadyRequestedOrFriends.Error())
	case errors.Is(err, friendship.ErrNotAuthorizedOrNotFound):
		respondError(ctx, w, http.StatusNotFound, friendship.ErrNotAuthorizedOrNotFound.Error())
	default:
		logging.FromContext(ctx).Error("relationship operation failed", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "relationship service unavailable")
	}
}
