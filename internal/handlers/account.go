package handlers

import (
	"errors"
	"net/http"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/logging"
	"github.com/secretfriends/backend/internal/repositories"
)

// AccountHandler serves the authenticated user's own account.
type AccountHandler struct {
	Users     UserStore
	Sessions  SessionManager
	Profiles  ProfileStore
	Directory DirectoryCache
}

// Me handles GET /api/v1/me.
func (h AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := auth.UserIDFromContext(ctx)

	user, err := h.Users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "account not found")
			return
		}
		logging.FromContext(ctx).Error("load account failed", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "account service unavailable")
		return
	}

	respondJSON(ctx, w, http.StatusOK, userResponse{ID: user.ID, Email: user.Email})
}

// Delete handles DELETE /api/v1/me. Edges, sessions and the profile go with the account.
func (h AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)
	userID := auth.UserIDFromContext(ctx)

	if err := h.Users.Delete(ctx, userID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "account not found")
			return
		}
		logger.Error("delete account failed", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "account service unavailable")
		return
	}

	if h.Profiles != nil {
		if err := h.Profiles.DeleteProfile(ctx, userID); err != nil {
			logger.Warn("delete profile after account removal failed", "error", err)
		}
	}
	if h.Sessions != nil {
		if err := h.Sessions.RevokeAll(ctx, userID); err != nil {
			logger.Warn("revoke sessions after account removal failed", "error", err)
		}
	}
	if h.Directory != nil {
		h.Directory.Invalidate()
	}

	logger.Info("account deleted")
	w.WriteHeader(http.StatusNoContent)
}
