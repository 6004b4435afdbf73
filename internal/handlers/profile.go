package handlers

import (
	"net/http"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/logging"
	"github.com/secretfriends/backend/internal/profiles"
)

// ProfileHandler reads and updates the caller's secret message.
type ProfileHandler struct {
	Profiles ProfileStore
}

type secretMessageRequest struct {
	SecretMessage string `json:"secretMessage" validate:"required"`
}

type secretMessageResponse struct {
	SecretMessage *string `json:"secretMessage"`
}

// Get handles GET /api/v1/profile/secret-message.
func (h ProfileHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	message, err := h.Profiles.GetSecretMessage(ctx, auth.UserIDFromContext(ctx))
	if err != nil {
		logging.FromContext(ctx).Error("read secret message failed", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "profile service unavailable")
		return
	}

	respondJSON(ctx, w, http.StatusOK, secretMessageResponse{SecretMessage: message})
}

// Put handles PUT /api/v1/profile/secret-message.
func (h ProfileHandler) Put(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req secretMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	message, err := profiles.NormalizeMessage(req.SecretMessage)
	if err != nil {
		respondError(ctx, w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Profiles.SetSecretMessage(ctx, auth.UserIDFromContext(ctx), message); err != nil {
		logging.FromContext(ctx).Error("write secret message failed", "error", err)
		respondError(ctx, w, http.StatusServiceUnavailable, "profile service unavailable")
		return
	}

	respondJSON(ctx, w, http.StatusOK, secretMessageResponse{SecretMessage: &message})
}
