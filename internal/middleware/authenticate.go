package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/logging"
)

// TokenVerifier resolves a bearer access token to the user it was issued to.
type TokenVerifier interface {
	Authenticate(accessToken string) (string, error)
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// places the caller's user id on the request context.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			userID, err := verifier.Authenticate(token)
			if err != nil {
				logging.FromContext(r.Context()).Info("rejected access token", "error", err)
				writeError(w, http.StatusUnauthorized, "invalid or expired access token")
				return
			}

			ctx := auth.WithUserID(r.Context(), userID)
			ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
