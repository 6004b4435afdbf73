package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/secretfriends/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Users         UserStore
	Sessions      SessionManager
	Tokens        middleware.TokenVerifier
	Profiles      ProfileStore
	Directory     DirectoryCache
	Relationships RelationshipService
	Roster        RosterViews
	RateLimiter   middleware.RateLimiter
	Health        HealthHandler
	CORSOrigins   []string
	Proxies       middleware.TrustedProxies
}

// NewRouter wires HTTP handlers into a gorilla/mux router wrapped with
// request logging and CORS.
func NewRouter(logger *slog.Logger, deps Dependencies) http.Handler {
	authHandler := AuthHandler{Users: deps.Users, Sessions: deps.Sessions, Directory: deps.Directory}
	account := AccountHandler{Users: deps.Users, Sessions: deps.Sessions, Profiles: deps.Profiles, Directory: deps.Directory}
	profile := ProfileHandler{Profiles: deps.Profiles}
	friends := FriendHandler{Relationships: deps.Relationships, Roster: deps.Roster}

	router := mux.NewRouter()

	router.HandleFunc("/healthz", deps.Health.Handle).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	authRoutes := api.PathPrefix("/auth").Subrouter()
	authRoutes.Use(middleware.RateLimit(deps.RateLimiter, "auth", deps.Proxies))
	authRoutes.HandleFunc("/signup", authHandler.SignUp).Methods(http.MethodPost)
	authRoutes.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)
	authRoutes.HandleFunc("/refresh", authHandler.Refresh).Methods(http.MethodPost)
	authRoutes.HandleFunc("/logout", authHandler.Logout).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(middleware.Authenticate(deps.Tokens))

	private.HandleFunc("/me", account.Me).Methods(http.MethodGet)
	private.HandleFunc("/me", account.Delete).Methods(http.MethodDelete)

	private.HandleFunc("/profile/secret-message", profile.Get).Methods(http.MethodGet)
	private.HandleFunc("/profile/secret-message", profile.Put).Methods(http.MethodPut)

	private.Handle("/friends/requests",
		middleware.RateLimit(deps.RateLimiter, "send", deps.Proxies)(http.HandlerFunc(friends.Send))).Methods(http.MethodPost)
	private.HandleFunc("/friends/requests/outgoing/{recipientId}", friends.Cancel).Methods(http.MethodDelete)
	private.HandleFunc("/friends/requests/{id}/accept", friends.Accept).Methods(http.MethodPost)
	private.HandleFunc("/friends/requests/{id}/decline", friends.Decline).Methods(http.MethodPost)
	private.HandleFunc("/friends/pending", friends.Pending).Methods(http.MethodGet)
	private.HandleFunc("/friends/candidates", friends.Candidates).Methods(http.MethodGet)
	private.HandleFunc("/friends/{id}", friends.Decline).Methods(http.MethodDelete)
	private.HandleFunc("/friends", friends.Friends).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(middleware.RequestLogger(logger)(router))
}
