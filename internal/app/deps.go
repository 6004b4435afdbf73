package app

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/config"
	"github.com/secretfriends/backend/internal/db"
	"github.com/secretfriends/backend/internal/directory"
	"github.com/secretfriends/backend/internal/friendship"
	"github.com/secretfriends/backend/internal/handlers"
	"github.com/secretfriends/backend/internal/middleware"
	"github.com/secretfriends/backend/internal/profiles"
	"github.com/secretfriends/backend/internal/repositories"
	"github.com/secretfriends/backend/internal/roster"
)

var (
	_ friendship.Store = (*repositories.PostgresFriendRepository)(nil)
	_ profiles.Store   = (*repositories.PostgresProfileRepository)(nil)
	_ directory.Source = (*repositories.PostgresUserRepository)(nil)
)

// buildDependencies wires together concrete implementations used by the HTTP handlers.
// The returned cleanup releases clients opened here; the pool stays owned by the caller.
func buildDependencies(ctx context.Context, pool db.Pool, cfg config.Config, logger *slog.Logger) (handlers.Dependencies, func(context.Context) error, error) {
	var closers []func() error
	cleanup := func(context.Context) error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		return errors.Join(errs...)
	}

	proxies, err := middleware.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return handlers.Dependencies{}, nil, err
	}

	users := repositories.NewPostgresUserRepository(pool)
	edges := repositories.NewPostgresFriendRepository(pool)
	sessions := auth.NewManager([]byte(cfg.JWTSecret), cfg.AccessTTL, cfg.RefreshTTL, repositories.NewPostgresSessionStore(pool))
	dir := directory.NewCached(users, cfg.DirectoryCacheTTL)

	var profileStore profiles.Store
	switch cfg.ProfileBackend {
	case config.ProfileBackendDynamoDB:
		client, err := profiles.NewDynamoClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return handlers.Dependencies{}, nil, err
		}
		profileStore = profiles.NewDynamoStore(client, cfg.DynamoDBTable)
	default:
		profileStore = repositories.NewPostgresProfileRepository(pool)
	}

	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("profile cache disabled", "error", err)
		} else {
			closers = append(closers, client.Close)
			profileStore = profiles.NewCachedStore(profileStore, client, cfg.ProfileCacheTTL)
		}
	}

	deps := handlers.Dependencies{
		Users:         users,
		Sessions:      sessions,
		Tokens:        sessions,
		Profiles:      profileStore,
		Directory:     dir,
		Relationships: friendship.NewService(edges, dir),
		Roster:        roster.NewBuilder(edges, profileStore, dir, cfg.RosterConcurrency),
		RateLimiter:   middleware.NewKeyedRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow, cfg.RateLimitBurst, 10*time.Minute),
		Health:        handlers.HealthHandler{Ping: pingDatabase(pool)},
		CORSOrigins:   cfg.CORSOrigins,
		Proxies:       proxies,
	}

	return deps, cleanup, nil
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return profiles.NewRedisClient(ctx, url)
}

func pingDatabase(pool db.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		return db.Ping(ctx, pool)
	}
}
