package profiles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/secretfriends/backend/internal/logging"
	"github.com/secretfriends/backend/internal/metrics"
)

const cacheKeyPrefix = "secretfriends:profile:"

type cachedProfile struct {
	SecretMessage *string `json:"m"`
}

// CachedStore is a Redis cache in front of another Store. Reads fill missing
// entries only if absent and writes overwrite them. Redis failures are logged
// and the backing store answers instead.
type CachedStore struct {
	base   Store
	client redis.Cmdable
	ttl    time.Duration
}

// NewCachedStore wraps base with a Redis cache whose entries live for ttl.
func NewCachedStore(base Store, client redis.Cmdable, ttl time.Duration) *CachedStore {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedStore{base: base, client: client, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and verifies the server answers.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func cacheKey(userID string) string {
	return cacheKeyPrefix + userID
}

// GetSecretMessage serves from Redis when possible and populates it on a miss.
func (c *CachedStore) GetSecretMessage(ctx context.Context, userID string) (*string, error) {
	logger := logging.FromContext(ctx)
	key := cacheKey(userID)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var entry cachedProfile
		if jsonErr := json.Unmarshal(raw, &entry); jsonErr == nil {
			metrics.ProfileCacheResults.WithLabelValues("hit").Inc()
			return entry.SecretMessage, nil
		}
		metrics.ProfileCacheResults.WithLabelValues("error").Inc()
		logger.Warn("discarding malformed profile cache entry", "userId", userID)
		c.invalidate(ctx, userID)
	case errors.Is(err, redis.Nil):
		metrics.ProfileCacheResults.WithLabelValues("miss").Inc()
	default:
		metrics.ProfileCacheResults.WithLabelValues("error").Inc()
		logger.Warn("profile cache read failed", "userId", userID, "error", err)
		return c.base.GetSecretMessage(ctx, userID)
	}

	message, err := c.base.GetSecretMessage(ctx, userID)
	if err != nil {
		return nil, err
	}

	// NX: a concurrent write has already stored a newer value.
	payload, err := json.Marshal(cachedProfile{SecretMessage: message})
	if err == nil {
		if err := c.client.SetNX(ctx, key, payload, c.ttl).Err(); err != nil {
			logger.Warn("profile cache fill failed", "userId", userID, "error", err)
		}
	}

	return message, nil
}

// SetSecretMessage writes to the backing store and then overwrites the cached entry.
func (c *CachedStore) SetSecretMessage(ctx context.Context, userID, message string) error {
	if err := c.base.SetSecretMessage(ctx, userID, message); err != nil {
		return err
	}
	c.writeThrough(ctx, userID, &message)
	return nil
}

// DeleteProfile removes the profile and caches its absence.
func (c *CachedStore) DeleteProfile(ctx context.Context, userID string) error {
	if err := c.base.DeleteProfile(ctx, userID); err != nil {
		return err
	}
	c.writeThrough(ctx, userID, nil)
	return nil
}

// writeThrough replaces the cached entry unconditionally so that a slower
// read-through fill cannot leave an older value behind. If the write fails
// the entry is deleted instead.
func (c *CachedStore) writeThrough(ctx context.Context, userID string, message *string) {
	payload, err := json.Marshal(cachedProfile{SecretMessage: message})
	if err == nil {
		err = c.client.Set(ctx, cacheKey(userID), payload, c.ttl).Err()
		if err == nil {
			return
		}
	}
	logging.FromContext(ctx).Warn("profile cache write failed", "userId", userID, "error", err)
	c.invalidate(ctx, userID)
}

func (c *CachedStore) invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, cacheKey(userID)).Err(); err != nil {
		logging.FromContext(ctx).Warn("profile cache invalidation failed", "userId", userID, "error", err)
	}
}
