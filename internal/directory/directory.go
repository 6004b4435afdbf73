// Package directory enumerates registered accounts for the relationship and roster layers.
package directory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/secretfriends/backend/internal/models"
)

// ErrUnavailable indicates the directory has no backing source configured.
var ErrUnavailable = errors.New("user directory unavailable")

// Source reads accounts from durable storage.
type Source interface {
	FindByID(ctx context.Context, id string) (models.User, error)
	ListAll(ctx context.Context) ([]models.DirectoryEntry, error)
}

// Cached wraps a Source with a TTL-based in-memory snapshot of the full listing.
// Single lookups always go to the source so existence checks see fresh data.
type Cached struct {
	source Source
	ttl    time.Duration
	now    func() time.Time

	mu       sync.RWMutex
	snapshot []models.DirectoryEntry
	expires  time.Time
	// generation is bumped by Invalidate; a listing started under an older
	// generation is returned but not stored.
	generation uint64
}

// NewCached returns a directory that caches ListAllUsers for the provided TTL.
// A non-positive TTL disables caching.
func NewCached(source Source, ttl time.Duration) *Cached {
	return &Cached{
		source: source,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Lookup resolves a single account. Missing accounts surface the source's not-found error.
func (c *Cached) Lookup(ctx context.Context, userID string) (models.DirectoryEntry, error) {
	if c == nil || c.source == nil {
		return models.DirectoryEntry{}, ErrUnavailable
	}

	user, err := c.source.FindByID(ctx, userID)
	if err != nil {
		return models.DirectoryEntry{}, err
	}
	return models.DirectoryEntry{ID: user.ID, Email: user.Email}, nil
}

// ListAllUsers returns every account, served from the snapshot while it is fresh.
// Callers must not modify the returned slice.
func (c *Cached) ListAllUsers(ctx context.Context) ([]models.DirectoryEntry, error) {
	if c == nil || c.source == nil {
		return nil, ErrUnavailable
	}

	now := c.now()

	c.mu.RLock()
	snapshot, expires, generation := c.snapshot, c.expires, c.generation
	c.mu.RUnlock()
	if snapshot != nil && now.Before(expires) {
		return snapshot, nil
	}

	entries, err := c.source.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.DirectoryEntry{}
	}

	if c.ttl > 0 {
		c.mu.Lock()
		if c.generation == generation {
			c.snapshot = entries
			c.expires = now.Add(c.ttl)
		}
		c.mu.Unlock()
	}

	return entries, nil
}

// Invalidate drops the cached listing, e.g. after an account is created or deleted.
func (c *Cached) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.snapshot = nil
	c.expires = time.Time{}
	c.generation++
	c.mu.Unlock()
}
