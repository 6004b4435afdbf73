package friendship

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/secretfriends/backend/internal/models"
	"github.com/secretfriends/backend/internal/repositories"
)

type pairKey struct {
	low, high string
}

func keyFor(a, b string) pairKey {
	low, high := models.PairKey(a, b)
	return pairKey{low: low, high: high}
}

// NewInMemoryStore returns a Store backed by in-memory maps.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		edges: make(map[string]models.FriendEdge),
		pairs: make(map[pairKey]string),
	}
}

// InMemoryStore implements Store for tests and local development.
type InMemoryStore struct {
	mu    sync.Mutex
	edges map[string]models.FriendEdge
	pairs map[pairKey]string
}

// Insert stores a new edge unless the pair already has one.
func (s *InMemoryStore) Insert(_ context.Context, edge models.FriendEdge) error {
	key := keyFor(edge.Requester, edge.Recipient)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.pairs[key]; exists {
		return repositories.ErrConflict
	}
	if _, exists := s.edges[edge.ID]; exists {
		return repositories.ErrConflict
	}
	s.edges[edge.ID] = edge
	s.pairs[key] = edge.ID
	return nil
}

// Accept flips a pending edge addressed to recipient to accepted.
func (s *InMemoryStore) Accept(_ context.Context, edgeID, recipient string, respondedAt time.Time) (models.FriendEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok || edge.Recipient != recipient || edge.Status != models.EdgeStatusPending {
		return models.FriendEdge{}, repositories.ErrNotFound
	}
	edge.Status = models.EdgeStatusAccepted
	edge.RespondedAt = &respondedAt
	s.edges[edgeID] = edge
	return edge, nil
}

// DeletePending removes the pending edge requester sent to recipient.
func (s *InMemoryStore) DeletePending(_ context.Context, requester, recipient string) error {
	key := keyFor(requester, recipient)

	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.pairs[key]
	if !ok {
		return repositories.ErrNotFound
	}
	edge := s.edges[id]
	if edge.Requester != requester || edge.Status != models.EdgeStatusPending {
		return repositories.ErrNotFound
	}
	s.removeLocked(id, key)
	return nil
}

// DeleteForParticipant removes an edge when userID is one of its parties.
func (s *InMemoryStore) DeleteForParticipant(_ context.Context, edgeID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	edge, ok := s.edges[edgeID]
	if !ok || !edge.Involves(userID) {
		return repositories.ErrNotFound
	}
	s.removeLocked(edgeID, keyFor(edge.Requester, edge.Recipient))
	return nil
}

// ListForUser returns edges touching userID, newest first.
func (s *InMemoryStore) ListForUser(_ context.Context, userID string) ([]models.FriendEdge, error) {
	s.mu.Lock()
	var out []models.FriendEdge
	for _, edge := range s.edges {
		if edge.Involves(userID) {
			out = append(out, edge)
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Len reports how many edges are stored. Useful for tests.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.edges)
}

func (s *InMemoryStore) removeLocked(id string, key pairKey) {
	delete(s.edges, id)
	delete(s.pairs, key)
}
