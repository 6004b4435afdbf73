package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/secretfriends/backend/internal/auth"
	"github.com/secretfriends/backend/internal/directory"
	"github.com/secretfriends/backend/internal/friendship"
	"github.com/secretfriends/backend/internal/models"
	"github.com/secretfriends/backend/internal/profiles"
	"github.com/secretfriends/backend/internal/repositories"
	"github.com/secretfriends/backend/internal/roster"
)

type inMemoryUserStore struct {
	mu    sync.Mutex
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Email == user.Email {
			return repositories.ErrConflict
		}
	}
	s.users[user.ID] = user
	return nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) ListAll(context.Context) ([]models.DirectoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.DirectoryEntry, 0, len(s.users))
	for _, user := range s.users {
		out = append(out, models.DirectoryEntry{ID: user.ID, Email: user.Email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *inMemoryUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

type testServer struct {
	handler  http.Handler
	users    *inMemoryUserStore
	sessions *auth.InMemorySessionStore
	manager  *auth.Manager
	edges    *friendship.InMemoryStore
	profiles *profiles.InMemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	users := newInMemoryUserStore()
	sessions := auth.NewInMemorySessionStore()
	manager := auth.NewManager([]byte("handler-test-secret"), time.Minute, time.Hour, sessions)
	edges := friendship.NewInMemoryStore()
	profileStore := profiles.NewInMemoryStore()
	dir := directory.NewCached(users, 0)

	handler := NewRouter(slog.New(slog.NewJSONHandler(io.Discard, nil)), Dependencies{
		Users:         users,
		Sessions:      manager,
		Tokens:        manager,
		Profiles:      profileStore,
		Directory:     dir,
		Relationships: friendship.NewService(edges, dir),
		Roster:        roster.NewBuilder(edges, profileStore, dir, 4),
		CORSOrigins:   []string{"http://localhost:5173"},
	})

	return &testServer{
		handler:  handler,
		users:    users,
		sessions: sessions,
		manager:  manager,
		edges:    edges,
		profiles: profileStore,
	}
}

// addUser stores an account directly and returns a valid access token for it.
func (s *testServer) addUser(t *testing.T, id, email string) string {
	t.Helper()
	if err := s.users.Create(context.Background(), models.User{ID: id, Email: email}); err != nil {
		t.Fatalf("create user %s: %v", id, err)
	}
	tokens, err := s.manager.Issue(context.Background(), id)
	if err != nil {
		t.Fatalf("issue tokens for %s: %v", id, err)
	}
	return tokens.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(dst); err != nil {
		t.Fatalf("decode response: %v", err)
	}
}
