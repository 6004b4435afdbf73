package friendship

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/secretfriends/backend/internal/models"
	"github.com/secretfriends/backend/internal/repositories"
	"github.com/secretfriends/backend/internal/roster"
)

type stubDirectory struct {
	users   map[string]string
	listErr error
}

func newStubDirectory(ids ...string) *stubDirectory {
	d := &stubDirectory{users: make(map[string]string)}
	for _, id := range ids {
		d.users[id] = id + "@example.com"
	}
	return d
}

func (d *stubDirectory) Lookup(_ context.Context, userID string) (models.DirectoryEntry, error) {
	email, ok := d.users[userID]
	if !ok {
		return models.DirectoryEntry{}, repositories.ErrNotFound
	}
	return models.DirectoryEntry{ID: userID, Email: email}, nil
}

func (d *stubDirectory) ListAllUsers(context.Context) ([]models.DirectoryEntry, error) {
	if d.listErr != nil {
		return nil, d.listErr
	}
	out := make([]models.DirectoryEntry, 0, len(d.users))
	for id, email := range d.users {
		out = append(out, models.DirectoryEntry{ID: id, Email: email})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type failingStore struct {
	*InMemoryStore
	err error
}

func (f failingStore) Insert(context.Context, models.FriendEdge) error { return f.err }

func (f failingStore) ListForUser(context.Context, string) ([]models.FriendEdge, error) {
	return nil, f.err
}

func newTestService(ids ...string) (*Service, *InMemoryStore) {
	store := NewInMemoryStore()
	return NewService(store, newStubDirectory(ids...)), store
}

func candidateTags(candidates []roster.Candidate) map[string]roster.Tag {
	out := make(map[string]roster.Tag, len(candidates))
	for _, c := range candidates {
		out[c.ID] = c.Tag
	}
	return out
}

func TestSendRequestCreatesPendingEdge(t *testing.T) {
	svc, store := newTestService("alice", "bob")

	edge, err := svc.SendRequest(context.Background(), "alice", "bob")
	require.NoError(t, err)
	require.NotEmpty(t, edge.ID)
	require.Equal(t, "alice", edge.Requester)
	require.Equal(t, "bob", edge.Recipient)
	require.Equal(t, models.EdgeStatusPending, edge.Status)
	require.Equal(t, "alice@example.com", edge.Email)
	require.Nil(t, edge.RespondedAt)
	require.Equal(t, 1, store.Len())
}

func TestSendRequestValidation(t *testing.T) {
	svc, store := newTestService("alice", "bob")
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, "alice", "alice")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendRequest(ctx, "", "bob")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendRequest(ctx, "alice", "   ")
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.SendRequest(ctx, "alice", "ghost")
	require.ErrorIs(t, err, ErrNotAuthorizedOrNotFound)

	require.Zero(t, store.Len())
}

func TestSendRequestConflictsInBothDirections(t *testing.T) {
	svc, _ := newTestService("alice", "bob")
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, "alice", "bob")
	require.ErrorIs(t, err, ErrAlreadyRequestedOrFriends)

	_, err = svc.SendRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, ErrAlreadyRequestedOrFriends)
}

func TestAcceptRequest(t *testing.T) {
	svc, _ := newTestService("alice", "bob", "carol")
	ctx := context.Background()

	edge, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	_, err = svc.AcceptRequest(ctx, edge.ID, "alice")
	require.ErrorIs(t, err, ErrNotAuthorizedOrNotFound, "requester may not accept")

	_, err = svc.AcceptRequest(ctx, edge.ID, "carol")
	require.ErrorIs(t, err, ErrNotAuthorizedOrNotFound, "outsider may not accept")

	accepted, err := svc.AcceptRequest(ctx, edge.ID, "bob")
	require.NoError(t, err)
	require.Equal(t, models.EdgeStatusAccepted, accepted.Status)
	require.NotNil(t, accepted.RespondedAt)

	_, err = svc.AcceptRequest(ctx, edge.ID, "bob")
	require.ErrorIs(t, err, ErrNotAuthorizedOrNotFound, "repeat accept must fail")

	_, err = svc.SendRequest(ctx, "bob", "alice")
	require.ErrorIs(t, err, ErrAlreadyRequestedOrFriends, "friends cannot re-request")

	_, err = svc.AcceptRequest(ctx, "missing", "bob")
	require.ErrorIs(t, err, ErrNotAuthorizedOrNotFound)
}

func TestCancelRequestRestoresCandidate(t *testing.T) {
	svc, store := newTestService("alice", "bob")
	ctx := context.Background()

	_, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	candidates, err := svc.ListCandidates(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, map[string]roster.Tag{"bob": roster.TagPending}, candidateTags(candidates))

	require.ErrorIs(t, svc.CancelRequest(ctx, "bob", "alice"), ErrNotAuthorizedOrNotFound, "recipient cannot cancel")

	require.NoError(t, svc.CancelRequest(ctx, "alice", "bob"))
	require.Zero(t, store.Len())

	candidates, err = svc.ListCandidates(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, map[string]roster.Tag{"bob": roster.TagAdd}, candidateTags(candidates))

	require.ErrorIs(t, svc.CancelRequest(ctx, "alice", "bob"), ErrNotAuthorizedOrNotFound)
}

func TestCancelRequestRejectsAcceptedEdge(t *testing.T) {
	svc, _ := newTestService("alice", "bob")
	ctx := context.Background()

	edge, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, edge.ID, "bob")
	require.NoError(t, err)

	require.ErrorIs(t, svc.CancelRequest(ctx, "alice", "bob"), ErrNotAuthorizedOrNotFound)
}

func TestDeclineRequestAllowsNewRequest(t *testing.T) {
	svc, store := newTestService("alice", "bob", "carol")
	ctx := context.Background()

	first, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)

	require.ErrorIs(t, svc.DeclineRequest(ctx, first.ID, "carol"), ErrNotAuthorizedOrNotFound)
	require.NoError(t, svc.DeclineRequest(ctx, first.ID, "bob"))
	require.Zero(t, store.Len())

	second, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	require.NotEqual(t, first.ID, second.ID)
}

func TestDeclineRemovesAcceptedFriendship(t *testing.T) {
	svc, store := newTestService("alice", "bob")
	ctx := context.Background()

	edge, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, edge.ID, "bob")
	require.NoError(t, err)

	require.NoError(t, svc.DeclineRequest(ctx, edge.ID, "alice"))
	require.Zero(t, store.Len())
	require.ErrorIs(t, svc.DeclineRequest(ctx, edge.ID, "alice"), ErrNotAuthorizedOrNotFound)
}

func TestListCandidatesHidesFriendsAndIncoming(t *testing.T) {
	svc, _ := newTestService("alice", "bob", "carol", "dave")
	ctx := context.Background()

	toBob, err := svc.SendRequest(ctx, "alice", "bob")
	require.NoError(t, err)
	_, err = svc.AcceptRequest(ctx, toBob.ID, "bob")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, "carol", "alice")
	require.NoError(t, err)

	_, err = svc.SendRequest(ctx, "alice", "dave")
	require.NoError(t, err)

	candidates, err := svc.ListCandidates(ctx, "alice", "")
	require.NoError(t, err)
	require.Equal(t, map[string]roster.Tag{"dave": roster.TagPending}, candidateTags(candidates))

	candidates, err = svc.ListCandidates(ctx, "carol", "")
	require.NoError(t, err)
	require.Equal(t, map[string]roster.Tag{
		"alice": roster.TagPending,
		"bob":   roster.TagAdd,
		"dave":  roster.TagAdd,
	}, candidateTags(candidates))

	candidates, err = svc.ListCandidates(ctx, "carol", "DA")
	require.NoError(t, err)
	require.Equal(t, map[string]roster.Tag{"dave": roster.TagAdd}, candidateTags(candidates))
}

func TestListCandidatesDependencyErrors(t *testing.T) {
	ctx := context.Background()

	dir := newStubDirectory("alice")
	dir.listErr = errors.New("directory down")
	svc := NewService(NewInMemoryStore(), dir)
	_, err := svc.ListCandidates(ctx, "alice", "")
	require.ErrorIs(t, err, ErrDependency)

	svc = NewService(failingStore{InMemoryStore: NewInMemoryStore(), err: errors.New("db down")}, newStubDirectory("alice"))
	_, err = svc.ListCandidates(ctx, "alice", "")
	require.ErrorIs(t, err, ErrDependency)

	_, err = svc.ListCandidates(ctx, " ", "")
	require.ErrorIs(t, err, ErrValidation)
}

func TestSendRequestStoreFailureIsDependencyError(t *testing.T) {
	svc := NewService(failingStore{InMemoryStore: NewInMemoryStore(), err: errors.New("db down")}, newStubDirectory("alice", "bob"))

	_, err := svc.SendRequest(context.Background(), "alice", "bob")
	require.ErrorIs(t, err, ErrDependency)
	require.Equal(t, "dependency", Outcome(err))
}

func TestConcurrentSendRequestsCreateOneEdge(t *testing.T) {
	svc, store := newTestService("alice", "bob")
	ctx := context.Background()

	const n = 32
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		conflicts int
	)
	for i := 0; i < n; i++ {
		requester, recipient := "alice", "bob"
		if i%2 == 1 {
			requester, recipient = "bob", "alice"
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.SendRequest(ctx, requester, recipient)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				created++
				return
			}
			if errors.Is(err, ErrAlreadyRequestedOrFriends) {
				conflicts++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, created)
	require.Equal(t, n-1, conflicts)
	require.Equal(t, 1, store.Len())
}

func TestOutcome(t *testing.T) {
	require.Equal(t, "ok", Outcome(nil))
	require.Equal(t, "invalid", Outcome(ErrValidation))
	require.Equal(t, "conflict", Outcome(ErrAlreadyRequestedOrFriends))
	require.Equal(t, "not_found", Outcome(ErrNotAuthorizedOrNotFound))
	require.Equal(t, "dependency", Outcome(errors.New("boom")))
}
