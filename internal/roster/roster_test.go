package roster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/secretfriends/backend/internal/models"
)

type staticEdges struct {
	edges []models.FriendEdge
	err   error
}

func (s staticEdges) ListForUser(_ context.Context, userID string) ([]models.FriendEdge, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []models.FriendEdge
	for _, edge := range s.edges {
		if edge.Involves(userID) {
			out = append(out, edge)
		}
	}
	return out, nil
}

type mapProfiles struct {
	messages map[string]string
	failing  map[string]bool
}

func (m mapProfiles) GetSecretMessage(_ context.Context, userID string) (*string, error) {
	if m.failing[userID] {
		return nil, errors.New("profile store unavailable")
	}
	message, ok := m.messages[userID]
	if !ok {
		return nil, nil
	}
	return &message, nil
}

type staticDirectory struct {
	users []models.DirectoryEntry
	err   error
}

func (d staticDirectory) ListAllUsers(context.Context) ([]models.DirectoryEntry, error) {
	return d.users, d.err
}

var (
	t0        = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	directory = staticDirectory{users: []models.DirectoryEntry{
		{ID: "alice", Email: "alice@example.com"},
		{ID: "bob", Email: "bob@example.com"},
		{ID: "carol", Email: "carol@example.com"},
		{ID: "dave", Email: "dave@example.com"},
	}}
)

func edge(id, requester, recipient, status string) models.FriendEdge {
	e := models.FriendEdge{ID: id, Requester: requester, Recipient: recipient, Status: status, CreatedAt: t0}
	if status == models.EdgeStatusAccepted {
		responded := t0.Add(time.Hour)
		e.RespondedAt = &responded
	}
	return e
}

func TestFriendsViewUsesPeerSecretMessage(t *testing.T) {
	edges := staticEdges{edges: []models.FriendEdge{
		edge("e1", "alice", "bob", models.EdgeStatusAccepted),
		edge("e2", "carol", "alice", models.EdgeStatusAccepted),
		edge("e3", "alice", "dave", models.EdgeStatusPending),
	}}
	profiles := mapProfiles{messages: map[string]string{
		"alice": "alice's own secret",
		"bob":   "bob's secret",
	}}

	builder := NewBuilder(edges, profiles, directory, 2)
	entries, err := builder.FriendsView(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byPeer := map[string]FriendEntry{}
	for _, entry := range entries {
		byPeer[entry.Peer] = entry
	}

	require.NotNil(t, byPeer["bob"].SecretMessage)
	require.Equal(t, "bob's secret", *byPeer["bob"].SecretMessage)
	require.Equal(t, "bob@example.com", byPeer["bob"].Email)
	require.Equal(t, t0.Add(time.Hour), byPeer["bob"].Since)

	require.Nil(t, byPeer["carol"].SecretMessage, "unset message stays nil, never the viewer's own")
	require.NotContains(t, byPeer, "dave")
}

func TestFriendsViewDegradesPerEntry(t *testing.T) {
	edges := staticEdges{edges: []models.FriendEdge{
		edge("e1", "alice", "bob", models.EdgeStatusAccepted),
		edge("e2", "alice", "carol", models.EdgeStatusAccepted),
	}}
	profiles := mapProfiles{
		messages: map[string]string{"bob": "hi", "carol": "hello"},
		failing:  map[string]bool{"bob": true},
	}

	entries, err := NewBuilder(edges, profiles, directory, 0).FriendsView(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for _, entry := range entries {
		switch entry.Peer {
		case "bob":
			require.Nil(t, entry.SecretMessage)
		case "carol":
			require.NotNil(t, entry.SecretMessage)
			require.Equal(t, "hello", *entry.SecretMessage)
		}
	}
}

func TestFriendsViewWithoutDirectoryOrProfiles(t *testing.T) {
	edges := staticEdges{edges: []models.FriendEdge{edge("e1", "alice", "bob", models.EdgeStatusAccepted)}}

	entries, err := NewBuilder(edges, nil, staticDirectory{err: errors.New("down")}, 1).FriendsView(context.Background(), "bob")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "alice", entries[0].Peer)
	require.Empty(t, entries[0].Email)
	require.Nil(t, entries[0].SecretMessage)
}

func TestViewsFailWhenEdgesUnavailable(t *testing.T) {
	builder := NewBuilder(staticEdges{err: errors.New("db down")}, nil, directory, 1)

	_, err := builder.FriendsView(context.Background(), "alice")
	require.ErrorIs(t, err, ErrUnavailable)

	_, err = builder.PendingView(context.Background(), "alice")
	require.ErrorIs(t, err, ErrUnavailable)
}

func TestPendingViewOnlyIncoming(t *testing.T) {
	incoming := edge("e1", "bob", "alice", models.EdgeStatusPending)
	incoming.Email = "bob@example.com"
	edges := staticEdges{edges: []models.FriendEdge{
		incoming,
		edge("e2", "carol", "alice", models.EdgeStatusPending),
		edge("e3", "alice", "dave", models.EdgeStatusPending),
		edge("e4", "alice", "bob", models.EdgeStatusAccepted),
	}}

	entries, err := NewBuilder(edges, nil, directory, 1).PendingView(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	peers := map[string]string{}
	for _, entry := range entries {
		peers[entry.Peer] = entry.Email
	}
	require.Equal(t, map[string]string{
		"bob":   "bob@example.com",
		"carol": "carol@example.com",
	}, peers)
}

func TestPendingViewEmpty(t *testing.T) {
	entries, err := NewBuilder(staticEdges{}, nil, directory, 1).PendingView(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, entries)
	require.Empty(t, entries)
}

func TestClassify(t *testing.T) {
	tag, visible := Classify("alice", nil)
	require.True(t, visible)
	require.Equal(t, TagAdd, tag)

	outgoing := edge("e1", "alice", "bob", models.EdgeStatusPending)
	tag, visible = Classify("alice", &outgoing)
	require.True(t, visible)
	require.Equal(t, TagPending, tag)

	_, visible = Classify("bob", &outgoing)
	require.False(t, visible, "incoming requests are hidden")

	accepted := edge("e2", "alice", "bob", models.EdgeStatusAccepted)
	_, visible = Classify("alice", &accepted)
	require.False(t, visible)
	_, visible = Classify("bob", &accepted)
	require.False(t, visible)
}

func TestTagCandidates(t *testing.T) {
	edges := []models.FriendEdge{
		edge("e1", "alice", "bob", models.EdgeStatusPending),
		edge("e2", "carol", "alice", models.EdgeStatusPending),
	}

	candidates := TagCandidates("alice", directory.users, edges)
	require.Equal(t, []Candidate{
		{ID: "bob", Email: "bob@example.com", Tag: TagPending, EdgeID: "e1"},
		{ID: "dave", Email: "dave@example.com", Tag: TagAdd},
	}, candidates)
}

func TestTagCandidatesHidingEdgeWins(t *testing.T) {
	edges := []models.FriendEdge{
		edge("e1", "alice", "bob", models.EdgeStatusAccepted),
		edge("e2", "alice", "bob", models.EdgeStatusPending),
	}

	candidates := TagCandidates("alice", directory.users[:2], edges)
	require.Empty(t, candidates)
}

func TestFilterCandidates(t *testing.T) {
	candidates := []Candidate{
		{ID: "u1", Email: "Alice@Example.com", Tag: TagAdd},
		{ID: "u2", Email: "bob@example.com", Tag: TagAdd},
	}

	require.Len(t, FilterCandidates(candidates, ""), 2)
	require.Equal(t, "u1", FilterCandidates(candidates, " alice ")[0].ID)
	require.Equal(t, "u2", FilterCandidates(candidates, "U2")[0].ID)
	require.Empty(t, FilterCandidates(candidates, "zed"))
}
