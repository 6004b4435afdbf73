package roster

import (
	"strings"

	"github.com/secretfriends/backend/internal/models"
)

// Tag tells the UI which action to offer for a candidate.
type Tag string

const (
	// TagAdd marks a user with no relationship to the viewer.
	TagAdd Tag = "add"
	// TagPending marks a user the viewer already sent a request to.
	TagPending Tag = "pending"
)

// Candidate is a user that may receive a friend request from the viewer.
type Candidate struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Tag    Tag    `json:"tag"`
	EdgeID string `json:"edgeId,omitempty"`
}

// Classify applies the tagging rule for a candidate given the edge (if any) that
// connects it to viewer. The boolean is false when the candidate must be hidden:
// accepted friends, and requests the viewer received (those belong to the pending view).
func Classify(viewer string, edge *models.FriendEdge) (Tag, bool) {
	if edge == nil {
		return TagAdd, true
	}
	switch edge.Status {
	case models.EdgeStatusPending:
		if edge.Requester == viewer {
			return TagPending, true
		}
		return "", false
	default:
		return "", false
	}
}

// TagCandidates filters the directory down to the users viewer may interact with
// and tags each one. The viewer is always excluded.
func TagCandidates(viewer string, users []models.DirectoryEntry, edges []models.FriendEdge) []Candidate {
	byPeer := make(map[string]models.FriendEdge, len(edges))
	for _, edge := range edges {
		if !edge.Involves(viewer) {
			continue
		}
		peer := edge.Peer(viewer)
		if existing, ok := byPeer[peer]; ok && hides(viewer, existing) {
			continue
		}
		byPeer[peer] = edge
	}

	candidates := make([]Candidate, 0, len(users))
	for _, user := range users {
		if user.ID == "" || user.ID == viewer {
			continue
		}

		var edgePtr *models.FriendEdge
		if edge, ok := byPeer[user.ID]; ok {
			edgePtr = &edge
		}

		tag, visible := Classify(viewer, edgePtr)
		if !visible {
			continue
		}

		candidate := Candidate{ID: user.ID, Email: user.Email, Tag: tag}
		if edgePtr != nil {
			candidate.EdgeID = edgePtr.ID
		}
		candidates = append(candidates, candidate)
	}

	return candidates
}

// FilterCandidates keeps the candidates whose email or id contains query, ignoring case.
func FilterCandidates(candidates []Candidate, query string) []Candidate {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return candidates
	}

	filtered := candidates[:0:0]
	for _, c := range candidates {
		if strings.Contains(strings.ToLower(c.Email), query) || strings.Contains(strings.ToLower(c.ID), query) {
			filtered = append(filtered, c)
		}
	}
	return filtered
}

func hides(viewer string, edge models.FriendEdge) bool {
	_, visible := Classify(viewer, &edge)
	return !visible
}
