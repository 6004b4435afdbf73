package friendship

import "errors"

var (
	// ErrValidation indicates the request was rejected before reaching the store.
	ErrValidation = errors.New("invalid friend request")
	// ErrAlreadyRequestedOrFriends indicates an edge already exists between the pair.
	ErrAlreadyRequestedOrFriends = errors.New("friend request already exists or users are already friends")
	// ErrNotAuthorizedOrNotFound covers both a missing edge and an edge the caller may not act on.
	ErrNotAuthorizedOrNotFound = errors.New("friend request not found")
	// ErrDependency indicates a backing store or directory could not be reached.
	ErrDependency = errors.New("friendship dependency unavailable")
)
