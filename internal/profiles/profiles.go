// Package profiles stores each user's secret message and exposes it to the roster.
package profiles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxSecretMessageLength bounds a secret message, counted in characters.
const MaxSecretMessageLength = 1000

// ErrInvalidMessage indicates a blank or oversized secret message.
var ErrInvalidMessage = errors.New("invalid secret message")

// Store persists secret messages. A nil message from GetSecretMessage means none is set.
type Store interface {
	GetSecretMessage(ctx context.Context, userID string) (*string, error)
	SetSecretMessage(ctx context.Context, userID, message string) error
	DeleteProfile(ctx context.Context, userID string) error
}

// NormalizeMessage trims surrounding whitespace and enforces the length limits.
func NormalizeMessage(message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", fmt.Errorf("%w: message must not be blank", ErrInvalidMessage)
	}
	if utf8.RuneCountInString(message) > MaxSecretMessageLength {
		return "", fmt.Errorf("%w: message exceeds %d characters", ErrInvalidMessage, MaxSecretMessageLength)
	}
	return message, nil
}
