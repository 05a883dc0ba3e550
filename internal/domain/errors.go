package domain

import (
	"errors"
	"fmt"
)

// Deck errors.
var (
	ErrInvalidN     = errors.New("n must be between 1 and 10")
	ErrNExceedsDeck = errors.New("n exceeds number of cards in deck")
	ErrDeckNotFound = errors.New("deck not found")
)

// Pipeline errors.
var (
	ErrInvalidInput        = errors.New("invalid input")
	ErrBackendUnavailable  = errors.New("backend unavailable")
	ErrBackendRejected     = errors.New("backend rejected request")
	ErrUnknownConversation = errors.New("unknown conversation")
	ErrPollTimeout         = errors.New("polling timeout")
	ErrRunFailed           = errors.New("AI run failed")
	ErrRequiresAction      = errors.New("AI run requires action")
)

// RejectedError is an application-level rejection reported by the backend.
// Message is the backend's own error text.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: %s", ErrBackendRejected, e.Message)
	}
	return fmt.Sprintf("%s (status %d): %s", ErrBackendRejected, e.StatusCode, e.Message)
}

func (e *RejectedError) Is(target error) bool {
	return target == ErrBackendRejected
}
