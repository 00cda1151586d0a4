package entities

import "errors"

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps validation failures.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConversationBusy is returned when a chat turn is already running for a conversation.
	ErrConversationBusy = errors.New("conversation is busy")
	// ErrWebhookNotConfigured is returned when no destination URL is set.
	ErrWebhookNotConfigured = errors.New("webhook destination not configured")
	// ErrUnauthorized covers bad credentials and disabled accounts.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden is returned when the caller lacks permission.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned on unique violations (e.g. duplicate username).
	ErrConflict = errors.New("conflict")
)
