package api

import (
	"errors"
	"fmt"
)

// NotFoundError reports that the remote system has no object for a key.
// During STOP and DELETE confirmation it is the idempotence signal: the
// desired postcondition already holds.
type NotFoundError struct {
	Kind ServiceKind
	Key  ServiceKey

	// Message overrides the default text when set.
	Message string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s %q in group %q not found", e.Kind, e.Key.Name, e.Key.Group)
}

// IsNotFound checks if an error is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// NewNotFoundError creates a NotFoundError for the given object.
func NewNotFoundError(kind ServiceKind, key ServiceKey) *NotFoundError {
	return &NotFoundError{Kind: kind, Key: key}
}

// RemoteError is a non-2xx answer from the remote API other than not-found.
type RemoteError struct {
	StatusCode int
	Message    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.StatusCode, e.Message)
}

var (
	// ErrInvalidIntent is returned by the dispatcher for intents it cannot route.
	ErrInvalidIntent = errors.New("invalid intent")

	// ErrNoSpecStore indicates a CREATE without a workspace spec store.
	ErrNoSpecStore = errors.New("workspace spec store not configured")
)
