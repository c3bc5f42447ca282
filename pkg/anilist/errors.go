package anilist

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrContextCancelled is returned when the context is cancelled while
	// waiting for the rate limiter or a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrExclusiveUsers is returned when a query builder is given both or
	// neither of the two user-identifying fields. This is a caller contract
	// violation and is never retried.
	ErrExclusiveUsers = errors.New("exactly one of usernames or user ids must be provided")
)

// ErrorClass classifies AniList API failures.
type ErrorClass string

const (
	// ErrorClassPrivate means the upstream reported "Private User" for the
	// request. Terminal: retrying cannot change a data condition.
	ErrorClassPrivate ErrorClass = "private_user"

	// ErrorClassNotFound means the upstream reported "User not found".
	// Terminal, same reasoning as ErrorClassPrivate.
	ErrorClassNotFound ErrorClass = "user_not_found"

	// ErrorClassTransport covers network failures, 5xx responses, unexpected
	// status codes and malformed bodies. Retried with backoff.
	ErrorClassTransport ErrorClass = "transport"
)

// APIError is an AniList-specific error with classification and the request
// context needed for diagnostics.
type APIError struct {
	Class      ErrorClass
	StatusCode int
	Message    string

	// Users holds the batch members (usernames or ids) the failing request
	// was issued for. The upstream reports private/not-found once per
	// request, so attribution is batch-granular, never per user.
	Users []string

	// Body is the response body truncated for logging.
	Body    string
	Headers http.Header
	Err     error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "anilist %s error", e.Class)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, ": %s", e.Message)
	}
	if len(e.Users) > 0 {
		fmt.Fprintf(&b, " [batch: %s]", strings.Join(e.Users, ", "))
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *APIError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the error may succeed on a later attempt.
func (e *APIError) Retryable() bool {
	return e.Class == ErrorClassTransport
}

// IsPrivateUser reports whether err is an APIError classified as a private
// user condition.
func IsPrivateUser(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ErrorClassPrivate
}

// IsUserNotFound reports whether err is an APIError classified as a
// user-not-found condition.
func IsUserNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Class == ErrorClassNotFound
}
