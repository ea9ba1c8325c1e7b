package remote

import (
	"errors"
	"fmt"
)

// Failure taxonomy surfaced by the remote client. The sync queue and the
// CLIs branch on these with errors.Is / errors.As.
var (
	// ErrAuthRequired means no usable token exists; no network call was
	// attempted. The caller must register or log in first.
	ErrAuthRequired = errors.New("authentication required")

	// ErrAuthExpired means the server rejected the token (401). Local auth
	// state has been cleared; the caller must re-authenticate and may then
	// resume the original operation.
	ErrAuthExpired = errors.New("authentication expired")

	// ErrRateLimited means the server kept answering 429 after all retry
	// attempts were exhausted.
	ErrRateLimited = errors.New("rate limited")

	// ErrNotFound means the requested document does not exist remotely.
	ErrNotFound = errors.New("not found")
)

// ConflictError is an ETag mismatch (409): the remote document changed
// under us. Never retried automatically; the caller must re-fetch,
// re-merge, and re-submit. Message carries the server's text verbatim.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return "conflict: " + e.Message
}

// NetworkError is a transport-level failure or timeout. Retryable: the
// client retries idempotent reads itself; queued writes are replayed by the
// sync queue.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "network error: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ServerError is a non-2xx response outside the taxonomy above.
// Retryable reports whether the sync queue should count an attempt and try
// again (5xx) or drop the mutation as rejected (4xx).
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error (status %d): %s", e.Status, e.Message)
}

func (e *ServerError) Retryable() bool {
	return e.Status >= 500
}

// IsRetryable classifies an error for the sync queue: network errors and
// 5xx responses are worth another attempt, everything else is final.
func IsRetryable(err error) bool {
	var ne *NetworkError
	if errors.As(err, &ne) {
		return true
	}
	var se *ServerError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	return errors.Is(err, ErrRateLimited)
}
