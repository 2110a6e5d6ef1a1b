package source

import (
	"errors"
	"fmt"
)

// TransientFetchError marks a retryable upstream failure: timeouts, 5xx
// responses, rate limiting (429), network errors. The client retries these
// with jittered exponential backoff.
type TransientFetchError struct {
	Endpoint string
	Status   int // 0 when no HTTP status applies
	Err      error
}

func (e *TransientFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transient fetch error on %s (status %d): %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("transient fetch error on %s: %v", e.Endpoint, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// PermanentFetchError marks a non-retryable upstream failure: 4xx responses
// other than 429, or a structurally malformed response body. It is surfaced
// immediately without retries.
type PermanentFetchError struct {
	Endpoint string
	Status   int
	Err      error
}

func (e *PermanentFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("permanent fetch error on %s (status %d): %v", e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("permanent fetch error on %s: %v", e.Endpoint, e.Err)
}

func (e *PermanentFetchError) Unwrap() error { return e.Err }

// IsTransient reports whether err is (or wraps) a TransientFetchError.
func IsTransient(err error) bool {
	var t *TransientFetchError
	return errors.As(err, &t)
}

// IsPermanent reports whether err is (or wraps) a PermanentFetchError.
func IsPermanent(err error) bool {
	var p *PermanentFetchError
	return errors.As(err, &p)
}

// Permanent wraps a decoding or protocol error as a PermanentFetchError.
// Source clients use it when a response body does not match the expected
// schema; malformed responses are never retried.
func Permanent(endpoint string, err error) error {
	return &PermanentFetchError{Endpoint: endpoint, Err: err}
}
