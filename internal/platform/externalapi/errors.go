// Package externalapi holds the pieces shared by the third-party API clients:
// the error taxonomy, the rate-limit retry policy and JSON request helpers.
package externalapi

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed upstream call.
type Kind int

const (
	// KindRateLimited means the upstream answered 429 (or code 429 in the body).
	KindRateLimited Kind = iota + 1
	// KindUnreachable covers connection failures, timeouts, 5xx and any 4xx other than 429.
	KindUnreachable
	// KindMalformed means the response did not decode into the expected schema.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindRateLimited:
		return "rate limited"
	case KindUnreachable:
		return "upstream unreachable"
	case KindMalformed:
		return "malformed response"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is checks.
var (
	ErrRateLimited = errors.New("rate limited")
	ErrUnreachable = errors.New("upstream unreachable")
	ErrMalformed   = errors.New("malformed response")
)

// Error is the error type every client in this tree returns for upstream failures.
type Error struct {
	Kind   Kind
	Op     string // e.g. "twelvedata time_series"
	Status int    // HTTP status or provider error code, 0 when unknown
	Err    error
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is lets errors.Is match the package sentinels against the Kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	case ErrUnreachable:
		return e.Kind == KindUnreachable
	case ErrMalformed:
		return e.Kind == KindMalformed
	}
	return false
}

func RateLimited(op string, status int, err error) *Error {
	return &Error{Kind: KindRateLimited, Op: op, Status: status, Err: err}
}

func Unreachable(op string, status int, err error) *Error {
	return &Error{Kind: KindUnreachable, Op: op, Status: status, Err: err}
}

func Malformed(op string, err error) *Error {
	return &Error{Kind: KindMalformed, Op: op, Err: err}
}

// FromStatus maps a non-success HTTP status (or a provider's in-body error code)
// onto the taxonomy. 429 is the only status that is retried.
func FromStatus(op string, status int, message string) *Error {
	var cause error
	if message != "" {
		cause = errors.New(message)
	}
	if status == http.StatusTooManyRequests {
		return RateLimited(op, status, cause)
	}
	return Unreachable(op, status, cause)
}

// KindOf reports the Kind of err, if it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
