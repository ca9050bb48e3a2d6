package carrier

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Kind classifies a carrier error into the unified taxonomy. Adapters map
// upstream error shapes into a Kind at the boundary; nothing above the
// adapter layer sees carrier-specific error formats.
type Kind string

const (
	// KindAuthentication indicates the credential was rejected by the carrier.
	KindAuthentication Kind = "AUTHENTICATION_ERROR"

	// KindRateLimited indicates the local limiter for the carrier is exhausted.
	KindRateLimited Kind = "RATE_LIMITED"

	// KindUnavailable indicates the circuit for the carrier is open, or the
	// upstream reported itself unavailable.
	KindUnavailable Kind = "CARRIER_UNAVAILABLE"

	// KindInvalidAddress indicates the carrier rejected an address.
	KindInvalidAddress Kind = "INVALID_ADDRESS"

	// KindNoService indicates the carrier does not serve the destination.
	KindNoService Kind = "NO_SERVICE_TO_DESTINATION"

	// KindTimeout indicates the upstream did not answer within the deadline.
	KindTimeout Kind = "NETWORK_TIMEOUT"

	// KindNotCancellable indicates the shipment can no longer be cancelled.
	KindNotCancellable Kind = "NOT_CANCELLABLE"

	// KindNotSupported indicates the carrier does not declare the capability.
	KindNotSupported Kind = "CAPABILITY_NOT_SUPPORTED"

	// KindSignatureInvalid indicates a webhook signature mismatch.
	KindSignatureInvalid Kind = "SIGNATURE_INVALID"

	// KindCredentialNotFound indicates no active credential for the tuple.
	KindCredentialNotFound Kind = "CREDENTIAL_NOT_FOUND"

	// KindUnknownCarrier indicates the carrier code has no registered profile.
	KindUnknownCarrier Kind = "UNKNOWN_CARRIER"

	// KindUpstream is a transport-level upstream failure that fits no other
	// kind (connection refused, 5xx without a mappable body).
	KindUpstream Kind = "UPSTREAM_ERROR"
)

// Error is the unified carrier error. It matches by Kind under errors.Is so
// callers can branch on the taxonomy without caring which carrier produced it.
type Error struct {
	Carrier    string
	Kind       Kind
	Message    string
	StatusCode int
	RetryAfter time.Duration
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s: %v", e.Carrier, e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s: %s", e.Carrier, e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches two carrier errors by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// NewError creates a carrier error for the given carrier code and kind.
func NewError(carrierCode string, kind Kind, message string) *Error {
	return &Error{Carrier: carrierCode, Kind: kind, Message: message}
}

// WithCause attaches the underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithStatusCode attaches the upstream HTTP status.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// WithRetryAfter attaches a retry hint for RATE_LIMITED and
// CARRIER_UNAVAILABLE errors.
func (e *Error) WithRetryAfter(d time.Duration) *Error {
	e.RetryAfter = d
	return e
}

// KindOf returns the Kind of err. Context deadline and cancellation errors
// classify as NETWORK_TIMEOUT; anything else that is not a carrier error
// classifies as UPSTREAM_ERROR.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTimeout
	}
	return KindUpstream
}

// IsKind reports whether err classifies as the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// CountsAgainstBreaker reports whether err should be recorded as a circuit
// breaker failure. Only transport-level failures count: request-level
// rejections and local rate limiting say nothing about carrier health.
func CountsAgainstBreaker(err error) bool {
	switch KindOf(err) {
	case KindTimeout, KindUpstream:
		return true
	}
	return false
}
