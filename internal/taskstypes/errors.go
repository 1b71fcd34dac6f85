package taskstypes

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed game API call. The executor turns every one
// of these into a terminal TaskResult; none escape as process failures.
type ErrorKind string

const (
	ErrNetwork                 ErrorKind = "network_error"
	ErrRateLimited             ErrorKind = "rate_limited"
	ErrAuth                    ErrorKind = "auth_error"
	ErrVerificationRequired    ErrorKind = "verification_required"
	ErrVerificationUnavailable ErrorKind = "verification_unavailable"
	ErrVerificationRejected    ErrorKind = "verification_rejected"
	ErrUnknownAPI              ErrorKind = "unknown_api_error"
)

// APIError is a classified failure from a game API or the solver backend.
// VerificationRequired errors carry the challenge payload extracted from
// the response.
type APIError struct {
	Kind      ErrorKind
	Message   string
	Challenge *Challenge
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewAPIError builds a classified error without a challenge payload.
func NewAPIError(kind ErrorKind, format string, args ...interface{}) *APIError {
	return &APIError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewVerificationError builds a VerificationRequired error carrying the
// challenge extracted from the blocked response.
func NewVerificationError(ch *Challenge) *APIError {
	return &APIError{
		Kind:      ErrVerificationRequired,
		Message:   "blocked by human verification",
		Challenge: ch,
	}
}

// KindOf extracts the classification from an error chain. Unclassified
// errors are treated as network failures: everything a game client returns
// is either an APIError or a transport problem.
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ErrNetwork
}

// ChallengeOf extracts the challenge payload from a VerificationRequired
// error, or nil.
func ChallengeOf(err error) *Challenge {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Challenge
	}
	return nil
}
