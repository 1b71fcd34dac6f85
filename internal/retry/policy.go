// Package retry decides whether a failed game API call is attempted again.
// The policy is a pure function of the error classification and the attempt
// count; it never sleeps or touches shared state.
package retry

import (
	"time"

	"github.com/copyleftdev/hoyosign/internal/taskstypes"
)

type Policy struct {
	// MaxRetries is the number of retries after the initial attempt, so a
	// task makes at most MaxRetries+1 calls.
	MaxRetries int

	// Cooldown is the fixed delay before each retry. The upstream APIs
	// rate-limit on call spacing, so the delay is flat, not exponential.
	Cooldown time.Duration
}

type Decision struct {
	Retry bool
	Delay time.Duration
}

// Decide returns the retry decision for the attempt that just failed.
// attempt is 1-based: 1 means the initial call failed.
//
// RateLimited and NetworkError are retried until the budget is spent.
// VerificationRequired is never retried here; the executor owns the one
// solve-and-retry cycle. Everything else is terminal immediately.
func (p Policy) Decide(kind taskstypes.ErrorKind, attempt int) Decision {
	switch kind {
	case taskstypes.ErrRateLimited, taskstypes.ErrNetwork:
		if attempt <= p.MaxRetries {
			return Decision{Retry: true, Delay: p.Cooldown}
		}
		return Decision{}
	default:
		return Decision{}
	}
}
