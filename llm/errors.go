// Gateway error classification.
//
// The orchestration engine's retry logic depends on a single question:
// is this error worth retrying? Transient errors (rate limits, timeouts,
// server hiccups, dropped connections) are; everything else is fatal.

package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// transientMarkers are substrings that identify retry-eligible provider
// errors across all backends. Providers wrap SDK errors with their own
// prefixes, so classification works on the error text.
var transientMarkers = []string{
	"429",
	"rate limit",
	"rate_limit",
	"resource_exhausted",
	"quota",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"temporarily unavailable",
	"overloaded",
	"502",
	"503",
	"504",
}

// IsTransient reports whether err represents a transient gateway failure
// that may succeed on retry. Context cancellation is never transient: a
// cancelled request must not be retried.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, marker := range transientMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
