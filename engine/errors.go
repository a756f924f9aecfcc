// Typed terminal errors for the orchestration engine.
//
// Only three things abort a run: the model backend staying unreachable,
// a resource budget running out, and cancellation. Everything else is
// fed back to the model as an observation.

package engine

import (
	"fmt"
	"time"
)

// ModelUnavailableError means the gateway stayed unreachable past the
// retry ceiling, or failed with a non-transient error.
type ModelUnavailableError struct {
	Attempts int
	Cause    error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("model unavailable after %d attempts: %v", e.Attempts, e.Cause)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Cause
}

// BudgetExceededError means the iteration ceiling or the wall-clock
// deadline ran out before the model finished.
type BudgetExceededError struct {
	Budget     string // "iterations" or "deadline"
	Iterations int
	Deadline   time.Duration
}

func (e *BudgetExceededError) Error() string {
	if e.Budget == "deadline" {
		return fmt.Sprintf("deadline of %s exceeded", e.Deadline)
	}
	return fmt.Sprintf("iteration budget of %d exhausted", e.Iterations)
}

// CancelledError means the caller cancelled the run. Recorded turns
// are preserved on the result.
type CancelledError struct {
	Cause error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled: %v", e.Cause)
}

func (e *CancelledError) Unwrap() error {
	return e.Cause
}
