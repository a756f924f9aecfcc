// Typed errors for tool registration and dispatch.

package tools

import (
	"fmt"
	"strings"
)

// DuplicateToolError is returned when registering a name twice.
type DuplicateToolError struct {
	Name string
}

func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q already registered", e.Name)
}

// UnknownToolError is returned when dispatching to an unregistered name.
type UnknownToolError struct {
	Name  string
	Known []string
}

func (e *UnknownToolError) Error() string {
	if len(e.Known) == 0 {
		return fmt.Sprintf("unknown tool %q (no tools registered)", e.Name)
	}
	return fmt.Sprintf("unknown tool %q, available: %s", e.Name, strings.Join(e.Known, ", "))
}

// InvalidArgumentsError reports schema violations in tool arguments.
// Problems is human-readable, one entry per violation.
type InvalidArgumentsError struct {
	Tool     string
	Problems []string
}

func (e *InvalidArgumentsError) Error() string {
	return fmt.Sprintf("invalid arguments for %q: %s", e.Tool, strings.Join(e.Problems, "; "))
}

// ToolExecutionError wraps an infrastructure fault raised by a handler.
type ToolExecutionError struct {
	Tool  string
	Cause error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q execution failed: %v", e.Tool, e.Cause)
}

func (e *ToolExecutionError) Unwrap() error {
	return e.Cause
}
