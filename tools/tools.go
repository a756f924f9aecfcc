// Package tools provides the tool system for the agent engine.
//
// A tool is a Definition: a name, a parameter schema, and a handler.
// Atomic tools do one thing and return; handoff tools run a sub-agent
// to completion and return its aggregated outcome as one result.
//
// Information Hiding:
// - Argument validation against the parameter schema
// - Tool storage and lookup inside the Registry
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/richinex/argus/surface"
)

// Kind classifies a tool for the engine.
type Kind string

const (
	// KindAtomic tools execute one operation and return.
	KindAtomic Kind = "atomic"
	// KindHandoff tools delegate to a sub-agent and return its outcome.
	KindHandoff Kind = "handoff"
)

// Parameter defines one parameter in a tool's schema.
type Parameter struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, number, integer, boolean, object, array
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// Handler executes a tool invocation. A non-nil Result.Error marks a
// failed invocation the model can react to; a non-nil returned error
// marks an infrastructure fault.
type Handler func(ctx context.Context, args json.RawMessage) (Result, error)

// Definition describes a registered tool.
type Definition struct {
	Name        string
	Description string
	Parameters  []Parameter
	Kind        Kind
	Handler     Handler
}

// String returns a short representation of the definition.
func (d Definition) String() string {
	return fmt.Sprintf("%s: %s", d.Name, d.Description)
}

// Result is the outcome of one tool invocation. Capture tools attach
// the snapshot so the engine can register it with the conversation log.
type Result struct {
	Output   string            `json:"output"`
	Snapshot *surface.Snapshot `json:"-"`
	Error    error             `json:"-"`
}

// Success reports whether the invocation succeeded.
func (r Result) Success() bool {
	return r.Error == nil
}

// MarshalJSON serializes the result the way it is shown to the model.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != nil {
		return json.Marshal(struct {
			Success bool   `json:"success"`
			Output  string `json:"output"`
			Error   string `json:"error"`
		}{false, r.Output, r.Error.Error()})
	}
	return json.Marshal(struct {
		Success bool   `json:"success"`
		Output  string `json:"output"`
	}{true, r.Output})
}

// SuccessResult creates a successful result.
func SuccessResult(output string) Result {
	return Result{Output: output}
}

// CaptureResult creates a successful result carrying a screenshot.
func CaptureResult(output string, snap surface.Snapshot) Result {
	return Result{Output: output, Snapshot: &snap}
}

// FailureResult creates a failed result.
func FailureResult(err error) Result {
	return Result{Error: err}
}

// FailureResultf creates a failed result with a formatted message.
func FailureResultf(format string, args ...interface{}) Result {
	return Result{Error: fmt.Errorf(format, args...)}
}
