// Package model provides domain types shared across packages.
package model

// Step represents a single step in a reasoning process.
// Used by both the orchestration engine and the vision sub-agent
// for tracking progress.
type Step struct {
	Iteration   int
	Thought     string
	Action      *string
	Observation *string
}

// ToolCallStats contains metrics about a tool invocation.
type ToolCallStats struct {
	Name       string `json:"name"`
	InputSize  int    `json:"input_size"`
	OutputSize int    `json:"output_size"`
	DurationMs uint64 `json:"duration_ms"`
	Success    bool   `json:"success"`
}
