package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func echoTool() Definition {
	return Definition{
		Name:        "echo",
		Description: "Echo the message back",
		Parameters: []Parameter{
			{Name: "message", Type: "string", Description: "Text to echo", Required: true},
			{Name: "repeat", Type: "integer", Description: "Times to repeat"},
		},
		Kind: KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a struct {
				Message string `json:"message"`
			}
			if err := json.Unmarshal(args, &a); err != nil {
				return Result{}, err
			}
			return SuccessResult(a.Message), nil
		},
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(echoTool()); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	err := registry.Register(echoTool())
	var dup *DuplicateToolError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateToolError, got %v", err)
	}
	if dup.Name != "echo" {
		t.Errorf("expected name 'echo', got %q", dup.Name)
	}
}

func TestResolveUnknownTool(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(echoTool())

	_, err := registry.Resolve("summon_demon")
	var unknown *UnknownToolError
	if !errors.As(err, &unknown) {
		t.Fatalf("expected UnknownToolError, got %v", err)
	}
	if len(unknown.Known) != 1 || unknown.Known[0] != "echo" {
		t.Errorf("expected known tools [echo], got %v", unknown.Known)
	}
}

func TestDispatchValidatesArguments(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(echoTool())
	ctx := context.Background()

	cases := []struct {
		name string
		args string
	}{
		{"missing required", `{}`},
		{"unknown parameter", `{"message":"hi","volume":11}`},
		{"wrong type", `{"message":42}`},
		{"non-integer", `{"message":"hi","repeat":1.5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := registry.Dispatch(ctx, "echo", json.RawMessage(tc.args))
			var invalid *InvalidArgumentsError
			if !errors.As(err, &invalid) {
				t.Fatalf("expected InvalidArgumentsError, got %v", err)
			}
			if len(invalid.Problems) == 0 {
				t.Error("expected at least one problem listed")
			}
		})
	}
}

func TestValidationIsIdempotent(t *testing.T) {
	def := echoTool()
	args := json.RawMessage(`{"message":"hello","repeat":2}`)

	for i := 0; i < 3; i++ {
		if err := ValidateArgs(def, args); err != nil {
			t.Fatalf("validation attempt %d failed: %v", i, err)
		}
	}

	bad := json.RawMessage(`{"repeat":"two"}`)
	first := ValidateArgs(def, bad)
	second := ValidateArgs(def, bad)
	if first == nil || second == nil {
		t.Fatal("expected both validations to fail")
	}
	if first.Error() != second.Error() {
		t.Errorf("validation not stable:\n%v\n%v", first, second)
	}
}

func TestDispatchRunsHandler(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(echoTool())

	result, err := registry.Dispatch(context.Background(), "echo", json.RawMessage(`{"message":"hello"}`))
	if err != nil {
		t.Fatalf("Dispatch failed: %v", err)
	}
	if !result.Success() || result.Output != "hello" {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestDispatchWrapsHandlerFaults(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(Definition{
		Name:        "boom",
		Description: "always faults",
		Kind:        KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			return Result{}, fmt.Errorf("disk on fire")
		},
	})

	_, err := registry.Dispatch(context.Background(), "boom", json.RawMessage(`{}`))
	var execErr *ToolExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("expected ToolExecutionError, got %v", err)
	}
	if execErr.Tool != "boom" || execErr.Unwrap() == nil {
		t.Errorf("fault not wrapped with cause: %+v", execErr)
	}
}

func TestSchemasProjection(t *testing.T) {
	registry := NewRegistry()
	_ = registry.Register(echoTool())

	schemas := registry.Schemas()
	if len(schemas) != 1 {
		t.Fatalf("expected 1 schema, got %d", len(schemas))
	}

	schema := schemas[0]
	if schema.Name != "echo" {
		t.Errorf("expected name 'echo', got %q", schema.Name)
	}
	props, ok := schema.Parameters["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema missing properties: %+v", schema.Parameters)
	}
	if _, ok := props["message"]; !ok {
		t.Error("schema missing 'message' property")
	}
	required, ok := schema.Parameters["required"].([]string)
	if !ok || len(required) != 1 || required[0] != "message" {
		t.Errorf("expected required [message], got %v", schema.Parameters["required"])
	}
}

func TestResultMarshalJSON(t *testing.T) {
	ok, err := json.Marshal(SuccessResult("done"))
	if err != nil {
		t.Fatalf("marshal success result: %v", err)
	}
	if string(ok) != `{"success":true,"output":"done"}` {
		t.Errorf("unexpected success JSON: %s", ok)
	}

	failed, err := json.Marshal(FailureResultf("no such window"))
	if err != nil {
		t.Fatalf("marshal failure result: %v", err)
	}
	if string(failed) != `{"success":false,"output":"","error":"no such window"}` {
		t.Errorf("unexpected failure JSON: %s", failed)
	}
}
