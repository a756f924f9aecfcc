package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/richinex/argus/conversation"
	"github.com/richinex/argus/llm"
	"github.com/richinex/argus/surface"
	"github.com/richinex/argus/tools"
)

// turn is one scripted model exchange: either a response or an error.
type turn struct {
	response llm.LLMResponse
	err      error
}

type scriptedProvider struct {
	script []turn
	calls  int
}

func (s *scriptedProvider) Name() string  { return "scripted" }
func (s *scriptedProvider) Model() string { return "scripted-model" }

func (s *scriptedProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	t := s.script[idx]
	return t.response, t.err
}

func (s *scriptedProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return s.ChatWithTools(ctx, messages, nil)
}

func answer(text string) turn {
	return turn{response: llm.LLMResponse{Content: text}}
}

func toolCall(id, name, args string) turn {
	return turn{response: llm.LLMResponse{ToolCalls: []llm.ToolCall{
		{ID: id, Name: name, Arguments: json.RawMessage(args)},
	}}}
}

func fastConfig() Config {
	return Config{
		MaxIterations:  15,
		ModelRetries:   3,
		RetryBaseDelay: time.Millisecond,
	}
}

func newEngine(provider llm.Provider, registry *tools.Registry) (*Engine, *conversation.Log) {
	log := conversation.NewLog(3, 0)
	return New(provider, registry, log, fastConfig(), nil), log
}

func visionStub(outcome string) tools.Definition {
	return tools.Definition{
		Name:        "activate_vision_agent",
		Description: "delegate a visual task",
		Parameters: []tools.Parameter{
			{Name: "task", Type: "string", Description: "task", Required: true},
			{Name: "mode", Type: "string", Description: "mode", Required: true},
		},
		Kind: tools.KindHandoff,
		Handler: func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
			return tools.SuccessResult(outcome), nil
		},
	}
}

func TestRunHandoffRoundTrip(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		toolCall("call-1", "activate_vision_agent", `{"task":"open settings","mode":"mobile"}`),
		answer("Settings is now open."),
	}}
	registry := tools.NewRegistry()
	_ = registry.Register(visionStub("Finished: settings opened"))
	eng, log := newEngine(provider, registry)

	result := eng.Run(context.Background(), "open the settings app")

	if result.State != StateDone {
		t.Fatalf("expected done, got %s (err: %v)", result.State, result.Err)
	}
	if result.FinalAnswer != "Settings is now open." {
		t.Errorf("unexpected final answer: %q", result.FinalAnswer)
	}

	var sawResult bool
	for _, turn := range log.Turns() {
		if turn.Role == conversation.RoleTool && turn.ToolCallID == "call-1" &&
			strings.Contains(turn.Content, "settings opened") {
			sawResult = true
		}
	}
	if !sawResult {
		t.Error("handoff result not recorded as a tool turn with call linkage")
	}
}

func TestRunRetriesTransientErrors(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		{err: fmt.Errorf("429 rate limit exceeded")},
		{err: fmt.Errorf("upstream timeout")},
		answer("All done."),
	}}
	eng, log := newEngine(provider, tools.NewRegistry())

	result := eng.Run(context.Background(), "say hello")

	if result.State != StateDone {
		t.Fatalf("expected done after retries, got %s (err: %v)", result.State, result.Err)
	}
	if provider.calls != 3 {
		t.Errorf("expected 3 model calls, got %d", provider.calls)
	}

	// Retries must not duplicate the goal turn.
	var goalTurns int
	for _, turn := range log.Turns() {
		if turn.Role == conversation.RoleUser && turn.Content == "say hello" {
			goalTurns++
		}
	}
	if goalTurns != 1 {
		t.Errorf("expected exactly 1 goal turn, got %d", goalTurns)
	}
}

func TestRunModelUnavailableAfterRetryCeiling(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		{err: fmt.Errorf("503 service unavailable")},
	}}
	eng, _ := newEngine(provider, tools.NewRegistry())

	result := eng.Run(context.Background(), "say hello")

	if result.State != StateFailed {
		t.Fatalf("expected failed, got %s", result.State)
	}
	var unavailable *ModelUnavailableError
	if !errors.As(result.Err, &unavailable) {
		t.Fatalf("expected ModelUnavailableError, got %v", result.Err)
	}
	if unavailable.Attempts != 4 {
		t.Errorf("expected 4 attempts (1 + 3 retries), got %d", unavailable.Attempts)
	}
}

func TestRunNonTransientErrorFailsFast(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		{err: fmt.Errorf("401 invalid api key")},
	}}
	eng, _ := newEngine(provider, tools.NewRegistry())

	result := eng.Run(context.Background(), "say hello")

	var unavailable *ModelUnavailableError
	if !errors.As(result.Err, &unavailable) {
		t.Fatalf("expected ModelUnavailableError, got %v", result.Err)
	}
	if provider.calls != 1 {
		t.Errorf("expected no retries on auth error, got %d calls", provider.calls)
	}
}

func TestRunUnknownToolBecomesObservation(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		toolCall("call-1", "summon_demon", `{}`),
		answer("I used the wrong tool, but recovered."),
	}}
	eng, log := newEngine(provider, tools.NewRegistry())

	result := eng.Run(context.Background(), "do something")

	if result.State != StateDone {
		t.Fatalf("expected recovery to done, got %s (err: %v)", result.State, result.Err)
	}

	var sawObservation bool
	for _, turn := range log.Turns() {
		if turn.Role == conversation.RoleTool && strings.Contains(turn.Content, "unknown tool") {
			sawObservation = true
		}
	}
	if !sawObservation {
		t.Error("unknown-tool error was not recorded as an observation")
	}
}

func TestRunInvalidArgumentsBecomeObservation(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		toolCall("call-1", "activate_vision_agent", `{"mode":"mobile"}`),
		answer("done"),
	}}
	registry := tools.NewRegistry()
	_ = registry.Register(visionStub("ok"))
	eng, log := newEngine(provider, registry)

	result := eng.Run(context.Background(), "do something")

	if result.State != StateDone {
		t.Fatalf("expected done, got %s (err: %v)", result.State, result.Err)
	}
	var sawProblem bool
	for _, turn := range log.Turns() {
		if turn.Role == conversation.RoleTool && strings.Contains(turn.Content, "missing required parameter") {
			sawProblem = true
		}
	}
	if !sawProblem {
		t.Error("argument validation failure was not surfaced to the model")
	}
}

func TestRunIterationCeiling(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		toolCall("call-1", "activate_vision_agent", `{"task":"t","mode":"desktop"}`),
	}}
	registry := tools.NewRegistry()
	_ = registry.Register(visionStub("ok"))

	log := conversation.NewLog(3, 0)
	cfg := fastConfig()
	cfg.MaxIterations = 3
	eng := New(provider, registry, log, cfg, nil)

	result := eng.Run(context.Background(), "loop forever")

	if result.State != StateFailed {
		t.Fatalf("expected failed, got %s", result.State)
	}
	var budget *BudgetExceededError
	if !errors.As(result.Err, &budget) {
		t.Fatalf("expected BudgetExceededError, got %v", result.Err)
	}
	if budget.Budget != "iterations" || budget.Iterations != 3 {
		t.Errorf("unexpected budget error: %+v", budget)
	}
	if len(result.Turns) == 0 {
		t.Error("partial turns not preserved on budget exhaustion")
	}
}

// stallingProvider never answers; it blocks until the context ends.
type stallingProvider struct{}

func (stallingProvider) Name() string  { return "stalling" }
func (stallingProvider) Model() string { return "stalling-model" }

func (stallingProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.LLMResponse, error) {
	<-ctx.Done()
	return llm.LLMResponse{}, ctx.Err()
}

func (s stallingProvider) Chat(ctx context.Context, messages []llm.ChatMessage) (llm.LLMResponse, error) {
	return s.ChatWithTools(ctx, messages, nil)
}

func TestRunDeadlineBudget(t *testing.T) {
	cfg := fastConfig()
	cfg.Deadline = 20 * time.Millisecond
	log := conversation.NewLog(3, 0)
	eng := New(stallingProvider{}, tools.NewRegistry(), log, cfg, nil)

	result := eng.Run(context.Background(), "a goal that outlives the clock")

	if result.State != StateFailed {
		t.Fatalf("expected failed, got %s", result.State)
	}
	var budgetErr *BudgetExceededError
	if !errors.As(result.Err, &budgetErr) {
		t.Fatalf("expected BudgetExceededError, got %v", result.Err)
	}
	if budgetErr.Budget != "deadline" {
		t.Errorf("expected deadline budget, got %q", budgetErr.Budget)
	}

	var sawGoal bool
	for _, turn := range result.Turns {
		if turn.Role == conversation.RoleUser && turn.Content == "a goal that outlives the clock" {
			sawGoal = true
		}
	}
	if !sawGoal {
		t.Error("recorded turns lost on deadline expiry")
	}
}

func TestRunCancellationPreservesTurns(t *testing.T) {
	provider := &scriptedProvider{script: []turn{answer("never reached")}}
	eng, _ := newEngine(provider, tools.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := eng.Run(ctx, "do something")

	if result.State != StateFailed {
		t.Fatalf("expected failed, got %s", result.State)
	}
	var cancelled *CancelledError
	if !errors.As(result.Err, &cancelled) {
		t.Fatalf("expected CancelledError, got %v", result.Err)
	}
	var sawGoal bool
	for _, turn := range result.Turns {
		if turn.Role == conversation.RoleUser && turn.Content == "do something" {
			sawGoal = true
		}
	}
	if !sawGoal {
		t.Error("recorded turns lost on cancellation")
	}
}

func TestRunRegistersCapturedSnapshots(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		toolCall("call-1", "capture_screen", `{}`),
		answer("I can see the desktop."),
	}}
	registry := tools.NewRegistry()
	_ = registry.Register(tools.Definition{
		Name:        "capture_screen",
		Description: "screenshot",
		Kind:        tools.KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
			return tools.CaptureResult("Screenshot captured (800x600)",
				surface.Snapshot{PNG: []byte("png"), Width: 800, Height: 600}), nil
		},
	})
	eng, log := newEngine(provider, registry)

	result := eng.Run(context.Background(), "what is on screen")

	if result.State != StateDone {
		t.Fatalf("expected done, got %s (err: %v)", result.State, result.Err)
	}

	var ref *conversation.ImageRef
	for _, turn := range log.Turns() {
		if turn.Image != nil {
			ref = turn.Image
		}
	}
	if ref == nil {
		t.Fatal("snapshot was not registered with the conversation log")
	}
	if ref.Origin != "capture_screen" || ref.Width != 800 {
		t.Errorf("unexpected image ref: %+v", ref)
	}
	if !log.Retained(*ref) {
		t.Error("fresh capture should be retained")
	}
}

func TestRunEmptyResponseReprompted(t *testing.T) {
	provider := &scriptedProvider{script: []turn{
		answer(""),
		answer("Recovered with an actual answer."),
	}}
	eng, _ := newEngine(provider, tools.NewRegistry())

	result := eng.Run(context.Background(), "say something")

	if result.State != StateDone {
		t.Fatalf("expected done, got %s (err: %v)", result.State, result.Err)
	}
	if provider.calls != 2 {
		t.Errorf("expected a single re-prompt, got %d calls", provider.calls)
	}
}
