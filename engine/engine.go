// Package engine implements the agent orchestration loop.
//
// One Run drives a goal through repeated model consultations and tool
// dispatches until the model answers without tool calls, a budget runs
// out, or the caller cancels. The conversation log is the single
// source of history; the engine is its only writer.
//
// Information Hiding:
// - Retry and backoff policy against the model gateway
// - Tool-call fan-out and observation recording
// - Failure routing (model-reactable vs terminal)

package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/argus/conversation"
	"github.com/richinex/argus/llm"
	"github.com/richinex/argus/model"
	"github.com/richinex/argus/tools"
)

// State is the engine's position in the orchestration state machine.
type State string

const (
	StateAwaitingModel       State = "awaiting_model"
	StateAwaitingToolResults State = "awaiting_tool_results"
	StateDone                State = "done"
	StateFailed              State = "failed"
)

// Config tunes one engine instance. Zero values fall back to defaults.
type Config struct {
	MaxIterations  int           // model consultations per run, default 15
	ModelRetries   int           // transient-error retries per consultation, default 3
	ParseRetries   int           // empty-response re-prompts per run, default 2
	Deadline       time.Duration // wall-clock budget, 0 means none
	RetryBaseDelay time.Duration // first backoff step, default 2s, doubles per attempt
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 15
	}
	if c.ModelRetries <= 0 {
		c.ModelRetries = 3
	}
	if c.ParseRetries <= 0 {
		c.ParseRetries = 2
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 2 * time.Second
	}
	return c
}

// Result is the terminal outcome of one Run. Turns always holds the
// full recorded history, including on failure.
type Result struct {
	State       State
	FinalAnswer string
	Err         error
	Turns       []conversation.Turn
	Steps       []model.Step
	ToolStats   []model.ToolCallStats
	Usage       llm.TokenUsage
	Iterations  int
	DurationMs  uint64
}

// Engine orchestrates one goal at a time against a model and a tool
// registry.
type Engine struct {
	provider llm.Provider
	registry *tools.Registry
	log      *conversation.Log
	cfg      Config
	logger   *zap.Logger
}

// New creates an engine. The log may already hold history from a
// previous run in the same session.
func New(provider llm.Provider, registry *tools.Registry, log *conversation.Log, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		provider: provider,
		registry: registry,
		log:      log,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

const systemPrompt = `You are Argus, an autonomous computer-use agent.
You accomplish the user's goal by calling the available tools. Think step by step:
inspect the current state before acting, act through tools, and verify the effect
of each action before moving on.

When the goal is achieved, respond with a plain-text final answer and no tool calls.
If the goal cannot be achieved, say so and explain why.`

// Run drives one goal to a terminal state.
func (e *Engine) Run(ctx context.Context, goal string) Result {
	start := time.Now()
	res := Result{State: StateAwaitingModel}

	runCtx := ctx
	var cancel context.CancelFunc
	if e.cfg.Deadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.cfg.Deadline)
		defer cancel()
	}

	if e.log.Len() == 0 {
		e.log.Append(conversation.SystemTurn(systemPrompt))
	}
	e.log.Append(conversation.UserTurn(goal))

	schemas := e.registry.Schemas()
	parseFailures := 0

	e.logger.Info("run starting", zap.String("goal", goal))

	for iteration := 1; iteration <= e.cfg.MaxIterations; iteration++ {
		res.Iterations = iteration

		if err := ctx.Err(); err != nil {
			return e.terminal(res, start, StateFailed, "", &CancelledError{Cause: err})
		}
		if err := runCtx.Err(); err != nil {
			return e.deadlineOrCancel(res, start, ctx, err)
		}

		res.State = StateAwaitingModel
		response, err := e.consult(runCtx, schemas)
		if err != nil {
			if ctx.Err() != nil {
				return e.terminal(res, start, StateFailed, "", &CancelledError{Cause: ctx.Err()})
			}
			if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
				return e.deadlineOrCancel(res, start, ctx, runCtx.Err())
			}
			return e.terminal(res, start, StateFailed, "", err)
		}

		res.Usage.Add(response.Usage)

		if len(response.ToolCalls) == 0 {
			if response.Content == "" {
				// Nothing usable came back. Re-prompt a bounded number of
				// times, then give up. The nudge rides on a user turn:
				// there is no tool-call id a synthetic tool result could
				// answer under native tool-call APIs.
				parseFailures++
				if parseFailures > e.cfg.ParseRetries {
					return e.terminal(res, start, StateFailed, "",
						fmt.Errorf("model returned no content or tool calls after %d re-prompts", e.cfg.ParseRetries))
				}
				e.log.Append(conversation.UserTurn(
					"Your previous response was empty. Either call a tool or provide a final answer."))
				continue
			}

			e.log.Append(conversation.AssistantTurn(response.Content, nil))
			observation := response.Content
			res.Steps = append(res.Steps, model.Step{
				Iteration:   iteration,
				Thought:     response.Content,
				Observation: &observation,
			})
			return e.terminal(res, start, StateDone, response.Content, nil)
		}

		e.log.Append(conversation.AssistantTurn(response.Content, response.ToolCalls))
		res.State = StateAwaitingToolResults

		for _, call := range response.ToolCalls {
			if err := ctx.Err(); err != nil {
				return e.terminal(res, start, StateFailed, "", &CancelledError{Cause: err})
			}
			observation, stats := e.dispatch(runCtx, call)
			res.ToolStats = append(res.ToolStats, stats)

			actionName := call.Name
			res.Steps = append(res.Steps, model.Step{
				Iteration:   iteration,
				Thought:     response.Content,
				Action:      &actionName,
				Observation: &observation,
			})
		}

		if remaining := e.cfg.MaxIterations - iteration; remaining <= 2 && remaining > 0 {
			e.log.Append(conversation.UserTurn(fmt.Sprintf(
				"WARNING: Only %d iterations remaining. Wrap up and provide a final answer.", remaining)))
		}
	}

	return e.terminal(res, start, StateFailed, "", &BudgetExceededError{
		Budget:     "iterations",
		Iterations: e.cfg.MaxIterations,
	})
}

// consult calls the model with the current snapshot, retrying transient
// gateway errors with exponential backoff.
func (e *Engine) consult(ctx context.Context, schemas []llm.ToolDefinition) (llm.LLMResponse, error) {
	var lastErr error
	attempts := e.cfg.ModelRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := e.cfg.RetryBaseDelay << (attempt - 1)
			e.logger.Warn("model call failed, retrying",
				zap.Int("attempt", attempt),
				zap.Duration("backoff", delay),
				zap.Error(lastErr))
			select {
			case <-ctx.Done():
				return llm.LLMResponse{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		response, err := e.provider.ChatWithTools(ctx, e.log.SnapshotForModel(), schemas)
		if err == nil {
			return response, nil
		}
		lastErr = err

		if !llm.IsTransient(err) {
			return llm.LLMResponse{}, &ModelUnavailableError{Attempts: attempt + 1, Cause: err}
		}
	}
	return llm.LLMResponse{}, &ModelUnavailableError{Attempts: attempts, Cause: lastErr}
}

// dispatch runs one tool call and records its result turn. Dispatch
// errors become observations the model can react to, never faults.
func (e *Engine) dispatch(ctx context.Context, call llm.ToolCall) (string, model.ToolCallStats) {
	start := time.Now()
	result, err := e.registry.Dispatch(ctx, call.Name, call.Arguments)

	stats := model.ToolCallStats{
		Name:       call.Name,
		InputSize:  len(call.Arguments),
		DurationMs: uint64(time.Since(start).Milliseconds()),
		Success:    err == nil && result.Success(),
	}

	var observation string
	if err != nil {
		e.logger.Warn("tool dispatch failed",
			zap.String("tool", call.Name), zap.Error(err))
		payload, _ := json.Marshal(map[string]any{
			"success": false,
			"error":   err.Error(),
		})
		observation = string(payload)
	} else {
		payload, merr := json.Marshal(result)
		if merr != nil {
			payload = []byte(fmt.Sprintf(`{"success":false,"error":%q}`, merr.Error()))
		}
		observation = string(payload)
	}
	stats.OutputSize = len(observation)

	turn := conversation.ToolTurn(call.ID, observation)
	if err == nil && result.Snapshot != nil {
		e.log.AppendCapture(turn, result.Snapshot.PNG,
			result.Snapshot.Width, result.Snapshot.Height, call.Name)
	} else {
		e.log.Append(turn)
	}

	return observation, stats
}

func (e *Engine) deadlineOrCancel(res Result, start time.Time, parent context.Context, err error) Result {
	if parent.Err() != nil {
		return e.terminal(res, start, StateFailed, "", &CancelledError{Cause: parent.Err()})
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return e.terminal(res, start, StateFailed, "", &BudgetExceededError{
			Budget:   "deadline",
			Deadline: e.cfg.Deadline,
		})
	}
	return e.terminal(res, start, StateFailed, "", &CancelledError{Cause: err})
}

func (e *Engine) terminal(res Result, start time.Time, state State, answer string, err error) Result {
	res.State = state
	res.FinalAnswer = answer
	res.Err = err
	res.Turns = e.log.Turns()
	res.DurationMs = uint64(time.Since(start).Milliseconds())

	if err != nil {
		e.logger.Info("run failed",
			zap.Int("iterations", res.Iterations), zap.Error(err))
	} else {
		e.logger.Info("run complete",
			zap.Int("iterations", res.Iterations),
			zap.Uint32("total_tokens", res.Usage.TotalTokens))
	}
	return res
}
