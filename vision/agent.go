// Vision sub-agent loop: perceive, decide, act.
//
// Each step captures the surface, asks the vision model for one action
// against the 0-1000 grid, maps it to pixels and executes it. The loop
// ends when the model terminates, the step ceiling hits, or the model
// becomes unusable. Exactly one Outcome is returned; a failed step is
// recorded in the transcript and the loop continues.

package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/richinex/argus/llm"
	"github.com/richinex/argus/surface"
)

// Status is the terminal state of one vision run.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Outcome is the single aggregated result of a vision run.
type Outcome struct {
	Status  Status
	Summary string
	Steps   int
}

// Config tunes the vision loop. Zero values fall back to defaults.
type Config struct {
	MaxSteps         int           // step ceiling, default 15
	ParseRetries     int           // re-asks on malformed output, default 2
	TranscriptWindow int           // history entries shown to the model, default 10
	SettleDelay      time.Duration // pause after each action, default 500ms
}

func (c Config) withDefaults() Config {
	if c.MaxSteps <= 0 {
		c.MaxSteps = 15
	}
	if c.ParseRetries <= 0 {
		c.ParseRetries = 2
	}
	if c.TranscriptWindow <= 0 {
		c.TranscriptWindow = 10
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = 500 * time.Millisecond
	}
	return c
}

// Agent runs the perceive-decide-act loop against one surface.
type Agent struct {
	provider llm.Provider
	source   surface.Source
	executor surface.Executor
	cfg      Config
	logger   *zap.Logger
}

// NewAgent creates a vision agent. The provider must accept image
// attachments on user messages.
func NewAgent(provider llm.Provider, source surface.Source, executor surface.Executor, cfg Config, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		provider: provider,
		source:   source,
		executor: executor,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// Run drives the loop for one task on one surface.
func (a *Agent) Run(ctx context.Context, task string, handle surface.Handle) Outcome {
	prompt := systemPrompt(handle.Mode)
	var history []string

	a.logger.Info("vision run starting",
		zap.String("task", task),
		zap.String("mode", string(handle.Mode)))

	for step := 1; step <= a.cfg.MaxSteps; step++ {
		if err := ctx.Err(); err != nil {
			return a.failure(history, step-1, fmt.Sprintf("cancelled: %v", err))
		}

		snap, err := a.source.Capture(ctx, handle)
		if err != nil {
			a.logger.Warn("capture failed", zap.Int("step", step), zap.Error(err))
			history = append(history, fmt.Sprintf("Step %d: capture failed -> %v", step, err))
			continue
		}

		action, err := a.decide(ctx, prompt, task, history, snap)
		if err != nil {
			return a.failure(history, step, fmt.Sprintf("vision model unusable: %v", err))
		}

		a.logger.Info("vision action",
			zap.Int("step", step),
			zap.String("action", string(action.Kind)),
			zap.String("rationale", action.Rationale))

		if action.Terminal() {
			status := StatusSuccess
			if action.Kind == KindTerminateFailure {
				status = StatusFailure
			}
			message := action.Status
			if message == "" {
				message = "Done"
			}
			return Outcome{
				Status:  status,
				Summary: fmt.Sprintf("Finished: %s\n\nHistory:\n%s", message, transcript(history)),
				Steps:   step,
			}
		}

		result := a.act(ctx, handle, action, snap)
		entry := fmt.Sprintf("Step %d: %s -> %s", step, action.String(), result)
		history = append(history, entry)

		if !a.settle(ctx) {
			return a.failure(history, step, "cancelled during settle delay")
		}
	}

	return a.failure(history, a.cfg.MaxSteps,
		fmt.Sprintf("max steps (%d) reached", a.cfg.MaxSteps))
}

// decide queries the vision model and parses its action, re-asking on
// malformed output up to the parse retry budget.
func (a *Agent) decide(ctx context.Context, prompt, task string, history []string, snap surface.Snapshot) (Action, error) {
	userText := a.userText(task, history)
	messages := []llm.ChatMessage{
		llm.SystemMessage(prompt),
		llm.UserImageMessage(userText, llm.ImageAttachment{MediaType: "image/png", Data: snap.PNG}),
	}

	var lastParseErr error
	for attempt := 0; attempt <= a.cfg.ParseRetries; attempt++ {
		response, err := a.provider.Chat(ctx, messages)
		if err != nil {
			return Action{}, err
		}

		action, err := ParseAction(response.Content)
		if err == nil {
			return action, nil
		}
		lastParseErr = err

		var parseErr *ParseError
		if !errors.As(err, &parseErr) {
			return Action{}, err
		}
		a.logger.Warn("unparseable vision response",
			zap.Int("attempt", attempt+1),
			zap.String("reason", parseErr.Reason))

		messages = append(messages,
			llm.AssistantMessage(response.Content),
			llm.UserMessage(fmt.Sprintf(
				"Your response could not be used: %s. Respond again with EXACTLY ONE valid JSON object and nothing else.",
				parseErr.Reason)))
	}
	return Action{}, lastParseErr
}

func (a *Agent) userText(task string, history []string) string {
	historyText := "None"
	if len(history) > 0 {
		window := history
		if len(window) > a.cfg.TranscriptWindow {
			window = window[len(window)-a.cfg.TranscriptWindow:]
		}
		historyText = strings.Join(window, "\n")
	}
	return fmt.Sprintf(
		"Goal: %s\nCoordinate system: 0-%d normalized (output coordinates as 0-%d values)\nHistory of actions:\n%s\n\nAnalyze the screenshot carefully. What is the NEXT single action to perform?",
		task, GridMax, GridMax, historyText)
}

// act maps the action to pixel operations and executes them. Failures
// come back as transcript text, never as a terminal error.
func (a *Agent) act(ctx context.Context, handle surface.Handle, action Action, snap surface.Snapshot) string {
	ops := buildOps(action, snap.Width, snap.Height)
	var details []string
	for _, op := range ops {
		result, err := a.executor.Execute(ctx, handle, op)
		if err != nil {
			a.logger.Warn("action execution failed",
				zap.String("op", string(op.Kind)), zap.Error(err))
			return fmt.Sprintf("execution failed: %v", err)
		}
		if result.Detail != "" {
			details = append(details, result.Detail)
		}
		if !result.OK {
			return strings.Join(details, "; ")
		}
	}
	if len(details) == 0 {
		return "ok"
	}
	return strings.Join(details, "; ")
}

// buildOps converts a grid-space action into pixel-space operations.
// type_text with a coordinate taps the target first to focus it.
func buildOps(action Action, width, height int) []surface.Op {
	px := func(p *GridPoint) (int, int) {
		if p == nil {
			return width / 2, height / 2
		}
		return p.ToPixels(width, height)
	}

	switch action.Kind {
	case KindClick, KindDoubleClick, KindTap, KindLongPress:
		x, y := px(action.Coordinate)
		return []surface.Op{{
			Kind:       surface.OpKind(action.Kind),
			X:          x,
			Y:          y,
			DurationMs: action.DurationMs,
		}}

	case KindTypeText:
		var ops []surface.Op
		if action.Coordinate != nil {
			x, y := px(action.Coordinate)
			ops = append(ops, surface.Op{Kind: surface.OpTap, X: x, Y: y})
		}
		return append(ops, surface.Op{Kind: surface.OpTypeText, Text: action.Text})

	case KindSwipe:
		x, y := px(action.Coordinate)
		x2, y2 := px(action.Coordinate2)
		return []surface.Op{{
			Kind:       surface.OpSwipe,
			X:          x,
			Y:          y,
			X2:         x2,
			Y2:         y2,
			DurationMs: action.DurationMs,
		}}

	case KindScroll:
		x, y := px(action.Coordinate)
		return []surface.Op{{Kind: surface.OpScroll, X: x, Y: y, Text: action.Text}}

	case KindPressKey:
		return []surface.Op{{Kind: surface.OpPressKey, Text: action.Text}}

	case KindWait:
		return []surface.Op{{Kind: surface.OpWait, DurationMs: action.DurationMs}}

	default:
		return nil
	}
}

func (a *Agent) settle(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(a.cfg.SettleDelay):
		return true
	}
}

func (a *Agent) failure(history []string, steps int, reason string) Outcome {
	a.logger.Info("vision run failed", zap.String("reason", reason), zap.Int("steps", steps))
	return Outcome{
		Status:  StatusFailure,
		Summary: fmt.Sprintf("%s\n\nHistory:\n%s", reason, transcript(history)),
		Steps:   steps,
	}
}

func transcript(history []string) string {
	if len(history) == 0 {
		return "None"
	}
	return strings.Join(history, "\n")
}
