// Handoff tool exposing the vision agent to the orchestration engine.
//
// The engine sees one synchronous tool: activate_vision_agent. The
// whole perceive-decide-act run happens inside the handler and comes
// back as a single aggregated result the model can read.

package vision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/richinex/argus/surface"
	"github.com/richinex/argus/tools"
)

// HandoffToolName is the registry name of the vision handoff tool.
const HandoffToolName = "activate_vision_agent"

// NewHandoffTool builds the activate_vision_agent tool definition.
// defaultSerial selects the Android device when the model passes none.
func NewHandoffTool(agent *Agent, defaultSerial string) tools.Definition {
	type handoffArgs struct {
		Task   string `json:"task"`
		Mode   string `json:"mode"`
		Device string `json:"device"`
	}
	return tools.Definition{
		Name: HandoffToolName,
		Description: "Activate the Vision Agent to perform visual UI tasks autonomously. " +
			"It takes screenshots, decides actions with a vision model, and executes them " +
			"(click, type, scroll, swipe) until the task is complete. Use it for multi-step " +
			"UI automation or when elements must be located visually.",
		Parameters: []tools.Parameter{
			{Name: "task", Type: "string", Description: "What to accomplish, e.g. 'Open Settings and enable dark mode'", Required: true},
			{Name: "mode", Type: "string", Description: "Surface to automate: 'desktop' or 'mobile'", Required: true},
			{Name: "device", Type: "string", Description: "Android device serial (mobile mode only, optional)"},
		},
		Kind: tools.KindHandoff,
		Handler: func(ctx context.Context, args json.RawMessage) (tools.Result, error) {
			var a handoffArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return tools.Result{}, fmt.Errorf("decoding arguments: %w", err)
			}
			if a.Task == "" {
				return tools.FailureResultf("task cannot be empty"), nil
			}

			mode, err := surface.ParseMode(a.Mode)
			if err != nil {
				return tools.FailureResult(err), nil
			}

			handle := surface.Desktop()
			if mode == surface.ModeMobile {
				serial := a.Device
				if serial == "" {
					serial = defaultSerial
				}
				handle = surface.Mobile(serial)
			}

			outcome := agent.Run(ctx, a.Task, handle)
			if err := ctx.Err(); err != nil {
				return tools.Result{}, err
			}
			if outcome.Status != StatusSuccess {
				return tools.Result{
					Output: outcome.Summary,
					Error:  errors.New("vision agent did not complete the task"),
				}, nil
			}
			return tools.SuccessResult(outcome.Summary), nil
		},
	}
}
