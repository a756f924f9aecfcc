// Action parser for vision model output.
//
// The model is told to return a single JSON object, but real responses
// arrive wrapped in code fences, prose, or with legacy action names.
// The parser extracts the first complete object, normalizes aliases,
// and clamps coordinates into the grid.

package vision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/argus/internal/jsonutil"
)

// ParseError reports unusable model output. The raw response rides
// along for the re-ask prompt.
type ParseError struct {
	Reason string
	Raw    string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unparseable vision response: %s", e.Reason)
}

type rawAction struct {
	Reasoning   string    `json:"reasoning"`
	Action      string    `json:"action"`
	Coordinate  []float64 `json:"coordinate"`
	Coordinate2 []float64 `json:"coordinate2"`
	Text        string    `json:"text"`
	Time        float64   `json:"time"`
	Status      string    `json:"status"`
	Description string    `json:"description"`
}

// ParseAction decodes one action from a raw model response.
func ParseAction(response string) (Action, error) {
	obj, err := jsonutil.ExtractObject(response)
	if err != nil {
		return Action{}, &ParseError{Reason: err.Error(), Raw: response}
	}

	var raw rawAction
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return Action{}, &ParseError{Reason: fmt.Sprintf("invalid JSON: %v", err), Raw: response}
	}
	if raw.Action == "" {
		return Action{}, &ParseError{Reason: "missing 'action' field", Raw: response}
	}

	action := Action{
		Text:        raw.Text,
		Status:      raw.Status,
		Description: raw.Description,
		Rationale:   raw.Reasoning,
		DurationMs:  durationMs(raw.Time),
	}

	kind, text, ok := normalizeKind(raw.Action, raw.Text)
	if !ok {
		return Action{}, &ParseError{
			Reason: fmt.Sprintf("unknown action %q", raw.Action),
			Raw:    response,
		}
	}
	action.Kind = kind
	if text != "" {
		action.Text = text
	}

	if p := toGridPoint(raw.Coordinate); p != nil {
		action.Coordinate = p
	}
	if p := toGridPoint(raw.Coordinate2); p != nil {
		action.Coordinate2 = p
	}

	if action.Kind.NeedsCoordinate() && action.Coordinate == nil {
		return Action{}, &ParseError{
			Reason: fmt.Sprintf("action %q requires a coordinate", action.Kind),
			Raw:    response,
		}
	}
	if action.Kind == KindSwipe && action.Coordinate2 == nil {
		return Action{}, &ParseError{Reason: "swipe requires coordinate2", Raw: response}
	}

	return action, nil
}

// normalizeKind maps the model's action name, including legacy aliases,
// onto a Kind. Some aliases also imply the Text field (e.g. "back" is
// press_key with key "back").
func normalizeKind(name, text string) (Kind, string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "click":
		return KindClick, "", true
	case "double_click", "double_tap":
		return KindDoubleClick, "", true
	case "tap":
		return KindTap, "", true
	case "long_press", "right_click":
		return KindLongPress, "", true
	case "type_text", "type":
		return KindTypeText, "", true
	case "swipe", "drag":
		return KindSwipe, "", true
	case "press_key", "hotkey":
		return KindPressKey, "", true
	case "scroll":
		return KindScroll, "", true
	case "swipe_up":
		return KindScroll, "up", true
	case "swipe_down":
		return KindScroll, "down", true
	case "swipe_left":
		return KindScroll, "left", true
	case "swipe_right":
		return KindScroll, "right", true
	case "back", "home":
		return KindPressKey, strings.ToLower(strings.TrimSpace(name)), true
	case "wait":
		return KindWait, "", true
	case "terminate_success", "terminate":
		return KindTerminateSuccess, "", true
	case "terminate_failure":
		return KindTerminateFailure, "", true
	default:
		return "", "", false
	}
}

// toGridPoint converts a [x, y] array into a clamped grid point.
func toGridPoint(coord []float64) *GridPoint {
	if len(coord) < 2 {
		return nil
	}
	p := GridPoint{X: int(coord[0]), Y: int(coord[1])}.Clamp()
	return &p
}

// durationMs interprets the model's time field: small values are
// seconds, values past 100 are already milliseconds.
func durationMs(t float64) int {
	if t <= 0 {
		return 0
	}
	if t <= 100 {
		return int(t * 1000)
	}
	return int(t)
}
