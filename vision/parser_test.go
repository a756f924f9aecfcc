package vision

import (
	"errors"
	"testing"
)

func TestParseActionBasic(t *testing.T) {
	raw := `{"reasoning": "The icon is visible.", "action": "click", "coordinate": [200, 300], "description": "Calculator icon"}`

	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("ParseAction failed: %v", err)
	}
	if action.Kind != KindClick {
		t.Errorf("expected click, got %s", action.Kind)
	}
	if action.Coordinate == nil || action.Coordinate.X != 200 || action.Coordinate.Y != 300 {
		t.Errorf("unexpected coordinate: %+v", action.Coordinate)
	}
	if action.Description != "Calculator icon" {
		t.Errorf("unexpected description: %q", action.Description)
	}
	if action.Rationale == "" {
		t.Error("rationale not captured")
	}
}

func TestParseActionStripsSurroundingProse(t *testing.T) {
	raw := "Sure, here is the action:\n```json\n{\"action\": \"tap\", \"coordinate\": [500, 850]}\n```\nLet me know!"

	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("ParseAction failed: %v", err)
	}
	if action.Kind != KindTap {
		t.Errorf("expected tap, got %s", action.Kind)
	}
}

func TestParseActionClampsCoordinates(t *testing.T) {
	raw := `{"action": "click", "coordinate": [1920, -40]}`

	action, err := ParseAction(raw)
	if err != nil {
		t.Fatalf("ParseAction failed: %v", err)
	}
	if action.Coordinate.X != GridMax {
		t.Errorf("expected X clamped to %d, got %d", GridMax, action.Coordinate.X)
	}
	if action.Coordinate.Y != 0 {
		t.Errorf("expected Y clamped to 0, got %d", action.Coordinate.Y)
	}
}

func TestParseActionAliases(t *testing.T) {
	cases := []struct {
		raw      string
		kind     Kind
		wantText string
	}{
		{`{"action": "type", "text": "hello"}`, KindTypeText, "hello"},
		{`{"action": "hotkey", "text": "ctrl,c"}`, KindPressKey, "ctrl,c"},
		{`{"action": "terminate", "status": "done"}`, KindTerminateSuccess, ""},
		{`{"action": "swipe_up"}`, KindScroll, "up"},
		{`{"action": "back"}`, KindPressKey, "back"},
		{`{"action": "double_tap", "coordinate": [10, 10]}`, KindDoubleClick, ""},
		{`{"action": "drag", "coordinate": [100, 100], "coordinate2": [500, 500]}`, KindSwipe, ""},
	}
	for _, tc := range cases {
		action, err := ParseAction(tc.raw)
		if err != nil {
			t.Errorf("ParseAction(%s) failed: %v", tc.raw, err)
			continue
		}
		if action.Kind != tc.kind {
			t.Errorf("ParseAction(%s): expected kind %s, got %s", tc.raw, tc.kind, action.Kind)
		}
		if tc.wantText != "" && action.Text != tc.wantText {
			t.Errorf("ParseAction(%s): expected text %q, got %q", tc.raw, tc.wantText, action.Text)
		}
	}
}

func TestParseActionErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"no json", "I think we should click somewhere."},
		{"unknown action", `{"action": "teleport"}`},
		{"missing action", `{"coordinate": [1, 2]}`},
		{"click without coordinate", `{"action": "click"}`},
		{"swipe without endpoint", `{"action": "swipe", "coordinate": [100, 100]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseAction(tc.raw)
			var parseErr *ParseError
			if !errors.As(err, &parseErr) {
				t.Fatalf("expected ParseError, got %v", err)
			}
		})
	}
}

func TestDurationInterpretation(t *testing.T) {
	action, err := ParseAction(`{"action": "wait", "time": 2}`)
	if err != nil {
		t.Fatalf("ParseAction failed: %v", err)
	}
	if action.DurationMs != 2000 {
		t.Errorf("expected small time treated as seconds (2000ms), got %d", action.DurationMs)
	}

	action, err = ParseAction(`{"action": "wait", "time": 1500}`)
	if err != nil {
		t.Fatalf("ParseAction failed: %v", err)
	}
	if action.DurationMs != 1500 {
		t.Errorf("expected large time treated as ms, got %d", action.DurationMs)
	}
}
