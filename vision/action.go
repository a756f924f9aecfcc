// Package vision implements the screen-driven sub-agent: capture a
// screenshot, ask a vision-language model for the next action, execute
// it, repeat until the model terminates or the step ceiling hits.
//
// The model outputs coordinates on an abstract 0-1000 grid per axis,
// independent of the real screen resolution. Grid values map to pixels
// just before execution.
//
// Information Hiding:
// - Grid-to-pixel mapping and clamping
// - Action JSON parsing and alias normalization
// - Prompt construction per surface mode
package vision

import (
	"fmt"
	"math"
)

// GridMax is the upper bound of the abstract coordinate grid. [0,0] is
// the top-left corner, [GridMax,GridMax] the bottom-right.
const GridMax = 1000

// GridPoint is a coordinate on the abstract grid.
type GridPoint struct {
	X int
	Y int
}

// Clamp forces the point into the valid grid range. Models sometimes
// emit pixel values or negatives; out-of-range input is clamped rather
// than rejected.
func (p GridPoint) Clamp() GridPoint {
	return GridPoint{X: clampGrid(p.X), Y: clampGrid(p.Y)}
}

func clampGrid(v int) int {
	if v < 0 {
		return 0
	}
	if v > GridMax {
		return GridMax
	}
	return v
}

// ToPixels maps a grid point onto a width x height pixel space:
// pixel = round(v/GridMax * dim), clamped to [0, dim-1].
func (p GridPoint) ToPixels(width, height int) (int, int) {
	return gridToPixel(p.X, width), gridToPixel(p.Y, height)
}

func gridToPixel(v, dim int) int {
	px := int(math.Round(float64(v) / GridMax * float64(dim)))
	if px < 0 {
		return 0
	}
	if px >= dim {
		return dim - 1
	}
	return px
}

// Kind enumerates the actions the vision model may request.
type Kind string

const (
	KindClick            Kind = "click"
	KindDoubleClick      Kind = "double_click"
	KindTap              Kind = "tap"
	KindLongPress        Kind = "long_press"
	KindTypeText         Kind = "type_text"
	KindSwipe            Kind = "swipe"
	KindPressKey         Kind = "press_key"
	KindScroll           Kind = "scroll"
	KindWait             Kind = "wait"
	KindTerminateSuccess Kind = "terminate_success"
	KindTerminateFailure Kind = "terminate_failure"
)

// Action is one decoded decision from the vision model.
type Action struct {
	Kind        Kind
	Coordinate  *GridPoint // grid space
	Coordinate2 *GridPoint // swipe end point, grid space
	Text        string     // typed text, key name, or scroll direction
	DurationMs  int        // long press, swipe, wait
	Status      string     // terminate actions: completion message
	Description string     // element the model says it is acting on
	Rationale   string     // model's reasoning, recorded in the transcript
}

// Terminal reports whether the action ends the run.
func (a Action) Terminal() bool {
	return a.Kind == KindTerminateSuccess || a.Kind == KindTerminateFailure
}

// NeedsCoordinate reports whether the action kind requires a primary
// coordinate. Scroll is exempt: without one it targets screen center.
func (k Kind) NeedsCoordinate() bool {
	switch k {
	case KindClick, KindDoubleClick, KindTap, KindLongPress, KindSwipe:
		return true
	default:
		return false
	}
}

// String returns a transcript-friendly description of the action.
func (a Action) String() string {
	s := string(a.Kind)
	if a.Coordinate != nil {
		s += fmt.Sprintf(" [%d,%d]", a.Coordinate.X, a.Coordinate.Y)
	}
	if a.Description != "" {
		s += fmt.Sprintf(" on '%s'", a.Description)
	}
	return s
}
