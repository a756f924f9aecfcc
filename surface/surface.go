// Package surface abstracts the physical automation target: a desktop
// display or an Android device reached over adb.
//
// Two contracts live here. A Source produces visual snapshots of a
// surface; an Executor performs physical input operations against it.
// Both take a Handle naming the concrete surface, so one executor
// instance can serve several devices.
//
// Information Hiding:
// - Capture mechanics (screencap, scrot) hidden behind Source
// - Input synthesis (adb input, xdotool) hidden behind Executor
package surface

import (
	"context"
	"fmt"
)

// Mode identifies the kind of surface being automated.
type Mode string

const (
	ModeDesktop Mode = "desktop"
	ModeMobile  Mode = "mobile"
)

// ParseMode parses a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeDesktop, ModeMobile:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("unknown surface mode: %q", s)
	}
}

// Handle names a concrete surface. Device is the adb serial for mobile
// surfaces; empty means the default device. Desktop handles ignore it.
type Handle struct {
	Mode   Mode
	Device string
}

// Desktop returns a handle for the local desktop display.
func Desktop() Handle {
	return Handle{Mode: ModeDesktop}
}

// Mobile returns a handle for an Android device. Empty serial selects
// the single connected device.
func Mobile(serial string) Handle {
	return Handle{Mode: ModeMobile, Device: serial}
}

// Snapshot is one visual capture of a surface.
type Snapshot struct {
	PNG    []byte
	Width  int
	Height int
}

// OpKind enumerates physical input operations. Coordinates on an Op are
// always pixels in the captured snapshot's space; grid-to-pixel mapping
// happens before an Op is built.
type OpKind string

const (
	OpClick       OpKind = "click"
	OpDoubleClick OpKind = "double_click"
	OpTap         OpKind = "tap"
	OpLongPress   OpKind = "long_press"
	OpTypeText    OpKind = "type_text"
	OpSwipe       OpKind = "swipe"
	OpPressKey    OpKind = "press_key"
	OpScroll      OpKind = "scroll"
	OpWait        OpKind = "wait"
)

// Op is one physical input operation in pixel space.
type Op struct {
	Kind       OpKind
	X, Y       int    // primary coordinate
	X2, Y2     int    // secondary coordinate (swipe end)
	Text       string // typed text, key name, or scroll direction
	DurationMs int    // press/swipe/wait duration
}

// ExecResult reports the outcome of one executed operation.
type ExecResult struct {
	OK     bool
	Detail string
}

// Source produces snapshots of a surface.
type Source interface {
	// Capture returns the current visual state of the surface.
	// Returns *CaptureUnavailableError when the surface is unreachable.
	Capture(ctx context.Context, handle Handle) (Snapshot, error)
}

// Executor performs physical input operations against a surface.
type Executor interface {
	Execute(ctx context.Context, handle Handle, op Op) (ExecResult, error)
}

// CaptureUnavailableError indicates the surface cannot be captured,
// e.g. a disconnected device or a missing capture helper.
type CaptureUnavailableError struct {
	Handle Handle
	Cause  error
}

func (e *CaptureUnavailableError) Error() string {
	return fmt.Sprintf("surface %s unavailable: %v", e.Handle.Mode, e.Cause)
}

func (e *CaptureUnavailableError) Unwrap() error {
	return e.Cause
}
