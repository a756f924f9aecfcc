// Android surface backed by adb.
//
// Screenshots come from `adb exec-out screencap -p` (PNG on stdout);
// input goes through `adb shell input`. The optional device serial on
// the handle becomes `adb -s <serial>`.
//
// Information Hiding:
// - adb argument construction and text escaping
// - key name to KEYCODE_* translation

package surface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png" // register PNG decoder for DecodeConfig
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ADB drives an Android device as both Source and Executor.
type ADB struct {
	// Path is the adb binary, default "adb".
	Path string
}

// NewADB creates an adb-backed surface driver.
func NewADB(path string) *ADB {
	if path == "" {
		path = "adb"
	}
	return &ADB{Path: path}
}

// args prepends the device selector when the handle names a serial.
func (a *ADB) args(handle Handle, rest ...string) []string {
	var out []string
	if handle.Device != "" {
		out = append(out, "-s", handle.Device)
	}
	return append(out, rest...)
}

// Capture grabs the current screen as PNG via screencap.
func (a *ADB) Capture(ctx context.Context, handle Handle) (Snapshot, error) {
	cmd := exec.CommandContext(ctx, a.Path, a.args(handle, "exec-out", "screencap", "-p")...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return Snapshot{}, &CaptureUnavailableError{
			Handle: handle,
			Cause:  fmt.Errorf("screencap failed: %v: %s", err, strings.TrimSpace(stderr.String())),
		}
	}

	png := stdout.Bytes()
	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return Snapshot{}, &CaptureUnavailableError{
			Handle: handle,
			Cause:  fmt.Errorf("screencap produced undecodable image: %w", err),
		}
	}

	return Snapshot{PNG: png, Width: cfg.Width, Height: cfg.Height}, nil
}

// Execute performs one input operation via `adb shell input`.
func (a *ADB) Execute(ctx context.Context, handle Handle, op Op) (ExecResult, error) {
	switch op.Kind {
	case OpTap, OpClick:
		return a.shell(ctx, handle,
			fmt.Sprintf("Tapped at (%d, %d)", op.X, op.Y),
			"input", "tap", strconv.Itoa(op.X), strconv.Itoa(op.Y))

	case OpDoubleClick:
		if res, err := a.shell(ctx, handle, "", "input", "tap", strconv.Itoa(op.X), strconv.Itoa(op.Y)); err != nil || !res.OK {
			return res, err
		}
		return a.shell(ctx, handle,
			fmt.Sprintf("Double-tapped at (%d, %d)", op.X, op.Y),
			"input", "tap", strconv.Itoa(op.X), strconv.Itoa(op.Y))

	case OpLongPress:
		duration := op.DurationMs
		if duration <= 0 {
			duration = 1000
		}
		return a.shell(ctx, handle,
			fmt.Sprintf("Long-pressed at (%d, %d) for %dms", op.X, op.Y, duration),
			"input", "swipe",
			strconv.Itoa(op.X), strconv.Itoa(op.Y),
			strconv.Itoa(op.X), strconv.Itoa(op.Y),
			strconv.Itoa(duration))

	case OpTypeText:
		if op.Text == "" {
			return ExecResult{OK: false, Detail: "type_text with empty text"}, nil
		}
		return a.shell(ctx, handle,
			fmt.Sprintf("Typed %q", op.Text),
			"input", "text", escapeADBText(op.Text))

	case OpSwipe:
		duration := op.DurationMs
		if duration <= 0 {
			duration = 300
		}
		return a.shell(ctx, handle,
			fmt.Sprintf("Swiped from (%d, %d) to (%d, %d)", op.X, op.Y, op.X2, op.Y2),
			"input", "swipe",
			strconv.Itoa(op.X), strconv.Itoa(op.Y),
			strconv.Itoa(op.X2), strconv.Itoa(op.Y2),
			strconv.Itoa(duration))

	case OpScroll:
		x2, y2 := scrollEndpoint(op)
		return a.shell(ctx, handle,
			fmt.Sprintf("Scrolled %s at (%d, %d)", scrollDirection(op.Text), op.X, op.Y),
			"input", "swipe",
			strconv.Itoa(op.X), strconv.Itoa(op.Y),
			strconv.Itoa(x2), strconv.Itoa(y2),
			"300")

	case OpPressKey:
		keycode, err := androidKeycode(op.Text)
		if err != nil {
			return ExecResult{OK: false, Detail: err.Error()}, nil
		}
		return a.shell(ctx, handle,
			fmt.Sprintf("Pressed %s", op.Text),
			"input", "keyevent", keycode)

	case OpWait:
		return waitOp(ctx, op)

	default:
		return ExecResult{OK: false, Detail: fmt.Sprintf("unsupported operation %q on mobile surface", op.Kind)}, nil
	}
}

func (a *ADB) shell(ctx context.Context, handle Handle, detail string, shellArgs ...string) (ExecResult, error) {
	args := a.args(handle, append([]string{"shell"}, shellArgs...)...)
	cmd := exec.CommandContext(ctx, a.Path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ExecResult{}, fmt.Errorf("adb %s failed: %v: %s",
			strings.Join(shellArgs, " "), err, strings.TrimSpace(stderr.String()))
	}
	return ExecResult{OK: true, Detail: detail}, nil
}

// escapeADBText encodes text for `adb shell input text`: spaces become
// %s and shell-sensitive quotes are escaped.
func escapeADBText(text string) string {
	escaped := strings.ReplaceAll(text, " ", "%s")
	escaped = strings.ReplaceAll(escaped, "'", `\'`)
	escaped = strings.ReplaceAll(escaped, `"`, `\"`)
	return escaped
}

// androidKeycode maps a friendly key name to an Android keycode.
func androidKeycode(key string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "back":
		return "KEYCODE_BACK", nil
	case "home":
		return "KEYCODE_HOME", nil
	case "enter", "return":
		return "KEYCODE_ENTER", nil
	case "tab":
		return "KEYCODE_TAB", nil
	case "delete", "backspace":
		return "KEYCODE_DEL", nil
	case "menu", "app_switch":
		return "KEYCODE_APP_SWITCH", nil
	case "volume_up":
		return "KEYCODE_VOLUME_UP", nil
	case "volume_down":
		return "KEYCODE_VOLUME_DOWN", nil
	case "power":
		return "KEYCODE_POWER", nil
	default:
		return "", fmt.Errorf("unknown key %q for mobile surface", key)
	}
}

// scrollEndpoint derives a swipe endpoint from the scroll origin and
// direction. Scroll distance is a fixed 40% of a typical axis.
func scrollEndpoint(op Op) (int, int) {
	const distance = 400
	switch scrollDirection(op.Text) {
	case "up":
		return op.X, op.Y + distance
	case "left":
		return op.X + distance, op.Y
	case "right":
		return op.X - distance, op.Y
	default: // down
		return op.X, op.Y - distance
	}
}

func scrollDirection(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up", "down", "left", "right":
		return strings.ToLower(strings.TrimSpace(s))
	default:
		return "down"
	}
}

// waitOp sleeps for the op duration, honoring cancellation.
func waitOp(ctx context.Context, op Op) (ExecResult, error) {
	duration := op.DurationMs
	if duration <= 0 {
		duration = 1000
	}
	select {
	case <-ctx.Done():
		return ExecResult{}, ctx.Err()
	case <-time.After(time.Duration(duration) * time.Millisecond):
	}
	return ExecResult{OK: true, Detail: fmt.Sprintf("Waited %dms", duration)}, nil
}

var (
	_ Source   = (*ADB)(nil)
	_ Executor = (*ADB)(nil)
)
