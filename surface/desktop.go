// Desktop surface backed by external capture and input helpers.
//
// Capture shells out to a screenshot helper (scrot by default) and
// input synthesis goes through xdotool. Both binaries are configurable
// so other helpers with compatible flags can be swapped in.
//
// Information Hiding:
// - Helper binary invocation and temp-file handling
// - Mouse button and key name translation

package surface

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png" // register PNG decoder for DecodeConfig
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DesktopDriver captures and controls the local display.
type DesktopDriver struct {
	// CaptureBin is the screenshot helper, default "scrot".
	CaptureBin string
	// InputBin is the input helper, default "xdotool".
	InputBin string
}

// NewDesktopDriver creates a desktop surface driver.
func NewDesktopDriver(captureBin, inputBin string) *DesktopDriver {
	if captureBin == "" {
		captureBin = "scrot"
	}
	if inputBin == "" {
		inputBin = "xdotool"
	}
	return &DesktopDriver{CaptureBin: captureBin, InputBin: inputBin}
}

// Capture takes a full-screen screenshot through the capture helper.
func (d *DesktopDriver) Capture(ctx context.Context, handle Handle) (Snapshot, error) {
	file := filepath.Join(os.TempDir(), fmt.Sprintf("argus-shot-%d.png", os.Getpid()))
	defer os.Remove(file)

	cmd := exec.CommandContext(ctx, d.CaptureBin, "-o", file)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Snapshot{}, &CaptureUnavailableError{
			Handle: handle,
			Cause:  fmt.Errorf("%s failed: %v: %s", d.CaptureBin, err, strings.TrimSpace(stderr.String())),
		}
	}

	png, err := os.ReadFile(file)
	if err != nil {
		return Snapshot{}, &CaptureUnavailableError{
			Handle: handle,
			Cause:  fmt.Errorf("reading capture output: %w", err),
		}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(png))
	if err != nil {
		return Snapshot{}, &CaptureUnavailableError{
			Handle: handle,
			Cause:  fmt.Errorf("capture produced undecodable image: %w", err),
		}
	}

	return Snapshot{PNG: png, Width: cfg.Width, Height: cfg.Height}, nil
}

// Execute performs one input operation through the input helper.
func (d *DesktopDriver) Execute(ctx context.Context, handle Handle, op Op) (ExecResult, error) {
	switch op.Kind {
	case OpClick, OpTap:
		return d.run(ctx,
			fmt.Sprintf("Clicked at (%d, %d)", op.X, op.Y),
			"mousemove", strconv.Itoa(op.X), strconv.Itoa(op.Y), "click", "1")

	case OpDoubleClick:
		return d.run(ctx,
			fmt.Sprintf("Double-clicked at (%d, %d)", op.X, op.Y),
			"mousemove", strconv.Itoa(op.X), strconv.Itoa(op.Y), "click", "--repeat", "2", "1")

	case OpLongPress:
		return d.run(ctx,
			fmt.Sprintf("Right-clicked at (%d, %d)", op.X, op.Y),
			"mousemove", strconv.Itoa(op.X), strconv.Itoa(op.Y), "click", "3")

	case OpTypeText:
		if op.Text == "" {
			return ExecResult{OK: false, Detail: "type_text with empty text"}, nil
		}
		return d.run(ctx,
			fmt.Sprintf("Typed %q", op.Text),
			"type", "--delay", "50", op.Text)

	case OpSwipe:
		if res, err := d.run(ctx, "",
			"mousemove", strconv.Itoa(op.X), strconv.Itoa(op.Y), "mousedown", "1"); err != nil || !res.OK {
			return res, err
		}
		return d.run(ctx,
			fmt.Sprintf("Dragged from (%d, %d) to (%d, %d)", op.X, op.Y, op.X2, op.Y2),
			"mousemove", strconv.Itoa(op.X2), strconv.Itoa(op.Y2), "mouseup", "1")

	case OpScroll:
		button := "5" // wheel down
		if scrollDirection(op.Text) == "up" {
			button = "4"
		}
		return d.run(ctx,
			fmt.Sprintf("Scrolled %s at (%d, %d)", scrollDirection(op.Text), op.X, op.Y),
			"mousemove", strconv.Itoa(op.X), strconv.Itoa(op.Y), "click", "--repeat", "3", button)

	case OpPressKey:
		key, err := desktopKey(op.Text)
		if err != nil {
			return ExecResult{OK: false, Detail: err.Error()}, nil
		}
		return d.run(ctx, fmt.Sprintf("Pressed %s", op.Text), "key", key)

	case OpWait:
		return waitOp(ctx, op)

	default:
		return ExecResult{OK: false, Detail: fmt.Sprintf("unsupported operation %q on desktop surface", op.Kind)}, nil
	}
}

func (d *DesktopDriver) run(ctx context.Context, detail string, args ...string) (ExecResult, error) {
	cmd := exec.CommandContext(ctx, d.InputBin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return ExecResult{}, fmt.Errorf("%s %s failed: %v: %s",
			d.InputBin, args[0], err, strings.TrimSpace(stderr.String()))
	}
	return ExecResult{OK: true, Detail: detail}, nil
}

// desktopKey maps a friendly key name to an xdotool keysym. Comma-separated
// names become a chord (e.g. "ctrl,c" -> "ctrl+c").
func desktopKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", fmt.Errorf("press_key with empty key")
	}

	parts := strings.Split(key, ",")
	syms := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.ToLower(strings.TrimSpace(part))
		switch part {
		case "enter", "return":
			part = "Return"
		case "escape", "esc":
			part = "Escape"
		case "tab":
			part = "Tab"
		case "backspace", "delete":
			part = "BackSpace"
		case "super", "win", "start":
			part = "super"
		}
		syms = append(syms, part)
	}
	return strings.Join(syms, "+"), nil
}

var (
	_ Source   = (*DesktopDriver)(nil)
	_ Executor = (*DesktopDriver)(nil)
)
