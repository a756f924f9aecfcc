// Builtin atomic tools: screen capture, filesystem, HTTP fetch, wait.
//
// Information Hiding:
// - File I/O, path checks and size limits hidden per tool
// - HTTP client construction and error mapping hidden
// - Capture routing to the right surface handle hidden

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/richinex/argus/surface"
)

// DefaultMaxFileSize bounds read_file and write_file payloads.
const DefaultMaxFileSize = 1024 * 1024 // 1MB

// DefaultFetchTimeout bounds fetch_url requests.
const DefaultFetchTimeout = 30 * time.Second

// NewCaptureScreenTool captures the local desktop through the given
// source. The snapshot rides on the result for the engine to register.
func NewCaptureScreenTool(src surface.Source) Definition {
	return Definition{
		Name:        "capture_screen",
		Description: "Take a screenshot of the desktop screen. Returns the current visual state of the display.",
		Kind:        KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			snap, err := src.Capture(ctx, surface.Desktop())
			if err != nil {
				return FailureResult(err), nil
			}
			return CaptureResult(
				fmt.Sprintf("Screenshot captured (%dx%d)", snap.Width, snap.Height), snap), nil
		},
	}
}

// NewCaptureMobileScreenTool captures a connected Android device.
// defaultSerial selects the device when the model passes none.
func NewCaptureMobileScreenTool(src surface.Source, defaultSerial string) Definition {
	type captureArgs struct {
		Device string `json:"device"`
	}
	return Definition{
		Name:        "capture_mobile_screen",
		Description: "Take a screenshot of the connected Android device screen.",
		Parameters: []Parameter{
			{Name: "device", Type: "string", Description: "Device serial (optional, defaults to the configured device)"},
		},
		Kind: KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a captureArgs
			_ = json.Unmarshal(args, &a)
			serial := a.Device
			if serial == "" {
				serial = defaultSerial
			}
			snap, err := src.Capture(ctx, surface.Mobile(serial))
			if err != nil {
				return FailureResult(err), nil
			}
			return CaptureResult(
				fmt.Sprintf("Mobile screenshot captured (%dx%d)", snap.Width, snap.Height), snap), nil
		},
	}
}

// NewReadFileTool reads a file from the filesystem.
func NewReadFileTool(maxSizeBytes int64) Definition {
	type readArgs struct {
		Path string `json:"path"`
	}
	return Definition{
		Name:        "read_file",
		Description: "Read the contents of a file from the filesystem",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Path to the file to read", Required: true},
		},
		Kind: KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a readArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return Result{}, fmt.Errorf("decoding arguments: %w", err)
			}
			if a.Path == "" {
				return FailureResultf("path cannot be empty"), nil
			}

			info, err := os.Stat(a.Path)
			if os.IsNotExist(err) {
				return FailureResultf("file does not exist: %s", a.Path), nil
			}
			if err != nil {
				return FailureResult(fmt.Errorf("failed to read file metadata: %w", err)), nil
			}
			if info.Size() > maxSizeBytes {
				return FailureResultf("file too large: %d bytes (max: %d bytes)", info.Size(), maxSizeBytes), nil
			}

			content, err := os.ReadFile(a.Path)
			if err != nil {
				return FailureResult(fmt.Errorf("failed to read file: %w", err)), nil
			}
			return SuccessResult(string(content)), nil
		},
	}
}

// NewWriteFileTool writes content to a file, creating it if needed.
func NewWriteFileTool(maxSizeBytes int64) Definition {
	type writeArgs struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	return Definition{
		Name:        "write_file",
		Description: "Write content to a file, creating or overwriting it",
		Parameters: []Parameter{
			{Name: "path", Type: "string", Description: "Path to the file to write", Required: true},
			{Name: "content", Type: "string", Description: "Content to write", Required: true},
		},
		Kind: KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a writeArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return Result{}, fmt.Errorf("decoding arguments: %w", err)
			}
			if a.Path == "" {
				return FailureResultf("path cannot be empty"), nil
			}
			if int64(len(a.Content)) > maxSizeBytes {
				return FailureResultf("content too large: %d bytes (max: %d bytes)", len(a.Content), maxSizeBytes), nil
			}

			if err := os.WriteFile(a.Path, []byte(a.Content), 0o644); err != nil {
				return FailureResult(fmt.Errorf("failed to write file: %w", err)), nil
			}
			return SuccessResult(fmt.Sprintf("Wrote %d bytes to %s", len(a.Content), a.Path)), nil
		},
	}
}

// NewFetchURLTool makes HTTP GET or POST requests.
func NewFetchURLTool(timeout time.Duration) Definition {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	client := &http.Client{Timeout: timeout}

	type fetchArgs struct {
		URL    string `json:"url"`
		Method string `json:"method"`
		Body   string `json:"body"`
	}
	return Definition{
		Name:        "fetch_url",
		Description: "Make an HTTP GET or POST request to fetch data from a URL",
		Parameters: []Parameter{
			{Name: "url", Type: "string", Description: "The URL to request", Required: true},
			{Name: "method", Type: "string", Description: "HTTP method (GET or POST)"},
			{Name: "body", Type: "string", Description: "Request body for POST requests"},
		},
		Kind: KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a fetchArgs
			if err := json.Unmarshal(args, &a); err != nil {
				return Result{}, fmt.Errorf("decoding arguments: %w", err)
			}
			if a.URL == "" {
				return FailureResultf("url cannot be empty"), nil
			}

			method := strings.ToUpper(a.Method)
			if method == "" {
				method = http.MethodGet
			}
			if method != http.MethodGet && method != http.MethodPost {
				return FailureResultf("only GET and POST methods are supported"), nil
			}

			var reqBody io.Reader
			if method == http.MethodPost {
				reqBody = strings.NewReader(a.Body)
			}
			req, err := http.NewRequestWithContext(ctx, method, a.URL, reqBody)
			if err != nil {
				return FailureResult(fmt.Errorf("failed to create request: %w", err)), nil
			}

			resp, err := client.Do(req)
			if err != nil {
				return FailureResult(fmt.Errorf("request failed: %w", err)), nil
			}
			defer resp.Body.Close()

			body, err := io.ReadAll(resp.Body)
			if err != nil {
				return FailureResult(fmt.Errorf("failed to read response body: %w", err)), nil
			}

			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return SuccessResult(fmt.Sprintf("Status: %s\n\n%s", resp.Status, string(body))), nil
			}
			return FailureResultf("HTTP error: %s\n\n%s", resp.Status, string(body)), nil
		},
	}
}

// NewWaitTool pauses execution, useful while a UI settles.
func NewWaitTool() Definition {
	type waitArgs struct {
		Seconds float64 `json:"seconds"`
	}
	return Definition{
		Name:        "wait",
		Description: "Wait for a number of seconds before continuing, e.g. while a page or app loads",
		Parameters: []Parameter{
			{Name: "seconds", Type: "number", Description: "Seconds to wait (default 1, max 30)"},
		},
		Kind: KindAtomic,
		Handler: func(ctx context.Context, args json.RawMessage) (Result, error) {
			var a waitArgs
			_ = json.Unmarshal(args, &a)
			seconds := a.Seconds
			if seconds <= 0 {
				seconds = 1
			}
			if seconds > 30 {
				seconds = 30
			}

			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(time.Duration(seconds * float64(time.Second))):
			}
			return SuccessResult(fmt.Sprintf("Waited %.1fs", seconds)), nil
		},
	}
}
