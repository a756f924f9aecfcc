package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/richinex/argus/surface"
)

type fakeSource struct {
	snap surface.Snapshot
	err  error
	last surface.Handle
}

func (f *fakeSource) Capture(ctx context.Context, handle surface.Handle) (surface.Snapshot, error) {
	f.last = handle
	if f.err != nil {
		return surface.Snapshot{}, f.err
	}
	return f.snap, nil
}

func TestCaptureScreenAttachesSnapshot(t *testing.T) {
	src := &fakeSource{snap: surface.Snapshot{PNG: []byte("png"), Width: 1920, Height: 1080}}
	def := NewCaptureScreenTool(src)

	result, err := def.Handler(context.Background(), nil)
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if result.Snapshot == nil || result.Snapshot.Width != 1920 {
		t.Errorf("snapshot not attached: %+v", result.Snapshot)
	}
	if src.last.Mode != surface.ModeDesktop {
		t.Errorf("expected desktop handle, got %+v", src.last)
	}
}

func TestCaptureMobileScreenUsesDefaultSerial(t *testing.T) {
	src := &fakeSource{snap: surface.Snapshot{PNG: []byte("png"), Width: 1080, Height: 2400}}
	def := NewCaptureMobileScreenTool(src, "emulator-5554")

	if _, err := def.Handler(context.Background(), json.RawMessage(`{}`)); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if src.last.Device != "emulator-5554" {
		t.Errorf("expected default serial, got %q", src.last.Device)
	}

	if _, err := def.Handler(context.Background(), json.RawMessage(`{"device":"pixel-7"}`)); err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if src.last.Device != "pixel-7" {
		t.Errorf("expected explicit serial, got %q", src.last.Device)
	}
}

func TestCaptureFailureIsResultNotFault(t *testing.T) {
	src := &fakeSource{err: &surface.CaptureUnavailableError{
		Handle: surface.Desktop(),
		Cause:  fmt.Errorf("display not found"),
	}}
	def := NewCaptureScreenTool(src)

	result, err := def.Handler(context.Background(), nil)
	if err != nil {
		t.Fatalf("expected failure result, got fault: %v", err)
	}
	if result.Success() {
		t.Error("expected failed result")
	}
}

func TestReadWriteFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "note.txt")
	ctx := context.Background()

	write := NewWriteFileTool(DefaultMaxFileSize)
	args, _ := json.Marshal(map[string]string{"path": path, "content": "remember the milk"})
	result, err := write.Handler(ctx, args)
	if err != nil || !result.Success() {
		t.Fatalf("write failed: %v / %+v", err, result)
	}

	read := NewReadFileTool(DefaultMaxFileSize)
	args, _ = json.Marshal(map[string]string{"path": path})
	result, err = read.Handler(ctx, args)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if result.Output != "remember the milk" {
		t.Errorf("unexpected content: %q", result.Output)
	}
}

func TestReadFileMissing(t *testing.T) {
	read := NewReadFileTool(DefaultMaxFileSize)
	args, _ := json.Marshal(map[string]string{"path": filepath.Join(t.TempDir(), "missing.txt")})

	result, err := read.Handler(context.Background(), args)
	if err != nil {
		t.Fatalf("expected failure result, got fault: %v", err)
	}
	if result.Success() || !strings.Contains(result.Error.Error(), "does not exist") {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	def := NewWaitTool()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := def.Handler(ctx, json.RawMessage(`{"seconds":10}`))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > time.Second {
		t.Error("wait did not return promptly on cancellation")
	}
}
