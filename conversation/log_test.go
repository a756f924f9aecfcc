package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/richinex/argus/llm"
)

func TestLogAssignsIncreasingSeq(t *testing.T) {
	log := NewLog(3, 0)

	s1 := log.Append(UserTurn("open the settings app"))
	s2 := log.Append(AssistantTurn("I'll take a screenshot first.", nil))
	s3 := log.Append(ToolTurn("call-1", "done"))

	if !(s1 < s2 && s2 < s3) {
		t.Errorf("expected strictly increasing seq, got %d, %d, %d", s1, s2, s3)
	}

	turns := log.Turns()
	if len(turns) != 3 {
		t.Fatalf("expected 3 turns, got %d", len(turns))
	}
	for i, turn := range turns {
		if turn.Seq != i {
			t.Errorf("turn %d has seq %d", i, turn.Seq)
		}
	}
}

func TestImageRetentionWindow(t *testing.T) {
	log := NewLog(3, 0)
	log.Append(UserTurn("watch the screen"))

	var refs []ImageRef
	for i := 0; i < 5; i++ {
		_, ref := log.AppendCapture(
			ToolTurn(fmt.Sprintf("call-%d", i), "Screenshot captured"),
			[]byte{0x89, byte(i)}, 1920, 1080, "capture_screen")
		refs = append(refs, ref)
	}

	for i, ref := range refs[:2] {
		if log.Retained(ref) {
			t.Errorf("capture %d should have been evicted", i)
		}
		if ref.Width != 1920 || ref.Height != 1080 || ref.Origin != "capture_screen" {
			t.Errorf("evicted ref %d lost its metadata: %+v", i, ref)
		}
	}
	for i, ref := range refs[2:] {
		if !log.Retained(ref) {
			t.Errorf("capture %d should still be retained", i+2)
		}
	}
}

func TestSnapshotPlaceholderForEvictedImages(t *testing.T) {
	log := NewLog(2, 0)
	log.Append(UserTurn("look around"))
	for i := 0; i < 3; i++ {
		log.AppendCapture(
			ToolTurn(fmt.Sprintf("call-%d", i), "Screenshot captured"),
			[]byte("png"), 800, 600, "capture_screen")
	}

	messages := log.SnapshotForModel()

	var withBytes, placeholders int
	for _, msg := range messages {
		if len(msg.Images) > 0 {
			withBytes++
		}
		if strings.Contains(msg.Content, "NOT AVAILABLE") {
			placeholders++
		}
	}
	if withBytes != 2 {
		t.Errorf("expected 2 messages with image bytes, got %d", withBytes)
	}
	if placeholders != 1 {
		t.Errorf("expected 1 placeholder message, got %d", placeholders)
	}
}

func TestSnapshotPreservesToolCallLinkage(t *testing.T) {
	log := NewLog(3, 0)
	log.Append(UserTurn("what time is it"))
	log.Append(AssistantTurn("", []llm.ToolCall{
		{ID: "call-7", Name: "wait", Arguments: json.RawMessage(`{"seconds":1}`)},
	}))
	log.Append(ToolTurn("call-7", "Waited 1000ms"))

	messages := log.SnapshotForModel()
	if len(messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(messages))
	}
	if messages[1].Role != "assistant" || len(messages[1].ToolCalls) != 1 {
		t.Errorf("assistant message lost its tool calls: %+v", messages[1])
	}
	if messages[2].Role != "tool" || messages[2].ToolCallID != "call-7" {
		t.Errorf("tool message lost call linkage: %+v", messages[2])
	}
}

func TestTokenBudgetNeverDropsGoalTurn(t *testing.T) {
	log := NewLog(3, 1)
	log.Append(SystemTurn("You are an automation agent."))
	log.Append(UserTurn("the original goal"))
	log.Append(AssistantTurn("", []llm.ToolCall{
		{ID: "call-1", Name: "wait", Arguments: json.RawMessage(`{}`)},
	}))
	log.Append(ToolTurn("call-1", strings.Repeat("long observation ", 50)))
	log.Append(AssistantTurn("Done.", nil))

	messages := log.SnapshotForModel()

	var sawGoal, sawSystem, sawOrphanTool bool
	for _, msg := range messages {
		if msg.Role == "user" && msg.Content == "the original goal" {
			sawGoal = true
		}
		if msg.Role == "system" {
			sawSystem = true
		}
		if msg.Role == "tool" {
			sawOrphanTool = true
		}
	}
	if !sawGoal {
		t.Error("goal turn was trimmed")
	}
	if !sawSystem {
		t.Error("system turn was trimmed")
	}
	if sawOrphanTool {
		t.Error("tool result survived without its assistant turn")
	}
	if len(messages) >= 5 {
		t.Errorf("expected trimming to drop turns, got %d messages", len(messages))
	}
}

func TestNoBudgetMeansNoTrimming(t *testing.T) {
	log := NewLog(3, 0)
	for i := 0; i < 10; i++ {
		log.Append(UserTurn(strings.Repeat("words ", 100)))
	}
	if got := len(log.SnapshotForModel()); got != 10 {
		t.Errorf("expected all 10 turns in snapshot, got %d", got)
	}
}

func TestReset(t *testing.T) {
	log := NewLog(3, 0)
	log.Append(UserTurn("hello"))
	_, ref := log.AppendCapture(ToolTurn("call-1", "shot"), []byte("png"), 10, 10, "capture_screen")

	log.Reset()

	if log.Len() != 0 {
		t.Errorf("expected empty log after reset, got %d turns", log.Len())
	}
	if log.Retained(ref) {
		t.Error("image bytes survived reset")
	}
	if seq := log.Append(UserTurn("again")); seq != 0 {
		t.Errorf("expected seq to restart at 0, got %d", seq)
	}
}
