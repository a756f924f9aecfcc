package storage

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/richinex/argus/conversation"
	"github.com/richinex/argus/llm"
)

func sampleTurns() []conversation.Turn {
	return []conversation.Turn{
		{Seq: 0, Role: conversation.RoleUser, Content: "open the settings app"},
		{Seq: 1, Role: conversation.RoleAssistant, Content: "", ToolCalls: []llm.ToolCall{
			{ID: "call-1", Name: "capture_screen", Arguments: json.RawMessage(`{}`)},
		}},
		{Seq: 2, Role: conversation.RoleTool, Content: `{"success":true,"output":"done"}`, ToolCallID: "call-1"},
	}
}

func storages(t *testing.T) map[string]ConversationStorage {
	t.Helper()
	sqlite, err := NewSqliteInMemory()
	if err != nil {
		t.Fatalf("NewSqliteInMemory failed: %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })

	return map[string]ConversationStorage{
		"memory": NewInMemoryStorage(),
		"sqlite": sqlite,
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	for name, store := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, "session-1", sampleTurns()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			loaded, err := store.Load(ctx, "session-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded) != 3 {
				t.Fatalf("expected 3 turns, got %d", len(loaded))
			}
			if loaded[0].Content != "open the settings app" {
				t.Errorf("unexpected first turn: %+v", loaded[0])
			}
			if len(loaded[1].ToolCalls) != 1 || loaded[1].ToolCalls[0].ID != "call-1" {
				t.Errorf("tool calls lost: %+v", loaded[1])
			}
			if loaded[2].ToolCallID != "call-1" {
				t.Errorf("tool-call linkage lost: %+v", loaded[2])
			}
		})
	}
}

func TestLoadMissingSession(t *testing.T) {
	for name, store := range storages(t) {
		t.Run(name, func(t *testing.T) {
			loaded, err := store.Load(context.Background(), "nope")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded) != 0 {
				t.Errorf("expected empty slice, got %d turns", len(loaded))
			}
		})
	}
}

func TestSaveReplacesHistory(t *testing.T) {
	for name, store := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, "session-1", sampleTurns()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			shorter := sampleTurns()[:1]
			if err := store.Save(ctx, "session-1", shorter); err != nil {
				t.Fatalf("second Save failed: %v", err)
			}

			loaded, err := store.Load(ctx, "session-1")
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(loaded) != 1 {
				t.Errorf("expected replacement, got %d turns", len(loaded))
			}
		})
	}
}

func TestDeleteAndExists(t *testing.T) {
	for name, store := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := store.Save(ctx, "session-1", sampleTurns()); err != nil {
				t.Fatalf("Save failed: %v", err)
			}

			exists, err := store.Exists(ctx, "session-1")
			if err != nil || !exists {
				t.Fatalf("expected session to exist: %v", err)
			}

			if err := store.Delete(ctx, "session-1"); err != nil {
				t.Fatalf("Delete failed: %v", err)
			}

			exists, err = store.Exists(ctx, "session-1")
			if err != nil {
				t.Fatalf("Exists failed: %v", err)
			}
			if exists {
				t.Error("session should be gone after delete")
			}
		})
	}
}

func TestListSessions(t *testing.T) {
	for name, store := range storages(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			_ = store.Save(ctx, "a", sampleTurns())
			_ = store.Save(ctx, "b", sampleTurns())

			sessions, err := store.ListSessions(ctx)
			if err != nil {
				t.Fatalf("ListSessions failed: %v", err)
			}
			if len(sessions) != 2 {
				t.Errorf("expected 2 sessions, got %v", sessions)
			}
		})
	}
}
