// Package storage persists session turn history.
//
// Only textual turn content is persisted: roles, content, tool-call
// linkage. Image bytes never leave the in-memory retention window.
//
// Information Hiding:
// - Storage backend implementation details hidden behind interface
// - Allows swapping between memory and SQLite without API changes

package storage

import (
	"context"

	"github.com/richinex/argus/conversation"
)

// ConversationStorage stores turn history per session.
type ConversationStorage interface {
	// Save replaces the stored history for a session.
	Save(ctx context.Context, sessionID string, turns []conversation.Turn) error

	// Load returns the stored history for a session. A missing session
	// yields an empty slice, not an error.
	Load(ctx context.Context, sessionID string) ([]conversation.Turn, error)

	// Delete removes a session and its history.
	Delete(ctx context.Context, sessionID string) error

	// ListSessions lists all stored session IDs.
	ListSessions(ctx context.Context) ([]string, error)

	// Exists reports whether a session has stored history.
	Exists(ctx context.Context, sessionID string) (bool, error)
}
