// Package conversation manages bounded per-session conversation state.
//
// The Log is an append-only turn history with two budgets. An image
// retention window keeps pixel bytes only for the most recent captures;
// older captures keep their metadata but resolve to a textual
// placeholder. A token budget trims the oldest turns out of the model
// snapshot, never touching the original goal turn.
//
// Information Hiding:
// - Image byte store and eviction order
// - Token estimation (tiktoken with a byte-length fallback)
// - Turn-to-ChatMessage projection for the model gateway

package conversation

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkoukk/tiktoken-go"

	"github.com/richinex/argus/llm"
)

// imagePlaceholder replaces evicted screenshots in the model snapshot.
const imagePlaceholder = "<system>THE IMAGE IS NOT AVAILABLE DUE TO TOKEN OPTIMIZATION</system>"

// imageTokenEstimate is the flat token cost charged per retained image
// when checking the token budget.
const imageTokenEstimate = 800

const (
	// DefaultImageRetention keeps the last 3 screenshots resolvable.
	DefaultImageRetention = 3
	// DefaultTokenBudget bounds the model snapshot, 0 means unlimited.
	DefaultTokenBudget = 0
)

// Log is a session's turn history. Append is the only mutation; all
// methods are safe for concurrent use.
type Log struct {
	mu        sync.RWMutex
	turns     []Turn
	nextSeq   int
	goalSeq   int // seq of the first user turn, -1 until one exists
	retention int
	budget    int

	images     map[string][]byte // ref ID -> PNG bytes, retained refs only
	imageOrder []string          // ref IDs in creation order
}

// NewLog creates a log with the given image retention window and token
// budget. Non-positive retention falls back to DefaultImageRetention;
// a non-positive budget disables trimming.
func NewLog(retention, tokenBudget int) *Log {
	if retention <= 0 {
		retention = DefaultImageRetention
	}
	return &Log{
		goalSeq:   -1,
		retention: retention,
		budget:    tokenBudget,
		images:    make(map[string][]byte),
	}
}

// Append records a turn and returns its assigned sequence number.
func (l *Log) Append(turn Turn) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.append(turn)
}

// AppendCapture records a tool-result turn carrying a screenshot. The
// bytes go into the retention window; the oldest capture past the
// window loses its bytes. Returns the assigned seq and the image ref.
func (l *Log) AppendCapture(turn Turn, png []byte, width, height int, origin string) (int, ImageRef) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ref := ImageRef{
		ID:         uuid.NewString(),
		Origin:     origin,
		CapturedAt: time.Now(),
		Width:      width,
		Height:     height,
		MediaType:  "image/png",
	}
	turn.Image = &ref

	l.images[ref.ID] = png
	l.imageOrder = append(l.imageOrder, ref.ID)
	for len(l.imageOrder) > l.retention {
		delete(l.images, l.imageOrder[0])
		l.imageOrder = l.imageOrder[1:]
	}

	return l.append(turn), ref
}

func (l *Log) append(turn Turn) int {
	turn.Seq = l.nextSeq
	l.nextSeq++
	if turn.Role == RoleUser && l.goalSeq < 0 {
		l.goalSeq = turn.Seq
	}
	l.turns = append(l.turns, turn)
	return turn.Seq
}

// Retained reports whether a ref's bytes are still in the retention
// window.
func (l *Log) Retained(ref ImageRef) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.images[ref.ID]
	return ok
}

// Turns returns a copy of the full history.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of recorded turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// Restore replaces the history with previously persisted turns.
// Sequence numbers are reassigned. Image bytes are never persisted, so
// restored captures resolve to the placeholder.
func (l *Log) Restore(turns []Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
	l.nextSeq = 0
	l.goalSeq = -1
	l.images = make(map[string][]byte)
	l.imageOrder = nil
	for _, t := range turns {
		l.append(t)
	}
}

// Reset clears all turns and image bytes.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
	l.nextSeq = 0
	l.goalSeq = -1
	l.images = make(map[string][]byte)
	l.imageOrder = nil
}

// SnapshotForModel projects the history into chat messages for the
// model gateway. Retained captures become image attachments on a
// follow-up user message; evicted captures become the placeholder.
// When a token budget is set, the oldest turns past the goal are
// trimmed until the estimate fits.
func (l *Log) SnapshotForModel() []llm.ChatMessage {
	l.mu.RLock()
	defer l.mu.RUnlock()

	turns := l.trimmed()

	var messages []llm.ChatMessage
	for _, turn := range turns {
		switch turn.Role {
		case RoleSystem:
			messages = append(messages, llm.SystemMessage(turn.Content))
		case RoleUser:
			messages = append(messages, llm.UserMessage(turn.Content))
		case RoleAssistant:
			messages = append(messages, llm.ChatMessage{
				Role:      "assistant",
				Content:   turn.Content,
				ToolCalls: turn.ToolCalls,
			})
		case RoleTool:
			messages = append(messages, llm.ToolResultMessage(turn.ToolCallID, turn.Content))
			if turn.Image != nil {
				messages = append(messages, l.imageMessage(*turn.Image))
			}
		}
	}
	return messages
}

// imageMessage carries a capture to the model as a user message, the
// way multimodal tool results are delivered: bytes when retained, the
// placeholder otherwise. Caller holds the lock.
func (l *Log) imageMessage(ref ImageRef) llm.ChatMessage {
	png, ok := l.images[ref.ID]
	if !ok {
		return llm.UserMessage(imagePlaceholder)
	}
	caption := fmt.Sprintf("Screenshot from %s (%dx%d):", ref.Origin, ref.Width, ref.Height)
	return llm.UserImageMessage(caption, llm.ImageAttachment{MediaType: ref.MediaType, Data: png})
}

// trimmed returns the turn window that fits the token budget. System
// turns and the goal turn are never dropped; dropping an assistant turn
// also drops the tool turns answering its calls. Caller holds the lock.
func (l *Log) trimmed() []Turn {
	if l.budget <= 0 {
		return l.turns
	}

	dropped := make(map[int]bool)
	total := 0
	for _, t := range l.turns {
		total += l.turnTokens(t)
	}

	for total > l.budget {
		idx := -1
		for i, t := range l.turns {
			if dropped[t.Seq] || t.Role == RoleSystem || t.Seq == l.goalSeq {
				continue
			}
			idx = i
			break
		}
		if idx < 0 {
			break
		}

		victim := l.turns[idx]
		dropped[victim.Seq] = true
		total -= l.turnTokens(victim)

		for _, call := range victim.ToolCalls {
			for _, t := range l.turns[idx+1:] {
				if t.Role == RoleTool && t.ToolCallID == call.ID && !dropped[t.Seq] {
					dropped[t.Seq] = true
					total -= l.turnTokens(t)
				}
			}
		}
	}

	if len(dropped) == 0 {
		return l.turns
	}
	kept := make([]Turn, 0, len(l.turns)-len(dropped))
	for _, t := range l.turns {
		if !dropped[t.Seq] {
			kept = append(kept, t)
		}
	}
	return kept
}

func (l *Log) turnTokens(t Turn) int {
	n := estimateTokens(t.Content)
	for _, call := range t.ToolCalls {
		n += estimateTokens(call.Name) + estimateTokens(string(call.Arguments))
	}
	if t.Image != nil {
		if _, ok := l.images[t.Image.ID]; ok {
			n += imageTokenEstimate
		} else {
			n += estimateTokens(imagePlaceholder)
		}
	}
	return n
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// estimateTokens counts tokens with the cl100k_base encoding, falling
// back to bytes/4 when the encoding cannot be loaded.
func estimateTokens(text string) int {
	encodingOnce.Do(func() {
		encoding, _ = tiktoken.GetEncoding("cl100k_base")
	})
	if encoding == nil {
		return len(text) / 4
	}
	return len(encoding.Encode(text, nil, nil))
}
