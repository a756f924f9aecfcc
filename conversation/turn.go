// Turn types for the conversation log.
//
// A Turn is one entry in a session's history: a user goal, an assistant
// reply (possibly carrying tool calls), or a tool result. Tool-result
// turns may reference a captured image via ImageRef; the bytes behind a
// ref live in the Log's image store, not on the turn itself.

package conversation

import (
	"time"

	"github.com/richinex/argus/llm"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ImageRef is an opaque reference to a captured image. The ref always
// keeps its metadata; whether the bytes are still resolvable depends on
// the log's retention window.
type ImageRef struct {
	ID         string
	Origin     string // tool that produced the capture
	CapturedAt time.Time
	Width      int
	Height     int
	MediaType  string
}

// Turn is one entry in the conversation history. Seq is assigned by the
// log on append and is strictly increasing within a session.
type Turn struct {
	Seq        int
	Role       Role
	Content    string
	ToolCalls  []llm.ToolCall // assistant turns only
	ToolCallID string         // tool turns: the call this result answers
	Image      *ImageRef      // tool turns: optional captured image
}

// SystemTurn builds an unsequenced system turn.
func SystemTurn(content string) Turn {
	return Turn{Role: RoleSystem, Content: content}
}

// UserTurn builds an unsequenced user turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds an unsequenced assistant turn.
func AssistantTurn(content string, toolCalls []llm.ToolCall) Turn {
	return Turn{Role: RoleAssistant, Content: content, ToolCalls: toolCalls}
}

// ToolTurn builds an unsequenced tool-result turn.
func ToolTurn(callID, content string) Turn {
	return Turn{Role: RoleTool, Content: content, ToolCallID: callID}
}
