// Package llm provides shared data models for LLM providers.
package llm

import "encoding/json"

// ImageAttachment carries raw image bytes attached to a chat message.
// Providers encode it into their own wire format (data URL, base64 block,
// inline blob).
type ImageAttachment struct {
	MediaType string // e.g. "image/png"
	Data      []byte
}

// ChatMessage represents a chat message with role and content.
// A message may carry image attachments for vision-capable models.
type ChatMessage struct {
	Role       string            `json:"role"`
	Content    string            `json:"content"`
	Images     []ImageAttachment `json:"-"`
	ToolCalls  []ToolCall        `json:"tool_calls,omitempty"`   // For assistant messages with tool calls
	ToolCallID string            `json:"tool_call_id,omitempty"` // For tool result messages
}

// ToolCall represents a tool call from the LLM.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition defines a tool that the LLM can call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: "system", Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: "user", Content: content}
}

// UserImageMessage creates a user message with an attached image.
func UserImageMessage(content string, image ImageAttachment) ChatMessage {
	return ChatMessage{Role: "user", Content: content, Images: []ImageAttachment{image}}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: "assistant", Content: content}
}

// ToolResultMessage creates a tool result message answering callID.
func ToolResultMessage(callID, content string) ChatMessage {
	return ChatMessage{Role: "tool", Content: content, ToolCallID: callID}
}

// LLMResponse represents a response from an LLM provider.
type LLMResponse struct {
	Content   string
	ToolCalls []ToolCall // Tool calls requested by the LLM
	Usage     *TokenUsage
}

// TokenUsage contains token usage statistics.
type TokenUsage struct {
	PromptTokens     uint32
	CompletionTokens uint32
	TotalTokens      uint32
}

// Add accumulates usage from another response.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
