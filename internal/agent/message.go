// ABOUTME: Tagged message/content data model: user, assistant, and tool-result messages
// ABOUTME: Append-only by construction; helpers build new slices rather than mutate in place

package agent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// newMessageID mints a fresh identifier for a message or run using
// google/uuid, as message/tool-call/run ids do throughout this package.
func newMessageID() string { return uuid.NewString() }

// Role distinguishes the three message kinds a conversation can contain.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RoleToolResult Role = "tool_result"
)

// PartType identifies the kind of content part inside a user or assistant message.
type PartType string

const (
	PartText     PartType = "text"
	PartThinking PartType = "thinking"
	PartToolCall PartType = "tool_call"
	PartImage    PartType = "image"
)

// Part is a single content block. Which fields are meaningful depends on
// Type: PartText/PartThinking use Text; PartToolCall uses
// ToolCallID/ToolName/ToolInput; PartImage uses ImageData/ImageMimeType.
type Part struct {
	Type PartType `json:"type"`

	Text string `json:"text,omitempty"`

	ToolCallID string          `json:"toolCallId,omitempty"`
	ToolName   string          `json:"toolName,omitempty"`
	ToolInput  json.RawMessage `json:"toolInput,omitempty"`

	ImageData     []byte `json:"imageData,omitempty"`
	ImageMimeType string `json:"imageMimeType,omitempty"`
}

// TextPart builds a text content part.
func TextPart(text string) Part { return Part{Type: PartText, Text: text} }

// ThinkingPart builds a thinking content part.
func ThinkingPart(text string) Part { return Part{Type: PartThinking, Text: text} }

// ToolCallPart builds a tool-call content part with a fully-formed input payload.
func ToolCallPart(id, name string, input json.RawMessage) Part {
	return Part{Type: PartToolCall, ToolCallID: id, ToolName: name, ToolInput: input}
}

// ImagePart builds an image content part, e.g. a screenshot attached to a
// prompt or embedded in a tool result.
func ImagePart(data []byte, mimeType string) Part {
	return Part{Type: PartImage, ImageData: data, ImageMimeType: mimeType}
}

// StopReason mirrors pkg/ai.StopReason at the conversation layer so callers
// of this package don't need to import pkg/ai directly.
type StopReason string

const (
	StopEndTurn StopReason = "stop"
	StopToolUse StopReason = "toolUse"
	StopLength  StopReason = "length"
	StopError   StopReason = "error"
	StopAborted StopReason = "aborted"
)

// Usage carries token accounting for a single assistant turn.
type Usage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
	CacheRead    int `json:"cacheReadTokens,omitempty"`
	CacheWrite   int `json:"cacheWriteTokens,omitempty"`
}

// UserMessage is either a bare string (the common case) or a list of parts
// (for structured input, e.g. a follow-up that embeds a tool result preview).
// Exactly one of Text/Parts is meaningful; use NewUserMessage/NewUserMessageParts.
type UserMessage struct {
	ID        string    `json:"id"`
	Text      string    `json:"text,omitempty"`
	Parts     []Part    `json:"parts,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewUserMessage builds a plain string user message.
func NewUserMessage(id, text string) UserMessage {
	return UserMessage{ID: id, Text: text, CreatedAt: time.Now()}
}

// NewUserMessageParts builds a structured user message.
func NewUserMessageParts(id string, parts []Part) UserMessage {
	return UserMessage{ID: id, Parts: parts, CreatedAt: time.Now()}
}

// Content returns the message's parts, normalizing a bare Text into a single
// text part so callers never need to branch on which field is set.
func (m UserMessage) Content() []Part {
	if len(m.Parts) > 0 {
		return m.Parts
	}
	if m.Text != "" {
		return []Part{TextPart(m.Text)}
	}
	return nil
}

// AssistantMessage is the model's response for one turn: zero or more
// content parts, the reason generation stopped, token usage, and the model
// that produced it. StopReason is StopToolUse if and only if Content
// contains at least one PartToolCall (an invariant this package maintains,
// never the caller).
type AssistantMessage struct {
	ID           string     `json:"id"`
	Content      []Part     `json:"content"`
	StopReason   StopReason `json:"stopReason"`
	Usage        Usage      `json:"usage"`
	Model        string     `json:"model"`
	ErrorMessage string     `json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// HasToolCalls reports whether any content part is a tool call.
func (m *AssistantMessage) HasToolCalls() bool {
	for _, p := range m.Content {
		if p.Type == PartToolCall {
			return true
		}
	}
	return false
}

// ToolCalls returns the tool-call parts in order.
func (m *AssistantMessage) ToolCalls() []Part {
	var calls []Part
	for _, p := range m.Content {
		if p.Type == PartToolCall {
			calls = append(calls, p)
		}
	}
	return calls
}

// Text concatenates all text parts, in order, ignoring thinking and tool calls.
func (m *AssistantMessage) Text() string {
	var out string
	for _, p := range m.Content {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// ToolResultMessage reports the outcome of executing one tool call. Every
// ToolResultMessage in a conversation must pair 1:1 with a preceding
// PartToolCall by ToolCallID; the turn loop maintains this invariant.
type ToolResultMessage struct {
	ID         string          `json:"id"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName,omitempty"`
	Content    string          `json:"content"`
	Details    json.RawMessage `json:"details,omitempty"`
	IsError    bool            `json:"isError,omitempty"`
	Images     []ImageBlock    `json:"-"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Message is the tagged union stored in conversation history. Exactly one of
// User/Assistant/ToolResult is non-nil, selected by Role.
type Message struct {
	Role       Role               `json:"role"`
	User       *UserMessage       `json:"user,omitempty"`
	Assistant  *AssistantMessage  `json:"assistant,omitempty"`
	ToolResult *ToolResultMessage `json:"toolResult,omitempty"`
}

// NewMessage wraps a UserMessage as a conversation Message.
func NewMessage(u UserMessage) Message { return Message{Role: RoleUser, User: &u} }

// NewAssistantMessageEntry wraps an AssistantMessage as a conversation Message.
func NewAssistantMessageEntry(a AssistantMessage) Message {
	return Message{Role: RoleAssistant, Assistant: &a}
}

// NewToolResultMessageEntry wraps a ToolResultMessage as a conversation Message.
func NewToolResultMessageEntry(r ToolResultMessage) Message {
	return Message{Role: RoleToolResult, ToolResult: &r}
}

// Append returns a new slice with msg appended, never mutating history.
// The conversation is append-only by construction: callers must use this
// instead of `append(history, msg)` in place to avoid aliasing a
// previously-observed slice.
func Append(history []Message, msg Message) []Message {
	out := make([]Message, len(history), len(history)+1)
	copy(out, history)
	return append(out, msg)
}
