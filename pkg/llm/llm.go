// Package llm defines the chat model contract and message types.
package llm

import (
	"context"

	"github.com/ragline/ragline/pkg/tool"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a tool invocation requested by the model.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is a single conversation message.
type Message struct {
	Role    Role
	Content string

	// ToolCalls is set on assistant messages that request tool execution.
	ToolCalls []ToolCall

	// ToolCallID links a tool-result message to the call it answers.
	ToolCallID string
}

// Response is the model's reply for one assistant turn. It is a tagged
// result: the turn is final when ToolCalls is empty, otherwise Text is
// incidental and the tool calls must be executed before the next turn.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	FinishReason string
}

// Final reports whether the response ends the turn.
func (r *Response) Final() bool {
	return len(r.ToolCalls) == 0
}

// LLM is a chat model with optional tool calling.
type LLM interface {
	// Model returns the configured model name.
	Model() string

	// Chat performs a blocking completion.
	Chat(ctx context.Context, msgs []Message, tools []tool.Definition) (*Response, error)

	// ChatStream performs a streaming completion, forwarding each text
	// delta to onDelta as it arrives. The aggregated response is returned
	// once the stream ends.
	ChatStream(ctx context.Context, msgs []Message, tools []tool.Definition, onDelta func(string)) (*Response, error)

	// Close releases client resources.
	Close() error
}

// SystemMessage is shorthand for a system-role message.
func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// UserMessage is shorthand for a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// AssistantMessage is shorthand for an assistant-role message.
func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResultMessage builds the tool-result message for a call.
func ToolResultMessage(callID, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}
