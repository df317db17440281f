// internal/llm/client.go
//
// Types shared by everything that talks to the inference endpoint. The
// endpoint is a collaborator, not part of this repo: prompt in, text (or a
// tool-call request) out. Latency and availability are out of our control,
// so every call site treats it as a point of failure.

package llm

import (
	"context"
	"fmt"
)

// Message is one entry in a chat exchange.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
}

// Chat roles understood by OpenAI-compatible endpoints.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is the model asking for one tool invocation. Arguments is the raw
// JSON object the model produced.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolSpec advertises a tool affordance to the model. Every magi tool takes a
// single free-text query, so the wire schema is fixed.
type ToolSpec struct {
	Name        string
	Description string
}

// Request is one completion request.
type Request struct {
	Messages    []Message
	Tools       []ToolSpec
	Temperature float64
}

// Completion is the endpoint's answer: final text, or tool calls the caller
// must execute and fold back before asking again.
type Completion struct {
	Content   string
	ToolCalls []ToolCall
}

// Client issues completion requests against an inference endpoint.
type Client interface {
	Complete(ctx context.Context, req Request) (Completion, error)
}

// EndpointError wraps any failure to obtain a completion: unreachable host,
// timeout, or a malformed response body.
type EndpointError struct {
	Op  string
	Err error
}

func (e *EndpointError) Error() string {
	return fmt.Sprintf("llm: %s: %v", e.Op, e.Err)
}

func (e *EndpointError) Unwrap() error { return e.Err }
