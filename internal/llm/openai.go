package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OpenAIClient speaks the OpenAI-compatible chat completions API. It works
// against LM Studio, OpenRouter, and any other server exposing /chat/completions.
type OpenAIClient struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// OpenAIOption customizes the client.
type OpenAIOption func(*OpenAIClient)

// WithHTTPClient injects a custom HTTP client (primarily for tests).
func WithHTTPClient(hc *http.Client) OpenAIOption {
	return func(c *OpenAIClient) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewOpenAIClient builds a client for the given endpoint and model. Timeouts
// come from the caller's context, not the HTTP client, so one configured
// per-agent bound governs the whole turn.
func NewOpenAIClient(baseURL, apiKey, model string, opts ...OpenAIOption) *OpenAIClient {
	client := &OpenAIClient{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type wireToolFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

type wireTool struct {
	Type     string           `json:"type"`
	Function wireToolFunction `json:"function"`
}

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature float64       `json:"temperature"`
}

type wireResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Every magi tool takes one free-text query.
var queryParameters = json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"The search query."}},"required":["query"]}`)

// Complete issues one chat completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (Completion, error) {
	body := wireRequest{
		Model:       c.model,
		Temperature: req.Temperature,
	}
	for _, msg := range req.Messages {
		body.Messages = append(body.Messages, toWireMessage(msg))
	}
	for _, spec := range req.Tools {
		body.Tools = append(body.Tools, wireTool{
			Type: "function",
			Function: wireToolFunction{
				Name:        spec.Name,
				Description: spec.Description,
				Parameters:  queryParameters,
			},
		})
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Completion{}, &EndpointError{Op: "encode request", Err: err}
	}
	url := c.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Completion{}, &EndpointError{Op: "build request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Completion{}, &EndpointError{Op: "post " + url, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return Completion{}, &EndpointError{Op: "read response", Err: err}
	}
	var parsed wireResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return Completion{}, &EndpointError{Op: "decode response", Err: fmt.Errorf("status %d: %w", resp.StatusCode, err)}
	}
	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(raw))
		if parsed.Error != nil && parsed.Error.Message != "" {
			detail = parsed.Error.Message
		}
		return Completion{}, &EndpointError{Op: "complete", Err: fmt.Errorf("status %d: %s", resp.StatusCode, detail)}
	}
	if len(parsed.Choices) == 0 {
		return Completion{}, &EndpointError{Op: "complete", Err: fmt.Errorf("response has no choices")}
	}

	choice := parsed.Choices[0].Message
	completion := Completion{Content: choice.Content}
	for _, call := range choice.ToolCalls {
		completion.ToolCalls = append(completion.ToolCalls, ToolCall{
			ID:        call.ID,
			Name:      call.Function.Name,
			Arguments: call.Function.Arguments,
		})
	}
	return completion, nil
}

func toWireMessage(msg Message) wireMessage {
	wire := wireMessage{
		Role:       msg.Role,
		Content:    msg.Content,
		ToolCallID: msg.ToolCallID,
	}
	for _, call := range msg.ToolCalls {
		wc := wireToolCall{ID: call.ID, Type: "function"}
		wc.Function.Name = call.Name
		wc.Function.Arguments = call.Arguments
		wire.ToolCalls = append(wire.ToolCalls, wc)
	}
	return wire
}
