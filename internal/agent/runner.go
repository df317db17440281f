// internal/agent/runner.go
//
// One Runner per council personality. A Runner turns a query into exactly one
// Response: it replays the member's prior turns for the session, lets the
// model consult its tools, and appends the new exchange back to memory.
// Failures stay inside the Response; nothing escapes the runner boundary.

package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/magi-council/internal/llm"
	"github.com/kingrea/magi-council/internal/logbook"
	"github.com/kingrea/magi-council/internal/memory"
	"github.com/kingrea/magi-council/internal/personality"
	"github.com/kingrea/magi-council/internal/tool"
)

// FailedAnswerPlaceholder is appended to memory when a member cannot produce
// an answer, so the conversation log stays continuous across failures.
const FailedAnswerPlaceholder = "(no answer was produced for this query)"

// defaultMaxToolRounds bounds how many tool-call exchanges one turn may make
// before the model must answer.
const defaultMaxToolRounds = 4

// Response is the terminal record of one member's turn for one query.
// Immutable once produced; failed turns carry Success=false and a non-empty
// Err, and still occupy their council slot downstream.
type Response struct {
	Agent       string            `json:"agent"`
	Role        string            `json:"role,omitempty"`
	Query       string            `json:"query"`
	Answer      string            `json:"answer"`
	Invocations []tool.Invocation `json:"tool_invocations,omitempty"`
	Success     bool              `json:"success"`
	Err         string            `json:"error,omitempty"`
}

// Runner wires one personality to the inference endpoint, its memory
// partition, and its tool registry.
type Runner struct {
	persona     personality.Personality
	client      llm.Client
	store       memory.Store
	tools       *tool.Registry
	log         *logbook.Logbook
	temperature float64
	timeout     time.Duration
	maxRounds   int
}

// Option customizes a Runner.
type Option func(*Runner)

// WithTemperature sets the sampling temperature for this member.
func WithTemperature(temperature float64) Option {
	return func(r *Runner) { r.temperature = temperature }
}

// WithTimeout bounds the whole turn. Zero disables the runner-local bound
// (the orchestrator still applies its own).
func WithTimeout(timeout time.Duration) Option {
	return func(r *Runner) { r.timeout = timeout }
}

// WithMaxToolRounds caps tool-call exchanges per turn.
func WithMaxToolRounds(rounds int) Option {
	return func(r *Runner) {
		if rounds > 0 {
			r.maxRounds = rounds
		}
	}
}

// WithLogbook attaches an activity log.
func WithLogbook(log *logbook.Logbook) Option {
	return func(r *Runner) { r.log = log.Component(strings.ToLower(r.persona.Name)) }
}

// NewRunner builds a runner for one council member. tools may be empty; store
// and client are required.
func NewRunner(persona personality.Personality, client llm.Client, store memory.Store, tools *tool.Registry, opts ...Option) (*Runner, error) {
	if err := persona.Validate(); err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}
	if client == nil {
		return nil, fmt.Errorf("agent: llm client is required for %s", persona.Name)
	}
	if store == nil {
		return nil, fmt.Errorf("agent: memory store is required for %s", persona.Name)
	}
	if tools == nil {
		tools = tool.NewRegistry()
	}
	runner := &Runner{
		persona:     persona,
		client:      client,
		store:       store,
		tools:       tools,
		temperature: 0.5,
		maxRounds:   defaultMaxToolRounds,
	}
	for _, opt := range opts {
		opt(runner)
	}
	return runner, nil
}

// Name returns the member's identity.
func (r *Runner) Name() string { return r.persona.Name }

// Role returns the member's role label.
func (r *Runner) Role() string { return r.persona.Role }

// MemoryKey is the member's partition key inside a session.
func (r *Runner) MemoryKey() string {
	return strings.ToLower(strings.ReplaceAll(r.persona.Name, "-", "_"))
}

// Respond produces one Response for one query. It never returns an error:
// every failure mode ends up inside the Response so the orchestrator can keep
// the council slot filled.
func (r *Runner) Respond(ctx context.Context, sessionID, query string) Response {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	resp := Response{
		Agent: r.persona.Name,
		Role:  r.persona.Role,
		Query: query,
	}

	history, err := r.store.Read(ctx, r.MemoryKey(), sessionID)
	if err != nil {
		// Memory is a convenience; answer without it rather than fail the turn.
		r.log.Warn("read history: %v", err)
		history = nil
	}

	answer, invocations, err := r.converse(ctx, history, query)
	resp.Invocations = invocations
	if err != nil {
		resp.Success = false
		resp.Err = err.Error()
		resp.Answer = FailedAnswerPlaceholder
		r.log.Error("respond: %v", err)
		r.remember(ctx, sessionID, query, FailedAnswerPlaceholder)
		return resp
	}

	resp.Success = true
	resp.Answer = answer
	r.remember(ctx, sessionID, query, answer)
	return resp
}

// converse runs the model/tool exchange until final text arrives or the
// round budget runs out.
func (r *Runner) converse(ctx context.Context, history []memory.Turn, query string) (string, []tool.Invocation, error) {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: r.persona.Prompt})
	for _, turn := range history {
		role := llm.RoleUser
		if turn.Role == memory.RoleAgent {
			role = llm.RoleAssistant
		}
		messages = append(messages, llm.Message{Role: role, Content: turn.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: query})

	specs := r.toolSpecs()
	var invocations []tool.Invocation
	for round := 0; round <= r.maxRounds; round++ {
		req := llm.Request{
			Messages:    messages,
			Temperature: r.temperature,
		}
		// Last round withdraws the tool affordances so the model must answer
		// with what it has.
		if round < r.maxRounds {
			req.Tools = specs
		}
		completion, err := r.client.Complete(ctx, req)
		if err != nil {
			return "", invocations, fmt.Errorf("agent %s: %w", r.persona.Name, err)
		}
		if len(completion.ToolCalls) == 0 {
			answer := strings.TrimSpace(completion.Content)
			if answer == "" {
				return "", invocations, fmt.Errorf("agent %s: endpoint returned an empty answer", r.persona.Name)
			}
			return answer, invocations, nil
		}

		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   completion.Content,
			ToolCalls: completion.ToolCalls,
		})
		for _, call := range completion.ToolCalls {
			result, record := r.invokeTool(ctx, call)
			invocations = append(invocations, record)
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				ToolCallID: call.ID,
				Content:    result,
			})
		}
	}
	return "", invocations, fmt.Errorf("agent %s: no final answer after %d tool rounds", r.persona.Name, r.maxRounds)
}

// invokeTool executes one requested call. Tool failure is folded back into
// the exchange as text so the model can answer without the tool.
func (r *Runner) invokeTool(ctx context.Context, call llm.ToolCall) (string, tool.Invocation) {
	query := parseToolQuery(call.Arguments)
	result, record, err := r.tools.Invoke(ctx, call.Name, query)
	if err != nil {
		r.log.Warn("tool %s: %v", call.Name, err)
		return fmt.Sprintf("The %s tool failed (%v). Answer using what you already know.", call.Name, err), record
	}
	return result, record
}

func (r *Runner) toolSpecs() []llm.ToolSpec {
	tools := r.tools.Tools()
	if len(tools) == 0 {
		return nil
	}
	specs := make([]llm.ToolSpec, len(tools))
	for i, t := range tools {
		specs[i] = llm.ToolSpec{Name: t.Name(), Description: t.Description()}
	}
	return specs
}

// remember appends the query and the produced answer as new turns.
// Best-effort: the response already exists, durability is a convenience.
func (r *Runner) remember(ctx context.Context, sessionID, query, answer string) {
	// A turn that failed on deadline still deserves its memory writes.
	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
	}
	now := time.Now().UTC()
	key := r.MemoryKey()
	if err := r.store.Append(ctx, key, sessionID, memory.Turn{Role: memory.RoleUser, Content: query, CreatedAt: now}); err != nil {
		r.log.Warn("append query turn: %v", err)
		return
	}
	if err := r.store.Append(ctx, key, sessionID, memory.Turn{Role: memory.RoleAgent, Content: answer, CreatedAt: now}); err != nil {
		r.log.Warn("append answer turn: %v", err)
	}
}

// parseToolQuery extracts the query argument from a tool call's raw JSON.
// Malformed arguments fall back to the raw string so the tool still gets
// something to work with.
func parseToolQuery(raw string) string {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(raw), &args); err == nil && strings.TrimSpace(args.Query) != "" {
		return strings.TrimSpace(args.Query)
	}
	return strings.TrimSpace(raw)
}
