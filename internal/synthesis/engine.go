// internal/synthesis/engine.go
//
// The deliberator's merging half. Given the judge's verdict and the original
// responses, it produces the council's single final answer. Higher-scored
// responses carry more weight, every conflict the judge flagged must be
// resolved explicitly, and the synthesis may add connective reasoning but
// no new claims.

package synthesis

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/judge"
	"github.com/kingrea/magi-council/internal/llm"
	"github.com/kingrea/magi-council/internal/logbook"
)

// NoAnswerText is returned when not a single council member produced an
// answer. It is the explicit "no answer" result; synthesis never fabricates
// success.
const NoAnswerText = "The council could not produce an answer: no member completed a response to this query."

// Engine merges scored responses into one final answer.
type Engine struct {
	client      llm.Client
	log         *logbook.Logbook
	temperature float64
}

// Option customizes an Engine.
type Option func(*Engine)

// WithTemperature sets the synthesis sampling temperature.
func WithTemperature(temperature float64) Option {
	return func(e *Engine) { e.temperature = temperature }
}

// WithLogbook attaches an activity log.
func WithLogbook(log *logbook.Logbook) Option {
	return func(e *Engine) { e.log = log.Component("synthesis") }
}

// NewEngine builds the synthesis engine.
func NewEngine(client llm.Client, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, fmt.Errorf("synthesis: llm client is required")
	}
	engine := &Engine{client: client, temperature: 0.3}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

const systemPrompt = `You are synthesizing the final answer of a council of AI agents.
You are given each agent's response together with the judge's score and rationale.

Rules:
- Weight higher-scored responses more heavily.
- For every listed conflict, state explicitly which position you adopt and why.
- Do not introduce facts or claims absent from the agent responses; you may add connective reasoning only.
- Produce one clear, decisive answer, not a summary of who said what.`

// Synthesize produces the final answer text. With zero successful responses
// it returns NoAnswerText without touching the endpoint.
func (e *Engine) Synthesize(ctx context.Context, query string, responses []agent.Response, evaluation judge.Evaluation) (string, error) {
	succeeded := 0
	for _, resp := range responses {
		if resp.Success {
			succeeded++
		}
	}
	if succeeded == 0 {
		e.log.Warn("skipping synthesis: no successful responses")
		return NoAnswerText, nil
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: synthesisPrompt(query, responses, evaluation)},
	}
	completion, err := e.client.Complete(ctx, llm.Request{Messages: messages, Temperature: e.temperature})
	if err != nil {
		return "", fmt.Errorf("synthesis: %w", err)
	}
	answer := strings.TrimSpace(completion.Content)
	if answer == "" {
		return "", fmt.Errorf("synthesis: endpoint returned an empty answer")
	}
	return answer, nil
}

func synthesisPrompt(query string, responses []agent.Response, evaluation judge.Evaluation) string {
	answers := make(map[string]agent.Response, len(responses))
	for _, resp := range responses {
		if resp.Success {
			answers[strings.ToUpper(resp.Agent)] = resp
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nScored responses:\n", query)
	for _, record := range evaluation.Scores {
		resp, ok := answers[strings.ToUpper(record.Agent)]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\nAgent: %s\nScore: %d/%d\nJudge rationale: %s\nResponse:\n%s\n",
			record.Agent, record.Score, judge.MaxScore, record.Rationale, resp.Answer)
		delete(answers, strings.ToUpper(record.Agent))
	}
	// Successful responses the judge could not score still inform synthesis.
	for _, resp := range responses {
		r, ok := answers[strings.ToUpper(resp.Agent)]
		if !ok || !r.Success {
			continue
		}
		fmt.Fprintf(&b, "\nAgent: %s\nScore: unscored\nResponse:\n%s\n", r.Agent, r.Answer)
	}

	if len(evaluation.Agreements) > 0 {
		b.WriteString("\nPoints of agreement:\n")
		for _, statement := range evaluation.Agreements {
			fmt.Fprintf(&b, "- %s\n", statement)
		}
	}
	if len(evaluation.Conflicts) > 0 {
		b.WriteString("\nConflicts to resolve explicitly (state the adopted position and why):\n")
		for _, statement := range evaluation.Conflicts {
			fmt.Fprintf(&b, "- %s\n", statement)
		}
	}
	b.WriteString("\nWrite the council's final answer now.")
	return b.String()
}
