// internal/judge/evaluator.go
//
// The deliberator's scoring half. It grades every successful council response
// against fixed criteria and maps the agreements and conflicts across the
// set. The judge itself is a model call, so its output is validated hard:
// a bad score is retried once with a corrective instruction, then replaced by
// a marked neutral default; never silently coerced.

package judge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/llm"
	"github.com/kingrea/magi-council/internal/logbook"
)

// Score bounds and the fallback used when the judge's output is unusable.
const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5
)

// ErrAllAgentsFailed aborts evaluation when not a single council member
// produced an answer. Fatal for the query, not for the process.
var ErrAllAgentsFailed = errors.New("judge: all council agents failed")

// ScoreRecord grades one member's response. Unparseable marks the documented
// fallback after a failed retry; the score is then DefaultScore.
type ScoreRecord struct {
	Agent       string   `json:"agent"`
	Score       int      `json:"score"`
	Rationale   string   `json:"rationale"`
	Strengths   []string `json:"strengths,omitempty"`
	Weaknesses  []string `json:"weaknesses,omitempty"`
	Unparseable bool     `json:"unparseable,omitempty"`
}

// Evaluation is the judge's full verdict for one query. Scores are ordered
// by council position of the members they grade.
type Evaluation struct {
	Scores     []ScoreRecord `json:"scores"`
	Agreements []string      `json:"agreements,omitempty"`
	Conflicts  []string      `json:"conflicts,omitempty"`
}

// Evaluator scores council responses via a model call.
type Evaluator struct {
	client      llm.Client
	log         *logbook.Logbook
	temperature float64
}

// Option customizes an Evaluator.
type Option func(*Evaluator)

// WithTemperature sets the judge's sampling temperature. Judges run cold.
func WithTemperature(temperature float64) Option {
	return func(e *Evaluator) { e.temperature = temperature }
}

// WithLogbook attaches an activity log.
func WithLogbook(log *logbook.Logbook) Option {
	return func(e *Evaluator) { e.log = log.Component("judge") }
}

// NewEvaluator builds the judge.
func NewEvaluator(client llm.Client, opts ...Option) (*Evaluator, error) {
	if client == nil {
		return nil, fmt.Errorf("judge: llm client is required")
	}
	eval := &Evaluator{client: client, temperature: 0.1}
	for _, opt := range opts {
		opt(eval)
	}
	return eval, nil
}

const systemPrompt = `You are an independent judge evaluating responses from a council of AI agents.
Each agent approaches the question from a different perspective.

Score each response from 1 to 10 (integers only) on:
- Relevance to the question
- Depth of analysis
- Use of evidence (tool results, specificity)
- Practical value added

Also identify points where the agents agree and points where they conflict.
Be objective and fair.

Respond with ONLY a JSON object of this exact shape:
{
  "scores": [
    {"agent": "NAME", "score": 7, "rationale": "...", "strengths": ["..."], "weaknesses": ["..."]}
  ],
  "agreements": ["..."],
  "conflicts": ["..."]
}`

const correctiveInstruction = `Your previous reply could not be used. Respond again with ONLY the JSON object described in the instructions. Every score must be an integer between 1 and 10 and every listed agent must appear exactly once.`

// Evaluate scores the successful responses and derives agreement/conflict
// statements. Failed members are excluded from scoring but never from the
// caller's response list. When no member succeeded it returns
// ErrAllAgentsFailed; when the judge endpoint itself cannot be reached the
// endpoint error propagates; both are fatal for the query only.
func (e *Evaluator) Evaluate(ctx context.Context, query string, responses []agent.Response) (Evaluation, error) {
	scorable := successful(responses)
	if len(scorable) == 0 {
		return Evaluation{}, ErrAllAgentsFailed
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: evaluationPrompt(query, scorable)},
	}
	completion, err := e.client.Complete(ctx, llm.Request{Messages: messages, Temperature: e.temperature})
	if err != nil {
		return Evaluation{}, fmt.Errorf("judge: evaluate: %w", err)
	}
	evaluation, parseErr := parseEvaluation(completion.Content, scorable)
	if parseErr == nil {
		return evaluation, nil
	}

	// One corrective retry, then the documented fallback.
	e.log.Warn("unusable evaluation, retrying once: %v", parseErr)
	retryMessages := append(messages,
		llm.Message{Role: llm.RoleAssistant, Content: completion.Content},
		llm.Message{Role: llm.RoleUser, Content: correctiveInstruction},
	)
	completion, err = e.client.Complete(ctx, llm.Request{Messages: retryMessages, Temperature: e.temperature})
	if err != nil {
		return Evaluation{}, fmt.Errorf("judge: evaluate retry: %w", err)
	}
	evaluation, parseErr = parseEvaluation(completion.Content, scorable)
	if parseErr == nil {
		return evaluation, nil
	}
	e.log.Error("retry still unusable, falling back to neutral scores: %v", parseErr)
	return fallbackEvaluation(scorable), nil
}

func successful(responses []agent.Response) []agent.Response {
	out := make([]agent.Response, 0, len(responses))
	for _, resp := range responses {
		if resp.Success {
			out = append(out, resp)
		}
	}
	return out
}

func evaluationPrompt(query string, scorable []agent.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\nAgent responses:\n", query)
	for _, resp := range scorable {
		fmt.Fprintf(&b, "\n--- Agent: %s", resp.Agent)
		if resp.Role != "" {
			fmt.Fprintf(&b, " (%s)", resp.Role)
		}
		b.WriteString(" ---\n")
		b.WriteString(resp.Answer)
		b.WriteString("\n")
		if len(resp.Invocations) > 0 {
			b.WriteString("Tool use:\n")
			for _, inv := range resp.Invocations {
				if inv.Err != "" {
					fmt.Fprintf(&b, "- %s(%q) failed: %s\n", inv.Tool, inv.Query, inv.Err)
					continue
				}
				fmt.Fprintf(&b, "- %s(%q) -> %s\n", inv.Tool, inv.Query, inv.Result)
			}
		}
	}
	b.WriteString("\nEvaluate each response now.")
	return b.String()
}

// wireEvaluation tolerates the score arriving as any JSON number while still
// letting us reject non-integers.
type wireEvaluation struct {
	Scores []struct {
		Agent      string      `json:"agent"`
		Score      json.Number `json:"score"`
		Rationale  string      `json:"rationale"`
		Strengths  []string    `json:"strengths"`
		Weaknesses []string    `json:"weaknesses"`
	} `json:"scores"`
	Agreements []string `json:"agreements"`
	Conflicts  []string `json:"conflicts"`
}

// parseEvaluation validates the judge's reply against the scorable set:
// every scored agent must be known, appear exactly once, and carry an
// integer score inside [MinScore, MaxScore].
func parseEvaluation(content string, scorable []agent.Response) (Evaluation, error) {
	payload := stripFences(content)
	var wire wireEvaluation
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return Evaluation{}, fmt.Errorf("decode evaluation: %w", err)
	}

	byAgent := make(map[string]ScoreRecord, len(wire.Scores))
	for _, entry := range wire.Scores {
		name := strings.TrimSpace(entry.Agent)
		if name == "" {
			return Evaluation{}, fmt.Errorf("score entry without agent name")
		}
		score, err := entry.Score.Int64()
		if err != nil {
			return Evaluation{}, fmt.Errorf("agent %s: score %q is not an integer", name, entry.Score)
		}
		if score < MinScore || score > MaxScore {
			return Evaluation{}, fmt.Errorf("agent %s: score %d outside [%d,%d]", name, score, MinScore, MaxScore)
		}
		key := strings.ToUpper(name)
		if _, dup := byAgent[key]; dup {
			return Evaluation{}, fmt.Errorf("agent %s scored more than once", name)
		}
		byAgent[key] = ScoreRecord{
			Agent:      name,
			Score:      int(score),
			Rationale:  strings.TrimSpace(entry.Rationale),
			Strengths:  entry.Strengths,
			Weaknesses: entry.Weaknesses,
		}
	}

	evaluation := Evaluation{
		Agreements: wire.Agreements,
		Conflicts:  wire.Conflicts,
	}
	// Reorder to council order and require full coverage.
	for _, resp := range scorable {
		record, ok := byAgent[strings.ToUpper(resp.Agent)]
		if !ok {
			return Evaluation{}, fmt.Errorf("agent %s was not scored", resp.Agent)
		}
		record.Agent = resp.Agent
		evaluation.Scores = append(evaluation.Scores, record)
		delete(byAgent, strings.ToUpper(resp.Agent))
	}
	if len(byAgent) > 0 {
		for name := range byAgent {
			return Evaluation{}, fmt.Errorf("judge scored unknown agent %s", name)
		}
	}
	return evaluation, nil
}

func fallbackEvaluation(scorable []agent.Response) Evaluation {
	evaluation := Evaluation{}
	for _, resp := range scorable {
		evaluation.Scores = append(evaluation.Scores, ScoreRecord{
			Agent:       resp.Agent,
			Score:       DefaultScore,
			Rationale:   "evaluation response could not be parsed",
			Unparseable: true,
		})
	}
	return evaluation
}

// stripFences unwraps a ```json ... ``` block if the model wrapped its reply.
func stripFences(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
