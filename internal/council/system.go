package council

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/judge"
	"github.com/kingrea/magi-council/internal/logbook"
	"github.com/kingrea/magi-council/internal/memory"
	"github.com/kingrea/magi-council/internal/synthesis"
)

// DeliberatorKey is the memory partition the evaluation/synthesis role owns
// inside each session, alongside one partition per member.
const DeliberatorKey = "deliberator"

// Evaluator scores council responses. Implemented by judge.Evaluator;
// narrowed to an interface so tests can run the pipeline deterministically.
type Evaluator interface {
	Evaluate(ctx context.Context, query string, responses []agent.Response) (judge.Evaluation, error)
}

// Synthesizer merges scored responses into one final answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, query string, responses []agent.Response, evaluation judge.Evaluation) (string, error)
}

// Result is the terminal artifact of one query. Immutable once returned. The
// response list always has exactly council-size entries; failure is data,
// not absence.
type Result struct {
	Query       string           `json:"query"`
	SessionID   string           `json:"session_id"`
	Responses   []agent.Response `json:"responses"`
	Evaluation  judge.Evaluation `json:"evaluation"`
	FinalAnswer string           `json:"final_answer"`
	AskedAt     time.Time        `json:"asked_at"`
	AnsweredAt  time.Time        `json:"answered_at"`
}

// System runs the full per-query pipeline: orchestrate, evaluate, synthesize.
type System struct {
	orch  *Orchestrator
	eval  Evaluator
	synth Synthesizer
	store memory.Store
	log   *logbook.Logbook
	clock func() time.Time
}

// SystemOption customizes the system.
type SystemOption func(*System)

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) SystemOption {
	return func(s *System) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithSystemLogbook attaches an activity log.
func WithSystemLogbook(log *logbook.Logbook) SystemOption {
	return func(s *System) { s.log = log.Component("system") }
}

// NewSystem wires the pipeline. store holds the deliberator's session
// memory; it may be nil when that continuity is not wanted.
func NewSystem(orch *Orchestrator, eval Evaluator, synth Synthesizer, store memory.Store, opts ...SystemOption) (*System, error) {
	if orch == nil || orch.Size() == 0 {
		return nil, fmt.Errorf("council: at least one agent runner is required")
	}
	if eval == nil {
		return nil, fmt.Errorf("council: evaluator is required")
	}
	if synth == nil {
		return nil, fmt.Errorf("council: synthesizer is required")
	}
	system := &System{
		orch:  orch,
		eval:  eval,
		synth: synth,
		store: store,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(system)
	}
	return system, nil
}

// Size reports the council size.
func (s *System) Size() int { return s.orch.Size() }

// Ask runs one query through the whole pipeline. The returned Result is
// always complete; responses fill every council slot and FinalAnswer is
// either the synthesized answer or the explicit no-answer text. A non-nil
// error marks the query as failed (all members down, judge unreachable, or
// synthesis endpoint failure); it is fatal for this query only and the
// system keeps serving subsequent queries.
func (s *System) Ask(ctx context.Context, sessionID, query string) (Result, error) {
	result := Result{
		Query:     query,
		SessionID: sessionID,
		AskedAt:   s.clock(),
	}
	s.log.Info("query for session %s: %s", sessionID, query)

	result.Responses = s.orch.Run(ctx, sessionID, query)

	evaluation, err := s.eval.Evaluate(ctx, query, result.Responses)
	if err != nil {
		result.FinalAnswer = synthesis.NoAnswerText
		result.AnsweredAt = s.clock()
		if errors.Is(err, judge.ErrAllAgentsFailed) {
			s.log.Error("no member produced an answer")
			return result, fmt.Errorf("council: %w", err)
		}
		s.log.Error("judge unreachable: %v", err)
		return result, fmt.Errorf("council: %w", err)
	}
	result.Evaluation = evaluation

	answer, err := s.synth.Synthesize(ctx, query, result.Responses, evaluation)
	if err != nil {
		result.FinalAnswer = synthesis.NoAnswerText
		result.AnsweredAt = s.clock()
		s.log.Error("synthesis failed: %v", err)
		return result, fmt.Errorf("council: %w", err)
	}
	result.FinalAnswer = answer
	result.AnsweredAt = s.clock()

	s.rememberDeliberation(ctx, sessionID, query, answer)
	s.log.Info("final answer produced for session %s", sessionID)
	return result, nil
}

// rememberDeliberation appends the exchange to the deliberator's partition.
// Best-effort, like all memory writes.
func (s *System) rememberDeliberation(ctx context.Context, sessionID, query, answer string) {
	if s.store == nil {
		return
	}
	now := s.clock().UTC()
	if err := s.store.Append(ctx, DeliberatorKey, sessionID, memory.Turn{Role: memory.RoleUser, Content: query, CreatedAt: now}); err != nil {
		s.log.Warn("append deliberator query turn: %v", err)
		return
	}
	if err := s.store.Append(ctx, DeliberatorKey, sessionID, memory.Turn{Role: memory.RoleAgent, Content: answer, CreatedAt: now}); err != nil {
		s.log.Warn("append deliberator answer turn: %v", err)
	}
}
