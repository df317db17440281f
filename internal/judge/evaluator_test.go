package judge

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/llm"
)

type scriptClient struct {
	replies  []string
	errs     []error
	requests []llm.Request
}

func (s *scriptClient) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	s.requests = append(s.requests, req)
	i := len(s.requests) - 1
	if i < len(s.errs) && s.errs[i] != nil {
		return llm.Completion{}, s.errs[i]
	}
	if i < len(s.replies) {
		return llm.Completion{Content: s.replies[i]}, nil
	}
	return llm.Completion{}, &llm.EndpointError{Op: "complete", Err: fmt.Errorf("script exhausted")}
}

func councilResponses() []agent.Response {
	return []agent.Response{
		{Agent: "MELCHIOR", Role: "Scientist", Answer: "adopt with trials", Success: true},
		{Agent: "BALTHASAR", Role: "Strategist", Answer: "adopt in phases", Success: true},
		{Agent: "CASPER", Role: "Ethicist", Answer: "reject on fairness grounds", Success: true},
	}
}

const goodVerdict = `{
  "scores": [
    {"agent": "MELCHIOR", "score": 8, "rationale": "solid evidence", "strengths": ["data"], "weaknesses": []},
    {"agent": "BALTHASAR", "score": 9, "rationale": "actionable", "strengths": ["plan"], "weaknesses": []},
    {"agent": "CASPER", "score": 6, "rationale": "thin support", "strengths": [], "weaknesses": ["no evidence"]}
  ],
  "agreements": ["all consider long-term effects"],
  "conflicts": ["MELCHIOR and CASPER disagree on adoption"]
}`

func TestEvaluateParsesVerdict(t *testing.T) {
	client := &scriptClient{replies: []string{goodVerdict}}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	verdict, err := eval.Evaluate(context.Background(), "adopt policy X?", councilResponses())
	require.NoError(t, err)
	require.Len(t, verdict.Scores, 3)
	require.Equal(t, []int{8, 9, 6}, []int{verdict.Scores[0].Score, verdict.Scores[1].Score, verdict.Scores[2].Score})
	require.Equal(t, "MELCHIOR", verdict.Scores[0].Agent, "scores follow council order")
	require.Len(t, verdict.Conflicts, 1)
	require.Len(t, client.requests, 1, "clean verdict needs no retry")
}

func TestEvaluateUnwrapsFencedJSON(t *testing.T) {
	client := &scriptClient{replies: []string{"```json\n" + goodVerdict + "\n```"}}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	verdict, err := eval.Evaluate(context.Background(), "q", councilResponses())
	require.NoError(t, err)
	require.Len(t, verdict.Scores, 3)
}

func TestEvaluateRetriesOnceThenSucceeds(t *testing.T) {
	cases := []string{
		`{"scores": [{"agent": "MELCHIOR", "score": 0}]}`,
		`{"scores": [{"agent": "MELCHIOR", "score": 11}]}`,
		`{"scores": [{"agent": "MELCHIOR", "score": "high"}]}`,
		`not json at all`,
	}
	for _, bad := range cases {
		t.Run(bad, func(t *testing.T) {
			client := &scriptClient{replies: []string{bad, goodVerdict}}
			eval, err := NewEvaluator(client)
			require.NoError(t, err)

			verdict, err := eval.Evaluate(context.Background(), "q", councilResponses())
			require.NoError(t, err)
			require.Len(t, client.requests, 2, "exactly one retry")
			require.Equal(t, 8, verdict.Scores[0].Score)
			for _, record := range verdict.Scores {
				require.False(t, record.Unparseable)
			}
			// Retry carries a corrective instruction.
			retry := client.requests[1].Messages
			require.Equal(t, llm.RoleUser, retry[len(retry)-1].Role)
			require.Contains(t, retry[len(retry)-1].Content, "integer between 1 and 10")
		})
	}
}

func TestEvaluateFallsBackAfterFailedRetry(t *testing.T) {
	client := &scriptClient{replies: []string{"garbage", "still garbage"}}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	verdict, err := eval.Evaluate(context.Background(), "q", councilResponses())
	require.NoError(t, err)
	require.Len(t, client.requests, 2, "exactly one retry before fallback")
	require.Len(t, verdict.Scores, 3)
	for _, record := range verdict.Scores {
		require.Equal(t, DefaultScore, record.Score)
		require.True(t, record.Unparseable, "fallback must be marked, never silently coerced")
	}
}

func TestEvaluateSkipsFailedAgents(t *testing.T) {
	responses := councilResponses()
	responses[1] = agent.Response{Agent: "BALTHASAR", Success: false, Err: "timeout"}
	verdict := `{
	  "scores": [
	    {"agent": "MELCHIOR", "score": 7, "rationale": "ok"},
	    {"agent": "CASPER", "score": 5, "rationale": "ok"}
	  ]
	}`
	client := &scriptClient{replies: []string{verdict}}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	result, err := eval.Evaluate(context.Background(), "q", responses)
	require.NoError(t, err)
	require.Len(t, result.Scores, 2)
	for _, record := range result.Scores {
		require.NotEqual(t, "BALTHASAR", record.Agent)
	}
}

func TestEvaluateRejectsScoreForFailedAgent(t *testing.T) {
	responses := councilResponses()
	responses[2] = agent.Response{Agent: "CASPER", Success: false, Err: "timeout"}
	// Judge scores an agent that failed: invalid, then corrected on retry.
	first := `{
	  "scores": [
	    {"agent": "MELCHIOR", "score": 7},
	    {"agent": "BALTHASAR", "score": 6},
	    {"agent": "CASPER", "score": 5}
	  ]
	}`
	second := `{
	  "scores": [
	    {"agent": "MELCHIOR", "score": 7},
	    {"agent": "BALTHASAR", "score": 6}
	  ]
	}`
	client := &scriptClient{replies: []string{first, second}}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	result, err := eval.Evaluate(context.Background(), "q", responses)
	require.NoError(t, err)
	require.Len(t, result.Scores, 2)
}

func TestEvaluateAllAgentsFailed(t *testing.T) {
	responses := []agent.Response{
		{Agent: "MELCHIOR", Success: false, Err: "down"},
		{Agent: "BALTHASAR", Success: false, Err: "down"},
	}
	client := &scriptClient{}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	_, err = eval.Evaluate(context.Background(), "q", responses)
	require.ErrorIs(t, err, ErrAllAgentsFailed)
	require.Empty(t, client.requests, "no judge call when nothing is scorable")
}

func TestEvaluateJudgeUnreachable(t *testing.T) {
	endpointDown := &llm.EndpointError{Op: "complete", Err: fmt.Errorf("connection refused")}
	client := &scriptClient{errs: []error{endpointDown}}
	eval, err := NewEvaluator(client)
	require.NoError(t, err)

	_, err = eval.Evaluate(context.Background(), "q", councilResponses())
	var epErr *llm.EndpointError
	require.ErrorAs(t, err, &epErr)
}
