package synthesis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/judge"
	"github.com/kingrea/magi-council/internal/llm"
)

type captureClient struct {
	reply    string
	err      error
	requests []llm.Request
}

func (c *captureClient) Complete(ctx context.Context, req llm.Request) (llm.Completion, error) {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return llm.Completion{}, c.err
	}
	return llm.Completion{Content: c.reply}, nil
}

func scoredCouncil() ([]agent.Response, judge.Evaluation) {
	responses := []agent.Response{
		{Agent: "MELCHIOR", Answer: "adopt with trials", Success: true},
		{Agent: "BALTHASAR", Answer: "adopt in phases", Success: true},
		{Agent: "CASPER", Answer: "reject on fairness grounds", Success: true},
	}
	evaluation := judge.Evaluation{
		Scores: []judge.ScoreRecord{
			{Agent: "MELCHIOR", Score: 8, Rationale: "solid evidence"},
			{Agent: "BALTHASAR", Score: 9, Rationale: "actionable"},
			{Agent: "CASPER", Score: 6, Rationale: "thin support"},
		},
		Conflicts: []string{"MELCHIOR and CASPER disagree on adoption"},
	}
	return responses, evaluation
}

func TestSynthesizePromptCarriesScoresAndConflicts(t *testing.T) {
	client := &captureClient{reply: "Adopt policy X in phases; CASPER's fairness concern is addressed by trials."}
	engine, err := NewEngine(client)
	require.NoError(t, err)

	responses, evaluation := scoredCouncil()
	answer, err := engine.Synthesize(context.Background(), "Should we adopt policy X?", responses, evaluation)
	require.NoError(t, err)
	require.NotEmpty(t, answer)

	require.Len(t, client.requests, 1)
	prompt := client.requests[0].Messages[1].Content
	require.Contains(t, prompt, "Score: 8/10")
	require.Contains(t, prompt, "Score: 9/10")
	require.Contains(t, prompt, "Score: 6/10")
	require.Contains(t, prompt, "MELCHIOR and CASPER disagree on adoption")
	require.Contains(t, prompt, "state the adopted position and why")
	require.Contains(t, prompt, "adopt with trials")
}

func TestSynthesizeSkipsFailedAgents(t *testing.T) {
	responses := []agent.Response{
		{Agent: "MELCHIOR", Answer: "adopt", Success: true},
		{Agent: "BALTHASAR", Answer: "(no answer was produced for this query)", Success: false, Err: "timeout"},
	}
	evaluation := judge.Evaluation{Scores: []judge.ScoreRecord{{Agent: "MELCHIOR", Score: 7}}}
	client := &captureClient{reply: "final"}
	engine, err := NewEngine(client)
	require.NoError(t, err)

	_, err = engine.Synthesize(context.Background(), "q", responses, evaluation)
	require.NoError(t, err)
	prompt := client.requests[0].Messages[1].Content
	require.NotContains(t, prompt, "BALTHASAR")
}

func TestSynthesizeNoSuccessfulAgents(t *testing.T) {
	responses := []agent.Response{
		{Agent: "MELCHIOR", Success: false, Err: "down"},
		{Agent: "BALTHASAR", Success: false, Err: "down"},
	}
	client := &captureClient{reply: "should never be called"}
	engine, err := NewEngine(client)
	require.NoError(t, err)

	answer, err := engine.Synthesize(context.Background(), "q", responses, judge.Evaluation{})
	require.NoError(t, err)
	require.Equal(t, NoAnswerText, answer)
	require.Empty(t, client.requests, "no endpoint call when nothing succeeded")
}

func TestSynthesizeEndpointFailure(t *testing.T) {
	client := &captureClient{err: &llm.EndpointError{Op: "complete", Err: fmt.Errorf("down")}}
	engine, err := NewEngine(client)
	require.NoError(t, err)

	responses, evaluation := scoredCouncil()
	_, err = engine.Synthesize(context.Background(), "q", responses, evaluation)
	var epErr *llm.EndpointError
	require.ErrorAs(t, err, &epErr)
}
