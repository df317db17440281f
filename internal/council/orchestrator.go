// internal/council/orchestrator.go
//
// Concurrent fan-out of one query to every council member. The orchestrator
// always waits for every member to settle (success, failure, or timeout) and
// returns the responses in configured council order so downstream consumers
// see a stable agent-to-slot mapping.

package council

import (
	"context"
	"sync"
	"time"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/logbook"
)

const defaultAgentTimeout = 2 * time.Minute

// Orchestrator runs a fixed council of agent runners against one query.
type Orchestrator struct {
	runners []*agent.Runner
	log     *logbook.Logbook
	timeout time.Duration
}

// OrchestratorOption customizes the orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithAgentTimeout bounds each member's turn. A member exceeding it settles
// as a timeout failure without affecting its siblings.
func WithAgentTimeout(timeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithOrchestratorLogbook attaches an activity log.
func WithOrchestratorLogbook(log *logbook.Logbook) OrchestratorOption {
	return func(o *Orchestrator) { o.log = log.Component("council") }
}

// NewOrchestrator builds an orchestrator over the configured runners. The
// runner order is the council order.
func NewOrchestrator(runners []*agent.Runner, opts ...OrchestratorOption) *Orchestrator {
	orch := &Orchestrator{
		runners: runners,
		timeout: defaultAgentTimeout,
	}
	for _, opt := range opts {
		opt(orch)
	}
	return orch
}

// Size reports the configured council size.
func (o *Orchestrator) Size() int { return len(o.runners) }

// Run fans the query out to every member concurrently and collects all
// results. The returned slice always has exactly Size() entries, indexed by
// council position regardless of completion order; failed members occupy
// their slot with Success=false.
func (o *Orchestrator) Run(ctx context.Context, sessionID, query string) []agent.Response {
	responses := make([]agent.Response, len(o.runners))
	var wg sync.WaitGroup
	wg.Add(len(o.runners))
	for i, runner := range o.runners {
		go func(slot int, runner *agent.Runner) {
			defer wg.Done()
			agentCtx, cancel := context.WithTimeout(ctx, o.timeout)
			defer cancel()
			started := time.Now()
			responses[slot] = runner.Respond(agentCtx, sessionID, query)
			if responses[slot].Success {
				o.log.Info("%s answered in %s", runner.Name(), time.Since(started).Round(time.Millisecond))
			} else {
				o.log.Warn("%s failed after %s: %s", runner.Name(), time.Since(started).Round(time.Millisecond), responses[slot].Err)
			}
		}(i, runner)
	}
	wg.Wait()
	return responses
}
