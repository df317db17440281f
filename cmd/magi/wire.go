package main

import (
	"fmt"

	"github.com/kingrea/magi-council/internal/agent"
	"github.com/kingrea/magi-council/internal/config"
	"github.com/kingrea/magi-council/internal/council"
	"github.com/kingrea/magi-council/internal/judge"
	"github.com/kingrea/magi-council/internal/llm"
	"github.com/kingrea/magi-council/internal/logbook"
	"github.com/kingrea/magi-council/internal/memory"
	"github.com/kingrea/magi-council/internal/personality"
	"github.com/kingrea/magi-council/internal/results"
	"github.com/kingrea/magi-council/internal/synthesis"
	"github.com/kingrea/magi-council/internal/tool"
)

// app bundles everything the subcommands need.
type app struct {
	cfg     *config.Config
	system  *council.System
	runners []*agent.Runner
	store   *memory.SQLiteStore
	results *results.Store
	log     *logbook.Logbook
}

// wireApp initializes the data directory and assembles the full council.
func wireApp() (*app, error) {
	dataDir, err := config.DefaultDataDir()
	if err != nil {
		return nil, err
	}
	if err := config.InitDataDir(dataDir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(dataDir)
	if err != nil {
		return nil, err
	}

	log, err := logbook.New(cfg.LogPath())
	if err != nil {
		// Logging is best-effort everywhere; run without it.
		log = nil
	}

	store, err := memory.OpenSQLite(cfg.MemoryPath())
	if err != nil {
		return nil, fmt.Errorf("open memory store: %w", err)
	}

	personas, err := personality.Load(cfg.PersonalitiesPath)
	if err != nil {
		return nil, fmt.Errorf("load personalities: %w", err)
	}

	client := llm.NewOpenAIClient(cfg.Provider.BaseURL, cfg.Provider.APIKey, cfg.Provider.Model)
	tools := buildTools(cfg)

	runners := make([]*agent.Runner, 0, len(personas))
	for _, persona := range personas {
		runner, err := agent.NewRunner(persona, client, store, tools,
			agent.WithTemperature(cfg.Temperatures.Agent),
			agent.WithLogbook(log),
		)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", persona.Name, err)
		}
		runners = append(runners, runner)
	}

	orch := council.NewOrchestrator(runners,
		council.WithAgentTimeout(cfg.AgentTimeout),
		council.WithOrchestratorLogbook(log),
	)
	evaluator, err := judge.NewEvaluator(client,
		judge.WithTemperature(cfg.Temperatures.Judge),
		judge.WithLogbook(log),
	)
	if err != nil {
		return nil, err
	}
	engine, err := synthesis.NewEngine(client,
		synthesis.WithTemperature(cfg.Temperatures.Synthesis),
		synthesis.WithLogbook(log),
	)
	if err != nil {
		return nil, err
	}
	system, err := council.NewSystem(orch, evaluator, engine, store, council.WithSystemLogbook(log))
	if err != nil {
		return nil, err
	}

	resultStore, err := results.NewStore(cfg.ResultsDir())
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		system:  system,
		runners: runners,
		store:   store,
		results: resultStore,
		log:     log,
	}, nil
}

func buildTools(cfg *config.Config) *tool.Registry {
	var tools []tool.Tool
	if cfg.Tools.WebSearch {
		var opts []tool.WebSearchOption
		if cfg.Tools.SearchEndpoint != "" {
			opts = append(opts, tool.WithSearchEndpoint(cfg.Tools.SearchEndpoint))
		}
		tools = append(tools, tool.NewWebSearch(0, opts...))
	}
	if cfg.Tools.KnowledgeEndpoint != "" {
		if searcher, err := tool.NewEndpointSearcher(cfg.Tools.KnowledgeEndpoint); err == nil {
			tools = append(tools, tool.NewKnowledgeBase(searcher))
		}
	}
	if len(tools) == 0 {
		return nil
	}
	return tool.NewRegistry(tools...)
}

func (a *app) close() {
	if a.store != nil {
		_ = a.store.Close()
	}
}
