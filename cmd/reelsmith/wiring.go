package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/kweiss/reelsmith/internal/checkpoint"
	"github.com/kweiss/reelsmith/internal/config"
	"github.com/kweiss/reelsmith/internal/events"
	"github.com/kweiss/reelsmith/internal/executor"
	"github.com/kweiss/reelsmith/internal/lifecycle"
	"github.com/kweiss/reelsmith/internal/llm"
	"github.com/kweiss/reelsmith/internal/registry"
)

// components bundles everything the serve and run commands share.
type components struct {
	Config      *config.Config
	Registry    registry.Registry
	Checkpoints *checkpoint.Store
	Bus         *events.Bus
	Manager     *lifecycle.Manager

	cleanup []func()
}

// Close releases held resources in reverse acquisition order.
func (c *components) Close() {
	for i := len(c.cleanup) - 1; i >= 0; i-- {
		c.cleanup[i]()
	}
}

// build wires the full stack from configuration: registry backend
// (PostgreSQL when DATABASE_URL is set, JSON file otherwise), checkpoint
// store, event bus, executor (simulated or Gemini-backed), and the
// lifecycle manager.
func build(ctx context.Context, cfg *config.Config) (*components, error) {
	c := &components{Config: cfg}

	if cfg.DatabaseURL != "" {
		pg, err := registry.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to ensure registry schema: %w", err)
		}
		c.Registry = pg
		c.cleanup = append(c.cleanup, pg.Close)
	} else {
		fr, err := registry.NewFileRegistry(cfg.ResolvedRegistryPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open run registry: %w", err)
		}
		c.Registry = fr
	}

	c.Checkpoints = checkpoint.NewStore(cfg.WorkspaceRoot)
	c.Bus = events.NewBus(events.DefaultCapacity)

	var planner executor.Planner
	var tools executor.Tools
	if cfg.Simulate {
		planner = &executor.SimPlanner{}
		tools = executor.NewSimTools(0)
		log.Println("Simulate mode: using placeholder planner and media tools")
	} else {
		llmCfg := llm.DefaultConfig()
		if cfg.ModelLite != "" {
			llmCfg = llmCfg.WithModel(llm.TierLite, cfg.ModelLite)
		}
		if cfg.ModelStandard != "" {
			llmCfg = llmCfg.WithModel(llm.TierStandard, cfg.ModelStandard)
		}
		if cfg.ModelAdvanced != "" {
			llmCfg = llmCfg.WithModel(llm.TierAdvanced, cfg.ModelAdvanced)
		}
		client, err := llm.NewClient(ctx, llmCfg, cfg.GeminiAPIKey)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		c.cleanup = append(c.cleanup, func() { _ = client.Close() })

		planner = executor.NewGeminiPlanner(client)
		// Media generation runs against placeholder tools until real
		// image/video backends are configured; the pipeline core is
		// agnostic to which is wired in.
		tools = executor.NewSimTools(0)
	}

	exec := executor.New(planner, tools, c.Checkpoints)
	exec.MaxItemAttempts = cfg.RetryAttempts
	c.Manager = lifecycle.NewManager(lifecycle.Options{
		Registry:         c.Registry,
		Checkpoints:      c.Checkpoints,
		Bus:              c.Bus,
		Executor:         exec,
		ReviewGate:       cfg.ReviewGate,
		PollInterval:     time.Duration(cfg.PollInterval),
		InterruptTimeout: time.Duration(cfg.InterruptTimeout),
	})
	return c, nil
}
