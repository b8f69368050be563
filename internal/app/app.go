// Package app provides application initialization and dependency wiring.
//
// Setup builds the full pipeline from configuration: logger, tracing,
// upstream client, module router, research adapter, prompt assembler, and
// the orchestrator that ties them together. Commands consume the App
// container instead of wiring components themselves.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/asterhq/aster/internal/config"
	"github.com/asterhq/aster/internal/log"
	"github.com/asterhq/aster/internal/observability"
	"github.com/asterhq/aster/internal/orchestrator"
	"github.com/asterhq/aster/internal/prompt"
	"github.com/asterhq/aster/internal/research"
	"github.com/asterhq/aster/internal/router"
	"github.com/asterhq/aster/internal/upstream"
)

// App is the core application container.
type App struct {
	Config       *config.Config
	Logger       log.Logger
	Orchestrator *orchestrator.Orchestrator

	shutdownTracing func(context.Context) error
}

// Setup initializes all application components from the validated config.
func Setup(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	logger := log.New(log.Config{
		Level: parseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})

	shutdownTracing, err := observability.Setup(ctx, observability.Config{
		Endpoint:    cfg.OTLPEndpoint,
		Environment: cfg.Environment,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing tracing: %w", err)
	}

	client, err := upstream.New(upstream.Config{
		BaseURL: cfg.UpstreamBaseURL,
		APIKey:  cfg.UpstreamAPIKey,
		Logger:  logger.With("component", "upstream"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating upstream client: %w", err)
	}

	moduleRouter, err := router.New(router.Config{
		Client:       client,
		Logger:       logger.With("component", "router"),
		Model:        cfg.ClassifierModel,
		MaxTokens:    cfg.ClassifierMaxTokens,
		Timeout:      cfg.ClassifierTimeout,
		HistoryTurns: cfg.ClassifierHistoryTurns,
	})
	if err != nil {
		return nil, fmt.Errorf("creating module router: %w", err)
	}

	researchClient, err := research.NewClient(research.ClientConfig{
		BaseURL: cfg.ResearchBaseURL,
		Timeout: cfg.ResearchTimeout,
		Logger:  logger.With("component", "research"),
	})
	if err != nil {
		return nil, fmt.Errorf("creating research client: %w", err)
	}

	adapter, err := research.NewAdapter(researchClient,
		logger.With("component", "research"), cfg.ResearchTopK)
	if err != nil {
		return nil, fmt.Errorf("creating research adapter: %w", err)
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Client:       client,
		Router:       moduleRouter,
		Assembler:    prompt.New(),
		Adapter:      adapter,
		Logger:       logger.With("component", "orchestrator"),
		Model:        cfg.ModelName,
		Temperature:  cfg.Temperature,
		MaxTokens:    cfg.MaxTokens,
		HistoryTurns: cfg.ModelHistoryTurns,
		ToolUse:      cfg.ToolUseEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("creating orchestrator: %w", err)
	}

	return &App{
		Config:          cfg,
		Logger:          logger,
		Orchestrator:    orch,
		shutdownTracing: shutdownTracing,
	}, nil
}

// Close flushes pending telemetry. Safe to call once after all runs finish.
func (a *App) Close(ctx context.Context) error {
	a.Logger.Info("shutting down application")
	if a.shutdownTracing != nil {
		return a.shutdownTracing(ctx)
	}
	return nil
}

// parseLevel maps a config log level string onto slog. Unknown values fall
// back to info rather than failing startup.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
