package cli

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tatianab/dungeon-master/internal/checkpoint"
	"github.com/tatianab/dungeon-master/internal/config"
	"github.com/tatianab/dungeon-master/internal/dice"
	"github.com/tatianab/dungeon-master/internal/engine"
	"github.com/tatianab/dungeon-master/internal/logger"
	"github.com/tatianab/dungeon-master/internal/narration"
	"github.com/tatianab/dungeon-master/internal/telemetry"
)

// app is one fully wired process: logger, telemetry, store and machine.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	store     checkpoint.Store
	machine   *engine.Machine
	roller    *dice.Roller
	completer narration.Completer

	closers []func(context.Context) error
}

func newApp(ctx context.Context, cfg *config.Config) (_ *app, err error) {
	a := &app{cfg: cfg}
	defer func() {
		if err != nil {
			a.close(ctx)
		}
	}()

	a.logger, err = logger.New(logger.Config{
		Level:      cfg.LogLevel,
		Encoding:   cfg.LogEncoding,
		OutputPath: cfg.LogOutput,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.closers = append(a.closers, func(context.Context) error {
		_ = a.logger.Sync()
		return nil
	})

	shutdown, err := telemetry.SetupTracing(ctx, cfg.OTelEndpoint, cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdown)

	reg := telemetry.NewRegistry()
	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	telemetry.ServeMetrics(metricsCtx, cfg.MetricsAddr, reg, a.logger)
	a.closers = append(a.closers, func(context.Context) error {
		stopMetrics()
		return nil
	})

	a.store, err = checkpoint.Open(ctx, cfg.CheckpointOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s checkpoint store: %w", cfg.CheckpointBackend, err)
	}
	a.closers = append(a.closers, func(context.Context) error { return a.store.Close() })

	gateway, builder, err := a.narrator(ctx)
	if err != nil {
		return nil, err
	}

	a.roller = dice.NewRoller(nil)
	a.machine, err = engine.New(engine.Options{
		Store:           a.store,
		Gateway:         gateway,
		Builder:         builder,
		Roller:          a.roller,
		Pacing:          cfg.PacingConfig(),
		MemoryWindow:    cfg.MemoryWindow,
		ContextLookback: cfg.ContextLookback,
		FallbackAbility: cfg.Ability(),
		Policy:          cfg.Policy(),
		Logger:          a.logger,
		Registerer:      reg,
	})
	if err != nil {
		return nil, err
	}
	a.logger.Info("dungeon master ready",
		zap.String("backend", cfg.CheckpointBackend),
		zap.String("provider", cfg.NarrationProvider))
	return a, nil
}

// narrator picks the narration gateway and world builder for the
// configured provider. Model-backed narration is wrapped so it can never
// stop a turn.
func (a *app) narrator(ctx context.Context) (narration.Gateway, narration.WorldBuilder, error) {
	switch a.cfg.NarrationProvider {
	case config.ProviderGemini:
		g, err := narration.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create gemini client: %w", err)
		}
		a.closers = append(a.closers, func(context.Context) error { return g.Close() })
		a.completer = g
	case config.ProviderOpenAI:
		o, err := narration.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.OpenAIModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		a.completer = o
	default:
		p := narration.NewProcedural()
		return p, p, nil
	}
	model := narration.NewModel(a.completer)
	return narration.NewResilient(model, a.cfg.RetryPolicy(), a.logger),
		narration.NewFallbackBuilder(model, a.logger), nil
}

// close releases everything in reverse order of creation.
func (a *app) close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
