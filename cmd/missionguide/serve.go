// Missionguide - Conversational guide for the Orbitarium simulator
// License: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/orbitarium/missionguide/pkg/bus"
	"github.com/orbitarium/missionguide/pkg/commands"
	"github.com/orbitarium/missionguide/pkg/config"
	"github.com/orbitarium/missionguide/pkg/dispatch"
	"github.com/orbitarium/missionguide/pkg/gateway"
	"github.com/orbitarium/missionguide/pkg/logger"
	"github.com/orbitarium/missionguide/pkg/orchestrator"
	"github.com/orbitarium/missionguide/pkg/physics"
	"github.com/orbitarium/missionguide/pkg/providers"
	"github.com/orbitarium/missionguide/pkg/ratelimit"
	"github.com/orbitarium/missionguide/pkg/session"
	"github.com/orbitarium/missionguide/pkg/transition"
	"github.com/orbitarium/missionguide/pkg/voice"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway for renderer front-ends",
		RunE:  runServe,
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry, provider, err := loadCore(cfg)
	if err != nil {
		return err
	}

	sess := session.NewState(cfg.Session.StartLocation, cfg.Session.HistoryWindow)
	model := physics.NewModel(nil)
	dispatcher := dispatch.NewDispatcher(registry)
	dispatch.BindBuiltins(dispatcher, model, sess)
	auditHandlers(registry, dispatcher)

	msgBus := bus.NewMessageBus()
	srv := gateway.NewServer(cfg.Gateway, msgBus)
	stage := gateway.NewRemoteStage(srv)

	machine := transition.NewMachine(stage, timingFromConfig(cfg.Transition),
		transition.WithOnActivate(func(env string) {
			rationale := sess.Arrive(env)
			logger.InfoCF("serve", "Arrived at environment", map[string]any{
				"environment": env,
				"rationale":   rationale,
			})
		}))
	defer machine.Close()

	synth, player := setupVoice(cfg)

	orch := orchestrator.New(orchestrator.Deps{
		Provider:    provider,
		Model:       cfg.LLM.Model,
		Registry:    registry,
		Dispatcher:  dispatcher,
		Session:     sess,
		Synthesizer: synth,
		Player:      player,
		Transitions: machine,
		Limiter: ratelimit.NewLimiter(ratelimit.Config{
			Enabled:           true,
			RequestsPerMinute: cfg.RateLimits.LLMRequestsPerMinute,
		}),
		Notifier:      gateway.NewBusNotifier(msgBus),
		HistoryWindow: cfg.Session.HistoryWindow,
	})
	srv.SetCancelHandler(orch.Cancel)

	if err := srv.Start(ctx); err != nil {
		return err
	}

	go turnLoop(ctx, msgBus, orch)

	logger.InfoCF("serve", "Missionguide ready", map[string]any{
		"location": sess.Location(),
		"commands": registry.Count(),
	})

	<-ctx.Done()
	logger.InfoC("serve", "Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.WarnCF("serve", "Gateway shutdown error", map[string]any{
			"error": err.Error(),
		})
	}
	msgBus.Close()
	return nil
}

// turnLoop drains user turns off the bus and runs them through the
// pipeline one at a time. A turn arriving while another is in flight gets
// a busy notice rather than queueing.
func turnLoop(ctx context.Context, msgBus *bus.MessageBus, orch *orchestrator.Orchestrator) {
	for {
		turn, ok := msgBus.ConsumeTurn(ctx)
		if !ok {
			return
		}
		if _, err := orch.Submit(ctx, turn.Text); err != nil {
			switch {
			case errors.Is(err, orchestrator.ErrTurnInFlight):
				msgBus.PublishEvent(bus.Event{
					Type:     bus.EventStatus,
					ClientID: turn.ClientID,
					Text:     "One moment, I'm still working on the previous request.",
				})
			case errors.Is(err, orchestrator.ErrCancelled):
				// Already surfaced by the pipeline.
			default:
				logger.ErrorCF("serve", "Turn failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
}

// loadCore loads the command catalog and the LLM provider, the two
// dependencies every mode needs.
func loadCore(cfg *config.Config) (*commands.Registry, providers.LLMProvider, error) {
	catalogPath := config.ResolveCatalogPath(configPath(), cfg.Commands.CatalogPath)
	registry, err := commands.Load(catalogPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading command catalog: %w", err)
	}
	logger.InfoCF("serve", "Command catalog loaded", map[string]any{
		"path":     catalogPath,
		"commands": registry.Count(),
	})

	provider, err := providers.CreateProvider(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	return registry, provider, nil
}

// auditHandlers logs loudly for every command the catalog declares without
// a bound handler. Those commands fail at dispatch, not at startup.
func auditHandlers(registry *commands.Registry, dispatcher *dispatch.Dispatcher) {
	if missing := registry.VerifyHandlers(dispatcher.BoundHandlers()); len(missing) > 0 {
		logger.WarnCF("serve", "Commands declared without handlers", map[string]any{
			"commands": strings.Join(missing, ", "),
		})
	}
}

// setupVoice probes the speech stack. Any missing piece degrades the whole
// pipeline to text-only, never to a startup failure.
func setupVoice(cfg *config.Config) (voice.Synthesizer, voice.Player) {
	if !cfg.Voice.Enabled {
		return nil, nil
	}

	synth := voice.NewKokoroSynthesizer(cfg.Voice.APIBase, cfg.Voice.Voice)
	if !synth.IsAvailable() {
		logger.WarnCF("serve", "Speech synthesis unavailable, text only", map[string]any{
			"api_base": cfg.Voice.APIBase,
		})
		return nil, nil
	}

	player, err := voice.NewExecPlayer(cfg.Voice.Player)
	if err != nil {
		logger.WarnCF("serve", "No audio player found, text only", map[string]any{
			"error": err.Error(),
		})
		return nil, nil
	}
	return synth, player
}

func timingFromConfig(t config.TransitionConfig) transition.Timing {
	return transition.Timing{
		FadeOut:     t.FadeOut(),
		FadeIn:      t.FadeIn(),
		MarkerFade:  t.MarkerFade(),
		MinDwell:    t.MinDwell(),
		LoadTimeout: t.LoadTimeout(),
	}
}
