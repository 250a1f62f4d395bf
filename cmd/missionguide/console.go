// Missionguide - Conversational guide for the Orbitarium simulator
// License: MIT

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/orbitarium/missionguide/pkg/dispatch"
	"github.com/orbitarium/missionguide/pkg/orchestrator"
	"github.com/orbitarium/missionguide/pkg/physics"
	"github.com/orbitarium/missionguide/pkg/ratelimit"
	"github.com/orbitarium/missionguide/pkg/session"
	"github.com/orbitarium/missionguide/pkg/transition"
)

const consolePrompt = "\033[36myou>\033[0m "

func newConsoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Chat with Missionguide in the terminal (no renderer)",
		RunE:  runConsole,
	}
}

// stdoutNotifier prints pipeline output straight to the terminal.
type stdoutNotifier struct{}

func (stdoutNotifier) Narration(text string) {
	fmt.Printf("\033[33mguide>\033[0m %s\n", text)
}

func (stdoutNotifier) Status(text string) {
	fmt.Printf("  [%s]\n", text)
}

func runConsole(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	registry, provider, err := loadCore(cfg)
	if err != nil {
		return err
	}

	sess := session.NewState(cfg.Session.StartLocation, cfg.Session.HistoryWindow)
	model := physics.NewModel(nil)
	dispatcher := dispatch.NewDispatcher(registry)
	dispatch.BindBuiltins(dispatcher, model, sess)
	auditHandlers(registry, dispatcher)

	// No renderer here: transitions are pure timed waits, and arrival is
	// announced on stdout.
	machine := transition.NewMachine(transition.TimedStage{}, timingFromConfig(cfg.Transition),
		transition.WithOnActivate(func(env string) {
			sess.Arrive(env)
			fmt.Printf("  [arrived at %s]\n", env)
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
		Notifier:      stdoutNotifier{},
		HistoryWindow: cfg.Session.HistoryWindow,
	})

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          consolePrompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".missionguide_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("Missionguide console. Starting at %s; type /help for meta-commands.\n", sess.Location())

	for {
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if quit := consoleMeta(input, orch, sess); quit {
				return nil
			}
			continue
		}

		// Turns run off the read loop so /cancel stays reachable while the
		// pipeline is busy.
		go func(text string) {
			if _, err := orch.Submit(context.Background(), text); err != nil {
				switch {
				case errors.Is(err, orchestrator.ErrTurnInFlight):
					fmt.Println("  [still working on the previous request, /cancel to abort]")
				case errors.Is(err, orchestrator.ErrCancelled):
					// The status line already said so.
				default:
					fmt.Printf("  [error: %v]\n", err)
				}
			}
		}(input)
	}
}

// consoleMeta handles the /-prefixed meta-commands. Returns true to quit.
func consoleMeta(input string, orch *orchestrator.Orchestrator, sess *session.State) bool {
	switch input {
	case "/help":
		fmt.Println("  /cancel   abort the in-flight request")
		fmt.Println("  /history  show recent exchanges")
		fmt.Println("  /where    show current location")
		fmt.Println("  /quit     leave the console")

	case "/cancel":
		orch.Cancel()

	case "/history":
		exchanges := sess.Exchanges()
		if len(exchanges) == 0 {
			fmt.Println("  [no exchanges yet]")
			return false
		}
		for _, ex := range exchanges {
			marker := ""
			if ex.CommandExecuted != "" {
				marker = fmt.Sprintf(" (%s)", ex.CommandExecuted)
			}
			fmt.Printf("  %s you: %s\n", ex.Timestamp.Format("15:04:05"), ex.UserText)
			fmt.Printf("           guide%s: %s\n", marker, ex.AssistantText)
		}

	case "/where":
		fmt.Printf("  [%s, %d environment(s) visited]\n", sess.Location(), sess.VisitedCount())

	case "/quit", "/exit":
		fmt.Println("Goodbye!")
		return true

	default:
		fmt.Printf("  [unknown meta-command %s, try /help]\n", input)
	}
	return false
}
