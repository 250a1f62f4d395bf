// Package orchestrator runs the per-turn pipeline: classify the user's text
// into a command call, dispatch it, narrate the result, voice the narration,
// and only after playback finishes trigger an environment transition when
// the command asked for one. One turn is in flight at a time; a second
// submission is rejected, never queued.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/orbitarium/missionguide/pkg/commands"
	"github.com/orbitarium/missionguide/pkg/dispatch"
	"github.com/orbitarium/missionguide/pkg/logger"
	"github.com/orbitarium/missionguide/pkg/providers"
	"github.com/orbitarium/missionguide/pkg/session"
	"github.com/orbitarium/missionguide/pkg/voice"
)

// ErrTurnInFlight is returned by Submit while another turn is running.
var ErrTurnInFlight = errors.New("a turn is already in flight")

// ErrCancelled is returned when the in-flight turn was cancelled by the
// user. No Exchange is recorded for a cancelled turn.
var ErrCancelled = errors.New("turn cancelled")

// Notifier delivers user-visible output. The serve path backs it with the
// event bus, the console path with stdout. Narration text always reaches
// the user this way, whether or not audio was produced.
type Notifier interface {
	Narration(text string)
	Status(text string)
}

// Transitioner starts an environment transition. Satisfied by
// *transition.Machine; the call is fire-and-forget from the pipeline's
// point of view.
type Transitioner interface {
	Begin(target string) error
}

// Limiter gates each LLM round-trip. Satisfied by *ratelimit.Limiter.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Turn summarizes one completed pipeline pass.
type Turn struct {
	ID        uuid.UUID
	UserText  string
	Call      CommandCall
	Result    *dispatch.Result // nil when no command was dispatched
	Narration string
	Spoke     bool // audio was synthesized and played
}

// Deps carries the pipeline's collaborators. Provider is required; the
// others degrade gracefully when nil (no voice, no transitions, no
// throttling).
type Deps struct {
	Provider      providers.LLMProvider
	Model         string
	Registry      *commands.Registry
	Dispatcher    *dispatch.Dispatcher
	Session       *session.State
	Synthesizer   voice.Synthesizer
	Player        voice.Player
	Transitions   Transitioner
	Limiter       Limiter
	Notifier      Notifier
	HistoryWindow int
}

type Orchestrator struct {
	deps Deps

	busy   atomic.Bool
	mu     sync.Mutex
	cancel context.CancelFunc
}

func New(deps Deps) *Orchestrator {
	if deps.Model == "" && deps.Provider != nil {
		deps.Model = deps.Provider.GetDefaultModel()
	}
	if deps.HistoryWindow <= 0 {
		deps.HistoryWindow = 6
	}
	return &Orchestrator{deps: deps}
}

// Busy reports whether a turn is currently in flight.
func (o *Orchestrator) Busy() bool {
	return o.busy.Load()
}

// Cancel aborts the in-flight turn, if any. Network I/O stops promptly and
// the turn leaves no trace in session history.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cancel != nil {
		o.cancel()
	}
}

// Submit runs one full turn for the given user text. It blocks until the
// turn settles, including the narration playback wait. While it runs, any
// further Submit returns ErrTurnInFlight.
func (o *Orchestrator) Submit(ctx context.Context, userText string) (*Turn, error) {
	if !o.busy.CompareAndSwap(false, true) {
		return nil, ErrTurnInFlight
	}
	defer o.busy.Store(false)

	ctx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	o.cancel = cancel
	o.mu.Unlock()
	defer func() {
		cancel()
		o.mu.Lock()
		o.cancel = nil
		o.mu.Unlock()
	}()

	turn := &Turn{ID: uuid.New(), UserText: userText}

	logger.InfoCF("orchestrator", "Turn started", map[string]any{
		"turn_id": turn.ID.String(),
		"text":    truncate(userText, 80),
	})

	// Classify.
	turn.Call = o.classify(ctx, userText)
	if err := ctx.Err(); err != nil {
		return o.abandon(turn, err)
	}

	// Dispatch.
	if turn.Call.Intent == IntentExecute {
		turn.Result = o.deps.Dispatcher.Execute(ctx, turn.Call.CommandID, turn.Call.Arguments)
		if err := ctx.Err(); err != nil {
			return o.abandon(turn, err)
		}
	}

	// Narrate.
	turn.Narration = o.narrate(ctx, turn)
	if err := ctx.Err(); err != nil {
		return o.abandon(turn, err)
	}

	// The text channel is never blocked, spoken or not.
	if o.deps.Notifier != nil {
		o.deps.Notifier.Narration(turn.Narration)
	}

	// Voice and the playback wait. A cancelled playback still abandons the
	// turn; a failed one just degrades to text.
	turn.Spoke = o.speak(ctx, turn.Narration)
	if err := ctx.Err(); err != nil {
		return o.abandon(turn, err)
	}

	// Transition, only now that playback is done. Fire-and-forget: the
	// machine contains its own faults, and a rejected start is its problem
	// to log.
	if turn.Result != nil && turn.Result.RequiresTransition && o.deps.Transitions != nil {
		if err := o.deps.Transitions.Begin(turn.Result.TransitionTarget); err != nil {
			logger.WarnCF("orchestrator", "Transition not started", map[string]any{
				"target": turn.Result.TransitionTarget,
				"error":  err.Error(),
			})
		}
	}

	// Record. Every completed turn lands in history, failures and
	// non-commands included.
	executed := ""
	if turn.Result != nil {
		executed = turn.Result.CommandID
	}
	o.deps.Session.Record(userText, turn.Narration, executed)

	logger.InfoCF("orchestrator", "Turn complete", map[string]any{
		"turn_id": turn.ID.String(),
		"command": executed,
		"spoke":   turn.Spoke,
	})
	return turn, nil
}

// abandon ends a cancelled turn: nothing is recorded, no transition is
// started, and the UI gets a short cancel notice.
func (o *Orchestrator) abandon(turn *Turn, cause error) (*Turn, error) {
	logger.InfoCF("orchestrator", "Turn cancelled", map[string]any{
		"turn_id": turn.ID.String(),
	})
	if o.deps.Notifier != nil {
		o.deps.Notifier.Status("Request cancelled.")
	}
	return nil, fmt.Errorf("%w: %v", ErrCancelled, cause)
}

// classify asks the language model to turn free text into a CommandCall.
// Any failure, from the network to an unparseable reply, resolves to
// IntentNone: the pipeline fails open to "no action".
func (o *Orchestrator) classify(ctx context.Context, userText string) CommandCall {
	if o.deps.Provider == nil {
		return CommandCall{Intent: IntentNone}
	}
	if err := o.waitLimiter(ctx); err != nil {
		return CommandCall{Intent: IntentNone}
	}

	messages := []providers.Message{
		{Role: "system", Content: classifyInstruction(o.deps.Registry, o.recentWindow())},
		{Role: "user", Content: userText},
	}
	resp, err := o.deps.Provider.Chat(ctx, messages, o.deps.Model, map[string]any{
		"temperature": 0.0,
		"max_tokens":  400,
	})
	if err != nil {
		logger.WarnCF("orchestrator", "Classification call failed", map[string]any{
			"error": err.Error(),
		})
		return CommandCall{Intent: IntentNone}
	}

	call, ok := ParseCommandCall(resp.Content)
	if !ok {
		logger.WarnCF("orchestrator", "Unparseable classification reply", map[string]any{
			"reply": truncate(resp.Content, 120),
		})
		return CommandCall{Intent: IntentNone}
	}
	return call
}

// narrate produces the turn's conversational reply. Dispatch failures get a
// locally composed correction without a second model round-trip; everything
// else goes through the model with a deterministic template as the net.
func (o *Orchestrator) narrate(ctx context.Context, turn *Turn) string {
	if turn.Result != nil && !turn.Result.Succeeded {
		return failureNarration(turn.Result)
	}

	fallback := fallbackNarration(turn)
	if o.deps.Provider == nil {
		return fallback
	}
	if err := o.waitLimiter(ctx); err != nil {
		return fallback
	}

	messages := []providers.Message{
		{Role: "system", Content: narrateInstruction(o.deps.Session.Location())},
		{Role: "user", Content: narrateRequest(turn)},
	}
	resp, err := o.deps.Provider.Chat(ctx, messages, o.deps.Model, map[string]any{
		"temperature": 0.7,
		"max_tokens":  300,
	})
	if err != nil || resp.Content == "" {
		if err != nil {
			logger.WarnCF("orchestrator", "Narration call failed, using template", map[string]any{
				"error": err.Error(),
			})
		}
		return fallback
	}
	return resp.Content
}

// speak synthesizes and plays the narration, blocking until playback ends.
// Returns false when the turn stays text-only.
func (o *Orchestrator) speak(ctx context.Context, text string) bool {
	synth := o.deps.Synthesizer
	player := o.deps.Player
	if synth == nil || player == nil || !synth.IsAvailable() {
		return false
	}

	path, err := synth.Synthesize(ctx, text)
	if err != nil || path == "" {
		if err != nil {
			logger.WarnCF("orchestrator", "Speech synthesis failed, text only", map[string]any{
				"error": err.Error(),
			})
		}
		return false
	}
	defer os.Remove(path)

	if err := player.Play(ctx, path); err != nil {
		if ctx.Err() == nil {
			logger.WarnCF("orchestrator", "Audio playback failed", map[string]any{
				"error": err.Error(),
			})
		}
		return false
	}
	return true
}

func (o *Orchestrator) waitLimiter(ctx context.Context) error {
	if o.deps.Limiter == nil {
		return nil
	}
	return o.deps.Limiter.Wait(ctx)
}

func (o *Orchestrator) recentWindow() string {
	if o.deps.Session == nil {
		return ""
	}
	return o.deps.Session.RecentWindow(o.deps.HistoryWindow)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
