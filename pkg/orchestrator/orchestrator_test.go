package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/orbitarium/missionguide/pkg/commands"
	"github.com/orbitarium/missionguide/pkg/dispatch"
	"github.com/orbitarium/missionguide/pkg/physics"
	"github.com/orbitarium/missionguide/pkg/providers"
	"github.com/orbitarium/missionguide/pkg/session"
)

const testCatalog = `
commands:
  - id: create_circular_orbit
    description: Place the craft on a circular orbit.
    parameters:
      - name: altitude_km
        type: number
        required: true
        min: 160
        max: 400000
      - name: inclination_deg
        type: number
        min: 0
        max: 180
        default: 0
  - id: route_to_mission
    description: Transfer the user to a mission environment.
    parameters:
      - name: mission
        type: string
        required: true
      - name: context_for_specialist
        type: string
    transition:
      target_arg: mission
`

// eventLog records cross-collaborator ordering, which is what most of the
// pipeline's guarantees are about.
type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.events))
	copy(out, l.events)
	return out
}

func (l *eventLog) indexOf(e string) int {
	for i, got := range l.all() {
		if got == e {
			return i
		}
	}
	return -1
}

// scriptedProvider replays canned replies in order. A nil entry simulates a
// service failure for that round-trip.
type scriptedProvider struct {
	mu      sync.Mutex
	replies []*string
	calls   int
	block   chan struct{} // when set, Chat waits on it (or ctx)
	log     *eventLog
}

func reply(s string) *string { return &s }

func (p *scriptedProvider) Chat(ctx context.Context, _ []providers.Message, _ string, _ map[string]any) (*providers.LLMResponse, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	block := p.block
	p.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.log != nil {
		p.log.add("chat")
	}
	if idx >= len(p.replies) || p.replies[idx] == nil {
		return nil, errors.New("completion service unavailable")
	}
	return &providers.LLMResponse{Content: *p.replies[idx], FinishReason: "stop"}, nil
}

func (p *scriptedProvider) GetDefaultModel() string { return "test-model" }

func (p *scriptedProvider) chatCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type fakeSynth struct {
	fail bool
	log  *eventLog
}

func (s *fakeSynth) Synthesize(context.Context, string) (string, error) {
	if s.fail {
		return "", errors.New("tts offline")
	}
	if s.log != nil {
		s.log.add("synthesize")
	}
	return "/nonexistent/narration.mp3", nil
}

func (s *fakeSynth) IsAvailable() bool { return !s.fail }

type fakePlayer struct {
	log   *eventLog
	delay time.Duration
}

func (p *fakePlayer) Play(ctx context.Context, _ string) error {
	if p.delay > 0 {
		select {
		case <-time.After(p.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if p.log != nil {
		p.log.add("playback_done")
	}
	return nil
}

type fakeTransitioner struct {
	log     *eventLog
	mu      sync.Mutex
	targets []string
}

func (t *fakeTransitioner) Begin(target string) error {
	t.mu.Lock()
	t.targets = append(t.targets, target)
	t.mu.Unlock()
	if t.log != nil {
		t.log.add("transition:" + target)
	}
	return nil
}

type fakeNotifier struct {
	mu         sync.Mutex
	narrations []string
	statuses   []string
}

func (n *fakeNotifier) Narration(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.narrations = append(n.narrations, text)
}

func (n *fakeNotifier) Status(text string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, text)
}

type testRig struct {
	orch     *Orchestrator
	provider *scriptedProvider
	sess     *session.State
	trans    *fakeTransitioner
	notif    *fakeNotifier
	log      *eventLog
}

func newRig(t *testing.T, provider *scriptedProvider, voiced bool) *testRig {
	t.Helper()

	reg, err := commands.Parse([]byte(testCatalog), "test.yaml")
	if err != nil {
		t.Fatal(err)
	}
	sess := session.NewState("classroom", 10)
	d := dispatch.NewDispatcher(reg)
	dispatch.BindBuiltins(d, physics.NewModel(nil), sess)

	log := &eventLog{}
	provider.log = log
	trans := &fakeTransitioner{log: log}
	notif := &fakeNotifier{}

	deps := Deps{
		Provider:      provider,
		Registry:      reg,
		Dispatcher:    d,
		Session:       sess,
		Transitions:   trans,
		Notifier:      notif,
		HistoryWindow: 6,
	}
	if voiced {
		deps.Synthesizer = &fakeSynth{log: log}
		deps.Player = &fakePlayer{log: log, delay: 10 * time.Millisecond}
	}

	return &testRig{
		orch:     New(deps),
		provider: provider,
		sess:     sess,
		trans:    trans,
		notif:    notif,
		log:      log,
	}
}

func TestSubmit_CircularOrbitTurn(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply(`{"intent": "execute", "commandId": "create_circular_orbit", "arguments": {"altitude_km": 420, "inclination_deg": 51.6}}`),
		reply("You're now circling Earth at four hundred twenty kilometers."),
	}}
	rig := newRig(t, provider, false)

	turn, err := rig.orch.Submit(context.Background(), "put me in a 420 km orbit like the ISS")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Result == nil || !turn.Result.Succeeded {
		t.Fatalf("expected a successful dispatch, got %+v", turn.Result)
	}
	speed, ok := turn.Result.Facts["speed_km_s"].(float64)
	if !ok || speed < 7.6 || speed > 7.7 {
		t.Errorf("speed fact = %v, want ~7.66", turn.Result.Facts["speed_km_s"])
	}
	if turn.Narration != "You're now circling Earth at four hundred twenty kilometers." {
		t.Errorf("unexpected narration %q", turn.Narration)
	}

	exchanges := rig.sess.Exchanges()
	if len(exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exchanges))
	}
	if exchanges[0].CommandExecuted != "create_circular_orbit" {
		t.Errorf("exchange command = %q", exchanges[0].CommandExecuted)
	}
	if len(rig.trans.targets) != 0 {
		t.Error("a non-routing command must not start a transition")
	}
}

func TestSubmit_UnparseableReplyFailsOpen(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply("Sure! I'd say the best command here would be... hmm."),
		reply("Happy to help — what would you like to try?"),
	}}
	rig := newRig(t, provider, false)

	turn, err := rig.orch.Submit(context.Background(), "hello there")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Call.Intent != IntentNone {
		t.Errorf("intent = %q, want none", turn.Call.Intent)
	}
	if turn.Result != nil {
		t.Error("no dispatch should happen for intent none")
	}

	// The exchange is still recorded, with no command attached.
	exchanges := rig.sess.Exchanges()
	if len(exchanges) != 1 {
		t.Fatalf("expected 1 exchange, got %d", len(exchanges))
	}
	if exchanges[0].CommandExecuted != "" {
		t.Errorf("exchange command = %q, want empty", exchanges[0].CommandExecuted)
	}
}

func TestSubmit_TotalOutageStillNarrates(t *testing.T) {
	// Both model calls fail; the user still gets the deterministic text.
	provider := &scriptedProvider{replies: []*string{nil, nil}}
	rig := newRig(t, provider, false)

	turn, err := rig.orch.Submit(context.Background(), "hello?")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Narration == "" {
		t.Fatal("narration must never be empty")
	}
	if len(rig.notif.narrations) != 1 {
		t.Fatalf("notifier got %d narrations, want 1", len(rig.notif.narrations))
	}
	if len(rig.sess.Exchanges()) != 1 {
		t.Error("outage turns still land in history")
	}
}

func TestSubmit_DispatchFailureNarratedLocally(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply(`{"intent": "execute", "commandId": "create_circular_orbit", "arguments": {"altitude_km": 50}}`),
	}}
	rig := newRig(t, provider, false)

	turn, err := rig.orch.Submit(context.Background(), "orbit at 50 km")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Result.Succeeded {
		t.Fatal("50 km is below the floor, dispatch must fail")
	}
	if !strings.Contains(turn.Narration, "altitude_km") {
		t.Errorf("failure narration should name the field, got %q", turn.Narration)
	}
	// Failure narration is local: only the classify round-trip happened.
	if got := rig.provider.chatCalls(); got != 1 {
		t.Errorf("chat calls = %d, want 1", got)
	}
	if len(rig.trans.targets) != 0 {
		t.Error("failed dispatch must not start a transition")
	}
}

func TestSubmit_NarrationFallbackUsesFacts(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply(`{"intent": "execute", "commandId": "create_circular_orbit", "arguments": {"altitude_km": 420}}`),
		nil, // narration call fails
	}}
	rig := newRig(t, provider, false)

	turn, err := rig.orch.Submit(context.Background(), "420 km orbit")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(turn.Narration, "create circular orbit") {
		t.Errorf("fallback should name the command, got %q", turn.Narration)
	}
	if !strings.Contains(turn.Narration, "420") {
		t.Errorf("fallback should carry the altitude fact, got %q", turn.Narration)
	}
}

func TestSubmit_TransitionWaitsForPlayback(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply(`{"intent": "execute", "commandId": "route_to_mission", "arguments": {"mission": "ISS", "context_for_specialist": "first visit, wants to see the cupola"}}`),
		reply("Packing up — next stop, the International Space Station!"),
	}}
	rig := newRig(t, provider, true)

	turn, err := rig.orch.Submit(context.Background(), "take me to the ISS")
	if err != nil {
		t.Fatal(err)
	}
	if !turn.Result.RequiresTransition || turn.Result.TransitionTarget != "ISS" {
		t.Fatalf("expected a transition to ISS, got %+v", turn.Result)
	}
	if !turn.Spoke {
		t.Error("voiced rig should have played audio")
	}

	play := rig.log.indexOf("playback_done")
	trans := rig.log.indexOf("transition:ISS")
	if play == -1 || trans == -1 {
		t.Fatalf("missing events: %v", rig.log.all())
	}
	if trans < play {
		t.Errorf("transition fired before playback finished: %v", rig.log.all())
	}
}

func TestSubmit_SynthesisFailureSkipsPlaybackWait(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply(`{"intent": "execute", "commandId": "route_to_mission", "arguments": {"mission": "moon"}}`),
		reply("Off to the moon we go."),
	}}
	rig := newRig(t, provider, true)
	rig.orch.deps.Synthesizer = &fakeSynth{fail: true}

	turn, err := rig.orch.Submit(context.Background(), "go to the moon")
	if err != nil {
		t.Fatal(err)
	}
	if turn.Spoke {
		t.Error("failed synthesis must leave the turn text-only")
	}
	// Narration text still reached the user, and the transition still ran.
	if len(rig.notif.narrations) != 1 {
		t.Errorf("notifier got %d narrations, want 1", len(rig.notif.narrations))
	}
	if len(rig.trans.targets) != 1 || rig.trans.targets[0] != "moon" {
		t.Errorf("transition targets = %v", rig.trans.targets)
	}
	if len(rig.sess.Exchanges()) != 1 {
		t.Error("text-only turns still land in history")
	}
}

func TestSubmit_RejectsSecondTurnInFlight(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*string{reply(`{"intent": "none"}`), reply("ok")},
		block:   make(chan struct{}),
	}
	rig := newRig(t, provider, false)

	done := make(chan error, 1)
	go func() {
		_, err := rig.orch.Submit(context.Background(), "first")
		done <- err
	}()

	// Wait for the first turn to be holding the busy flag.
	for !rig.orch.Busy() {
		time.Sleep(time.Millisecond)
	}
	if _, err := rig.orch.Submit(context.Background(), "second"); !errors.Is(err, ErrTurnInFlight) {
		t.Errorf("expected ErrTurnInFlight, got %v", err)
	}

	close(provider.block)
	if err := <-done; err != nil {
		t.Fatalf("first turn failed: %v", err)
	}
	if len(rig.sess.Exchanges()) != 1 {
		t.Error("only the first turn should be recorded")
	}
}

func TestSubmit_CancelRecordsNothing(t *testing.T) {
	provider := &scriptedProvider{
		replies: []*string{reply(`{"intent": "none"}`)},
		block:   make(chan struct{}), // classify hangs until cancelled
	}
	rig := newRig(t, provider, false)

	done := make(chan error, 1)
	go func() {
		_, err := rig.orch.Submit(context.Background(), "never mind")
		done <- err
	}()
	for !rig.orch.Busy() {
		time.Sleep(time.Millisecond)
	}
	rig.orch.Cancel()

	if err := <-done; !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}
	if len(rig.sess.Exchanges()) != 0 {
		t.Error("a cancelled turn must append no exchange")
	}
	if len(rig.trans.targets) != 0 {
		t.Error("a cancelled turn must never start a transition")
	}
	if len(rig.notif.statuses) == 0 {
		t.Error("the user should be told the request was cancelled")
	}

	// The pipeline is usable again after a cancel.
	provider.mu.Lock()
	provider.block = nil
	provider.replies = []*string{reply(`{"intent": "none"}`), reply("hello again")}
	provider.calls = 0
	provider.mu.Unlock()
	if _, err := rig.orch.Submit(context.Background(), "hello"); err != nil {
		t.Fatalf("submit after cancel failed: %v", err)
	}
}

func TestSubmit_RoutingStoresRationale(t *testing.T) {
	provider := &scriptedProvider{replies: []*string{
		reply(`{"intent": "execute", "commandId": "route_to_mission", "arguments": {"mission": "mars", "context_for_specialist": "curious about dust storms"}}`),
		reply("Mars it is."),
	}}
	rig := newRig(t, provider, false)

	if _, err := rig.orch.Submit(context.Background(), "show me mars"); err != nil {
		t.Fatal(err)
	}
	if got := rig.sess.RoutingRationale(); got != "curious about dust storms" {
		t.Errorf("routing rationale = %q", got)
	}
}
