// Package transition sequences the move from one simulated environment to
// another: fade the scene to a cover, show the destination marker, load the
// target in the background while holding a minimum dwell, activate, fade
// back in. At most one transition runs at a time; re-entrant Begin calls
// are rejected, never queued.
package transition

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/orbitarium/missionguide/pkg/environment"
	"github.com/orbitarium/missionguide/pkg/logger"
)

type State int32

const (
	Idle State = iota
	FadingOut
	ShowingMarker
	LoadingTarget
	FadingIn
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case FadingOut:
		return "FadingOut"
	case ShowingMarker:
		return "ShowingMarker"
	case LoadingTarget:
		return "LoadingTarget"
	case FadingIn:
		return "FadingIn"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// ErrBusy is returned by Begin while a transition is already in progress.
var ErrBusy = errors.New("transition already in progress")

// LoadError reports a failed or timed-out background environment load.
type LoadError struct {
	Target string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loading environment %q: %v", e.Target, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Timing holds the phase durations of a transition.
type Timing struct {
	FadeOut     time.Duration
	FadeIn      time.Duration
	MarkerFade  time.Duration
	MinDwell    time.Duration
	LoadTimeout time.Duration
}

// Machine is the environment transition state machine. One instance exists
// per process, owned by the composition root.
type Machine struct {
	stage  Stage
	timing Timing
	state  atomic.Int32

	// onActivate runs after the target environment is activated, before the
	// fade back in. The composition root uses it to move session state.
	onActivate func(target string)
	// done runs after the machine returns to Idle, with the transition's
	// terminal error (nil on success). Tests synchronize on it.
	done func(target string, err error)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type Option func(*Machine)

// WithOnActivate sets the activation callback.
func WithOnActivate(fn func(target string)) Option {
	return func(m *Machine) { m.onActivate = fn }
}

// WithDoneHook sets the completion callback.
func WithDoneHook(fn func(target string, err error)) Option {
	return func(m *Machine) { m.done = fn }
}

func NewMachine(stage Stage, timing Timing, opts ...Option) *Machine {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Machine{
		stage:  stage,
		timing: timing,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the machine's current phase.
func (m *Machine) State() State {
	return State(m.state.Load())
}

// Begin starts a transition to the target environment. It returns ErrBusy
// when a transition is already running (the single-flight guard) and an
// error for targets outside the environment set. The sequence itself runs
// in the background; faults are contained inside the machine.
func (m *Machine) Begin(target string) error {
	canonical, ok := environment.Canonical(target)
	if !ok {
		return fmt.Errorf("unknown environment %q", target)
	}

	if !m.state.CompareAndSwap(int32(Idle), int32(FadingOut)) {
		logger.WarnCF("transition", "Transition rejected, machine busy", map[string]any{
			"target": canonical,
			"state":  m.State().String(),
		})
		return ErrBusy
	}

	logger.InfoCF("transition", "Transition started", map[string]any{
		"target": canonical,
	})

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		err := m.run(canonical)
		m.state.Store(int32(Idle))
		if err != nil {
			logger.ErrorCF("transition", "Transition aborted", map[string]any{
				"target": canonical,
				"error":  err.Error(),
			})
		} else {
			logger.InfoCF("transition", "Transition complete", map[string]any{
				"target": canonical,
			})
		}
		if m.done != nil {
			m.done(canonical, err)
		}
	}()
	return nil
}

func (m *Machine) run(target string) error {
	ctx := m.ctx

	// FadingOut: cover ramps to opaque.
	if err := m.stage.FadeTo(ctx, 1, m.timing.FadeOut); err != nil {
		return fmt.Errorf("fade out: %w", err)
	}

	// ShowingMarker: the destination cue fades in while the load starts in
	// the background.
	m.state.Store(int32(ShowingMarker))
	handle, err := m.stage.BeginLoad(ctx, target)
	if err != nil {
		return &LoadError{Target: target, Err: err}
	}
	if err := m.stage.Show(ctx, target, m.timing.MarkerFade); err != nil {
		return fmt.Errorf("show marker: %w", err)
	}

	// LoadingTarget: hold the cover for the remaining dwell, then wait for
	// the load. Activation never happens before the dwell expires.
	m.state.Store(int32(LoadingTarget))
	if dwell := m.timing.MinDwell - m.timing.MarkerFade; dwell > 0 {
		if err := sleep(ctx, dwell); err != nil {
			return err
		}
	}
	if err := m.awaitLoad(ctx, target, handle); err != nil {
		return err
	}

	if err := m.stage.Activate(handle); err != nil {
		return &LoadError{Target: target, Err: err}
	}
	if m.onActivate != nil {
		m.onActivate(target)
	}

	// FadingIn: cover clears while the marker disappears twice as fast, so
	// it is gone before the destination shows through.
	m.state.Store(int32(FadingIn))
	markerDone := make(chan error, 1)
	go func() {
		markerDone <- m.stage.Hide(ctx, m.timing.FadeIn/2)
	}()
	fadeErr := m.stage.FadeTo(ctx, 0, m.timing.FadeIn)
	markerErr := <-markerDone
	if fadeErr != nil {
		return fmt.Errorf("fade in: %w", fadeErr)
	}
	if markerErr != nil {
		return fmt.Errorf("hide marker: %w", markerErr)
	}

	return nil
}

func (m *Machine) awaitLoad(ctx context.Context, target string, handle LoadHandle) error {
	timeout := m.timing.LoadTimeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case err := <-handle.Done():
		if err != nil {
			return &LoadError{Target: target, Err: err}
		}
		return nil
	case <-t.C:
		return &LoadError{Target: target, Err: errors.New("load timed out")}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any in-flight transition and waits for it to settle.
func (m *Machine) Close() {
	m.cancel()
	m.wg.Wait()
}
