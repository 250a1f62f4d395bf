package transition

import (
	"context"
	"time"
)

// Fader ramps the opacity of the cover that hides the scene during a
// transition. FadeTo blocks until the ramp completes or ctx is cancelled.
type Fader interface {
	FadeTo(ctx context.Context, opacity float64, d time.Duration) error
}

// Marker shows the destination-environment cue on top of the cover.
type Marker interface {
	Show(ctx context.Context, environment string, d time.Duration) error
	Hide(ctx context.Context, d time.Duration) error
}

// LoadHandle is an in-flight environment load. Done yields exactly one
// value: nil on successful load, or the load failure.
type LoadHandle interface {
	Done() <-chan error
}

// Loader starts and activates environment loads. The machine only ever
// calls these operations and never inspects loader internals.
type Loader interface {
	BeginLoad(ctx context.Context, environment string) (LoadHandle, error)
	Activate(h LoadHandle) error
}

// Stage bundles the three visual collaborators of a transition.
type Stage interface {
	Fader
	Marker
	Loader
}

// TimedStage is a Stage with no visual output: fades and marker ramps are
// pure waits and loads complete immediately. Used by the console mode and
// as a base for tests.
type TimedStage struct{}

func (TimedStage) FadeTo(ctx context.Context, _ float64, d time.Duration) error {
	return sleep(ctx, d)
}

func (TimedStage) Show(ctx context.Context, _ string, d time.Duration) error {
	return sleep(ctx, d)
}

func (TimedStage) Hide(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}

func (TimedStage) BeginLoad(context.Context, string) (LoadHandle, error) {
	done := make(chan error, 1)
	done <- nil
	return readyHandle{done}, nil
}

func (TimedStage) Activate(LoadHandle) error { return nil }

type readyHandle struct{ ch chan error }

func (h readyHandle) Done() <-chan error { return h.ch }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
