package gateway

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/orbitarium/missionguide/pkg/bus"
	"github.com/orbitarium/missionguide/pkg/transition"
)

// loadTracker correlates load directives with the client acks that answer
// them, keyed by request id.
type loadTracker struct {
	mu      sync.Mutex
	pending map[string]chan error
}

func newLoadTracker() *loadTracker {
	return &loadTracker{pending: make(map[string]chan error)}
}

func (t *loadTracker) register(requestID string) chan error {
	ch := make(chan error, 1)
	t.mu.Lock()
	t.pending[requestID] = ch
	t.mu.Unlock()
	return ch
}

func (t *loadTracker) resolve(requestID string, err error) bool {
	t.mu.Lock()
	ch, ok := t.pending[requestID]
	if ok {
		delete(t.pending, requestID)
	}
	t.mu.Unlock()
	if ok {
		ch <- err
	}
	return ok
}

func (t *loadTracker) failAll(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, ch := range t.pending {
		ch <- err
		delete(t.pending, id)
	}
}

// RemoteStage drives the renderer's cover, marker and environment loads
// over the gateway. Fades and marker ramps run client-side; the stage sends
// the directive and waits out the duration locally so the transition
// machine's phase timing holds with or without a connected renderer. Loads
// complete when the client acks the request id.
type RemoteStage struct {
	srv *Server
}

func NewRemoteStage(srv *Server) *RemoteStage {
	return &RemoteStage{srv: srv}
}

func (s *RemoteStage) FadeTo(ctx context.Context, opacity float64, d time.Duration) error {
	s.srv.bus.PublishEvent(bus.Event{
		Type:       bus.EventFade,
		Opacity:    opacity,
		DurationMs: int(d.Milliseconds()),
	})
	return wait(ctx, d)
}

func (s *RemoteStage) Show(ctx context.Context, env string, d time.Duration) error {
	s.srv.bus.PublishEvent(bus.Event{
		Type:        bus.EventMarker,
		Environment: env,
		Visible:     true,
		DurationMs:  int(d.Milliseconds()),
	})
	return wait(ctx, d)
}

func (s *RemoteStage) Hide(ctx context.Context, d time.Duration) error {
	s.srv.bus.PublishEvent(bus.Event{
		Type:       bus.EventMarker,
		Visible:    false,
		DurationMs: int(d.Milliseconds()),
	})
	return wait(ctx, d)
}

func (s *RemoteStage) BeginLoad(ctx context.Context, env string) (transition.LoadHandle, error) {
	requestID := uuid.New().String()
	ch := s.srv.loads.register(requestID)
	s.srv.bus.PublishEvent(bus.Event{
		Type:        bus.EventLoad,
		Environment: env,
		RequestID:   requestID,
	})
	return remoteHandle{env: env, ch: ch}, nil
}

func (s *RemoteStage) Activate(h transition.LoadHandle) error {
	rh, ok := h.(remoteHandle)
	if !ok {
		return nil
	}
	s.srv.bus.PublishEvent(bus.Event{
		Type:        bus.EventActivate,
		Environment: rh.env,
	})
	return nil
}

type remoteHandle struct {
	env string
	ch  chan error
}

func (h remoteHandle) Done() <-chan error { return h.ch }

func wait(ctx context.Context, d time.Duration) error {
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
