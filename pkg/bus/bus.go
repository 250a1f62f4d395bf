package bus

import (
	"context"
	"sync"
)

// MessageBus decouples the gateway from the orchestrator: user turns flow
// inbound, narration and stage directives flow outbound.
type MessageBus struct {
	turns  chan UserTurn
	events chan Event
	closed bool
	mu     sync.RWMutex
}

func NewMessageBus() *MessageBus {
	return &MessageBus{
		turns:  make(chan UserTurn, 16),
		events: make(chan Event, 64),
	}
}

func (mb *MessageBus) PublishTurn(turn UserTurn) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}
	mb.turns <- turn
}

// ConsumeTurn returns the next user turn and whether the read succeeded.
// The bool is false when the context is cancelled or the bus is closed.
func (mb *MessageBus) ConsumeTurn(ctx context.Context) (UserTurn, bool) {
	select {
	case turn, ok := <-mb.turns:
		return turn, ok
	case <-ctx.Done():
		return UserTurn{}, false
	}
}

func (mb *MessageBus) PublishEvent(ev Event) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	if mb.closed {
		return
	}
	mb.events <- ev
}

// SubscribeEvent returns the next outbound event and whether the read
// succeeded. The bool is false when the context is cancelled or the bus is
// closed.
func (mb *MessageBus) SubscribeEvent(ctx context.Context) (Event, bool) {
	select {
	case ev, ok := <-mb.events:
		return ev, ok
	case <-ctx.Done():
		return Event{}, false
	}
}

func (mb *MessageBus) Close() {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if mb.closed {
		return
	}
	mb.closed = true
	close(mb.turns)
	close(mb.events)
}
