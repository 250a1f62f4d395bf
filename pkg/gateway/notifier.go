package gateway

import "github.com/orbitarium/missionguide/pkg/bus"

// BusNotifier delivers narration and status text to connected renderers
// through the event bus. It satisfies the orchestrator's Notifier.
type BusNotifier struct {
	bus *bus.MessageBus
}

func NewBusNotifier(msgBus *bus.MessageBus) *BusNotifier {
	return &BusNotifier{bus: msgBus}
}

func (n *BusNotifier) Narration(text string) {
	n.bus.PublishEvent(bus.Event{Type: bus.EventNarration, Text: text})
}

func (n *BusNotifier) Status(text string) {
	n.bus.PublishEvent(bus.Event{Type: bus.EventStatus, Text: text})
}
