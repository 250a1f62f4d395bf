package bus

// UserTurn is a raw conversational request from a connected front-end.
type UserTurn struct {
	ClientID string `json:"client_id"`
	Text     string `json:"text"`
}

// EventType distinguishes the outbound frames sent to the front-end.
type EventType string

const (
	EventNarration EventType = "narration" // assistant text for display
	EventStatus    EventType = "status"    // pipeline progress notices
	EventFade      EventType = "fade"      // cover opacity ramp directive
	EventMarker    EventType = "marker"    // destination marker show/hide
	EventLoad      EventType = "load"      // begin loading an environment
	EventActivate  EventType = "activate"  // switch to the loaded environment
)

// Event is an outbound frame for the renderer front-end. Only the fields
// relevant to the Type are populated.
type Event struct {
	Type        EventType `json:"type"`
	ClientID    string    `json:"client_id,omitempty"` // empty = broadcast
	Text        string    `json:"text,omitempty"`
	Environment string    `json:"environment,omitempty"`
	RequestID   string    `json:"request_id,omitempty"` // correlates load acks
	Opacity     float64   `json:"opacity,omitempty"`
	DurationMs  int       `json:"duration_ms,omitempty"`
	Visible     bool      `json:"visible,omitempty"`
}
