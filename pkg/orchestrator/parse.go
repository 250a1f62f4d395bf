package orchestrator

import (
	"encoding/json"

	"github.com/orbitarium/missionguide/pkg/providers"
)

// Intent is the classifier's verdict on a user turn.
type Intent string

const (
	// IntentExecute means the turn maps to a catalog command.
	IntentExecute Intent = "execute"
	// IntentNone means no command applies; the turn is plain conversation.
	IntentNone Intent = "none"
)

// CommandCall is the classifier's structured output for one turn. Arguments
// are untyped until the dispatcher validates them.
type CommandCall struct {
	Intent    Intent         `json:"intent"`
	CommandID string         `json:"commandId"`
	Arguments map[string]any `json:"arguments"`
}

// ParseCommandCall extracts a CommandCall from a free-form model reply.
// Models wrap JSON in prose and code fences, so the first balanced JSON
// object in the text is taken; anything that does not decode into a
// well-formed execute call reports false, and the caller treats the turn
// as IntentNone.
func ParseCommandCall(reply string) (CommandCall, bool) {
	raw, ok := providers.ExtractJSONObject(reply)
	if !ok {
		return CommandCall{}, false
	}

	var call CommandCall
	if err := json.Unmarshal([]byte(raw), &call); err != nil {
		return CommandCall{}, false
	}

	switch call.Intent {
	case IntentNone:
		return CommandCall{Intent: IntentNone}, true
	case IntentExecute:
		if call.CommandID == "" {
			return CommandCall{}, false
		}
		if call.Arguments == nil {
			call.Arguments = map[string]any{}
		}
		return call, true
	default:
		return CommandCall{}, false
	}
}
