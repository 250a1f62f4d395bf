package orchestrator

import "testing"

func TestParseCommandCall(t *testing.T) {
	cases := []struct {
		name  string
		reply string
		ok    bool
		want  Intent
		id    string
	}{
		{
			name:  "bare execute object",
			reply: `{"intent": "execute", "commandId": "set_time_warp", "arguments": {"factor": 100}}`,
			ok:    true, want: IntentExecute, id: "set_time_warp",
		},
		{
			name:  "fenced with prose",
			reply: "Sure, here's the command:\n```json\n{\"intent\": \"execute\", \"commandId\": \"describe_orbit\", \"arguments\": {}}\n```\nLet me know!",
			ok:    true, want: IntentExecute, id: "describe_orbit",
		},
		{
			name:  "explicit none",
			reply: `{"intent": "none"}`,
			ok:    true, want: IntentNone,
		},
		{
			name:  "no json at all",
			reply: "I think you want to create an orbit, but I'm not sure.",
			ok:    false,
		},
		{
			name:  "execute without command id",
			reply: `{"intent": "execute", "arguments": {"factor": 2}}`,
			ok:    false,
		},
		{
			name:  "unknown intent value",
			reply: `{"intent": "maybe", "commandId": "set_time_warp"}`,
			ok:    false,
		},
		{
			name:  "json that is not a call",
			reply: `{"speed": 7.66}`,
			ok:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			call, ok := ParseCommandCall(tc.reply)
			if ok != tc.ok {
				t.Fatalf("ok = %v, want %v", ok, tc.ok)
			}
			if !ok {
				return
			}
			if call.Intent != tc.want {
				t.Errorf("intent = %q, want %q", call.Intent, tc.want)
			}
			if call.CommandID != tc.id {
				t.Errorf("commandId = %q, want %q", call.CommandID, tc.id)
			}
			if call.Intent == IntentExecute && call.Arguments == nil {
				t.Error("execute calls always carry a non-nil arguments map")
			}
		})
	}
}
