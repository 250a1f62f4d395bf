package providers

import "testing"

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
		found bool
	}{
		{
			name:  "bare object",
			input: `{"intent":"execute"}`,
			want:  `{"intent":"execute"}`,
			found: true,
		},
		{
			name:  "leading prose",
			input: "Sure! Here is the command:\n{\"intent\":\"execute\",\"commandId\":\"set_time_warp\"}",
			want:  `{"intent":"execute","commandId":"set_time_warp"}`,
			found: true,
		},
		{
			name:  "markdown fence",
			input: "```json\n{\"intent\":\"none\"}\n```",
			want:  `{"intent":"none"}`,
			found: true,
		},
		{
			name:  "nested braces",
			input: `{"arguments":{"altitude_km":420},"intent":"execute"}`,
			want:  `{"arguments":{"altitude_km":420},"intent":"execute"}`,
			found: true,
		},
		{
			name:  "braces inside strings",
			input: `{"note":"a { tricky } string with \" escapes"}`,
			want:  `{"note":"a { tricky } string with \" escapes"}`,
			found: true,
		},
		{
			name:  "unbalanced",
			input: `{"intent":"execute"`,
			found: false,
		},
		{
			name:  "no object at all",
			input: "I'm not sure what you mean.",
			found: false,
		},
		{
			name:  "skips unclosed then finds later object",
			input: "weird { fragment\nbut then {\"intent\":\"none\"} follows",
			want:  `{"intent":"none"}`,
			found: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, found := ExtractJSONObject(tc.input)
			if found != tc.found {
				t.Fatalf("found=%v, want %v", found, tc.found)
			}
			if found && got != tc.want {
				t.Errorf("got %q, want %q", got, tc.want)
			}
		})
	}
}
