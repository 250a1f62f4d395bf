package orchestrator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/orbitarium/missionguide/pkg/commands"
)

// classifyInstruction builds the intent-classification system prompt from
// the live catalog and the condensed conversation window.
func classifyInstruction(registry *commands.Registry, recent string) string {
	var b strings.Builder
	b.WriteString("You are the intent classifier for Missionguide, the guide of an educational space simulator.\n")
	b.WriteString("Decide whether the user's message maps to one of the commands below.\n\n")
	if registry != nil {
		b.WriteString(registry.DescribeForPrompt())
		b.WriteString("\n")
	}
	b.WriteString("Reply with a single JSON object and nothing else:\n")
	b.WriteString(`{"intent": "execute", "commandId": "<id>", "arguments": {<name>: <value>}}` + "\n")
	b.WriteString("or, when no command applies:\n")
	b.WriteString(`{"intent": "none"}` + "\n")
	b.WriteString("\nRules:\n")
	b.WriteString("- Use only command ids listed above.\n")
	b.WriteString("- Numeric argument values must be JSON numbers, not strings.\n")
	b.WriteString("- Omit arguments the user did not specify; defaults are applied elsewhere.\n")
	b.WriteString("- Questions, greetings and chatter are intent \"none\".\n")
	if recent != "" {
		b.WriteString("\nRecent conversation:\n")
		b.WriteString(recent)
	}
	return b.String()
}

// narrateInstruction is the response-generation system prompt. The current
// location colors the phrasing ("here on the ISS...").
func narrateInstruction(location string) string {
	var b strings.Builder
	b.WriteString("You are Missionguide, the friendly voice of an educational space simulator.\n")
	b.WriteString("Answer in two or three short spoken sentences, warm and concrete.\n")
	b.WriteString("Round numbers to what a person would say aloud. No markdown, no lists, no emoji.\n")
	if location != "" {
		fmt.Fprintf(&b, "The visitor is currently at: %s.\n", location)
	}
	return b.String()
}

// narrateRequest renders the turn into the user message for the narration
// call: either the executed command's facts or the plain conversational
// text.
func narrateRequest(turn *Turn) string {
	if turn.Result == nil {
		return fmt.Sprintf("The visitor said: %q. No simulator command applies; reply conversationally.", turn.UserText)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "The visitor said: %q.\n", turn.UserText)
	fmt.Fprintf(&b, "The simulator executed %s successfully. Result facts:\n", turn.Result.CommandID)
	for _, k := range sortedKeys(turn.Result.Facts) {
		fmt.Fprintf(&b, "- %s: %v\n", k, turn.Result.Facts[k])
	}
	if turn.Result.RequiresTransition {
		fmt.Fprintf(&b, "After this reply the visitor travels to %s; close by telling them to get ready.\n",
			turn.Result.TransitionTarget)
	}
	b.WriteString("Narrate the outcome for the visitor.")
	return b.String()
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
