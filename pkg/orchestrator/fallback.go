package orchestrator

import (
	"fmt"
	"strings"

	"github.com/orbitarium/missionguide/pkg/dispatch"
)

// failureNarration composes the local user-facing reply for a failed
// dispatch. No model round-trip: the validation message already names what
// to correct.
func failureNarration(result *dispatch.Result) string {
	if result.CommandID == "" {
		return fmt.Sprintf("I couldn't do that: %s. Could you rephrase?", result.ErrorMessage)
	}
	return fmt.Sprintf("I couldn't run %s: %s. Want to try again with different values?",
		humanizeID(result.CommandID), result.ErrorMessage)
}

// fallbackNarration is the deterministic template used when the narration
// model call fails. It is built only from facts already in hand, so it can
// never itself fail.
func fallbackNarration(turn *Turn) string {
	if turn.Result == nil {
		return "I'm listening. Ask me to set up an orbit, change time warp, or take you somewhere."
	}

	r := turn.Result
	var parts []string
	parts = append(parts, fmt.Sprintf("Done: %s completed.", humanizeID(r.CommandID)))
	for _, k := range sortedKeys(r.Facts) {
		parts = append(parts, fmt.Sprintf("%s is %v.", humanizeID(k), r.Facts[k]))
	}
	if r.RequiresTransition {
		parts = append(parts, fmt.Sprintf("Get ready, we're heading to %s.", r.TransitionTarget))
	}
	return strings.Join(parts, " ")
}

// humanizeID turns a snake_case identifier into plain words.
func humanizeID(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}
