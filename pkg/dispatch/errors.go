package dispatch

import (
	"errors"
	"fmt"
)

// ValidationError names the offending field so the narration step can tell
// the user exactly what to correct.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Field, e.Reason)
}

// UnknownCommandError is raised when a dispatched id is absent from the
// registry. Suggestion carries the nearest known id, when one is close.
type UnknownCommandError struct {
	ID         string
	Suggestion string
}

func (e *UnknownCommandError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("unknown command %q (did you mean %q?)", e.ID, e.Suggestion)
	}
	return fmt.Sprintf("unknown command %q", e.ID)
}

// ErrNotImplemented marks a command that is declared in the catalog but has
// no bound handler. The registry handler audit surfaces these at startup;
// hitting one at dispatch time is logged loudly.
var ErrNotImplemented = errors.New("command declared but not implemented")
