// Package environment defines the closed set of simulated environments the
// transition state machine can activate.
package environment

import "strings"

const (
	Classroom = "classroom"
	ISS       = "ISS"
	Moon      = "moon"
	Mars      = "mars"
)

var known = []string{Classroom, ISS, Moon, Mars}

// All returns the known environment ids in declaration order.
func All() []string {
	out := make([]string, len(known))
	copy(out, known)
	return out
}

// Canonical resolves an id case-insensitively to its canonical form.
func Canonical(id string) (string, bool) {
	for _, env := range known {
		if strings.EqualFold(env, strings.TrimSpace(id)) {
			return env, true
		}
	}
	return "", false
}

// Known reports whether id names a member of the environment set.
func Known(id string) bool {
	_, ok := Canonical(id)
	return ok
}
