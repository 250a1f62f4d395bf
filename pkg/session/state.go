// Package session holds per-process conversational state: where the user
// is, why they were routed there, and a bounded ring of prior exchanges.
// One State exists per running process. It is created by the composition
// root and passed by reference; the orchestrator is the only writer of
// exchanges.
package session

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultHistoryWindow = 12

// Exchange is one completed conversational turn.
type Exchange struct {
	ID              string    `json:"id"`
	UserText        string    `json:"user_text"`
	AssistantText   string    `json:"assistant_text"`
	CommandExecuted string    `json:"command_executed,omitempty"`
	Location        string    `json:"location"`
	Timestamp       time.Time `json:"timestamp"`
}

type State struct {
	mu        sync.RWMutex
	location  string
	rationale string
	exchanges []Exchange
	capacity  int
	visited   map[string]struct{}
}

// NewState creates session state starting at the given location. capacity
// bounds the exchange ring; non-positive values fall back to the default.
func NewState(startLocation string, capacity int) *State {
	if capacity <= 0 {
		capacity = DefaultHistoryWindow
	}
	s := &State{
		location: startLocation,
		capacity: capacity,
		visited:  map[string]struct{}{},
	}
	if startLocation != "" {
		s.visited[startLocation] = struct{}{}
	}
	return s
}

// Record appends a completed exchange, evicting the oldest entry when the
// ring is full. The exchange's ID, location, and timestamp are filled in
// here so callers only supply conversational content.
func (s *State) Record(userText, assistantText, commandExecuted string) Exchange {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex := Exchange{
		ID:              uuid.NewString(),
		UserText:        userText,
		AssistantText:   assistantText,
		CommandExecuted: commandExecuted,
		Location:        s.location,
		Timestamp:       time.Now(),
	}

	s.exchanges = append(s.exchanges, ex)
	if len(s.exchanges) > s.capacity {
		s.exchanges = s.exchanges[len(s.exchanges)-s.capacity:]
	}
	return ex
}

// Exchanges returns a copy of the ring, oldest first.
func (s *State) Exchanges() []Exchange {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Exchange, len(s.exchanges))
	copy(out, s.exchanges)
	return out
}

// RecentWindow renders the most recent n exchanges as a condensed transcript
// for the classifier's conversation-context input.
func (s *State) RecentWindow(n int) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := len(s.exchanges) - n
	if start < 0 {
		start = 0
	}
	var b strings.Builder
	for _, ex := range s.exchanges[start:] {
		fmt.Fprintf(&b, "user: %s\nassistant: %s\n", ex.UserText, ex.AssistantText)
	}
	return b.String()
}

// Location returns the current environment id.
func (s *State) Location() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.location
}

// SetRoutingRationale stores the reason a transition was requested. It is
// consumed by the destination environment via Arrive.
func (s *State) SetRoutingRationale(rationale string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rationale = rationale
}

// RoutingRationale returns the pending routing rationale.
func (s *State) RoutingRationale() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rationale
}

// Arrive moves the session to a new environment, records the visit, and
// returns the routing rationale that motivated the transition, clearing it.
func (s *State) Arrive(environment string) (rationale string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.location = environment
	s.visited[environment] = struct{}{}
	rationale = s.rationale
	s.rationale = ""
	return rationale
}

// Visited reports whether the environment has been entered this session.
func (s *State) Visited(environment string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.visited[environment]
	return ok
}

// VisitedCount returns the number of distinct environments entered.
func (s *State) VisitedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.visited)
}

// Reset clears all conversational state back to the start location. Operator
// action only; never called by the pipeline.
func (s *State) Reset(startLocation string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.location = startLocation
	s.rationale = ""
	s.exchanges = nil
	s.visited = map[string]struct{}{}
	if startLocation != "" {
		s.visited[startLocation] = struct{}{}
	}
}
