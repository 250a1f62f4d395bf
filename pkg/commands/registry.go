package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// Registry is the immutable catalog of invocable commands. It is built once
// at startup by Load and never mutated afterwards, so reads need no locking.
type Registry struct {
	byID    map[string]Schema
	order   []string
	presets map[string]Preset
}

func newRegistry() *Registry {
	return &Registry{
		byID:    make(map[string]Schema),
		presets: make(map[string]Preset),
	}
}

func (r *Registry) add(s Schema) {
	r.byID[s.ID] = s
	r.order = append(r.order, s.ID)
}

// Get returns the schema for id.
func (r *Registry) Get(id string) (Schema, bool) {
	s, ok := r.byID[id]
	return s, ok
}

// All returns every schema in catalog order.
func (r *Registry) All() []Schema {
	out := make([]Schema, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Preset returns the named argument bundle.
func (r *Registry) Preset(name string) (Preset, bool) {
	p, ok := r.presets[name]
	return p, ok
}

// PresetNames returns preset names in sorted order.
func (r *Registry) PresetNames() []string {
	names := make([]string, 0, len(r.presets))
	for name := range r.presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the number of loaded commands.
func (r *Registry) Count() int { return len(r.order) }

// Suggest returns the closest known command id within an edit distance of 2,
// for "did you mean" hints when the classifier produces a near-miss id.
func (r *Registry) Suggest(id string) (string, bool) {
	const maxDistance = 2
	best := ""
	bestDist := maxDistance + 1
	for _, known := range r.order {
		d := levenshtein.ComputeDistance(strings.ToLower(id), strings.ToLower(known))
		if d < bestDist {
			best = known
			bestDist = d
		}
	}
	return best, bestDist <= maxDistance
}

// VerifyHandlers checks that every declared command id appears in the given
// set of bound handler names. It returns the ids with no handler, so the
// caller can surface "not implemented" at startup instead of first dispatch.
func (r *Registry) VerifyHandlers(bound map[string]struct{}) []string {
	var missing []string
	for _, id := range r.order {
		if _, ok := bound[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}

// DescribeForPrompt renders the catalog as a compact human-readable summary
// suitable for inclusion in the intent-classification instruction.
func (r *Registry) DescribeForPrompt() string {
	var b strings.Builder
	for _, id := range r.order {
		s := r.byID[id]
		fmt.Fprintf(&b, "- %s: %s\n", s.ID, s.Description)
		for _, p := range s.Parameters {
			req := "optional"
			if p.Required {
				req = "required"
			}
			fmt.Fprintf(&b, "    %s (%s, %s", p.Name, p.Type, req)
			if p.Min != nil {
				fmt.Fprintf(&b, ", min %g", *p.Min)
			}
			if p.Max != nil {
				fmt.Fprintf(&b, ", max %g", *p.Max)
			}
			if p.Default != nil {
				fmt.Fprintf(&b, ", default %v", p.Default)
			}
			b.WriteString(")")
			if p.Help != "" {
				fmt.Fprintf(&b, " - %s", p.Help)
			}
			b.WriteString("\n")
		}
	}

	if len(r.presets) > 0 {
		b.WriteString("Presets (pre-filled argument bundles):\n")
		for _, name := range r.PresetNames() {
			p := r.presets[name]
			fmt.Fprintf(&b, "- %s -> %s %v\n", name, p.Command, p.Arguments)
		}
	}

	return b.String()
}
