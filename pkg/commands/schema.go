package commands

import "fmt"

// ParamType is the declared type of a command parameter.
type ParamType string

const (
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeString  ParamType = "string"
)

func (t ParamType) Valid() bool {
	switch t {
	case TypeNumber, TypeBoolean, TypeString:
		return true
	}
	return false
}

// Parameter declares one argument of a command: its type, whether it must be
// supplied, and the inclusive numeric range when the type is number.
type Parameter struct {
	Name     string    `yaml:"name"`
	Type     ParamType `yaml:"type"`
	Required bool      `yaml:"required"`
	Min      *float64  `yaml:"min,omitempty"`
	Max      *float64  `yaml:"max,omitempty"`
	Default  any       `yaml:"default,omitempty"`
	Help     string    `yaml:"help,omitempty"`
}

// Transition declares that a command requests an environment transition.
// TargetArg names the argument carrying the destination environment id.
type Transition struct {
	TargetArg string `yaml:"target_arg"`
}

// Schema is one immutable command declaration from the catalog.
type Schema struct {
	ID          string      `yaml:"id"`
	DisplayName string      `yaml:"display_name"`
	Description string      `yaml:"description"`
	Parameters  []Parameter `yaml:"parameters"`
	Transition  *Transition `yaml:"transition,omitempty"`
}

// Param returns the declared parameter with the given name.
func (s *Schema) Param(name string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.Name == name {
			return p, true
		}
	}
	return Parameter{}, false
}

func (s *Schema) validate() error {
	if s.ID == "" {
		return fmt.Errorf("command missing id")
	}
	seen := make(map[string]struct{}, len(s.Parameters))
	for _, p := range s.Parameters {
		if p.Name == "" {
			return fmt.Errorf("command %q: parameter missing name", s.ID)
		}
		if !p.Type.Valid() {
			return fmt.Errorf("command %q: parameter %q has unknown type %q", s.ID, p.Name, p.Type)
		}
		if (p.Min != nil || p.Max != nil) && p.Type != TypeNumber {
			return fmt.Errorf("command %q: parameter %q declares a range but is not numeric", s.ID, p.Name)
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return fmt.Errorf("command %q: parameter %q has min > max", s.ID, p.Name)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("command %q: duplicate parameter %q", s.ID, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	if s.Transition != nil && s.Transition.TargetArg != "" {
		if _, ok := s.Param(s.Transition.TargetArg); !ok {
			return fmt.Errorf("command %q: transition target_arg %q is not a declared parameter", s.ID, s.Transition.TargetArg)
		}
	}
	return nil
}

// Preset is a named bundle of pre-filled arguments for a command.
type Preset struct {
	Command   string         `yaml:"command"`
	Arguments map[string]any `yaml:"arguments"`
}
