// Package dispatch validates structured command calls against the catalog
// and routes them to their handlers. Execute never propagates a fault: every
// outcome, including handler panics, is folded into a Result.
package dispatch

import (
	"context"
	"fmt"
	"math"

	"github.com/orbitarium/missionguide/pkg/commands"
	"github.com/orbitarium/missionguide/pkg/environment"
	"github.com/orbitarium/missionguide/pkg/logger"
)

// Result is the uniform record produced by every dispatch.
type Result struct {
	CommandID          string
	Succeeded          bool
	ErrorMessage       string
	Facts              map[string]any // result data consumed by narration
	RequiresTransition bool
	TransitionTarget   string
}

// Handler executes one validated command. args has passed Validate, with
// declared defaults applied. Facts feed the narration step; reason is a
// short machine-neutral summary of what happened.
type Handler func(ctx context.Context, args map[string]any) (facts map[string]any, reason string, err error)

type Dispatcher struct {
	registry *commands.Registry
	handlers map[string]Handler
}

func NewDispatcher(registry *commands.Registry) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		handlers: make(map[string]Handler),
	}
}

// Bind attaches a handler to a command id. Binding is done once at startup
// by the composition root; the map is read-only afterwards.
func (d *Dispatcher) Bind(id string, h Handler) {
	d.handlers[id] = h
}

// BoundHandlers returns the set of handler names, for the registry's
// startup audit.
func (d *Dispatcher) BoundHandlers() map[string]struct{} {
	out := make(map[string]struct{}, len(d.handlers))
	for id := range d.handlers {
		out[id] = struct{}{}
	}
	return out
}

// Validate checks the supplied arguments against the declared schema.
// Unknown supplied keys are ignored. A nil return means the call is valid.
func (d *Dispatcher) Validate(id string, args map[string]any) error {
	schema, ok := d.registry.Get(id)
	if !ok {
		ue := &UnknownCommandError{ID: id}
		if suggestion, found := d.registry.Suggest(id); found {
			ue.Suggestion = suggestion
		}
		return ue
	}

	for _, p := range schema.Parameters {
		raw, present := args[p.Name]
		if !present {
			if p.Required {
				return &ValidationError{Field: p.Name, Reason: "required parameter is missing"}
			}
			continue
		}

		switch p.Type {
		case commands.TypeNumber:
			v, ok := toNumber(raw)
			if !ok {
				return &ValidationError{Field: p.Name, Reason: fmt.Sprintf("expected a number, got %T", raw)}
			}
			if p.Min != nil && v < *p.Min {
				return &ValidationError{Field: p.Name,
					Reason: fmt.Sprintf("value %g is below minimum %g", v, *p.Min)}
			}
			if p.Max != nil && v > *p.Max {
				return &ValidationError{Field: p.Name,
					Reason: fmt.Sprintf("value %g exceeds maximum %g", v, *p.Max)}
			}
		case commands.TypeBoolean:
			if _, ok := raw.(bool); !ok {
				return &ValidationError{Field: p.Name, Reason: fmt.Sprintf("expected a boolean, got %T", raw)}
			}
		case commands.TypeString:
			if s, ok := raw.(string); !ok {
				return &ValidationError{Field: p.Name, Reason: fmt.Sprintf("expected a string, got %T", raw)}
			} else if p.Required && s == "" {
				return &ValidationError{Field: p.Name, Reason: "required parameter is empty"}
			}
		}
	}

	return nil
}

// Execute re-validates, applies defaults, and runs the bound handler. It
// always returns a Result; validation failures, unbound handlers, handler
// errors, and handler panics all become Succeeded=false outcomes.
func (d *Dispatcher) Execute(ctx context.Context, id string, args map[string]any) *Result {
	if err := d.Validate(id, args); err != nil {
		logger.WarnCF("dispatch", "Command rejected", map[string]any{
			"command": id,
			"error":   err.Error(),
		})
		return &Result{CommandID: id, ErrorMessage: err.Error()}
	}

	schema, _ := d.registry.Get(id)
	handler, bound := d.handlers[id]
	if !bound {
		logger.ErrorCF("dispatch", "Command declared in catalog but not implemented", map[string]any{
			"command": id,
		})
		return &Result{
			CommandID:    id,
			ErrorMessage: fmt.Sprintf("%s: %v", id, ErrNotImplemented),
		}
	}

	merged := applyDefaults(schema, args)

	facts, reason, err := d.runHandler(ctx, id, handler, merged)
	if err != nil {
		return &Result{CommandID: id, ErrorMessage: err.Error()}
	}

	result := &Result{
		CommandID: id,
		Succeeded: true,
		Facts:     facts,
	}
	if reason != "" {
		if result.Facts == nil {
			result.Facts = map[string]any{}
		}
		result.Facts["summary"] = reason
	}

	if schema.Transition != nil {
		raw, _ := merged[schema.Transition.TargetArg].(string)
		target, known := environment.Canonical(raw)
		if !known {
			// Handlers of transition commands validate the destination, so
			// this only fires for a miswired custom handler.
			logger.ErrorCF("dispatch", "Transition target outside environment set", map[string]any{
				"command": id,
				"target":  raw,
			})
			return &Result{
				CommandID:    id,
				ErrorMessage: fmt.Sprintf("unknown destination %q", raw),
			}
		}
		result.RequiresTransition = true
		result.TransitionTarget = target
	}

	logger.InfoCF("dispatch", "Command executed", map[string]any{
		"command":    id,
		"transition": result.RequiresTransition,
	})

	return result
}

// runHandler isolates handler faults: a panic is converted into an error so
// dispatch never crashes the turn.
func (d *Dispatcher) runHandler(ctx context.Context, id string, h Handler, args map[string]any) (facts map[string]any, reason string, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorCF("dispatch", "Handler panicked", map[string]any{
				"command": id,
				"panic":   fmt.Sprintf("%v", r),
			})
			facts = nil
			reason = ""
			err = fmt.Errorf("%s failed internally", id)
		}
	}()
	return h(ctx, args)
}

func applyDefaults(schema commands.Schema, args map[string]any) map[string]any {
	merged := make(map[string]any, len(args))
	for k, v := range args {
		merged[k] = v
	}
	for _, p := range schema.Parameters {
		if _, present := merged[p.Name]; !present && p.Default != nil {
			merged[p.Name] = p.Default
		}
	}
	return merged
}

// toNumber accepts the numeric representations a JSON/YAML round-trip can
// produce.
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return float64(n), true
	}
	return 0, false
}

// Number reads a numeric argument from a defaults-applied argument map.
// Handlers may assume validation has run, so a missing optional value
// returns the zero value.
func Number(args map[string]any, name string) float64 {
	v, _ := toNumber(args[name])
	return v
}

// String reads a string argument from a defaults-applied argument map.
func String(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
