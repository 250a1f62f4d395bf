package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/orbitarium/missionguide/pkg/environment"
	"github.com/orbitarium/missionguide/pkg/physics"
	"github.com/orbitarium/missionguide/pkg/session"
)

// BindBuiltins attaches the standard simulator handlers. The model is the
// physical collaborator; state receives the routing rationale set by
// route_to_mission.
func BindBuiltins(d *Dispatcher, model *physics.Model, state *session.State) {
	d.Bind("create_circular_orbit", createCircularOrbit(model))
	d.Bind("create_elliptical_orbit", createEllipticalOrbit(model))
	d.Bind("set_time_warp", setTimeWarp(model))
	d.Bind("describe_orbit", describeOrbit(model))
	d.Bind("route_to_mission", routeToMission(state))
}

func createCircularOrbit(model *physics.Model) Handler {
	return func(_ context.Context, args map[string]any) (map[string]any, string, error) {
		alt := Number(args, "altitude_km")
		inc := Number(args, "inclination_deg")

		orbit := model.SetCircularOrbit(alt, inc)

		facts := map[string]any{
			"altitude_km":     alt,
			"inclination_deg": inc,
			"speed_km_s":      round2(orbit.SpeedPeriKmS),
			"period_min":      round2(orbit.PeriodS / 60),
		}
		return facts, fmt.Sprintf("circular orbit set at %.0f km", alt), nil
	}
}

func createEllipticalOrbit(model *physics.Model) Handler {
	return func(_ context.Context, args map[string]any) (map[string]any, string, error) {
		peri := Number(args, "periapsis_km")
		apo := Number(args, "apoapsis_km")
		inc := Number(args, "inclination_deg")

		orbit := model.SetApsidalOrbit(peri, apo, inc)

		facts := map[string]any{
			"periapsis_km":         orbit.PeriapsisKm,
			"apoapsis_km":          orbit.ApoapsisKm,
			"inclination_deg":      inc,
			"eccentricity":         round3(orbit.Eccentricity),
			"periapsis_speed_km_s": round2(orbit.SpeedPeriKmS),
			"apoapsis_speed_km_s":  round2(orbit.SpeedApoKmS),
			"period_min":           round2(orbit.PeriodS / 60),
		}
		return facts, fmt.Sprintf("elliptical orbit set, %.0f x %.0f km", orbit.PeriapsisKm, orbit.ApoapsisKm), nil
	}
}

func setTimeWarp(model *physics.Model) Handler {
	return func(_ context.Context, args map[string]any) (map[string]any, string, error) {
		factor := Number(args, "factor")
		model.SetTimeWarp(factor)

		facts := map[string]any{"warp_factor": factor}
		return facts, fmt.Sprintf("time warp set to %gx", factor), nil
	}
}

func describeOrbit(model *physics.Model) Handler {
	return func(_ context.Context, _ map[string]any) (map[string]any, string, error) {
		orbit, ok := model.CurrentOrbit()
		if !ok {
			return map[string]any{"has_orbit": false},
				"no orbit has been set yet", nil
		}

		facts := map[string]any{
			"has_orbit":       true,
			"description":     orbit.Describe(),
			"periapsis_km":    orbit.PeriapsisKm,
			"apoapsis_km":     orbit.ApoapsisKm,
			"inclination_deg": orbit.InclinationDeg,
			"warp_factor":     model.TimeWarp(),
		}
		return facts, orbit.Describe(), nil
	}
}

func routeToMission(state *session.State) Handler {
	return func(_ context.Context, args map[string]any) (map[string]any, string, error) {
		target, ok := environment.Canonical(String(args, "mission"))
		if !ok {
			return nil, "", fmt.Errorf("unknown mission %q, known destinations: %s",
				String(args, "mission"), strings.Join(environment.All(), ", "))
		}

		rationale := String(args, "context_for_specialist")
		if rationale == "" {
			rationale = fmt.Sprintf("user requested a visit to %s", target)
		}
		state.SetRoutingRationale(rationale)

		facts := map[string]any{
			"destination": target,
			"first_visit": !state.Visited(target),
			"rationale":   rationale,
		}
		return facts, fmt.Sprintf("routing to %s", target), nil
	}
}

func round2(v float64) float64 { return float64(int(v*100+0.5)) / 100 }
func round3(v float64) float64 { return float64(int(v*1000+0.5)) / 1000 }
