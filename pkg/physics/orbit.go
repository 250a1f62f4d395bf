// Package physics is the numeric orbital model behind the command handlers.
// It owns the current simulated orbit and time warp, and notifies a
// SceneUpdater when the visual state should change. All math is two-body
// Keplerian around Earth; inputs are validated upstream by the dispatcher.
package physics

import (
	"fmt"
	"math"
	"sync"
)

const (
	// MuEarth is Earth's standard gravitational parameter in km^3/s^2.
	MuEarth = 398600.4418
	// EarthRadiusKm is the mean Earth radius used for altitude conversion.
	EarthRadiusKm = 6371.0
)

// CircularSpeed returns the orbital speed in km/s of a circular orbit at the
// given altitude above the mean surface.
func CircularSpeed(altitudeKm float64) float64 {
	r := EarthRadiusKm + altitudeKm
	return math.Sqrt(MuEarth / r)
}

// Period returns the orbital period in seconds of a circular orbit at the
// given altitude.
func Period(altitudeKm float64) float64 {
	r := EarthRadiusKm + altitudeKm
	return 2 * math.Pi * math.Sqrt(r*r*r/MuEarth)
}

// Orbit describes the current simulated orbit.
type Orbit struct {
	PeriapsisKm    float64 // altitude above surface
	ApoapsisKm     float64 // altitude above surface
	InclinationDeg float64
	Eccentricity   float64
	PeriodS        float64
	SpeedPeriKmS   float64 // speed at periapsis
	SpeedApoKmS    float64 // speed at apoapsis
}

// Circular returns true when the orbit has negligible eccentricity.
func (o Orbit) Circular() bool { return o.Eccentricity < 1e-9 }

// ApsidalOrbit derives the full element set from periapsis and apoapsis
// altitudes using the vis-viva equation.
func ApsidalOrbit(periapsisKm, apoapsisKm, inclinationDeg float64) Orbit {
	if apoapsisKm < periapsisKm {
		periapsisKm, apoapsisKm = apoapsisKm, periapsisKm
	}
	rp := EarthRadiusKm + periapsisKm
	ra := EarthRadiusKm + apoapsisKm
	a := (rp + ra) / 2

	o := Orbit{
		PeriapsisKm:    periapsisKm,
		ApoapsisKm:     apoapsisKm,
		InclinationDeg: inclinationDeg,
		Eccentricity:   (ra - rp) / (ra + rp),
		PeriodS:        2 * math.Pi * math.Sqrt(a*a*a/MuEarth),
		SpeedPeriKmS:   math.Sqrt(MuEarth * (2/rp - 1/a)),
		SpeedApoKmS:    math.Sqrt(MuEarth * (2/ra - 1/a)),
	}
	return o
}

// CircularOrbit is ApsidalOrbit with both apsides at the same altitude.
func CircularOrbit(altitudeKm, inclinationDeg float64) Orbit {
	return ApsidalOrbit(altitudeKm, altitudeKm, inclinationDeg)
}

// SceneUpdater receives visual side effects of model mutations. The renderer
// front-end implements it; tests use a recording double.
type SceneUpdater interface {
	OrbitChanged(o Orbit)
	TimeWarpChanged(factor float64)
}

// Model holds the mutable simulation state: the current orbit and the time
// warp factor.
type Model struct {
	mu       sync.Mutex
	orbit    Orbit
	hasOrbit bool
	warp     float64
	scene    SceneUpdater
}

// NewModel creates a model with no orbit and real-time warp. The scene
// updater may be nil (headless operation).
func NewModel(scene SceneUpdater) *Model {
	return &Model{warp: 1, scene: scene}
}

// SetCircularOrbit replaces the current orbit with a circular one.
func (m *Model) SetCircularOrbit(altitudeKm, inclinationDeg float64) Orbit {
	return m.setOrbit(CircularOrbit(altitudeKm, inclinationDeg))
}

// SetApsidalOrbit replaces the current orbit with one defined by apsides.
func (m *Model) SetApsidalOrbit(periapsisKm, apoapsisKm, inclinationDeg float64) Orbit {
	return m.setOrbit(ApsidalOrbit(periapsisKm, apoapsisKm, inclinationDeg))
}

func (m *Model) setOrbit(o Orbit) Orbit {
	m.mu.Lock()
	m.orbit = o
	m.hasOrbit = true
	scene := m.scene
	m.mu.Unlock()

	if scene != nil {
		scene.OrbitChanged(o)
	}
	return o
}

// SetTimeWarp changes the simulation time multiplier.
func (m *Model) SetTimeWarp(factor float64) {
	m.mu.Lock()
	m.warp = factor
	scene := m.scene
	m.mu.Unlock()

	if scene != nil {
		scene.TimeWarpChanged(factor)
	}
}

// TimeWarp returns the current simulation time multiplier.
func (m *Model) TimeWarp() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.warp
}

// CurrentOrbit returns the current orbit, if one has been set.
func (m *Model) CurrentOrbit() (Orbit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orbit, m.hasOrbit
}

// Describe renders a short human-readable summary of the orbit.
func (o Orbit) Describe() string {
	if o.Circular() {
		return fmt.Sprintf("circular orbit at %.0f km, inclination %.1f deg, speed %.2f km/s, period %.0f min",
			o.PeriapsisKm, o.InclinationDeg, o.SpeedPeriKmS, o.PeriodS/60)
	}
	return fmt.Sprintf("elliptical orbit %.0f x %.0f km, inclination %.1f deg, e=%.3f, period %.0f min",
		o.PeriapsisKm, o.ApoapsisKm, o.InclinationDeg, o.Eccentricity, o.PeriodS/60)
}
