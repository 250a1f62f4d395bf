package physics

import (
	"math"
	"testing"
)

func TestCircularSpeed_ISSAltitude(t *testing.T) {
	v := CircularSpeed(420)
	if math.Abs(v-7.6609) > 0.01 {
		t.Errorf("expected ~7.66 km/s at 420 km, got %.4f", v)
	}
}

func TestCircularSpeed_DecreasesWithAltitude(t *testing.T) {
	if CircularSpeed(35786) >= CircularSpeed(420) {
		t.Error("higher orbits must be slower")
	}
}

func TestPeriod_Geostationary(t *testing.T) {
	// GEO period is one sidereal day, ~86164 s.
	p := Period(35786)
	if math.Abs(p-86164) > 120 {
		t.Errorf("expected ~86164 s at GEO, got %.0f", p)
	}
}

func TestApsidalOrbit(t *testing.T) {
	o := ApsidalOrbit(400, 4000, 28.5)
	if o.Circular() {
		t.Error("orbit with distinct apsides should not be circular")
	}
	if o.SpeedPeriKmS <= o.SpeedApoKmS {
		t.Errorf("periapsis speed %.3f should exceed apoapsis speed %.3f",
			o.SpeedPeriKmS, o.SpeedApoKmS)
	}
	if o.Eccentricity <= 0 || o.Eccentricity >= 1 {
		t.Errorf("eccentricity out of range: %f", o.Eccentricity)
	}
}

func TestApsidalOrbit_SwapsReversedApsides(t *testing.T) {
	o := ApsidalOrbit(4000, 400, 0)
	if o.PeriapsisKm != 400 || o.ApoapsisKm != 4000 {
		t.Errorf("apsides not normalized: %+v", o)
	}
}

type recordingScene struct {
	orbits []Orbit
	warps  []float64
}

func (r *recordingScene) OrbitChanged(o Orbit)          { r.orbits = append(r.orbits, o) }
func (r *recordingScene) TimeWarpChanged(factor float64) { r.warps = append(r.warps, factor) }

func TestModel_NotifiesScene(t *testing.T) {
	scene := &recordingScene{}
	m := NewModel(scene)

	if _, ok := m.CurrentOrbit(); ok {
		t.Error("fresh model should have no orbit")
	}

	m.SetCircularOrbit(420, 51.6)
	m.SetTimeWarp(100)

	if len(scene.orbits) != 1 || len(scene.warps) != 1 {
		t.Fatalf("expected one orbit and one warp notification, got %d/%d",
			len(scene.orbits), len(scene.warps))
	}
	if o, ok := m.CurrentOrbit(); !ok || !o.Circular() {
		t.Errorf("expected circular current orbit, got %+v ok=%v", o, ok)
	}
	if m.TimeWarp() != 100 {
		t.Errorf("expected warp 100, got %g", m.TimeWarp())
	}
}

func TestModel_NilSceneIsHeadless(t *testing.T) {
	m := NewModel(nil)
	m.SetCircularOrbit(700, 98) // must not panic
	m.SetTimeWarp(10)
}
