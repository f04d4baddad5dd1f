package solver

import (
	"math"
	"testing"

	"github.com/san-kum/vxpsim/internal/baseline"
	"github.com/san-kum/vxpsim/internal/noise"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/sim"
)

func meas(r rotor.Regime, amp, phase float64, track ...float64) rotor.Measurement {
	m := rotor.Measurement{
		Regime:  r,
		Balance: rotor.BalanceReading{AmpIPS: amp, PhaseDeg: phase, RPM: sim.DefaultRPM},
		Track:   map[rotor.Blade]float64{},
	}
	for i, b := range rotor.Blades {
		if i < len(track) {
			m.Track[b] = track[i]
		}
	}
	return m
}

func isMultiple(x, step float64) bool {
	q := x / step
	return math.Abs(q-math.Round(q)) < 1e-9
}

func TestRoundQuarter(t *testing.T) {
	tests := []struct{ in, want float64 }{
		{0, 0}, {0.1, 0}, {0.13, 0.25}, {-0.2, -0.25}, {1.8, 1.75}, {-1.2, -1.25}, {0.375, 0.5},
		{0.125, 0}, {-0.125, 0}, {-0.375, -0.5}, {0.625, 0.5},
	}
	for _, tt := range tests {
		if got := RoundQuarter(tt.in); got != tt.want {
			t.Errorf("RoundQuarter(%f): expected %f, got %f", tt.in, tt.want, got)
		}
	}
}

func TestCircularDistance(t *testing.T) {
	tests := []struct{ a, b, want float64 }{
		{0, 0, 0}, {10, 350, 20}, {305, 270, 35}, {305, 0, 55}, {0, 180, 180}, {720, 90, 90},
	}
	for _, tt := range tests {
		if got := CircularDistance(tt.a, tt.b); math.Abs(got-tt.want) > 1e-12 {
			t.Errorf("distance(%f, %f): expected %f, got %f", tt.a, tt.b, tt.want, got)
		}
	}
}

func TestSuggestPitchLink(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Ground: meas(rotor.Ground, 0.3, 125, 18, -8, 0, -12),
		rotor.Hover:  meas(rotor.Hover, 0.1, 110, 14, -6, 0, -10),
		// forward flight must be ignored
		rotor.Horizontal: meas(rotor.Horizontal, 0.1, 95, 100, 100, 0, 100),
	}

	got := SuggestPitchLink(set)
	want := map[rotor.Blade]float64{rotor.BLU: -1.5, rotor.GRN: 0.75, rotor.YEL: 0, rotor.RED: 1.0}
	for b, v := range want {
		if got[b] != v {
			t.Errorf("%s: expected %f, got %f", b, v, got[b])
		}
	}
}

func TestSuggestPitchLinkSingleRegime(t *testing.T) {
	set := rotor.MeasurementSet{rotor.Hover: meas(rotor.Hover, 0.1, 0, 3, -2, 0, -2)}
	got := SuggestPitchLink(set)
	if got[rotor.BLU] != -0.25 || got[rotor.GRN] != 0.25 || got[rotor.RED] != 0.25 {
		t.Errorf("unexpected hover-only suggestion %v", got)
	}
}

func TestSuggestTrimTabs(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Ground:     meas(rotor.Ground, 0.3, 0, 50, 50, 0, 50),
		rotor.Horizontal: meas(rotor.Horizontal, 0.1, 0, 14, -6, 0, -9),
	}
	got := SuggestTrimTabs(set)
	want := map[rotor.Blade]float64{rotor.BLU: -1.0, rotor.GRN: 0.5, rotor.YEL: 0, rotor.RED: 0.5}
	for b, v := range want {
		if got[b] != v {
			t.Errorf("%s: expected %f, got %f", b, v, got[b])
		}
	}
}

func TestSuggestTrimTabsClamped(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Horizontal: meas(rotor.Horizontal, 0.1, 0, 200, -200, 0, 33.3),
	}
	got := SuggestTrimTabs(set)
	if got[rotor.BLU] != -5 || got[rotor.GRN] != 5 {
		t.Errorf("expected clamp to ±5, got %v", got)
	}
	for b, v := range got {
		if !isMultiple(v, 0.25) || v < -5 || v > 5 {
			t.Errorf("%s: %f is not a clamped quarter", b, v)
		}
	}
}

func TestSuggestMissingRegimes(t *testing.T) {
	onlyHorizontal := rotor.MeasurementSet{rotor.Horizontal: meas(rotor.Horizontal, 0.1, 0, 9, 9, 0, 9)}
	for b, v := range SuggestPitchLink(onlyHorizontal) {
		if v != 0 {
			t.Errorf("pitch %s: expected 0 without ground/hover, got %f", b, v)
		}
	}

	lowSpeed := rotor.MeasurementSet{rotor.Ground: meas(rotor.Ground, 0.1, 0, 9, 9, 0, 9)}
	tabs := SuggestTrimTabs(lowSpeed)
	if len(tabs) != len(rotor.Blades) {
		t.Fatalf("expected an entry per blade, got %v", tabs)
	}
	for b, v := range tabs {
		if v != 0 {
			t.Errorf("trim %s: expected 0 without forward flight, got %f", b, v)
		}
	}

	blade, grams := SuggestWeight(rotor.MeasurementSet{})
	if blade != rotor.ReferenceBlade || grams != 0 {
		t.Errorf("expected neutral weight, got %s %f", blade, grams)
	}
}

func TestSuggestWeightExample(t *testing.T) {
	set := rotor.MeasurementSet{rotor.Ground: meas(rotor.Ground, 0.30, 125, 0, 0, 0, 0)}
	blade, grams := SuggestWeight(set)

	wantGrams := math.Max(5, math.Min(120, math.RoundToEven(0.30/sim.DefaultBoltIPSPerGram/5)*5))
	if grams != wantGrams {
		t.Errorf("expected %f g, got %f g", wantGrams, grams)
	}
	if blade != NearestBlade(305) || blade != rotor.GRN {
		t.Errorf("expected GRN (nearest 305°), got %s", blade)
	}
}

func TestSuggestWeightWorstRegime(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Ground:     meas(rotor.Ground, 0.05, 0, 0, 0, 0, 0),
		rotor.Hover:      meas(rotor.Hover, 0.12, 100, 0, 0, 0, 0),
		rotor.Horizontal: meas(rotor.Horizontal, 0.09, 95, 0, 0, 0, 0),
	}
	blade, grams := SuggestWeight(set)
	if blade != rotor.GRN {
		t.Errorf("expected GRN opposite 100°, got %s", blade)
	}
	if grams != 60 {
		t.Errorf("expected 60 g, got %f", grams)
	}
}

func TestSuggestWeightHalfStepTies(t *testing.T) {
	tests := []struct{ amp, want float64 }{
		{0.025, 10}, // 12.5 g
		{0.045, 20}, // 22.5 g
		{0.035, 20}, // 17.5 g
		{0.0, 5},
	}
	for _, tt := range tests {
		set := rotor.MeasurementSet{rotor.Hover: meas(rotor.Hover, tt.amp, 90)}
		if _, grams := SuggestWeight(set); grams != tt.want {
			t.Errorf("amp %.3f: expected %.0f g, got %.0f g", tt.amp, tt.want, grams)
		}
	}
}

func TestSuggestTrimTabsHalfStepTie(t *testing.T) {
	// -1.875 mm / 15 mm per mm is exactly an eighth of a tab step.
	set := rotor.MeasurementSet{rotor.Horizontal: meas(rotor.Horizontal, 0, 0, -1.875, 5.625, 0, 0)}
	tabs := SuggestTrimTabs(set)
	if tabs[rotor.BLU] != 0 {
		t.Errorf("BLU: expected 0, got %f", tabs[rotor.BLU])
	}
	if tabs[rotor.GRN] != -0.5 {
		t.Errorf("GRN: expected -0.5, got %f", tabs[rotor.GRN])
	}
}

func TestSuggestWeightBounds(t *testing.T) {
	for amp := 0.0; amp <= 0.5; amp += 0.0137 {
		for phase := 0.0; phase < 360; phase += 13 {
			set := rotor.MeasurementSet{rotor.Hover: meas(rotor.Hover, amp, phase)}
			blade, grams := SuggestWeight(set)

			if grams < MinWeightG || grams > MaxWeightG || !isMultiple(grams, WeightStepG) {
				t.Fatalf("amp %f: grams %f outside [5,120] or not a multiple of 5", amp, grams)
			}

			target := rotor.NormalizeDeg(phase + 180)
			for _, b := range rotor.Blades {
				if CircularDistance(target, b.ClockDeg()) < CircularDistance(target, blade.ClockDeg()) {
					t.Fatalf("phase %f: %s is nearer than %s", phase, b, blade)
				}
			}
		}
	}
}

func TestNearestBladeTies(t *testing.T) {
	// 45° is equidistant from YEL (0°) and RED (90°); YEL comes first.
	if got := NearestBlade(45); got != rotor.YEL {
		t.Errorf("expected YEL on tie, got %s", got)
	}
	// 135° ties RED and BLU; BLU comes first in fixed order.
	if got := NearestBlade(135); got != rotor.BLU {
		t.Errorf("expected BLU on tie, got %s", got)
	}
}

func TestWorstRegimeTie(t *testing.T) {
	set := rotor.MeasurementSet{
		rotor.Horizontal: meas(rotor.Horizontal, 0.1, 0),
		rotor.Hover:      meas(rotor.Hover, 0.1, 0),
	}
	if r, _ := WorstRegime(set); r != rotor.Hover {
		t.Errorf("expected hover on tie, got %s", r)
	}
}

func TestSolveAndApply(t *testing.T) {
	s := sim.New(sim.DefaultCoefficients(), baseline.Default())
	sv := New(sim.DefaultCoefficients())

	set := rotor.MeasurementSet{}
	for _, r := range []rotor.Regime{rotor.Ground, rotor.Hover} {
		set[r] = s.Simulate(1, r, rotor.NeutralAdjustments(), noise.Zero())
	}

	sol := sv.Solve(set)
	if len(sol.Regimes) != 2 {
		t.Errorf("expected 2 regimes used, got %v", sol.Regimes)
	}

	adj := sol.Apply(rotor.NeutralAdjustments())
	after := s.Simulate(1, rotor.Ground, adj, noise.Zero())
	before := set[rotor.Ground]

	beforeSpread, afterSpread := spread(before), spread(after)
	if afterSpread >= beforeSpread {
		t.Errorf("pitch-link solution should shrink ground spread: %f -> %f", beforeSpread, afterSpread)
	}
	if adj.Get(rotor.Hover, sol.WeightBlade).BoltG != sol.WeightG {
		t.Errorf("weight should be applied to every regime")
	}
}

func spread(m rotor.Measurement) float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.Track {
		lo, hi = math.Min(lo, v), math.Max(hi, v)
	}
	return hi - lo
}
