package compliance

import (
	"testing"

	"github.com/san-kum/vxpsim/internal/rotor"
)

func meas(r rotor.Regime, amp float64, blu, grn, red float64) rotor.Measurement {
	return rotor.Measurement{
		Regime:  r,
		Balance: rotor.BalanceReading{AmpIPS: amp, PhaseDeg: 90, RPM: 433},
		Track:   map[rotor.Blade]float64{rotor.BLU: blu, rotor.GRN: grn, rotor.YEL: 0, rotor.RED: red},
	}
}

func passing() rotor.MeasurementSet {
	return rotor.MeasurementSet{
		rotor.Ground:     meas(rotor.Ground, 0.30, 4, -3, -2),
		rotor.Hover:      meas(rotor.Hover, 0.04, 2, -1, -1),
		rotor.Horizontal: meas(rotor.Horizontal, 0.03, 1, -2, 0.5),
	}
}

func TestTrackSpread(t *testing.T) {
	tests := []struct {
		name string
		m    rotor.Measurement
		want float64
	}{
		{"mixed", meas(rotor.Ground, 0, 18, -8, -12), 30},
		{"flat", meas(rotor.Ground, 0, 0, 0, 0), 0},
		{"all positive", meas(rotor.Ground, 0, 3, 1, 2), 3},
		{"empty", rotor.Measurement{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TrackSpread(tt.m); got != tt.want {
				t.Errorf("expected %f, got %f", tt.want, got)
			}
		})
	}
}

func TestTrackSpreadShiftInvariant(t *testing.T) {
	m := meas(rotor.Hover, 0, 14, -6, -10)
	base := TrackSpread(m)

	for _, shift := range []float64{-50, -0.5, 3.25, 100} {
		shifted := m.Clone()
		for b := range shifted.Track {
			shifted.Track[b] += shift
		}
		if got := TrackSpread(shifted); got != base {
			t.Errorf("shift %f: expected %f, got %f", shift, base, got)
		}
	}
}

func TestLimits(t *testing.T) {
	if TrackLimit(rotor.Ground) != 10 || TrackLimit(rotor.Hover) != 5 || TrackLimit(rotor.Horizontal) != 5 {
		t.Error("unexpected track limits")
	}
	if BalanceLimit(rotor.Ground) != 0.40 || BalanceLimit(rotor.Hover) != 0.05 || BalanceLimit(rotor.Horizontal) != 0.05 {
		t.Error("unexpected balance limits")
	}
	if TrackLimit(rotor.Ground) <= TrackLimit(rotor.Hover) {
		t.Error("ground tolerance should be looser than airborne")
	}
}

func TestAllOK(t *testing.T) {
	if !AllOK(passing()) {
		t.Error("expected passing set to be OK")
	}
}

func TestAllOKMissingRegime(t *testing.T) {
	for _, r := range rotor.Regimes {
		set := passing()
		delete(set, r)
		if AllOK(set) {
			t.Errorf("missing %s should fail", r)
		}
	}
	if AllOK(rotor.MeasurementSet{}) {
		t.Error("empty set should fail")
	}
}

func TestAllOKThresholds(t *testing.T) {
	tests := []struct {
		name   string
		regime rotor.Regime
		m      rotor.Measurement
		ok     bool
	}{
		{"ground spread at limit", rotor.Ground, meas(rotor.Ground, 0.1, 10, 0, 0), true},
		{"ground spread over", rotor.Ground, meas(rotor.Ground, 0.1, 10.5, 0, 0), false},
		{"ground balance over", rotor.Ground, meas(rotor.Ground, 0.41, 1, 0, 0), false},
		{"hover spread over", rotor.Hover, meas(rotor.Hover, 0.01, 3, -2.5, 0), false},
		{"hover balance at limit", rotor.Hover, meas(rotor.Hover, 0.05, 1, 0, 0), true},
		{"horizontal balance over", rotor.Horizontal, meas(rotor.Horizontal, 0.06, 1, 0, 0), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := passing()
			set[tt.regime] = tt.m
			if got := AllOK(set); got != tt.ok {
				t.Errorf("expected %v, got %v", tt.ok, got)
			}
		})
	}
}

func TestEvaluate(t *testing.T) {
	set := passing()
	delete(set, rotor.Hover)
	set[rotor.Ground] = meas(rotor.Ground, 0.5, 1, 0, 0)

	st := DefaultLimits().Evaluate(set)
	if len(st) != len(rotor.Regimes) {
		t.Fatalf("expected %d statuses, got %d", len(rotor.Regimes), len(st))
	}
	if st[0].Regime != rotor.Ground || st[0].BalanceOK || !st[0].TrackOK {
		t.Errorf("ground: unexpected status %+v", st[0])
	}
	if st[1].Present || st[1].OK() {
		t.Errorf("hover should be missing: %+v", st[1])
	}
	if !st[2].OK() {
		t.Errorf("horizontal should pass: %+v", st[2])
	}
}

func TestCustomLimits(t *testing.T) {
	l := DefaultLimits()
	l.BalanceGroundIPS = 0.2
	if l.AllOK(passing()) {
		t.Error("tighter ground balance limit should fail the 0.30 ips reading")
	}
}
