// Package solver inverts the simulator's response laws to propose
// pitch-link, trim-tab and balance-weight corrections from a set of
// per-regime measurements. Every function is deterministic and returns
// neutral values when the regimes it needs are absent.
package solver

import (
	"math"

	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/sim"
)

const (
	MaxTrimTabMM = 5.0
	MinWeightG   = 5.0
	MaxWeightG   = 120.0
	WeightStepG  = 5.0
)

type Solver struct {
	coeffs sim.Coefficients
}

func New(coeffs sim.Coefficients) *Solver {
	return &Solver{coeffs: coeffs}
}

// RoundQuarter rounds to the quarter-unit increments of pitch-link and
// trim-tab hardware. Exact halves round to even.
func RoundQuarter(x float64) float64 {
	return math.RoundToEven(x*4.0) / 4.0
}

// RoundStep rounds x to the nearest multiple of step, halves to even.
func RoundStep(x, step float64) float64 {
	return math.RoundToEven(x/step) * step
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}

// CircularDistance is the shortest angular distance between two clock
// angles, in [0, 180].
func CircularDistance(a, b float64) float64 {
	d := math.Mod(math.Abs(a-b), 360.0)
	return math.Min(d, 360.0-d)
}

func zeroByBlade() map[rotor.Blade]float64 {
	out := make(map[rotor.Blade]float64, len(rotor.Blades))
	for _, b := range rotor.Blades {
		out[b] = 0
	}
	return out
}

// SuggestPitchLink uses the low-speed regimes (ground, hover) only: pitch
// links mostly move static track.
func (s *Solver) SuggestPitchLink(set rotor.MeasurementSet) map[rotor.Blade]float64 {
	var used []rotor.Measurement
	for _, r := range []rotor.Regime{rotor.Ground, rotor.Hover} {
		if m, ok := set[r]; ok {
			used = append(used, m)
		}
	}
	out := zeroByBlade()
	if len(used) == 0 {
		return out
	}
	for _, b := range rotor.Blades {
		sum := 0.0
		for _, m := range used {
			sum += m.Track[b]
		}
		avg := sum / float64(len(used))
		out[b] = RoundQuarter(-avg / s.coeffs.PitchLinkMMPerTurn)
	}
	return out
}

// SuggestTrimTabs uses the forward-flight regime only, where tabs act.
func (s *Solver) SuggestTrimTabs(set rotor.MeasurementSet) map[rotor.Blade]float64 {
	out := zeroByBlade()
	m, ok := set[rotor.Horizontal]
	if !ok {
		return out
	}
	for _, b := range rotor.Blades {
		tab := RoundQuarter(-m.Track[b] / s.coeffs.TrimTabMMPerMM)
		out[b] = clamp(tab, -MaxTrimTabMM, MaxTrimTabMM)
	}
	return out
}

// WorstRegime returns the regime with the largest balance amplitude. Ties go
// to the earlier regime in display order.
func WorstRegime(set rotor.MeasurementSet) (rotor.Regime, bool) {
	var worst rotor.Regime
	found := false
	for _, r := range rotor.Regimes {
		m, ok := set[r]
		if !ok {
			continue
		}
		if !found || m.Balance.AmpIPS > set[worst].Balance.AmpIPS {
			worst, found = r, true
		}
	}
	return worst, found
}

// NearestBlade returns the blade whose bolt clock position is circularly
// closest to target. Ties go to the first blade in fixed order.
func NearestBlade(target float64) rotor.Blade {
	best := rotor.Blades[0]
	bestDist := math.Inf(1)
	for _, b := range rotor.Blades {
		if d := CircularDistance(target, b.ClockDeg()); d < bestDist {
			best, bestDist = b, d
		}
	}
	return best
}

// SuggestWeight places weight opposite the worst 1/rev vector on a single
// blade bolt. An empty set yields (ReferenceBlade, 0).
func (s *Solver) SuggestWeight(set rotor.MeasurementSet) (rotor.Blade, float64) {
	worst, ok := WorstRegime(set)
	if !ok {
		return rotor.ReferenceBlade, 0
	}
	bal := set[worst].Balance
	target := rotor.NormalizeDeg(bal.PhaseDeg + 180.0)
	grams := clamp(RoundStep(bal.AmpIPS/s.coeffs.BoltIPSPerGram, WeightStepG), MinWeightG, MaxWeightG)
	return NearestBlade(target), grams
}

// Solution bundles the three suggestions for one run.
type Solution struct {
	PitchLink   map[rotor.Blade]float64
	TrimTab     map[rotor.Blade]float64
	WeightBlade rotor.Blade
	WeightG     float64
	Regimes     []rotor.Regime
}

func (s *Solver) Solve(set rotor.MeasurementSet) Solution {
	blade, grams := s.SuggestWeight(set)
	return Solution{
		PitchLink:   s.SuggestPitchLink(set),
		TrimTab:     s.SuggestTrimTabs(set),
		WeightBlade: blade,
		WeightG:     grams,
		Regimes:     set.Present(),
	}
}

// Apply adds the solution to an adjustment set. Pitch links and bolt
// weights are physical hardware shared by every regime; trim tabs too,
// although only forward flight feels them.
func (sol Solution) Apply(adj rotor.Adjustments) rotor.Adjustments {
	out := adj.Clone()
	for _, r := range rotor.Regimes {
		for _, b := range rotor.Blades {
			a := out.Get(r, b)
			a.PitchTurns += sol.PitchLink[b]
			a.TrimMM += sol.TrimTab[b]
			if b == sol.WeightBlade {
				a.BoltG += sol.WeightG
			}
			out.Set(r, b, a)
		}
	}
	return out
}

var defaultSolver = New(sim.DefaultCoefficients())

func SuggestPitchLink(set rotor.MeasurementSet) map[rotor.Blade]float64 {
	return defaultSolver.SuggestPitchLink(set)
}

func SuggestTrimTabs(set rotor.MeasurementSet) map[rotor.Blade]float64 {
	return defaultSolver.SuggestTrimTabs(set)
}

func SuggestWeight(set rotor.MeasurementSet) (rotor.Blade, float64) {
	return defaultSolver.SuggestWeight(set)
}
