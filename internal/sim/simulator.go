package sim

import (
	"github.com/san-kum/vxpsim/internal/baseline"
	"github.com/san-kum/vxpsim/internal/noise"
	"github.com/san-kum/vxpsim/internal/rotor"
)

// Simulator turns a baseline and the operator's adjustments into one
// synthetic measurement. It holds no mutable state; noise is injected per
// call.
type Simulator struct {
	coeffs    Coefficients
	baselines *baseline.Table
}

func New(coeffs Coefficients, baselines *baseline.Table) *Simulator {
	if baselines == nil {
		baselines = baseline.Default()
	}
	return &Simulator{coeffs: coeffs, baselines: baselines}
}

func (s *Simulator) Coefficients() Coefficients { return s.coeffs }

func (s *Simulator) Baselines() *baseline.Table { return s.baselines }

// Simulate produces the measurement for (run, regime). Unknown runs use the
// most converged baseline. A nil src disables noise.
func (s *Simulator) Simulate(run int, regime rotor.Regime, adj rotor.Adjustments, src noise.Source) rotor.Measurement {
	if src == nil {
		src = noise.Zero()
	}
	base := s.baselines.Lookup(run, regime)

	track := make(map[rotor.Blade]float64, len(rotor.Blades))
	for _, b := range rotor.Blades {
		a := adj.Get(regime, b)
		v := base.Track[b] + a.PitchTurns*s.coeffs.PitchLinkMMPerTurn
		if regime.ForwardFlight() {
			v += a.TrimMM * s.coeffs.TrimTabMMPerMM
		}
		v += src.Gauss(s.coeffs.TrackSigmaMM)
		track[b] = v
	}

	ref := track[rotor.ReferenceBlade]
	for _, b := range rotor.Blades {
		track[b] -= ref
	}
	track[rotor.ReferenceBlade] = 0.0

	v := rotor.VectorFromClock(base.PhaseDeg).Scale(base.Amp)
	for _, b := range rotor.Blades {
		grams := adj.Get(regime, b).BoltG
		v = v.Add(rotor.VectorFromClock(b.ClockDeg()).Scale(-s.coeffs.BoltIPSPerGram * grams))
	}
	v = v.Add(rotor.Vec2{
		X: src.Gauss(s.coeffs.BalanceSigmaIPS),
		Y: src.Gauss(s.coeffs.BalanceSigmaIPS),
	})

	amp := v.Norm()
	phase := 0.0
	if amp > phaseEpsilon {
		phase = rotor.ClockFromVector(v)
	}

	return rotor.Measurement{
		Regime:  regime,
		Balance: rotor.BalanceReading{AmpIPS: amp, PhaseDeg: phase, RPM: s.coeffs.RPM},
		Track:   track,
	}
}
