package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/vxpsim/internal/noise"
	"github.com/san-kum/vxpsim/internal/rotor"
)

type TraceConfig struct {
	Revolutions   int
	SamplesPerRev int
	// BladePassIPS is the 4/rev amplitude added to every trace.
	BladePassIPS float64
	SigmaIPS     float64
}

func DefaultTraceConfig() TraceConfig {
	return TraceConfig{
		Revolutions:   16,
		SamplesPerRev: 64,
		BladePassIPS:  0.02,
		SigmaIPS:      0.005,
	}
}

// Trace is a velocity signal sampled synchronously with the rotor.
type Trace struct {
	RPM           float64
	Revolutions   int
	SamplesPerRev int
	Samples       []float64
}

func (t Trace) SampleRate() float64 {
	return t.RPM / 60 * float64(t.SamplesPerRev)
}

// Synthesize builds a trace whose 1/rev component is A·cos(ωt − θ), θ being
// the reading's clock phase. A nil src disables noise.
func Synthesize(b rotor.BalanceReading, cfg TraceConfig, src noise.Source) Trace {
	if src == nil {
		src = noise.Zero()
	}
	n := cfg.Revolutions * cfg.SamplesPerRev
	samples := make([]float64, n)
	theta := b.PhaseDeg * math.Pi / 180
	for i := range samples {
		rev := 2 * math.Pi * float64(i) / float64(cfg.SamplesPerRev)
		v := b.AmpIPS * math.Cos(rev-theta)
		v += cfg.BladePassIPS * math.Cos(4*rev)
		v += src.Gauss(cfg.SigmaIPS)
		samples[i] = v
	}
	return Trace{
		RPM:           b.RPM,
		Revolutions:   cfg.Revolutions,
		SamplesPerRev: cfg.SamplesPerRev,
		Samples:       samples,
	}
}

func (t Trace) bin(order int) complex128 {
	spectrum := fft.FFTReal(t.Samples)
	return spectrum[order*t.Revolutions]
}

// Extract reads the 1/rev amplitude and clock phase back out of a trace.
func Extract(t Trace) rotor.BalanceReading {
	if len(t.Samples) == 0 || t.Revolutions == 0 {
		return rotor.BalanceReading{RPM: t.RPM}
	}
	x := t.bin(1)
	amp := 2 * cmplx.Abs(x) / float64(len(t.Samples))
	phase := 0.0
	if amp > 1e-6 {
		phase = rotor.NormalizeDeg(-cmplx.Phase(x) * 180 / math.Pi)
	}
	return rotor.BalanceReading{AmpIPS: amp, PhaseDeg: phase, RPM: t.RPM}
}

// OrderSpectrum returns the amplitude at rotor orders 0..maxOrder.
func OrderSpectrum(t Trace, maxOrder int) []float64 {
	out := make([]float64, maxOrder+1)
	if len(t.Samples) == 0 || t.Revolutions == 0 {
		return out
	}
	spectrum := fft.FFTReal(t.Samples)
	n := float64(len(t.Samples))
	for k := 0; k <= maxOrder; k++ {
		idx := k * t.Revolutions
		if idx >= len(spectrum)/2 {
			break
		}
		scale := 2.0
		if k == 0 {
			scale = 1
		}
		out[k] = scale * cmplx.Abs(spectrum[idx]) / n
	}
	return out
}
