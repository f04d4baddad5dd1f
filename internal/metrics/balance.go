package metrics

import (
	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/rotor"
)

type WorstBalance struct {
	name string
	max  float64
}

func NewWorstBalance() *WorstBalance {
	return &WorstBalance{name: "worst_balance_ips"}
}

func (w *WorstBalance) Name() string { return w.name }

func (w *WorstBalance) Observe(set rotor.MeasurementSet) {
	for _, m := range set {
		if m.Balance.AmpIPS > w.max {
			w.max = m.Balance.AmpIPS
		}
	}
}

func (w *WorstBalance) Value() float64 { return w.max }

func (w *WorstBalance) Reset() { w.max = 0 }

type MaxSpread struct {
	name string
	max  float64
}

func NewMaxSpread() *MaxSpread {
	return &MaxSpread{name: "max_spread_mm"}
}

func (s *MaxSpread) Name() string { return s.name }

func (s *MaxSpread) Observe(set rotor.MeasurementSet) {
	for _, m := range set {
		if v := compliance.TrackSpread(m); v > s.max {
			s.max = v
		}
	}
}

func (s *MaxSpread) Value() float64 { return s.max }

func (s *MaxSpread) Reset() { s.max = 0 }

// RegimesOK counts the canonical regimes that are present and within limits.
type RegimesOK struct {
	name   string
	limits compliance.Limits
	count  int
}

func NewRegimesOK(limits compliance.Limits) *RegimesOK {
	return &RegimesOK{name: "regimes_ok", limits: limits}
}

func (r *RegimesOK) Name() string { return r.name }

func (r *RegimesOK) Observe(set rotor.MeasurementSet) {
	for _, st := range r.limits.Evaluate(set) {
		if st.OK() {
			r.count++
		}
	}
}

func (r *RegimesOK) Value() float64 { return float64(r.count) }

func (r *RegimesOK) Reset() { r.count = 0 }
