package metrics

import (
	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/rotor"
)

// Metric summarizes one run's measurement set.
type Metric interface {
	Name() string
	Observe(set rotor.MeasurementSet)
	Value() float64
	Reset()
}

func Defaults(limits compliance.Limits) []Metric {
	return []Metric{
		NewWorstBalance(),
		NewMaxSpread(),
		NewRegimesOK(limits),
	}
}

// Collect resets each metric, observes set and returns the values by name.
func Collect(ms []Metric, set rotor.MeasurementSet) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		m.Observe(set)
		out[m.Name()] = m.Value()
	}
	return out
}
