package config

import (
	"sort"

	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/sim"
)

func withCoefficients(fn func(*sim.Coefficients)) sim.Coefficients {
	c := sim.DefaultCoefficients()
	fn(&c)
	return c
}

func withLimits(fn func(*compliance.Limits)) compliance.Limits {
	l := compliance.DefaultLimits()
	fn(&l)
	return l
}

// Presets are named training scenarios.
var Presets = map[string]*Config{
	"factory": {
		MaxRuns:      3,
		Coefficients: sim.DefaultCoefficients(),
		Limits:       compliance.DefaultLimits(),
	},
	"quiet": {
		MaxRuns: 3,
		Coefficients: withCoefficients(func(c *sim.Coefficients) {
			c.TrackSigmaMM = 0
			c.BalanceSigmaIPS = 0
		}),
		Limits: compliance.DefaultLimits(),
	},
	"noisy": {
		MaxRuns: 3,
		Coefficients: withCoefficients(func(c *sim.Coefficients) {
			c.TrackSigmaMM = 1.2
			c.BalanceSigmaIPS = 0.01
		}),
		Limits: compliance.DefaultLimits(),
	},
	"tight": {
		MaxRuns:      3,
		Coefficients: sim.DefaultCoefficients(),
		Limits: withLimits(func(l *compliance.Limits) {
			l.TrackAirborneMM = 3
			l.BalanceAirborneIPS = 0.03
		}),
	},
	"extended": {
		MaxRuns:      5,
		Coefficients: sim.DefaultCoefficients(),
		Limits:       compliance.DefaultLimits(),
	},
}

// GetPreset returns a copy of the named preset merged over the defaults, or
// nil when the preset does not exist.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.MaxRuns = p.MaxRuns
	cfg.Coefficients = p.Coefficients
	cfg.Limits = p.Limits
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
