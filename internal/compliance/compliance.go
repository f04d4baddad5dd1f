// Package compliance checks measurements against the regime-dependent
// track-spread and balance-amplitude tolerances.
package compliance

import (
	"math"

	"github.com/san-kum/vxpsim/internal/rotor"
)

const (
	DefaultTrackGroundMM      = 10.0
	DefaultTrackAirborneMM    = 5.0
	DefaultBalanceGroundIPS   = 0.40
	DefaultBalanceAirborneIPS = 0.05
)

type Limits struct {
	TrackGroundMM      float64 `yaml:"track_ground_mm" json:"track_ground_mm"`
	TrackAirborneMM    float64 `yaml:"track_airborne_mm" json:"track_airborne_mm"`
	BalanceGroundIPS   float64 `yaml:"balance_ground_ips" json:"balance_ground_ips"`
	BalanceAirborneIPS float64 `yaml:"balance_airborne_ips" json:"balance_airborne_ips"`
}

func DefaultLimits() Limits {
	return Limits{
		TrackGroundMM:      DefaultTrackGroundMM,
		TrackAirborneMM:    DefaultTrackAirborneMM,
		BalanceGroundIPS:   DefaultBalanceGroundIPS,
		BalanceAirborneIPS: DefaultBalanceAirborneIPS,
	}
}

// TrackSpread is the largest minus the smallest blade track height.
func TrackSpread(m rotor.Measurement) float64 {
	if len(m.Track) == 0 {
		return 0
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range m.Track {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return hi - lo
}

func (l Limits) TrackLimit(r rotor.Regime) float64 {
	if r.Airborne() {
		return l.TrackAirborneMM
	}
	return l.TrackGroundMM
}

func (l Limits) BalanceLimit(r rotor.Regime) float64 {
	if r.Airborne() {
		return l.BalanceAirborneIPS
	}
	return l.BalanceGroundIPS
}

// Status is the verdict for one regime.
type Status struct {
	Regime       rotor.Regime `json:"regime"`
	Present      bool         `json:"present"`
	Spread       float64      `json:"spread_mm"`
	TrackLimit   float64      `json:"track_limit_mm"`
	AmpIPS       float64      `json:"amp_ips"`
	BalanceLimit float64      `json:"balance_limit_ips"`
	TrackOK      bool         `json:"track_ok"`
	BalanceOK    bool         `json:"balance_ok"`
}

func (s Status) OK() bool { return s.Present && s.TrackOK && s.BalanceOK }

func (l Limits) Check(r rotor.Regime, m rotor.Measurement) Status {
	st := Status{
		Regime:       r,
		Present:      true,
		Spread:       TrackSpread(m),
		TrackLimit:   l.TrackLimit(r),
		AmpIPS:       m.Balance.AmpIPS,
		BalanceLimit: l.BalanceLimit(r),
	}
	st.TrackOK = st.Spread <= st.TrackLimit
	st.BalanceOK = st.AmpIPS <= st.BalanceLimit
	return st
}

// Evaluate returns one status per canonical regime, in display order.
// Missing regimes are reported with Present false.
func (l Limits) Evaluate(set rotor.MeasurementSet) []Status {
	out := make([]Status, 0, len(rotor.Regimes))
	for _, r := range rotor.Regimes {
		m, ok := set[r]
		if !ok {
			out = append(out, Status{Regime: r, TrackLimit: l.TrackLimit(r), BalanceLimit: l.BalanceLimit(r)})
			continue
		}
		out = append(out, l.Check(r, m))
	}
	return out
}

// AllOK is true only when every canonical regime is present and within
// both tolerances.
func (l Limits) AllOK(set rotor.MeasurementSet) bool {
	for _, st := range l.Evaluate(set) {
		if !st.OK() {
			return false
		}
	}
	return true
}

var defaultLimits = DefaultLimits()

func TrackLimit(r rotor.Regime) float64 { return defaultLimits.TrackLimit(r) }

func BalanceLimit(r rotor.Regime) float64 { return defaultLimits.BalanceLimit(r) }

// AllOK checks set against the default limits.
func AllOK(set rotor.MeasurementSet) bool { return defaultLimits.AllOK(set) }
