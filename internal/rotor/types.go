package rotor

import (
	"encoding/json"
	"fmt"
	"strings"
)

type Blade int

const (
	BLU Blade = iota
	GRN
	YEL
	RED
)

// Blades is the fixed blade order. Iteration order matters for solver ties.
var Blades = []Blade{BLU, GRN, YEL, RED}

// ReferenceBlade is the blade all track heights are reported against.
const ReferenceBlade = YEL

var bladeNames = [...]string{"BLU", "GRN", "YEL", "RED"}

// clock position of each blade's balance bolt, degrees
var bladeClock = [...]float64{BLU: 180.0, GRN: 270.0, YEL: 0.0, RED: 90.0}

func (b Blade) String() string {
	if b < BLU || b > RED {
		return fmt.Sprintf("Blade(%d)", int(b))
	}
	return bladeNames[b]
}

// ClockDeg returns the fixed clock position of the blade's balance bolt.
func (b Blade) ClockDeg() float64 { return bladeClock[b] }

func ParseBlade(s string) (Blade, error) {
	for _, b := range Blades {
		if strings.EqualFold(s, bladeNames[b]) {
			return b, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownBlade, s)
}

func (b Blade) MarshalText() ([]byte, error) { return []byte(b.String()), nil }

func (b *Blade) UnmarshalText(text []byte) error {
	v, err := ParseBlade(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

type Regime int

const (
	Ground Regime = iota
	Hover
	Horizontal
)

// Regimes is the canonical regime enumeration, in display order.
var Regimes = []Regime{Ground, Hover, Horizontal}

var regimeNames = [...]string{"GROUND", "HOVER", "HORIZONTAL"}

var regimeLabels = [...]string{"100% Ground", "Hover Flight", "Horizontal Flight"}

func (r Regime) String() string {
	if r < Ground || r > Horizontal {
		return fmt.Sprintf("Regime(%d)", int(r))
	}
	return regimeNames[r]
}

func (r Regime) Label() string {
	if r < Ground || r > Horizontal {
		return r.String()
	}
	return regimeLabels[r]
}

// ForwardFlight reports whether trim tabs are aerodynamically effective.
func (r Regime) ForwardFlight() bool { return r == Horizontal }

// Airborne reports whether the regime uses the tighter flight tolerances.
func (r Regime) Airborne() bool { return r == Hover || r == Horizontal }

func ParseRegime(s string) (Regime, error) {
	for _, r := range Regimes {
		if strings.EqualFold(s, regimeNames[r]) {
			return r, nil
		}
	}
	if strings.EqualFold(s, "HORIZ") {
		return Horizontal, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRegime, s)
}

func (r Regime) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *Regime) UnmarshalText(text []byte) error {
	v, err := ParseRegime(string(text))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// BalanceReading is a 1/rev vibration vector in polar clock-angle form.
type BalanceReading struct {
	AmpIPS   float64 `json:"amp_ips"`
	PhaseDeg float64 `json:"phase_deg"`
	RPM      float64 `json:"rpm"`
}

// Measurement is one acquisition for a regime. Track values are in mm
// relative to ReferenceBlade, so Track[ReferenceBlade] is always 0.
type Measurement struct {
	Regime  Regime            `json:"regime"`
	Balance BalanceReading    `json:"balance"`
	Track   map[Blade]float64 `json:"track_mm"`
}

func (m Measurement) Clone() Measurement {
	c := m
	c.Track = make(map[Blade]float64, len(m.Track))
	for b, v := range m.Track {
		c.Track[b] = v
	}
	return c
}

// TrackValues returns the track heights in fixed blade order.
func (m Measurement) TrackValues() []float64 {
	vals := make([]float64, len(Blades))
	for i, b := range Blades {
		vals[i] = m.Track[b]
	}
	return vals
}

// Vector returns the balance reading as a Cartesian vector.
func (b BalanceReading) Vector() Vec2 {
	return VectorFromClock(b.PhaseDeg).Scale(b.AmpIPS)
}

// MeasurementSet holds at most one measurement per regime.
type MeasurementSet map[Regime]Measurement

func (s MeasurementSet) Clone() MeasurementSet {
	c := make(MeasurementSet, len(s))
	for r, m := range s {
		c[r] = m.Clone()
	}
	return c
}

// Present returns the canonical regimes found in the set, in display order.
func (s MeasurementSet) Present() []Regime {
	out := make([]Regime, 0, len(s))
	for _, r := range Regimes {
		if _, ok := s[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

type BladeAdjustment struct {
	PitchTurns float64 `json:"pitch_turns" yaml:"pitch_turns"`
	TrimMM     float64 `json:"trim_mm" yaml:"trim_mm"`
	BoltG      float64 `json:"bolt_g" yaml:"bolt_g"`
}

// Adjustments is the operator input per regime and blade. Missing entries
// read as neutral.
type Adjustments map[Regime]map[Blade]BladeAdjustment

func NeutralAdjustments() Adjustments {
	adj := make(Adjustments, len(Regimes))
	for _, r := range Regimes {
		adj[r] = make(map[Blade]BladeAdjustment, len(Blades))
		for _, b := range Blades {
			adj[r][b] = BladeAdjustment{}
		}
	}
	return adj
}

func (a Adjustments) Get(r Regime, b Blade) BladeAdjustment {
	if a == nil {
		return BladeAdjustment{}
	}
	return a[r][b]
}

func (a Adjustments) Set(r Regime, b Blade, v BladeAdjustment) {
	if a[r] == nil {
		a[r] = make(map[Blade]BladeAdjustment, len(Blades))
	}
	a[r][b] = v
}

func (a Adjustments) Clone() Adjustments {
	c := make(Adjustments, len(a))
	for r, blades := range a {
		c[r] = make(map[Blade]BladeAdjustment, len(blades))
		for b, v := range blades {
			c[r][b] = v
		}
	}
	return c
}

// measurementJSON pins the export shape: regime and blade keys as names.
type measurementJSON struct {
	Regime  string             `json:"regime"`
	Balance BalanceReading     `json:"balance"`
	Track   map[string]float64 `json:"track_mm"`
}

func (m Measurement) MarshalJSON() ([]byte, error) {
	out := measurementJSON{
		Regime:  m.Regime.String(),
		Balance: m.Balance,
		Track:   make(map[string]float64, len(m.Track)),
	}
	for b, v := range m.Track {
		out.Track[b.String()] = v
	}
	return json.Marshal(out)
}

func (m *Measurement) UnmarshalJSON(data []byte) error {
	var in measurementJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	r, err := ParseRegime(in.Regime)
	if err != nil {
		return err
	}
	track := make(map[Blade]float64, len(in.Track))
	for name, v := range in.Track {
		b, err := ParseBlade(name)
		if err != nil {
			return err
		}
		track[b] = v
	}
	m.Regime = r
	m.Balance = in.Balance
	m.Track = track
	return nil
}
