// Package baseline holds the "as found" rotor condition for each run and
// regime. Later runs sit closer to nominal, modelling convergence toward a
// balanced rotor.
package baseline

import (
	"sort"

	"github.com/san-kum/vxpsim/internal/rotor"
)

// Entry is the baseline for one (run, regime): track offsets per blade in
// mm and the 1/rev balance amplitude (ips) and clock phase (deg).
type Entry struct {
	Track    map[rotor.Blade]float64
	Amp      float64
	PhaseDeg float64
}

func (e Entry) clone() Entry {
	c := e
	c.Track = make(map[rotor.Blade]float64, len(e.Track))
	for b, v := range e.Track {
		c.Track[b] = v
	}
	return c
}

// Table is a read-only, ordered set of per-run baselines.
type Table struct {
	runs    []int
	entries map[int]map[rotor.Regime]Entry
}

// New builds a table from per-run entries. The input is copied.
func New(entries map[int]map[rotor.Regime]Entry) *Table {
	t := &Table{entries: make(map[int]map[rotor.Regime]Entry, len(entries))}
	for run, regimes := range entries {
		t.runs = append(t.runs, run)
		t.entries[run] = make(map[rotor.Regime]Entry, len(regimes))
		for r, e := range regimes {
			t.entries[run][r] = e.clone()
		}
	}
	sort.Ints(t.runs)
	return t
}

// Runs returns the defined run indexes in ascending order.
func (t *Table) Runs() []int {
	out := make([]int, len(t.runs))
	copy(out, t.runs)
	return out
}

// Has reports whether run is defined explicitly.
func (t *Table) Has(run int) bool {
	_, ok := t.entries[run]
	return ok
}

// Resolve returns the run whose baseline Lookup uses for run: run itself
// when defined, otherwise the highest defined run.
func (t *Table) Resolve(run int) int {
	if t.Has(run) || len(t.runs) == 0 {
		return run
	}
	return t.runs[len(t.runs)-1]
}

// Lookup returns a copy of the baseline for (run, regime). Unknown runs fall
// back to the most converged (highest) run. An unknown regime yields a zero
// entry with all blades at 0.
func (t *Table) Lookup(run int, regime rotor.Regime) Entry {
	e, ok := t.entries[t.Resolve(run)][regime]
	if !ok {
		return Entry{Track: zeroTrack()}
	}
	return e.clone()
}

func zeroTrack() map[rotor.Blade]float64 {
	m := make(map[rotor.Blade]float64, len(rotor.Blades))
	for _, b := range rotor.Blades {
		m[b] = 0
	}
	return m
}

func track(blu, grn, yel, red float64) map[rotor.Blade]float64 {
	return map[rotor.Blade]float64{rotor.BLU: blu, rotor.GRN: grn, rotor.YEL: yel, rotor.RED: red}
}

// Default returns the three canonical training runs.
func Default() *Table {
	return New(map[int]map[rotor.Regime]Entry{
		1: {
			rotor.Ground:     {Track: track(18.0, -8.0, 0.0, -12.0), Amp: 0.30, PhaseDeg: 125.0},
			rotor.Hover:      {Track: track(14.0, -6.0, 0.0, -10.0), Amp: 0.12, PhaseDeg: 110.0},
			rotor.Horizontal: {Track: track(10.0, -4.0, 0.0, -8.0), Amp: 0.09, PhaseDeg: 95.0},
		},
		2: {
			rotor.Ground:     {Track: track(4.0, -3.0, 0.0, -2.0), Amp: 0.22, PhaseDeg: 140.0},
			rotor.Hover:      {Track: track(3.0, -2.0, 0.0, -2.0), Amp: 0.09, PhaseDeg: 120.0},
			rotor.Horizontal: {Track: track(14.0, -6.0, 0.0, -9.0), Amp: 0.07, PhaseDeg: 105.0},
		},
		3: {
			rotor.Ground:     {Track: track(2.0, -2.0, 0.0, -1.0), Amp: 0.18, PhaseDeg: 160.0},
			rotor.Hover:      {Track: track(2.0, -1.5, 0.0, -1.0), Amp: 0.08, PhaseDeg: 135.0},
			rotor.Horizontal: {Track: track(2.0, -2.0, 0.0, -1.0), Amp: 0.06, PhaseDeg: 120.0},
		},
	})
}
