package session

import (
	"sort"

	"github.com/san-kum/vxpsim/internal/rotor"
)

// State is the acquisition state of one (run, regime) pair.
type State int

const (
	NotAcquired State = iota
	Acquired
)

func (s State) String() string {
	if s == Acquired {
		return "ACQUIRED"
	}
	return "NOT_ACQUIRED"
}

// RunSet maps run index to the measurements acquired in that run.
// Re-acquiring a regime overwrites its measurement.
type RunSet struct {
	runs map[int]rotor.MeasurementSet
}

func NewRunSet() *RunSet {
	return &RunSet{runs: make(map[int]rotor.MeasurementSet)}
}

func (rs *RunSet) Put(run int, m rotor.Measurement) {
	set, ok := rs.runs[run]
	if !ok {
		set = make(rotor.MeasurementSet)
		rs.runs[run] = set
	}
	set[m.Regime] = m.Clone()
}

// Replace swaps the whole measurement set of a run.
func (rs *RunSet) Replace(run int, set rotor.MeasurementSet) {
	rs.runs[run] = set.Clone()
}

func (rs *RunSet) Get(run int, r rotor.Regime) (rotor.Measurement, bool) {
	m, ok := rs.runs[run][r]
	if !ok {
		return rotor.Measurement{}, false
	}
	return m.Clone(), true
}

// Measurements returns a copy of the run's measurement set, never nil.
func (rs *RunSet) Measurements(run int) rotor.MeasurementSet {
	set, ok := rs.runs[run]
	if !ok {
		return rotor.MeasurementSet{}
	}
	return set.Clone()
}

func (rs *RunSet) State(run int, r rotor.Regime) State {
	if _, ok := rs.runs[run][r]; ok {
		return Acquired
	}
	return NotAcquired
}

// Complete reports whether every canonical regime of run is acquired.
func (rs *RunSet) Complete(run int) bool {
	for _, r := range rotor.Regimes {
		if rs.State(run, r) != Acquired {
			return false
		}
	}
	return true
}

// Runs returns the runs holding at least one measurement, ascending.
func (rs *RunSet) Runs() []int {
	out := make([]int, 0, len(rs.runs))
	for run, set := range rs.runs {
		if len(set) > 0 {
			out = append(out, run)
		}
	}
	sort.Ints(out)
	return out
}
