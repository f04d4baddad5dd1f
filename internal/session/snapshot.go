package session

import (
	"github.com/san-kum/vxpsim/internal/rotor"
)

// Snapshot is the serializable form of a session. Coefficients, limits and
// baselines are configuration and are not part of it.
type Snapshot struct {
	Seed         int64                        `json:"seed"`
	MaxRuns      int                          `json:"max_runs"`
	Run          int                          `json:"run"`
	Adjustments  rotor.Adjustments            `json:"adjustments"`
	Aircraft     Aircraft                     `json:"aircraft"`
	NoteCodes    []int                        `json:"note_codes"`
	Runs         map[int]rotor.MeasurementSet `json:"runs"`
	Acquisitions map[string]int               `json:"acquisitions"`
	Events       []Event                      `json:"events"`
}

func (s *Session) Snapshot() Snapshot {
	snap := Snapshot{
		Seed:         s.opts.Seed,
		MaxRuns:      s.opts.MaxRuns,
		Run:          s.run,
		Adjustments:  s.adj.Clone(),
		Aircraft:     s.aircraft,
		NoteCodes:    s.NoteCodes(),
		Runs:         make(map[int]rotor.MeasurementSet),
		Acquisitions: make(map[string]int, len(s.counts)),
		Events:       s.Events(),
	}
	for _, run := range s.runs.Runs() {
		snap.Runs[run] = s.runs.Measurements(run)
	}
	for k, v := range s.counts {
		snap.Acquisitions[k] = v
	}
	return snap
}

// Restore builds a session from a snapshot. Seed and MaxRuns come from the
// snapshot; everything else from opts.
func Restore(opts Options, snap Snapshot) *Session {
	opts.Seed = snap.Seed
	if snap.MaxRuns > 0 {
		opts.MaxRuns = snap.MaxRuns
	}
	s := New(opts)
	if snap.Run >= 1 {
		s.run = snap.Run
	}
	s.SetAdjustments(snap.Adjustments)
	s.aircraft = snap.Aircraft
	s.SetNoteCodes(snap.NoteCodes)
	for run, set := range snap.Runs {
		s.runs.Replace(run, set)
	}
	for k, v := range snap.Acquisitions {
		s.counts[k] = v
	}
	s.events = append([]Event(nil), snap.Events...)
	return s
}
