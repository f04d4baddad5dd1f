// Package session owns the acquisition workflow of one trainee: the current
// run, the operator's adjustments, the measurements acquired so far and the
// aircraft paperwork that travels with them.
//
// A Session is not safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/san-kum/vxpsim/internal/baseline"
	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/noise"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/sim"
	"github.com/san-kum/vxpsim/internal/solver"
)

const (
	DefaultMaxRuns = 3

	maxEvents  = 250
	keepEvents = 200
)

type Aircraft struct {
	Weight   float64 `json:"weight" yaml:"weight"`
	CG       float64 `json:"cg" yaml:"cg"`
	Hours    float64 `json:"hours" yaml:"hours"`
	Initials string  `json:"initials" yaml:"initials"`
}

// NoteCode is one entry of the maintenance note-code table.
type NoteCode struct {
	Code int
	Name string
}

var NoteCodes = []NoteCode{
	{0, "Scheduled Insp"},
	{1, "Balance"},
	{2, "Troubleshooting"},
	{3, "Low Freq Vib"},
	{4, "Med Freq Vib"},
	{5, "High Freq Vib"},
	{6, "Component Change"},
}

func noteName(code int) (string, bool) {
	for _, nc := range NoteCodes {
		if nc.Code == code {
			return nc.Name, true
		}
	}
	return "", false
}

type Event struct {
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

func (e Event) String() string {
	return fmt.Sprintf("[%s] %s", e.Time.Format("15:04:05"), e.Message)
}

// Observer is notified after every acquisition.
type Observer interface {
	OnAcquire(run int, m rotor.Measurement)
}

type Options struct {
	Seed         int64
	MaxRuns      int
	Coefficients sim.Coefficients
	Limits       compliance.Limits
	Baselines    *baseline.Table
	// KeepAdjustments carries the operator's adjustments into the next run.
	// Baselines of later runs already include earlier corrections, so the
	// default is to start each run neutral.
	KeepAdjustments bool
}

func DefaultOptions() Options {
	return Options{
		MaxRuns:      DefaultMaxRuns,
		Coefficients: sim.DefaultCoefficients(),
		Limits:       compliance.DefaultLimits(),
	}
}

type Session struct {
	opts      Options
	simulator *sim.Simulator
	solver    *solver.Solver

	run       int
	runs      *RunSet
	adj       rotor.Adjustments
	aircraft  Aircraft
	notes     map[int]bool
	events    []Event
	counts    map[string]int
	observers []Observer

	now func() time.Time
}

func New(opts Options) *Session {
	if opts.MaxRuns < 1 {
		opts.MaxRuns = DefaultMaxRuns
	}
	return &Session{
		opts:      opts,
		simulator: sim.New(opts.Coefficients, opts.Baselines),
		solver:    solver.New(opts.Coefficients),
		run:       1,
		runs:      NewRunSet(),
		adj:       rotor.NeutralAdjustments(),
		notes:     make(map[int]bool),
		counts:    make(map[string]int),
		now:       time.Now,
	}
}

func (s *Session) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Session) Run() int { return s.run }

func (s *Session) MaxRuns() int { return s.opts.MaxRuns }

func (s *Session) Seed() int64 { return s.opts.Seed }

func (s *Session) Limits() compliance.Limits { return s.opts.Limits }

func (s *Session) Simulator() *sim.Simulator { return s.simulator }

func (s *Session) Solver() *solver.Solver { return s.solver }

// RunSet exposes the acquired measurements. Callers must not mutate it.
func (s *Session) RunSet() *RunSet { return s.runs }

func (s *Session) Measurements(run int) rotor.MeasurementSet { return s.runs.Measurements(run) }

func (s *Session) Adjustments() rotor.Adjustments { return s.adj.Clone() }

func (s *Session) SetAdjustment(r rotor.Regime, b rotor.Blade, v rotor.BladeAdjustment) {
	s.adj.Set(r, b, v)
	s.logf("Adjust: %s %s pitch %+.2f trim %+.2f bolt %.0f", r, b, v.PitchTurns, v.TrimMM, v.BoltG)
}

func (s *Session) SetAdjustments(adj rotor.Adjustments) {
	s.adj = rotor.NeutralAdjustments()
	for r, blades := range adj {
		for b, v := range blades {
			s.adj.Set(r, b, v)
		}
	}
}

// ApplySolution adds a solver solution to the current adjustments.
func (s *Session) ApplySolution(sol solver.Solution) {
	s.adj = sol.Apply(s.adj)
	s.logf("Apply solution: weight %.0f g at %s", sol.WeightG, sol.WeightBlade)
}

func countKey(run int, r rotor.Regime) string {
	return fmt.Sprintf("%d/%s", run, r)
}

func (s *Session) nextSeed(r rotor.Regime) int64 {
	key := countKey(s.run, r)
	n := s.counts[key]
	s.counts[key] = n + 1
	return noise.Derive(s.opts.Seed, s.run, r.String(), n)
}

// Acquire simulates regime r for the current run with the current
// adjustments and stores the result, replacing any earlier acquisition.
func (s *Session) Acquire(r rotor.Regime) rotor.Measurement {
	m := s.simulator.Simulate(s.run, r, s.adj, noise.NewGaussian(s.nextSeed(r)))
	s.store(m)
	return m
}

// AcquireAll acquires every canonical regime of the current run.
func (s *Session) AcquireAll(ctx context.Context) (rotor.MeasurementSet, error) {
	acqs := make([]sim.Acquisition, 0, len(rotor.Regimes))
	for _, r := range rotor.Regimes {
		acqs = append(acqs, sim.Acquisition{Regime: r, Seed: s.nextSeed(r)})
	}

	set, err := s.simulator.AcquireAll(ctx, s.run, acqs, s.adj)
	if err != nil {
		return nil, err
	}
	for _, r := range rotor.Regimes {
		s.store(set[r])
	}
	return set, nil
}

func (s *Session) store(m rotor.Measurement) {
	s.runs.Put(s.run, m)
	s.logf("Acquire: run %d / %s", s.run, m.Regime)
	for _, o := range s.observers {
		o.OnAcquire(s.run, m)
	}
}

// ImportRun replaces the measurements of run with set.
func (s *Session) ImportRun(run int, set rotor.MeasurementSet) error {
	if run < 1 {
		return ErrInvalidRun
	}
	s.runs.Replace(run, set)
	s.logf("Import: run %d (%d regimes)", run, len(set))
	return nil
}

func (s *Session) State(run int, r rotor.Regime) State { return s.runs.State(run, r) }

// NextRun advances to the next run.
func (s *Session) NextRun() error {
	if s.run >= s.opts.MaxRuns {
		return ErrLastRun
	}
	s.run++
	if !s.opts.KeepAdjustments {
		s.adj = rotor.NeutralAdjustments()
	}
	s.logf("Next run: %d", s.run)
	return nil
}

func (s *Session) Solve(run int) solver.Solution {
	return s.solver.Solve(s.runs.Measurements(run))
}

func (s *Session) Evaluate(run int) []compliance.Status {
	return s.opts.Limits.Evaluate(s.runs.Measurements(run))
}

func (s *Session) AllOK(run int) bool {
	return s.opts.Limits.AllOK(s.runs.Measurements(run))
}

// Passed reports whether the final run is fully acquired and within limits.
func (s *Session) Passed() bool {
	return s.run == s.opts.MaxRuns && s.runs.Complete(s.run) && s.AllOK(s.run)
}

func (s *Session) Aircraft() Aircraft { return s.aircraft }

func (s *Session) SetAircraft(a Aircraft) {
	s.aircraft = a
	s.logf("Aircraft info updated")
}

// ToggleNoteCode flips a note code and returns its new state.
func (s *Session) ToggleNoteCode(code int) (bool, error) {
	name, ok := noteName(code)
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownNoteCode, code)
	}
	on := !s.notes[code]
	if on {
		s.notes[code] = true
	} else {
		delete(s.notes, code)
	}
	state := "OFF"
	if on {
		state = "ON"
	}
	s.logf("Note code toggle: %02d %s -> %s", code, name, state)
	return on, nil
}

// SetNoteCodes replaces the selected note codes. Unknown codes are dropped.
func (s *Session) SetNoteCodes(codes []int) {
	s.notes = make(map[int]bool, len(codes))
	for _, c := range codes {
		if _, ok := noteName(c); ok {
			s.notes[c] = true
		}
	}
}

func (s *Session) NoteCodes() []int {
	out := make([]int, 0, len(s.notes))
	for c := range s.notes {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

func (s *Session) Events() []Event {
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

func (s *Session) logf(format string, args ...any) {
	s.events = append(s.events, Event{Time: s.now(), Message: fmt.Sprintf(format, args...)})
	if len(s.events) > maxEvents {
		s.events = append([]Event(nil), s.events[len(s.events)-keepEvents:]...)
	}
}
