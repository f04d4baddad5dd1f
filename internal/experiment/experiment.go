package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/vxpsim/internal/metrics"
	"github.com/san-kum/vxpsim/internal/optim"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
	"github.com/san-kum/vxpsim/internal/solver"
)

// Strategy selects how the exercise corrects balance.
type Strategy string

const (
	// StrategySearch grid-searches bolt weights on the noise-free model.
	StrategySearch Strategy = "search"
	// StrategySolver applies the solver's single-weight suggestion as is.
	StrategySolver Strategy = "solver"
)

func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategySearch, StrategySolver:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("unknown strategy: %s", s)
}

type Config struct {
	Options  session.Options
	Strategy Strategy
}

// RunResult describes one run of the exercise.
type RunResult struct {
	Run      int
	AsFound  map[string]float64
	Final    map[string]float64
	Solution solver.Solution
	Weights  optim.WeightPlan
	OK       bool
}

type Result struct {
	Runs    []RunResult
	Passed  bool
	Session *session.Session
}

// Experiment drives a session through every run: acquire, correct track,
// re-acquire, correct balance and trim tabs, re-acquire.
type Experiment struct {
	cfg  Config
	sess *session.Session
}

func New(cfg Config) *Experiment {
	if cfg.Strategy == "" {
		cfg.Strategy = StrategySearch
	}
	return &Experiment{cfg: cfg, sess: session.New(cfg.Options)}
}

func (e *Experiment) Session() *session.Session { return e.sess }

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	res := &Result{Session: e.sess}
	ms := metrics.Defaults(e.sess.Limits())

	for {
		rr, err := e.runOnce(ctx, ms)
		if err != nil {
			return nil, err
		}
		res.Runs = append(res.Runs, rr)

		if err := e.sess.NextRun(); err != nil {
			break
		}
	}

	res.Passed = e.sess.Passed()
	return res, nil
}

func (e *Experiment) runOnce(ctx context.Context, ms []metrics.Metric) (RunResult, error) {
	run := e.sess.Run()
	rr := RunResult{Run: run}

	set, err := e.sess.AcquireAll(ctx)
	if err != nil {
		return rr, err
	}
	rr.AsFound = metrics.Collect(ms, set)
	if e.sess.AllOK(run) {
		rr.Final = rr.AsFound
		rr.OK = true
		return rr, nil
	}

	// Pitch links first: trim tabs are computed from forward-flight track,
	// which pitch links also move.
	sol := e.sess.Solve(run)
	e.sess.ApplySolution(solver.Solution{PitchLink: sol.PitchLink})
	if _, err := e.sess.AcquireAll(ctx); err != nil {
		return rr, err
	}

	sol = e.sess.Solve(run)
	rr.Solution = sol
	switch e.cfg.Strategy {
	case StrategySolver:
		e.sess.ApplySolution(solver.Solution{TrimTab: sol.TrimTab, WeightBlade: sol.WeightBlade, WeightG: sol.WeightG})
	default:
		e.sess.ApplySolution(solver.Solution{TrimTab: sol.TrimTab})
		ws := optim.NewWeightSearch(e.sess.Simulator(), e.sess.Limits())
		plan, err := ws.Search(ctx, run, e.sess.Adjustments())
		if err != nil {
			return rr, err
		}
		rr.Weights = plan
		e.sess.SetAdjustments(plan.Apply(e.sess.Adjustments()))
	}

	set, err = e.sess.AcquireAll(ctx)
	if err != nil {
		return rr, err
	}
	rr.Final = metrics.Collect(ms, set)
	rr.OK = e.sess.AllOK(run)
	return rr, nil
}

// TotalGrams is the weight added by a run's correction.
func (r RunResult) TotalGrams() float64 {
	total := r.Solution.WeightG
	if len(r.Weights.Grams) > 0 {
		total = 0
		for _, b := range rotor.Blades {
			total += r.Weights.Grams[b]
		}
	}
	return total
}
