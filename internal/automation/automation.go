package automation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/san-kum/vxpsim/internal/experiment"
	"github.com/san-kum/vxpsim/internal/optim"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/session"
	"github.com/san-kum/vxpsim/internal/solver"
	"gopkg.in/yaml.v3"
)

var (
	ErrUnknownAction = errors.New("automation: unknown action")
	ErrExpectation   = errors.New("automation: expectation failed")
)

// Scenario is a scripted sequence of trainer actions.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one action. Fields not used by the action are ignored.
//
//	adjust          regime (or "all"), blade, pitch, trim, bolt
//	acquire         regimes (all when empty)
//	apply-solution  parts: any of pitch, trim, weight (all when empty)
//	optimize        max_grams, step_grams
//	next-run
//	check           expect: "ok" or "out"
type ScenarioStep struct {
	Action    string   `yaml:"action"`
	Regime    string   `yaml:"regime"`
	Blade     string   `yaml:"blade"`
	Pitch     float64  `yaml:"pitch"`
	Trim      float64  `yaml:"trim"`
	Bolt      float64  `yaml:"bolt"`
	Regimes   []string `yaml:"regimes"`
	Parts     []string `yaml:"parts"`
	MaxGrams  float64  `yaml:"max_grams"`
	StepGrams float64  `yaml:"step_grams"`
	Expect    string   `yaml:"expect"`
}

type StepResult struct {
	Step   int
	Action string
	Run    int
	Detail string
}

func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}

	return &scenario, nil
}

// RunScenario executes every step against sess and stops at the first error.
func RunScenario(ctx context.Context, scenario *Scenario, sess *session.Session) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res := StepResult{Step: i + 1, Action: step.Action, Run: sess.Run()}
		detail, err := runStep(ctx, step, sess)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
		res.Detail = detail
		results = append(results, res)
	}

	return results, nil
}

func stepRegimes(names []string, single string) ([]rotor.Regime, error) {
	if single != "" {
		names = append(names, single)
	}
	if len(names) == 0 {
		return rotor.Regimes, nil
	}
	var out []rotor.Regime
	for _, n := range names {
		if strings.EqualFold(n, "all") {
			return rotor.Regimes, nil
		}
		r, err := rotor.ParseRegime(n)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

func runStep(ctx context.Context, step ScenarioStep, sess *session.Session) (string, error) {
	switch strings.ToLower(step.Action) {
	case "adjust":
		regimes, err := stepRegimes(nil, step.Regime)
		if err != nil {
			return "", err
		}
		b, err := rotor.ParseBlade(step.Blade)
		if err != nil {
			return "", err
		}
		v := rotor.BladeAdjustment{PitchTurns: step.Pitch, TrimMM: step.Trim, BoltG: step.Bolt}
		for _, r := range regimes {
			sess.SetAdjustment(r, b, v)
		}
		return fmt.Sprintf("%s pitch %+.2f trim %+.2f bolt %.0f", b, v.PitchTurns, v.TrimMM, v.BoltG), nil

	case "acquire":
		regimes, err := stepRegimes(step.Regimes, "")
		if err != nil {
			return "", err
		}
		if len(regimes) == len(rotor.Regimes) {
			if _, err := sess.AcquireAll(ctx); err != nil {
				return "", err
			}
		} else {
			for _, r := range regimes {
				sess.Acquire(r)
			}
		}
		return fmt.Sprintf("%d regime(s)", len(regimes)), nil

	case "apply-solution":
		full := sess.Solve(sess.Run())
		sol := solver.Solution{}
		parts := step.Parts
		if len(parts) == 0 {
			parts = []string{"pitch", "trim", "weight"}
		}
		for _, p := range parts {
			switch strings.ToLower(p) {
			case "pitch":
				sol.PitchLink = full.PitchLink
			case "trim":
				sol.TrimTab = full.TrimTab
			case "weight":
				sol.WeightBlade, sol.WeightG = full.WeightBlade, full.WeightG
			default:
				return "", fmt.Errorf("unknown solution part %q", p)
			}
		}
		sess.ApplySolution(sol)
		return strings.Join(parts, ","), nil

	case "optimize":
		ws := optim.NewWeightSearch(sess.Simulator(), sess.Limits())
		if step.MaxGrams > 0 {
			ws.MaxGrams = step.MaxGrams
		}
		if step.StepGrams > 0 {
			ws.StepGrams = step.StepGrams
		}
		plan, err := ws.Search(ctx, sess.Run(), sess.Adjustments())
		if err != nil {
			return "", err
		}
		sess.SetAdjustments(plan.Apply(sess.Adjustments()))
		return fmt.Sprintf("score %.2f", plan.Score), nil

	case "next-run":
		if err := sess.NextRun(); err != nil {
			return "", err
		}
		return fmt.Sprintf("run %d", sess.Run()), nil

	case "check":
		ok := sess.AllOK(sess.Run())
		got := "out"
		if ok {
			got = "ok"
		}
		if step.Expect != "" && !strings.EqualFold(step.Expect, got) {
			return "", fmt.Errorf("%w: run %d is %s, expected %s", ErrExpectation, sess.Run(), got, step.Expect)
		}
		return got, nil
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownAction, step.Action)
}

// MonteCarloConfig repeats the automatic exercise over random seeds.
type MonteCarloConfig struct {
	Options   session.Options
	Strategy  experiment.Strategy
	NumTrials int
	Seed      int64
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Passed  bool
	Grams   float64
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, cfg.NumTrials)

	rng := rand.New(rand.NewSource(cfg.Seed))
	if cfg.Seed == 0 {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	for trial := 0; trial < cfg.NumTrials; trial++ {
		opts := cfg.Options
		opts.Seed = rng.Int63()

		res, err := experiment.New(experiment.Config{Options: opts, Strategy: cfg.Strategy}).Run(ctx)
		if err != nil {
			return results, err
		}

		grams := 0.0
		for _, rr := range res.Runs {
			grams += rr.TotalGrams()
		}
		results = append(results, MonteCarloResult{
			TrialID: trial,
			Seed:    opts.Seed,
			Passed:  res.Passed,
			Grams:   grams,
		})
	}

	return results, nil
}

func MonteCarloStats(results []MonteCarloResult) (passed int, failed int) {
	for _, r := range results {
		if r.Passed {
			passed++
		} else {
			failed++
		}
	}
	return
}
