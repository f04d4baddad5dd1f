package optim

import (
	"context"
	"math"

	"github.com/san-kum/vxpsim/internal/compliance"
	"github.com/san-kum/vxpsim/internal/rotor"
	"github.com/san-kum/vxpsim/internal/sim"
)

const (
	DefaultMaxGrams  = 120
	DefaultStepGrams = 10

	// gramPenalty breaks ties between equivalent plans in favor of less
	// total weight. Opposite blades cancel, so ties are common.
	gramPenalty = 1e-6
)

// WeightSearch finds the bolt weights per blade that minimize the worst
// balance amplitude of a run, scaled by each regime's limit. Simulations are
// noise free.
type WeightSearch struct {
	Simulator *sim.Simulator
	Limits    compliance.Limits
	Regimes   []rotor.Regime
	MaxGrams  float64
	StepGrams float64
}

type WeightPlan struct {
	Grams map[rotor.Blade]float64
	// Score is the worst amp/limit ratio; below 1 every regime passes balance.
	Score float64
}

func NewWeightSearch(s *sim.Simulator, limits compliance.Limits) *WeightSearch {
	return &WeightSearch{
		Simulator: s,
		Limits:    limits,
		Regimes:   rotor.Regimes,
		MaxGrams:  DefaultMaxGrams,
		StepGrams: DefaultStepGrams,
	}
}

// Score evaluates adj on run without adding any weight.
func (w *WeightSearch) Score(run int, adj rotor.Adjustments) float64 {
	worst := 0.0
	for _, r := range w.Regimes {
		m := w.Simulator.Simulate(run, r, adj, nil)
		limit := w.Limits.BalanceLimit(r)
		if limit <= 0 {
			continue
		}
		worst = math.Max(worst, m.Balance.AmpIPS/limit)
	}
	return worst
}

// Search adds the candidate grams to every regime's bolts on top of adj.
func (w *WeightSearch) Search(ctx context.Context, run int, adj rotor.Adjustments) (WeightPlan, error) {
	names := make([]string, len(rotor.Blades))
	ranges := make([][]float64, len(rotor.Blades))
	for i, b := range rotor.Blades {
		names[i] = b.String()
		ranges[i] = Range(0, w.MaxGrams, w.StepGrams)
	}

	objective := func(_ context.Context, params map[string]float64) (float64, error) {
		total := 0.0
		for _, g := range params {
			total += g
		}
		return w.Score(run, WeightPlan{Grams: gramsFromParams(params)}.Apply(adj)) + gramPenalty*total, nil
	}

	best, _, err := NewGridSearch(names, ranges).Search(ctx, objective)
	if err != nil {
		return WeightPlan{}, err
	}

	plan := WeightPlan{Grams: gramsFromParams(best)}
	plan.Score = w.Score(run, plan.Apply(adj))
	return plan, nil
}

func gramsFromParams(params map[string]float64) map[rotor.Blade]float64 {
	grams := make(map[rotor.Blade]float64, len(rotor.Blades))
	for _, b := range rotor.Blades {
		grams[b] = params[b.String()]
	}
	return grams
}

// Apply adds the plan's grams to every regime of adj.
func (p WeightPlan) Apply(adj rotor.Adjustments) rotor.Adjustments {
	out := adj.Clone()
	for _, r := range rotor.Regimes {
		for b, g := range p.Grams {
			if g == 0 {
				continue
			}
			v := out.Get(r, b)
			v.BoltG += g
			out.Set(r, b, v)
		}
	}
	return out
}
