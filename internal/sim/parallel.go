package sim

import (
	"context"
	"sync"

	"github.com/san-kum/vxpsim/internal/noise"
	"github.com/san-kum/vxpsim/internal/rotor"
)

// Acquisition pairs a regime with the seed of its private noise stream.
type Acquisition struct {
	Regime rotor.Regime
	Seed   int64
}

// AcquireAll simulates several regimes of one run concurrently. Each
// acquisition gets its own noise stream, so the result equals calling
// Simulate sequentially with the same seeds.
func (s *Simulator) AcquireAll(ctx context.Context, run int, acqs []Acquisition, adj rotor.Adjustments) (rotor.MeasurementSet, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	adj = adj.Clone()
	results := make([]rotor.Measurement, len(acqs))

	var wg sync.WaitGroup
	for i, a := range acqs {
		wg.Add(1)
		go func(idx int, a Acquisition) {
			defer wg.Done()
			results[idx] = s.Simulate(run, a.Regime, adj, noise.NewGaussian(a.Seed))
		}(i, a)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	set := make(rotor.MeasurementSet, len(results))
	for _, m := range results {
		set[m.Regime] = m
	}
	return set, nil
}
