package automation

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/logging"
	"github.com/san-kum/landersim/internal/optim"
	"github.com/san-kum/landersim/internal/rng"
)

const (
	crashPenalty    = 1000.0
	airbornePenalty = 2000.0
	fuelWeight      = 0.01
)

// TuneConfig grid-searches PID gains. An empty value list keeps that gain
// at the model default.
type TuneConfig struct {
	Kp, Ki, Kd []float64
	Scenario   *Scenario
	MaxTicks   int
	Seed       int64
	Source     func(seed int64) rng.Source
}

type TuneResult struct {
	Gains     control.Gains
	Score     float64
	Outcome   Outcome
	Evaluated int
	Failed    int
}

// Score ranks a finished landing; lower is better. A gear-down landing
// scores its touchdown speed plus a small fuel charge, a crash without gear
// is penalised, and never reaching the ground is worst.
func Score(o Outcome) float64 {
	fuel := fuelWeight * (lander.InitialFuel - o.FuelRemaining)
	switch {
	case o.Status == lander.StatusLanded:
		return math.Abs(o.TouchdownVelocity) + fuel
	case o.Landed:
		return crashPenalty + math.Abs(o.TouchdownVelocity) + fuel
	}
	return airbornePenalty + fuel
}

func (tc *TuneConfig) ranges() ([]string, [][]float64) {
	def := lander.DefaultGains()
	pick := func(vals []float64, fallback float64) []float64 {
		if len(vals) == 0 {
			return []float64{fallback}
		}
		return vals
	}
	return []string{"kp", "ki", "kd"}, [][]float64{
		pick(tc.Kp, def.Kp),
		pick(tc.Ki, def.Ki),
		pick(tc.Kd, def.Kd),
	}
}

// TuneGains runs one headless landing per grid point, all under the same
// seed, and returns the best scoring gains.
func TuneGains(ctx context.Context, tc *TuneConfig, log *logging.Logger) (*TuneResult, error) {
	names, ranges := tc.ranges()
	for i, r := range ranges {
		for _, v := range r {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: %s value %v", ErrInvalidSweep, names[i], v)
			}
		}
	}
	grid := optim.NewGridSearch(names, ranges)
	log.Info("tuning gains", "points", grid.Size(), "seed", tc.Seed)

	outcomes := make(map[control.Gains]Outcome, grid.Size())
	objective := func(ctx context.Context, p map[string]float64) (float64, error) {
		g := control.Gains{Kp: p["kp"], Ki: p["ki"], Kd: p["kd"]}
		r, err := newHeadless(tc.Scenario, g, source(tc.Source, tc.Seed), tc.MaxTicks)
		if err != nil {
			return 0, err
		}
		res, err := r.Run(ctx)
		if err != nil {
			return 0, err
		}
		o := outcome(res)
		outcomes[g] = o
		score := Score(o)
		log.Debug("tune point", "gains", g.String(), "status", o.Status, "score", score)
		return score, nil
	}

	best, err := grid.Search(ctx, objective)
	if best == nil {
		return nil, err
	}
	g := control.Gains{Kp: best.Params["kp"], Ki: best.Params["ki"], Kd: best.Params["kd"]}
	return &TuneResult{
		Gains:     g,
		Score:     best.Score,
		Outcome:   outcomes[g],
		Evaluated: best.Evaluated,
		Failed:    best.Failed,
	}, err
}
