package automation

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/logging"
	"github.com/san-kum/landersim/internal/rng"
	"github.com/san-kum/landersim/internal/sim"
)

// SafeTouchdownSpeed is the fastest touchdown counted as a soft landing.
const SafeTouchdownSpeed = 5.0

// MonteCarloConfig runs one scenario under many noise seeds. Zero Gains
// means the model defaults.
type MonteCarloConfig struct {
	Scenario  *Scenario
	Gains     control.Gains
	NumTrials int
	MaxTicks  int
	Seed      int64
	Workers   int
	Source    func(seed int64) rng.Source
}

type MonteCarloResult struct {
	TrialID int
	Seed    int64
	Outcome
}

// Soft reports a landing with gear down below SafeTouchdownSpeed.
func (r MonteCarloResult) Soft() bool {
	return r.Status == lander.StatusLanded && math.Abs(r.TouchdownVelocity) <= SafeTouchdownSpeed
}

func RunMonteCarlo(ctx context.Context, cfg *MonteCarloConfig, log *logging.Logger) ([]MonteCarloResult, error) {
	if cfg.NumTrials < 1 {
		return nil, fmt.Errorf("%w: need at least one trial", ErrInvalidSweep)
	}

	gains := cfg.Gains
	if gains == (control.Gains{}) {
		gains = lander.DefaultGains()
	}

	ens := sim.NewEnsemble(func(_ int, seed int64) (*sim.Runner, error) {
		return newHeadless(cfg.Scenario, gains, source(cfg.Source, seed), cfg.MaxTicks)
	}, cfg.NumTrials, cfg.Seed)
	ens.Workers = cfg.Workers

	runs, err := ens.Run(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]MonteCarloResult, len(runs))
	for i, res := range runs {
		results[i] = MonteCarloResult{
			TrialID: i,
			Seed:    cfg.Seed + int64(i),
			Outcome: outcome(res),
		}
		if (i+1)%10 == 0 {
			log.Debug("monte carlo progress", "done", i+1, "trials", cfg.NumTrials)
		}
	}
	return results, nil
}

type MonteCarloSummary struct {
	Trials        int
	Landed        int
	Soft          int
	Aborted       int
	MeanTouchdown float64
	MeanFuelLeft  float64
}

// MonteCarloStats computes summary statistics from Monte Carlo results.
func MonteCarloStats(results []MonteCarloResult) MonteCarloSummary {
	s := MonteCarloSummary{Trials: len(results)}
	if len(results) == 0 {
		return s
	}
	touchdowns := 0
	for _, r := range results {
		switch r.Status {
		case lander.StatusLanded:
			s.Landed++
		case lander.StatusAborted:
			s.Aborted++
		}
		if r.Soft() {
			s.Soft++
		}
		if r.Landed {
			s.MeanTouchdown += r.TouchdownVelocity
			touchdowns++
		}
		s.MeanFuelLeft += r.FuelRemaining
	}
	if touchdowns > 0 {
		s.MeanTouchdown /= float64(touchdowns)
	}
	s.MeanFuelLeft /= float64(len(results))
	return s
}
