package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/logging"
	"github.com/san-kum/landersim/internal/metrics"
	"github.com/san-kum/landersim/internal/rng"
	"github.com/san-kum/landersim/internal/sim"
)

var ErrInvalidSweep = errors.New("automation: invalid sweep")

const DefaultMaxTicks = 5000

// ParameterSweep varies one PID gain across a range, starting from Base (the
// model defaults when zero). Every run uses the same seed so only the gain
// differs between them.
type ParameterSweep struct {
	Param    string
	Min      float64
	Max      float64
	NumSteps int
	Base     control.Gains
	Scenario *Scenario
	MaxTicks int
	Seed     int64
	Workers  int
	// Source builds the noise source for a run. Nil means rng.NewPCG.
	Source func(seed int64) rng.Source
}

// Outcome summarises a finished run.
type Outcome struct {
	Status            lander.Status
	Ticks             int
	Landed            bool
	TouchdownVelocity float64
	FuelRemaining     float64
	Metrics           map[string]float64
}

type SweepResult struct {
	ParamValue float64
	Gains      control.Gains
	Outcome
}

func (sw *ParameterSweep) validate() error {
	switch strings.ToLower(sw.Param) {
	case "kp", "ki", "kd":
	default:
		return fmt.Errorf("%w: unknown gain %q", ErrInvalidSweep, sw.Param)
	}
	if sw.NumSteps < 1 {
		return fmt.Errorf("%w: need at least one step", ErrInvalidSweep)
	}
	if sw.Min < 0 || sw.Max < sw.Min {
		return fmt.Errorf("%w: bad range [%g, %g]", ErrInvalidSweep, sw.Min, sw.Max)
	}
	return nil
}

// Values returns the swept gain values, evenly spaced and inclusive.
func (sw *ParameterSweep) Values() []float64 {
	vals := make([]float64, sw.NumSteps)
	if sw.NumSteps == 1 {
		vals[0] = sw.Min
		return vals
	}
	step := (sw.Max - sw.Min) / float64(sw.NumSteps-1)
	for i := range vals {
		vals[i] = sw.Min + float64(i)*step
	}
	return vals
}

func (sw *ParameterSweep) gainsFor(v float64) control.Gains {
	g := sw.Base
	if g == (control.Gains{}) {
		g = lander.DefaultGains()
	}
	switch strings.ToLower(sw.Param) {
	case "kp":
		g.Kp = v
	case "ki":
		g.Ki = v
	case "kd":
		g.Kd = v
	}
	return g
}

// RunSweep runs one simulation per gain value concurrently.
func RunSweep(ctx context.Context, sw *ParameterSweep, log *logging.Logger) ([]SweepResult, error) {
	if err := sw.validate(); err != nil {
		return nil, err
	}
	values := sw.Values()

	ens := sim.NewEnsemble(func(idx int, _ int64) (*sim.Runner, error) {
		return newHeadless(sw.Scenario, sw.gainsFor(values[idx]), source(sw.Source, sw.Seed), sw.MaxTicks)
	}, len(values), sw.Seed)
	ens.Workers = sw.Workers

	runs, err := ens.Run(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]SweepResult, len(values))
	for i, res := range runs {
		results[i] = SweepResult{
			ParamValue: values[i],
			Gains:      sw.gainsFor(values[i]),
			Outcome:    outcome(res),
		}
		log.Debug("sweep point done", "param", sw.Param, "value", values[i], "status", res.Final.Status)
	}
	return results, nil
}

// newHeadless builds a runner that ticks as fast as possible, stops on
// touchdown or abort, and carries the standard metrics.
func newHeadless(sc *Scenario, gains control.Gains, src rng.Source, maxTicks int) (*sim.Runner, error) {
	if maxTicks <= 0 {
		maxTicks = DefaultMaxTicks
	}
	model := lander.New(lander.WithSource(src))
	r := sim.New(model, sim.Config{
		MaxTicks:       maxTicks,
		StopOnTerminal: true,
	})
	for _, m := range metrics.Standard() {
		r.AddMetric(m)
	}
	if gains != lander.DefaultGains() {
		r.Apply(lander.GainsValue(gains))
	}
	if sc != nil {
		if _, err := sc.Attach(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func source(f func(int64) rng.Source, seed int64) rng.Source {
	if f == nil {
		return rng.NewPCG(seed)
	}
	return f(seed)
}

func outcome(res *sim.Result) Outcome {
	return Outcome{
		Status:            res.Final.Status,
		Ticks:             res.Ticks,
		Landed:            res.Final.Altitude == 0,
		TouchdownVelocity: res.Metrics["touchdown_velocity"],
		FuelRemaining:     res.Final.Fuel,
		Metrics:           res.Metrics,
	}
}
