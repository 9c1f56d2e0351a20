package sim

import (
	"context"
	"time"

	"github.com/san-kum/landersim/internal/lander"
)

// Metric accumulates a scalar over the ticks of a run.
type Metric interface {
	Name() string
	Observe(s lander.Snapshot)
	Value() float64
	Reset()
}

// Observer receives every snapshot the runner produces. Errors are logged by
// the runner and never stop the run.
type Observer interface {
	OnTick(ctx context.Context, s lander.Snapshot) error
}

type ObserverFunc func(ctx context.Context, s lander.Snapshot) error

func (f ObserverFunc) OnTick(ctx context.Context, s lander.Snapshot) error { return f(ctx, s) }

// Policy issues commands in response to a snapshot. The commands are
// applied before the next tick.
type Policy interface {
	Decide(s lander.Snapshot) []lander.Command
}

type PolicyFunc func(s lander.Snapshot) []lander.Command

func (f PolicyFunc) Decide(s lander.Snapshot) []lander.Command { return f(s) }

type Config struct {
	// Interval is the wall time between ticks. Zero runs as fast as possible.
	Interval time.Duration
	// MaxTicks stops the run after that many ticks. Zero means no limit.
	MaxTicks int
	// RetryDelay is how long to wait after a failed tick.
	RetryDelay time.Duration
	// StopOnTerminal ends the run once the status is LANDED or ABORTED.
	StopOnTerminal bool
	QueueSize      int
}

func DefaultConfig() Config {
	return Config{
		Interval:       200 * time.Millisecond,
		RetryDelay:     time.Second,
		StopOnTerminal: true,
		QueueSize:      64,
	}
}

type Result struct {
	Ticks    int
	Final    lander.Snapshot
	Metrics  map[string]float64
	Errors   []error
	Duration time.Duration
}
