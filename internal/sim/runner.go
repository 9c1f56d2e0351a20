package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/logging"
)

// Runner drives one lander.Model. Every call that touches the model goes
// through mu, so commands and ticks never interleave.
type Runner struct {
	mu    sync.Mutex
	model *lander.Model

	cfg       Config
	log       *logging.Logger
	metrics   []Metric
	observers []Observer
	policy    Policy
	queue     chan lander.Command

	lastTick int
}

func New(model *lander.Model, cfg Config) *Runner {
	size := cfg.QueueSize
	if size <= 0 {
		size = DefaultConfig().QueueSize
	}
	return &Runner{
		model:     model,
		cfg:       cfg,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		queue:     make(chan lander.Command, size),
		lastTick:  -1,
	}
}

func (r *Runner) AddMetric(m Metric)          { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o Observer)      { r.observers = append(r.observers, o) }
func (r *Runner) SetPolicy(p Policy)          { r.policy = p }
func (r *Runner) SetLogger(l *logging.Logger) { r.log = l }

func (r *Runner) Config() Config { return r.cfg }

// Snapshot returns the model state without advancing it.
func (r *Runner) Snapshot() lander.Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Snapshot()
}

// Telemetry returns the model's telemetry log.
func (r *Runner) Telemetry() []lander.TelemetryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.Telemetry()
}

// RecentTelemetry returns at most the n newest telemetry records.
func (r *Runner) RecentTelemetry(n int) []lander.TelemetryRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.RecentTelemetry(n)
}

// ControllerHistory returns the model's controller log.
func (r *Runner) ControllerHistory() []lander.ControllerRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.model.ControllerHistory()
}

// Apply runs cmd against the model immediately.
func (r *Runner) Apply(cmd lander.Command) {
	r.mu.Lock()
	cmd.Apply(r.model)
	r.mu.Unlock()
	r.log.Debug("command applied", "type", cmd.Type())
}

// Submit queues cmd for the running loop. It never blocks.
func (r *Runner) Submit(cmd lander.Command) error {
	select {
	case r.queue <- cmd:
		return nil
	default:
		return fmt.Errorf("%w: dropped %s", ErrQueueFull, cmd.Type())
	}
}

func (r *Runner) drain() {
	for {
		select {
		case cmd := <-r.queue:
			r.Apply(cmd)
		default:
			return
		}
	}
}

func (r *Runner) advance() (snap lander.Snapshot, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := r.model.Tick() + 1
	defer func() {
		if p := recover(); p != nil {
			err = &TickError{
				Tick:    next,
				Wrapped: fmt.Errorf("%w: %v", ErrTickFailed, p),
			}
		}
	}()
	return r.model.Advance(), nil
}

// Step advances the model once and hands the snapshot to metrics, observers
// and the policy, in that order.
func (r *Runner) Step(ctx context.Context) (lander.Snapshot, error) {
	snap, err := r.advance()
	if err != nil {
		return snap, err
	}

	if snap.Tick != r.lastTick {
		for _, m := range r.metrics {
			m.Observe(snap)
		}
	}
	r.lastTick = snap.Tick

	for _, o := range r.observers {
		if err := o.OnTick(ctx, snap); err != nil {
			r.log.Warn("observer failed", "tick", snap.Tick, "error", err)
		}
	}

	if r.policy != nil {
		for _, cmd := range r.policy.Decide(snap) {
			r.Apply(cmd)
		}
	}
	return snap, nil
}

// MetricValues reports the current value of every registered metric.
func (r *Runner) MetricValues() map[string]float64 {
	out := make(map[string]float64, len(r.metrics))
	for _, m := range r.metrics {
		out[m.Name()] = m.Value()
	}
	return out
}

func (r *Runner) validate() error {
	switch {
	case r.cfg.Interval < 0:
		return fmt.Errorf("%w: negative interval %v", ErrInvalidConfig, r.cfg.Interval)
	case r.cfg.MaxTicks < 0:
		return fmt.Errorf("%w: negative max ticks %d", ErrInvalidConfig, r.cfg.MaxTicks)
	case r.cfg.RetryDelay < 0:
		return fmt.Errorf("%w: negative retry delay %v", ErrInvalidConfig, r.cfg.RetryDelay)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Run ticks the model until ctx is done, MaxTicks is reached, or (with
// StopOnTerminal) the mission ends. A cancelled context returns the partial
// result together with ctx.Err().
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	for _, m := range r.metrics {
		m.Reset()
	}
	r.lastTick = -1

	start := time.Now()
	result := &Result{
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}
	finish := func() {
		result.Duration = time.Since(start)
		result.Metrics = r.MetricValues()
	}

	var runErr error
	for {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		r.drain()
		snap, err := r.Step(ctx)
		if err != nil {
			result.Errors = append(result.Errors, err)
			r.log.Warn("tick failed, retrying", "error", err, "retry_in", r.cfg.RetryDelay)
			if err := sleep(ctx, r.cfg.RetryDelay); err != nil {
				runErr = err
				break
			}
			continue
		}

		result.Ticks++
		result.Final = snap

		if r.cfg.StopOnTerminal && snap.Status.Terminal() {
			r.log.Info("mission ended", "status", snap.Status, "tick", snap.Tick)
			break
		}
		if r.cfg.MaxTicks > 0 && result.Ticks >= r.cfg.MaxTicks {
			break
		}
		if err := sleep(ctx, r.cfg.Interval); err != nil {
			runErr = err
			break
		}
	}

	if result.Ticks == 0 {
		result.Final = r.Snapshot()
	}
	finish()
	return result, runErr
}
