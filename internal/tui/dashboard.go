package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/logging"
	"github.com/san-kum/landersim/internal/sim"
)

const (
	throttleStep = 10.0
	gainStep     = 0.05
	// minGain is what a zero gain is nudged to on the first increase.
	minGain   = 0.01
	chartSize = 60
	alertRows = 8
	minFrame  = 16 * time.Millisecond
)

type confirm int

const (
	confirmNone confirm = iota
	confirmAbort
	confirmReset
)

var gainNames = [...]string{"Kp", "Ki", "Kd"}

type tickMsg time.Time

func tick(d time.Duration) tea.Cmd {
	if d < minFrame {
		d = minFrame
	}
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Dashboard is the bubbletea model of the live lander view. It owns no
// simulation state itself; every read and command goes through the runner.
type Dashboard struct {
	ctx    context.Context
	runner *sim.Runner
	log    *logging.Logger

	interval time.Duration
	snap     lander.Snapshot
	altitude []float64
	velocity []float64

	paused  bool
	confirm confirm
	gain    int

	ticks   int
	errors  []error
	started time.Time

	width  int
	height int
}

func New(ctx context.Context, r *sim.Runner, log *logging.Logger) Dashboard {
	d := Dashboard{
		ctx:      ctx,
		runner:   r,
		log:      log,
		interval: r.Config().Interval,
		errors:   make([]error, 0),
		started:  time.Now(),
	}
	d.refresh(r.Snapshot())
	return d
}

func (d Dashboard) Init() tea.Cmd { return tick(d.interval) }

func (d Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return d.handleKey(msg)
	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil
	case tickMsg:
		if d.ctx.Err() != nil {
			return d, tea.Quit
		}
		if !d.paused {
			d = d.step()
		}
		return d, tick(d.interval)
	}
	return d, nil
}

func (d Dashboard) step() Dashboard {
	snap, err := d.runner.Step(d.ctx)
	if err != nil {
		d.errors = append(d.errors, err)
		d.log.Warn("tick failed", "error", err)
		return d
	}
	d.ticks++
	d.refresh(snap)
	return d
}

func (d *Dashboard) refresh(snap lander.Snapshot) {
	d.snap = snap
	tel := d.runner.RecentTelemetry(chartSize)
	d.altitude = make([]float64, 0, len(tel))
	d.velocity = make([]float64, 0, len(tel))
	for _, rec := range tel {
		d.altitude = append(d.altitude, rec.Altitude)
		d.velocity = append(d.velocity, rec.Velocity)
	}
}

func (d Dashboard) apply(cmd lander.Command) Dashboard {
	d.runner.Apply(cmd)
	d.refresh(d.runner.Snapshot())
	return d
}

func (d Dashboard) handleKey(msg tea.KeyMsg) (Dashboard, tea.Cmd) {
	if d.confirm != confirmNone {
		pending := d.confirm
		d.confirm = confirmNone
		if msg.String() != "y" {
			return d, nil
		}
		switch pending {
		case confirmAbort:
			d = d.apply(lander.AbortCommand{})
		case confirmReset:
			d = d.apply(lander.ResetCommand{})
		}
		return d, nil
	}

	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return d, tea.Quit
	case " ":
		d.paused = !d.paused
	case "t":
		d = d.apply(lander.ThrustersCommand{Enabled: !d.snap.ThrustersEngaged})
	case "+", "=":
		d = d.apply(lander.ThrottleValue(clampThrottle(d.snap.Throttle + throttleStep)))
	case "-", "_":
		d = d.apply(lander.ThrottleValue(clampThrottle(d.snap.Throttle - throttleStep)))
	case "g":
		d = d.apply(lander.GearCommand{})
	case "a":
		d.confirm = confirmAbort
	case "r":
		d.confirm = confirmReset
	case "tab":
		d.gain = (d.gain + 1) % len(gainNames)
	case "shift+tab":
		d.gain = (d.gain + len(gainNames) - 1) % len(gainNames)
	case "up", "k":
		d = d.apply(lander.GainsValue(nudge(d.snap.Controller.Gains, d.gain, 1+gainStep)))
	case "down", "j":
		d = d.apply(lander.GainsValue(nudge(d.snap.Controller.Gains, d.gain, 1-gainStep)))
	}
	return d, nil
}

func clampThrottle(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// nudge scales one gain by factor and leaves the others untouched.
func nudge(g control.Gains, idx int, factor float64) control.Gains {
	p := [...]*float64{&g.Kp, &g.Ki, &g.Kd}[idx]
	*p *= factor
	if *p == 0 && factor > 1 {
		*p = minGain
	}
	return g
}

// Result summarizes what the dashboard drove, in the same shape sim.Runner.Run
// reports for headless runs.
func (d Dashboard) Result() *sim.Result {
	return &sim.Result{
		Ticks:    d.ticks,
		Final:    d.snap,
		Metrics:  d.runner.MetricValues(),
		Errors:   d.errors,
		Duration: time.Since(d.started),
	}
}

// Run drives r from an alt-screen dashboard until the user quits or ctx is
// done.
func Run(ctx context.Context, r *sim.Runner, log *logging.Logger) (*sim.Result, error) {
	p := tea.NewProgram(New(ctx, r, log), tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if d, ok := final.(Dashboard); ok {
		return d.Result(), err
	}
	return nil, err
}
