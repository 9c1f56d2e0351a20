package metrics

import (
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/sim"
)

// FuelUsed sums every drop in fuel, so a reset mid-run does not hide the
// fuel burned before it.
type FuelUsed struct {
	used float64
	prev float64
}

func NewFuelUsed() *FuelUsed {
	return &FuelUsed{prev: lander.InitialFuel}
}

func (f *FuelUsed) Name() string { return "fuel_used" }

func (f *FuelUsed) Observe(s lander.Snapshot) {
	if s.Fuel < f.prev {
		f.used += f.prev - s.Fuel
	}
	f.prev = s.Fuel
}

func (f *FuelUsed) Value() float64 { return f.used }

func (f *FuelUsed) Reset() {
	f.used = 0
	f.prev = lander.InitialFuel
}

// PeakDescentRate is the fastest downward speed seen, as a positive number.
type PeakDescentRate struct {
	peak float64
}

func NewPeakDescentRate() *PeakDescentRate { return &PeakDescentRate{} }

func (p *PeakDescentRate) Name() string { return "peak_descent_rate" }

func (p *PeakDescentRate) Observe(s lander.Snapshot) {
	if -s.Velocity > p.peak {
		p.peak = -s.Velocity
	}
}

func (p *PeakDescentRate) Value() float64 { return p.peak }
func (p *PeakDescentRate) Reset()         { p.peak = 0 }

// TouchdownVelocity is the vertical velocity on the first tick that reaches
// the ground. It stays 0 until then.
type TouchdownVelocity struct {
	velocity float64
	landed   bool
}

func NewTouchdownVelocity() *TouchdownVelocity { return &TouchdownVelocity{} }

func (t *TouchdownVelocity) Name() string { return "touchdown_velocity" }

func (t *TouchdownVelocity) Observe(s lander.Snapshot) {
	if !t.landed && s.Altitude == 0 {
		t.velocity = s.Velocity
		t.landed = true
	}
}

func (t *TouchdownVelocity) Value() float64 { return t.velocity }
func (t *TouchdownVelocity) Landed() bool   { return t.landed }

func (t *TouchdownVelocity) Reset() {
	t.velocity = 0
	t.landed = false
}

// AlertCount counts alerts raised while observing, including ones that were
// already truncated from the log by the time of the next snapshot.
type AlertCount struct {
	count int
	seen  lander.AlertCursor
}

func NewAlertCount() *AlertCount { return &AlertCount{} }

func (a *AlertCount) Name() string { return "alert_count" }

func (a *AlertCount) Observe(s lander.Snapshot) {
	_, raised := a.seen.Next(s)
	a.count += int(raised)
}

func (a *AlertCount) Value() float64 { return float64(a.count) }

func (a *AlertCount) Reset() {
	a.count = 0
	a.seen.Reset()
}

// Standard returns the metrics every run reports.
func Standard() []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewFuelUsed(),
		NewPeakDescentRate(),
		NewTouchdownVelocity(),
		NewAlertCount(),
	}
}
