package control

import "fmt"

// Gains is a PID gain triple.
type Gains struct {
	Kp float64 `yaml:"kp" json:"kp" msgpack:"kp"`
	Ki float64 `yaml:"ki" json:"ki" msgpack:"ki"`
	Kd float64 `yaml:"kd" json:"kd" msgpack:"kd"`
}

func (g Gains) String() string {
	return fmt.Sprintf("Kp=%g, Ki=%g, Kd=%g", g.Kp, g.Ki, g.Kd)
}

// PID is a discrete controller stepped once per tick. The time base is one
// tick: the integral is a plain running sum of errors and the derivative is
// the difference from the previous error. The integral is not clamped.
//
// Error is measured minus target, so a positive output means "push up".
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64

	integral float64
	prevErr  float64
	output   float64
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
	}
}

// Update folds one measurement into the controller and returns its output.
// The integral is not clamped.
func (p *PID) Update(measured float64) float64 {
	err := measured - p.Target
	p.integral += err
	derivative := err - p.prevErr
	p.prevErr = err

	p.output = p.Kp*err + p.Ki*p.integral + p.Kd*derivative
	return p.output
}

// Error is the error seen by the most recent Update.
func (p *PID) Error() float64 { return p.prevErr }

// Integral is the running sum of errors.
func (p *PID) Integral() float64 { return p.integral }
func (p *PID) Output() float64   { return p.output }

func (p *PID) Gains() Gains {
	return Gains{Kp: p.Kp, Ki: p.Ki, Kd: p.Kd}
}

// SetGains swaps all three gains at once. Accumulated state is kept.
func (p *PID) SetGains(g Gains) {
	p.Kp, p.Ki, p.Kd = g.Kp, g.Ki, g.Kd
}
