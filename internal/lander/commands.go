package lander

import (
	"strconv"

	"github.com/san-kum/landersim/internal/control"
)

// SetThrusters engages or disengages the main engine.
func (m *Model) SetThrusters(enabled bool) {
	m.thrusters = enabled
	if enabled {
		m.raise("thrusters engaged", false)
	} else {
		m.raise("thrusters disengaged", false)
	}
}

// SetThrottle sets the throttle from its textual form. Invalid input leaves
// the throttle untouched and is reported only through the alert log.
func (m *Model) SetThrottle(value string) {
	v, err := ParseThrottle(value)
	if err != nil {
		m.raise("invalid throttle value", true)
		return
	}
	m.throttle = v
}

// DeployGear lowers the landing gear. It refuses above GearMaxAltitude and
// when the gear is already down.
func (m *Model) DeployGear() bool {
	switch {
	case m.gear:
		m.raise("landing gear already deployed", false)
		return false
	case m.altitude >= GearMaxAltitude:
		m.raise("cannot deploy landing gear above 100 m", false)
		return false
	}
	m.gear = true
	m.raise("landing gear deployed", true)
	return true
}

// AbortMission latches the abort and fires the engine at full throttle.
// The model stops advancing from here on.
func (m *Model) AbortMission() {
	m.aborted = true
	m.thrusters = true
	m.throttle = 100
	m.raise("MISSION ABORTED", true)
}

// SetPIDGains replaces all three gains, or none of them if any fails to
// parse.
func (m *Model) SetPIDGains(kp, ki, kd string) {
	g, err := ParseGains(kp, ki, kd)
	if err != nil {
		m.raise("invalid PID gains", true)
		return
	}
	m.pid.SetGains(g)
	m.raise("PID gains set: "+g.String(), false)
}

// Reset rebuilds the model from its initial conditions. The randomness
// source and clock are kept.
func (m *Model) Reset() {
	m.init()
	m.raise("simulation reset", true)
}

// Command is a queued operation on a Model.
type Command interface {
	Type() string
	Apply(m *Model)
}

type ThrustersCommand struct{ Enabled bool }

func (ThrustersCommand) Type() string     { return "thrusters" }
func (c ThrustersCommand) Apply(m *Model) { m.SetThrusters(c.Enabled) }

type ThrottleCommand struct{ Value string }

func (ThrottleCommand) Type() string     { return "throttle" }
func (c ThrottleCommand) Apply(m *Model) { m.SetThrottle(c.Value) }

// ThrottleValue builds a ThrottleCommand from a number.
func ThrottleValue(v float64) ThrottleCommand {
	return ThrottleCommand{Value: strconv.FormatFloat(v, 'f', -1, 64)}
}

type GearCommand struct{}

func (GearCommand) Type() string   { return "gear" }
func (GearCommand) Apply(m *Model) { m.DeployGear() }

type AbortCommand struct{}

func (AbortCommand) Type() string   { return "abort" }
func (AbortCommand) Apply(m *Model) { m.AbortMission() }

type GainsCommand struct{ Kp, Ki, Kd string }

func (GainsCommand) Type() string     { return "gains" }
func (c GainsCommand) Apply(m *Model) { m.SetPIDGains(c.Kp, c.Ki, c.Kd) }

type ResetCommand struct{}

func (ResetCommand) Type() string   { return "reset" }
func (ResetCommand) Apply(m *Model) { m.Reset() }

// GainsValue builds a GainsCommand from numeric gains.
func GainsValue(g control.Gains) GainsCommand {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	return GainsCommand{Kp: f(g.Kp), Ki: f(g.Ki), Kd: f(g.Kd)}
}
