package lander

import (
	"time"

	"github.com/san-kum/landersim/internal/control"
)

// Status is the mission state derived from thresholds on every read.
type Status string

const (
	StatusNominal  Status = "NOMINAL"
	StatusAlerting Status = "ALERTING"
	StatusAborted  Status = "ABORTED"
	StatusLanded   Status = "LANDED"
)

// Terminal reports whether the status can no longer change without a reset.
func (s Status) Terminal() bool {
	return s == StatusAborted || s == StatusLanded
}

// Phase is the flight phase derived from altitude.
type Phase string

const (
	PhaseDescent  Phase = "DESCENT"
	PhaseApproach Phase = "APPROACH"
	PhaseLanding  Phase = "LANDING"
)

// Alert is one entry of the alert log. Seq increases by one for every alert
// raised since construction or the last reset, so consumers can tell new
// entries apart after the log has been truncated.
type Alert struct {
	Seq      uint64  `json:"seq" msgpack:"seq"`
	Elapsed  float64 `json:"elapsed" msgpack:"elapsed"`
	Message  string  `json:"message" msgpack:"message"`
	Critical bool    `json:"critical" msgpack:"critical"`
}

type TelemetryRecord struct {
	Elapsed      float64 `json:"elapsed" msgpack:"elapsed"`
	Altitude     float64 `json:"altitude" msgpack:"altitude"`
	Velocity     float64 `json:"velocity" msgpack:"velocity"`
	Orientation  float64 `json:"orientation" msgpack:"orientation"`
	Temperature  float64 `json:"temperature" msgpack:"temperature"`
	Acceleration float64 `json:"acceleration" msgpack:"acceleration"`
	Pressure     float64 `json:"pressure" msgpack:"pressure"`
}

// ControllerRecord is one tick of controller history. Output is exactly what
// the PID's Update returned for that tick. It is not recomputed from the
// gains as Kp*e + Ki*I + Kd*(e - I), so it matches the throttle command the
// controller actually issued.
type ControllerRecord struct {
	Elapsed  float64 `json:"elapsed" msgpack:"elapsed"`
	Error    float64 `json:"error" msgpack:"error"`
	Output   float64 `json:"output" msgpack:"output"`
	Throttle float64 `json:"throttle" msgpack:"throttle"`
}

// ControllerState is the gains-and-last-output bundle of a snapshot.
type ControllerState struct {
	control.Gains `msgpack:",inline"`
	Error         float64 `json:"error" msgpack:"error"`
	Integral      float64 `json:"integral" msgpack:"integral"`
	Output        float64 `json:"output" msgpack:"output"`
}

// Systems is the per-subsystem health board; true means healthy.
type Systems struct {
	Propulsion bool `json:"propulsion" msgpack:"propulsion"`
	Navigation bool `json:"navigation" msgpack:"navigation"`
	Comms      bool `json:"comms" msgpack:"comms"`
	Computer   bool `json:"computer" msgpack:"computer"`
	Sensors    bool `json:"sensors" msgpack:"sensors"`
	Power      bool `json:"power" msgpack:"power"`
	Guidance   bool `json:"guidance" msgpack:"guidance"`
	Control    bool `json:"control" msgpack:"control"`
}

// Snapshot is a read-only copy of the model state. Elapsed is the wall time
// since start as of the last recorded tick, so a frozen model keeps
// producing identical snapshots. Epoch increases on every reset; alert
// sequence numbers restart from 1 within each epoch.
type Snapshot struct {
	Tick      int       `json:"tick" msgpack:"tick"`
	Elapsed   float64   `json:"elapsed" msgpack:"elapsed"`
	StartedAt time.Time `json:"started_at" msgpack:"started_at"`
	Epoch     uint64    `json:"epoch" msgpack:"epoch"`

	Altitude     float64 `json:"altitude" msgpack:"altitude"`
	Velocity     float64 `json:"velocity" msgpack:"velocity"`
	Orientation  float64 `json:"orientation" msgpack:"orientation"`
	Acceleration float64 `json:"acceleration" msgpack:"acceleration"`

	Temperature   float64 `json:"temperature" msgpack:"temperature"`
	Pressure      float64 `json:"pressure" msgpack:"pressure"`
	Humidity      float64 `json:"humidity" msgpack:"humidity"`
	WindSpeed     float64 `json:"wind_speed" msgpack:"wind_speed"`
	WindDirection float64 `json:"wind_direction" msgpack:"wind_direction"`

	Fuel             float64 `json:"fuel" msgpack:"fuel"`
	ThrustersEngaged bool    `json:"thrusters_engaged" msgpack:"thrusters_engaged"`
	Throttle         float64 `json:"throttle" msgpack:"throttle"`
	GearDeployed     bool    `json:"gear_deployed" msgpack:"gear_deployed"`
	Aborted          bool    `json:"aborted" msgpack:"aborted"`

	Controller ControllerState `json:"controller" msgpack:"controller"`
	Alerts     []Alert         `json:"alerts" msgpack:"alerts"`

	Status  Status  `json:"status" msgpack:"status"`
	Phase   Phase   `json:"phase" msgpack:"phase"`
	Systems Systems `json:"systems" msgpack:"systems"`
}

// NewAlerts returns the alerts with a sequence number greater than after.
func (s Snapshot) NewAlerts(after uint64) []Alert {
	var out []Alert
	for _, a := range s.Alerts {
		if a.Seq > after {
			out = append(out, a)
		}
	}
	return out
}

// LastAlertSeq is the sequence number of the newest alert, or 0.
func (s Snapshot) LastAlertSeq() uint64 {
	if len(s.Alerts) == 0 {
		return 0
	}
	return s.Alerts[len(s.Alerts)-1].Seq
}

// AlertCursor remembers which alerts of a model a consumer has already seen.
// It restarts when the snapshot's epoch changes, so alerts of a reset
// session are never mistaken for old ones.
type AlertCursor struct {
	epoch uint64
	seq   uint64
}

// Next returns the alerts in s the cursor has not seen, and how many alerts
// were raised since the previous call. raised can exceed len(alerts) when
// the log was truncated in between.
func (c *AlertCursor) Next(s Snapshot) (alerts []Alert, raised uint64) {
	if s.Epoch != c.epoch {
		c.epoch = s.Epoch
		c.seq = 0
	}
	last := s.LastAlertSeq()
	if last < c.seq {
		c.seq = 0
	}
	alerts = s.NewAlerts(c.seq)
	raised = last - c.seq
	c.seq = last
	return alerts, raised
}

// Reset forgets everything seen so far.
func (c *AlertCursor) Reset() { *c = AlertCursor{} }
