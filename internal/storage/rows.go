package storage

import (
	"fmt"
	"strconv"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
)

var telemetryHeader = []string{
	"tick", "elapsed", "altitude", "velocity", "orientation", "temperature",
	"acceleration", "pressure", "fuel", "throttle", "thrusters", "gear",
	"aborted", "kp", "ki", "kd",
}

// TelemetryRow is one line of telemetry.csv.
type TelemetryRow struct {
	Tick         int     `json:"tick"`
	Elapsed      float64 `json:"elapsed"`
	Altitude     float64 `json:"altitude"`
	Velocity     float64 `json:"velocity"`
	Orientation  float64 `json:"orientation"`
	Temperature  float64 `json:"temperature"`
	Acceleration float64 `json:"acceleration"`
	Pressure     float64 `json:"pressure"`
	Fuel         float64 `json:"fuel"`
	Throttle     float64 `json:"throttle"`
	Thrusters    bool    `json:"thrusters"`
	Gear         bool    `json:"gear"`
	Aborted      bool    `json:"aborted"`
	control.Gains
}

type GainsRow struct {
	Elapsed float64 `json:"elapsed"`
	control.Gains
}

func rowFromSnapshot(s lander.Snapshot) TelemetryRow {
	return TelemetryRow{
		Tick:         s.Tick,
		Elapsed:      s.Elapsed,
		Altitude:     s.Altitude,
		Velocity:     s.Velocity,
		Orientation:  s.Orientation,
		Temperature:  s.Temperature,
		Acceleration: s.Acceleration,
		Pressure:     s.Pressure,
		Fuel:         s.Fuel,
		Throttle:     s.Throttle,
		Thrusters:    s.ThrustersEngaged,
		Gear:         s.GearDeployed,
		Aborted:      s.Aborted,
		Gains:        s.Controller.Gains,
	}
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', 6, 64) }

func fb(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

func (r TelemetryRow) record() []string {
	return []string{
		strconv.Itoa(r.Tick), ff(r.Elapsed), ff(r.Altitude), ff(r.Velocity),
		ff(r.Orientation), ff(r.Temperature), ff(r.Acceleration), ff(r.Pressure),
		ff(r.Fuel), ff(r.Throttle), fb(r.Thrusters), fb(r.Gear), fb(r.Aborted),
		ff(r.Kp), ff(r.Ki), ff(r.Kd),
	}
}

func parseTelemetryRow(rec []string) (TelemetryRow, error) {
	if len(rec) != len(telemetryHeader) {
		return TelemetryRow{}, fmt.Errorf("expected %d fields, got %d", len(telemetryHeader), len(rec))
	}
	tick, err := strconv.Atoi(rec[0])
	if err != nil {
		return TelemetryRow{}, err
	}
	var f [12]float64
	idx := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 13, 14, 15}
	for i, j := range idx {
		if f[i], err = strconv.ParseFloat(rec[j], 64); err != nil {
			return TelemetryRow{}, err
		}
	}
	return TelemetryRow{
		Tick:         tick,
		Elapsed:      f[0],
		Altitude:     f[1],
		Velocity:     f[2],
		Orientation:  f[3],
		Temperature:  f[4],
		Acceleration: f[5],
		Pressure:     f[6],
		Fuel:         f[7],
		Throttle:     f[8],
		Thrusters:    rec[10] == "1",
		Gear:         rec[11] == "1",
		Aborted:      rec[12] == "1",
		Gains:        control.Gains{Kp: f[9], Ki: f[10], Kd: f[11]},
	}, nil
}

// NumericFields lists the telemetry columns Field can read.
var NumericFields = []string{
	"elapsed", "altitude", "velocity", "orientation", "temperature",
	"acceleration", "pressure", "fuel", "throttle",
}

// Field returns a numeric telemetry column by its CSV header name.
func (r TelemetryRow) Field(name string) (float64, bool) {
	switch name {
	case "elapsed":
		return r.Elapsed, true
	case "altitude":
		return r.Altitude, true
	case "velocity":
		return r.Velocity, true
	case "orientation":
		return r.Orientation, true
	case "temperature":
		return r.Temperature, true
	case "acceleration":
		return r.Acceleration, true
	case "pressure":
		return r.Pressure, true
	case "fuel":
		return r.Fuel, true
	case "throttle":
		return r.Throttle, true
	}
	return 0, false
}

// Column extracts one numeric column from rows.
func Column(rows []TelemetryRow, name string) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		v, ok := r.Field(name)
		if !ok {
			return nil, fmt.Errorf("unknown telemetry field %q", name)
		}
		out[i] = v
	}
	return out, nil
}
