package lander

import (
	"math"
	"time"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/history"
	"github.com/san-kum/landersim/internal/rng"
)

const (
	// Dt is the simulated time covered by one Advance, in seconds.
	Dt      = 0.1
	Gravity = 9.81

	TargetAltitude  = 0.0
	InitialAltitude = 1000.0
	InitialFuel     = 100.0

	TelemetryLimit  = 500
	TelemetryRetain = 250
	AlertLimit      = 20
	AlertRetain     = 10

	// GearMaxAltitude is the altitude below which the gear may be lowered.
	GearMaxAltitude = 100.0

	DangerAltitude      = 10.0
	DangerVelocity      = -15.0
	FuelCritical        = 10.0
	TemperatureCritical = 250.0

	MinTemperature = 20.0
	MaxTemperature = 300.0
	MaxWindSpeed   = 20.0
	ScaleHeight    = 8500.0
)

var defaultGains = control.Gains{Kp: 0.5, Ki: 0.1, Kd: 0.2}

// DefaultGains returns the gains a fresh model starts with.
func DefaultGains() control.Gains { return defaultGains }

type Option func(*Model)

// WithSource sets the randomness source. The source survives Reset.
func WithSource(src rng.Source) Option {
	return func(m *Model) { m.src = src }
}

// WithClock sets the wall clock used for elapsed-time stamps.
func WithClock(now func() time.Time) Option {
	return func(m *Model) { m.clock = now }
}

type Model struct {
	src   rng.Source
	clock func() time.Time

	start   time.Time
	tick    int
	elapsed float64

	altitude     float64
	velocity     float64
	orientation  float64
	acceleration float64

	temperature   float64
	pressure      float64
	humidity      float64
	windSpeed     float64
	windDirection float64

	fuel      float64
	thrusters bool
	throttle  float64
	gear      bool
	aborted   bool

	pid *control.PID

	telemetry  *history.Buffer[TelemetryRecord]
	controller *history.Buffer[ControllerRecord]
	alerts     *history.Buffer[Alert]
	alertSeq   uint64
	epoch      uint64
}

func New(opts ...Option) *Model {
	m := &Model{}
	for _, opt := range opts {
		opt(m)
	}
	if m.src == nil {
		m.src = rng.NewTimeSeeded()
	}
	if m.clock == nil {
		m.clock = time.Now
	}
	m.init()
	return m
}

func (m *Model) init() {
	m.epoch++
	m.start = m.clock()
	m.tick = 0
	m.elapsed = 0

	m.altitude = InitialAltitude
	m.velocity = -50
	m.orientation = 0
	m.acceleration = 0

	m.temperature = 150
	m.fuel = InitialFuel
	m.pressure = 1.0
	m.humidity = 30
	m.windSpeed = m.src.Uniform(0, 10)
	m.windDirection = m.src.Uniform(0, 360)

	m.thrusters = false
	m.gear = false
	m.aborted = false
	m.throttle = 0

	m.pid = control.NewPID(defaultGains.Kp, defaultGains.Ki, defaultGains.Kd, TargetAltitude)

	if m.telemetry == nil {
		m.telemetry = history.New[TelemetryRecord](TelemetryLimit, TelemetryRetain)
		m.controller = history.New[ControllerRecord](TelemetryLimit, TelemetryRetain)
		m.alerts = history.New[Alert](AlertLimit, AlertRetain)
	} else {
		m.telemetry.Reset()
		m.controller.Reset()
		m.alerts.Reset()
	}
	m.alertSeq = 0

	m.raise("system: all systems nominal", false)
	m.raise("comms: stable link with base", false)
	m.raise("navigation: GPS lock on 8 satellites", false)
}

// Advance moves the simulation forward by one tick and returns the resulting
// snapshot. Once the mission is aborted it only returns the frozen snapshot.
func (m *Model) Advance() Snapshot {
	if m.aborted {
		return m.Snapshot()
	}

	m.elapsed = m.sinceStart()
	m.tick++

	m.updateControl()
	m.updatePhysics()
	m.updateEnvironment()
	m.checkAlerts()
	m.record()

	return m.Snapshot()
}

func (m *Model) firing() bool {
	return m.thrusters && m.fuel > 0
}

func (m *Model) updateControl() {
	output := m.pid.Update(m.altitude)
	if m.firing() {
		m.throttle = clamp(output*10, 0, 100)
		m.acceleration = m.throttle / 10
	} else {
		m.acceleration = 0
	}
}

func (m *Model) updatePhysics() {
	m.velocity += (m.acceleration - Gravity) * Dt
	m.velocity += m.src.Uniform(-2, 2)
	m.velocity += m.windSpeed * 0.1 * math.Sin(radians(m.windDirection))

	m.altitude = math.Max(0, m.altitude+m.velocity*Dt)
	m.orientation = wrap360(m.orientation + m.src.Uniform(-1, 1))

	if m.firing() {
		m.fuel = math.Max(0, m.fuel-m.throttle*0.005)
		m.temperature += m.throttle * 0.05
	}
}

func (m *Model) updateEnvironment() {
	m.temperature += m.src.Uniform(-0.5, 0.5)
	m.temperature = clamp(m.temperature, MinTemperature, MaxTemperature)

	m.pressure = Pressure(m.altitude)
	m.humidity = Humidity(m.altitude)

	m.windSpeed = clamp(m.windSpeed+m.src.Uniform(-1, 1), 0, MaxWindSpeed)
	m.windDirection = wrap360(m.windDirection + m.src.Uniform(-5, 5))
}

func (m *Model) checkAlerts() {
	if m.altitude < DangerAltitude && m.velocity < DangerVelocity {
		m.raise("dangerous descent velocity", true)
	}
	if m.fuel < FuelCritical {
		m.raise("fuel critical", true)
	}
	if m.temperature > TemperatureCritical {
		m.raise("temperature critical", true)
	}
}

func (m *Model) record() {
	m.telemetry.Append(TelemetryRecord{
		Elapsed:      m.elapsed,
		Altitude:     m.altitude,
		Velocity:     m.velocity,
		Orientation:  m.orientation,
		Temperature:  m.temperature,
		Acceleration: m.acceleration,
		Pressure:     m.pressure,
	})
	m.controller.Append(ControllerRecord{
		Elapsed:  m.elapsed,
		Error:    m.pid.Error(),
		Output:   m.pid.Output(),
		Throttle: m.throttle,
	})
}

func (m *Model) raise(msg string, critical bool) {
	m.alertSeq++
	m.alerts.Append(Alert{
		Seq:      m.alertSeq,
		Elapsed:  m.sinceStart(),
		Message:  msg,
		Critical: critical,
	})
}

func (m *Model) sinceStart() float64 {
	return m.clock().Sub(m.start).Seconds()
}

// Snapshot returns the current state without advancing.
func (m *Model) Snapshot() Snapshot {
	s := Snapshot{
		Tick:      m.tick,
		Elapsed:   m.elapsed,
		StartedAt: m.start,
		Epoch:     m.epoch,

		Altitude:     m.altitude,
		Velocity:     m.velocity,
		Orientation:  m.orientation,
		Acceleration: m.acceleration,

		Temperature:   m.temperature,
		Pressure:      m.pressure,
		Humidity:      m.humidity,
		WindSpeed:     m.windSpeed,
		WindDirection: m.windDirection,

		Fuel:             m.fuel,
		ThrustersEngaged: m.thrusters,
		Throttle:         m.throttle,
		GearDeployed:     m.gear,
		Aborted:          m.aborted,

		Controller: ControllerState{
			Gains:    m.pid.Gains(),
			Error:    m.pid.Error(),
			Integral: m.pid.Integral(),
		},
		Alerts: m.alerts.Items(),
	}
	if !m.aborted {
		s.Controller.Output = m.pid.Output()
	}
	s.Status = deriveStatus(s)
	s.Phase = derivePhase(s.Altitude)
	s.Systems = deriveSystems(s)
	return s
}

// Tick is the number of completed ticks since start.
func (m *Model) Tick() int { return m.tick }

// Telemetry returns a copy of the telemetry log, oldest first.
func (m *Model) Telemetry() []TelemetryRecord { return m.telemetry.Items() }

// RecentTelemetry returns at most the n newest telemetry records, oldest first.
func (m *Model) RecentTelemetry(n int) []TelemetryRecord { return m.telemetry.Tail(n) }

// ControllerHistory returns a copy of the controller log, oldest first.
func (m *Model) ControllerHistory() []ControllerRecord { return m.controller.Items() }

// Alerts returns a copy of the alert log, oldest first.
func (m *Model) Alerts() []Alert { return m.alerts.Items() }

// Pressure is the atmospheric pressure in atm at the given altitude.
func Pressure(altitude float64) float64 {
	return 1.0 * math.Exp(-altitude/ScaleHeight)
}

// Humidity is the relative humidity in percent at the given altitude.
func Humidity(altitude float64) float64 {
	return 30 + (1000-math.Min(altitude, 1000))/10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// wrap360 maps an angle in degrees onto [0, 360).
func wrap360(deg float64) float64 {
	w := math.Mod(deg, 360)
	if w < 0 {
		w += 360
	}
	if w >= 360 {
		w = 0
	}
	return w
}
