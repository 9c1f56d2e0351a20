package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/san-kum/landersim/internal/lander"
)

var statuses = []lander.Status{
	lander.StatusNominal,
	lander.StatusAlerting,
	lander.StatusAborted,
	lander.StatusLanded,
}

// Exporter publishes each snapshot as Prometheus metrics. It is a
// sim.Observer.
type Exporter struct {
	gatherer prometheus.Gatherer

	Altitude    prometheus.Gauge
	Velocity    prometheus.Gauge
	Fuel        prometheus.Gauge
	Throttle    prometheus.Gauge
	Temperature prometheus.Gauge
	WindSpeed   prometheus.Gauge
	Status      *prometheus.GaugeVec

	Ticks  prometheus.Counter
	Alerts *prometheus.CounterVec

	lastTick int
	epoch    uint64
	seen     lander.AlertCursor
}

// NewExporter registers the lander metrics against reg, defaulting to the
// global registry when nil.
func NewExporter(reg prometheus.Registerer) (*Exporter, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	e := &Exporter{gatherer: gatherer, lastTick: -1}
	gauges := []struct {
		dst  *prometheus.Gauge
		name string
		help string
	}{
		{&e.Altitude, "lander_altitude_meters", "Current altitude above ground."},
		{&e.Velocity, "lander_velocity_meters_per_second", "Current vertical velocity, negative when descending."},
		{&e.Fuel, "lander_fuel_percent", "Remaining fuel."},
		{&e.Throttle, "lander_throttle_percent", "Current throttle setting."},
		{&e.Temperature, "lander_temperature_celsius", "Engine bay temperature."},
		{&e.WindSpeed, "lander_wind_speed_meters_per_second", "Current wind speed."},
	}
	for _, g := range gauges {
		gauge, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name: g.name,
			Help: g.help,
		}), g.name)
		if err != nil {
			return nil, err
		}
		*g.dst = gauge
	}

	status, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lander_status",
		Help: "Mission status; the gauge of the current status is 1.",
	}, []string{"status"}), "lander_status")
	if err != nil {
		return nil, err
	}
	e.Status = status

	ticks, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "lander_ticks_total",
		Help: "Simulation ticks completed.",
	}), "lander_ticks_total")
	if err != nil {
		return nil, err
	}
	e.Ticks = ticks

	alerts, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lander_alerts_total",
		Help: "Alerts raised, labeled by severity.",
	}, []string{"severity"}), "lander_alerts_total")
	if err != nil {
		return nil, err
	}
	e.Alerts = alerts

	return e, nil
}

func (e *Exporter) OnTick(_ context.Context, s lander.Snapshot) error {
	if e == nil {
		return nil
	}

	e.Altitude.Set(s.Altitude)
	e.Velocity.Set(s.Velocity)
	e.Fuel.Set(s.Fuel)
	e.Throttle.Set(s.Throttle)
	e.Temperature.Set(s.Temperature)
	e.WindSpeed.Set(s.WindSpeed)
	for _, st := range statuses {
		v := 0.0
		if st == s.Status {
			v = 1
		}
		e.Status.WithLabelValues(string(st)).Set(v)
	}

	if (s.Epoch != e.epoch || s.Tick != e.lastTick) && s.Tick > 0 {
		e.Ticks.Inc()
	}
	e.lastTick = s.Tick
	e.epoch = s.Epoch

	fresh, _ := e.seen.Next(s)
	for _, a := range fresh {
		e.Alerts.WithLabelValues(severity(a)).Inc()
	}
	return nil
}

func severity(a lander.Alert) string {
	if a.Critical {
		return "critical"
	}
	return "info"
}

// Handler exposes a ready-to-use /metrics handler.
func (e *Exporter) Handler() http.Handler {
	gatherer := e.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerGauge(reg prometheus.Registerer, g prometheus.Gauge, name string) (prometheus.Gauge, error) {
	return register(reg, g, name)
}

// register adds c to reg, returning the already registered collector when an
// identical one exists.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, name string) (C, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
			var zero C
			return zero, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		var zero C
		return zero, err
	}
	return c, nil
}
