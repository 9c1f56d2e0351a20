package lander

import (
	"math"
	"testing"
	"time"

	"github.com/san-kum/landersim/internal/rng"
)

type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) Now() time.Time {
	now := c.t
	c.t = c.t.Add(c.step)
	return now
}

func newTestModel(src rng.Source) *Model {
	clk := &stepClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), step: 100 * time.Millisecond}
	return New(WithSource(src), WithClock(clk.Now))
}

func TestInitialState(t *testing.T) {
	m := newTestModel(rng.NewSequence(0.5, 0.25))
	s := m.Snapshot()

	if s.Altitude != 1000 || s.Velocity != -50 || s.Orientation != 0 {
		t.Errorf("unexpected kinematics: alt=%v vel=%v ori=%v", s.Altitude, s.Velocity, s.Orientation)
	}
	if s.Temperature != 150 || s.Fuel != 100 || s.Pressure != 1.0 || s.Humidity != 30 {
		t.Errorf("unexpected environment: %+v", s)
	}
	if s.WindSpeed != 5 {
		t.Errorf("expected wind speed 5, got %v", s.WindSpeed)
	}
	if s.WindDirection != 90 {
		t.Errorf("expected wind direction 90, got %v", s.WindDirection)
	}
	if s.ThrustersEngaged || s.GearDeployed || s.Aborted || s.Throttle != 0 {
		t.Error("expected engine off, gear up, not aborted")
	}
	if s.Controller.Kp != 0.5 || s.Controller.Ki != 0.1 || s.Controller.Kd != 0.2 {
		t.Errorf("unexpected gains: %s", s.Controller.Gains)
	}
	if len(s.Alerts) != 3 {
		t.Fatalf("expected 3 startup alerts, got %d", len(s.Alerts))
	}
	for i, a := range s.Alerts {
		if a.Critical {
			t.Errorf("startup alert %d should not be critical", i)
		}
		if a.Seq != uint64(i+1) {
			t.Errorf("alert %d: expected seq %d, got %d", i, i+1, a.Seq)
		}
	}
	if s.Status != StatusNominal || s.Phase != PhaseDescent {
		t.Errorf("expected NOMINAL/DESCENT, got %s/%s", s.Status, s.Phase)
	}
}

func TestAdvanceInvariants(t *testing.T) {
	m := newTestModel(rng.NewPCG(42))
	m.SetThrusters(true)

	prev := m.Snapshot()
	for i := 0; i < 2000; i++ {
		s := m.Advance()
		if s.Altitude < 0 {
			t.Fatalf("tick %d: negative altitude %v", i, s.Altitude)
		}
		if s.Fuel < 0 || s.Fuel > 100 {
			t.Fatalf("tick %d: fuel out of range %v", i, s.Fuel)
		}
		if s.Throttle < 0 || s.Throttle > 100 {
			t.Fatalf("tick %d: throttle out of range %v", i, s.Throttle)
		}
		if s.Temperature < MinTemperature || s.Temperature > MaxTemperature {
			t.Fatalf("tick %d: temperature out of range %v", i, s.Temperature)
		}
		if s.WindSpeed < 0 || s.WindSpeed > MaxWindSpeed {
			t.Fatalf("tick %d: wind out of range %v", i, s.WindSpeed)
		}
		if s.Orientation < 0 || s.Orientation >= 360 || s.WindDirection < 0 || s.WindDirection >= 360 {
			t.Fatalf("tick %d: angle not wrapped: ori=%v dir=%v", i, s.Orientation, s.WindDirection)
		}
		if s.Pressure != 1.0*math.Exp(-s.Altitude/8500) {
			t.Fatalf("tick %d: pressure %v does not match altitude %v", i, s.Pressure, s.Altitude)
		}
		if s.Humidity != 30+(1000-math.Min(s.Altitude, 1000))/10 {
			t.Fatalf("tick %d: humidity %v does not match altitude %v", i, s.Humidity, s.Altitude)
		}
		if prev.Fuel == 0 && s.Acceleration != 0 {
			t.Fatalf("tick %d: acceleration %v with no fuel", i, s.Acceleration)
		}
		if s.Fuel > prev.Fuel {
			t.Fatalf("tick %d: fuel increased from %v to %v", i, prev.Fuel, s.Fuel)
		}
		prev = s
	}
}

func TestAccelerationZeroWithThrustersOff(t *testing.T) {
	m := newTestModel(rng.NewPCG(7))
	m.SetThrottle("80")
	for i := 0; i < 20; i++ {
		s := m.Advance()
		if s.Acceleration != 0 {
			t.Fatalf("tick %d: expected no acceleration, got %v", i, s.Acceleration)
		}
		if s.Fuel != 100 {
			t.Fatalf("tick %d: fuel burned with engine off", i)
		}
		if s.Throttle != 80 {
			t.Fatalf("tick %d: throttle should keep its value, got %v", i, s.Throttle)
		}
	}
}

func TestTelemetryTruncation(t *testing.T) {
	m := newTestModel(rng.NewPCG(1))

	var all []float64
	for i := 0; i < 520; i++ {
		s := m.Advance()
		all = append(all, s.Elapsed)

		if n := len(m.Telemetry()); n > TelemetryLimit {
			t.Fatalf("tick %d: telemetry grew to %d", i, n)
		}
	}

	tel := m.Telemetry()
	// truncated once at 501 entries, then 19 more appended
	if len(tel) != TelemetryRetain+19 {
		t.Fatalf("expected %d entries, got %d", TelemetryRetain+19, len(tel))
	}
	want := all[len(all)-len(tel):]
	for i, rec := range tel {
		if rec.Elapsed != want[i] {
			t.Fatalf("entry %d: expected elapsed %v, got %v", i, want[i], rec.Elapsed)
		}
	}
	if got := len(m.ControllerHistory()); got != len(tel) {
		t.Errorf("controller history length %d, telemetry %d", got, len(tel))
	}
}

func TestTelemetryTruncatedToRetain(t *testing.T) {
	m := newTestModel(rng.Zero{})
	for i := 0; i < TelemetryLimit+1; i++ {
		m.Advance()
	}
	if n := len(m.Telemetry()); n != TelemetryRetain {
		t.Errorf("expected %d entries after overflow, got %d", TelemetryRetain, n)
	}
}

func TestAlertLogBounded(t *testing.T) {
	m := newTestModel(rng.Zero{})
	for i := 0; i < 50; i++ {
		m.SetThrusters(i%2 == 0)
		if n := len(m.Alerts()); n > AlertLimit {
			t.Fatalf("alert log grew to %d", n)
		}
	}
	alerts := m.Alerts()
	last := alerts[len(alerts)-1]
	if last.Seq != 53 {
		t.Errorf("expected last seq 53, got %d", last.Seq)
	}
	for i := 1; i < len(alerts); i++ {
		if alerts[i].Seq != alerts[i-1].Seq+1 {
			t.Fatalf("alert log not contiguous at %d", i)
		}
	}
}

func TestSetThrottle(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		valid bool
	}{
		{"50", 50, true},
		{" 12.5 ", 12.5, true},
		{"0", 0, true},
		{"100", 100, true},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-1", 0, false},
		{"100.5", 0, false},
	}

	for _, tt := range tests {
		m := newTestModel(rng.Zero{})
		before := len(m.Alerts())
		m.SetThrottle(tt.input)
		s := m.Snapshot()

		if tt.valid {
			if s.Throttle != tt.want {
				t.Errorf("%q: expected throttle %v, got %v", tt.input, tt.want, s.Throttle)
			}
			if len(s.Alerts) != before {
				t.Errorf("%q: valid throttle should not raise an alert", tt.input)
			}
			continue
		}
		if s.Throttle != 0 {
			t.Errorf("%q: throttle changed to %v", tt.input, s.Throttle)
		}
		if len(s.Alerts) != before+1 {
			t.Fatalf("%q: expected one alert", tt.input)
		}
		last := s.Alerts[len(s.Alerts)-1]
		if !last.Critical || last.Message != "invalid throttle value" {
			t.Errorf("%q: unexpected alert %+v", tt.input, last)
		}
	}
}

func TestSetPIDGains(t *testing.T) {
	m := newTestModel(rng.Zero{})
	m.SetPIDGains("1", "0.5", "0.25")
	s := m.Snapshot()
	if s.Controller.Kp != 1 || s.Controller.Ki != 0.5 || s.Controller.Kd != 0.25 {
		t.Errorf("gains not applied: %s", s.Controller.Gains)
	}
	last := s.Alerts[len(s.Alerts)-1]
	if last.Critical || last.Message != "PID gains set: Kp=1, Ki=0.5, Kd=0.25" {
		t.Errorf("unexpected alert %+v", last)
	}

	bad := [][3]string{
		{"bad", "0.1", "0.2"},
		{"0.1", "x", "0.2"},
		{"0.1", "0.2", ""},
		{"-1", "0", "0"},
		{"NaN", "0", "0"},
	}
	for _, b := range bad {
		before := len(m.Alerts())
		m.SetPIDGains(b[0], b[1], b[2])
		s := m.Snapshot()
		if s.Controller.Kp != 1 || s.Controller.Ki != 0.5 || s.Controller.Kd != 0.25 {
			t.Errorf("%v: gains mutated to %s", b, s.Controller.Gains)
		}
		if len(s.Alerts) != before+1 {
			t.Fatalf("%v: expected exactly one alert", b)
		}
		if last := s.Alerts[len(s.Alerts)-1]; !last.Critical || last.Message != "invalid PID gains" {
			t.Errorf("%v: unexpected alert %+v", b, last)
		}
	}
}

func TestDeployGear(t *testing.T) {
	m := newTestModel(rng.Zero{})

	if m.DeployGear() {
		t.Fatal("gear deployed at 1000 m")
	}
	if m.Snapshot().GearDeployed {
		t.Fatal("refused deploy should not set the latch")
	}
	if last := m.Alerts()[len(m.Alerts())-1]; last.Critical || last.Message != "cannot deploy landing gear above 100 m" {
		t.Errorf("unexpected refusal alert %+v", last)
	}

	for m.Snapshot().Altitude >= GearMaxAltitude {
		m.Advance()
	}
	if !m.DeployGear() {
		t.Fatalf("gear refused at %v m", m.Snapshot().Altitude)
	}
	if last := m.Alerts()[len(m.Alerts())-1]; !last.Critical || last.Message != "landing gear deployed" {
		t.Errorf("unexpected deploy alert %+v", last)
	}

	if m.DeployGear() {
		t.Fatal("gear deployed twice")
	}
	if last := m.Alerts()[len(m.Alerts())-1]; last.Critical || last.Message != "landing gear already deployed" {
		t.Errorf("unexpected refusal alert %+v", last)
	}
	if !m.Snapshot().GearDeployed {
		t.Error("gear latch reverted")
	}
}

func TestLandedStatus(t *testing.T) {
	m := newTestModel(rng.Zero{})
	for m.Snapshot().Altitude > 0 {
		s := m.Advance()
		if s.Altitude < GearMaxAltitude && !s.GearDeployed {
			m.DeployGear()
		}
	}
	s := m.Snapshot()
	if s.Status != StatusLanded {
		t.Errorf("expected LANDED, got %s", s.Status)
	}
	if !s.Status.Terminal() {
		t.Error("LANDED should be terminal")
	}
	if s.Phase != PhaseLanding {
		t.Errorf("expected LANDING phase, got %s", s.Phase)
	}
	if s.Systems.Navigation || s.Systems.Guidance {
		t.Error("navigation and guidance should be down on the ground")
	}
}

func TestResetRestoresInitialState(t *testing.T) {
	m := newTestModel(rng.Zero{})
	m.SetThrusters(true)
	m.SetPIDGains("2", "0", "0")
	for i := 0; i < 30; i++ {
		m.Advance()
	}
	m.AbortMission()

	m.Reset()
	s := m.Snapshot()
	if s.Aborted || s.ThrustersEngaged || s.GearDeployed || s.Throttle != 0 {
		t.Error("latches not cleared")
	}
	if s.Altitude != 1000 || s.Fuel != 100 || s.Tick != 0 {
		t.Errorf("state not restored: alt=%v fuel=%v tick=%d", s.Altitude, s.Fuel, s.Tick)
	}
	if s.Controller.Gains != DefaultGains() {
		t.Errorf("gains not restored: %s", s.Controller.Gains)
	}
	if len(m.Telemetry()) != 0 || len(m.ControllerHistory()) != 0 {
		t.Error("history not cleared")
	}
	if len(s.Alerts) != 4 {
		t.Fatalf("expected 4 alerts after reset, got %d", len(s.Alerts))
	}
	last := s.Alerts[3]
	if !last.Critical || last.Message != "simulation reset" || last.Seq != 4 {
		t.Errorf("unexpected reset alert %+v", last)
	}
}

func TestSnapshotIntegral(t *testing.T) {
	m := newTestModel(rng.Zero{})
	m.Advance()
	s := m.Advance()

	want := InitialAltitude + m.Telemetry()[0].Altitude
	if math.Abs(s.Controller.Integral-want) > 1e-9 {
		t.Errorf("integral = %v, want %v", s.Controller.Integral, want)
	}
	m.Reset()
	if got := m.Snapshot().Controller.Integral; got != 0 {
		t.Errorf("integral after reset = %v, want 0", got)
	}
}

func TestAlertCursorAcrossReset(t *testing.T) {
	m := newTestModel(rng.Zero{})
	var c AlertCursor

	fresh, raised := c.Next(m.Snapshot())
	if len(fresh) != 3 || raised != 3 {
		t.Fatalf("expected 3 startup alerts, got %d (raised %d)", len(fresh), raised)
	}
	m.SetThrusters(true)
	if fresh, _ = c.Next(m.Snapshot()); len(fresh) != 1 || fresh[0].Seq != 4 {
		t.Fatalf("expected only the thrusters alert, got %+v", fresh)
	}
	if fresh, raised = c.Next(m.Snapshot()); len(fresh) != 0 || raised != 0 {
		t.Fatalf("alerts repeated: %+v", fresh)
	}

	epoch := m.Snapshot().Epoch
	m.Reset()
	s := m.Snapshot()
	if s.Epoch != epoch+1 {
		t.Errorf("expected epoch %d after reset, got %d", epoch+1, s.Epoch)
	}
	// the new session ends at seq 4 too, so only the epoch tells them apart
	fresh, raised = c.Next(s)
	if len(fresh) != 4 || raised != 4 {
		t.Fatalf("expected all 4 alerts of the new session, got %d (raised %d)", len(fresh), raised)
	}
	if fresh[3].Message != "simulation reset" {
		t.Errorf("unexpected last alert %+v", fresh[3])
	}

	c.Reset()
	if fresh, _ = c.Next(s); len(fresh) != 4 {
		t.Errorf("cursor reset should replay the log, got %d", len(fresh))
	}
}

func TestDerivedStatus(t *testing.T) {
	tests := []struct {
		name string
		s    Snapshot
		want Status
	}{
		{"nominal", Snapshot{Altitude: 500, Velocity: -20, Fuel: 50, Temperature: 150}, StatusNominal},
		{"fast low", Snapshot{Altitude: 5, Velocity: -20, Fuel: 50, Temperature: 150}, StatusAlerting},
		{"slow low", Snapshot{Altitude: 5, Velocity: -5, Fuel: 50, Temperature: 150}, StatusNominal},
		{"fuel", Snapshot{Altitude: 500, Fuel: 9, Temperature: 150}, StatusAlerting},
		{"hot", Snapshot{Altitude: 500, Fuel: 50, Temperature: 251}, StatusAlerting},
		{"landed", Snapshot{Altitude: 0, GearDeployed: true, Fuel: 5, Temperature: 150}, StatusLanded},
		{"crashed", Snapshot{Altitude: 0, Velocity: -30, Fuel: 50, Temperature: 150}, StatusAlerting},
		{"aborted", Snapshot{Altitude: 0, GearDeployed: true, Aborted: true}, StatusAborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := deriveStatus(tt.s); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestDerivePhase(t *testing.T) {
	tests := []struct {
		alt  float64
		want Phase
	}{
		{1000, PhaseDescent},
		{500.1, PhaseDescent},
		{500, PhaseApproach},
		{100.1, PhaseApproach},
		{100, PhaseLanding},
		{0, PhaseLanding},
	}
	for _, tt := range tests {
		if got := derivePhase(tt.alt); got != tt.want {
			t.Errorf("altitude %v: expected %s, got %s", tt.alt, tt.want, got)
		}
	}
}

func TestWrap360(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{359.5, 359.5},
		{360, 0},
		{361, 1},
		{-1, 359},
		{-720, 0},
		{725, 5},
	}
	for _, tt := range tests {
		if got := wrap360(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("wrap360(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if got := wrap360(-1e-17); got < 0 || got >= 360 {
		t.Errorf("wrap360 of tiny negative escaped range: %v", got)
	}
}

func TestSystemsHealthy(t *testing.T) {
	m := newTestModel(rng.Zero{})
	if n := m.Snapshot().Systems.Healthy(); n != 8 {
		t.Errorf("expected 8 healthy systems at start, got %d", n)
	}
	m.AbortMission()
	s := m.Snapshot()
	if s.Systems.Propulsion {
		t.Error("propulsion should report down after abort")
	}
	if s.Controller.Output != 0 {
		t.Errorf("controller output should read 0 after abort, got %v", s.Controller.Output)
	}
}

func TestCommandsApply(t *testing.T) {
	m := newTestModel(rng.Zero{})
	cmds := []Command{
		ThrustersCommand{Enabled: true},
		ThrottleValue(42.5),
		GainsValue(DefaultGains()),
		GainsCommand{Kp: "1", Ki: "0", Kd: "0"},
	}
	for _, c := range cmds {
		c.Apply(m)
	}
	s := m.Snapshot()
	if !s.ThrustersEngaged || s.Throttle != 42.5 || s.Controller.Kp != 1 {
		t.Errorf("commands not applied: %+v", s)
	}

	GearCommand{}.Apply(m)
	if m.Snapshot().GearDeployed {
		t.Error("gear command ignored altitude limit")
	}
	AbortCommand{}.Apply(m)
	if !m.Snapshot().Aborted {
		t.Error("abort command not applied")
	}
	ResetCommand{}.Apply(m)
	if m.Snapshot().Aborted {
		t.Error("reset command not applied")
	}

	names := map[string]bool{}
	for _, c := range []Command{ThrustersCommand{}, ThrottleCommand{}, GearCommand{}, AbortCommand{}, GainsCommand{}, ResetCommand{}} {
		names[c.Type()] = true
	}
	if len(names) != 6 {
		t.Errorf("command types not distinct: %v", names)
	}
}
