package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/landersim/internal/lander"
)

func (d Dashboard) View() string {
	var b strings.Builder

	b.WriteString(d.header())
	b.WriteString("\n\n")

	left := lipgloss.JoinVertical(lipgloss.Left, d.flightPanel(), d.environmentPanel())
	right := lipgloss.JoinVertical(lipgloss.Left, d.controllerPanel(), d.systemsPanel())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right, " ", d.chartsPanel()))
	b.WriteString("\n")

	b.WriteString(d.alertsPanel())
	b.WriteString("\n")
	b.WriteString(d.footer())
	return b.String()
}

func (d Dashboard) header() string {
	s := d.snap
	parts := []string{
		cyan.Bold(true).Render("LANDERSIM"),
		statusStyle(s.Status).Render(string(s.Status)),
		white.Render(string(s.Phase)),
		dim.Render(fmt.Sprintf("T+%.1fs", s.Elapsed)),
		dimmer.Render(fmt.Sprintf("tick %d", s.Tick)),
	}
	if d.paused {
		parts = append(parts, yellow.Bold(true).Render("PAUSED"))
	}
	return strings.Join(parts, dimmer.Render("  │  "))
}

func row(label, value string) string {
	return dim.Render(fmt.Sprintf("%-12s", label)) + value + "\n"
}

func (d Dashboard) flightPanel() string {
	s := d.snap
	var b strings.Builder
	b.WriteString(bold.Render("flight") + "\n")
	b.WriteString(row("altitude", white.Render(fmt.Sprintf("%8.1f m", s.Altitude))))
	vel := white
	if s.Velocity < lander.DangerVelocity {
		vel = red
	}
	b.WriteString(row("velocity", vel.Render(fmt.Sprintf("%8.2f m/s", s.Velocity))))
	b.WriteString(row("accel", white.Render(fmt.Sprintf("%8.2f m/s²", s.Acceleration))))
	b.WriteString(row("attitude", white.Render(fmt.Sprintf("%8.1f°", s.Orientation))))
	b.WriteString(row("fuel", bar(s.Fuel/lander.InitialFuel, 14, false)+white.Render(fmt.Sprintf(" %5.1f%%", s.Fuel))))
	b.WriteString(row("throttle", bar(s.Throttle/100, 14, true)+white.Render(fmt.Sprintf(" %5.1f%%", s.Throttle))))
	b.WriteString(row("thrusters", onOff(s.ThrustersEngaged, "ENGAGED", "off")))
	b.WriteString(row("gear", onOff(s.GearDeployed, "DEPLOYED", "stowed")))
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (d Dashboard) environmentPanel() string {
	s := d.snap
	var b strings.Builder
	b.WriteString(bold.Render("environment") + "\n")
	temp := white
	if s.Temperature > lander.TemperatureCritical {
		temp = red
	}
	b.WriteString(row("temp", temp.Render(fmt.Sprintf("%8.1f °C", s.Temperature))))
	b.WriteString(row("pressure", white.Render(fmt.Sprintf("%8.3f atm", s.Pressure))))
	b.WriteString(row("humidity", white.Render(fmt.Sprintf("%8.1f %%", s.Humidity))))
	b.WriteString(row("wind", white.Render(fmt.Sprintf("%8.1f m/s @ %3.0f°", s.WindSpeed, s.WindDirection))))
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (d Dashboard) controllerPanel() string {
	c := d.snap.Controller
	var b strings.Builder
	b.WriteString(bold.Render("pid") + "\n")
	for i, v := range [...]float64{c.Kp, c.Ki, c.Kd} {
		line := fmt.Sprintf("%-3s %8.4f", gainNames[i], v)
		if i == d.gain {
			b.WriteString(selected.Render("▸ "+line) + "\n")
		} else {
			b.WriteString(dim.Render("  "+line) + "\n")
		}
	}
	b.WriteString(row("error", magenta.Render(fmt.Sprintf("%9.2f", c.Error))))
	b.WriteString(row("integral", magenta.Render(fmt.Sprintf("%9.1f", c.Integral))))
	b.WriteString(row("output", magenta.Render(fmt.Sprintf("%9.2f", c.Output))))
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (d Dashboard) systemsPanel() string {
	sys := d.snap.Systems
	items := []struct {
		name string
		ok   bool
	}{
		{"propulsion", sys.Propulsion},
		{"navigation", sys.Navigation},
		{"comms", sys.Comms},
		{"computer", sys.Computer},
		{"sensors", sys.Sensors},
		{"power", sys.Power},
		{"guidance", sys.Guidance},
		{"control", sys.Control},
	}
	var b strings.Builder
	b.WriteString(bold.Render(fmt.Sprintf("systems %d/%d", sys.Healthy(), len(items))) + "\n")
	for i, it := range items {
		b.WriteString(health(it.ok) + " " + dim.Render(fmt.Sprintf("%-11s", it.name)))
		if i%2 == 1 {
			b.WriteString("\n")
		}
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func chartWidth(termWidth int) int {
	w := termWidth - 72
	if w < 20 {
		return 20
	}
	if w > chartSize {
		return chartSize
	}
	return w
}

func (d Dashboard) chartsPanel() string {
	if len(d.altitude) < 2 {
		return panel.Render(dim.Render("waiting for telemetry..."))
	}
	w := chartWidth(d.width)
	alt := asciigraph.Plot(d.altitude, asciigraph.Height(6), asciigraph.Width(w), asciigraph.Caption("altitude (m)"))
	vel := asciigraph.Plot(d.velocity, asciigraph.Height(6), asciigraph.Width(w), asciigraph.Caption("velocity (m/s)"))
	return panel.Render(cyan.Render(alt) + "\n\n" + magenta.Render(vel))
}

func (d Dashboard) alertsPanel() string {
	alerts := d.snap.Alerts
	if len(alerts) > alertRows {
		alerts = alerts[len(alerts)-alertRows:]
	}
	var b strings.Builder
	b.WriteString(bold.Render("alerts") + "\n")
	if len(alerts) == 0 {
		b.WriteString(dim.Render("none"))
	}
	for i := len(alerts) - 1; i >= 0; i-- {
		a := alerts[i]
		style := white
		if a.Critical {
			style = red
		}
		b.WriteString(dimmer.Render(fmt.Sprintf("%7.1fs ", a.Elapsed)) + style.Render(a.Message) + "\n")
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func (d Dashboard) footer() string {
	switch d.confirm {
	case confirmAbort:
		return red.Bold(true).Render("abort mission? (y/n)")
	case confirmReset:
		return yellow.Bold(true).Render("reset simulation? (y/n)")
	}
	if n := len(d.errors); n > 0 {
		return red.Render(fmt.Sprintf("%d failed ticks, last: %v", n, d.errors[n-1])) + "\n" + d.keys()
	}
	return d.keys()
}

func (d Dashboard) keys() string {
	return dim.Render("t thrusters · +/- throttle · g gear · a abort · r reset · tab gain · ↑/↓ tune · space pause · q quit")
}
