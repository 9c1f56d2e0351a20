package config

import (
	"sort"

	"github.com/san-kum/landersim/internal/control"
)

// Presets are named PID gain sets. "nominal" matches the model defaults.
var Presets = map[string]control.Gains{
	"nominal":      {Kp: 0.5, Ki: 0.1, Kd: 0.2},
	"proportional": {Kp: 0.5, Ki: 0, Kd: 0},
	"soft":         {Kp: 0.2, Ki: 0.01, Kd: 0.5},
	"aggressive":   {Kp: 1.5, Ki: 0.2, Kd: 0.1},
	"damped":       {Kp: 0.3, Ki: 0, Kd: 2.0},
}

func GetPreset(name string) (control.Gains, bool) {
	g, ok := Presets[name]
	return g, ok
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
