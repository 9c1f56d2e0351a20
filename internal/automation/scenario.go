package automation

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/sim"
)

//go:embed scenarios/*.yaml
var builtin embed.FS

var (
	ErrUnknownScenario = errors.New("automation: unknown scenario")
	ErrInvalidScenario = errors.New("automation: invalid scenario")
)

// Scenario is a scripted sequence of commands keyed on tick or altitude.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Gains       *control.Gains `yaml:"gains,omitempty"`
	Actions     []Action       `yaml:"actions"`
}

// Action fires its command once, the first time its trigger holds. Exactly
// one of AtTick and BelowAltitude must be set.
type Action struct {
	AtTick        *int           `yaml:"at_tick,omitempty"`
	BelowAltitude *float64       `yaml:"below_altitude,omitempty"`
	Command       string         `yaml:"command"`
	Value         string         `yaml:"value,omitempty"`
	Gains         *control.Gains `yaml:"gains,omitempty"`
}

func (a Action) triggered(s lander.Snapshot) bool {
	if a.AtTick != nil {
		return s.Tick >= *a.AtTick
	}
	return s.Altitude < *a.BelowAltitude
}

// Build converts the action into a model command.
func (a Action) Build() (lander.Command, error) {
	switch a.Command {
	case "thrusters_on":
		return lander.ThrustersCommand{Enabled: true}, nil
	case "thrusters_off":
		return lander.ThrustersCommand{Enabled: false}, nil
	case "throttle":
		if a.Value == "" {
			return nil, fmt.Errorf("%w: throttle needs a value", ErrInvalidScenario)
		}
		return lander.ThrottleCommand{Value: a.Value}, nil
	case "deploy_gear":
		return lander.GearCommand{}, nil
	case "abort":
		return lander.AbortCommand{}, nil
	case "gains":
		if a.Gains == nil {
			return nil, fmt.Errorf("%w: gains action needs gains", ErrInvalidScenario)
		}
		return lander.GainsValue(*a.Gains), nil
	case "reset":
		return lander.ResetCommand{}, nil
	}
	return nil, fmt.Errorf("%w: unknown command %q", ErrInvalidScenario, a.Command)
}

func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidScenario)
	}
	if s.Gains != nil {
		if err := lander.ValidateGains(*s.Gains); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidScenario, err)
		}
	}
	for i, a := range s.Actions {
		if (a.AtTick == nil) == (a.BelowAltitude == nil) {
			return fmt.Errorf("%w: action %d needs exactly one of at_tick and below_altitude", ErrInvalidScenario, i+1)
		}
		if a.AtTick != nil && *a.AtTick < 0 {
			return fmt.Errorf("%w: action %d has negative at_tick", ErrInvalidScenario, i+1)
		}
		if _, err := a.Build(); err != nil {
			return fmt.Errorf("action %d: %w", i+1, err)
		}
	}
	return nil
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScenario, err)
	}
	if err := scenario.Validate(); err != nil {
		return nil, err
	}
	return &scenario, nil
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// Builtin returns one of the scenarios shipped with the binary.
func Builtin(name string) (*Scenario, error) {
	data, err := builtin.ReadFile(path.Join("scenarios", name+".yaml"))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownScenario, name)
	}
	return ParseScenario(data)
}

func BuiltinNames() []string {
	entries, _ := fs.ReadDir(builtin, "scenarios")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// Resolve treats ref as a file path when it looks like one, otherwise as a
// builtin name.
func Resolve(ref string) (*Scenario, error) {
	if strings.HasSuffix(ref, ".yaml") || strings.HasSuffix(ref, ".yml") || strings.ContainsRune(ref, os.PathSeparator) {
		return LoadScenario(ref)
	}
	return Builtin(ref)
}

// Policy is a compiled scenario. It is a sim.Policy.
type Policy struct {
	actions []Action
	cmds    []lander.Command
	fired   []bool
}

func (s *Scenario) Policy() (*Policy, error) {
	p := &Policy{
		actions: s.Actions,
		cmds:    make([]lander.Command, len(s.Actions)),
		fired:   make([]bool, len(s.Actions)),
	}
	for i, a := range s.Actions {
		cmd, err := a.Build()
		if err != nil {
			return nil, fmt.Errorf("action %d: %w", i+1, err)
		}
		p.cmds[i] = cmd
	}
	return p, nil
}

// Start returns the commands that fire before the first tick and marks
// them fired.
func (p *Policy) Start() []lander.Command {
	var out []lander.Command
	for i, a := range p.actions {
		if a.AtTick != nil && *a.AtTick == 0 {
			p.fired[i] = true
			out = append(out, p.cmds[i])
		}
	}
	return out
}

func (p *Policy) Decide(s lander.Snapshot) []lander.Command {
	var out []lander.Command
	for i, a := range p.actions {
		if p.fired[i] || !a.triggered(s) {
			continue
		}
		p.fired[i] = true
		out = append(out, p.cmds[i])
	}
	return out
}

// Pending reports how many actions have not fired yet.
func (p *Policy) Pending() int {
	n := 0
	for _, f := range p.fired {
		if !f {
			n++
		}
	}
	return n
}

// Attach applies the scenario gains and start commands to r and installs
// the policy.
func (s *Scenario) Attach(r *sim.Runner) (*Policy, error) {
	p, err := s.Policy()
	if err != nil {
		return nil, err
	}
	if s.Gains != nil {
		r.Apply(lander.GainsValue(*s.Gains))
	}
	for _, cmd := range p.Start() {
		r.Apply(cmd)
	}
	r.SetPolicy(p)
	return p, nil
}
