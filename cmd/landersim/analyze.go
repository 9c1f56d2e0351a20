package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/landersim/internal/analysis"
	"github.com/san-kum/landersim/internal/automation"
	"github.com/san-kum/landersim/internal/config"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/storage"
	"github.com/spf13/cobra"
)

var analyzedFields = []string{"altitude", "velocity", "throttle", "orientation", "temperature"}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st, id, err := openRun(cmd, args[0])
	if err != nil {
		return err
	}
	rows, err := st.LoadTelemetry(id)
	if err != nil {
		return err
	}
	if len(rows) < 4 {
		return fmt.Errorf("need at least 4 telemetry samples, have %d", len(rows))
	}

	dt := sampleInterval(rows)
	fmt.Printf("run: %s\n", id)
	fmt.Printf("samples: %d (dt %.3fs)\n\n", len(rows), dt)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FIELD\tMEAN\tSTDDEV\tMIN\tMAX\tDOMINANT HZ\tPOWER")
	for _, field := range analyzedFields {
		data, err := storage.Column(rows, field)
		if err != nil {
			return err
		}
		s := analysis.Summarize(data)
		freq, power := analysis.DominantFrequency(data, dt)
		fmt.Fprintf(w, "%s\t%.3f\t%.3f\t%.3f\t%.3f\t%.4f\t%.3g\n",
			field, s.Mean, s.StdDev, s.Min, s.Max, freq, power)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Println()

	velocity, _ := storage.Column(rows, "velocity")
	ps := analysis.PowerSpectrum(velocity)
	if len(ps) > 1 {
		graph := asciigraph.Plot(ps[1:],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("velocity power spectrum"),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	altitude, _ := storage.Column(rows, "altitude")
	portrait := analysis.NewPhasePortrait("altitude", altitude, "velocity", velocity)
	fmt.Println(analysis.PhasePortraitToASCII(portrait, 70, 20))
	return nil
}

// sampleInterval is the mean spacing of the elapsed column. Wall-clock
// timestamps can collapse for unpaced runs, in which case the model step is
// used instead.
func sampleInterval(rows []storage.TelemetryRow) float64 {
	span := rows[len(rows)-1].Elapsed - rows[0].Elapsed
	if span <= 0 {
		return lander.Dt
	}
	return span / float64(len(rows)-1)
}

func scenarioOrDefault(name string) (*automation.Scenario, error) {
	if name == "" {
		name = "autoland"
	}
	return automation.Resolve(name)
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer log.Close()

	sc, err := scenarioOrDefault(cfg.Scenario)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	sw := &automation.ParameterSweep{
		Base:     cfg.ResolvedGains(),
		Scenario: sc,
		MaxTicks: cfg.MaxTicks,
		Seed:     cfg.Seed,
	}
	if sw.Param, err = flags.GetString("param"); err != nil {
		return err
	}
	if sw.Min, err = flags.GetFloat64("min"); err != nil {
		return err
	}
	if sw.Max, err = flags.GetFloat64("max"); err != nil {
		return err
	}
	if sw.NumSteps, err = flags.GetInt("steps"); err != nil {
		return err
	}
	if sw.Workers, err = flags.GetInt("workers"); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunSweep(ctx, sw, log)
	if err != nil {
		return err
	}

	fmt.Printf("scenario: %s  seed: %d\n\n", sc.Name, sw.Seed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tKP\tKI\tKD\tSTATUS\tTICKS\tTOUCHDOWN\tFUEL")
	for _, r := range results {
		touchdown := "-"
		if r.Landed {
			touchdown = fmt.Sprintf("%.2f", r.TouchdownVelocity)
		}
		fmt.Fprintf(w, "%.4f\t%.4f\t%.4f\t%.4f\t%s\t%d\t%s\t%.1f\n",
			r.ParamValue, r.Gains.Kp, r.Gains.Ki, r.Gains.Kd,
			r.Status, r.Ticks, touchdown, r.FuelRemaining)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer log.Close()

	sc, err := scenarioOrDefault(cfg.Scenario)
	if err != nil {
		return err
	}
	mc := &automation.MonteCarloConfig{
		Scenario: sc,
		Gains:    cfg.ResolvedGains(),
		MaxTicks: cfg.MaxTicks,
		Seed:     cfg.Seed,
	}
	if mc.NumTrials, err = cmd.Flags().GetInt("trials"); err != nil {
		return err
	}
	if mc.Workers, err = cmd.Flags().GetInt("workers"); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	results, err := automation.RunMonteCarlo(ctx, mc, log)
	if err != nil {
		return err
	}
	s := automation.MonteCarloStats(results)

	fmt.Printf("scenario:        %s\n", sc.Name)
	fmt.Printf("gains:           %s\n", mc.Gains)
	fmt.Printf("trials:          %d\n", s.Trials)
	fmt.Printf("landed:          %d (%d soft, <= %.0f m/s)\n", s.Landed, s.Soft, automation.SafeTouchdownSpeed)
	fmt.Printf("aborted:         %d\n", s.Aborted)
	fmt.Printf("mean touchdown:  %.2f m/s\n", s.MeanTouchdown)
	fmt.Printf("mean fuel left:  %.1f%%\n", s.MeanFuelLeft)
	return nil
}

func runTune(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer log.Close()

	sc, err := scenarioOrDefault(cfg.Scenario)
	if err != nil {
		return err
	}
	tc := &automation.TuneConfig{
		Scenario: sc,
		MaxTicks: cfg.MaxTicks,
		Seed:     cfg.Seed,
	}
	flags := cmd.Flags()
	if tc.Kp, err = flags.GetFloat64Slice("kp-values"); err != nil {
		return err
	}
	if tc.Ki, err = flags.GetFloat64Slice("ki-values"); err != nil {
		return err
	}
	if tc.Kd, err = flags.GetFloat64Slice("kd-values"); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, err := automation.TuneGains(ctx, tc, log)
	if res == nil {
		return err
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "search interrupted, reporting best so far")
	}

	o := res.Outcome
	fmt.Printf("scenario:   %s  seed: %d\n", sc.Name, tc.Seed)
	fmt.Printf("evaluated:  %d points (%d failed)\n", res.Evaluated, res.Failed)
	fmt.Printf("best gains: %s\n", res.Gains)
	fmt.Printf("score:      %.3f\n", res.Score)
	fmt.Printf("status:     %s after %d ticks\n", o.Status, o.Ticks)
	if o.Landed {
		fmt.Printf("touchdown:  %.2f m/s\n", o.TouchdownVelocity)
	}
	fmt.Printf("fuel left:  %.1f%%\n", o.FuelRemaining)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("gain presets:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range config.ListPresets() {
		g, _ := config.GetPreset(name)
		fmt.Fprintf(w, "  %s\t%s\n", name, g)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nscenarios:")
	for _, name := range automation.BuiltinNames() {
		sc, err := automation.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Printf("  %-14s %s\n", name, sc.Description)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
