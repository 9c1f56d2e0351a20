package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/san-kum/landersim/internal/config"
	"github.com/san-kum/landersim/internal/logging"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dataDir    string
	logLevel   string
	logDir     string

	seed        int64
	interval    time.Duration
	maxTicks    int
	scenario    string
	preset      string
	kp          float64
	ki          float64
	kd          float64
	persist     bool
	metricsAddr string
	realtime    bool
)

// main wires the landersim commands. With no subcommand it opens the live
// dashboard.
func main() {
	rootCmd := &cobra.Command{
		Use:           "landersim",
		Short:         "rocket landing simulator with PID descent control",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDashboard,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "write rotating JSON logs to this directory")
	addSimFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless landing",
		RunE:  runHeadless,
	}
	addSimFlags(runCmd)
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace ticks at the configured interval")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "show a run's metadata and final state",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run telemetry",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSlice("fields", []string{"altitude", "velocity", "fuel", "throttle"}, "telemetry columns to plot")

	alertsCmd := &cobra.Command{
		Use:   "alerts [run_id]",
		Short: "print a run's alert log",
		Args:  cobra.ExactArgs(1),
		RunE:  showAlerts,
	}
	alertsCmd.Flags().Bool("critical", false, "only critical alerts")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringP("output", "o", "", "output file (default stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run telemetry to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency and phase analysis of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "sweep one PID gain and compare landings",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().String("param", "kp", "gain to sweep (kp, ki, kd)")
	sweepCmd.Flags().Float64("min", 0.1, "first value")
	sweepCmd.Flags().Float64("max", 1.0, "last value")
	sweepCmd.Flags().Int("steps", 10, "number of values")
	sweepCmd.Flags().Int("workers", 0, "concurrent runs (0 = unlimited)")
	addSimFlags(sweepCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "repeat a landing under many noise seeds",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	monteCarloCmd.Flags().Int("trials", 100, "number of trials")
	monteCarloCmd.Flags().Int("workers", 0, "concurrent runs (0 = unlimited)")
	addSimFlags(monteCarloCmd)

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid-search PID gains for the softest landing",
		Args:  cobra.NoArgs,
		RunE:  runTune,
	}
	tuneCmd.Flags().Float64Slice("kp-values", []float64{0.2, 0.35, 0.5, 0.75, 1.0}, "Kp candidates")
	tuneCmd.Flags().Float64Slice("ki-values", []float64{0, 0.05, 0.1}, "Ki candidates")
	tuneCmd.Flags().Float64Slice("kd-values", []float64{0.1, 0.2, 0.5, 1.0}, "Kd candidates")
	addSimFlags(tuneCmd)

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list PID gain presets and built-in scenarios",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, alertsCmd, exportJSONCmd,
		exportCSVCmd, analyzeCmd, sweepCmd, monteCarloCmd, tuneCmd, presetsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Int64Var(&seed, "seed", 0, "noise seed (0 = from clock)")
	f.DurationVar(&interval, "interval", config.DefaultInterval, "tick interval")
	f.IntVar(&maxTicks, "max-ticks", 0, "stop after this many ticks (0 = no limit)")
	f.StringVar(&scenario, "scenario", "", "built-in scenario name or yaml file")
	f.StringVar(&preset, "preset", "", "PID gain preset")
	f.Float64Var(&kp, "kp", 0, "proportional gain")
	f.Float64Var(&ki, "ki", 0, "integral gain")
	f.Float64Var(&kd, "kd", 0, "derivative gain")
	f.BoolVar(&persist, "persist", false, "record the run under the data directory")
}

// loadConfig reads the config file if any and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = logLevel
	}
	if flags.Changed("log-dir") {
		cfg.Log.Dir = logDir
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("interval") {
		cfg.Interval = interval
	}
	if flags.Changed("max-ticks") {
		cfg.MaxTicks = maxTicks
	}
	if flags.Changed("scenario") {
		cfg.Scenario = scenario
	}
	if flags.Changed("preset") {
		cfg.Preset = preset
	}
	if flags.Changed("kp") || flags.Changed("ki") || flags.Changed("kd") {
		g := cfg.ResolvedGains()
		if flags.Changed("kp") {
			g.Kp = kp
		}
		if flags.Changed("ki") {
			g.Ki = ki
		}
		if flags.Changed("kd") {
			g.Kd = kd
		}
		cfg.Preset = ""
		cfg.Gains = g
	}
	if flags.Changed("persist") {
		cfg.Persist = persist
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. The dashboard owns the terminal, so
// in that mode logs always go to a file.
func newLogger(cfg *config.Config, dashboard bool) (*logging.Logger, error) {
	dir := cfg.Log.Dir
	if dir == "" && dashboard {
		dir = filepath.Join(cfg.DataDir, "logs")
	}
	return logging.New(logging.Options{Level: cfg.Log.Level, Dir: dir})
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
