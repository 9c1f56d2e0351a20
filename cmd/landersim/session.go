package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/san-kum/landersim/internal/automation"
	"github.com/san-kum/landersim/internal/config"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/logging"
	"github.com/san-kum/landersim/internal/metrics"
	"github.com/san-kum/landersim/internal/rng"
	"github.com/san-kum/landersim/internal/sim"
	"github.com/san-kum/landersim/internal/storage"
	"github.com/san-kum/landersim/internal/tui"
	"github.com/spf13/cobra"
)

// session is one simulated mission with everything attached to its runner.
type session struct {
	cfg    *config.Config
	log    *logging.Logger
	runner *sim.Runner
	seed   int64

	recorder *storage.Recorder
	server   *http.Server
}

func newSession(cfg *config.Config, log *logging.Logger) (*session, error) {
	var src *rng.PCG
	if cfg.Seed != 0 {
		src = rng.NewPCG(cfg.Seed)
	} else {
		src = rng.NewTimeSeeded()
	}

	s := &session{
		cfg:    cfg,
		log:    log,
		runner: sim.New(lander.New(lander.WithSource(src)), cfg.SimConfig()),
		seed:   src.SeedValue(),
	}
	s.runner.SetLogger(log)
	for _, m := range metrics.Standard() {
		s.runner.AddMetric(m)
	}

	if g := cfg.ResolvedGains(); g != lander.DefaultGains() {
		s.runner.Apply(lander.GainsValue(g))
	}
	if cfg.Scenario != "" {
		sc, err := automation.Resolve(cfg.Scenario)
		if err != nil {
			return nil, err
		}
		if _, err := sc.Attach(s.runner); err != nil {
			return nil, err
		}
		log.Info("scenario attached", "scenario", sc.Name, "actions", len(sc.Actions))
	}

	if cfg.MetricsAddr != "" {
		if err := s.serveMetrics(cfg.MetricsAddr); err != nil {
			return nil, err
		}
	}

	if cfg.Persist {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		rec, err := st.Create(storage.RunMetadata{
			Seed:     s.seed,
			Scenario: cfg.Scenario,
			Gains:    s.runner.Snapshot().Controller.Gains,
			Interval: cfg.Interval.String(),
		})
		if err != nil {
			return nil, fmt.Errorf("create run: %w", err)
		}
		s.recorder = rec
		s.runner.AddObserver(rec)
		log.Info("recording run", "id", rec.ID(), "dir", st.Dir())
	}

	log.Info("session ready", "seed", s.seed, "gains", cfg.ResolvedGains().String())
	return s, nil
}

func (s *session) serveMetrics(addr string) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	exp, err := metrics.NewExporter(reg)
	if err != nil {
		return fmt.Errorf("metrics exporter: %w", err)
	}
	s.runner.AddObserver(exp)

	mux := http.NewServeMux()
	mux.Handle("/metrics", exp.Handler())
	s.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	s.log.Info("serving metrics", "addr", addr)
	return nil
}

// close finishes the recording and stops the metrics server.
func (s *session) close(res *sim.Result) error {
	var errs []error
	if s.recorder != nil {
		if err := s.recorder.Finish(res, s.runner); err != nil {
			errs = append(errs, fmt.Errorf("finish run %s: %w", s.recorder.ID(), err))
		}
	}
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("stop metrics server: %w", err))
		}
	}
	return errors.Join(errs...)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if !realtime {
		cfg.Interval = 0
	}
	if cfg.MaxTicks == 0 {
		cfg.MaxTicks = automation.DefaultMaxTicks
	}

	log, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer log.Close()

	s, err := newSession(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, runErr := s.runner.Run(ctx)
	if res == nil {
		return errors.Join(runErr, s.close(nil))
	}
	if err := s.close(res); err != nil {
		log.Error("close session", "error", err)
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}

	printResult(res, s)
	return nil
}

func runDashboard(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer log.Close()

	s, err := newSession(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	res, runErr := tui.Run(ctx, s.runner, log)
	if err := s.close(res); err != nil {
		log.Error("close session", "error", err)
	}
	if runErr != nil && ctx.Err() == nil {
		return fmt.Errorf("dashboard: %w", runErr)
	}
	if res != nil {
		printResult(res, s)
	}
	return nil
}

func printResult(res *sim.Result, s *session) {
	f := res.Final
	fmt.Printf("status:    %s\n", f.Status)
	fmt.Printf("ticks:     %d (%v)\n", res.Ticks, res.Duration.Round(time.Millisecond))
	fmt.Printf("seed:      %d\n", s.seed)
	fmt.Printf("altitude:  %.2f m\n", f.Altitude)
	fmt.Printf("velocity:  %.2f m/s\n", f.Velocity)
	fmt.Printf("fuel:      %.1f%%\n", f.Fuel)
	fmt.Printf("gains:     %s\n", f.Controller.Gains)
	if n := len(res.Errors); n > 0 {
		fmt.Printf("errors:    %d failed ticks\n", n)
	}
	if s.recorder != nil {
		fmt.Printf("run:       %s\n", s.recorder.ID())
	}

	if len(res.Metrics) == 0 {
		return
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for _, name := range sortedKeys(res.Metrics) {
		fmt.Fprintf(w, "%s\t%.4f\n", name, res.Metrics[name])
	}
	w.Flush()
}
