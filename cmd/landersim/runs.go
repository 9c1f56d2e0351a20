package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/landersim/internal/config"
	"github.com/san-kum/landersim/internal/storage"
	"github.com/spf13/cobra"
)

// openRun resolves a run reference ("latest", full ID or unique prefix)
// against the configured data directory.
func openRun(cmd *cobra.Command, ref string) (*storage.Store, string, error) {
	dir := config.DefaultDataDir
	if configFile != "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, "", fmt.Errorf("load config: %w", err)
		}
		dir = cfg.DataDir
	}
	if cmd.Flags().Changed("data") {
		dir = dataDir
	}
	st := storage.New(dir)
	if ref == "" {
		return st, "", nil
	}
	id, err := st.Resolve(ref)
	if err != nil {
		return nil, "", err
	}
	return st, id, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, _, err := openRun(cmd, "")
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tSTATUS\tTICKS\tSCENARIO\tGAINS")
	for _, run := range runs {
		status := string(run.Status)
		if run.FinishedAt == nil {
			status = "INCOMPLETE"
		}
		sc := run.Scenario
		if sc == "" {
			sc = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			status,
			run.Ticks,
			sc,
			run.Gains,
		)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st, id, err := openRun(cmd, args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(id)
	if err != nil {
		return err
	}

	fmt.Printf("run:       %s\n", meta.ID)
	fmt.Printf("created:   %s\n", meta.CreatedAt.Format("2006-01-02 15:04:05"))
	if meta.FinishedAt != nil {
		fmt.Printf("finished:  %s\n", meta.FinishedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("seed:      %d\n", meta.Seed)
	if meta.Scenario != "" {
		fmt.Printf("scenario:  %s\n", meta.Scenario)
	}
	fmt.Printf("interval:  %s\n", meta.Interval)
	fmt.Printf("ticks:     %d\n", meta.Ticks)
	fmt.Printf("status:    %s\n", meta.Status)
	fmt.Printf("gains:     %s\n", meta.Gains)

	cp, err := st.LoadCheckpoint(id)
	if err == nil {
		f := cp.Final
		fmt.Println()
		fmt.Printf("final altitude:  %.2f m\n", f.Altitude)
		fmt.Printf("final velocity:  %.2f m/s\n", f.Velocity)
		fmt.Printf("fuel remaining:  %.1f%%\n", f.Fuel)
		fmt.Printf("gear:            %v\n", f.GearDeployed)
		fmt.Printf("systems healthy: %d/8\n", f.Systems.Healthy())
		fmt.Printf("history:         %d telemetry, %d controller records\n", len(cp.Telemetry), len(cp.Controller))
	}

	if len(meta.Metrics) > 0 {
		fmt.Println()
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "METRIC\tVALUE")
		for _, name := range sortedKeys(meta.Metrics) {
			fmt.Fprintf(w, "%s\t%.4f\n", name, meta.Metrics[name])
		}
		return w.Flush()
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	st, id, err := openRun(cmd, args[0])
	if err != nil {
		return err
	}
	fields, err := cmd.Flags().GetStringSlice("fields")
	if err != nil {
		return err
	}
	rows, err := st.LoadTelemetry(id)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", id)
	fmt.Printf("samples: %d\n\n", len(rows))

	for _, field := range fields {
		data, err := storage.Column(rows, field)
		if err != nil {
			return fmt.Errorf("%w (have %s)", err, strings.Join(storage.NumericFields, ", "))
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(field+" vs tick"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func showAlerts(cmd *cobra.Command, args []string) error {
	st, id, err := openRun(cmd, args[0])
	if err != nil {
		return err
	}
	onlyCritical, err := cmd.Flags().GetBool("critical")
	if err != nil {
		return err
	}
	alerts, err := st.LoadAlerts(id)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tELAPSED\tLEVEL\tMESSAGE")
	for _, a := range alerts {
		if onlyCritical && !a.Critical {
			continue
		}
		level := "info"
		if a.Critical {
			level = "CRITICAL"
		}
		fmt.Fprintf(w, "%d\t%.1fs\t%s\t%s\n", a.Seq, a.Elapsed, level, a.Message)
	}
	return w.Flush()
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st, id, err := openRun(cmd, args[0])
	if err != nil {
		return err
	}
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	data, err := st.Export(id)
	if err != nil {
		return err
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := storage.ExportJSON(w, data); err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintf(os.Stderr, "exported %s to %s\n", id, output)
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st, id, err := openRun(cmd, args[0])
	if err != nil {
		return err
	}
	return st.CopyTelemetry(id, os.Stdout)
}
