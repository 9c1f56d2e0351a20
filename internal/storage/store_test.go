package storage

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/rng"
	"github.com/san-kum/landersim/internal/sim"
)

func recordRun(t *testing.T, st *Store, ticks int) (*Recorder, *sim.Runner, *sim.Result) {
	t.Helper()
	rec, err := st.Create(RunMetadata{Seed: 7, Gains: lander.DefaultGains(), Interval: "0s"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	r := sim.New(lander.New(lander.WithSource(rng.NewPCG(7))), sim.Config{MaxTicks: ticks})
	r.AddObserver(rec)
	r.SetPolicy(sim.PolicyFunc(func(s lander.Snapshot) []lander.Command {
		switch s.Tick {
		case 2:
			return []lander.Command{lander.ThrustersCommand{Enabled: true}}
		case 5:
			return []lander.Command{lander.GainsCommand{Kp: "0.8", Ki: "0", Kd: "0.3"}}
		}
		return nil
	}))

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := rec.Finish(res, r); err != nil {
		t.Fatalf("finish: %v", err)
	}
	return rec, r, res
}

func TestStoreRoundTrip(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	rec, _, res := recordRun(t, st, 12)

	meta, err := st.Load(rec.ID())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Seed != 7 || meta.Ticks != 12 || meta.FinishedAt == nil {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Gains.Kp != 0.8 {
		t.Errorf("expected final gains in metadata, got %s", meta.Gains)
	}

	rows, err := st.LoadTelemetry(rec.ID())
	if err != nil {
		t.Fatalf("load telemetry: %v", err)
	}
	if len(rows) != 12 {
		t.Fatalf("expected 12 telemetry rows, got %d", len(rows))
	}
	for i, row := range rows {
		if row.Tick != i+1 {
			t.Errorf("row %d: expected tick %d, got %d", i, i+1, row.Tick)
		}
	}
	last := rows[len(rows)-1]
	if diff := last.Altitude - res.Final.Altitude; diff > 1e-6 || diff < -1e-6 {
		t.Errorf("last row altitude %v, final %v", last.Altitude, res.Final.Altitude)
	}
	if !last.Thrusters || rows[0].Thrusters {
		t.Error("thruster column does not follow the command")
	}

	gains, err := st.LoadGains(rec.ID())
	if err != nil {
		t.Fatalf("load gains: %v", err)
	}
	if len(gains) != 2 {
		t.Fatalf("expected initial and retuned gains, got %d rows", len(gains))
	}
	if gains[0].Gains != lander.DefaultGains() || gains[1].Kp != 0.8 {
		t.Errorf("unexpected gains rows %+v", gains)
	}

	cp, err := st.LoadCheckpoint(rec.ID())
	if err != nil {
		t.Fatalf("load checkpoint: %v", err)
	}
	if cp.Final.Tick != res.Final.Tick || cp.Final.Altitude != res.Final.Altitude {
		t.Errorf("checkpoint final state mismatch")
	}
	if len(cp.Telemetry) != 12 || len(cp.Controller) != 12 {
		t.Errorf("expected 12 history entries in checkpoint, got %d/%d", len(cp.Telemetry), len(cp.Controller))
	}
}

func TestRecorderWritesAlertsOnce(t *testing.T) {
	st := New(t.TempDir())
	rec, err := st.Create(RunMetadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m := lander.New(lander.WithSource(rng.Zero{}))
	ctx := context.Background()
	_ = rec.OnTick(ctx, m.Snapshot())
	_ = rec.OnTick(ctx, m.Snapshot())
	m.SetThrusters(true)
	_ = rec.OnTick(ctx, m.Advance())
	m.AbortMission()
	for i := 0; i < 3; i++ {
		_ = rec.OnTick(ctx, m.Advance())
	}
	m.Reset()
	_ = rec.OnTick(ctx, m.Snapshot())
	if err := rec.Finish(nil, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	alerts, err := st.LoadAlerts(rec.ID())
	if err != nil {
		t.Fatalf("load alerts: %v", err)
	}
	// 3 startup + thrusters + abort, then 3 startup + reset after the reset
	if len(alerts) != 9 {
		t.Fatalf("expected 9 alerts, got %d: %+v", len(alerts), alerts)
	}
	if alerts[4].Message != "MISSION ABORTED" || !alerts[4].Critical {
		t.Errorf("unexpected abort alert %+v", alerts[4])
	}
	if alerts[8].Message != "simulation reset" || alerts[8].Seq != 4 {
		t.Errorf("unexpected reset alert %+v", alerts[8])
	}

	rows, err := st.LoadTelemetry(rec.ID())
	if err != nil {
		t.Fatalf("load telemetry: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("frozen ticks should not add rows, got %d", len(rows))
	}

	if _, err := st.LoadCheckpoint(rec.ID()); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected no checkpoint without a result, got %v", err)
	}
}

func TestRecorderKeepsAlertsAfterEarlyReset(t *testing.T) {
	st := New(t.TempDir())
	rec, err := st.Create(RunMetadata{})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	m := lander.New(lander.WithSource(rng.Zero{}))
	ctx := context.Background()
	m.SetThrusters(true)
	_ = rec.OnTick(ctx, m.Advance())
	m.Reset()
	_ = rec.OnTick(ctx, m.Advance())
	if err := rec.Finish(nil, nil); err != nil {
		t.Fatalf("finish: %v", err)
	}

	alerts, err := st.LoadAlerts(rec.ID())
	if err != nil {
		t.Fatalf("load alerts: %v", err)
	}
	// seq 1..4 in both sessions
	if len(alerts) != 8 {
		t.Fatalf("expected 8 alerts, got %d: %+v", len(alerts), alerts)
	}
	if alerts[3].Message != "thrusters engaged" {
		t.Errorf("unexpected first-session alert %+v", alerts[3])
	}
	if alerts[7].Message != "simulation reset" || alerts[7].Seq != 4 {
		t.Errorf("unexpected reset alert %+v", alerts[7])
	}

	rows, err := st.LoadTelemetry(rec.ID())
	if err != nil {
		t.Fatalf("load telemetry: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("expected tick 1 of each session, got %d rows", len(rows))
	}
}

func TestListAndResolve(t *testing.T) {
	st := New(t.TempDir())
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		rec, err := st.Create(RunMetadata{CreatedAt: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if err := rec.Finish(nil, nil); err != nil {
			t.Fatalf("finish: %v", err)
		}
		ids = append(ids, rec.ID())
	}

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(runs) != 3 || runs[0].ID != ids[2] {
		t.Fatalf("expected newest first, got %+v", runs)
	}

	latest, err := st.Resolve("latest")
	if err != nil || latest != ids[2] {
		t.Errorf("resolve latest: %s, %v", latest, err)
	}
	got, err := st.Resolve(ids[0][:len("20240301-100000-")+4])
	if err != nil || got != ids[0] {
		t.Errorf("resolve prefix: %s, %v", got, err)
	}
	if _, err := st.Resolve("nope"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListMissingDir(t *testing.T) {
	st := New(t.TempDir() + "/missing")
	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Errorf("expected empty list, got %v, %v", runs, err)
	}
	if _, err := st.Load("x"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("expected ErrRunNotFound, got %v", err)
	}
}

func TestExport(t *testing.T) {
	st := New(t.TempDir())
	rec, _, _ := recordRun(t, st, 4)

	data, err := st.Export(rec.ID())
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if data.Final == nil || len(data.Telemetry) != 4 {
		t.Fatalf("incomplete export: final=%v rows=%d", data.Final, len(data.Telemetry))
	}

	var buf bytes.Buffer
	if err := ExportJSON(&buf, data); err != nil {
		t.Fatalf("export json: %v", err)
	}
	for _, key := range []string{`"metadata"`, `"telemetry"`, `"alerts"`, `"kp"`, `"final"`} {
		if !strings.Contains(buf.String(), key) {
			t.Errorf("export missing %s", key)
		}
	}

	buf.Reset()
	if err := st.CopyTelemetry(rec.ID(), &buf); err != nil {
		t.Fatalf("copy telemetry: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 5 {
		t.Errorf("expected header and 4 rows, got %d lines", lines)
	}
}

func TestCheckpointRejectsGarbage(t *testing.T) {
	if _, err := ReadCheckpoint(strings.NewReader("not zstd")); err == nil {
		t.Error("expected error for garbage input")
	}

	var buf bytes.Buffer
	if err := WriteCheckpoint(&buf, &Checkpoint{Version: 99}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := ReadCheckpoint(&buf); err == nil {
		t.Error("expected version error")
	}
}

func TestColumn(t *testing.T) {
	rows := []TelemetryRow{
		{Tick: 1, Altitude: 995, Velocity: -49, Fuel: 100},
		{Tick: 2, Altitude: 990, Velocity: -48, Fuel: 99.5},
	}
	tests := []struct {
		field string
		want  []float64
	}{
		{"altitude", []float64{995, 990}},
		{"velocity", []float64{-49, -48}},
		{"fuel", []float64{100, 99.5}},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			got, err := Column(rows, tt.field)
			if err != nil {
				t.Fatalf("column: %v", err)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("row %d: expected %v, got %v", i, tt.want[i], got[i])
				}
			}
		})
	}

	if _, err := Column(rows, "kp"); err == nil {
		t.Error("expected error for non-telemetry field")
	}
	for _, name := range NumericFields {
		if _, ok := rows[0].Field(name); !ok {
			t.Errorf("listed field %q not readable", name)
		}
	}
}
