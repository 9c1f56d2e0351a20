package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
	"github.com/san-kum/landersim/internal/sim"
)

type csvFile struct {
	f *os.File
	w *csv.Writer
}

func createCSV(path string, header []string) (*csvFile, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return nil, err
	}
	return &csvFile{f: f, w: w}, nil
}

func (c *csvFile) flush() error {
	c.w.Flush()
	return c.w.Error()
}

func (c *csvFile) close() error {
	return errors.Join(c.flush(), c.f.Close())
}

// HistorySource exposes the in-memory logs kept by the model. Both
// *lander.Model and *sim.Runner satisfy it.
type HistorySource interface {
	Telemetry() []lander.TelemetryRecord
	ControllerHistory() []lander.ControllerRecord
}

// Recorder persists a run as it happens. It is a sim.Observer: one telemetry
// row per new tick, alerts not seen before, and a gains row whenever the
// controller gains change.
type Recorder struct {
	mu    sync.Mutex
	store *Store
	meta  *RunMetadata

	telemetry *csvFile
	alerts    *csvFile
	gains     *csvFile

	lastTick  int
	epoch     uint64
	seen      lander.AlertCursor
	lastGains control.Gains
	started   bool
	closed    bool
}

func newRecorder(s *Store, meta *RunMetadata) (*Recorder, error) {
	dir := s.runDir(meta.ID)
	r := &Recorder{store: s, meta: meta, lastTick: -1}

	var err error
	if r.telemetry, err = createCSV(filepath.Join(dir, telemetryFile), telemetryHeader); err != nil {
		return nil, err
	}
	if r.alerts, err = createCSV(filepath.Join(dir, alertsFile), []string{"seq", "elapsed", "critical", "message"}); err != nil {
		r.telemetry.close()
		return nil, err
	}
	if r.gains, err = createCSV(filepath.Join(dir, gainsFile), []string{"elapsed", "kp", "ki", "kd"}); err != nil {
		r.telemetry.close()
		r.alerts.close()
		return nil, err
	}
	return r, nil
}

func (r *Recorder) ID() string { return r.meta.ID }

func (r *Recorder) Metadata() RunMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return *r.meta
}

func (r *Recorder) OnTick(_ context.Context, s lander.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}

	if (s.Epoch != r.epoch || s.Tick != r.lastTick) && s.Tick > 0 {
		if err := r.telemetry.w.Write(rowFromSnapshot(s).record()); err != nil {
			return fmt.Errorf("write telemetry: %w", err)
		}
	}
	r.lastTick = s.Tick
	r.epoch = s.Epoch

	fresh, _ := r.seen.Next(s)
	for _, a := range fresh {
		rec := []string{strconv.FormatUint(a.Seq, 10), ff(a.Elapsed), fb(a.Critical), a.Message}
		if err := r.alerts.w.Write(rec); err != nil {
			return fmt.Errorf("write alert: %w", err)
		}
	}

	g := s.Controller.Gains
	if !r.started || g != r.lastGains {
		rec := []string{ff(s.Elapsed), ff(g.Kp), ff(g.Ki), ff(g.Kd)}
		if err := r.gains.w.Write(rec); err != nil {
			return fmt.Errorf("write gains: %w", err)
		}
		r.lastGains = g
	}
	r.started = true

	return errors.Join(r.telemetry.flush(), r.alerts.flush(), r.gains.flush())
}

// Finish records the outcome of res, writes the final checkpoint from hist
// (which may be nil) and closes the run files.
func (r *Recorder) Finish(res *sim.Result, hist HistorySource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	closeErr := errors.Join(r.telemetry.close(), r.alerts.close(), r.gains.close())

	now := time.Now()
	r.meta.FinishedAt = &now
	if res != nil {
		r.meta.Ticks = res.Ticks
		r.meta.Status = res.Final.Status
		r.meta.Metrics = res.Metrics
		r.meta.Errors = len(res.Errors)
		r.meta.Gains = res.Final.Controller.Gains

		cp := &Checkpoint{
			Version: CheckpointVersion,
			SavedAt: now,
			Final:   res.Final,
		}
		if hist != nil {
			cp.Telemetry = hist.Telemetry()
			cp.Controller = hist.ControllerHistory()
		}
		if err := writeCheckpointFile(filepath.Join(r.store.runDir(r.meta.ID), checkpointFile), cp); err != nil {
			closeErr = errors.Join(closeErr, fmt.Errorf("write checkpoint: %w", err))
		}
	}

	if err := r.store.writeMeta(r.meta); err != nil {
		closeErr = errors.Join(closeErr, fmt.Errorf("write metadata: %w", err))
	}
	return closeErr
}
