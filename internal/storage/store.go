package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/landersim/internal/control"
	"github.com/san-kum/landersim/internal/lander"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile   = "metadata.json"
	telemetryFile  = "telemetry.csv"
	alertsFile     = "alerts.csv"
	gainsFile      = "gains.csv"
	checkpointFile = "checkpoint.msgpack.zst"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	FinishedAt *time.Time         `json:"finished_at,omitempty"`
	Seed       int64              `json:"seed"`
	Scenario   string             `json:"scenario,omitempty"`
	Gains      control.Gains      `json:"gains"`
	Interval   string             `json:"interval"`
	Ticks      int                `json:"ticks"`
	Status     lander.Status      `json:"status,omitempty"`
	Metrics    map[string]float64 `json:"metrics,omitempty"`
	Errors     int                `json:"errors,omitempty"`
}

// NewRunID returns a sortable, unique run identifier.
func NewRunID(now time.Time) string {
	return now.UTC().Format("20060102-150405") + "-" + uuid.NewString()[:8]
}

func (s *Store) runDir(id string) string {
	return filepath.Join(s.baseDir, id)
}

func (s *Store) writeMeta(meta *RunMetadata) error {
	f, err := os.Create(filepath.Join(s.runDir(meta.ID), metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return err
	}
	return f.Close()
}

// Create makes a new run directory and returns a Recorder writing into it.
// An empty meta.ID is filled in.
func (s *Store) Create(meta RunMetadata) (*Recorder, error) {
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.CreatedAt)
	}
	if err := os.MkdirAll(s.runDir(meta.ID), 0755); err != nil {
		return nil, err
	}
	if err := s.writeMeta(&meta); err != nil {
		return nil, fmt.Errorf("write metadata: %w", err)
	}
	return newRecorder(s, &meta)
}

// List returns every run with readable metadata, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].CreatedAt.After(runs[j].CreatedAt)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.runDir(runID), metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parse metadata for %s: %w", runID, err)
	}
	return &meta, nil
}

// Resolve expands a unique run ID prefix, or "latest", to a full run ID.
func (s *Store) Resolve(ref string) (string, error) {
	runs, err := s.List()
	if err != nil {
		return "", err
	}
	if ref == "latest" {
		if len(runs) == 0 {
			return "", fmt.Errorf("%w: no runs in %s", ErrRunNotFound, s.baseDir)
		}
		return runs[0].ID, nil
	}
	var match string
	for _, r := range runs {
		if r.ID == ref {
			return ref, nil
		}
		if strings.HasPrefix(r.ID, ref) {
			if match != "" {
				return "", fmt.Errorf("run prefix %q is ambiguous", ref)
			}
			match = r.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("%w: %s", ErrRunNotFound, ref)
	}
	return match, nil
}

func (s *Store) readCSV(runID, name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.runDir(runID), name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, nil
	}
	return records[1:], nil
}

// CopyTelemetry streams the raw telemetry CSV of a run to w.
func (s *Store) CopyTelemetry(runID string, w io.Writer) error {
	f, err := os.Open(filepath.Join(s.runDir(runID), telemetryFile))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	defer f.Close()
	_, err = io.Copy(w, f)
	return err
}

func (s *Store) LoadTelemetry(runID string) ([]TelemetryRow, error) {
	records, err := s.readCSV(runID, telemetryFile)
	if err != nil {
		return nil, err
	}
	rows := make([]TelemetryRow, 0, len(records))
	for i, rec := range records {
		row, err := parseTelemetryRow(rec)
		if err != nil {
			return rows, fmt.Errorf("telemetry row %d: %w", i+1, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) LoadAlerts(runID string) ([]lander.Alert, error) {
	records, err := s.readCSV(runID, alertsFile)
	if err != nil {
		return nil, err
	}
	alerts := make([]lander.Alert, 0, len(records))
	for i, rec := range records {
		if len(rec) != 4 {
			return alerts, fmt.Errorf("alert row %d: expected 4 fields, got %d", i+1, len(rec))
		}
		seq, err := strconv.ParseUint(rec[0], 10, 64)
		if err != nil {
			return alerts, fmt.Errorf("alert row %d: %w", i+1, err)
		}
		elapsed, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			return alerts, fmt.Errorf("alert row %d: %w", i+1, err)
		}
		alerts = append(alerts, lander.Alert{
			Seq:      seq,
			Elapsed:  elapsed,
			Critical: rec[2] == "1",
			Message:  rec[3],
		})
	}
	return alerts, nil
}

func (s *Store) LoadGains(runID string) ([]GainsRow, error) {
	records, err := s.readCSV(runID, gainsFile)
	if err != nil {
		return nil, err
	}
	rows := make([]GainsRow, 0, len(records))
	for i, rec := range records {
		vals, err := parseFloats(rec, 4)
		if err != nil {
			return rows, fmt.Errorf("gains row %d: %w", i+1, err)
		}
		rows = append(rows, GainsRow{
			Elapsed: vals[0],
			Gains:   control.Gains{Kp: vals[1], Ki: vals[2], Kd: vals[3]},
		})
	}
	return rows, nil
}

func (s *Store) LoadCheckpoint(runID string) (*Checkpoint, error) {
	f, err := os.Open(filepath.Join(s.runDir(runID), checkpointFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: no checkpoint for %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer f.Close()
	return ReadCheckpoint(f)
}

func parseFloats(rec []string, n int) ([]float64, error) {
	if len(rec) != n {
		return nil, fmt.Errorf("expected %d fields, got %d", n, len(rec))
	}
	vals := make([]float64, n)
	for i, field := range rec {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}
