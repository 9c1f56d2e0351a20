package storage

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/san-kum/landersim/internal/lander"
)

type ExportData struct {
	Metadata  RunMetadata      `json:"metadata"`
	Telemetry []TelemetryRow   `json:"telemetry"`
	Alerts    []lander.Alert   `json:"alerts"`
	Gains     []GainsRow       `json:"gains"`
	Final     *lander.Snapshot `json:"final,omitempty"`
}

// Export gathers everything recorded for a run. A missing checkpoint (an
// interrupted run) leaves Final nil.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	data := &ExportData{Metadata: *meta}

	if data.Telemetry, err = s.LoadTelemetry(runID); err != nil {
		return nil, err
	}
	if data.Alerts, err = s.LoadAlerts(runID); err != nil {
		return nil, err
	}
	if data.Gains, err = s.LoadGains(runID); err != nil {
		return nil, err
	}

	cp, err := s.LoadCheckpoint(runID)
	switch {
	case err == nil:
		data.Final = &cp.Final
	case !errors.Is(err, ErrRunNotFound):
		return nil, err
	}
	return data, nil
}

func ExportJSON(w io.Writer, data *ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
