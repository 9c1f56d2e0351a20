package storage

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/san-kum/landersim/internal/lander"
)

const CheckpointVersion = 1

// Checkpoint is the final state of a run together with the bounded logs the
// model still held. On disk it is msgpack compressed with zstd.
type Checkpoint struct {
	Version    int                       `msgpack:"version" json:"version"`
	SavedAt    time.Time                 `msgpack:"saved_at" json:"saved_at"`
	Final      lander.Snapshot           `msgpack:"final" json:"final"`
	Telemetry  []lander.TelemetryRecord  `msgpack:"telemetry" json:"telemetry"`
	Controller []lander.ControllerRecord `msgpack:"controller" json:"controller"`
}

func WriteCheckpoint(w io.Writer, cp *Checkpoint) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return fmt.Errorf("failed to create zstd writer: %w", err)
	}
	defer zw.Close()

	if err := msgpack.NewEncoder(zw).Encode(cp); err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to close zstd writer: %w", err)
	}
	return nil
}

func ReadCheckpoint(r io.Reader) (*Checkpoint, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd reader: %w", err)
	}
	defer zr.Close()

	var cp Checkpoint
	if err := msgpack.NewDecoder(zr).Decode(&cp); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if cp.Version != CheckpointVersion {
		return nil, fmt.Errorf("unsupported checkpoint version %d", cp.Version)
	}
	return &cp, nil
}

func writeCheckpointFile(path string, cp *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCheckpoint(f, cp); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
