// Package telemetry writes per-frame projection statistics as CSV.
package telemetry

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"projection-engine/projection"
)

// FileName is the CSV file a Recorder writes into its directory.
const FileName = "projection.csv"

// Recorder appends projection.FrameStats rows to projection.csv. A nil
// *Recorder is valid and records nothing.
type Recorder struct {
	dir           string
	file          *os.File
	headerWritten bool
	rows          int
}

// NewRecorder creates dir and the CSV file inside it. Returns nil if dir is
// empty (output disabled).
func NewRecorder(dir string) (*Recorder, error) {
	if dir == "" {
		return nil, nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	f, err := os.Create(filepath.Join(dir, FileName))
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", FileName, err)
	}
	return &Recorder{dir: dir, file: f}, nil
}

// Record writes one row per instance for a frame.
func (r *Recorder) Record(stats []projection.FrameStats) error {
	if r == nil || len(stats) == 0 {
		return nil
	}

	if !r.headerWritten {
		// First write includes headers
		if err := gocsv.Marshal(stats, r.file); err != nil {
			return fmt.Errorf("writing projection stats: %w", err)
		}
		r.headerWritten = true
	} else {
		if err := gocsv.MarshalWithoutHeaders(stats, r.file); err != nil {
			return fmt.Errorf("writing projection stats: %w", err)
		}
	}
	r.rows += len(stats)
	return nil
}

// Rows counts the data rows written so far.
func (r *Recorder) Rows() int {
	if r == nil {
		return 0
	}
	return r.rows
}

// Dir returns the output directory path.
func (r *Recorder) Dir() string {
	if r == nil {
		return ""
	}
	return r.dir
}

func (r *Recorder) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	return r.file.Close()
}
