package trajectory

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"
)

// OutputColumns is the column order of written waypoint CSVs
var OutputColumns = []string{
	"flight_id", "icao24", "callsign", "time", "latitude", "longitude",
	"altitude", "groundspeed", "heading", "vertical_rate",
	"pressure_hPa", "u_wind", "v_wind", "true_airspeed",
}

// AppendWriter writes waypoint rows to a CSV file in append mode, with
// the header written once per file: only when the file is created or
// still empty.
type AppendWriter struct {
	file        *os.File
	w           *csv.Writer
	wroteHeader bool
}

// NewAppendWriter opens (or creates) the output file for appending
func NewAppendWriter(path string) (*AppendWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat output file: %w", err)
	}
	return &AppendWriter{
		file:        file,
		w:           csv.NewWriter(file),
		wroteHeader: info.Size() > 0,
	}, nil
}

// WriteFlight appends every waypoint of a flight
func (aw *AppendWriter) WriteFlight(f *Flight) error {
	if !aw.wroteHeader {
		if err := aw.w.Write(OutputColumns); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		aw.wroteHeader = true
	}
	callsign := f.Callsign()
	for _, wp := range f.Waypoints {
		record := []string{
			f.ID,
			wp.ICAO24,
			callsign,
			formatTime(wp.Time),
			formatFloat(wp.Latitude),
			formatFloat(wp.Longitude),
			formatFloat(wp.AltitudeM),
			formatFloat(wp.Groundspeed),
			formatFloat(wp.Heading),
			formatFloat(wp.VerticalRate),
			formatFloat(wp.PressureHPa),
			formatFloat(wp.UWind),
			formatFloat(wp.VWind),
			formatFloat(wp.TrueAirspeed),
		}
		if err := aw.w.Write(record); err != nil {
			return fmt.Errorf("failed to write waypoint: %w", err)
		}
	}
	return nil
}

// Flush flushes buffered rows to disk
func (aw *AppendWriter) Flush() error {
	aw.w.Flush()
	return aw.w.Error()
}

// Close flushes and closes the output file
func (aw *AppendWriter) Close() error {
	aw.w.Flush()
	if err := aw.w.Error(); err != nil {
		aw.file.Close()
		return err
	}
	return aw.file.Close()
}

// formatFloat renders NaN as an empty cell, matching how the upstream
// tooling reads missing values back in
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
