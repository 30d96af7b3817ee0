package model

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestResultWriterPlaceholderRow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	w, err := NewResultWriter(path)
	if err != nil {
		t.Fatalf("NewResultWriter: %v", err)
	}
	if err := w.WritePlaceholder("BAW1_20240101"); err != nil {
		t.Fatalf("WritePlaceholder: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header + 1 row, got %d rows", len(rows))
	}
	if rows[1][0] != "BAW1_20240101_ERROR" {
		t.Errorf("flight_id = %q, want suffixed ID", rows[1][0])
	}
	for i, cell := range rows[1][1:] {
		if cell != "" {
			t.Errorf("column %s = %q, want empty", ResultColumns[i+1], cell)
		}
	}
}

func TestResultWriterFlightRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "results.csv")

	w, err := NewResultWriter(path)
	if err != nil {
		t.Fatalf("NewResultWriter: %v", err)
	}
	f := evalFlight("BAW1_20240101", 2)
	out := &CocipOutput{
		ContrailFormed: true,
		Waypoints: []WaypointResult{
			{EF: 1e9, RFNetMean: 5.5, RFSWMean: -2.0, RFLWMean: 7.5},
			{EF: 2e9, RFNetMean: 6.0, RFSWMean: -2.5, RFLWMean: 8.5},
		},
	}
	perf := &PerformanceOutput{
		EngineEfficiency: []float64{0.3, 0.31},
		FuelFlow:         []float64{0.7, 0.71},
		AircraftMass:     []float64{60000, 59990},
	}
	if err := w.WriteFlight(f, out, perf); err != nil {
		t.Fatalf("WriteFlight: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header + 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "BAW1_20240101") || !strings.Contains(lines[1], "1000000000") {
		t.Errorf("first data row missing values: %s", lines[1])
	}
	// Reopening appends without a second header
	w, err = NewResultWriter(path)
	if err != nil {
		t.Fatalf("NewResultWriter (reopen): %v", err)
	}
	if err := w.WritePlaceholder("DLH2_20240101"); err != nil {
		t.Fatalf("WritePlaceholder: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, _ = os.ReadFile(path)
	if got := strings.Count(string(data), "flight_id,"); got != 1 {
		t.Errorf("header written %d times, want 1", got)
	}
}
