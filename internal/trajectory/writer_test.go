package trajectory

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/wsilva/contrail/pkg/logger"
)

func testFlight(id string) *Flight {
	wp := NewWaypoint()
	wp.FlightID = id
	wp.ICAO24 = "4ca1d2"
	wp.Time = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	wp.Latitude = 51.5
	wp.Longitude = -0.5
	wp.AltitudeM = 10668
	wp.Groundspeed = 450
	wp.Heading = 90
	wp.VerticalRate = 0
	wp.PressureHPa = 238.4
	wp.UWind = 12.5
	wp.VWind = -3.0
	wp.TrueAirspeed = 221.7
	return &Flight{ID: id, Waypoints: []Waypoint{wp}}
}

func TestAppendWriterHeaderOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewAppendWriter(path)
	if err != nil {
		t.Fatalf("NewAppendWriter: %v", err)
	}
	if err := w.WriteFlight(testFlight("A_1")); err != nil {
		t.Fatalf("WriteFlight: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Second open appends without repeating the header
	w, err = NewAppendWriter(path)
	if err != nil {
		t.Fatalf("NewAppendWriter (reopen): %v", err)
	}
	if err := w.WriteFlight(testFlight("B_1")); err != nil {
		t.Fatalf("WriteFlight (reopen): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close (reopen): %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	content := string(data)
	if got := strings.Count(content, "flight_id,"); got != 1 {
		t.Errorf("header written %d times, want 1", got)
	}
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) != 3 {
		t.Errorf("expected 3 lines (header + 2 rows), got %d", len(lines))
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewAppendWriter(path)
	if err != nil {
		t.Fatalf("NewAppendWriter: %v", err)
	}
	orig := testFlight("A_1")
	if err := w.WriteFlight(orig); err != nil {
		t.Fatalf("WriteFlight: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	// Output altitude is meters, so read back with the meters unit
	l := NewLoader(AltitudeMeters, logger.NewNop())
	waypoints, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(waypoints) != 1 {
		t.Fatalf("expected 1 waypoint, got %d", len(waypoints))
	}
	got, want := waypoints[0], orig.Waypoints[0]
	if got.FlightID != want.FlightID || !got.Time.Equal(want.Time) {
		t.Errorf("identity mismatch: %+v", got)
	}
	if got.AltitudeM != want.AltitudeM || got.TrueAirspeed != want.TrueAirspeed {
		t.Errorf("round trip changed values: alt %v tas %v", got.AltitudeM, got.TrueAirspeed)
	}
	if got.PressureHPa != want.PressureHPa || got.UWind != want.UWind || got.VWind != want.VWind {
		t.Errorf("derived columns not read back: %+v", got)
	}
}

func TestWriteNaNAsEmptyCell(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.csv")

	w, err := NewAppendWriter(path)
	if err != nil {
		t.Fatalf("NewAppendWriter: %v", err)
	}
	f := testFlight("A_1")
	f.Waypoints[0].TrueAirspeed = math.NaN()
	if err := w.WriteFlight(f); err != nil {
		t.Fatalf("WriteFlight: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	l := NewLoader(AltitudeMeters, logger.NewNop())
	waypoints, err := l.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if !math.IsNaN(waypoints[0].TrueAirspeed) {
		t.Errorf("NaN airspeed round trip = %v, want NaN", waypoints[0].TrueAirspeed)
	}
}
