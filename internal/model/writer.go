package model

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/wsilva/contrail/internal/trajectory"
)

// ResultColumns is the column order of the cocip result CSV
var ResultColumns = []string{
	"flight_id", "icao24", "callsign", "aircraft_type", "wingspan", "nvpm_ei_n",
	"time", "latitude", "longitude", "altitude", "true_airspeed",
	"engine_efficiency", "fuel_flow", "aircraft_mass",
	"ef", "rf_sw_mean", "rf_lw_mean", "rf_net_mean", "contrail_age", "rhi", "sac",
}

// ErrorSuffix marks placeholder rows written for flights the model
// could not evaluate
const ErrorSuffix = "_ERROR"

// ResultWriter appends cocip evaluation rows to a CSV file with the
// header written once per file
type ResultWriter struct {
	file        *os.File
	w           *csv.Writer
	wroteHeader bool

	// Per-waypoint performance fill, optional; aligned with the flight's
	// waypoints when set
	perf *PerformanceOutput
}

// NewResultWriter opens (or creates) the result file for appending
func NewResultWriter(path string) (*ResultWriter, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat result file: %w", err)
	}
	return &ResultWriter{
		file:        file,
		w:           csv.NewWriter(file),
		wroteHeader: info.Size() > 0,
	}, nil
}

func (rw *ResultWriter) header() error {
	if rw.wroteHeader {
		return nil
	}
	if err := rw.w.Write(ResultColumns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	rw.wroteHeader = true
	return nil
}

// WriteFlight appends one evaluated flight: one row per waypoint, with
// the model outputs aligned positionally
func (rw *ResultWriter) WriteFlight(f *trajectory.Flight, out *CocipOutput, perf *PerformanceOutput) error {
	if err := rw.header(); err != nil {
		return err
	}
	callsign := f.Callsign()
	for i, wp := range f.Waypoints {
		res := WaypointResult{
			EF: math.NaN(), RFSWMean: math.NaN(), RFLWMean: math.NaN(),
			RFNetMean: math.NaN(), ContrailAge: math.NaN(), RHI: math.NaN(), SAC: math.NaN(),
		}
		if out != nil && i < len(out.Waypoints) {
			res = out.Waypoints[i]
		}
		eff, flow, mass := math.NaN(), math.NaN(), math.NaN()
		if perf != nil && i < len(perf.EngineEfficiency) {
			eff = perf.EngineEfficiency[i]
			flow = perf.FuelFlow[i]
			mass = perf.AircraftMass[i]
		}
		record := []string{
			f.ID, wp.ICAO24, callsign, f.AircraftType,
			cellFloat(f.WingspanM), cellFloat(f.NvpmEiN),
			cellTime(wp.Time),
			cellFloat(wp.Latitude), cellFloat(wp.Longitude), cellFloat(wp.AltitudeM),
			cellFloat(wp.TrueAirspeed),
			cellFloat(eff), cellFloat(flow), cellFloat(mass),
			cellFloat(res.EF), cellFloat(res.RFSWMean), cellFloat(res.RFLWMean),
			cellFloat(res.RFNetMean), cellFloat(res.ContrailAge), cellFloat(res.RHI), cellFloat(res.SAC),
		}
		if err := rw.w.Write(record); err != nil {
			return fmt.Errorf("failed to write result row: %w", err)
		}
	}
	return nil
}

// WritePlaceholder appends a single all-empty row tagged with the
// flight ID plus the error suffix, so failed flights remain visible in
// the result set without aborting the batch
func (rw *ResultWriter) WritePlaceholder(flightID string) error {
	if err := rw.header(); err != nil {
		return err
	}
	record := make([]string, len(ResultColumns))
	record[0] = flightID + ErrorSuffix
	if err := rw.w.Write(record); err != nil {
		return fmt.Errorf("failed to write placeholder row: %w", err)
	}
	return nil
}

// Flush flushes buffered rows to disk
func (rw *ResultWriter) Flush() error {
	rw.w.Flush()
	return rw.w.Error()
}

// Close flushes and closes the result file
func (rw *ResultWriter) Close() error {
	rw.w.Flush()
	if err := rw.w.Error(); err != nil {
		rw.file.Close()
		return err
	}
	return rw.file.Close()
}

func cellFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func cellTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05")
}
