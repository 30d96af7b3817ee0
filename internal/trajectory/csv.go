package trajectory

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wsilva/contrail/internal/physics"
	"github.com/wsilva/contrail/pkg/logger"
)

// Source CSVs differ slightly between exports (OpenSky vs Flightradar24),
// so columns are resolved by header name with a few accepted aliases.
var columnAliases = map[string][]string{
	"flight_id":     {"flight_id", "flightid", "flight"},
	"icao24":        {"icao24", "hex"},
	"time":          {"time", "timestamp"},
	"latitude":      {"latitude", "lat"},
	"longitude":     {"longitude", "lon", "lng"},
	"altitude":      {"altitude", "alt", "baroaltitude"},
	"groundspeed":   {"groundspeed", "gs", "velocity"},
	"heading":       {"heading", "track"},
	"vertical_rate": {"vertical_rate", "vertrate"},

	// derived columns, present when reading annotated output back in
	"pressure_hpa":  {"pressure_hpa"},
	"u_wind":        {"u_wind"},
	"v_wind":        {"v_wind"},
	"true_airspeed": {"true_airspeed", "tas"},
}

// Timestamps come in mixed formats ("format=mixed" in the source data)
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05-07:00",
}

// AltitudeUnit selects how the altitude column is interpreted
type AltitudeUnit string

const (
	AltitudeFeet   AltitudeUnit = "ft"
	AltitudeMeters AltitudeUnit = "m"
)

// Loader reads trajectory CSV files into waypoints
type Loader struct {
	altUnit AltitudeUnit
	logger  *logger.Logger
}

// NewLoader creates a trajectory CSV loader
func NewLoader(altUnit AltitudeUnit, log *logger.Logger) *Loader {
	if altUnit == "" {
		altUnit = AltitudeFeet
	}
	return &Loader{altUnit: altUnit, logger: log.Named("trajectory")}
}

// LoadFile reads every waypoint from a trajectory CSV file
func (l *Loader) LoadFile(path string) ([]Waypoint, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open trajectory file: %w", err)
	}
	defer file.Close()

	waypoints, err := l.Read(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	l.logger.Info("Loaded trajectory file",
		logger.String("path", path),
		logger.Int("waypoints", len(waypoints)))
	return waypoints, nil
}

// Read parses trajectory CSV data from a reader
func (l *Loader) Read(r io.Reader) ([]Waypoint, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := resolveColumns(header)
	if _, ok := cols["flight_id"]; !ok {
		return nil, fmt.Errorf("missing required column: flight_id")
	}

	var waypoints []Waypoint
	var badTimes int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read record: %w", err)
		}

		wp := NewWaypoint()
		wp.FlightID = field(record, cols, "flight_id")
		wp.ICAO24 = field(record, cols, "icao24")
		wp.Latitude = parseFloat(field(record, cols, "latitude"))
		wp.Longitude = parseFloat(field(record, cols, "longitude"))
		wp.Groundspeed = parseFloat(field(record, cols, "groundspeed"))
		wp.Heading = parseFloat(field(record, cols, "heading"))
		wp.VerticalRate = parseFloat(field(record, cols, "vertical_rate"))

		alt := parseFloat(field(record, cols, "altitude"))
		if l.altUnit == AltitudeFeet {
			alt *= physics.FtToM
		}
		wp.AltitudeM = alt

		if _, ok := cols["pressure_hpa"]; ok {
			wp.PressureHPa = parseFloat(field(record, cols, "pressure_hpa"))
		}
		if _, ok := cols["u_wind"]; ok {
			wp.UWind = parseFloat(field(record, cols, "u_wind"))
			wp.VWind = parseFloat(field(record, cols, "v_wind"))
		}
		if _, ok := cols["true_airspeed"]; ok {
			wp.TrueAirspeed = parseFloat(field(record, cols, "true_airspeed"))
		}

		ts, ok := parseTime(field(record, cols, "time"))
		if !ok {
			badTimes++
		}
		wp.Time = ts

		waypoints = append(waypoints, wp)
	}

	if badTimes > 0 {
		l.logger.Warn("Some waypoints had unparseable timestamps",
			logger.Int("count", badTimes))
	}
	return waypoints, nil
}

// resolveColumns maps canonical column names to indices in the header.
// Header cells are normalized the same way the reference databases are
// cleaned: quotes stripped, whitespace trimmed, lowercased.
func resolveColumns(header []string) map[string]int {
	normalized := make([]string, len(header))
	for i, h := range header {
		normalized[i] = NormalizeColumn(h)
	}
	cols := make(map[string]int)
	for name, aliases := range columnAliases {
		for _, alias := range aliases {
			for i, h := range normalized {
				if h == alias {
					cols[name] = i
					break
				}
			}
			if _, ok := cols[name]; ok {
				break
			}
		}
	}
	return cols
}

// NormalizeColumn cleans a header cell: strips quotes, trims whitespace,
// collapses inner runs of spaces, lowercases.
func NormalizeColumn(s string) string {
	return strings.ToLower(NormalizeColumnValue(s))
}

// NormalizeColumnValue cleans a data cell the same way the reference
// databases are cleaned, but preserves case (type designators matter)
func NormalizeColumnValue(s string) string {
	s = strings.ReplaceAll(s, "'", "")
	s = strings.ReplaceAll(s, `"`, "")
	return strings.Join(strings.Fields(s), " ")
}

func field(record []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseFloat returns NaN for empty or malformed cells
func parseFloat(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// parseTime tries the known layouts; timezone offsets are dropped so all
// times compare on the same (UTC-naive) axis as the met data.
func parseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
