package summary

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	geo "github.com/paulmach/go.geo"
)

// ReadResultFile loads a contrail model result CSV into waypoint
// records. Placeholder rows for failed flights are skipped. Each
// record carries the great-circle length of the segment leading into
// its waypoint, so per-flight sums give distance flown.
func ReadResultFile(path string) ([]WaypointRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open result file: %w", err)
	}
	defer f.Close()
	return ReadResults(f)
}

// ReadResults parses result rows from r. See ReadResultFile.
func ReadResults(r io.Reader) ([]WaypointRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"flight_id", "ef"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("result file missing column %q", required)
		}
	}

	var (
		records  []WaypointRecord
		prevID   string
		prevPt   *geo.Point
		havePrev bool
	)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read result row: %w", err)
		}

		id := field(row, col, "flight_id")
		if id == "" || strings.HasSuffix(id, "_ERROR") {
			havePrev = false
			continue
		}

		rec := WaypointRecord{
			FlightID:  id,
			EF:        floatField(row, col, "ef"),
			RFNetMean: floatField(row, col, "rf_net_mean"),
			RFSWMean:  floatField(row, col, "rf_sw_mean"),
			RFLWMean:  floatField(row, col, "rf_lw_mean"),
		}

		lat := floatField(row, col, "latitude")
		lon := floatField(row, col, "longitude")
		if !math.IsNaN(lat) && !math.IsNaN(lon) {
			pt := geo.NewPoint(lon, lat)
			if havePrev && prevID == id {
				rec.DistanceM = prevPt.GeoDistanceFrom(pt, true)
			}
			prevPt = pt
			prevID = id
			havePrev = true
		} else {
			havePrev = false
		}

		records = append(records, rec)
	}
	return records, nil
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func floatField(row []string, col map[string]int, name string) float64 {
	s := field(row, col, name)
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
