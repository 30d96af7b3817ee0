package trajectory

import (
	"math"
	"sort"
	"strings"
	"time"

	geo "github.com/paulmach/go.geo"
)

// Waypoint is one trajectory sample of one flight.
// Altitude is stored in meters; speeds keep the unit of the source file
// (knots for Flightradar24/OpenSky exports).
type Waypoint struct {
	FlightID     string
	ICAO24       string
	Time         time.Time
	Latitude     float64
	Longitude    float64
	AltitudeM    float64
	Groundspeed  float64
	Heading      float64
	VerticalRate float64

	// Derived fields. NaN until computed, NaN when underivable.
	PressureHPa  float64
	UWind        float64
	VWind        float64
	TrueAirspeed float64
}

// NewWaypoint returns a waypoint with all derived fields set to NaN
func NewWaypoint() Waypoint {
	nan := math.NaN()
	return Waypoint{
		AltitudeM:    nan,
		Groundspeed:  nan,
		Heading:      nan,
		VerticalRate: nan,
		PressureHPa:  nan,
		UWind:        nan,
		VWind:        nan,
		TrueAirspeed: nan,
	}
}

// Flight is the ordered waypoint sequence of a single flight_id plus the
// attributes consumed by the external model.
type Flight struct {
	ID        string
	Waypoints []Waypoint

	// Attributes filled by the aircraft metadata join
	AircraftType string
	WingspanM    float64
	NvpmEiN      float64
}

// Callsign extracts the callsign from the flight ID: the substring
// before the first underscore.
func (f *Flight) Callsign() string {
	return Callsign(f.ID)
}

// ICAO24 returns the transponder address of the flight, taken from the
// first waypoint that carries one
func (f *Flight) ICAO24() string {
	for i := range f.Waypoints {
		if f.Waypoints[i].ICAO24 != "" {
			return f.Waypoints[i].ICAO24
		}
	}
	return ""
}

// Callsign extracts the callsign from a flight ID string
func Callsign(flightID string) string {
	if i := strings.Index(flightID, "_"); i >= 0 {
		return flightID[:i]
	}
	return flightID
}

// TimeBounds returns the earliest and latest waypoint times.
// Zero-valued (unparseable) times are ignored.
func (f *Flight) TimeBounds() (min, max time.Time) {
	for _, wp := range f.Waypoints {
		if wp.Time.IsZero() {
			continue
		}
		if min.IsZero() || wp.Time.Before(min) {
			min = wp.Time
		}
		if max.IsZero() || wp.Time.After(max) {
			max = wp.Time
		}
	}
	return min, max
}

// SegmentLengths returns the great-circle length in meters of each leg
// between consecutive waypoints. The result has len(waypoints)-1 entries.
func (f *Flight) SegmentLengths() []float64 {
	if len(f.Waypoints) < 2 {
		return nil
	}
	lengths := make([]float64, 0, len(f.Waypoints)-1)
	for i := 1; i < len(f.Waypoints); i++ {
		a := geo.NewPoint(f.Waypoints[i-1].Longitude, f.Waypoints[i-1].Latitude)
		b := geo.NewPoint(f.Waypoints[i].Longitude, f.Waypoints[i].Latitude)
		lengths = append(lengths, a.GeoDistanceFrom(b, true))
	}
	return lengths
}

// TotalDistance returns the flown great-circle distance in meters
func (f *Flight) TotalDistance() float64 {
	var total float64
	for _, l := range f.SegmentLengths() {
		total += l
	}
	return total
}

// GroupFlights splits waypoints into flights keyed by flight_id,
// returned in flight_id-sorted order. Waypoint order within a flight is
// preserved from the input.
func GroupFlights(waypoints []Waypoint) []*Flight {
	byID := make(map[string]*Flight)
	var ids []string
	for _, wp := range waypoints {
		f, ok := byID[wp.FlightID]
		if !ok {
			f = &Flight{ID: wp.FlightID}
			byID[wp.FlightID] = f
			ids = append(ids, wp.FlightID)
		}
		f.Waypoints = append(f.Waypoints, wp)
	}
	sort.Strings(ids)
	flights := make([]*Flight, 0, len(ids))
	for _, id := range ids {
		flights = append(flights, byID[id])
	}
	return flights
}
