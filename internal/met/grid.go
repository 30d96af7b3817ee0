package met

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrOutOfRange is returned when a lookup point falls outside the
// grid's covered envelope (plus one grid step of slack on each axis).
// Nearest-neighbor matching beyond that would silently pick a far-away
// cell, so it is refused instead.
var ErrOutOfRange = errors.New("met: point outside wind field envelope")

// Grid is a 4D wind field indexed [time][level][lat][lon].
// Time, latitude and longitude axes are sorted ascending; the level axis
// is sorted descending in pressure (surface first), matching the order
// reanalysis providers deliver pressure levels in.
type Grid struct {
	FetchedAt  time.Time
	Times      []time.Time
	Latitudes  []float64
	Longitudes []float64
	Levels     []int // hPa

	UWind [][][][]float64 // eastward wind (m/s)
	VWind [][][][]float64 // northward wind (m/s)
	Temp  [][][][]float64 // air temperature (K), may be nil
}

// newGrid validates a payload and converts it into a Grid. Unsorted
// axes are rejected rather than silently producing out-of-range
// lookups everywhere; some reanalysis providers deliver latitude
// descending, and such payloads must be reordered upstream.
func newGrid(p *gridPayload) (*Grid, error) {
	if len(p.Times) == 0 || len(p.Latitudes) == 0 || len(p.Longitudes) == 0 || len(p.Levels) == 0 {
		return nil, fmt.Errorf("met: empty grid axis")
	}
	if len(p.UWind) != len(p.Times) || len(p.VWind) != len(p.Times) {
		return nil, fmt.Errorf("met: wind data/time axis mismatch: %d times, %d u slabs, %d v slabs",
			len(p.Times), len(p.UWind), len(p.VWind))
	}
	for i := 1; i < len(p.Times); i++ {
		if !p.Times[i].After(p.Times[i-1]) {
			return nil, fmt.Errorf("met: time axis not ascending at index %d", i)
		}
	}
	if !ascending(p.Latitudes) {
		return nil, fmt.Errorf("met: latitude axis not ascending")
	}
	if !ascending(p.Longitudes) {
		return nil, fmt.Errorf("met: longitude axis not ascending")
	}
	return &Grid{
		FetchedAt:  time.Now().UTC(),
		Times:      p.Times,
		Latitudes:  p.Latitudes,
		Longitudes: p.Longitudes,
		Levels:     p.Levels,
		UWind:      p.UWind,
		VWind:      p.VWind,
		Temp:       p.Temp,
	}, nil
}

// Covers reports whether the grid's envelope contains the given time
// window and bounding box
func (g *Grid) Covers(req GridRequest) bool {
	if len(g.Times) == 0 {
		return false
	}
	if req.Start.Before(g.Times[0]) || req.End.After(g.Times[len(g.Times)-1]) {
		return false
	}
	if req.LatMin < g.Latitudes[0] || req.LatMax > g.Latitudes[len(g.Latitudes)-1] {
		return false
	}
	if req.LonMin < g.Longitudes[0] || req.LonMax > g.Longitudes[len(g.Longitudes)-1] {
		return false
	}
	return true
}

// Nearest returns the wind components at the grid cell nearest to the
// given time, position and pressure. No interpolation is performed.
// Points outside the envelope return ErrOutOfRange.
func (g *Grid) Nearest(t time.Time, lat, lon, pressureHPa float64) (u, v float64, err error) {
	if t.IsZero() || math.IsNaN(lat) || math.IsNaN(lon) || math.IsNaN(pressureHPa) {
		return 0, 0, fmt.Errorf("met: invalid lookup point")
	}

	ti, err := g.nearestTime(t)
	if err != nil {
		return 0, 0, err
	}
	li, err := nearestIndex(g.Latitudes, lat)
	if err != nil {
		return 0, 0, err
	}
	gi, err := nearestIndex(g.Longitudes, lon)
	if err != nil {
		return 0, 0, err
	}
	vi := nearestLevel(g.Levels, pressureHPa)

	if ti >= len(g.UWind) || vi >= len(g.UWind[ti]) ||
		li >= len(g.UWind[ti][vi]) || gi >= len(g.UWind[ti][vi][li]) {
		return 0, 0, fmt.Errorf("met: grid data shorter than axes at [%d][%d][%d][%d]", ti, vi, li, gi)
	}
	return g.UWind[ti][vi][li][gi], g.VWind[ti][vi][li][gi], nil
}

// nearestTime finds the closest time index, refusing points more than
// one grid step outside the covered range
func (g *Grid) nearestTime(t time.Time) (int, error) {
	n := len(g.Times)
	step := time.Hour
	if n > 1 {
		step = g.Times[1].Sub(g.Times[0])
	}
	if t.Before(g.Times[0].Add(-step)) || t.After(g.Times[n-1].Add(step)) {
		return 0, ErrOutOfRange
	}

	best := 0
	bestDiff := absDuration(t.Sub(g.Times[0]))
	for i := 1; i < n; i++ {
		d := absDuration(t.Sub(g.Times[i]))
		if d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best, nil
}

// nearestIndex finds the closest index in a sorted ascending axis,
// refusing points more than one grid step outside the range
func nearestIndex(axis []float64, val float64) (int, error) {
	n := len(axis)
	step := 1.0
	if n > 1 {
		step = axis[1] - axis[0]
	}
	if val < axis[0]-step || val > axis[n-1]+step {
		return 0, ErrOutOfRange
	}

	best := 0
	bestDiff := math.Abs(val - axis[0])
	for i := 1; i < n; i++ {
		d := math.Abs(val - axis[i])
		if d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best, nil
}

// nearestLevel finds the closest pressure level. Pressure is clamped to
// the level axis rather than range-checked: above-ceiling and
// below-floor altitudes legitimately occur at flight ends.
func nearestLevel(levels []int, pressureHPa float64) int {
	best := 0
	bestDiff := math.Abs(pressureHPa - float64(levels[0]))
	for i := 1; i < len(levels); i++ {
		d := math.Abs(pressureHPa - float64(levels[i]))
		if d < bestDiff {
			best = i
			bestDiff = d
		}
	}
	return best
}

func ascending(axis []float64) bool {
	for i := 1; i < len(axis); i++ {
		if axis[i] <= axis[i-1] {
			return false
		}
	}
	return true
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
