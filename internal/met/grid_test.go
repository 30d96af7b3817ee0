package met

import (
	"errors"
	"testing"
	"time"
)

// testGrid builds a 2-time, 2-level, 2x2 spatial grid with values
// encoding their own indices so lookups are verifiable
func testGrid() *Grid {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	u := make([][][][]float64, 2)
	v := make([][][][]float64, 2)
	for ti := 0; ti < 2; ti++ {
		u[ti] = make([][][]float64, 2)
		v[ti] = make([][][]float64, 2)
		for vi := 0; vi < 2; vi++ {
			u[ti][vi] = make([][]float64, 2)
			v[ti][vi] = make([][]float64, 2)
			for li := 0; li < 2; li++ {
				u[ti][vi][li] = make([]float64, 2)
				v[ti][vi][li] = make([]float64, 2)
				for gi := 0; gi < 2; gi++ {
					u[ti][vi][li][gi] = float64(1000*ti + 100*vi + 10*li + gi)
					v[ti][vi][li][gi] = -float64(1000*ti + 100*vi + 10*li + gi)
				}
			}
		}
	}
	return &Grid{
		Times:      []time.Time{t0, t0.Add(time.Hour)},
		Latitudes:  []float64{50, 51},
		Longitudes: []float64{-1, 0},
		Levels:     []int{300, 250},
		UWind:      u,
		VWind:      v,
	}
}

func TestNewGridRejectsUnsortedAxes(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cell := [][][]float64{{{1, 2}}}
	base := func() gridPayload {
		return gridPayload{
			Times:      []time.Time{t0},
			Latitudes:  []float64{50, 51},
			Longitudes: []float64{-1, 0},
			Levels:     []int{250},
			UWind:      [][][][]float64{cell},
			VWind:      [][][][]float64{cell},
		}
	}

	if _, err := newGrid(&gridPayload{}); err == nil {
		t.Error("empty payload accepted")
	}

	ok := base()
	if _, err := newGrid(&ok); err != nil {
		t.Fatalf("sorted payload rejected: %v", err)
	}

	// ERA5-style delivery with latitude descending must be refused, not
	// silently turned into all-out-of-range lookups
	descLat := base()
	descLat.Latitudes = []float64{51, 50}
	if _, err := newGrid(&descLat); err == nil {
		t.Error("descending latitude axis accepted")
	}

	descTime := base()
	descTime.Times = []time.Time{t0.Add(time.Hour), t0}
	descTime.UWind = [][][][]float64{cell, cell}
	descTime.VWind = [][][][]float64{cell, cell}
	if _, err := newGrid(&descTime); err == nil {
		t.Error("descending time axis accepted")
	}
}

func TestNearestPicksClosestCell(t *testing.T) {
	g := testGrid()
	// closest to time[1], level 250, lat[1], lon[0]
	u, v, err := g.Nearest(g.Times[1].Add(-10*time.Minute), 50.9, -0.8, 240)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if want := float64(1000 + 100 + 10); u != want {
		t.Errorf("u = %v, want %v", u, want)
	}
	if v != -u {
		t.Errorf("v = %v, want %v", v, -u)
	}
}

func TestNearestOutOfRange(t *testing.T) {
	g := testGrid()

	// more than one grid step (1 degree) outside the latitude axis
	_, _, err := g.Nearest(g.Times[0], 55, -0.5, 280)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("latitude: err = %v, want ErrOutOfRange", err)
	}

	// more than one grid step (1 hour) outside the time axis
	_, _, err = g.Nearest(g.Times[0].Add(-3*time.Hour), 50.5, -0.5, 280)
	if !errors.Is(err, ErrOutOfRange) {
		t.Errorf("time: err = %v, want ErrOutOfRange", err)
	}
}

func TestNearestWithinSlack(t *testing.T) {
	g := testGrid()
	// half a grid step outside the envelope still resolves
	if _, _, err := g.Nearest(g.Times[0], 51.5, -0.5, 280); err != nil {
		t.Errorf("within-slack lookup failed: %v", err)
	}
}

func TestNearestPressureClamps(t *testing.T) {
	g := testGrid()
	// well below the lowest level: clamped, not refused
	u, _, err := g.Nearest(g.Times[0], 50, -1, 1000)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if u != 0 { // level index 0 (300 hPa is closest to 1000 among {300, 250})
		t.Errorf("u = %v, want 0", u)
	}
}

func TestCovers(t *testing.T) {
	g := testGrid()
	in := GridRequest{
		Start: g.Times[0], End: g.Times[1],
		LatMin: 50.2, LatMax: 50.8,
		LonMin: -0.9, LonMax: -0.1,
	}
	if !g.Covers(in) {
		t.Error("expected grid to cover interior request")
	}
	out := in
	out.End = g.Times[1].Add(2 * time.Hour)
	if g.Covers(out) {
		t.Error("expected grid not to cover later time window")
	}
}
