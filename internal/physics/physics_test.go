package physics

import (
	"math"
	"testing"
)

func TestPressureFromAltitudeSeaLevel(t *testing.T) {
	if p := PressureFromAltitude(0); p != P0 {
		t.Errorf("pressure at sea level = %v, want %v", p, P0)
	}
}

func TestPressureFromAltitudeMonotone(t *testing.T) {
	prev := PressureFromAltitude(0)
	for alt := 500.0; alt <= 15000; alt += 500 {
		p := PressureFromAltitude(alt)
		if p >= prev {
			t.Fatalf("pressure not decreasing: P(%v)=%v >= P(%v)=%v", alt, p, alt-500, prev)
		}
		if p < 0 {
			t.Fatalf("negative pressure at %v m: %v", alt, p)
		}
		prev = p
	}
}

func TestPressureFromAltitudeClamps(t *testing.T) {
	if p := PressureFromAltitude(-100); p != P0 {
		t.Errorf("negative altitude should clamp to sea level, got %v", p)
	}
	if p := PressureFromAltitude(ScaleHeight + 1); p != 0 {
		t.Errorf("altitude above scale height should give 0, got %v", p)
	}
}

func TestTrueAirspeedZeroGroundspeed(t *testing.T) {
	// With GS=0 the airspeed is just the wind magnitude, whatever the heading.
	for _, hdg := range []float64{0, 45, 90, 180, 270, 359} {
		got := TrueAirspeed(0, hdg, 3, 4)
		if math.Abs(got-5) > 1e-9 {
			t.Errorf("TrueAirspeed(0, %v, 3, 4) = %v, want 5", hdg, got)
		}
	}
}

func TestTrueAirspeedNorthboundTailwind(t *testing.T) {
	// Heading 0 (north), GS 250, wind (0, 50): TAS = sqrt(0 + 200^2) = 200.
	got := TrueAirspeed(250, 0, 0, 50)
	if math.Abs(got-200) > 1e-9 {
		t.Errorf("TrueAirspeed(250, 0, 0, 50) = %v, want 200", got)
	}
}

func TestTrueAirspeedNaNPropagates(t *testing.T) {
	if got := TrueAirspeed(250, 0, math.NaN(), math.NaN()); !math.IsNaN(got) {
		t.Errorf("NaN wind should give NaN airspeed, got %v", got)
	}
}

func TestHeadingToVector(t *testing.T) {
	cases := []struct {
		hdg, mag, x, y float64
	}{
		{0, 100, 0, 100},
		{90, 100, 100, 0},
		{180, 100, 0, -100},
		{270, 100, -100, 0},
	}
	for _, c := range cases {
		v := HeadingToVector(c.hdg, c.mag)
		if math.Abs(v.X-c.x) > 1e-9 || math.Abs(v.Y-c.y) > 1e-9 {
			t.Errorf("HeadingToVector(%v, %v) = (%v, %v), want (%v, %v)", c.hdg, c.mag, v.X, v.Y, c.x, c.y)
		}
	}
}
