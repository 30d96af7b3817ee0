package physics

import (
	"math"
	"time"

	"github.com/westphae/geomag/pkg/egm96"
	"github.com/westphae/geomag/pkg/wmm"
)

// Constants
const (
	P0          = 1013.25  // Standard Sea Level Pressure (hPa)
	ScaleHeight = 44330.0  // Barometric scale height (m)
	BaroExp     = 5.255    // Barometric exponent g/(R*L)
	FtToM       = 0.3048   // Conversion factor from feet to meters
	KnotsToMs   = 0.514444 // Conversion factor from Knots to m/s
	MsToKnots   = 1.94384  // Conversion factor from m/s to Knots
)

// Vector2D represents a 2D velocity vector
type Vector2D struct {
	X float64 // East component
	Y float64 // North component
}

// HeadingToVector decomposes a magnitude along a compass heading (degrees
// from north) into east/north components.
func HeadingToVector(headingDeg, magnitude float64) Vector2D {
	rad := headingDeg * math.Pi / 180
	return Vector2D{
		X: magnitude * math.Sin(rad),
		Y: magnitude * math.Cos(rad),
	}
}

// PressureFromAltitude converts altitude in meters to pressure in hPa
// using the barometric formula P = P0 * (1 - h/44330)^5.255.
// Altitudes at or above the scale height map to 0.
func PressureFromAltitude(altM float64) float64 {
	if altM < 0 {
		altM = 0
	}
	if altM >= ScaleHeight {
		return 0
	}
	return P0 * math.Pow(1-altM/ScaleHeight, BaroExp)
}

// TrueAirspeed computes the magnitude of the air-relative velocity given
// ground speed, heading (degrees from north) and the wind vector.
// Ground speed and wind components must share a unit.
func TrueAirspeed(gs, headingDeg, windU, windV float64) float64 {
	ground := HeadingToVector(headingDeg, gs)
	dx := ground.X - windU
	dy := ground.Y - windV
	return math.Sqrt(dx*dx + dy*dy)
}

// MagneticDeclination returns the magnetic declination in degrees
// (+East, -West) for a position and date, from the WMM model.
// Returns 0 if the model evaluation fails.
func MagneticDeclination(lat, lon, altM float64, date time.Time) float64 {
	loc := egm96.NewLocationGeodetic(lat, lon, altM)
	mag, err := wmm.CalculateWMMMagneticField(loc, date)
	if err != nil {
		return 0.0
	}
	return mag.D()
}
