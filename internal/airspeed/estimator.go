// Package airspeed derives per-waypoint true airspeed from ground speed,
// heading and a reanalysis wind field.
package airspeed

import (
	"math"
	"time"

	"github.com/wsilva/contrail/internal/physics"
	"github.com/wsilva/contrail/internal/trajectory"
	"github.com/wsilva/contrail/pkg/logger"
)

// WindField yields wind components at a point. Lookup failures must be
// reported as errors, never as fabricated values.
type WindField interface {
	Nearest(t time.Time, lat, lon, pressureHPa float64) (u, v float64, err error)
}

// Config represents the estimator configuration
type Config struct {
	// GroundspeedUnit is the unit of the groundspeed column: "kt" or "ms".
	// Wind components are always m/s, so knots are converted before the
	// vector subtraction.
	GroundspeedUnit string `toml:"groundspeed_unit"`

	// MagneticHeadings enables WMM declination correction for sources
	// that report magnetic rather than true heading
	MagneticHeadings bool `toml:"magnetic_headings"`
}

// Estimator computes true airspeed for flights
type Estimator struct {
	config Config
	logger *logger.Logger
}

// NewEstimator creates a true-airspeed estimator
func NewEstimator(config Config, log *logger.Logger) *Estimator {
	if config.GroundspeedUnit == "" {
		config.GroundspeedUnit = "kt"
	}
	return &Estimator{config: config, logger: log.Named("airspeed")}
}

// Estimate fills PressureHPa, UWind, VWind and TrueAirspeed on every
// waypoint of the flight, in place. A failed wind lookup yields NaN wind
// and NaN airspeed for that waypoint; the rest of the flight proceeds.
func (e *Estimator) Estimate(f *trajectory.Flight, wind WindField) {
	var failures int
	for i := range f.Waypoints {
		wp := &f.Waypoints[i]
		wp.PressureHPa = physics.PressureFromAltitude(wp.AltitudeM)

		u, v, err := wind.Nearest(wp.Time, wp.Latitude, wp.Longitude, wp.PressureHPa)
		if err != nil {
			failures++
			wp.UWind = math.NaN()
			wp.VWind = math.NaN()
			wp.TrueAirspeed = math.NaN()
			continue
		}
		wp.UWind = u
		wp.VWind = v

		gs := wp.Groundspeed
		if e.config.GroundspeedUnit == "kt" {
			gs *= physics.KnotsToMs
		}
		heading := wp.Heading
		if e.config.MagneticHeadings {
			heading += physics.MagneticDeclination(wp.Latitude, wp.Longitude, wp.AltitudeM, wp.Time)
		}
		wp.TrueAirspeed = physics.TrueAirspeed(gs, heading, u, v)
	}

	if failures > 0 {
		e.logger.Warn("Wind lookups failed for some waypoints",
			logger.String("flight_id", f.ID),
			logger.Int("failed", failures),
			logger.Int("total", len(f.Waypoints)))
	}
}
