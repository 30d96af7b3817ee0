package model

import (
	"time"

	"github.com/wsilva/contrail/internal/fuel"
)

// Config represents the model service configuration
type Config struct {
	BaseURL               string  `toml:"base_url"`
	RequestTimeoutSeconds int     `toml:"request_timeout_seconds"`
	MaxRetries            int     `toml:"max_retries"`
	DtIntegrationMinutes  int     `toml:"dt_integration_minutes"`
	RhiAdj                float64 `toml:"rhi_adj"`
	SAFPctBlend           float64 `toml:"saf_pct_blend"`
}

// DefaultConfig returns the default model service configuration.
// The humidity scaling factor follows the Teoh (2020, 2022) adjustment.
func DefaultConfig() Config {
	return Config{
		RequestTimeoutSeconds: 300,
		MaxRetries:            2,
		DtIntegrationMinutes:  10,
		RhiAdj:                0.99,
		SAFPctBlend:           0,
	}
}

// WaypointInput is one trajectory sample sent to the model service.
// Speed fields are pointers because either may be absent for a
// waypoint, and JSON cannot carry NaN.
type WaypointInput struct {
	Time         time.Time `json:"time"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	AltitudeM    float64   `json:"altitude"`
	TrueAirspeed *float64  `json:"true_airspeed,omitempty"`
	Groundspeed  *float64  `json:"groundspeed,omitempty"`
}

// FlightInput is the per-flight payload shared by both model endpoints
type FlightInput struct {
	FlightID     string          `json:"flight_id"`
	AircraftType string          `json:"aircraft_type"`
	WingspanM    float64         `json:"wingspan"`
	NvpmEiN      float64         `json:"nvpm_ei_n"`
	Waypoints    []WaypointInput `json:"waypoints"`
}

// CocipRequest asks for a full contrail evaluation of one flight
type CocipRequest struct {
	FlightInput
	DtIntegrationMinutes int             `json:"dt_integration_minutes"`
	RhiAdj               float64         `json:"rhi_adj"`
	Fuel                 fuel.Properties `json:"fuel"`
}

// PerformanceOutput is the per-waypoint result of the performance model
type PerformanceOutput struct {
	EngineEfficiency []float64 `json:"engine_efficiency"`
	FuelFlow         []float64 `json:"fuel_flow"`
	AircraftMass     []float64 `json:"aircraft_mass"`
}

// WaypointResult is one per-waypoint row of the contrail evaluation
type WaypointResult struct {
	EF          float64 `json:"ef"`
	RFSWMean    float64 `json:"rf_sw_mean"`
	RFLWMean    float64 `json:"rf_lw_mean"`
	RFNetMean   float64 `json:"rf_net_mean"`
	ContrailAge float64 `json:"contrail_age"`
	RHI         float64 `json:"rhi"`
	SAC         float64 `json:"sac"`
}

// FlightSummary is the per-flight aggregate the model service reports
type FlightSummary struct {
	FlightID            string    `json:"flight_id"`
	Callsign            string    `json:"callsign,omitempty"`
	ICAO24              string    `json:"icao24,omitempty"`
	Date                time.Time `json:"date,omitempty"`
	TotalEnergyForcing  float64   `json:"total_energy_forcing"`
	TotalDistanceFlownM float64   `json:"total_flight_distance_flown"`
	MeanLifetimeRFNet   float64   `json:"mean_lifetime_rf_net"`
	MeanLifetimeRFSW    float64   `json:"mean_lifetime_rf_sw"`
	MeanLifetimeRFLW    float64   `json:"mean_lifetime_rf_lw"`
}

// CocipOutput is the full contrail evaluation of one flight
type CocipOutput struct {
	ContrailFormed bool             `json:"contrail_formed"`
	Waypoints      []WaypointResult `json:"waypoints"`
	Summary        FlightSummary    `json:"summary"`
}

// serviceError is how the model service reports evaluation failures
type serviceError struct {
	Error string `json:"error"`
}
