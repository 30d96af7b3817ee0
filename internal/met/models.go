package met

import (
	"time"
)

// Config represents the met (reanalysis) service configuration
type Config struct {
	BaseURL               string        `toml:"base_url"`
	RequestTimeoutSeconds int           `toml:"request_timeout_seconds"`
	CacheDir              string        `toml:"cache_dir"`
	CacheExpiryMinutes    int           `toml:"cache_expiry_minutes"`
	PressureLevels        []int         `toml:"pressure_levels"`
	Retry                 BackoffPolicy `toml:"retry"`
}

// BackoffPolicy is a bounded exponential backoff schedule for retrying
// the reanalysis download
type BackoffPolicy struct {
	MaxAttempts int `toml:"max_attempts"`
	BaseDelayMs int `toml:"base_delay_ms"`
	MaxDelayMs  int `toml:"max_delay_ms"`
}

// Delay returns the backoff before the given retry attempt (1-based).
// Attempt 0 (the first try) has no delay.
func (p BackoffPolicy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	base := time.Duration(p.BaseDelayMs) * time.Millisecond
	max := time.Duration(p.MaxDelayMs) * time.Millisecond
	d := base << uint(attempt-1)
	if max > 0 && d > max {
		return max
	}
	return d
}

// DefaultConfig returns the default met configuration. The pressure
// levels cover the altitudes where contrails form.
func DefaultConfig() Config {
	return Config{
		RequestTimeoutSeconds: 60,
		CacheDir:              "data/met-cache",
		CacheExpiryMinutes:    12 * 60,
		PressureLevels: []int{
			900, 875, 850, 825, 800, 775, 750, 700, 650, 600, 550,
			500, 450, 400, 350, 300, 250, 225, 200, 175, 150, 125, 100,
		},
		Retry: BackoffPolicy{MaxAttempts: 3, BaseDelayMs: 2000, MaxDelayMs: 30000},
	}
}

// GridRequest describes the wind-field subset to fetch
type GridRequest struct {
	Start  time.Time `json:"start"`
	End    time.Time `json:"end"`
	LatMin float64   `json:"lat_min"`
	LatMax float64   `json:"lat_max"`
	LonMin float64   `json:"lon_min"`
	LonMax float64   `json:"lon_max"`
	Levels []int     `json:"levels"`
}

// gridPayload is the wire format of a fetched grid. Data arrays are
// indexed [time][level][lat][lon].
type gridPayload struct {
	Times      []time.Time     `json:"times"`
	Latitudes  []float64       `json:"latitudes"`
	Longitudes []float64       `json:"longitudes"`
	Levels     []int           `json:"levels"`
	UWind      [][][][]float64 `json:"eastward_wind"`
	VWind      [][][][]float64 `json:"northward_wind"`
	Temp       [][][][]float64 `json:"air_temperature,omitempty"`
}
