package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/wsilva/contrail/internal/airspeed"
	"github.com/wsilva/contrail/internal/met"
	"github.com/wsilva/contrail/internal/model"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Server     ServerConfig     `toml:"server"`      // HTTP results server settings
	Pipeline   PipelineConfig   `toml:"pipeline"`    // Input/output paths and stage settings
	AircraftDB AircraftDBConfig `toml:"aircraft_db"` // Aircraft metadata table paths
	Met        met.Config       `toml:"met"`         // Meteorology service settings
	Model      model.Config     `toml:"model"`       // External contrail model settings
	Airspeed   airspeed.Config  `toml:"airspeed"`    // True airspeed estimation settings
	Logging    LoggingConfig    `toml:"logging"`     // Application logging settings
	Storage    StorageConfig    `toml:"storage"`     // Data persistence settings
}

// ServerConfig contains HTTP server configuration settings
type ServerConfig struct {
	Port             int `toml:"port"`                  // HTTP port for the results server
	ReadTimeoutSecs  int `toml:"read_timeout_seconds"`  // Maximum duration for reading the entire request
	WriteTimeoutSecs int `toml:"write_timeout_seconds"` // Maximum duration for writing the response
	IdleTimeoutSecs  int `toml:"idle_timeout_seconds"`  // Keep-alive idle timeout
}

// PipelineConfig contains input/output paths and stage settings
type PipelineConfig struct {
	TrajectoryDir string `toml:"trajectory_dir"` // Directory of raw trajectory CSV files
	OutputDir     string `toml:"output_dir"`     // Directory for derived CSVs (TAS, results)
	AltitudeUnit  string `toml:"altitude_unit"`  // Unit of the altitude column: "ft" or "m"
	TASFile       string `toml:"tas_file"`       // Filename of the TAS-annotated CSV within output_dir
	ResultFile    string `toml:"result_file"`    // Filename of the cocip result CSV within output_dir
}

// AircraftDBConfig contains aircraft metadata table paths
type AircraftDBConfig struct {
	ICAO24Path string `toml:"icao24_path"` // CSV mapping icao24 addresses to ICAO type designators
	ParamsPath string `toml:"params_path"` // CSV mapping ICAO types to wingspan and nvPM parameters
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
}

// StorageConfig contains data persistence configuration
type StorageConfig struct {
	SQLitePath string `toml:"sqlite_path"` // Path to the SQLite database file
}

// Load loads the configuration from the given TOML file
func Load(path string) (*Config, error) {
	var config Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	md, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults(md)

	return &config, nil
}

// LoadWithFallback tries the preferred path first, then the standard
// locations
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,
		"configs/config.toml",
		"config.toml",
	}

	uniquePaths := make([]string, 0, len(searchPaths))
	seen := make(map[string]bool)
	for _, path := range searchPaths {
		if path != "" && !seen[path] {
			uniquePaths = append(uniquePaths, path)
			seen[path] = true
		}
	}

	var lastErr error
	for _, path := range uniquePaths {
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				lastErr = fmt.Errorf("failed to load config from %s: %w", path, err)
				continue
			}
			return config, nil
		}
		lastErr = fmt.Errorf("config file not found: %s", path)
	}

	return nil, fmt.Errorf("config file not found in any of the expected locations: %v. Last error: %w", uniquePaths, lastErr)
}

func (c *Config) applyDefaults(md toml.MetaData) {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "console"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Pipeline.AltitudeUnit == "" {
		c.Pipeline.AltitudeUnit = "ft"
	}
	if c.Pipeline.OutputDir == "" {
		c.Pipeline.OutputDir = "output"
	}
	if c.Pipeline.TASFile == "" {
		c.Pipeline.TASFile = "flights_tas.csv"
	}
	if c.Pipeline.ResultFile == "" {
		c.Pipeline.ResultFile = "cocip_results.csv"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "contrail.db"
	}

	metDefaults := met.DefaultConfig()
	if c.Met.BaseURL == "" {
		c.Met.BaseURL = metDefaults.BaseURL
	}
	if c.Met.RequestTimeoutSeconds == 0 {
		c.Met.RequestTimeoutSeconds = metDefaults.RequestTimeoutSeconds
	}
	if c.Met.CacheExpiryMinutes == 0 {
		c.Met.CacheExpiryMinutes = metDefaults.CacheExpiryMinutes
	}
	if len(c.Met.PressureLevels) == 0 {
		c.Met.PressureLevels = metDefaults.PressureLevels
	}
	if c.Met.Retry.MaxAttempts == 0 {
		c.Met.Retry = metDefaults.Retry
	}

	modelDefaults := model.DefaultConfig()
	if c.Model.BaseURL == "" {
		c.Model.BaseURL = modelDefaults.BaseURL
	}
	if c.Model.RequestTimeoutSeconds == 0 {
		c.Model.RequestTimeoutSeconds = modelDefaults.RequestTimeoutSeconds
	}
	if c.Model.MaxRetries == 0 {
		c.Model.MaxRetries = modelDefaults.MaxRetries
	}
	if c.Model.DtIntegrationMinutes == 0 {
		c.Model.DtIntegrationMinutes = modelDefaults.DtIntegrationMinutes
	}
	// An explicit rhi_adj = 0 is a valid setting (no humidity scaling),
	// so the default only applies when the key is absent
	if !md.IsDefined("model", "rhi_adj") {
		c.Model.RhiAdj = modelDefaults.RhiAdj
	}

	if c.Airspeed.GroundspeedUnit == "" {
		c.Airspeed.GroundspeedUnit = "kt"
	}
}

// Validate checks the configuration for invalid or inconsistent values
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging format: %s", c.Logging.Format)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	switch c.Pipeline.AltitudeUnit {
	case "ft", "m":
	default:
		return fmt.Errorf("invalid altitude unit: %s (expected \"ft\" or \"m\")", c.Pipeline.AltitudeUnit)
	}

	switch c.Airspeed.GroundspeedUnit {
	case "kt", "ms":
	default:
		return fmt.Errorf("invalid groundspeed unit: %s (expected \"kt\" or \"ms\")", c.Airspeed.GroundspeedUnit)
	}

	if c.Model.SAFPctBlend < 0 || c.Model.SAFPctBlend > 100 {
		return fmt.Errorf("invalid SAF blend percentage: %g", c.Model.SAFPctBlend)
	}

	if c.Met.Retry.MaxAttempts < 1 {
		return fmt.Errorf("met retry max_attempts must be at least 1")
	}

	for i, lvl := range c.Met.PressureLevels {
		if lvl <= 0 {
			return fmt.Errorf("invalid pressure level at index %d: %d", i, lvl)
		}
	}

	return nil
}
