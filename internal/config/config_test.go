package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
[pipeline]
trajectory_dir = "data/in"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "console" {
		t.Errorf("logging defaults: %+v", cfg.Logging)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Pipeline.AltitudeUnit != "ft" {
		t.Errorf("altitude unit = %q, want ft", cfg.Pipeline.AltitudeUnit)
	}
	if cfg.Met.Retry.MaxAttempts != 3 || cfg.Met.Retry.BaseDelayMs != 2000 {
		t.Errorf("met retry defaults: %+v", cfg.Met.Retry)
	}
	if len(cfg.Met.PressureLevels) == 0 {
		t.Error("pressure levels default not applied")
	}
	if cfg.Model.RhiAdj != 0.99 {
		t.Errorf("rhi_adj = %v, want 0.99", cfg.Model.RhiAdj)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate on defaults: %v", err)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
[logging]
level = "debug"
format = "json"

[model]
saf_pct_blend = 30.0

[met.retry]
max_attempts = 5
base_delay_ms = 100
max_delay_ms = 2000
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("logging overrides lost: %+v", cfg.Logging)
	}
	if cfg.Model.SAFPctBlend != 30.0 {
		t.Errorf("saf_pct_blend = %v, want 30", cfg.Model.SAFPctBlend)
	}
	if cfg.Met.Retry.MaxAttempts != 5 || cfg.Met.Retry.MaxDelayMs != 2000 {
		t.Errorf("met retry overrides lost: %+v", cfg.Met.Retry)
	}
}

func TestLoadExplicitZeroRhiAdj(t *testing.T) {
	path := writeConfig(t, `
[model]
rhi_adj = 0.0
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// An explicit zero disables humidity scaling, it is not "unset"
	if cfg.Model.RhiAdj != 0 {
		t.Errorf("rhi_adj = %v, want 0", cfg.Model.RhiAdj)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"bad altitude unit", func(c *Config) { c.Pipeline.AltitudeUnit = "furlongs" }},
		{"bad groundspeed unit", func(c *Config) { c.Airspeed.GroundspeedUnit = "mph" }},
		{"blend above 100", func(c *Config) { c.Model.SAFPctBlend = 150 }},
		{"zero retry attempts", func(c *Config) { c.Met.Retry.MaxAttempts = 0 }},
		{"negative pressure level", func(c *Config) { c.Met.PressureLevels = []int{-100} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, ""))
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
