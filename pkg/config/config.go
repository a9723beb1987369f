// Package config provides configuration loading and management for
// modalityscan. It handles loading configuration from YAML files and provides
// default values.
//
// Only operational settings live here. The classifier weights and the 256
// pixel analysis canvas are part of the documented feature contract and are
// compile-time constants in their packages.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers caps the number of goroutines used for row-parallel
		// raster scans. Zero or negative means one per CPU.
		Workers int `yaml:"workers"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// PreprocessedFile names the normalized grayscale artifact.
		PreprocessedFile string `yaml:"preprocessedFile"`

		// HeatmapFile names the false-color variance map artifact.
		HeatmapFile string `yaml:"heatmapFile"`

		// OverlayFile names the heatmap-over-preprocessed composite.
		OverlayFile string `yaml:"overlayFile"`
	} `yaml:"output"`

	// Logging parameters
	Logging struct {
		// Debug enables verbose stage-level logging
		Debug bool `yaml:"debug"`
	} `yaml:"logging"`
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()

	cfg.Output.PreprocessedFile = "preprocessed.png"
	cfg.Output.HeatmapFile = "heatmap.png"
	cfg.Output.OverlayFile = "overlay.png"

	cfg.Logging.Debug = false

	return cfg
}

// LoadConfig loads configuration from a YAML file.
// If the file doesn't exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
