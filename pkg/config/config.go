// Package config provides configuration loading and management for axonatlas.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"axonatlas/internal/models"
	"axonatlas/pkg/colormap"
	"axonatlas/pkg/density"
	"axonatlas/pkg/segmentation"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Viewer parameters
	Viewer struct {
		// View is the plane the viewer starts on
		View models.Axis `yaml:"view"`

		// Palette is the colormap newly loaded volumes start with
		Palette colormap.Palette `yaml:"palette"`

		// Opacity is the opacity newly loaded volumes start with
		Opacity float64 `yaml:"opacity"`

		// Workers bounds how many volumes are rendered concurrently
		Workers int `yaml:"workers"`

		// AutoWindow sets the initial brightness window to these percentiles
		// of the data instead of its full range. Empty keeps the full range.
		AutoWindow []float64 `yaml:"autoWindow,omitempty"`
	} `yaml:"viewer"`

	// Density heatmap parameters
	Density struct {
		// KernelSize is the side of the counting cube in voxels; it must be odd
		KernelSize int `yaml:"kernelSize"`

		// VoxelSize is the mask resolution in microns
		VoxelSize float64 `yaml:"voxelSize"`

		// Palette is the heatmap colormap
		Palette colormap.Palette `yaml:"palette"`

		// OutputDir receives the xy, yz and xz stacks
		OutputDir string `yaml:"outputDir"`
	} `yaml:"density"`

	// Segmentation program parameters
	Segmentation struct {
		// Command is the program to run
		Command string `yaml:"command"`

		// Args are passed before the input directories
		Args []string `yaml:"args"`

		// InputPrefix names the prepared input directories
		InputPrefix string `yaml:"inputPrefix"`
	} `yaml:"segmentation"`

	// Output parameters
	Output struct {
		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	Log LogConfig `yaml:"log"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default viewer parameters
	cfg.Viewer.View = models.NewViewState().Axis
	cfg.Viewer.Palette = colormap.Viridis
	cfg.Viewer.Opacity = 1.0
	cfg.Viewer.Workers = runtime.NumCPU() // Use all available cores by default

	// Set default density parameters
	dp := density.DefaultParams()
	cfg.Density.KernelSize = dp.KernelSize
	cfg.Density.VoxelSize = dp.VoxelSize
	cfg.Density.Palette = dp.Palette
	cfg.Density.OutputDir = dp.OutputDir

	// Set default segmentation parameters
	cfg.Segmentation.Command = "python3"
	cfg.Segmentation.Args = []string{"TRAILMAP/segment_brain_batch.py"}
	cfg.Segmentation.InputPrefix = segmentation.DefaultPrefix

	// Set default output parameters
	cfg.Output.Verbose = true

	// Set default log parameters
	cfg.Log.MaxSize = 100
	cfg.Log.MaxAge = 28

	return cfg
}

// Validate checks values a YAML file can get wrong.
func (c *Config) Validate() error {
	if c.Viewer.Opacity < 0 || c.Viewer.Opacity > 1 {
		return fmt.Errorf("viewer.opacity %g not in [0, 1]", c.Viewer.Opacity)
	}
	if n := len(c.Viewer.AutoWindow); n != 0 && n != 2 {
		return fmt.Errorf("viewer.autoWindow needs two percentiles, got %d", n)
	}
	if k := c.Density.KernelSize; k <= 0 || k%2 == 0 {
		return fmt.Errorf("density.kernelSize %d: %w", k, models.ErrInvalidKernel)
	}
	if c.Segmentation.Command == "" {
		return fmt.Errorf("segmentation.command is empty")
	}
	return nil
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
