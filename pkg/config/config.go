// Package config loads Meadow settings from YAML.
package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/chazu/meadow/pkg/scatter"
	"github.com/chazu/meadow/pkg/scene"
	"gopkg.in/yaml.v3"
)

// Config holds all settings for the app and the CLI.
type Config struct {
	// Scatter holds the defaults a (scatter ...) form starts from.
	Scatter Scatter `yaml:"scatter"`
	// Scene tunes ray and overlap queries.
	Scene Scene `yaml:"scene"`
	// Mesh controls tessellation.
	Mesh Mesh `yaml:"mesh"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

// Scatter mirrors scatter.Config with YAML names plus the random seed.
type Scatter struct {
	Count       int     `yaml:"count"`
	MinScale    float64 `yaml:"min_scale"`
	MaxScale    float64 `yaml:"max_scale"`
	CheckRadius float64 `yaml:"check_radius"`
	MinDistance float64 `yaml:"min_distance"`
	MaxAttempts int     `yaml:"max_attempts"`
	Clearance   float64 `yaml:"clearance"`
	Seed        uint64  `yaml:"seed"`
}

// Scene mirrors scene.Options.
type Scene struct {
	RayEpsilon     float64 `yaml:"ray_epsilon"`
	MaxRaySteps    int     `yaml:"max_ray_steps"`
	MaxRayDistance float64 `yaml:"max_ray_distance"`
}

// Mesh controls tessellation.
type Mesh struct {
	// Cells is the marching cubes resolution along a body's longest axis.
	Cells int `yaml:"cells"`
	// Workers bounds concurrent tessellation. Zero means one per CPU.
	Workers int `yaml:"workers"`
}

// Default returns Config with the stock settings.
func Default() Config {
	sc := scatter.DefaultConfig()
	so := scene.DefaultOptions()
	return Config{
		Scatter: Scatter{
			Count:       sc.Count,
			MinScale:    sc.MinScale,
			MaxScale:    sc.MaxScale,
			CheckRadius: sc.CollisionRadius,
			MinDistance: sc.MinSpacing,
			MaxAttempts: sc.MaxAttemptsPerItem,
			Clearance:   sc.Clearance,
			Seed:        1,
		},
		Scene: Scene{
			RayEpsilon:     so.RayEpsilon,
			MaxRaySteps:    so.MaxRaySteps,
			MaxRayDistance: so.MaxRayDistance,
		},
		Mesh: Mesh{
			Cells: 48,
		},
		LogLevel: "info",
	}
}

// Load reads config from a YAML file on top of Default.
// If the file doesn't exist, returns defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Scatter.Config().Validate(); err != nil {
		return err
	}
	if c.Scene.RayEpsilon < 0 || c.Scene.MaxRaySteps < 0 || c.Scene.MaxRayDistance < 0 {
		return fmt.Errorf("scene options must not be negative")
	}
	if c.Mesh.Cells < 0 || c.Mesh.Workers < 0 {
		return fmt.Errorf("mesh options must not be negative")
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	return nil
}

// Config converts to the placer's configuration.
func (s Scatter) Config() scatter.Config {
	return scatter.Config{
		Count:              s.Count,
		MinScale:           s.MinScale,
		MaxScale:           s.MaxScale,
		CollisionRadius:    s.CheckRadius,
		MinSpacing:         s.MinDistance,
		MaxAttemptsPerItem: s.MaxAttempts,
		Clearance:          s.Clearance,
	}
}

// Options converts to scene query options.
func (s Scene) Options() scene.Options {
	return scene.Options{
		RayEpsilon:     s.RayEpsilon,
		MaxRaySteps:    s.MaxRaySteps,
		MaxRayDistance: s.MaxRayDistance,
	}
}

// Level maps LogLevel to a slog level. Unknown values map to info.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
