package config

import (
	"time"
)

// Config represents the complete server configuration
type Config struct {
	Trail    TrailConfig    `yaml:"trail"`
	Charts   ChartsConfig   `yaml:"charts"`
	Sessions SessionsConfig `yaml:"sessions"`
	Stream   StreamConfig   `yaml:"stream"`
}

// TrailConfig locates the offline-built trail data
type TrailConfig struct {
	// DataURL is the HTTP base the data files are published under. When
	// empty, files are read from DataDir.
	DataURL              string        `yaml:"data_url"`
	DataDir              string        `yaml:"data_dir"`
	POIRefreshInterval   time.Duration `yaml:"poi_refresh_interval"`
	CacheCleanupInterval time.Duration `yaml:"cache_cleanup_interval"`
}

// ChartsConfig sizes the rendered elevation charts
type ChartsConfig struct {
	DefaultWidth int `yaml:"default_width"`
	WideHeight   int `yaml:"wide_height"`
	NarrowHeight int `yaml:"narrow_height"`
	MaxWidth     int `yaml:"max_width"`
	MaxHeight    int `yaml:"max_height"`
}

// SessionsConfig controls live position sessions
type SessionsConfig struct {
	// MinMoveMeters drops GPS fixes closer than this to the previous fix
	MinMoveMeters float64       `yaml:"min_move_meters"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
}

// StreamConfig configures live event fan-out
type StreamConfig struct {
	// RedisAddr enables cross-instance relaying when set
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Trail: TrailConfig{
			DataDir:              "data",
			POIRefreshInterval:   30 * time.Minute,
			CacheCleanupInterval: 10 * time.Minute,
		},
		Charts: ChartsConfig{
			DefaultWidth: 800,
			WideHeight:   260,
			NarrowHeight: 220,
			MaxWidth:     2000,
			MaxHeight:    1000,
		},
		Sessions: SessionsConfig{
			MinMoveMeters: 10,
			IdleTimeout:   2 * time.Hour,
		},
	}
}

// ChartSize resolves a requested chart size, filling zero values from the
// defaults and capping at the maximums
func (c ChartsConfig) ChartSize(width, height int) (int, int) {
	if width <= 0 {
		width = c.DefaultWidth
	}
	if height <= 0 {
		height = c.WideHeight
		if width < 500 {
			height = c.NarrowHeight
		}
	}
	if c.MaxWidth > 0 && width > c.MaxWidth {
		width = c.MaxWidth
	}
	if c.MaxHeight > 0 && height > c.MaxHeight {
		height = c.MaxHeight
	}
	return width, height
}
