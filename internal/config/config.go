// Package config loads and validates the gmv configuration from a YAML file
// with environment-variable overrides. Every value has a sensible default, so
// a config file is only needed to change behavior; most render settings can
// also be overridden per-run by CLI flags.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	Data     DataConfig     `mapstructure:"data"`
	Render   RenderConfig   `mapstructure:"render"`
	Encoder  EncoderConfig  `mapstructure:"encoder"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// DataConfig holds waveform and station-metadata input locations.
// StationXML and StationCSV are mutually exclusive; StationXML wins
// when both are set.
type DataConfig struct {
	Root       string `mapstructure:"root"`        // Directory searched recursively for waveform files
	StationXML string `mapstructure:"station_xml"` // Optional StationXML inventory
	StationCSV string `mapstructure:"station_csv"` // Optional flat coordinate table
}

// RenderConfig holds frame-synthesis and movie settings.
type RenderConfig struct {
	TimeStep  float64 `mapstructure:"time_step"`  // Seconds between frames
	FPS       int     `mapstructure:"fps"`        // Output movie frame rate
	Quality   int     `mapstructure:"quality"`    // 1 (low) .. 5 (high)
	Width     int     `mapstructure:"width"`      // Frame width in pixels
	Height    int     `mapstructure:"height"`     // Frame height in pixels
	MaxFrames int     `mapstructure:"max_frames"` // Frame-count ceiling
	MaxMemMB  int     `mapstructure:"max_mem_mb"` // Estimated-memory ceiling in MiB
}

// EncoderConfig holds video encoder settings.
type EncoderConfig struct {
	FFmpegPath string        `mapstructure:"ffmpeg_path"`
	Timeout    time.Duration `mapstructure:"timeout"` // Per-encode subprocess timeout
}

// CatalogConfig holds USGS earthquake catalog query configuration.
type CatalogConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	MinMagnitude   float64       `mapstructure:"min_magnitude"`
	StartYear      int           `mapstructure:"start_year"`
	MinLatitude    float64       `mapstructure:"min_latitude"`
	MaxLatitude    float64       `mapstructure:"max_latitude"`
	MinLongitude   float64       `mapstructure:"min_longitude"`
	MaxLongitude   float64       `mapstructure:"max_longitude"`
}

// BatchConfig holds per-quake orchestration settings for batch mode.
type BatchConfig struct {
	Label        string        `mapstructure:"label"`         // Output filename label, e.g. "OKlocal"
	OutputDir    string        `mapstructure:"output_dir"`    // Directory for rendered movies
	Lead         time.Duration `mapstructure:"lead"`          // Window starts this long before origin time
	Duration     time.Duration `mapstructure:"duration"`      // Window length from window start
	DelayBetween time.Duration `mapstructure:"delay_between"` // Pause between consecutive quakes
}

// StorageConfig holds render-history persistence configuration.
type StorageConfig struct {
	HistoryPath string `mapstructure:"history_path"` // JSON render-history file
	MaxRecords  int    `mapstructure:"max_records"`  // Oldest records rotate out beyond this
}

// TelegramConfig holds Telegram notification configuration.
type TelegramConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from an optional file plus environment variables.
// An empty path loads defaults and environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("GMV")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	// Render defaults
	v.SetDefault("render.time_step", 1.0)
	v.SetDefault("render.fps", 10)
	v.SetDefault("render.quality", 3)
	v.SetDefault("render.width", 1000)
	v.SetDefault("render.height", 600)
	v.SetDefault("render.max_frames", 10000)
	v.SetDefault("render.max_mem_mb", 4096)

	// Encoder defaults
	v.SetDefault("encoder.ffmpeg_path", "ffmpeg")
	v.SetDefault("encoder.timeout", "30m")

	// Catalog defaults (Oklahoma region, matching the batch use case)
	v.SetDefault("catalog.base_url", "https://earthquake.usgs.gov/fdsnws/event/1")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.max_retries", 3)
	v.SetDefault("catalog.retry_delay_base", "1s")
	v.SetDefault("catalog.min_magnitude", 4.5)
	v.SetDefault("catalog.start_year", 2010)
	v.SetDefault("catalog.min_latitude", 33.6)
	v.SetDefault("catalog.max_latitude", 37.0)
	v.SetDefault("catalog.min_longitude", -103.0)
	v.SetDefault("catalog.max_longitude", -94.4)

	// Batch defaults
	v.SetDefault("batch.label", "local")
	v.SetDefault("batch.output_dir", ".")
	v.SetDefault("batch.lead", "10s")
	v.SetDefault("batch.duration", "10m")
	v.SetDefault("batch.delay_between", "5s")

	// Storage defaults
	v.SetDefault("storage.history_path", "./data/render-history.json")
	v.SetDefault("storage.max_records", 1000)

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are valid.
func (c *Config) Validate() error {
	// Validate Render config
	if c.Render.TimeStep <= 0 {
		return fmt.Errorf("render.time_step must be positive")
	}
	if c.Render.FPS < 1 {
		return fmt.Errorf("render.fps must be at least 1")
	}
	if c.Render.Quality < 1 || c.Render.Quality > 5 {
		return fmt.Errorf("render.quality must be between 1 and 5")
	}
	if c.Render.Width < 100 || c.Render.Height < 100 {
		return fmt.Errorf("render.width and render.height must be at least 100 pixels")
	}
	if c.Render.MaxFrames < 1 {
		return fmt.Errorf("render.max_frames must be at least 1")
	}
	if c.Render.MaxMemMB < 1 {
		return fmt.Errorf("render.max_mem_mb must be at least 1")
	}

	// Validate Encoder config
	if c.Encoder.FFmpegPath == "" {
		return fmt.Errorf("encoder.ffmpeg_path is required")
	}

	// Validate Catalog config
	if c.Catalog.BaseURL == "" {
		return fmt.Errorf("catalog.base_url is required")
	}
	if c.Catalog.MinLatitude >= c.Catalog.MaxLatitude {
		return fmt.Errorf("catalog.min_latitude must be below catalog.max_latitude")
	}
	if c.Catalog.MinLongitude >= c.Catalog.MaxLongitude {
		return fmt.Errorf("catalog.min_longitude must be below catalog.max_longitude")
	}
	if c.Catalog.StartYear < 1900 {
		return fmt.Errorf("catalog.start_year must be 1900 or later")
	}

	// Validate Batch config
	if c.Batch.Label == "" {
		return fmt.Errorf("batch.label is required")
	}
	if c.Batch.Duration <= 0 {
		return fmt.Errorf("batch.duration must be positive")
	}
	if c.Batch.Lead < 0 {
		return fmt.Errorf("batch.lead must not be negative")
	}

	// Validate Storage config
	if c.Storage.HistoryPath == "" {
		return fmt.Errorf("storage.history_path is required")
	}
	if c.Storage.MaxRecords < 1 {
		return fmt.Errorf("storage.max_records must be at least 1")
	}

	// Validate Telegram config
	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token is required when telegram is enabled")
		}
		if c.Telegram.ChatID == "" {
			return fmt.Errorf("telegram.chat_id is required when telegram is enabled")
		}
	}

	// Validate Logging config
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, text")
	}

	return nil
}
