// Package config provides configuration management for ptyterm.
// It supports loading configuration from environment variables, config files, and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/kandev/ptyterm/internal/common/logger"
	"github.com/kandev/ptyterm/internal/terminal/grid"
)

// Config holds all configuration sections.
type Config struct {
	Terminal TerminalConfig `mapstructure:"terminal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// TerminalConfig holds settings for spawned terminal sessions.
type TerminalConfig struct {
	// Shell overrides the detected login shell. Empty means auto-detect.
	Shell     string   `mapstructure:"shell"`
	ShellArgs []string `mapstructure:"shellArgs"`
	WorkDir   string   `mapstructure:"workDir"`
	Term      string   `mapstructure:"term"`

	// Scrollback is the number of lines kept above the visible screen.
	Scrollback int `mapstructure:"scrollback"`

	// OptionAsMeta makes Option send ESC-prefixed keys on macOS.
	OptionAsMeta bool `mapstructure:"optionAsMeta"`

	CellWidth  float64 `mapstructure:"cellWidth"`
	LineHeight float64 `mapstructure:"lineHeight"`
	Width      float64 `mapstructure:"width"`
	Height     float64 `mapstructure:"height"`

	WheelLinesPerTick int     `mapstructure:"wheelLinesPerTick"`
	PixelsPerLine     float64 `mapstructure:"pixelsPerLine"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"outputPath"`
}

// TracingConfig holds the OTLP exporter settings. An empty endpoint disables tracing.
type TracingConfig struct {
	Endpoint    string  `mapstructure:"endpoint"`
	SampleRatio float64 `mapstructure:"sampleRatio"`
}

// Dimensions returns the initial grid geometry described by the config.
func (t *TerminalConfig) Dimensions() grid.Dimensions {
	return grid.Dimensions{
		CellWidth:  t.CellWidth,
		LineHeight: t.LineHeight,
		Bounds:     grid.Bounds{Width: t.Width, Height: t.Height},
	}
}

// Logger converts the section into the logger package's config.
func (l LoggingConfig) Logger() logger.LoggingConfig {
	return logger.LoggingConfig{Level: l.Level, Format: l.Format, OutputPath: l.OutputPath}
}

// setDefaults configures default values for all configuration options.
func setDefaults(v *viper.Viper) {
	def := grid.DefaultDimensions()

	v.SetDefault("terminal.shell", "")
	v.SetDefault("terminal.shellArgs", []string{})
	v.SetDefault("terminal.workDir", "")
	v.SetDefault("terminal.term", "xterm-256color")
	v.SetDefault("terminal.scrollback", 10000)
	v.SetDefault("terminal.optionAsMeta", false)
	v.SetDefault("terminal.cellWidth", def.CellWidth)
	v.SetDefault("terminal.lineHeight", def.LineHeight)
	v.SetDefault("terminal.width", def.Bounds.Width)
	v.SetDefault("terminal.height", def.Bounds.Height)
	v.SetDefault("terminal.wheelLinesPerTick", 3)
	v.SetDefault("terminal.pixelsPerLine", 20.0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", logger.DetectFormat())
	v.SetDefault("logging.outputPath", "stderr")

	v.SetDefault("tracing.endpoint", "")
	v.SetDefault("tracing.sampleRatio", 1.0)
}

// Load reads configuration from environment variables, config file, and defaults.
// Environment variables use the prefix PTYTERM_ (e.g. PTYTERM_TERMINAL_SCROLLBACK).
func Load() (*Config, error) {
	return LoadWithPath("")
}

// LoadWithPath reads configuration from the specified path or default locations.
func LoadWithPath(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("PTYTERM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv does not map camelCase keys to SNAKE_CASE.
	_ = v.BindEnv("terminal.optionAsMeta", "PTYTERM_TERMINAL_OPTION_AS_META")
	_ = v.BindEnv("terminal.workDir", "PTYTERM_TERMINAL_WORK_DIR")
	_ = v.BindEnv("logging.outputPath", "PTYTERM_LOGGING_OUTPUT_PATH")
	_ = v.BindEnv("tracing.endpoint", "PTYTERM_TRACING_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("tracing.sampleRatio", "PTYTERM_TRACING_SAMPLE_RATIO")

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "ptyterm"))
	}
	v.AddConfigPath("/etc/ptyterm/")

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Validate checks that configured values are usable.
func (c *Config) Validate() error {
	var errs []string

	t := c.Terminal
	if t.CellWidth <= 0 {
		errs = append(errs, "terminal.cellWidth must be positive")
	}
	if t.LineHeight <= 0 {
		errs = append(errs, "terminal.lineHeight must be positive")
	}
	if t.Width < 0 || t.Height < 0 {
		errs = append(errs, "terminal.width and terminal.height must not be negative")
	}
	if t.Scrollback < 0 {
		errs = append(errs, "terminal.scrollback must not be negative")
	}
	if t.WheelLinesPerTick <= 0 {
		errs = append(errs, "terminal.wheelLinesPerTick must be positive")
	}
	if t.PixelsPerLine <= 0 {
		errs = append(errs, "terminal.pixelsPerLine must be positive")
	}
	if t.WorkDir != "" {
		if info, err := os.Stat(t.WorkDir); err != nil || !info.IsDir() {
			errs = append(errs, "terminal.workDir must be an existing directory")
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, "logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "text": true, "console": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, "logging.format must be one of: json, text, console")
	}

	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, "tracing.sampleRatio must be between 0 and 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}
