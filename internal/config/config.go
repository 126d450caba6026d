// Package config handles application configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/gazescroll/internal/gesture"
)

const (
	appDir         = ".gazescroll"
	configFileName = "config.json"
	dbFileName     = "gazescroll.db"
)

// Executor names.
const (
	ExecutorRobotgo = "robotgo"
	ExecutorPlugin  = "plugin"
)

// Config represents the application configuration.
type Config struct {
	CameraID  int    `json:"camera_id"`
	Addr      string `json:"addr"`
	StaticDir string `json:"static_dir,omitempty"`
	PluginDir string `json:"plugin_dir,omitempty"`
	DBPath    string `json:"db_path,omitempty"`

	// Executor selects how scroll keys are pressed: robotgo or plugin.
	Executor string `json:"executor"`

	// Preview shows the overlay in a local window instead of the tray.
	Preview bool `json:"preview"`

	FrameIntervalMs     int     `json:"frame_interval_ms"`
	CalibrationDelayMs  int     `json:"calibration_delay_ms"`
	DeadZone            float64 `json:"dead_zone"`
	SensitivityDeadZone bool    `json:"sensitivity_dead_zone"`

	// HistoryDays is how long fired scroll events are kept; 0 keeps them forever.
	HistoryDays int `json:"history_days"`

	Hotkeys  bool   `json:"hotkeys"`
	LogLevel string `json:"log_level"`

	path string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		CameraID:           0,
		Addr:               "127.0.0.1:8765",
		Executor:           ExecutorRobotgo,
		FrameIntervalMs:    10,
		CalibrationDelayMs: int(gesture.DefaultCalibrationDelay / time.Millisecond),
		DeadZone:           gesture.DefaultDeadZone,
		HistoryDays:        30,
		Hotkeys:            true,
		LogLevel:           "info",
	}
}

// Dir returns the application directory under the user's home.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, appDir), nil
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load loads configuration from path, or from DefaultPath when path is empty.
// Returns the default config if the file doesn't exist. Fields missing from
// the file keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("get config path: %w", err)
		}
		path = p
	}

	cfg := Default()
	cfg.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save persists the configuration to the path it was loaded from.
func (c *Config) Save() error {
	if c.path == "" {
		p, err := DefaultPath()
		if err != nil {
			return fmt.Errorf("get config path: %w", err)
		}
		c.path = p
	}

	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(c.path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Path returns the file the config is read from and saved to.
func (c *Config) Path() string {
	return c.path
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Executor {
	case ExecutorRobotgo, ExecutorPlugin:
	case "":
		c.Executor = ExecutorRobotgo
	default:
		return fmt.Errorf("invalid executor %q: want %s or %s", c.Executor, ExecutorRobotgo, ExecutorPlugin)
	}
	if c.FrameIntervalMs <= 0 {
		c.FrameIntervalMs = Default().FrameIntervalMs
	}
	if c.CalibrationDelayMs <= 0 {
		c.CalibrationDelayMs = Default().CalibrationDelayMs
	}
	if c.DeadZone < 0 {
		return fmt.Errorf("invalid dead_zone %v: must not be negative", c.DeadZone)
	}
	if c.HistoryDays < 0 {
		return fmt.Errorf("invalid history_days %d: must not be negative", c.HistoryDays)
	}
	if c.Addr == "" {
		c.Addr = Default().Addr
	}
	return nil
}

// FrameInterval returns the loop tick period.
func (c *Config) FrameInterval() time.Duration {
	return time.Duration(c.FrameIntervalMs) * time.Millisecond
}

// CalibrationDelay returns the wait between a calibration request and the read.
func (c *Config) CalibrationDelay() time.Duration {
	return time.Duration(c.CalibrationDelayMs) * time.Millisecond
}

// HistoryRetention returns how long scroll events are kept, zero for forever.
func (c *Config) HistoryRetention() time.Duration {
	return time.Duration(c.HistoryDays) * 24 * time.Hour
}

// ResolveDBPath returns DBPath or the default database file next to the config.
func (c *Config) ResolveDBPath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbFileName), nil
}

// ResolvePluginDir returns PluginDir or the plugins directory next to the config.
func (c *Config) ResolvePluginDir() (string, error) {
	if c.PluginDir != "" {
		return c.PluginDir, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "plugins"), nil
}

// DetectorConfig returns the gesture detector options.
func (c *Config) DetectorConfig() gesture.Config {
	return gesture.Config{
		DeadZone:            c.DeadZone,
		SensitivityDeadZone: c.SensitivityDeadZone,
	}
}
