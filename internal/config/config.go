// Package config handles configuration management using Viper
package config

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/spf13/viper"
)

// Config represents the compositor configuration
type Config struct {
	// Compositor-wide settings
	Compositor CompositorConfig `mapstructure:"compositor"`

	// Outputs to create on the headless backend. Empty means one
	// default output.
	Outputs []OutputConfig `mapstructure:"outputs"`

	// Input device settings
	Input InputConfig `mapstructure:"input"`

	// Logging configuration
	Logging LoggingConfig `mapstructure:"logging"`
}

// CompositorConfig contains compositor-wide settings
type CompositorConfig struct {
	// Display is the socket name clients and wayward-ctl use.
	Display string `mapstructure:"display"`
	// FrameRate is the composition tick rate in frames per second.
	FrameRate int `mapstructure:"frame_rate"`
	// ClearColor is the background color as #RRGGBB.
	ClearColor string `mapstructure:"clear_color"`
	// Decorations picks who draws window frames: "client" or "server".
	Decorations string `mapstructure:"decorations"`
}

// OutputConfig describes one virtual output
type OutputConfig struct {
	Name   string  `mapstructure:"name"`
	Width  int     `mapstructure:"width"`
	Height int     `mapstructure:"height"`
	X      int     `mapstructure:"x"`
	Y      int     `mapstructure:"y"`
	Scale  float64 `mapstructure:"scale"`
}

// InputConfig contains seat and device settings
type InputConfig struct {
	// Seat is the seat name advertised to clients.
	Seat string `mapstructure:"seat"`
	// RepeatRate is key repeats per second.
	RepeatRate int `mapstructure:"repeat_rate"`
	// RepeatDelay is milliseconds before key repeat starts.
	RepeatDelay int `mapstructure:"repeat_delay"`
	// FocusFollowsMouse gives keyboard focus on pointer enter instead
	// of on click.
	FocusFollowsMouse bool `mapstructure:"focus_follows_mouse"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	FileLogging bool   `mapstructure:"file_logging"` // Enable/disable file logging
	LogLevel    string `mapstructure:"log_level"`    // Override WAYWARD_LOG env var
}

var (
	// DefaultConfig provides sensible defaults
	DefaultConfig = Config{
		Compositor: CompositorConfig{
			Display:     "wayward-0",
			FrameRate:   60,
			ClearColor:  "#10141a",
			Decorations: "client",
		},
		Outputs: []OutputConfig{},
		Input: InputConfig{
			Seat:              "seat0",
			RepeatRate:        25,
			RepeatDelay:       400,
			FocusFollowsMouse: false,
		},
		Logging: LoggingConfig{
			FileLogging: true,
			LogLevel:    "",
		},
	}

	// Global config instance
	cfg *Config

	// Override config path if set
	configPathOverride string
)

// SetConfigPath allows overriding the config path
func SetConfigPath(path string) {
	configPathOverride = path
}

// Init initializes the configuration system
func Init() error {
	viper.SetConfigName("wayward")
	viper.SetConfigType("toml")

	// If a specific path is set, use only that
	if configPathOverride != "" {
		viper.SetConfigFile(configPathOverride)
	} else {
		viper.AddConfigPath("/etc/wayward")
		viper.AddConfigPath(filepath.Join(xdg.ConfigHome, "wayward"))
		viper.AddConfigPath(".")
	}

	// Set defaults - need to set individual fields for proper merging
	viper.SetDefault("compositor.display", DefaultConfig.Compositor.Display)
	viper.SetDefault("compositor.frame_rate", DefaultConfig.Compositor.FrameRate)
	viper.SetDefault("compositor.clear_color", DefaultConfig.Compositor.ClearColor)
	viper.SetDefault("compositor.decorations", DefaultConfig.Compositor.Decorations)

	viper.SetDefault("outputs", DefaultConfig.Outputs)

	viper.SetDefault("input.seat", DefaultConfig.Input.Seat)
	viper.SetDefault("input.repeat_rate", DefaultConfig.Input.RepeatRate)
	viper.SetDefault("input.repeat_delay", DefaultConfig.Input.RepeatDelay)
	viper.SetDefault("input.focus_follows_mouse", DefaultConfig.Input.FocusFollowsMouse)

	viper.SetDefault("logging.file_logging", DefaultConfig.Logging.FileLogging)
	viper.SetDefault("logging.log_level", DefaultConfig.Logging.LogLevel)

	// Read config file if it exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	return nil
}

// Get returns the current configuration
func Get() *Config {
	if cfg == nil {
		// Return defaults if not initialized
		return &DefaultConfig
	}
	return cfg
}

// Set sets the current configuration (for testing)
func Set(c *Config) {
	cfg = c
}

// Save saves the current configuration to file
func Save() error {
	configPath := GetConfigPath()

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// GetConfigPath returns the path to the config file
func GetConfigPath() string {
	if configPathOverride != "" {
		return configPathOverride
	}

	if viper.ConfigFileUsed() != "" {
		return viper.ConfigFileUsed()
	}

	return filepath.Join(xdg.ConfigHome, "wayward", "wayward.toml")
}

// BackgroundColor parses the clear color, falling back to the default
// background on malformed input.
func (c CompositorConfig) BackgroundColor() color.NRGBA {
	fallback := color.NRGBA{R: 0x10, G: 0x14, B: 0x1a, A: 0xff}

	s := strings.TrimPrefix(c.ClearColor, "#")
	if len(s) != 6 {
		return fallback
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return fallback
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

// FrameInterval converts the frame rate into a tick interval.
func (c CompositorConfig) FrameInterval() time.Duration {
	rate := c.FrameRate
	if rate <= 0 {
		rate = DefaultConfig.Compositor.FrameRate
	}
	return time.Second / time.Duration(rate)
}

// SocketPath returns the control socket path for the given display
// name, under the user's runtime directory.
func SocketPath(display string) string {
	if display == "" {
		display = DefaultConfig.Compositor.Display
	}
	return filepath.Join(xdg.RuntimeDir, display+".sock")
}
