package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	LogLevel string       `mapstructure:"log_level"`
	Audio    AudioConfig  `mapstructure:"audio"`
	Stream   StreamConfig `mapstructure:"stream"`

	path string
}

type AudioConfig struct {
	InputDevice  int `mapstructure:"input_device"`
	OutputDevice int `mapstructure:"output_device"`
	FrameLength  int `mapstructure:"frame_length"` // frames per callback
	SampleRate   int `mapstructure:"sample_rate"`
	Channels     int `mapstructure:"channels"` // 1 or 2
}

type StreamConfig struct {
	Duration        time.Duration `mapstructure:"duration"` // 0 streams until stopped
	CaptureDuration time.Duration `mapstructure:"capture_duration"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	AutoTiming      bool          `mapstructure:"auto_timing"`
	PrintWhenDone   bool          `mapstructure:"print_when_done"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("audio.input_device", 1)
	v.SetDefault("audio.output_device", 4)
	v.SetDefault("audio.frame_length", 1024)
	v.SetDefault("audio.sample_rate", 44100)
	v.SetDefault("audio.channels", 1)
	v.SetDefault("stream.duration", 2*time.Second)
	v.SetDefault("stream.capture_duration", time.Duration(0))
	v.SetDefault("stream.poll_interval", 100*time.Millisecond)
	v.SetDefault("stream.auto_timing", false)
	v.SetDefault("stream.print_when_done", true)
}

// Load reads the config from the platform config dir or returns defaults
func Load() (*Config, error) {
	return LoadFile(configPath())
}

// LoadFile reads path (json, yaml or toml). A missing file yields defaults.
// DSPIO_-prefixed environment variables override both, e.g.
// DSPIO_AUDIO_SAMPLE_RATE=48000. A .env file in the working directory is
// read first and never overrides variables that are already set.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to read .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("DSPIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	cfg := &Config{path: path}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Save writes the config back to the file it was loaded from
func (c *Config) Save() error {
	path := c.path
	if path == "" {
		path = configPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	v := viper.New()
	v.Set("log_level", c.LogLevel)
	v.Set("audio.input_device", c.Audio.InputDevice)
	v.Set("audio.output_device", c.Audio.OutputDevice)
	v.Set("audio.frame_length", c.Audio.FrameLength)
	v.Set("audio.sample_rate", c.Audio.SampleRate)
	v.Set("audio.channels", c.Audio.Channels)
	v.Set("stream.duration", c.Stream.Duration.String())
	v.Set("stream.capture_duration", c.Stream.CaptureDuration.String())
	v.Set("stream.poll_interval", c.Stream.PollInterval.String())
	v.Set("stream.auto_timing", c.Stream.AutoTiming)
	v.Set("stream.print_when_done", c.Stream.PrintWhenDone)
	return v.WriteConfigAs(path)
}

// Path is the file the config was loaded from.
func (c *Config) Path() string { return c.path }

func (c *Config) Validate() error {
	switch {
	case c.Audio.FrameLength <= 0:
		return fmt.Errorf("audio.frame_length must be positive, got %d", c.Audio.FrameLength)
	case c.Audio.SampleRate <= 0:
		return fmt.Errorf("audio.sample_rate must be positive, got %d", c.Audio.SampleRate)
	case c.Audio.Channels != 1 && c.Audio.Channels != 2:
		return fmt.Errorf("audio.channels must be 1 or 2, got %d", c.Audio.Channels)
	case c.Audio.InputDevice < 0 || c.Audio.OutputDevice < 0:
		return fmt.Errorf("device indices must not be negative")
	case c.Stream.Duration < 0:
		return fmt.Errorf("stream.duration must not be negative, got %v", c.Stream.Duration)
	case c.Stream.CaptureDuration < 0:
		return fmt.Errorf("stream.capture_duration must not be negative, got %v", c.Stream.CaptureDuration)
	case c.Stream.PollInterval <= 0:
		return fmt.Errorf("stream.poll_interval must be positive, got %v", c.Stream.PollInterval)
	}
	return nil
}

// configPath returns the platform-specific config file path
func configPath() string {
	var base string

	switch runtime.GOOS {
	case "darwin":
		base = os.Getenv("HOME") + "/Library/Application Support"
	case "windows":
		base = os.Getenv("APPDATA")
	default: // linux
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = xdg
		} else {
			base = os.Getenv("HOME") + "/.config"
		}
	}

	return filepath.Join(base, "dspio", "config.json")
}
