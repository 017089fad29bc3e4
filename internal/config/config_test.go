package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileMissingUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Audio.FrameLength != 1024 || cfg.Audio.SampleRate != 44100 || cfg.Audio.Channels != 1 {
		t.Errorf("unexpected audio defaults %+v", cfg.Audio)
	}
	if cfg.Audio.InputDevice != 1 || cfg.Audio.OutputDevice != 4 {
		t.Errorf("unexpected device defaults %+v", cfg.Audio)
	}
	if cfg.Stream.Duration != 2*time.Second || cfg.Stream.PollInterval != 100*time.Millisecond {
		t.Errorf("unexpected stream defaults %+v", cfg.Stream)
	}
	if cfg.Stream.CaptureDuration != 0 || !cfg.Stream.PrintWhenDone {
		t.Errorf("unexpected stream defaults %+v", cfg.Stream)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dspio.yaml")
	data := []byte(`
log_level: debug
audio:
  input_device: 2
  output_device: 2
  channels: 2
stream:
  duration: 0s
  capture_duration: 500ms
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("expected debug log level, got %q", cfg.LogLevel)
	}
	if cfg.Audio.InputDevice != 2 || cfg.Audio.OutputDevice != 2 || cfg.Audio.Channels != 2 {
		t.Errorf("unexpected audio config %+v", cfg.Audio)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("expected default sample rate to survive, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Stream.Duration != 0 || cfg.Stream.CaptureDuration != 500*time.Millisecond {
		t.Errorf("unexpected stream config %+v", cfg.Stream)
	}
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("DSPIO_AUDIO_SAMPLE_RATE", "48000")
	t.Setenv("DSPIO_STREAM_DURATION", "5s")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Audio.SampleRate != 48000 {
		t.Errorf("expected env sample rate 48000, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Stream.Duration != 5*time.Second {
		t.Errorf("expected env duration 5s, got %v", cfg.Stream.Duration)
	}
}

func TestSavePersistsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	cfg.Audio.OutputDevice = 7
	cfg.Stream.CaptureDuration = 1500 * time.Millisecond
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Audio.OutputDevice != 7 {
		t.Errorf("expected output device 7, got %d", reloaded.Audio.OutputDevice)
	}
	if reloaded.Stream.CaptureDuration != 1500*time.Millisecond {
		t.Errorf("expected capture duration 1.5s, got %v", reloaded.Stream.CaptureDuration)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero frame length", func(c *Config) { c.Audio.FrameLength = 0 }},
		{"zero sample rate", func(c *Config) { c.Audio.SampleRate = 0 }},
		{"three channels", func(c *Config) { c.Audio.Channels = 3 }},
		{"negative device", func(c *Config) { c.Audio.InputDevice = -1 }},
		{"negative duration", func(c *Config) { c.Stream.Duration = -time.Second }},
		{"negative capture", func(c *Config) { c.Stream.CaptureDuration = -time.Second }},
		{"zero poll interval", func(c *Config) { c.Stream.PollInterval = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.json"))
			if err != nil {
				t.Fatal(err)
			}
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadFileReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("DSPIO_AUDIO_CHANNELS=2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		os.Chdir(wd)
		os.Unsetenv("DSPIO_AUDIO_CHANNELS")
	})

	cfg, err := LoadFile(filepath.Join(dir, "missing.json"))
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Audio.Channels != 2 {
		t.Errorf("expected channels from .env, got %d", cfg.Audio.Channels)
	}
}
