package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/dspio/internal/audio"
	"github.com/petems/dspio/internal/callbacks"
	"github.com/petems/dspio/internal/capture"
	"github.com/petems/dspio/internal/config"
	"github.com/petems/dspio/internal/control"
	"github.com/petems/dspio/internal/logging"
	"github.com/petems/dspio/internal/loop"
	"github.com/petems/dspio/internal/session"
	"github.com/petems/dspio/internal/tray"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: dspio [-config file] <command> [flags]

commands:
  devices   list audio devices
  stream    run one duplex stream in the foreground
  tray      start/stop streams from the system tray
`)
}

func main() {
	configFile := flag.String("config", "", "Path to the config file (json, yaml or toml).")
	flag.Usage = usage
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	switch cmd, args := flag.Arg(0), flag.Args()[1:]; cmd {
	case "devices":
		err = listDevices(log)
	case "stream":
		err = stream(cfg, args, log)
	case "tray":
		err = runTray(cfg, log)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", flag.Arg(0)).Msg("Command failed")
	}
}

func listDevices(log zerolog.Logger) error {
	devices, err := audio.ListDevices(log)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "INDEX\tNAME\tINPUTS\tOUTPUTS")
	for _, d := range devices.Sorted() {
		fmt.Fprintf(w, "%d\t%s\t%d\t%d\n", d.Index, d.Name, d.MaxInputChannels, d.MaxOutputChannels)
	}
	return w.Flush()
}

func stream(cfg *config.Config, args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("stream", flag.ExitOnError)
	duration := fs.Duration("duration", cfg.Stream.Duration, "Stream length; 0 streams until interrupted.")
	channels := fs.Int("channels", cfg.Audio.Channels, "1 for mono, 2 for stereo.")
	in := fs.Int("in", cfg.Audio.InputDevice, "Input device index.")
	out := fs.Int("out", cfg.Audio.OutputDevice, "Output device index.")
	captureFor := fs.Duration("capture", cfg.Stream.CaptureDuration, "Keep the most recent input of this length; 0 disables capture and timing.")
	wavPath := fs.String("wav", "", "Write the captured input to this WAV file.")
	loopPath := fs.String("loop", "", "Play this WAV or MP3 file in a loop instead of passing input through.")
	stats := fs.Bool("stats", false, "Print callback timing statistics when done.")
	fs.Parse(args)

	cfg.Audio.Channels = *channels
	cfg.Audio.InputDevice = *in
	cfg.Audio.OutputDevice = *out
	cfg.Stream.Duration = *duration
	cfg.Stream.CaptureDuration = *captureFor
	if *stats {
		cfg.Stream.AutoTiming = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	buf := capture.ForDuration[int16](cfg.Audio.SampleRate, cfg.Stream.CaptureDuration)
	if *stats && !buf.Enabled() {
		log.Warn().Msg("Timing statistics need -capture > 0")
	}

	cb, err := newCallback(cfg, *loopPath, buf, log)
	if err != nil {
		return err
	}

	drv, err := audio.NewPortAudio(log)
	if err != nil {
		return err
	}
	s, err := session.New(sessionConfig(cfg, drv, cb, buf, nil, log))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := s.Run(ctx, cfg.Stream.Duration, cfg.Audio.Channels); err != nil {
		return err
	}

	if *stats {
		st, err := s.Stats()
		if err != nil {
			log.Warn().Err(err).Msg("No timing statistics")
		} else {
			fmt.Print(st)
		}
	}

	if *wavPath != "" {
		if err := writeCapture(buf, *wavPath, cfg.Audio.SampleRate); err != nil {
			return err
		}
		log.Info().Str("path", *wavPath).Msg("Wrote capture")
	}
	return nil
}

func newCallback(cfg *config.Config, loopPath string, buf *capture.Buffer[int16], log zerolog.Logger) (audio.Callback, error) {
	if loopPath == "" {
		return callbacks.NewPassthrough(cfg.Audio.Channels, cfg.Audio.FrameLength, buf).Process, nil
	}

	sig, rate, err := loop.FromFile(loopPath, 0)
	if err != nil {
		return nil, err
	}
	if rate != cfg.Audio.SampleRate {
		log.Debug().Int("file_rate", rate).Int("stream_rate", cfg.Audio.SampleRate).Msg("Resampling loop file")
		if sig, err = loop.Resample(sig, rate, cfg.Audio.SampleRate); err != nil {
			return nil, err
		}
	}
	return callbacks.NewPlayer(cfg.Audio.Channels, cfg.Audio.FrameLength, sig, buf).Process, nil
}

func sessionConfig(cfg *config.Config, drv audio.Driver, cb audio.Callback, buf *capture.Buffer[int16], status session.StatusUpdater, log zerolog.Logger) session.Config {
	return session.Config{
		Driver:          drv,
		Callback:        cb,
		InputDevice:     cfg.Audio.InputDevice,
		OutputDevice:    cfg.Audio.OutputDevice,
		FrameLength:     cfg.Audio.FrameLength,
		SampleRate:      cfg.Audio.SampleRate,
		CaptureDuration: cfg.Stream.CaptureDuration,
		Capture:         buf,
		PollInterval:    cfg.Stream.PollInterval,
		AutoTiming:      cfg.Stream.AutoTiming,
		PrintWhenDone:   cfg.Stream.PrintWhenDone,
		Logger:          log,
		StatusUpdater:   status,
	}
}

func writeCapture(buf *capture.Buffer[int16], path string, sampleRate int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := buf.WriteWAV(f, sampleRate); err != nil {
		f.Close()
		if errors.Is(err, capture.ErrEmpty) {
			return fmt.Errorf("nothing captured; set -capture: %w", err)
		}
		return err
	}
	return f.Close()
}

func runTray(cfg *config.Config, log zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	devices, err := audio.ListDevices(log)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create tray UI first (we'll pass it to the control)
	trayUI := tray.New(cfg, devices, Version, Commit, log)

	ctrl := control.New(control.Config{
		NewSession: func(status session.StatusUpdater) (*session.Session, error) {
			buf := capture.ForDuration[int16](cfg.Audio.SampleRate, cfg.Stream.CaptureDuration)
			drv, err := audio.NewPortAudio(log)
			if err != nil {
				return nil, err
			}
			cb := callbacks.NewPassthrough(cfg.Audio.Channels, cfg.Audio.FrameLength, buf).Process
			return session.New(sessionConfig(cfg, drv, cb, buf, status, log))
		},
		Duration: cfg.Stream.Duration,
		Channels: cfg.Audio.Channels,
		Output:   os.Stdout,
		View:     trayUI,
		Logger:   log,
	})

	// Set control reference in tray
	trayUI.SetControl(ctrl)

	log.Info().Msg("dspio tray starting...")

	// Setup shutdown signal handling
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Shutting down...")
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := ctrl.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Shutdown error")
		}
		cancel()
	}()

	// Start tray UI - MUST run on main thread
	return trayUI.Run(ctx)
}
