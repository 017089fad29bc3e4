// Package session runs one duplex audio stream driven by a user callback.
//
// A Session moves through Idle, Opening, Running, Stopping and Closed
// exactly once; streaming again needs a new Session. While Running, the
// subsystem invokes the callback on its own real-time thread and the
// goroutine that called Run polls for a stop condition every PollInterval:
//
//   - bounded runs (duration > 0) stop once the callback has delivered
//     floor(sampleRate * duration) frames, or when Stop is called;
//   - unbounded runs (duration == 0) stop only on Stop;
//   - either kind ends as soon as the stream reports itself inactive.
//
// The frame counter only advances inside the callback. A bounded run whose
// callback never fires therefore never reaches its bound and must be ended
// with Stop or context cancellation.
//
// Stop may be called from any goroutine at any time. It is observed at the
// next poll, so cancellation latency is at most PollInterval.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/petems/dspio/internal/audio"
	"github.com/petems/dspio/internal/capture"
)

const DefaultPollInterval = 100 * time.Millisecond

var (
	ErrNotIdle         = errors.New("session already started")
	ErrInvalidChannels = errors.New("channel count must be 1 or 2")
	ErrInvalidDuration = errors.New("duration must not be negative")
)

type State int32

const (
	Idle State = iota
	Opening
	Running
	Stopping
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Opening:
		return "opening"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// StatusUpdater is notified when streaming starts and when the session has
// been torn down (e.g., to reset a start/stop control).
type StatusUpdater interface {
	SetStreaming()
	SetStopped()
}

type Config struct {
	// Driver is owned by the session and terminated at teardown, or by New
	// when validation fails.
	Driver   audio.Driver
	Callback audio.Callback

	InputDevice  int
	OutputDevice int
	FrameLength  int
	SampleRate   int

	// CaptureDuration sizes the capture buffer; zero disables sample and
	// timing capture.
	CaptureDuration time.Duration
	// Capture, when set, is used instead of a buffer sized from
	// CaptureDuration so a callback built before the session can share it.
	Capture      *capture.Buffer[int16]
	PollInterval time.Duration
	// AutoTiming records callback entry and exit around every invocation.
	AutoTiming    bool
	PrintWhenDone bool

	Logger        zerolog.Logger
	StatusUpdater StatusUpdater // Optional - can be nil
}

type Session struct {
	id            string
	drv           audio.Driver
	cb            audio.Callback
	inDevice      int
	outDevice     int
	frameLength   int
	sampleRate    int
	pollInterval  time.Duration
	autoTiming    bool
	printWhenDone bool
	log           zerolog.Logger
	status        StatusUpdater
	capture       *capture.Buffer[int16]

	mu    sync.Mutex
	state State
	err   error
	done  chan struct{}

	// written by Stop, read by the poll loop
	stopRequested atomic.Bool
	// written by the callback, read by the poll loop
	frames atomic.Int64

	// a failed stop from the poll loop, reported again by teardown
	stopErr error

	teardownOnce sync.Once
	teardownErr  error
}

// New validates the device pair and returns an Idle session.
func New(cfg Config) (*Session, error) {
	if cfg.Driver == nil {
		return nil, errors.New("audio driver is required")
	}
	if err := checkConfig(cfg); err != nil {
		cfg.Driver.Terminate()
		return nil, err
	}

	id := uuid.NewString()
	log := cfg.Logger.With().Str("session", id).Logger()

	if err := ValidateDevices(cfg.Driver, cfg.InputDevice, cfg.OutputDevice, log); err != nil {
		cfg.Driver.Terminate()
		return nil, err
	}

	poll := cfg.PollInterval
	if poll <= 0 {
		poll = DefaultPollInterval
	}

	buf := cfg.Capture
	if buf == nil {
		buf = capture.ForDuration[int16](cfg.SampleRate, cfg.CaptureDuration)
	}

	return &Session{
		id:            id,
		drv:           cfg.Driver,
		cb:            cfg.Callback,
		inDevice:      cfg.InputDevice,
		outDevice:     cfg.OutputDevice,
		frameLength:   cfg.FrameLength,
		sampleRate:    cfg.SampleRate,
		pollInterval:  poll,
		autoTiming:    cfg.AutoTiming,
		printWhenDone: cfg.PrintWhenDone,
		log:           log,
		status:        cfg.StatusUpdater,
		capture:       buf,
		done:          make(chan struct{}),
	}, nil
}

func checkConfig(cfg Config) error {
	switch {
	case cfg.Callback == nil:
		return errors.New("stream callback is required")
	case cfg.FrameLength <= 0:
		return fmt.Errorf("invalid frame length %d", cfg.FrameLength)
	case cfg.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate %d", cfg.SampleRate)
	case cfg.CaptureDuration < 0:
		return fmt.Errorf("invalid capture duration %v", cfg.CaptureDuration)
	}
	return nil
}

// Run streams until a stop condition is met and the stream is torn down.
// duration == 0 streams until Stop is called or ctx is done.
func (s *Session) Run(ctx context.Context, duration time.Duration, channels int) error {
	if err := s.begin(duration, channels); err != nil {
		return err
	}
	return s.run(ctx, duration, channels)
}

// Start runs the session on its own goroutine. Argument and state errors
// are returned synchronously; run errors are reported by Wait.
func (s *Session) Start(duration time.Duration, channels int) error {
	if err := s.begin(duration, channels); err != nil {
		return err
	}
	go s.run(context.Background(), duration, channels)
	return nil
}

// Stop asks a running session to stop. It is a no-op before Start and
// after the session has closed.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case Opening, Running:
		if !s.stopRequested.Swap(true) {
			s.log.Debug().Msg("Stop requested")
		}
	}
}

// Wait blocks until a started session has closed and returns its error.
func (s *Session) Wait() error {
	if s.State() == Idle {
		return nil
	}
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session has closed.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Frames is the number of frames the callback has been handed so far.
func (s *Session) Frames() int64 { return s.frames.Load() }

func (s *Session) FrameLength() int { return s.frameLength }

func (s *Session) SampleRate() int { return s.sampleRate }

// Capture exposes the session's capture buffer to the callback.
func (s *Session) Capture() *capture.Buffer[int16] { return s.capture }

func (s *Session) Stats() (capture.Stats, error) {
	return s.capture.Stats(s.frameLength, s.sampleRate)
}

// ExpectedFrames is the frame bound of a bounded run.
func ExpectedFrames(sampleRate int, duration time.Duration) int64 {
	rate := int64(sampleRate)
	// whole seconds first so long durations do not overflow
	return rate*int64(duration/time.Second) + rate*int64(duration%time.Second)/int64(time.Second)
}

func (s *Session) begin(duration time.Duration, channels int) error {
	if channels != 1 && channels != 2 {
		return ErrInvalidChannels
	}
	if duration < 0 {
		return ErrInvalidDuration
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Idle {
		return ErrNotIdle
	}
	s.state = Opening
	return nil
}

func (s *Session) run(ctx context.Context, duration time.Duration, channels int) (err error) {
	defer func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.done)
	}()

	log := s.log.With().Dur("duration", duration).Int("channels", channels).Logger()
	s.frames.Store(0)
	s.capture.Reset(time.Now())

	if err := ValidateDevices(s.drv, s.inDevice, s.outDevice, log); err != nil {
		log.Error().Err(err).Msg("Device validation failed")
		return joinTeardown(err, s.teardown(nil))
	}

	params := audio.StreamParams{
		InputDevice:  s.inDevice,
		OutputDevice: s.outDevice,
		Channels:     channels,
		SampleRate:   s.sampleRate,
		FrameLength:  s.frameLength,
	}
	stream, err := s.drv.OpenDuplex(params, s.process)
	if err != nil {
		openErr := &audio.StreamOpenError{Params: params, Err: err}
		log.Error().Err(openErr).Msg("Failed to open stream")
		return joinTeardown(openErr, s.teardown(nil))
	}

	if err := stream.Start(); err != nil {
		openErr := &audio.StreamOpenError{Params: params, Err: err}
		log.Error().Err(openErr).Msg("Failed to start stream")
		return joinTeardown(openErr, s.teardown(stream))
	}

	s.setState(Running)
	if s.status != nil {
		s.status.SetStreaming()
	}
	log.Info().Msg("Streaming")

	s.pollLoop(ctx, stream, duration)

	return s.teardown(stream)
}

func (s *Session) pollLoop(ctx context.Context, stream audio.Stream, duration time.Duration) {
	bounded := duration > 0
	bound := ExpectedFrames(s.sampleRate, duration)

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	done := ctx.Done()
	for s.poll(stream, bounded, bound) {
		select {
		case <-done:
			s.stopRequested.Store(true)
			done = nil
		case <-ticker.C:
		}
	}
}

// poll checks the stop conditions once and reports whether the stream is
// still active.
func (s *Session) poll(stream audio.Stream, bounded bool, bound int64) bool {
	if !stream.Active() {
		return false
	}

	stop := s.stopRequested.Load()
	if bounded && s.frames.Load() >= bound {
		stop = true
	}
	if stop {
		if err := stream.Stop(); err != nil {
			s.log.Warn().Err(err).Msg("Failed to stop stream")
			s.stopErr = err
		}
	}
	return stream.Active()
}

func (s *Session) process(in, out []int16, frames int, info audio.TimeInfo, flags audio.StatusFlags) audio.Result {
	if s.autoTiming {
		s.capture.RecordEntry()
	}
	res := s.cb(in, out, frames, info, flags)
	s.frames.Add(int64(frames))
	if s.autoTiming {
		s.capture.RecordExit()
	}
	return res
}

// teardown stops and closes the stream and releases the driver. It runs
// once per session whatever ended the run.
func (s *Session) teardown(stream audio.Stream) error {
	s.teardownOnce.Do(func() {
		s.setState(Stopping)

		var errs []error
		if s.stopErr != nil {
			errs = append(errs, s.stopErr)
		}
		if stream != nil {
			if err := stream.Stop(); err != nil {
				errs = append(errs, err)
			}
			if err := stream.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		if err := s.drv.Terminate(); err != nil {
			errs = append(errs, err)
		}
		if err := errors.Join(errs...); err != nil {
			s.teardownErr = &audio.SubsystemError{Op: "teardown", Err: err}
			s.log.Error().Err(err).Msg("Stream teardown failed")
		}

		s.setState(Closed)
		if s.status != nil {
			s.status.SetStopped()
		}

		ev := s.log.Debug()
		if s.printWhenDone {
			ev = s.log.Info()
		}
		ev.Int64("frames", s.frames.Load()).Msg("Completed")
	})
	return s.teardownErr
}

func joinTeardown(err, teardownErr error) error {
	if teardownErr == nil {
		return err
	}
	return errors.Join(err, teardownErr)
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
