// Package control binds start and stop triggers (tray items, buttons,
// hotkeys) to streaming sessions.
package control

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/petems/dspio/internal/session"
)

// View is the visual half of a start/stop control.
type View interface {
	SetStreaming()
	SetStopped()
}

// Factory builds a fresh session for every start, since sessions cannot be
// restarted. The session must report to status.
type Factory func(status session.StatusUpdater) (*session.Session, error)

type Config struct {
	NewSession Factory
	Duration   time.Duration // 0 streams until stopped
	Channels   int
	Output     io.Writer // status lines, may be nil
	View       View      // Optional - can be nil
	Logger     zerolog.Logger
}

type Control struct {
	newSession Factory
	out        io.Writer
	view       View
	log        zerolog.Logger

	mu        sync.Mutex
	duration  time.Duration
	channels  int
	streaming bool
	current   *session.Session
}

func New(cfg Config) *Control {
	channels := cfg.Channels
	if channels == 0 {
		channels = 1
	}
	return &Control{
		newSession: cfg.NewSession,
		out:        cfg.Output,
		view:       cfg.View,
		log:        cfg.Logger,
		duration:   cfg.Duration,
		channels:   channels,
	}
}

// OnStart starts a new session unless one is already streaming.
func (c *Control) OnStart() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming {
		return nil
	}

	s, err := c.newSession(c)
	if err != nil {
		c.log.Error().Err(err).Msg("Failed to create session")
		c.report("Error: %v", err)
		return err
	}
	if err := s.Start(c.duration, c.channels); err != nil {
		c.log.Error().Err(err).Msg("Failed to start session")
		c.report("Error: %v", err)
		return err
	}

	c.current = s
	c.streaming = true
	c.log.Info().Str("session", s.ID()).Dur("duration", c.duration).Int("channels", c.channels).Msg("Starting stream")
	c.report("Status: Streaming")
	return nil
}

// OnStop asks the current session to stop. Safe to call at any time.
func (c *Control) OnStop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current != nil {
		c.current.Stop()
	}
	c.report("Status: Stopped")
}

// Toggle starts when idle and stops when streaming.
func (c *Control) Toggle() error {
	if c.Streaming() {
		c.OnStop()
		return nil
	}
	return c.OnStart()
}

// Reset returns the control to its pre-start state.
func (c *Control) Reset() {
	c.mu.Lock()
	c.streaming = false
	c.mu.Unlock()

	if c.view != nil {
		c.view.SetStopped()
	}
}

// SetStreaming implements session.StatusUpdater.
func (c *Control) SetStreaming() {
	if c.view != nil {
		c.view.SetStreaming()
	}
}

// SetStopped implements session.StatusUpdater; the session calls it after
// teardown.
func (c *Control) SetStopped() {
	c.Reset()
}

func (c *Control) Streaming() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.streaming
}

// Session returns the most recently started session, or nil.
func (c *Control) Session() *session.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// SetDuration changes the duration used by the next start.
func (c *Control) SetDuration(d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming {
		return fmt.Errorf("cannot change while streaming")
	}
	if d < 0 {
		return session.ErrInvalidDuration
	}
	c.duration = d
	return nil
}

// SetChannels changes the channel count used by the next start.
func (c *Control) SetChannels(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.streaming {
		return fmt.Errorf("cannot change while streaming")
	}
	if n != 1 && n != 2 {
		return session.ErrInvalidChannels
	}
	c.channels = n
	return nil
}

// Shutdown stops the current session and waits for it to close.
func (c *Control) Shutdown(ctx context.Context) error {
	s := c.Session()
	if s == nil {
		return nil
	}
	s.Stop()

	select {
	case <-s.Done():
		if err := s.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Control) report(format string, args ...any) {
	if c.out == nil {
		return
	}
	fmt.Fprintf(c.out, format+"\n", args...)
}
