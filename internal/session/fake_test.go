package session

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/petems/dspio/internal/audio"
)

type mockDriver struct {
	devices   []audio.DeviceInfo
	devErr    error
	openErr   error
	startErr  error
	stopErr   error
	closeErr  error
	termErr   error
	autoFeed  bool
	feedEvery time.Duration

	mu         sync.Mutex
	stream     *mockStream
	terminated int
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		devices: []audio.DeviceInfo{
			{Index: 0, Name: "Microphone", MaxInputChannels: 2},
			{Index: 1, Name: "Speakers", MaxOutputChannels: 2},
			{Index: 2, Name: "Interface", MaxInputChannels: 2, MaxOutputChannels: 2},
			{Index: 3, Name: "HDMI", MaxOutputChannels: 8},
		},
		feedEvery: 100 * time.Microsecond,
	}
}

func (m *mockDriver) Devices() ([]audio.DeviceInfo, error) {
	return m.devices, m.devErr
}

func (m *mockDriver) OpenDuplex(params audio.StreamParams, cb audio.Callback) (audio.Stream, error) {
	if m.openErr != nil {
		return nil, m.openErr
	}
	s := &mockStream{
		params:    params,
		cb:        cb,
		startErr:  m.startErr,
		stopErr:   m.stopErr,
		closeErr:  m.closeErr,
		autoFeed:  m.autoFeed,
		feedEvery: m.feedEvery,
		in:        make([]int16, params.FrameLength*params.Channels),
		out:       make([]int16, params.FrameLength*params.Channels),
		quit:      make(chan struct{}),
	}
	m.mu.Lock()
	m.stream = s
	m.mu.Unlock()
	return s, nil
}

func (m *mockDriver) Terminate() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.terminated++
	return m.termErr
}

func (m *mockDriver) openedStream() *mockStream {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stream
}

func (m *mockDriver) terminateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.terminated
}

// mockStream stands in for the subsystem: deliver invokes the callback the
// way the real-time thread would.
type mockStream struct {
	params    audio.StreamParams
	cb        audio.Callback
	startErr  error
	stopErr   error
	closeErr  error
	autoFeed  bool
	feedEvery time.Duration
	in, out   []int16

	started      atomic.Bool
	stopped      atomic.Bool
	disconnected atomic.Bool
	completed    atomic.Bool
	stops        atomic.Int32
	closes       atomic.Int32

	quit     chan struct{}
	quitOnce sync.Once
	feedWG   sync.WaitGroup
}

func (s *mockStream) Start() error {
	if s.startErr != nil {
		return s.startErr
	}
	s.started.Store(true)
	if s.autoFeed {
		s.feedWG.Add(1)
		go s.feed()
	}
	return nil
}

func (s *mockStream) feed() {
	defer s.feedWG.Done()
	for {
		select {
		case <-s.quit:
			return
		case <-time.After(s.feedEvery):
			if !s.Active() {
				return
			}
			s.deliver()
		}
	}
}

func (s *mockStream) deliver() {
	if res := s.cb(s.in, s.out, s.params.FrameLength, audio.TimeInfo{}, 0); res != audio.Continue {
		s.completed.Store(true)
	}
}

// Stop fails only on its first call, like the PortAudio adapter which marks
// the stream stopped before asking the native side.
func (s *mockStream) Stop() error {
	n := s.stops.Add(1)
	s.stopped.Store(true)
	s.quitOnce.Do(func() { close(s.quit) })
	s.feedWG.Wait()
	if n == 1 {
		return s.stopErr
	}
	return nil
}

func (s *mockStream) Close() error {
	if s.closes.Add(1) > 1 {
		return errors.New("stream closed twice")
	}
	return s.closeErr
}

func (s *mockStream) Active() bool {
	return s.started.Load() && !s.stopped.Load() && !s.disconnected.Load() && !s.completed.Load()
}

type recordingStatus struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingStatus) SetStreaming() { r.record("streaming") }

func (r *recordingStatus) SetStopped() { r.record("stopped") }

func (r *recordingStatus) record(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingStatus) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}
