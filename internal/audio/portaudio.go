package audio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gordonklaus/portaudio"
	"github.com/rs/zerolog"
)

// PortAudio is a Driver backed by one PortAudio initialization.
type PortAudio struct {
	log zerolog.Logger

	terminateOnce sync.Once
	terminateErr  error
}

// NewPortAudio initializes PortAudio. Every successful call must be paired
// with Terminate.
func NewPortAudio(log zerolog.Logger) (*PortAudio, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, &SubsystemError{Op: "initialize", Err: err}
	}
	return &PortAudio{log: log}, nil
}

func (p *PortAudio) Devices() ([]DeviceInfo, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}

	result := make([]DeviceInfo, 0, len(devices))
	for i, d := range devices {
		result = append(result, DeviceInfo{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		})
	}
	return result, nil
}

func (p *PortAudio) OpenDuplex(params StreamParams, cb Callback) (Stream, error) {
	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate devices: %w", err)
	}
	in, err := deviceAt(devices, params.InputDevice)
	if err != nil {
		return nil, err
	}
	out, err := deviceAt(devices, params.OutputDevice)
	if err != nil {
		return nil, err
	}

	s := &paStream{cb: cb, channels: params.Channels}
	stream, err := portaudio.OpenStream(portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Device:   in,
			Channels: params.Channels,
			Latency:  in.DefaultLowInputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Device:   out,
			Channels: params.Channels,
			Latency:  out.DefaultLowOutputLatency,
		},
		SampleRate:      float64(params.SampleRate),
		FramesPerBuffer: params.FrameLength,
	}, s.process)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio stream: %w", err)
	}
	s.stream = stream

	p.log.Debug().
		Str("input", in.Name).
		Str("output", out.Name).
		Int("channels", params.Channels).
		Int("sample_rate", params.SampleRate).
		Int("frame_length", params.FrameLength).
		Msg("Opened duplex stream")
	return s, nil
}

func (p *PortAudio) Terminate() error {
	p.terminateOnce.Do(func() {
		p.terminateErr = portaudio.Terminate()
	})
	return p.terminateErr
}

// ListDevices initializes PortAudio just long enough to enumerate devices.
func ListDevices(log zerolog.Logger) (Registry, error) {
	pa, err := NewPortAudio(log)
	if err != nil {
		return nil, err
	}
	defer pa.Terminate()
	return EnumerateDevices(pa, log)
}

func deviceAt(devices []*portaudio.DeviceInfo, index int) (*portaudio.DeviceInfo, error) {
	if index < 0 || index >= len(devices) {
		return nil, fmt.Errorf("device not found: %d", index)
	}
	return devices[index], nil
}

type paStream struct {
	stream   *portaudio.Stream
	cb       Callback
	channels int

	started atomic.Bool
	stopped atomic.Bool
	closed  atomic.Bool
	// set by the callback once it returns anything but Continue
	result atomic.Int32
}

func (s *paStream) process(in, out []int16, ti portaudio.StreamCallbackTimeInfo, fl portaudio.StreamCallbackFlags) {
	if Result(s.result.Load()) != Continue {
		clear(out)
		return
	}

	res := s.cb(in, out, len(out)/s.channels, TimeInfo{
		InputBufferAdcTime:  ti.InputBufferAdcTime,
		CurrentTime:         ti.CurrentTime,
		OutputBufferDacTime: ti.OutputBufferDacTime,
	}, convertFlags(fl))
	if res != Continue {
		s.result.Store(int32(res))
	}
}

func (s *paStream) Start() error {
	if err := s.stream.Start(); err != nil {
		return fmt.Errorf("failed to start audio stream: %w", err)
	}
	s.started.Store(true)
	return nil
}

func (s *paStream) Stop() error {
	if !s.started.Load() || s.stopped.Swap(true) {
		return nil
	}
	if Result(s.result.Load()) == Abort {
		return s.stream.Abort()
	}
	return s.stream.Stop()
}

func (s *paStream) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.stream.Close()
}

func (s *paStream) Active() bool {
	return s.started.Load() && !s.stopped.Load() && Result(s.result.Load()) == Continue
}

func convertFlags(fl portaudio.StreamCallbackFlags) StatusFlags {
	var f StatusFlags
	if fl&portaudio.InputUnderflow != 0 {
		f |= InputUnderflow
	}
	if fl&portaudio.InputOverflow != 0 {
		f |= InputOverflow
	}
	if fl&portaudio.OutputUnderflow != 0 {
		f |= OutputUnderflow
	}
	if fl&portaudio.OutputOverflow != 0 {
		f |= OutputOverflow
	}
	if fl&portaudio.PrimingOutput != 0 {
		f |= PrimingOutput
	}
	return f
}
