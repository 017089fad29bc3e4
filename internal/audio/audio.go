package audio

import (
	"time"

	"github.com/rs/zerolog"
)

// Driver is the native audio subsystem a session streams through.
// A Driver is owned by one session and released with Terminate.
type Driver interface {
	Devices() ([]DeviceInfo, error)
	OpenDuplex(params StreamParams, cb Callback) (Stream, error)
	Terminate() error
}

// Stream is an opened duplex stream.
type Stream interface {
	Start() error
	// Stop is idempotent.
	Stop() error
	Close() error
	// Active reports whether the subsystem is still invoking the callback.
	Active() bool
}

// StreamParams describes a duplex stream. Samples are always 16-bit signed.
type StreamParams struct {
	InputDevice  int
	OutputDevice int
	Channels     int
	SampleRate   int
	FrameLength  int
}

// DeviceInfo is a snapshot of one device taken at query time.
type DeviceInfo struct {
	Index             int
	Name              string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

func (d DeviceInfo) MarshalZerologObject(e *zerolog.Event) {
	e.Int("index", d.Index).
		Str("name", d.Name).
		Int("inputs", d.MaxInputChannels).
		Int("outputs", d.MaxOutputChannels)
}

// TimeInfo carries the subsystem's timing for one callback invocation.
type TimeInfo struct {
	InputBufferAdcTime  time.Duration
	CurrentTime         time.Duration
	OutputBufferDacTime time.Duration
}

// StatusFlags reports under/overflow conditions seen by the subsystem.
type StatusFlags uint

const (
	InputUnderflow StatusFlags = 1 << iota
	InputOverflow
	OutputUnderflow
	OutputOverflow
	PrimingOutput
)

// Result tells the subsystem whether to keep invoking the callback.
type Result int

const (
	Continue Result = iota
	Complete
	Abort
)

func (r Result) String() string {
	switch r {
	case Continue:
		return "continue"
	case Complete:
		return "complete"
	case Abort:
		return "abort"
	default:
		return "unknown"
	}
}

// Callback processes one frame. in and out hold frames*channels interleaved
// samples; out must be filled in place. It runs on the subsystem's real-time
// thread and must not block.
type Callback func(in, out []int16, frames int, info TimeInfo, flags StatusFlags) Result
