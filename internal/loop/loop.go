// Package loop plays a fixed signal over and over, one frame at a time.
package loop

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"
)

var ErrEmptySignal = errors.New("loop signal is empty")

// Signal holds interleaved 16-bit samples and a read position in frames.
type Signal struct {
	data     []int16
	channels int
	frames   int
	pos      int
}

// New builds a signal from interleaved samples. len(data) must be a multiple
// of channels. offset is the first frame Next returns.
func New(data []int16, channels, offset int) (*Signal, error) {
	if channels != 1 && channels != 2 {
		return nil, fmt.Errorf("unsupported channel count %d", channels)
	}
	if len(data) == 0 {
		return nil, ErrEmptySignal
	}
	if len(data)%channels != 0 {
		return nil, fmt.Errorf("signal length %d is not a multiple of %d channels", len(data), channels)
	}
	frames := len(data) / channels
	if offset < 0 || offset >= frames {
		offset = 0
	}
	return &Signal{data: data, channels: channels, frames: frames, pos: offset}, nil
}

// FromStereo packs two equally long channels into a stereo signal.
func FromStereo(left, right []int16, offset int) (*Signal, error) {
	if len(left) != len(right) {
		return nil, fmt.Errorf("channel lengths differ: %d and %d", len(left), len(right))
	}
	data := make([]int16, 2*len(left))
	for i := range left {
		data[2*i] = left[i]
		data[2*i+1] = right[i]
	}
	return New(data, 2, offset)
}

// FromWAV decodes a 1- or 2-channel PCM WAV file. Samples wider than
// 16 bits are scaled down.
func FromWAV(path string, offset int) (*Signal, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, 0, fmt.Errorf("not a valid wav file: %s", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	shift := int(dec.BitDepth) - 16
	data := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		switch {
		case shift > 0:
			v >>= shift
		case shift < 0:
			// 8-bit wav is unsigned
			v = (v - 128) << -shift
		}
		data[i] = int16(v)
	}

	sig, err := New(data, int(dec.NumChans), offset)
	if err != nil {
		return nil, 0, err
	}
	return sig, int(dec.SampleRate), nil
}

func (s *Signal) Channels() int { return s.channels }

func (s *Signal) Frames() int { return s.frames }

// Next returns the next frames frames as a view into the signal. When fewer
// than frames remain, playback wraps to the start first. A request longer
// than the whole signal is filled by repeating it.
func (s *Signal) Next(frames int) []int16 {
	if frames > s.frames {
		out := make([]int16, frames*s.channels)
		s.Fill(out)
		return out
	}
	if s.pos+frames > s.frames {
		s.pos = 0
	}
	start := s.pos * s.channels
	s.pos += frames
	return s.data[start : s.pos*s.channels]
}

// Fill copies the next len(out)/channels frames into out.
func (s *Signal) Fill(out []int16) {
	frames := len(out) / s.channels
	if frames <= s.frames {
		copy(out, s.Next(frames))
		return
	}
	for n := 0; len(out)-n >= s.channels; {
		chunk := min(s.frames, (len(out)-n)/s.channels)
		n += copy(out[n:], s.Next(chunk))
	}
}

// Rewind moves playback back to frame offset.
func (s *Signal) Rewind(offset int) {
	if offset < 0 || offset >= s.frames {
		offset = 0
	}
	s.pos = offset
}
